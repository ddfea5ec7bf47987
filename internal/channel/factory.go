//go:build !debug

package channel

// New returns a buffered channel of size.
func New[T any](size int) Channel[T] {
	return NewBuffered[T](size)
}
