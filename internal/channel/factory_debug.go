//go:build debug

package channel

// New ignores size in debug builds so every send waits for its consumer,
// which makes ordering and drop paths easy to reproduce.
func New[T any](size int) Channel[T] {
	return NewUnbuffered[T]()
}
