// Package channel wraps Go channels behind small interfaces so producers can be
// built against a buffered channel in production and an unbuffered one in debug builds.
package channel

// Receiver provides read access to a channel.
type Receiver[T any] interface {
	Receive() <-chan T
	Len() int
}

// Sender provides write access to a channel.
type Sender[T any] interface {
	// Send blocks until the value is accepted.
	Send(T)
	// TrySend reports whether the value was accepted without blocking.
	TrySend(T) bool
}

// Channel combines read and write access.
type Channel[T any] interface {
	Receiver[T]
	Sender[T]
	Close()
}
