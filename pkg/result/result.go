// Package result carries the (success, message, payload) outcome that every
// catalog, profile and order operation reports to its caller.
package result

import "context"

// Kind classifies a failure. The zero value is a failed remote call.
type Kind int

const (
	KindRemote Kind = iota
	KindInvalid
	KindNotFound
	KindForbidden
	KindConflict
)

// Result is the outcome of a single remote operation.
type Result[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
	Kind    Kind   `json:"-"`
}

// Status is a Result without a payload.
type Status = Result[struct{}]

// OK builds a successful result carrying data.
func OK[T any](message string, data T) Result[T] {
	return Result[T]{Success: true, Message: message, Data: data}
}

// Fail builds a failed result with the zero payload.
func Fail[T any](message string) Result[T] {
	return Result[T]{Message: message}
}

// Reject builds a failed result of the given kind.
func Reject[T any](kind Kind, message string) Result[T] {
	return Result[T]{Message: message, Kind: kind}
}

// Rejected is a failed Status of the given kind.
func Rejected(kind Kind, message string) Status {
	return Status{Message: message, Kind: kind}
}

// Forward re-types a failed result, keeping its message and kind.
func Forward[T, U any](res Result[U]) Result[T] {
	return Result[T]{Message: res.Message, Kind: res.Kind}
}

// FromError builds a failed result from err, using fallback when err carries no text.
func FromError[T any](err error, fallback string) Result[T] {
	if err == nil || err.Error() == "" {
		return Fail[T](fallback)
	}
	return Fail[T](err.Error())
}

// Done is a successful Status.
func Done(message string) Status {
	return Status{Success: true, Message: message}
}

// Failed is a failed Status.
func Failed(message string) Status {
	return Status{Message: message}
}

// Go runs fn on its own goroutine and delivers its result on the returned
// channel, which receives exactly one value and is then closed.
// If ctx ends first, a failed result carrying ctx.Err() is delivered instead.
func Go[T any](ctx context.Context, fn func(ctx context.Context) Result[T]) <-chan Result[T] {
	out := make(chan Result[T], 1)
	go func() {
		defer close(out)

		done := make(chan Result[T], 1)
		go func() { done <- fn(ctx) }()

		select {
		case res := <-done:
			out <- res
		case <-ctx.Done():
			out <- FromError[T](ctx.Err(), "operation cancelled")
		}
	}()
	return out
}
