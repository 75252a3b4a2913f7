package repositories

import (
	"context"

	"smartbite/internal/store"
	"smartbite/pkg/result"
)

// listen turns a store subscription into a stream of results. The returned stop
// func detaches the listener; the channel is closed afterwards. A reader that
// lags only sees the most recent result.
func listen[T any](ctx context.Context, s store.Store, path, okMsg string, decode func([]store.Child) []T) (<-chan result.Result[[]T], func()) {
	out := make(chan result.Result[[]T], 1)

	sub, err := s.Subscribe(ctx, path)
	if err != nil {
		out <- result.FromError[[]T](err, "Listen failed")
		close(out)
		return out, func() {}
	}

	go func() {
		defer close(out)
		for snap := range sub.C {
			res := result.OK(okMsg, decode(snap))
			select {
			case <-out:
			default:
			}
			out <- res
		}
	}()
	return out, sub.Close
}
