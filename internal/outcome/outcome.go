// Package outcome tags the result of a call to an external collaborator.
//
// A Result either carries the real value, or a safe default together with the
// reason the real value could not be produced. Callers that only need a value
// read Value; callers that need to tell "really neutral" from "classifier
// unreachable" check Degraded.
package outcome

type Result[T any] struct {
	Value  T
	Reason error
}

func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

func Degraded[T any](fallback T, reason error) Result[T] {
	return Result[T]{Value: fallback, Reason: reason}
}

func (r Result[T]) Degraded() bool {
	return r.Reason != nil
}
