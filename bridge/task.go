package bridge

import (
	"errors"
	"fmt"
)

// ErrPanicked is matched by the error of a task that panicked.
var ErrPanicked = errors.New("bridge: task panicked")

// PanicError carries the value a task panicked with.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("bridge: task panicked: %v", e.Value) }

// Is matches ErrPanicked.
func (e *PanicError) Is(target error) bool { return target == ErrPanicked }

// Task is a unit of work running on its own goroutine.
type Task[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Go runs fn on a new goroutine. A panic in fn is recovered and reported by
// Wait as a *PanicError.
func Go[T any](fn func() (T, error)) *Task[T] {
	t := &Task[T]{done: make(chan struct{})}
	go func() {
		defer close(t.done)
		defer func() {
			if r := recover(); r != nil {
				t.err = &PanicError{Value: r}
			}
		}()
		t.val, t.err = fn()
	}()
	return t
}

// Done is closed when the task has finished.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

// Wait blocks until the task has finished and returns its result.
func (t *Task[T]) Wait() (T, error) {
	<-t.done
	return t.val, t.err
}
