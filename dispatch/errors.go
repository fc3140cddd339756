package dispatch

import (
	"errors"
	"fmt"
)

// ErrWorkerAbandoned is returned by Stop when the worker did not exit within the
// stop grace plus the abandon grace. The goroutine may still be running a receiver.
var ErrWorkerAbandoned = errors.New("dispatcher worker abandoned before it exited")

// PanicError reports a receiver panic recovered by a Forwarder while it kept
// draining. The dispatcher logs and counts it like a panic it recovered itself.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("receiver panicked: %v", e.Value)
}
