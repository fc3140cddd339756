package tidings

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/casualjim/tidings/pkg/slogx"
	"github.com/go-openapi/strfmt"
)

// Discharge records a single firing of an event: who fired it, with what, and when.
// It is immutable once created.
type Discharge[T any] struct {
	sender  any
	payload T
	firedAt strfmt.DateTime
}

// NewDischarge creates a Discharge stamped with the current time.
func NewDischarge[T any](sender any, payload T) Discharge[T] {
	return Discharge[T]{
		sender:  sender,
		payload: payload,
		firedAt: strfmt.DateTime(time.Now()),
	}
}

// Sender returns the object that fired the event. The discharge does not own it.
func (d Discharge[T]) Sender() any { return d.sender }

// Payload returns the event argument.
func (d Discharge[T]) Payload() T { return d.payload }

// FiredAt returns when the event was fired.
func (d Discharge[T]) FiredAt() strfmt.DateTime { return d.firedAt }

// LogValue implements slog.LogValuer.
func (d Discharge[T]) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("sender", fmt.Sprintf("%T", d.sender)),
		slog.Any("payload", d.payload),
		slogx.Stringer("fired_at", d.firedAt),
	)
}
