// Package slogx holds the slog attribute helpers shared by the tidings packages,
// so every log record names the same things with the same keys.
package slogx

import (
	"fmt"
	"log/slog"
)

const (
	// KeyLoggerName is the attribute key naming the component that logged a record.
	KeyLoggerName = "logger"
	// KeySubscriber is the attribute key for a subscriber id.
	KeySubscriber = "subscriber"
)

// Error returns a slog.Attr representing the provided error.
// The attribute key is "error" and the value is the error's message.
func Error(err error) slog.Attr {
	return slog.String("error", err.Error())
}

// LoggerName creates a slog.Attr with the provided logger name.
// The attribute key is defined by KeyLoggerName.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}

// SubscriberID creates a slog.Attr identifying a subscriber.
func SubscriberID(id string) slog.Attr {
	return slog.String(KeySubscriber, id)
}

// Panic renders a recovered panic value and the goroutine stack as a group.
// The stack is omitted when empty.
func Panic(value any, stack []byte) slog.Attr {
	attrs := []any{slog.String("value", fmt.Sprint(value))}
	if len(stack) > 0 {
		attrs = append(attrs, slog.String("stack", string(stack)))
	}
	return slog.Group("panic", attrs...)
}

// Stringer creates a slog.Attr with the provided key and the string representation
// of the given fmt.Stringer value.
func Stringer(key string, value fmt.Stringer) slog.Attr {
	return slog.String(key, value.String())
}
