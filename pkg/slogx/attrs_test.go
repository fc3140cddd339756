package slogx

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAttrs(t *testing.T) {
	t.Run("error", func(t *testing.T) {
		attr := Error(errors.New("boom"))
		assert.Equal(t, "error", attr.Key)
		assert.Equal(t, "boom", attr.Value.String())
	})

	t.Run("logger name", func(t *testing.T) {
		attr := LoggerName("tidings.dispatcher")
		assert.Equal(t, KeyLoggerName, attr.Key)
		assert.Equal(t, "tidings.dispatcher", attr.Value.String())
	})

	t.Run("subscriber", func(t *testing.T) {
		attr := SubscriberID("abc")
		assert.Equal(t, KeySubscriber, attr.Key)
		assert.Equal(t, "abc", attr.Value.String())
	})

	t.Run("stringer", func(t *testing.T) {
		attr := Stringer("took", 2*time.Second)
		assert.Equal(t, "2s", attr.Value.String())
	})
}

func TestPanic(t *testing.T) {
	t.Run("with stack", func(t *testing.T) {
		attr := Panic("kaboom", []byte("goroutine 1"))
		assert.Equal(t, "panic", attr.Key)
		assert.Equal(t, slog.KindGroup, attr.Value.Kind())

		group := attr.Value.Group()
		assert.Len(t, group, 2)
		assert.Equal(t, "kaboom", group[0].Value.String())
		assert.Equal(t, "goroutine 1", group[1].Value.String())
	})

	t.Run("without stack", func(t *testing.T) {
		attr := Panic(errors.New("bad"), nil)
		group := attr.Value.Group()
		assert.Len(t, group, 1)
		assert.Equal(t, "bad", group[0].Value.String())
	})
}
