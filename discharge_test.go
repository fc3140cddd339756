package tidings

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDischarge(t *testing.T) {
	src := &publisher{}
	before := time.Now()
	d := NewDischarge(src, 42)

	assert.Same(t, src, d.Sender())
	assert.Equal(t, 42, d.Payload())
	firedAt := time.Time(d.FiredAt())
	assert.False(t, firedAt.Before(before))
	assert.False(t, firedAt.After(time.Now()))

	t.Run("logs as a group", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))
		logger.Info("fired", slog.Any("discharge", d))

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		group, ok := rec["discharge"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "*tidings.publisher", group["sender"])
		assert.Equal(t, float64(42), group["payload"])
		assert.Equal(t, d.FiredAt().String(), group["fired_at"])
	})
}
