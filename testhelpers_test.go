package tidings

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/casualjim/tidings/dispatch"
)

type record struct {
	sender  any
	payload int
}

// recordingReceiver keeps every (sender, payload) pair it is handed.
type recordingReceiver struct {
	mu      sync.Mutex
	wg      *sync.WaitGroup
	records []record
	fail    func(payload int) error
}

func newRecordingReceiver() *recordingReceiver {
	return &recordingReceiver{}
}

func (r *recordingReceiver) HandleEvent(_ context.Context, sender any, payload int) error {
	if r.fail != nil {
		if err := r.fail(payload); err != nil {
			return err
		}
	}
	r.mu.Lock()
	r.records = append(r.records, record{sender: sender, payload: payload})
	r.mu.Unlock()
	if r.wg != nil {
		r.wg.Done()
	}
	return nil
}

func (r *recordingReceiver) snapshot() []record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]record, len(r.records))
	copy(out, r.records)
	return out
}

func (r *recordingReceiver) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDispatcher(t *testing.T, options ...dispatch.Option) *dispatch.Dispatcher {
	t.Helper()
	options = append([]dispatch.Option{dispatch.WithLogger(quietLogger())}, options...)
	d := dispatch.New(options...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = d.Stop(ctx)
	})
	return d
}

// waitGroupDone fails the test when wg isn't done within timeout.
func waitGroupDone(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("timeout waiting for events to be delivered")
	}
}
