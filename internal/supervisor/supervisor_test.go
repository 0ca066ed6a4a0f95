package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type flakyTask struct {
	runs    int32
	failFor int32
}

func (f *flakyTask) Run(ctx context.Context) error {
	n := atomic.AddInt32(&f.runs, 1)
	if n <= f.failFor {
		return errors.New("boom")
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestSupervisorRestartsFailingTask(t *testing.T) {
	task := &flakyTask{failFor: 2}
	s := New(zerolog.Nop(), map[string]Task{"flaky": task})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not return after context cancellation")
	}

	require.GreaterOrEqual(t, atomic.LoadInt32(&task.runs), int32(3))
}

type blockingTask struct{}

func (blockingTask) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestSupervisorGracefulShutdown(t *testing.T) {
	s := New(zerolog.Nop(), map[string]Task{"worker": blockingTask{}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not shut down")
	}
}
