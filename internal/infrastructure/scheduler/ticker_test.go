package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestTickerRunsImmediatelyAndRepeats(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	fired := make(chan struct{}, 16)

	ticker := NewTicker(10 * time.Millisecond)
	err := ticker.Start(context.Background(), func(time.Time) {
		runs.Add(1)
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < 3; i++ {
		select {
		case <-fired:
		case <-time.After(2 * time.Second):
			t.Fatalf("job did not fire (run %d)", i)
		}
	}

	if err := ticker.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	if runs.Load() != after {
		t.Fatalf("job ran after stop")
	}
}

func TestTickerStopsWithContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	ticker := NewTicker(time.Hour)

	fired := make(chan struct{}, 1)
	if err := ticker.Start(ctx, func(time.Time) { fired <- struct{}{} }); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-fired
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := ticker.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestTickerStopWithoutStart(t *testing.T) {
	t.Parallel()

	if err := NewTicker(time.Minute).Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
