package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPool_RunsSubmittedTasks(t *testing.T) {
	p := New("test", 3, 16)
	defer p.Close()

	var wg sync.WaitGroup
	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		if err := p.Submit(func(ctx context.Context) {
			defer wg.Done()
			ran.Add(1)
		}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	wg.Wait()
	if got := ran.Load(); got != 10 {
		t.Errorf("expected 10 tasks to run, got %d", got)
	}
}

func TestPool_QueueFull(t *testing.T) {
	p := New("full", 1, 1)
	defer p.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	if err := p.Submit(func(ctx context.Context) {
		close(started)
		<-release
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-started

	if err := p.Submit(func(ctx context.Context) {}); err != nil {
		t.Fatalf("second Submit should queue: %v", err)
	}
	if err := p.Submit(func(ctx context.Context) {}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
	close(release)
}

func TestPool_SubmitAfterClose(t *testing.T) {
	p := New("closed", 1, 1)
	p.Close()
	p.Close()

	if err := p.Submit(func(ctx context.Context) {}); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("expected ErrPoolClosed, got %v", err)
	}
}

func TestPool_RecoversFromPanic(t *testing.T) {
	p := New("panic", 1, 4)
	defer p.Close()

	done := make(chan struct{})
	_ = p.Submit(func(ctx context.Context) { panic("boom") })
	_ = p.Submit(func(ctx context.Context) { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive a panicking task")
	}
}

func TestPool_TaskTimeout(t *testing.T) {
	p := NewWithTimeout("timeout", 1, 1, 20*time.Millisecond)
	defer p.Close()

	errCh := make(chan error, 1)
	_ = p.Submit(func(ctx context.Context) {
		<-ctx.Done()
		errCh <- ctx.Err()
	})

	select {
	case err := <-errCh:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("task context was not cancelled")
	}
}
