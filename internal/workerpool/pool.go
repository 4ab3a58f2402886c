package workerpool

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/devink/campusconnect/internal/logging"
)

// Task represents a unit of work to be executed by the pool.
// The context is cancelled when the task exceeds the pool's task timeout.
type Task func(ctx context.Context)

var (
	// ErrPoolClosed is returned when submitting to a closed pool.
	ErrPoolClosed = errors.New("worker pool closed")
	// ErrQueueFull is returned when the pool cannot accept more work.
	ErrQueueFull = errors.New("worker pool queue full")
)

// DefaultTaskTimeout guards against runaway tasks.
const DefaultTaskTimeout = 30 * time.Second

// Pool is a bounded worker pool executing submitted tasks.
type Pool struct {
	name        string
	size        int
	taskTimeout time.Duration
	queue       chan Task
	wg          sync.WaitGroup
	mu          sync.RWMutex
	closed      bool
}

// New creates a worker pool with the given size and queue capacity.
func New(name string, size, queueCap int) *Pool {
	return NewWithTimeout(name, size, queueCap, DefaultTaskTimeout)
}

// NewWithTimeout is New with an explicit per-task timeout.
func NewWithTimeout(name string, size, queueCap int, taskTimeout time.Duration) *Pool {
	if size <= 0 {
		size = 1
	}
	if queueCap <= 0 {
		queueCap = 1
	}
	if taskTimeout <= 0 {
		taskTimeout = DefaultTaskTimeout
	}
	p := &Pool{
		name:        name,
		size:        size,
		taskTimeout: taskTimeout,
		queue:       make(chan Task, queueCap),
	}
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for task := range p.queue {
		p.run(id, task)
	}
}

func (p *Pool) run(id int, task Task) {
	ctx, cancel := context.WithTimeout(context.Background(), p.taskTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorLog("workerpool '%s' worker %d recovered from panic: %v", p.name, id, r)
		}
	}()
	task(ctx)
}

// Submit enqueues a task without blocking.
func (p *Pool) Submit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.queue <- task:
		return nil
	default:
		logging.WarnLog("workerpool '%s' queue full; dropping task", p.name)
		return ErrQueueFull
	}
}

// Close stops accepting work, drains queued tasks and waits up to five
// seconds for workers to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		logging.WarnLog("workerpool '%s' shutdown timed out", p.name)
	}
}
