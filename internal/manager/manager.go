package manager

import (
	"context"

	"github.com/devink/campusconnect/internal/config"
	"github.com/devink/campusconnect/internal/workerpool"
)

// WorkManager provides separate pools for store, password hashing, address
// lookup and mail work so slow dependencies never starve each other.
type WorkManager struct {
	db     *workerpool.Pool
	crypto *workerpool.Pool
	lookup *workerpool.Pool
	smtp   *workerpool.Pool
}

// Option configures the WorkManager.
type Option func(*options)

type options struct {
	dbWorkers     int
	cryptoWorkers int
	lookupWorkers int
	smtpWorkers   int
	queueSize     int
}

// WithDBWorkers sets the store worker count.
func WithDBWorkers(n int) Option { return func(o *options) { o.dbWorkers = n } }

// WithCryptoWorkers sets the password hashing worker count.
func WithCryptoWorkers(n int) Option { return func(o *options) { o.cryptoWorkers = n } }

// WithLookupWorkers sets the address lookup worker count.
func WithLookupWorkers(n int) Option { return func(o *options) { o.lookupWorkers = n } }

// WithSMTPWorkers sets the mail worker count.
func WithSMTPWorkers(n int) Option { return func(o *options) { o.smtpWorkers = n } }

// WithQueueSize sets the queue size (per pool).
func WithQueueSize(n int) Option { return func(o *options) { o.queueSize = n } }

// NewWorkManager constructs the manager with the given options (or defaults from config).
func NewWorkManager(opts ...Option) *WorkManager {
	o := &options{
		dbWorkers:     config.DBWorkerCount(),
		cryptoWorkers: config.CryptoWorkerCount(),
		lookupWorkers: config.LookupWorkerCount(),
		smtpWorkers:   config.SMTPWorkerCount(),
		queueSize:     config.WorkerQueueSize(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return &WorkManager{
		db:     workerpool.New("db", o.dbWorkers, o.queueSize),
		crypto: workerpool.New("crypto", o.cryptoWorkers, o.queueSize),
		lookup: workerpool.New("lookup", o.lookupWorkers, o.queueSize),
		smtp:   workerpool.New("smtp", o.smtpWorkers, o.queueSize),
	}
}

// Close shuts down all pools.
func (m *WorkManager) Close() {
	if m == nil {
		return
	}
	m.db.Close()
	m.crypto.Close()
	m.lookup.Close()
	m.smtp.Close()
}

// SubmitLookup schedules an address lookup without waiting for it.
func (m *WorkManager) SubmitLookup(fn func(ctx context.Context)) error {
	return m.lookup.Submit(workerpool.Task(fn))
}

// SubmitSMTP schedules outgoing mail without waiting for it.
func (m *WorkManager) SubmitSMTP(fn func(ctx context.Context)) error {
	return m.smtp.Submit(workerpool.Task(fn))
}

// RunDB runs fn on the store pool and waits for its result.
func (m *WorkManager) RunDB(ctx context.Context, fn func(ctx context.Context) error) error {
	return run(ctx, m.db, fn)
}

// RunCrypto runs fn on the hashing pool and waits for its result.
func (m *WorkManager) RunCrypto(ctx context.Context, fn func(ctx context.Context) error) error {
	return run(ctx, m.crypto, fn)
}

// run waits for whichever comes first: the task result or the caller giving up.
// The caller's deadline is propagated to the task.
func run(ctx context.Context, p *workerpool.Pool, fn func(ctx context.Context) error) error {
	resultCh := make(chan error, 1)
	if err := p.Submit(func(poolCtx context.Context) {
		taskCtx, cancel := mergeDeadline(poolCtx, ctx)
		defer cancel()
		resultCh <- fn(taskCtx)
	}); err != nil {
		return err
	}
	select {
	case err := <-resultCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func mergeDeadline(poolCtx, callerCtx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(poolCtx)
	stop := context.AfterFunc(callerCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
