package executor

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ShayCichocki/rdteam/internal/delegate"
)

// ErrAlreadyRunning is returned by Dispatch when the task already has a
// run in flight.
var ErrAlreadyRunning = errors.New("task is already running")

// AsyncDispatcher starts one goroutine per delegation. At most one run per
// task is in flight.
type AsyncDispatcher struct {
	runner Runner
	logger *zap.Logger
	ctx    context.Context
	onDone func(req delegate.Request, res *Result, err error)

	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

var _ delegate.Dispatcher = (*AsyncDispatcher)(nil)

// DispatcherOption configures an AsyncDispatcher.
type DispatcherOption func(*AsyncDispatcher)

// WithOnDone registers a callback invoked after every run, from the run's
// goroutine.
func WithOnDone(fn func(req delegate.Request, res *Result, err error)) DispatcherOption {
	return func(d *AsyncDispatcher) {
		d.onDone = fn
	}
}

// WithDispatcherLogger sets the logger.
func WithDispatcherLogger(l *zap.Logger) DispatcherOption {
	return func(d *AsyncDispatcher) {
		d.logger = l
	}
}

// NewAsyncDispatcher creates a dispatcher. Runs use ctx, not the context
// passed to Dispatch, so they outlive the turn that started them;
// cancelling ctx stops them.
func NewAsyncDispatcher(ctx context.Context, runner Runner, opts ...DispatcherOption) *AsyncDispatcher {
	d := &AsyncDispatcher{
		runner:  runner,
		logger:  zap.NewNop(),
		ctx:     ctx,
		running: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch starts a run for req and returns without waiting for it.
func (d *AsyncDispatcher) Dispatch(ctx context.Context, req delegate.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	if _, busy := d.running[req.TaskID]; busy {
		d.mu.Unlock()
		return ErrAlreadyRunning
	}
	d.running[req.TaskID] = struct{}{}
	d.wg.Add(1)
	d.mu.Unlock()

	ActiveRuns.Inc()
	go func() {
		defer d.wg.Done()
		defer ActiveRuns.Dec()

		res, err := d.runner.Run(d.ctx, req)
		if err != nil {
			d.logger.Warn("executor run failed", zap.String("task", req.TaskID), zap.Error(err))
		}

		// Release before the callback so it can re-dispatch.
		d.mu.Lock()
		delete(d.running, req.TaskID)
		d.mu.Unlock()

		if d.onDone != nil {
			d.onDone(req, res, err)
		}
	}()
	return nil
}

// Active returns the ids of tasks with a run in flight, sorted.
func (d *AsyncDispatcher) Active() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.running))
	for id := range d.running {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Wait blocks until every started run has returned.
func (d *AsyncDispatcher) Wait() {
	d.wg.Wait()
}
