package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"jobingest-engine/internal/domain"
	"jobingest-engine/internal/events"
)

const statusWriteTimeout = 5 * time.Second

// executor drives one task from pending to a terminal status.
type executor struct {
	store  StatusStore
	policy RetryPolicy
	events events.Publisher
}

func (e executor) put(ctx context.Context, info TaskInfo) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
	defer cancel()
	if err := e.store.Put(wctx, info); err != nil {
		log.Printf("[tasks] task=%s status=%s store err=%v", info.ID, info.Status, err)
	}
	e.events.Publish(events.MakeEvent("", events.TypeTask, 1, info))
}

func (e executor) run(ctx context.Context, info TaskInfo, w Work) TaskInfo {
	now := time.Now().UTC()
	info.Status = StatusRunning
	info.Attempts = 1
	info.StartedAt = &now
	e.put(ctx, info)

	var result any
	attempts, err := Retry(ctx, e.policy, info.Name, func(ctx context.Context, attempt int) error {
		if attempt > 1 {
			info.Attempts = attempt
			e.put(ctx, info)
		}
		r, err := w(ctx)
		result = r
		return err
	})

	done := time.Now().UTC()
	info.Attempts = attempts
	info.FinishedAt = &done
	if result != nil {
		if b, merr := json.Marshal(result); merr == nil {
			info.Result = b
		} else {
			log.Printf("[tasks] task=%s encode result err=%v", info.ID, merr)
		}
	}
	if err != nil {
		info.Status = StatusFailed
		info.Error = err.Error()
		info.ErrorKind = domain.KindOf(err)
		log.Printf("[tasks] task=%s name=%q status=failed attempts=%d kind=%s err=%v",
			info.ID, info.Name, attempts, info.ErrorKind, err)
	} else {
		info.Status = StatusSucceeded
		log.Printf("[tasks] task=%s name=%q status=succeeded attempts=%d dur=%s",
			info.ID, info.Name, attempts, done.Sub(*info.StartedAt).Round(time.Millisecond))
	}
	e.put(ctx, info)
	return info
}

func newInfo(name string) TaskInfo {
	return TaskInfo{
		ID:          uuid.NewString(),
		Name:        name,
		Status:      StatusPending,
		SubmittedAt: time.Now().UTC(),
	}
}

type Options struct {
	Store  StatusStore
	Policy RetryPolicy
	Events events.Publisher
}

func (o Options) executor() executor {
	if o.Store == nil {
		o.Store = NewMemoryStatusStore()
	}
	if o.Events == nil {
		o.Events = events.Discard{}
	}
	return executor{store: o.Store, policy: o.Policy, events: o.Events}
}

// AsyncRunner runs each task on its own goroutine under a cancellable context
// derived from the runner's base context.
type AsyncRunner struct {
	executor
	base context.Context

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

var _ Runner = (*AsyncRunner)(nil)

func NewAsyncRunner(base context.Context, opts Options) *AsyncRunner {
	return &AsyncRunner{
		executor: opts.executor(),
		base:     base,
		cancels:  make(map[string]context.CancelFunc),
	}
}

func (r *AsyncRunner) Submit(name string, w Work) (TaskInfo, error) {
	if err := r.base.Err(); err != nil {
		return TaskInfo{}, fmt.Errorf("runner stopped: %w", err)
	}
	info := newInfo(name)
	ctx, cancel := context.WithCancel(r.base)

	r.mu.Lock()
	r.cancels[info.ID] = cancel
	r.mu.Unlock()

	r.put(ctx, info)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			r.mu.Lock()
			delete(r.cancels, info.ID)
			r.mu.Unlock()
			cancel()
		}()
		r.run(ctx, info, w)
	}()
	return info, nil
}

func (r *AsyncRunner) Status(ctx context.Context, id string) (TaskInfo, error) {
	return r.store.Get(ctx, id)
}

// Cancel stops a pending or running task; the task ends failed with kind cancelled.
func (r *AsyncRunner) Cancel(id string) error {
	r.mu.Lock()
	cancel, ok := r.cancels[id]
	r.mu.Unlock()
	if ok {
		log.Printf("[tasks] task=%s cancel requested", id)
		cancel()
		return nil
	}

	ctx, done := context.WithTimeout(context.Background(), statusWriteTimeout)
	defer done()
	info, err := r.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if info.Status.Terminal() {
		return ErrTaskFinished
	}
	// known to the store but owned by another process
	return fmt.Errorf("task %s is not running in this process: %w", id, ErrTaskNotFound)
}

// Wait blocks until every submitted task has finished.
func (r *AsyncRunner) Wait() {
	r.wg.Wait()
}

// SyncRunner runs the task inline inside Submit; the returned TaskInfo is terminal.
type SyncRunner struct {
	executor
	ctx context.Context
}

var _ Runner = (*SyncRunner)(nil)

func NewSyncRunner(ctx context.Context, opts Options) *SyncRunner {
	return &SyncRunner{executor: opts.executor(), ctx: ctx}
}

func (r *SyncRunner) Submit(name string, w Work) (TaskInfo, error) {
	info := newInfo(name)
	r.put(r.ctx, info)
	return r.run(r.ctx, info, w), nil
}

func (r *SyncRunner) Status(ctx context.Context, id string) (TaskInfo, error) {
	return r.store.Get(ctx, id)
}

func (r *SyncRunner) Cancel(id string) error {
	if _, err := r.store.Get(context.Background(), id); errors.Is(err, ErrTaskNotFound) {
		return err
	}
	return ErrTaskFinished
}
