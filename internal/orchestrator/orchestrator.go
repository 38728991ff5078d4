// Package orchestrator fans scraping out across companies under a process-wide
// concurrency cap and records one run-log row per company attempt.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"jobingest-engine/internal/domain"
	"jobingest-engine/internal/events"
	"jobingest-engine/internal/normalize"
	"jobingest-engine/internal/scrape/types"
	"jobingest-engine/internal/store"
	"jobingest-engine/internal/tasks"
	"jobingest-engine/internal/upsert"
)

const (
	DefaultMaxConcurrency = 3
	DefaultCompanyTimeout = 5 * time.Minute
	DefaultAbandonGrace   = time.Second

	writeTimeout = 10 * time.Second
)

// Resolver turns a stored config into a ready adapter.
type Resolver interface {
	Resolve(cfg domain.CompanyScraperConfig) (types.Adapter, error)
}

// Store is the subset of store.Store the orchestrator writes to.
type Store interface {
	store.ConfigStore
	store.RunLogStore
}

type Options struct {
	MaxConcurrency int
	CompanyTimeout time.Duration
	Events         events.Publisher

	// Retry governs per-company retries inside RunAll. The zero value tries
	// each company once. RunCompany ignores it; its task runner retries.
	Retry tasks.RetryPolicy

	// AbandonGrace is how long a cancelled fetch gets to release its
	// resources before the worker stops waiting for it.
	AbandonGrace time.Duration
}

// Orchestrator is meant to be shared: overlapping runs draw from one semaphore.
type Orchestrator struct {
	store    Store
	resolver Resolver
	engine   *upsert.Engine
	events   events.Publisher

	timeout time.Duration
	grace   time.Duration
	retry   tasks.RetryPolicy
	sem     *semaphore.Weighted

	last atomic.Value // Summary
	now  func() time.Time
}

func New(st Store, resolver Resolver, engine *upsert.Engine, opts Options) *Orchestrator {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultMaxConcurrency
	}
	if opts.CompanyTimeout <= 0 {
		opts.CompanyTimeout = DefaultCompanyTimeout
	}
	if opts.AbandonGrace <= 0 {
		opts.AbandonGrace = DefaultAbandonGrace
	}
	if opts.Events == nil {
		opts.Events = events.Discard{}
	}
	return &Orchestrator{
		store:    st,
		resolver: resolver,
		engine:   engine,
		events:   opts.Events,
		timeout:  opts.CompanyTimeout,
		grace:    opts.AbandonGrace,
		retry:    opts.Retry,
		sem:      semaphore.NewWeighted(int64(opts.MaxConcurrency)),
		now:      time.Now,
	}
}

// LastSummary returns the most recent finished summary, if any.
func (o *Orchestrator) LastSummary() (Summary, bool) {
	s, ok := o.last.Load().(Summary)
	return s, ok
}

// RunAll scrapes every active company and writes an aggregate row. The aggregate
// row is failed only when configs cannot be loaded or ctx ends mid-run.
func (o *Orchestrator) RunAll(ctx context.Context) (Summary, error) {
	sum := Summary{StartedAt: o.now().UTC()}
	o.events.Publish(events.MakeEvent("", events.TypeRunStarted, 1, map[string]any{"scope": "all"}))

	aggID, err := o.startRow(ctx, domain.ScrapingRunLog{Source: domain.SourceOrchestrator, StartedAt: sum.StartedAt})
	if err != nil {
		return sum, err
	}

	configs, err := o.store.GetActiveConfigs(ctx, "")
	if err != nil {
		o.finishRow(ctx, aggID, failure(domain.RunCounters{}, err))
		return sum, fmt.Errorf("load active configs: %w", err)
	}
	log.Printf("[orchestrator] run all companies=%d", len(configs))

	o.runConfigs(ctx, configs, &sum, o.retry)
	sum.finish(o.now().UTC())

	fin := domain.RunFinish{Status: domain.RunCompleted, Counters: sum.Counters()}
	if err := ctx.Err(); err != nil {
		fin = failure(sum.Counters(), err)
	}
	o.finishRow(ctx, aggID, fin)
	o.publishSummary(sum)

	log.Printf("[orchestrator] done attempted=%d ok=%d failed=%d found=%d added=%d updated=%d rejected=%d dur=%.1fs",
		sum.Attempted, sum.Succeeded, sum.Failed, sum.JobsFound, sum.JobsAdded, sum.JobsUpdated, sum.JobsRejected, sum.DurationSeconds)
	return sum, ctx.Err()
}

// RunCompany scrapes the active configs whose company_name matches name
// (case-insensitive). The first company failure is returned as err with its
// kind intact so a task runner can decide on retries.
func (o *Orchestrator) RunCompany(ctx context.Context, name string) (Summary, error) {
	sum := Summary{StartedAt: o.now().UTC()}

	configs, err := o.store.GetActiveConfigs(ctx, name)
	if err != nil {
		return sum, fmt.Errorf("load config for %q: %w", name, err)
	}
	if len(configs) == 0 {
		return sum, fmt.Errorf("company %q: %w", name, store.ErrNotFound)
	}
	o.events.Publish(events.MakeEvent("", events.TypeRunStarted, 1, map[string]any{"scope": "company", "company": name}))

	errs := o.runConfigs(ctx, configs, &sum, tasks.NoRetry())
	sum.finish(o.now().UTC())
	o.publishSummary(sum)

	for _, err := range errs {
		if err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func (o *Orchestrator) publishSummary(sum Summary) {
	o.last.Store(sum)
	o.events.Publish(events.MakeEvent("", events.TypeSummary, 1, sum))
}

// runConfigs never fails as a whole; each company's final outcome lands in sum
// and errs. Every retry attempt gets its own started and terminal row.
func (o *Orchestrator) runConfigs(ctx context.Context, configs []domain.CompanyScraperConfig, sum *Summary, policy tasks.RetryPolicy) []error {
	logs := make([]domain.ScrapingRunLog, len(configs))
	errs := make([]error, len(configs))

	var g errgroup.Group
	for i, cfg := range configs {
		g.Go(func() error {
			_, errs[i] = tasks.Retry(ctx, policy, "scrape:"+cfg.CompanyName, func(ctx context.Context, _ int) error {
				var err error
				logs[i], err = o.runOne(ctx, cfg)
				return err
			})
			return nil
		})
	}
	_ = g.Wait()

	for i, cfg := range configs {
		sum.add(cfg, logs[i])
	}
	return errs
}

// runOne owns one company attempt from started row to terminal row.
func (o *Orchestrator) runOne(ctx context.Context, cfg domain.CompanyScraperConfig) (domain.ScrapingRunLog, error) {
	entry := domain.ScrapingRunLog{
		Source:      string(cfg.ScraperType),
		CompanyName: cfg.CompanyName,
		Status:      domain.RunStarted,
		StartedAt:   o.now().UTC(),
	}
	id, err := o.startRow(ctx, entry)
	if err != nil {
		entry.Status = domain.RunFailed
		entry.ErrorKind = domain.KindOf(err)
		entry.ErrorMessage = err.Error()
		return entry, err
	}
	entry.ID = id

	counters, runErr := o.scrapeCompany(ctx, cfg)

	fin := domain.RunFinish{Status: domain.RunCompleted, Counters: counters, CompletedAt: o.now().UTC()}
	if runErr != nil {
		fin = failure(counters, runErr)
		fin.CompletedAt = o.now().UTC()
		log.Printf("[orchestrator] company=%q type=%s status=failed kind=%s err=%v",
			cfg.CompanyName, cfg.ScraperType, fin.ErrorKind, runErr)
	} else {
		log.Printf("[orchestrator] company=%q type=%s status=completed found=%d added=%d updated=%d rejected=%d",
			cfg.CompanyName, cfg.ScraperType, counters.JobsFound, counters.JobsAdded, counters.JobsUpdated, counters.JobsRejected)
	}
	o.finishRow(ctx, id, fin)

	// last_scraped_at records the attempt, successful or not.
	wctx, cancel := writeContext(ctx)
	if err := o.store.UpdateLastScrapedAt(wctx, cfg.CompanyName, cfg.ScraperType, fin.CompletedAt); err != nil {
		log.Printf("[orchestrator] company=%q last_scraped_at err=%v", cfg.CompanyName, err)
	}
	cancel()

	entry.Status = fin.Status
	entry.JobsFound = counters.JobsFound
	entry.JobsAdded = counters.JobsAdded
	entry.JobsUpdated = counters.JobsUpdated
	entry.JobsRejected = counters.JobsRejected
	entry.ErrorKind = fin.ErrorKind
	entry.ErrorMessage = fin.ErrorMessage
	entry.CompletedAt = &fin.CompletedAt

	o.events.Publish(events.MakeEvent("", events.TypeRunFinished, 1, entry))
	return entry, runErr
}

func (o *Orchestrator) scrapeCompany(ctx context.Context, cfg domain.CompanyScraperConfig) (c domain.RunCounters, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[orchestrator] company=%q panic=%v\n%s", cfg.CompanyName, r, debug.Stack())
			err = domain.Errorf(domain.KindInternal, "scrape "+cfg.CompanyName, "panic: %v", r)
		}
	}()

	if err := o.sem.Acquire(ctx, 1); err != nil {
		return c, fmt.Errorf("waiting for a worker slot: %w", err)
	}
	defer o.sem.Release(1)

	adapter, err := o.resolver.Resolve(cfg)
	if err != nil {
		return c, err
	}

	payloads, err := o.fetch(ctx, adapter)
	if err != nil {
		return c, err
	}
	c.JobsFound = len(payloads)

	for _, p := range payloads {
		if err := ctx.Err(); err != nil {
			return c, err
		}
		rec, err := normalize.Normalize(p, cfg)
		if err != nil {
			c.JobsRejected++
			log.Printf("[orchestrator] company=%q rejected id=%q err=%v", cfg.CompanyName, p.SourceJobID, err)
			continue
		}
		out, err := o.engine.Apply(ctx, rec)
		if err != nil {
			return c, err
		}
		switch out {
		case domain.Inserted:
			c.JobsAdded++
		case domain.Updated:
			c.JobsUpdated++
		}
	}
	return c, nil
}

type fetchResult struct {
	payloads []types.RawJobPayload
	err      error
}

// fetch enforces the company timeout itself: an adapter that ignores its context
// is abandoned at the deadline.
func (o *Orchestrator) fetch(ctx context.Context, a types.Adapter) ([]types.RawJobPayload, error) {
	fctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	done := make(chan fetchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fetchResult{err: domain.Errorf(domain.KindInternal, a.Name()+" fetch", "panic: %v", r)}
			}
		}()
		p, err := a.Fetch(fctx)
		done <- fetchResult{payloads: p, err: err}
	}()

	select {
	case r := <-done:
		if r.err == nil {
			return r.payloads, nil
		}
		return nil, o.fetchErr(ctx, fctx, a, r.err)
	case <-fctx.Done():
		t := time.NewTimer(o.grace)
		defer t.Stop()
		select {
		case <-done:
		case <-t.C:
			log.Printf("[orchestrator] adapter=%s ignored cancellation; abandoning it", a.Name())
		}
		return nil, o.fetchErr(ctx, fctx, a, fctx.Err())
	}
}

// fetchErr reclassifies failures caused by the caller's context or the company
// deadline, whatever the adapter wrapped them in.
func (o *Orchestrator) fetchErr(ctx, fctx context.Context, a types.Adapter, err error) error {
	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("%s fetch: %w", a.Name(), ctx.Err())
	case errors.Is(fctx.Err(), context.DeadlineExceeded):
		return domain.Errorf(domain.KindTimeout, a.Name()+" fetch", "no result within %s", o.timeout)
	default:
		return err
	}
}

func (o *Orchestrator) startRow(ctx context.Context, entry domain.ScrapingRunLog) (int64, error) {
	wctx, cancel := writeContext(ctx)
	defer cancel()
	id, err := o.store.StartRunLog(wctx, entry)
	if err != nil {
		return 0, fmt.Errorf("start run log for %q: %w", entry.CompanyName, err)
	}
	return id, nil
}

// finishRow lands the terminal row even after ctx is cancelled.
func (o *Orchestrator) finishRow(ctx context.Context, id int64, fin domain.RunFinish) {
	wctx, cancel := writeContext(ctx)
	defer cancel()
	if err := o.store.FinishRunLog(wctx, id, fin); err != nil {
		log.Printf("[orchestrator] finish run log id=%d err=%v", id, err)
	}
}

func writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
}

func failure(c domain.RunCounters, err error) domain.RunFinish {
	return domain.RunFinish{
		Status:       domain.RunFailed,
		Counters:     c,
		ErrorKind:    domain.KindOf(err),
		ErrorMessage: strings.ToValidUTF8(err.Error(), "\uFFFD"),
	}
}

