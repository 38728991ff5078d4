package orchestrator_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobingest-engine/internal/domain"
	"jobingest-engine/internal/orchestrator"
	"jobingest-engine/internal/scrape"
	"jobingest-engine/internal/scrape/types"
	"jobingest-engine/internal/scrape/workday/workdaytest"
	"jobingest-engine/internal/store"
	"jobingest-engine/internal/tasks"
	"jobingest-engine/internal/upsert"
)

type harness struct {
	db       *store.DB
	registry *scrape.Registry
}

func newHarness(t *testing.T, deps scrape.Deps) *harness {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return &harness{db: db, registry: scrape.NewRegistry(deps)}
}

func (h *harness) orchestrator(opts orchestrator.Options) *orchestrator.Orchestrator {
	return orchestrator.New(h.db, h.registry, upsert.New(h.db), opts)
}

func (h *harness) addConfig(t *testing.T, name string, st domain.ScraperType, cfg map[string]any) {
	t.Helper()
	_, err := h.db.CreateConfig(context.Background(), domain.CompanyScraperConfig{
		CompanyName: name,
		ScraperType: st,
		Config:      cfg,
		IsActive:    true,
	})
	require.NoError(t, err)
}

// customAdapters routes "custom" configs to per-company fetch functions.
func (h *harness) customAdapters(fns map[string]func(ctx context.Context) ([]types.RawJobPayload, error)) {
	h.registry.Register(domain.ScraperCustom, func(cfg domain.CompanyScraperConfig, _ scrape.Deps) (types.Adapter, error) {
		fn, ok := fns[cfg.CompanyName]
		if !ok {
			return nil, domain.Errorf(domain.KindConfigInvalid, "test", "no fake for %s", cfg.CompanyName)
		}
		return types.AdapterFunc{Source: "custom", Fn: fn}, nil
	})
}

func payload(company, id string) types.RawJobPayload {
	return types.RawJobPayload{
		Source:      "custom",
		SourceJobID: id,
		Title:       "Engineer " + id,
		Company:     company,
		ExternalURL: "https://jobs.example/" + company + "/" + id,
	}
}

func companyLog(t *testing.T, db *store.DB, company string) domain.ScrapingRunLog {
	t.Helper()
	logs, err := db.ListRunLogs(context.Background(), store.RunLogFilter{Company: company})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	return logs[0]
}

const acmeBoard = `{"jobs": [
  {"id": 1, "title": "Backend Engineer", "absolute_url": "https://boards.greenhouse.io/acme/jobs/1", "location": {"name": "Remote"}, "content": "Build."},
  {"id": 2, "title": "Frontend Engineer", "absolute_url": "https://boards.greenhouse.io/acme/jobs/2", "location": {"name": "NYC"}, "content": "Ship."},
  {"id": 3, "title": "Staff Engineer", "absolute_url": "https://boards.greenhouse.io/acme/jobs/3", "location": {"name": "SF"}, "content": "Lead."}
]}`

func TestRunCompany_GreenhouseAddsAndUpdates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(acmeBoard))
	}))
	defer srv.Close()

	h := newHarness(t, scrape.Deps{GreenhouseBaseURL: srv.URL})
	h.addConfig(t, "Acme", domain.ScraperGreenhouse, map[string]any{"company_token": "acme"})

	ctx := context.Background()
	_, err := h.db.InsertJob(ctx, domain.JobRecord{
		Title:       "Senior Engineer",
		Company:     "Acme",
		ExternalURL: "https://boards.greenhouse.io/acme/jobs/3",
		Source:      "greenhouse",
		SourceJobID: "3",
	})
	require.NoError(t, err)

	sum, err := h.orchestrator(orchestrator.Options{}).RunCompany(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Succeeded)

	l := companyLog(t, h.db, "Acme")
	assert.Equal(t, domain.RunCompleted, l.Status)
	assert.Equal(t, 3, l.JobsFound)
	assert.Equal(t, 2, l.JobsAdded)
	assert.Equal(t, 1, l.JobsUpdated)
	assert.Zero(t, l.JobsRejected)

	job, err := h.db.FindJob(ctx, "greenhouse", "3")
	require.NoError(t, err)
	assert.Equal(t, "Staff Engineer", job.Title)

	cfgs, err := h.db.GetActiveConfigs(ctx, "Acme")
	require.NoError(t, err)
	require.NotNil(t, cfgs[0].LastScrapedAt)

	// a second run sees nothing new
	_, err = h.orchestrator(orchestrator.Options{}).RunCompany(ctx, "acme")
	require.NoError(t, err)
	n, err := h.db.CountJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRunCompany_MissingExternalURLIsRejected(t *testing.T) {
	h := newHarness(t, scrape.Deps{})
	bad := payload("Acme", "1")
	bad.ExternalURL = ""
	h.customAdapters(map[string]func(context.Context) ([]types.RawJobPayload, error){
		"Acme": func(context.Context) ([]types.RawJobPayload, error) { return []types.RawJobPayload{bad}, nil },
	})
	h.addConfig(t, "Acme", domain.ScraperCustom, nil)

	sum, err := h.orchestrator(orchestrator.Options{}).RunCompany(context.Background(), "Acme")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.JobsRejected)

	l := companyLog(t, h.db, "Acme")
	assert.Equal(t, domain.RunCompleted, l.Status)
	assert.Equal(t, 1, l.JobsFound)
	assert.Zero(t, l.JobsAdded)
	assert.Zero(t, l.JobsUpdated)
	assert.Equal(t, 1, l.JobsRejected)

	n, err := h.db.CountJobs(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunAll_FailureIsIsolated(t *testing.T) {
	h := newHarness(t, scrape.Deps{})
	h.customAdapters(map[string]func(context.Context) ([]types.RawJobPayload, error){
		"Broken": func(context.Context) ([]types.RawJobPayload, error) {
			return nil, domain.E(domain.KindSourceUnavailable, "fetch", errors.New("status 503"))
		},
		"Healthy": func(context.Context) ([]types.RawJobPayload, error) {
			return []types.RawJobPayload{payload("Healthy", "1"), payload("Healthy", "2")}, nil
		},
	})
	h.addConfig(t, "Broken", domain.ScraperCustom, nil)
	h.addConfig(t, "Healthy", domain.ScraperCustom, nil)

	o := h.orchestrator(orchestrator.Options{})
	sum, err := o.RunAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Attempted)
	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
	assert.InDelta(t, 50.0, sum.SuccessRate(), 0.001)
	require.Len(t, sum.Errors, 1)
	assert.Contains(t, sum.Errors[0], "Broken (custom)")

	healthy := companyLog(t, h.db, "Healthy")
	assert.Equal(t, domain.RunCompleted, healthy.Status)
	assert.Equal(t, 2, healthy.JobsFound)
	assert.Equal(t, 2, healthy.JobsAdded)

	broken := companyLog(t, h.db, "Broken")
	assert.Equal(t, domain.RunFailed, broken.Status)
	assert.Equal(t, domain.KindSourceUnavailable, broken.ErrorKind)
	assert.Contains(t, broken.ErrorMessage, "status 503")

	brokenCfg, err := h.db.GetActiveConfigs(context.Background(), "Broken")
	require.NoError(t, err)
	require.Len(t, brokenCfg, 1)
	assert.NotNil(t, brokenCfg[0].LastScrapedAt, "failed attempts still stamp last_scraped_at")

	agg, err := h.db.ListRunLogs(context.Background(), store.RunLogFilter{Source: domain.SourceOrchestrator})
	require.NoError(t, err)
	require.Len(t, agg, 1)
	assert.Equal(t, domain.RunCompleted, agg[0].Status)
	assert.Equal(t, 2, agg[0].JobsAdded)

	last, ok := o.LastSummary()
	require.True(t, ok)
	assert.Equal(t, 2, last.Attempted)
}

func TestRunAll_RetriesTransientFailures(t *testing.T) {
	var down, flaky atomic.Int32
	h := newHarness(t, scrape.Deps{})
	h.customAdapters(map[string]func(context.Context) ([]types.RawJobPayload, error){
		"Down": func(context.Context) ([]types.RawJobPayload, error) {
			down.Add(1)
			return nil, domain.E(domain.KindSourceUnavailable, "fetch", errors.New("status 503"))
		},
		"Flaky": func(context.Context) ([]types.RawJobPayload, error) {
			if flaky.Add(1) == 1 {
				return nil, domain.E(domain.KindRenderTimeout, "render", errors.New("page never loaded"))
			}
			return []types.RawJobPayload{payload("Flaky", "1")}, nil
		},
	})
	h.addConfig(t, "Down", domain.ScraperCustom, nil)
	h.addConfig(t, "Flaky", domain.ScraperCustom, nil)

	policy := tasks.RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2, RenderTimeoutRetries: 1}
	sum, err := h.orchestrator(orchestrator.Options{Retry: policy}).RunAll(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, down.Load())
	assert.EqualValues(t, 2, flaky.Load())
	assert.Equal(t, 2, sum.Attempted)
	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.JobsAdded)

	rows, err := h.db.ListRunLogs(context.Background(), store.RunLogFilter{Company: "Down"})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.Equal(t, domain.RunFailed, r.Status)
		assert.Equal(t, domain.KindSourceUnavailable, r.ErrorKind)
	}

	rows, err = h.db.ListRunLogs(context.Background(), store.RunLogFilter{Company: "Flaky"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	statuses := []domain.RunStatus{rows[0].Status, rows[1].Status}
	assert.ElementsMatch(t, []domain.RunStatus{domain.RunFailed, domain.RunCompleted}, statuses)
}

func TestRunCompany_InvalidUTF8ErrorStillFinishesRow(t *testing.T) {
	h := newHarness(t, scrape.Deps{})
	h.customAdapters(map[string]func(context.Context) ([]types.RawJobPayload, error){
		"Garbled": func(context.Context) ([]types.RawJobPayload, error) {
			return nil, domain.E(domain.KindSourceUnavailable, "fetch", errors.New("status 503 body=\xc3"))
		},
	})
	h.addConfig(t, "Garbled", domain.ScraperCustom, nil)

	_, err := h.orchestrator(orchestrator.Options{}).RunCompany(context.Background(), "Garbled")
	require.Error(t, err)

	l := companyLog(t, h.db, "Garbled")
	assert.Equal(t, domain.RunFailed, l.Status)
	assert.True(t, utf8.ValidString(l.ErrorMessage))
	assert.Contains(t, l.ErrorMessage, "status 503")
}

func TestRunCompany_IgnoresRetryPolicy(t *testing.T) {
	var calls atomic.Int32
	h := newHarness(t, scrape.Deps{})
	h.customAdapters(map[string]func(context.Context) ([]types.RawJobPayload, error){
		"Down": func(context.Context) ([]types.RawJobPayload, error) {
			calls.Add(1)
			return nil, domain.E(domain.KindSourceUnavailable, "fetch", errors.New("status 503"))
		},
	})
	h.addConfig(t, "Down", domain.ScraperCustom, nil)

	policy := tasks.RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond}
	_, err := h.orchestrator(orchestrator.Options{Retry: policy}).RunCompany(context.Background(), "Down")
	assert.Equal(t, domain.KindSourceUnavailable, domain.KindOf(err))
	assert.EqualValues(t, 1, calls.Load())
}

func TestRunCompany_TimeoutAbandonsHungAdapter(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	h := newHarness(t, scrape.Deps{})
	h.customAdapters(map[string]func(context.Context) ([]types.RawJobPayload, error){
		// ignores its context entirely
		"Stuck": func(context.Context) ([]types.RawJobPayload, error) {
			<-release
			return nil, nil
		},
	})
	h.addConfig(t, "Stuck", domain.ScraperCustom, nil)

	o := h.orchestrator(orchestrator.Options{CompanyTimeout: 100 * time.Millisecond})
	start := time.Now()
	_, err := o.RunCompany(context.Background(), "stuck")
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, domain.KindTimeout, domain.KindOf(err))
	assert.Less(t, elapsed, 2*time.Second)

	l := companyLog(t, h.db, "Stuck")
	assert.Equal(t, domain.RunFailed, l.Status)
	assert.Equal(t, domain.KindTimeout, l.ErrorKind)
}

func TestRunCompany_CancelTearsDownBrowser(t *testing.T) {
	b := &workdaytest.Browser{Hang: true, Waiting: make(chan struct{})}
	h := newHarness(t, scrape.Deps{Browser: b})
	h.addConfig(t, "Netflix", domain.ScraperWorkday, map[string]any{
		"careers_url": "https://netflix.wd1.myworkdayjobs.com/en-US/Netflix",
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := h.orchestrator(orchestrator.Options{}).RunCompany(ctx, "Netflix")
		done <- err
	}()

	select {
	case <-b.Waiting:
	case <-time.After(5 * time.Second):
		t.Fatal("browser never started waiting")
	}
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Equal(t, domain.KindCancelled, domain.KindOf(err))
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancel")
	}

	assert.Equal(t, 1, b.Opened())
	assert.Equal(t, 1, b.Closed())

	l := companyLog(t, h.db, "Netflix")
	assert.Equal(t, domain.RunFailed, l.Status)
	assert.Equal(t, domain.KindCancelled, l.ErrorKind)
	assert.NotNil(t, l.CompletedAt)
}

func TestRunCompany_InvalidConfigFailsFast(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	h := newHarness(t, scrape.Deps{GreenhouseBaseURL: srv.URL})
	h.addConfig(t, "Acme", domain.ScraperGreenhouse, map[string]any{"token": "acme"})

	_, err := h.orchestrator(orchestrator.Options{}).RunCompany(context.Background(), "Acme")
	require.Error(t, err)
	assert.Equal(t, domain.KindConfigInvalid, domain.KindOf(err))
	assert.Zero(t, calls.Load())

	l := companyLog(t, h.db, "Acme")
	assert.Equal(t, domain.RunFailed, l.Status)
	assert.Equal(t, domain.KindConfigInvalid, l.ErrorKind)
}

func TestRunCompany_UnknownCompany(t *testing.T) {
	h := newHarness(t, scrape.Deps{})
	_, err := h.orchestrator(orchestrator.Options{}).RunCompany(context.Background(), "Nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRunCompany_PanicBecomesInternal(t *testing.T) {
	h := newHarness(t, scrape.Deps{})
	h.customAdapters(map[string]func(context.Context) ([]types.RawJobPayload, error){
		"Acme": func(context.Context) ([]types.RawJobPayload, error) { panic("boom") },
	})
	h.addConfig(t, "Acme", domain.ScraperCustom, nil)

	_, err := h.orchestrator(orchestrator.Options{}).RunCompany(context.Background(), "Acme")
	require.Error(t, err)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))

	l := companyLog(t, h.db, "Acme")
	assert.Equal(t, domain.RunFailed, l.Status)
	assert.Contains(t, l.ErrorMessage, "boom")
}

func TestRunAll_ConcurrencyCap(t *testing.T) {
	var (
		inFlight, peak atomic.Int32
		mu             sync.Mutex
	)
	slow := func(context.Context) ([]types.RawJobPayload, error) {
		n := inFlight.Add(1)
		mu.Lock()
		if n > peak.Load() {
			peak.Store(n)
		}
		mu.Unlock()
		time.Sleep(30 * time.Millisecond)
		inFlight.Add(-1)
		return nil, nil
	}

	h := newHarness(t, scrape.Deps{})
	fns := map[string]func(context.Context) ([]types.RawJobPayload, error){}
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		fns[name] = slow
		h.addConfig(t, name, domain.ScraperCustom, nil)
	}
	h.customAdapters(fns)

	o := h.orchestrator(orchestrator.Options{MaxConcurrency: 2})

	// two overlapping runs share one cap
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sum, err := o.RunAll(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, 5, sum.Succeeded)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Positive(t, peak.Load())
}

func TestSummary_SuccessRateEmpty(t *testing.T) {
	assert.Zero(t, orchestrator.Summary{}.SuccessRate())
}

func TestPreview_WritesNothing(t *testing.T) {
	h := newHarness(t, scrape.Deps{})
	bad := payload("Acme", "3")
	bad.Title = ""
	h.customAdapters(map[string]func(context.Context) ([]types.RawJobPayload, error){
		"Acme": func(context.Context) ([]types.RawJobPayload, error) {
			return []types.RawJobPayload{payload("Acme", "1"), payload("Acme", "2"), bad}, nil
		},
	})
	cfg := domain.CompanyScraperConfig{CompanyName: "Acme", ScraperType: domain.ScraperCustom}

	p, err := h.orchestrator(orchestrator.Options{}).Preview(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Found)
	assert.Equal(t, 1, p.Rejected)
	require.Len(t, p.Records, 2)
	assert.Equal(t, "Engineer 1", p.Records[0].Title)

	n, err := h.db.CountJobs(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	logs, err := h.db.ListRunLogs(context.Background(), store.RunLogFilter{})
	require.NoError(t, err)
	assert.Empty(t, logs)
}
