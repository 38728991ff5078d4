package upsert

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobingest-engine/internal/domain"
	"jobingest-engine/internal/store"
)

func newEngine(t *testing.T) (*Engine, *store.DB) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return New(db), db
}

func record(id, title string) domain.JobRecord {
	return domain.JobRecord{
		Title:       title,
		Company:     "Acme",
		Location:    "Remote",
		ExternalURL: "https://boards.greenhouse.io/acme/jobs/" + id,
		Source:      "greenhouse",
		SourceJobID: id,
	}
}

func TestApply_InsertThenUnchanged(t *testing.T) {
	e, db := newEngine(t)
	ctx := context.Background()

	out, err := e.Apply(ctx, record("1", "Engineer"))
	require.NoError(t, err)
	assert.Equal(t, domain.Inserted, out)

	out, err = e.Apply(ctx, record("1", "Engineer"))
	require.NoError(t, err)
	assert.Equal(t, domain.Unchanged, out)

	n, err := db.CountJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestApply_ChangedFieldUpdates(t *testing.T) {
	e, db := newEngine(t)
	ctx := context.Background()

	_, err := e.Apply(ctx, record("1", "Engineer"))
	require.NoError(t, err)

	changed := record("1", "Senior Engineer")
	posted := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	changed.PostedDate = &posted

	out, err := e.Apply(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, domain.Updated, out)

	got, err := db.FindJob(ctx, "greenhouse", "1")
	require.NoError(t, err)
	assert.Equal(t, "Senior Engineer", got.Title)
	require.NotNil(t, got.PostedDate)
	assert.True(t, posted.Equal(*got.PostedDate))

	out, err = e.Apply(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, domain.Unchanged, out)
}

func TestApply_ManualAlwaysInserts(t *testing.T) {
	e, db := newEngine(t)
	ctx := context.Background()

	manual := record("", "Engineer")
	manual.Source = domain.SourceManual
	for i := 0; i < 3; i++ {
		out, err := e.Apply(ctx, manual)
		require.NoError(t, err)
		assert.Equal(t, domain.Inserted, out)
	}

	n, err := db.CountJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

// racingStore makes the first FindJob miss even though a row exists, the way a
// concurrent writer would look between our read and our insert.
type racingStore struct {
	store.JobStore
	once sync.Once
}

func (r *racingStore) FindJob(ctx context.Context, source, id string) (domain.Job, error) {
	missed := false
	r.once.Do(func() { missed = true })
	if missed {
		return domain.Job{}, store.ErrNotFound
	}
	return r.JobStore.FindJob(ctx, source, id)
}

func TestApply_DuplicateKeyIsNotSurfaced(t *testing.T) {
	_, db := newEngine(t)
	ctx := context.Background()

	_, err := db.InsertJob(ctx, record("9", "Engineer"))
	require.NoError(t, err)

	e := New(&racingStore{JobStore: db})
	out, err := e.Apply(ctx, record("9", "Engineer"))
	require.NoError(t, err)
	assert.Equal(t, domain.Unchanged, out)

	e = New(&racingStore{JobStore: db})
	out, err = e.Apply(ctx, record("9", "Lead Engineer"))
	require.NoError(t, err)
	assert.Equal(t, domain.Updated, out)
}

func TestApply_ConcurrentSameKey(t *testing.T) {
	e, db := newEngine(t)
	ctx := context.Background()

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		inserted int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := e.Apply(ctx, record("42", "Engineer"))
			assert.NoError(t, err)
			if out == domain.Inserted {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, inserted)
	n, err := db.CountJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

type snapshotRow struct {
	Key   string
	Title string
}

func snapshot(t *testing.T, db *store.DB) []snapshotRow {
	t.Helper()
	jobs, err := db.ListJobs(context.Background(), store.JobFilter{Limit: 1000})
	require.NoError(t, err)
	out := make([]snapshotRow, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, snapshotRow{Key: j.Source + "/" + j.SourceJobID, Title: j.Title})
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Key < out[k].Key })
	return out
}

func genBatch() gopter.Gen {
	return gen.SliceOfN(12, gen.IntRange(0, 20)).Map(func(ids []int) []domain.JobRecord {
		batch := make([]domain.JobRecord, 0, len(ids))
		for i, id := range ids {
			batch = append(batch, record(fmt.Sprint(id), fmt.Sprintf("Role %d-%d", id, i%3)))
		}
		return batch
	})
}

func distinctKeys(batch []domain.JobRecord) []domain.JobRecord {
	seen := map[string]bool{}
	var out []domain.JobRecord
	for _, r := range batch {
		if !seen[r.SourceJobID] {
			seen[r.SourceJobID] = true
			out = append(out, r)
		}
	}
	return out
}

func TestUpsertProperties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 25
	properties := gopter.NewProperties(params)

	properties.Property("re-applying a batch changes nothing", prop.ForAll(
		func(batch []domain.JobRecord) bool {
			e, db := newEngine(t)
			ctx := context.Background()
			batch = distinctKeys(batch)
			for _, r := range batch {
				if _, err := e.Apply(ctx, r); err != nil {
					return false
				}
			}
			before := snapshot(t, db)
			for _, r := range batch {
				out, err := e.Apply(ctx, r)
				if err != nil || out != domain.Unchanged {
					return false
				}
			}
			return assert.ObjectsAreEqual(before, snapshot(t, db))
		},
		genBatch(),
	))

	properties.Property("one row per natural key", prop.ForAll(
		func(batch []domain.JobRecord) bool {
			e, db := newEngine(t)
			ctx := context.Background()
			for _, r := range batch {
				if _, err := e.Apply(ctx, r); err != nil {
					return false
				}
			}
			rows := snapshot(t, db)
			return len(rows) == len(distinctKeys(batch))
		},
		genBatch(),
	))

	properties.Property("any order converges", prop.ForAll(
		func(batch []domain.JobRecord, seed int64) bool {
			batch = distinctKeys(batch)
			reversed := make([]domain.JobRecord, len(batch))
			for i, r := range batch {
				reversed[len(batch)-1-i] = r
			}
			rotated := append(append([]domain.JobRecord(nil), batch[int(seed)%max(len(batch), 1):]...),
				batch[:int(seed)%max(len(batch), 1)]...)

			var states [][]snapshotRow
			for _, order := range [][]domain.JobRecord{batch, reversed, rotated} {
				e, db := newEngine(t)
				for _, r := range order {
					if _, err := e.Apply(context.Background(), r); err != nil {
						return false
					}
				}
				states = append(states, snapshot(t, db))
			}
			return assert.ObjectsAreEqual(states[0], states[1]) && assert.ObjectsAreEqual(states[0], states[2])
		},
		genBatch(),
		gen.Int64Range(0, 100),
	))

	properties.TestingRun(t)
}
