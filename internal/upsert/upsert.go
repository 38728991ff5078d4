// Package upsert merges normalized job records into the store by natural key.
package upsert

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"jobingest-engine/internal/domain"
	"jobingest-engine/internal/store"
)

// Engine is stateless and safe for concurrent use. The store's unique index on
// (source, source_job_id) settles races between writers of the same key.
type Engine struct {
	Jobs store.JobStore
}

func New(jobs store.JobStore) *Engine {
	return &Engine{Jobs: jobs}
}

func (e *Engine) Apply(ctx context.Context, rec domain.JobRecord) (domain.Outcome, error) {
	rec.SourceJobID = strings.TrimSpace(rec.SourceJobID)
	if !rec.HasNaturalKey() {
		if _, err := e.Jobs.InsertJob(ctx, rec); err != nil {
			return domain.Unchanged, fmt.Errorf("upsert %s: %w", rec.Source, err)
		}
		return domain.Inserted, nil
	}

	existing, err := e.Jobs.FindJob(ctx, rec.Source, rec.SourceJobID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		_, err = e.Jobs.InsertJob(ctx, rec)
		if err == nil {
			return domain.Inserted, nil
		}
		if !errors.Is(err, store.ErrDuplicateKey) {
			return domain.Unchanged, fmt.Errorf("upsert %s/%s: %w", rec.Source, rec.SourceJobID, err)
		}
		// another writer inserted the key between our read and write
		existing, err = e.Jobs.FindJob(ctx, rec.Source, rec.SourceJobID)
		if err != nil {
			return domain.Unchanged, fmt.Errorf("upsert %s/%s: re-read: %w", rec.Source, rec.SourceJobID, err)
		}
	case err != nil:
		return domain.Unchanged, fmt.Errorf("upsert %s/%s: %w", rec.Source, rec.SourceJobID, err)
	}

	if existing.SameContent(rec) {
		return domain.Unchanged, nil
	}
	if err := e.Jobs.UpdateJob(ctx, existing.ID, rec); err != nil {
		return domain.Unchanged, fmt.Errorf("upsert %s/%s: %w", rec.Source, rec.SourceJobID, err)
	}
	return domain.Updated, nil
}
