package orchestrator

import (
	"context"

	"jobingest-engine/internal/domain"
	"jobingest-engine/internal/normalize"
)

// Preview is a dry run of one config: fetched and normalized, never stored.
type Preview struct {
	Found    int                `json:"found"`
	Rejected int                `json:"rejected"`
	Records  []domain.JobRecord `json:"records"`
}

// Preview fetches under the same slot, timeout and classification rules as a
// real run but writes nothing.
func (o *Orchestrator) Preview(ctx context.Context, cfg domain.CompanyScraperConfig) (Preview, error) {
	var p Preview
	if err := o.sem.Acquire(ctx, 1); err != nil {
		return p, err
	}
	defer o.sem.Release(1)

	adapter, err := o.resolver.Resolve(cfg)
	if err != nil {
		return p, err
	}
	payloads, err := o.fetch(ctx, adapter)
	if err != nil {
		return p, err
	}
	p.Found = len(payloads)
	for _, raw := range payloads {
		rec, err := normalize.Normalize(raw, cfg)
		if err != nil {
			p.Rejected++
			continue
		}
		p.Records = append(p.Records, rec)
	}
	return p, nil
}
