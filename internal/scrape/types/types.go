package types

import (
	"context"
	"time"
)

// RawJobPayload is what an adapter saw for one posting, before normalization.
type RawJobPayload struct {
	Source         string
	SourceJobID    string
	Title          string
	Company        string
	Location       string
	Description    string
	Requirements   string
	SalaryText     string
	EmploymentType string // e.g. "Full-time", "Contractor"
	WorkplaceType  string // e.g. "remote", "On-site"
	ExternalURL    string
	SourceURL      string
	PostedAt       *time.Time
}

// Adapter fetches every current posting for one configured company.
// Payloads come back in the order the source produced them.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context) ([]RawJobPayload, error)
}

// AdapterFunc lets a plain function act as an Adapter.
type AdapterFunc struct {
	Source string
	Fn     func(ctx context.Context) ([]RawJobPayload, error)
}

func (a AdapterFunc) Name() string { return a.Source }

func (a AdapterFunc) Fetch(ctx context.Context) ([]RawJobPayload, error) {
	return a.Fn(ctx)
}
