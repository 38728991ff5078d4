package domain

import (
	"strings"
	"time"
)

type JobType string

const (
	JobTypeFullTime   JobType = "full-time"
	JobTypePartTime   JobType = "part-time"
	JobTypeContract   JobType = "contract"
	JobTypeInternship JobType = "internship"
)

type RemoteType string

const (
	RemoteTypeOnsite RemoteType = "onsite"
	RemoteTypeRemote RemoteType = "remote"
	RemoteTypeHybrid RemoteType = "hybrid"
)

// SourceManual marks jobs entered by hand. They carry no SourceJobID.
const SourceManual = "manual"

// JobRecord is the canonical posting shape produced by the normalizer.
// Empty JobType, RemoteType and SourceJobID are stored as NULL.
type JobRecord struct {
	Title        string     `json:"title"`
	Company      string     `json:"company"`
	Location     string     `json:"location"`
	Description  string     `json:"description"`
	Requirements string     `json:"requirements"`
	SalaryRange  string     `json:"salary_range"`
	JobType      JobType    `json:"job_type,omitempty"`
	RemoteType   RemoteType `json:"remote_type,omitempty"`
	ExternalURL  string     `json:"external_url"`
	PostedDate   *time.Time `json:"posted_date,omitempty"`
	Source       string     `json:"source"`
	SourceURL    string     `json:"source_url"`
	SourceJobID  string     `json:"source_job_id,omitempty"`
}

// HasNaturalKey reports whether the record participates in (source, source_job_id) dedup.
func (r JobRecord) HasNaturalKey() bool {
	return strings.TrimSpace(r.SourceJobID) != ""
}

// SameContent compares every field that a later sighting may overwrite.
func (r JobRecord) SameContent(o JobRecord) bool {
	return r.Title == o.Title &&
		r.Company == o.Company &&
		r.Location == o.Location &&
		r.Description == o.Description &&
		r.Requirements == o.Requirements &&
		r.SalaryRange == o.SalaryRange &&
		r.JobType == o.JobType &&
		r.RemoteType == o.RemoteType &&
		r.ExternalURL == o.ExternalURL &&
		r.SourceURL == o.SourceURL &&
		sameInstant(r.PostedDate, o.PostedDate)
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// Job is a stored JobRecord.
type Job struct {
	ID int64 `json:"id"`
	JobRecord
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Outcome int

const (
	Unchanged Outcome = iota
	Inserted
	Updated
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	default:
		return "unchanged"
	}
}
