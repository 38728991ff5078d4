package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScraperType(t *testing.T) {
	tests := []struct {
		in      string
		want    ScraperType
		wantErr bool
	}{
		{"greenhouse", ScraperGreenhouse, false},
		{"  Lever ", ScraperLever, false},
		{"WORKDAY", ScraperWorkday, false},
		{"icims", ScraperICIMS, false},
		{"jobvite", ScraperJobvite, false},
		{"custom", ScraperCustom, false},
		{"smartrecruiters", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseScraperType(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, KindConfigInvalid, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJobRecord_SameContent(t *testing.T) {
	posted := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	samePostedOtherZone := posted.In(time.FixedZone("X", 3600))

	base := JobRecord{
		Title:       "Backend Engineer",
		Company:     "Acme",
		ExternalURL: "https://acme.example/jobs/1",
		Source:      "greenhouse",
		SourceJobID: "1",
		PostedDate:  &posted,
	}

	changedTitle := base
	changedTitle.Title = "Senior Backend Engineer"

	otherZone := base
	otherZone.PostedDate = &samePostedOtherZone

	noDate := base
	noDate.PostedDate = nil

	otherKey := base
	otherKey.SourceJobID = "2"

	assert.True(t, base.SameContent(base))
	assert.False(t, base.SameContent(changedTitle))
	assert.True(t, base.SameContent(otherZone), "same instant in another zone is unchanged")
	assert.False(t, base.SameContent(noDate))
	assert.True(t, base.SameContent(otherKey), "natural key is not content")
}

func TestJobRecord_HasNaturalKey(t *testing.T) {
	assert.True(t, JobRecord{SourceJobID: "123"}.HasNaturalKey())
	assert.False(t, JobRecord{SourceJobID: "  "}.HasNaturalKey())
	assert.False(t, JobRecord{Source: SourceManual}.HasNaturalKey())
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("fetch acme: %w", E(KindSourceUnavailable, "greenhouse get", errors.New("status 503")))

	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ""},
		{"domain error", E(KindRenderTimeout, "wait", nil), KindRenderTimeout},
		{"wrapped domain error", wrapped, KindSourceUnavailable},
		{"deadline", fmt.Errorf("x: %w", context.DeadlineExceeded), KindTimeout},
		{"cancelled", context.Canceled, KindCancelled},
		{"plain", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestError_Message(t *testing.T) {
	err := Errorf(KindConfigInvalid, "greenhouse config", "company_token is required")
	assert.Equal(t, "config_invalid: greenhouse config: company_token is required", err.Error())
	assert.Equal(t, "cancelled", (&Error{Kind: KindCancelled}).Error())
}

func TestRunStatus_Terminal(t *testing.T) {
	assert.False(t, RunStarted.Terminal())
	assert.True(t, RunCompleted.Terminal())
	assert.True(t, RunFailed.Terminal())
}
