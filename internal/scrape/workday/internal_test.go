package workday

import (
	"testing"
	"time"

	"jobingest-engine/internal/sourcecfg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBoardURL(t *testing.T) {
	b, err := parseBoardURL("https://acme.wd5.myworkdayjobs.com/en-us/External/")
	require.NoError(t, err)
	assert.Equal(t, "acme", b.Tenant)
	assert.Equal(t, "External", b.Site)
	assert.Equal(t, "en-US", b.Locale)

	_, err = parseBoardURL("https://localhost/External")
	assert.Error(t, err)
}

func TestSourceJobID(t *testing.T) {
	tests := []struct {
		name, link, want string
	}{
		{"requisition suffix", "https://acme.wd5.myworkdayjobs.com/External/job/Austin/Engineer_JR-10423", "JR-10423"},
		{"numeric suffix", "https://acme.wd5.myworkdayjobs.com/External/job/Austin/Engineer_2024-0001", "2024-0001"},
		{"last segment", "https://acme.wd5.myworkdayjobs.com/External/job/Austin/Engineer", "Engineer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sourceJobID(tt.link, "Acme", "Engineer", "Austin"))
		})
	}

	a := sourceJobID("", "Acme", "Engineer", "Austin")
	assert.Equal(t, a, sourceJobID("", "ACME", "engineer", "austin"))
	assert.NotEqual(t, a, sourceJobID("", "Acme", "Engineer", "Denver"))
}

func TestParsePostedOn(t *testing.T) {
	now := time.Date(2024, 5, 10, 15, 30, 0, 0, time.UTC)
	day := func(d int) time.Time { return time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		in   string
		want *time.Time
	}{
		{"Posted Today", ptr(day(10))},
		{"Posted Yesterday", ptr(day(9))},
		{"Posted 3 Days Ago", ptr(day(7))},
		{"Posted 30+ Days Ago", nil},
		{"2024-05-01", ptr(day(1))},
		{"", nil},
		{"sometime", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parsePostedOn(tt.in, now)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %s", got)
		})
	}
}

func TestParsePostedOn_OpenEndedIsStableAcrossDays(t *testing.T) {
	day1 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	assert.Nil(t, parsePostedOn("Posted 30+ Days Ago", day1))
	assert.Nil(t, parsePostedOn("Posted 30+ Days Ago", day2))

	a, b := parsePostedOn("2024-03-01", day1), parsePostedOn("2024-03-01", day2)
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.True(t, a.Equal(*b))
}

func TestParseListings_ScopedToSearchResults(t *testing.T) {
	const page = `<html><body>
<aside><div data-automation-id="jobItem"><a data-automation-id="jobTitle" href="/job/Promo_JR-9">Featured Role</a></div></aside>
<section data-automation-id="searchResults">
  <div data-automation-id="jobItem"><a data-automation-id="jobTitle" href="/job/Austin/Engineer_JR-1">Engineer</a></div>
</section></body></html>`
	base := "https://acme.wd5.myworkdayjobs.com/External"

	got, err := parseListings(page, base, sourcecfg.DefaultWorkdaySelectors)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Engineer", got[0].Title)

	// no container on the page: every card counts
	flat := `<html><body><div data-automation-id="jobItem"><h3>Recruiter</h3></div></body></html>`
	got, err = parseListings(flat, base, sourcecfg.DefaultWorkdaySelectors)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Recruiter", got[0].Title)
}

func ptr(t time.Time) *time.Time { return &t }
