package greenhouse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"jobingest-engine/internal/domain"
	"jobingest-engine/internal/scrape/util"
	"jobingest-engine/internal/sourcecfg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const boardJSON = `{
  "jobs": [
    {
      "id": 4012345,
      "title": "Backend Engineer",
      "absolute_url": "https://boards.greenhouse.io/acme/jobs/4012345",
      "updated_at": "2024-03-01T10:00:00-05:00",
      "location": {"name": "Remote - US"},
      "content": "&lt;p&gt;Build APIs. Pay $150,000 - $180,000.&lt;/p&gt;",
      "departments": [{"name": "Engineering"}, {"name": "Platform"}],
      "metadata": [{"name": "Employment Type", "value": "Full-time"}]
    },
    {
      "id": 4012346,
      "title": "Data Intern",
      "absolute_url": "https://boards.greenhouse.io/acme/jobs/4012346",
      "location": null,
      "content": ""
    }
  ]
}`

func newServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/boards/acme/jobs", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("content"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newScraper(base string) *Scraper {
	client := util.NewClient(util.NewHostLimiter(0, 1), nil, "")
	return New("Acme", sourcecfg.Greenhouse{CompanyToken: "acme"}, client, base)
}

func TestFetch_MapsBoard(t *testing.T) {
	srv := newServer(t, http.StatusOK, boardJSON)

	got, err := newScraper(srv.URL).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, "greenhouse", first.Source)
	assert.Equal(t, "4012345", first.SourceJobID)
	assert.Equal(t, "Backend Engineer", first.Title)
	assert.Equal(t, "Acme", first.Company)
	assert.Equal(t, "Remote - US", first.Location)
	assert.Equal(t, "Department: Engineering, Platform\n\nBuild APIs. Pay $150,000 - $180,000.", first.Description)
	assert.Equal(t, "Full-time", first.EmploymentType)
	assert.Equal(t, "https://boards.greenhouse.io/acme/jobs/4012345", first.ExternalURL)
	assert.Equal(t, srv.URL+"/v1/boards/acme/jobs?content=true", first.SourceURL)
	require.NotNil(t, first.PostedAt)
	assert.Equal(t, 15, first.PostedAt.Hour())

	second := got[1]
	assert.Equal(t, "4012346", second.SourceJobID)
	assert.Empty(t, second.Location)
	assert.Empty(t, second.Description)
	assert.Nil(t, second.PostedAt)
}

func TestFetch_SourceUnavailable(t *testing.T) {
	srv := newServer(t, http.StatusNotFound, `{"status":404,"error":"Job not found"}`)

	_, err := newScraper(srv.URL).Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.KindSourceUnavailable, domain.KindOf(err))
}

func TestFetch_NonJSON(t *testing.T) {
	srv := newServer(t, http.StatusOK, `<html>maintenance</html>`)

	_, err := newScraper(srv.URL).Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.KindSourceUnavailable, domain.KindOf(err))
}

func TestName(t *testing.T) {
	assert.Equal(t, "greenhouse", newScraper("").Name())
	assert.Equal(t, DefaultBaseURL+"/v1/boards/acme/jobs?content=true", newScraper("").boardURL())
}
