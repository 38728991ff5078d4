package workday_test

import (
	"context"
	"testing"
	"time"

	"jobingest-engine/internal/domain"
	"jobingest-engine/internal/scrape/util"
	"jobingest-engine/internal/scrape/workday"
	"jobingest-engine/internal/scrape/workday/workdaytest"
	"jobingest-engine/internal/sourcecfg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const careersURL = "https://acme.wd5.myworkdayjobs.com/en-US/External"

const page1 = `<html><body><section data-automation-id="searchResults"><ul>
<li data-automation-id="jobItem">
  <a data-automation-id="jobTitle" href="/en-US/External/job/Austin-TX/Backend-Engineer_JR-101">Backend Engineer</a>
  <div data-automation-id="jobLocation">Austin, TX</div>
  <dd data-automation-id="postedOn">Posted Today</dd>
</li>
<li data-automation-id="jobItem">
  <a data-automation-id="jobTitle" href="/en-US/External/job/Remote/Data-Analyst_JR-102">Data Analyst</a>
  <div data-automation-id="jobLocation">Remote</div>
</li>
</ul></section></body></html>`

const page2 = `<html><body><section data-automation-id="searchResults"><ul>
<li data-automation-id="jobItem">
  <a data-automation-id="jobTitle" href="/en-US/External/job/Remote/Data-Analyst_JR-102">Data Analyst</a>
  <div data-automation-id="jobLocation">Remote</div>
</li>
<li data-automation-id="jobItem">
  <a data-automation-id="jobTitle" href="/en-US/External/job/Denver/SRE_JR-103">Site Reliability Engineer</a>
  <div data-automation-id="jobLocation">Denver, CO</div>
</li>
</ul></section></body></html>`

const detail101 = `<html><body>
<div data-automation-id="jobDescription"><p>Build services.</p><p>Pay $150,000 - $180,000</p></div>
<div data-automation-id="requirements"><ul><li>Go</li><li>Postgres</li></ul></div>
</body></html>`

func cfg() sourcecfg.Workday {
	return sourcecfg.Workday{
		CareersURL:  careersURL,
		WaitTimeout: 1,
		MaxPages:    10,
		Selectors:   sourcecfg.DefaultWorkdaySelectors,
	}
}

func newScraper(b workday.Browser) *workday.Scraper {
	s := workday.New("Acme", cfg(), b, nil, nil)
	s.Settle = 0
	s.DetailWait = 10 * time.Millisecond
	return s
}

func TestFetch_PaginatesAndHydrates(t *testing.T) {
	b := &workdaytest.Browser{
		Pages:        []string{page1, page2},
		NextSelector: sourcecfg.DefaultWorkdaySelectors.NextPage,
		Details: map[string]string{
			careersURL + "/job/Austin-TX/Backend-Engineer_JR-101": detail101,
		},
	}

	got, err := newScraper(b).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "JR-101", got[0].SourceJobID)
	assert.Equal(t, "Backend Engineer", got[0].Title)
	assert.Equal(t, "Austin, TX", got[0].Location)
	assert.Equal(t, "Build services.\nPay $150,000 - $180,000", got[0].Description)
	assert.Equal(t, "Go\nPostgres", got[0].Requirements)
	assert.Equal(t, careersURL+"/job/Austin-TX/Backend-Engineer_JR-101", got[0].ExternalURL)
	assert.Equal(t, careersURL, got[0].SourceURL)
	assert.NotNil(t, got[0].PostedAt)

	assert.Equal(t, "JR-102", got[1].SourceJobID)
	assert.Equal(t, "JR-103", got[2].SourceJobID)
	assert.Equal(t, "workday", got[2].Source)

	assert.Equal(t, 1, b.Opened())
	assert.Equal(t, 1, b.Closed())
}

func TestFetch_PacesNavigationsAndClicks(t *testing.T) {
	b := &workdaytest.Browser{
		Pages:        []string{page1, page2},
		NextSelector: sourcecfg.DefaultWorkdaySelectors.NextPage,
		Details: map[string]string{
			careersURL + "/job/Austin-TX/Backend-Engineer_JR-101": detail101,
		},
	}
	const delay = 15 * time.Millisecond
	s := workday.New("Acme", cfg(), b, nil, util.NewPacer(delay, delay))
	s.Settle = 0
	s.DetailWait = 10 * time.Millisecond

	start := time.Now()
	got, err := s.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	// one listing load, three detail pages, two pagination steps
	assert.GreaterOrEqual(t, time.Since(start), 6*delay)
}

func TestFetch_PacerHonorsCancel(t *testing.T) {
	b := &workdaytest.Browser{Pages: []string{page1}}
	s := workday.New("Acme", cfg(), b, nil, util.NewPacer(time.Hour, time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Fetch(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetch_ListingWithoutLink(t *testing.T) {
	b := &workdaytest.Browser{Pages: []string{`<html><body>
<div data-automation-id="jobItem"><h3 data-automation-id="jobTitle">Recruiter</h3></div>
</body></html>`}}

	got, err := newScraper(b).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, careersURL, got[0].ExternalURL)
	assert.Len(t, got[0].SourceJobID, 16)
}

func TestFetch_RenderTimeout(t *testing.T) {
	b := &workdaytest.Browser{NeverRender: true}

	_, err := newScraper(b).Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.KindRenderTimeout, domain.KindOf(err))
	assert.Equal(t, 1, b.Closed())
}

func TestFetch_Blocked(t *testing.T) {
	b := &workdaytest.Browser{
		NeverRender: true,
		Pages:       []string{`<html><body>Attention Required! | Cloudflare</body></html>`},
	}

	_, err := newScraper(b).Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, workday.ErrWorkdayBlocked)
	assert.Equal(t, domain.KindSourceUnavailable, domain.KindOf(err))
	assert.Equal(t, 1, b.Closed())
}

func TestFetch_CancelMidFetchClosesSession(t *testing.T) {
	b := &workdaytest.Browser{Hang: true, Waiting: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := newScraper(b).Fetch(ctx)
		errCh <- err
	}()

	select {
	case <-b.Waiting:
	case <-time.After(2 * time.Second):
		t.Fatal("fetch never reached the listing wait")
	}
	cancel()

	select {
	case err := <-errCh:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, domain.KindCancelled, domain.KindOf(err))
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not return after cancel")
	}
	assert.Equal(t, 1, b.Closed())
}

func TestFetch_OpenError(t *testing.T) {
	b := &workdaytest.Browser{OpenErr: assert.AnError}

	_, err := newScraper(b).Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.KindSourceUnavailable, domain.KindOf(err))
	assert.Equal(t, 0, b.Closed())
}

func TestIsWorkdayURL(t *testing.T) {
	assert.True(t, workday.IsWorkdayURL(careersURL))
	assert.True(t, workday.IsWorkdayURL("https://wd3.myworkdaysite.com/recruiting/acme/External"))
	assert.False(t, workday.IsWorkdayURL("https://jobs.lever.co/acme"))
	assert.False(t, workday.IsWorkdayURL("not a url"))
}
