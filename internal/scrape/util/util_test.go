package util

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"jobingest-engine/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Senior   Engineer \n", "Senior Engineer"},
		{"R&amp;D Lead", "R&D Lead"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanText(tt.in))
	}
}

func TestCleanMultiline(t *testing.T) {
	in := "  line one  \n\n\n  line   two\r\n"
	assert.Equal(t, "line one\n\nline two", CleanMultiline(in))
}

func TestNormalizeLocation(t *testing.T) {
	assert.Equal(t, "San Francisco, CA", NormalizeLocation("Location: San Francisco,  CA, san francisco"))
	assert.Equal(t, "Remote", NormalizeLocation(" Remote "))
	assert.Equal(t, "", NormalizeLocation("   "))
}

func TestInferWorkModeFromText(t *testing.T) {
	assert.Equal(t, "remote", InferWorkModeFromText("Remote - US", "Engineer"))
	assert.Equal(t, "hybrid", InferWorkModeFromText("New York (Hybrid)", ""))
	assert.Equal(t, "onsite", InferWorkModeFromText("On-site in Austin"))
	assert.Equal(t, "", InferWorkModeFromText("Austin, TX", "Engineer"))
}

func TestCanonicalizeURL(t *testing.T) {
	got := CanonicalizeURL("HTTPS://Boards.Greenhouse.io/acme/jobs/1?utm_source=x&gh_src=b&a=1#apply")
	assert.Equal(t, "https://boards.greenhouse.io/acme/jobs/1?a=1&gh_src=b", got)
	assert.Equal(t, "", CanonicalizeURL("  "))
}

func TestAbsoluteURL(t *testing.T) {
	base := "https://acme.wd5.myworkdayjobs.com/en-US/External"
	assert.Equal(t, "https://acme.wd5.myworkdayjobs.com/en-US/External/job/Austin/Engineer_JR1", AbsoluteURL(base, "/en-US/External/job/Austin/Engineer_JR1"))
	assert.Equal(t, "https://other.example/x", AbsoluteURL(base, "https://other.example/x"))
	assert.Equal(t, "", AbsoluteURL(base, ""))
}

func TestExtractSalary(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Pay: $120,000 - $150,000 per year", "$120,000 - $150,000"},
		{"Range $120k – $150k plus equity", "$120k – $150k"},
		{"We pay 90k-110k", "90k-110k"},
		{"Base salary of $95,000", "$95,000"},
		{"No numbers here", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractSalary(tt.in))
		})
	}
}

func TestHTMLToText(t *testing.T) {
	escaped := "&lt;p&gt;Build &amp;amp; ship&lt;/p&gt;&lt;ul&gt;&lt;li&gt;Go&lt;/li&gt;&lt;li&gt;SQL&lt;/li&gt;&lt;/ul&gt;"
	assert.Equal(t, "Build & ship\nGo\nSQL", HTMLToText(escaped))
	assert.Equal(t, "line one\nline two", HTMLToText("line one<br/>line two<script>alert(1)</script>"))
	assert.Equal(t, "", HTMLToText(""))
}

func TestHashString(t *testing.T) {
	a := HashString("acme|engineer|austin")
	assert.Len(t, a, 16)
	assert.Equal(t, a, HashString("acme|engineer|austin"))
	assert.NotEqual(t, a, HashString("acme|engineer|dallas"))
}

func TestPacer_NextWithinBounds(t *testing.T) {
	p := NewPacer(10*time.Millisecond, 30*time.Millisecond)
	for i := 0; i < 200; i++ {
		d := p.Next()
		require.GreaterOrEqual(t, d, 10*time.Millisecond)
		require.LessOrEqual(t, d, 30*time.Millisecond)
	}

	assert.Equal(t, time.Duration(0), NewPacer(0, 0).Next())
	var nilPacer *Pacer
	assert.Equal(t, time.Duration(0), nilPacer.Next())
}

func TestPacer_WaitHonorsContext(t *testing.T) {
	p := NewPacer(time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Wait(ctx), context.Canceled)
}

func TestHostLimiter_PerHost(t *testing.T) {
	hl := NewHostLimiter(1, 1)
	ctx := context.Background()

	require.NoError(t, hl.WaitURL(ctx, "https://api.lever.co/v0/postings/a"))
	require.NoError(t, hl.WaitURL(ctx, "https://boards-api.greenhouse.io/v1/boards/a/jobs"), "other host has its own bucket")

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.Error(t, hl.WaitURL(short, "https://API.lever.co/v0/postings/b"), "same host must wait for a token")
}

func TestClient_GetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.NotEmpty(t, r.Header.Get("User-Agent"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"acme"}`))
		case "/down":
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("maintenance"))
		default:
			_, _ = w.Write([]byte("<html>not json</html>"))
		}
	}))
	defer srv.Close()

	c := NewClient(NewHostLimiter(0, 1), nil, "")
	ctx := context.Background()

	var out struct {
		Name string `json:"name"`
	}
	require.NoError(t, c.GetJSON(ctx, "test get", srv.URL+"/ok", &out))
	assert.Equal(t, "acme", out.Name)

	err := c.GetJSON(ctx, "test get", srv.URL+"/down", &out)
	require.Error(t, err)
	assert.Equal(t, domain.KindSourceUnavailable, domain.KindOf(err))
	assert.Contains(t, err.Error(), "status 503")

	err = c.GetJSON(ctx, "test get", srv.URL+"/html", &out)
	require.Error(t, err)
	assert.Equal(t, domain.KindSourceUnavailable, domain.KindOf(err))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	err = c.GetJSON(cancelled, "test get", srv.URL+"/ok", &out)
	require.Error(t, err)
	assert.Equal(t, domain.KindCancelled, domain.KindOf(err))
}

func TestTruncate_KeepsUTF8Valid(t *testing.T) {
	got := Truncate("x"+strings.Repeat("é", 200), 240)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), 240+len("..."))
	assert.True(t, strings.HasSuffix(got, "é..."))

	assert.Equal(t, "short line", Truncate(" short\nline ", 240))
	assert.True(t, utf8.ValidString(Truncate("bad \xff\xfe bytes", 240)))
}

func TestGetJSON_NonASCIIErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(strings.Repeat("日本", 200)))
	}))
	defer srv.Close()

	var out any
	err := NewClient(NewHostLimiter(0, 1), nil, "").GetJSON(context.Background(), "get", srv.URL, &out)
	require.Error(t, err)
	assert.Equal(t, domain.KindSourceUnavailable, domain.KindOf(err))
	assert.True(t, utf8.ValidString(err.Error()))
}
