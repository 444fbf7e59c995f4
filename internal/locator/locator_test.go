package locator

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callsense/internal/config"
	"callsense/internal/period"
)

const concallPage = `<html><body>
<h1>Acme Industries</h1>
<div id="concalls">
  <h3>Concalls</h3>
  <div>Nov 2023 <a href="https://www.bseindia.com/xml-data/acme-q2.pdf">Transcript</a>
       <a href="#">Notes</a>
       <a href="javascript:void(0)">Transcript popup</a></div>
  <div>Feb 2024 <a href="/files/acme/feb24.pdf">Transcript</a></div>
  <div>Feb 2024 <a href="https://www.bseindia.com/xml-data/acme-q2.pdf">Transcript</a></div>
  <div>Jan 2010 <a href="https://www.bseindia.com/xml-data/acme-old.pdf">Transcript</a></div>
  <div>May 2023 <a href="https://cdn.elsewhere.example/acme.pdf">Transcript</a></div>
  <div>Mar 2023 <a href="https://www.bseindia.com/xml-data/acme-audio.mp3">Audio recording</a></div>
</div>
<h2>Annual Reports</h2>
<div>Jun 2023 <a href="https://www.bseindia.com/xml-data/report.pdf">Transcript</a></div>
</body></html>`

const headingFallbackPage = `<html><body>
<h2>Con Calls</h2>
<div>Aug 2022 <a href="https://www.bseindia.com/xml-data/call.pdf">Transcript</a></div>
</body></html>`

const nestedDocumentsPage = `<html><body>
<h2>Documents</h2>
<div>
  <b>Concalls</b>
  <div>Sep 2021 <a href="https://www.bseindia.com/xml-data/nested.pdf">Transcript</a></div>
</div>
<h2>Shareholding Pattern</h2>
</body></html>`

func newTestLocator(t *testing.T, page string) (*Locator, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/company/MISSING/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, page)
	}))
	t.Cleanup(server.Close)

	serverURL, err := url.Parse(server.URL)
	require.NoError(t, err)

	src := config.Source{
		BaseURL:      server.URL,
		UserAgent:    "callsense-test",
		IndexTimeout: 5,
		StartYear:    2015,
		EndYear:      2026,
		MaxLinks:     300,
		AllowedHosts: []string{"bseindia.com", serverURL.Host},
	}
	return New(src), server
}

func TestDiscoverFromAnchorSection(t *testing.T) {
	l, server := newTestLocator(t, concallPage)

	refs, err := l.Discover(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, refs, 2)

	assert.Equal(t, "ACME", refs[0].Entity)
	assert.Equal(t, "https://www.bseindia.com/xml-data/acme-q2.pdf", refs[0].URL)
	assert.Equal(t, period.Period{Month: "Nov", Year: 2023}, refs[0].Period)

	// The relative href resolves against the company page URL.
	assert.Equal(t, server.URL+"/files/acme/feb24.pdf", refs[1].URL)
	assert.Equal(t, "Feb 2024", refs[1].Period.Key())
}

func TestDiscoverHeadingFallback(t *testing.T) {
	l, _ := newTestLocator(t, headingFallbackPage)

	refs, err := l.Discover(context.Background(), "ACME")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "Aug 2022", refs[0].Period.Key())
}

func TestDiscoverNestedDocumentsSection(t *testing.T) {
	l, _ := newTestLocator(t, nestedDocumentsPage)

	refs, err := l.Discover(context.Background(), "ACME")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "https://www.bseindia.com/xml-data/nested.pdf", refs[0].URL)
	assert.Equal(t, "Sep 2021", refs[0].Period.Key())
}

func TestDiscoverMissingSectionYieldsNoResults(t *testing.T) {
	l, _ := newTestLocator(t, "<html><body><h2>Quarters</h2></body></html>")

	refs, err := l.Discover(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestDiscoverPeriodFromHref(t *testing.T) {
	page := `<html><body><div id="concalls">
      <a href="https://www.bseindia.com/xml-data/2023-11-05/call.pdf">Transcript</a>
      <a href="https://www.bseindia.com/xml-data/undated.pdf">Transcript</a>
    </div></body></html>`
	l, _ := newTestLocator(t, page)

	refs, err := l.Discover(context.Background(), "ACME")
	require.NoError(t, err)
	require.Len(t, refs, 1, "undated link without a label is discarded")
	assert.Equal(t, "Nov 2023", refs[0].Period.Key())
}

func TestExists(t *testing.T) {
	l, _ := newTestLocator(t, concallPage)

	ok, err := l.Exists(context.Background(), "ACME")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Exists(context.Background(), "MISSING")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHostAllowed(t *testing.T) {
	l := New(config.Source{AllowedHosts: []string{"bseindia.com"}})
	assert.True(t, l.hostAllowed("bseindia.com"))
	assert.True(t, l.hostAllowed("www.bseindia.com"))
	assert.False(t, l.hostAllowed("bseindia.com.evil.example"))

	open := New(config.Source{})
	assert.True(t, open.hostAllowed("anything.example"))
}
