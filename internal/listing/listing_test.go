// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package listing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

const listingPage = `<html><body>
<div id="content">
<h3>New submissions</h3>
<dl>
<dt><a name="item1">[1]</a>
  <a href="/abs/2407.00001" title="Abstract" id="2407.00001">arXiv:2407.00001</a>
  [<a href="/pdf/2407.00001" title="Download PDF">pdf</a>]
</dt>
<dd>
<div class="meta">
<div class="list-title mathjax"><span class="descriptor">Title:</span>
  Sparse Attention
  for Long Documents
</div>
<div class="list-authors"><span class="descriptor">Authors:</span>
<a href="/a/doe_j_1">Jane Doe</a>,
<a href="/a/roe_r_1">Richard Roe</a>
</div>
<div class="list-comments mathjax"><span class="descriptor">Comments:</span>
12 pages (submitted 3 Jul 2024)
</div>
<div class="list-subjects"><span class="descriptor">Subjects:</span>
<span class="primary-subject">Machine Learning (cs.LG)</span>; Computation and Language (cs.CL)
</div>
<p class="mathjax">We study sparse
attention.</p>
</div>
</dd>
<dt><a name="item2">[2]</a>
  <a href="/abs/2407.00002" title="Abstract" id="2407.00002">arXiv:2407.00002</a>
</dt>
<dd>
<div class="meta">
<div class="list-title mathjax"><span class="descriptor">Title:</span> Robot Grasping</div>
<div class="list-authors"><span class="descriptor">Authors:</span> Ann Lee</div>
<div class="list-subjects"><span class="descriptor">Subjects:</span> Robotics (cs.RO)</div>
</div>
</dd>
</dl>
</div>
</body></html>`

const metadataFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2407.00002v1</id>
    <summary>  Grasping with
    tactile sensing. </summary>
  </entry>
</feed>`

const emptyFeedXML = `<?xml version="1.0" encoding="UTF-8"?><feed xmlns="http://www.w3.org/2005/Atom"></feed>`

// fixedNow is 2024-07-10 09:00 in New York.
func fixedNow() time.Time {
	return time.Date(2024, 7, 10, 13, 0, 0, 0, time.UTC)
}

type archiveServer struct {
	listing       string
	feed          string
	listingStatus int
	metadataCalls int32
	lastPath      string
}

func (a *archiveServer) start(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/list/"):
			a.lastPath = r.URL.RequestURI()
			if a.listingStatus != 0 {
				w.WriteHeader(a.listingStatus)
				return
			}
			fmt.Fprint(w, a.listing)
		case r.URL.Path == "/api/query":
			atomic.AddInt32(&a.metadataCalls, 1)
			fmt.Fprint(w, a.feed)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)

	oldList, oldMeta := listingBaseURL, metadataAPIBase
	listingBaseURL = ts.URL + "/list"
	metadataAPIBase = ts.URL + "/api/query"
	t.Cleanup(func() {
		listingBaseURL, metadataAPIBase = oldList, oldMeta
	})
	return ts
}

func newFetcher(ts *httptest.Server) *Fetcher {
	return &Fetcher{Client: ts.Client(), UserAgent: "test", Now: fixedNow}
}

func TestListingURL(t *testing.T) {
	assert.Equal(t, listingBaseURL+"/cs/new", ListingURL("cs", types.WindowSingleDay))
	assert.Equal(t, listingBaseURL+"/q-fin/pastweek?show=1000", ListingURL("q-fin", types.WindowPastWeek))
}

func TestFetch_ParsesRecords(t *testing.T) {
	srv := &archiveServer{listing: listingPage, feed: metadataFeedXML}
	ts := srv.start(t)

	papers, err := newFetcher(ts).Fetch(context.Background(), "cs", types.WindowSingleDay)
	require.NoError(t, err)
	require.Len(t, papers, 2)

	p := papers[0]
	assert.Equal(t, "2407.00001", p.ID)
	assert.Equal(t, "https://arxiv.org/abs/2407.00001", p.MainPage)
	assert.Equal(t, "https://arxiv.org/pdf/2407.00001", p.PDF)
	assert.Equal(t, "Sparse Attention for Long Documents", p.Title)
	assert.Equal(t, "Jane Doe, Richard Roe", p.Authors)
	assert.Equal(t, "Machine Learning (cs.LG); Computation and Language (cs.CL)", p.Subjects)
	assert.Equal(t, "We study sparse attention.", p.Abstract)
	assert.Equal(t, "2024-07-03", p.Submitted)
	assert.Nil(t, p.Relevance)

	assert.Equal(t, "/list/cs/new", srv.lastPath)
}

func TestFetch_AbstractFallbackAndDefaultDate(t *testing.T) {
	srv := &archiveServer{listing: listingPage, feed: metadataFeedXML}
	ts := srv.start(t)

	papers, err := newFetcher(ts).Fetch(context.Background(), "cs", types.WindowPastWeek)
	require.NoError(t, err)
	require.Len(t, papers, 2)

	// Only the second row lacks an inline abstract.
	assert.Equal(t, int32(1), atomic.LoadInt32(&srv.metadataCalls))
	assert.Equal(t, "Grasping with tactile sensing.", papers[1].Abstract)
	assert.Equal(t, "2024-07-10", papers[1].Submitted)
	assert.Equal(t, "/list/cs/pastweek?show=1000", srv.lastPath)
}

func TestFetch_BothAbstractTiersEmpty(t *testing.T) {
	srv := &archiveServer{listing: listingPage, feed: emptyFeedXML}
	ts := srv.start(t)

	papers, err := newFetcher(ts).Fetch(context.Background(), "cs", types.WindowSingleDay)
	require.NoError(t, err)
	assert.Equal(t, "", papers[1].Abstract)
}

func TestFetch_MismatchedBlocks(t *testing.T) {
	page := strings.Replace(listingPage, "<dd>", "<!-- -->", 1)
	page = strings.Replace(page, "</dd>", "", 1)
	srv := &archiveServer{listing: page, feed: emptyFeedXML}
	ts := srv.start(t)

	_, err := newFetcher(ts).Fetch(context.Background(), "cs", types.WindowSingleDay)
	var pe *types.ParseError
	require.True(t, errors.As(err, &pe), "want ParseError, got %v", err)
	assert.Contains(t, pe.Reason, "2 header blocks but 1 detail blocks")
}

func TestFetch_NoContentRegion(t *testing.T) {
	srv := &archiveServer{listing: "<html><body><p>maintenance</p></body></html>"}
	ts := srv.start(t)

	_, err := newFetcher(ts).Fetch(context.Background(), "cs", types.WindowSingleDay)
	var pe *types.ParseError
	assert.True(t, errors.As(err, &pe))
}

func TestFetch_MissingAbstractLink(t *testing.T) {
	page := strings.Replace(listingPage, `title="Abstract" id="2407.00002"`, `title="Other"`, 1)
	srv := &archiveServer{listing: page, feed: emptyFeedXML}
	ts := srv.start(t)

	_, err := newFetcher(ts).Fetch(context.Background(), "cs", types.WindowSingleDay)
	var pe *types.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, pe.Reason, "row 2")
}

func TestFetch_HTTPError(t *testing.T) {
	srv := &archiveServer{listingStatus: http.StatusServiceUnavailable}
	ts := srv.start(t)

	_, err := newFetcher(ts).Fetch(context.Background(), "cs", types.WindowSingleDay)
	var fe *types.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe.Error(), "HTTP 503")
}

func TestFetch_TransportError(t *testing.T) {
	srv := &archiveServer{listing: listingPage}
	ts := srv.start(t)
	ts.Close()

	_, err := newFetcher(ts).Fetch(context.Background(), "cs", types.WindowSingleDay)
	var fe *types.FetchError
	assert.True(t, errors.As(err, &fe))
}

func TestFetch_UnknownWindowKind(t *testing.T) {
	f := &Fetcher{}
	_, err := f.Fetch(context.Background(), "cs", types.WindowKind("yearly"))
	assert.Error(t, err)
}

func TestSubmittedDate(t *testing.T) {
	tests := []struct {
		comment string
		want    string
		ok      bool
	}{
		{"12 pages (submitted 3 Jul 2024)", "2024-07-03", true},
		{"(submitted 21 Dec 2023 )", "2023-12-21", true},
		{"Accepted at ICML (submitted  1 Jan 2025)", "2025-01-01", true},
		{"12 pages", "", false},
		{"(submitted 3 Foo 2024)", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.comment, func(t *testing.T) {
			got, ok := submittedDate(tt.comment)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFirstAbstract(t *testing.T) {
	calls := 0
	sources := []abstractSource{
		func(context.Context, string, *goquery.Selection) (string, error) { calls++; return "", nil },
		func(context.Context, string, *goquery.Selection) (string, error) { calls++; return "second", nil },
		func(context.Context, string, *goquery.Selection) (string, error) { calls++; return "third", nil },
	}
	got, err := firstAbstract(context.Background(), sources, "x", nil)
	require.NoError(t, err)
	assert.Equal(t, "second", got)
	assert.Equal(t, 2, calls)

	failing := []abstractSource{
		func(context.Context, string, *goquery.Selection) (string, error) { return "", errors.New("boom") },
	}
	_, err = firstAbstract(context.Background(), failing, "x", nil)
	assert.EqualError(t, err, "boom")
}
