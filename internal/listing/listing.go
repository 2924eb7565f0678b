// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package listing retrieves an archive listing page and normalizes it into
// Paper records. The page is a content region holding paired header (dt)
// and detail (dd) blocks, one pair per paper.
package listing

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// listingBaseURL is the listing endpoint root. Declared as a var so tests
// can substitute an httptest server.
var listingBaseURL = "https://arxiv.org/list"

const (
	absBase = "https://arxiv.org/abs/"

	// pastWeekRows caps the bulk listing.
	pastWeekRows = 1000
)

// Fetcher retrieves and parses listing pages. It performs no retries and
// never writes the cache.
type Fetcher struct {
	Client    *http.Client
	UserAgent string

	// Now returns the processing time; submission dates default to its
	// reference-timezone day. Defaults to time.Now.
	Now func() time.Time

	Log *zap.Logger
}

// ListingURL returns the listing URL for subject and kind.
func ListingURL(subject string, kind types.WindowKind) string {
	if kind == types.WindowPastWeek {
		return fmt.Sprintf("%s/%s/pastweek?show=%d", listingBaseURL, subject, pastWeekRows)
	}
	return fmt.Sprintf("%s/%s/new", listingBaseURL, subject)
}

// Fetch retrieves the listing for subject and returns its records in page
// order. Transport failures surface as *types.FetchError and shape
// violations as *types.ParseError.
func (f *Fetcher) Fetch(ctx context.Context, subject string, kind types.WindowKind) ([]types.Paper, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown window kind %q", kind)
	}
	url := ListingURL(subject, kind)

	resp, err := f.get(ctx, url, "text/html")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &types.FetchError{URL: url, Err: fmt.Errorf("reading document: %w", err)}
	}

	papers, err := f.parse(ctx, url, doc)
	if err != nil {
		return nil, err
	}
	f.logger().Info("fetched listing",
		zap.String("subject", subject),
		zap.String("kind", string(kind)),
		zap.Int("papers", len(papers)))
	return papers, nil
}

// get issues a GET and returns the response when it is HTTP 200.
func (f *Fetcher) get(ctx context.Context, url, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &types.FetchError{URL: url, Err: fmt.Errorf("creating request: %w", err)}
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	req.Header.Set("Accept", accept)

	resp, err := f.client().Do(req)
	if err != nil {
		return nil, &types.FetchError{URL: url, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &types.FetchError{URL: url, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}
	return resp, nil
}

// parse walks the dt/dd pairs of every list in the content region.
func (f *Fetcher) parse(ctx context.Context, url string, doc *goquery.Document) ([]types.Paper, error) {
	content := doc.Find("div#content")
	if content.Length() == 0 {
		return nil, &types.ParseError{URL: url, Reason: "no content region"}
	}

	headers := content.Find("dl > dt")
	details := content.Find("dl > dd")
	if headers.Length() != details.Length() {
		return nil, &types.ParseError{
			URL:    url,
			Reason: fmt.Sprintf("%d header blocks but %d detail blocks", headers.Length(), details.Length()),
		}
	}

	today := types.DayString(f.now())
	sources := f.abstractSources()

	papers := make([]types.Paper, 0, headers.Length())
	defaulted := 0
	for i := 0; i < headers.Length(); i++ {
		dt, dd := headers.Eq(i), details.Eq(i)

		id := paperID(dt)
		if id == "" {
			return nil, &types.ParseError{URL: url, Reason: fmt.Sprintf("row %d has no abstract link", i+1)}
		}

		mainPage := absBase + id
		p := types.Paper{
			ID:       id,
			MainPage: mainPage,
			PDF:      strings.Replace(mainPage, "/abs/", "/pdf/", 1),
			Title:    labeledText(dd.Find("div.list-title"), "Title:"),
			Authors:  labeledText(dd.Find("div.list-authors"), "Authors:"),
			Subjects: labeledText(dd.Find("div.list-subjects"), "Subjects:"),
		}

		abstract, err := firstAbstract(ctx, sources, id, dd)
		if err != nil {
			return nil, err
		}
		p.Abstract = abstract

		if d, ok := submittedDate(dd.Find("div.list-comments").Text()); ok {
			p.Submitted = d
		} else {
			p.Submitted = today
			defaulted++
		}

		papers = append(papers, p)
	}

	if defaulted > 0 {
		f.logger().Warn("submission date missing, using processing day",
			zap.Int("papers", defaulted),
			zap.String("day", today))
	}
	return papers, nil
}

// paperID reads the identifier from the header's abstract anchor, e.g.
// <a href="/abs/2407.01234" title="Abstract">arXiv:2407.01234</a>.
func paperID(dt *goquery.Selection) string {
	a := dt.Find(`a[title="Abstract"]`).First()
	if a.Length() == 0 {
		return ""
	}
	if href, ok := a.Attr("href"); ok {
		if idx := strings.Index(href, "/abs/"); idx >= 0 {
			if id := strings.Trim(href[idx+len("/abs/"):], "/ "); id != "" {
				return id
			}
		}
	}
	text := strings.TrimSpace(a.Text())
	if idx := strings.LastIndex(text, ":"); idx >= 0 {
		text = text[idx+1:]
	}
	return strings.TrimSpace(text)
}

// labeledText returns the container's text with its own label stripped and
// whitespace collapsed.
func labeledText(s *goquery.Selection, label string) string {
	if s.Length() == 0 {
		return ""
	}
	text := collapse(s.First().Text())
	return strings.TrimSpace(strings.TrimPrefix(text, label))
}

// collapse joins the whitespace-separated fields of s with single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (f *Fetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}

func (f *Fetcher) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

func (f *Fetcher) logger() *zap.Logger {
	if f.Log != nil {
		return f.Log
	}
	return zap.NewNop()
}
