// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package listing

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// metadataAPIBase is the per-identifier metadata endpoint. Declared as a
// var so tests can substitute an httptest server.
var metadataAPIBase = "https://export.arxiv.org/api/query"

// abstractSource yields a paper's abstract, or "" when the source has none.
// An error aborts the fetch.
type abstractSource func(ctx context.Context, id string, dd *goquery.Selection) (string, error)

// abstractSources lists the extraction tiers in the order they are tried.
func (f *Fetcher) abstractSources() []abstractSource {
	return []abstractSource{
		detailAbstract,
		f.metadataAbstract,
	}
}

// firstAbstract returns the first non-empty abstract produced by sources.
func firstAbstract(ctx context.Context, sources []abstractSource, id string, dd *goquery.Selection) (string, error) {
	for _, src := range sources {
		abstract, err := src(ctx, id, dd)
		if err != nil {
			return "", err
		}
		if abstract != "" {
			return abstract, nil
		}
	}
	return "", nil
}

// detailAbstract reads the abstract paragraph embedded in the detail block.
func detailAbstract(_ context.Context, _ string, dd *goquery.Selection) (string, error) {
	return collapse(dd.Find("p.mathjax").First().Text()), nil
}

// Atom feed returned by the metadata endpoint.
type metadataFeed struct {
	Entries []metadataEntry `xml:"entry"`
}

type metadataEntry struct {
	Summary string `xml:"summary"`
}

// metadataAbstract fetches the paper's summary from the metadata endpoint.
func (f *Fetcher) metadataAbstract(ctx context.Context, id string, _ *goquery.Selection) (string, error) {
	apiURL := fmt.Sprintf("%s?id_list=%s", metadataAPIBase, url.QueryEscape(id))

	resp, err := f.get(ctx, apiURL, "application/atom+xml")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var feed metadataFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return "", &types.FetchError{URL: apiURL, Err: fmt.Errorf("parsing metadata response: %w", err)}
	}
	if len(feed.Entries) == 0 {
		return "", nil
	}

	f.logger().Debug("abstract from metadata endpoint", zap.String("id", id))
	return collapse(feed.Entries[0].Summary), nil
}
