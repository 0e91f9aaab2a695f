// Package fetch is the concrete fetch collaborator: conditional-GET HTTP
// retrieval plus RSS 2.0/RDF(RSS 1.0)/Atom parsing into the normalized
// feedmodel (spec.md §6/§9, SPEC_FULL.md §4.9).
package fetch

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/mrssilver/feedboat/internal/feedmodel"
)

// Result is what a single fetch produced.
type Result struct {
	Unchanged    bool // true on HTTP 304; Feed is untouched
	Feed         *feedmodel.Feed
	LastModified string
	ETag         string
}

// Fetcher is the Reloader's dependency boundary (SPEC_FULL.md §10: a second
// implementation can satisfy this without touching the Reloader).
type Fetcher interface {
	Fetch(ctx context.Context, rssurl, lastModified, etag string) (*Result, error)
}

// HTTPFetcher is the reference implementation: one bounded http.Client shared
// across all fetches, a per-request context deadline, and conditional
// headers sent whenever the caller has stored cache validators.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

// New builds an HTTPFetcher. timeout bounds each individual request; the
// Reloader does not separately time it out (spec.md §4.9).
func New(timeout time.Duration, userAgent string) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if userAgent == "" {
		userAgent = "feedboat/1.0"
	}
	return &HTTPFetcher{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: userAgent,
		timeout:   timeout,
	}
}

// Fetch performs a conditional GET against rssurl and parses the body.
func (f *HTTPFetcher) Fetch(ctx context.Context, rssurl, lastModified, etag string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rssurl, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rssurl, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/rdf+xml, application/xml, text/xml")
	if lastModified != "" {
		req.Header.Set("If-Modified-Since", lastModified)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rssurl, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return &Result{Unchanged: true}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: HTTP %d", rssurl, resp.StatusCode)
	}

	feed, err := Parse(resp.Body, rssurl)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rssurl, err)
	}
	return &Result{
		Feed:         feed,
		LastModified: resp.Header.Get("Last-Modified"),
		ETag:         resp.Header.Get("ETag"),
	}, nil
}

// rootProbe reads tokens only up to the first start element and returns its
// name; Parse then hands the whole buffered document to the matching
// format-specific decoder.
func rootProbe(dec *xml.Decoder) (xml.Name, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			return xml.Name{}, err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name, nil
		}
	}
}

// Parse sniffs the feed format by its root element and decodes accordingly.
// Guid synthesis follows spec.md scenario 1: link+pubDate, else link, else
// title.
func Parse(body io.Reader, sourceURL string) (*feedmodel.Feed, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	probe := xml.NewDecoder(strings.NewReader(string(data)))
	root, err := rootProbe(probe)
	if err != nil {
		return nil, fmt.Errorf("not an XML feed: %w", err)
	}

	switch strings.ToLower(root.Local) {
	case "rss":
		return parseRSS2(data, sourceURL)
	case "rdf":
		return parseRDF(data, sourceURL)
	case "feed":
		return parseAtom(data, sourceURL)
	default:
		return nil, fmt.Errorf("unrecognized feed root element %q", root.Local)
	}
}

func unescapeClean(s string) string {
	s = html.UnescapeString(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}
