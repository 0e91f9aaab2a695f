// Package queryfeed materializes virtual feeds whose items are computed by
// evaluating a filter expression across all real feeds (spec.md §4.4).
package queryfeed

import (
	"fmt"
	"strings"

	"github.com/mrssilver/feedboat/internal/feedmodel"
	"github.com/mrssilver/feedboat/internal/match"
)

// QueryFeed wraps a feedmodel.Feed whose rssurl begins with "query:".
type QueryFeed struct {
	Feed  *feedmodel.Feed
	Title string
	Expr  *match.Matcher
}

// New parses a "query:<title>:<expression>" URL. Only the first two colons
// are treated as separators; the rest of the string (which may itself
// contain colons, e.g. a "between A:B" range) is joined into the
// expression. Construction fails if there are fewer than three
// colon-separated parts or if the expression fails to parse.
func New(rssurl string) (*QueryFeed, error) {
	if !strings.HasPrefix(rssurl, feedmodel.QueryFeedPrefix) {
		return nil, fmt.Errorf("queryfeed: %q is not a query: url", rssurl)
	}
	parts := strings.SplitN(rssurl, ":", 3)
	if len(parts) < 3 {
		return nil, fmt.Errorf("queryfeed: %q has fewer than three colon-separated parts", rssurl)
	}
	title, exprSrc := parts[1], parts[2]

	expr, err := match.Parse(exprSrc)
	if err != nil {
		return nil, fmt.Errorf("queryfeed: bad filter expression in %q: %w", rssurl, err)
	}

	f := feedmodel.NewFeed(rssurl)
	f.Title = title
	return &QueryFeed{Feed: f, Title: title, Expr: expr}, nil
}

// UpdateItems iterates every non-query feed in allFeeds, evaluates Expr
// against each of its items, and materializes the matches into qf.Feed.
// Matched items keep their Feed pointer on the original owning feed
// (invariant: a query feed owns no items whose owning feed is itself a
// query feed, and never claims ownership via the weak back-reference).
func (qf *QueryFeed) UpdateItems(allFeeds []*feedmodel.Feed, sortField feedmodel.SortField, sortDir feedmodel.SortDirection) error {
	var matched []*feedmodel.Item
	for _, f := range allFeeds {
		if f.IsQueryFeed() {
			continue
		}
		for _, it := range f.Items() {
			ok, err := qf.Expr.Matches(it)
			if err != nil {
				return fmt.Errorf("queryfeed %q: %w", qf.Feed.RSSURL, err)
			}
			if ok {
				matched = append(matched, it)
			}
		}
	}
	feedmodel.SortItems(matched, sortField, sortDir)
	qf.Feed.AdoptQueryItems(matched)
	return nil
}
