package reloader

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mrssilver/feedboat/internal/feedmodel"
	"github.com/mrssilver/feedboat/internal/fetch"
	"github.com/mrssilver/feedboat/internal/ignores"
)

type fakeFetcher struct {
	mu      sync.Mutex
	byURL   map[string]*fetch.Result
	errURLs map[string]error
	delay   map[string]time.Duration
	calls   int
}

func (f *fakeFetcher) Fetch(ctx context.Context, rssurl, lastModified, etag string) (*fetch.Result, error) {
	f.mu.Lock()
	f.calls++
	d := f.delay[rssurl]
	f.mu.Unlock()
	if d > 0 {
		time.Sleep(d)
	}
	if err, ok := f.errURLs[rssurl]; ok {
		return nil, err
	}
	return f.byURL[rssurl], nil
}

type fakeMerger struct {
	mu     sync.Mutex
	merged []*feedmodel.Feed
}

func (m *fakeMerger) ExternalMerge(feed *feedmodel.Feed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.merged = append(m.merged, feed)
	return nil
}

func feedWithItem(rssurl, title, guid string) *feedmodel.Feed {
	f := feedmodel.NewFeed(rssurl)
	f.Title = title
	f.AddItem(&feedmodel.Item{GUID: guid, Title: title, Unread: true})
	return f
}

func TestReloadRangeMergesAndReportsStatus(t *testing.T) {
	feeds := []*feedmodel.Feed{
		feedmodel.NewFeed("https://ex/a"),
		feedmodel.NewFeed("https://ex/b"),
	}
	fetcher := &fakeFetcher{
		byURL: map[string]*fetch.Result{
			"https://ex/a": {Feed: feedWithItem("https://ex/a", "A", "a1")},
			"https://ex/b": {Feed: feedWithItem("https://ex/b", "B", "b1")},
		},
		errURLs: map[string]error{},
	}
	merger := &fakeMerger{}
	r := New(fetcher, merger, ignores.New(), nil, Config{ReloadThreads: 2}, nil)

	if err := r.ReloadRange(context.Background(), feeds, 0, 2, true); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(merger.merged) != 2 {
		t.Fatalf("expected 2 merges, got %d", len(merger.merged))
	}
	if feeds[0].Status != feedmodel.Success || feeds[1].Status != feedmodel.Success {
		t.Fatalf("expected both feeds Success, got %v %v", feeds[0].Status, feeds[1].Status)
	}
}

func TestReloadOneMarksErrorOnFetchFailure(t *testing.T) {
	feeds := []*feedmodel.Feed{feedmodel.NewFeed("https://ex/bad")}
	fetcher := &fakeFetcher{
		byURL:   map[string]*fetch.Result{},
		errURLs: map[string]error{"https://ex/bad": errors.New("network down")},
	}
	merger := &fakeMerger{}
	r := New(fetcher, merger, ignores.New(), nil, Config{ReloadThreads: 1}, nil)

	err := r.ReloadRange(context.Background(), feeds, 0, 1, true)
	if err == nil {
		t.Fatalf("expected error surfaced")
	}
	if feeds[0].Status != feedmodel.Error {
		t.Fatalf("expected Error status, got %v", feeds[0].Status)
	}
}

func TestIgnoresDropItemsBeforeMerge(t *testing.T) {
	feeds := []*feedmodel.Feed{feedmodel.NewFeed("https://ex/c")}
	fetched := feedmodel.NewFeed("https://ex/c")
	fetched.AddItem(&feedmodel.Item{GUID: "keep", Title: "Keep Me", Unread: true})
	fetched.AddItem(&feedmodel.Item{GUID: "drop", Title: "Sponsored: buy now", Unread: true})

	fetcher := &fakeFetcher{byURL: map[string]*fetch.Result{"https://ex/c": {Feed: fetched}}, errURLs: map[string]error{}}
	merger := &fakeMerger{}
	ig := ignores.New()
	if err := ig.AddRule("*", `title =~ "Sponsored"`); err != nil {
		t.Fatalf("add rule: %v", err)
	}
	r := New(fetcher, merger, ig, nil, Config{ReloadThreads: 1}, nil)

	if err := r.ReloadRange(context.Background(), feeds, 0, 1, true); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(merger.merged) != 1 {
		t.Fatalf("expected 1 merge, got %d", len(merger.merged))
	}
	items := merger.merged[0].Items()
	if len(items) != 1 || items[0].GUID != "keep" {
		t.Fatalf("expected only the non-ignored item merged, got %+v", items)
	}
}

func TestConcurrentReloadAllReturnsImmediatelyWhenAlreadyRunning(t *testing.T) {
	feeds := []*feedmodel.Feed{feedmodel.NewFeed("https://ex/d")}
	fetcher := &fakeFetcher{byURL: map[string]*fetch.Result{"https://ex/d": {Feed: feedWithItem("https://ex/d", "D", "d1")}}, errURLs: map[string]error{}}
	merger := &fakeMerger{}
	r := New(fetcher, merger, ignores.New(), nil, Config{ReloadThreads: 1}, nil)
	r.running = 1 // simulate a cycle already in flight

	if err := r.ReloadAll(context.Background(), feeds, true); err != nil {
		t.Fatalf("expected no-op, got error: %v", err)
	}
	if len(merger.merged) != 0 {
		t.Fatalf("expected no merges while guarded, got %d", len(merger.merged))
	}
}

func TestResetUnreadForcesUnreadOnMerge(t *testing.T) {
	feeds := []*feedmodel.Feed{feedmodel.NewFeed("https://ex/e")}
	fetched := feedmodel.NewFeed("https://ex/e")
	fetched.AddItem(&feedmodel.Item{GUID: "x", Title: "X", Unread: false})
	fetcher := &fakeFetcher{byURL: map[string]*fetch.Result{"https://ex/e": {Feed: fetched}}, errURLs: map[string]error{}}
	merger := &fakeMerger{}
	ig := ignores.New()
	ig.AddResetUnread("https://ex/e")
	r := New(fetcher, merger, ig, nil, Config{ReloadThreads: 1}, nil)

	if err := r.ReloadRange(context.Background(), feeds, 0, 1, true); err != nil {
		t.Fatalf("reload: %v", err)
	}
	items := merger.merged[0].Items()
	if len(items) != 1 || !items[0].Unread {
		t.Fatalf("expected reset-unread to force item unread, got %+v", items)
	}
}

func TestPreAndPostHooksRunWithoutBlockingSuccess(t *testing.T) {
	feeds := []*feedmodel.Feed{feedmodel.NewFeed("https://ex/f")}
	fetcher := &fakeFetcher{byURL: map[string]*fetch.Result{"https://ex/f": {Feed: feedWithItem("https://ex/f", "F", "f1")}}, errURLs: map[string]error{}}
	merger := &fakeMerger{}
	r := New(fetcher, merger, ignores.New(), nil, Config{
		ReloadThreads:  1,
		PreReloadHook:  "true",
		PostReloadHook: "true",
	}, nil)
	if err := r.ReloadRange(context.Background(), feeds, 0, 1, true); err != nil {
		t.Fatalf("reload: %v", err)
	}
}

func TestOneRangeErrorDoesNotAbortSiblingRange(t *testing.T) {
	// 3 feeds, 2 reload-threads: chunking gives range0 = [g1, g2] and
	// range1 = [bad]. bad fails instantly; g1 is delayed so that by the
	// time range0 reaches its second feed (g2), range1's error has already
	// returned. A shared errgroup.WithContext would have canceled range0's
	// context by then, dropping g2 — range0 must still finish both of its
	// own feeds regardless (spec.md §7: per-feed errors don't poison a
	// cycle for the *other* feeds in flight).
	feeds := []*feedmodel.Feed{
		feedmodel.NewFeed("https://ex/g1"),
		feedmodel.NewFeed("https://ex/g2"),
		feedmodel.NewFeed("https://ex/bad"),
	}
	fetcher := &fakeFetcher{
		byURL: map[string]*fetch.Result{
			"https://ex/g1": {Feed: feedWithItem("https://ex/g1", "G1", "g1")},
			"https://ex/g2": {Feed: feedWithItem("https://ex/g2", "G2", "g2")},
		},
		errURLs: map[string]error{"https://ex/bad": errors.New("network down")},
		delay:   map[string]time.Duration{"https://ex/g1": 30 * time.Millisecond},
	}
	merger := &fakeMerger{}
	r := New(fetcher, merger, ignores.New(), nil, Config{ReloadThreads: 2}, nil)

	err := r.ReloadAll(context.Background(), feeds, true)
	if err == nil {
		t.Fatalf("expected the erroring feed's error to surface")
	}
	if feeds[2].Status != feedmodel.Error {
		t.Fatalf("expected bad feed to be marked Error, got %v", feeds[2].Status)
	}
	if feeds[0].Status != feedmodel.Success || feeds[1].Status != feedmodel.Success {
		t.Fatalf("expected sibling range's feeds to both complete with Success, got %v %v", feeds[0].Status, feeds[1].Status)
	}
	if len(merger.merged) != 2 {
		t.Fatalf("expected both of the sibling range's feeds to merge, got %d", len(merger.merged))
	}
}

func TestShellQuoteEscapesSingleQuotes(t *testing.T) {
	q := shellQuote("it's a test")
	if !strings.Contains(q, `'\''`) {
		t.Fatalf("expected escaped single quote, got %q", q)
	}
}
