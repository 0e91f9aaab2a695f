package feedmodel

import "testing"

func TestSynthesizeGUID(t *testing.T) {
	// Scenario 1 from spec.md §8.
	if got := SynthesizeGUID("https://ex/post", "2023-07-31", "t"); got != "https://ex/post2023-07-31" {
		t.Fatalf("got %q", got)
	}
	if got := SynthesizeGUID("https://ex/post", "", "t"); got != "https://ex/post" {
		t.Fatalf("got %q", got)
	}
	if got := SynthesizeGUID("", "", "Title Verbatim"); got != "Title Verbatim" {
		t.Fatalf("got %q", got)
	}
}

func TestCanonicalFlags(t *testing.T) {
	// ASCII 'Z'(90) < 'a'(97), so "zaZ1a!" canonicalizes to "Zaz" (digit and
	// punctuation dropped, duplicate 'a' removed, ascending order).
	got := CanonicalFlags("zaZ1a!")
	want := "Zaz"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestFeedInvariantsAndGuidUniqueness(t *testing.T) {
	f := NewFeed("https://ex/feed.atom")
	f.AddItem(&Item{GUID: "g1", Title: "one"})
	f.AddItem(&Item{GUID: "g1", Title: "one-updated"})
	if len(f.Items()) != 1 {
		t.Fatalf("expected guid uniqueness to collapse duplicate insert, got %d items", len(f.Items()))
	}
	it, ok := f.ItemByGUID("g1")
	if !ok || it.Title != "one-updated" {
		t.Fatalf("expected item_by_guid to resolve updated item")
	}
	if it.FeedURL != f.RSSURL {
		t.Fatalf("item feed_url must equal owning feed rssurl")
	}
}

func TestDisplayTagAndTitleAndHidden(t *testing.T) {
	f := NewFeed("https://ex/feed")
	f.Title = "Raw Title"
	f.Tags = []string{"!hidden", "~Alt Title", "news"}
	if !f.Hidden() {
		t.Fatalf("expected hidden via ! tag")
	}
	if f.DisplayTitle() != "Alt Title" {
		t.Fatalf("expected ~ tag to replace display title, got %q", f.DisplayTitle())
	}
	if f.DisplayTag() != "news" {
		t.Fatalf("expected first non-internal tag as display tag, got %q", f.DisplayTag())
	}
}

func TestUnreadCountInvariant(t *testing.T) {
	f := NewFeed("https://ex/feed")
	f.AddItem(&Item{GUID: "a", Unread: true})
	f.AddItem(&Item{GUID: "b", Unread: false})
	f.AddItem(&Item{GUID: "c", Unread: true})
	if f.UnreadCount() != 2 {
		t.Fatalf("expected 2 unread, got %d", f.UnreadCount())
	}
}

func TestPurgeDeletedItems(t *testing.T) {
	f := NewFeed("https://ex/feed")
	f.AddItem(&Item{GUID: "a"})
	f.AddItem(&Item{GUID: "b", Deleted: true})
	f.PurgeDeletedItems()
	if len(f.Items()) != 1 {
		t.Fatalf("expected 1 item after purge, got %d", len(f.Items()))
	}
	if _, ok := f.ItemByGUID("b"); ok {
		t.Fatalf("deleted item should be removed from guid index")
	}
}

func TestSortByDateAscReindexes(t *testing.T) {
	f := NewFeed("https://ex/feed")
	f.AddItem(&Item{GUID: "a", PubDate: 30})
	f.AddItem(&Item{GUID: "b", PubDate: 10})
	f.AddItem(&Item{GUID: "c", PubDate: 20})
	f.SetSort(SortDate, Asc)
	f.Sort()
	got := []string{f.Items()[0].GUID, f.Items()[1].GUID, f.Items()[2].GUID}
	want := []string{"b", "c", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
	for i, it := range f.Items() {
		if it.Index != i+1 {
			t.Fatalf("expected 1-based ordinal reindex, got %d at pos %d", it.Index, i)
		}
	}
}

func TestModelAddReplaceAndUnreadTotal(t *testing.T) {
	m := New()
	f1 := NewFeed("https://ex/a")
	f1.AddItem(&Item{GUID: "x", Unread: true})
	if !m.AddFeed(f1) {
		t.Fatalf("expected add to succeed")
	}
	if m.AddFeed(NewFeed("https://ex/a")) {
		t.Fatalf("expected duplicate rssurl add to fail")
	}
	f2 := NewFeed("https://ex/b")
	f2.AddItem(&Item{GUID: "y", Unread: true})
	m.AddFeed(f2)
	if m.UnreadCountTotal() != 2 {
		t.Fatalf("expected 2 total unread, got %d", m.UnreadCountTotal())
	}

	replacement := NewFeed("https://ex/a")
	replacement.AddItem(&Item{GUID: "z", Unread: false})
	if !m.ReplaceFeed(replacement) {
		t.Fatalf("expected replace to succeed")
	}
	f, _ := m.FeedByURL("https://ex/a")
	if f != replacement {
		t.Fatalf("expected replaced feed to be returned by url")
	}
}

func TestCleanupURLsDropsInactiveFeeds(t *testing.T) {
	m := New()
	m.AddFeed(NewFeed("https://ex/a"))
	m.AddFeed(NewFeed("https://ex/b"))
	removed := m.CleanupURLs(map[string]bool{"https://ex/a": true})
	if len(removed) != 1 || removed[0] != "https://ex/b" {
		t.Fatalf("expected b removed, got %v", removed)
	}
	if len(m.Feeds()) != 1 {
		t.Fatalf("expected 1 feed remaining")
	}
}
