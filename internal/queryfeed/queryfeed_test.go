package queryfeed

import (
	"testing"
	"time"

	"github.com/mrssilver/feedboat/internal/feedmodel"
)

func TestQueryFeedMaterializesMatches(t *testing.T) {
	// Scenario 6 from spec.md §8.
	now := time.Now().Unix()
	day := int64(86400)

	f1 := feedmodel.NewFeed("https://ex/1")
	f1.AddItem(&feedmodel.Item{GUID: "a", Unread: true, PubDate: now - 1*day})  // matches
	f1.AddItem(&feedmodel.Item{GUID: "b", Unread: false, PubDate: now - 1*day}) // read, excluded

	f2 := feedmodel.NewFeed("https://ex/2")
	f2.AddItem(&feedmodel.Item{GUID: "c", Unread: true, PubDate: now - 30*day}) // too old

	f3 := feedmodel.NewFeed("https://ex/3")
	f3.AddItem(&feedmodel.Item{GUID: "d", Unread: true, PubDate: now - 2*day}) // matches

	f4 := feedmodel.NewFeed("https://ex/4")
	f4.AddItem(&feedmodel.Item{GUID: "e", Unread: false, PubDate: now})
	f4.AddItem(&feedmodel.Item{GUID: "f", Unread: true, PubDate: now - 100*day})

	qf, err := New(`query:Recent:unread = "yes" and age between 0:7`)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	if err := qf.UpdateItems([]*feedmodel.Feed{f1, f2, f3, f4}, feedmodel.SortDate, feedmodel.Asc); err != nil {
		t.Fatalf("update: %v", err)
	}
	items := qf.Feed.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 matched items, got %d", len(items))
	}
	guids := map[string]bool{items[0].GUID: true, items[1].GUID: true}
	if !guids["a"] || !guids["d"] {
		t.Fatalf("expected a and d to match, got %v", guids)
	}
	for _, it := range items {
		if it.Feed == qf.Feed {
			t.Fatalf("matched item's Feed back-reference must point at the original owner, not the query feed")
		}
	}
}

func TestConstructionFailsOnTooFewParts(t *testing.T) {
	if _, err := New("query:onlyonecolon"); err == nil {
		t.Fatalf("expected failure for fewer than three colon-separated parts")
	}
}

func TestConstructionFailsOnBadExpression(t *testing.T) {
	if _, err := New("query:Title:not a valid expr"); err == nil {
		t.Fatalf("expected failure for unparsable expression")
	}
}

func TestExpressionWithColonInRangeSurvivesTokenization(t *testing.T) {
	qf, err := New(`query:My Unread:unread = "yes" and age between 0:7`)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	if qf.Title != "My Unread" {
		t.Fatalf("expected title 'My Unread', got %q", qf.Title)
	}
	if qf.Expr.GetExpression() != `unread = "yes" and age between 0:7` {
		t.Fatalf("expected full remainder as expression, got %q", qf.Expr.GetExpression())
	}
}
