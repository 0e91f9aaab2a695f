package opml

import (
	"testing"

	"github.com/mrssilver/feedboat/internal/feedmodel"
)

func TestExportImportRoundTripPreservesOrder(t *testing.T) {
	f1 := feedmodel.NewFeed("https://ex/1")
	f1.Title = "Feed One"
	f2 := feedmodel.NewFeed("https://ex/2")
	f2.Title = "Feed Two"
	qf := feedmodel.NewFeed("query:q:unread = \"yes\"")

	data, err := Export([]*feedmodel.Feed{f1, f2, qf}, "2.0")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	got, err := Import(data)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 feeds (query feed excluded), got %d: %+v", len(got), got)
	}
	if got[0].URL != "https://ex/1" || got[1].URL != "https://ex/2" {
		t.Fatalf("expected order preserved, got %+v", got)
	}
}

func TestImportFlattensNestedFolders(t *testing.T) {
	doc := []byte(`<?xml version="1.0"?>
<opml version="1.0">
  <head><title>x</title></head>
  <body>
    <outline text="Tech">
      <outline text="Blog" xmlUrl="https://ex/a"/>
      <outline text="News">
        <outline text="Site" xmlUrl="https://ex/b"/>
      </outline>
    </outline>
  </body>
</opml>`)
	got, err := Import(doc)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(got) != 2 || got[0].URL != "https://ex/a" || got[1].URL != "https://ex/b" {
		t.Fatalf("expected flattened nested feeds in document order, got %+v", got)
	}
}

func TestImportDropsDuplicateURLs(t *testing.T) {
	doc := []byte(`<?xml version="1.0"?>
<opml version="1.0"><body>
  <outline text="a" xmlUrl="https://ex/dup"/>
  <outline text="b" xmlUrl="https://ex/dup"/>
</body></opml>`)
	got, err := Import(doc)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected duplicates dropped, got %+v", got)
	}
}
