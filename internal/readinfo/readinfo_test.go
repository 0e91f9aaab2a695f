package readinfo

import (
	"strings"
	"testing"

	"github.com/mrssilver/feedboat/internal/feedmodel"
)

type fakeStore struct {
	unreadCalls int
	flagCalls   int
}

func (s *fakeStore) UpdateUnreadAndEnqueued(it *feedmodel.Item, feedurl string) error {
	s.unreadCalls++
	return nil
}

func (s *fakeStore) UpdateFlags(it *feedmodel.Item) error {
	s.flagCalls++
	return nil
}

func TestExportFormatsOneLinePerItem(t *testing.T) {
	f := feedmodel.NewFeed("https://ex/1")
	f.AddItem(&feedmodel.Item{GUID: "a", Unread: true, Flags: "AZ"})
	f.AddItem(&feedmodel.Item{GUID: "b", Unread: false})

	var sb strings.Builder
	if err := Export(&sb, []*feedmodel.Feed{f}); err != nil {
		t.Fatalf("export: %v", err)
	}
	want := "a T AZ\nb F \n"
	if sb.String() != want {
		t.Fatalf("expected %q, got %q", want, sb.String())
	}
}

func TestParseRoundTripsExportFormat(t *testing.T) {
	lines, err := Parse(strings.NewReader("a T AZ\nb F \n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].GUID != "a" || !lines[0].Unread || lines[0].Flags != "AZ" {
		t.Fatalf("unexpected first line %+v", lines[0])
	}
	if lines[1].GUID != "b" || lines[1].Unread {
		t.Fatalf("unexpected second line %+v", lines[1])
	}
}

func TestApplySkipsUnknownGuids(t *testing.T) {
	f := feedmodel.NewFeed("https://ex/1")
	it := &feedmodel.Item{GUID: "known", Unread: true}
	f.AddItem(it)

	store := &fakeStore{}
	n, err := Apply([]Line{
		{GUID: "known", Unread: false, Flags: "Z"},
		{GUID: "unknown", Unread: true},
	}, []*feedmodel.Feed{f}, store)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 applied, got %d", n)
	}
	if it.Unread {
		t.Fatalf("expected known item marked read")
	}
	if it.Flags != "Z" {
		t.Fatalf("expected flags applied, got %q", it.Flags)
	}
	if store.unreadCalls != 1 || store.flagCalls != 1 {
		t.Fatalf("expected exactly one store write per field, got unread=%d flags=%d", store.unreadCalls, store.flagCalls)
	}
}
