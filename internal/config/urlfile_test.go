package config

import (
	"strings"
	"testing"
)

func TestLoadURLFileSkipsCommentsAndBlanks(t *testing.T) {
	text := "# a comment\n\nhttps://ex/1 tech golang\nhttps://ex/2\n"
	entries, err := LoadURLFile(strings.NewReader(text))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].URL != "https://ex/1" || len(entries[0].Tags) != 2 {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].URL != "https://ex/2" || len(entries[1].Tags) != 0 {
		t.Fatalf("unexpected second entry %+v", entries[1])
	}
}
