// Package readinfo imports and exports per-guid read/flag state, the
// `-I`/`-E` flag pair (spec.md §6, SPEC_FULL.md §4.12).
package readinfo

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/mrssilver/feedboat/internal/feedmodel"
)

// Exporter is the narrowed Store dependency read-state import needs to
// persist applied changes.
type Exporter interface {
	UpdateUnreadAndEnqueued(it *feedmodel.Item, feedurl string) error
	UpdateFlags(it *feedmodel.Item) error
}

// Export writes one line per item across every loaded feed:
// `<guid> <unread-flag-char> <flags>`, where the flag char is 'T' for
// unread and 'F' for read.
func Export(w io.Writer, feeds []*feedmodel.Feed) error {
	bw := bufio.NewWriter(w)
	for _, f := range feeds {
		if f.IsQueryFeed() {
			continue
		}
		for _, it := range f.Items() {
			unreadChar := "F"
			if it.Unread {
				unreadChar = "T"
			}
			if _, err := fmt.Fprintf(bw, "%s %s %s\n", it.GUID, unreadChar, it.Flags); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// Line is one parsed `-I` import record.
type Line struct {
	GUID   string
	Unread bool
	Flags  string
}

// Parse reads the `<guid> <unread-flag-char> <flags>` format back.
func Parse(r io.Reader) ([]Line, error) {
	var out []Line
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r\n")
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 3)
		if len(parts) < 2 {
			continue // malformed line, skip rather than abort the whole import
		}
		flags := ""
		if len(parts) == 3 {
			flags = parts[2]
		}
		out = append(out, Line{
			GUID:   parts[0],
			Unread: parts[1] == "T",
			Flags:  feedmodel.CanonicalFlags(flags),
		})
	}
	return out, sc.Err()
}

// Apply applies imported lines to the feed set's items, skipping guids not
// found in any loaded feed (spec.md §4.12). Returns the count applied.
func Apply(lines []Line, feeds []*feedmodel.Feed, store Exporter) (int, error) {
	byGUID := make(map[string]*feedmodel.Item)
	for _, f := range feeds {
		if f.IsQueryFeed() {
			continue
		}
		for _, it := range f.Items() {
			byGUID[it.GUID] = it
		}
	}
	applied := 0
	for _, ln := range lines {
		it, ok := byGUID[ln.GUID]
		if !ok {
			continue
		}
		it.Unread = ln.Unread
		it.SetFlags(ln.Flags)
		if it.Feed != nil {
			if err := store.UpdateUnreadAndEnqueued(it, it.Feed.RSSURL); err != nil {
				return applied, fmt.Errorf("apply read-info for %s: %w", ln.GUID, err)
			}
		}
		if err := store.UpdateFlags(it); err != nil {
			return applied, fmt.Errorf("apply flags for %s: %w", ln.GUID, err)
		}
		applied++
	}
	return applied, nil
}
