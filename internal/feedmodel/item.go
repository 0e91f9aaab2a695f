// Package feedmodel holds the in-memory feed/item model: lifecycle,
// ordering, tag/flag/unread invariants, and the guid index.
package feedmodel

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Item is one article. Its identity is GUID.
type Item struct {
	GUID     string
	Title    string
	Link     string
	Author   string

	Description     string
	ContentMimeType string

	EnclosureURL    string
	EnclosureType   string
	EnclosureLength int64

	PubDate int64 // unix seconds

	Flags    string // sorted, unique, alphabetic
	OldFlags string // most recently persisted flag set

	FeedURL string
	Base    string

	Unread         bool
	Enqueued       bool
	Deleted        bool
	OverrideUnread bool

	Index int // 1-based ordinal within its owning feed

	// Feed is a weak back-reference to the owning Feed. It must never be the
	// reason a Feed stays alive; only the owning Feed (or a QueryFeed, which
	// points it back at the *original* owner) sets it.
	Feed *Feed
}

// SynthesizeGUID implements the deterministic guid fallback from spec.md
// scenario 1: link+pubDate, else link, else title.
func SynthesizeGUID(link, pubDateRFC3339ish, title string) string {
	if link != "" && pubDateRFC3339ish != "" {
		return link + pubDateRFC3339ish
	}
	if link != "" {
		return link
	}
	return title
}

// SetFlags canonicalizes s into the sorted, unique, ASCII-alphabetic flag
// form, recording the previous value in OldFlags for the external-hook delta.
func (it *Item) SetFlags(s string) {
	it.OldFlags = it.Flags
	it.Flags = CanonicalFlags(s)
}

// CanonicalFlags keeps only ASCII letters, deduplicates preserving
// first-seen order, then sorts ascending.
func CanonicalFlags(s string) string {
	seen := make(map[rune]bool, len(s))
	var kept []rune
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			continue
		}
		if seen[r] {
			continue
		}
		seen[r] = true
		kept = append(kept, r)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i] < kept[j] })
	return string(kept)
}

// AgeDays returns days elapsed since PubDate, relative to now.
func (it *Item) AgeDays(now time.Time) int64 {
	if it.PubDate == 0 {
		return 0
	}
	d := now.Unix() - it.PubDate
	if d < 0 {
		return 0
	}
	return d / 86400
}

// AttributeValue implements match.Attributed.
func (it *Item) AttributeValue(name string) (string, bool) {
	switch name {
	case "title":
		return it.Title, true
	case "link":
		return it.Link, true
	case "author":
		return it.Author, true
	case "content", "description":
		return it.Description, true
	case "guid":
		return it.GUID, true
	case "feedurl":
		return it.FeedURL, true
	case "feed", "feedtitle":
		if it.Feed != nil {
			return it.Feed.DisplayTitle(), true
		}
		return "", false
	case "tags":
		if it.Feed != nil {
			return strings.Join(it.Feed.Tags, " "), true
		}
		return "", false
	case "unread":
		if it.Unread {
			return "yes", true
		}
		return "no", true
	case "deleted":
		if it.Deleted {
			return "yes", true
		}
		return "no", true
	case "enqueued":
		if it.Enqueued {
			return "yes", true
		}
		return "no", true
	case "flags":
		return it.Flags, true
	case "age":
		return strconv.FormatInt(it.AgeDays(time.Now()), 10), true
	case "pubdate":
		return strconv.FormatInt(it.PubDate, 10), true
	case "enclosure_url":
		return it.EnclosureURL, true
	case "enclosure_type":
		return it.EnclosureType, true
	default:
		return "", false
	}
}
