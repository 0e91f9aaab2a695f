// Package opml imports and exports the feed URL list as OPML 1.0/2.0 XML
// (spec.md §6, SPEC_FULL.md §4.11).
package opml

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/mrssilver/feedboat/internal/feedmodel"
)

type document struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    head     `xml:"head"`
	Body    body     `xml:"body"`
}

type head struct {
	Title       string `xml:"title,omitempty"`
	DateCreated string `xml:"dateCreated,omitempty"`
}

type body struct {
	Outlines []outline `xml:"outline"`
}

type outline struct {
	Text     string    `xml:"text,attr"`
	Title    string    `xml:"title,attr,omitempty"`
	Type     string    `xml:"type,attr,omitempty"`
	XMLURL   string    `xml:"xmlUrl,attr,omitempty"`
	Outlines []outline `xml:"outline,omitempty"`
}

// Export serializes feeds as an OPML document. version is "1.0" or "2.0";
// the body shape is identical, only the version attribute differs, matching
// the `-e`/`--export-to-opml2` distinction in spec.md §6.
func Export(feeds []*feedmodel.Feed, version string) ([]byte, error) {
	doc := document{
		Version: version,
		Head: head{
			Title:       "feedboat - Exported Feeds",
			DateCreated: time.Now().UTC().Format(time.RFC1123),
		},
		Body: body{Outlines: make([]outline, 0, len(feeds))},
	}
	for _, f := range feeds {
		if f.IsQueryFeed() {
			continue
		}
		title := f.DisplayTitle()
		doc.Body.Outlines = append(doc.Body.Outlines, outline{
			Text:   title,
			Title:  title,
			Type:   "rss",
			XMLURL: f.RSSURL,
		})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal opml: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// ImportedFeed is one URL entry recovered from an OPML document.
type ImportedFeed struct {
	Title string
	URL   string
}

// Import parses data and flattens every nested `<outline xmlUrl="...">`
// (folders included) into a deduplicated, order-preserving URL list.
func Import(data []byte) ([]ImportedFeed, error) {
	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse opml: %w", err)
	}
	var out []ImportedFeed
	seen := make(map[string]bool)
	collect(doc.Body.Outlines, &out, seen)
	return out, nil
}

func collect(outlines []outline, out *[]ImportedFeed, seen map[string]bool) {
	for _, o := range outlines {
		url := strings.TrimSpace(o.XMLURL)
		if url != "" && !seen[url] {
			seen[url] = true
			title := o.Title
			if title == "" {
				title = o.Text
			}
			*out = append(*out, ImportedFeed{Title: title, URL: url})
		}
		if len(o.Outlines) > 0 {
			collect(o.Outlines, out, seen)
		}
	}
}
