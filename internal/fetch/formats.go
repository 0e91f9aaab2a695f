package fetch

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/mrssilver/feedboat/internal/feedmodel"
)

var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	time.RFC3339Nano,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

func parsePubDate(s string) int64 {
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Unix()
		}
	}
	return 0
}

// --- RSS 2.0 ---

type rss2Doc struct {
	XMLName xml.Name    `xml:"rss"`
	Channel rss2Channel `xml:"channel"`
}

type rss2Channel struct {
	Title       string     `xml:"title"`
	Link        string     `xml:"link"`
	Description string     `xml:"description"`
	Items       []rss2Item `xml:"item"`
}

type rss2Item struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	Description string `xml:"description"`
	Content     string `xml:"http://purl.org/rss/1.0/modules/content/ encoded"`
	Author      string `xml:"author"`
	Creator     string `xml:"http://purl.org/dc/elements/1.1/ creator"`
	PubDate     string `xml:"pubDate"`
	Date        string `xml:"http://purl.org/dc/elements/1.1/ date"`
	Enclosure   struct {
		URL    string `xml:"url,attr"`
		Type   string `xml:"type,attr"`
		Length int64  `xml:"length,attr"`
	} `xml:"enclosure"`
}

func parseRSS2(data []byte, sourceURL string) (*feedmodel.Feed, error) {
	var doc rss2Doc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode rss2: %w", err)
	}
	f := feedmodel.NewFeed(sourceURL)
	f.Title = unescapeClean(doc.Channel.Title)
	f.Link = doc.Channel.Link
	f.Description = unescapeClean(doc.Channel.Description)

	items := make([]*feedmodel.Item, 0, len(doc.Channel.Items))
	for _, ri := range doc.Channel.Items {
		author := ri.Author
		if author == "" {
			author = ri.Creator
		}
		pubDateStr := ri.PubDate
		if pubDateStr == "" {
			pubDateStr = ri.Date
		}
		pubDate := parsePubDate(pubDateStr)
		link := ri.Link
		title := unescapeClean(ri.Title)
		guid := ri.GUID
		if guid == "" {
			guid = feedmodel.SynthesizeGUID(link, pubDateStr, title)
		}
		desc := ri.Content
		if desc == "" {
			desc = ri.Description
		}
		items = append(items, &feedmodel.Item{
			GUID:            guid,
			Title:           title,
			Link:            link,
			Author:          unescapeClean(author),
			Description:     desc,
			ContentMimeType: "text/html",
			EnclosureURL:    ri.Enclosure.URL,
			EnclosureType:   ri.Enclosure.Type,
			EnclosureLength: ri.Enclosure.Length,
			PubDate:         pubDate,
			Unread:          true,
		})
	}
	f.ReplaceItems(items)
	return f, nil
}

// --- RDF (RSS 1.0) ---

type rdfDoc struct {
	XMLName xml.Name `xml:"RDF"`
	Channel struct {
		Title       string `xml:"title"`
		Link        string `xml:"link"`
		Description string `xml:"description"`
	} `xml:"channel"`
	Items []rdfItem `xml:"item"`
}

type rdfItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Content     string `xml:"http://purl.org/rss/1.0/modules/content/ encoded"`
	Creator     string `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Date        string `xml:"http://purl.org/dc/elements/1.1/ date"`
}

func parseRDF(data []byte, sourceURL string) (*feedmodel.Feed, error) {
	var doc rdfDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode rdf: %w", err)
	}
	f := feedmodel.NewFeed(sourceURL)
	f.Title = unescapeClean(doc.Channel.Title)
	f.Link = doc.Channel.Link
	f.Description = unescapeClean(doc.Channel.Description)

	items := make([]*feedmodel.Item, 0, len(doc.Items))
	for _, ri := range doc.Items {
		pubDate := parsePubDate(ri.Date)
		title := unescapeClean(ri.Title)
		guid := feedmodel.SynthesizeGUID(ri.Link, ri.Date, title)
		desc := ri.Content
		if desc == "" {
			desc = ri.Description
		}
		items = append(items, &feedmodel.Item{
			GUID:            guid,
			Title:           title,
			Link:            ri.Link,
			Author:          unescapeClean(ri.Creator),
			Description:     desc,
			ContentMimeType: "text/html",
			PubDate:         pubDate,
			Unread:          true,
		})
	}
	f.ReplaceItems(items)
	return f, nil
}

// --- Atom ---

type atomDoc struct {
	XMLName xml.Name    `xml:"feed"`
	Title   string      `xml:"title"`
	Links   []atomLink  `xml:"link"`
	Entries []atomEntry `xml:"entry"`
}

type atomLink struct {
	Href   string `xml:"href,attr"`
	Rel    string `xml:"rel,attr"`
	Type   string `xml:"type,attr"`
	Length int64  `xml:"length,attr"`
}

type atomEntry struct {
	Title     string     `xml:"title"`
	ID        string     `xml:"id"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
	Summary   string     `xml:"summary"`
	Content   atomContent `xml:"content"`
	Links     []atomLink `xml:"link"`
	Author    struct {
		Name string `xml:"name"`
	} `xml:"author"`
}

type atomContent struct {
	Type string `xml:"type,attr"`
	Body string `xml:",chardata"`
}

func atomEntryLink(links []atomLink) string {
	for _, l := range links {
		if l.Rel == "" || l.Rel == "alternate" {
			return l.Href
		}
	}
	if len(links) > 0 {
		return links[0].Href
	}
	return ""
}

func atomEntryEnclosure(links []atomLink) (url, typ string, length int64) {
	for _, l := range links {
		if l.Rel == "enclosure" {
			return l.Href, l.Type, l.Length
		}
	}
	return "", "", 0
}

func parseAtom(data []byte, sourceURL string) (*feedmodel.Feed, error) {
	var doc atomDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode atom: %w", err)
	}
	f := feedmodel.NewFeed(sourceURL)
	f.Title = unescapeClean(doc.Title)
	f.Link = atomEntryLink(doc.Links)

	items := make([]*feedmodel.Item, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		pubDateStr := e.Published
		if pubDateStr == "" {
			pubDateStr = e.Updated
		}
		pubDate := parsePubDate(pubDateStr)
		link := atomEntryLink(e.Links)
		title := unescapeClean(e.Title)
		guid := e.ID
		if guid == "" {
			guid = feedmodel.SynthesizeGUID(link, pubDateStr, title)
		}
		desc := e.Content.Body
		mime := "text/html"
		if desc == "" {
			desc = e.Summary
		}
		if e.Content.Type == "text" {
			mime = "text/plain"
		}
		encURL, encType, encLen := atomEntryEnclosure(e.Links)
		items = append(items, &feedmodel.Item{
			GUID:            guid,
			Title:           title,
			Link:            link,
			Author:          unescapeClean(e.Author.Name),
			Description:     desc,
			ContentMimeType: mime,
			EnclosureURL:    encURL,
			EnclosureType:   encType,
			EnclosureLength: encLen,
			PubDate:         pubDate,
			Unread:          true,
		})
	}
	f.ReplaceItems(items)
	return f, nil
}
