package store

import (
	"fmt"

	"github.com/mrssilver/feedboat/internal/feedmodel"
)

// ExternalMerge atomically applies a freshly fetched feed's items onto the
// stored rows: existing guids have their mutable fields updated without
// touching unread/flags/deleted/enqueued (universal invariant 6); new guids
// are inserted with unread=true, flags="".
func (s *Store) ExternalMerge(feed *feedmodel.Feed) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		s.log.WithError(err).WithField("feed", feed.RSSURL).Warn("merge: begin transaction failed")
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO rss_feed (rssurl, url, title, lastmodified, is_rtl, etag)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(rssurl) DO UPDATE SET
			url = excluded.url,
			title = excluded.title,
			lastmodified = excluded.lastmodified,
			is_rtl = excluded.is_rtl,
			etag = excluded.etag`,
		feed.RSSURL, feed.URL, feed.Title, feed.LastModified, boolToInt(feed.IsRTL), feed.ETag)
	if err != nil {
		return fmt.Errorf("upsert feed: %w", err)
	}

	for _, it := range feed.Items() {
		var count int
		if err := tx.QueryRow(`SELECT COUNT(1) FROM rss_item WHERE guid = ? AND feedurl = ?`, it.GUID, feed.RSSURL).Scan(&count); err != nil {
			return fmt.Errorf("check existing item %s: %w", it.GUID, err)
		}
		if count > 0 {
			_, err := tx.Exec(`UPDATE rss_item SET title = ?, author = ?, url = ?, pubDate = ?,
				content = ?, enclosure_url = ?, enclosure_type = ?, base = ?, content_mime_type = ?,
				enclosure_description = ?, enclosure_description_mime_type = ?
				WHERE guid = ? AND feedurl = ?`,
				it.Title, it.Author, it.Link, it.PubDate, it.Description, it.EnclosureURL,
				it.EnclosureType, it.Base, it.ContentMimeType, "", "", it.GUID, feed.RSSURL)
			if err != nil {
				return fmt.Errorf("update item %s: %w", it.GUID, err)
			}
			continue
		}
		_, err := tx.Exec(`INSERT INTO rss_item (guid, title, author, url, feedurl, pubDate, content,
			unread, enclosure_url, enclosure_type, enqueued, flags, base, content_mime_type, deleted)
			VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?, 0, '', ?, ?, 0)`,
			it.GUID, it.Title, it.Author, it.Link, feed.RSSURL, it.PubDate, it.Description,
			it.EnclosureURL, it.EnclosureType, it.Base, it.ContentMimeType)
		if err != nil {
			return fmt.Errorf("insert item %s: %w", it.GUID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		s.log.WithError(err).WithField("feed", feed.RSSURL).Warn("merge: commit failed")
		return err
	}
	s.log.WithField("feed", feed.RSSURL).WithField("items", len(feed.Items())).Debug("merged feed into store")
	return nil
}
