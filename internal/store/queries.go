package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mrssilver/feedboat/internal/feedmodel"
)

// LoadFeeds loads a feed row plus its items for every URL in order. If
// MaxItems>0 only the N newest items (pubDate desc, guid desc tiebreak) are
// loaded; otherwise every non-deleted item is loaded.
func (s *Store) LoadFeeds(urls []string) ([]*feedmodel.Feed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*feedmodel.Feed, 0, len(urls))
	for _, url := range urls {
		f := feedmodel.NewFeed(url)

		row := s.db.QueryRow(`SELECT url, title, lastmodified, is_rtl, etag FROM rss_feed WHERE rssurl = ?`, url)
		var feedURL, title, etag string
		var lastmod int64
		var isRTL int
		if err := row.Scan(&feedURL, &title, &lastmod, &isRTL, &etag); err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("load feed %s: %w", url, err)
			}
			// Feed not yet persisted: still return the (empty) feed so the
			// caller can merge in freshly fetched content.
		} else {
			f.URL = feedURL
			f.Title = title
			f.LastModified = lastmod
			f.IsRTL = isRTL != 0
			f.ETag = etag
		}

		items, err := s.loadItems(url, s.cfg.MaxItems)
		if err != nil {
			return nil, err
		}
		f.ReplaceItems(items)
		out = append(out, f)
	}
	return out, nil
}

func (s *Store) loadItems(feedurl string, maxItems int) ([]*feedmodel.Item, error) {
	var rows *sql.Rows
	var err error
	if maxItems > 0 {
		rows, err = s.db.Query(`SELECT guid, title, author, url, pubDate, content, unread,
			enclosure_url, enclosure_type, enqueued, flags, base, content_mime_type,
			enclosure_description, enclosure_description_mime_type, deleted
			FROM rss_item WHERE feedurl = ? AND deleted = 0
			ORDER BY pubDate DESC, guid DESC LIMIT ?`, feedurl, maxItems)
	} else {
		rows, err = s.db.Query(`SELECT guid, title, author, url, pubDate, content, unread,
			enclosure_url, enclosure_type, enqueued, flags, base, content_mime_type,
			enclosure_description, enclosure_description_mime_type, deleted
			FROM rss_item WHERE feedurl = ? AND deleted = 0
			ORDER BY pubDate DESC, guid DESC`, feedurl)
	}
	if err != nil {
		return nil, fmt.Errorf("load items for %s: %w", feedurl, err)
	}
	defer rows.Close()

	var items []*feedmodel.Item
	for rows.Next() {
		it := &feedmodel.Item{FeedURL: feedurl}
		var unread, enqueued, deleted int
		var encDesc, encDescMime string
		if err := rows.Scan(&it.GUID, &it.Title, &it.Author, &it.Link, &it.PubDate, &it.Description,
			&unread, &it.EnclosureURL, &it.EnclosureType, &enqueued, &it.Flags, &it.Base,
			&it.ContentMimeType, &encDesc, &encDescMime, &deleted); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		it.Unread = unread != 0
		it.Enqueued = enqueued != 0
		it.Deleted = deleted != 0
		it.OldFlags = it.Flags
		items = append(items, it)
	}
	return items, rows.Err()
}

// MarkItemRead sets unread=!read for a single guid.
func (s *Store) MarkItemRead(guid string, read bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE rss_item SET unread = ? WHERE guid = ?`, boolToInt(!read), guid)
	return err
}

// MarkItemsReadByGUID marks a batch of guids read in one transaction, one
// prepared UPDATE per guid.
func (s *Store) MarkItemsReadByGUID(guids []string) error {
	if len(guids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`UPDATE rss_item SET unread = 0 WHERE guid = ?`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, g := range guids {
		if _, err := stmt.Exec(g); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// MarkAllRead marks every item of feedurl read.
func (s *Store) MarkAllRead(feedurl string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE rss_item SET unread = 0 WHERE feedurl = ?`, feedurl)
	return err
}

// UpdateFlags persists it.Flags. it.OldFlags is not written: the schema has
// no column for it, and loadItems sets OldFlags to the stored flags.
func (s *Store) UpdateFlags(it *feedmodel.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE rss_item SET flags = ? WHERE guid = ?`, it.Flags, it.GUID)
	return err
}

// MarkItemDeleted sets the soft-delete flag.
func (s *Store) MarkItemDeleted(guid string, deleted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE rss_item SET deleted = ? WHERE guid = ?`, boolToInt(deleted), guid)
	return err
}

// UpdateUnreadAndEnqueued writes both fields for one item in its feed.
func (s *Store) UpdateUnreadAndEnqueued(it *feedmodel.Item, feedurl string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE rss_item SET unread = ?, enqueued = ? WHERE guid = ? AND feedurl = ?`,
		boolToInt(it.Unread), boolToInt(it.Enqueued), it.GUID, feedurl)
	return err
}

// FetchDescription lazily loads the (potentially large) description blob.
func (s *Store) FetchDescription(guid string) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var content, mime string
	err := s.db.QueryRow(`SELECT content, content_mime_type FROM rss_item WHERE guid = ?`, guid).Scan(&content, &mime)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", nil
	}
	return content, mime, err
}

// PurgeDeletedItems permanently removes rows marked deleted.
func (s *Store) PurgeDeletedItems() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM rss_item WHERE deleted = 1`)
	return err
}

// CleanupCache deletes items and feeds whose rssurl isn't in active,
// honoring deleteReadOnQuit (drop read, non-deleted items from the active
// set too) and cleanupOnQuit (the removal of inactive feeds at all).
func (s *Store) CleanupCache(active []string, deleteReadOnQuit, cleanupOnQuit bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		s.log.WithError(err).Warn("cleanup: begin transaction failed")
		return err
	}
	defer tx.Rollback()

	if cleanupOnQuit {
		placeholders, args := inClause(active)
		if len(active) == 0 {
			if _, err := tx.Exec(`DELETE FROM rss_item`); err != nil {
				return err
			}
			if _, err := tx.Exec(`DELETE FROM rss_feed`); err != nil {
				return err
			}
		} else {
			if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM rss_item WHERE feedurl NOT IN (%s)`, placeholders), args...); err != nil {
				return err
			}
			if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM rss_feed WHERE rssurl NOT IN (%s)`, placeholders), args...); err != nil {
				return err
			}
		}
	}

	if deleteReadOnQuit {
		if _, err := tx.Exec(`DELETE FROM rss_item WHERE unread = 0 AND deleted = 0`); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		s.log.WithError(err).Warn("cleanup: commit failed")
		return err
	}
	s.log.WithField("active_feeds", len(active)).Debug("cleanup completed")
	return nil
}

func inClause(values []string) (string, []interface{}) {
	ph := ""
	args := make([]interface{}, len(values))
	for i, v := range values {
		if i > 0 {
			ph += ","
		}
		ph += "?"
		args[i] = v
	}
	return ph, args
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
