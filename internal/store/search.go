package store

import (
	"fmt"

	"github.com/mrssilver/feedboat/internal/feedmodel"
)

// Search performs a case-insensitive substring search over title and
// description, newest-first, optionally constrained to one feed.
func (s *Store) Search(query string, feedurl string) ([]*feedmodel.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	like := "%" + query + "%"
	sqlQuery := `SELECT guid, title, author, url, feedurl, pubDate, content, unread,
		enclosure_url, enclosure_type, enqueued, flags, base, content_mime_type, deleted
		FROM rss_item
		WHERE (LOWER(title) LIKE LOWER(?) OR LOWER(content) LIKE LOWER(?))`
	args := []interface{}{like, like}
	if feedurl != "" {
		sqlQuery += " AND feedurl = ?"
		args = append(args, feedurl)
	}
	sqlQuery += " ORDER BY pubDate DESC, guid DESC"

	rows, err := s.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var out []*feedmodel.Item
	for rows.Next() {
		it := &feedmodel.Item{}
		var unread, enqueued, deleted int
		if err := rows.Scan(&it.GUID, &it.Title, &it.Author, &it.Link, &it.FeedURL, &it.PubDate,
			&it.Description, &unread, &it.EnclosureURL, &it.EnclosureType, &enqueued, &it.Flags,
			&it.Base, &it.ContentMimeType, &deleted); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		it.Unread = unread != 0
		it.Enqueued = enqueued != 0
		it.Deleted = deleted != 0
		out = append(out, it)
	}
	return out, rows.Err()
}
