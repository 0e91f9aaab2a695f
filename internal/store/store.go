// Package store implements the persistent relational layer: an embedded
// SQLite database holding feeds and items, with transactional
// merge-on-update, vacuum, and single-writer serialization.
package store

import (
	"database/sql"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	_ "modernc.org/sqlite"
)

// Config configures pragmas and load behavior.
type Config struct {
	Synchronous string // e.g. "NORMAL", "FULL", "OFF"
	JournalMode string // e.g. "WAL", "TRUNCATE"
	MaxItems    int    // 0 means "all non-deleted items"
}

// Store wraps a single *sql.DB under a mutex, making the single-writer
// contract in spec.md §5 structural rather than just advisory.
type Store struct {
	mu  sync.Mutex
	db  *sql.DB
	cfg Config
	log *logrus.Entry
}

// discardLogger backstops Store.log so call sites never need a nil check.
func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// Open opens path, runs schema migrations, and sets the configured pragmas.
// log receives store-level events (migrations applied, vacuum, cleanup); pass
// nil to discard them.
func Open(path string, cfg Config, log *logrus.Entry) (*Store, error) {
	if log == nil {
		log = discardLogger()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if cfg.Synchronous == "" {
		cfg.Synchronous = "NORMAL"
	}
	if cfg.JournalMode == "" {
		cfg.JournalMode = "WAL"
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA synchronous=%s", cfg.Synchronous)); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: set synchronous: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA journal_mode=%s", cfg.JournalMode)); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: set journal_mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable foreign_keys: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	log.WithField("path", path).Debug("store opened")
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Vacuum reclaims storage.
func (s *Store) Vacuum() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("VACUUM")
	if err != nil {
		s.log.WithError(err).Warn("vacuum failed")
		return err
	}
	s.log.Debug("vacuum completed")
	return nil
}

const schemaVersion = 2

var migrations = []string{
	// v1: base schema
	`CREATE TABLE IF NOT EXISTS rss_feed (
		rssurl TEXT PRIMARY KEY,
		url TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		lastmodified INTEGER NOT NULL DEFAULT 0,
		is_rtl INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS rss_item (
		guid TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		author TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		feedurl TEXT NOT NULL REFERENCES rss_feed(rssurl),
		pubDate INTEGER NOT NULL DEFAULT 0,
		content TEXT NOT NULL DEFAULT '',
		unread INTEGER NOT NULL DEFAULT 1,
		enclosure_url TEXT NOT NULL DEFAULT '',
		enclosure_type TEXT NOT NULL DEFAULT '',
		enqueued INTEGER NOT NULL DEFAULT 0,
		flags TEXT NOT NULL DEFAULT '',
		base TEXT NOT NULL DEFAULT '',
		content_mime_type TEXT NOT NULL DEFAULT '',
		deleted INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_rssitem_feedurl ON rss_item(feedurl);
	CREATE INDEX IF NOT EXISTS idx_rssitem_pubdate ON rss_item(pubDate);
	CREATE INDEX IF NOT EXISTS idx_rssitem_deleted ON rss_item(deleted);
	CREATE INDEX IF NOT EXISTS idx_rssitem_feedurl_pubdate ON rss_item(feedurl, pubDate);`,
	// v2: etag column plus enclosure description fields used by podcast
	// enclosures that carry their own shownotes.
	`ALTER TABLE rss_feed ADD COLUMN etag TEXT NOT NULL DEFAULT '';
	ALTER TABLE rss_item ADD COLUMN enclosure_description TEXT NOT NULL DEFAULT '';
	ALTER TABLE rss_item ADD COLUMN enclosure_description_mime_type TEXT NOT NULL DEFAULT '';`,
}

func (s *Store) migrate() error {
	var current int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return err
	}
	for v := current; v < len(migrations); v++ {
		if _, err := s.db.Exec(migrations[v]); err != nil {
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version=%d", v+1)); err != nil {
			return err
		}
		s.log.WithField("version", v+1).Debug("applied store migration")
	}
	return nil
}
