// Package reloader drives concurrent feed refreshes: pool-based and
// range-based entry points, conditional-GET coordination with the fetch
// collaborator, ignore-rule application, and store merge (spec.md §4.5).
package reloader

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mrssilver/feedboat/internal/feedmodel"
	"github.com/mrssilver/feedboat/internal/fetch"
	"github.com/mrssilver/feedboat/internal/ignores"
)

// StatusReporter receives per-feed and per-cycle progress; the interactive
// shell implements it to drive a status line (spec.md §10, peripheral).
type StatusReporter interface {
	FeedStatusChanged(f *feedmodel.Feed)
	ReloadError(rssurl string, err error)
	CycleFinished(newUnread int)
}

// Merger is the subset of Store the Reloader needs; narrowed so tests can
// substitute a fake.
type Merger interface {
	ExternalMerge(feed *feedmodel.Feed) error
}

// Config carries the hook program strings and tuning knobs the Reloader
// consumes from the parsed configuration.
type Config struct {
	ReloadThreads   int
	NotifyAlways    bool
	NotifyProgram   string
	PreReloadHook   string
	PostReloadHook  string
}

// Reloader owns the reload-guard and wires the fetch/ignores/store
// collaborators together.
type Reloader struct {
	fetcher fetch.Fetcher
	store   Merger
	ignores *ignores.Ignores
	status  StatusReporter
	cfg     Config
	log     *logrus.Entry

	running int32 // atomic: 1 while a reload cycle is in flight
}

// discardLogger backstops Reloader.log so call sites never need a nil check.
func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// New builds a Reloader. status may be nil to discard progress callbacks; log
// may be nil to discard log entries.
func New(fetcher fetch.Fetcher, st Merger, ig *ignores.Ignores, status StatusReporter, cfg Config, log *logrus.Entry) *Reloader {
	if ig == nil {
		ig = ignores.New()
	}
	if log == nil {
		log = discardLogger()
	}
	return &Reloader{fetcher: fetcher, store: st, ignores: ig, status: status, cfg: cfg, log: log}
}

// ReloadAll partitions feeds into min(ReloadThreads, len(feeds)) equal
// ranges and reloads each range on its own worker. A second concurrent call
// is a no-op: the reload-guard makes the first invocation's caller the only
// one that runs a cycle at a time.
func (r *Reloader) ReloadAll(ctx context.Context, feeds []*feedmodel.Feed, unattended bool) error {
	if !atomic.CompareAndSwapInt32(&r.running, 0, 1) {
		return nil
	}
	defer atomic.StoreInt32(&r.running, 0)

	n := r.cfg.ReloadThreads
	if n <= 0 {
		n = 1
	}
	if n > len(feeds) {
		n = len(feeds)
	}
	if n == 0 {
		return nil
	}

	// A plain errgroup.Group, not errgroup.WithContext: each range must run
	// every one of its own feeds to completion even if a sibling range's
	// feed errors (spec.md §7 — per-feed errors don't poison a cycle).
	// WithContext's shared derived context would cancel every other range
	// the instant one goroutine returns an error, which is exactly the
	// poisoning this is meant to avoid.
	group := new(errgroup.Group)
	chunk := (len(feeds) + n - 1) / n
	var newUnread int32
	for i := 0; i < len(feeds); i += chunk {
		end := i + chunk
		if end > len(feeds) {
			end = len(feeds)
		}
		start, stop := i, end
		group.Go(func() error {
			gained, err := r.reloadRangeNoGuard(ctx, feeds, start, stop, unattended)
			atomic.AddInt32(&newUnread, int32(gained))
			return err
		})
	}
	err := group.Wait()
	if r.status != nil {
		r.status.CycleFinished(int(newUnread))
	}
	r.notifyIfDue(int(newUnread))
	return err
}

// ReloadRange reloads the inclusive-start/exclusive-end range [start, end)
// of feeds serially, honoring the same reload-guard as ReloadAll.
func (r *Reloader) ReloadRange(ctx context.Context, feeds []*feedmodel.Feed, start, end int, unattended bool) error {
	if !atomic.CompareAndSwapInt32(&r.running, 0, 1) {
		return nil
	}
	defer atomic.StoreInt32(&r.running, 0)

	gained, err := r.reloadRangeNoGuard(ctx, feeds, start, end, unattended)
	if r.status != nil {
		r.status.CycleFinished(gained)
	}
	r.notifyIfDue(gained)
	return err
}

func (r *Reloader) notifyIfDue(newUnread int) {
	if r.cfg.NotifyProgram == "" {
		return
	}
	if !r.cfg.NotifyAlways && newUnread == 0 {
		return
	}
	msg := fmt.Sprintf("%d new articles", newUnread)
	runHook(r.cfg.NotifyProgram, msg)
}

// reloadRangeNoGuard performs the actual per-feed work; callers must already
// hold the reload-guard. Returns the number of unread fetched items whose
// guids were not in their feed's in-memory item set before the reload,
// summed across the range.
func (r *Reloader) reloadRangeNoGuard(ctx context.Context, feeds []*feedmodel.Feed, start, end int, unattended bool) (int, error) {
	var firstErr error
	newUnread := 0
	for i := start; i < end; i++ {
		select {
		case <-ctx.Done():
			return newUnread, ctx.Err()
		default:
		}
		f := feeds[i]
		gained, err := r.reloadOne(ctx, f)
		newUnread += gained
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			if r.status != nil {
				r.status.ReloadError(f.RSSURL, err)
			}
		}
	}
	return newUnread, firstErr
}

func (r *Reloader) reloadOne(ctx context.Context, f *feedmodel.Feed) (int, error) {
	f.Lock()
	f.Status = feedmodel.Downloading
	lastMod, etag := f.LastModified, f.ETag
	f.Unlock()
	if r.status != nil {
		r.status.FeedStatusChanged(f)
	}
	r.log.WithField("feed", f.RSSURL).Debug("reload starting")

	runHook(r.cfg.PreReloadHook, f.RSSURL)

	res, err := r.fetcher.Fetch(ctx, f.RSSURL, timeHeaderValue(lastMod), etag)
	if err != nil {
		f.Lock()
		f.Status = feedmodel.Error
		f.Unlock()
		if r.status != nil {
			f.RLock()
			r.status.FeedStatusChanged(f)
			f.RUnlock()
		}
		r.log.WithError(err).WithField("feed", f.RSSURL).Warn("reload failed")
		runHook(r.cfg.PostReloadHook, f.RSSURL)
		return 0, err
	}
	if res.Unchanged {
		f.Lock()
		f.Status = feedmodel.Success
		f.Unlock()
		if r.status != nil {
			r.status.FeedStatusChanged(f)
		}
		r.log.WithField("feed", f.RSSURL).Debug("reload unchanged")
		runHook(r.cfg.PostReloadHook, f.RSSURL)
		return 0, nil
	}

	fetched := res.Feed
	fetched.LastModified = parseHTTPDate(res.LastModified)
	fetched.ETag = res.ETag

	resetUnread := r.ignores != nil && r.ignores.ResetUnread(f.RSSURL)
	kept := fetched.Items()[:0]
	for _, it := range fetched.Items() {
		if r.ignores != nil {
			drop, err := r.ignores.Match(f.RSSURL, it)
			if err != nil {
				return 0, fmt.Errorf("ignores for %s: %w", f.RSSURL, err)
			}
			if drop {
				continue
			}
		}
		if resetUnread {
			it.Unread = true
		}
		kept = append(kept, it)
	}
	fetched.ReplaceItems(kept)

	gained := countNewUnread(f, fetched)

	if err := r.store.ExternalMerge(fetched); err != nil {
		f.Lock()
		f.Status = feedmodel.Error
		f.Unlock()
		r.log.WithError(err).WithField("feed", f.RSSURL).Warn("reload merge failed")
		runHook(r.cfg.PostReloadHook, f.RSSURL)
		return 0, fmt.Errorf("merge %s: %w", f.RSSURL, err)
	}

	f.Lock()
	f.Title = fetched.Title
	f.Link = fetched.Link
	f.Description = fetched.Description
	f.LastModified = fetched.LastModified
	f.ETag = fetched.ETag
	f.Status = feedmodel.Success
	f.ReplaceItems(mergeKeepLocalState(f.Items(), fetched.Items()))
	f.Unlock()
	if r.status != nil {
		r.status.FeedStatusChanged(f)
	}
	r.log.WithField("feed", f.RSSURL).WithField("new_unread", gained).Debug("reload succeeded")

	runHook(r.cfg.PostReloadHook, f.RSSURL)
	return gained, nil
}

// countNewUnread approximates the "N new articles" notification count:
// guids present in the freshly fetched set but absent from the feed's prior
// in-memory item set.
func countNewUnread(before *feedmodel.Feed, after *feedmodel.Feed) int {
	before.RLock()
	existing := make(map[string]bool, len(before.Items()))
	for _, it := range before.Items() {
		existing[it.GUID] = true
	}
	before.RUnlock()
	n := 0
	for _, it := range after.Items() {
		if it.Unread && !existing[it.GUID] {
			n++
		}
	}
	return n
}

// mergeKeepLocalState reconciles a feed's existing in-memory items with a
// freshly fetched set: an item that already existed keeps its object (and
// so its unread/flags/deleted/enqueued state) with the fetched content
// copied in, a new item is used as fetched, and the result follows the
// fetched order. Items missing from the fetched set are dropped.
func mergeKeepLocalState(existing, fetched []*feedmodel.Item) []*feedmodel.Item {
	byGUID := make(map[string]*feedmodel.Item, len(existing))
	for _, it := range existing {
		byGUID[it.GUID] = it
	}
	out := make([]*feedmodel.Item, 0, len(fetched))
	for _, it := range fetched {
		if old, ok := byGUID[it.GUID]; ok {
			old.Title = it.Title
			old.Link = it.Link
			old.Author = it.Author
			old.Description = it.Description
			old.PubDate = it.PubDate
			old.EnclosureURL = it.EnclosureURL
			old.EnclosureType = it.EnclosureType
			old.EnclosureLength = it.EnclosureLength
			out = append(out, old)
			continue
		}
		out = append(out, it)
	}
	return out
}

func runHook(program, arg string) {
	if program == "" {
		return
	}
	cmd := exec.Command("/bin/sh", "-c", program+" "+shellQuote(arg))
	_ = cmd.Run()
}

func shellQuote(s string) string {
	return "'" + fmt.Sprintf("%s", escapeSingleQuotes(s)) + "'"
}

func escapeSingleQuotes(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'', '\\', '\'', '\'')
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}

func timeHeaderValue(lastModifiedUnix int64) string {
	if lastModifiedUnix == 0 {
		return ""
	}
	return httpDate(lastModifiedUnix)
}
