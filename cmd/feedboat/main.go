// Command feedboat is the CLI entry point: flag parsing, mode dispatch
// (`-x` execute mode, `-X` vacuum, `--cleanup`, headless reload-and-
// summarize), and process exit codes (spec.md §6, SPEC_FULL.md §4.15).
package main

import (
	"context"
	"fmt"
	"os"
	runtime_ "runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/mrssilver/feedboat/internal/config"
	"github.com/mrssilver/feedboat/internal/fetch"
	"github.com/mrssilver/feedboat/internal/lockfile"
	"github.com/mrssilver/feedboat/internal/opml"
	"github.com/mrssilver/feedboat/internal/readinfo"
	"github.com/mrssilver/feedboat/internal/reloader"
	"github.com/mrssilver/feedboat/internal/runtime"
)

const (
	exitSuccess     = 0
	exitUsageError  = 1
	exitLockedCache = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// Peek at the parsed flags for -v/-V/--version before touching the lock
	// or the cache database: version printing has no business holding
	// either, and the full runtime.Open cost shouldn't gate it.
	if peeked, err := config.Parse(args); err == nil && peeked.VersionCount > 0 {
		return runVersion(peeked.VersionCount)
	}

	rt, err := runtime.Open(args)
	if err != nil {
		if err == lockfile.ErrLocked {
			fmt.Fprintln(os.Stderr, "feedboat: cache is locked by another running instance")
			return exitLockedCache
		}
		fmt.Fprintf(os.Stderr, "feedboat: %v\n", err)
		return exitUsageError
	}
	defer rt.Close()

	cfg := rt.Config
	switch {
	case cfg.ImportFromOPML != "":
		return runImportOPML(rt)
	case cfg.ExportToOPML:
		return runExportOPML(rt, "1.0")
	case cfg.ExportToOPML2:
		return runExportOPML(rt, "2.0")
	case cfg.Vacuum:
		return runVacuum(rt)
	case cfg.Cleanup:
		return runCleanup(rt)
	case cfg.ImportReadInfo != "":
		return runImportReadInfo(rt)
	case cfg.ExportReadInfo != "":
		return runExportReadInfo(rt)
	case len(cfg.Execute) > 0:
		return runExecute(rt)
	default:
		return runHeadlessReload(rt)
	}
}

func loadURLEntries(cfgFile string) ([]config.URLEntry, int) {
	f, err := os.Open(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "feedboat: open url file: %v\n", err)
		return nil, exitUsageError
	}
	defer f.Close()
	entries, err := config.LoadURLFile(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "feedboat: read url file: %v\n", err)
		return nil, exitUsageError
	}
	return entries, exitSuccess
}

func runImportOPML(rt *runtime.Runtime) int {
	data, err := os.ReadFile(rt.Config.ImportFromOPML)
	if err != nil {
		fmt.Fprintf(os.Stderr, "feedboat: %v\n", err)
		return exitUsageError
	}
	imported, err := opml.Import(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "feedboat: %v\n", err)
		return exitUsageError
	}

	// A missing or unreadable url-file just means there's nothing to merge
	// against yet; loadURLEntries already reported the reason to stderr.
	existing, _ := loadURLEntries(rt.Config.URLFile)
	seen := make(map[string]bool, len(existing))
	for _, e := range existing {
		seen[e.URL] = true
	}

	f, err := os.OpenFile(rt.Config.URLFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "feedboat: %v\n", err)
		return exitUsageError
	}
	defer f.Close()
	for _, imp := range imported {
		if seen[imp.URL] {
			continue
		}
		seen[imp.URL] = true
		fmt.Fprintln(f, imp.URL)
	}
	return exitSuccess
}

func runExportOPML(rt *runtime.Runtime, version string) int {
	entries, code := loadURLEntries(rt.Config.URLFile)
	if code != exitSuccess {
		return code
	}
	urls := make([]string, len(entries))
	for i, e := range entries {
		urls[i] = e.URL
	}
	feeds, err := rt.Store.LoadFeeds(urls)
	if err != nil {
		fmt.Fprintf(os.Stderr, "feedboat: %v\n", err)
		return exitUsageError
	}
	data, err := opml.Export(feeds, version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "feedboat: %v\n", err)
		return exitUsageError
	}
	os.Stdout.Write(data)
	return exitSuccess
}

func runVacuum(rt *runtime.Runtime) int {
	if err := rt.Store.Vacuum(); err != nil {
		fmt.Fprintf(os.Stderr, "feedboat: vacuum: %v\n", err)
		return exitUsageError
	}
	return exitSuccess
}

func runCleanup(rt *runtime.Runtime) int {
	entries, code := loadURLEntries(rt.Config.URLFile)
	if code != exitSuccess {
		return code
	}
	urls := make([]string, len(entries))
	for i, e := range entries {
		urls[i] = e.URL
	}
	// --cleanup always runs the deletion itself; cleanup-on-quit only gates
	// whether a normal (non-flag) run does it automatically at exit.
	if err := rt.Store.CleanupCache(urls, rt.Config.DeleteReadOnQuit, true); err != nil {
		fmt.Fprintf(os.Stderr, "feedboat: cleanup: %v\n", err)
		return exitUsageError
	}
	return exitSuccess
}

func runImportReadInfo(rt *runtime.Runtime) int {
	entries, code := loadURLEntries(rt.Config.URLFile)
	if code != exitSuccess {
		return code
	}
	urls := make([]string, len(entries))
	for i, e := range entries {
		urls[i] = e.URL
	}
	feeds, err := rt.Store.LoadFeeds(urls)
	if err != nil {
		fmt.Fprintf(os.Stderr, "feedboat: %v\n", err)
		return exitUsageError
	}
	f, err := os.Open(rt.Config.ImportReadInfo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "feedboat: %v\n", err)
		return exitUsageError
	}
	defer f.Close()
	lines, err := readinfo.Parse(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "feedboat: %v\n", err)
		return exitUsageError
	}
	n, err := readinfo.Apply(lines, feeds, rt.Store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "feedboat: %v\n", err)
		return exitUsageError
	}
	if !rt.Config.Quiet {
		fmt.Printf("applied read-state for %d items\n", n)
	}
	return exitSuccess
}

func runExportReadInfo(rt *runtime.Runtime) int {
	entries, code := loadURLEntries(rt.Config.URLFile)
	if code != exitSuccess {
		return code
	}
	urls := make([]string, len(entries))
	for i, e := range entries {
		urls[i] = e.URL
	}
	feeds, err := rt.Store.LoadFeeds(urls)
	if err != nil {
		fmt.Fprintf(os.Stderr, "feedboat: %v\n", err)
		return exitUsageError
	}
	f, err := os.Create(rt.Config.ExportReadInfo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "feedboat: %v\n", err)
		return exitUsageError
	}
	defer f.Close()
	if err := readinfo.Export(f, feeds); err != nil {
		fmt.Fprintf(os.Stderr, "feedboat: %v\n", err)
		return exitUsageError
	}
	return exitSuccess
}

// runExecute runs a tiny named-command macro language without the
// interactive UI (spec.md §6 `-x`/`--execute`): each command is one of
// "reload" or "print-unread".
func runExecute(rt *runtime.Runtime) int {
	entries, code := loadURLEntries(rt.Config.URLFile)
	if code != exitSuccess {
		return code
	}
	urls := make([]string, len(entries))
	for i, e := range entries {
		urls[i] = e.URL
	}
	feeds, err := rt.Store.LoadFeeds(urls)
	if err != nil {
		fmt.Fprintf(os.Stderr, "feedboat: %v\n", err)
		return exitUsageError
	}

	for _, cmd := range rt.Config.Execute {
		switch strings.TrimSpace(cmd) {
		case "reload":
			rl := buildReloader(rt)
			if err := rl.ReloadAll(context.Background(), feeds, true); err != nil {
				fmt.Fprintf(os.Stderr, "feedboat: reload: %v\n", err)
			}
		case "print-unread":
			total := 0
			for _, f := range feeds {
				total += f.UnreadCount()
			}
			fmt.Println(total)
		default:
			fmt.Fprintf(os.Stderr, "feedboat: unknown command %q\n", cmd)
			return exitUsageError
		}
	}
	return exitSuccess
}

// runHeadlessReload is the minimal non-interactive stand-in for the TUI
// entry point (spec.md §1 scopes the TUI itself out): reload every feed
// once and print a one-line summary.
func runHeadlessReload(rt *runtime.Runtime) int {
	entries, code := loadURLEntries(rt.Config.URLFile)
	if code != exitSuccess {
		return code
	}
	urls := make([]string, len(entries))
	tagsByURL := make(map[string][]string, len(entries))
	for i, e := range entries {
		urls[i] = e.URL
		tagsByURL[e.URL] = e.Tags
	}
	feeds, err := rt.Store.LoadFeeds(urls)
	if err != nil {
		fmt.Fprintf(os.Stderr, "feedboat: %v\n", err)
		return exitUsageError
	}
	for _, f := range feeds {
		f.Tags = tagsByURL[f.RSSURL]
		f.SetSort(rt.Config.ArticleSortField, rt.Config.ArticleSortDir)
		f.Sort()
	}

	rl := buildReloader(rt)
	if err := rl.ReloadAll(context.Background(), feeds, true); err != nil {
		if !rt.Config.Quiet {
			fmt.Fprintf(os.Stderr, "feedboat: one or more feeds failed to reload: %v\n", err)
		}
	}

	if err := rt.Store.PurgeDeletedItems(); err != nil && !rt.Config.Quiet {
		fmt.Fprintf(os.Stderr, "feedboat: purge: %v\n", err)
	}
	if rt.Config.CleanupOnQuit {
		if err := rt.Store.CleanupCache(urls, rt.Config.DeleteReadOnQuit, true); err != nil && !rt.Config.Quiet {
			fmt.Fprintf(os.Stderr, "feedboat: cleanup-on-quit: %v\n", err)
		}
	}

	if !rt.Config.Quiet {
		unread := 0
		for _, f := range feeds {
			unread += f.UnreadCount()
		}
		fmt.Printf("%d feeds, %d unread articles\n", len(feeds), unread)
	}
	return exitSuccess
}

func buildReloader(rt *runtime.Runtime) *reloader.Reloader {
	fetcher := fetch.New(30*time.Second, "feedboat/1.0")
	cfg := reloader.Config{
		ReloadThreads:  rt.Config.ReloadThreads,
		NotifyAlways:   rt.Config.NotifyAlways,
		NotifyProgram:  rt.Config.NotifyProgram,
		PreReloadHook:  rt.Config.PreReloadHook,
		PostReloadHook: rt.Config.PostReloadHook,
	}
	return reloader.New(fetcher, rt.Store, rt.Ignores, nil, cfg, rt.Log)
}

// version is stamped at build time via -ldflags; it defaults to "unknown"
// for a plain `go build`.
var version = "unknown"

// runVersion implements -v/-V/--version: one repetition prints the bare
// version string, two print the Go runtime and platform used to build it,
// three or more add the full third-party dependency list (spec.md §6).
func runVersion(count int) int {
	fmt.Printf("feedboat %s\n", version)
	if count < 2 {
		return exitSuccess
	}
	fmt.Printf("compiled with %s for %s/%s\n", runtime_.Version(), runtime_.GOOS, runtime_.GOARCH)
	if count < 3 {
		return exitSuccess
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return exitSuccess
	}
	fmt.Println("dependencies:")
	for _, dep := range info.Deps {
		fmt.Printf("  %s %s\n", dep.Path, dep.Version)
	}
	return exitSuccess
}
