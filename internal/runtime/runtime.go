// Package runtime threads the process-lifetime collaborators — logger,
// config, store, lock — down through the CLI as one explicit handle instead
// of package-level globals (spec.md §9, SPEC_FULL.md §9).
package runtime

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/mrssilver/feedboat/internal/config"
	"github.com/mrssilver/feedboat/internal/filters"
	"github.com/mrssilver/feedboat/internal/ignores"
	"github.com/mrssilver/feedboat/internal/lockfile"
	"github.com/mrssilver/feedboat/internal/logging"
	"github.com/mrssilver/feedboat/internal/store"
)

// Runtime bundles the collaborators cmd/feedboat wires at process start and
// passes to every core component that needs them.
type Runtime struct {
	Config  *config.Config
	Log     *logrus.Entry
	Store   *store.Store
	Lock    *lockfile.LockFile
	Ignores *ignores.Ignores
	Filters *filters.Filters

	logFile *os.File
}

// Open builds a Runtime: parses flags, copies any ~/.newsbeuter files into
// the resolved locations, acquires the cache lock, builds the
// logger, loads the config-file directives (which can override cfg.MaxItems
// and other store-affecting fields), and only then opens the store — the
// store must see the fully resolved config, not the flag-only defaults.
func Open(args []string) (*Runtime, error) {
	cfg, err := config.Parse(args)
	if err != nil {
		return nil, err
	}
	if err := config.MigrateFromNewsbeuter(cfg); err != nil {
		return nil, err
	}

	lock, err := lockfile.Acquire(cfg.CacheFile)
	if err != nil {
		return nil, err
	}

	logEntry, logFile, err := logging.New(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		lock.Release()
		return nil, err
	}

	ig := ignores.New()
	fl := filters.New()
	if f, err := os.Open(cfg.ConfigFile); err == nil {
		defer f.Close()
		if err := config.LoadDirectives(f, cfg, ig, fl); err != nil {
			lock.Release()
			if logFile != nil {
				logFile.Close()
			}
			return nil, err
		}
	}

	st, err := store.Open(cfg.CacheFile, store.Config{MaxItems: cfg.MaxItems}, logEntry)
	if err != nil {
		lock.Release()
		if logFile != nil {
			logFile.Close()
		}
		return nil, err
	}

	return &Runtime{
		Config:  cfg,
		Log:     logEntry,
		Store:   st,
		Lock:    lock,
		Ignores: ig,
		Filters: fl,
		logFile: logFile,
	}, nil
}

// Close releases every held resource in reverse-acquisition order.
func (r *Runtime) Close() error {
	var firstErr error
	if r.Store != nil {
		if err := r.Store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if r.logFile != nil {
		r.logFile.Close()
	}
	if r.Lock != nil {
		if err := r.Lock.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
