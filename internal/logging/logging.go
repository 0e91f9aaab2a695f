// Package logging builds the structured, leveled logger every core
// component takes as a `*logrus.Entry` rather than reaching for a global
// (spec.md §9, SPEC_FULL.md §4.13).
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New opens path (or discards output if path is empty) and maps the CLI's
// `-l N` (N ∈ [1..6], 1 least verbose) onto logrus levels, monotonically:
// 1→Error, 2→Warn, 3→Info, 4→Debug, 5→Trace, 6→Trace (no further levels
// exist, so 6 saturates at Trace like the upstream reference's top level).
func New(path string, level int) (*logrus.Entry, *os.File, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetLevel(levelFor(level))

	var out io.Writer = io.Discard
	var f *os.File
	if path != "" {
		var err error
		f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
		}
		out = f
	}
	logger.SetOutput(out)

	return logrus.NewEntry(logger), f, nil
}

func levelFor(n int) logrus.Level {
	switch {
	case n <= 1:
		return logrus.ErrorLevel
	case n == 2:
		return logrus.WarnLevel
	case n == 3:
		return logrus.InfoLevel
	case n == 4:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}
