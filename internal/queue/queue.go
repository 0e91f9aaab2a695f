// Package queue builds and maintains the podcast download-queue file:
// filename synthesis, de-duplication, and batch enqueue (spec.md §4.7).
package queue

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Result is the outcome of an Enqueue call.
type Result int

const (
	QueuedSuccessfully Result = iota
	UrlQueuedAlready
	OutputFilenameUsedAlready
	QueueFileOpenError
)

func (r Result) String() string {
	switch r {
	case QueuedSuccessfully:
		return "queued"
	case UrlQueuedAlready:
		return "url already queued"
	case OutputFilenameUsedAlready:
		return "output filename already used"
	case QueueFileOpenError:
		return "could not open queue file"
	default:
		return "unknown"
	}
}

// Entry is the minimal view of an item/feed the formatter needs.
type Entry struct {
	EnclosureURL string
	ItemTitle    string
	ItemFeed     string // the feed title this item belongs to
	FeedTitle    string // the feed title context the enqueue call was made under
	PubDate      int64
}

// Manager owns the queue file and filename template.
type Manager struct {
	mu             sync.Mutex
	queuePath      string
	downloadPath   string
	filenameFormat string
}

// New builds a Manager. filenameFormat defaults to "{n}-{t}.{e}" if empty.
func New(queuePath, downloadPath, filenameFormat string) *Manager {
	if filenameFormat == "" {
		filenameFormat = "{n}-{t}.{e}"
	}
	if downloadPath != "" && !strings.HasSuffix(downloadPath, string(os.PathSeparator)) {
		downloadPath += string(os.PathSeparator)
	}
	return &Manager{queuePath: queuePath, downloadPath: downloadPath, filenameFormat: filenameFormat}
}

// Enqueue appends e's enclosure to the queue file, synthesizing its target
// filename from the format template.
func (m *Manager) Enqueue(e Entry) (Result, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	target := m.downloadPath + sanitizeFilename(m.formatFilename(e))

	lines, err := m.readLines()
	if err != nil {
		return QueueFileOpenError, "", err
	}
	for _, l := range lines {
		u, p, ok := splitLine(l)
		if !ok {
			continue
		}
		if u == e.EnclosureURL {
			return UrlQueuedAlready, target, nil
		}
		if p == target {
			return OutputFilenameUsedAlready, target, nil
		}
	}

	f, err := os.OpenFile(m.queuePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return QueueFileOpenError, "", err
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "%s \"%s\"\n", e.EnclosureURL, target); err != nil {
		return QueueFileOpenError, "", err
	}
	return QueuedSuccessfully, target, nil
}

// AutoEnqueue enqueues every HTTP(S) enclosure in entries, stopping on the
// first hard error (QueueFileOpenError); UrlQueuedAlready and
// OutputFilenameUsedAlready are soft and do not halt the batch.
func (m *Manager) AutoEnqueue(entries []Entry) ([]Result, error) {
	results := make([]Result, 0, len(entries))
	for _, e := range entries {
		if !strings.HasPrefix(e.EnclosureURL, "http://") && !strings.HasPrefix(e.EnclosureURL, "https://") {
			continue
		}
		res, _, err := m.Enqueue(e)
		if res == QueueFileOpenError {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (m *Manager) readLines() ([]string, error) {
	f, err := os.Open(m.queuePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

// splitLine parses `<url> "<path>"`.
func splitLine(line string) (urlPart, pathPart string, ok bool) {
	idx := strings.Index(line, " \"")
	if idx < 0 || !strings.HasSuffix(line, "\"") {
		return "", "", false
	}
	u := line[:idx]
	p := line[idx+2 : len(line)-1]
	return u, p, true
}

func (m *Manager) formatFilename(e Entry) string {
	t := time.Unix(e.PubDate, 0)
	if e.PubDate == 0 {
		t = time.Now()
	}
	u, _ := url.Parse(e.EnclosureURL)
	host := ""
	base := ""
	ext := ""
	if u != nil {
		host = u.Hostname()
		base = path.Base(u.Path)
		ext = strings.TrimPrefix(path.Ext(u.Path), ".")
	}
	return buildFromTemplate(m.filenameFormat, map[string]string{
		"n": sanitizeComponent(e.FeedTitle),
		"h": host,
		"u": base,
		"F": fmt.Sprintf("%04d-%02d-%02d", t.Year(), t.Month(), t.Day()),
		"m": fmt.Sprintf("%02d", int(t.Month())),
		"b": t.Month().String()[:3],
		"d": fmt.Sprintf("%02d", t.Day()),
		"H": fmt.Sprintf("%02d", t.Hour()),
		"M": fmt.Sprintf("%02d", t.Minute()),
		"S": fmt.Sprintf("%02d", t.Second()),
		"y": fmt.Sprintf("%02d", t.Year()%100),
		"Y": fmt.Sprintf("%04d", t.Year()),
		"t": sanitizeComponent(e.ItemTitle),
		"e": ext,
		"N": sanitizeComponent(e.ItemFeed),
	})
}

func buildFromTemplate(tmpl string, vars map[string]string) string {
	var sb strings.Builder
	for i := 0; i < len(tmpl); {
		if tmpl[i] == '{' {
			end := strings.IndexByte(tmpl[i:], '}')
			if end > 0 {
				key := tmpl[i+1 : i+end]
				if v, ok := vars[key]; ok {
					sb.WriteString(v)
					i += end + 1
					continue
				}
			}
		}
		sb.WriteByte(tmpl[i])
		i++
	}
	return sb.String()
}

// sanitizeComponent replaces slashes in a title-derived component with
// underscores, per spec.md §4.7.
func sanitizeComponent(s string) string {
	return strings.ReplaceAll(s, "/", "_")
}

func sanitizeFilename(s string) string {
	return filepath.Clean(s)
}
