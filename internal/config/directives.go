package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mrssilver/feedboat/internal/feedmodel"
	"github.com/mrssilver/feedboat/internal/filters"
	"github.com/mrssilver/feedboat/internal/ignores"
)

// Directives is the subset of config-file action handlers the core
// consumes (spec.md §6): ignore-article, always-download,
// reset-unread-on-update, define-filter, auto-reload, reload-time,
// reload-threads, download-path, download-filename-format, max-items,
// article-sort-order, show-read-articles, delete-read-articles-on-quit,
// cleanup-on-quit, notify-program, notify-always, pre-reload-hook,
// post-reload-hook. Unrecognized directives are ignored, matching
// spec.md's note that full free-form config-file grammar is out of scope.
func LoadDirectives(r io.Reader, c *Config, ig *ignores.Ignores, fl *filters.Filters) error {
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cmd, rest := splitFirstToken(line)
		if cmd == "" {
			continue
		}
		if err := applyDirective(cmd, rest, c, ig, fl); err != nil {
			return fmt.Errorf("config line %d: %w", lineNo, err)
		}
	}
	return sc.Err()
}

// splitFirstToken extracts the first whitespace-delimited (quote-aware)
// token from line and returns it alongside the untouched remainder, so a
// directive's trailing expression keeps its own quoting intact for the
// Matcher lexer.
func splitFirstToken(line string) (token, rest string) {
	line = strings.TrimLeft(line, " ")
	if line == "" {
		return "", ""
	}
	if line[0] == '"' {
		if end := strings.IndexByte(line[1:], '"'); end >= 0 {
			token = line[1 : end+1]
			rest = strings.TrimLeft(line[end+2:], " ")
			return token, rest
		}
	}
	if sp := strings.IndexByte(line, ' '); sp >= 0 {
		return line[:sp], strings.TrimLeft(line[sp+1:], " ")
	}
	return line, ""
}

// splitTokens splits a directive's argument list on spaces, honoring
// double-quoted spans, for directives whose arguments are plain words
// (unlike ignore-article's trailing filter expression).
func splitTokens(rest string) []string {
	var out []string
	for rest != "" {
		tok, next := splitFirstToken(rest)
		if tok == "" {
			break
		}
		out = append(out, tok)
		rest = next
	}
	return out
}

func applyDirective(cmd, rest string, c *Config, ig *ignores.Ignores, fl *filters.Filters) error {
	switch cmd {
	case "ignore-article":
		selector, expr := splitFirstToken(rest)
		if selector == "" || expr == "" {
			return fmt.Errorf("ignore-article requires <selector> <expression>")
		}
		return ig.AddRule(selector, expr)
	case "always-download":
		ig.AddAlwaysDownload(splitTokens(rest)...)
	case "reset-unread-on-update":
		ig.AddResetUnread(splitTokens(rest)...)
	case "define-filter":
		name, expr := splitFirstToken(rest)
		if name == "" || expr == "" {
			return fmt.Errorf("define-filter requires <name> <expression>")
		}
		fl.Define(name, expr)
	case "auto-reload":
		c.AutoReload = rest0IsYes(rest)
	case "reload-time":
		n, err := parseIntArg(rest)
		if err != nil {
			return fmt.Errorf("reload-time: %w", err)
		}
		c.ReloadTime = n
	case "reload-threads":
		n, err := parseIntArg(rest)
		if err != nil {
			return fmt.Errorf("reload-threads: %w", err)
		}
		c.ReloadThreads = n
	case "download-path":
		c.DownloadPath = strings.Trim(rest, "\"")
	case "download-filename-format":
		c.DownloadFileFormat = rest
	case "max-items":
		n, err := parseIntArg(rest)
		if err != nil {
			return fmt.Errorf("max-items: %w", err)
		}
		c.MaxItems = n
	case "article-sort-order":
		field, dir, err := parseSortOrder(rest)
		if err != nil {
			return err
		}
		c.ArticleSortField, c.ArticleSortDir = field, dir
	case "show-read-articles":
		c.ShowReadArticles = rest0IsYes(rest)
	case "delete-read-articles-on-quit":
		c.DeleteReadOnQuit = rest0IsYes(rest)
	case "cleanup-on-quit":
		c.CleanupOnQuit = rest0IsYes(rest)
	case "notify-program":
		c.NotifyProgram = rest
	case "notify-always":
		c.NotifyAlways = rest0IsYes(rest)
	case "pre-reload-hook":
		c.PreReloadHook = rest
	case "post-reload-hook":
		c.PostReloadHook = rest
	default:
		// Colors, bindkeys, and the rest of the free-form grammar are out
		// of scope (spec.md §6); silently accepted so a real newsboat
		// config file doesn't fail the whole load.
	}
	return nil
}

func rest0IsYes(rest string) bool {
	return rest == "yes" || rest == "true"
}

func parseIntArg(rest string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(rest))
}

// parseSortOrder parses "date|title|flags|author|link|guid|random" with an
// optional "-asc"/"-desc" suffix, spec.md §6's article-sort-order grammar.
func parseSortOrder(s string) (feedmodel.SortField, feedmodel.SortDirection, error) {
	field, dirStr, _ := strings.Cut(s, "-")
	var sf feedmodel.SortField
	switch field {
	case "date":
		sf = feedmodel.SortDate
	case "title":
		sf = feedmodel.SortTitle
	case "flags":
		sf = feedmodel.SortFlags
	case "author":
		sf = feedmodel.SortAuthor
	case "link":
		sf = feedmodel.SortLink
	case "guid":
		sf = feedmodel.SortGUID
	case "random":
		sf = feedmodel.SortRandom
	default:
		return 0, 0, fmt.Errorf("unknown sort field %q", field)
	}
	dir := feedmodel.Asc
	if dirStr == "desc" {
		dir = feedmodel.Desc
	}
	return sf, dir, nil
}
