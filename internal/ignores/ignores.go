// Package ignores implements per-feed-URL article-drop rules plus the
// always-download and reset-unread-on-update lists (spec.md §4.6).
package ignores

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/mrssilver/feedboat/internal/match"
)

// Rule pairs a feed-URL selector with a parsed filter expression.
type Rule struct {
	Selector string // exact URL, "*", or "regex:<ERE>"
	Expr     *match.Matcher

	isWildcard bool
	isRegex    bool
	re         *regexp2.Regexp
}

// Ignores holds the parsed ignore-article rules plus the always-download
// and reset-unread-on-update URL lists.
type Ignores struct {
	exact  []*Rule
	wild   []*Rule
	regex  []*Rule
	always map[string]bool
	resets map[string]bool
}

// New returns an empty Ignores.
func New() *Ignores {
	return &Ignores{always: make(map[string]bool), resets: make(map[string]bool)}
}

// AddRule parses "ignore-article <selector> <expression>" and files it into
// the exact/wildcard/regex bucket it belongs to.
func (ig *Ignores) AddRule(selector, expression string) error {
	expr, err := match.Parse(expression)
	if err != nil {
		return fmt.Errorf("ignore-article %s: %w", selector, err)
	}
	r := &Rule{Selector: selector, Expr: expr}

	switch {
	case selector == "*":
		r.isWildcard = true
		ig.wild = append(ig.wild, r)
	case strings.HasPrefix(selector, "regex:"):
		pattern := strings.TrimPrefix(selector, "regex:")
		re, err := regexp2.Compile(pattern, regexp2.IgnoreCase)
		if err != nil {
			return fmt.Errorf("ignore-article regex:%s: %w", pattern, err)
		}
		r.isRegex = true
		r.re = re
		ig.regex = append(ig.regex, r)
	default:
		ig.exact = append(ig.exact, r)
	}
	return nil
}

// AddAlwaysDownload registers URLs whose enclosures are auto-downloaded.
func (ig *Ignores) AddAlwaysDownload(urls ...string) {
	for _, u := range urls {
		ig.always[u] = true
	}
}

// AddResetUnread registers URLs whose re-seen dropped items force unread.
func (ig *Ignores) AddResetUnread(urls ...string) {
	for _, u := range urls {
		ig.resets[u] = true
	}
}

// AlwaysDownload reports whether url is in the always-download list.
func (ig *Ignores) AlwaysDownload(url string) bool { return ig.always[url] }

// ResetUnread reports whether url is in the reset-unread-on-update list.
func (ig *Ignores) ResetUnread(url string) bool { return ig.resets[url] }

// Match returns true if any rule associated with item's feed URL matches,
// consulted in order: exact-URL rules, then *-rules, then regex-rules.
func (ig *Ignores) Match(feedURL string, item match.Attributed) (bool, error) {
	for _, r := range ig.exact {
		if r.Selector != feedURL {
			continue
		}
		ok, err := r.Expr.Matches(item)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	for _, r := range ig.wild {
		ok, err := r.Expr.Matches(item)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	for _, r := range ig.regex {
		match, err := r.re.MatchString(feedURL)
		if err != nil || !match {
			continue
		}
		ok, err := r.Expr.Matches(item)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
