// Package match implements the small filter-expression language used for
// article hiding, saved filters, query feeds, and search: a typed
// expression over any object that can answer attribute lookups.
package match

import "fmt"

// Attributed is implemented by anything the Matcher can evaluate against:
// Item, Feed, or any future context object. It deliberately exposes a
// single capability rather than a bag of typed getters, mirroring the
// dynamic attribute_value lookup the reference design uses.
type Attributed interface {
	AttributeValue(name string) (string, bool)
}

// AttributedFunc adapts a plain function to Attributed.
type AttributedFunc func(name string) (string, bool)

func (f AttributedFunc) AttributeValue(name string) (string, bool) { return f(name) }

// ErrAttributeUnavailable is returned (wrapped with the attribute name) when
// an operator that requires a value hits a missing attribute.
type ErrAttributeUnavailable struct{ Name string }

func (e *ErrAttributeUnavailable) Error() string {
	return fmt.Sprintf("attribute unavailable: %s", e.Name)
}

// ErrInvalidRegex is returned when a =~/!~ pattern fails to compile.
type ErrInvalidRegex struct {
	Pattern string
	Detail  string
}

func (e *ErrInvalidRegex) Error() string {
	return fmt.Sprintf("invalid regular expression %q: %s", e.Pattern, e.Detail)
}

// ErrParse is returned by Parse on a malformed expression.
type ErrParse struct{ Detail string }

func (e *ErrParse) Error() string { return e.Detail }

// Matcher holds a parsed expression tree plus its source text.
type Matcher struct {
	source string
	root   node
}

// Parse parses expr into a Matcher. On failure it returns a nil Matcher and
// a non-nil error (an *ErrParse) whose Error() text is the parse message.
func Parse(expr string) (*Matcher, error) {
	toks, err := lex(expr)
	if err != nil {
		return nil, &ErrParse{Detail: err.Error()}
	}
	p := &parser{toks: toks}
	root, err := p.parseOr()
	if err != nil {
		return nil, &ErrParse{Detail: err.Error()}
	}
	if p.pos != len(p.toks) {
		return nil, &ErrParse{Detail: fmt.Sprintf("unexpected token %q", p.toks[p.pos].text)}
	}
	return &Matcher{source: expr, root: root}, nil
}

// MustParse is Parse but panics on error; handy for table-driven tests and
// compile-time-known filters.
func MustParse(expr string) *Matcher {
	m, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return m
}

// Matches evaluates the parsed expression against obj.
func (m *Matcher) Matches(obj Attributed) (bool, error) {
	return m.root.eval(obj)
}

// GetExpression returns the original source text.
func (m *Matcher) GetExpression() string { return m.source }
