package match

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokLParen tokenKind = iota
	tokRParen
	tokAnd
	tokOr
	tokIdent // attribute name
	tokOp    // = != =~ !~ # !# < <= > >= between
	tokString
	tokInt
	tokRange // "A:B", kept as raw text, split at eval/build time
)

type token struct {
	kind tokenKind
	text string
}

// lex tokenizes expr. Whitespace is only the space character; tabs,
// newlines, and carriage returns anywhere in the expression are rejected.
func lex(expr string) ([]token, error) {
	if strings.ContainsAny(expr, "\t\n\r") {
		return nil, fmt.Errorf("expression contains a disallowed whitespace character")
	}

	var toks []token
	r := []rune(expr)
	i := 0
	n := len(r)

	for i < n {
		c := r[i]
		switch {
		case c == ' ':
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case c == '"' || c == '\'':
			quote := c
			j := i + 1
			var sb strings.Builder
			closed := false
			for j < n {
				if r[j] == '\\' && j+1 < n && r[j+1] == quote {
					sb.WriteRune(quote)
					j += 2
					continue
				}
				if r[j] == quote {
					closed = true
					j++
					break
				}
				sb.WriteRune(r[j])
				j++
			}
			if !closed {
				return nil, fmt.Errorf("unterminated string literal")
			}
			toks = append(toks, token{tokString, sb.String()})
			i = j
		case isIdentStart(c):
			j := i
			for j < n && isIdentChar(r[j]) {
				j++
			}
			word := string(r[i:j])
			switch word {
			case "and":
				toks = append(toks, token{tokAnd, word})
			case "or":
				toks = append(toks, token{tokOr, word})
			case "between":
				toks = append(toks, token{tokOp, word})
			default:
				toks = append(toks, token{tokIdent, word})
			}
			i = j
		case c == '-' || (c >= '0' && c <= '9'):
			j := i
			if r[j] == '-' {
				j++
			}
			for j < n && r[j] >= '0' && r[j] <= '9' {
				j++
			}
			if j < n && r[j] == ':' {
				k := j + 1
				if k < n && r[k] == '-' {
					k++
				}
				start2 := k
				for k < n && r[k] >= '0' && r[k] <= '9' {
					k++
				}
				if k == start2 {
					return nil, fmt.Errorf("malformed range at position %d", i)
				}
				toks = append(toks, token{tokRange, string(r[i:k])})
				i = k
			} else {
				if j == i || (r[i] == '-' && j == i+1) {
					return nil, fmt.Errorf("malformed number at position %d", i)
				}
				toks = append(toks, token{tokInt, string(r[i:j])})
				i = j
			}
		default:
			op, consumed, err := lexOperator(r, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{tokOp, op})
			i += consumed
		}
	}
	return toks, nil
}

func isIdentStart(c rune) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c rune) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func lexOperator(r []rune, i int) (string, int, error) {
	n := len(r)
	two := ""
	if i+1 < n {
		two = string(r[i : i+2])
	}
	switch two {
	case "!=", "=~", "!~", "!#", ">=", "<=":
		return two, 2, nil
	}
	one := string(r[i])
	switch one {
	case "=", "#", "<", ">":
		return one, 1, nil
	}
	return "", 0, fmt.Errorf("unexpected character %q at position %d", one, i)
}

// parseIntSaturating parses a decimal integer, saturating to 32-bit signed
// range on overflow, per the range-endpoint saturation rule.
func parseIntSaturating(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		if strings.HasPrefix(s, "-") {
			return -2147483648
		}
		return 2147483647
	}
	if v > 2147483647 {
		return 2147483647
	}
	if v < -2147483648 {
		return -2147483648
	}
	return v
}
