package match

import "github.com/dlclark/regexp2"

// compileERE compiles pattern for case-insensitive matching, mirroring the
// reference's REG_EXTENDED|REG_ICASE semantics as closely as the regexp2
// engine allows.
func compileERE(pattern string) (*regexMatcher, error) {
	re, err := regexp2.Compile(pattern, regexp2.IgnoreCase)
	if err != nil {
		return nil, err
	}
	return &regexMatcher{re: re}, nil
}

type regexMatcher struct{ re *regexp2.Regexp }

func (m *regexMatcher) MatchString(s string) bool {
	ok, err := m.re.MatchString(s)
	if err != nil {
		return false
	}
	return ok
}
