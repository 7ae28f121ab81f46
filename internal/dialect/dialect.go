// Package dialect decides whether a check applies to a document.
package dialect

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"mdqengine/internal/document"
	"mdqengine/internal/model"
	"mdqengine/internal/selector"
)

// Matcher evaluates a check's dialect list against a document. Dialects are
// tried in declared order and the first match wins; suite authors rely on
// that precedence.
type Matcher struct {
	logger *slog.Logger

	mu       sync.Mutex
	patterns map[string]*regexp.Regexp
}

func NewMatcher(logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{logger: logger, patterns: make(map[string]*regexp.Regexp)}
}

// IsApplicable reports whether check applies to ctx and, if so, which
// dialect matched. A check without dialects applies to every document and
// the returned name is empty.
func (m *Matcher) IsApplicable(check model.Check, ctx document.Context) (bool, string, error) {
	if len(check.Dialects) == 0 {
		m.logger.Debug("check declares no dialects, assuming applicable", "check", check.ID)
		return true, "", nil
	}

	for _, d := range check.Dialects {
		ok, err := m.matches(d, ctx)
		if errors.Is(err, document.ErrUnsupportedSyntax) {
			// A dialect written for the other document format never matches.
			continue
		}
		if err != nil {
			return false, "", fmt.Errorf("dialect %q: %w", d.Name, err)
		}
		if ok {
			m.logger.Debug("dialect matched", "check", check.ID, "dialect", d.Name)
			return true, d.Name, nil
		}
	}
	return false, "", nil
}

func (m *Matcher) matches(d model.Dialect, ctx document.Context) (bool, error) {
	path := d.Path()
	if path.Match == "" {
		return ctx.Truth(path, nil)
	}

	re, err := m.pattern(path.Match)
	if err != nil {
		return false, err
	}
	v, err := ctx.Evaluate(path, nil)
	if err != nil {
		return false, err
	}
	return re.MatchString(selector.String(v)), nil
}

// pattern compiles match as a whole-string regex and caches it.
func (m *Matcher) pattern(match string) (*regexp.Regexp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if re, ok := m.patterns[match]; ok {
		return re, nil
	}
	re, err := regexp.Compile(`^(?:` + match + `)$`)
	if err != nil {
		return nil, fmt.Errorf("invalid match pattern %q: %w", match, err)
	}
	m.patterns[match] = re
	return re, nil
}
