package categorize

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jask/jaskledger/internal/domain"
)

// Matcher selects the first active rule, by ascending priority, whose
// pattern matches a description. Compiled regex patterns are cached.
type Matcher struct {
	Log zerolog.Logger

	mu    sync.Mutex
	cache map[string]*regexp.Regexp
	bad   map[string]struct{}
}

// NewMatcher returns a Matcher that logs with l.
func NewMatcher(l zerolog.Logger) *Matcher {
	return &Matcher{Log: l}
}

// Match returns the winning rule, or false when none matches.
func (m *Matcher) Match(description string, rules []domain.AIRule) (domain.AIRule, bool) {
	for _, r := range ordered(rules) {
		if m.matches(description, r) {
			return r, true
		}
	}
	return domain.AIRule{}, false
}

// ordered keeps active rules only, sorted by priority; ties keep input order.
func ordered(rules []domain.AIRule) []domain.AIRule {
	out := make([]domain.AIRule, 0, len(rules))
	for _, r := range rules {
		if r.Active {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

func (m *Matcher) matches(description string, r domain.AIRule) bool {
	desc := strings.ToLower(description)
	pattern := strings.ToLower(r.Pattern)
	switch r.PatternType {
	case domain.PatternContains:
		return strings.Contains(desc, pattern)
	case domain.PatternStartsWith:
		return strings.HasPrefix(desc, pattern)
	case domain.PatternEndsWith:
		return strings.HasSuffix(desc, pattern)
	case domain.PatternRegex:
		re := m.compile(r)
		return re != nil && re.MatchString(description)
	default:
		return false
	}
}

// compile returns nil for patterns that do not compile; such rules never match.
func (m *Matcher) compile(r domain.AIRule) *regexp.Regexp {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cache == nil {
		m.cache = make(map[string]*regexp.Regexp)
		m.bad = make(map[string]struct{})
	}
	if re, ok := m.cache[r.Pattern]; ok {
		return re
	}
	if _, ok := m.bad[r.Pattern]; ok {
		return nil
	}
	re, err := regexp.Compile("(?i)" + r.Pattern)
	if err != nil {
		m.Log.Debug().Err(err).Str("rule", r.ID).Str("pattern", r.Pattern).Msg("rule regex does not compile; treating as no match")
		m.bad[r.Pattern] = struct{}{}
		return nil
	}
	m.cache[r.Pattern] = re
	return re
}
