package xmlcompare

import (
	"regexp"
	"strings"
	"sync"

	"github.com/getmockd/simulator/pkg/backref"
)

// WildcardPattern builds the pattern a wildcard control value accepts: the
// literal segments quoted, each wildcard replaced by a lazy any-text match.
func WildcardPattern(ctrl string) *regexp.Regexp {
	return regexp.MustCompile("(?s)^" + literal(ctrl) + "$")
}

// capturePattern is WildcardPattern with one group per placeholder.
func capturePattern(ctrl string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?s)^")
	last := 0
	for _, loc := range backref.Pattern.FindAllStringIndex(ctrl, -1) {
		b.WriteString(literal(ctrl[last:loc[0]]))
		b.WriteString("(.*?)")
		last = loc[1]
	}
	b.WriteString(literal(ctrl[last:]))
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

func literal(s string) string {
	parts := strings.Split(s, backref.Wildcard)
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return strings.Join(parts, ".*?")
}

// patternCache memoizes compiled patterns; the same control documents are
// compared on every request.
type patternCache struct {
	wildcards sync.Map
	captures  sync.Map
}

func newPatternCache() *patternCache {
	return &patternCache{}
}

func (p *patternCache) wildcard(ctrl string) *regexp.Regexp {
	return load(&p.wildcards, ctrl, WildcardPattern)
}

func (p *patternCache) capture(ctrl string) *regexp.Regexp {
	return load(&p.captures, ctrl, capturePattern)
}

func load(m *sync.Map, key string, build func(string) *regexp.Regexp) *regexp.Regexp {
	if re, ok := m.Load(key); ok {
		return re.(*regexp.Regexp)
	}
	re, _ := m.LoadOrStore(key, build(key))
	return re.(*regexp.Regexp)
}
