package bridge

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/artpar/reshape/domain/version"
)

// Matcher selects the bridges applicable to a request with compiled
// patterns. Bridges are ordered ascending by version so request changes
// climb toward the current version one hop at a time; responses apply the
// same chain in reverse.
type Matcher struct {
	bridges  []Bridge
	patterns []compiledPattern
}

type compiledPattern struct {
	bridgeIdx int
	regex     *regexp.Regexp // For regex and prefix patterns
	exact     string         // For exact patterns
}

// NewMatcher compiles the given bridges. Disabled bridges are skipped.
func NewMatcher(bridges []Bridge) (*Matcher, error) {
	sorted := make([]Bridge, len(bridges))
	copy(sorted, bridges)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := version.Compare(sorted[i].Version, sorted[j].Version); c != 0 {
			return c < 0
		}
		return sorted[i].Priority > sorted[j].Priority
	})

	patterns := make([]compiledPattern, 0, len(sorted))
	for i, b := range sorted {
		if !b.Enabled {
			continue
		}
		cp, err := compilePattern(b.PathPattern, b.MatchType, i)
		if err != nil {
			return nil, fmt.Errorf("bridge %q: %w", b.Name, err)
		}
		patterns = append(patterns, cp)
	}

	return &Matcher{
		bridges:  sorted,
		patterns: patterns,
	}, nil
}

func compilePattern(pattern string, matchType MatchType, bridgeIdx int) (compiledPattern, error) {
	cp := compiledPattern{bridgeIdx: bridgeIdx}

	switch matchType {
	case MatchExact, "":
		cp.exact = pattern

	case MatchPrefix:
		// /api/* -> ^/api/.*$
		regexPattern := "^" + regexp.QuoteMeta(strings.TrimSuffix(pattern, "*"))
		if strings.HasSuffix(pattern, "*") {
			regexPattern += ".*"
		}
		regexPattern += "$"

		regex, err := regexp.Compile(regexPattern)
		if err != nil {
			return cp, err
		}
		cp.regex = regex

	case MatchRegex:
		regex, err := regexp.Compile(pattern)
		if err != nil {
			return cp, err
		}
		cp.regex = regex

	default:
		return cp, fmt.Errorf("unknown match type %q", matchType)
	}

	return cp, nil
}

// Match returns the bridges that apply to a request for path and method
// made by a client declaring clientVersion, ordered ascending by version.
// An empty client version means "current" and matches no bridge.
func (m *Matcher) Match(path, method, clientVersion string) []Bridge {
	if clientVersion == "" {
		return nil
	}

	var matched []Bridge
	for _, cp := range m.patterns {
		b := m.bridges[cp.bridgeIdx]
		if !version.Older(clientVersion, b.Version) {
			continue
		}
		if !methodMatches(b.Methods, method) {
			continue
		}
		if !cp.matches(path) {
			continue
		}
		matched = append(matched, b)
	}
	return matched
}

// Reverse returns the bridges in descending version order, the direction
// responses are downgraded in.
func Reverse(bridges []Bridge) []Bridge {
	out := make([]Bridge, len(bridges))
	for i, b := range bridges {
		out[len(bridges)-1-i] = b
	}
	return out
}

func (cp compiledPattern) matches(path string) bool {
	if cp.regex != nil {
		return cp.regex.MatchString(path)
	}
	return cp.exact == path
}

func methodMatches(methods []string, method string) bool {
	if len(methods) == 0 {
		return true
	}
	for _, m := range methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}
