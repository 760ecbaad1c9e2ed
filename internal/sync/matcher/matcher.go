// Package matcher implements deterministic sender-to-child matching.
// It is the cheap first signal of attribution; the AI classifier only
// gets to choose among the children the matcher allows.
package matcher

import (
	"strings"

	childdomain "schoolsync-backend/internal/child/domain"
)

// MatchChildren returns every child whose match rules hit the sender, in
// input order. The sender is the raw "From" header and may carry a display
// name ("School Office <office@school.com>"). Matching is case-insensitive.
// Multiple matches are expected (siblings sharing a school domain) and are
// not an error. An empty sender matches nothing.
func MatchChildren(sender string, children []*childdomain.Child) []*childdomain.Child {
	normalized := strings.ToLower(strings.TrimSpace(sender))
	if normalized == "" {
		return nil
	}

	var matched []*childdomain.Child
	for _, c := range children {
		if matchesAny(normalized, c.MatchRules) {
			matched = append(matched, c)
		}
	}
	return matched
}

// matchesAny applies the three rule forms as an inclusive OR; a rule never
// declares its own kind:
//   - substring of the whole header: covers full addresses under any
//     display-name convention (angle brackets, comments)
//   - "@domain" suffix
//   - bare domain, matched as an "@domain" suffix
func matchesAny(sender string, rules []string) bool {
	for _, rule := range rules {
		r := strings.ToLower(strings.TrimSpace(rule))
		if r == "" {
			continue
		}
		if strings.Contains(sender, r) {
			return true
		}
		if strings.HasPrefix(r, "@") {
			if strings.HasSuffix(sender, r) {
				return true
			}
		} else if strings.HasSuffix(sender, "@"+r) {
			return true
		}
	}
	return false
}
