package extract

import (
	"regexp"
	"strings"
)

// Fold selects the case normalization applied to the content before a rule runs.
type Fold int

// Case folds.
const (
	FoldNone Fold = iota
	FoldLower
	FoldUpper
)

func (f Fold) apply(s string) string {
	switch f {
	case FoldLower:
		return strings.ToLower(s)
	case FoldUpper:
		return strings.ToUpper(s)
	default:
		return s
	}
}

// Aggregation decides how a rule's matches become a field value.
type Aggregation int

// Aggregations.
const (
	// DedupeJoin keeps distinct matches in first-seen order.
	DedupeJoin Aggregation = iota
	// DistinctCount counts distinct matches.
	DistinctCount
	// MatchCount counts every match, duplicates included.
	MatchCount
	// Flag is set when anything matched.
	Flag
	// Constant yields Rule.Value when any substring is present.
	Constant
)

// Rule is one row of an extraction table.
// Patterns yield their first capture group when they have one, the whole match otherwise.
type Rule struct {
	Field      string
	Fold       Fold
	Patterns   []*regexp.Regexp
	Substrings []string
	Agg        Aggregation
	Value      string
}

// Findings collects rule outputs keyed by field name.
type Findings struct {
	Lists  map[string][]string
	Counts map[string]int
	Flags  map[string]bool
	Values map[string]string
}

func newFindings() Findings {
	return Findings{
		Lists:  map[string][]string{},
		Counts: map[string]int{},
		Flags:  map[string]bool{},
		Values: map[string]string{},
	}
}

// Apply runs every rule against content.
func Apply(rules []Rule, content string) Findings {
	f := newFindings()
	folded := map[Fold]string{}

	for _, r := range rules {
		text, ok := folded[r.Fold]
		if !ok {
			text = r.Fold.apply(content)
			folded[r.Fold] = text
		}
		r.eval(text, &f)
	}
	return f
}

func (r Rule) eval(text string, f *Findings) {
	if r.Agg == Constant {
		for _, sub := range r.Substrings {
			if strings.Contains(text, sub) {
				f.Values[r.Field] = r.Value
				return
			}
		}
		return
	}

	matches := r.matches(text)
	if len(matches) == 0 {
		return
	}

	switch r.Agg {
	case DedupeJoin:
		f.Lists[r.Field] = dedupe(matches)
	case DistinctCount:
		f.Counts[r.Field] = len(dedupe(matches))
	case MatchCount:
		f.Counts[r.Field] = len(matches)
	case Flag:
		f.Flags[r.Field] = true
	}
}

func (r Rule) matches(text string) []string {
	var out []string
	for _, re := range r.Patterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if len(m) > 1 {
				out = append(out, m[1])
				continue
			}
			out = append(out, m[0])
		}
	}
	return out
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
