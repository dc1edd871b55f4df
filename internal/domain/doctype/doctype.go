// Package doctype enumerates the document families the extractor knows about.
package doctype

import "strings"

// Type selects which domain metadata rules apply to a document.
type Type string

// Known document types. Anything else extracts base metadata only.
const (
	Financial   Type = "financial"
	Legislative Type = "legislative"
	General     Type = "general"
)

// Parse normalizes s; unknown values are kept verbatim so they still reach chunk metadata.
func Parse(s string) Type {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if t == "" {
		return General
	}
	return t
}

// Known reports whether t has dedicated extraction rules or is the explicit general type.
func (t Type) Known() bool {
	switch t {
	case Financial, Legislative, General:
		return true
	}
	return false
}

func (t Type) String() string { return string(t) }
