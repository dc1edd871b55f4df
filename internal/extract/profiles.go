package extract

import (
	"regexp"

	"github.com/kailas-cloud/finrag/internal/domain/chunk"
	"github.com/kailas-cloud/finrag/internal/domain/doctype"
)

// Profile pairs a rule table with the typed metadata it produces.
type Profile struct {
	Rules []Rule
	Build func(Findings) chunk.DomainMeta
}

var dollarRe = regexp.MustCompile(`\$[\d,]+`)

var financialRules = []Rule{
	{
		Field:      chunk.FieldDocumentCategory,
		Fold:       FoldLower,
		Substrings: []string{"house bill", "hb"},
		Agg:        Constant,
		Value:      "budget_bill",
	},
	{
		Field:    chunk.FieldFiscalYears,
		Fold:     FoldLower,
		Patterns: []*regexp.Regexp{regexp.MustCompile(`fiscal year (\d{4})`)},
		Agg:      DedupeJoin,
	},
	{
		Field:    chunk.FieldContainsFinancialData,
		Patterns: []*regexp.Regexp{dollarRe},
		Agg:      Flag,
	},
	{
		Field:    chunk.FieldDollarAmountCount,
		Patterns: []*regexp.Regexp{dollarRe},
		Agg:      MatchCount,
	},
	{
		Field: chunk.FieldDepartments,
		Fold:  FoldLower,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`department of \w+`),
			regexp.MustCompile(`office of \w+`),
			regexp.MustCompile(`division of \w+`),
		},
		Agg: DedupeJoin,
	},
}

var legislativeRules = []Rule{
	{
		Field: chunk.FieldBillNumbers,
		Fold:  FoldUpper,
		// no capture group: the whole "HB 1234" reference is kept
		Patterns: []*regexp.Regexp{regexp.MustCompile(`[HS]B\s*\d+`)},
		Agg:      DedupeJoin,
	},
	{
		Field:    chunk.FieldSectionCount,
		Fold:     FoldLower,
		Patterns: []*regexp.Regexp{regexp.MustCompile(`section \d+`)},
		Agg:      DistinctCount,
	},
}

var profiles = map[doctype.Type]Profile{
	doctype.Financial: {
		Rules: financialRules,
		Build: func(f Findings) chunk.DomainMeta {
			return chunk.FinancialMeta{
				DocumentCategory:      f.Values[chunk.FieldDocumentCategory],
				FiscalYears:           f.Lists[chunk.FieldFiscalYears],
				ContainsFinancialData: f.Flags[chunk.FieldContainsFinancialData],
				DollarAmountCount:     f.Counts[chunk.FieldDollarAmountCount],
				Departments:           f.Lists[chunk.FieldDepartments],
			}
		},
	},
	doctype.Legislative: {
		Rules: legislativeRules,
		Build: func(f Findings) chunk.DomainMeta {
			return chunk.LegislativeMeta{
				BillNumbers:  f.Lists[chunk.FieldBillNumbers],
				SectionCount: f.Counts[chunk.FieldSectionCount],
			}
		},
	},
}

// ProfileFor returns the extraction profile of t, if it has one.
func ProfileFor(t doctype.Type) (Profile, bool) {
	p, ok := profiles[t]
	return p, ok
}
