package chunk

import (
	"strings"
	"time"

	"github.com/kailas-cloud/finrag/internal/domain/doctype"
)

// Financial and legislative field names.
const (
	FieldDocumentCategory      = "document_category"
	FieldFiscalYears           = "fiscal_years"
	FieldContainsFinancialData = "contains_financial_data"
	FieldDollarAmountCount     = "dollar_amount_count"
	FieldDepartments           = "departments"
	FieldBillNumbers           = "bill_numbers"
	FieldSectionCount          = "section_count"
)

// ListSeparator joins multi-valued string fields.
const ListSeparator = ", "

// DomainMeta is the document-type specific part of the metadata.
type DomainMeta interface {
	DocType() doctype.Type
	Fields() Metadata
}

// BaseMeta is computed once per document from its path and decoded content.
type BaseMeta struct {
	Source      string
	Filename    string
	FileSize    int
	DocType     doctype.Type
	ProcessedAt time.Time
}

// Fields flattens the base metadata. processed_at is RFC 3339 in UTC.
func (b BaseMeta) Fields() Metadata {
	return Metadata{
		KeySource:      b.Source,
		KeyFilename:    b.Filename,
		KeyFileSize:    b.FileSize,
		KeyDocType:     b.DocType.String(),
		KeyProcessedAt: b.ProcessedAt.UTC().Format(time.RFC3339),
	}
}

// FinancialMeta holds budget-bill fields. Zero values are omitted when flattened.
type FinancialMeta struct {
	DocumentCategory      string
	FiscalYears           []string
	ContainsFinancialData bool
	DollarAmountCount     int
	Departments           []string
}

// DocType implements DomainMeta.
func (FinancialMeta) DocType() doctype.Type { return doctype.Financial }

// Fields implements DomainMeta.
func (f FinancialMeta) Fields() Metadata {
	m := Metadata{}
	if f.DocumentCategory != "" {
		m[FieldDocumentCategory] = f.DocumentCategory
	}
	if len(f.FiscalYears) > 0 {
		m[FieldFiscalYears] = strings.Join(f.FiscalYears, ListSeparator)
	}
	if f.ContainsFinancialData {
		m[FieldContainsFinancialData] = true
		m[FieldDollarAmountCount] = f.DollarAmountCount
	}
	if len(f.Departments) > 0 {
		m[FieldDepartments] = strings.Join(f.Departments, ListSeparator)
	}
	return m
}

// LegislativeMeta holds bill references and section counts.
type LegislativeMeta struct {
	BillNumbers  []string
	SectionCount int
}

// DocType implements DomainMeta.
func (LegislativeMeta) DocType() doctype.Type { return doctype.Legislative }

// Fields implements DomainMeta.
func (l LegislativeMeta) Fields() Metadata {
	m := Metadata{}
	if len(l.BillNumbers) > 0 {
		m[FieldBillNumbers] = strings.Join(l.BillNumbers, ListSeparator)
	}
	if l.SectionCount > 0 {
		m[FieldSectionCount] = l.SectionCount
	}
	return m
}

// GeneralMeta carries no domain fields.
type GeneralMeta struct {
	Type doctype.Type
}

// DocType implements DomainMeta.
func (g GeneralMeta) DocType() doctype.Type {
	if g.Type == "" {
		return doctype.General
	}
	return g.Type
}

// Fields implements DomainMeta.
func (GeneralMeta) Fields() Metadata { return Metadata{} }

// DocumentMeta is the full document-level metadata shared by all chunks of one file.
type DocumentMeta struct {
	Base   BaseMeta
	Domain DomainMeta
}

// Fields merges base and domain fields into one flat map.
func (d DocumentMeta) Fields() Metadata {
	m := d.Base.Fields()
	if d.Domain == nil {
		return m
	}
	return m.Merge(d.Domain.Fields())
}
