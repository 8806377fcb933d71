// Package query implements the Query Tree (§3.5) and its translation
// to bleve's own query types for execution. Construction validates
// referenced fields against a *schema.Schema so a query can never reach
// the searcher naming an unknown or non-INDEXED field (a Range also
// accepts a FAST field that is not INDEXED).
package query

import (
	"github.com/Aman-CERP/amanmcp/internal/engineerr"
	"github.com/Aman-CERP/amanmcp/internal/schema"
)

// Occur selects a Boolean clause's contribution (§3.5).
type Occur int

const (
	Must Occur = iota
	Should
	MustNot
	Filter
)

// Query is the tagged union of every supported query variant. Exactly
// one field group is meaningful, selected by Kind.
type Kind int

const (
	KindTerm Kind = iota
	KindPhrase
	KindRange
	KindBoolean
	KindFuzzy
	KindWildcard
	KindFacet
	KindRegex
	KindMatchAll
)

// Bound is one side of a Range query; Infinite means the bound is `*`.
type Bound struct {
	Infinite  bool
	Text      string
	Number    float64
	IsNumber  bool
	Inclusive bool
}

// Clause is one (occur, subquery) pair inside a Boolean query.
type Clause struct {
	Occur Occur
	Query *Query
}

// Query is the immutable, validated Query Tree node (§3.5).
type Query struct {
	Kind  Kind
	Field string

	// Term / Fuzzy / Wildcard / Regex
	Value     string
	MaxEdits  int
	PrefixLen int
	Boost     float64

	// Phrase
	Terms []string
	Slop  int

	// Range
	Lo, Hi Bound
	// IsDateRange selects NumericRangeQuery vs DateRangeQuery translation;
	// set by Range() from the field's declared schema type, since a Bound
	// alone cannot distinguish "numeric" from "date epoch seconds".
	IsDateRange bool

	// Boolean
	Clauses []Clause

	// Facet
	Prefix string
}

func fieldErr(s *schema.Schema, field string) error {
	if !s.IsIndexed(field) {
		return engineerr.New(engineerr.CodeFieldNotIndexed, "field is not INDEXED: "+field, nil).
			WithDetail("field", field)
	}
	return nil
}

// Term constructs a Term query (§3.5).
func Term(s *schema.Schema, field, value string) (*Query, error) {
	if err := fieldErr(s, field); err != nil {
		return nil, err
	}
	return &Query{Kind: KindTerm, Field: field, Value: value, Boost: 1.0}, nil
}

// Phrase constructs a Phrase query; requires the field to carry
// WITH_POSITIONS (§3.5, §4.5).
func Phrase(s *schema.Schema, field string, terms []string, slop int) (*Query, error) {
	if err := fieldErr(s, field); err != nil {
		return nil, err
	}
	if !s.HasPositions(field) {
		return nil, engineerr.New(engineerr.CodePositionsNotStored, "field has no stored positions: "+field, nil).
			WithDetail("field", field)
	}
	return &Query{Kind: KindPhrase, Field: field, Terms: terms, Slop: slop, Boost: 1.0}, nil
}

// Range constructs a Range query over lo/hi bounds. The field must be
// FAST or otherwise numeric/date-typed; Text/Bytes/Bool fields cannot
// be range-queried.
func Range(s *schema.Schema, field string, lo, hi Bound) (*Query, error) {
	if !s.IsIndexed(field) && !s.IsFast(field) {
		return nil, engineerr.New(engineerr.CodeFieldNotIndexed, "field is neither INDEXED nor FAST: "+field, nil).
			WithDetail("field", field)
	}
	if !lo.Infinite && !hi.Infinite && lo.IsNumber != hi.IsNumber {
		return nil, engineerr.New(engineerr.CodeRangeTypeMismatch, "range bounds must share a type", nil).
			WithDetail("field", field)
	}

	h, err := s.FieldByName(field)
	if err != nil {
		return nil, err
	}
	info, err := s.FieldInfo(h)
	if err != nil {
		return nil, err
	}
	switch info.Type {
	case schema.U64, schema.I64, schema.F64, schema.Date:
	default:
		return nil, engineerr.New(engineerr.CodeRangeTypeMismatch, "field is not range-queryable: "+field, nil).
			WithDetail("field", field).WithDetail("type", info.Type.String())
	}

	return &Query{Kind: KindRange, Field: field, Lo: lo, Hi: hi, Boost: 1.0, IsDateRange: info.Type == schema.Date}, nil
}

// Boolean constructs a Boolean query from occur/subquery pairs (§3.5).
func Boolean(clauses []Clause) *Query {
	return &Query{Kind: KindBoolean, Clauses: clauses, Boost: 1.0}
}

// Fuzzy constructs a bounded-edit-distance query. max_edits must lie in
// [0,2] (§4.5); any other value is rejected with FuzzyEditsOutOfRange,
// and there is no option that widens the cap.
func Fuzzy(s *schema.Schema, field, term string, maxEdits, prefixLen int) (*Query, error) {
	if err := fieldErr(s, field); err != nil {
		return nil, err
	}
	if maxEdits < 0 || maxEdits > 2 {
		return nil, engineerr.New(engineerr.CodeFuzzyEditsOutOfRange, "max_edits must be in [0,2]", nil).
			WithDetail("field", field)
	}
	return &Query{Kind: KindFuzzy, Field: field, Value: term, MaxEdits: maxEdits, PrefixLen: prefixLen, Boost: 1.0}, nil
}

// Wildcard constructs a pattern query over `*`/`?` wildcards.
func Wildcard(s *schema.Schema, field, pattern string) (*Query, error) {
	if err := fieldErr(s, field); err != nil {
		return nil, err
	}
	return &Query{Kind: KindWildcard, Field: field, Value: pattern, Boost: 1.0}, nil
}

// Facet constructs a facet-prefix query (§6.5).
func Facet(s *schema.Schema, field, prefix string) (*Query, error) {
	if err := fieldErr(s, field); err != nil {
		return nil, err
	}
	normalized, err := schema.NormalizeFacetPath(prefix)
	if err != nil {
		return nil, err
	}
	return &Query{Kind: KindFacet, Field: field, Prefix: normalized, Boost: 1.0}, nil
}

// Regex constructs a regex-matching query over the term dictionary.
func Regex(s *schema.Schema, field, pattern string) (*Query, error) {
	if err := fieldErr(s, field); err != nil {
		return nil, err
	}
	return &Query{Kind: KindRegex, Field: field, Value: pattern, Boost: 1.0}, nil
}

// MatchAll constructs the query matching every live document.
func MatchAll() *Query {
	return &Query{Kind: KindMatchAll, Boost: 1.0}
}

// WithBoost returns a copy of q with its score contribution scaled by n
// (§4.6 `^n` syntax).
func (q *Query) WithBoost(n float64) *Query {
	cp := *q
	cp.Boost = n
	return &cp
}
