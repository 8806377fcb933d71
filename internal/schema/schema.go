// Package schema implements the Schema component (§3.1, §4.1): an
// ordered sequence of typed field declarations, built once and then
// immutable and shareable across threads without further
// synchronization.
package schema

import (
	"strings"

	"github.com/Aman-CERP/amanmcp/internal/engineerr"
)

// FieldType is the set of supported field value kinds (§3.1).
type FieldType int

const (
	Text FieldType = iota
	U64
	I64
	F64
	Bool
	Date
	Bytes
	Json
	IpAddr
	Facet
)

func (t FieldType) String() string {
	switch t {
	case Text:
		return "Text"
	case U64:
		return "U64"
	case I64:
		return "I64"
	case F64:
		return "F64"
	case Bool:
		return "Bool"
	case Date:
		return "Date"
	case Bytes:
		return "Bytes"
	case Json:
		return "Json"
	case IpAddr:
		return "IpAddr"
	case Facet:
		return "Facet"
	default:
		return "Unknown"
	}
}

// Options is a bitset of indexing options (§3.1).
type Options uint8

const (
	Indexed Options = 1 << iota
	Stored
	Fast
	WithPositions
)

// Composites mirroring the "convenience composites" named in §4.1.
const (
	IndexedStored     = Indexed | Stored
	FastStored        = Fast | Stored
	IndexedStoredFast = Indexed | Stored | Fast
)

func (o Options) Has(flag Options) bool { return o&flag != 0 }

// Handle is the small stable integer identifying a field, assigned in
// declaration order at Build time (§3.1). It is the only identifier
// persisted inside a segment.
type Handle int

// FieldEntry is a single declared field, as returned by FieldInfo.
type FieldEntry struct {
	Handle    Handle
	Name      string
	Type      FieldType
	Options   Options
	Tokenizer string // only meaningful for Text fields
}

// DefaultTokenizer is used by a Text field that does not name one
// explicitly (§3.1).
const DefaultTokenizer = "default"

// Builder accumulates field declarations before Build freezes them.
type Builder struct {
	fields    []FieldEntry
	byName    map[string]int
}

// NewBuilder returns an empty, mutable schema builder.
func NewBuilder() *Builder {
	return &Builder{byName: make(map[string]int)}
}

// AddField declares a field. Options are validated against the type
// constraints in §3.1:
//   - only Text may carry a Tokenizer;
//   - WithPositions requires Indexed (phrase queries need both);
//   - Fast is only meaningful on U64/I64/F64/Bool/Date (columnar access);
//   - Facet fields are implicitly Indexed regardless of the options
//     passed, since a facet that cannot be queried is useless.
func (b *Builder) AddField(name string, typ FieldType, opts Options, tokenizer string) error {
	if name == "" {
		return engineerr.New(engineerr.CodeInvalidOptions, "field name must not be empty", nil)
	}
	if _, exists := b.byName[name]; exists {
		return engineerr.New(engineerr.CodeFieldExists, "field already declared: "+name, nil).
			WithDetail("field", name)
	}

	if opts.Has(WithPositions) && !opts.Has(Indexed) {
		return engineerr.New(engineerr.CodeInvalidOptions, "WITH_POSITIONS requires INDEXED", nil).
			WithDetail("field", name)
	}
	if opts.Has(Fast) {
		switch typ {
		case U64, I64, F64, Bool, Date:
		default:
			return engineerr.New(engineerr.CodeInvalidOptions, "FAST is only valid on numeric, bool, or date fields", nil).
				WithDetail("field", name).WithDetail("type", typ.String())
		}
	}
	if tokenizer != "" && typ != Text {
		return engineerr.New(engineerr.CodeInvalidOptions, "TOKENIZER is only valid on Text fields", nil).
			WithDetail("field", name)
	}

	entry := FieldEntry{
		Name:    name,
		Type:    typ,
		Options: opts,
	}

	switch typ {
	case Text:
		if opts.Has(Indexed) {
			if tokenizer == "" {
				tokenizer = DefaultTokenizer
			}
			entry.Tokenizer = tokenizer
		}
		// TOKENIZER is ignored entirely when the field isn't indexed (§3.1).
	case Facet:
		// Facet fields are always indexed as hierarchical paths; STORED
		// remains optional and is whatever the caller passed.
		entry.Options |= Indexed
	}

	b.fields = append(b.fields, entry)
	b.byName[name] = len(b.fields) - 1
	return nil
}

// Build freezes the builder into an immutable Schema and assigns field
// handles in declaration order.
func (b *Builder) Build() *Schema {
	fields := make([]FieldEntry, len(b.fields))
	byName := make(map[string]Handle, len(b.fields))
	for i, f := range b.fields {
		f.Handle = Handle(i)
		fields[i] = f
		byName[f.Name] = f.Handle
	}
	return &Schema{fields: fields, byName: byName}
}

// Schema is an immutable, built set of field declarations. Safe for
// concurrent use by any number of goroutines without further
// synchronization (§4.1 contract).
type Schema struct {
	fields []FieldEntry
	byName map[string]Handle
}

// FieldByName resolves a declared field's handle.
func (s *Schema) FieldByName(name string) (Handle, error) {
	h, ok := s.byName[name]
	if !ok {
		return 0, engineerr.New(engineerr.CodeUnknownField, "unknown field: "+name, nil).
			WithDetail("field", name)
	}
	return h, nil
}

// FieldInfo returns the full declaration for a handle.
func (s *Schema) FieldInfo(h Handle) (FieldEntry, error) {
	if int(h) < 0 || int(h) >= len(s.fields) {
		return FieldEntry{}, engineerr.New(engineerr.CodeUnknownField, "no field with that handle", nil)
	}
	return s.fields[h], nil
}

// Fields returns every declared field, in handle order. The returned
// slice is a copy; mutating it does not affect the schema.
func (s *Schema) Fields() []FieldEntry {
	out := make([]FieldEntry, len(s.fields))
	copy(out, s.fields)
	return out
}

// Len reports the number of declared fields.
func (s *Schema) Len() int { return len(s.fields) }

// IsIndexed reports whether the named field exists and is INDEXED;
// query construction uses this to validate field references (§3.5).
func (s *Schema) IsIndexed(name string) bool {
	h, err := s.FieldByName(name)
	if err != nil {
		return false
	}
	return s.fields[h].Options.Has(Indexed)
}

// IsFast reports whether the named field exists and is FAST.
func (s *Schema) IsFast(name string) bool {
	h, err := s.FieldByName(name)
	if err != nil {
		return false
	}
	return s.fields[h].Options.Has(Fast)
}

// HasPositions reports whether the named field supports phrase queries.
func (s *Schema) HasPositions(name string) bool {
	h, err := s.FieldByName(name)
	if err != nil {
		return false
	}
	return s.fields[h].Options.Has(WithPositions)
}

// NormalizeFacetPath validates and normalizes a facet value per §6.5:
// a `/`-delimited path whose segments are non-empty. Returns an error
// if the value does not start with `/` after trimming surrounding
// whitespace (§3.2).
func NormalizeFacetPath(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "/") {
		return "", engineerr.New(engineerr.CodeSchemaMismatch, "facet value must start with /", nil).
			WithDetail("value", value)
	}
	parts := strings.Split(trimmed, "/")
	for _, p := range parts[1:] {
		if p == "" {
			return "", engineerr.New(engineerr.CodeSchemaMismatch, "facet path segments must be non-empty", nil).
				WithDetail("value", value)
		}
	}
	return trimmed, nil
}
