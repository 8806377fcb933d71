// Package doc implements the Document Model and validation (§3.2,
// §4.3): host-facing string-keyed maps are normalized, at the API
// boundary, into a field-handle-keyed, type-tagged internal
// representation. Every downstream hot path (indexing, scoring)
// operates on that internal representation, never on the raw map.
package doc

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/Aman-CERP/amanmcp/internal/engineerr"
	"github.com/Aman-CERP/amanmcp/internal/schema"
)

// Value is a single normalized field value. Exactly one of the typed
// fields is meaningful, selected by Type.
type Value struct {
	Type  schema.FieldType
	Text  string
	Int   int64
	Float float64
	Bool  bool
	// Date holds the normalized epoch-second representation (§4.3).
	Date  int64
	Bytes []byte
	// Facet holds the normalized `/a/b/c` path (§3.2, §6.5).
	Facet string
}

// Field is a normalized, possibly multi-valued field (§3.2: "multi-
// valued fields are permitted for all types").
type Field struct {
	Handle schema.Handle
	Values []Value
}

// Document is the internal, field-handle-keyed representation that
// flows to the writer (§4.3). It has no externally visible identity
// (§3.2): the engine assigns an internal document-id within a segment.
type Document struct {
	Fields []Field
}

// Raw is the host-facing, string-keyed document shape accepted by
// Validate. A value is either a single scalar or a slice of scalars
// (multi-valued field).
type Raw map[string]interface{}

// Options controls Validate's handling of unknown fields.
type Options struct {
	// Permissive silently drops unknown field names instead of
	// rejecting the document (§3.2).
	Permissive bool
}

// Validate normalizes raw against schema, producing the internal
// Document representation or a SchemaMismatch-class error (§4.3).
func Validate(raw Raw, s *schema.Schema, opts Options) (*Document, error) {
	out := &Document{}

	for name, v := range raw {
		handle, err := s.FieldByName(name)
		if err != nil {
			if opts.Permissive {
				continue
			}
			return nil, engineerr.New(engineerr.CodeSchemaMismatch, "unknown field: "+name, nil).
				WithDetail("field", name)
		}

		info, err := s.FieldInfo(handle)
		if err != nil {
			return nil, err
		}

		scalars := asSlice(v)
		values := make([]Value, 0, len(scalars))
		for _, raw := range scalars {
			val, err := normalizeValue(info, raw)
			if err != nil {
				return nil, err
			}
			values = append(values, val)
		}

		out.Fields = append(out.Fields, Field{Handle: handle, Values: values})
	}

	return out, nil
}

// asSlice normalizes a raw value into a slice, so single-valued and
// multi-valued fields share one code path.
func asSlice(v interface{}) []interface{} {
	switch vv := v.(type) {
	case []interface{}:
		return vv
	case []string:
		out := make([]interface{}, len(vv))
		for i, s := range vv {
			out[i] = s
		}
		return out
	default:
		return []interface{}{v}
	}
}

func normalizeValue(info schema.FieldEntry, raw interface{}) (Value, error) {
	mismatch := func(msg string) error {
		return engineerr.New(engineerr.CodeSchemaMismatch, msg, nil).
			WithDetail("field", info.Name).
			WithDetail("type", info.Type.String())
	}

	switch info.Type {
	case schema.Text:
		s, ok := raw.(string)
		if !ok {
			return Value{}, mismatch("expected string for Text field")
		}
		return Value{Type: schema.Text, Text: s}, nil

	case schema.U64, schema.I64:
		i, err := coerceInt(raw)
		if err != nil {
			return Value{}, mismatch(err.Error())
		}
		if info.Type == schema.U64 && i < 0 {
			return Value{}, mismatch("negative value for U64 field")
		}
		return Value{Type: info.Type, Int: i}, nil

	case schema.F64:
		f, err := coerceFloat(raw)
		if err != nil {
			return Value{}, mismatch(err.Error())
		}
		return Value{Type: schema.F64, Float: f}, nil

	case schema.Bool:
		b, ok := raw.(bool)
		if !ok {
			return Value{}, mismatch("expected bool for Bool field")
		}
		return Value{Type: schema.Bool, Bool: b}, nil

	case schema.Date:
		epoch, err := coerceDate(raw)
		if err != nil {
			return Value{}, mismatch(err.Error())
		}
		return Value{Type: schema.Date, Date: epoch}, nil

	case schema.Bytes:
		b, err := coerceBytes(raw)
		if err != nil {
			return Value{}, mismatch(err.Error())
		}
		return Value{Type: schema.Bytes, Bytes: b}, nil

	case schema.Json:
		s, ok := raw.(string)
		if !ok {
			return Value{}, mismatch("expected JSON-encoded string for Json field")
		}
		return Value{Type: schema.Json, Text: s}, nil

	case schema.IpAddr:
		s, ok := raw.(string)
		if !ok {
			return Value{}, mismatch("expected string for IpAddr field")
		}
		return Value{Type: schema.IpAddr, Text: s}, nil

	case schema.Facet:
		s, ok := raw.(string)
		if !ok {
			return Value{}, mismatch("expected string for Facet field")
		}
		normalized, err := schema.NormalizeFacetPath(s)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: schema.Facet, Facet: normalized}, nil

	default:
		return Value{}, mismatch("unsupported field type")
	}
}

// coerceInt permits lossless string-to-number coercion (§3.2) and
// rejects floats with a fractional part.
func coerceInt(raw interface{}) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("float with fractional part cannot coerce to integer field")
		}
		return int64(v), nil
	case string:
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot coerce %q to integer", v)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("unsupported value kind for integer field")
	}
}

func coerceFloat(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot coerce %q to float", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unsupported value kind for float field")
	}
}

// coerceDate parses an ISO-8601 string (or accepts an already-epoch
// int/float) into the normalized epoch-second representation (§4.3).
func coerceDate(raw interface{}) (int64, error) {
	switch v := raw.(type) {
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as ISO-8601 date", v)
		}
		return t.Unix(), nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case time.Time:
		return v.Unix(), nil
	default:
		return 0, fmt.Errorf("unsupported value kind for Date field")
	}
}

func coerceBytes(raw interface{}) ([]byte, error) {
	switch v := raw.(type) {
	case []byte:
		return v, nil
	case string:
		b, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("cannot base64-decode Bytes field: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported value kind for Bytes field")
	}
}
