package engine

import "github.com/Aman-CERP/amanmcp/internal/schema"

// Schema re-exports (§3.1/§4.1), so a host builds a schema without
// importing internal/schema directly.
type (
	Schema       = schema.Schema
	SchemaBuilder = schema.Builder
	FieldType    = schema.FieldType
	FieldOptions = schema.Options
	FieldEntry   = schema.FieldEntry
	FieldHandle  = schema.Handle
)

const (
	Text   = schema.Text
	U64    = schema.U64
	I64    = schema.I64
	F64    = schema.F64
	Bool   = schema.Bool
	Date   = schema.Date
	Bytes  = schema.Bytes
	Json   = schema.Json
	IpAddr = schema.IpAddr
	Facet  = schema.Facet
)

const (
	Indexed       = schema.Indexed
	Stored        = schema.Stored
	Fast          = schema.Fast
	WithPositions = schema.WithPositions

	IndexedStored     = schema.IndexedStored
	FastStored        = schema.FastStored
	IndexedStoredFast = schema.IndexedStoredFast
)

// NewSchemaBuilder starts a new Schema declaration (§4.1 "new").
func NewSchemaBuilder() *SchemaBuilder { return schema.NewBuilder() }

// NormalizeFacetPath canonicalizes a hierarchical facet path per the
// grammar in §3.1.
func NormalizeFacetPath(value string) (string, error) { return schema.NormalizeFacetPath(value) }

// SchemaFromJSON rebuilds a Schema from the bytes produced by a
// Schema's ToJSON method, so a host can persist a schema declaration
// alongside an index directory and reload it on the next process start
// instead of re-declaring it in code.
func SchemaFromJSON(data []byte) (*Schema, error) { return schema.FromJSON(data) }
