package schema

import "encoding/json"

// jsonField is the on-the-wire representation of a FieldEntry, used so
// a schema can be persisted alongside an index directory and reloaded
// without the host re-declaring it (tantivy's meta.json does the same
// for its schema).
type jsonField struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Indexed   bool   `json:"indexed"`
	Stored    bool   `json:"stored"`
	Fast      bool   `json:"fast"`
	Positions bool   `json:"positions"`
	Tokenizer string `json:"tokenizer,omitempty"`
}

var typeNames = map[FieldType]string{
	Text: "text", U64: "u64", I64: "i64", F64: "f64", Bool: "bool",
	Date: "date", Bytes: "bytes", Json: "json", IpAddr: "ip_addr", Facet: "facet",
}

var namesToType = func() map[string]FieldType {
	m := make(map[string]FieldType, len(typeNames))
	for t, n := range typeNames {
		m[n] = t
	}
	return m
}()

// ToJSON serializes the schema's field declarations, in handle order.
func (s *Schema) ToJSON() ([]byte, error) {
	out := make([]jsonField, len(s.fields))
	for i, f := range s.fields {
		out[i] = jsonField{
			Name:      f.Name,
			Type:      typeNames[f.Type],
			Indexed:   f.Options.Has(Indexed),
			Stored:    f.Options.Has(Stored),
			Fast:      f.Options.Has(Fast),
			Positions: f.Options.Has(WithPositions),
			Tokenizer: f.Tokenizer,
		}
	}
	return json.Marshal(out)
}

// FromJSON rebuilds a Schema from bytes produced by ToJSON. Handles are
// reassigned in array order, matching the original declaration order.
func FromJSON(data []byte) (*Schema, error) {
	var fields []jsonField
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}

	b := NewBuilder()
	for _, f := range fields {
		var opts Options
		if f.Indexed {
			opts |= Indexed
		}
		if f.Stored {
			opts |= Stored
		}
		if f.Fast {
			opts |= Fast
		}
		if f.Positions {
			opts |= WithPositions
		}
		if err := b.AddField(f.Name, namesToType[f.Type], opts, f.Tokenizer); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}
