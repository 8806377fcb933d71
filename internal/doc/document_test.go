package doc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanmcp/internal/schema"
)

func buildTestSchema(t *testing.T) *schema.Schema {
	t.Helper()
	b := schema.NewBuilder()
	require.NoError(t, b.AddField("title", schema.Text, schema.IndexedStored, ""))
	require.NoError(t, b.AddField("ts", schema.U64, schema.FastStored, ""))
	require.NoError(t, b.AddField("price", schema.F64, schema.Fast, ""))
	require.NoError(t, b.AddField("category", schema.Facet, schema.Stored, ""))
	require.NoError(t, b.AddField("tags", schema.Text, schema.IndexedStored, ""))
	return b.Build()
}

func TestValidateNormalizesScalars(t *testing.T) {
	s := buildTestSchema(t)
	d, err := Validate(Raw{"title": "Fox", "ts": 100}, s, Options{})
	require.NoError(t, err)
	require.Len(t, d.Fields, 2)
}

func TestValidateRejectsUnknownField(t *testing.T) {
	s := buildTestSchema(t)
	_, err := Validate(Raw{"nope": "x"}, s, Options{})
	assert.Error(t, err)
}

func TestValidatePermissiveDropsUnknownField(t *testing.T) {
	s := buildTestSchema(t)
	d, err := Validate(Raw{"nope": "x", "title": "Fox"}, s, Options{Permissive: true})
	require.NoError(t, err)
	require.Len(t, d.Fields, 1)
}

func TestValidateCoercesNumericString(t *testing.T) {
	s := buildTestSchema(t)
	d, err := Validate(Raw{"ts": "100"}, s, Options{})
	require.NoError(t, err)
	require.Len(t, d.Fields[0].Values, 1)
	assert.Equal(t, int64(100), d.Fields[0].Values[0].Int)
}

func TestValidateRejectsFractionalFloatForInteger(t *testing.T) {
	s := buildTestSchema(t)
	_, err := Validate(Raw{"ts": 1.5}, s, Options{})
	assert.Error(t, err)
}

func TestValidateAllowsWholeFloatForInteger(t *testing.T) {
	s := buildTestSchema(t)
	d, err := Validate(Raw{"ts": 4.0}, s, Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), d.Fields[0].Values[0].Int)
}

func TestValidateMultiValuedField(t *testing.T) {
	s := buildTestSchema(t)
	d, err := Validate(Raw{"tags": []interface{}{"a", "b", "c"}}, s, Options{})
	require.NoError(t, err)
	require.Len(t, d.Fields[0].Values, 3)
}

func TestValidateFacetMustStartWithSlash(t *testing.T) {
	s := buildTestSchema(t)
	_, err := Validate(Raw{"category": "electronics"}, s, Options{})
	assert.Error(t, err)

	d, err := Validate(Raw{"category": "/electronics/phones"}, s, Options{})
	require.NoError(t, err)
	assert.Equal(t, "/electronics/phones", d.Fields[0].Values[0].Facet)
}

func TestValidateWrongKindRejected(t *testing.T) {
	s := buildTestSchema(t)
	_, err := Validate(Raw{"title": 42}, s, Options{})
	assert.Error(t, err)
}
