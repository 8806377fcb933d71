package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAssignsHandlesInOrder(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddField("title", Text, IndexedStored, ""))
	require.NoError(t, b.AddField("ts", U64, FastStored, ""))

	s := b.Build()

	title, err := s.FieldByName("title")
	require.NoError(t, err)
	assert.Equal(t, Handle(0), title)

	ts, err := s.FieldByName("ts")
	require.NoError(t, err)
	assert.Equal(t, Handle(1), ts)
}

func TestAddFieldRejectsDuplicateName(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddField("title", Text, IndexedStored, ""))
	err := b.AddField("title", Text, Stored, "")
	require.Error(t, err)
}

func TestAddFieldDefaultsTokenizer(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddField("body", Text, Indexed, ""))
	s := b.Build()
	h, err := s.FieldByName("body")
	require.NoError(t, err)
	info, err := s.FieldInfo(h)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenizer, info.Tokenizer)
}

func TestAddFieldIgnoresTokenizerWhenNotIndexed(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddField("body", Text, Stored, "whitespace"))
	s := b.Build()
	h, _ := s.FieldByName("body")
	info, _ := s.FieldInfo(h)
	assert.Empty(t, info.Tokenizer)
}

func TestWithPositionsRequiresIndexed(t *testing.T) {
	b := NewBuilder()
	err := b.AddField("body", Text, Stored|WithPositions, "")
	assert.Error(t, err)
}

func TestFastRejectedOnTextField(t *testing.T) {
	b := NewBuilder()
	err := b.AddField("title", Text, Fast, "")
	assert.Error(t, err)
}

func TestFacetFieldIsImplicitlyIndexed(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddField("category", Facet, 0, ""))
	s := b.Build()
	assert.True(t, s.IsIndexed("category"))
}

func TestSchemaImmutableAfterBuild(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddField("a", Text, IndexedStored, ""))
	s := b.Build()
	before := s.Len()

	// Further mutation of the builder must not affect the built schema.
	require.NoError(t, b.AddField("b", U64, FastStored, ""))
	assert.Equal(t, before, s.Len())
}

func TestNormalizeFacetPath(t *testing.T) {
	v, err := NormalizeFacetPath("/a/b/c")
	require.NoError(t, err)
	assert.Equal(t, "/a/b/c", v)

	_, err = NormalizeFacetPath("a/b")
	assert.Error(t, err)

	_, err = NormalizeFacetPath("/a//b")
	assert.Error(t, err)
}

func TestUnknownFieldByName(t *testing.T) {
	s := NewBuilder().Build()
	_, err := s.FieldByName("missing")
	assert.Error(t, err)
}

func TestSchemaJSONRoundTrip(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddField("title", Text, IndexedStoredFast|WithPositions, "en_stem"))
	require.NoError(t, b.AddField("price", F64, FastStored, ""))
	require.NoError(t, b.AddField("category", Facet, Stored, ""))
	s := b.Build()

	data, err := s.ToJSON()
	require.NoError(t, err)

	restored, err := FromJSON(data)
	require.NoError(t, err)
	require.Equal(t, s.Len(), restored.Len())

	for _, want := range s.Fields() {
		got, err := restored.FieldInfo(want.Handle)
		require.NoError(t, err)
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Type, got.Type)
		assert.Equal(t, want.Tokenizer, got.Tokenizer)
		assert.Equal(t, want.Options.Has(Indexed), got.Options.Has(Indexed))
		assert.Equal(t, want.Options.Has(Stored), got.Options.Has(Stored))
		assert.Equal(t, want.Options.Has(Fast), got.Options.Has(Fast))
		assert.Equal(t, want.Options.Has(WithPositions), got.Options.Has(WithPositions))
	}
}

func TestSchemaFromJSONRejectsMalformedData(t *testing.T) {
	_, err := FromJSON([]byte("not json"))
	assert.Error(t, err)
}
