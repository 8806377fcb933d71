package segment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanmcp/internal/analysis"
	"github.com/Aman-CERP/amanmcp/internal/doc"
	"github.com/Aman-CERP/amanmcp/internal/schema"
	"github.com/Aman-CERP/amanmcp/internal/storage"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	b := schema.NewBuilder()
	require.NoError(t, b.AddField("title", schema.Text, schema.IndexedStored, ""))
	require.NoError(t, b.AddField("price", schema.F64, schema.FastStored, ""))
	require.NoError(t, b.AddField("category", schema.Facet, schema.Stored, ""))
	return b.Build()
}

func testRegistry(t *testing.T) *analysis.Registry {
	t.Helper()
	r := analysis.New()
	require.NoError(t, r.RegisterDefaults())
	return r
}

func TestBuilderBuildsSearchableSegment(t *testing.T) {
	s := testSchema(t)
	backend := storage.NewMemory()
	builder := NewBuilder(s, testRegistry(t), backend)

	raw := doc.Raw{"title": "the quick fox", "price": 9.5, "category": "/animals/fox"}
	normalized, err := doc.Validate(raw, s, doc.Options{})
	require.NoError(t, err)
	builder.Add(raw, normalized)

	assert.Equal(t, 1, builder.Len())

	seg, err := builder.Build(context.Background())
	require.NoError(t, err)
	defer seg.Close()

	assert.Equal(t, 1, seg.DocCount())
	assert.True(t, seg.IsLive(0))
}

func TestBuilderFastColumnHoldsTypedValues(t *testing.T) {
	s := testSchema(t)
	backend := storage.NewMemory()
	builder := NewBuilder(s, testRegistry(t), backend)

	for _, price := range []float64{1.0, 2.5, 3.25} {
		raw := doc.Raw{"title": "x", "price": price, "category": "/a"}
		normalized, err := doc.Validate(raw, s, doc.Options{})
		require.NoError(t, err)
		builder.Add(raw, normalized)
	}

	seg, err := builder.Build(context.Background())
	require.NoError(t, err)
	defer seg.Close()

	col, err := seg.FastColumnByName("price")
	require.NoError(t, err)
	require.Len(t, col.Values, 3)
	assert.Equal(t, 2.5, col.Values[1].Float)
}

func TestBuilderFastColumnRejectsNonFastField(t *testing.T) {
	s := testSchema(t)
	seg, err := NewBuilder(s, testRegistry(t), storage.NewMemory()).Build(context.Background())
	require.NoError(t, err)
	defer seg.Close()

	_, err = seg.FastColumnByName("title")
	assert.Error(t, err)
}

func TestStoredFieldsRoundTrip(t *testing.T) {
	s := testSchema(t)
	backend := storage.NewMemory()
	builder := NewBuilder(s, testRegistry(t), backend)

	raw := doc.Raw{"title": "hello world", "price": 4.0, "category": "/x/y"}
	normalized, err := doc.Validate(raw, s, doc.Options{})
	require.NoError(t, err)
	builder.Add(raw, normalized)

	seg, err := builder.Build(context.Background())
	require.NoError(t, err)
	defer seg.Close()

	stored, err := seg.StoredFields(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "hello world", stored["title"])
	assert.Equal(t, "/x/y", stored["category"])
}

func TestMarkDeletedAffectsIsLive(t *testing.T) {
	s := testSchema(t)
	backend := storage.NewMemory()
	builder := NewBuilder(s, testRegistry(t), backend)

	raw := doc.Raw{"title": "a", "price": 1.0, "category": "/a"}
	normalized, err := doc.Validate(raw, s, doc.Options{})
	require.NoError(t, err)
	builder.Add(raw, normalized)

	seg, err := builder.Build(context.Background())
	require.NoError(t, err)
	defer seg.Close()

	require.True(t, seg.IsLive(0))
	extra := seg.Deletions()
	extra.Add(0)
	seg.MarkDeleted(extra)
	assert.False(t, seg.IsLive(0))
}

func TestWithDeletionsDoesNotMutateOriginal(t *testing.T) {
	s := testSchema(t)
	backend := storage.NewMemory()
	builder := NewBuilder(s, testRegistry(t), backend)

	raw := doc.Raw{"title": "a", "price": 1.0, "category": "/a"}
	normalized, err := doc.Validate(raw, s, doc.Options{})
	require.NoError(t, err)
	builder.Add(raw, normalized)

	seg, err := builder.Build(context.Background())
	require.NoError(t, err)
	defer seg.Close()

	extra := seg.Deletions()
	extra.Add(0)
	updated := seg.WithDeletions(extra)

	assert.True(t, seg.IsLive(0), "original segment must stay untouched")
	assert.False(t, updated.IsLive(0))
}
