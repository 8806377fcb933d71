package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanmcp/internal/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	b := schema.NewBuilder()
	require.NoError(t, b.AddField("title", schema.Text, schema.IndexedStored|schema.WithPositions, ""))
	require.NoError(t, b.AddField("body", schema.Text, schema.Stored, "")) // not indexed
	require.NoError(t, b.AddField("price", schema.F64, schema.FastStored, ""))
	require.NoError(t, b.AddField("published", schema.Date, schema.Fast, ""))
	require.NoError(t, b.AddField("category", schema.Facet, schema.Stored, ""))
	return b.Build()
}

func TestTermRejectsNonIndexedField(t *testing.T) {
	s := testSchema(t)
	_, err := Term(s, "body", "hello")
	assert.Error(t, err)
}

func TestTermAcceptsIndexedField(t *testing.T) {
	s := testSchema(t)
	q, err := Term(s, "title", "hello")
	require.NoError(t, err)
	assert.Equal(t, KindTerm, q.Kind)
}

func TestPhraseRequiresPositions(t *testing.T) {
	s := testSchema(t)
	b2 := schema.NewBuilder()
	require.NoError(t, b2.AddField("title", schema.Text, schema.IndexedStored, ""))
	noPositions := b2.Build()

	_, err := Phrase(noPositions, "title", []string{"a", "b"}, 0)
	assert.Error(t, err)

	q, err := Phrase(s, "title", []string{"a", "b"}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, q.Slop)
}

func TestRangeRejectsNonNumericField(t *testing.T) {
	s := testSchema(t)
	_, err := Range(s, "title", Bound{Infinite: true}, Bound{Number: 1, IsNumber: true})
	assert.Error(t, err)
}

func TestRangeMarksDateRange(t *testing.T) {
	s := testSchema(t)
	q, err := Range(s, "published", Bound{Infinite: true}, Bound{Number: 100, IsNumber: true})
	require.NoError(t, err)
	assert.True(t, q.IsDateRange)
}

func TestFuzzyRejectsOutOfRangeEdits(t *testing.T) {
	s := testSchema(t)
	_, err := Fuzzy(s, "title", "helo", 3, 0)
	assert.Error(t, err)

	q, err := Fuzzy(s, "title", "helo", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, q.MaxEdits)
}

func TestFacetNormalizesPrefix(t *testing.T) {
	s := testSchema(t)
	q, err := Facet(s, "category", "/animals/fox")
	require.NoError(t, err)
	assert.Equal(t, "/animals/fox", q.Prefix)

	_, err = Facet(s, "category", "no-leading-slash")
	assert.Error(t, err)
}

func TestWithBoostDoesNotMutateOriginal(t *testing.T) {
	s := testSchema(t)
	q, err := Term(s, "title", "hello")
	require.NoError(t, err)
	boosted := q.WithBoost(2.0)
	assert.Equal(t, 1.0, q.Boost)
	assert.Equal(t, 2.0, boosted.Boost)
}

func TestToBleveTranslatesEveryKind(t *testing.T) {
	s := testSchema(t)
	cases := []*Query{
		MatchAll(),
		mustQuery(Term(s, "title", "fox")),
		mustQuery(Phrase(s, "title", []string{"quick", "fox"}, 1)),
		mustQuery(Range(s, "price", Bound{Infinite: true}, Bound{Number: 10, IsNumber: true, Inclusive: true})),
		mustQuery(Fuzzy(s, "title", "fox", 1, 0)),
		mustQuery(Wildcard(s, "title", "fo*")),
		mustQuery(Facet(s, "category", "/animals")),
		mustQuery(Regex(s, "title", "f.x")),
	}
	for _, q := range cases {
		bq, err := ToBleve(q)
		require.NoError(t, err)
		assert.NotNil(t, bq)
	}
}

func TestToBleveBooleanComposesClauses(t *testing.T) {
	s := testSchema(t)
	must := mustQuery(Term(s, "title", "fox"))
	mustNot := mustQuery(Term(s, "title", "dog"))
	q := Boolean([]Clause{{Occur: Must, Query: must}, {Occur: MustNot, Query: mustNot}})
	bq, err := ToBleve(q)
	require.NoError(t, err)
	assert.NotNil(t, bq)
}

func mustQuery(q *Query, err error) *Query {
	if err != nil {
		panic(err)
	}
	return q
}
