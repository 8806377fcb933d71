package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSingleTerm(t *testing.T) {
	s := testSchema(t)
	q, err := Parse(s, "fox", "title")
	require.NoError(t, err)
	assert.Equal(t, KindTerm, q.Kind)
	assert.Equal(t, "title", q.Field)
}

func TestParseFieldPrefixedTerm(t *testing.T) {
	s := testSchema(t)
	q, err := Parse(s, "title:fox", "title")
	require.NoError(t, err)
	assert.Equal(t, "title", q.Field)
	assert.Equal(t, "fox", q.Value)
}

func TestParseAdjacentTermsDefaultToAnd(t *testing.T) {
	s := testSchema(t)
	q, err := Parse(s, "quick fox", "title")
	require.NoError(t, err)
	require.Equal(t, KindBoolean, q.Kind)
	require.Len(t, q.Clauses, 2)
	for _, c := range q.Clauses {
		assert.Equal(t, Must, c.Occur)
	}
}

func TestParseOrProducesShouldClauses(t *testing.T) {
	s := testSchema(t)
	q, err := Parse(s, "fox OR dog", "title")
	require.NoError(t, err)
	require.Equal(t, KindBoolean, q.Kind)
	require.Len(t, q.Clauses, 2)
	for _, c := range q.Clauses {
		assert.Equal(t, Should, c.Occur)
	}
}

func TestParseNotNegatesClause(t *testing.T) {
	s := testSchema(t)
	q, err := Parse(s, "NOT fox", "title")
	require.NoError(t, err)
	require.Equal(t, KindBoolean, q.Kind)
	require.Len(t, q.Clauses, 1)
	assert.Equal(t, MustNot, q.Clauses[0].Occur)
}

func TestParsePhraseWithSlop(t *testing.T) {
	s := testSchema(t)
	q, err := Parse(s, `"quick fox"~2`, "title")
	require.NoError(t, err)
	assert.Equal(t, KindPhrase, q.Kind)
	assert.Equal(t, []string{"quick", "fox"}, q.Terms)
	assert.Equal(t, 2, q.Slop)
}

func TestParseFuzzyTerm(t *testing.T) {
	s := testSchema(t)
	q, err := Parse(s, "fox~1", "title")
	require.NoError(t, err)
	assert.Equal(t, KindFuzzy, q.Kind)
	assert.Equal(t, 1, q.MaxEdits)
}

func TestParseWildcardTerm(t *testing.T) {
	s := testSchema(t)
	q, err := Parse(s, "fo*", "title")
	require.NoError(t, err)
	assert.Equal(t, KindWildcard, q.Kind)
}

func TestParseOpenEndedRange(t *testing.T) {
	s := testSchema(t)
	q, err := Parse(s, "price:[* TO 10]", "title")
	require.NoError(t, err)
	assert.Equal(t, KindRange, q.Kind)
	assert.True(t, q.Lo.Infinite)
	assert.False(t, q.Hi.Infinite)
	assert.Equal(t, 10.0, q.Hi.Number)
	assert.True(t, q.Hi.Inclusive)
}

func TestParseExclusiveRange(t *testing.T) {
	s := testSchema(t)
	q, err := Parse(s, "price:{1 TO 5}", "title")
	require.NoError(t, err)
	assert.False(t, q.Lo.Inclusive)
	assert.False(t, q.Hi.Inclusive)
}

func TestParseGroupDistributesField(t *testing.T) {
	s := testSchema(t)
	q, err := Parse(s, "title:(quick fox)", "title")
	require.NoError(t, err)
	require.Equal(t, KindBoolean, q.Kind)
	for _, c := range q.Clauses {
		assert.Equal(t, "title", c.Query.Field)
	}
}

func TestParseBoostSuffix(t *testing.T) {
	s := testSchema(t)
	q, err := Parse(s, "title:fox^2.5", "title")
	require.NoError(t, err)
	assert.Equal(t, 2.5, q.Boost)
}

func TestParseUnterminatedPhraseFails(t *testing.T) {
	s := testSchema(t)
	_, err := Parse(s, `"quick fox`, "title")
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

func TestParseTrailingGarbageFails(t *testing.T) {
	s := testSchema(t)
	_, err := Parse(s, "fox)", "title")
	assert.Error(t, err)
}

func TestParseUnknownFieldFails(t *testing.T) {
	s := testSchema(t)
	_, err := Parse(s, "nope:fox", "title")
	assert.Error(t, err)
}
