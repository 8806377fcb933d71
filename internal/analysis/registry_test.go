package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefaultRegistry(t *testing.T) *Registry {
	t.Helper()
	r := New()
	require.NoError(t, r.RegisterDefaults())
	return r
}

func TestDefaultLowercasesAndSplits(t *testing.T) {
	r := newDefaultRegistry(t)
	toks, err := r.Tokenize("default", "The Quick Brown Fox")
	require.NoError(t, err)
	assert.Equal(t, []string{"the", "quick", "brown", "fox"}, toks)
}

func TestKeywordIsOneToken(t *testing.T) {
	r := newDefaultRegistry(t)
	toks, err := r.Tokenize("keyword", "Hello World")
	require.NoError(t, err)
	require.Len(t, toks, 1)
	assert.Equal(t, "Hello World", toks[0])
}

func TestWhitespacePreservesCase(t *testing.T) {
	r := newDefaultRegistry(t)
	toks, err := r.Tokenize("whitespace", "Hello World")
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello", "World"}, toks)
}

func TestEnglishStemCollapsesPlural(t *testing.T) {
	r := newDefaultRegistry(t)
	foxes, err := r.Tokenize("english_stem", "foxes are running")
	require.NoError(t, err)
	fox, err := r.Tokenize("english_stem", "fox")
	require.NoError(t, err)
	assert.Contains(t, foxes, fox[0])
}

func TestEnglishTextRemovesStopWords(t *testing.T) {
	r := newDefaultRegistry(t)
	toks, err := r.Tokenize("english_text", "the quick fox")
	require.NoError(t, err)
	assert.NotContains(t, toks, "the")
	assert.Contains(t, toks, "quick")
}

func TestTokenizeIsDeterministic(t *testing.T) {
	r := newDefaultRegistry(t)
	a, err := r.TokenizeDetailed("default", "hello world")
	require.NoError(t, err)
	b, err := r.TokenizeDetailed("default", "hello world")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTokenizeDetailedOffsetsAddressOriginalInput(t *testing.T) {
	r := newDefaultRegistry(t)
	text := "Hello World"
	toks, err := r.TokenizeDetailed("default", text)
	require.NoError(t, err)
	require.Len(t, toks, 2)
	for _, tok := range toks {
		assert.Less(t, tok.ByteStart, tok.ByteEnd)
		assert.Equal(t, tok.Text, strLower(text[tok.ByteStart:tok.ByteEnd]))
	}
	assert.LessOrEqual(t, toks[0].Position, toks[1].Position)
}

func strLower(s string) string {
	// local helper so this test file doesn't need to import strings just
	// for one call
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func TestRegisterRegexTokenizer(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterRegex("digits", `\d+`))
	toks, err := r.Tokenize("digits", "room 42 and 7")
	require.NoError(t, err)
	assert.Equal(t, []string{"42", "7"}, toks)
}

func TestRegisterNgram(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterNgram("tri", 3, 3, false))
	toks, err := r.Tokenize("tri", "hello")
	require.NoError(t, err)
	assert.Equal(t, []string{"hel", "ell", "llo"}, toks)
}

func TestRegisterNgramEdgeOnly(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterNgram("edge", 1, 3, true))
	toks, err := r.Tokenize("edge", "hello")
	require.NoError(t, err)
	assert.Equal(t, []string{"h", "he", "hel"}, toks)
}

func TestListIncludesDefaults(t *testing.T) {
	r := newDefaultRegistry(t)
	names := r.List()
	assert.Contains(t, names, "default")
	assert.Contains(t, names, "english_stem")
	assert.Contains(t, names, "turkish_text")
}

func TestUnknownTokenizerErrors(t *testing.T) {
	r := New()
	_, err := r.Tokenize("does-not-exist", "x")
	assert.Error(t, err)
}
