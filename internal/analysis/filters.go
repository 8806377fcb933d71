package analysis

import (
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/snowballstem"
	"github.com/blevesearch/snowballstem/danish"
	"github.com/blevesearch/snowballstem/dutch"
	"github.com/blevesearch/snowballstem/english"
	"github.com/blevesearch/snowballstem/finnish"
	"github.com/blevesearch/snowballstem/french"
	"github.com/blevesearch/snowballstem/german"
	"github.com/blevesearch/snowballstem/hungarian"
	"github.com/blevesearch/snowballstem/italian"
	"github.com/blevesearch/snowballstem/norwegian"
	"github.com/blevesearch/snowballstem/portuguese"
	"github.com/blevesearch/snowballstem/romanian"
	"github.com/blevesearch/snowballstem/russian"
	"github.com/blevesearch/snowballstem/spanish"
	"github.com/blevesearch/snowballstem/swedish"
	"github.com/blevesearch/snowballstem/turkish"

	"github.com/Aman-CERP/amanmcp/internal/engineerr"
)

// stemFunc runs one snowball stemming pass over env and reports whether
// the language package could be applied.
type stemFunc func(env *snowballstem.Env) bool

// snowballStemmers maps a language code to its snowball algorithm.
// Classic snowball has no published algorithm for Arabic, Greek, or
// Tamil; those three fall back to an identity stemmer in stemmerFilter
// below, so `<lang>_stem` for them behaves like `<lang>_text` minus
// stop-word removal rather than failing registration outright.
var snowballStemmers = map[string]stemFunc{
	"english":    english.Stem,
	"french":     french.Stem,
	"german":     german.Stem,
	"spanish":    spanish.Stem,
	"italian":    italian.Stem,
	"portuguese": portuguese.Stem,
	"russian":    russian.Stem,
	"danish":     danish.Stem,
	"dutch":      dutch.Stem,
	"finnish":    finnish.Stem,
	"hungarian":  hungarian.Stem,
	"norwegian":  norwegian.Stem,
	"romanian":   romanian.Stem,
	"swedish":    swedish.Stem,
	"turkish":    turkish.Stem,
}

// stemmerFilter returns a token filter applying the named language's
// snowball stemmer to every token's term.
func stemmerFilter(lang string) (analysis.TokenFilter, error) {
	if !knownLanguage(lang) {
		return nil, engineerr.New(engineerr.CodeInvalidOptions, "unknown stemmer language: "+lang, nil)
	}
	stem, ok := snowballStemmers[lang]
	if !ok {
		return identityFilter{}, nil
	}
	return &snowballFilter{stem: stem}, nil
}

type snowballFilter struct {
	stem stemFunc
}

func (f *snowballFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	for _, tok := range input {
		env := snowballstem.NewEnv(string(tok.Term))
		f.stem(env)
		tok.Term = []byte(env.Current())
	}
	return input
}

// identityFilter passes tokens through unchanged; used for languages
// snowball does not cover.
type identityFilter struct{}

func (identityFilter) Filter(input analysis.TokenStream) analysis.TokenStream { return input }

// stopWordFilter returns a token filter dropping the named language's
// stop words. Lists are intentionally small, curated sets in the
// teacher's own BuildStopWordMap style rather than a reach into bleve's
// internal per-language packages.
func stopWordFilter(lang string) (analysis.TokenFilter, error) {
	words, ok := stopWords[lang]
	if !ok {
		if !knownLanguage(lang) {
			return nil, engineerr.New(engineerr.CodeInvalidOptions, "unknown stop-word language: "+lang, nil)
		}
		words = nil // known language, no curated stop list (e.g. Tamil)
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return &stopWordFilterImpl{words: set}, nil
}

type stopWordFilterImpl struct {
	words map[string]struct{}
}

func (f *stopWordFilterImpl) Filter(input analysis.TokenStream) analysis.TokenStream {
	if len(f.words) == 0 {
		return input
	}
	out := input[:0]
	for _, tok := range input {
		if _, stop := f.words[strings.ToLower(string(tok.Term))]; !stop {
			out = append(out, tok)
		}
	}
	return out
}

// newMaxLengthFilter truncates tokens longer than n bytes instead of
// dropping them, so position/offset accounting downstream stays simple.
func newMaxLengthFilter(n int) analysis.TokenFilter {
	return &maxLengthFilter{n: n}
}

type maxLengthFilter struct{ n int }

func (f *maxLengthFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	for _, tok := range input {
		if len(tok.Term) > f.n {
			tok.Term = tok.Term[:f.n]
		}
	}
	return input
}
