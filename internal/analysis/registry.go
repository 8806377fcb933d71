// Package analysis implements the Tokenizer Registry (§3.4, §4.2): a
// named, process-wide catalog of tokenizers and analyzers. It is built
// on top of bleve's analysis package so that the same Token type flows
// all the way into segment construction without a translation layer.
package analysis

import (
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/regexp"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/whitespace"
	bleveRegistry "github.com/blevesearch/bleve/v2/registry"

	"github.com/Aman-CERP/amanmcp/internal/engineerr"
)

// Token is the engine-visible tokenization result (§3.4): a pure
// function of text to an ordered token sequence. It is a thin,
// stable-named alias of bleve's own token so the rest of the engine
// need not import bleve directly just to read a position.
type Token struct {
	Text      string
	ByteStart int
	ByteEnd   int
	Position  int
}

// Registry is a process-wide, thread-safe catalog of tokenizers and
// analyzers (§3.4, §5 "Shared resources"). Registration takes an
// exclusive lock; lookups used by Tokenize take the shared read lock,
// so concurrent lookups do not block each other but do wait while a
// registration holds the exclusive lock. Lookups are not lock-free.
//
// Every name registered here is also mirrored into bleve's global
// component registry (see globalMirror below), so a mapping.IndexMapping
// built independently by internal/segment can resolve the exact same
// analyzer by name when constructing a segment's bleve sub-index — a
// fresh mapping.IndexMapping owns its own private cache, which falls
// through to bleve's process-wide registry for any name it does not
// define itself.
type Registry struct {
	mu    sync.RWMutex
	names map[string]struct{}
	bleve *bleveRegistry.Cache
}

// New returns an empty registry. Call RegisterDefaults to install the
// standard tokenizer/analyzer set.
func New() *Registry {
	return &Registry{
		names: make(map[string]struct{}),
		bleve: bleveRegistry.NewCache(),
	}
}

// List returns every registered analyzer/tokenizer name.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.names))
	for n := range r.names {
		out = append(out, n)
	}
	return out
}

// Register installs a raw bleve analyzer under name, overwriting any
// prior entry with the same name (§4.2 "register").
func (r *Registry) Register(name string, a *analysis.Analyzer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.bleve.DefineAnalyzer(name, analyzerDefinition(a)); err != nil {
		return engineerr.New(engineerr.CodeInvalidOptions, "register analyzer "+name, err)
	}
	r.names[name] = struct{}{}
	globalMirror.analyzer(name, a)
	return nil
}

// analyzerDefinition wraps a pre-built analyzer so bleve's registry
// cache returns it verbatim instead of re-constructing one from a
// config map.
func analyzerDefinition(a *analysis.Analyzer) func(*bleveRegistry.Cache) (*analysis.Analyzer, error) {
	return func(*bleveRegistry.Cache) (*analysis.Analyzer, error) {
		return a, nil
	}
}

// AnalyzerOptions configures RegisterAnalyzer's filter pipeline (§4.2
// "register_analyzer").
type AnalyzerOptions struct {
	Lowercase bool
	StopLang  string // e.g. "english"; empty disables stop-word removal
	StemLang  string // e.g. "english"; empty disables stemming
	MaxLen    int    // 0 disables the max-length cutoff
}

// RegisterAnalyzer composes base (a tokenizer name already registered,
// or one of the built-ins installed by RegisterDefaults) with the
// requested filter chain and installs the result under name.
func (r *Registry) RegisterAnalyzer(name, base string, opts AnalyzerOptions) error {
	tokenizer, err := r.resolveTokenizer(base)
	if err != nil {
		return err
	}

	var filters []analysis.TokenFilter
	if opts.Lowercase {
		filters = append(filters, lowercase.NewLowerCaseFilter())
	}
	if opts.StopLang != "" {
		sw, err := stopWordFilter(opts.StopLang)
		if err != nil {
			return err
		}
		filters = append(filters, sw)
	}
	if opts.StemLang != "" {
		st, err := stemmerFilter(opts.StemLang)
		if err != nil {
			return err
		}
		filters = append(filters, st)
	}
	if opts.MaxLen > 0 {
		filters = append(filters, newMaxLengthFilter(opts.MaxLen))
	}

	a := &analysis.Analyzer{Tokenizer: tokenizer, TokenFilters: filters}
	return r.Register(name, a)
}

// RegisterRegex installs a tokenizer whose tokens are the non-overlapping
// matches of pattern (§4.2 "register_regex").
func (r *Registry) RegisterRegex(name, pattern string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tok, err := regexp.TokenizerConstructor(map[string]interface{}{"regexp": pattern}, r.bleve)
	if err != nil {
		return engineerr.New(engineerr.CodeInvalidOptions, "compile regex tokenizer "+name, err)
	}
	if err := r.bleve.DefineTokenizer(name, func(*bleveRegistry.Cache) (analysis.Tokenizer, error) {
		return tok, nil
	}); err != nil {
		return engineerr.New(engineerr.CodeInvalidOptions, "register tokenizer "+name, err)
	}
	r.names[name] = struct{}{}
	globalMirror.tokenizer(name, tok)
	return r.registerRawAnalyzerLocked(name, tok)
}

// RegisterNgram installs a character n-gram tokenizer (§4.2
// "register_ngram"). edgeOnly restricts n-grams to those anchored at
// the start of the token (a common "autocomplete" variant).
func (r *Registry) RegisterNgram(name string, min, max int, edgeOnly bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tok := &ngramTokenizer{min: min, max: max, edgeOnly: edgeOnly}
	if err := r.bleve.DefineTokenizer(name, func(*bleveRegistry.Cache) (analysis.Tokenizer, error) {
		return tok, nil
	}); err != nil {
		return engineerr.New(engineerr.CodeInvalidOptions, "register tokenizer "+name, err)
	}
	r.names[name] = struct{}{}
	globalMirror.tokenizer(name, tok)
	return r.registerRawAnalyzerLocked(name, tok)
}

// registerRawAnalyzerLocked installs a bare-tokenizer analyzer (no
// filters) under name; callers hold r.mu.
func (r *Registry) registerRawAnalyzerLocked(name string, tok analysis.Tokenizer) error {
	a := &analysis.Analyzer{Tokenizer: tok}
	if err := r.bleve.DefineAnalyzer(name, analyzerDefinition(a)); err != nil {
		return engineerr.New(engineerr.CodeInvalidOptions, "register analyzer "+name, err)
	}
	globalMirror.analyzer(name, a)
	return nil
}

func (r *Registry) resolveTokenizer(name string) (analysis.Tokenizer, error) {
	switch name {
	case "unicode":
		return unicode.NewUnicodeTokenizer(), nil
	case "whitespace":
		return whitespace.NewWhitespaceTokenizer(), nil
	case "single", "keyword":
		return single.NewSingleTokenTokenizer(), nil
	case "letter":
		return regexp.NewRegexpTokenizer(letterRegexp), nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	a, err := r.bleve.AnalyzerNamed(name)
	if err != nil {
		return nil, engineerr.New(engineerr.CodeUnknownField, "no such tokenizer/analyzer: "+name, err)
	}
	return a.Tokenizer, nil
}

// RegisterDefaults installs the standard tokenizer/analyzer catalog
// described in §4.2's reference table, plus the fixed language set's
// `<lang>_stem`/`<lang>_text` analyzers.
func (r *Registry) RegisterDefaults() error {
	builtins := []struct {
		name string
		tok  analysis.Tokenizer
	}{
		{"keyword", single.NewSingleTokenTokenizer()},
		{"raw", single.NewSingleTokenTokenizer()},
		{"whitespace", whitespace.NewWhitespaceTokenizer()},
	}
	for _, b := range builtins {
		r.mu.Lock()
		err := r.registerRawAnalyzerLocked(b.name, b.tok)
		r.mu.Unlock()
		if err != nil {
			return err
		}
	}

	// "raw" bypasses all filters by construction (bare tokenizer, no
	// lowercasing) — it is registered above identically to "keyword"
	// except callers never attach filters to it.

	if err := r.RegisterAnalyzer("default", "unicode", AnalyzerOptions{Lowercase: true}); err != nil {
		return err
	}
	if err := r.RegisterAnalyzer("simple", "unicode", AnalyzerOptions{Lowercase: true}); err != nil {
		return err
	}

	for _, lang := range Languages {
		stemName := fmt.Sprintf("%s_stem", lang.Code)
		textName := fmt.Sprintf("%s_text", lang.Code)
		if err := r.RegisterAnalyzer(stemName, "unicode", AnalyzerOptions{
			Lowercase: true,
			StemLang:  lang.Code,
		}); err != nil {
			return err
		}
		if err := r.RegisterAnalyzer(textName, "unicode", AnalyzerOptions{
			Lowercase: true,
			StopLang:  lang.Code,
			StemLang:  lang.Code,
		}); err != nil {
			return err
		}
	}

	return nil
}

const letterRegexp = `[\p{L}\p{N}]+`

// Tokenize runs the named tokenizer/analyzer over text and returns the
// resulting tokens' text only (§4.2 "tokenize").
func (r *Registry) Tokenize(name, text string) ([]string, error) {
	detailed, err := r.TokenizeDetailed(name, text)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(detailed))
	for i, t := range detailed {
		out[i] = t.Text
	}
	return out, nil
}

// TokenizeDetailed runs the named tokenizer/analyzer over text and
// returns full Token records (§4.2 "tokenize_detailed"). Tokenization
// is deterministic for fixed registry state (§3.4 invariant, T4):
// position is monotonically non-decreasing, byte_start < byte_end, and
// offsets address the original input text, never a normalized form.
func (r *Registry) TokenizeDetailed(name, text string) ([]Token, error) {
	r.mu.RLock()
	a, err := r.bleve.AnalyzerNamed(name)
	r.mu.RUnlock()
	if err != nil {
		return nil, engineerr.New(engineerr.CodeUnknownField, "unknown tokenizer/analyzer: "+name, err)
	}

	stream := a.Analyze([]byte(text))
	out := make([]Token, 0, len(stream))
	for _, tok := range stream {
		if tok.Start >= tok.End {
			// bleve's raw tokenizer stream occasionally yields a
			// zero-width synthetic token at EOF; drop it so byte_start <
			// byte_end holds for every emitted token, per §3.4.
			continue
		}
		out = append(out, Token{
			Text:      string(tok.Term),
			ByteStart: tok.Start,
			ByteEnd:   tok.End,
			Position:  tok.Position,
		})
	}
	return out, nil
}

// mirrorRegistry duplicates analyzer/tokenizer names into bleve's own
// process-wide component registry — the same package-level state every
// self-registering bleve sub-package (e.g. analysis/lang/en) populates
// via init(). Registration there is idempotent and global: once a name
// is mirrored, any bleve.IndexMapping built anywhere in the process can
// resolve it, without internal/segment needing a reference to this
// Registry's own private cache.
type mirrorRegistry struct {
	mu   sync.Mutex
	done map[string]bool
}

var globalMirror = &mirrorRegistry{done: make(map[string]bool)}

func (m *mirrorRegistry) analyzer(name string, a *analysis.Analyzer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := "analyzer:" + name
	if m.done[key] {
		return
	}
	bleveRegistry.RegisterAnalyzer(name, func(map[string]interface{}, *bleveRegistry.Cache) (*analysis.Analyzer, error) {
		return a, nil
	})
	m.done[key] = true
}

func (m *mirrorRegistry) tokenizer(name string, tok analysis.Tokenizer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := "tokenizer:" + name
	if m.done[key] {
		return
	}
	bleveRegistry.RegisterTokenizer(name, func(map[string]interface{}, *bleveRegistry.Cache) (analysis.Tokenizer, error) {
		return tok, nil
	})
	m.done[key] = true
}
