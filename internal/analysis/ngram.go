package analysis

import (
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
)

// ngramTokenizer produces character n-grams between min and max
// (inclusive) runes long (§4.2 "register_ngram"). When edgeOnly is set,
// only n-grams anchored at byte offset 0 of each input "word" are kept
// (an autocomplete-style edge n-gram tokenizer); otherwise every
// position is a valid n-gram start.
//
// The tokenizer treats the whole input as a single word: callers that
// want per-word edge n-grams should compose it after a word-splitting
// tokenizer via a custom analyzer pipeline.
type ngramTokenizer struct {
	min, max int
	edgeOnly bool
}

func (t *ngramTokenizer) Tokenize(input []byte) analysis.TokenStream {
	runes := make([]int, 0, len(input)) // byte offset of each rune
	var decoded []rune
	for i := 0; i < len(input); {
		r, size := utf8.DecodeRune(input[i:])
		runes = append(runes, i)
		decoded = append(decoded, r)
		i += size
	}
	runes = append(runes, len(input)) // sentinel end offset

	var stream analysis.TokenStream
	pos := 1

	starts := []int{0}
	if !t.edgeOnly {
		starts = make([]int, len(decoded))
		for i := range decoded {
			starts[i] = i
		}
	}

	for _, start := range starts {
		for n := t.min; n <= t.max; n++ {
			end := start + n
			if end > len(decoded) {
				break
			}
			stream = append(stream, &analysis.Token{
				Term:     []byte(string(decoded[start:end])),
				Start:    runes[start],
				End:      runes[end],
				Position: pos,
				Type:     analysis.AlphaNumeric,
			})
			pos++
		}
	}
	return stream
}
