package query

import (
	"strconv"
	"strings"

	"github.com/Aman-CERP/amanmcp/internal/engineerr"
	"github.com/Aman-CERP/amanmcp/internal/schema"
)

// ParseError reports a malformed query string with the byte position
// of the failure, without leaking partial parser state (§4.6).
type ParseError struct {
	Position int
	Message  string
}

func (e *ParseError) Error() string {
	return "parse error at " + strconv.Itoa(e.Position) + ": " + e.Message
}

// Parse compiles a query string per the §4.6/§6.2 grammar into a
// validated Query Tree. defaultField is used for bare terms that carry
// no `field:` prefix.
func Parse(s *schema.Schema, input, defaultField string) (*Query, error) {
	p := &parser{src: input, schema: s, defaultField: defaultField}
	p.skipSpace()
	q, err := p.parseDisjunction()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, &ParseError{Position: p.pos, Message: "unexpected trailing input"}
	}
	return q, nil
}

type parser struct {
	src          string
	pos          int
	schema       *schema.Schema
	defaultField string
}

func (p *parser) fail(msg string) error {
	return &ParseError{Position: p.pos, Message: msg}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

func (p *parser) peekKeyword(kw string) bool {
	save := p.pos
	p.skipSpace()
	ok := strings.HasPrefix(p.src[p.pos:], kw) && p.followedByBoundary(p.pos+len(kw))
	if !ok {
		p.pos = save
	}
	return ok
}

func (p *parser) followedByBoundary(at int) bool {
	if at >= len(p.src) {
		return true
	}
	c := p.src[at]
	return isSpace(c) || c == '(' || c == ')'
}

func (p *parser) consumeKeyword(kw string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], kw) && p.followedByBoundary(p.pos+len(kw)) {
		p.pos += len(kw)
		return true
	}
	return false
}

// disjunction := conjunction ("OR" conjunction)*
func (p *parser) parseDisjunction() (*Query, error) {
	left, err := p.parseConjunction()
	if err != nil {
		return nil, err
	}
	clauses := []Clause{{Occur: Should, Query: left}}
	for {
		p.skipSpace()
		if !p.consumeKeyword("OR") {
			break
		}
		right, err := p.parseConjunction()
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, Clause{Occur: Should, Query: right})
	}
	if len(clauses) == 1 {
		return left, nil
	}
	return Boolean(clauses), nil
}

// conjunction := modifier ("AND"? modifier)*
func (p *parser) parseConjunction() (*Query, error) {
	left, err := p.parseModifier()
	if err != nil {
		return nil, err
	}
	clauses := []Clause{left}
	for {
		save := p.pos
		p.skipSpace()
		if p.peekKeyword("OR") {
			p.pos = save
			break
		}
		p.consumeKeyword("AND") // optional; adjacency alone also means AND
		if p.pos >= len(p.src) || p.src[p.pos] == ')' {
			p.pos = save
			break
		}
		before := p.pos
		next, err := p.parseModifier()
		if err != nil {
			if before == p.pos {
				p.pos = save
				break
			}
			return nil, err
		}
		clauses = append(clauses, next)
	}
	if len(clauses) == 1 && left.Occur == Must {
		return left.Query, nil
	}
	return Boolean(clauses), nil
}

// modifier := ["NOT"] clause
func (p *parser) parseModifier() (Clause, error) {
	p.skipSpace()
	negate := p.consumeKeyword("NOT")
	q, err := p.parseClauseWithBoost()
	if err != nil {
		return Clause{}, err
	}
	if negate {
		return Clause{Occur: MustNot, Query: q}, nil
	}
	return Clause{Occur: Must, Query: q}, nil
}

func (p *parser) parseClauseWithBoost() (*Query, error) {
	q, err := p.parseClause()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.src) && p.src[p.pos] == '^' {
		p.pos++
		start := p.pos
		for p.pos < len(p.src) && (isDigit(p.src[p.pos]) || p.src[p.pos] == '.') {
			p.pos++
		}
		n, err := strconv.ParseFloat(p.src[start:p.pos], 64)
		if err != nil {
			return nil, p.fail("invalid boost value")
		}
		q = q.WithBoost(n)
	}
	return q, nil
}

// clause := field? (term | phrase | range | group)
func (p *parser) parseClause() (*Query, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, p.fail("expected clause")
	}

	field := p.defaultField
	explicit := false
	if name, ok := p.tryParseFieldPrefix(); ok {
		field = name
		explicit = true
	}

	switch {
	case p.pos < len(p.src) && p.src[p.pos] == '(':
		return p.parseGroupOrFieldGroup(field, explicit)
	case p.pos < len(p.src) && p.src[p.pos] == '"':
		return p.parsePhrase(field)
	case p.pos < len(p.src) && (p.src[p.pos] == '[' || p.src[p.pos] == '{'):
		return p.parseRange(field)
	default:
		return p.parseTerm(field)
	}
}

func (p *parser) tryParseFieldPrefix() (string, bool) {
	save := p.pos
	start := p.pos
	for p.pos < len(p.src) && isIdentChar(p.src[p.pos]) {
		p.pos++
	}
	if p.pos > start && p.pos < len(p.src) && p.src[p.pos] == ':' {
		name := p.src[start:p.pos]
		p.pos++
		return name, true
	}
	p.pos = save
	return "", false
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (p *parser) parseGroupOrFieldGroup(field string, explicit bool) (*Query, error) {
	p.pos++ // consume '('
	inner, err := p.parseDisjunction()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != ')' {
		return nil, p.fail("expected )")
	}
	p.pos++
	if explicit {
		return rewriteFieldAll(inner, field, p.schema)
	}
	return inner, nil
}

// rewriteFieldAll distributes `field:` over the leaves of a group
// (§4.6 "field:(a b c) distributes the field over the inner clauses").
func rewriteFieldAll(q *Query, field string, s *schema.Schema) (*Query, error) {
	switch q.Kind {
	case KindBoolean:
		out := make([]Clause, len(q.Clauses))
		for i, c := range q.Clauses {
			sub, err := rewriteFieldAll(c.Query, field, s)
			if err != nil {
				return nil, err
			}
			out[i] = Clause{Occur: c.Occur, Query: sub}
		}
		return Boolean(out), nil
	default:
		cp := *q
		cp.Field = field
		if err := fieldErr(s, field); err != nil {
			return nil, err
		}
		return &cp, nil
	}
}

func (p *parser) parsePhrase(field string) (*Query, error) {
	p.pos++ // consume opening quote
	var sb strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '\\' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '"' {
			sb.WriteByte('"')
			p.pos += 2
			continue
		}
		if c == '"' {
			break
		}
		sb.WriteByte(c)
		p.pos++
	}
	if p.pos >= len(p.src) {
		return nil, p.fail("unterminated phrase")
	}
	p.pos++ // consume closing quote

	terms := strings.Fields(sb.String())
	slop := 0
	if p.pos < len(p.src) && p.src[p.pos] == '~' {
		p.pos++
		start := p.pos
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
		if p.pos > start {
			n, err := strconv.Atoi(p.src[start:p.pos])
			if err != nil {
				return nil, p.fail("invalid slop value")
			}
			slop = n
		}
	}

	return Phrase(p.schema, field, terms, slop)
}

func (p *parser) parseRange(field string) (*Query, error) {
	open := p.src[p.pos]
	p.pos++
	loIncl := open == '['

	lo, err := p.parseBound()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.consumeKeyword("TO") {
		return nil, p.fail("expected TO in range")
	}
	hi, err := p.parseBound()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos >= len(p.src) || (p.src[p.pos] != ']' && p.src[p.pos] != '}') {
		return nil, p.fail("expected ] or } to close range")
	}
	hiIncl := p.src[p.pos] == ']'
	p.pos++

	lo.Inclusive = loIncl
	hi.Inclusive = hiIncl
	return Range(p.schema, field, lo, hi)
}

func (p *parser) parseBound() (Bound, error) {
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == '*' {
		p.pos++
		return Bound{Infinite: true}, nil
	}
	start := p.pos
	for p.pos < len(p.src) && !isSpace(p.src[p.pos]) && p.src[p.pos] != ']' && p.src[p.pos] != '}' {
		p.pos++
	}
	if p.pos == start {
		return Bound{}, p.fail("expected range bound")
	}
	lit := p.src[start:p.pos]
	if n, err := strconv.ParseFloat(lit, 64); err == nil {
		return Bound{Text: lit, Number: n, IsNumber: true}, nil
	}
	return Bound{Text: lit}, nil
}

func (p *parser) parseTerm(field string) (*Query, error) {
	start := p.pos
	for p.pos < len(p.src) && !isSpace(p.src[p.pos]) &&
		p.src[p.pos] != '(' && p.src[p.pos] != ')' &&
		p.src[p.pos] != '^' && p.src[p.pos] != '~' {
		p.pos++
	}
	if p.pos == start {
		return nil, p.fail("expected term")
	}
	word := p.src[start:p.pos]

	if strings.ContainsAny(word, "*?") {
		return Wildcard(p.schema, field, word)
	}

	if p.pos < len(p.src) && p.src[p.pos] == '~' {
		p.pos++
		start := p.pos
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
		edits := 2
		if p.pos > start {
			n, err := strconv.Atoi(p.src[start:p.pos])
			if err != nil {
				return nil, p.fail("invalid fuzzy edit distance")
			}
			edits = n
		}
		return Fuzzy(p.schema, field, word, edits, 0)
	}

	return Term(p.schema, field, word)
}
