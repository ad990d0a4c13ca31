// Package expr implements the restricted derived-field expression
// grammar: an aggregate form
//
//	sum(item['a'] * item['b'] for item in <array_field>)
//	sum(item['a'] for item in <array_field>)
//
// and simple scalar arithmetic over payload fields with +, -, *, /,
// parentheses, and numeric literals. Anything outside this grammar is a
// parse error; a general expression evaluator is deliberately not
// embedded here.
package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/resinker/resinker/internal/record"
)

// Expr is a compiled derived expression.
type Expr struct {
	sum    *sumExpr
	scalar node
	src    string
}

type sumExpr struct {
	array  string
	field1 string
	field2 string // empty for the single-factor form
}

type node interface {
	eval(lookup Lookup) (float64, error)
}

// Lookup resolves a payload field by name against the partially built
// payload. The second return is false when the field is absent.
type Lookup func(name string) (any, bool)

// Parse compiles src against the restricted grammar.
func Parse(src string) (*Expr, error) {
	trimmed := strings.TrimSpace(src)
	if trimmed == "" {
		return nil, fmt.Errorf("empty expression")
	}
	if strings.HasPrefix(trimmed, "sum(") {
		s, err := parseSum(trimmed)
		if err != nil {
			return nil, err
		}
		return &Expr{sum: s, src: src}, nil
	}
	p := &parser{input: trimmed}
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, fmt.Errorf("unexpected trailing input %q", p.input[p.pos:])
	}
	return &Expr{scalar: n, src: src}, nil
}

// Eval computes the expression against the given field lookup. Field
// references to absent fields are errors; referenced values must be
// numeric (arrays of objects for the sum form).
func (e *Expr) Eval(lookup Lookup) (float64, error) {
	if e.sum != nil {
		return e.sum.eval(lookup)
	}
	return e.scalar.eval(lookup)
}

// String returns the source expression.
func (e *Expr) String() string {
	return e.src
}

// parseSum parses "sum(item['f'] [* item['g']] for item in arr)".
func parseSum(src string) (*sumExpr, error) {
	if !strings.HasSuffix(src, ")") {
		return nil, fmt.Errorf("sum expression must end with ')'")
	}
	body := strings.TrimSpace(src[len("sum(") : len(src)-1])

	forIdx := strings.Index(body, " for ")
	if forIdx < 0 {
		return nil, fmt.Errorf("sum expression requires 'for item in <field>'")
	}
	head := strings.TrimSpace(body[:forIdx])
	tail := strings.TrimSpace(body[forIdx+len(" for "):])

	if !strings.HasPrefix(tail, "item in ") {
		return nil, fmt.Errorf("sum expression requires 'for item in <field>', got %q", tail)
	}
	array := strings.TrimSpace(tail[len("item in "):])
	if !isIdent(array) {
		return nil, fmt.Errorf("invalid array field %q in sum expression", array)
	}

	factors := strings.Split(head, "*")
	if len(factors) < 1 || len(factors) > 2 {
		return nil, fmt.Errorf("sum expression supports one or two item factors, got %d", len(factors))
	}
	out := &sumExpr{array: array}
	for i, f := range factors {
		field, err := parseItemRef(strings.TrimSpace(f))
		if err != nil {
			return nil, err
		}
		if i == 0 {
			out.field1 = field
		} else {
			out.field2 = field
		}
	}
	return out, nil
}

// parseItemRef parses item['field'] or item["field"].
func parseItemRef(s string) (string, error) {
	if !strings.HasPrefix(s, "item[") || !strings.HasSuffix(s, "]") {
		return "", fmt.Errorf("expected item['<field>'], got %q", s)
	}
	inner := s[len("item[") : len(s)-1]
	if len(inner) < 3 {
		return "", fmt.Errorf("expected item['<field>'], got %q", s)
	}
	quote := inner[0]
	if (quote != '\'' && quote != '"') || inner[len(inner)-1] != quote {
		return "", fmt.Errorf("expected quoted field in %q", s)
	}
	field := inner[1 : len(inner)-1]
	if !isIdent(field) {
		return "", fmt.Errorf("invalid item field %q", field)
	}
	return field, nil
}

func (s *sumExpr) eval(lookup Lookup) (float64, error) {
	raw, ok := lookup(s.array)
	if !ok {
		return 0, fmt.Errorf("field %q not present", s.array)
	}
	items, ok := raw.([]any)
	if !ok {
		return 0, fmt.Errorf("field %q is not an array", s.array)
	}
	var total float64
	for i, item := range items {
		obj, ok := item.(*record.Object)
		if !ok {
			return 0, fmt.Errorf("%s[%d] is not an object", s.array, i)
		}
		v1, err := itemNumber(obj, s.field1, s.array, i)
		if err != nil {
			return 0, err
		}
		term := v1
		if s.field2 != "" {
			v2, err := itemNumber(obj, s.field2, s.array, i)
			if err != nil {
				return 0, err
			}
			term = v1 * v2
		}
		total += term
	}
	return total, nil
}

func itemNumber(obj *record.Object, field, array string, idx int) (float64, error) {
	raw, ok := obj.Get(field)
	if !ok {
		return 0, fmt.Errorf("%s[%d] has no field %q", array, idx, field)
	}
	f, ok := record.ToFloat(raw)
	if !ok {
		return 0, fmt.Errorf("%s[%d].%s is not numeric", array, idx, field)
	}
	return f, nil
}

// Scalar arithmetic: recursive descent over +, -, *, /, parentheses,
// numeric literals, and field identifiers.

type parser struct {
	input string
	pos   int
}

type binaryNode struct {
	op   byte
	l, r node
}

func (n *binaryNode) eval(lookup Lookup) (float64, error) {
	l, err := n.l.eval(lookup)
	if err != nil {
		return 0, err
	}
	r, err := n.r.eval(lookup)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case '+':
		return l + r, nil
	case '-':
		return l - r, nil
	case '*':
		return l * r, nil
	case '/':
		if r == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return l / r, nil
	default:
		return 0, fmt.Errorf("unknown operator %q", string(n.op))
	}
}

type literalNode float64

func (n literalNode) eval(Lookup) (float64, error) {
	return float64(n), nil
}

type identNode string

func (n identNode) eval(lookup Lookup) (float64, error) {
	raw, ok := lookup(string(n))
	if !ok {
		return 0, fmt.Errorf("field %q not present", string(n))
	}
	f, ok := record.ToFloat(raw)
	if !ok {
		return 0, fmt.Errorf("field %q is not numeric", string(n))
	}
	return f, nil
}

func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.input) {
			return left, nil
		}
		op := p.input[p.pos]
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, l: left, r: right}
	}
}

func (p *parser) parseTerm() (node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.input) {
			return left, nil
		}
		op := p.input[p.pos]
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, l: left, r: right}
	}
}

func (p *parser) parseFactor() (node, error) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	c := p.input[p.pos]
	switch {
	case c == '(':
		p.pos++
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return inner, nil
	case c >= '0' && c <= '9', c == '.':
		start := p.pos
		for p.pos < len(p.input) && (p.input[p.pos] >= '0' && p.input[p.pos] <= '9' || p.input[p.pos] == '.') {
			p.pos++
		}
		f, err := strconv.ParseFloat(p.input[start:p.pos], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", p.input[start:p.pos])
		}
		return literalNode(f), nil
	case isIdentStart(rune(c)):
		start := p.pos
		for p.pos < len(p.input) && isIdentRune(rune(p.input[p.pos])) {
			p.pos++
		}
		return identNode(p.input[start:p.pos]), nil
	default:
		return nil, fmt.Errorf("unexpected character %q", string(c))
	}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func isIdent(s string) bool {
	if s == "" || !isIdentStart(rune(s[0])) {
		return false
	}
	for _, r := range s {
		if !isIdentRune(r) {
			return false
		}
	}
	return true
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
