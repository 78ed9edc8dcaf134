package table

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrInvalidExpression is returned for expressions that cannot be evaluated.
var ErrInvalidExpression = errors.New("invalid expression")

// evalExpr evaluates an arithmetic expression of numbers, + - * / %, unary
// signs and parentheses.
//
//	expr   = term { ("+" | "-") term }
//	term   = factor { ("*" | "/" | "%") factor }
//	factor = ("+" | "-") factor | number | "(" expr ")"
func evalExpr(s string) (float64, error) {
	p := &exprParser{src: s}
	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return 0, fmt.Errorf("%w: unexpected %q at %d", ErrInvalidExpression, p.src[p.pos], p.pos)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: result is not finite", ErrInvalidExpression)
	}
	return v, nil
}

type exprParser struct {
	src string
	pos int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *exprParser) expr() (float64, error) {
	v, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			r, err := p.term()
			if err != nil {
				return 0, err
			}
			v += r
		case '-':
			p.pos++
			r, err := p.term()
			if err != nil {
				return 0, err
			}
			v -= r
		default:
			return v, nil
		}
	}
}

func (p *exprParser) term() (float64, error) {
	v, err := p.factor()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek()
		if op != '*' && op != '/' && op != '%' {
			return v, nil
		}
		p.pos++
		r, err := p.factor()
		if err != nil {
			return 0, err
		}
		switch op {
		case '*':
			v *= r
		case '/':
			if r == 0 {
				return 0, fmt.Errorf("%w: division by zero", ErrInvalidExpression)
			}
			v /= r
		case '%':
			if r == 0 {
				return 0, fmt.Errorf("%w: division by zero", ErrInvalidExpression)
			}
			v = math.Mod(v, r)
		}
	}
}

func (p *exprParser) factor() (float64, error) {
	switch c := p.peek(); {
	case c == '+':
		p.pos++
		return p.factor()
	case c == '-':
		p.pos++
		v, err := p.factor()
		return -v, err
	case c == '(':
		p.pos++
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, fmt.Errorf("%w: missing ')'", ErrInvalidExpression)
		}
		p.pos++
		return v, nil
	case c == '.' || (c >= '0' && c <= '9'):
		start := p.pos
		for p.pos < len(p.src) && isNumberByte(p.src[p.pos]) {
			p.pos++
		}
		v, err := strconv.ParseFloat(p.src[start:p.pos], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: bad number %q", ErrInvalidExpression, p.src[start:p.pos])
		}
		return v, nil
	case c == 0:
		return 0, fmt.Errorf("%w: unexpected end", ErrInvalidExpression)
	default:
		return 0, fmt.Errorf("%w: unexpected %q at %d", ErrInvalidExpression, c, p.pos)
	}
}

func isNumberByte(b byte) bool {
	return (b >= '0' && b <= '9') || b == '.' || b == 'e' || b == 'E'
}
