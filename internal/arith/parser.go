package arith

import (
	"fmt"
	"math"
)

// Node is a parsed arithmetic expression.
type Node interface {
	Eval() float64
}

type numberLit struct {
	value float64
}

func (n *numberLit) Eval() float64 { return n.value }

type unaryExpr struct {
	op tokenKind
	x  Node
}

func (u *unaryExpr) Eval() float64 {
	if u.op == tokSub {
		return -u.x.Eval()
	}
	return u.x.Eval()
}

type binaryExpr struct {
	op   tokenKind
	x, y Node
}

// Eval uses IEEE semantics: division by zero yields an infinity or NaN.
func (b *binaryExpr) Eval() float64 {
	x, y := b.x.Eval(), b.y.Eval()
	switch b.op {
	case tokAdd:
		return x + y
	case tokSub:
		return x - y
	case tokMul:
		return x * y
	case tokQuo:
		return x / y
	case tokRem:
		return math.Mod(x, y)
	case tokPow:
		return math.Pow(x, y)
	}
	return math.NaN()
}

const (
	precLowest = 1
	precUnary  = 3
	precPow    = 4
)

func precedence(k tokenKind) int {
	switch k {
	case tokAdd, tokSub:
		return 1
	case tokMul, tokQuo, tokRem:
		return 2
	case tokPow:
		return precPow
	}
	return 0
}

func rightAssoc(k tokenKind) bool {
	return k == tokPow
}

type parser struct {
	toks []token
	pos  int
	tok  token
}

func (p *parser) next() {
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	p.tok = p.toks[p.pos]
}

func (p *parser) expect(kind tokenKind) error {
	if p.tok.kind != kind {
		return &SyntaxError{Pos: p.tok.pos, Msg: fmt.Sprintf("expected %s, found %s", kind, p.tok.kind)}
	}
	p.next()
	return nil
}

// Parse turns src into an expression tree.
func Parse(src string) (Node, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	p.tok = toks[0]
	if p.tok.kind == tokEOF {
		return nil, &SyntaxError{Pos: 0, Msg: "empty expression"}
	}
	x, err := p.parseBinaryExpr(precLowest)
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, &SyntaxError{Pos: p.tok.pos, Msg: fmt.Sprintf("unexpected %s", p.tok.kind)}
	}
	return x, nil
}

// Eval parses and evaluates src.
func Eval(src string) (float64, error) {
	n, err := Parse(src)
	if err != nil {
		return 0, err
	}
	return n.Eval(), nil
}

func (p *parser) parseBinaryExpr(prec1 int) (Node, error) {
	x, err := p.parseUnaryExpr()
	if err != nil {
		return nil, err
	}
	for {
		op := p.tok.kind
		prec := precedence(op)
		if prec == 0 || prec < prec1 {
			return x, nil
		}
		p.next()
		if (op == tokAdd || op == tokSub) && p.tok.kind == op {
			return nil, &SyntaxError{Pos: p.tok.pos, Msg: fmt.Sprintf("unexpected %s after %s", op, op)}
		}
		next := prec + 1
		if rightAssoc(op) {
			next = prec
		}
		y, err := p.parseBinaryExpr(next)
		if err != nil {
			return nil, err
		}
		x = &binaryExpr{op: op, x: x, y: y}
	}
}

// parseUnaryExpr binds a sign looser than '^', so -2^2 is -(2^2). An operand
// carries at most one sign.
func (p *parser) parseUnaryExpr() (Node, error) {
	switch p.tok.kind {
	case tokAdd, tokSub:
		op := p.tok.kind
		p.next()
		if p.tok.kind == tokAdd || p.tok.kind == tokSub {
			return nil, &SyntaxError{Pos: p.tok.pos, Msg: fmt.Sprintf("unexpected %s after sign", p.tok.kind)}
		}
		x, err := p.parseBinaryExpr(precUnary)
		if err != nil {
			return nil, err
		}
		return &unaryExpr{op: op, x: x}, nil
	}
	return p.parsePrimaryExpr()
}

func (p *parser) parsePrimaryExpr() (Node, error) {
	switch p.tok.kind {
	case tokNumber:
		n := &numberLit{value: p.tok.num}
		p.next()
		return n, nil
	case tokLParen:
		p.next()
		x, err := p.parseBinaryExpr(precLowest)
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return x, nil
	}
	return nil, &SyntaxError{Pos: p.tok.pos, Msg: fmt.Sprintf("expected operand, found %s", p.tok.kind)}
}
