// Package arith parses and evaluates the arithmetic used by calculated
// fields: numeric literals, parentheses and the operators + - * / % ^.
// Nothing else is accepted.
package arith

import (
	"fmt"
	"strconv"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokAdd
	tokSub
	tokMul
	tokQuo
	tokRem
	tokPow
	tokLParen
	tokRParen
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokNumber:
		return "number"
	case tokAdd:
		return "'+'"
	case tokSub:
		return "'-'"
	case tokMul:
		return "'*'"
	case tokQuo:
		return "'/'"
	case tokRem:
		return "'%'"
	case tokPow:
		return "'^'"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	}
	return "unknown"
}

type token struct {
	kind tokenKind
	num  float64
	pos  int
}

// SyntaxError reports the offset at which the input stopped making sense.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("arith: %s at offset %d", e.Msg, e.Pos)
}

var operators = map[byte]tokenKind{
	'+': tokAdd,
	'-': tokSub,
	'*': tokMul,
	'/': tokQuo,
	'%': tokRem,
	'^': tokPow,
	'(': tokLParen,
	')': tokRParen,
}

// IsOperator reports whether symbol is one of the accepted operator tokens.
func IsOperator(symbol string) bool {
	if len(symbol) != 1 {
		return false
	}
	_, ok := operators[symbol[0]]
	return ok
}

// IsNumber reports whether literal is a plain decimal literal: digits with
// at most one decimal point.
func IsNumber(literal string) bool {
	end, ok := scanNumber(literal, 0)
	return ok && end == len(literal)
}

func tokenize(src string) ([]token, error) {
	var toks []token
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c) || c == '.':
			end, ok := scanNumber(src, i)
			if !ok {
				return nil, &SyntaxError{Pos: i, Msg: fmt.Sprintf("malformed number %q", src[i:end])}
			}
			f, err := strconv.ParseFloat(src[i:end], 64)
			if err != nil {
				if numErr, isNum := err.(*strconv.NumError); !isNum || numErr.Err != strconv.ErrRange {
					return nil, &SyntaxError{Pos: i, Msg: fmt.Sprintf("malformed number %q", src[i:end])}
				}
			}
			toks = append(toks, token{kind: tokNumber, num: f, pos: i})
			i = end
		default:
			kind, ok := operators[c]
			if !ok {
				return nil, &SyntaxError{Pos: i, Msg: fmt.Sprintf("unexpected character %q", c)}
			}
			toks = append(toks, token{kind: kind, pos: i})
			i++
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(src)}), nil
}

// scanNumber returns the end of the literal starting at start and whether it
// is well formed. A literal needs at least one digit and at most one point.
func scanNumber(src string, start int) (int, bool) {
	i := start
	digits, points := 0, 0
	for i < len(src) && (isDigit(src[i]) || src[i] == '.') {
		if src[i] == '.' {
			points++
		} else {
			digits++
		}
		i++
	}
	return i, digits > 0 && points <= 1
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
