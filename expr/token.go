// Package expr evaluates user-supplied arithmetic expressions over up
// to eight named inputs (A through H), each a dataset or a constant.
//
// The operator set follows the conventions the expression syntax is
// documented in: + - * / % ** // for arithmetic, > < >= <= == != for
// comparison, & | ^ ~ for bitwise work, with parentheses and the usual
// precedence. Division is true division; // is floor division.
package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Common errors for expression handling
var (
	ErrSyntax        = errors.New("expression syntax error")
	ErrUnboundVar    = errors.New("expression references an unbound variable")
	ErrTooManyInputs = errors.New("expressions accept at most 8 inputs")
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokOp  // + - * / % ** // & | ^ ~
	tokCmp // < > <= >= == !=
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// tokenize splits an expression into tokens. Multi-character operators
// (**, //, <=, >=, ==, !=) are matched greedily.
func tokenize(expression string) ([]token, error) {
	var tokens []token
	i := 0
	n := len(expression)

	for i < n {
		c := expression[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c >= '0' && c <= '9' || c == '.':
			start := i
			for i < n && (expression[i] >= '0' && expression[i] <= '9' || expression[i] == '.') {
				i++
			}
			// exponent part
			if i < n && (expression[i] == 'e' || expression[i] == 'E') {
				j := i + 1
				if j < n && (expression[j] == '+' || expression[j] == '-') {
					j++
				}
				if j < n && expression[j] >= '0' && expression[j] <= '9' {
					i = j
					for i < n && expression[i] >= '0' && expression[i] <= '9' {
						i++
					}
				}
			}
			text := expression[start:i]
			if _, err := strconv.ParseFloat(text, 64); err != nil {
				return nil, fmt.Errorf("%w: bad number %q at %d", ErrSyntax, text, start)
			}
			tokens = append(tokens, token{kind: tokNumber, text: text, pos: start})

		case unicode.IsLetter(rune(c)) || c == '_':
			start := i
			for i < n && (unicode.IsLetter(rune(expression[i])) ||
				unicode.IsDigit(rune(expression[i])) || expression[i] == '_') {
				i++
			}
			tokens = append(tokens, token{kind: tokIdent, text: expression[start:i], pos: start})

		case c == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")", pos: i})
			i++

		case c == '*':
			if i+1 < n && expression[i+1] == '*' {
				tokens = append(tokens, token{kind: tokOp, text: "**", pos: i})
				i += 2
			} else {
				tokens = append(tokens, token{kind: tokOp, text: "*", pos: i})
				i++
			}
		case c == '/':
			if i+1 < n && expression[i+1] == '/' {
				tokens = append(tokens, token{kind: tokOp, text: "//", pos: i})
				i += 2
			} else {
				tokens = append(tokens, token{kind: tokOp, text: "/", pos: i})
				i++
			}
		case c == '+' || c == '-' || c == '%' || c == '&' || c == '|' || c == '^' || c == '~':
			tokens = append(tokens, token{kind: tokOp, text: string(c), pos: i})
			i++

		case c == '<' || c == '>':
			if i+1 < n && expression[i+1] == '=' {
				tokens = append(tokens, token{kind: tokCmp, text: expression[i : i+2], pos: i})
				i += 2
			} else {
				tokens = append(tokens, token{kind: tokCmp, text: string(c), pos: i})
				i++
			}
		case c == '=' || c == '!':
			if i+1 < n && expression[i+1] == '=' {
				tokens = append(tokens, token{kind: tokCmp, text: expression[i : i+2], pos: i})
				i += 2
			} else {
				return nil, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, string(c), i)
			}

		default:
			return nil, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, string(c), i)
		}
	}

	if len(tokens) == 0 || strings.TrimSpace(expression) == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrSyntax)
	}

	tokens = append(tokens, token{kind: tokEOF, pos: n})
	return tokens, nil
}
