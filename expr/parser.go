package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// node is a parsed expression tree node.
type node interface{}

type numberNode struct {
	isInt bool
	i     int64
	f     float64
}

type varNode struct {
	name string
}

type unaryNode struct {
	op string // "-", "+", "~"
	x  node
}

type binaryNode struct {
	op   string // arithmetic, comparison or bitwise operator
	l, r node
}

// binding powers, loosest to tightest. Comparison binds loosest,
// exponentiation tightest and right-associative.
func bindingPower(t token) int {
	switch t.kind {
	case tokCmp:
		return 10
	case tokOp:
		switch t.text {
		case "|":
			return 20
		case "^":
			return 30
		case "&":
			return 40
		case "+", "-":
			return 50
		case "*", "/", "//", "%":
			return 60
		case "**":
			return 80
		}
	}
	return 0
}

const unaryPower = 70

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// Parse parses an expression string into a reusable tree. An
// expression can be parsed once and evaluated against many bindings.
func Parse(expression string) (*Expression, error) {
	tokens, err := tokenize(expression)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	root, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, t.text, t.pos)
	}
	return &Expression{src: expression, root: root, vars: collectVars(root)}, nil
}

func (p *parser) parseExpr(minPower int) (node, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	for {
		t := p.peek()
		power := bindingPower(t)
		if power == 0 || power <= minPower {
			break
		}
		p.next()

		// Right-associativity for ** is handled by recursing with a
		// slightly lower minimum power.
		rightMin := power
		if t.text == "**" {
			rightMin = power - 1
		}
		right, err := p.parseExpr(rightMin)
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: t.text, l: left, r: right}
	}
	return left, nil
}

func (p *parser) parsePrefix() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		if !strings.ContainsAny(t.text, ".eE") {
			i, err := strconv.ParseInt(t.text, 10, 64)
			if err == nil {
				return numberNode{isInt: true, i: i}, nil
			}
		}
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad number %q at %d", ErrSyntax, t.text, t.pos)
		}
		return numberNode{f: f}, nil

	case tokIdent:
		return varNode{name: t.text}, nil

	case tokLParen:
		inner, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, fmt.Errorf("%w: expected ) at %d", ErrSyntax, closing.pos)
		}
		return inner, nil

	case tokOp:
		if t.text == "-" || t.text == "+" || t.text == "~" {
			operand, err := p.parseExpr(unaryPower)
			if err != nil {
				return nil, err
			}
			if t.text == "+" {
				return operand, nil
			}
			return unaryNode{op: t.text, x: operand}, nil
		}
	}
	return nil, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, t.text, t.pos)
}

func collectVars(n node) []string {
	seen := map[string]bool{}
	var names []string
	var walk func(node)
	walk = func(n node) {
		switch v := n.(type) {
		case varNode:
			if !seen[v.name] {
				seen[v.name] = true
				names = append(names, v.name)
			}
		case unaryNode:
			walk(v.x)
		case binaryNode:
			walk(v.l)
			walk(v.r)
		}
	}
	walk(n)
	return names
}
