package tools

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// calcFuncs is the full set of callable names. Nothing outside this table is
// resolvable, so the allow-list holds by construction.
var calcFuncs = map[string]func(float64) float64{
	"abs":   math.Abs,
	"round": math.Round,
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
	"asin":  math.Asin,
	"acos":  math.Acos,
	"atan":  math.Atan,
	"sqrt":  math.Sqrt,
	"log":   math.Log,
	"log10": math.Log10,
}

var calcConsts = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

// Evaluate parses and evaluates an arithmetic expression. The grammar admits
// numeric literals, + - * / % ^ (exponentiation), parentheses, unary minus,
// and the allow-listed functions and constants. Anything else fails.
func Evaluate(expression string) (float64, error) {
	p := &exprParser{input: expression}
	node, err := p.parse()
	if err != nil {
		return 0, err
	}
	v, err := node.eval()
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, Evaluationf("expression result is not a finite number")
	}
	return v, nil
}

type exprNode interface {
	eval() (float64, error)
}

type numberNode float64

func (n numberNode) eval() (float64, error) { return float64(n), nil }

type binaryNode struct {
	op          byte
	left, right exprNode
}

func (n binaryNode) eval() (float64, error) {
	l, err := n.left.eval()
	if err != nil {
		return 0, err
	}
	r, err := n.right.eval()
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
			return 0, Evaluationf("division by zero")
		}
		return l / r, nil
	case '%':
		if r == 0 {
			return 0, Evaluationf("division by zero")
		}
		return math.Mod(l, r), nil
	default: // '^'
		return math.Pow(l, r), nil
	}
}

type negateNode struct{ child exprNode }

func (n negateNode) eval() (float64, error) {
	v, err := n.child.eval()
	return -v, err
}

type callNode struct {
	name string
	fn   func(float64) float64
	arg  exprNode
}

func (n callNode) eval() (float64, error) {
	v, err := n.arg.eval()
	if err != nil {
		return 0, err
	}
	out := n.fn(v)
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, Evaluationf("%s(%g) is undefined", n.name, v)
	}
	return out, nil
}

// exprParser is a hand-written recursive-descent parser over the raw string.
type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) parse() (exprNode, error) {
	node, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return nil, Evaluationf("unexpected character %q in expression", p.input[p.pos])
	}
	return node, nil
}

func (p *exprParser) parseSum() (exprNode, error) {
	node, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		if op, ok := p.peekAny('+', '-'); ok {
			p.pos++
			right, err := p.parseProduct()
			if err != nil {
				return nil, err
			}
			node = binaryNode{op: op, left: node, right: right}
			continue
		}
		return node, nil
	}
}

func (p *exprParser) parseProduct() (exprNode, error) {
	node, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		if op, ok := p.peekAny('*', '/', '%'); ok {
			if op == '*' && p.pos+1 < len(p.input) && p.input[p.pos+1] == '*' {
				// "**" is exponentiation, not multiplication.
				return node, nil
			}
			p.pos++
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			node = binaryNode{op: op, left: node, right: right}
			continue
		}
		return node, nil
	}
}

func (p *exprParser) parseUnary() (exprNode, error) {
	p.skipSpace()
	if _, ok := p.peekAny('-'); ok {
		p.pos++
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return negateNode{child: child}, nil
	}
	return p.parsePower()
}

func (p *exprParser) parsePower() (exprNode, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.consumePowerOp() {
		// Right associative: 2^3^2 is 2^(3^2).
		exp, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return binaryNode{op: '^', left: base, right: exp}, nil
	}
	return base, nil
}

func (p *exprParser) consumePowerOp() bool {
	if p.pos < len(p.input) && p.input[p.pos] == '^' {
		p.pos++
		return true
	}
	if p.pos+1 < len(p.input) && p.input[p.pos] == '*' && p.input[p.pos+1] == '*' {
		p.pos += 2
		return true
	}
	return false
}

func (p *exprParser) parsePrimary() (exprNode, error) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return nil, Evaluationf("unexpected end of expression")
	}

	c := p.input[p.pos]
	switch {
	case c == '(':
		p.pos++
		node, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		if !p.expect(')') {
			return nil, Evaluationf("missing closing parenthesis")
		}
		return node, nil
	case c >= '0' && c <= '9' || c == '.':
		return p.parseNumber()
	case unicode.IsLetter(rune(c)) || c == '_':
		return p.parseName()
	default:
		return nil, Evaluationf("unexpected character %q in expression", c)
	}
}

func (p *exprParser) parseNumber() (exprNode, error) {
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c >= '0' && c <= '9' || c == '.' {
			p.pos++
			continue
		}
		break
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return nil, Evaluationf("invalid number %q", p.input[start:p.pos])
	}
	return numberNode(v), nil
}

func (p *exprParser) parseName() (exprNode, error) {
	start := p.pos
	for p.pos < len(p.input) {
		c := rune(p.input[p.pos])
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' {
			p.pos++
			continue
		}
		break
	}
	name := strings.ToLower(p.input[start:p.pos])

	p.skipSpace()
	if p.pos < len(p.input) && p.input[p.pos] == '(' {
		fn, ok := calcFuncs[name]
		if !ok {
			return nil, Evaluationf("unknown function %q", name)
		}
		p.pos++
		arg, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		if !p.expect(')') {
			return nil, Evaluationf("missing closing parenthesis")
		}
		return callNode{name: name, fn: fn, arg: arg}, nil
	}

	if v, ok := calcConsts[name]; ok {
		return numberNode(v), nil
	}
	return nil, Evaluationf("unknown name %q", name)
}

func (p *exprParser) expect(c byte) bool {
	p.skipSpace()
	if p.pos < len(p.input) && p.input[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *exprParser) peekAny(ops ...byte) (byte, bool) {
	if p.pos >= len(p.input) {
		return 0, false
	}
	c := p.input[p.pos]
	for _, op := range ops {
		if c == op {
			return c, true
		}
	}
	return 0, false
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}
