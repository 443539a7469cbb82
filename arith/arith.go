// Package arith evaluates restricted arithmetic over document values.
//
// Evaluation runs in three passes. First every identifier-like token is
// substituted with the document's numeric value at that path (missing or
// non-numeric resolves to 0). Second the substituted text is checked
// against a strict character whitelist; anything outside it aborts.
// Third the text is parsed with the expr-lang parser and walked by a
// closed evaluator that only admits number, unary and binary nodes, in
// float64 throughout: division follows IEEE semantics (Inf and NaN
// propagate) and % is math.Mod. Input text is never compiled or run as
// host-language source.
package arith

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"

	"github.com/statpatch/statpatch/debug"
	"github.com/statpatch/statpatch/doc"
	"github.com/statpatch/statpatch/kpath"
)

// identRe matches identifier-like tokens: a letter head, then letters,
// digits and dots, so multi-segment dotted names substitute as one path.
// The \b keeps digit-led literals like 2e3 from being split.
var identRe = regexp.MustCompile(`\b[\p{L}_$][\p{L}\p{N}_$.]*`)

// Eval computes expr against d. The boolean is false when the expression
// fails the whitelist, does not parse, or uses a construct outside the
// closed node set.
func Eval(d *doc.Doc, expr string) (float64, bool) {
	sub := Substitute(d, expr)
	if !whitelisted(sub) {
		if debug.Expr() {
			debug.Logf("expr %q substituted to %q: rejected by whitelist\n", expr, sub)
		}
		return 0, false
	}
	tree, err := parser.Parse(sub)
	if err != nil {
		if debug.Expr() {
			debug.Logf("expr %q: parse: %v\n", sub, err)
		}
		return 0, false
	}
	res, err := evalNode(tree.Node)
	if err != nil {
		if debug.Expr() {
			debug.Logf("expr %q: %v\n", sub, err)
		}
		return 0, false
	}
	return res, true
}

// Substitute performs pass 1: identifier tokens become the document's
// numeric value at the corresponding path.
func Substitute(d *doc.Doc, expr string) string {
	return identRe.ReplaceAllStringFunc(expr, func(tok string) string {
		v, _ := d.Lookup(kpath.Parse(tok), doc.Stat)
		f, ok := numeric(v)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			f = 0
		}
		s := strconv.FormatFloat(f, 'f', -1, 64)
		if f < 0 {
			// keep unary minus out of binary operator positions
			return "(" + s + ")"
		}
		return s
	})
}

func numeric(v any) (float64, bool) {
	if f, ok := doc.Number(v); ok {
		return f, true
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func whitelisted(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case strings.ContainsRune("+-*/%().", r):
		case unicode.IsSpace(r):
		default:
			return false
		}
	}
	return true
}

// evalNode walks the closed node set.
func evalNode(n ast.Node) (float64, error) {
	switch x := n.(type) {
	case *ast.IntegerNode:
		return float64(x.Value), nil
	case *ast.FloatNode:
		return x.Value, nil
	case *ast.UnaryNode:
		v, err := evalNode(x.Node)
		if err != nil {
			return 0, err
		}
		switch x.Operator {
		case "-":
			return -v, nil
		case "+":
			return v, nil
		default:
			return 0, fmt.Errorf("unary operator %q not allowed", x.Operator)
		}
	case *ast.BinaryNode:
		l, err := evalNode(x.Left)
		if err != nil {
			return 0, err
		}
		r, err := evalNode(x.Right)
		if err != nil {
			return 0, err
		}
		switch x.Operator {
		case "+":
			return l + r, nil
		case "-":
			return l - r, nil
		case "*":
			return l * r, nil
		case "/":
			return l / r, nil
		case "%":
			return math.Mod(l, r), nil
		default:
			return 0, fmt.Errorf("binary operator %q not allowed", x.Operator)
		}
	default:
		return 0, fmt.Errorf("node %T not allowed", n)
	}
}
