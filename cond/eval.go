package cond

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/statpatch/statpatch/debug"
	"github.com/statpatch/statpatch/doc"
	"github.com/statpatch/statpatch/kpath"
)

// Evaluate reports whether c holds against d. A nil condition holds.
// Composites short-circuit; leaves with malformed arguments evaluate
// false rather than erroring.
func Evaluate(d *doc.Doc, c *Cond) bool {
	if c == nil {
		return true
	}
	switch c.Kind {
	case AndKind:
		for _, kid := range c.Kids {
			if !Evaluate(d, kid) {
				return false
			}
		}
		return true
	case OrKind:
		for _, kid := range c.Kids {
			if Evaluate(d, kid) {
				return true
			}
		}
		return false
	case NotKind:
		if len(c.Kids) != 1 {
			return false
		}
		return !Evaluate(d, c.Kids[0])
	case LeafKind:
		res := evalLeaf(d, c)
		if debug.Cond() {
			debug.Logf("cond %s %s %v -> %v\n", c.Path, c.Cmp, c.Arg, res)
		}
		return res
	default:
		panic("kind")
	}
}

func evalLeaf(d *doc.Doc, c *Cond) bool {
	v, found := d.Lookup(kpath.Parse(c.Path), doc.Stat)
	switch c.Cmp {
	case CmpNone:
		return Truth(v)
	case CmpEq:
		return doc.DeepEqual(v, c.Arg)
	case CmpNeq:
		return !doc.DeepEqual(v, c.Arg)
	case CmpGt, CmpGte, CmpLt, CmpLte:
		nv, ok := number(v)
		if !ok {
			return false
		}
		na, ok := number(c.Arg)
		if !ok {
			return false
		}
		switch c.Cmp {
		case CmpGt:
			return nv > na
		case CmpGte:
			return nv >= na
		case CmpLt:
			return nv < na
		default:
			return nv <= na
		}
	case CmpIn:
		return contains(c.Arg, v)
	case CmpNin:
		set, ok := c.Arg.([]any)
		if !ok {
			return false
		}
		for _, m := range set {
			if doc.DeepEqual(m, v) {
				return false
			}
		}
		return true
	case CmpMatch:
		pat, ok := c.Arg.(string)
		if !ok {
			return false
		}
		s, ok := v.(string)
		if !ok {
			return false
		}
		re, err := regexp.Compile(pat)
		if err != nil {
			return false
		}
		return re.MatchString(s)
	case CmpExists:
		exists := found && v != nil
		if want, ok := c.Arg.(bool); ok && !want {
			return !exists
		}
		return exists
	case CmpValue:
		return exactEqual(v, c.Arg)
	default:
		panic("cmp")
	}
}

func contains(set, v any) bool {
	members, ok := set.([]any)
	if !ok {
		return false
	}
	for _, m := range members {
		if doc.DeepEqual(m, v) {
			return true
		}
	}
	return false
}

// number is the comparator coercion: document numerics plus numeric
// strings.
func number(v any) (float64, bool) {
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

// exactEqual is the value comparator: structural equality with no
// numeric coercion.
func exactEqual(a, b any) bool {
	switch x := a.(type) {
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !exactEqual(xv, yv) {
				return false
			}
		}
		return true
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !exactEqual(x[i], y[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// Truth is the fallback for leaves without a comparator.
func Truth(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case map[string]any:
		return len(x) != 0
	case []any:
		return len(x) != 0
	default:
		f, ok := doc.Number(v)
		if ok {
			return f != 0
		}
		return true
	}
}
