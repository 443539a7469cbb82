package ingest

import (
	"fmt"
	"strings"

	"github.com/statpatch/statpatch/op"
)

// legacy scans for call-style commands of the form _.<verb>(args...).
// The verbs mirror the line grammar plus op and batch; batch members
// are tagged with a shared group so they fold into one coordinator
// invocation.
func (p *Parser) legacy(text string) ([]Command, []Diagnostic) {
	var cmds []Command
	var diags []Diagnostic
	for i := 0; i < len(text); {
		j := strings.Index(text[i:], "_.")
		if j < 0 {
			break
		}
		j += i
		name, raw, end, ok := scanCall(text, j+2)
		if !ok {
			i = j + 2
			continue
		}
		cs, err := p.legacyCommand(name, raw)
		if err != nil {
			diags = append(diags, Diagnostic{Grammar: "legacy", Snippet: snippet(text[j:end]), Err: err})
		} else {
			cmds = append(cmds, cs...)
		}
		i = end
	}
	return cmds, diags
}

// scanCall reads an identifier and a balanced parenthesized argument
// list starting at pos. Bracket depth tracks (), [] and {} together;
// string literals are opaque.
func scanCall(text string, pos int) (name, args string, end int, ok bool) {
	i := pos
	for i < len(text) && isIdent(text[i]) {
		i++
	}
	if i == pos || i >= len(text) || text[i] != '(' {
		return "", "", 0, false
	}
	name = text[pos:i]
	depth := 0
	var quote byte
	for j := i; j < len(text); j++ {
		c := text[j]
		if quote != 0 {
			if c == '\\' {
				j++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return name, text[i+1 : j], j + 1, true
			}
		}
	}
	return "", "", 0, false
}

func isIdent(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

// splitArgs breaks an argument list at top-level commas.
func splitArgs(raw string) []string {
	var out []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(raw[start:i]))
				start = i + 1
			}
		}
	}
	if last := strings.TrimSpace(raw[start:]); last != "" {
		out = append(out, last)
	}
	return out
}

func (p *Parser) legacyCommand(name, raw string) ([]Command, error) {
	args := splitArgs(raw)
	one := func(o op.Op) []Command {
		return []Command{{Op: o, Group: NoGroup}}
	}
	str := func(i int) string {
		if i >= len(args) {
			return ""
		}
		if s, ok := literal(args[i]).(string); ok {
			return s
		}
		return args[i]
	}
	val := func(i int) any {
		if i >= len(args) {
			return nil
		}
		return literal(args[i])
	}

	switch name {
	case "set":
		if len(args) < 2 {
			return nil, fmt.Errorf("set wants (path, value[, oldValue])")
		}
		rep := &op.Replace{Path: str(0), Value: val(1)}
		if len(args) < 3 {
			return one(rep), nil
		}
		return []Command{
			{Op: &op.Test{Path: str(0), Value: val(2), HasValue: true}, Group: NoGroup},
			{Op: rep, Group: NoGroup},
		}, nil
	case "add":
		if len(args) != 2 {
			return nil, fmt.Errorf("add wants (path, value)")
		}
		return one(&op.Add{Path: str(0), Value: val(1)}), nil
	case "push":
		if len(args) != 2 {
			return nil, fmt.Errorf("push wants (path, value)")
		}
		return one(&op.Add{Path: str(0) + "[-]", Value: val(1)}), nil
	case "insert":
		if len(args) != 3 {
			return nil, fmt.Errorf("insert wants (path, index, value)")
		}
		f, ok := literal(args[1]).(float64)
		if !ok {
			return nil, fmt.Errorf("insert index %q is not numeric", args[1])
		}
		idx := int(f)
		return one(&op.Modify{Path: str(0), Action: op.ActionInsert, Index: &idx, Value: val(2)}), nil
	case "remove":
		if len(args) != 1 {
			return nil, fmt.Errorf("remove wants (path)")
		}
		return one(&op.Remove{Path: str(0)}), nil
	case "move":
		if len(args) != 2 {
			return nil, fmt.Errorf("move wants (from, to)")
		}
		return one(&op.Move{From: str(0), Path: str(1)}), nil
	case "copy":
		if len(args) != 2 {
			return nil, fmt.Errorf("copy wants (from, to)")
		}
		return one(&op.Copy{From: str(0), Path: str(1)}), nil
	case "calc":
		if len(args) != 2 {
			return nil, fmt.Errorf("calc wants (path, expr)")
		}
		return one(&op.Calc{Path: str(0), Expr: str(1)}), nil
	case "modify":
		if len(args) != 3 {
			return nil, fmt.Errorf("modify wants (path, action, value)")
		}
		action, err := op.ParseAction(str(1))
		if err != nil {
			return nil, err
		}
		return one(&op.Modify{Path: str(0), Action: action, Value: val(2)}), nil
	case "test":
		if len(args) != 2 {
			return nil, fmt.Errorf("test wants (path, value)")
		}
		return one(&op.Test{Path: str(0), Value: val(1), HasValue: true}), nil
	case "op":
		if len(args) != 1 {
			return nil, fmt.Errorf("op wants one operation object")
		}
		o, err := op.DecodeOne([]byte(args[0]))
		if err != nil {
			return nil, err
		}
		return one(o), nil
	case "batch":
		if len(args) < 1 || len(args) > 2 {
			return nil, fmt.Errorf("batch wants (operations[, options])")
		}
		ops, err := op.Decode([]byte(args[0]))
		if err != nil {
			return nil, err
		}
		atomic := false
		if len(args) == 2 {
			opts, ok := literal(args[1]).(map[string]any)
			if !ok {
				return nil, fmt.Errorf("batch options %q is not an object", args[1])
			}
			atomic, _ = opts["atomic"].(bool)
		}
		group := p.nextGroup
		p.nextGroup++
		cmds := make([]Command, 0, len(ops))
		for _, o := range ops {
			cmds = append(cmds, Command{Op: o, Group: group, Atomic: atomic})
		}
		return cmds, nil
	default:
		return nil, fmt.Errorf("unrecognized call %q", name)
	}
}
