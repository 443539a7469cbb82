package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/statpatch/statpatch/cond"
	"github.com/statpatch/statpatch/op"
)

var lineVerbs = map[string]bool{
	"set":    true,
	"add":    true,
	"push":   true,
	"insert": true,
	"remove": true,
	"move":   true,
	"copy":   true,
	"calc":   true,
	"modify": true,
	"test":   true,
}

// lines consumes every line whose first token is a known verb. Other
// lines pass through untouched for the legacy grammar. The split is a
// plain one so an arbitrarily long line never truncates the scan.
func (p *Parser) lines(text string) ([]Command, []Diagnostic, string) {
	var cmds []Command
	var diags []Diagnostic
	var keep []string
	for _, raw := range strings.Split(text, "\n") {
		raw = strings.TrimSuffix(raw, "\r")
		fields := strings.Fields(raw)
		if len(fields) == 0 || !lineVerbs[fields[0]] {
			keep = append(keep, raw)
			continue
		}
		cs, err := lineCommand(fields[0], fields[1:])
		if err != nil {
			diags = append(diags, Diagnostic{Grammar: "line", Snippet: snippet(raw), Err: err})
			continue
		}
		cmds = append(cmds, cs...)
	}
	return cmds, diags, strings.Join(keep, "\n")
}

// lineCommand maps one verb statement to one or two canonical
// operations. A set with a trailing "if <old>" clause expands to a
// test of the old value followed by the replace.
func lineCommand(verb string, args []string) ([]Command, error) {
	one := func(o op.Op) []Command {
		return []Command{{Op: o, Group: NoGroup}}
	}
	switch verb {
	case "set":
		if len(args) < 2 {
			return nil, fmt.Errorf("set wants <path> <value> [if <old>]")
		}
		path := args[0]
		value, old, hasOld := splitIfClause(args[1:])
		rep := &op.Replace{Path: path, Value: value}
		if !hasOld {
			return one(rep), nil
		}
		return []Command{
			{Op: &op.Test{Path: path, Value: old, HasValue: true}, Group: NoGroup},
			{Op: rep, Group: NoGroup},
		}, nil
	case "add":
		if len(args) < 2 {
			return nil, fmt.Errorf("add wants <path> <value>")
		}
		return one(&op.Add{Path: args[0], Value: literal(strings.Join(args[1:], " "))}), nil
	case "push":
		if len(args) < 2 {
			return nil, fmt.Errorf("push wants <path> <value>")
		}
		return one(&op.Add{Path: args[0] + "[-]", Value: literal(strings.Join(args[1:], " "))}), nil
	case "insert":
		if len(args) < 3 {
			return nil, fmt.Errorf("insert wants <path> <index> <value>")
		}
		idx, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("insert index: %w", err)
		}
		return one(&op.Modify{
			Path:   args[0],
			Action: op.ActionInsert,
			Index:  &idx,
			Value:  literal(strings.Join(args[2:], " ")),
		}), nil
	case "remove":
		if len(args) != 1 {
			return nil, fmt.Errorf("remove wants <path>")
		}
		return one(&op.Remove{Path: args[0]}), nil
	case "move":
		if len(args) != 2 {
			return nil, fmt.Errorf("move wants <from> <to>")
		}
		return one(&op.Move{From: args[0], Path: args[1]}), nil
	case "copy":
		if len(args) != 2 {
			return nil, fmt.Errorf("copy wants <from> <to>")
		}
		return one(&op.Copy{From: args[0], Path: args[1]}), nil
	case "calc":
		if len(args) < 2 {
			return nil, fmt.Errorf("calc wants <path> <expr>")
		}
		return one(&op.Calc{Path: args[0], Expr: strings.Join(args[1:], " ")}), nil
	case "modify":
		if len(args) < 3 {
			return nil, fmt.Errorf("modify wants <path> <action> <value>")
		}
		action, err := op.ParseAction(args[1])
		if err != nil {
			return nil, err
		}
		return one(&op.Modify{
			Path:   args[0],
			Action: action,
			Value:  literal(strings.Join(args[2:], " ")),
		}), nil
	case "test":
		if len(args) < 2 {
			return nil, fmt.Errorf("test wants <path> <value>")
		}
		if len(args) >= 3 {
			if cmp, ok := cond.ParseCmp(args[1]); ok {
				leaf := cond.Leaf(args[0], cmp, literal(strings.Join(args[2:], " ")))
				return one(&op.Test{Path: args[0], Cond: leaf}), nil
			}
		}
		return one(&op.Test{
			Path:     args[0],
			Value:    literal(strings.Join(args[1:], " ")),
			HasValue: true,
		}), nil
	default:
		return nil, fmt.Errorf("unrecognized verb %q", verb)
	}
}

// splitIfClause separates a value token run from a trailing
// "if <old>" validation clause.
func splitIfClause(args []string) (value, old any, hasOld bool) {
	for i, a := range args {
		if a == "if" && i > 0 && i < len(args)-1 {
			return literal(strings.Join(args[:i], " ")),
				literal(strings.Join(args[i+1:], " ")), true
		}
	}
	return literal(strings.Join(args, " ")), nil, false
}

// literal decodes a JSON literal, unwraps single-quoted strings, and
// falls back to the bare string.
func literal(s string) any {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], `\'`, "'")
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}
