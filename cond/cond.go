// Package cond evaluates guard conditions against the state document.
// Conditions are either leaves (a path plus one comparator) or logical
// composites over nested conditions. Evaluation is fail-closed: anything
// malformed compares false rather than erroring.
package cond

import (
	"encoding/json"
	"fmt"
)

type Cmp int

const (
	CmpNone Cmp = iota // no comparator: truthiness of the resolved value
	CmpEq
	CmpNeq
	CmpGt
	CmpGte
	CmpLt
	CmpLte
	CmpIn
	CmpNin
	CmpMatch
	CmpExists
	CmpValue
)

// cmpKeys is ordered: the first comparator key present on a leaf wins.
var cmpKeys = []struct {
	key string
	cmp Cmp
}{
	{"eq", CmpEq},
	{"neq", CmpNeq},
	{"gt", CmpGt},
	{"gte", CmpGte},
	{"lt", CmpLt},
	{"lte", CmpLte},
	{"in", CmpIn},
	{"nin", CmpNin},
	{"match", CmpMatch},
	{"exists", CmpExists},
	{"value", CmpValue},
}

// Comparators lists the comparator keys in precedence order.
func Comparators() []string {
	res := make([]string, len(cmpKeys))
	for i, ck := range cmpKeys {
		res[i] = ck.key
	}
	return res
}

func ParseCmp(key string) (Cmp, bool) {
	for _, ck := range cmpKeys {
		if ck.key == key {
			return ck.cmp, true
		}
	}
	return CmpNone, false
}

func (c Cmp) String() string {
	for _, ck := range cmpKeys {
		if ck.cmp == c {
			return ck.key
		}
	}
	return ""
}

type Kind int

const (
	LeafKind Kind = iota
	AndKind
	OrKind
	NotKind
)

type Cond struct {
	Kind Kind
	Kids []*Cond // composite members; exactly one for not

	Path string
	Cmp  Cmp
	Arg  any
}

// Leaf builds a single-comparator condition.
func Leaf(path string, cmp Cmp, arg any) *Cond {
	return &Cond{Kind: LeafKind, Path: path, Cmp: cmp, Arg: arg}
}

func And(kids ...*Cond) *Cond {
	return &Cond{Kind: AndKind, Kids: kids}
}

func Or(kids ...*Cond) *Cond {
	return &Cond{Kind: OrKind, Kids: kids}
}

func Not(kid *Cond) *Cond {
	return &Cond{Kind: NotKind, Kids: []*Cond{kid}}
}

func (c *Cond) UnmarshalJSON(d []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(d, &raw); err != nil {
		return err
	}
	if kids, ok := raw["and"]; ok {
		return c.unmarshalComposite(AndKind, kids)
	}
	if kids, ok := raw["or"]; ok {
		return c.unmarshalComposite(OrKind, kids)
	}
	if kid, ok := raw["not"]; ok {
		inner := &Cond{}
		if err := json.Unmarshal(kid, inner); err != nil {
			return err
		}
		*c = Cond{Kind: NotKind, Kids: []*Cond{inner}}
		return nil
	}

	leaf := Cond{Kind: LeafKind}
	if p, ok := raw["path"]; ok {
		if err := json.Unmarshal(p, &leaf.Path); err != nil {
			return fmt.Errorf("condition path: %w", err)
		}
	}
	for _, ck := range cmpKeys {
		arg, ok := raw[ck.key]
		if !ok {
			continue
		}
		leaf.Cmp = ck.cmp
		if err := json.Unmarshal(arg, &leaf.Arg); err != nil {
			return fmt.Errorf("condition %s: %w", ck.key, err)
		}
		break
	}
	*c = leaf
	return nil
}

func (c *Cond) unmarshalComposite(kind Kind, d json.RawMessage) error {
	var kids []*Cond
	if err := json.Unmarshal(d, &kids); err != nil {
		return err
	}
	*c = Cond{Kind: kind, Kids: kids}
	return nil
}

func (c *Cond) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case AndKind:
		return json.Marshal(map[string]any{"and": c.Kids})
	case OrKind:
		return json.Marshal(map[string]any{"or": c.Kids})
	case NotKind:
		if len(c.Kids) != 1 {
			return nil, fmt.Errorf("not condition with %d members", len(c.Kids))
		}
		return json.Marshal(map[string]any{"not": c.Kids[0]})
	case LeafKind:
		m := map[string]any{"path": c.Path}
		if c.Cmp != CmpNone {
			m[c.Cmp.String()] = c.Arg
		}
		return json.Marshal(m)
	default:
		panic("kind")
	}
}
