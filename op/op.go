// Package op defines the canonical operation model all ingestion
// surfaces converge to, plus its JSON wire codec. The model is a sealed
// sum type: consumers dispatch with a type switch covering every kind,
// and the decoder rejects unknown kinds outright.
package op

import (
	"fmt"

	"github.com/statpatch/statpatch/cond"
)

type Op interface {
	// Name is the wire discriminant.
	Name() string
	// Guard is the optional if-condition gating execution.
	Guard() *cond.Cond

	isOp()
}

type Add struct {
	Path  string
	Value any
	If    *cond.Cond
}

type Remove struct {
	Path string
	If   *cond.Cond
}

type Replace struct {
	Path  string
	Value any
	If    *cond.Cond
}

type Move struct {
	From string
	Path string
	If   *cond.Cond
}

type Copy struct {
	From string
	Path string
	If   *cond.Cond
}

// Test asserts on the current document. With HasValue it is a literal
// deep-equality check; otherwise Cond carries the operation's own
// comparator as a leaf condition on Path.
type Test struct {
	Path     string
	Value    any
	HasValue bool
	Cond     *cond.Cond
	If       *cond.Cond
}

type Increment struct {
	Path  string
	Delta float64
	If    *cond.Cond
}

type Calc struct {
	Path string
	Expr string
	If   *cond.Cond
}

type Modify struct {
	Path   string
	Action Action
	Index  *int
	Value  any
	If     *cond.Cond
}

func (*Add) isOp()       {}
func (*Remove) isOp()    {}
func (*Replace) isOp()   {}
func (*Move) isOp()      {}
func (*Copy) isOp()      {}
func (*Test) isOp()      {}
func (*Increment) isOp() {}
func (*Calc) isOp()      {}
func (*Modify) isOp()    {}

func (*Add) Name() string       { return "add" }
func (*Remove) Name() string    { return "remove" }
func (*Replace) Name() string   { return "replace" }
func (*Move) Name() string      { return "move" }
func (*Copy) Name() string      { return "copy" }
func (*Test) Name() string      { return "test" }
func (*Increment) Name() string { return "increment" }
func (*Calc) Name() string      { return "calc" }
func (*Modify) Name() string    { return "modify" }

func (o *Add) Guard() *cond.Cond       { return o.If }
func (o *Remove) Guard() *cond.Cond    { return o.If }
func (o *Replace) Guard() *cond.Cond   { return o.If }
func (o *Move) Guard() *cond.Cond      { return o.If }
func (o *Copy) Guard() *cond.Cond      { return o.If }
func (o *Test) Guard() *cond.Cond      { return o.If }
func (o *Increment) Guard() *cond.Cond { return o.If }
func (o *Calc) Guard() *cond.Cond      { return o.If }
func (o *Modify) Guard() *cond.Cond    { return o.If }

type Action int

const (
	ActionAppend Action = iota
	ActionPrepend
	ActionInsert
	ActionMerge
)

func ParseAction(v string) (Action, error) {
	a, ok := map[string]Action{
		"append":  ActionAppend,
		"prepend": ActionPrepend,
		"insert":  ActionInsert,
		"merge":   ActionMerge,
	}[v]
	if ok {
		return a, nil
	}
	return 0, fmt.Errorf("unrecognized modify action %q", v)
}

func (a Action) String() string {
	switch a {
	case ActionAppend:
		return "append"
	case ActionPrepend:
		return "prepend"
	case ActionInsert:
		return "insert"
	case ActionMerge:
		return "merge"
	default:
		return "<unknown action>"
	}
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(d []byte) error {
	aa, err := ParseAction(string(d))
	if err != nil {
		return err
	}
	*a = aa
	return nil
}
