// Package eval executes canonical operations against a document. The
// Executor is the single mutation boundary: guards are evaluated first,
// then the schema guard, then the operation itself, and every failure
// comes back as a structured result. Nothing panics across this surface.
package eval

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/statpatch/statpatch/arith"
	"github.com/statpatch/statpatch/cond"
	"github.com/statpatch/statpatch/debug"
	"github.com/statpatch/statpatch/doc"
	"github.com/statpatch/statpatch/kpath"
	"github.com/statpatch/statpatch/op"
	"github.com/statpatch/statpatch/schema"
)

var (
	// ErrType marks a value of the wrong shape for the operation.
	ErrType = errors.New("type error")
	// ErrTest marks a failed test assertion.
	ErrTest = errors.New("test failed")
	// ErrExpr marks an arithmetic expression that failed closed.
	ErrExpr = errors.New("expression error")
)

// Result is the outcome of one operation. A false guard produces
// Success with Skipped set, never an error. Change is set for every
// mutating success.
type Result struct {
	Success bool
	Skipped bool
	Err     error
	Change  *doc.ChangeRecord
}

type Executor struct {
	doc   *doc.Doc
	guard *schema.Guard
}

// New builds an executor over d. A nil guard disables schema checks.
func New(d *doc.Doc, g *schema.Guard) *Executor {
	if g == nil {
		g = schema.New(false)
	}
	return &Executor{doc: d, guard: g}
}

func (e *Executor) Doc() *doc.Doc { return e.doc }

// Execute runs one operation. Guard first, schema second, dispatch
// third. Panics inside dispatch are converted to failed results.
func (e *Executor) Execute(o op.Op) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = fail(fmt.Errorf("internal: %v", r))
		}
	}()
	if c := o.Guard(); c != nil && !cond.Evaluate(e.doc, c) {
		if debug.Exec() {
			debug.Logf("skip %s: guard false\n", o.Name())
		}
		return Result{Success: true, Skipped: true}
	}
	res = e.dispatch(o)
	if debug.Exec() {
		debug.Logf("exec %s: success=%v err=%v\n", o.Name(), res.Success, res.Err)
	}
	return res
}

func (e *Executor) dispatch(o op.Op) Result {
	switch o := o.(type) {
	case *op.Add:
		return e.add(o)
	case *op.Remove:
		return e.remove(o)
	case *op.Replace:
		return e.replace(o)
	case *op.Move:
		return e.move(o)
	case *op.Copy:
		return e.copyOp(o)
	case *op.Test:
		return e.test(o)
	case *op.Increment:
		return e.increment(o)
	case *op.Calc:
		return e.calc(o)
	case *op.Modify:
		return e.modify(o)
	default:
		return fail(fmt.Errorf("unrecognized operation %T", o))
	}
}

func fail(err error) Result {
	return Result{Err: err}
}

// commit records the audit entry for a successful mutation.
func (e *Executor) commit(p kpath.Path, old, now any, reason string) Result {
	c := doc.ChangeRecord{Path: p.String(), Old: old, New: now, Reason: reason}
	e.doc.Record(c)
	return Result{Success: true, Change: &c}
}

func (e *Executor) add(o *op.Add) Result {
	p := kpath.Parse(o.Path)
	if err := e.guard.ValidateAdd(e.doc, p); err != nil {
		return fail(err)
	}
	old, _ := e.doc.Resolve(p, doc.Stat)
	v := e.guard.Instantiate(e.doc, p, o.Value)
	if err := e.doc.Set(p, v); err != nil {
		return fail(err)
	}
	return e.commit(p, old, v, "add")
}

func (e *Executor) remove(o *op.Remove) Result {
	p := kpath.Parse(o.Path)
	if err := e.guard.ValidateRemove(e.doc, p); err != nil {
		return fail(err)
	}
	old, ok := e.doc.Resolve(p, doc.Stat)
	if !ok {
		return fail(fmt.Errorf("%w: remove of missing path %q", doc.ErrAddress, p.String()))
	}
	if !e.doc.Delete(p) {
		return fail(fmt.Errorf("%w: cannot remove %q", doc.ErrAddress, p.String()))
	}
	return e.commit(p, old, nil, "remove")
}

func (e *Executor) replace(o *op.Replace) Result {
	p := kpath.Parse(o.Path)
	if err := e.guard.ValidateAdd(e.doc, p); err != nil {
		return fail(err)
	}
	old, _ := e.doc.Resolve(p, doc.Stat)
	if err := e.doc.Set(p, o.Value); err != nil {
		return fail(err)
	}
	return e.commit(p, old, o.Value, "replace")
}

// move captures the source value, validates both halves, then deletes
// the source and writes the destination. The source must resolve before
// anything mutates.
func (e *Executor) move(o *op.Move) Result {
	from := kpath.Parse(o.From)
	to := kpath.Parse(o.Path)
	v, ok := e.doc.Resolve(from, doc.Stat)
	if !ok {
		return fail(fmt.Errorf("%w: move source %q undefined", doc.ErrAddress, from.String()))
	}
	if err := e.guard.ValidateRemove(e.doc, from); err != nil {
		return fail(err)
	}
	if err := e.guard.ValidateAdd(e.doc, to); err != nil {
		return fail(err)
	}
	old, _ := e.doc.Resolve(to, doc.Stat)
	if !e.doc.Delete(from) {
		return fail(fmt.Errorf("%w: cannot remove move source %q", doc.ErrAddress, from.String()))
	}
	if err := e.doc.Set(to, v); err != nil {
		return fail(err)
	}
	return e.commit(to, old, v, "move")
}

func (e *Executor) copyOp(o *op.Copy) Result {
	from := kpath.Parse(o.From)
	to := kpath.Parse(o.Path)
	v, ok := e.doc.Resolve(from, doc.Stat)
	if !ok {
		return fail(fmt.Errorf("%w: copy source %q undefined", doc.ErrAddress, from.String()))
	}
	if err := e.guard.ValidateAdd(e.doc, to); err != nil {
		return fail(err)
	}
	old, _ := e.doc.Resolve(to, doc.Stat)
	cp := doc.Copy(v)
	if err := e.doc.Set(to, cp); err != nil {
		return fail(err)
	}
	return e.commit(to, old, cp, "copy")
}

// test asserts without mutating. A literal value field is a deep
// equality check; otherwise the operation's own comparator runs through
// the condition evaluator.
func (e *Executor) test(o *op.Test) Result {
	if o.HasValue {
		cur, _ := e.doc.Lookup(kpath.Parse(o.Path), doc.Stat)
		if !doc.DeepEqual(cur, o.Value) {
			return fail(fmt.Errorf("%w: %q is %v, want %v", ErrTest, o.Path, cur, o.Value))
		}
		return Result{Success: true}
	}
	if !cond.Evaluate(e.doc, o.Cond) {
		return fail(fmt.Errorf("%w: condition on %q not met", ErrTest, o.Path))
	}
	return Result{Success: true}
}

func (e *Executor) increment(o *op.Increment) Result {
	p := kpath.Parse(o.Path)
	cur, ok := e.doc.Lookup(p, doc.Stat)
	var old float64
	if ok && cur != nil {
		old, ok = doc.Number(cur)
		if !ok {
			return fail(fmt.Errorf("%w: increment target %q is not numeric", ErrType, p.String()))
		}
	}
	now := old + o.Delta
	if err := e.doc.Set(p, now); err != nil {
		return fail(err)
	}
	reason := strconv.FormatFloat(o.Delta, 'f', -1, 64)
	if o.Delta >= 0 {
		reason = "+" + reason
	}
	return e.commit(p, old, now, reason)
}

func (e *Executor) calc(o *op.Calc) Result {
	p := kpath.Parse(o.Path)
	v, ok := arith.Eval(e.doc, o.Expr)
	if !ok {
		return fail(fmt.Errorf("%w: %q failed closed", ErrExpr, o.Expr))
	}
	old, _ := e.doc.Resolve(p, doc.Stat)
	if err := e.doc.Set(p, v); err != nil {
		return fail(err)
	}
	return e.commit(p, old, v, "calc: "+o.Expr)
}

// modify edits a container in place. Sequences take all four actions,
// mappings only merge; everything else is the wrong shape.
func (e *Executor) modify(o *op.Modify) Result {
	p := kpath.Parse(o.Path)
	target, ok := e.doc.Resolve(p, doc.Stat)
	if !ok {
		return fail(fmt.Errorf("%w: modify target %q undefined", doc.ErrAddress, p.String()))
	}
	old := doc.Copy(target)

	var now any
	switch t := target.(type) {
	case []any:
		s, err := modifySeq(t, o)
		if err != nil {
			return fail(err)
		}
		now = s
	case map[string]any:
		if o.Action != op.ActionMerge {
			return fail(fmt.Errorf("%w: action %s on mapping target %q", ErrType, o.Action, p.String()))
		}
		patch, ok := o.Value.(map[string]any)
		if !ok {
			return fail(fmt.Errorf("%w: merge into mapping requires a mapping value", ErrType))
		}
		for k, v := range patch {
			t[k] = v
		}
		now = t
	default:
		return fail(fmt.Errorf("%w: modify target %q is not a container", ErrType, p.String()))
	}
	if err := e.doc.Set(p, now); err != nil {
		return fail(err)
	}
	return e.commit(p, old, now, "modify:"+o.Action.String())
}

func modifySeq(s []any, o *op.Modify) ([]any, error) {
	switch o.Action {
	case op.ActionAppend:
		return append(s, o.Value), nil
	case op.ActionPrepend:
		return append([]any{o.Value}, s...), nil
	case op.ActionInsert:
		if o.Index == nil {
			return nil, fmt.Errorf("%w: insert requires an index", ErrType)
		}
		i := *o.Index
		if i < 0 || i > len(s) {
			return nil, fmt.Errorf("%w: insert index %d out of range (len %d)", doc.ErrAddress, i, len(s))
		}
		out := make([]any, 0, len(s)+1)
		out = append(out, s[:i]...)
		out = append(out, o.Value)
		out = append(out, s[i:]...)
		return out, nil
	case op.ActionMerge:
		more, ok := o.Value.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: merge into sequence requires an array value", ErrType)
		}
		return append(s, more...), nil
	default:
		return nil, fmt.Errorf("%w: action %s on sequence", ErrType, o.Action)
	}
}
