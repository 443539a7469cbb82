package eval

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/statpatch/statpatch/cond"
	"github.com/statpatch/statpatch/doc"
	"github.com/statpatch/statpatch/kpath"
	"github.com/statpatch/statpatch/op"
	"github.com/statpatch/statpatch/schema"
)

func TestIncrement(t *testing.T) {
	d := doc.FromMap(map[string]any{"hp": float64(100)})
	ex := New(d, nil)

	res := ex.Execute(&op.Increment{Path: "hp", Delta: -30})
	if !res.Success || res.Skipped || res.Err != nil {
		t.Fatalf("increment: %+v", res)
	}
	if got := d.Get("hp"); got != float64(70) {
		t.Errorf("hp = %v, want 70", got)
	}
	want := &doc.ChangeRecord{Path: "hp", Old: float64(100), New: float64(70), Reason: "-30"}
	if diff := cmp.Diff(want, res.Change); diff != "" {
		t.Errorf("change record mismatch (-want +got):\n%s", diff)
	}
	if note := d.Get("hp", doc.WithSource(doc.Display)); note != "100->70 (-30)" {
		t.Errorf("display note = %v", note)
	}
	if note := d.Get("hp", doc.WithSource(doc.Delta)); note != "100->70 (-30)" {
		t.Errorf("delta note = %v", note)
	}
}

func TestIncrementAbsentAndTyped(t *testing.T) {
	d := doc.FromMap(map[string]any{"name": "aria"})
	ex := New(d, nil)

	res := ex.Execute(&op.Increment{Path: "kills", Delta: 1})
	if !res.Success {
		t.Fatalf("increment absent: %+v", res)
	}
	if got := d.Get("kills"); got != float64(1) {
		t.Errorf("kills = %v, want 1", got)
	}
	if res.Change.Reason != "+1" {
		t.Errorf("reason = %q, want +1", res.Change.Reason)
	}

	res = ex.Execute(&op.Increment{Path: "name", Delta: 1})
	if res.Success || !errors.Is(res.Err, ErrType) {
		t.Errorf("increment on string: %+v", res)
	}
	if got := d.Get("name"); got != "aria" {
		t.Errorf("failed increment mutated target: %v", got)
	}
}

func TestGuardSkip(t *testing.T) {
	d := doc.FromMap(map[string]any{"hp": float64(10)})
	ex := New(d, nil)

	res := ex.Execute(&op.Increment{
		Path:  "hp",
		Delta: -5,
		If:    cond.Leaf("hp", cond.CmpGt, float64(50)),
	})
	if !res.Success || !res.Skipped || res.Change != nil {
		t.Fatalf("guard skip: %+v", res)
	}
	if got := d.Get("hp"); got != float64(10) {
		t.Errorf("skipped op mutated document: %v", got)
	}
}

func TestAddAppend(t *testing.T) {
	d := doc.FromMap(map[string]any{"bag": []any{"sword"}})
	ex := New(d, nil)

	res := ex.Execute(&op.Add{Path: "bag[-]", Value: "potion"})
	if !res.Success {
		t.Fatalf("append add: %+v", res)
	}
	bag := d.Get("bag").([]any)
	if len(bag) != 2 || bag[1] != "potion" {
		t.Errorf("bag = %v", bag)
	}
}

func TestAddIndexedNonSequence(t *testing.T) {
	d := doc.FromMap(map[string]any{"info": map[string]any{"name": "aria"}})
	ex := New(d, nil)

	res := ex.Execute(&op.Add{Path: "info[0]", Value: "x"})
	if res.Success || !errors.Is(res.Err, doc.ErrAddress) {
		t.Fatalf("indexed add into mapping: %+v", res)
	}
	res = ex.Execute(&op.Add{Path: "info[-]", Value: "x"})
	if res.Success || !errors.Is(res.Err, doc.ErrAddress) {
		t.Fatalf("append add into mapping: %+v", res)
	}
}

func TestRemove(t *testing.T) {
	d := doc.FromMap(map[string]any{"bag": []any{"sword", "rope"}})
	ex := New(d, nil)

	res := ex.Execute(&op.Remove{Path: "bag[0]"})
	if !res.Success || res.Change.Old != "sword" {
		t.Fatalf("remove: %+v", res)
	}
	bag := d.Get("bag").([]any)
	if len(bag) != 1 || bag[0] != "rope" {
		t.Errorf("bag = %v", bag)
	}

	res = ex.Execute(&op.Remove{Path: "bag[5]"})
	if res.Success || !errors.Is(res.Err, doc.ErrAddress) {
		t.Errorf("remove of missing index: %+v", res)
	}
}

func TestReplaceCreatesContainers(t *testing.T) {
	d := doc.New()
	ex := New(d, nil)

	res := ex.Execute(&op.Replace{Path: "world.regions[0].name", Value: "north"})
	if !res.Success {
		t.Fatalf("replace: %+v", res)
	}
	if got := d.Get("world.regions[0].name"); got != "north" {
		t.Errorf("deep replace = %v", got)
	}
}

func TestMove(t *testing.T) {
	d := doc.FromMap(map[string]any{"a": map[string]any{"b": float64(1)}})
	ex := New(d, nil)

	res := ex.Execute(&op.Move{From: "a.b", Path: "c"})
	if !res.Success {
		t.Fatalf("move: %+v", res)
	}
	if got := d.Get("c"); got != float64(1) {
		t.Errorf("c = %v", got)
	}
	if _, ok := d.Resolve(kpath.Parse("a.b"), doc.Stat); ok {
		t.Error("move left the source in place")
	}

	res = ex.Execute(&op.Move{From: "nope", Path: "x"})
	if res.Success || !errors.Is(res.Err, doc.ErrAddress) {
		t.Errorf("move of missing source: %+v", res)
	}
	if _, ok := d.Resolve(kpath.Parse("x"), doc.Stat); ok {
		t.Error("failed move mutated destination")
	}
}

func TestCopyIsDeep(t *testing.T) {
	d := doc.FromMap(map[string]any{"src": map[string]any{"n": float64(1)}})
	ex := New(d, nil)

	res := ex.Execute(&op.Copy{From: "src", Path: "dst"})
	if !res.Success {
		t.Fatalf("copy: %+v", res)
	}
	if err := d.Set(kpath.Parse("src.n"), float64(9)); err != nil {
		t.Fatal(err)
	}
	if got := d.Get("dst.n"); got != float64(1) {
		t.Errorf("copy aliases source: dst.n = %v", got)
	}
}

func TestTestOp(t *testing.T) {
	d := doc.FromMap(map[string]any{"gold": float64(50), "name": "aria"})
	ex := New(d, nil)

	tests := []struct {
		name string
		o    *op.Test
		ok   bool
	}{
		{"value match", &op.Test{Path: "name", Value: "aria", HasValue: true}, true},
		{"value mismatch", &op.Test{Path: "name", Value: "borin", HasValue: true}, false},
		{"comparator pass", &op.Test{Path: "gold", Cond: cond.Leaf("gold", cond.CmpGte, float64(50))}, true},
		{"comparator fail", &op.Test{Path: "gold", Cond: cond.Leaf("gold", cond.CmpGte, float64(100))}, false},
		{"truthiness", &op.Test{Path: "name", Cond: cond.Leaf("name", cond.CmpNone, nil)}, true},
		{"truthiness missing", &op.Test{Path: "nope", Cond: cond.Leaf("nope", cond.CmpNone, nil)}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := ex.Execute(tc.o)
			if res.Success != tc.ok {
				t.Errorf("got %+v, want success=%v", res, tc.ok)
			}
			if !tc.ok && !errors.Is(res.Err, ErrTest) {
				t.Errorf("error %v does not wrap ErrTest", res.Err)
			}
			if res.Change != nil {
				t.Error("test emitted a change record")
			}
		})
	}
}

func TestCalc(t *testing.T) {
	d := doc.FromMap(map[string]any{"hp": float64(40), "mp": float64(20)})
	ex := New(d, nil)

	res := ex.Execute(&op.Calc{Path: "hp", Expr: "hp + mp / 2"})
	if !res.Success {
		t.Fatalf("calc: %+v", res)
	}
	if got := d.Get("hp"); got != float64(50) {
		t.Errorf("hp = %v, want 50", got)
	}
	if res.Change.Reason != "calc: hp + mp / 2" {
		t.Errorf("reason = %q", res.Change.Reason)
	}
}

func TestCalcFailClosed(t *testing.T) {
	d := doc.FromMap(map[string]any{"hp": float64(40)})
	ex := New(d, nil)

	res := ex.Execute(&op.Calc{Path: "hp", Expr: "hp + alert(1)"})
	if res.Success || !errors.Is(res.Err, ErrExpr) {
		t.Fatalf("hostile calc: %+v", res)
	}
	if got := d.Get("hp"); got != float64(40) {
		t.Errorf("failed calc mutated target: %v", got)
	}
}

func TestModifySequence(t *testing.T) {
	idx := 1
	tests := []struct {
		name string
		o    *op.Modify
		want []any
	}{
		{"append", &op.Modify{Path: "s", Action: op.ActionAppend, Value: "c"}, []any{"a", "b", "c"}},
		{"prepend", &op.Modify{Path: "s", Action: op.ActionPrepend, Value: "c"}, []any{"c", "a", "b"}},
		{"insert", &op.Modify{Path: "s", Action: op.ActionInsert, Index: &idx, Value: "c"}, []any{"a", "c", "b"}},
		{"merge", &op.Modify{Path: "s", Action: op.ActionMerge, Value: []any{"c", "d"}}, []any{"a", "b", "c", "d"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := doc.FromMap(map[string]any{"s": []any{"a", "b"}})
			ex := New(d, nil)
			res := ex.Execute(tc.o)
			if !res.Success {
				t.Fatalf("modify: %+v", res)
			}
			if diff := cmp.Diff(tc.want, d.Get("s")); diff != "" {
				t.Errorf("sequence mismatch (-want +got):\n%s", diff)
			}
			if res.Change.Reason != "modify:"+tc.o.Action.String() {
				t.Errorf("reason = %q", res.Change.Reason)
			}
		})
	}
}

func TestModifyMappingMerge(t *testing.T) {
	d := doc.FromMap(map[string]any{"pos": map[string]any{"x": float64(0), "y": float64(2)}})
	ex := New(d, nil)

	res := ex.Execute(&op.Modify{Path: "pos", Action: op.ActionMerge, Value: map[string]any{"x": float64(1)}})
	if !res.Success {
		t.Fatalf("merge: %+v", res)
	}
	want := map[string]any{"x": float64(1), "y": float64(2)}
	if diff := cmp.Diff(want, d.Get("pos")); diff != "" {
		t.Errorf("merge mismatch (-want +got):\n%s", diff)
	}
}

func TestModifyErrors(t *testing.T) {
	big := 9
	tests := []struct {
		name string
		o    *op.Modify
		want error
	}{
		{"append on mapping", &op.Modify{Path: "pos", Action: op.ActionAppend, Value: 1}, ErrType},
		{"mapping merge with array", &op.Modify{Path: "pos", Action: op.ActionMerge, Value: []any{1}}, ErrType},
		{"sequence merge with scalar", &op.Modify{Path: "s", Action: op.ActionMerge, Value: "x"}, ErrType},
		{"insert without index", &op.Modify{Path: "s", Action: op.ActionInsert, Value: "x"}, ErrType},
		{"insert out of range", &op.Modify{Path: "s", Action: op.ActionInsert, Index: &big, Value: "x"}, doc.ErrAddress},
		{"scalar target", &op.Modify{Path: "n", Action: op.ActionAppend, Value: 1}, ErrType},
		{"missing target", &op.Modify{Path: "nope", Action: op.ActionAppend, Value: 1}, doc.ErrAddress},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := doc.FromMap(map[string]any{
				"pos": map[string]any{"x": float64(0)},
				"s":   []any{"a"},
				"n":   float64(3),
			})
			ex := New(d, nil)
			res := ex.Execute(tc.o)
			if res.Success || !errors.Is(res.Err, tc.want) {
				t.Errorf("got %+v, want %v", res, tc.want)
			}
		})
	}
}

func TestSchemaEnforced(t *testing.T) {
	d := doc.FromMap(map[string]any{
		"stats": map[string]any{
			"$meta": map[string]any{"extensible": false, "required": []any{"hp"}},
			"hp":    float64(100),
		},
	})
	ex := New(d, schema.New(true))

	res := ex.Execute(&op.Add{Path: "stats.luck", Value: float64(7)})
	if res.Success || !errors.Is(res.Err, schema.ErrViolation) {
		t.Errorf("closed add: %+v", res)
	}
	res = ex.Execute(&op.Remove{Path: "stats.hp"})
	if res.Success || !errors.Is(res.Err, schema.ErrViolation) {
		t.Errorf("required remove: %+v", res)
	}
	res = ex.Execute(&op.Replace{Path: "stats.hp", Value: float64(90)})
	if !res.Success {
		t.Errorf("overwrite of existing key rejected: %+v", res)
	}
}
