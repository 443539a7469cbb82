package op

import (
	"encoding/json"
	"testing"

	"github.com/statpatch/statpatch/cond"
)

func TestDecode(t *testing.T) {
	in := `[
		{"op":"add","path":"bag/-","value":"potion"},
		{"op":"remove","path":"bag[0]"},
		{"op":"replace","path":"hp","value":50,"if":{"path":"hp","gt":0}},
		{"op":"move","from":"a.b","path":"c.d"},
		{"op":"copy","from":"hp","path":"hpBackup"},
		{"op":"test","path":"gold","gte":100},
		{"op":"test","path":"name","value":"aria"},
		{"op":"increment","path":"hp","delta":-30},
		{"op":"calc","path":"hp","expr":"hp + mp / 2"},
		{"op":"modify","path":"bag","action":"insert","index":1,"value":"rope"}
	]`
	ops, err := Decode([]byte(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 10 {
		t.Fatalf("decoded %d ops", len(ops))
	}

	wantNames := []string{
		"add", "remove", "replace", "move", "copy",
		"test", "test", "increment", "calc", "modify",
	}
	for i, o := range ops {
		if o.Name() != wantNames[i] {
			t.Errorf("op %d name %q, want %q", i, o.Name(), wantNames[i])
		}
	}

	rep, ok := ops[2].(*Replace)
	if !ok || rep.If == nil || rep.If.Cmp != cond.CmpGt {
		t.Errorf("replace guard decoded wrong: %+v", ops[2])
	}
	ct, ok := ops[5].(*Test)
	if !ok || ct.HasValue || ct.Cond == nil || ct.Cond.Cmp != cond.CmpGte || ct.Cond.Path != "gold" {
		t.Errorf("comparator test decoded wrong: %+v", ops[5])
	}
	vt, ok := ops[6].(*Test)
	if !ok || !vt.HasValue || vt.Value != "aria" {
		t.Errorf("value test decoded wrong: %+v", ops[6])
	}
	inc, ok := ops[7].(*Increment)
	if !ok || inc.Delta != -30 {
		t.Errorf("increment decoded wrong: %+v", ops[7])
	}
	mod, ok := ops[9].(*Modify)
	if !ok || mod.Action != ActionInsert || mod.Index == nil || *mod.Index != 1 {
		t.Errorf("modify decoded wrong: %+v", ops[9])
	}
}

func TestDecodeSingleObject(t *testing.T) {
	ops, err := Decode([]byte(`{"op":"remove","path":"x"}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 1 || ops[0].Name() != "remove" {
		t.Fatalf("got %v", ops)
	}
}

func TestDecodeErrors(t *testing.T) {
	bad := []string{
		`[{"op":"frobnicate","path":"x"}]`,
		`[{"path":"x"}]`,
		`[{"op":"increment","path":"x"}]`,
		`[{"op":"increment","path":"x","delta":"lots"}]`,
		`[{"op":"calc","path":"x"}]`,
		`[{"op":"modify","path":"x","action":"explode"}]`,
		`[{"op":"add","path":"x","value":1},`,
	}
	for _, in := range bad {
		if _, err := Decode([]byte(in)); err == nil {
			t.Errorf("Decode(%s) succeeded, want error", in)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	idx := 2
	ops := []Op{
		&Add{Path: "bag[-]", Value: "potion"},
		&Remove{Path: "bag[0]", If: cond.Leaf("bag", cond.CmpExists, true)},
		&Replace{Path: "hp", Value: float64(50)},
		&Move{From: "a.b", Path: "c.d"},
		&Copy{From: "hp", Path: "hpBackup"},
		&Test{Path: "gold", Cond: cond.Leaf("gold", cond.CmpGte, float64(100))},
		&Test{Path: "name", Value: "aria", HasValue: true},
		&Increment{Path: "hp", Delta: -30},
		&Calc{Path: "hp", Expr: "hp + 1"},
		&Modify{Path: "bag", Action: ActionInsert, Index: &idx, Value: "rope"},
	}
	d, err := json.Marshal(ops)
	if err != nil {
		t.Fatal(err)
	}
	back, err := Decode(d)
	if err != nil {
		t.Fatalf("decode of %s: %v", d, err)
	}
	if len(back) != len(ops) {
		t.Fatalf("round trip length %d, want %d", len(back), len(ops))
	}
	for i := range ops {
		if back[i].Name() != ops[i].Name() {
			t.Errorf("op %d name %q, want %q", i, back[i].Name(), ops[i].Name())
		}
	}
	mod := back[9].(*Modify)
	if mod.Action != ActionInsert || mod.Index == nil || *mod.Index != 2 {
		t.Errorf("modify round trip: %+v", mod)
	}
}
