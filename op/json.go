package op

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/statpatch/statpatch/cond"
)

// Decode parses the canonical wire format: a JSON array of operation
// objects, or a single object. Unknown discriminants and malformed
// kind-specific fields are errors.
func Decode(data []byte) ([]Op, error) {
	trim := bytes.TrimSpace(data)
	if len(trim) > 0 && trim[0] == '{' {
		o, err := DecodeOne(trim)
		if err != nil {
			return nil, err
		}
		return []Op{o}, nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(trim, &raws); err != nil {
		return nil, fmt.Errorf("operation array: %w", err)
	}
	res := make([]Op, 0, len(raws))
	for i, raw := range raws {
		o, err := DecodeOne(raw)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		res = append(res, o)
	}
	return res, nil
}

// DecodeOne parses a single operation object.
func DecodeOne(data []byte) (Op, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	dec := &opDecoder{raw: raw}
	name := dec.str("op")
	guard, err := dec.guard()
	if err != nil {
		return nil, err
	}

	var o Op
	switch name {
	case "add":
		o = &Add{Path: dec.str("path"), Value: dec.val("value"), If: guard}
	case "remove":
		o = &Remove{Path: dec.str("path"), If: guard}
	case "replace":
		o = &Replace{Path: dec.str("path"), Value: dec.val("value"), If: guard}
	case "move":
		o = &Move{From: dec.str("from"), Path: dec.str("path"), If: guard}
	case "copy":
		o = &Copy{From: dec.str("from"), Path: dec.str("path"), If: guard}
	case "test":
		o = dec.test(guard)
	case "increment":
		f, ok := dec.num("delta")
		if !ok {
			return nil, fmt.Errorf("increment requires a numeric delta")
		}
		o = &Increment{Path: dec.str("path"), Delta: f, If: guard}
	case "calc":
		expr := dec.str("expr")
		if expr == "" {
			return nil, fmt.Errorf("calc requires expr")
		}
		o = &Calc{Path: dec.str("path"), Expr: expr, If: guard}
	case "modify":
		m := &Modify{Path: dec.str("path"), Value: dec.val("value"), If: guard}
		action, err := ParseAction(dec.str("action"))
		if err != nil {
			return nil, err
		}
		m.Action = action
		if i, ok := dec.num("index"); ok {
			idx := int(i)
			m.Index = &idx
		}
		o = m
	case "":
		return nil, fmt.Errorf("missing op discriminant")
	default:
		return nil, fmt.Errorf("unrecognized op %q", name)
	}
	if dec.err != nil {
		return nil, dec.err
	}
	return o, nil
}

type opDecoder struct {
	raw map[string]json.RawMessage
	err error
}

func (d *opDecoder) str(key string) string {
	raw, ok := d.raw[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil && d.err == nil {
		d.err = fmt.Errorf("field %s: %w", key, err)
	}
	return s
}

func (d *opDecoder) val(key string) any {
	raw, ok := d.raw[key]
	if !ok {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil && d.err == nil {
		d.err = fmt.Errorf("field %s: %w", key, err)
	}
	return v
}

func (d *opDecoder) num(key string) (float64, bool) {
	raw, ok := d.raw[key]
	if !ok {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		if d.err == nil {
			d.err = fmt.Errorf("field %s: %w", key, err)
		}
		return 0, false
	}
	return f, true
}

func (d *opDecoder) guard() (*cond.Cond, error) {
	raw, ok := d.raw["if"]
	if !ok {
		return nil, nil
	}
	c := &cond.Cond{}
	if err := json.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("if condition: %w", err)
	}
	return c, nil
}

// test is either a literal value assertion or a reuse of the condition
// comparators keyed directly on the operation object.
func (d *opDecoder) test(guard *cond.Cond) Op {
	t := &Test{Path: d.str("path"), If: guard}
	if raw, ok := d.raw["value"]; ok {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil && d.err == nil {
			d.err = fmt.Errorf("field value: %w", err)
		}
		t.Value = v
		t.HasValue = true
		return t
	}
	for _, key := range cond.Comparators() {
		raw, ok := d.raw[key]
		if !ok {
			continue
		}
		var arg any
		if err := json.Unmarshal(raw, &arg); err != nil && d.err == nil {
			d.err = fmt.Errorf("field %s: %w", key, err)
		}
		cmp, _ := cond.ParseCmp(key)
		t.Cond = cond.Leaf(t.Path, cmp, arg)
		return t
	}
	// no value, no comparator: a truthiness assertion on the path
	t.Cond = cond.Leaf(t.Path, cond.CmpNone, nil)
	return t
}

func (o *Add) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Op    string     `json:"op"`
		Path  string     `json:"path"`
		Value any        `json:"value"`
		If    *cond.Cond `json:"if,omitempty"`
	}{"add", o.Path, o.Value, o.If})
}

func (o *Remove) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Op   string     `json:"op"`
		Path string     `json:"path"`
		If   *cond.Cond `json:"if,omitempty"`
	}{"remove", o.Path, o.If})
}

func (o *Replace) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Op    string     `json:"op"`
		Path  string     `json:"path"`
		Value any        `json:"value"`
		If    *cond.Cond `json:"if,omitempty"`
	}{"replace", o.Path, o.Value, o.If})
}

func (o *Move) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Op   string     `json:"op"`
		From string     `json:"from"`
		Path string     `json:"path"`
		If   *cond.Cond `json:"if,omitempty"`
	}{"move", o.From, o.Path, o.If})
}

func (o *Copy) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Op   string     `json:"op"`
		From string     `json:"from"`
		Path string     `json:"path"`
		If   *cond.Cond `json:"if,omitempty"`
	}{"copy", o.From, o.Path, o.If})
}

func (o *Test) MarshalJSON() ([]byte, error) {
	m := map[string]any{"op": "test", "path": o.Path}
	if o.HasValue {
		m["value"] = o.Value
	} else if o.Cond != nil && o.Cond.Cmp != cond.CmpNone {
		m[o.Cond.Cmp.String()] = o.Cond.Arg
	}
	if o.If != nil {
		m["if"] = o.If
	}
	return json.Marshal(m)
}

func (o *Increment) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Op    string     `json:"op"`
		Path  string     `json:"path"`
		Delta float64    `json:"delta"`
		If    *cond.Cond `json:"if,omitempty"`
	}{"increment", o.Path, o.Delta, o.If})
}

func (o *Calc) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Op   string     `json:"op"`
		Path string     `json:"path"`
		Expr string     `json:"expr"`
		If   *cond.Cond `json:"if,omitempty"`
	}{"calc", o.Path, o.Expr, o.If})
}

func (o *Modify) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Op     string     `json:"op"`
		Path   string     `json:"path"`
		Action Action     `json:"action"`
		Index  *int       `json:"index,omitempty"`
		Value  any        `json:"value"`
		If     *cond.Cond `json:"if,omitempty"`
	}{"modify", o.Path, o.Action, o.Index, o.Value, o.If})
}
