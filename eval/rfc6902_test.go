package eval

import (
	"encoding/json"
	"testing"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/google/go-cmp/cmp"

	"github.com/statpatch/statpatch/doc"
	"github.com/statpatch/statpatch/op"
)

// The executor's add/remove/replace/move/copy/test carry RFC 6902
// semantics for the operation shapes both engines support. Cross-check
// against the reference json-patch implementation on a shared fixture.
func TestJSONPatchParity(t *testing.T) {
	start := `{"hp":100,"bag":["sword","rope"],"info":{"name":"aria","job":"scout"}}`
	patch := `[
		{"op":"test","path":"/info/name","value":"aria"},
		{"op":"replace","path":"/hp","value":70},
		{"op":"add","path":"/bag/-","value":"potion"},
		{"op":"add","path":"/mp","value":30},
		{"op":"copy","from":"/hp","path":"/hpBackup"},
		{"op":"move","from":"/info/job","path":"/job"},
		{"op":"remove","path":"/bag/0"}
	]`

	ref, err := jsonpatch.DecodePatch([]byte(patch))
	if err != nil {
		t.Fatal(err)
	}
	refOut, err := ref.Apply([]byte(start))
	if err != nil {
		t.Fatal(err)
	}
	var want map[string]any
	if err := json.Unmarshal(refOut, &want); err != nil {
		t.Fatal(err)
	}

	var stat map[string]any
	if err := json.Unmarshal([]byte(start), &stat); err != nil {
		t.Fatal(err)
	}
	d := doc.FromMap(stat)
	ops, err := op.Decode([]byte(patch))
	if err != nil {
		t.Fatal(err)
	}
	ex := New(d, nil)
	for i, o := range ops {
		if res := ex.Execute(o); !res.Success {
			t.Fatalf("op %d (%s): %+v", i, o.Name(), res)
		}
	}

	if diff := cmp.Diff(want, d.Root(doc.Stat)); diff != "" {
		t.Errorf("diverged from reference json-patch (-want +got):\n%s", diff)
	}
}
