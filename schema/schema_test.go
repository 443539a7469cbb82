package schema

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/statpatch/statpatch/doc"
	"github.com/statpatch/statpatch/kpath"
)

func guardedDoc() *doc.Doc {
	return doc.FromMap(map[string]any{
		"stats": map[string]any{
			"$meta": map[string]any{
				"extensible": false,
				"required":   []any{"hp", "mp"},
			},
			"hp": float64(100),
			"mp": float64(50),
		},
		"bag": map[string]any{
			"$meta": map[string]any{
				"extensible": true,
				"template": map[string]any{
					"count":  float64(1),
					"stolen": false,
				},
			},
		},
		"world": map[string]any{
			"$meta": map[string]any{
				"recursiveExtensible": true,
			},
			"regions": map[string]any{
				"north": map[string]any{},
			},
		},
		"free": map[string]any{
			"anything": true,
		},
	})
}

func TestValidateAdd(t *testing.T) {
	d := guardedDoc()
	g := New(true)

	tests := []struct {
		path string
		ok   bool
	}{
		{"stats.luck", false},     // closed mapping
		{"stats.hp", true},        // overwrite of existing key
		{"bag.potion", true},      // extensible parent
		{"free.newKey", true},     // no metadata anywhere
		{"world.regions.south", true},          // recursive
		{"world.regions.north.climate", true},  // recursive at depth
		{"stats", true},           // root mapping is ungoverned
	}
	for _, tc := range tests {
		err := g.ValidateAdd(d, kpath.Parse(tc.path))
		if (err == nil) != tc.ok {
			t.Errorf("ValidateAdd(%s) = %v, want ok=%v", tc.path, err, tc.ok)
		}
		if err != nil && !errors.Is(err, ErrViolation) {
			t.Errorf("ValidateAdd(%s) error %v does not wrap ErrViolation", tc.path, err)
		}
	}
}

func TestValidateAddNested(t *testing.T) {
	// Metadata on an ancestor, not the direct parent: plain extensible
	// does not reach grandchildren.
	d := doc.FromMap(map[string]any{
		"inv": map[string]any{
			"$meta":  map[string]any{"extensible": true},
			"slots":  map[string]any{},
		},
	})
	g := New(true)
	if err := g.ValidateAdd(d, kpath.Parse("inv.weapons")); err != nil {
		t.Errorf("direct child add rejected: %v", err)
	}
	if err := g.ValidateAdd(d, kpath.Parse("inv.slots.head")); err == nil {
		t.Error("grandchild add allowed under non-recursive extensible")
	}
}

func TestValidateRemove(t *testing.T) {
	d := guardedDoc()
	g := New(true)

	if err := g.ValidateRemove(d, kpath.Parse("stats.hp")); err == nil {
		t.Error("removal of required key allowed")
	}
	if err := g.ValidateRemove(d, kpath.Parse("stats.mp")); err == nil {
		t.Error("removal of required key allowed")
	}
	if err := g.ValidateRemove(d, kpath.Parse("free.anything")); err != nil {
		t.Errorf("removal under no metadata rejected: %v", err)
	}
	if err := g.ValidateRemove(d, kpath.Parse("bag.nothing")); err != nil {
		t.Errorf("removal of non-required key rejected: %v", err)
	}
}

func TestDisabledGuard(t *testing.T) {
	d := guardedDoc()
	g := New(false)
	if err := g.ValidateAdd(d, kpath.Parse("stats.luck")); err != nil {
		t.Errorf("disabled guard rejected add: %v", err)
	}
	if err := g.ValidateRemove(d, kpath.Parse("stats.hp")); err != nil {
		t.Errorf("disabled guard rejected remove: %v", err)
	}
}

func TestInstantiate(t *testing.T) {
	d := guardedDoc()
	g := New(true)

	got := g.Instantiate(d, kpath.Parse("bag.potion"), map[string]any{
		"count": float64(3),
	})
	want := map[string]any{
		"count":  float64(3),
		"stolen": false,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("template fill mismatch (-want +got):\n%s", diff)
	}

	// Scalars and unguarded paths pass through.
	if got := g.Instantiate(d, kpath.Parse("bag.gold"), float64(10)); got != float64(10) {
		t.Errorf("scalar instantiate changed value: %v", got)
	}
	in := map[string]any{"x": float64(1)}
	if got := g.Instantiate(d, kpath.Parse("free.thing"), in); !cmp.Equal(in, got) {
		t.Errorf("unguarded instantiate changed value: %v", got)
	}
}

func TestMetaOf(t *testing.T) {
	if MetaOf("nope") != nil {
		t.Error("non-mapping metadata decoded")
	}
	m := MetaOf(map[string]any{
		"extensible": true,
		"required":   []any{"a", float64(3), "b"},
		"ignored":    "field",
	})
	if m == nil || !m.Extensible {
		t.Fatalf("metadata decode: %+v", m)
	}
	if diff := cmp.Diff([]string{"a", "b"}, m.Required); diff != "" {
		t.Errorf("required mismatch (-want +got):\n%s", diff)
	}
}
