// Package schema enforces optional per-subtree constraints on document
// mutation. Metadata lives inside the document under the reserved $meta
// key of a mapping and governs that mapping's subtree. Lookup walks from
// the root toward the target and the most specific (nearest enclosing)
// metadata wins; metadata is never merged across levels.
package schema

import (
	"errors"
	"fmt"

	"github.com/statpatch/statpatch/debug"
	"github.com/statpatch/statpatch/doc"
	"github.com/statpatch/statpatch/kpath"
)

// MetaKey is the reserved mapping key carrying subtree metadata.
const MetaKey = "$meta"

var ErrViolation = errors.New("schema violation")

// Meta describes the constraints attached to a subtree.
type Meta struct {
	// Extensible permits new keys directly under the governed mapping.
	Extensible bool `json:"extensible" yaml:"extensible"`
	// Required keys cannot be removed.
	Required []string `json:"required" yaml:"required"`
	// Template seeds mapping values added under an extensible subtree.
	Template map[string]any `json:"template" yaml:"template"`
	// RecursiveExtensible extends Extensible to every depth below the
	// governed mapping.
	RecursiveExtensible bool `json:"recursiveExtensible" yaml:"recursiveExtensible"`
}

// MetaOf decodes a $meta value. Unknown fields are ignored; a non-mapping
// value is no metadata at all.
func MetaOf(v any) *Meta {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	meta := &Meta{}
	if b, ok := m["extensible"].(bool); ok {
		meta.Extensible = b
	}
	if b, ok := m["recursiveExtensible"].(bool); ok {
		meta.RecursiveExtensible = b
	}
	if req, ok := m["required"].([]any); ok {
		for _, r := range req {
			if s, ok := r.(string); ok {
				meta.Required = append(meta.Required, s)
			}
		}
	}
	if tpl, ok := m["template"].(map[string]any); ok {
		meta.Template = tpl
	}
	return meta
}

// Guard validates operations against subtree metadata. Disabled guards
// accept everything.
type Guard struct {
	enabled bool
}

func New(enabled bool) *Guard {
	return &Guard{enabled: enabled}
}

func (g *Guard) Enabled() bool {
	return g != nil && g.enabled
}

// lookup returns the nearest enclosing metadata for the mapping that
// would contain the terminal segment of p, and whether that metadata
// sits on the direct parent itself.
func (g *Guard) lookup(d *doc.Doc, p kpath.Path) (meta *Meta, onParent bool) {
	cur := any(d.Root(doc.Stat))
	depth := -1
	last := len(p) - 1
	for i := 0; i <= last; i++ {
		m, ok := cur.(map[string]any)
		if ok {
			if mm := MetaOf(m[MetaKey]); mm != nil {
				meta, depth = mm, i
			}
		}
		if i == last {
			break
		}
		cur = step(cur, p[i])
		if cur == nil {
			break
		}
	}
	return meta, meta != nil && depth == last
}

func step(cur any, seg kpath.Seg) any {
	switch seg.Kind {
	case kpath.KeyKind:
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		return m[seg.Key]
	case kpath.IndexKind:
		s, ok := cur.([]any)
		if !ok || seg.Index < 0 || seg.Index >= len(s) {
			return nil
		}
		return s[seg.Index]
	default:
		return nil
	}
}

// ValidateAdd checks whether an add or replace may introduce the
// terminal key of p. Overwrites of existing keys always pass; sequence
// slots are not governed.
func (g *Guard) ValidateAdd(d *doc.Doc, p kpath.Path) error {
	if !g.Enabled() || len(p) == 0 {
		return nil
	}
	last := p[len(p)-1]
	if last.Kind != kpath.KeyKind {
		return nil
	}
	meta, onParent := g.lookup(d, p)
	if meta == nil {
		return nil
	}
	if parent, ok := d.Resolve(p[:len(p)-1], doc.Stat); ok {
		if m, ok := parent.(map[string]any); ok {
			if _, exists := m[last.Key]; exists {
				return nil
			}
		}
	}
	allowed := meta.RecursiveExtensible || (onParent && meta.Extensible)
	if debug.Schema() {
		debug.Logf("schema add %s: extensible=%v recursive=%v onParent=%v -> %v\n",
			p.String(), meta.Extensible, meta.RecursiveExtensible, onParent, allowed)
	}
	if allowed {
		return nil
	}
	return fmt.Errorf("%w: %q is not extensible, cannot add %q", ErrViolation, p[:len(p)-1].String(), last.Key)
}

// ValidateRemove rejects removal of keys the governing metadata lists as
// required.
func (g *Guard) ValidateRemove(d *doc.Doc, p kpath.Path) error {
	if !g.Enabled() || len(p) == 0 {
		return nil
	}
	last := p[len(p)-1]
	if last.Kind != kpath.KeyKind {
		return nil
	}
	meta, _ := g.lookup(d, p)
	if meta == nil {
		return nil
	}
	for _, req := range meta.Required {
		if req == last.Key {
			return fmt.Errorf("%w: %q is required under %q", ErrViolation, last.Key, p[:len(p)-1].String())
		}
	}
	return nil
}

// Instantiate seeds a mapping value from the governing metadata's
// template: missing template keys are deep-copy filled. Non-mapping
// values and unguarded paths pass through untouched.
func (g *Guard) Instantiate(d *doc.Doc, p kpath.Path, v any) any {
	if !g.Enabled() {
		return v
	}
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	meta, _ := g.lookup(d, p)
	if meta == nil || meta.Template == nil {
		return v
	}
	for k, tv := range meta.Template {
		if _, ok := m[k]; !ok {
			m[k] = doc.Copy(tv)
		}
	}
	return m
}
