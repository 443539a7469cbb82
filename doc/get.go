package doc

import (
	"github.com/statpatch/statpatch/kpath"
)

type getOpts struct {
	src Source
	def any
}

type GetOption func(*getOpts)

func WithSource(s Source) GetOption {
	return func(o *getOpts) { o.src = s }
}

func WithDefault(v any) GetOption {
	return func(o *getOpts) { o.def = v }
}

// Get resolves path against the chosen projection (stat by default). Any
// missing or null intermediate stops resolution and yields the default.
// This read contract is the entire surface external renderers consume.
func (d *Doc) Get(path string, opts ...GetOption) any {
	o := &getOpts{src: Stat}
	for _, opt := range opts {
		opt(o)
	}
	v, ok := d.Lookup(kpath.Parse(path), o.src)
	if !ok || v == nil {
		return o.def
	}
	return v
}

// Lookup resolves a parsed path. The append marker never resolves.
// Terminal [value, description] pairs unwrap to the value.
func (d *Doc) Lookup(p kpath.Path, src Source) (any, bool) {
	v, ok := d.Resolve(p, src)
	if !ok {
		return nil, false
	}
	return Unwrap(v), true
}

// Resolve is Lookup without the terminal unwrap: the executor and the
// schema guard address containers as stored.
func (d *Doc) Resolve(p kpath.Path, src Source) (any, bool) {
	cur := any(d.projection(src))
	for _, seg := range p {
		if cur == nil {
			return nil, false
		}
		switch seg.Kind {
		case kpath.KeyKind:
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			cur, ok = m[seg.Key]
			if !ok {
				return nil, false
			}
		case kpath.IndexKind:
			s, ok := cur.([]any)
			if !ok {
				return nil, false
			}
			if seg.Index < 0 || seg.Index >= len(s) {
				return nil, false
			}
			cur = s[seg.Index]
		case kpath.AppendKind:
			return nil, false
		default:
			panic("kind")
		}
	}
	return cur, true
}

// Root exposes the live root mapping of a projection. Mutating it
// bypasses change recording; only the executor should.
func (d *Doc) Root(src Source) map[string]any {
	return d.projection(src)
}

// Unwrap converts a [value, description] leaf to its value. Only
// 2-element sequences whose second element is a string qualify; anything
// else passes through untouched.
func Unwrap(v any) any {
	s, ok := v.([]any)
	if !ok || len(s) != 2 {
		return v
	}
	if _, ok := s[1].(string); !ok {
		return v
	}
	return s[0]
}
