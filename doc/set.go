package doc

import (
	"fmt"

	"github.com/statpatch/statpatch/kpath"
)

// Set writes v at p in the stat projection, creating intermediate
// containers as needed. The kind of a created container is inferred from
// the segment that follows it: index or append segments create sequences,
// key segments create mappings. A terminal append marker pushes.
func (d *Doc) Set(p kpath.Path, v any) error {
	return setIn(d.stat, p, v)
}

func setIn(root map[string]any, p kpath.Path, v any) error {
	if len(p) == 0 {
		return fmt.Errorf("%w: empty path", ErrAddress)
	}
	seg := p[0]
	if seg.Kind != kpath.KeyKind {
		return fmt.Errorf("%w: document root is a mapping, cannot address %q", ErrAddress, p.String())
	}
	if len(p) == 1 {
		root[seg.Key] = v
		return nil
	}
	child, ok := root[seg.Key]
	if !ok || child == nil {
		child = newContainer(p[1])
	}
	nc, err := setAt(child, p[1:], v)
	if err != nil {
		return err
	}
	root[seg.Key] = nc
	return nil
}

// setAt writes v below cur and returns the (possibly reallocated)
// container, so sequence growth propagates to the parent slot.
func setAt(cur any, p kpath.Path, v any) (any, error) {
	seg := p[0]
	switch seg.Kind {
	case kpath.KeyKind:
		m, ok := cur.(map[string]any)
		if !ok {
			// a scalar intermediate is overwritten by creation
			m = map[string]any{}
		}
		if len(p) == 1 {
			m[seg.Key] = v
			return m, nil
		}
		child := m[seg.Key]
		if child == nil {
			child = newContainer(p[1])
		}
		nc, err := setAt(child, p[1:], v)
		if err != nil {
			return nil, err
		}
		m[seg.Key] = nc
		return m, nil

	case kpath.IndexKind:
		s, ok := cur.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: index %d into non-sequence", ErrAddress, seg.Index)
		}
		if seg.Index < 0 || seg.Index > len(s) {
			return nil, fmt.Errorf("%w: index %d out of range (len %d)", ErrAddress, seg.Index, len(s))
		}
		if seg.Index == len(s) {
			s = append(s, nil)
		}
		if len(p) == 1 {
			s[seg.Index] = v
			return s, nil
		}
		child := s[seg.Index]
		if child == nil {
			child = newContainer(p[1])
		}
		nc, err := setAt(child, p[1:], v)
		if err != nil {
			return nil, err
		}
		s[seg.Index] = nc
		return s, nil

	case kpath.AppendKind:
		s, ok := cur.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: append to non-sequence", ErrAddress)
		}
		if len(p) == 1 {
			return append(s, v), nil
		}
		child := newContainer(p[1])
		nc, err := setAt(child, p[1:], v)
		if err != nil {
			return nil, err
		}
		return append(s, nc), nil

	default:
		panic("kind")
	}
}

func newContainer(next kpath.Seg) any {
	if next.Kind == kpath.KeyKind {
		return map[string]any{}
	}
	return []any{}
}

// Delete removes a mapping key or splices a sequence index from the stat
// projection. It reports false, without error, when any intermediate is
// missing or the terminal slot does not exist.
func (d *Doc) Delete(p kpath.Path) bool {
	if len(p) == 0 {
		return false
	}
	seg := p[0]
	if seg.Kind != kpath.KeyKind {
		return false
	}
	if len(p) == 1 {
		_, ok := d.stat[seg.Key]
		delete(d.stat, seg.Key)
		return ok
	}
	child, ok := d.stat[seg.Key]
	if !ok {
		return false
	}
	nc, ok := deleteAt(child, p[1:])
	if !ok {
		return false
	}
	d.stat[seg.Key] = nc
	return true
}

func deleteAt(cur any, p kpath.Path) (any, bool) {
	seg := p[0]
	switch seg.Kind {
	case kpath.KeyKind:
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if len(p) == 1 {
			_, ok := m[seg.Key]
			delete(m, seg.Key)
			return m, ok
		}
		child, ok := m[seg.Key]
		if !ok {
			return nil, false
		}
		nc, ok := deleteAt(child, p[1:])
		if !ok {
			return nil, false
		}
		m[seg.Key] = nc
		return m, true

	case kpath.IndexKind:
		s, ok := cur.([]any)
		if !ok || seg.Index < 0 || seg.Index >= len(s) {
			return nil, false
		}
		if len(p) == 1 {
			s = append(s[:seg.Index], s[seg.Index+1:]...)
			return s, true
		}
		nc, ok := deleteAt(s[seg.Index], p[1:])
		if !ok {
			return nil, false
		}
		s[seg.Index] = nc
		return s, true

	default:
		return nil, false
	}
}
