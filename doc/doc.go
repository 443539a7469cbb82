// Package doc holds the mutable state document and its two derived
// projections. The stat projection is the live data; display and delta
// record human-readable change annotations, delta only since its last
// clear. All mutation flows through the executor; readers use Get.
package doc

import (
	"fmt"

	"github.com/statpatch/statpatch/kpath"
)

type Source int

const (
	Stat Source = iota
	Display
	Delta
)

func ParseSource(v string) (Source, error) {
	s, ok := map[string]Source{
		"stat":    Stat,
		"display": Display,
		"delta":   Delta,
	}[v]
	if ok {
		return s, nil
	}
	return 0, fmt.Errorf("unrecognized source %q", v)
}

func (s Source) String() string {
	switch s {
	case Stat:
		return "stat"
	case Display:
		return "display"
	case Delta:
		return "delta"
	default:
		return "<unknown source>"
	}
}

// ChangeRecord is the audit entry produced per successful mutation.
type ChangeRecord struct {
	Path   string `json:"path"`
	Old    any    `json:"oldValue"`
	New    any    `json:"newValue"`
	Reason string `json:"reason"`
}

type Doc struct {
	stat    map[string]any
	display map[string]any
	delta   map[string]any

	subs []func(ChangeRecord)
}

func New() *Doc {
	return &Doc{
		stat:    map[string]any{},
		display: map[string]any{},
		delta:   map[string]any{},
	}
}

// FromMap builds a document over an existing stat tree. The map is used
// in place, not copied.
func FromMap(stat map[string]any) *Doc {
	d := New()
	if stat != nil {
		d.stat = stat
	}
	return d
}

func (d *Doc) projection(src Source) map[string]any {
	switch src {
	case Stat:
		return d.stat
	case Display:
		return d.display
	case Delta:
		return d.delta
	default:
		panic("source")
	}
}

// Subscribe registers f to observe every change record. Observers are
// called synchronously, in registration order.
func (d *Doc) Subscribe(f func(ChangeRecord)) {
	d.subs = append(d.subs, f)
}

// Record writes the change annotation into the display and delta
// projections at the record's path and notifies subscribers.
func (d *Doc) Record(c ChangeRecord) {
	note := fmt.Sprintf("%s->%s (%s)", fmtVal(c.Old), fmtVal(c.New), c.Reason)
	p := kpath.Parse(c.Path)
	// annotation writes are best effort: an unaddressable projection
	// slot never fails the recorded mutation itself
	setIn(d.display, p, note)
	setIn(d.delta, p, note)
	for _, f := range d.subs {
		f(c)
	}
}

// ClearDelta empties the delta projection. The host calls this at
// ingestion cycle boundaries.
func (d *Doc) ClearDelta() {
	d.delta = map[string]any{}
}

// Clone deep-copies the document, projections included. Subscribers are
// not carried over.
func (d *Doc) Clone() *Doc {
	return &Doc{
		stat:    Copy(d.stat).(map[string]any),
		display: Copy(d.display).(map[string]any),
		delta:   Copy(d.delta).(map[string]any),
	}
}

// Restore replaces the document contents with those of snap, verbatim.
// Subscribers are kept.
func (d *Doc) Restore(snap *Doc) {
	d.stat = snap.stat
	d.display = snap.display
	d.delta = snap.delta
}
