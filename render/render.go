// Package render formats change records and batch outcomes for
// terminals. Color is opt-in; AutoColors enables it when the writer is
// a tty.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/statpatch/statpatch/doc"
	"github.com/statpatch/statpatch/eval"
)

type paintFunc func(format string, a ...any) string

// Colors maps the parts of a rendered change to paint functions.
type Colors struct {
	Path   paintFunc
	Old    paintFunc
	New    paintFunc
	Reason paintFunc
	Err    paintFunc
	Skip   paintFunc
	Insert paintFunc
	Delete paintFunc
}

func plain(format string, a ...any) string {
	return fmt.Sprintf(format, a...)
}

// NoColors paints nothing.
func NoColors() *Colors {
	return &Colors{
		Path: plain, Old: plain, New: plain, Reason: plain,
		Err: plain, Skip: plain, Insert: plain, Delete: plain,
	}
}

func NewColors() *Colors {
	return &Colors{
		Path:   color.RGB(128, 168, 196).SprintfFunc(),
		Old:    color.RGB(196, 96, 16).SprintfFunc(),
		New:    color.RGB(8, 196, 16).SprintfFunc(),
		Reason: color.RGB(128, 216, 236).SprintfFunc(),
		Err:    color.RedString,
		Skip:   color.YellowString,
		Insert: color.GreenString,
		Delete: color.RedString,
	}
}

// AutoColors picks the palette from the writer: colors on a terminal,
// plain everywhere else.
func AutoColors(w io.Writer) *Colors {
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return NewColors()
	}
	return NoColors()
}

type Renderer struct {
	w      io.Writer
	colors *Colors
}

type Option func(*Renderer)

func WithColors(c *Colors) Option {
	return func(r *Renderer) { r.colors = c }
}

func New(w io.Writer, opts ...Option) *Renderer {
	r := &Renderer{w: w, colors: NoColors()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Change writes one audit line: path, old -> new, reason. String to
// string replacements render as an inline diff instead of the full
// before/after pair.
func (r *Renderer) Change(c doc.ChangeRecord) {
	cl := r.colors
	fromStr, fromOK := c.Old.(string)
	toStr, toOK := c.New.(string)
	if fromOK && toOK && fromStr != toStr {
		fmt.Fprintf(r.w, "%s: %s (%s)\n",
			cl.Path("%s", c.Path), r.stringDiff(fromStr, toStr), cl.Reason("%s", c.Reason))
		return
	}
	fmt.Fprintf(r.w, "%s: %s -> %s (%s)\n",
		cl.Path("%s", c.Path),
		cl.Old("%s", renderValue(c.Old)),
		cl.New("%s", renderValue(c.New)),
		cl.Reason("%s", c.Reason))
}

// stringDiff renders a character diff, deletions then insertions in
// place. Diffs touching more than half of both strings fall back to
// the plain old -> new form.
func (r *Renderer) stringDiff(from, to string) string {
	cfg := diffpatch.New()
	diffs := cfg.DiffMain(from, to, false)
	diffSize := 0
	for _, d := range diffs {
		if d.Type != diffpatch.DiffEqual {
			diffSize += len(d.Text)
		}
	}
	if diffSize > min(len(from), len(to)) {
		return r.colors.Old("%s", from) + " -> " + r.colors.New("%s", to)
	}
	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffpatch.DiffDelete:
			b.WriteString(r.colors.Delete("[-%s]", d.Text))
		case diffpatch.DiffInsert:
			b.WriteString(r.colors.Insert("[+%s]", d.Text))
		case diffpatch.DiffEqual:
			b.WriteString(d.Text)
		}
	}
	return b.String()
}

// Result writes one executor outcome.
func (r *Renderer) Result(o string, res eval.Result) {
	switch {
	case res.Skipped:
		fmt.Fprintf(r.w, "%s %s\n", r.colors.Skip("skip"), o)
	case res.Err != nil:
		fmt.Fprintf(r.w, "%s %s: %v\n", r.colors.Err("fail"), o, res.Err)
	case res.Change != nil:
		r.Change(*res.Change)
	default:
		fmt.Fprintf(r.w, "ok %s\n", o)
	}
}

// Batch writes a whole batch outcome, rollback notice included.
func (r *Renderer) Batch(names []string, br eval.BatchResult) {
	for i, res := range br.Results {
		name := ""
		if i < len(names) {
			name = names[i]
		}
		r.Result(name, res)
	}
	if br.Rollback {
		fmt.Fprintf(r.w, "%s\n", r.colors.Err("batch rolled back"))
	}
}

func renderValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	}
	d, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(d)
}
