// Package ingest normalizes free text into canonical operations. Three
// grammars are recognized: delimited blocks carrying JSON operation
// arrays, one-line verb commands, and legacy call-style text. Output
// ordering is grammar-major: every block match precedes every line
// match, which precedes every legacy match, regardless of where each
// appeared in the source text.
package ingest

import (
	"fmt"
	"strings"

	"github.com/statpatch/statpatch/debug"
	"github.com/statpatch/statpatch/op"
)

const (
	DefaultStart = "<ops>"
	DefaultEnd   = "</ops>"
)

// NoGroup marks a command that is not part of a captured batch call.
const NoGroup = -1

// Command is one canonical operation plus its batch tagging. Commands
// sharing a Group came from the same legacy batch call and fold into
// one coordinator invocation.
type Command struct {
	Op     op.Op
	Group  int
	Atomic bool
}

// Diagnostic reports input that a grammar matched but could not parse.
// Malformed input is dropped with a diagnostic, never a fatal error.
type Diagnostic struct {
	Grammar string
	Snippet string
	Err     error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s grammar: %v in %q", d.Grammar, d.Err, d.Snippet)
}

type Parser struct {
	start     string
	end       string
	nextGroup int
}

type Option func(*Parser)

// WithMarkers overrides the delimiters of the structured block grammar.
func WithMarkers(start, end string) Option {
	return func(p *Parser) {
		p.start = start
		p.end = end
	}
}

func New(opts ...Option) *Parser {
	p := &Parser{start: DefaultStart, end: DefaultEnd}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse scans text with all three grammars and returns the commands in
// grammar-major order plus diagnostics for everything dropped.
func (p *Parser) Parse(text string) ([]Command, []Diagnostic) {
	var cmds []Command
	var diags []Diagnostic

	rest, bc, bd := p.blocks(text)
	cmds = append(cmds, bc...)
	diags = append(diags, bd...)

	lc, ld, rest := p.lines(rest)
	cmds = append(cmds, lc...)
	diags = append(diags, ld...)

	gc, gd := p.legacy(rest)
	cmds = append(cmds, gc...)
	diags = append(diags, gd...)

	if debug.Ingest() {
		debug.Logf("ingest: %d commands, %d diagnostics\n", len(cmds), len(diags))
	}
	return cmds, diags
}

// blocks extracts every delimited block and decodes its JSON payload.
// The returned rest is the text outside blocks; an unterminated start
// marker hides its tail from the other grammars.
func (p *Parser) blocks(text string) (string, []Command, []Diagnostic) {
	var out strings.Builder
	var cmds []Command
	var diags []Diagnostic
	for {
		i := strings.Index(text, p.start)
		if i < 0 {
			out.WriteString(text)
			break
		}
		j := strings.Index(text[i+len(p.start):], p.end)
		if j < 0 {
			// end of input inside a block: flush semantics, decode
			// whatever followed the marker
			out.WriteString(text[:i])
			body := strings.TrimSpace(text[i+len(p.start):])
			if body != "" {
				cmds, diags = p.decodeBlock(body, cmds, diags)
			}
			break
		}
		body := strings.TrimSpace(text[i+len(p.start) : i+len(p.start)+j])
		out.WriteString(text[:i])
		text = text[i+len(p.start)+j+len(p.end):]
		cmds, diags = p.decodeBlock(body, cmds, diags)
	}
	return out.String(), cmds, diags
}

func (p *Parser) decodeBlock(body string, cmds []Command, diags []Diagnostic) ([]Command, []Diagnostic) {
	ops, err := op.Decode([]byte(body))
	if err != nil {
		return cmds, append(diags, Diagnostic{Grammar: "block", Snippet: snippet(body), Err: err})
	}
	for _, o := range ops {
		cmds = append(cmds, Command{Op: o, Group: NoGroup})
	}
	return cmds, diags
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// Batch is one execution unit after grouping: either a folded legacy
// batch call or a single free-standing command.
type Batch struct {
	Ops    []op.Op
	Atomic bool
}

// Group folds consecutive commands tagged with the same batch group
// into one unit; untagged commands become singleton units.
func Group(cmds []Command) []Batch {
	var out []Batch
	for i := 0; i < len(cmds); {
		c := cmds[i]
		if c.Group == NoGroup {
			out = append(out, Batch{Ops: []op.Op{c.Op}})
			i++
			continue
		}
		b := Batch{Atomic: c.Atomic}
		for i < len(cmds) && cmds[i].Group == c.Group {
			b.Ops = append(b.Ops, cmds[i].Op)
			i++
		}
		out = append(out, b)
	}
	return out
}
