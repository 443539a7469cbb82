package statpatch

import (
	"github.com/statpatch/statpatch/eval"
	"github.com/statpatch/statpatch/ingest"
)

// Outcome aggregates one ingestion cycle: one batch result per
// execution unit plus the parse diagnostics.
type Outcome struct {
	Batches     []eval.BatchResult
	Diagnostics []ingest.Diagnostic
}

func (o Outcome) Success() bool {
	for _, b := range o.Batches {
		if !b.Success {
			return false
		}
	}
	return true
}

// Run parses text, folds batch groups and executes every unit in
// order.
func (s *Session) Run(text string) Outcome {
	cmds, diags := s.Parser.Parse(text)
	out := Outcome{Diagnostics: diags}
	out.Batches = append(out.Batches, s.runCommands(cmds)...)
	return out
}

// RunStream drives a stream over pre-chunked deliveries and closes it.
// Hosts with live delivery use Stream directly.
func (s *Session) RunStream(chunks ...string) Outcome {
	st := s.Stream()
	for _, c := range chunks {
		st.Feed(c)
	}
	return st.Close()
}

func (s *Session) runCommands(cmds []ingest.Command) []eval.BatchResult {
	var res []eval.BatchResult
	for _, b := range ingest.Group(cmds) {
		res = append(res, s.Exec.ExecuteBatch(b.Ops, b.Atomic))
	}
	return res
}

// EndCycle clears the delta projection. Hosts call it between
// ingestion cycles so delta only reflects the latest one.
func (s *Session) EndCycle() {
	s.Doc.ClearDelta()
}

// Stream runs a session over incrementally delivered text. Completed
// structured blocks execute as soon as their closing marker arrives;
// everything else waits for Close.
type Stream struct {
	s   *Session
	in  *ingest.Stream
	out Outcome
}

func (s *Session) Stream() *Stream {
	return &Stream{s: s, in: s.Parser.NewStream()}
}

// Feed buffers chunk and executes any block it completed.
func (st *Stream) Feed(chunk string) {
	cmds, diags := st.in.Feed(chunk)
	st.out.Diagnostics = append(st.out.Diagnostics, diags...)
	st.out.Batches = append(st.out.Batches, st.s.runCommands(cmds)...)
}

// Visible is the buffered text safe to display so far.
func (st *Stream) Visible() string {
	return st.in.Visible()
}

// Close flushes the remaining buffer through the full grammar set,
// executes it and returns the accumulated outcome.
func (st *Stream) Close() Outcome {
	cmds, diags := st.in.Flush()
	st.out.Diagnostics = append(st.out.Diagnostics, diags...)
	st.out.Batches = append(st.out.Batches, st.s.runCommands(cmds)...)
	return st.out
}
