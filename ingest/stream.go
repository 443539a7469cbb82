package ingest

import (
	"strings"

	"github.com/statpatch/statpatch/debug"
)

// Stream buffers incrementally delivered text. A delimited block only
// becomes actionable once both of its markers are buffered; line and
// legacy commands wait until the stream is flushed at end of input.
type Stream struct {
	p   *Parser
	buf string
}

func (p *Parser) NewStream() *Stream {
	return &Stream{p: p}
}

// Feed appends chunk and returns the commands of every block the
// buffer now completes. Completed blocks are consumed from the buffer.
func (s *Stream) Feed(chunk string) ([]Command, []Diagnostic) {
	s.buf += chunk
	var cmds []Command
	var diags []Diagnostic
	for {
		i := strings.Index(s.buf, s.p.start)
		if i < 0 {
			break
		}
		j := strings.Index(s.buf[i+len(s.p.start):], s.p.end)
		if j < 0 {
			break
		}
		body := strings.TrimSpace(s.buf[i+len(s.p.start) : i+len(s.p.start)+j])
		s.buf = s.buf[:i] + s.buf[i+len(s.p.start)+j+len(s.p.end):]
		cmds, diags = s.p.decodeBlock(body, cmds, diags)
	}
	if debug.Ingest() && len(cmds) > 0 {
		debug.Logf("stream: %d commands ready\n", len(cmds))
	}
	return cmds, diags
}

// Visible is the buffered text safe to show now: everything at or
// after an unmatched start marker is withheld until its block closes.
func (s *Stream) Visible() string {
	if i := strings.Index(s.buf, s.p.start); i >= 0 {
		return s.buf[:i]
	}
	return s.buf
}

// Flush parses whatever remains buffered with the full grammar set and
// resets the stream.
func (s *Stream) Flush() ([]Command, []Diagnostic) {
	text := s.buf
	s.buf = ""
	return s.p.Parse(text)
}
