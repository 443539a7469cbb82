package ingest

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStreamBlockAcrossChunks(t *testing.T) {
	p := New()
	s := p.NewStream()

	cmds, diags := s.Feed(`The goblin strikes. <ops>[{"op":"increment",`)
	if len(cmds) != 0 || len(diags) != 0 {
		t.Fatalf("unterminated block acted on: cmds=%v diags=%v", names(cmds), diags)
	}
	if got := s.Visible(); got != "The goblin strikes. " {
		t.Errorf("visible = %q", got)
	}

	cmds, diags = s.Feed(`"path":"hp","delta":-7}]</ops> You stagger.`)
	if len(diags) != 0 {
		t.Fatalf("diagnostics: %v", diags)
	}
	if len(cmds) != 1 || cmds[0].Op.Name() != "increment" {
		t.Fatalf("completed block not delivered: %v", names(cmds))
	}
	if got := s.Visible(); got != "The goblin strikes.  You stagger." {
		t.Errorf("visible after close = %q", got)
	}
}

func TestStreamFlushRemainder(t *testing.T) {
	p := New()
	s := p.NewStream()

	s.Feed("set hp 70\n_.remove(")
	s.Feed(`"tmp")`)
	cmds, diags := s.Flush()
	if len(diags) != 0 {
		t.Fatalf("diagnostics: %v", diags)
	}
	if diff := cmp.Diff([]string{"replace", "remove"}, names(cmds)); diff != "" {
		t.Errorf("flush (-want +got):\n%s", diff)
	}
	if s.Visible() != "" {
		t.Errorf("buffer survives flush: %q", s.Visible())
	}
}

func TestStreamFlushUnterminatedBlock(t *testing.T) {
	p := New()
	s := p.NewStream()

	s.Feed(`<ops>[{"op":"add","path":"x","value":1}]`)
	cmds, diags := s.Flush()
	if len(diags) != 0 {
		t.Fatalf("diagnostics: %v", diags)
	}
	if len(cmds) != 1 || cmds[0].Op.Name() != "add" {
		t.Errorf("flush of unterminated block: %v", names(cmds))
	}
}

func TestStreamVisibleHidesAfterMarker(t *testing.T) {
	p := New()
	s := p.NewStream()
	s.Feed("before <ops>hidden")
	if got := s.Visible(); got != "before " {
		t.Errorf("visible = %q", got)
	}
}
