package main

import (
	"fmt"
	"strings"

	"github.com/scott-cotton/cli"

	"github.com/statpatch/statpatch"
)

func apply(cfg *ApplyConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Apply.Parse(cc, args)
	if err != nil {
		return err
	}
	s, err := cfg.session()
	if err != nil {
		return err
	}
	r := cfg.renderer(cc.Out)
	if !cfg.Quiet {
		s.Doc.Subscribe(r.Change)
	}

	text, err := readInputs(args)
	if err != nil {
		return err
	}

	var out statpatch.Outcome
	if cfg.Stream {
		out = applyStream(s, text)
	} else {
		out = s.Run(text)
	}
	for _, d := range out.Diagnostics {
		theLog.Warn("dropped input", "grammar", d.Grammar, "err", d.Err, "snippet", d.Snippet)
	}
	reportFailures(cc, out)

	if err := cfg.saveState(s); err != nil {
		return err
	}
	if !out.Success() {
		return fmt.Errorf("%d operation(s) failed", failureCount(out))
	}
	return nil
}

// applyStream delivers the input line by line, the way a host would
// hand over partial generator output. Lines keep their terminators and
// may be arbitrarily long.
func applyStream(s *statpatch.Session, text string) statpatch.Outcome {
	st := s.Stream()
	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		st.Feed(line)
	}
	return st.Close()
}

func reportFailures(cc *cli.Context, out statpatch.Outcome) {
	for _, b := range out.Batches {
		for _, be := range b.Errors {
			theLog.Error("operation failed", "index", be.Index, "op", be.Op.Name(), "err", be.Err)
		}
		if b.Rollback {
			fmt.Fprintln(cc.Out, "batch rolled back")
		}
	}
}

func failureCount(out statpatch.Outcome) int {
	n := 0
	for _, b := range out.Batches {
		n += len(b.Errors)
	}
	return n
}
