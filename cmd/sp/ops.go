package main

import (
	"encoding/json"
	"fmt"

	"github.com/scott-cotton/cli"

	"github.com/statpatch/statpatch/ingest"
)

// ops is a dry run: it shows what the ingestor would hand to the
// coordinator, as canonical JSON, one execution unit per line.
func ops(cfg *OpsConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Ops.Parse(cc, args)
	if err != nil {
		return err
	}
	text, err := readInputs(args)
	if err != nil {
		return err
	}
	cfg.resolve()
	p := ingest.New(markerOpts(cfg.MainConfig)...)
	cmds, diags := p.Parse(text)
	for _, d := range diags {
		theLog.Warn("dropped input", "grammar", d.Grammar, "err", d.Err, "snippet", d.Snippet)
	}
	for _, b := range ingest.Group(cmds) {
		data, err := json.Marshal(b.Ops)
		if err != nil {
			return err
		}
		if b.Atomic {
			fmt.Fprintf(cc.Out, "atomic %s\n", data)
			continue
		}
		fmt.Fprintf(cc.Out, "%s\n", data)
	}
	return nil
}

func markerOpts(cfg *MainConfig) []ingest.Option {
	if cfg.StartMarker == "" {
		return nil
	}
	return []ingest.Option{ingest.WithMarkers(cfg.StartMarker, cfg.EndMarker)}
}
