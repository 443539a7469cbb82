package main

import (
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/scott-cotton/cli"

	"github.com/statpatch/statpatch/doc"
)

func get(cfg *GetConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Get.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: get wants at least one path", cli.ErrUsage)
	}
	src := doc.Stat
	if cfg.Source != "" {
		src, err = doc.ParseSource(cfg.Source)
		if err != nil {
			return fmt.Errorf("%w: %w", cli.ErrUsage, err)
		}
	}
	s, err := cfg.session()
	if err != nil {
		return err
	}
	for _, path := range args {
		v := s.Doc.Get(path, doc.WithSource(src))
		data, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		if len(args) > 1 {
			fmt.Fprintf(cc.Out, "%s: ", path)
		}
		fmt.Fprint(cc.Out, string(data))
	}
	return nil
}
