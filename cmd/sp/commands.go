package main

import (
	"github.com/scott-cotton/cli"
)

func MainCommand() *cli.Command {
	cfg := &MainConfig{}
	sOpts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts := append(sOpts, []*cli.Opt{
		&cli.Opt{
			Name:        "state",
			Description: "state document file, yaml (default in-memory only)",
			Type:        cli.NamedFuncOpt(cfg.stateOpt, "(filepath)"),
		},
		&cli.Opt{
			Name:        "config",
			Description: "config file, yaml; flags override it",
			Type:        cli.NamedFuncOpt(cfg.configOpt, "(filepath)"),
		},
		&cli.Opt{
			Name:        "o",
			Description: "output file (default stdout)",
			Type:        cli.NamedFuncOpt(cfg.outOpt, "(filepath)"),
		},
		&cli.Opt{
			Name:        "markers",
			Description: "block delimiters as start,end",
			Type:        cli.NamedFuncOpt(cfg.markersOpt, "(start,end)"),
		}}...)

	return cli.NewCommandAt(&cfg.Main, "sp").
		WithSynopsis("sp [opts] command [opts]").
		WithDescription("sp applies guarded, auditable patches to a structured state document.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return spMain(cfg, cc, args)
		}).
		WithSubs(
			ApplyCommand(cfg),
			GetCommand(cfg),
			OpsCommand(cfg),
			ServeCommand(cfg))
}

func ApplyCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &ApplyConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	cmd := cli.NewCommand("apply").
		WithAliases("a", "ap").
		WithSynopsis("apply [files]").
		WithDescription("Parse command text and apply the operations (stdin if no files).").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return apply(cfg, cc, args)
		})
	cfg.Apply = cmd
	return cmd
}

func GetCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &GetConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	cmd := cli.NewCommand("get").
		WithAliases("g", "ge").
		WithSynopsis("get [-source stat|display|delta] <path>...").
		WithDescription("Read values from the state document.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return get(cfg, cc, args)
		})
	cfg.Get = cmd
	return cmd
}

func OpsCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &OpsConfig{MainConfig: mainCfg}
	cmd := cli.NewCommand("ops").
		WithSynopsis("ops [files]").
		WithDescription("Parse command text and print the canonical operations without applying them.").
		WithRun(func(cc *cli.Context, args []string) error {
			return ops(cfg, cc, args)
		})
	cfg.Ops = cmd
	return cmd
}

func ServeCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &ServeConfig{MainConfig: mainCfg}
	cmd := cli.NewCommand("serve").
		WithSynopsis("serve").
		WithDescription("Serve the session over JSON-RPC on stdio.").
		WithRun(func(cc *cli.Context, args []string) error {
			return serve(cfg, cc, args)
		})
	cfg.Serve = cmd
	return cmd
}
