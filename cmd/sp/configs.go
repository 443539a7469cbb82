package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/scott-cotton/cli"

	"github.com/statpatch/statpatch"
	"github.com/statpatch/statpatch/doc"
	"github.com/statpatch/statpatch/render"
)

type MainConfig struct {
	Color  bool `cli:"name=color desc='render changes with color'"`
	Schema bool `cli:"name=schema desc='validate mutations against $meta metadata'"`

	State       string
	StartMarker string
	EndMarker   string

	Out      string
	CloseOut func() error

	file *fileConfig

	Main *cli.Command
}

// fileConfig is the optional YAML config; flags take precedence over
// everything in it.
type fileConfig struct {
	Schema  *bool  `yaml:"schema"`
	State   string `yaml:"state"`
	Markers struct {
		Start string `yaml:"start"`
		End   string `yaml:"end"`
	} `yaml:"markers"`
}

func spMain(cfg *MainConfig, cc *cli.Context, args []string) error {
	defer func() {
		if cfg.CloseOut != nil {
			cfg.CloseOut()
		}
	}()
	args, err := cfg.Main.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return cli.ErrNoCommandProvided
	}
	sub := cfg.Main.FindSub(cc, args[0])
	if sub == nil {
		return fmt.Errorf("%w: %q not found", cli.ErrNoSuchCommand, args[0])
	}
	err = sub.Run(cc, args[1:])
	if errors.Is(err, cli.ErrUsage) {
		sub.Usage(cc, err)
		os.Exit(sub.Exit(cc, err))
	}
	return err
}

func (cfg *MainConfig) stateOpt(cc *cli.Context, a string) (any, error) {
	cfg.State = a
	return nil, nil
}

func (cfg *MainConfig) configOpt(cc *cli.Context, a string) (any, error) {
	data, err := os.ReadFile(a)
	if err != nil {
		return nil, err
	}
	fc := &fileConfig{}
	if err := yaml.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("config %s: %w", a, err)
	}
	cfg.file = fc
	return nil, nil
}

// optSet reports whether the named main option was given on the
// command line, so config file values only fill the gaps.
func (cfg *MainConfig) optSet(name string) bool {
	for _, opt := range cfg.Main.Opts {
		if opt.Name == name {
			return opt.Value != nil
		}
	}
	return false
}

// resolve folds the config file into the flag values.
func (cfg *MainConfig) resolve() {
	if cfg.file == nil {
		return
	}
	if cfg.file.Schema != nil && !cfg.optSet("schema") {
		cfg.Schema = *cfg.file.Schema
	}
	if cfg.State == "" {
		cfg.State = cfg.file.State
	}
	if cfg.StartMarker == "" && cfg.file.Markers.Start != "" && cfg.file.Markers.End != "" {
		cfg.StartMarker = cfg.file.Markers.Start
		cfg.EndMarker = cfg.file.Markers.End
	}
}

func (cfg *MainConfig) outOpt(cc *cli.Context, a string) (any, error) {
	cfg.Out = a
	if a == "-" {
		return nil, nil
	}
	f, err := os.OpenFile(cfg.Out, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	cc.Out = f
	cfg.CloseOut = f.Close
	return nil, nil
}

func (cfg *MainConfig) markersOpt(cc *cli.Context, a string) (any, error) {
	start, end, ok := strings.Cut(a, ",")
	if !ok || start == "" || end == "" {
		return nil, fmt.Errorf("%w: markers want start,end", cli.ErrUsage)
	}
	cfg.StartMarker = start
	cfg.EndMarker = end
	return nil, nil
}

// session builds the session from the main options, loading the state
// file when one is configured.
func (cfg *MainConfig) session() (*statpatch.Session, error) {
	cfg.resolve()
	opts := []statpatch.Option{statpatch.WithSchema(cfg.Schema)}
	if cfg.StartMarker != "" {
		opts = append(opts, statpatch.WithMarkers(cfg.StartMarker, cfg.EndMarker))
	}
	if cfg.State != "" {
		data, err := os.ReadFile(cfg.State)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if err == nil {
			snap := &doc.Snapshot{}
			if err := yaml.Unmarshal(data, snap); err != nil {
				return nil, fmt.Errorf("state file %s: %w", cfg.State, err)
			}
			d := doc.New()
			d.Import(snap)
			opts = append(opts, statpatch.WithDocument(d))
		}
	}
	return statpatch.New(opts...), nil
}

// saveState writes the document back to the state file, if any.
func (cfg *MainConfig) saveState(s *statpatch.Session) error {
	if cfg.State == "" {
		return nil
	}
	data, err := yaml.Marshal(s.Doc.Export())
	if err != nil {
		return err
	}
	return os.WriteFile(cfg.State, data, 0644)
}

func (cfg *MainConfig) renderer(w io.Writer) *render.Renderer {
	if cfg.Color {
		return render.New(w, render.WithColors(render.NewColors()))
	}
	return render.New(w, render.WithColors(render.AutoColors(w)))
}

// readInputs concatenates the named files, or stdin when none are
// given.
func readInputs(args []string) (string, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	var b strings.Builder
	for _, name := range args {
		data, err := os.ReadFile(name)
		if err != nil {
			return "", err
		}
		b.Write(data)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

type ApplyConfig struct {
	*MainConfig
	Stream bool `cli:"name=stream desc='feed input line by line, executing blocks as they close'"`
	Quiet  bool `cli:"name=q aliases=quiet desc='suppress change output'"`

	Apply *cli.Command
}

type GetConfig struct {
	*MainConfig
	Source string `cli:"name=source desc='projection: stat, display or delta'"`

	Get *cli.Command
}

type OpsConfig struct {
	*MainConfig

	Ops *cli.Command
}

type ServeConfig struct {
	*MainConfig

	Serve *cli.Command
}
