package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/scott-cotton/cli"
	"go.lsp.dev/jsonrpc2"

	"github.com/statpatch/statpatch"
	"github.com/statpatch/statpatch/doc"
)

// serve exposes one session over JSON-RPC on stdio, the transport a
// host process embeds most easily.
func serve(cfg *ServeConfig, cc *cli.Context, args []string) error {
	if _, err := cfg.Serve.Parse(cc, args); err != nil {
		return err
	}
	s, err := cfg.session()
	if err != nil {
		return err
	}
	ctx := context.Background()
	stream := jsonrpc2.NewStream(&stdioReadWriteCloser{
		read:  os.Stdin,
		write: os.Stdout,
	})
	srv := &server{cfg: cfg, session: s}
	conn := jsonrpc2.NewConn(stream)
	conn.Go(ctx, srv.handle)
	<-conn.Done()
	return cfg.saveState(s)
}

type stdioReadWriteCloser struct {
	read  io.Reader
	write io.Writer
}

func (s *stdioReadWriteCloser) Read(p []byte) (n int, err error) {
	return s.read.Read(p)
}

func (s *stdioReadWriteCloser) Write(p []byte) (n int, err error) {
	return s.write.Write(p)
}

func (s *stdioReadWriteCloser) Close() error {
	return nil
}

type server struct {
	cfg     *ServeConfig
	session *statpatch.Session
	stream  *statpatch.Stream
}

type runParams struct {
	Text string `json:"text"`
}

type getParams struct {
	Path   string `json:"path"`
	Source string `json:"source"`
}

type runResult struct {
	Success     bool     `json:"success"`
	Rollback    bool     `json:"rollback,omitempty"`
	Errors      []string `json:"errors,omitempty"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

func (s *server) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	switch req.Method() {
	case "session/run":
		var p runParams
		if err := json.Unmarshal(req.Params(), &p); err != nil {
			return reply(ctx, nil, jsonrpc2.ErrInvalidParams)
		}
		out := s.session.Run(p.Text)
		return reply(ctx, outcomeResult(out), nil)

	case "session/feed":
		var p runParams
		if err := json.Unmarshal(req.Params(), &p); err != nil {
			return reply(ctx, nil, jsonrpc2.ErrInvalidParams)
		}
		if s.stream == nil {
			s.stream = s.session.Stream()
		}
		s.stream.Feed(p.Text)
		return reply(ctx, map[string]any{"visible": s.stream.Visible()}, nil)

	case "session/flush":
		if s.stream == nil {
			return reply(ctx, outcomeResult(statpatch.Outcome{}), nil)
		}
		out := s.stream.Close()
		s.stream = nil
		return reply(ctx, outcomeResult(out), nil)

	case "session/get":
		var p getParams
		if err := json.Unmarshal(req.Params(), &p); err != nil {
			return reply(ctx, nil, jsonrpc2.ErrInvalidParams)
		}
		src := doc.Stat
		if p.Source != "" {
			var err error
			if src, err = doc.ParseSource(p.Source); err != nil {
				return reply(ctx, nil, jsonrpc2.ErrInvalidParams)
			}
		}
		return reply(ctx, s.session.Doc.Get(p.Path, doc.WithSource(src)), nil)

	case "session/export":
		return reply(ctx, s.session.Doc.Export(), nil)

	case "session/import":
		snap := &doc.Snapshot{}
		if err := json.Unmarshal(req.Params(), snap); err != nil {
			return reply(ctx, nil, jsonrpc2.ErrInvalidParams)
		}
		s.session.Doc.Import(snap)
		return reply(ctx, true, nil)

	case "session/clearDelta":
		s.session.EndCycle()
		return reply(ctx, true, nil)

	default:
		return reply(ctx, nil, jsonrpc2.ErrMethodNotFound)
	}
}

func outcomeResult(out statpatch.Outcome) runResult {
	res := runResult{Success: out.Success()}
	for _, b := range out.Batches {
		if b.Rollback {
			res.Rollback = true
		}
		for _, be := range b.Errors {
			res.Errors = append(res.Errors, be.Err.Error())
		}
	}
	for _, d := range out.Diagnostics {
		res.Diagnostics = append(res.Diagnostics, d.String())
	}
	return res
}
