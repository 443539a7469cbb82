// Package statpatch drives guarded, auditable mutation of a structured
// state document from free text. A Session owns the document, the
// schema guard, the executor and the ingestion parser; hosts construct
// one per conversation and thread it through their event loop.
package statpatch

import (
	"github.com/statpatch/statpatch/doc"
	"github.com/statpatch/statpatch/eval"
	"github.com/statpatch/statpatch/ingest"
	"github.com/statpatch/statpatch/schema"
)

type Session struct {
	Doc    *doc.Doc
	Guard  *schema.Guard
	Exec   *eval.Executor
	Parser *ingest.Parser
}

type config struct {
	doc     *doc.Doc
	schema  bool
	markers [2]string
	subs    []func(doc.ChangeRecord)
}

type Option func(*config)

// WithSchema turns on metadata validation for the session.
func WithSchema(enabled bool) Option {
	return func(c *config) { c.schema = enabled }
}

// WithDocument starts the session over an existing document instead of
// an empty one.
func WithDocument(d *doc.Doc) Option {
	return func(c *config) { c.doc = d }
}

// WithMarkers overrides the structured block delimiters.
func WithMarkers(start, end string) Option {
	return func(c *config) { c.markers = [2]string{start, end} }
}

// WithSubscriber observes every change record the session produces.
func WithSubscriber(f func(doc.ChangeRecord)) Option {
	return func(c *config) { c.subs = append(c.subs, f) }
}

func New(opts ...Option) *Session {
	cfg := &config{markers: [2]string{ingest.DefaultStart, ingest.DefaultEnd}}
	for _, opt := range opts {
		opt(cfg)
	}
	d := cfg.doc
	if d == nil {
		d = doc.New()
	}
	for _, f := range cfg.subs {
		d.Subscribe(f)
	}
	g := schema.New(cfg.schema)
	return &Session{
		Doc:    d,
		Guard:  g,
		Exec:   eval.New(d, g),
		Parser: ingest.New(ingest.WithMarkers(cfg.markers[0], cfg.markers[1])),
	}
}

