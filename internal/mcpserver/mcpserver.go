// Package mcpserver exposes the reconciliation engine as Model Context
// Protocol tools, so that an agent can apply the corrections it proposes to a
// transcript it holds.
//
// Tools:
//
//   - apply_corrections: run one reconciliation pass and return the corrected
//     document with a per-suggestion report.
//   - locate_text: report where (and whether unambiguously) a phrase occurs
//     in a document, using the same strategies the engine uses.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/redline/internal/locate"
	"github.com/MrWong99/redline/internal/observe"
	"github.com/MrWong99/redline/internal/reconcile"
	"github.com/MrWong99/redline/pkg/suggestion"
)

const (
	ToolApplyCorrections = "apply_corrections"
	ToolLocateText       = "locate_text"
)

// Server wraps an MCP server with the redline tools registered.
type Server struct {
	mcp     *mcp.Server
	opts    reconcile.Options
	metrics *observe.Metrics
	logger  *slog.Logger
}

// Option configures a [Server].
type Option func(*Server)

// WithMetrics sets the metrics tool calls record to.
// Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets the logger. Default: [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New returns a Server whose passes default to opts. version is reported to
// clients during initialization.
func New(opts reconcile.Options, version string, options ...Option) *Server {
	s := &Server{opts: opts}
	for _, o := range options {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if version == "" {
		version = "dev"
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{Name: "redline", Version: version}, nil)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: ToolApplyCorrections,
		Description: "Apply text corrections to a speaker-segmented transcript. " +
			"Each suggestion names the exact text to replace; ambiguous or missing text is skipped, " +
			"never guessed. Returns the corrected transcript and what happened to every suggestion.",
	}, s.applyCorrections)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolLocateText,
		Description: "Find a phrase in a transcript. Reports found, ambiguous or not_found with the rune span of a unique match.",
	}, s.locateText)
	return s
}

// MCP returns the underlying SDK server.
func (s *Server) MCP() *mcp.Server { return s.mcp }

// Run serves t until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	return s.mcp.Run(ctx, t)
}

func (s *Server) applyCorrections(ctx context.Context, _ *mcp.CallToolRequest, in ApplyInput) (*mcp.CallToolResult, ApplyOutput, error) {
	out, err := s.apply(ctx, in)
	status := "ok"
	if err != nil {
		status = "error"
		s.logger.Warn("tool call failed", "tool", ToolApplyCorrections, "err", err)
	}
	s.metrics.RecordToolCall(ctx, ToolApplyCorrections, status)
	return nil, out, err
}

func (s *Server) apply(ctx context.Context, in ApplyInput) (ApplyOutput, error) {
	doc, err := in.Document.ToDocument()
	if err != nil {
		return ApplyOutput{}, err
	}
	opts := in.Options.apply(s.opts)
	if err := opts.Validate(); err != nil {
		return ApplyOutput{}, err
	}

	batch := make([]suggestion.Suggestion, len(in.Suggestions))
	for i, ts := range in.Suggestions {
		batch[i] = ts.suggestion()
	}
	eng := reconcile.New(reconcile.WithOptions(opts), reconcile.WithMetrics(s.metrics), reconcile.WithLogger(s.logger))
	res, err := eng.Reconcile(ctx, doc, batch)
	if err != nil {
		return ApplyOutput{}, err
	}
	return newApplyOutput(res), nil
}

func (s *Server) locateText(ctx context.Context, _ *mcp.CallToolRequest, in LocateInput) (*mcp.CallToolResult, LocateOutput, error) {
	doc, err := in.Document.ToDocument()
	if err != nil {
		s.metrics.RecordToolCall(ctx, ToolLocateText, "error")
		return nil, LocateOutput{}, err
	}
	if in.Text == "" {
		s.metrics.RecordToolCall(ctx, ToolLocateText, "error")
		return nil, LocateOutput{}, fmt.Errorf("text is required")
	}

	allowPartial := s.opts.AllowPartialMatch
	if in.AllowPartialMatch != nil {
		allowPartial = *in.AllowPartialMatch
	}
	text := doc.Text()
	res := locate.New(allowPartial).LocateText(text, suggestion.Suggestion{OriginalText: in.Text})

	out := LocateOutput{Kind: res.Kind.String(), Matches: res.Matches, Strategy: res.Strategy}
	if res.Kind == locate.Found {
		_, ix := doc.Flatten()
		seg, err := ix.SegmentOf(res.Span.From, res.Span.To)
		if err != nil {
			seg = -1
		}
		out.From, out.To, out.Segment = &res.Span.From, &res.Span.To, &seg
		out.Matched = locate.TextAt(text, res.Span)
	}
	s.metrics.RecordToolCall(ctx, ToolLocateText, "ok")
	return nil, out, nil
}
