package mcpserver_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/redline/internal/format"
	"github.com/MrWong99/redline/internal/mcpserver"
	"github.com/MrWong99/redline/internal/observe"
	"github.com/MrWong99/redline/internal/reconcile"
)

func connect(t *testing.T) (*mcp.ClientSession, *sdkmetric.ManualReader) {
	t.Helper()
	ctx := context.Background()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(ctx) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	srv := mcpserver.New(reconcile.DefaultOptions(), "test", mcpserver.WithMetrics(m))
	serverT, clientT := mcp.NewInMemoryTransports()
	ss, err := srv.MCP().Connect(ctx, serverT, nil)
	if err != nil {
		t.Fatalf("server Connect: %v", err)
	}
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client Connect: %v", err)
	}
	t.Cleanup(func() { _ = cs.Close() })
	return cs, reader
}

func document() format.Document {
	return format.Document{Segments: []format.Segment{
		{SpeakerID: "a", Start: 0, End: 3, Text: "Tere. see on"},
		{SpeakerID: "b", Start: 4, End: 6, Text: "Üks suur kala. Teine kala"},
	}}
}

// decodeStructured round-trips the client's untyped structured content.
func decodeStructured(t *testing.T, res *mcp.CallToolResult, v any) {
	t.Helper()
	if res.IsError {
		t.Fatalf("tool returned error: %+v", res.Content)
	}
	data, err := json.Marshal(res.StructuredContent)
	if err != nil {
		t.Fatalf("marshal structured content: %v", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("unmarshal structured content: %v", err)
	}
}

func TestListTools(t *testing.T) {
	t.Parallel()
	cs, _ := connect(t)

	res, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range res.Tools {
		names[tool.Name] = true
		if tool.InputSchema == nil {
			t.Errorf("tool %s has no input schema", tool.Name)
		}
	}
	for _, want := range []string{mcpserver.ToolApplyCorrections, mcpserver.ToolLocateText} {
		if !names[want] {
			t.Errorf("tool %s not listed", want)
		}
	}
}

func TestApplyCorrections(t *testing.T) {
	t.Parallel()
	cs, reader := connect(t)
	ctx := context.Background()

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name: mcpserver.ToolApplyCorrections,
		Arguments: mcpserver.ApplyInput{
			Document: document(),
			Suggestions: []mcpserver.ToolSuggestion{
				{OriginalText: "see on", SuggestedText: "see on test"},
				{OriginalText: "kala", SuggestedText: "kalad"},
			},
		},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	var out mcpserver.ApplyOutput
	decodeStructured(t, res, &out)

	if out.Summary != "1 of 2 corrections applied" {
		t.Errorf("summary=%q", out.Summary)
	}
	if out.Outcomes[1].Reason != "ambiguous" {
		t.Errorf("second outcome=%+v, want ambiguous", out.Outcomes[1])
	}
	if out.Document.Segments[0].Text != "Tere. see on test" {
		t.Errorf("text=%q", out.Document.Segments[0].Text)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	var calls int64
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			if met.Name != "redline.tool.calls" {
				continue
			}
			for _, dp := range met.Data.(metricdata.Sum[int64]).DataPoints {
				calls += dp.Value
			}
		}
	}
	if calls != 1 {
		t.Errorf("tool calls recorded=%d, want 1", calls)
	}
}

func TestApplyCorrections_InvalidDocument(t *testing.T) {
	t.Parallel()
	cs, _ := connect(t)

	doc := format.Document{Segments: []format.Segment{
		{Start: 5, End: 6, Text: "later"},
		{Start: 0, End: 1, Text: "earlier"},
	}}
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      mcpserver.ToolApplyCorrections,
		Arguments: mcpserver.ApplyInput{Document: doc, Suggestions: []mcpserver.ToolSuggestion{}},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !res.IsError {
		t.Error("expected a tool error for a non-chronological document")
	}
}

func TestLocateText(t *testing.T) {
	t.Parallel()
	cs, _ := connect(t)

	tests := []struct {
		text     string
		wantKind string
		wantSeg  int
		wantFrom int
	}{
		{text: "suur kala", wantKind: "found", wantSeg: 1, wantFrom: 17},
		{text: "kala", wantKind: "ambiguous"},
		{text: "puudub", wantKind: "not_found"},
	}
	for _, tc := range tests {
		res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
			Name:      mcpserver.ToolLocateText,
			Arguments: mcpserver.LocateInput{Document: document(), Text: tc.text},
		})
		if err != nil {
			t.Fatalf("CallTool(%q): %v", tc.text, err)
		}
		var out mcpserver.LocateOutput
		decodeStructured(t, res, &out)
		if out.Kind != tc.wantKind {
			t.Errorf("%q: kind=%q, want %q", tc.text, out.Kind, tc.wantKind)
			continue
		}
		if tc.wantKind != "found" {
			continue
		}
		if out.Segment == nil || *out.Segment != tc.wantSeg || out.From == nil || *out.From != tc.wantFrom {
			t.Errorf("%q: got %+v", tc.text, out)
		}
		if out.Matched != tc.text {
			t.Errorf("%q: matched=%q", tc.text, out.Matched)
		}
	}
}
