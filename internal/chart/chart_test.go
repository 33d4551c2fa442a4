package chart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"github.com/mosaicworks/geniebridge/internal/genie"
)

type fakeModel struct {
	response string
	prompt   string
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				f.prompt = text.Text
			}
		}
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.response}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	f.prompt = prompt
	return f.response, nil
}

func sampleTable() *genie.QueryResult {
	return &genie.QueryResult{
		Columns: []string{"region", "rev"},
		Rows:    [][]string{{"eu", "10"}, {"us", "20"}},
	}
}

func TestSpecGeneratorParsesPlainJSON(t *testing.T) {
	t.Parallel()

	model := &fakeModel{response: `{"type":"bar","data":{"labels":["eu","us"]}}`}
	gen := NewSpecGeneratorWithModel(model)

	spec, err := gen.Generate(context.Background(), "revenue by region", sampleTable())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(spec, &decoded); err != nil {
		t.Fatalf("spec not valid JSON: %v", err)
	}
	if decoded["type"] != "bar" {
		t.Fatalf("chart type mismatch: got %v want bar", decoded["type"])
	}
	if !strings.Contains(model.prompt, "revenue by region") {
		t.Fatalf("prompt missing question: %q", model.prompt)
	}
	if !strings.Contains(model.prompt, "region, rev") {
		t.Fatalf("prompt missing columns: %q", model.prompt)
	}
}

func TestSpecGeneratorStripsFences(t *testing.T) {
	t.Parallel()

	model := &fakeModel{response: "```json\n{\"type\":\"pie\"}\n```"}
	gen := NewSpecGeneratorWithModel(model)

	spec, err := gen.Generate(context.Background(), "share", sampleTable())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if string(spec) != `{"type":"pie"}` {
		t.Fatalf("spec mismatch: got %s", spec)
	}
}

func TestSpecGeneratorRejectsNonJSON(t *testing.T) {
	t.Parallel()

	model := &fakeModel{response: "here is your chart!"}
	gen := NewSpecGeneratorWithModel(model)

	if _, err := gen.Generate(context.Background(), "q", sampleTable()); err == nil {
		t.Fatalf("Generate() expected decode error")
	}
}

func TestRendererPostsSpec(t *testing.T) {
	t.Parallel()

	png := []byte{0x89, 'P', 'N', 'G'}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chart" {
			t.Errorf("request mismatch: %s %s", r.Method, r.URL.Path)
		}
		var req renderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Format != "png" {
			t.Errorf("format mismatch: got %q want png", req.Format)
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}))
	defer srv.Close()

	renderer, err := NewRenderer(RendererOptions{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	got, err := renderer.Render(context.Background(), json.RawMessage(`{"type":"bar"}`))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if string(got) != string(png) {
		t.Fatalf("png mismatch: got %v", got)
	}
}

func TestRendererErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad chart", http.StatusBadRequest)
	}))
	defer srv.Close()

	renderer, err := NewRenderer(RendererOptions{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	if _, err := renderer.Render(context.Background(), json.RawMessage(`{}`)); err == nil {
		t.Fatalf("Render() expected error for 400 status")
	}
}
