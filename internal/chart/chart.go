// Package chart turns a tabular Genie result into a rendered PNG. An LLM
// drafts a Chart.js config for the data, a QuickChart-compatible service
// renders it. Chart generation is best effort end to end; the orchestrator
// logs failures and posts the answer without an image.
package chart

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/mosaicworks/geniebridge/internal/genie"
)

// maxSpecRows caps how much of the result is shown to the model. Charts of
// more rows than this are unreadable anyway.
const maxSpecRows = 50

const specPrompt = `You are a data visualization assistant.
Given a user question and a tabular query result, produce a Chart.js
configuration object that best visualizes the data.

Question: %s

Columns: %s
Rows (JSON):
%s

Respond with ONLY the Chart.js configuration as a single JSON object.
Pick a sensible chart type (bar, line, or pie). Do not include any prose,
markdown fences, or comments.`

// SpecGenerator asks an LLM for a Chart.js config. The llms.Model seam keeps
// the network out of tests.
type SpecGenerator struct {
	llm llms.Model
}

type SpecGeneratorOptions struct {
	Token   string
	Model   string
	BaseURL string
}

func NewSpecGenerator(opts SpecGeneratorOptions) (*SpecGenerator, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, fmt.Errorf("llm token is required")
	}
	llmOpts := []openai.Option{openai.WithToken(opts.Token)}
	if strings.TrimSpace(opts.Model) != "" {
		llmOpts = append(llmOpts, openai.WithModel(opts.Model))
	}
	if strings.TrimSpace(opts.BaseURL) != "" {
		llmOpts = append(llmOpts, openai.WithBaseURL(opts.BaseURL))
	}
	llm, err := openai.New(llmOpts...)
	if err != nil {
		return nil, fmt.Errorf("init llm: %w", err)
	}
	return &SpecGenerator{llm: llm}, nil
}

// NewSpecGeneratorWithModel wires an existing model, used by tests.
func NewSpecGeneratorWithModel(llm llms.Model) *SpecGenerator {
	return &SpecGenerator{llm: llm}
}

// Generate returns the Chart.js config as raw JSON.
func (g *SpecGenerator) Generate(ctx context.Context, question string, table *genie.QueryResult) (json.RawMessage, error) {
	if g == nil || g.llm == nil {
		return nil, fmt.Errorf("spec generator is not configured")
	}
	if table == nil || len(table.Columns) == 0 {
		return nil, fmt.Errorf("table is required")
	}

	rows := table.Rows
	if len(rows) > maxSpecRows {
		rows = rows[:maxSpecRows]
	}
	rowsJSON, err := json.Marshal(rows)
	if err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf(specPrompt, question, strings.Join(table.Columns, ", "), rowsJSON)

	out, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt, llms.WithJSONMode())
	if err != nil {
		return nil, fmt.Errorf("generate chart spec: %w", err)
	}
	spec, err := decodeSpec(out)
	if err != nil {
		return nil, fmt.Errorf("decode chart spec: %w", err)
	}
	return spec, nil
}

// decodeSpec tolerates models that fence their JSON despite instructions.
func decodeSpec(out string) (json.RawMessage, error) {
	out = strings.TrimSpace(out)
	if strings.HasPrefix(out, "```") {
		out = strings.TrimPrefix(out, "```json")
		out = strings.TrimPrefix(out, "```")
		out = strings.TrimSuffix(strings.TrimSpace(out), "```")
		out = strings.TrimSpace(out)
	}
	var probe map[string]any
	if err := json.Unmarshal([]byte(out), &probe); err != nil {
		return nil, err
	}
	if _, ok := probe["type"]; !ok {
		return nil, fmt.Errorf("chart spec missing type")
	}
	return json.RawMessage(out), nil
}

// Renderer posts a Chart.js config to a QuickChart-compatible /chart
// endpoint and returns the PNG bytes.
type Renderer struct {
	http *resty.Client
}

type RendererOptions struct {
	// BaseURL of the rendering service, e.g. https://quickchart.io.
	BaseURL     string
	HTTPTimeout time.Duration
}

type renderRequest struct {
	Chart  json.RawMessage `json:"chart"`
	Width  int             `json:"width"`
	Height int             `json:"height"`
	Format string          `json:"format"`
}

func NewRenderer(opts RendererOptions) (*Renderer, error) {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("chart renderer base url is required")
	}
	timeout := opts.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(base, "/")).
		SetTimeout(timeout)
	return &Renderer{http: client}, nil
}

func (r *Renderer) Render(ctx context.Context, spec json.RawMessage) ([]byte, error) {
	if r == nil || r.http == nil {
		return nil, fmt.Errorf("chart renderer is not configured")
	}
	resp, err := r.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(renderRequest{Chart: spec, Width: 800, Height: 450, Format: "png"}).
		Post("/chart")
	if err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("render chart: status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

// Generator is the full pipeline: spec from the LLM, PNG from the renderer.
type Generator struct {
	specs    *SpecGenerator
	renderer *Renderer
	log      *slog.Logger
}

func NewGenerator(specs *SpecGenerator, renderer *Renderer, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.Default()
	}
	return &Generator{specs: specs, renderer: renderer, log: log}
}

// Enabled reports whether both pipeline stages are configured.
func (g *Generator) Enabled() bool {
	return g != nil && g.specs != nil && g.renderer != nil
}

// Generate returns PNG bytes for the table, or an error the caller is
// expected to log and swallow.
func (g *Generator) Generate(ctx context.Context, question string, table *genie.QueryResult) ([]byte, error) {
	if !g.Enabled() {
		return nil, fmt.Errorf("chart generation is not configured")
	}
	spec, err := g.specs.Generate(ctx, question, table)
	if err != nil {
		return nil, err
	}
	g.log.Debug("chart_spec_generated", "bytes", len(spec))
	return g.renderer.Render(ctx, spec)
}
