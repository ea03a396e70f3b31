package tooladapters

import (
	"context"
	"encoding/json"

	"github.com/ultimatemcp/platform/internal/apierr"
	"github.com/ultimatemcp/platform/internal/auth"
	"github.com/ultimatemcp/platform/internal/mcp"
	"github.com/ultimatemcp/platform/internal/tools/generate"
)

const generateSchema = `{
  "type": "object",
  "properties": {
    "template": {"type": "string"},
    "context": {"type": "object"}
  },
  "required": ["template"]
}`

// GenerateTool adapts the generate package's Render function to mcp.Tool.
type GenerateTool struct{}

// NewGenerateTool builds the generate_code tool adapter.
func NewGenerateTool() *GenerateTool { return &GenerateTool{} }

func (t *GenerateTool) Name() string        { return "generate_code" }
func (t *GenerateTool) Description() string { return "Renders a text/template against a flat, scalars-only context. No filesystem or network access." }
func (t *GenerateTool) InputSchema() json.RawMessage { return json.RawMessage(generateSchema) }
func (t *GenerateTool) Permission() auth.Permission  { return auth.PermToolsGenerate }

type generateParams struct {
	Template string         `json:"template"`
	Context  map[string]any `json:"context"`
}

func (t *GenerateTool) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p generateParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, apierr.Wrap(apierr.KindInvalidInput, "invalid generate_code params", err)
	}
	if p.Template == "" {
		return nil, apierr.New(apierr.KindInvalidInput, "template is required")
	}

	result, err := generate.Render(p.Template, p.Context)
	if err != nil {
		return nil, err
	}
	return mcp.JSONResult(result)
}
