// Package tooladapters wraps each tool Service in the mcp.Tool interface,
// giving the registry a uniform {name, schema, permission, handler} entry
// per tool Grounded on the teacher's own registry
// wiring in cmd/specmcp, which wrapped its domain clients the same way
// rather than having the registry know about concrete tool types.
package tooladapters

import (
	"context"
	"encoding/json"

	"github.com/ultimatemcp/platform/internal/apierr"
	"github.com/ultimatemcp/platform/internal/auth"
	"github.com/ultimatemcp/platform/internal/mcp"
	"github.com/ultimatemcp/platform/internal/tools/lint"
)

const lintSchema = `{
  "type": "object",
  "properties": {
    "source": {"type": "string", "description": "Python source to lint"},
    "language": {"type": "string", "enum": ["python"]}
  },
  "required": ["source", "language"]
}`

// LintTool adapts lint.Service to mcp.Tool.
type LintTool struct {
	svc *lint.Service
}

// NewLintTool builds the lint_code tool adapter.
func NewLintTool(svc *lint.Service) *LintTool { return &LintTool{svc: svc} }

func (t *LintTool) Name() string        { return "lint_code" }
func (t *LintTool) Description() string { return "Statically analyzes Python source and reports functions, classes, imports, and an approximate cyclomatic complexity." }
func (t *LintTool) InputSchema() json.RawMessage { return json.RawMessage(lintSchema) }
func (t *LintTool) Permission() auth.Permission  { return auth.PermToolsLint }

type lintParams struct {
	Source   string `json:"source"`
	Language string `json:"language"`
}

func (t *LintTool) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p lintParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, apierr.Wrap(apierr.KindInvalidInput, "invalid lint_code params", err)
	}
	if p.Source == "" || p.Language == "" {
		return nil, apierr.New(apierr.KindInvalidInput, "source and language are required")
	}

	result, err := t.svc.Lint(ctx, []byte(p.Source), p.Language)
	if err != nil {
		return nil, err
	}
	return mcp.JSONResult(result)
}
