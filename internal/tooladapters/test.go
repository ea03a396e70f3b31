package tooladapters

import (
	"context"
	"encoding/json"

	"github.com/ultimatemcp/platform/internal/apierr"
	"github.com/ultimatemcp/platform/internal/auth"
	"github.com/ultimatemcp/platform/internal/mcp"
	"github.com/ultimatemcp/platform/internal/reqcontext"
	"github.com/ultimatemcp/platform/internal/tools/execute"
	"github.com/ultimatemcp/platform/internal/tools/test"
)

const testSchema = `{
  "type": "object",
  "properties": {
    "source": {"type": "string"},
    "language": {"type": "string", "enum": ["python"]},
    "strict": {"type": "boolean"},
    "timeout_seconds": {"type": "integer"}
  },
  "required": ["source", "language"]
}`

// TestTool adapts test.Service to mcp.Tool.
type TestTool struct {
	svc *test.Service
}

// NewTestTool builds the run_tests tool adapter.
func NewTestTool(svc *test.Service) *TestTool { return &TestTool{svc: svc} }

func (t *TestTool) Name() string        { return "run_tests" }
func (t *TestTool) Description() string { return "Runs a pytest-style test source in the same sandbox execute_code uses and best-effort parses the pass/fail/error summary." }
func (t *TestTool) InputSchema() json.RawMessage { return json.RawMessage(testSchema) }
func (t *TestTool) Permission() auth.Permission  { return auth.PermToolsTest }

type testParams struct {
	Source     string `json:"source"`
	Language   string `json:"language"`
	Strict     bool   `json:"strict"`
	TimeoutSec int    `json:"timeout_seconds"`
}

func (t *TestTool) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p testParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, apierr.Wrap(apierr.KindInvalidInput, "invalid run_tests params", err)
	}
	if p.Source == "" || p.Language == "" {
		return nil, apierr.New(apierr.KindInvalidInput, "source and language are required")
	}

	result, err := t.svc.Run(ctx, []byte(p.Source), p.Language, p.Strict,
		execute.Limits{TimeoutSeconds: p.TimeoutSec},
		reqcontext.UserID(ctx), reqcontext.CorrelationID(ctx))
	if err != nil {
		return nil, err
	}
	return mcp.JSONResult(result)
}
