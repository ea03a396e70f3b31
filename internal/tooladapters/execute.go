package tooladapters

import (
	"context"
	"encoding/json"

	"github.com/ultimatemcp/platform/internal/apierr"
	"github.com/ultimatemcp/platform/internal/auth"
	"github.com/ultimatemcp/platform/internal/mcp"
	"github.com/ultimatemcp/platform/internal/reqcontext"
	"github.com/ultimatemcp/platform/internal/tools/execute"
)

const executeSchema = `{
  "type": "object",
  "properties": {
    "source": {"type": "string"},
    "language": {"type": "string", "enum": ["python"]},
    "strict": {"type": "boolean"},
    "stdin": {"type": "string"},
    "use_cache": {"type": "boolean"},
    "timeout_seconds": {"type": "integer"},
    "memory_bytes": {"type": "integer"},
    "file_size_bytes": {"type": "integer"}
  },
  "required": ["source", "language"]
}`

// ExecuteTool adapts execute.Service to mcp.Tool.
type ExecuteTool struct {
	svc *execute.Service
}

// NewExecuteTool builds the execute_code tool adapter.
func NewExecuteTool(svc *execute.Service) *ExecuteTool { return &ExecuteTool{svc: svc} }

func (t *ExecuteTool) Name() string        { return "execute_code" }
func (t *ExecuteTool) Description() string { return "Runs source in a resource-limited sandbox and returns stdout, stderr, exit code, and the reason a run did not succeed, if any." }
func (t *ExecuteTool) InputSchema() json.RawMessage { return json.RawMessage(executeSchema) }
func (t *ExecuteTool) Permission() auth.Permission  { return auth.PermToolsExecute }

type executeParams struct {
	Source        string `json:"source"`
	Language      string `json:"language"`
	Strict        bool   `json:"strict"`
	Stdin         string `json:"stdin"`
	UseCache      bool   `json:"use_cache"`
	TimeoutSec    int    `json:"timeout_seconds"`
	MemoryBytes   int64  `json:"memory_bytes"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

func (t *ExecuteTool) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p executeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, apierr.Wrap(apierr.KindInvalidInput, "invalid execute_code params", err)
	}
	if p.Source == "" || p.Language == "" {
		return nil, apierr.New(apierr.KindInvalidInput, "source and language are required")
	}

	result, err := t.svc.Execute(ctx, execute.Request{
		Source:   []byte(p.Source),
		Language: p.Language,
		Strict:   p.Strict,
		Stdin:    p.Stdin,
		UseCache: p.UseCache,
		Limits: execute.Limits{
			TimeoutSeconds: p.TimeoutSec,
			MemoryBytes:    p.MemoryBytes,
			FileSizeBytes:  p.FileSizeBytes,
		},
		UserID:        reqcontext.UserID(ctx),
		CorrelationID: reqcontext.CorrelationID(ctx),
	})
	if err != nil {
		return nil, err
	}
	return mcp.JSONResult(result)
}
