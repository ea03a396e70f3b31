package tooladapters

import (
	"context"
	"encoding/json"

	"github.com/ultimatemcp/platform/internal/apierr"
	"github.com/ultimatemcp/platform/internal/auth"
	"github.com/ultimatemcp/platform/internal/mcp"
	"github.com/ultimatemcp/platform/internal/tools/graphtool"
)

const graphUpsertSchema = `{
  "type": "object",
  "properties": {
    "nodes": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "label": {"type": "string"},
          "properties": {"type": "object"}
        },
        "required": ["label", "properties"]
      }
    },
    "relationships": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "type": {"type": "string"},
          "from_index": {"type": "integer"},
          "to_index": {"type": "integer"},
          "properties": {"type": "object"}
        },
        "required": ["type", "from_index", "to_index"]
      }
    }
  },
  "required": ["nodes"]
}`

const graphQuerySchema = `{
  "type": "object",
  "properties": {
    "query": {"type": "string"},
    "params": {"type": "object"},
    "pure": {"type": "boolean"},
    "labels": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["query"]
}`

// GraphUpsertTool adapts graphtool.Service.Upsert to mcp.Tool.
type GraphUpsertTool struct {
	svc *graphtool.Service
}

// NewGraphUpsertTool builds the graph_upsert tool adapter.
func NewGraphUpsertTool(svc *graphtool.Service) *GraphUpsertTool { return &GraphUpsertTool{svc: svc} }

func (t *GraphUpsertTool) Name() string        { return "graph_upsert" }
func (t *GraphUpsertTool) Description() string { return "Idempotently merges nodes, then relationships between them, in a single write transaction." }
func (t *GraphUpsertTool) InputSchema() json.RawMessage { return json.RawMessage(graphUpsertSchema) }
func (t *GraphUpsertTool) Permission() auth.Permission  { return auth.PermGraphUpsert }

type upsertNodeParams struct {
	Label      string         `json:"label"`
	Properties map[string]any `json:"properties"`
}

type upsertRelParams struct {
	Type       string         `json:"type"`
	FromIndex  int            `json:"from_index"`
	ToIndex    int            `json:"to_index"`
	Properties map[string]any `json:"properties"`
}

type graphUpsertParams struct {
	Nodes         []upsertNodeParams `json:"nodes"`
	Relationships []upsertRelParams  `json:"relationships"`
}

func (t *GraphUpsertTool) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p graphUpsertParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, apierr.Wrap(apierr.KindInvalidInput, "invalid graph_upsert params", err)
	}
	if len(p.Nodes) == 0 {
		return nil, apierr.New(apierr.KindInvalidInput, "at least one node is required")
	}

	req := graphtool.UpsertRequest{
		Nodes:         make([]graphtool.Node, len(p.Nodes)),
		Relationships: make([]graphtool.Relationship, len(p.Relationships)),
	}
	for i, n := range p.Nodes {
		req.Nodes[i] = graphtool.Node{Label: n.Label, Properties: n.Properties}
	}
	for i, r := range p.Relationships {
		req.Relationships[i] = graphtool.Relationship{
			Type: r.Type, FromIndex: r.FromIndex, ToIndex: r.ToIndex, Properties: r.Properties,
		}
	}

	if err := t.svc.Upsert(ctx, req); err != nil {
		return nil, err
	}
	return mcp.JSONResult(map[string]any{"status": "ok"})
}

// GraphQueryTool adapts graphtool.Service.Query to mcp.Tool.
type GraphQueryTool struct {
	svc *graphtool.Service
}

// NewGraphQueryTool builds the graph_query tool adapter.
func NewGraphQueryTool(svc *graphtool.Service) *GraphQueryTool { return &GraphQueryTool{svc: svc} }

func (t *GraphQueryTool) Name() string        { return "graph_query" }
func (t *GraphQueryTool) Description() string { return "Runs a validated, pure read-only Cypher query and returns rows, bounded by a server-side row cap." }
func (t *GraphQueryTool) InputSchema() json.RawMessage { return json.RawMessage(graphQuerySchema) }
func (t *GraphQueryTool) Permission() auth.Permission  { return auth.PermGraphQuery }

type graphQueryParams struct {
	Query  string         `json:"query"`
	Params map[string]any `json:"params"`
	Pure   bool           `json:"pure"`
	Labels []string       `json:"labels"`
}

func (t *GraphQueryTool) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p graphQueryParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, apierr.Wrap(apierr.KindInvalidInput, "invalid graph_query params", err)
	}
	if p.Query == "" {
		return nil, apierr.New(apierr.KindInvalidInput, "query is required")
	}

	rows, err := t.svc.Query(ctx, graphtool.QueryRequest{
		Query:  p.Query,
		Params: p.Params,
		Pure:   p.Pure,
		Labels: p.Labels,
	})
	if err != nil {
		return nil, err
	}
	return mcp.JSONResult(map[string]any{"rows": rows})
}
