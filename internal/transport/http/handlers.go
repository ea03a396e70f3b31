package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ultimatemcp/platform/internal/apierr"
	"github.com/ultimatemcp/platform/internal/auth"
	"github.com/ultimatemcp/platform/internal/mcp"
	"github.com/ultimatemcp/platform/internal/pipeline"
	"github.com/ultimatemcp/platform/internal/reqcontext"
	"github.com/ultimatemcp/platform/internal/tools/execute"
	"github.com/ultimatemcp/platform/internal/tools/generate"
	"github.com/ultimatemcp/platform/internal/tools/graphtool"
)

type handlers struct {
	svc       Services
	registry  *mcp.Registry
	tokens    *auth.TokenService
	blacklist *auth.Blacklist
}

// --- lint_code ---

type lintRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

func (h *handlers) lintCode(w http.ResponseWriter, r *http.Request) {
	var req lintRequest
	if err := decodeJSON(r, &req); err != nil {
		pipeline.WriteError(w, r, err)
		return
	}
	if req.Code == "" || req.Language == "" {
		pipeline.WriteError(w, r, apierr.New(apierr.KindInvalidInput, "code and language are required"))
		return
	}

	result, err := h.svc.Lint.Lint(r.Context(), []byte(req.Code), req.Language)
	if err != nil {
		pipeline.WriteError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// --- execute_code ---

type executeRequest struct {
	Code           string `json:"code"`
	Language       string `json:"language"`
	Strict         bool   `json:"strict"`
	Stdin          string `json:"stdin"`
	UseCache       bool   `json:"use_cache"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

func (h *handlers) executeCode(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := decodeJSON(r, &req); err != nil {
		pipeline.WriteError(w, r, err)
		return
	}
	if req.Code == "" || req.Language == "" {
		pipeline.WriteError(w, r, apierr.New(apierr.KindInvalidInput, "code and language are required"))
		return
	}

	result, err := h.svc.Execute.Execute(r.Context(), execute.Request{
		Source:        []byte(req.Code),
		Language:      req.Language,
		Strict:        req.Strict,
		Stdin:         req.Stdin,
		UseCache:      req.UseCache,
		Limits:        execute.Limits{TimeoutSeconds: req.TimeoutSeconds},
		UserID:        reqcontext.UserID(r.Context()),
		CorrelationID: reqcontext.CorrelationID(r.Context()),
	})
	if err != nil {
		pipeline.WriteError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// --- run_tests ---

type testRequest struct {
	Code           string `json:"code"`
	Language       string `json:"language"`
	Strict         bool   `json:"strict"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

func (h *handlers) runTests(w http.ResponseWriter, r *http.Request) {
	var req testRequest
	if err := decodeJSON(r, &req); err != nil {
		pipeline.WriteError(w, r, err)
		return
	}
	if req.Code == "" || req.Language == "" {
		pipeline.WriteError(w, r, apierr.New(apierr.KindInvalidInput, "code and language are required"))
		return
	}

	result, err := h.svc.Test.Run(r.Context(), []byte(req.Code), req.Language, req.Strict,
		execute.Limits{TimeoutSeconds: req.TimeoutSeconds},
		reqcontext.UserID(r.Context()), reqcontext.CorrelationID(r.Context()))
	if err != nil {
		pipeline.WriteError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// --- generate_code ---

type generateRequest struct {
	Template string         `json:"template"`
	Context  map[string]any `json:"context"`
}

func (h *handlers) generateCode(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		pipeline.WriteError(w, r, err)
		return
	}
	if req.Template == "" {
		pipeline.WriteError(w, r, apierr.New(apierr.KindInvalidInput, "template is required"))
		return
	}

	result, err := generate.Render(req.Template, req.Context)
	if err != nil {
		pipeline.WriteError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// --- graph_upsert / graph_query ---

type upsertNodeRequest struct {
	Key        string         `json:"key"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

type upsertRelRequest struct {
	Start      string         `json:"start"`
	End        string         `json:"end"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

type graphUpsertRequest struct {
	Nodes         []upsertNodeRequest `json:"nodes"`
	Relationships []upsertRelRequest  `json:"relationships"`
}

func (h *handlers) graphUpsert(w http.ResponseWriter, r *http.Request) {
	var req graphUpsertRequest
	if err := decodeJSON(r, &req); err != nil {
		pipeline.WriteError(w, r, err)
		return
	}
	if len(req.Nodes) == 0 {
		pipeline.WriteError(w, r, apierr.New(apierr.KindInvalidInput, "at least one node is required"))
		return
	}

	indexByKey := make(map[string]int, len(req.Nodes))
	nodes := make([]graphtool.Node, len(req.Nodes))
	for i, n := range req.Nodes {
		label := "Entity"
		if len(n.Labels) > 0 {
			label = n.Labels[0]
		}
		props := n.Properties
		if props == nil {
			props = map[string]any{}
		}
		if _, ok := props["id"]; !ok {
			props["id"] = n.Key
		}
		nodes[i] = graphtool.Node{Label: label, Properties: props}
		indexByKey[n.Key] = i
	}

	rels := make([]graphtool.Relationship, 0, len(req.Relationships))
	for _, rel := range req.Relationships {
		from, ok := indexByKey[rel.Start]
		if !ok {
			pipeline.WriteError(w, r, apierr.New(apierr.KindInvalidInput, "relationship references unknown node key: "+rel.Start))
			return
		}
		to, ok := indexByKey[rel.End]
		if !ok {
			pipeline.WriteError(w, r, apierr.New(apierr.KindInvalidInput, "relationship references unknown node key: "+rel.End))
			return
		}
		rels = append(rels, graphtool.Relationship{Type: rel.Type, FromIndex: from, ToIndex: to, Properties: rel.Properties})
	}

	if err := h.svc.Graph.Upsert(r.Context(), graphtool.UpsertRequest{Nodes: nodes, Relationships: rels}); err != nil {
		pipeline.WriteError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"status": "ok"})
}

type graphQueryRequest struct {
	Cypher     string         `json:"cypher"`
	Parameters map[string]any `json:"parameters"`
	Pure       bool           `json:"pure"`
	Labels     []string       `json:"labels"`
}

func (h *handlers) graphQuery(w http.ResponseWriter, r *http.Request) {
	var req graphQueryRequest
	if err := decodeJSON(r, &req); err != nil {
		pipeline.WriteError(w, r, err)
		return
	}
	if req.Cypher == "" {
		pipeline.WriteError(w, r, apierr.New(apierr.KindInvalidInput, "cypher is required"))
		return
	}

	rows, err := h.svc.Graph.Query(r.Context(), graphtool.QueryRequest{
		Query:  req.Cypher,
		Params: req.Parameters,
		Pure:   req.Pure,
		Labels: req.Labels,
	})
	if err != nil {
		pipeline.WriteError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"rows": rows})
}

// --- auth revocation ---

type revokeRequest struct {
	Token string `json:"token"`
}

func (h *handlers) revokeToken(w http.ResponseWriter, r *http.Request) {
	var req revokeRequest
	if err := decodeJSON(r, &req); err != nil {
		pipeline.WriteError(w, r, err)
		return
	}
	if req.Token == "" {
		pipeline.WriteError(w, r, apierr.New(apierr.KindInvalidInput, "token is required"))
		return
	}

	claims, err := h.tokens.Decode(req.Token)
	if err != nil {
		pipeline.WriteError(w, r, err)
		return
	}
	expiresAt := time.Now().Add(24 * time.Hour)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	h.blacklist.RevokeToken(auth.TokenHash(req.Token), expiresAt)
	writeJSON(w, map[string]any{"status": "revoked"})
}

type revokeAllRequest struct {
	UserID string `json:"user_id"`
}

func (h *handlers) revokeAllTokens(w http.ResponseWriter, r *http.Request) {
	var req revokeAllRequest
	if err := decodeJSON(r, &req); err != nil {
		pipeline.WriteError(w, r, err)
		return
	}
	if req.UserID == "" {
		pipeline.WriteError(w, r, apierr.New(apierr.KindInvalidInput, "user_id is required"))
		return
	}
	h.blacklist.RevokeUser(req.UserID, time.Now())
	writeJSON(w, map[string]any{"status": "revoked_all"})
}

// --- prompts ---

func (h *handlers) listPrompts(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		writeJSON(w, map[string]any{"prompts": []mcp.PromptDefinition{}})
		return
	}
	writeJSON(w, map[string]any{"prompts": h.registry.ListPrompts()})
}

func (h *handlers) getPrompt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.registry == nil {
		pipeline.WriteError(w, r, apierr.New(apierr.KindNotFound, "prompt not found: "+id))
		return
	}
	prompt := h.registry.GetPrompt(id)
	if prompt == nil {
		pipeline.WriteError(w, r, apierr.New(apierr.KindNotFound, "prompt not found: "+id))
		return
	}
	result, err := prompt.Get(nil)
	if err != nil {
		pipeline.WriteError(w, r, apierr.Wrap(apierr.KindInternal, "failed to render prompt", err))
		return
	}
	writeJSON(w, result)
}
