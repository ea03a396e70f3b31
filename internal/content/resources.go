package content

import "github.com/ultimatemcp/platform/internal/mcp"

// --- ultimatemcp://entity-model resource ---

// EntityModelResource exposes the graph schema (node labels, uniqueness
// constraints, indexes) as a reference resource.
type EntityModelResource struct{}

func (r *EntityModelResource) Definition() mcp.ResourceDefinition {
	return mcp.ResourceDefinition{
		URI:         "ultimatemcp://entity-model",
		Name:        "Entity Model",
		Description: "Node labels, uniqueness constraints, and indexes used in the graph store",
		MimeType:    "text/markdown",
	}
}

func (r *EntityModelResource) Read() (*mcp.ResourcesReadResult, error) {
	return &mcp.ResourcesReadResult{
		Contents: []mcp.ResourceContent{
			{
				URI:      "ultimatemcp://entity-model",
				MimeType: "text/markdown",
				Text:     entityModelContent,
			},
		},
	}, nil
}

const entityModelContent = `# Entity Model

## Node labels

- ` + "`LintResult`" + ` — keyed by ` + "`code_hash`" + ` (sha256 of the linted source)
  plus ` + "`analyzer_version`" + `; the finding count, complexity, and the
  external analyzer's exit code and truncation flag. The findings
  themselves and the analyzer output are returned to the caller, not
  stored on the node.
- ` + "`ExecutionResult`" + ` — one per ` + "`execute_code`" + ` call; stdout, stderr,
  exit code, duration, and failure reason, keyed by a generated id with
  ` + "`code_hash`" + ` and ` + "`timestamp`" + ` indexed for lookup.
- ` + "`TestResult`" + ` — keyed by ` + "`code_hash`" + `, so re-running the same source
  overwrites it; exit code, failure reason, duration, stdout, and stderr,
  plus a best-effort parsed pass/fail/error summary.
- ` + "`GenerationResult`" + ` — a label in the schema that ` + "`generate_code`" + ` does
  not write: the rendered output is returned to the caller, and neither
  it nor the render context is persisted.
- ` + "`AuditEvent`" + ` — one per authentication/authorization/execution/graph
  decision the pipeline makes; see the audit trail section below.
- ` + "`BlacklistedToken`" + ` — one per individually revoked token, keyed by
  ` + "`token_hash`" + ` with an ` + "`expires_at`" + ` the sweep job uses to reclaim it.
- ` + "`User`" + `, ` + "`Role`" + ` — the RBAC identity backing a token's subject and
  roles, keyed by ` + "`user_id`" + `.

## Uniqueness constraints

- ` + "`AuditEvent.id`" + `
- ` + "`BlacklistedToken.token_hash`" + `
- ` + "`User.user_id`" + `

## Indexes

- ` + "`ExecutionResult.code_hash`" + `
- ` + "`ExecutionResult.timestamp`" + `
- ` + "`LintResult.code_hash`" + `
- ` + "`AuditEvent(type, timestamp)`" + `
- ` + "`AuditEvent.user_id`" + `
- ` + "`BlacklistedToken.expires_at`" + `

All labels and property keys follow the identifier format enforced by
` + "`internal/validation`" + ` before any write reaches the graph client.

## Audit trail

Every ` + "`AuditEvent`" + ` carries a type (` + "`auth_success`" + `, ` + "`auth_failure`" + `,
` + "`authz_granted`" + `, ` + "`authz_denied`" + `, ` + "`code_exec`" + `, ` + "`graph_write`" + `,
` + "`graph_read`" + `, ` + "`security_violation`" + `, ` + "`rate_limited`" + `), a severity
(` + "`info`" + `, ` + "`warning`" + `, ` + "`critical`" + `), the acting user id, and the
correlation id of the request that produced it. A failure to persist an
audit event never fails the request it describes — it is logged and
swallowed.
`

// --- ultimatemcp://guardrails resource ---

// GuardrailsResource exposes the pipeline's validation and rate-limit
// guardrails as a reference resource.
type GuardrailsResource struct{}

func (r *GuardrailsResource) Definition() mcp.ResourceDefinition {
	return mcp.ResourceDefinition{
		URI:         "ultimatemcp://guardrails",
		Name:        "Guardrails",
		Description: "Validation limits, strict-mode restrictions, and rate limits enforced before a tool runs",
		MimeType:    "text/markdown",
	}
}

func (r *GuardrailsResource) Read() (*mcp.ResourcesReadResult, error) {
	return &mcp.ResourcesReadResult{
		Contents: []mcp.ResourceContent{
			{
				URI:      "ultimatemcp://guardrails",
				MimeType: "text/markdown",
				Text:     guardrailsContent,
			},
		},
	}, nil
}

const guardrailsContent = `# Guardrails

## Source validation (every call to execute_code, run_tests)

- Source is parsed with tree-sitter before anything else runs; a parse
  failure is returned as ` + "`invalid_input`" + ` without touching the sandbox.
- Source size, AST depth, and node count are all bounded; exceeding any
  of them is also ` + "`invalid_input`" + `.
- Every call rejects imports of dangerous modules, calls to dangerous
  builtins (` + "`eval`" + `, ` + "`exec`" + `, ` + "`__import__`" + `, write-mode ` + "`open`" + `),
  and access to interpreter-internal attributes. Strict mode
  additionally rejects imports of network modules (` + "`http`" + `, ` + "`urllib`" + `,
  ` + "`ftplib`" + `, ` + "`telnetlib`" + `, ` + "`smtplib`" + `).

## Sandbox resource limits (execute_code, run_tests)

- Timeout: default 8s, capped at 30s regardless of what the caller
  requests.
- Memory: ` + "`RLIMIT_AS`" + `, default 256MiB.
- Output: each of stdout/stderr capped at 100KiB by default; output
  beyond the cap is truncated, not rejected.
- A saturated worker pool returns ` + "`busy`" + ` immediately rather than
  queuing indefinitely.

## Rate limits

- Per-key fixed windows at the minute, hour, and day grain, plus a
  sub-second burst gate.
- On the HTTP tool routes, unauthenticated callers are keyed by remote
  IP; on the MCP transport, all unauthenticated calls share one key.
  Authenticated callers are keyed by subject, so the limit follows the
  user across connections.
- A rejection surfaces as ` + "`rate_limited`" + ` with a ` + "`retry_after_seconds`" + `
  detail and, on the HTTP transport, a ` + "`Retry-After`" + ` header.

## Authorization

- Every tool call, on both transports, passes through exactly one
  authorize decision: authenticate (if a token is required or
  present), check the caller's roles against the tool's required
  permission, then charge the rate limiter. There is no path that
  grants a default role to a caller whose credential failed
  verification.
`

// --- ultimatemcp://tool-reference resource ---

// ToolReferenceResource exposes a quick-reference card for the five
// platform tools.
type ToolReferenceResource struct{}

func (r *ToolReferenceResource) Definition() mcp.ResourceDefinition {
	return mcp.ResourceDefinition{
		URI:         "ultimatemcp://tool-reference",
		Name:        "Tool Reference",
		Description: "Quick-reference card for lint_code, execute_code, run_tests, generate_code, graph_upsert, and graph_query",
		MimeType:    "text/markdown",
	}
}

func (r *ToolReferenceResource) Read() (*mcp.ResourcesReadResult, error) {
	return &mcp.ResourcesReadResult{
		Contents: []mcp.ResourceContent{
			{
				URI:      "ultimatemcp://tool-reference",
				MimeType: "text/markdown",
				Text:     toolReferenceContent,
			},
		},
	}, nil
}

const toolReferenceContent = `# Tool Reference

## lint_code
Permission: ` + "`tools:lint`" + ` (viewer). No authentication required.
Params: ` + "`source`" + `, ` + "`language`" + ` (required, only ` + "`\"python\"`" + ` is
supported).
Returns: findings (functions/classes/imports), approximate cyclomatic
complexity, code hash, optional external analyzer output and exit code.

## execute_code
Permission: ` + "`tools:execute`" + ` (developer). Authentication required.
Params: ` + "`source`" + `, ` + "`language`" + ` (required), ` + "`strict`" + `, ` + "`stdin`" + `,
` + "`use_cache`" + `, ` + "`timeout_seconds`" + `, ` + "`memory_bytes`" + `, ` + "`file_size_bytes`" + `.
Returns: stdout, stderr, exit code, duration, peak memory, failure
reason (if any), and whether the result was served from cache.

## run_tests
Permission: ` + "`tools:test`" + ` (developer). Authentication required.
Params: ` + "`source`" + `, ` + "`language`" + ` (required), ` + "`strict`" + `, ` + "`timeout_seconds`" + `.
Returns: stdout, stderr, exit code, duration, failure reason (if any),
and a best-effort parsed pass/fail/error summary.

## generate_code
Permission: ` + "`tools:generate`" + ` (developer). Authentication required.
Params: ` + "`template`" + ` (required, Go text/template source), ` + "`context`" + `
(flat, scalars-only map).
Returns: the rendered output.

## graph_upsert
Permission: ` + "`graph:upsert`" + ` (admin). Authentication required.
Params: ` + "`nodes`" + ` (required, label + properties), ` + "`relationships`" + `
(type + from/to index into nodes + properties).
Returns: ` + "`{\"status\": \"ok\"}`" + ` on success; nodes are merged before
relationships, atomically.

## graph_query
Permission: ` + "`graph:query`" + ` (viewer). No authentication required.
Params: ` + "`query`" + ` (required Cypher, read-only statements enforced),
` + "`params`" + `, ` + "`pure`" + ` (enables cache), ` + "`labels`" + ` (read labels, for cache
key derivation).
Returns: ` + "`{\"rows\": [...]}`" + `, bounded by a server-side row cap.
`
