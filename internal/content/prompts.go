// Package content provides MCP prompts and resources describing the
// platform's five tools: lint_code, execute_code, run_tests,
// generate_code, graph_upsert, and graph_query.
package content

import "github.com/ultimatemcp/platform/internal/mcp"

// --- lint-before-execute prompt ---

// LintBeforeExecutePrompt guides an LLM client through the safe
// sequence of checking source with lint_code before ever calling
// execute_code or run_tests on it.
type LintBeforeExecutePrompt struct{}

func (p *LintBeforeExecutePrompt) Definition() mcp.PromptDefinition {
	return mcp.PromptDefinition{
		Name:        "lint-before-execute",
		Description: "Guide for safely linting source before running or executing it.",
		Arguments:   []mcp.PromptArgument{},
	}
}

func (p *LintBeforeExecutePrompt) Get(arguments map[string]string) (*mcp.PromptsGetResult, error) {
	return &mcp.PromptsGetResult{
		Description: "Guide for safely linting source before running or executing it",
		Messages: []mcp.PromptMessage{
			{
				Role:    "user",
				Content: mcp.TextContent(lintBeforeExecuteGuide),
			},
		},
	}, nil
}

const lintBeforeExecuteGuide = `# Lint Before You Execute

You have access to five tools: ` + "`lint_code`" + `, ` + "`execute_code`" + `,
` + "`run_tests`" + `, ` + "`generate_code`" + `, and the graph persistence pair
` + "`graph_upsert`" + `/` + "`graph_query`" + `. Follow this sequence whenever a user
hands you source they want run.

## Step 1: Lint first

Call ` + "`lint_code`" + ` with the source before calling ` + "`execute_code`" + ` or
` + "`run_tests`" + ` on it. ` + "`lint_code`" + ` requires no authentication and costs
nothing beyond a parse; use it freely. It reports:

- functions, classes, and imports found, in source order
- an approximate cyclomatic complexity
- a ` + "`code_hash`" + ` you can reuse to recognize source you've already linted

A lint failure (syntax the parser rejects) means the source will also
fail execution — don't waste a sandbox slot on it.

## Step 2: Decide strict mode

` + "`execute_code`" + ` and ` + "`run_tests`" + ` both take a ` + "`strict`" + ` flag. Every call
rejects source that imports dangerous modules or calls known dangerous
builtins (` + "`eval`" + `, ` + "`exec`" + `, ` + "`__import__`" + `, raw ` + "`open`" + ` in write
modes); strict mode additionally rejects imports of network modules such
as ` + "`http`" + ` and ` + "`urllib`" + `. Prefer strict mode unless the user has
explicitly asked for network access in their source.

## Step 3: Execute or test

- Use ` + "`execute_code`" + ` for a script you want to run once and see the
  stdout/stderr/exit code of.
- Use ` + "`run_tests`" + ` when the source is itself a pytest-style test file;
  it reports a parsed pass/fail/error summary in addition to raw output.

Both tools run under the same resource limits: a timeout (default 8s,
max 30s), a memory ceiling, and a bounded output size. A run that hits
a limit is not a tool error — it comes back as a normal result with a
` + "`reason`" + ` field set (` + "`timeout`" + `, ` + "`memory_exceeded`" + `, or
` + "`non_zero_exit`" + `). Only malformed requests or sandbox-internal
failures surface as tool errors.

## Step 4: Persist what matters

If the user wants to keep track of the code you just analyzed or ran,
use ` + "`graph_upsert`" + ` to record it as a node (e.g. labeled
` + "`Snippet`" + ` with the ` + "`code_hash`" + ` as an identifying property) rather
than re-describing it in prose. Use ` + "`graph_query`" + ` with ` + "`pure: true`" + `
when the read has no side effects — it is cheaper and cacheable.

## Common mistakes

- Calling ` + "`execute_code`" + ` on source you haven't linted, then being
  surprised by a parse-time rejection.
- Leaving ` + "`strict`" + ` off by default instead of asking the user first.
- Treating a non-zero ` + "`reason`" + ` as a tool failure and retrying blindly
  instead of reporting it to the user.
`

// --- generate-then-lint prompt ---

// GenerateThenLintPrompt guides an LLM client through validating
// generated code before handing it back to the user as runnable.
type GenerateThenLintPrompt struct{}

func (p *GenerateThenLintPrompt) Definition() mcp.PromptDefinition {
	return mcp.PromptDefinition{
		Name:        "generate-then-lint",
		Description: "Guide for validating generate_code output before presenting it as runnable.",
		Arguments:   []mcp.PromptArgument{},
	}
}

func (p *GenerateThenLintPrompt) Get(arguments map[string]string) (*mcp.PromptsGetResult, error) {
	return &mcp.PromptsGetResult{
		Description: "Guide for validating generated code before presenting it as runnable",
		Messages: []mcp.PromptMessage{
			{
				Role:    "user",
				Content: mcp.TextContent(generateThenLintGuide),
			},
		},
	}, nil
}

const generateThenLintGuide = `# Generate, Then Verify

` + "`generate_code`" + ` renders a Go ` + "`text/template`" + ` against a flat,
scalars-only context. It has no filesystem or network access and no
knowledge of whether its output is valid source in any particular
language — it is a template renderer, not a compiler.

## Workflow

1. Call ` + "`generate_code`" + ` with your template and context.
2. If the rendered output is meant to be executable Python, call
   ` + "`lint_code`" + ` on the result before telling the user it's ready to run.
3. If the lint reveals a syntax problem, the template (or its context
   values) needs fixing, not the generated text — iterate on step 1.
4. Only call ` + "`execute_code`" + ` once the lint step has passed.

## Notes

- ` + "`generate_code`" + ` never executes anything itself; it cannot be used
  as a substitute for ` + "`execute_code`" + `.
- Template context values are limited to strings, numbers, booleans,
  and flat maps/slices of those — nested structs or functions in the
  context will fail to render.
`
