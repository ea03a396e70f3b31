// Package test implements the run_tests tool: the same pool,
// resource limits, and process-group lifecycle as execute_code, pointed at a
// test harness invocation instead of a bare script. Harness-output
// parsing is strictly best-effort — an unparsable harness report is
// never treated as a tool failure
package test

import (
	"context"
	"regexp"
	"strconv"

	"github.com/ultimatemcp/platform/internal/apierr"
	"github.com/ultimatemcp/platform/internal/audit"
	"github.com/ultimatemcp/platform/internal/tools/execute"
	"github.com/ultimatemcp/platform/internal/validation"
)

// Summary is the best-effort parse of a pytest-style summary line; any
// field that could not be parsed is left at zero.
type Summary struct {
	Passed int
	Failed int
	Errors int
	Parsed bool
}

// Result is what Run returns.
type Result struct {
	Stdout     string
	Stderr     string
	ExitCode   int
	Reason     execute.FailureReason
	Summary    Summary
	DurationMs int64
}

// graphClient is the narrow seam Service needs from the graph client.
type graphClient interface {
	ExecuteWrite(ctx context.Context, query string, params map[string]any, touchedLabels []string) error
}

// Service runs the test tool on top of the same execution engine execute_code uses.
type Service struct {
	validator *validation.CodeValidator
	pool      *execute.Pool
	client    graphClient
	auditLog  *audit.Logger
}

// NewService builds a test Service sharing the execute package's pool
// and sandbox mechanics.
func NewService(validator *validation.CodeValidator, pool *execute.Pool, client graphClient, auditLog *audit.Logger) *Service {
	if pool == nil {
		pool = execute.NewPool(0)
	}
	return &Service{validator: validator, pool: pool, client: client, auditLog: auditLog}
}

// Run validates the combined test source, then runs it through the
// shared sandbox under the caller's limits.
func (s *Service) Run(ctx context.Context, source []byte, language string, strict bool, limits execute.Limits, userID, correlationID string) (*Result, error) {
	if language != "python" {
		return nil, apierr.New(apierr.KindInvalidInput, "unsupported language: "+language)
	}
	if err := s.validator.Validate(source, language, strict); err != nil {
		return nil, err
	}

	inner := execute.NewService(s.validator, s.pool, s.client, s.auditLog)
	execResult, err := inner.Execute(ctx, execute.Request{
		Source:        append([]byte("import pytest, sys\n"), source...),
		Language:      language,
		Strict:        strict,
		Limits:        limits,
		UserID:        userID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}

	result := &Result{
		Stdout:     execResult.Stdout,
		Stderr:     execResult.Stderr,
		ExitCode:   execResult.ExitCode,
		Reason:     execResult.Reason,
		DurationMs: execResult.DurationMs,
		Summary:    parseSummary(execResult.Stdout),
	}

	if perr := s.persist(ctx, execResult.CodeHash, result); perr != nil {
		return result, perr
	}
	return result, nil
}

// summaryRe matches pytest's trailing summary line, e.g.
// "3 passed, 1 failed, 2 errors in 0.42s". Any component may be absent.
var summaryRe = regexp.MustCompile(`(\d+)\s+passed|(\d+)\s+failed|(\d+)\s+error`)

func parseSummary(stdout string) Summary {
	matches := summaryRe.FindAllStringSubmatch(stdout, -1)
	if len(matches) == 0 {
		return Summary{}
	}
	s := Summary{Parsed: true}
	for _, m := range matches {
		switch {
		case m[1] != "":
			s.Passed, _ = strconv.Atoi(m[1])
		case m[2] != "":
			s.Failed, _ = strconv.Atoi(m[2])
		case m[3] != "":
			s.Errors, _ = strconv.Atoi(m[3])
		}
	}
	return s
}

func (s *Service) persist(ctx context.Context, codeHash string, r *Result) error {
	const query = `
MERGE (t:TestResult {code_hash: $code_hash})
SET t.exit_code = $exit_code,
    t.reason = $reason,
    t.passed = $passed,
    t.failed = $failed,
    t.errors = $errors,
    t.summary_parsed = $summary_parsed,
    t.duration_ms = $duration_ms,
    t.stdout = $stdout,
    t.stderr = $stderr`

	params := map[string]any{
		"code_hash":       codeHash,
		"exit_code":       r.ExitCode,
		"reason":          string(r.Reason),
		"passed":          r.Summary.Passed,
		"failed":          r.Summary.Failed,
		"errors":          r.Summary.Errors,
		"summary_parsed":  r.Summary.Parsed,
		"duration_ms":     r.DurationMs,
		"stdout":          r.Stdout,
		"stderr":          r.Stderr,
	}
	return s.client.ExecuteWrite(ctx, query, params, []string{"TestResult"})
}
