// Package lint implements static analysis over the same tree-sitter
// grammar internal/validation parses with, grounded on
// internal/validation/code.go's walk pattern — a second, narrower walk
// over the already-trusted grammar rather than a new parser or a
// regex-based extractor.
package lint

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os/exec"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/ultimatemcp/platform/internal/apierr"
)

const analyzerVersion = "1"

// supportedLanguage is the only language this analyzer understands.
const supportedLanguage = "python"

// Finding is one extracted unit: a function, a class, or an import.
type Finding struct {
	Kind string // "function", "class", "import"
	Name string
	Line int
}

// Result is what Lint returns and what gets persisted as LintResult.
type Result struct {
	CodeHash         string
	AnalyzerVersion  string
	Findings         []Finding
	CyclomaticApprox int
	ExternalOutput   string
	Truncated        bool
	AnalyzerExitCode int
}

// graphClient is the narrow seam lint.Service needs from the graph client.
type graphClient interface {
	ExecuteWrite(ctx context.Context, query string, params map[string]any, touchedLabels []string) error
}

// branchNodeTypes are the tree-sitter node types counted as a branch for
// the cyclomatic-complexity approximation: branch_count + 1.
var branchNodeTypes = map[string]bool{
	"if_statement": true, "elif_clause": true, "for_statement": true,
	"while_statement": true, "except_clause": true, "with_statement": true,
	"boolean_operator": true, "conditional_expression": true,
}

// Service runs the lint tool.
type Service struct {
	client         graphClient
	parser         *sitter.Parser
	analyzerBin    string // optional external analyzer, bounded by O_MAX
	outputMaxBytes int
}

// NewService builds a lint Service. analyzerBin may be empty to skip the
// optional external-analyzer step entirely.
func NewService(client graphClient, analyzerBin string, outputMaxBytes int) *Service {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	if outputMaxBytes <= 0 {
		outputMaxBytes = 100 * 1024
	}
	return &Service{client: client, parser: p, analyzerBin: analyzerBin, outputMaxBytes: outputMaxBytes}
}

// Lint parses source, extracts findings in source order, approximates
// complexity, optionally shells out to an external analyzer, and
// persists the LintResult keyed by (code_hash, analyzer_version) for
// idempotent re-lints of identical source. language must be "python",
// the only grammar this analyzer is built against.
func (s *Service) Lint(ctx context.Context, source []byte, language string) (*Result, error) {
	if language != supportedLanguage {
		return nil, apierr.New(apierr.KindInvalidInput, "unsupported language: "+language)
	}

	tree, err := s.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInvalidInput, "failed to parse source", err)
	}
	defer tree.Close()

	findings := make([]Finding, 0, 16)
	branches := 0

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "function_definition":
			if name := n.ChildByFieldName("name"); name != nil {
				findings = append(findings, Finding{Kind: "function", Name: string(source[name.StartByte():name.EndByte()]), Line: int(n.StartPoint().Row) + 1})
			}
		case "class_definition":
			if name := n.ChildByFieldName("name"); name != nil {
				findings = append(findings, Finding{Kind: "class", Name: string(source[name.StartByte():name.EndByte()]), Line: int(n.StartPoint().Row) + 1})
			}
		case "import_statement", "import_from_statement":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				child := n.NamedChild(i)
				if child.Type() == "dotted_name" || child.Type() == "identifier" {
					findings = append(findings, Finding{Kind: "import", Name: string(source[child.StartByte():child.EndByte()]), Line: int(n.StartPoint().Row) + 1})
				}
			}
		}
		if branchNodeTypes[n.Type()] {
			branches++
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(tree.RootNode())

	findings = dedupeAndSort(findings)

	result := &Result{
		CodeHash:         hashSource(source),
		AnalyzerVersion:  analyzerVersion,
		Findings:         findings,
		CyclomaticApprox: branches + 1,
	}

	if s.analyzerBin != "" {
		out, truncated, exitCode := s.runExternalAnalyzer(ctx, source)
		result.ExternalOutput = out
		result.Truncated = truncated
		result.AnalyzerExitCode = exitCode
	}

	if err := s.persist(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// runExternalAnalyzer shells out to an optional, operator-configured
// analyzer binary, feeding it source on stdin and bounding its captured
// stdout to outputMaxBytes, never failing Lint itself if the analyzer
// errors: it is a best-effort enrichment, not a required step. The exit
// code is still reported, 0 on a clean run.
func (s *Service) runExternalAnalyzer(ctx context.Context, source []byte) (string, bool, int) {
	cmd := exec.CommandContext(ctx, s.analyzerBin)
	cmd.Stdin = bytes.NewReader(source)
	out, err := cmd.Output()
	exitCode := 0
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	truncated := false
	if len(out) > s.outputMaxBytes {
		out = out[:s.outputMaxBytes]
		truncated = true
	}
	return string(out), truncated, exitCode
}

func (s *Service) persist(ctx context.Context, r *Result) error {
	const query = `
MERGE (l:LintResult {code_hash: $code_hash, analyzer_version: $analyzer_version})
SET l.finding_count = $finding_count,
    l.cyclomatic_approx = $cyclomatic_approx,
    l.truncated = $truncated,
    l.analyzer_exit_code = $analyzer_exit_code`

	params := map[string]any{
		"code_hash":          r.CodeHash,
		"analyzer_version":   r.AnalyzerVersion,
		"finding_count":      len(r.Findings),
		"cyclomatic_approx":  r.CyclomaticApprox,
		"truncated":          r.Truncated,
		"analyzer_exit_code": r.AnalyzerExitCode,
	}
	return s.client.ExecuteWrite(ctx, query, params, []string{"LintResult"})
}

func dedupeAndSort(findings []Finding) []Finding {
	seen := make(map[Finding]bool, len(findings))
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

func hashSource(source []byte) string {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:])
}
