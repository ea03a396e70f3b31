package validation

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ultimatemcp/platform/internal/apierr"
)

// mutatingKeywords are Cypher clauses that write to the graph. The only
// write path this system exposes is the parameterized graph upsert;
// a user-supplied query string is read-only and must never reach one
// of these.
var mutatingKeywords = []string{
	"DELETE", "DETACH DELETE", "REMOVE", "CREATE", "MERGE", "SET", "DROP",
}

// adminProcedures are database-administration procedure prefixes.
var adminProcedures = []string{
	"DB.", "DBMS.", "APOC.PERIODIC", "APOC.SCHEMA", "APOC.TRIGGER",
}

var stringLiteral = regexp.MustCompile(`'(?:[^'\\]|\\.)*'|"(?:[^"\\]|\\.)*"`)

// GraphQueryValidator rejects any read-only query text that carries a
// mutating clause, an admin procedure, a statement separator, or a
// comment sequence, matching against a normalized token stream so
// Unicode confusable characters can't smuggle a denied keyword past a
// naive substring check (scenario: fullwidth-character
// obfuscation).
type GraphQueryValidator struct{}

func NewGraphQueryValidator() *GraphQueryValidator { return &GraphQueryValidator{} }

// Validate rejects text that is anything but a pure read query.
func (v *GraphQueryValidator) Validate(text string) error {
	normalized := normalize(text)

	if strings.Contains(normalized, ";") {
		return apierr.New(apierr.KindInvalidInput, "statement separators are not allowed in graph queries")
	}
	if strings.Contains(normalized, "//") || strings.Contains(normalized, "/*") {
		return apierr.New(apierr.KindInvalidInput, "comment sequences are not allowed in graph queries")
	}
	for _, kw := range mutatingKeywords {
		if containsKeyword(normalized, kw) {
			return apierr.New(apierr.KindInvalidInput, "mutating clause is not allowed on the read path: "+kw)
		}
	}
	for _, proc := range adminProcedures {
		if strings.Contains(normalized, proc) {
			return apierr.New(apierr.KindInvalidInput, "administration procedure is not allowed: "+proc)
		}
	}
	return nil
}

// normalize applies NFKC, folds case, and masks string literals so a
// denied keyword hidden inside a quoted value isn't mistaken for a real
// clause, and so a denied keyword split across a literal boundary can't
// hide from the scan either.
func normalize(text string) string {
	n := norm.NFKC.String(text)
	n = strings.ToUpper(n)
	n = stringLiteral.ReplaceAllString(n, "''")
	return n
}

// containsKeyword does a word-boundary substring check: "SETUP" must not
// match "SET", but "a.name SET" must.
func containsKeyword(normalized, keyword string) bool {
	idx := 0
	for {
		pos := strings.Index(normalized[idx:], keyword)
		if pos < 0 {
			return false
		}
		start := idx + pos
		end := start + len(keyword)
		beforeOK := start == 0 || !isWordByte(normalized[start-1])
		afterOK := end == len(normalized) || !isWordByte(normalized[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
