package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGraphQueryValidator_Validate(t *testing.T) {
	v := NewGraphQueryValidator()

	tests := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{"plain read", "MATCH (n:Artifact) RETURN n LIMIT 10", false},
		{"delete rejected", "MATCH (n) DELETE n", true},
		{"detach delete rejected", "MATCH (n) DETACH DELETE n", true},
		{"merge rejected", "MERGE (n:Artifact {id: 'x'})", true},
		{"statement separator rejected", "MATCH (n) RETURN n; MATCH (m) DELETE m", true},
		{"line comment rejected", "MATCH (n) RETURN n // DELETE n", true},
		{"admin procedure rejected", "CALL db.schema.visualization()", true},
		{"keyword inside string literal is not a clause", "MATCH (n) WHERE n.name = 'DELETE' RETURN n", false},
		{"word boundary does not false-positive", "MATCH (n:Settings) RETURN n", false},
		{"fullwidth obfuscation normalizes and is caught", "MATCH (n) ＤELETE n", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(tc.query)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
