package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "node_42", false},
		{"with colon and dash", "tenant:a-b", false},
		{"leading digit rejected", "1abc", true},
		{"empty rejected", "", true},
		{"too long rejected", string(make([]byte, 200)), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateIdentifier(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple relative", "a/b/c.py", false},
		{"absolute rejected", "/etc/passwd", true},
		{"drive qualified rejected", `C:\Windows`, true},
		{"dotdot segment rejected", "a/../b", true},
		{"empty rejected", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePath(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
