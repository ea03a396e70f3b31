package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeValidator_Validate(t *testing.T) {
	v := NewCodeValidator()

	tests := []struct {
		name    string
		source  string
		strict  bool
		wantErr bool
	}{
		{"plain function", "def add(a, b):\n    return a + b\n", false, false},
		{"import os rejected", "import os\nos.system('ls')\n", false, true},
		{"from-import subprocess rejected", "from subprocess import run\nrun(['ls'])\n", false, true},
		{"eval rejected", "eval('1 + 1')\n", false, true},
		{"exec rejected", "exec('print(1)')\n", false, true},
		{"dunder globals access rejected", "x = foo.__globals__\n", false, true},
		{"subscript dunder access rejected", "x = globals()['__builtins__']\n", false, true},
		{"open write mode rejected", "open('f.txt', 'w')\n", false, true},
		{"open read mode allowed", "open('f.txt', 'r')\n", false, false},
		{"network module allowed outside strict", "import http.client\n", false, false},
		{"network module rejected in strict", "import http.client\n", true, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate([]byte(tc.source), "python", tc.strict)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCodeValidator_SourceSizeLimit(t *testing.T) {
	v := NewCodeValidator()
	v.Limits.SourceMaxBytes = 10

	err := v.Validate([]byte(strings.Repeat("x", 20)), "python", false)
	require.Error(t, err)
}

func TestCodeValidator_UnsupportedLanguage(t *testing.T) {
	v := NewCodeValidator()
	err := v.Validate([]byte("1+1"), "ruby", false)
	require.Error(t, err)
}
