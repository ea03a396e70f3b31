package lint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGraphClient struct {
	writes []map[string]any
}

func (f *fakeGraphClient) ExecuteWrite(ctx context.Context, query string, params map[string]any, touchedLabels []string) error {
	f.writes = append(f.writes, params)
	return nil
}

func TestLint_ExtractsFunctionsClassesAndImports(t *testing.T) {
	source := []byte(`
import os
from collections import OrderedDict

class Greeter:
    def greet(self, name):
        if name:
            return "hi " + name
        return "hi"
`)
	client := &fakeGraphClient{}
	svc := NewService(client, "", 0)

	result, err := svc.Lint(context.Background(), source, "python")
	require.NoError(t, err)

	var kinds []string
	for _, f := range result.Findings {
		kinds = append(kinds, f.Kind+":"+f.Name)
	}
	assert.Contains(t, kinds, "class:Greeter")
	assert.Contains(t, kinds, "function:greet")
	assert.Contains(t, kinds, "import:os")
	assert.GreaterOrEqual(t, result.CyclomaticApprox, 2)
	require.Len(t, client.writes, 1)
	assert.Equal(t, result.CodeHash, client.writes[0]["code_hash"])
}

func TestLint_DeterministicHashForIdenticalSource(t *testing.T) {
	source := []byte("def f():\n    pass\n")
	client := &fakeGraphClient{}
	svc := NewService(client, "", 0)

	r1, err := svc.Lint(context.Background(), source, "python")
	require.NoError(t, err)
	r2, err := svc.Lint(context.Background(), source, "python")
	require.NoError(t, err)

	assert.Equal(t, r1.CodeHash, r2.CodeHash)
	assert.Equal(t, r1.AnalyzerVersion, r2.AnalyzerVersion)
}
