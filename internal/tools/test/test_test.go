package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ultimatemcp/platform/internal/tools/execute"
	"github.com/ultimatemcp/platform/internal/validation"
)

type fakeGraphClient struct {
	writes []map[string]any
}

func (f *fakeGraphClient) ExecuteWrite(ctx context.Context, query string, params map[string]any, touchedLabels []string) error {
	f.writes = append(f.writes, params)
	return nil
}

func TestRun_RejectsUnsupportedLanguage(t *testing.T) {
	svc := NewService(validation.NewCodeValidator(), execute.NewPool(1), &fakeGraphClient{}, nil)
	_, err := svc.Run(context.Background(), []byte("n/a"), "ruby", false, execute.Limits{}, "u1", "c1")
	require.Error(t, err)
}

func TestParseSummary_BestEffort(t *testing.T) {
	s := parseSummary("===== 3 passed, 1 failed, 2 error in 0.10s =====")
	assert.True(t, s.Parsed)
	assert.Equal(t, 3, s.Passed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 2, s.Errors)
}

func TestParseSummary_UnparsableNeverFails(t *testing.T) {
	s := parseSummary("garbage output with no recognizable summary")
	assert.False(t, s.Parsed)
	assert.Equal(t, 0, s.Passed)
}
