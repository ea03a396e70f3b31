package execute

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ultimatemcp/platform/internal/validation"
)

type fakeGraphClient struct {
	writes []map[string]any
}

func (f *fakeGraphClient) ExecuteWrite(ctx context.Context, query string, params map[string]any, touchedLabels []string) error {
	f.writes = append(f.writes, params)
	return nil
}

func newTestService() (*Service, *fakeGraphClient) {
	client := &fakeGraphClient{}
	svc := NewService(validation.NewCodeValidator(), NewPool(2), client, nil)
	return svc, client
}

func TestExecute_RunsAndCapturesStdout(t *testing.T) {
	svc, client := newTestService()

	result, err := svc.Execute(context.Background(), Request{
		Source:   []byte("print('hello from sandbox')\n"),
		Language: "python",
	})
	require.NoError(t, err)
	assert.Equal(t, ReasonNone, result.Reason)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.Stdout, "hello from sandbox")
	require.Len(t, client.writes, 1)
}

func TestExecute_NonZeroExitIsNotAPipelineError(t *testing.T) {
	svc, _ := newTestService()

	result, err := svc.Execute(context.Background(), Request{
		Source:   []byte("import sys\nsys.exit(3)\n"),
		Language: "python",
	})
	require.NoError(t, err)
	assert.Equal(t, ReasonNonZeroExit, result.Reason)
	assert.Equal(t, 3, result.ExitCode)
}

func TestExecute_TimeoutKillsTheProcessGroup(t *testing.T) {
	svc, _ := newTestService()

	result, err := svc.Execute(context.Background(), Request{
		Source:   []byte("while True:\n    pass\n"),
		Language: "python",
		Limits:   Limits{TimeoutSeconds: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, ReasonTimeout, result.Reason)
}

func TestExecute_RejectsDangerousImports(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Execute(context.Background(), Request{
		Source:   []byte("import subprocess\nsubprocess.run(['ls'])\n"),
		Language: "python",
	})
	require.Error(t, err)
}

func TestExecute_RejectsUnsupportedLanguage(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Execute(context.Background(), Request{
		Source:   []byte("console.log(1)"),
		Language: "javascript",
	})
	require.Error(t, err)
}

func TestPool_RejectsWhenSaturated(t *testing.T) {
	pool := NewPool(1)
	// Exhaust the admission gate manually by acquiring its capacity.
	for i := 0; i < 2; i++ {
		require.True(t, pool.admission.TryAcquire(1))
	}
	_, err := pool.Run(context.Background(), func(ctx context.Context) (*Result, error) {
		return &Result{}, nil
	})
	require.Error(t, err)
}
