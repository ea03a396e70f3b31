package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ultimatemcp/platform/internal/apierr"
)

func TestExecute_PassesThroughOnSuccess(t *testing.T) {
	b := New(Settings{Name: "graph-read", FailureThreshold: 3, SuccessThreshold: 1, Timeout: time.Millisecond})

	result, err := b.Execute(context.Background(), func(ctx context.Context) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 0, b.State())
}

func TestExecute_TripsOpenAfterThreshold(t *testing.T) {
	b := New(Settings{Name: "graph-write", FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Minute})

	boom := errors.New("boom")
	for i := 0; i < 2; i++ {
		_, err := b.Execute(context.Background(), func(ctx context.Context) (any, error) {
			return nil, boom
		})
		assert.Error(t, err)
	}

	_, err := b.Execute(context.Background(), func(ctx context.Context) (any, error) {
		return "should not run", nil
	})
	require.Error(t, err)

	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindDependencyUnavailable, apiErr.Kind)
	assert.Equal(t, 2, b.State())
}

func TestExecute_HalfOpenRecoversToClosed(t *testing.T) {
	b := New(Settings{Name: "graph-read", FailureThreshold: 1, SuccessThreshold: 1, Timeout: 10 * time.Millisecond})

	_, err := b.Execute(context.Background(), func(ctx context.Context) (any, error) {
		return nil, errors.New("boom")
	})
	assert.Error(t, err)
	assert.Equal(t, 2, b.State())

	time.Sleep(20 * time.Millisecond)

	_, err = b.Execute(context.Background(), func(ctx context.Context) (any, error) {
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, b.State())
}
