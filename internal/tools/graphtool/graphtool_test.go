package graphtool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ultimatemcp/platform/internal/graph"
)

type fakeTx struct {
	queries []string
}

func (f *fakeTx) Run(ctx context.Context, query string, params map[string]any) error {
	f.queries = append(f.queries, query)
	return nil
}

type fakeClient struct {
	tx          *fakeTx
	touched     []string
	readRows    []graph.Row
	readQueries []string
}

func (f *fakeClient) ExecuteWriteTx(ctx context.Context, touchedLabels []string, fn func(tx graph.Tx) error) error {
	f.touched = touchedLabels
	f.tx = &fakeTx{}
	return fn(f.tx)
}

func (f *fakeClient) ExecuteRead(ctx context.Context, query string, params map[string]any, pure bool, touchedLabels []string) ([]graph.Row, error) {
	f.readQueries = append(f.readQueries, query)
	return f.readRows, nil
}

func TestUpsert_CommitsNodesBeforeRelationships(t *testing.T) {
	client := &fakeClient{}
	svc := NewService(client, 0)

	err := svc.Upsert(context.Background(), UpsertRequest{
		Nodes: []Node{
			{Label: "User", Properties: map[string]any{"id": "u1"}},
			{Label: "Role", Properties: map[string]any{"id": "admin"}},
		},
		Relationships: []Relationship{
			{Type: "HAS_ROLE", FromIndex: 0, ToIndex: 1, Properties: map[string]any{}},
		},
	})
	require.NoError(t, err)
	require.Len(t, client.tx.queries, 3)
	assert.Contains(t, client.tx.queries[0], "MERGE (n:User")
	assert.Contains(t, client.tx.queries[1], "MERGE (n:Role")
	assert.Contains(t, client.tx.queries[2], "HAS_ROLE")
}

func TestUpsert_RejectsNonScalarProperty(t *testing.T) {
	client := &fakeClient{}
	svc := NewService(client, 0)

	err := svc.Upsert(context.Background(), UpsertRequest{
		Nodes: []Node{
			{Label: "User", Properties: map[string]any{"nested": map[string]any{"a": 1}}},
		},
	})
	require.Error(t, err)
}

func TestQuery_RejectsMutatingKeyword(t *testing.T) {
	client := &fakeClient{}
	svc := NewService(client, 0)

	_, err := svc.Query(context.Background(), QueryRequest{Query: "MATCH (n) DETACH DELETE n"})
	require.Error(t, err)
}

func TestQuery_EnforcesRowLimit(t *testing.T) {
	client := &fakeClient{readRows: []graph.Row{{"id": "1"}, {"id": "2"}, {"id": "3"}}}
	svc := NewService(client, 2)

	rows, err := svc.Query(context.Background(), QueryRequest{Query: "MATCH (n) RETURN n"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
