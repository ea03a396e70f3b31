// Package graphtool implements the two graph-persistence tools,
// graph_upsert and graph_query, sitting directly on top of the graph
// client and the identifier/query validators. Nodes are always merged
// before the relationships between them, never the other way around.
package graphtool

import (
	"context"
	"fmt"

	"github.com/ultimatemcp/platform/internal/apierr"
	"github.com/ultimatemcp/platform/internal/graph"
	"github.com/ultimatemcp/platform/internal/validation"
)

const defaultRowLimit = 10000

// Node is one node to upsert: a label plus scalar or flat-list
// properties. Its "id" property is the MERGE key, so upserting the same
// id again updates the node instead of creating a second one.
type Node struct {
	Label      string
	Properties map[string]any
}

// Relationship is one relationship to upsert between two nodes already
// present in the same UpsertRequest, addressed by their index.
type Relationship struct {
	Type       string
	FromIndex  int
	ToIndex    int
	Properties map[string]any
}

// UpsertRequest is one graph_upsert call.
type UpsertRequest struct {
	Nodes         []Node
	Relationships []Relationship
}

// QueryRequest is one graph_query call.
type QueryRequest struct {
	Query  string
	Params map[string]any
	Pure   bool
	Labels []string // labels this query reads, for cache-key derivation
}

// graphClient is the narrow seam Service needs from the graph client.
type graphClient interface {
	ExecuteWriteTx(ctx context.Context, touchedLabels []string, fn func(tx graph.Tx) error) error
	ExecuteRead(ctx context.Context, query string, params map[string]any, pure bool, touchedLabels []string) ([]graph.Row, error)
}

// Service runs the graph_upsert/graph_query tools.
type Service struct {
	client         graphClient
	queryValidator *validation.GraphQueryValidator
	rowLimit       int
}

// NewService builds a graphtool Service. rowLimit <= 0 selects the
// default of 10,000.
func NewService(client graphClient, rowLimit int) *Service {
	if rowLimit <= 0 {
		rowLimit = defaultRowLimit
	}
	return &Service{client: client, queryValidator: validation.NewGraphQueryValidator(), rowLimit: rowLimit}
}

// Upsert validates every node/relationship, then commits nodes before
// relationships in a single write transaction, atomically.
func (s *Service) Upsert(ctx context.Context, req UpsertRequest) error {
	labels := make([]string, 0, len(req.Nodes)+len(req.Relationships))
	for _, n := range req.Nodes {
		if err := validation.ValidateIdentifier(n.Label); err != nil {
			return err
		}
		if err := validateProperties(n.Properties); err != nil {
			return err
		}
		labels = append(labels, n.Label)
	}
	for _, r := range req.Relationships {
		if err := validation.ValidateIdentifier(r.Type); err != nil {
			return err
		}
		if err := validateProperties(r.Properties); err != nil {
			return err
		}
		if r.FromIndex < 0 || r.FromIndex >= len(req.Nodes) || r.ToIndex < 0 || r.ToIndex >= len(req.Nodes) {
			return apierr.New(apierr.KindInvalidInput, "relationship references a node index out of range")
		}
	}

	return s.client.ExecuteWriteTx(ctx, labels, func(tx graph.Tx) error {
		for _, n := range req.Nodes {
			query := fmt.Sprintf("MERGE (n:%s {id: $id}) SET n += $props", n.Label)
			if err := tx.Run(ctx, query, map[string]any{"id": n.Properties["id"], "props": n.Properties}); err != nil {
				return apierr.Wrap(apierr.KindInternal, "failed to upsert node", err)
			}
		}
		for _, r := range req.Relationships {
			from := req.Nodes[r.FromIndex]
			to := req.Nodes[r.ToIndex]
			query := fmt.Sprintf(
				"MATCH (a:%s {id: $from_id}), (b:%s {id: $to_id}) MERGE (a)-[rel:%s]->(b) SET rel += $props",
				from.Label, to.Label, r.Type)
			params := map[string]any{
				"from_id": from.Properties["id"],
				"to_id":   to.Properties["id"],
				"props":   r.Properties,
			}
			if err := tx.Run(ctx, query, params); err != nil {
				return apierr.Wrap(apierr.KindInternal, "failed to upsert relationship", err)
			}
		}
		return nil
	})
}

// Query validates text as a pure read query, then executes it through
// the graph client's cached read path, enforcing a server-side row cap.
func (s *Service) Query(ctx context.Context, req QueryRequest) ([]graph.Row, error) {
	if err := s.queryValidator.Validate(req.Query); err != nil {
		return nil, err
	}

	rows, err := s.client.ExecuteRead(ctx, req.Query, req.Params, req.Pure, req.Labels)
	if err != nil {
		return nil, err
	}
	if len(rows) > s.rowLimit {
		rows = rows[:s.rowLimit]
	}
	return rows, nil
}

// validateProperties rejects anything but scalar or flat-list property
// values: a graph property is never a nested map.
func validateProperties(props map[string]any) error {
	for k, v := range props {
		switch v.(type) {
		case nil, bool, string, int, int64, float64, float32, uint, uint64:
			continue
		case []string, []int, []int64, []float64:
			continue
		default:
			return apierr.New(apierr.KindInvalidInput, fmt.Sprintf("property %q must be a scalar or a flat list, got %T", k, v))
		}
	}
	return nil
}
