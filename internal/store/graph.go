package store

import (
	"context"
	"database/sql"
	"errors"

	"graphd/internal/model"
)

// SQLiteGraph is the GraphRepository backed by the nodes and edges tables.
type SQLiteGraph struct {
	db *DB
}

var _ GraphRepository = (*SQLiteGraph)(nil)

// NewGraphRepository returns a graph repository on db.
func NewGraphRepository(db *DB) *SQLiteGraph {
	return &SQLiteGraph{db: db}
}

// InsertNode stores node unless its id already exists; a duplicate is a
// successful no-op and the first document is kept.
func (r *SQLiteGraph) InsertNode(ctx context.Context, node model.Node) (bool, error) {
	data, err := encodeDoc(node.Data)
	if err != nil {
		return false, err
	}
	now := r.db.timestamp()
	_, err = r.db.conn(ctx).ExecContext(ctx, queryInsertNode,
		node.ID, node.Label, node.Category, node.Type, node.UserCreated, data, now, now)
	if err != nil {
		return false, dbError("insert node", node.ID, err)
	}
	return true, nil
}

func (r *SQLiteGraph) GetNode(ctx context.Context, id string) (*model.Node, error) {
	n, err := scanNode(r.db.conn(ctx).QueryRowContext(ctx, queryGetNode, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError("get node", id, err)
	}
	return &n, nil
}

func (r *SQLiteGraph) GetNodes(ctx context.Context) ([]model.Node, error) {
	return r.queryNodes(ctx, "get nodes", queryGetNodes)
}

func (r *SQLiteGraph) GetNodeExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.db.conn(ctx).QueryRowContext(ctx, queryNodeExists, id).Scan(&exists); err != nil {
		return false, dbError("check node", id, err)
	}
	return exists, nil
}

// UpdateNode replaces label, category, type and data. It reports false when
// the node does not exist.
func (r *SQLiteGraph) UpdateNode(ctx context.Context, node model.Node) (bool, error) {
	data, err := encodeDoc(node.Data)
	if err != nil {
		return false, err
	}
	res, err := r.db.conn(ctx).ExecContext(ctx, queryUpdateNode,
		node.Label, node.Category, node.Type, data, r.db.timestamp(), node.ID)
	if err != nil {
		return false, dbError("update node", node.ID, err)
	}
	return affected(res)
}

// DeleteNode removes the node; the foreign keys cascade to its edges, status
// rows and project memberships.
func (r *SQLiteGraph) DeleteNode(ctx context.Context, id string) (bool, error) {
	res, err := r.db.conn(ctx).ExecContext(ctx, queryDeleteNode, id)
	if err != nil {
		return false, dbError("delete node", id, err)
	}
	return affected(res)
}

func (r *SQLiteGraph) GetParents(ctx context.Context, id string) ([]model.Node, error) {
	return r.queryNodes(ctx, "get parents", queryParents, id)
}

func (r *SQLiteGraph) GetDependents(ctx context.Context, id string) ([]model.Node, error) {
	return r.queryNodes(ctx, "get dependents", queryDependents, id)
}

// InsertEdge stores a directed edge after checking both endpoints exist and
// that the edge closes no cycle. The checks and the insert share a transaction.
// Re-inserting an existing edge is a successful no-op.
func (r *SQLiteGraph) InsertEdge(ctx context.Context, edge model.Edge) (bool, error) {
	err := r.db.WithTx(ctx, func(ctx context.Context) error {
		for _, id := range []string{edge.Source, edge.Target} {
			ok, err := r.GetNodeExists(ctx, id)
			if err != nil {
				return err
			}
			if !ok {
				return &DatabaseError{Op: "insert edge", Key: id, Kind: ErrForeignKey}
			}
		}
		cycle, err := r.wouldCycle(ctx, edge.Source, edge.Target)
		if err != nil {
			return err
		}
		if cycle {
			return &DatabaseError{Op: "insert edge", Key: edge.ID(), Kind: ErrCycle}
		}

		data, err := encodeDoc(edge.Data)
		if err != nil {
			return err
		}
		label := edge.Label
		if label == "" {
			label = model.DefaultEdgeLabel
		}
		now := r.db.timestamp()
		if _, err := r.db.conn(ctx).ExecContext(ctx, queryInsertEdge,
			edge.Source, edge.Target, label, data, now, now); err != nil {
			return dbError("insert edge", edge.ID(), err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetEdge looks up the edge in the given direction only.
func (r *SQLiteGraph) GetEdge(ctx context.Context, source, target string) (*model.Edge, error) {
	e, err := scanEdge(r.db.conn(ctx).QueryRowContext(ctx, queryGetEdge, source, target))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError("get edge", model.EdgeID(source, target), err)
	}
	return &e, nil
}

func (r *SQLiteGraph) GetEdges(ctx context.Context) ([]model.Edge, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx, queryGetEdges)
	if err != nil {
		return nil, dbError("get edges", "", err)
	}
	defer rows.Close()
	out := []model.Edge{}
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, dbError("get edges", "", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("get edges", "", err)
	}
	return out, nil
}

// GetEdgeExists is symmetric: (a, b) and (b, a) name the same edge.
func (r *SQLiteGraph) GetEdgeExists(ctx context.Context, source, target string) (bool, error) {
	var exists bool
	err := r.db.conn(ctx).QueryRowContext(ctx, queryEdgeExists, source, target, target, source).Scan(&exists)
	if err != nil {
		return false, dbError("check edge", model.EdgeID(source, target), err)
	}
	return exists, nil
}

// UpdateEdge replaces label and data. It reports false when the edge does not exist.
func (r *SQLiteGraph) UpdateEdge(ctx context.Context, edge model.Edge) (bool, error) {
	data, err := encodeDoc(edge.Data)
	if err != nil {
		return false, err
	}
	label := edge.Label
	if label == "" {
		label = model.DefaultEdgeLabel
	}
	res, err := r.db.conn(ctx).ExecContext(ctx, queryUpdateEdge,
		label, data, r.db.timestamp(), edge.Source, edge.Target)
	if err != nil {
		return false, dbError("update edge", edge.ID(), err)
	}
	return affected(res)
}

func (r *SQLiteGraph) DeleteEdge(ctx context.Context, source, target string) (bool, error) {
	res, err := r.db.conn(ctx).ExecContext(ctx, queryDeleteEdge, source, target)
	if err != nil {
		return false, dbError("delete edge", model.EdgeID(source, target), err)
	}
	return affected(res)
}

func (r *SQLiteGraph) queryNodes(ctx context.Context, op, query string, args ...any) ([]model.Node, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError(op, "", err)
	}
	defer rows.Close()
	out := []model.Node{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, dbError(op, "", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(op, "", err)
	}
	return out, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanNode(s scanner) (model.Node, error) {
	var (
		n                      model.Node
		data, created, updated string
	)
	if err := s.Scan(&n.ID, &n.Label, &n.Category, &n.Type, &n.UserCreated, &data, &created, &updated); err != nil {
		return model.Node{}, err
	}
	var err error
	if n.Data, err = decodeDoc(data); err != nil {
		return model.Node{}, err
	}
	if n.CreatedAt, err = parseTime(created); err != nil {
		return model.Node{}, err
	}
	if n.UpdatedAt, err = parseTime(updated); err != nil {
		return model.Node{}, err
	}
	return n, nil
}

func scanEdge(s scanner) (model.Edge, error) {
	var (
		e                      model.Edge
		data, created, updated string
	)
	if err := s.Scan(&e.Source, &e.Target, &e.Label, &data, &created, &updated); err != nil {
		return model.Edge{}, err
	}
	var err error
	if e.Data, err = decodeDoc(data); err != nil {
		return model.Edge{}, err
	}
	if e.CreatedAt, err = parseTime(created); err != nil {
		return model.Edge{}, err
	}
	if e.UpdatedAt, err = parseTime(updated); err != nil {
		return model.Edge{}, err
	}
	return e, nil
}
