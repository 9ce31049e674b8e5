package store

import (
	"context"
	"database/sql"
	"errors"

	"graphd/internal/model"
)

// SQLiteStatus keeps one latest row per node in status and every
// observation in status_history.
type SQLiteStatus struct {
	db *DB
}

var _ StatusRepository = (*SQLiteStatus)(nil)

// NewStatusRepository returns a status repository on db.
func NewStatusRepository(db *DB) *SQLiteStatus {
	return &SQLiteStatus{db: db}
}

// SetNodeStatus replaces the node's latest status with a fresh timestamp and
// appends the observation to its history.
func (r *SQLiteStatus) SetNodeStatus(ctx context.Context, nodeID string, status model.Status) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		now := r.db.timestamp()
		if _, err := r.db.conn(ctx).ExecContext(ctx, queryReplaceStatus, nodeID, string(status), now); err != nil {
			return dbError("set status", nodeID, err)
		}
		if _, err := r.db.conn(ctx).ExecContext(ctx, queryAppendStatusHistory, nodeID, string(status), now); err != nil {
			return dbError("append status history", nodeID, err)
		}
		return nil
	})
}

// GetNodeStatus returns StatusUnknown for a node that never had a status.
func (r *SQLiteStatus) GetNodeStatus(ctx context.Context, nodeID string) (model.Status, error) {
	var s string
	err := r.db.conn(ctx).QueryRowContext(ctx, queryGetStatus, nodeID).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StatusUnknown, nil
	}
	if err != nil {
		return "", dbError("get status", nodeID, err)
	}
	return model.Status(s), nil
}

func (r *SQLiteStatus) GetStatuses(ctx context.Context) ([]model.NodeStatus, error) {
	return r.queryStatuses(ctx, "get statuses", queryGetStatuses)
}

// GetNodeStatusHistory returns up to limit observations, most recent first.
func (r *SQLiteStatus) GetNodeStatusHistory(ctx context.Context, nodeID string, limit int) ([]model.NodeStatus, error) {
	if limit <= 0 {
		limit = -1
	}
	return r.queryStatuses(ctx, "get status history", queryStatusHistory, nodeID, limit)
}

func (r *SQLiteStatus) queryStatuses(ctx context.Context, op, query string, args ...any) ([]model.NodeStatus, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError(op, "", err)
	}
	defer rows.Close()
	out := []model.NodeStatus{}
	for rows.Next() {
		var (
			ns            model.NodeStatus
			status, stamp string
		)
		if err := rows.Scan(&ns.NodeID, &status, &stamp); err != nil {
			return nil, dbError(op, "", err)
		}
		ns.Status = model.Status(status)
		if ns.CreatedAt, err = parseTime(stamp); err != nil {
			return nil, err
		}
		out = append(out, ns)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(op, "", err)
	}
	return out, nil
}
