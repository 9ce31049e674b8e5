package store

import (
	"context"

	"graphd/internal/model"
)

// wouldCycle reports whether adding source->target closes a cycle: either a
// self-loop, or source already reachable from target over existing edges.
// The walk is recomputed on every call.
func (r *SQLiteGraph) wouldCycle(ctx context.Context, source, target string) (bool, error) {
	if source == target {
		return true, nil
	}
	var found bool
	if err := r.db.conn(ctx).QueryRowContext(ctx, queryReachable, target, source).Scan(&found); err != nil {
		return false, dbError("check cycle", model.EdgeID(source, target), err)
	}
	return found, nil
}
