package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"graphd/internal/auditctx"
	"graphd/internal/model"
)

const queryInsertAudit = `
INSERT INTO audit (entity_type, entity_id, action, old_data, new_data, user_id, ip_address, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

const auditColumns = `id, entity_type, entity_id, action, old_data, new_data, user_id, ip_address, created_at`

const queryGetLogs = `SELECT ` + auditColumns + ` FROM audit ORDER BY created_at DESC, id DESC LIMIT ?`

const queryAuditHistory = `
SELECT ` + auditColumns + ` FROM audit
WHERE entity_type = ? AND entity_id = ?
ORDER BY created_at DESC, id DESC
`

// SQLiteAuditLog is the append-only audit table.
type SQLiteAuditLog struct {
	db *DB
}

var _ AuditLog = (*SQLiteAuditLog)(nil)

// NewAuditLog returns the audit log on db.
func NewAuditLog(db *DB) *SQLiteAuditLog {
	return &SQLiteAuditLog{db: db}
}

func (l *SQLiteAuditLog) InsertAuditEntry(ctx context.Context, e model.AuditEntry) error {
	_, err := l.db.conn(ctx).ExecContext(ctx, queryInsertAudit,
		string(e.EntityType), e.EntityID, string(e.Action),
		nullableDoc(e.OldData), nullableDoc(e.NewData),
		e.UserID, e.IPAddress, l.db.timestamp())
	if err != nil {
		return dbError("insert audit entry", e.EntityID, err)
	}
	return nil
}

// GetLogs returns the most recent entries first. A non-positive limit returns all.
func (l *SQLiteAuditLog) GetLogs(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	return l.query(ctx, "get logs", queryGetLogs, limit)
}

// GetAuditHistory returns every entry for one entity, most recent first.
func (l *SQLiteAuditLog) GetAuditHistory(ctx context.Context, entityType model.EntityType, entityID string) ([]model.AuditEntry, error) {
	return l.query(ctx, "get audit history", queryAuditHistory, string(entityType), entityID)
}

func (l *SQLiteAuditLog) query(ctx context.Context, op, query string, args ...any) ([]model.AuditEntry, error) {
	rows, err := l.db.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError(op, "", err)
	}
	defer rows.Close()
	out := []model.AuditEntry{}
	for rows.Next() {
		var (
			e                  model.AuditEntry
			entityType, action string
			oldData, newData   sql.NullString
			userID, ip         sql.NullString
			stamp              string
		)
		if err := rows.Scan(&e.ID, &entityType, &e.EntityID, &action, &oldData, &newData, &userID, &ip, &stamp); err != nil {
			return nil, dbError(op, "", err)
		}
		e.EntityType = model.EntityType(entityType)
		e.Action = model.Action(action)
		if oldData.Valid {
			e.OldData = json.RawMessage(oldData.String)
		}
		if newData.Valid {
			e.NewData = json.RawMessage(newData.String)
		}
		e.UserID = userID.String
		e.IPAddress = ip.String
		if e.CreatedAt, err = parseTime(stamp); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(op, "", err)
	}
	return out, nil
}

func nullableDoc(doc json.RawMessage) any {
	if doc == nil {
		return nil
	}
	return string(doc)
}

// snapshot encodes v as an audit document; a nil pointer is recorded as NULL.
func snapshot[T any](v *T) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode audit snapshot: %w", err)
	}
	return b, nil
}

// AuditOption configures the audit decorators.
type AuditOption func(*auditor)

// WithTransactor makes each audited mutation run with its snapshot read and
// audit row in one transaction.
func WithTransactor(tx Transactor) AuditOption {
	return func(a *auditor) { a.tx = tx }
}

// WithReadAuditing records an entry for read calls too.
func WithReadAuditing(on bool) AuditOption {
	return func(a *auditor) { a.recordReads = on }
}

// auditor holds what the graph and status decorators share.
type auditor struct {
	log         AuditLog
	tx          Transactor
	recordReads bool
}

func newAuditor(log AuditLog, opts []AuditOption) auditor {
	a := auditor{log: log}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

func (a *auditor) atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	if a.tx == nil {
		return fn(ctx)
	}
	return a.tx.WithTx(ctx, fn)
}

func (a *auditor) record(ctx context.Context, et model.EntityType, id string, action model.Action, oldData, newData json.RawMessage) error {
	actor := auditctx.FromContext(ctx)
	return a.log.InsertAuditEntry(ctx, model.AuditEntry{
		EntityType: et,
		EntityID:   id,
		Action:     action,
		OldData:    oldData,
		NewData:    newData,
		UserID:     actor.UserID,
		IPAddress:  actor.IP,
	})
}

func (a *auditor) recordRead(ctx context.Context, et model.EntityType, id string, action model.Action) error {
	if !a.recordReads {
		return nil
	}
	return a.record(ctx, et, id, action, nil, nil)
}

// recordChange writes one mutation entry from before/after snapshots.
func recordChange[T any](ctx context.Context, a *auditor, et model.EntityType, id string, action model.Action, before, after *T) error {
	oldData, err := snapshot(before)
	if err != nil {
		return err
	}
	newData, err := snapshot(after)
	if err != nil {
		return err
	}
	return a.record(ctx, et, id, action, oldData, newData)
}

// AuditedGraph records an audit entry for every successful mutation of the
// wrapped repository, and for reads when enabled.
type AuditedGraph struct {
	inner GraphRepository
	auditor
}

var _ GraphRepository = (*AuditedGraph)(nil)

// NewAuditedGraph wraps inner, writing entries to log.
func NewAuditedGraph(inner GraphRepository, log AuditLog, opts ...AuditOption) *AuditedGraph {
	return &AuditedGraph{inner: inner, auditor: newAuditor(log, opts)}
}

func (g *AuditedGraph) InsertNode(ctx context.Context, node model.Node) (bool, error) {
	var ok bool
	err := g.atomically(ctx, func(ctx context.Context) error {
		// A duplicate is a no-op, so its entry carries the stored document on both sides.
		before, err := g.inner.GetNode(ctx, node.ID)
		if err != nil {
			return err
		}
		if ok, err = g.inner.InsertNode(ctx, node); err != nil || !ok {
			return err
		}
		stored, err := g.inner.GetNode(ctx, node.ID)
		if err != nil {
			return err
		}
		return recordChange(ctx, &g.auditor, model.EntityNode, node.ID, model.ActionInsert, before, stored)
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (g *AuditedGraph) GetNode(ctx context.Context, id string) (*model.Node, error) {
	n, err := g.inner.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	return n, g.recordRead(ctx, model.EntityNode, id, model.ActionGetNode)
}

func (g *AuditedGraph) GetNodes(ctx context.Context) ([]model.Node, error) {
	nodes, err := g.inner.GetNodes(ctx)
	if err != nil {
		return nil, err
	}
	return nodes, g.recordRead(ctx, model.EntityNode, model.AllEntities, model.ActionGetNodes)
}

func (g *AuditedGraph) GetNodeExists(ctx context.Context, id string) (bool, error) {
	ok, err := g.inner.GetNodeExists(ctx, id)
	if err != nil {
		return false, err
	}
	return ok, g.recordRead(ctx, model.EntityNode, id, model.ActionGetNodeExists)
}

func (g *AuditedGraph) UpdateNode(ctx context.Context, node model.Node) (bool, error) {
	var ok bool
	err := g.atomically(ctx, func(ctx context.Context) error {
		before, err := g.inner.GetNode(ctx, node.ID)
		if err != nil {
			return err
		}
		if ok, err = g.inner.UpdateNode(ctx, node); err != nil || !ok {
			return err
		}
		after, err := g.inner.GetNode(ctx, node.ID)
		if err != nil {
			return err
		}
		return recordChange(ctx, &g.auditor, model.EntityNode, node.ID, model.ActionUpdate, before, after)
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (g *AuditedGraph) DeleteNode(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := g.atomically(ctx, func(ctx context.Context) error {
		before, err := g.inner.GetNode(ctx, id)
		if err != nil {
			return err
		}
		if ok, err = g.inner.DeleteNode(ctx, id); err != nil || !ok {
			return err
		}
		return recordChange[model.Node](ctx, &g.auditor, model.EntityNode, id, model.ActionDelete, before, nil)
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (g *AuditedGraph) GetParents(ctx context.Context, id string) ([]model.Node, error) {
	nodes, err := g.inner.GetParents(ctx, id)
	if err != nil {
		return nil, err
	}
	return nodes, g.recordRead(ctx, model.EntityNode, id, model.ActionGetParents)
}

func (g *AuditedGraph) GetDependents(ctx context.Context, id string) ([]model.Node, error) {
	nodes, err := g.inner.GetDependents(ctx, id)
	if err != nil {
		return nil, err
	}
	return nodes, g.recordRead(ctx, model.EntityNode, id, model.ActionGetDependents)
}

func (g *AuditedGraph) InsertEdge(ctx context.Context, edge model.Edge) (bool, error) {
	var ok bool
	err := g.atomically(ctx, func(ctx context.Context) error {
		before, err := g.inner.GetEdge(ctx, edge.Source, edge.Target)
		if err != nil {
			return err
		}
		if ok, err = g.inner.InsertEdge(ctx, edge); err != nil || !ok {
			return err
		}
		stored, err := g.inner.GetEdge(ctx, edge.Source, edge.Target)
		if err != nil {
			return err
		}
		return recordChange(ctx, &g.auditor, model.EntityEdge, edge.ID(), model.ActionInsert, before, stored)
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (g *AuditedGraph) GetEdge(ctx context.Context, source, target string) (*model.Edge, error) {
	e, err := g.inner.GetEdge(ctx, source, target)
	if err != nil {
		return nil, err
	}
	return e, g.recordRead(ctx, model.EntityEdge, model.EdgeID(source, target), model.ActionGetEdge)
}

func (g *AuditedGraph) GetEdges(ctx context.Context) ([]model.Edge, error) {
	edges, err := g.inner.GetEdges(ctx)
	if err != nil {
		return nil, err
	}
	return edges, g.recordRead(ctx, model.EntityEdge, model.AllEntities, model.ActionGetEdges)
}

func (g *AuditedGraph) GetEdgeExists(ctx context.Context, source, target string) (bool, error) {
	ok, err := g.inner.GetEdgeExists(ctx, source, target)
	if err != nil {
		return false, err
	}
	return ok, g.recordRead(ctx, model.EntityEdge, model.EdgeID(source, target), model.ActionGetEdgeExists)
}

func (g *AuditedGraph) UpdateEdge(ctx context.Context, edge model.Edge) (bool, error) {
	var ok bool
	err := g.atomically(ctx, func(ctx context.Context) error {
		before, err := g.inner.GetEdge(ctx, edge.Source, edge.Target)
		if err != nil {
			return err
		}
		if ok, err = g.inner.UpdateEdge(ctx, edge); err != nil || !ok {
			return err
		}
		after, err := g.inner.GetEdge(ctx, edge.Source, edge.Target)
		if err != nil {
			return err
		}
		return recordChange(ctx, &g.auditor, model.EntityEdge, edge.ID(), model.ActionUpdate, before, after)
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (g *AuditedGraph) DeleteEdge(ctx context.Context, source, target string) (bool, error) {
	var ok bool
	err := g.atomically(ctx, func(ctx context.Context) error {
		before, err := g.inner.GetEdge(ctx, source, target)
		if err != nil {
			return err
		}
		if ok, err = g.inner.DeleteEdge(ctx, source, target); err != nil || !ok {
			return err
		}
		return recordChange[model.Edge](ctx, &g.auditor, model.EntityEdge, model.EdgeID(source, target), model.ActionDelete, before, nil)
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

// statusDoc is the audit snapshot of a node's latest status.
type statusDoc struct {
	NodeID string       `json:"node_id"`
	Status model.Status `json:"status"`
}

// AuditedStatus records an audit entry for every status change.
type AuditedStatus struct {
	inner StatusRepository
	auditor
}

var _ StatusRepository = (*AuditedStatus)(nil)

// NewAuditedStatus wraps inner, writing entries to log.
func NewAuditedStatus(inner StatusRepository, log AuditLog, opts ...AuditOption) *AuditedStatus {
	return &AuditedStatus{inner: inner, auditor: newAuditor(log, opts)}
}

func (s *AuditedStatus) SetNodeStatus(ctx context.Context, nodeID string, status model.Status) error {
	return s.atomically(ctx, func(ctx context.Context) error {
		prev, err := s.inner.GetNodeStatus(ctx, nodeID)
		if err != nil {
			return err
		}
		if err := s.inner.SetNodeStatus(ctx, nodeID, status); err != nil {
			return err
		}
		return recordChange(ctx, &s.auditor, model.EntityStatus, nodeID, model.ActionUpdate,
			&statusDoc{NodeID: nodeID, Status: prev}, &statusDoc{NodeID: nodeID, Status: status})
	})
}

func (s *AuditedStatus) GetNodeStatus(ctx context.Context, nodeID string) (model.Status, error) {
	st, err := s.inner.GetNodeStatus(ctx, nodeID)
	if err != nil {
		return "", err
	}
	return st, s.recordRead(ctx, model.EntityStatus, nodeID, model.ActionGetStatus)
}

func (s *AuditedStatus) GetStatuses(ctx context.Context) ([]model.NodeStatus, error) {
	out, err := s.inner.GetStatuses(ctx)
	if err != nil {
		return nil, err
	}
	return out, s.recordRead(ctx, model.EntityStatus, model.AllEntities, model.ActionGetStatuses)
}

func (s *AuditedStatus) GetNodeStatusHistory(ctx context.Context, nodeID string, limit int) ([]model.NodeStatus, error) {
	out, err := s.inner.GetNodeStatusHistory(ctx, nodeID, limit)
	if err != nil {
		return nil, err
	}
	return out, s.recordRead(ctx, model.EntityStatus, nodeID, model.ActionGetStatusHistory)
}
