package store

import (
	"context"

	"go.uber.org/zap"

	"graphd/internal/auditctx"
	"graphd/internal/model"
)

// tracer emits one debug line per repository call and one error line per failure.
type tracer struct {
	logger *zap.Logger
}

func newTracer(logger *zap.Logger) tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return tracer{logger: logger.Named("repository")}
}

func (t tracer) trace(ctx context.Context, op string, fields ...zap.Field) {
	if ce := t.logger.Check(zap.DebugLevel, op); ce != nil {
		actor := auditctx.FromContext(ctx)
		fields = append(fields, zap.String("user", actor.UserID))
		if actor.RequestID != "" {
			fields = append(fields, zap.String("request_id", actor.RequestID))
		}
		ce.Write(fields...)
	}
}

func (t tracer) done(op string, err error) {
	if err != nil {
		t.logger.Error("Repository call failed", zap.String("operation", op), zap.Error(err))
	}
}

// LoggedGraph traces every call to the wrapped repository. It never changes
// results and issues no storage calls of its own.
type LoggedGraph struct {
	inner GraphRepository
	tracer
}

var _ GraphRepository = (*LoggedGraph)(nil)

// NewLoggedGraph wraps inner with call tracing.
func NewLoggedGraph(inner GraphRepository, logger *zap.Logger) *LoggedGraph {
	return &LoggedGraph{inner: inner, tracer: newTracer(logger)}
}

func (l *LoggedGraph) InsertNode(ctx context.Context, node model.Node) (bool, error) {
	l.trace(ctx, "insert node", zap.String("id", node.ID))
	ok, err := l.inner.InsertNode(ctx, node)
	l.done("insert node", err)
	return ok, err
}

func (l *LoggedGraph) GetNode(ctx context.Context, id string) (*model.Node, error) {
	l.trace(ctx, "get node", zap.String("id", id))
	n, err := l.inner.GetNode(ctx, id)
	l.done("get node", err)
	return n, err
}

func (l *LoggedGraph) GetNodes(ctx context.Context) ([]model.Node, error) {
	l.trace(ctx, "get nodes")
	nodes, err := l.inner.GetNodes(ctx)
	l.done("get nodes", err)
	return nodes, err
}

func (l *LoggedGraph) GetNodeExists(ctx context.Context, id string) (bool, error) {
	l.trace(ctx, "get node exists", zap.String("id", id))
	ok, err := l.inner.GetNodeExists(ctx, id)
	l.done("get node exists", err)
	return ok, err
}

func (l *LoggedGraph) UpdateNode(ctx context.Context, node model.Node) (bool, error) {
	l.trace(ctx, "update node", zap.String("id", node.ID))
	ok, err := l.inner.UpdateNode(ctx, node)
	l.done("update node", err)
	return ok, err
}

func (l *LoggedGraph) DeleteNode(ctx context.Context, id string) (bool, error) {
	l.trace(ctx, "delete node", zap.String("id", id))
	ok, err := l.inner.DeleteNode(ctx, id)
	l.done("delete node", err)
	return ok, err
}

func (l *LoggedGraph) GetParents(ctx context.Context, id string) ([]model.Node, error) {
	l.trace(ctx, "get parents", zap.String("id", id))
	nodes, err := l.inner.GetParents(ctx, id)
	l.done("get parents", err)
	return nodes, err
}

func (l *LoggedGraph) GetDependents(ctx context.Context, id string) ([]model.Node, error) {
	l.trace(ctx, "get dependents", zap.String("id", id))
	nodes, err := l.inner.GetDependents(ctx, id)
	l.done("get dependents", err)
	return nodes, err
}

func (l *LoggedGraph) InsertEdge(ctx context.Context, edge model.Edge) (bool, error) {
	l.trace(ctx, "insert edge", zap.String("source", edge.Source), zap.String("target", edge.Target))
	ok, err := l.inner.InsertEdge(ctx, edge)
	l.done("insert edge", err)
	return ok, err
}

func (l *LoggedGraph) GetEdge(ctx context.Context, source, target string) (*model.Edge, error) {
	l.trace(ctx, "get edge", zap.String("source", source), zap.String("target", target))
	e, err := l.inner.GetEdge(ctx, source, target)
	l.done("get edge", err)
	return e, err
}

func (l *LoggedGraph) GetEdges(ctx context.Context) ([]model.Edge, error) {
	l.trace(ctx, "get edges")
	edges, err := l.inner.GetEdges(ctx)
	l.done("get edges", err)
	return edges, err
}

func (l *LoggedGraph) GetEdgeExists(ctx context.Context, source, target string) (bool, error) {
	l.trace(ctx, "get edge exists", zap.String("source", source), zap.String("target", target))
	ok, err := l.inner.GetEdgeExists(ctx, source, target)
	l.done("get edge exists", err)
	return ok, err
}

func (l *LoggedGraph) UpdateEdge(ctx context.Context, edge model.Edge) (bool, error) {
	l.trace(ctx, "update edge", zap.String("source", edge.Source), zap.String("target", edge.Target))
	ok, err := l.inner.UpdateEdge(ctx, edge)
	l.done("update edge", err)
	return ok, err
}

func (l *LoggedGraph) DeleteEdge(ctx context.Context, source, target string) (bool, error) {
	l.trace(ctx, "delete edge", zap.String("source", source), zap.String("target", target))
	ok, err := l.inner.DeleteEdge(ctx, source, target)
	l.done("delete edge", err)
	return ok, err
}

// LoggedStatus traces every call to the wrapped status repository.
type LoggedStatus struct {
	inner StatusRepository
	tracer
}

var _ StatusRepository = (*LoggedStatus)(nil)

// NewLoggedStatus wraps inner with call tracing.
func NewLoggedStatus(inner StatusRepository, logger *zap.Logger) *LoggedStatus {
	return &LoggedStatus{inner: inner, tracer: newTracer(logger)}
}

func (l *LoggedStatus) SetNodeStatus(ctx context.Context, nodeID string, status model.Status) error {
	l.trace(ctx, "set node status", zap.String("node_id", nodeID), zap.String("status", string(status)))
	err := l.inner.SetNodeStatus(ctx, nodeID, status)
	l.done("set node status", err)
	return err
}

func (l *LoggedStatus) GetNodeStatus(ctx context.Context, nodeID string) (model.Status, error) {
	l.trace(ctx, "get node status", zap.String("node_id", nodeID))
	st, err := l.inner.GetNodeStatus(ctx, nodeID)
	l.done("get node status", err)
	return st, err
}

func (l *LoggedStatus) GetStatuses(ctx context.Context) ([]model.NodeStatus, error) {
	l.trace(ctx, "get statuses")
	out, err := l.inner.GetStatuses(ctx)
	l.done("get statuses", err)
	return out, err
}

func (l *LoggedStatus) GetNodeStatusHistory(ctx context.Context, nodeID string, limit int) ([]model.NodeStatus, error) {
	l.trace(ctx, "get node status history", zap.String("node_id", nodeID), zap.Int("limit", limit))
	out, err := l.inner.GetNodeStatusHistory(ctx, nodeID, limit)
	l.done("get node status history", err)
	return out, err
}
