package store

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"graphd/internal/model"
)

var (
	// operationsTotal counts repository calls by operation and outcome.
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graphd_repository_operations_total",
		Help: "Total repository calls by operation and outcome",
	}, []string{"operation", "outcome"})

	// operationDuration tracks repository call latency.
	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "graphd_repository_operation_duration_seconds",
		Help:    "Repository call duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~800ms
	}, []string{"operation"})
)

func observe(op string, start time.Time, err error) {
	operationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	operationsTotal.WithLabelValues(op, outcome).Inc()
}

// InstrumentedGraph records call counts and latency for the wrapped repository.
type InstrumentedGraph struct {
	inner GraphRepository
}

var _ GraphRepository = (*InstrumentedGraph)(nil)

// NewInstrumentedGraph wraps inner with Prometheus instrumentation.
func NewInstrumentedGraph(inner GraphRepository) *InstrumentedGraph {
	return &InstrumentedGraph{inner: inner}
}

func (m *InstrumentedGraph) InsertNode(ctx context.Context, node model.Node) (ok bool, err error) {
	defer func(start time.Time) { observe("insert_node", start, err) }(time.Now())
	return m.inner.InsertNode(ctx, node)
}

func (m *InstrumentedGraph) GetNode(ctx context.Context, id string) (n *model.Node, err error) {
	defer func(start time.Time) { observe("get_node", start, err) }(time.Now())
	return m.inner.GetNode(ctx, id)
}

func (m *InstrumentedGraph) GetNodes(ctx context.Context) (nodes []model.Node, err error) {
	defer func(start time.Time) { observe("get_nodes", start, err) }(time.Now())
	return m.inner.GetNodes(ctx)
}

func (m *InstrumentedGraph) GetNodeExists(ctx context.Context, id string) (ok bool, err error) {
	defer func(start time.Time) { observe("get_node_exists", start, err) }(time.Now())
	return m.inner.GetNodeExists(ctx, id)
}

func (m *InstrumentedGraph) UpdateNode(ctx context.Context, node model.Node) (ok bool, err error) {
	defer func(start time.Time) { observe("update_node", start, err) }(time.Now())
	return m.inner.UpdateNode(ctx, node)
}

func (m *InstrumentedGraph) DeleteNode(ctx context.Context, id string) (ok bool, err error) {
	defer func(start time.Time) { observe("delete_node", start, err) }(time.Now())
	return m.inner.DeleteNode(ctx, id)
}

func (m *InstrumentedGraph) GetParents(ctx context.Context, id string) (nodes []model.Node, err error) {
	defer func(start time.Time) { observe("get_parents", start, err) }(time.Now())
	return m.inner.GetParents(ctx, id)
}

func (m *InstrumentedGraph) GetDependents(ctx context.Context, id string) (nodes []model.Node, err error) {
	defer func(start time.Time) { observe("get_dependents", start, err) }(time.Now())
	return m.inner.GetDependents(ctx, id)
}

func (m *InstrumentedGraph) InsertEdge(ctx context.Context, edge model.Edge) (ok bool, err error) {
	defer func(start time.Time) { observe("insert_edge", start, err) }(time.Now())
	return m.inner.InsertEdge(ctx, edge)
}

func (m *InstrumentedGraph) GetEdge(ctx context.Context, source, target string) (e *model.Edge, err error) {
	defer func(start time.Time) { observe("get_edge", start, err) }(time.Now())
	return m.inner.GetEdge(ctx, source, target)
}

func (m *InstrumentedGraph) GetEdges(ctx context.Context) (edges []model.Edge, err error) {
	defer func(start time.Time) { observe("get_edges", start, err) }(time.Now())
	return m.inner.GetEdges(ctx)
}

func (m *InstrumentedGraph) GetEdgeExists(ctx context.Context, source, target string) (ok bool, err error) {
	defer func(start time.Time) { observe("get_edge_exists", start, err) }(time.Now())
	return m.inner.GetEdgeExists(ctx, source, target)
}

func (m *InstrumentedGraph) UpdateEdge(ctx context.Context, edge model.Edge) (ok bool, err error) {
	defer func(start time.Time) { observe("update_edge", start, err) }(time.Now())
	return m.inner.UpdateEdge(ctx, edge)
}

func (m *InstrumentedGraph) DeleteEdge(ctx context.Context, source, target string) (ok bool, err error) {
	defer func(start time.Time) { observe("delete_edge", start, err) }(time.Now())
	return m.inner.DeleteEdge(ctx, source, target)
}

// InstrumentedStatus records call counts and latency for the wrapped status repository.
type InstrumentedStatus struct {
	inner StatusRepository
}

var _ StatusRepository = (*InstrumentedStatus)(nil)

// NewInstrumentedStatus wraps inner with Prometheus instrumentation.
func NewInstrumentedStatus(inner StatusRepository) *InstrumentedStatus {
	return &InstrumentedStatus{inner: inner}
}

func (m *InstrumentedStatus) SetNodeStatus(ctx context.Context, nodeID string, status model.Status) (err error) {
	defer func(start time.Time) { observe("set_node_status", start, err) }(time.Now())
	return m.inner.SetNodeStatus(ctx, nodeID, status)
}

func (m *InstrumentedStatus) GetNodeStatus(ctx context.Context, nodeID string) (st model.Status, err error) {
	defer func(start time.Time) { observe("get_node_status", start, err) }(time.Now())
	return m.inner.GetNodeStatus(ctx, nodeID)
}

func (m *InstrumentedStatus) GetStatuses(ctx context.Context) (out []model.NodeStatus, err error) {
	defer func(start time.Time) { observe("get_statuses", start, err) }(time.Now())
	return m.inner.GetStatuses(ctx)
}

func (m *InstrumentedStatus) GetNodeStatusHistory(ctx context.Context, nodeID string, limit int) (out []model.NodeStatus, err error) {
	defer func(start time.Time) { observe("get_node_status_history", start, err) }(time.Now())
	return m.inner.GetNodeStatusHistory(ctx, nodeID, limit)
}
