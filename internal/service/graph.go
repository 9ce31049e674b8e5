package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"graphd/internal/model"
)

// GetGraph returns every node with its latest status, and every edge.
func (s *Service) GetGraph(ctx context.Context) (*GraphView, error) {
	if err := s.verify(ctx, ActionGetGraph); err != nil {
		return nil, err
	}
	nodes, err := s.graph.GetNodes(ctx)
	if err != nil {
		return nil, err
	}
	edges, err := s.graph.GetEdges(ctx)
	if err != nil {
		return nil, err
	}
	statuses, err := s.status.GetStatuses(ctx)
	if err != nil {
		return nil, err
	}
	latest := make(map[string]model.Status, len(statuses))
	for _, st := range statuses {
		latest[st.NodeID] = st.Status
	}
	view := &GraphView{Nodes: make([]NodeView, 0, len(nodes)), Edges: edges}
	for _, n := range nodes {
		st, ok := latest[n.ID]
		if !ok {
			st = model.StatusUnknown
		}
		view.Nodes = append(view.Nodes, NodeView{Node: n, Status: st})
	}
	return view, nil
}

func (s *Service) GetNode(ctx context.Context, id string) (*model.Node, error) {
	if err := s.verify(ctx, ActionGetNode); err != nil {
		return nil, err
	}
	return s.graph.GetNode(ctx, id)
}

func (s *Service) GetNodes(ctx context.Context) ([]model.Node, error) {
	if err := s.verify(ctx, ActionGetNodes); err != nil {
		return nil, err
	}
	return s.graph.GetNodes(ctx)
}

// GetParents returns the direct parents of id, or nil when id does not exist.
func (s *Service) GetParents(ctx context.Context, id string) ([]model.Node, error) {
	if err := s.verify(ctx, ActionGetParents); err != nil {
		return nil, err
	}
	if ok, err := s.graph.GetNodeExists(ctx, id); err != nil || !ok {
		return nil, err
	}
	return s.graph.GetParents(ctx, id)
}

// GetDependents returns every node reachable from id, or nil when id does not exist.
func (s *Service) GetDependents(ctx context.Context, id string) ([]model.Node, error) {
	if err := s.verify(ctx, ActionGetDependents); err != nil {
		return nil, err
	}
	if ok, err := s.graph.GetNodeExists(ctx, id); err != nil || !ok {
		return nil, err
	}
	return s.graph.GetDependents(ctx, id)
}

func (s *Service) InsertNode(ctx context.Context, in NodeInput) (*model.Node, error) {
	if err := s.verify(ctx, ActionInsertNode); err != nil {
		return nil, err
	}
	n, err := in.node()
	if err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, n); err != nil {
		return nil, err
	}
	if _, err := s.graph.InsertNode(ctx, n); err != nil {
		return nil, err
	}
	s.logger.Info("Node inserted", zap.String("id", n.ID))
	return s.graph.GetNode(ctx, n.ID)
}

// UpdateNode replaces the node's fields. It reports false when the node does not exist.
func (s *Service) UpdateNode(ctx context.Context, in NodeInput) (bool, error) {
	if err := s.verify(ctx, ActionUpdateNode); err != nil {
		return false, err
	}
	n, err := in.node()
	if err != nil {
		return false, err
	}
	if err := s.checkReferences(ctx, n); err != nil {
		return false, err
	}
	ok, err := s.graph.UpdateNode(ctx, n)
	if err != nil {
		return false, err
	}
	if ok {
		s.logger.Info("Node updated", zap.String("id", n.ID))
	}
	return ok, nil
}

func (s *Service) DeleteNode(ctx context.Context, id string) (bool, error) {
	if err := s.verify(ctx, ActionDeleteNode); err != nil {
		return false, err
	}
	ok, err := s.graph.DeleteNode(ctx, id)
	if err != nil {
		return false, err
	}
	if ok {
		s.logger.Info("Node deleted", zap.String("id", id))
	}
	return ok, nil
}

// InsertNodes inserts each node in order and stops at the first failure.
// Nodes inserted before the failure stay; the count says how many.
func (s *Service) InsertNodes(ctx context.Context, in []NodeInput) (int, error) {
	for i, n := range in {
		if _, err := s.InsertNode(ctx, n); err != nil {
			return i, fmt.Errorf("node %d (%s): %w", i, n.ID, err)
		}
	}
	return len(in), nil
}

func (s *Service) GetEdge(ctx context.Context, source, target string) (*model.Edge, error) {
	if err := s.verify(ctx, ActionGetEdge); err != nil {
		return nil, err
	}
	return s.graph.GetEdge(ctx, source, target)
}

func (s *Service) GetEdges(ctx context.Context) ([]model.Edge, error) {
	if err := s.verify(ctx, ActionGetEdges); err != nil {
		return nil, err
	}
	return s.graph.GetEdges(ctx)
}

func (s *Service) InsertEdge(ctx context.Context, in EdgeInput) (*model.Edge, error) {
	if err := s.verify(ctx, ActionInsertEdge); err != nil {
		return nil, err
	}
	e, err := in.edge()
	if err != nil {
		return nil, err
	}
	if _, err := s.graph.InsertEdge(ctx, e); err != nil {
		return nil, err
	}
	s.logger.Info("Edge inserted", zap.String("id", e.ID()))
	return s.graph.GetEdge(ctx, e.Source, e.Target)
}

// UpdateEdge replaces label and data. It reports false when the edge does not exist.
func (s *Service) UpdateEdge(ctx context.Context, in EdgeInput) (bool, error) {
	if err := s.verify(ctx, ActionUpdateEdge); err != nil {
		return false, err
	}
	e, err := in.edge()
	if err != nil {
		return false, err
	}
	return s.graph.UpdateEdge(ctx, e)
}

func (s *Service) DeleteEdge(ctx context.Context, source, target string) (bool, error) {
	if err := s.verify(ctx, ActionDeleteEdge); err != nil {
		return false, err
	}
	ok, err := s.graph.DeleteEdge(ctx, source, target)
	if err != nil {
		return false, err
	}
	if ok {
		s.logger.Info("Edge deleted", zap.String("id", model.EdgeID(source, target)))
	}
	return ok, nil
}

// InsertEdges inserts each edge in order and stops at the first failure.
func (s *Service) InsertEdges(ctx context.Context, in []EdgeInput) (int, error) {
	for i, e := range in {
		if _, err := s.InsertEdge(ctx, e); err != nil {
			return i, fmt.Errorf("edge %d (%s): %w", i, model.EdgeID(e.Source, e.Target), err)
		}
	}
	return len(in), nil
}
