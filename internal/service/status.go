package service

import (
	"context"

	"go.uber.org/zap"

	"graphd/internal/model"
)

func (s *Service) GetStatuses(ctx context.Context) ([]model.NodeStatus, error) {
	if err := s.verify(ctx, ActionGetStatuses); err != nil {
		return nil, err
	}
	return s.status.GetStatuses(ctx)
}

// GetNodeStatus returns nil when the node does not exist, and unknown for a
// node that never had a status.
func (s *Service) GetNodeStatus(ctx context.Context, nodeID string) (*model.NodeStatus, error) {
	if err := s.verify(ctx, ActionGetStatus); err != nil {
		return nil, err
	}
	if ok, err := s.graph.GetNodeExists(ctx, nodeID); err != nil || !ok {
		return nil, err
	}
	st, err := s.status.GetNodeStatus(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	return &model.NodeStatus{NodeID: nodeID, Status: st}, nil
}

func (s *Service) GetNodeStatusHistory(ctx context.Context, nodeID string, limit int) ([]model.NodeStatus, error) {
	if err := s.verify(ctx, ActionGetStatusHistory); err != nil {
		return nil, err
	}
	return s.status.GetNodeStatusHistory(ctx, nodeID, limit)
}

// SetNodeStatus parses status and records it. It reports false when the node does not exist.
func (s *Service) SetNodeStatus(ctx context.Context, nodeID, status string) (bool, error) {
	if err := s.verify(ctx, ActionSetStatus); err != nil {
		return false, err
	}
	st, err := model.ParseStatus(status)
	if err != nil {
		return false, err
	}
	if ok, err := s.graph.GetNodeExists(ctx, nodeID); err != nil || !ok {
		return false, err
	}
	if err := s.status.SetNodeStatus(ctx, nodeID, st); err != nil {
		return false, err
	}
	s.logger.Info("Node status set", zap.String("node_id", nodeID), zap.String("status", string(st)))
	return true, nil
}
