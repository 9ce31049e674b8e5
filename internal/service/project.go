package service

import (
	"context"

	"go.uber.org/zap"

	"graphd/internal/auditctx"
	"graphd/internal/model"
)

func (s *Service) GetProjects(ctx context.Context) ([]model.Project, error) {
	if err := s.verify(ctx, ActionGetProjects); err != nil {
		return nil, err
	}
	return s.projects.GetProjects(ctx)
}

func (s *Service) GetProject(ctx context.Context, id string) (*model.Project, error) {
	if err := s.verify(ctx, ActionGetProject); err != nil {
		return nil, err
	}
	return s.projects.GetProject(ctx, id)
}

func (s *Service) GetProjectGraph(ctx context.Context, id string) (*model.Graph, error) {
	if err := s.verify(ctx, ActionGetProject); err != nil {
		return nil, err
	}
	return s.projects.GetProjectGraph(ctx, id)
}

// InsertProject stores a project authored by the caller. An empty id is generated.
func (s *Service) InsertProject(ctx context.Context, in ProjectInput) (*model.Project, error) {
	if err := s.verify(ctx, ActionInsertProject); err != nil {
		return nil, err
	}
	p := model.Project{
		ID:     in.ID,
		Name:   in.Name,
		Author: auditctx.FromContext(ctx).UserID,
		Data:   in.Data,
		Nodes:  in.Nodes,
	}
	if p.ID == "" {
		p.ID = s.newID()
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.projects.InsertProject(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("Project inserted", zap.String("id", p.ID), zap.Int("nodes", len(p.Nodes)))
	return s.projects.GetProject(ctx, p.ID)
}

// UpdateProject replaces name and data and, when Nodes is non-nil, the membership.
func (s *Service) UpdateProject(ctx context.Context, in ProjectInput) (bool, error) {
	if err := s.verify(ctx, ActionUpdateProject); err != nil {
		return false, err
	}
	current, err := s.projects.GetProject(ctx, in.ID)
	if err != nil || current == nil {
		return false, err
	}
	p := *current
	p.Name = in.Name
	p.Data = in.Data
	if err := p.Validate(); err != nil {
		return false, err
	}
	if _, err := s.projects.UpdateProject(ctx, p); err != nil {
		return false, err
	}
	if in.Nodes != nil {
		if err := s.syncMembers(ctx, p.ID, current.Nodes, in.Nodes); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (s *Service) syncMembers(ctx context.Context, projectID string, have, want []string) error {
	keep := make(map[string]bool, len(want))
	for _, id := range want {
		keep[id] = true
	}
	for _, id := range have {
		if !keep[id] {
			if _, err := s.projects.RemoveProjectNode(ctx, projectID, id); err != nil {
				return err
			}
		}
	}
	for _, id := range want {
		if _, err := s.projects.AddProjectNode(ctx, projectID, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) DeleteProject(ctx context.Context, id string) (bool, error) {
	if err := s.verify(ctx, ActionDeleteProject); err != nil {
		return false, err
	}
	return s.projects.DeleteProject(ctx, id)
}

// GetLogs returns the most recent audit entries first.
func (s *Service) GetLogs(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	if err := s.verify(ctx, ActionGetLogs); err != nil {
		return nil, err
	}
	return s.audit.GetLogs(ctx, limit)
}

func (s *Service) GetAuditHistory(ctx context.Context, entityType model.EntityType, entityID string) ([]model.AuditEntry, error) {
	if err := s.verify(ctx, ActionGetLogs); err != nil {
		return nil, err
	}
	return s.audit.GetAuditHistory(ctx, entityType, entityID)
}
