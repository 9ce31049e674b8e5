// Package service is the permission-checked entry point to the repositories.
// Every exported operation resolves the caller from the context, checks the
// permission table, then delegates.
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"graphd/internal/auditctx"
	"graphd/internal/model"
	"graphd/internal/store"
)

// Service validates input, enforces permissions and shapes results.
type Service struct {
	graph    store.GraphRepository
	status   store.StatusRepository
	catalog  store.CatalogRepository
	projects store.ProjectRepository
	audit    store.AuditLog
	logger   *zap.Logger
	newID    func() string
}

// New returns a service over repos.
func New(repos store.Repositories, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		graph:    repos.Graph,
		status:   repos.Status,
		catalog:  repos.Catalog,
		projects: repos.Projects,
		audit:    repos.Audit,
		logger:   logger.Named("service"),
		newID:    uuid.NewString,
	}
}

func (s *Service) verify(ctx context.Context, action Action) error {
	actor := auditctx.FromContext(ctx)
	if !Allowed(action, actor.Group) {
		s.logger.Warn("Permission denied",
			zap.String("action", string(action)),
			zap.String("user", actor.UserID),
			zap.String("group", string(actor.Group)))
		return denied(action, actor.Group)
	}
	return nil
}

// GroupOf resolves the permission group of userID for the identity
// middleware. Unknown users are anonymous. No permission check applies.
func (s *Service) GroupOf(ctx context.Context, userID string) (model.Group, error) {
	u, err := s.catalog.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if u == nil {
		return model.GroupAnonymous, nil
	}
	return u.Group, nil
}

// Users

func (s *Service) GetUser(ctx context.Context, id string) (*model.User, error) {
	if err := s.verify(ctx, ActionGetUser); err != nil {
		return nil, err
	}
	return s.catalog.GetUser(ctx, id)
}

func (s *Service) InsertUser(ctx context.Context, u model.User) error {
	if err := s.verify(ctx, ActionInsertUser); err != nil {
		return err
	}
	if err := u.Validate(); err != nil {
		return err
	}
	if err := s.catalog.InsertUser(ctx, u); err != nil {
		return err
	}
	s.logger.Info("User inserted", zap.String("id", u.ID), zap.String("group", string(u.Group)))
	return nil
}

func (s *Service) UpdateUser(ctx context.Context, u model.User) (bool, error) {
	if err := s.verify(ctx, ActionUpdateUser); err != nil {
		return false, err
	}
	if err := u.Validate(); err != nil {
		return false, err
	}
	return s.catalog.UpdateUser(ctx, u)
}

// Categories and types

func (s *Service) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := s.verify(ctx, ActionGetCategories); err != nil {
		return nil, err
	}
	return s.catalog.GetCategories(ctx)
}

func (s *Service) InsertCategory(ctx context.Context, c model.Category) error {
	if err := s.verify(ctx, ActionInsertCategory); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if err := s.catalog.InsertCategory(ctx, c); err != nil {
		return err
	}
	s.logger.Info("Category inserted", zap.String("id", c.ID))
	return nil
}

func (s *Service) UpdateCategory(ctx context.Context, c model.Category) (bool, error) {
	if err := s.verify(ctx, ActionUpdateCategory); err != nil {
		return false, err
	}
	if err := c.Validate(); err != nil {
		return false, err
	}
	return s.catalog.UpdateCategory(ctx, c)
}

func (s *Service) DeleteCategory(ctx context.Context, id string) (bool, error) {
	if err := s.verify(ctx, ActionDeleteCategory); err != nil {
		return false, err
	}
	return s.catalog.DeleteCategory(ctx, id)
}

func (s *Service) GetTypes(ctx context.Context) ([]model.Type, error) {
	if err := s.verify(ctx, ActionGetTypes); err != nil {
		return nil, err
	}
	return s.catalog.GetTypes(ctx)
}

func (s *Service) InsertType(ctx context.Context, t model.Type) error {
	if err := s.verify(ctx, ActionInsertType); err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if err := s.catalog.InsertType(ctx, t); err != nil {
		return err
	}
	s.logger.Info("Type inserted", zap.String("id", t.ID))
	return nil
}

func (s *Service) UpdateType(ctx context.Context, t model.Type) (bool, error) {
	if err := s.verify(ctx, ActionUpdateType); err != nil {
		return false, err
	}
	if err := t.Validate(); err != nil {
		return false, err
	}
	return s.catalog.UpdateType(ctx, t)
}

func (s *Service) DeleteType(ctx context.Context, id string) (bool, error) {
	if err := s.verify(ctx, ActionDeleteType); err != nil {
		return false, err
	}
	return s.catalog.DeleteType(ctx, id)
}

// checkReferences rejects a node whose category or type is not in the catalog.
func (s *Service) checkReferences(ctx context.Context, n model.Node) error {
	c, err := s.catalog.GetCategory(ctx, n.Category)
	if err != nil {
		return err
	}
	if c == nil {
		return &model.ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", n.Category)}
	}
	t, err := s.catalog.GetType(ctx, n.Type)
	if err != nil {
		return err
	}
	if t == nil {
		return &model.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown type %q", n.Type)}
	}
	return nil
}
