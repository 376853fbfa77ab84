package client

import (
	"context"
	"fmt"

	"fatture/internal/core/apperror"
	"fatture/internal/core/id"
	"fatture/internal/core/tx"
	"fatture/internal/domain"
	"fatture/pkg/logger"
)

// Service provides business operations for the client catalog.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a new client service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{repo: repo, txManager: txManager}
}

// Create creates a new client.
func (s *Service) Create(ctx context.Context, c *Client) error {
	if err := c.Validate(ctx); err != nil {
		return err
	}

	if c.VATNumber != "" {
		exists, err := s.repo.ExistsByVATNumber(ctx, c.VATNumber)
		if err != nil {
			return fmt.Errorf("check vat number: %w", err)
		}
		if exists {
			return apperror.NewDuplicate("client", "vatNumber", c.VATNumber)
		}
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, c); err != nil {
			return fmt.Errorf("create client: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "client created", "id", c.ID, "name", c.Name)
	return nil
}

// GetByID retrieves a client by id.
func (s *Service) GetByID(ctx context.Context, clientID id.ID) (*Client, error) {
	c, err := s.repo.GetByID(ctx, clientID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("client", clientID.String())
		}
		return nil, err
	}
	return c, nil
}

// Update updates an existing client.
// Fiscal attribute changes only affect documents still in draft: issued
// documents keep the totals computed at issuance.
func (s *Service) Update(ctx context.Context, c *Client) error {
	if err := c.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, c); err != nil {
			return fmt.Errorf("update client: %w", err)
		}
		return nil
	})
}

// Delete soft-deletes a client.
func (s *Service) Delete(ctx context.Context, clientID id.ID) error {
	if _, err := s.GetByID(ctx, clientID); err != nil {
		return err
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Delete(ctx, clientID)
	})
}

// List retrieves clients with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Client], error) {
	return s.repo.List(ctx, filter)
}
