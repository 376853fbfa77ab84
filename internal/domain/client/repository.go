package client

import (
	"context"

	"fatture/internal/core/id"
	"fatture/internal/domain"
)

// Repository defines persistence operations for clients.
type Repository interface {
	Create(ctx context.Context, c *Client) error
	GetByID(ctx context.Context, clientID id.ID) (*Client, error)
	Update(ctx context.Context, c *Client) error
	Delete(ctx context.Context, clientID id.ID) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Client], error)
	ExistsByVATNumber(ctx context.Context, vatNumber string) (bool, error)
}

// ListFilter for filtering clients.
type ListFilter struct {
	domain.ListFilter

	Category     *Category
	SplitPayment *bool
}
