package invoice

import (
	"context"
	"time"

	"fatture/internal/core/id"
	"fatture/internal/domain"
)

// Repository defines persistence operations for fiscal documents.
type Repository interface {
	Create(ctx context.Context, doc *Invoice) error
	GetByID(ctx context.Context, docID id.ID) (*Invoice, error)
	GetByNumber(ctx context.Context, number string) (*Invoice, error)
	Update(ctx context.Context, doc *Invoice) error
	Delete(ctx context.Context, docID id.ID) error

	GetLines(ctx context.Context, docID id.ID) ([]LineItem, error)
	SaveLines(ctx context.Context, docID id.ID, lines []LineItem) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Invoice], error)

	// GetLastNumber returns the highest assigned document number, or empty
	// string when nothing has been issued yet. Used once to seed the
	// numbering sequence.
	GetLastNumber(ctx context.Context) (string, error)

	// ExistsNoteFor reports whether a credit note referencing the document
	// exists (any status except cancelled).
	ExistsNoteFor(ctx context.Context, originalID id.ID) (bool, error)
}

// ListFilter for filtering documents.
type ListFilter struct {
	domain.ListFilter

	ClientID *id.ID
	Status   *Status
	Type     *DocType
	DateFrom *time.Time
	DateTo   *time.Time
}
