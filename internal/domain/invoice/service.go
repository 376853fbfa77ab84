package invoice

import (
	"context"
	"fmt"
	"time"

	"fatture/internal/core/apperror"
	appctx "fatture/internal/core/context"
	"fatture/internal/core/id"
	"fatture/internal/core/tx"
	"fatture/internal/domain"
	"fatture/internal/domain/client"
	"fatture/pkg/logger"
	"fatture/pkg/numerator"
)

// Service orchestrates the document workflow: draft CRUD, totals
// recomputation, issuance with numbering, lifecycle moves and note
// derivation. All computation is delegated to the stateless Calculator;
// the service owns only sequencing and persistence.
type Service struct {
	repo      Repository
	clients   client.Repository
	calc      *Calculator
	numbers   *numerator.Allocator
	txManager tx.Manager
}

// NewService creates a new document service.
func NewService(
	repo Repository,
	clients client.Repository,
	calc *Calculator,
	numbers *numerator.Allocator,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		clients:   clients,
		calc:      calc,
		numbers:   numbers,
		txManager: txManager,
	}
}

// resolveClient loads the client whose fiscal attributes drive computation.
// The engine never traverses relations implicitly: every computation path
// goes through an explicit lookup.
func (s *Service) resolveClient(ctx context.Context, clientID id.ID) (*client.Client, error) {
	cl, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("client", clientID.String())
		}
		return nil, err
	}
	return cl, nil
}

// Create creates a new draft document and computes its totals.
func (s *Service) Create(ctx context.Context, doc *Invoice) error {
	doc.Status = StatusDraft
	doc.Number = ""
	if doc.Type == "" {
		doc.Type = TypeInvoice
	}
	if actor := appctx.GetActorID(ctx); actor != "" {
		doc.CreatedBy = actor
		doc.UpdatedBy = actor
	}

	if err := doc.Validate(ctx); err != nil {
		return err
	}

	cl, err := s.resolveClient(ctx, doc.ClientID)
	if err != nil {
		return err
	}
	s.calc.ComputeTotals(doc, cl)

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "document created", "id", doc.ID, "type", doc.Type)
	return nil
}

// GetByID retrieves a document with its lines and tax breakdown.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*Invoice, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("document", docID.String())
		}
		return nil, err
	}

	lines, err := s.repo.GetLines(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Lines = lines
	doc.RebuildTaxBreakdown()

	return doc, nil
}

// Update replaces a draft document's substantive fields and recomputes
// totals. Non-draft documents are immutable.
func (s *Service) Update(ctx context.Context, doc *Invoice) error {
	current, err := s.GetByID(ctx, doc.ID)
	if err != nil {
		return err
	}
	if err := current.CanModify(); err != nil {
		return err
	}

	// Status, number and type never change through update.
	doc.Status = current.Status
	doc.Number = current.Number
	doc.Type = current.Type
	if actor := appctx.GetActorID(ctx); actor != "" {
		doc.UpdatedBy = actor
	}

	if err := doc.Validate(ctx); err != nil {
		return err
	}

	cl, err := s.resolveClient(ctx, doc.ClientID)
	if err != nil {
		return err
	}
	s.calc.ComputeTotals(doc, cl)

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
}

// Delete removes a draft document. Finalized documents can only be
// cancelled, never deleted.
func (s *Service) Delete(ctx context.Context, docID id.ID) error {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return err
	}
	if err := doc.CanModify(); err != nil {
		return err
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Delete(ctx, docID)
	})
}

// Issue finalizes a draft: checks the transition, assigns the progressive
// number and recomputes totals one last time before flipping the status.
// The final recompute guards against totals gone stale between the last
// draft edit and issuance.
func (s *Service) Issue(ctx context.Context, docID id.ID) (*Invoice, error) {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	// Legality first: an illegal call must not consume a sequence slot.
	if !CanTransition(doc.Status, StatusIssued) {
		return nil, apperror.NewForbiddenOperation("illegal status transition").
			WithDetail("document_id", doc.ID.String()).
			WithDetail("from", string(doc.Status)).
			WithDetail("to", string(StatusIssued))
	}

	cl, err := s.resolveClient(ctx, doc.ClientID)
	if err != nil {
		return nil, err
	}
	s.calc.ComputeTotals(doc, cl)

	if err := doc.Transition(StatusIssued); err != nil {
		return nil, err
	}
	if actor := appctx.GetActorID(ctx); actor != "" {
		doc.UpdatedBy = actor
	}

	// Allocation happens inside the transaction: when persistence fails and
	// rolls back, the consumed ordinal rolls back with it and the sequence
	// stays gap-free.
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		number, err := s.numbers.NextNumber(ctx, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("allocate number: %w", err)
		}
		doc.Number = number

		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "document issued", "id", doc.ID, "number", doc.Number)
	return doc, nil
}

// MarkSent records that an issued document was delivered to the client.
func (s *Service) MarkSent(ctx context.Context, docID id.ID) (*Invoice, error) {
	return s.transition(ctx, docID, StatusSent)
}

// MarkPaid records payment of a sent or overdue document.
func (s *Service) MarkPaid(ctx context.Context, docID id.ID) (*Invoice, error) {
	return s.transition(ctx, docID, StatusPaid)
}

// MarkOverdue flags a sent document past its due date.
func (s *Service) MarkOverdue(ctx context.Context, docID id.ID) (*Invoice, error) {
	return s.transition(ctx, docID, StatusOverdue)
}

// Cancel voids a document. A finalized document can only be cancelled when a
// credit note referencing it exists: its data is never rewritten or deleted.
func (s *Service) Cancel(ctx context.Context, docID id.ID) (*Invoice, error) {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	if !doc.IsDraft() && doc.Type == TypeInvoice {
		hasNote, err := s.repo.ExistsNoteFor(ctx, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("check credit note: %w", err)
		}
		if !hasNote {
			return nil, apperror.NewForbiddenOperation(
				"cancelling an issued document requires a credit note referencing it").
				WithDetail("document_id", doc.ID.String())
		}
	}

	return s.applyTransition(ctx, doc, StatusCancelled)
}

func (s *Service) transition(ctx context.Context, docID id.ID, to Status) (*Invoice, error) {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	return s.applyTransition(ctx, doc, to)
}

func (s *Service) applyTransition(ctx context.Context, doc *Invoice, to Status) (*Invoice, error) {
	from := doc.Status
	if err := doc.Transition(to); err != nil {
		return nil, err
	}
	if actor := appctx.GetActorID(ctx); actor != "" {
		doc.UpdatedBy = actor
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "document status changed",
		"id", doc.ID, "from", from, "to", to)
	return doc, nil
}

// CreateCreditNote derives, validates and persists a credit note against an
// issued document.
func (s *Service) CreateCreditNote(ctx context.Context, originalID id.ID, reason string) (*Invoice, error) {
	original, err := s.GetByID(ctx, originalID)
	if err != nil {
		return nil, err
	}

	note := DeriveCreditNote(original, reason)
	return s.saveNote(ctx, note, original)
}

// CreateDebitNote derives, validates and persists a debit note carrying the
// caller-supplied additional charges.
func (s *Service) CreateDebitNote(ctx context.Context, originalID id.ID, items []LineItem, reason string) (*Invoice, error) {
	original, err := s.GetByID(ctx, originalID)
	if err != nil {
		return nil, err
	}

	note := DeriveDebitNote(original, items, reason)
	return s.saveNote(ctx, note, original)
}

func (s *Service) saveNote(ctx context.Context, note, original *Invoice) (*Invoice, error) {
	if err := note.Validate(ctx); err != nil {
		return nil, err
	}

	cl, err := s.resolveClient(ctx, note.ClientID)
	if err != nil {
		return nil, err
	}
	s.calc.ComputeTotals(note, cl)

	if err := ValidateNote(note, original); err != nil {
		return nil, err
	}

	if actor := appctx.GetActorID(ctx); actor != "" {
		note.CreatedBy = actor
		note.UpdatedBy = actor
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, note); err != nil {
			return fmt.Errorf("create note: %w", err)
		}
		if err := s.repo.SaveLines(ctx, note.ID, note.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "note created",
		"id", note.ID, "type", note.Type, "original", note.OriginalNumber)
	return note, nil
}

// List retrieves documents with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Invoice], error) {
	return s.repo.List(ctx, filter)
}

// SeedNumbering initializes the numbering sequence from the last assigned
// document number. Called once at startup; a no-op when the sequence
// already exists.
func (s *Service) SeedNumbering(ctx context.Context) error {
	last, err := s.repo.GetLastNumber(ctx)
	if err != nil {
		return fmt.Errorf("read last number: %w", err)
	}
	return s.numbers.Seed(ctx, last)
}
