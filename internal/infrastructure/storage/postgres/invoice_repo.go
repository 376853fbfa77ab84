package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"fatture/internal/core/apperror"
	"fatture/internal/core/id"
	"fatture/internal/domain"
	"fatture/internal/domain/invoice"
)

const (
	invoiceTable     = "doc_invoices"
	invoiceLineTable = "doc_invoice_lines"
)

// Compile-time check.
var _ invoice.Repository = (*InvoiceRepo)(nil)

// InvoiceRepo implements invoice.Repository on PostgreSQL.
// Lines live in their own table and are rewritten as a whole on save, the
// usual pattern for document table parts.
type InvoiceRepo struct {
	txManager  *TxManager
	batch      *BatchInserter
	selectCols []string
	lineCols   []string
}

// NewInvoiceRepo creates a new document repository.
func NewInvoiceRepo(txManager *TxManager) *InvoiceRepo {
	return &InvoiceRepo{
		txManager:  txManager,
		batch:      NewBatchInserter(txManager),
		selectCols: ExtractDBColumns[invoice.Invoice](),
		lineCols:   ExtractDBColumns[invoice.LineItem](),
	}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *InvoiceRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *InvoiceRepo) baseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(r.selectCols...).
		From(invoiceTable)
}

// Create inserts a new document. Lines are saved separately via SaveLines.
func (r *InvoiceRepo) Create(ctx context.Context, doc *invoice.Invoice) error {
	data := StructToMap(doc)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in entity")
	}

	q := r.Builder().
		Insert(invoiceTable).
		SetMap(data)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", invoiceTable, err)
	}

	return nil
}

// GetByID retrieves a document by ID (without lines).
func (r *InvoiceRepo) GetByID(ctx context.Context, docID id.ID) (*invoice.Invoice, error) {
	doc := &invoice.Invoice{}
	q := r.baseSelect().
		Where(squirrel.Eq{"id": docID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, doc, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("document", docID.String())
		}
		return nil, fmt.Errorf("get by id: %w", err)
	}

	return doc, nil
}

// GetByNumber retrieves a document by its assigned number.
func (r *InvoiceRepo) GetByNumber(ctx context.Context, number string) (*invoice.Invoice, error) {
	doc := &invoice.Invoice{}
	q := r.baseSelect().
		Where(squirrel.Eq{"number": number}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, doc, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("document", number)
		}
		return nil, fmt.Errorf("get by number: %w", err)
	}

	return doc, nil
}

// Update updates an existing document with optimistic locking.
func (r *InvoiceRepo) Update(ctx context.Context, doc *invoice.Invoice) error {
	data := StructToMap(doc)

	// Immutable or repo-managed columns.
	delete(data, "id")
	delete(data, "version")
	delete(data, "created_at")
	delete(data, "created_by")
	delete(data, "updated_at")

	q := r.Builder().
		Update(invoiceTable).
		SetMap(data).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": doc.ID}).
		Where(squirrel.Eq{"version": doc.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", invoiceTable, err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("document", doc.ID.String())
	}

	doc.SetVersion(doc.Version + 1)
	return nil
}

// Delete physically removes a draft document and its lines.
// The service guards against deleting finalized documents.
func (r *InvoiceRepo) Delete(ctx context.Context, docID id.ID) error {
	querier := r.txManager.GetQuerier(ctx)

	linesSQL, linesArgs, err := r.Builder().
		Delete(invoiceLineTable).
		Where(squirrel.Eq{"document_id": docID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete lines: %w", err)
	}
	if _, err := querier.Exec(ctx, linesSQL, linesArgs...); err != nil {
		return fmt.Errorf("delete lines: %w", err)
	}

	docSQL, docArgs, err := r.Builder().
		Delete(invoiceTable).
		Where(squirrel.Eq{"id": docID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := querier.Exec(ctx, docSQL, docArgs...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", invoiceTable, err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("document", docID.String())
	}

	return nil
}

// GetLines retrieves the document's lines ordered by line number.
func (r *InvoiceRepo) GetLines(ctx context.Context, docID id.ID) ([]invoice.LineItem, error) {
	q := r.Builder().
		Select(r.lineCols...).
		From(invoiceLineTable).
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []invoice.LineItem
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}

	return lines, nil
}

// SaveLines replaces the document's table part: delete all, COPY insert all.
// Must run inside a transaction (the COPY path requires one).
func (r *InvoiceRepo) SaveLines(ctx context.Context, docID id.ID, lines []invoice.LineItem) error {
	querier := r.txManager.GetQuerier(ctx)

	delSQL, delArgs, err := r.Builder().
		Delete(invoiceLineTable).
		Where(squirrel.Eq{"document_id": docID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete lines: %w", err)
	}
	if _, err := querier.Exec(ctx, delSQL, delArgs...); err != nil {
		return fmt.Errorf("delete lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	columns := append([]string{"document_id"}, r.lineCols...)
	rows := make([][]any, 0, len(lines))
	for _, line := range lines {
		data := StructToMap(line)
		row := make([]any, 0, len(columns))
		row = append(row, docID)
		for _, col := range r.lineCols {
			row = append(row, data[col])
		}
		rows = append(rows, row)
	}

	if _, err := r.batch.CopyFromSlice(ctx, invoiceLineTable, columns, rows); err != nil {
		return fmt.Errorf("copy lines: %w", err)
	}

	return nil
}

// List retrieves documents with filtering and pagination.
func (r *InvoiceRepo) List(ctx context.Context, filter invoice.ListFilter) (domain.ListResult[*invoice.Invoice], error) {
	result := domain.ListResult[*invoice.Invoice]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect()

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}

	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"number": "%" + filter.Search + "%"})
	}
	if filter.ClientID != nil {
		q = q.Where(squirrel.Eq{"client_id": *filter.ClientID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"doc_type": *filter.Type})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.DateTo})
	}

	// Count total (before pagination)
	countQ := r.Builder().Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	orderBy, err := ParseOrderBy(filter.OrderBy, "date DESC", r.selectCols)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy)

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list: %w", err)
	}

	return result, nil
}

// GetLastNumber returns the highest assigned document number, or empty string
// when nothing has been issued yet.
func (r *InvoiceRepo) GetLastNumber(ctx context.Context) (string, error) {
	// The ordinal after the slash is globally progressive, so the max ordinal
	// is the last number issued. Lexicographic order breaks past 999, hence
	// the numeric sort on the split ordinal.
	sql := fmt.Sprintf(`
        SELECT number FROM %s
        WHERE number <> ''
        ORDER BY split_part(number, '/', 2)::bigint DESC
        LIMIT 1
    `, invoiceTable)

	var number string
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql).Scan(&number)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get last number: %w", err)
	}

	return number, nil
}

// ExistsNoteFor reports whether a non-cancelled credit note referencing the
// document exists.
func (r *InvoiceRepo) ExistsNoteFor(ctx context.Context, originalID id.ID) (bool, error) {
	q := r.Builder().
		Select("1").
		From(invoiceTable).
		Where(squirrel.Eq{"original_id": originalID}).
		Where(squirrel.Eq{"doc_type": invoice.TypeCreditNote}).
		Where(squirrel.NotEq{"status": invoice.StatusCancelled}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var exists int
	err = r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&exists)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists note for: %w", err)
	}

	return true, nil
}
