package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"fatture/internal/core/apperror"
	"fatture/internal/core/id"
	"fatture/internal/domain"
	"fatture/internal/domain/client"
)

const clientTable = "cat_clients"

// Compile-time check.
var _ client.Repository = (*ClientRepo)(nil)

// ClientRepo implements client.Repository on PostgreSQL.
type ClientRepo struct {
	txManager  *TxManager
	selectCols []string
}

// NewClientRepo creates a new client repository.
func NewClientRepo(txManager *TxManager) *ClientRepo {
	return &ClientRepo{
		txManager:  txManager,
		selectCols: ExtractDBColumns[client.Client](),
	}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *ClientRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *ClientRepo) baseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(r.selectCols...).
		From(clientTable)
}

// Create inserts a new client using its "db" tags.
func (r *ClientRepo) Create(ctx context.Context, c *client.Client) error {
	data := StructToMap(c)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in entity")
	}

	q := r.Builder().
		Insert(clientTable).
		SetMap(data)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperror.NewDuplicate("client", "code", c.Code).WithCause(err)
		}
		return fmt.Errorf("insert %s: %w", clientTable, err)
	}

	return nil
}

// GetByID retrieves a client by ID.
func (r *ClientRepo) GetByID(ctx context.Context, clientID id.ID) (*client.Client, error) {
	c := &client.Client{}
	q := r.baseSelect().
		Where(squirrel.Eq{"id": clientID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, c, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("client", clientID.String())
		}
		return nil, fmt.Errorf("get by id: %w", err)
	}

	return c, nil
}

// Update modifies an existing client with optimistic locking.
func (r *ClientRepo) Update(ctx context.Context, c *client.Client) error {
	data := StructToMap(c)
	delete(data, "id")
	delete(data, "version")

	q := r.Builder().
		Update(clientTable).
		SetMap(data).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": c.ID}).
		Where(squirrel.Eq{"version": c.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", clientTable, err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("client", c.ID.String())
	}

	return nil
}

// Delete sets the deletion mark (soft delete). Clients referenced by
// documents are never physically removed.
func (r *ClientRepo) Delete(ctx context.Context, clientID id.ID) error {
	q := r.Builder().
		Update(clientTable).
		Set("deletion_mark", true).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": clientID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", clientTable, err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("client", clientID.String())
	}

	return nil
}

// List retrieves clients with filtering and pagination.
func (r *ClientRepo) List(ctx context.Context, filter client.ListFilter) (domain.ListResult[*client.Client], error) {
	result := domain.ListResult[*client.Client]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect()

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"code": pattern},
			squirrel.ILike{"vat_number": pattern},
		})
	}

	if filter.Category != nil {
		q = q.Where(squirrel.Eq{"category": *filter.Category})
	}
	if filter.SplitPayment != nil {
		q = q.Where(squirrel.Eq{"split_payment": *filter.SplitPayment})
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

	orderBy, err := ParseOrderBy(filter.OrderBy, "name ASC", r.selectCols)
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

// ExistsByVATNumber checks whether a non-deleted client with the VAT number exists.
func (r *ClientRepo) ExistsByVATNumber(ctx context.Context, vatNumber string) (bool, error) {
	q := r.Builder().
		Select("1").
		From(clientTable).
		Where(squirrel.Eq{"vat_number": vatNumber}).
		Where(squirrel.Eq{"deletion_mark": false}).
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
		return false, fmt.Errorf("exists by vat number: %w", err)
	}

	return true, nil
}
