package client

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fatture/internal/core/apperror"
	"fatture/internal/core/id"
	"fatture/internal/domain"
)

type fakeRepo struct {
	mu      sync.Mutex
	clients map[id.ID]*Client
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{clients: make(map[id.ID]*Client)}
}

func (r *fakeRepo) Create(ctx context.Context, c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *c
	r.clients[c.ID] = &stored
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, clientID id.ID) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[clientID]
	if !ok {
		return nil, apperror.NewNotFound("client", clientID.String())
	}
	copied := *c
	return &copied, nil
}

func (r *fakeRepo) Update(ctx context.Context, c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c.ID]; !ok {
		return apperror.NewNotFound("client", c.ID.String())
	}
	stored := *c
	r.clients[c.ID] = &stored
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, clientID id.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[clientID]; ok {
		c.DeletionMark = true
	}
	return nil
}

func (r *fakeRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Client], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := domain.ListResult[*Client]{Limit: filter.Limit, Offset: filter.Offset}
	for _, c := range r.clients {
		if c.DeletionMark && !filter.IncludeDeleted {
			continue
		}
		if filter.Category != nil && c.Category != *filter.Category {
			continue
		}
		copied := *c
		result.Items = append(result.Items, &copied)
	}
	result.TotalCount = int64(len(result.Items))
	return result, nil
}

func (r *fakeRepo) ExistsByVATNumber(ctx context.Context, vatNumber string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		if c.VATNumber == vatNumber && !c.DeletionMark {
			return true, nil
		}
	}
	return false, nil
}

type fakeTxManager struct{}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func validClient() *Client {
	c := NewClient("CLI-001", "Studio Rossi", CategoryProfessional)
	c.VATNumber = "12345678903"
	return c
}

func TestService_Create(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeTxManager{})

	c := validClient()
	require.NoError(t, svc.Create(context.Background(), c))

	stored, err := repo.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Studio Rossi", stored.Name)
}

func TestService_Create_DuplicateVATNumber(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeTxManager{})

	require.NoError(t, svc.Create(context.Background(), validClient()))

	dup := NewClient("CLI-002", "Altro Studio", CategoryProfessional)
	dup.VATNumber = "12345678903"
	err := svc.Create(context.Background(), dup)
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDuplicate, appErr.Code)
}

func TestService_Create_ValidationAggregated(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeTxManager{})

	// Missing name, bad category, no fiscal codes, contradictory regime flags.
	c := &Client{Category: Category("partnership")}
	c.Withholding = true
	c.SplitPayment = true

	err := svc.Create(context.Background(), c)
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidInput, appErr.Code)
	assert.GreaterOrEqual(t, len(appErr.Violations), 4)
}

func TestService_Delete_NotFound(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeTxManager{})

	err := svc.Delete(context.Background(), id.New())
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestClient_Validate_WithholdingBounds(t *testing.T) {
	c := validClient()
	c.Withholding = true
	c.WithholdingRate = decimal.NewFromInt(150)
	c.WithholdingTaxBase = decimal.Zero

	err := c.Validate(context.Background())
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Violations, "withholding rate must be between 0 and 100")
	assert.Contains(t, appErr.Violations, "withholding tax base must be between 0 and 100")
}

func TestClient_Validate_InvalidCodes(t *testing.T) {
	c := NewClient("CLI-009", "Test", CategoryCompany)
	c.VATNumber = "12345678901" // wrong check digit
	c.TaxCode = "NOTACODE"

	err := c.Validate(context.Background())
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Violations, "VAT number is invalid")
	assert.Contains(t, appErr.Violations, "tax code is invalid")
}
