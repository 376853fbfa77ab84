package invoice

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fatture/internal/core/apperror"
	"fatture/internal/core/id"
	"fatture/internal/domain"
	"fatture/internal/domain/client"
	"fatture/pkg/numerator"
)

// --- In-memory fakes ---

type fakeDocRepo struct {
	mu    sync.Mutex
	docs  map[id.ID]*Invoice
	lines map[id.ID][]LineItem
}

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{
		docs:  make(map[id.ID]*Invoice),
		lines: make(map[id.ID][]LineItem),
	}
}

func (r *fakeDocRepo) Create(ctx context.Context, doc *Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *doc
	r.docs[doc.ID] = &cp
	return nil
}

func (r *fakeDocRepo) GetByID(ctx context.Context, docID id.ID) (*Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("document", docID.String())
	}
	cp := *doc
	return &cp, nil
}

func (r *fakeDocRepo) GetByNumber(ctx context.Context, number string) (*Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.docs {
		if doc.Number == number {
			cp := *doc
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("document", number)
}

func (r *fakeDocRepo) Update(ctx context.Context, doc *Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[doc.ID]; !ok {
		return apperror.NewNotFound("document", doc.ID.String())
	}
	cp := *doc
	r.docs[doc.ID] = &cp
	return nil
}

func (r *fakeDocRepo) Delete(ctx context.Context, docID id.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, docID)
	delete(r.lines, docID)
	return nil
}

func (r *fakeDocRepo) GetLines(ctx context.Context, docID id.ID) ([]LineItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]LineItem(nil), r.lines[docID]...), nil
}

func (r *fakeDocRepo) SaveLines(ctx context.Context, docID id.ID, lines []LineItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[docID] = append([]LineItem(nil), lines...)
	return nil
}

func (r *fakeDocRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Invoice], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := domain.ListResult[*Invoice]{Limit: filter.Limit, Offset: filter.Offset}
	for _, doc := range r.docs {
		if filter.Status != nil && doc.Status != *filter.Status {
			continue
		}
		if filter.Type != nil && doc.Type != *filter.Type {
			continue
		}
		if filter.ClientID != nil && doc.ClientID != *filter.ClientID {
			continue
		}
		cp := *doc
		result.Items = append(result.Items, &cp)
	}
	result.TotalCount = int64(len(result.Items))
	return result, nil
}

func (r *fakeDocRepo) GetLastNumber(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	last := ""
	for _, doc := range r.docs {
		if doc.Number > last {
			last = doc.Number
		}
	}
	return last, nil
}

func (r *fakeDocRepo) ExistsNoteFor(ctx context.Context, originalID id.ID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.docs {
		if doc.Type == TypeCreditNote && doc.OriginalID != nil &&
			*doc.OriginalID == originalID && doc.Status != StatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

type fakeClientRepo struct {
	clients map[id.ID]*client.Client
}

func newFakeClientRepo(clients ...*client.Client) *fakeClientRepo {
	r := &fakeClientRepo{clients: make(map[id.ID]*client.Client)}
	for _, cl := range clients {
		r.clients[cl.ID] = cl
	}
	return r
}

func (r *fakeClientRepo) Create(ctx context.Context, c *client.Client) error {
	r.clients[c.ID] = c
	return nil
}

func (r *fakeClientRepo) GetByID(ctx context.Context, clientID id.ID) (*client.Client, error) {
	cl, ok := r.clients[clientID]
	if !ok {
		return nil, apperror.NewNotFound("client", clientID.String())
	}
	return cl, nil
}

func (r *fakeClientRepo) Update(ctx context.Context, c *client.Client) error {
	r.clients[c.ID] = c
	return nil
}

func (r *fakeClientRepo) Delete(ctx context.Context, clientID id.ID) error {
	delete(r.clients, clientID)
	return nil
}

func (r *fakeClientRepo) List(ctx context.Context, filter client.ListFilter) (domain.ListResult[*client.Client], error) {
	return domain.ListResult[*client.Client]{}, nil
}

func (r *fakeClientRepo) ExistsByVATNumber(ctx context.Context, vatNumber string) (bool, error) {
	for _, cl := range r.clients {
		if cl.VATNumber == vatNumber {
			return true, nil
		}
	}
	return false, nil
}

// fakeTxManager runs the function directly: the fakes have no transactions.
type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- Fixture ---

type fixture struct {
	svc     *Service
	repo    *fakeDocRepo
	clients *fakeClientRepo
	client  *client.Client
}

func newFixture(t *testing.T, cl *client.Client) *fixture {
	t.Helper()
	if cl == nil {
		cl = plainClient()
	}
	repo := newFakeDocRepo()
	clients := newFakeClientRepo(cl)
	svc := NewService(repo, clients, NewCalculator(),
		numerator.New(numerator.NewMemoryStore()), fakeTxManager{})
	return &fixture{svc: svc, repo: repo, clients: clients, client: cl}
}

func (f *fixture) newDraft(t *testing.T) *Invoice {
	t.Helper()
	doc := NewInvoice(f.client.ID)
	doc.AddLine("consulenza", dec("1"), dec("1000.00"), VATRate22)
	require.NoError(t, f.svc.Create(context.Background(), doc))
	return doc
}

var numberPattern = regexp.MustCompile(`^\d{4}/\d{3,}$`)

// --- Tests ---

func TestService_Create(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	doc := NewInvoice(f.client.ID)
	doc.AddLine("consulenza", dec("1"), dec("1000.00"), VATRate22)
	doc.Status = StatusPaid // caller-supplied status is ignored
	doc.Number = "9999/999" // so is a caller-supplied number
	require.NoError(t, f.svc.Create(ctx, doc))

	assert.Equal(t, StatusDraft, doc.Status)
	assert.Empty(t, doc.Number)
	assert.True(t, doc.Payable.Equal(dec("1220.00")))

	stored, err := f.svc.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assert.True(t, stored.Lines[0].Total.Equal(dec("1220.00")))
	assert.True(t, stored.TaxByRate[VATRate22].Equal(dec("220.00")))
}

func TestService_Create_ValidationAggregated(t *testing.T) {
	f := newFixture(t, nil)

	doc := NewInvoice(f.client.ID)
	doc.AddLine("", dec("-1"), dec("-5"), VATRate("7"))
	err := f.svc.Create(context.Background(), doc)

	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidInput, appErr.Code)
	// Every broken rule reported at once, not just the first.
	assert.GreaterOrEqual(t, len(appErr.Violations), 4)
}

func TestService_Create_UnknownClient(t *testing.T) {
	f := newFixture(t, nil)

	doc := NewInvoice(id.New())
	doc.AddLine("consulenza", dec("1"), dec("100.00"), VATRate22)
	err := f.svc.Create(context.Background(), doc)

	assert.True(t, apperror.IsNotFound(err))
}

func TestService_Issue(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	doc := f.newDraft(t)

	issued, err := f.svc.Issue(ctx, doc.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusIssued, issued.Status)
	assert.Regexp(t, numberPattern, issued.Number)

	second := f.newDraft(t)
	issued2, err := f.svc.Issue(ctx, second.ID)
	require.NoError(t, err)
	assert.NotEqual(t, issued.Number, issued2.Number)
}

func TestService_Issue_Twice(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	doc := f.newDraft(t)

	issued, err := f.svc.Issue(ctx, doc.ID)
	require.NoError(t, err)

	_, err = f.svc.Issue(ctx, doc.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsForbiddenOperation(err))

	// The failed call must not have consumed a sequence slot.
	next := f.newDraft(t)
	issuedNext, err := f.svc.Issue(ctx, next.ID)
	require.NoError(t, err)
	_, firstOrd, err := numerator.Parse(issued.Number)
	require.NoError(t, err)
	_, nextOrd, err := numerator.Parse(issuedNext.Number)
	require.NoError(t, err)
	assert.Equal(t, firstOrd+1, nextOrd)
}

// markingTxManager tags the context while a transaction body runs.
type markingTxManager struct{}

type inTxKey struct{}

func (markingTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(context.WithValue(ctx, inTxKey{}, true))
}

// txObservingStore records whether each ordinal was handed out inside a
// transaction body.
type txObservingStore struct {
	inner       numerator.Store
	allocations []bool
}

func (s *txObservingStore) NextOrdinal(ctx context.Context, key string) (int64, error) {
	inTx, _ := ctx.Value(inTxKey{}).(bool)
	s.allocations = append(s.allocations, inTx)
	return s.inner.NextOrdinal(ctx, key)
}

func (s *txObservingStore) SeedOrdinal(ctx context.Context, key string, value int64) error {
	return s.inner.SeedOrdinal(ctx, key, value)
}

func TestService_Issue_AllocatesNumberInsideTransaction(t *testing.T) {
	// The sequence increment must share the persistence transaction: a
	// rolled-back issuance then also rolls back the consumed ordinal instead
	// of leaving a permanent gap.
	cl := plainClient()
	repo := newFakeDocRepo()
	store := &txObservingStore{inner: numerator.NewMemoryStore()}
	svc := NewService(repo, newFakeClientRepo(cl), NewCalculator(),
		numerator.New(store), markingTxManager{})

	ctx := context.Background()
	doc := NewInvoice(cl.ID)
	doc.AddLine("consulenza", dec("1"), dec("1000.00"), VATRate22)
	require.NoError(t, svc.Create(ctx, doc))

	_, err := svc.Issue(ctx, doc.ID)
	require.NoError(t, err)

	require.Len(t, store.allocations, 1)
	assert.True(t, store.allocations[0], "ordinal allocated outside the transaction")
}

func TestService_Issue_NotFound(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Issue(context.Background(), id.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_Update_FinalizedRejected(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	doc := f.newDraft(t)

	_, err := f.svc.Issue(ctx, doc.ID)
	require.NoError(t, err)

	doc.Lines[0].UnitPrice = dec("1.00")
	err = f.svc.Update(ctx, doc)
	require.Error(t, err)
	assert.True(t, apperror.IsForbiddenOperation(err))
}

func TestService_Update_RecomputesTotals(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	doc := f.newDraft(t)

	doc.Lines[0].UnitPrice = dec("500.00")
	require.NoError(t, f.svc.Update(ctx, doc))
	assert.True(t, doc.Payable.Equal(dec("610.00")), "payable: %s", doc.Payable)
}

func TestService_Delete_DraftOnly(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	draft := f.newDraft(t)
	require.NoError(t, f.svc.Delete(ctx, draft.ID))
	_, err := f.svc.GetByID(ctx, draft.ID)
	assert.True(t, apperror.IsNotFound(err))

	issued := f.newDraft(t)
	_, err = f.svc.Issue(ctx, issued.ID)
	require.NoError(t, err)
	err = f.svc.Delete(ctx, issued.ID)
	assert.True(t, apperror.IsForbiddenOperation(err))
}

func TestService_PaymentFlow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	doc := f.newDraft(t)

	_, err := f.svc.Issue(ctx, doc.ID)
	require.NoError(t, err)

	sent, err := f.svc.MarkSent(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSent, sent.Status)

	overdue, err := f.svc.MarkOverdue(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOverdue, overdue.Status)

	paid, err := f.svc.MarkPaid(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, paid.Status)

	// Paid is terminal.
	_, err = f.svc.MarkSent(ctx, doc.ID)
	assert.True(t, apperror.IsForbiddenOperation(err))
}

func TestService_Cancel_DraftDirectly(t *testing.T) {
	f := newFixture(t, nil)
	doc := f.newDraft(t)

	cancelled, err := f.svc.Cancel(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
}

func TestService_Cancel_IssuedRequiresCreditNote(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	doc := f.newDraft(t)

	_, err := f.svc.Issue(ctx, doc.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, doc.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsForbiddenOperation(err))

	_, err = f.svc.CreateCreditNote(ctx, doc.ID, "storno totale")
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
}

func TestService_CreateCreditNote(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	doc := f.newDraft(t)

	issued, err := f.svc.Issue(ctx, doc.ID)
	require.NoError(t, err)

	note, err := f.svc.CreateCreditNote(ctx, doc.ID, "merce resa")
	require.NoError(t, err)

	assert.Equal(t, TypeCreditNote, note.Type)
	assert.Equal(t, StatusDraft, note.Status)
	assert.Equal(t, issued.Number, note.OriginalNumber)
	assert.True(t, note.Payable.Equal(issued.Payable.Neg()))

	stored, err := f.svc.GetByID(ctx, note.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assert.True(t, stored.Lines[0].Quantity.IsNegative())
}

func TestService_CreateCreditNote_DraftOriginal(t *testing.T) {
	f := newFixture(t, nil)
	doc := f.newDraft(t)

	_, err := f.svc.CreateCreditNote(context.Background(), doc.ID, "storno")
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidInput(err))
}

func TestService_CreateCreditNote_OriginalNotFound(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.CreateCreditNote(context.Background(), id.New(), "storno")
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_CreateDebitNote(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	doc := f.newDraft(t)

	_, err := f.svc.Issue(ctx, doc.ID)
	require.NoError(t, err)

	items := []LineItem{
		{Description: "interessi di mora", Quantity: dec("1"), UnitPrice: dec("50.00"), VATRate: VATRate22},
	}
	note, err := f.svc.CreateDebitNote(ctx, doc.ID, items, "ritardo pagamento")
	require.NoError(t, err)

	assert.Equal(t, TypeDebitNote, note.Type)
	assert.True(t, note.Payable.Equal(dec("61.00")))
}

func TestService_SeedNumbering(t *testing.T) {
	cl := plainClient()
	repo := newFakeDocRepo()
	ctx := context.Background()

	// An already-issued document survives a restart; the new allocator must
	// continue after it, not restart from 001.
	prior := NewInvoice(cl.ID)
	prior.Number = "2025/041"
	prior.Status = StatusIssued
	require.NoError(t, repo.Create(ctx, prior))

	svc := NewService(repo, newFakeClientRepo(cl), NewCalculator(),
		numerator.New(numerator.NewMemoryStore()), fakeTxManager{})
	require.NoError(t, svc.SeedNumbering(ctx))

	doc := NewInvoice(cl.ID)
	doc.AddLine("consulenza", dec("1"), dec("100.00"), VATRate22)
	require.NoError(t, svc.Create(ctx, doc))

	issued, err := svc.Issue(ctx, doc.ID)
	require.NoError(t, err)
	_, ordinal, err := numerator.Parse(issued.Number)
	require.NoError(t, err)
	assert.Equal(t, int64(42), ordinal)
}

func TestService_List_FilterByStatus(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	draft := f.newDraft(t)
	_ = draft
	issued := f.newDraft(t)
	_, err := f.svc.Issue(ctx, issued.ID)
	require.NoError(t, err)

	status := StatusIssued
	result, err := f.svc.List(ctx, ListFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, issued.ID, result.Items[0].ID)
}
