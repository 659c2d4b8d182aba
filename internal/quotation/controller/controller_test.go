package controller

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	e "github.com/gartstein/quotation/internal/quotation/errors"
	"github.com/gartstein/quotation/internal/quotation/events"
	"github.com/gartstein/quotation/internal/quotation/models"
	"github.com/gartstein/quotation/internal/quotation/pricing"
	"github.com/gartstein/quotation/internal/quotation/render"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"
)

// MockRepository implements the Repository interface for testing. Every call
// is recorded; a call to a method without a stub fails with an error.
type MockRepository struct {
	mu    sync.Mutex
	calls []string

	createQuotation func(context.Context, *models.NewQuotation) (*models.Quotation, error)
	getQuotation    func(context.Context, uuid.UUID) (*models.Quotation, error)
	listQuotations  func(context.Context, models.QuotationFilter) ([]*models.Quotation, error)
	deleteQuotation func(context.Context, uuid.UUID) error
	setDocumentPath func(context.Context, uuid.UUID, string) error
	getCompany      func(context.Context, uuid.UUID) (*models.Company, error)
	getEmployee     func(context.Context, uuid.UUID) (*models.Employee, error)
	getClient       func(context.Context, uuid.UUID) (*models.Client, error)
	getItems        func(context.Context, []uuid.UUID) (map[uuid.UUID]*models.Item, error)
	getHSNRate      func(context.Context, string) (*models.HSNRate, error)
	ping            func(context.Context) error
}

var errUnexpectedCall = errors.New("unexpected repository call")

func (m *MockRepository) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *MockRepository) called(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.calls {
		if c == name {
			return true
		}
	}
	return false
}

func (m *MockRepository) CreateQuotation(ctx context.Context, nq *models.NewQuotation) (*models.Quotation, error) {
	m.record("CreateQuotation")
	if m.createQuotation == nil {
		return nil, errUnexpectedCall
	}
	return m.createQuotation(ctx, nq)
}

func (m *MockRepository) GetQuotation(ctx context.Context, id uuid.UUID) (*models.Quotation, error) {
	m.record("GetQuotation")
	if m.getQuotation == nil {
		return nil, errUnexpectedCall
	}
	return m.getQuotation(ctx, id)
}

func (m *MockRepository) ListQuotations(ctx context.Context, f models.QuotationFilter) ([]*models.Quotation, error) {
	m.record("ListQuotations")
	if m.listQuotations == nil {
		return nil, errUnexpectedCall
	}
	return m.listQuotations(ctx, f)
}

func (m *MockRepository) DeleteQuotation(ctx context.Context, id uuid.UUID) error {
	m.record("DeleteQuotation")
	if m.deleteQuotation == nil {
		return errUnexpectedCall
	}
	return m.deleteQuotation(ctx, id)
}

func (m *MockRepository) SetDocumentPath(ctx context.Context, id uuid.UUID, path string) error {
	m.record("SetDocumentPath")
	if m.setDocumentPath == nil {
		return errUnexpectedCall
	}
	return m.setDocumentPath(ctx, id, path)
}

func (m *MockRepository) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	m.record("GetCompany")
	if m.getCompany == nil {
		return nil, errUnexpectedCall
	}
	return m.getCompany(ctx, id)
}

func (m *MockRepository) ListCompanies(context.Context) ([]*models.Company, error) {
	m.record("ListCompanies")
	return nil, nil
}

func (m *MockRepository) GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	m.record("GetEmployee")
	if m.getEmployee == nil {
		return nil, errUnexpectedCall
	}
	return m.getEmployee(ctx, id)
}

func (m *MockRepository) ListEmployees(context.Context) ([]*models.Employee, error) {
	m.record("ListEmployees")
	return nil, nil
}

func (m *MockRepository) GetClient(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	m.record("GetClient")
	if m.getClient == nil {
		return nil, errUnexpectedCall
	}
	return m.getClient(ctx, id)
}

func (m *MockRepository) ListClients(context.Context, *uuid.UUID) ([]*models.Client, error) {
	m.record("ListClients")
	return nil, nil
}

func (m *MockRepository) GetItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Item, error) {
	m.record("GetItems")
	if m.getItems == nil {
		return nil, errUnexpectedCall
	}
	return m.getItems(ctx, ids)
}

func (m *MockRepository) ListItems(context.Context) ([]*models.Item, error) {
	m.record("ListItems")
	return nil, nil
}

func (m *MockRepository) GetHSNRate(ctx context.Context, hsn string) (*models.HSNRate, error) {
	m.record("GetHSNRate")
	if m.getHSNRate == nil {
		return nil, errUnexpectedCall
	}
	return m.getHSNRate(ctx, hsn)
}

func (m *MockRepository) Ping(ctx context.Context) error {
	m.record("Ping")
	if m.ping == nil {
		return nil
	}
	return m.ping(ctx)
}

// MockProducer is a test double for the event publisher.
type MockProducer struct {
	mu     sync.Mutex
	events []events.EventType
}

func (m *MockProducer) Publish(eventType events.EventType, _ *models.Quotation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, eventType)
}

func (m *MockProducer) Close() {}

func (m *MockProducer) published() []events.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.EventType(nil), m.events...)
}

// memStore keeps artifacts in memory.
type memStore struct {
	files     map[string][]byte
	removeErr error
}

func newMemStore() *memStore { return &memStore{files: map[string][]byte{}} }

func (s *memStore) Save(name string, data []byte) error {
	s.files[name] = data
	return nil
}

func (s *memStore) Open(name string) (*os.File, error) {
	if _, ok := s.files[name]; !ok {
		return nil, e.ErrNotFound
	}
	return nil, nil
}

func (s *memStore) Remove(name string) error {
	delete(s.files, name)
	return s.removeErr
}

type failingRenderer struct{ err error }

func (r failingRenderer) Render(*models.QuotationDocument, render.Format) (*render.Artifact, error) {
	return nil, r.err
}

type fixedRates struct {
	rates map[string]decimal.Decimal
	hits  int
}

func (c *fixedRates) Rate(ctx context.Context, hsn string, loader func(context.Context) (decimal.Decimal, error)) (decimal.Decimal, error) {
	if r, ok := c.rates[hsn]; ok {
		c.hits++
		return r, nil
	}
	return loader(ctx)
}

var fixedNow = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func newTestService(t *testing.T, repo *MockRepository, producer *MockProducer, opts ...Option) *QuotationService {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewQuotationService(repo, render.NewEngine(render.DefaultCurrencySymbol), newMemStore(), producer, zaptest.NewLogger(t), opts...)
}

func validInput() *CreateQuotationInput {
	return &CreateQuotationInput{
		CompanyID:    uuid.New(),
		EmployeeID:   uuid.New(),
		ClientID:     uuid.New(),
		PaymentTerms: models.PaymentAdvanceFull,
		Lines: []LineInput{{
			Description:        "Sodium Chloride AR",
			Quantity:           2,
			UnitRate:           dec("100"),
			DiscountPercentage: dec("10"),
			GSTPercentage:      dec("18"),
		}},
	}
}

// persistEcho stores nothing and returns the quotation the service built.
func persistEcho(captured **models.NewQuotation) func(context.Context, *models.NewQuotation) (*models.Quotation, error) {
	return func(_ context.Context, nq *models.NewQuotation) (*models.Quotation, error) {
		*captured = nq
		return &models.Quotation{
			ID:              uuid.New(),
			CompanyID:       nq.Header.CompanyID,
			ReferenceNumber: "QT-2024-001",
			Date:            nq.Header.Date,
			Lines:           nq.Lines,
			PaymentTerms:    nq.Header.PaymentTerms,
			SubTotal:        nq.Totals.SubTotal,
			TotalGST:        nq.Totals.TotalGST,
			GrandTotal:      nq.Totals.GrandTotal,
		}, nil
	}
}

func TestQuotationService_CreateQuotation(t *testing.T) {
	itemID := uuid.New()
	catalogItem := &models.Item{
		ID:            itemID,
		CatalogueID:   "CAT-001",
		Description:   "Sodium Chloride AR",
		PackSize:      "500 g",
		HSN:           "28276000",
		UnitPrice:     decimal.RequireFromString("250"),
		GSTPercentage: decimal.RequireFromString("12"),
		Brand:         "Merck",
	}

	tests := []struct {
		name          string
		input         func() *CreateQuotationInput
		mockSetup     func(*MockRepository)
		expectedError error
		check         func(*testing.T, *models.NewQuotation)
	}{
		{
			name:  "successful creation",
			input: validInput,
			check: func(t *testing.T, nq *models.NewQuotation) {
				if len(nq.Lines) != 1 {
					t.Fatalf("expected 1 line, got %d", len(nq.Lines))
				}
				if got := nq.Lines[0].LineTotal.StringFixed(2); got != "212.40" {
					t.Errorf("expected line total 212.40, got %s", got)
				}
				if got := nq.Totals.GrandTotal.StringFixed(2); got != "212.40" {
					t.Errorf("expected grand total 212.40, got %s", got)
				}
				if !nq.Header.Date.Equal(fixedNow) {
					t.Errorf("expected date %v, got %v", fixedNow, nq.Header.Date)
				}
				if nq.Lines[0].Position != 1 {
					t.Errorf("expected position 1, got %d", nq.Lines[0].Position)
				}
			},
		},
		{
			name: "prefilled from catalog item",
			input: func() *CreateQuotationInput {
				in := validInput()
				in.Lines = []LineInput{{ItemID: &itemID, Quantity: 1}}
				return in
			},
			mockSetup: func(mr *MockRepository) {
				mr.getItems = func(_ context.Context, _ []uuid.UUID) (map[uuid.UUID]*models.Item, error) {
					return map[uuid.UUID]*models.Item{itemID: catalogItem}, nil
				}
			},
			check: func(t *testing.T, nq *models.NewQuotation) {
				l := nq.Lines[0]
				if l.Description != "Sodium Chloride AR" || l.CatalogueID != "CAT-001" || l.Brand != "Merck" {
					t.Errorf("catalog fields not prefilled: %+v", l)
				}
				// 250 * 1.12
				if got := l.LineTotal.StringFixed(2); got != "280.00" {
					t.Errorf("expected line total 280.00, got %s", got)
				}
			},
		},
		{
			name: "explicit values override catalog item",
			input: func() *CreateQuotationInput {
				in := validInput()
				in.Lines = []LineInput{{ItemID: &itemID, Quantity: 1, Description: "Custom", UnitRate: dec("100"), GSTPercentage: dec("0")}}
				return in
			},
			mockSetup: func(mr *MockRepository) {
				mr.getItems = func(_ context.Context, _ []uuid.UUID) (map[uuid.UUID]*models.Item, error) {
					return map[uuid.UUID]*models.Item{itemID: catalogItem}, nil
				}
			},
			check: func(t *testing.T, nq *models.NewQuotation) {
				l := nq.Lines[0]
				if l.Description != "Custom" {
					t.Errorf("expected description Custom, got %q", l.Description)
				}
				if got := l.LineTotal.StringFixed(2); got != "100.00" {
					t.Errorf("expected line total 100.00, got %s", got)
				}
			},
		},
		{
			name: "gst looked up by hsn",
			input: func() *CreateQuotationInput {
				in := validInput()
				in.Lines[0].GSTPercentage = nil
				in.Lines[0].HSN = "38220090"
				return in
			},
			mockSetup: func(mr *MockRepository) {
				mr.getHSNRate = func(_ context.Context, hsn string) (*models.HSNRate, error) {
					return &models.HSNRate{HSN: hsn, GSTPercentage: decimal.RequireFromString("18")}, nil
				}
			},
			check: func(t *testing.T, nq *models.NewQuotation) {
				if got := nq.Lines[0].GSTPercentage.String(); got != "18" {
					t.Errorf("expected gst 18, got %s", got)
				}
			},
		},
		{
			name: "quantity zero",
			input: func() *CreateQuotationInput {
				in := validInput()
				in.Lines[0].Quantity = 0
				return in
			},
			expectedError: e.ErrValidation,
		},
		{
			name: "negative discount",
			input: func() *CreateQuotationInput {
				in := validInput()
				in.Lines[0].DiscountPercentage = dec("-5")
				return in
			},
			expectedError: e.ErrValidation,
		},
		{
			name: "discount finer than the stored precision",
			input: func() *CreateQuotationInput {
				in := validInput()
				in.Lines[0].DiscountPercentage = dec("12.345")
				return in
			},
			expectedError: e.ErrValidation,
		},
		{
			name: "gst out of range",
			input: func() *CreateQuotationInput {
				in := validInput()
				in.Lines[0].GSTPercentage = dec("1000")
				return in
			},
			expectedError: e.ErrValidation,
		},
		{
			name: "unknown payment term",
			input: func() *CreateQuotationInput {
				in := validInput()
				in.PaymentTerms = "NET_90"
				return in
			},
			expectedError: e.ErrValidation,
		},
		{
			name: "no lines",
			input: func() *CreateQuotationInput {
				in := validInput()
				in.Lines = nil
				return in
			},
			expectedError: e.ErrValidation,
		},
		{
			name: "missing client",
			input: func() *CreateQuotationInput {
				in := validInput()
				in.ClientID = uuid.Nil
				return in
			},
			expectedError: e.ErrValidation,
		},
		{
			name: "missing unit rate",
			input: func() *CreateQuotationInput {
				in := validInput()
				in.Lines[0].UnitRate = nil
				return in
			},
			expectedError: e.ErrValidation,
		},
		{
			name: "gst unknown for hsn",
			input: func() *CreateQuotationInput {
				in := validInput()
				in.Lines[0].GSTPercentage = nil
				in.Lines[0].HSN = "99999999"
				return in
			},
			mockSetup: func(mr *MockRepository) {
				mr.getHSNRate = func(_ context.Context, _ string) (*models.HSNRate, error) {
					return nil, e.ErrNotFound
				}
			},
			expectedError: e.ErrValidation,
		},
		{
			name: "unknown catalog item",
			input: func() *CreateQuotationInput {
				in := validInput()
				in.Lines = []LineInput{{ItemID: &itemID, Quantity: 1}}
				return in
			},
			mockSetup: func(mr *MockRepository) {
				mr.getItems = func(_ context.Context, _ []uuid.UUID) (map[uuid.UUID]*models.Item, error) {
					return map[uuid.UUID]*models.Item{}, nil
				}
			},
			expectedError: e.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &MockRepository{}
			var captured *models.NewQuotation
			mockRepo.createQuotation = persistEcho(&captured)
			if tt.mockSetup != nil {
				tt.mockSetup(mockRepo)
			}
			mockProducer := &MockProducer{}
			service := newTestService(t, mockRepo, mockProducer)

			result, err := service.CreateQuotation(context.Background(), tt.input())

			if tt.expectedError != nil {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				if !errors.Is(err, tt.expectedError) {
					t.Errorf("expected error %v, got %v", tt.expectedError, err)
				}
				if mockRepo.called("CreateQuotation") {
					t.Error("repository write attempted for a rejected quotation")
				}
				if len(mockProducer.published()) != 0 {
					t.Error("expected no events for a rejected quotation")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.ReferenceNumber != "QT-2024-001" {
				t.Errorf("unexpected reference %q", result.ReferenceNumber)
			}
			if got := mockProducer.published(); len(got) != 1 || got[0] != events.QuotationCreated {
				t.Errorf("expected one creation event, got %v", got)
			}
			if tt.check != nil {
				tt.check(t, captured)
			}
		})
	}
}

func TestQuotationService_CreateQuotation_RepositoryErrors(t *testing.T) {
	for _, want := range []error{e.ErrNotFound, e.ErrConflict, e.ErrConfiguration} {
		t.Run(want.Error(), func(t *testing.T) {
			mockRepo := &MockRepository{
				createQuotation: func(context.Context, *models.NewQuotation) (*models.Quotation, error) {
					return nil, want
				},
			}
			mockProducer := &MockProducer{}
			service := newTestService(t, mockRepo, mockProducer)

			_, err := service.CreateQuotation(context.Background(), validInput())
			if !errors.Is(err, want) {
				t.Fatalf("expected %v, got %v", want, err)
			}
			if len(mockProducer.published()) != 0 {
				t.Error("expected no events")
			}
		})
	}
}

func TestQuotationService_LookupGST_UsesCache(t *testing.T) {
	mockRepo := &MockRepository{}
	rates := &fixedRates{rates: map[string]decimal.Decimal{"30049099": decimal.RequireFromString("12")}}
	service := newTestService(t, mockRepo, &MockProducer{}, WithRateCache(rates))

	rate, err := service.LookupGST(context.Background(), "30049099")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rate.String() != "12" {
		t.Errorf("expected 12, got %s", rate)
	}
	if rates.hits != 1 || mockRepo.called("GetHSNRate") {
		t.Error("expected rate to be served from the cache")
	}

	if _, err := service.LookupGST(context.Background(), ""); !errors.Is(err, e.ErrValidation) {
		t.Errorf("expected validation error for empty hsn, got %v", err)
	}
}

func TestQuotationService_GetQuotation(t *testing.T) {
	testID := uuid.New()

	tests := []struct {
		name          string
		getQuotation  func(context.Context, uuid.UUID) (*models.Quotation, error)
		expectError   bool
		expectedError error
	}{
		{
			name: "found",
			getQuotation: func(_ context.Context, id uuid.UUID) (*models.Quotation, error) {
				return &models.Quotation{ID: id}, nil
			},
		},
		{
			name: "not found",
			getQuotation: func(context.Context, uuid.UUID) (*models.Quotation, error) {
				return nil, e.ErrNotFound
			},
			expectError:   true,
			expectedError: e.ErrNotFound,
		},
		{
			name: "database error",
			getQuotation: func(context.Context, uuid.UUID) (*models.Quotation, error) {
				return nil, errors.New("connection reset")
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newTestService(t, &MockRepository{getQuotation: tt.getQuotation}, &MockProducer{})

			result, err := service.GetQuotation(context.Background(), testID)

			if tt.expectError {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				if tt.expectedError != nil && !errors.Is(err, tt.expectedError) {
					t.Errorf("expected error %v, got %v", tt.expectedError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.ID != testID {
				t.Errorf("expected ID %s, got %s", testID, result.ID)
			}
		})
	}
}

// docFixture wires a repository that resolves one complete quotation.
func docFixture(t *testing.T) (*MockRepository, *models.Quotation) {
	t.Helper()
	company := &models.Company{ID: uuid.New(), Name: "Tech Solutions Inc.", RefFormat: "TS-{YYYY}-{NUM}", LastQuoteNumber: 4}
	employee := &models.Employee{ID: uuid.New(), Name: "Priya Sharma"}
	client := &models.Client{ID: uuid.New(), CompanyID: company.ID, Name: "Dr. Rao", BusinessName: "Rao Labs"}
	details := models.LineDetails{
		Description:   "Buffer Solution",
		Quantity:      2,
		UnitRate:      decimal.RequireFromString("100"),
		GSTPercentage: decimal.RequireFromString("18"),
	}
	q := &models.Quotation{
		ID:              uuid.New(),
		CompanyID:       company.ID,
		EmployeeID:      employee.ID,
		ClientID:        client.ID,
		ReferenceNumber: "TS-2024-005",
		Date:            fixedNow,
		PaymentTerms:    models.PaymentNet30,
		Lines: []models.QuotationLine{
			models.NewQuotationLine(1, details, mustPrice(t, details)),
		},
		SubTotal:   decimal.RequireFromString("200"),
		TotalGST:   decimal.RequireFromString("36"),
		GrandTotal: decimal.RequireFromString("236"),
	}

	repo := &MockRepository{
		getQuotation: func(_ context.Context, id uuid.UUID) (*models.Quotation, error) {
			if id != q.ID {
				return nil, e.ErrNotFound
			}
			copied := *q
			return &copied, nil
		},
		getCompany: func(_ context.Context, id uuid.UUID) (*models.Company, error) {
			if id != company.ID {
				return nil, e.ErrNotFound
			}
			return company, nil
		},
		getEmployee: func(context.Context, uuid.UUID) (*models.Employee, error) { return employee, nil },
		getClient:   func(context.Context, uuid.UUID) (*models.Client, error) { return client, nil },
		setDocumentPath: func(context.Context, uuid.UUID, string) error {
			return nil
		},
		deleteQuotation: func(context.Context, uuid.UUID) error { return nil },
	}
	return repo, q
}

func mustPrice(t *testing.T, d models.LineDetails) pricing.Amounts {
	t.Helper()
	amounts, _, err := pricing.Quote([]pricing.Line{d.PricingInput()})
	if err != nil {
		t.Fatalf("pricing fixture: %v", err)
	}
	return amounts[0]
}

func TestQuotationService_GenerateDocument(t *testing.T) {
	repo, q := docFixture(t)
	var recorded string
	repo.setDocumentPath = func(_ context.Context, _ uuid.UUID, path string) error {
		recorded = path
		return nil
	}
	store := newMemStore()
	producer := &MockProducer{}
	service := NewQuotationService(repo, render.NewEngine(render.DefaultCurrencySymbol), store, producer, zaptest.NewLogger(t))

	updated, art, err := service.GenerateDocument(context.Background(), q.ID, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if art.Name != "quotation_TS-2024-005.docx" {
		t.Errorf("unexpected file name %q", art.Name)
	}
	if art.Key != render.StorageKey(q.ID, q.ReferenceNumber, render.FormatDOCX) {
		t.Errorf("unexpected storage key %q", art.Key)
	}
	if recorded != art.Key || updated.GeneratedDocumentPath != art.Key {
		t.Errorf("document path not recorded: %q / %q", recorded, updated.GeneratedDocumentPath)
	}
	if _, ok := store.files[art.Key]; !ok {
		t.Error("artifact not stored")
	}
	if got := producer.published(); len(got) != 1 || got[0] != events.DocumentGenerated {
		t.Errorf("expected a document event, got %v", got)
	}
}

func TestQuotationService_SameReferenceAcrossCompanies(t *testing.T) {
	repoA, qa := docFixture(t)
	repoB, qb := docFixture(t)
	if qa.ReferenceNumber != qb.ReferenceNumber {
		t.Fatal("fixtures must share a reference number")
	}

	paths := map[uuid.UUID]string{}
	pick := func(id uuid.UUID) *MockRepository {
		if id == qb.ID {
			return repoB
		}
		return repoA
	}
	repo := &MockRepository{
		getQuotation: func(ctx context.Context, id uuid.UUID) (*models.Quotation, error) {
			q, err := pick(id).getQuotation(ctx, id)
			if err != nil {
				return nil, err
			}
			q.GeneratedDocumentPath = paths[id]
			return q, nil
		},
		getCompany: func(ctx context.Context, id uuid.UUID) (*models.Company, error) {
			if id == qb.CompanyID {
				return repoB.getCompany(ctx, id)
			}
			return repoA.getCompany(ctx, id)
		},
		getEmployee: repoA.getEmployee,
		getClient:   repoA.getClient,
		setDocumentPath: func(_ context.Context, id uuid.UUID, path string) error {
			paths[id] = path
			return nil
		},
		deleteQuotation: func(context.Context, uuid.UUID) error { return nil },
	}
	store := newMemStore()
	service := NewQuotationService(repo, render.NewEngine(render.DefaultCurrencySymbol), store, nil, zaptest.NewLogger(t))

	_, artA, err := service.GenerateDocument(context.Background(), qa.ID, render.FormatDOCX)
	if err != nil {
		t.Fatalf("generate A: %v", err)
	}
	_, artB, err := service.GenerateDocument(context.Background(), qb.ID, render.FormatDOCX)
	if err != nil {
		t.Fatalf("generate B: %v", err)
	}
	if artA.Key == artB.Key {
		t.Fatalf("artifacts share storage key %q", artA.Key)
	}
	if artA.Name != artB.Name {
		t.Errorf("display names should both follow the reference: %q / %q", artA.Name, artB.Name)
	}

	if err := service.DeleteQuotation(context.Background(), qb.ID); err != nil {
		t.Fatalf("delete B: %v", err)
	}
	if _, ok := store.files[artA.Key]; !ok {
		t.Error("deleting B removed A's artifact")
	}
	if _, ok := store.files[artB.Key]; ok {
		t.Error("B's artifact survived its deletion")
	}
	if _, err := service.OpenDocument(artA.Key); err != nil {
		t.Errorf("A's artifact no longer opens: %v", err)
	}
}

func TestQuotationService_GenerateDocument_Errors(t *testing.T) {
	t.Run("unknown quotation", func(t *testing.T) {
		repo, _ := docFixture(t)
		service := newTestService(t, repo, &MockProducer{})

		_, _, err := service.GenerateDocument(context.Background(), uuid.New(), render.FormatPDF)
		if !errors.Is(err, e.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("vanished company", func(t *testing.T) {
		repo, q := docFixture(t)
		repo.getCompany = func(context.Context, uuid.UUID) (*models.Company, error) {
			return nil, e.ErrNotFound
		}
		service := newTestService(t, repo, &MockProducer{})

		_, _, err := service.GenerateDocument(context.Background(), q.ID, render.FormatDOCX)
		if !errors.Is(err, e.ErrRender) {
			t.Fatalf("expected render error, got %v", err)
		}
		if repo.called("SetDocumentPath") {
			t.Error("document path recorded for a failed render")
		}
	})

	t.Run("renderer failure", func(t *testing.T) {
		repo, q := docFixture(t)
		producer := &MockProducer{}
		service := NewQuotationService(repo, failingRenderer{err: e.ErrRender}, newMemStore(), producer, zaptest.NewLogger(t))

		_, _, err := service.GenerateDocument(context.Background(), q.ID, render.FormatXLSX)
		if !errors.Is(err, e.ErrRender) {
			t.Fatalf("expected render error, got %v", err)
		}
		if len(producer.published()) != 0 {
			t.Error("expected no events")
		}
	})
}

func TestQuotationService_DownloadDocument(t *testing.T) {
	repo, q := docFixture(t)
	store := newMemStore()
	service := NewQuotationService(repo, render.NewEngine(render.DefaultCurrencySymbol), store, nil, zaptest.NewLogger(t))

	for _, f := range render.Formats() {
		art, err := service.DownloadDocument(context.Background(), q.ID, f)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", f, err)
		}
		if len(art.Data) == 0 || art.ContentType != f.ContentType() {
			t.Errorf("%s: unexpected artifact %q (%s)", f, art.Name, art.ContentType)
		}
	}
	if len(store.files) != 0 || repo.called("SetDocumentPath") {
		t.Error("download must not store anything")
	}
}

func TestQuotationService_SealFallback(t *testing.T) {
	repo, q := docFixture(t)
	company, _ := repo.getCompany(context.Background(), q.CompanyID)
	company.SealImagePath = "seals/missing.png"
	service := NewQuotationService(repo, render.NewEngine(render.DefaultCurrencySymbol), newMemStore(), nil,
		zaptest.NewLogger(t), WithAssetsDir(t.TempDir()))

	if _, err := service.DownloadDocument(context.Background(), q.ID, render.FormatDOCX); err != nil {
		t.Fatalf("missing seal should not fail rendering: %v", err)
	}
}

func TestQuotationService_LoadDocument_ReadsSeal(t *testing.T) {
	repo, q := docFixture(t)
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "seals"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "seals", "ts.png"), []byte("png-bytes"), 0o600); err != nil {
		t.Fatal(err)
	}
	company, _ := repo.getCompany(context.Background(), q.CompanyID)
	company.SealImagePath = "../seals/ts.png"
	service := newTestService(t, repo, &MockProducer{}, WithAssetsDir(dir))

	doc, err := service.loadDocument(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(doc.Seal) != "png-bytes" {
		t.Errorf("seal not loaded from the assets dir, got %q", doc.Seal)
	}
}

func TestQuotationService_DeleteQuotation(t *testing.T) {
	t.Run("removes stored artifacts", func(t *testing.T) {
		repo, q := docFixture(t)
		store := newMemStore()
		store.files[render.StorageKey(q.ID, q.ReferenceNumber, render.FormatDOCX)] = []byte("doc")
		store.files[render.StorageKey(q.ID, q.ReferenceNumber, render.FormatPDF)] = []byte("pdf")
		store.files[render.StorageKey(uuid.New(), q.ReferenceNumber, render.FormatPDF)] = []byte("other")
		producer := &MockProducer{}
		service := NewQuotationService(repo, render.NewEngine(render.DefaultCurrencySymbol), store, producer, zaptest.NewLogger(t))

		if err := service.DeleteQuotation(context.Background(), q.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(store.files) != 1 {
			t.Errorf("expected only the unrelated artifact to remain, got %v", store.files)
		}
		if got := producer.published(); len(got) != 1 || got[0] != events.QuotationDeleted {
			t.Errorf("expected a deletion event, got %v", got)
		}
	})

	t.Run("artifact removal failure is not fatal", func(t *testing.T) {
		repo, q := docFixture(t)
		store := newMemStore()
		store.removeErr = errors.New("permission denied")
		service := NewQuotationService(repo, render.NewEngine(render.DefaultCurrencySymbol), store, nil, zaptest.NewLogger(t))

		if err := service.DeleteQuotation(context.Background(), q.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		repo, _ := docFixture(t)
		service := newTestService(t, repo, &MockProducer{})

		err := service.DeleteQuotation(context.Background(), uuid.New())
		if !errors.Is(err, e.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
		if repo.called("DeleteQuotation") {
			t.Error("delete attempted for a missing quotation")
		}
	})
}

func TestQuotationService_PreviewReference(t *testing.T) {
	repo, q := docFixture(t)
	service := newTestService(t, repo, &MockProducer{})

	ref, err := service.PreviewReference(context.Background(), q.CompanyID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Number != "TS-2024-005" || ref.Counter != 5 {
		t.Errorf("unexpected preview %+v", ref)
	}

	if _, err := service.PreviewReference(context.Background(), uuid.New()); !errors.Is(err, e.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestErrorKind(t *testing.T) {
	cases := map[error]string{
		e.ErrValidation:    "validation",
		e.ErrNotFound:      "not_found",
		e.ErrConflict:      "conflict",
		e.ErrRender:        "render",
		e.ErrConfiguration: "configuration",
		errors.New("boom"): "internal",
	}
	for err, want := range cases {
		if got := ErrorKind(err); got != want {
			t.Errorf("ErrorKind(%v) = %q, want %q", err, got, want)
		}
	}
}
