// Package controller implements the quotation service layer: it validates
// and prices incoming quotations, hands them to the repository for reference
// allocation, and drives document generation and download.
package controller

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	e "github.com/gartstein/quotation/internal/quotation/errors"
	"github.com/gartstein/quotation/internal/quotation/events"
	"github.com/gartstein/quotation/internal/quotation/metrics"
	"github.com/gartstein/quotation/internal/quotation/models"
	"github.com/gartstein/quotation/internal/quotation/pricing"
	"github.com/gartstein/quotation/internal/quotation/refnum"
	"github.com/gartstein/quotation/internal/quotation/render"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Repository defines the storage the service needs.
type Repository interface {
	CreateQuotation(ctx context.Context, nq *models.NewQuotation) (*models.Quotation, error)
	GetQuotation(ctx context.Context, id uuid.UUID) (*models.Quotation, error)
	ListQuotations(ctx context.Context, filter models.QuotationFilter) ([]*models.Quotation, error)
	DeleteQuotation(ctx context.Context, id uuid.UUID) error
	SetDocumentPath(ctx context.Context, id uuid.UUID, path string) error

	GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error)
	ListCompanies(ctx context.Context) ([]*models.Company, error)
	GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error)
	ListEmployees(ctx context.Context) ([]*models.Employee, error)
	GetClient(ctx context.Context, id uuid.UUID) (*models.Client, error)
	ListClients(ctx context.Context, companyID *uuid.UUID) ([]*models.Client, error)
	GetItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Item, error)
	ListItems(ctx context.Context) ([]*models.Item, error)
	GetHSNRate(ctx context.Context, hsn string) (*models.HSNRate, error)

	Ping(ctx context.Context) error
}

// Renderer lays out a resolved quotation.
type Renderer interface {
	Render(doc *models.QuotationDocument, format render.Format) (*render.Artifact, error)
}

// DocumentStore keeps generated artifacts by file name.
type DocumentStore interface {
	Save(name string, data []byte) error
	Open(name string) (*os.File, error)
	Remove(name string) error
}

// RateCache fronts the HSN rate table.
type RateCache interface {
	Rate(ctx context.Context, hsn string, loader func(context.Context) (decimal.Decimal, error)) (decimal.Decimal, error)
}

type Option func(*QuotationService)

// WithRateCache caches HSN rate lookups.
func WithRateCache(c RateCache) Option {
	return func(s *QuotationService) { s.rates = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *QuotationService) { s.metrics = m }
}

// WithClock replaces the time source used to date new quotations.
func WithClock(now func() time.Time) Option {
	return func(s *QuotationService) { s.now = now }
}

// WithAssetsDir sets the directory seal image paths are relative to.
func WithAssetsDir(dir string) Option {
	return func(s *QuotationService) { s.assetsDir = dir }
}

// WithDefaultFormat sets the format used when a request names none.
func WithDefaultFormat(f render.Format) Option {
	return func(s *QuotationService) { s.defaultFormat = f }
}

// QuotationService provides the quotation operations on top of the
// repository, the renderer and the artifact store.
type QuotationService struct {
	repo          Repository
	renderer      Renderer
	store         DocumentStore
	producer      events.Publisher
	rates         RateCache
	metrics       *metrics.Metrics
	logger        *zap.Logger
	now           func() time.Time
	assetsDir     string
	defaultFormat render.Format
}

func NewQuotationService(repo Repository, renderer Renderer, store DocumentStore, producer events.Publisher, logger *zap.Logger, opts ...Option) *QuotationService {
	s := &QuotationService{
		repo:          repo,
		renderer:      renderer,
		store:         store,
		producer:      producer,
		logger:        logger.Named("quotation_service"),
		now:           func() time.Time { return time.Now().UTC() },
		defaultFormat: render.FormatDOCX,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.producer == nil {
		s.producer = events.Nop{}
	}
	return s
}

// LineInput is one requested line. Nil amounts are filled from the catalog
// item (ItemID) and, for GST, from the HSN rate table.
type LineInput struct {
	ItemID             *uuid.UUID
	CatalogueID        string
	Description        string
	PackSize           string
	Quantity           int
	HSN                string
	UnitRate           *decimal.Decimal
	DiscountPercentage *decimal.Decimal
	GSTPercentage      *decimal.Decimal
	LeadTime           string
	Brand              string
}

type CreateQuotationInput struct {
	CompanyID    uuid.UUID
	EmployeeID   uuid.UUID
	ClientID     uuid.UUID
	PaymentTerms models.PaymentTerm
	Lines        []LineInput
}

// CreateQuotation validates and prices the input, then persists it with a
// freshly allocated reference number. Nothing is written unless every step
// succeeds.
func (s *QuotationService) CreateQuotation(ctx context.Context, in *CreateQuotationInput) (*models.Quotation, error) {
	log := s.logger.With(zap.String("company_id", in.CompanyID.String()))
	log.Debug("validating quotation", zap.Int("lines", len(in.Lines)))

	details, err := s.resolveLines(ctx, in)
	if err != nil {
		return nil, s.reject(log, "create", err)
	}

	log.Debug("pricing quotation")
	inputs := make([]pricing.Line, 0, len(details))
	for _, d := range details {
		inputs = append(inputs, d.PricingInput())
	}
	amounts, totals, err := pricing.Quote(inputs)
	if err != nil {
		return nil, s.reject(log, "create", err)
	}

	nq := &models.NewQuotation{
		Header: models.QuotationHeader{
			CompanyID:    in.CompanyID,
			EmployeeID:   in.EmployeeID,
			ClientID:     in.ClientID,
			PaymentTerms: in.PaymentTerms,
			Date:         s.now(),
		},
		Totals: totals,
	}
	for i, d := range details {
		nq.Lines = append(nq.Lines, models.NewQuotationLine(i+1, d, amounts[i]))
	}

	log.Debug("persisting quotation")
	q, err := s.repo.CreateQuotation(ctx, nq)
	if err != nil {
		return nil, s.reject(log, "create", err)
	}

	log.Debug("reference allocated", zap.String("reference_number", q.ReferenceNumber))
	log.Info("quotation committed",
		zap.String("quotation_id", q.ID.String()),
		zap.String("reference_number", q.ReferenceNumber),
		zap.String("grand_total", q.GrandTotal.StringFixed(2)),
	)
	if s.metrics != nil {
		s.metrics.QuotationsCreated.Inc()
	}
	s.producer.Publish(events.QuotationCreated, q)
	return q, nil
}

func (s *QuotationService) resolveLines(ctx context.Context, in *CreateQuotationInput) ([]models.LineDetails, error) {
	switch {
	case in.CompanyID == uuid.Nil:
		return nil, fmt.Errorf("%w: company_id is required", e.ErrValidation)
	case in.EmployeeID == uuid.Nil:
		return nil, fmt.Errorf("%w: employee_id is required", e.ErrValidation)
	case in.ClientID == uuid.Nil:
		return nil, fmt.Errorf("%w: client_id is required", e.ErrValidation)
	case !in.PaymentTerms.Valid():
		return nil, fmt.Errorf("%w: payment_terms %q is not a known option", e.ErrValidation, in.PaymentTerms)
	case len(in.Lines) == 0:
		return nil, fmt.Errorf("%w: at least one item is required", e.ErrValidation)
	}

	var ids []uuid.UUID
	for _, l := range in.Lines {
		if l.ItemID != nil {
			ids = append(ids, *l.ItemID)
		}
	}
	items := map[uuid.UUID]*models.Item{}
	if len(ids) > 0 {
		var err error
		if items, err = s.repo.GetItems(ctx, ids); err != nil {
			return nil, fmt.Errorf("failed to load catalog items: %w", err)
		}
	}

	details := make([]models.LineDetails, 0, len(in.Lines))
	for i, l := range in.Lines {
		d, err := s.resolveLine(ctx, l, items)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		details = append(details, d)
	}
	return details, nil
}

func (s *QuotationService) resolveLine(ctx context.Context, l LineInput, items map[uuid.UUID]*models.Item) (models.LineDetails, error) {
	d := models.LineDetails{
		ItemID:      l.ItemID,
		CatalogueID: l.CatalogueID,
		Description: l.Description,
		PackSize:    l.PackSize,
		Quantity:    l.Quantity,
		HSN:         l.HSN,
		LeadTime:    l.LeadTime,
		Brand:       l.Brand,
	}
	unitRate, discount, gst := l.UnitRate, l.DiscountPercentage, l.GSTPercentage

	if l.ItemID != nil {
		item, ok := items[*l.ItemID]
		if !ok {
			return d, fmt.Errorf("%w: item %s", e.ErrNotFound, *l.ItemID)
		}
		d.CatalogueID = firstNonEmpty(d.CatalogueID, item.CatalogueID)
		d.Description = firstNonEmpty(d.Description, item.Description)
		d.PackSize = firstNonEmpty(d.PackSize, item.PackSize)
		d.HSN = firstNonEmpty(d.HSN, item.HSN)
		d.Brand = firstNonEmpty(d.Brand, item.Brand)
		if unitRate == nil {
			unitRate = &item.UnitPrice
		}
		if gst == nil {
			gst = &item.GSTPercentage
		}
	}

	if gst == nil && d.HSN != "" {
		rate, err := s.LookupGST(ctx, d.HSN)
		switch {
		case err == nil:
			gst = &rate
		case errors.Is(err, e.ErrNotFound):
			return d, fmt.Errorf("%w: gst_percentage is required, no rate known for HSN %s", e.ErrValidation, d.HSN)
		default:
			return d, err
		}
	}

	switch {
	case d.Description == "":
		return d, fmt.Errorf("%w: description is required", e.ErrValidation)
	case unitRate == nil:
		return d, fmt.Errorf("%w: unit_rate is required", e.ErrValidation)
	case gst == nil:
		return d, fmt.Errorf("%w: gst_percentage is required", e.ErrValidation)
	}
	d.UnitRate = *unitRate
	d.GSTPercentage = *gst
	if discount != nil {
		d.DiscountPercentage = *discount
	}
	return d, nil
}

// GetQuotation retrieves a quotation with its lines.
func (s *QuotationService) GetQuotation(ctx context.Context, id uuid.UUID) (*models.Quotation, error) {
	q, err := s.repo.GetQuotation(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get quotation: %w", err)
	}
	return q, nil
}

func (s *QuotationService) ListQuotations(ctx context.Context, filter models.QuotationFilter) ([]*models.Quotation, error) {
	list, err := s.repo.ListQuotations(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotations: %w", err)
	}
	return list, nil
}

// DeleteQuotation removes a quotation and its lines, then any stored
// artifacts. The company counter is not rolled back.
func (s *QuotationService) DeleteQuotation(ctx context.Context, id uuid.UUID) error {
	q, err := s.repo.GetQuotation(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return s.reject(s.logger, "delete", err)
		}
		return fmt.Errorf("failed to get quotation for deletion: %w", err)
	}

	if err := s.repo.DeleteQuotation(ctx, id); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return s.reject(s.logger, "delete", err)
		}
		return fmt.Errorf("failed to delete quotation: %w", err)
	}

	for _, name := range artifactKeys(q) {
		if err := s.store.Remove(name); err != nil {
			s.logger.Warn("failed to remove generated document",
				zap.Error(err),
				zap.String("quotation_id", id.String()),
				zap.String("file", name),
			)
		}
	}

	s.logger.Info("quotation deleted",
		zap.String("quotation_id", id.String()),
		zap.String("reference_number", q.ReferenceNumber),
	)
	if s.metrics != nil {
		s.metrics.QuotationsDeleted.Inc()
	}
	s.producer.Publish(events.QuotationDeleted, q)
	return nil
}

// artifactKeys lists the stored artifacts that belong to q: the recorded
// document plus the key of every format, all scoped to the quotation id.
func artifactKeys(q *models.Quotation) []string {
	keys := make([]string, 0, len(render.Formats())+1)
	if q.GeneratedDocumentPath != "" {
		keys = append(keys, q.GeneratedDocumentPath)
	}
	for _, f := range render.Formats() {
		if k := render.StorageKey(q.ID, q.ReferenceNumber, f); k != q.GeneratedDocumentPath {
			keys = append(keys, k)
		}
	}
	return keys
}

// GenerateDocument renders the quotation, stores the artifact and records
// its name on the quotation.
func (s *QuotationService) GenerateDocument(ctx context.Context, id uuid.UUID, format render.Format) (*models.Quotation, *render.Artifact, error) {
	q, art, err := s.renderQuotation(ctx, id, format)
	if err != nil {
		return nil, nil, s.reject(s.logger, "generate", err)
	}

	if err := s.store.Save(art.Key, art.Data); err != nil {
		return nil, nil, s.reject(s.logger, "generate", err)
	}
	if err := s.repo.SetDocumentPath(ctx, q.ID, art.Key); err != nil {
		return nil, nil, s.reject(s.logger, "generate", fmt.Errorf("failed to record document: %w", err))
	}
	q.GeneratedDocumentPath = art.Key

	s.logger.Info("document generated",
		zap.String("quotation_id", q.ID.String()),
		zap.String("file", art.Key),
	)
	s.producer.Publish(events.DocumentGenerated, q)
	return q, art, nil
}

// DownloadDocument renders the quotation for streaming without storing it.
func (s *QuotationService) DownloadDocument(ctx context.Context, id uuid.UUID, format render.Format) (*render.Artifact, error) {
	_, art, err := s.renderQuotation(ctx, id, format)
	if err != nil {
		return nil, s.reject(s.logger, "download", err)
	}
	return art, nil
}

// OpenDocument opens a previously generated artifact by file name.
func (s *QuotationService) OpenDocument(name string) (*os.File, error) {
	f, err := s.store.Open(name)
	if err != nil {
		return nil, s.reject(s.logger, "download", err)
	}
	return f, nil
}

func (s *QuotationService) renderQuotation(ctx context.Context, id uuid.UUID, format render.Format) (*models.Quotation, *render.Artifact, error) {
	if format == "" {
		format = s.defaultFormat
	}
	log := s.logger.With(zap.String("quotation_id", id.String()), zap.String("format", string(format)))
	log.Debug("document requested")

	q, err := s.repo.GetQuotation(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	doc, err := s.loadDocument(ctx, q)
	if err != nil {
		return nil, nil, err
	}

	started := time.Now()
	art, err := s.renderer.Render(doc, format)
	if err != nil {
		return nil, nil, err
	}
	s.metrics.ObserveRender(string(format), started)
	log.Debug("document rendered", zap.String("file", art.Name), zap.Int("bytes", len(art.Data)))
	return q, art, nil
}

// loadDocument resolves every record the document prints. A collaborator
// that has vanished is a render failure, not a missing quotation.
func (s *QuotationService) loadDocument(ctx context.Context, q *models.Quotation) (*models.QuotationDocument, error) {
	doc := &models.QuotationDocument{Quotation: q}
	var err error

	if doc.Company, err = s.repo.GetCompany(ctx, q.CompanyID); err != nil {
		return nil, unresolved(err)
	}
	if doc.Employee, err = s.repo.GetEmployee(ctx, q.EmployeeID); err != nil {
		return nil, unresolved(err)
	}
	if doc.Client, err = s.repo.GetClient(ctx, q.ClientID); err != nil {
		return nil, unresolved(err)
	}

	var ids []uuid.UUID
	for _, l := range q.Lines {
		if l.ItemID != nil {
			ids = append(ids, *l.ItemID)
		}
	}
	doc.Items = map[uuid.UUID]*models.Item{}
	if len(ids) > 0 {
		if doc.Items, err = s.repo.GetItems(ctx, ids); err != nil {
			return nil, err
		}
	}

	if doc.Company.SealImagePath != "" {
		// Clean against "/" first so the path cannot climb out of the assets dir.
		path := filepath.Join(s.assetsDir, filepath.Clean("/"+doc.Company.SealImagePath))
		seal, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("seal image unavailable",
				zap.Error(err),
				zap.String("company_id", doc.Company.ID.String()),
				zap.String("path", path),
			)
		} else {
			doc.Seal = seal
		}
	}
	return doc, nil
}

func unresolved(err error) error {
	if errors.Is(err, e.ErrNotFound) {
		return fmt.Errorf("%w: %v", e.ErrRender, err)
	}
	return err
}

// PreviewReference shows the reference the company's next quotation would
// get. Nothing is reserved.
func (s *QuotationService) PreviewReference(ctx context.Context, companyID uuid.UUID) (refnum.Reference, error) {
	company, err := s.repo.GetCompany(ctx, companyID)
	if err != nil {
		return refnum.Reference{}, err
	}
	return refnum.Next(company, s.now().Year())
}

// LookupGST returns the GST percentage of an HSN code.
func (s *QuotationService) LookupGST(ctx context.Context, hsn string) (decimal.Decimal, error) {
	if hsn == "" {
		return decimal.Zero, fmt.Errorf("%w: hsn code is required", e.ErrValidation)
	}
	load := func(ctx context.Context) (decimal.Decimal, error) {
		rate, err := s.repo.GetHSNRate(ctx, hsn)
		if err != nil {
			return decimal.Zero, err
		}
		return rate.GSTPercentage, nil
	}
	if s.rates == nil {
		return load(ctx)
	}
	return s.rates.Rate(ctx, hsn, load)
}

func (s *QuotationService) ListCompanies(ctx context.Context) ([]*models.Company, error) {
	return s.repo.ListCompanies(ctx)
}

func (s *QuotationService) ListEmployees(ctx context.Context) ([]*models.Employee, error) {
	return s.repo.ListEmployees(ctx)
}

// ListClients lists clients, narrowed to one company when companyID is set.
func (s *QuotationService) ListClients(ctx context.Context, companyID *uuid.UUID) ([]*models.Client, error) {
	return s.repo.ListClients(ctx, companyID)
}

func (s *QuotationService) ListItems(ctx context.Context) ([]*models.Item, error) {
	return s.repo.ListItems(ctx)
}

// Health reports whether the database answers.
func (s *QuotationService) Health(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// reject logs a failed operation, counts it and returns err unchanged.
func (s *QuotationService) reject(log *zap.Logger, operation string, err error) error {
	kind := ErrorKind(err)
	fields := []zap.Field{zap.String("operation", operation), zap.String("kind", kind), zap.Error(err)}
	if kind == "internal" || kind == "render" || kind == "conflict" || kind == "configuration" {
		log.Error("quotation request rejected", fields...)
	} else {
		log.Info("quotation request rejected", fields...)
	}
	s.metrics.Failure(operation, kind)
	return err
}

// ErrorKind classifies err by its sentinel.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, e.ErrValidation):
		return "validation"
	case errors.Is(err, e.ErrNotFound):
		return "not_found"
	case errors.Is(err, e.ErrConfiguration):
		return "configuration"
	case errors.Is(err, e.ErrConflict):
		return "conflict"
	case errors.Is(err, e.ErrRender):
		return "render"
	default:
		return "internal"
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
