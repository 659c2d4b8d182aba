package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gartstein/quotation/internal/quotation/controller"
	e "github.com/gartstein/quotation/internal/quotation/errors"
	"github.com/gartstein/quotation/internal/quotation/metrics"
	"github.com/gartstein/quotation/internal/quotation/models"
	"github.com/gartstein/quotation/internal/quotation/refnum"
	"github.com/gartstein/quotation/internal/quotation/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxRequestBody = 1 << 20

// QuotationController defines the business logic the HTTP handlers invoke.
type QuotationController interface {
	CreateQuotation(ctx context.Context, in *controller.CreateQuotationInput) (*models.Quotation, error)
	GetQuotation(ctx context.Context, id uuid.UUID) (*models.Quotation, error)
	ListQuotations(ctx context.Context, filter models.QuotationFilter) ([]*models.Quotation, error)
	DeleteQuotation(ctx context.Context, id uuid.UUID) error
	GenerateDocument(ctx context.Context, id uuid.UUID, format render.Format) (*models.Quotation, *render.Artifact, error)
	DownloadDocument(ctx context.Context, id uuid.UUID, format render.Format) (*render.Artifact, error)
	OpenDocument(name string) (*os.File, error)
	PreviewReference(ctx context.Context, companyID uuid.UUID) (refnum.Reference, error)
	LookupGST(ctx context.Context, hsn string) (decimal.Decimal, error)
	ListCompanies(ctx context.Context) ([]*models.Company, error)
	ListEmployees(ctx context.Context) ([]*models.Employee, error)
	ListClients(ctx context.Context, companyID *uuid.UUID) ([]*models.Client, error)
	ListItems(ctx context.Context) ([]*models.Item, error)
	Health(ctx context.Context) error
}

// QuotationHandler serves the REST API of the quotation service.
type QuotationHandler struct {
	service  QuotationController
	validate *validator.Validate
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewQuotationHandler constructs a QuotationHandler. m may be nil.
func NewQuotationHandler(service QuotationController, m *metrics.Metrics, logger *zap.Logger) *QuotationHandler {
	return &QuotationHandler{
		service:  service,
		validate: newValidator(),
		metrics:  m,
		logger:   logger.Named("http_handler"),
	}
}

type route struct {
	method  string
	pattern string
	handler runtime.HandlerFunc
}

// Routes builds the gateway mux with every API route registered.
func (h *QuotationHandler) Routes() (http.Handler, error) {
	mux := runtime.NewServeMux(runtime.WithRoutingErrorHandler(h.routingError))

	routes := []route{
		{http.MethodPost, "/api/quotations", h.createQuotation},
		{http.MethodGet, "/api/quotations", h.listQuotations},
		{http.MethodGet, "/api/quotations/{id}", h.getQuotation},
		{http.MethodDelete, "/api/quotations/{id}", h.deleteQuotation},
		{http.MethodPost, "/api/quotations/{id}/generate", h.generateDocument},
		{http.MethodGet, "/api/quotations/{id}/download", h.downloadDocument},
		{http.MethodGet, "/api/download-quotation/{filename}", h.downloadStored},
		{http.MethodGet, "/api/companies", h.listCompanies},
		{http.MethodGet, "/api/companies/{id}/next-reference", h.nextReference},
		{http.MethodGet, "/api/employees", h.listEmployees},
		{http.MethodGet, "/api/clients", h.listClients},
		{http.MethodGet, "/api/items", h.listItems},
		{http.MethodGet, "/api/hsn/{code}/gst", h.lookupGST},
		{http.MethodGet, "/api/health", h.health},
	}
	if h.metrics != nil {
		routes = append(routes, route{http.MethodGet, "/metrics", func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
			h.metrics.Handler().ServeHTTP(w, r)
		}})
	}

	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.pattern, h.instrument(rt.pattern, rt.handler)); err != nil {
			return nil, fmt.Errorf("failed to register %s %s: %w", rt.method, rt.pattern, err)
		}
	}
	return mux, nil
}

func (h *QuotationHandler) instrument(pattern string, fn runtime.HandlerFunc) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		h.metrics.Instrument(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fn(w, r, params)
		})).ServeHTTP(w, r)
	}
}

func (h *QuotationHandler) routingError(_ context.Context, _ *runtime.ServeMux, _ runtime.Marshaler, w http.ResponseWriter, _ *http.Request, status int) {
	switch status {
	case http.StatusMethodNotAllowed:
		writeError(w, status, "method not allowed")
	case http.StatusNotFound:
		writeError(w, status, "not found")
	default:
		writeError(w, status, http.StatusText(status))
	}
}

func (h *QuotationHandler) createQuotation(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req createQuotationRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		h.writeServiceError(w, fmt.Errorf("%w: malformed request body: %v", e.ErrValidation, err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.writeServiceError(w, validationError(err))
		return
	}

	created, err := h.service.CreateQuotation(r.Context(), req.toInput())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toQuotationResponse(created, true))
}

func (h *QuotationHandler) listQuotations(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var filter models.QuotationFilter
	var err error
	if filter.CompanyID, err = optionalUUID(r, "company_id"); err != nil {
		h.writeServiceError(w, err)
		return
	}
	if filter.ClientID, err = optionalUUID(r, "client_id"); err != nil {
		h.writeServiceError(w, err)
		return
	}

	list, err := h.service.ListQuotations(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	out := make([]quotationResponse, 0, len(list))
	for _, q := range list {
		out = append(out, toQuotationResponse(q, false))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *QuotationHandler) getQuotation(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, err := pathUUID(params, "id")
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	q, err := h.service.GetQuotation(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuotationResponse(q, true))
}

func (h *QuotationHandler) deleteQuotation(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, err := pathUUID(params, "id")
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if err := h.service.DeleteQuotation(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id.String()})
}

func (h *QuotationHandler) generateDocument(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, err := pathUUID(params, "id")
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	format, err := render.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	_, art, err := h.service.GenerateDocument(r.Context(), id, format)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{
		FileName:    art.Name,
		Format:      string(format),
		DownloadURL: "/api/download-quotation/" + art.Key,
	})
}

func (h *QuotationHandler) downloadDocument(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, err := pathUUID(params, "id")
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	format, err := render.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	art, err := h.service.DownloadDocument(r.Context(), id, format)
	if err != nil {
		h.downloadFailed(w, id.String(), err)
		return
	}

	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", attachment(art.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(art.Data); err != nil {
		h.logger.Warn("document stream interrupted", zap.Error(err), zap.String("quotation_id", id.String()))
		return
	}
	h.logger.Info("document streamed", zap.String("quotation_id", id.String()), zap.String("file", art.Name))
}

func (h *QuotationHandler) downloadStored(w http.ResponseWriter, r *http.Request, params map[string]string) {
	name := params["filename"]
	f, err := h.service.OpenDocument(name)
	if err != nil {
		if errors.Is(err, e.ErrValidation) || errors.Is(err, e.ErrNotFound) {
			h.writeServiceError(w, err)
			return
		}
		h.downloadFailed(w, name, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.downloadFailed(w, name, err)
		return
	}
	if format, err := render.ParseFormat(strings.TrimPrefix(filepath.Ext(name), ".")); err == nil {
		w.Header().Set("Content-Type", format.ContentType())
	}
	w.Header().Set("Content-Disposition", attachment(render.DisplayName(name)))
	http.ServeContent(w, r, name, info.ModTime(), f)
	h.logger.Info("document streamed", zap.String("file", name))
}

// downloadFailed hides the cause from the client and asks for a retry.
func (h *QuotationHandler) downloadFailed(w http.ResponseWriter, subject string, err error) {
	if errors.Is(err, e.ErrNotFound) {
		h.writeServiceError(w, err)
		return
	}
	h.logger.Error("document download failed", zap.Error(err), zap.String("subject", subject))
	writeError(w, http.StatusInternalServerError, "failed to generate document, please try again")
}

func (h *QuotationHandler) listCompanies(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	list, err := h.service.ListCompanies(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	out := make([]companyResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toCompanyResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *QuotationHandler) nextReference(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, err := pathUUID(params, "id")
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	ref, err := h.service.PreviewReference(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, referenceResponse{
		CompanyID:       id.String(),
		ReferenceNumber: ref.Number,
		Counter:         ref.Counter,
	})
}

func (h *QuotationHandler) listEmployees(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	list, err := h.service.ListEmployees(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	out := make([]employeeResponse, 0, len(list))
	for _, emp := range list {
		out = append(out, employeeResponse{
			ID:          emp.ID.String(),
			Name:        emp.Name,
			PhoneNumber: emp.PhoneNumber,
			Email:       emp.Email,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *QuotationHandler) listClients(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	companyID, err := optionalUUID(r, "company_id")
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	list, err := h.service.ListClients(r.Context(), companyID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	out := make([]clientResponse, 0, len(list))
	for _, c := range list {
		out = append(out, clientResponse{
			ID:           c.ID.String(),
			CompanyID:    c.CompanyID.String(),
			Name:         c.Name,
			BusinessName: c.BusinessName,
			Email:        c.Email,
			Mobile:       c.Mobile,
			Address:      c.Address,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *QuotationHandler) listItems(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	list, err := h.service.ListItems(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	out := make([]itemResponse, 0, len(list))
	for _, it := range list {
		out = append(out, itemResponse{
			ID:            it.ID.String(),
			CatalogueID:   it.CatalogueID,
			Description:   it.Description,
			PackSize:      it.PackSize,
			CAS:           it.CAS,
			HSN:           it.HSN,
			UnitPrice:     it.UnitPrice.StringFixed(2),
			GSTPercentage: it.GSTPercentage.String(),
			Brand:         it.Brand,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *QuotationHandler) lookupGST(w http.ResponseWriter, r *http.Request, params map[string]string) {
	hsn := strings.TrimSpace(params["code"])
	rate, err := h.service.LookupGST(r.Context(), hsn)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gstResponse{HSN: hsn, GSTPercentage: rate.String()})
}

func (h *QuotationHandler) health(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if err := h.service.Health(r.Context()); err != nil {
		h.logger.Error("health check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeServiceError maps a service error to its HTTP status and writes it.
func (h *QuotationHandler) writeServiceError(w http.ResponseWriter, err error) {
	status, msg := mapServiceError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err), zap.Int("status", status))
	}
	writeError(w, status, msg)
}

// mapServiceError converts service-layer errors to an HTTP status and the
// message shown to the client.
func mapServiceError(err error) (int, string) {
	switch {
	case errors.Is(err, e.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, e.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, e.ErrConflict):
		return http.StatusInternalServerError, "reference number allocation conflict, please retry"
	case errors.Is(err, e.ErrConfiguration):
		return http.StatusInternalServerError, err.Error()
	case errors.Is(err, e.ErrRender):
		return http.StatusInternalServerError, "failed to generate document"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func pathUUID(params map[string]string, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(params[key])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", e.ErrValidation, key)
	}
	return id, nil
}

func optionalUUID(r *http.Request, key string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s", e.ErrValidation, key)
	}
	return &id, nil
}

func attachment(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: msg})
}
