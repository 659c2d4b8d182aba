package db

import (
	"context"

	dbmodels "github.com/gartstein/quotation/internal/quotation/db/models"
	"github.com/gartstein/quotation/internal/quotation/models"
	"github.com/google/uuid"
)

// Read-only lookups of the records a quotation is assembled from. Their
// lifecycle is owned elsewhere; this service only reads them.

func (r *Repository) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var row dbmodels.Company
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "company %s", id)
	}
	return toCompany(&row), nil
}

func (r *Repository) ListCompanies(ctx context.Context) ([]*models.Company, error) {
	var rows []dbmodels.Company
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*models.Company, 0, len(rows))
	for i := range rows {
		out = append(out, toCompany(&rows[i]))
	}
	return out, nil
}

func (r *Repository) GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	var row dbmodels.Employee
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "employee %s", id)
	}
	return toEmployee(&row), nil
}

func (r *Repository) ListEmployees(ctx context.Context) ([]*models.Employee, error) {
	var rows []dbmodels.Employee
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*models.Employee, 0, len(rows))
	for i := range rows {
		out = append(out, toEmployee(&rows[i]))
	}
	return out, nil
}

func (r *Repository) GetClient(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	var row dbmodels.Client
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "client %s", id)
	}
	return toClient(&row), nil
}

// ListClients returns all clients, or only those of companyID when set.
func (r *Repository) ListClients(ctx context.Context, companyID *uuid.UUID) ([]*models.Client, error) {
	query := r.db.WithContext(ctx).Order("name ASC")
	if companyID != nil {
		query = query.Where("company_id = ?", *companyID)
	}
	var rows []dbmodels.Client
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*models.Client, 0, len(rows))
	for i := range rows {
		out = append(out, toClient(&rows[i]))
	}
	return out, nil
}

// GetItems loads the given catalog entries keyed by id. Missing ids are
// simply absent from the result.
func (r *Repository) GetItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Item, error) {
	out := make(map[uuid.UUID]*models.Item, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []dbmodels.Item
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = toItem(&rows[i])
	}
	return out, nil
}

func (r *Repository) ListItems(ctx context.Context) ([]*models.Item, error) {
	var rows []dbmodels.Item
	if err := r.db.WithContext(ctx).Order("description ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*models.Item, 0, len(rows))
	for i := range rows {
		out = append(out, toItem(&rows[i]))
	}
	return out, nil
}

func (r *Repository) GetHSNRate(ctx context.Context, hsn string) (*models.HSNRate, error) {
	var row dbmodels.HSNRate
	if err := r.db.WithContext(ctx).First(&row, "hsn = ?", hsn).Error; err != nil {
		return nil, notFound(err, "hsn %s", hsn)
	}
	return &models.HSNRate{HSN: row.HSN, GSTPercentage: row.GSTPercentage}, nil
}
