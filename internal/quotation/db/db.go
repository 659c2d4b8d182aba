// Package db implements the quotation repository on top of GORM. PostgreSQL
// is the production store; SQLite backs tests and single-node deployments.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	dbmodels "github.com/gartstein/quotation/internal/quotation/db/models"
	e "github.com/gartstein/quotation/internal/quotation/errors"
	"github.com/gartstein/quotation/internal/quotation/models"
	"github.com/gartstein/quotation/internal/quotation/pricing"
	"github.com/gartstein/quotation/internal/quotation/refnum"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Repository struct {
	db *gorm.DB
}

type Config struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// Path is the SQLite database file, used when Driver is "sqlite".
	Path string
	// LogLevel is passed to the GORM logger. Zero means warnings only.
	LogLevel logger.LogLevel
}

func (c *Config) dialector() (gorm.Dialector, error) {
	switch c.Driver {
	case "", DriverPostgres:
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
		return postgres.Open(dsn), nil
	case DriverSQLite:
		return sqlite.Open(c.Path), nil
	default:
		return nil, fmt.Errorf("%w: unsupported database driver %q", e.ErrConfiguration, c.Driver)
	}
}

func NewRepository(cfg *Config) (*Repository, error) {
	dialector, err := cfg.dialector()
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if level == 0 {
		level = logger.Warn
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// SQLite allows a single writer; one connection keeps transactions serialized.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return newRepository(db)
}

func newRepository(db *gorm.DB) (*Repository, error) {
	if err := db.AutoMigrate(dbmodels.All()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Repository{db: db}, nil
}

// CreateQuotation prices the lines, allocates the next reference number for
// the company and persists header, lines and the advanced counter in a single
// transaction. Derived amounts and totals are always recomputed from the
// line inputs. The company row is locked for the duration, so concurrent
// creations for one company are serialized while other companies proceed.
func (r *Repository) CreateQuotation(ctx context.Context, nq *models.NewQuotation) (*models.Quotation, error) {
	if nq == nil {
		return nil, fmt.Errorf("%w: at least one item is required", e.ErrValidation)
	}
	inputs := make([]pricing.Line, 0, len(nq.Lines))
	for _, line := range nq.Lines {
		inputs = append(inputs, linePricing(line))
	}
	amounts, totals, err := pricing.Quote(inputs)
	if err != nil {
		return nil, err
	}

	var row *dbmodels.Quotation
	err = r.WithTransaction(ctx, func(tx *Repository) error {
		var company dbmodels.Company
		err := tx.db.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&company, "id = ?", nq.Header.CompanyID).Error
		if err != nil {
			return notFound(err, "company %s", nq.Header.CompanyID)
		}
		if err := tx.exists(ctx, &dbmodels.Employee{}, nq.Header.EmployeeID, "employee"); err != nil {
			return err
		}
		if err := tx.exists(ctx, &dbmodels.Client{}, nq.Header.ClientID, "client"); err != nil {
			return err
		}

		ref, err := refnum.Next(toCompany(&company), nq.Header.Date.Year())
		if err != nil {
			return err
		}

		var taken int64
		err = tx.db.WithContext(ctx).Model(&dbmodels.Quotation{}).
			Where("company_id = ? AND reference_number = ?", company.ID, ref.Number).
			Count(&taken).Error
		if err != nil {
			return err
		}
		if taken > 0 {
			return fmt.Errorf("%w: reference %s already issued for company %s", e.ErrConflict, ref.Number, company.ID)
		}

		res := tx.db.WithContext(ctx).Model(&dbmodels.Company{}).
			Where("id = ? AND last_quote_number = ?", company.ID, company.LastQuoteNumber).
			Update("last_quote_number", ref.Counter)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: quote counter for company %s changed concurrently", e.ErrConflict, company.ID)
		}

		row = toQuotationRow(nq, ref.Number, amounts, totals)
		if err := tx.db.WithContext(ctx).Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: reference %s already issued", e.ErrConflict, ref.Number)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toQuotation(row), nil
}

func (r *Repository) GetQuotation(ctx context.Context, id uuid.UUID) (*models.Quotation, error) {
	var row dbmodels.Quotation
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Company").
		Preload("Client").
		First(&row, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "quotation %s", id)
	}
	return toQuotation(&row), nil
}

// ListQuotations returns quotation headers with company and client names,
// newest first. Lines are not loaded.
func (r *Repository) ListQuotations(ctx context.Context, filter models.QuotationFilter) ([]*models.Quotation, error) {
	query := r.db.WithContext(ctx).Model(&dbmodels.Quotation{})
	if filter.CompanyID != nil {
		query = query.Where("company_id = ?", *filter.CompanyID)
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}

	var rows []dbmodels.Quotation
	err := query.Preload("Company").Preload("Client").
		Order("date DESC").Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]*models.Quotation, 0, len(rows))
	for i := range rows {
		out = append(out, toQuotation(&rows[i]))
	}
	return out, nil
}

// DeleteQuotation removes the quotation and its lines. The company counter is
// left untouched so reference numbers are never reused.
func (r *Repository) DeleteQuotation(ctx context.Context, id uuid.UUID) error {
	return r.WithTransaction(ctx, func(tx *Repository) error {
		if err := tx.db.WithContext(ctx).Where("quotation_id = ?", id).Delete(&dbmodels.QuotationLine{}).Error; err != nil {
			return err
		}
		result := tx.db.WithContext(ctx).Delete(&dbmodels.Quotation{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: quotation %s", e.ErrNotFound, id)
		}
		return nil
	})
}

// SetDocumentPath records the generated artifact on the quotation header.
func (r *Repository) SetDocumentPath(ctx context.Context, id uuid.UUID, path string) error {
	result := r.db.WithContext(ctx).Model(&dbmodels.Quotation{}).
		Where("id = ?", id).
		Update("generated_document_path", path)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: quotation %s", e.ErrNotFound, id)
	}
	return nil
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// Ping checks that the database answers within ctx.
func (r *Repository) Ping(ctx context.Context) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

func (r *Repository) exists(ctx context.Context, model interface{}, id uuid.UUID, kind string) error {
	var count int64
	err := r.db.WithContext(ctx).Model(model).Where("id = ?", id).Limit(1).Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: %s %s", e.ErrNotFound, kind, id)
	}
	return nil
}

func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", e.ErrNotFound, fmt.Sprintf(format, args...))
	}
	return err
}
