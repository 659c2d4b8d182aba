package db

import (
	"context"
	"fmt"
	"os"

	dbmodels "github.com/gartstein/quotation/internal/quotation/db/models"
	e "github.com/gartstein/quotation/internal/quotation/errors"
	"github.com/gartstein/quotation/internal/quotation/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm/clause"
)

// SeedData is the reference data a fresh deployment starts from: issuing
// companies, employees, clients, the item catalog and the HSN rate table.
type SeedData struct {
	Companies []SeedCompany  `yaml:"companies"`
	Employees []SeedEmployee `yaml:"employees"`
	Clients   []SeedClient   `yaml:"clients"`
	Items     []SeedItem     `yaml:"items"`
	HSNRates  []SeedHSNRate  `yaml:"hsn_rates"`
}

type SeedCompany struct {
	ID            uuid.UUID `yaml:"id"`
	Name          string    `yaml:"name"`
	Email         string    `yaml:"email"`
	Phone         string    `yaml:"phone"`
	Address       string    `yaml:"address"`
	GSTNumber     string    `yaml:"gst_number"`
	PANNumber     string    `yaml:"pan_number"`
	SealImagePath string    `yaml:"seal_image_path"`
	BankName      string    `yaml:"bank_name"`
	AccountNumber string    `yaml:"account_number"`
	IFSCCode      string    `yaml:"ifsc_code"`
	AccountType   string    `yaml:"account_type"`
	RefFormat     string    `yaml:"ref_format"`
}

type SeedEmployee struct {
	ID          uuid.UUID `yaml:"id"`
	Name        string    `yaml:"name"`
	PhoneNumber string    `yaml:"phone_number"`
	Email       string    `yaml:"email"`
}

type SeedClient struct {
	ID           uuid.UUID `yaml:"id"`
	CompanyID    uuid.UUID `yaml:"company_id"`
	Name         string    `yaml:"name"`
	BusinessName string    `yaml:"business_name"`
	Email        string    `yaml:"email"`
	Mobile       string    `yaml:"mobile"`
	Address      string    `yaml:"address"`
}

type SeedItem struct {
	ID            uuid.UUID       `yaml:"id"`
	CatalogueID   string          `yaml:"catalogue_id"`
	Description   string          `yaml:"description"`
	PackSize      string          `yaml:"pack_size"`
	CAS           string          `yaml:"cas"`
	HSN           string          `yaml:"hsn"`
	UnitPrice     decimal.Decimal `yaml:"unit_price"`
	GSTPercentage decimal.Decimal `yaml:"gst_percentage"`
	Brand         string          `yaml:"brand"`
}

type SeedHSNRate struct {
	HSN           string          `yaml:"hsn"`
	GSTPercentage decimal.Decimal `yaml:"gst_percentage"`
}

// LoadSeedFile reads seed data from a YAML file.
func LoadSeedFile(path string) (*SeedData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var data SeedData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: invalid seed file %s: %v", e.ErrConfiguration, path, err)
	}
	return &data, nil
}

// Seed upserts the reference data. Company quote counters are never
// overwritten, so reseeding a live database keeps issued numbers intact.
func (r *Repository) Seed(ctx context.Context, data *SeedData) error {
	if data == nil {
		return nil
	}
	return r.WithTransaction(ctx, func(tx *Repository) error {
		db := tx.db.WithContext(ctx)

		for _, c := range data.Companies {
			row := dbmodels.Company{
				ID:            c.ID,
				Name:          c.Name,
				Email:         c.Email,
				Phone:         c.Phone,
				Address:       c.Address,
				GSTNumber:     c.GSTNumber,
				PANNumber:     c.PANNumber,
				SealImagePath: c.SealImagePath,
				BankName:      c.BankName,
				AccountNumber: c.AccountNumber,
				IFSCCode:      c.IFSCCode,
				AccountType:   c.AccountType,
				RefFormat:     c.RefFormat,
			}
			if row.RefFormat == "" {
				row.RefFormat = models.DefaultRefFormat
			}
			if row.AccountType == "" {
				row.AccountType = models.DefaultAccountType
			}
			err := db.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"name", "email", "phone", "address", "gst_number", "pan_number",
					"seal_image_path", "bank_name", "account_number", "ifsc_code",
					"account_type", "ref_format", "updated_at",
				}),
			}).Create(&row).Error
			if err != nil {
				return fmt.Errorf("failed to seed company %s: %w", c.ID, err)
			}
		}

		for _, emp := range data.Employees {
			row := dbmodels.Employee{ID: emp.ID, Name: emp.Name, PhoneNumber: emp.PhoneNumber, Email: emp.Email}
			if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
				return fmt.Errorf("failed to seed employee %s: %w", emp.ID, err)
			}
		}

		for _, c := range data.Clients {
			row := dbmodels.Client{
				ID:           c.ID,
				CompanyID:    c.CompanyID,
				Name:         c.Name,
				BusinessName: c.BusinessName,
				Email:        c.Email,
				Mobile:       c.Mobile,
				Address:      c.Address,
			}
			if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
				return fmt.Errorf("failed to seed client %s: %w", c.ID, err)
			}
		}

		for _, it := range data.Items {
			row := dbmodels.Item{
				ID:            it.ID,
				CatalogueID:   it.CatalogueID,
				Description:   it.Description,
				PackSize:      it.PackSize,
				CAS:           it.CAS,
				HSN:           it.HSN,
				UnitPrice:     it.UnitPrice,
				GSTPercentage: it.GSTPercentage,
				Brand:         it.Brand,
			}
			if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
				return fmt.Errorf("failed to seed item %s: %w", it.ID, err)
			}
		}

		for _, h := range data.HSNRates {
			row := dbmodels.HSNRate{HSN: h.HSN, GSTPercentage: h.GSTPercentage}
			if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
				return fmt.Errorf("failed to seed hsn %s: %w", h.HSN, err)
			}
		}
		return nil
	})
}
