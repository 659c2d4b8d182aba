package db

import (
	dbmodels "github.com/gartstein/quotation/internal/quotation/db/models"
	"github.com/gartstein/quotation/internal/quotation/models"
	"github.com/gartstein/quotation/internal/quotation/pricing"
	"github.com/google/uuid"
)

func toCompany(row *dbmodels.Company) *models.Company {
	return &models.Company{
		ID:              row.ID,
		Name:            row.Name,
		Email:           row.Email,
		Phone:           row.Phone,
		Address:         row.Address,
		GSTNumber:       row.GSTNumber,
		PANNumber:       row.PANNumber,
		SealImagePath:   row.SealImagePath,
		BankName:        row.BankName,
		AccountNumber:   row.AccountNumber,
		IFSCCode:        row.IFSCCode,
		AccountType:     row.AccountType,
		RefFormat:       row.RefFormat,
		LastQuoteNumber: row.LastQuoteNumber,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

func toEmployee(row *dbmodels.Employee) *models.Employee {
	return &models.Employee{
		ID:          row.ID,
		Name:        row.Name,
		PhoneNumber: row.PhoneNumber,
		Email:       row.Email,
	}
}

func toClient(row *dbmodels.Client) *models.Client {
	return &models.Client{
		ID:           row.ID,
		CompanyID:    row.CompanyID,
		Name:         row.Name,
		BusinessName: row.BusinessName,
		Email:        row.Email,
		Mobile:       row.Mobile,
		Address:      row.Address,
	}
}

func toItem(row *dbmodels.Item) *models.Item {
	return &models.Item{
		ID:            row.ID,
		CatalogueID:   row.CatalogueID,
		Description:   row.Description,
		PackSize:      row.PackSize,
		CAS:           row.CAS,
		HSN:           row.HSN,
		UnitPrice:     row.UnitPrice,
		GSTPercentage: row.GSTPercentage,
		Brand:         row.Brand,
	}
}

func linePricing(l models.QuotationLine) pricing.Line {
	return pricing.Line{
		UnitRate:           l.UnitRate,
		Quantity:           l.Quantity,
		DiscountPercentage: l.DiscountPercentage,
		GSTPercentage:      l.GSTPercentage,
	}
}

// toQuotationRow assigns fresh ids and stores the given amounts and totals
// rounded, in place of whatever the caller derived.
func toQuotationRow(nq *models.NewQuotation, reference string, amounts []pricing.Amounts, totals pricing.Totals) *dbmodels.Quotation {
	totals = totals.Rounded()
	row := &dbmodels.Quotation{
		ID:              uuid.New(),
		CompanyID:       nq.Header.CompanyID,
		EmployeeID:      nq.Header.EmployeeID,
		ClientID:        nq.Header.ClientID,
		ReferenceNumber: reference,
		Date:            nq.Header.Date,
		PaymentTerms:    string(nq.Header.PaymentTerms),
		SubTotal:        totals.SubTotal,
		TotalGST:        totals.TotalGST,
		GrandTotal:      totals.GrandTotal,
		CreatedAt:       nq.Header.Date,
	}
	row.Lines = make([]dbmodels.QuotationLine, 0, len(nq.Lines))
	for i, l := range nq.Lines {
		a := amounts[i].Rounded()
		row.Lines = append(row.Lines, dbmodels.QuotationLine{
			ID:                 uuid.New(),
			QuotationID:        row.ID,
			Position:           i + 1,
			ItemID:             l.ItemID,
			CatalogueID:        l.CatalogueID,
			Description:        l.Description,
			PackSize:           l.PackSize,
			Quantity:           l.Quantity,
			HSN:                l.HSN,
			UnitRate:           l.UnitRate,
			DiscountPercentage: l.DiscountPercentage,
			DiscountRate:       a.DiscountRate,
			ExpandedRate:       a.ExpandedRate,
			GSTPercentage:      l.GSTPercentage,
			GSTValue:           a.GSTValue,
			LineTotal:          a.LineTotal,
			LeadTime:           l.LeadTime,
			Brand:              l.Brand,
		})
	}
	return row
}

func toQuotation(row *dbmodels.Quotation) *models.Quotation {
	q := &models.Quotation{
		ID:                    row.ID,
		CompanyID:             row.CompanyID,
		EmployeeID:            row.EmployeeID,
		ClientID:              row.ClientID,
		ReferenceNumber:       row.ReferenceNumber,
		Date:                  row.Date,
		PaymentTerms:          models.PaymentTerm(row.PaymentTerms),
		SubTotal:              row.SubTotal,
		TotalGST:              row.TotalGST,
		GrandTotal:            row.GrandTotal,
		GeneratedDocumentPath: row.GeneratedDocumentPath,
		CreatedAt:             row.CreatedAt,
		UpdatedAt:             row.UpdatedAt,
	}
	if row.Company != nil {
		q.CompanyName = row.Company.Name
	}
	if row.Client != nil {
		q.ClientName = row.Client.Name
		if row.Client.BusinessName != "" {
			q.ClientName = row.Client.BusinessName
		}
	}
	for _, l := range row.Lines {
		q.Lines = append(q.Lines, models.QuotationLine{
			ID:                 l.ID,
			Position:           l.Position,
			ItemID:             l.ItemID,
			CatalogueID:        l.CatalogueID,
			Description:        l.Description,
			PackSize:           l.PackSize,
			Quantity:           l.Quantity,
			HSN:                l.HSN,
			UnitRate:           l.UnitRate,
			DiscountPercentage: l.DiscountPercentage,
			DiscountRate:       l.DiscountRate,
			ExpandedRate:       l.ExpandedRate,
			GSTPercentage:      l.GSTPercentage,
			GSTValue:           l.GSTValue,
			LineTotal:          l.LineTotal,
			LeadTime:           l.LeadTime,
			Brand:              l.Brand,
		})
	}
	return q
}
