package services

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/alimgiray/newsletter-manager/internal/models"
)

const recipientSheet = "Recipients"

var recipientHeader = []interface{}{"ID", "Email", "Group ID", "Group", "Customer", "Last mailing", "Last read", "Added"}

// RecipientExportService writes recipient listings as XLSX workbooks
type RecipientExportService struct {
	addresses AddressStore
}

func NewRecipientExportService(addresses AddressStore) *RecipientExportService {
	return &RecipientExportService{
		addresses: addresses,
	}
}

// ExportRecipients writes every address matching the filters of q to w.
// Paging of q is ignored.
func (s *RecipientExportService) ExportRecipients(ctx context.Context, q models.ListQuery, w io.Writer) (int, error) {
	addresses, _, err := s.addresses.List(ctx, q.Unlimited())
	if err != nil {
		return 0, fmt.Errorf("failed to load recipients: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", recipientSheet); err != nil {
		return 0, err
	}
	if err := f.SetSheetRow(recipientSheet, "A1", &recipientHeader); err != nil {
		return 0, err
	}

	for i, a := range addresses {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, err
		}
		row := []interface{}{
			a.ID, a.Email, a.GroupID, a.GroupName, a.IsCustomer,
			a.LastMailing, a.LastRead, a.Added.Format("2006-01-02 15:04:05"),
		}
		if err := f.SetSheetRow(recipientSheet, cell, &row); err != nil {
			return 0, err
		}
	}

	if err := f.SetColWidth(recipientSheet, "B", "B", 36); err != nil {
		return 0, err
	}

	if _, err := f.WriteTo(w); err != nil {
		return 0, err
	}

	return len(addresses), nil
}
