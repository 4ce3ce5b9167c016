// Package export renders the installment portfolio as an Excel workbook.
package export

import (
	"bytes"
	"fmt"
	"time"

	creditapp "github.com/fiado/backend/internal/application/credit"
	"github.com/fiado/backend/internal/domain/credit"
	"github.com/xuri/excelize/v2"
)

const (
	installmentsSheet = "Installments"
	summarySheet      = "Summary"

	// ContentType is the MIME type of the generated workbook
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var installmentHeaders = []string{
	"Client", "Document", "Sale", "Number", "Due date", "Amount", "Paid", "Residual", "Status", "Paid at",
}

var _ creditapp.PortfolioRenderer = (*WorkbookRenderer)(nil)

// WorkbookRenderer builds .xlsx files with excelize
type WorkbookRenderer struct{}

// NewWorkbookRenderer creates a new WorkbookRenderer
func NewWorkbookRenderer() *WorkbookRenderer {
	return &WorkbookRenderer{}
}

// ContentType returns the MIME type of rendered files
func (r *WorkbookRenderer) ContentType() string {
	return ContentType
}

// RenderPortfolio writes one row per installment plus a summary sheet with the stats.
func (r *WorkbookRenderer) RenderPortfolio(rows []creditapp.PortfolioRow, stats credit.PortfolioStats, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", installmentsSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, fmt.Errorf("failed to create money style: %w", err)
	}

	for i, header := range installmentHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(installmentsSheet, cell, header); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(installmentsSheet, "A1", "J1", headerStyle); err != nil {
		return nil, err
	}

	for i, row := range rows {
		line := i + 2
		values := []any{
			row.ClientName,
			row.ClientDocument,
			row.SaleID.String(),
			row.Number,
			row.DueDate.Format("2006-01-02"),
			row.FaceAmount.InexactFloat64(),
			row.AmountPaid.InexactFloat64(),
			row.Residual.InexactFloat64(),
			row.Status,
			"",
		}
		if row.PaidAt != nil {
			values[9] = row.PaidAt.Format("2006-01-02 15:04")
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, line)
			if err := f.SetCellValue(installmentsSheet, cell, value); err != nil {
				return nil, err
			}
		}
		if err := f.SetCellStyle(installmentsSheet, fmt.Sprintf("F%d", line), fmt.Sprintf("H%d", line), moneyStyle); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(installmentsSheet, "A", "A", 28); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(installmentsSheet, "C", "C", 38); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	summary := [][]any{
		{"Generated at", generatedAt.Format(time.RFC3339)},
		{"To collect", stats.ToCollect.InexactFloat64()},
		{"Overdue", stats.Overdue.InexactFloat64()},
		{"Recovered", stats.Recovered.InexactFloat64()},
		{"Pending installments", stats.PendingCount},
		{"Overdue installments", stats.OverdueCount},
		{"Paid installments", stats.PaidCount},
	}
	for i, pair := range summary {
		line := i + 1
		if err := f.SetCellValue(summarySheet, fmt.Sprintf("A%d", line), pair[0]); err != nil {
			return nil, err
		}
		if err := f.SetCellValue(summarySheet, fmt.Sprintf("B%d", line), pair[1]); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", "A7", headerStyle); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(summarySheet, "B2", "B4", moneyStyle); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
