// Package report renders spreadsheet exports.
package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/atharvakonge/papertrade/internal/logger"
	"github.com/atharvakonge/papertrade/internal/models"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	orderSheet = "Orders"
	timeLayout = "2006-01-02 15:04:05"
)

var orderHeader = []interface{}{"Date", "Ticker", "Company", "Side", "Quantity", "Price", "Total"}

// OrderHistory renders transactions, newest first, as an xlsx workbook.
func OrderHistory(ctx context.Context, history []models.TransactionView) ([]byte, error) {
	log := logger.FromContext(ctx)

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Warn("failed to close workbook", zap.Error(err))
		}
	}()

	if err := f.SetSheetName("Sheet1", orderSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#cfe2f3"}},
	})
	if err != nil {
		return nil, err
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(orderSheet, "A1", &orderHeader); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(orderSheet, "A1", "G1", headerStyle); err != nil {
		return nil, err
	}

	for i, tx := range history {
		price, _ := tx.Price.Float64()
		total, _ := tx.Total().Float64()
		row := []interface{}{
			tx.CreatedAt.UTC().Format(timeLayout),
			tx.Ticker,
			tx.CompanyName,
			strings.ToUpper(string(tx.OrderType)),
			tx.Quantity,
			price,
			total,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(orderSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if len(history) > 0 {
		last := len(history) + 1
		if err := f.SetCellStyle(orderSheet, "F2", fmt.Sprintf("G%d", last), moneyStyle); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(orderSheet, "A", "A", 20)
	_ = f.SetColWidth(orderSheet, "C", "C", 28)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	log.Debug("order history exported", zap.Int("rows", len(history)))
	return buf.Bytes(), nil
}
