// Package export renders the petty-cash ledger as an Excel workbook for
// offline reconciliation by the supervisor.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/dmezas/control-obras/internal/ledger"
	"github.com/dmezas/control-obras/internal/models"
)

const sheetName = "Caja Chica"

var headers = []string{
	"Fecha", "Usuario", "Tipo", "Monto (S/)",
	"Descripción", "Categoría", "Comprobante", "Estado", "Aprobado por",
}

// LedgerExporter writes ledger snapshots to xlsx.
type LedgerExporter struct {
	logger *zap.Logger
}

// NewLedgerExporter creates an exporter.
func NewLedgerExporter(logger *zap.Logger) *LedgerExporter {
	return &LedgerExporter{logger: logger}
}

// Export renders the transactions and totals into a single-sheet workbook.
func (e *LedgerExporter) Export(txs []models.Transaction, totals ledger.Totals) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetName)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build header style: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}
	endHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheetName, "A1", endHeader, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for row, tx := range txs {
		amount, _ := tx.Amount.Float64()
		values := []interface{}{
			tx.Timestamp.Format("2006-01-02 15:04"),
			tx.User,
			string(tx.Kind),
			amount,
			tx.Description,
			tx.Category,
			tx.ReceiptRef,
			tx.Status.String(),
			tx.ApprovedBy,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", row+2, err)
			}
		}
	}

	// Totals block under the table.
	base := len(txs) + 3
	ingresos, _ := totals.Replenishments.Float64()
	egresos, _ := totals.ApprovedExpenses.Float64()
	saldo, _ := totals.Balance.Float64()
	summary := []struct {
		label string
		value float64
	}{
		{"Total ingresos (reposiciones)", ingresos},
		{"Total egresos aprobados", egresos},
		{"Saldo actual", saldo},
	}
	for i, s := range summary {
		labelCell, _ := excelize.CoordinatesToCellName(1, base+i)
		valueCell, _ := excelize.CoordinatesToCellName(4, base+i)
		if err := f.SetCellValue(sheetName, labelCell, s.label); err != nil {
			return nil, fmt.Errorf("failed to write summary: %w", err)
		}
		if err := f.SetCellValue(sheetName, valueCell, s.value); err != nil {
			return nil, fmt.Errorf("failed to write summary: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialise workbook: %w", err)
	}

	e.logger.Info("Ledger exported",
		zap.Int("transactions", len(txs)),
		zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}
