package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/hanko-field/ordersim/internal/domain"
)

const (
	ordersSheet  = "Orders"
	dailySheet   = "Daily"
	summarySheet = "Summary"
)

var workbookOrderColumns = []string{
	"Name", "Created at", "Financial Status", "Source", "SKU", "Product", "Vendor", "Quantity",
	"Unit price", "Line discount", "Stockout", "Order subtotal", "Discount ratio", "Discount code",
	"Shipping", "Taxes", "Total", "Weekend", "Holiday",
}

// WorkbookInput is the content of the spreadsheet export.
type WorkbookInput struct {
	Orders  []domain.SimulatedOrder
	Daily   []domain.DailyPoint
	Summary Summary
	Locale  string
}

// WriteWorkbook writes an xlsx workbook with Orders, Daily and Summary sheets.
func WriteWorkbook(w io.Writer, in WorkbookInput) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", ordersSheet); err != nil {
		return fmt.Errorf("workbook: rename sheet: %w", err)
	}
	if _, err := f.NewSheet(dailySheet); err != nil {
		return fmt.Errorf("workbook: create daily sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("workbook: create summary sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("workbook: header style: %w", err)
	}

	if err := writeOrderSheet(f, in.Orders); err != nil {
		return err
	}
	if err := writeDailySheet(f, in.Daily); err != nil {
		return err
	}
	if err := writeSummarySheet(f, in.Summary, in.Locale); err != nil {
		return err
	}
	for _, sheet := range []string{ordersSheet, dailySheet, summarySheet} {
		if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
			return fmt.Errorf("workbook: style %s header: %w", sheet, err)
		}
	}
	if err := f.SetColWidth(ordersSheet, "A", "F", 18); err != nil {
		return fmt.Errorf("workbook: column width: %w", err)
	}
	if err := f.SetColWidth(summarySheet, "A", "B", 22); err != nil {
		return fmt.Errorf("workbook: column width: %w", err)
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("workbook: write: %w", err)
	}
	return nil
}

func writeOrderSheet(f *excelize.File, orders []domain.SimulatedOrder) error {
	if err := setRow(f, ordersSheet, 1, toCells(workbookOrderColumns)); err != nil {
		return err
	}
	row := 2
	for _, o := range orders {
		for _, line := range o.Lines {
			cells := []interface{}{
				o.Name,
				formatTimestamp(o.CreatedAt),
				string(o.FinancialStatus),
				string(o.Origin),
				line.SKU,
				line.Name,
				line.Vendor,
				line.Quantity,
				domain.MajorFromMinor(line.UnitPrice),
				domain.MajorFromMinor(line.Discount),
				line.Stockout,
				domain.MajorFromMinor(o.Subtotal),
				o.DiscountRatio,
				o.DiscountCode,
				domain.MajorFromMinor(o.Shipping),
				domain.MajorFromMinor(o.Taxes),
				domain.MajorFromMinor(o.Total),
				o.IsWeekend,
				o.IsHoliday,
			}
			if err := setRow(f, ordersSheet, row, cells); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func writeDailySheet(f *excelize.File, points []domain.DailyPoint) error {
	if err := setRow(f, dailySheet, 1, toCells(DailyColumns)); err != nil {
		return err
	}
	for i, p := range points {
		cells := []interface{}{
			p.Date.Format(dateLayout),
			p.SKU,
			p.Units,
			p.Orders,
			p.IsWeekend,
			p.DayOfWeek,
			p.IsHoliday,
			p.MeanDiscountRatio,
		}
		if err := setRow(f, dailySheet, i+2, cells); err != nil {
			return err
		}
	}
	return nil
}

func writeSummarySheet(f *excelize.File, summary Summary, locale string) error {
	if err := setRow(f, summarySheet, 1, []interface{}{"Metric", "Value"}); err != nil {
		return err
	}
	for i, line := range summary.Lines(locale) {
		if err := setRow(f, summarySheet, i+2, []interface{}{line.Label, line.Value}); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("workbook: %s row %d: %w", sheet, row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("workbook: %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
