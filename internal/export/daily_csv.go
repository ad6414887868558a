package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/hanko-field/ordersim/internal/domain"
)

// DailyColumns is the header of the per-SKU daily training series.
var DailyColumns = []string{"ds", "sku", "y", "orders", "is_weekend", "day_of_week", "is_holiday", "discount_ratio_mean"}

// WriteDailyCSV writes the daily series in the given order.
func WriteDailyCSV(w io.Writer, points []domain.DailyPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(DailyColumns); err != nil {
		return fmt.Errorf("daily csv: write header: %w", err)
	}
	for _, p := range points {
		row := []string{
			p.Date.Format(dateLayout),
			p.SKU,
			strconv.Itoa(p.Units),
			strconv.Itoa(p.Orders),
			formatBool(p.IsWeekend),
			strconv.Itoa(p.DayOfWeek),
			formatBool(p.IsHoliday),
			formatRatio(p.MeanDiscountRatio),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("daily csv: write %s %s: %w", p.SKU, row[0], err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("daily csv: flush: %w", err)
	}
	return nil
}
