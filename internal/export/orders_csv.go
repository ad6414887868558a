package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/hanko-field/ordersim/internal/domain"
)

// OrderColumns is the storefront column layout of the orders export, one row per line item.
var OrderColumns = []string{
	"Name", "Email", "Financial Status", "Paid at", "Fulfillment Status", "Fulfilled at",
	"Accepts Marketing", "Currency", "Subtotal", "Shipping", "Taxes", "Total", "Discount Code",
	"Discount Amount", "discount_ratio", "Shipping Method", "Created at", "Lineitem quantity",
	"Lineitem name", "Lineitem price", "Lineitem sku", "Lineitem requires shipping", "Lineitem taxable",
	"Lineitem fulfillment status", "Billing Name", "Billing Street", "Billing City", "Billing Zip",
	"Billing Province", "Billing Country", "Billing Phone", "Shipping Name", "Shipping Street",
	"Shipping City", "Shipping Zip", "Shipping Province", "Shipping Country", "Shipping Phone",
	"Payment Method", "Payment Reference", "Refunded Amount", "Vendor", "Id", "Source",
	"Lineitem discount", "Tax 1 Name", "Tax 1 Value", "Phone", "is_weekend", "is_holiday", "stockout",
	"Lineitem grams", "Customer",
}

// repeatedColumns are written on every line row; the remaining order-level columns appear on the
// first row of an order only.
var repeatedColumns = map[string]bool{
	"Name":           true,
	"Email":          true,
	"Currency":       true,
	"discount_ratio": true,
	"Created at":     true,
	"is_weekend":     true,
	"is_holiday":     true,
}

var lineColumns = map[string]bool{
	"Lineitem quantity":           true,
	"Lineitem name":               true,
	"Lineitem price":              true,
	"Lineitem sku":                true,
	"Lineitem requires shipping":  true,
	"Lineitem taxable":            true,
	"Lineitem fulfillment status": true,
	"Vendor":                      true,
	"Lineitem discount":           true,
	"stockout":                    true,
	"Lineitem grams":              true,
}

// WriteOrdersCSV writes orders in the given order. Output depends only on the input, so repeated
// calls produce identical bytes.
func WriteOrdersCSV(w io.Writer, orders []domain.SimulatedOrder) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(OrderColumns); err != nil {
		return fmt.Errorf("orders csv: write header: %w", err)
	}
	for _, order := range orders {
		orderFields := orderValues(order)
		for i, line := range order.Lines {
			values := lineValues(line)
			row := make([]string, len(OrderColumns))
			for c, column := range OrderColumns {
				switch {
				case lineColumns[column]:
					row[c] = values[column]
				case i == 0 || repeatedColumns[column]:
					row[c] = orderFields[column]
				}
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("orders csv: write order %s: %w", order.Name, err)
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("orders csv: flush: %w", err)
	}
	return nil
}

func orderValues(order domain.SimulatedOrder) map[string]string {
	c := order.Customer
	refunded := ""
	if order.Refunded() {
		refunded = formatMinor(order.Subtotal - order.DiscountAmount + order.Shipping + order.Taxes)
	}
	created := formatTimestamp(order.CreatedAt)
	return map[string]string{
		"Name":               order.Name,
		"Email":              c.Email,
		"Financial Status":   string(order.FinancialStatus),
		"Paid at":            created,
		"Fulfillment Status": "fulfilled",
		"Fulfilled at":       formatTimestamp(order.FulfilledAt),
		"Accepts Marketing":  formatYesNo(order.AcceptsMarketing),
		"Currency":           order.Currency,
		"Subtotal":           formatMinor(order.Subtotal),
		"Shipping":           formatMinor(order.Shipping),
		"Taxes":              formatMinor(order.Taxes),
		"Total":              formatMinor(order.Total),
		"Discount Code":      order.DiscountCode,
		"Discount Amount":    formatMinor(order.DiscountAmount),
		"discount_ratio":     formatRatio(order.DiscountRatio),
		"Shipping Method":    order.ShippingMethod,
		"Created at":         created,
		"Billing Name":       c.Name,
		"Billing Street":     c.Address.Street,
		"Billing City":       c.Address.City,
		"Billing Zip":        c.Address.Zip,
		"Billing Province":   c.Address.Province,
		"Billing Country":    c.Address.Country,
		"Billing Phone":      c.Phone,
		"Shipping Name":      c.Name,
		"Shipping Street":    c.Address.Street,
		"Shipping City":      c.Address.City,
		"Shipping Zip":       c.Address.Zip,
		"Shipping Province":  c.Address.Province,
		"Shipping Country":   c.Address.Country,
		"Shipping Phone":     c.Phone,
		"Payment Method":     "Credit Card",
		"Payment Reference":  order.PaymentReference,
		"Refunded Amount":    refunded,
		"Id":                 strconv.FormatInt(order.ID, 10),
		"Source":             string(order.Origin),
		"Tax 1 Name":         "Sales Tax",
		"Tax 1 Value":        formatMinor(order.Taxes),
		"Phone":              c.Phone,
		"is_weekend":         formatBool(order.IsWeekend),
		"is_holiday":         formatBool(order.IsHoliday),
		"Customer":           c.Name,
	}
}

func lineValues(line domain.LineItem) map[string]string {
	return map[string]string{
		"Lineitem quantity":           strconv.Itoa(line.Quantity),
		"Lineitem name":               line.Name,
		"Lineitem price":              formatMinor(line.UnitPrice),
		"Lineitem sku":                line.SKU,
		"Lineitem requires shipping":  "TRUE",
		"Lineitem taxable":            "TRUE",
		"Lineitem fulfillment status": "fulfilled",
		"Vendor":                      line.Vendor,
		"Lineitem discount":           formatMinor(line.Discount),
		"stockout":                    formatBool(line.Stockout),
		"Lineitem grams":              strconv.Itoa(line.Grams),
	}
}
