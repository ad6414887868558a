package export

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/hanko-field/ordersim/internal/domain"
)

// Summary totals an order stream. Amounts are minor units.
type Summary struct {
	Currency         string `json:"currency"`
	Orders           int    `json:"orders"`
	RefundedOrders   int    `json:"refundedOrders"`
	CorrectiveOrders int    `json:"correctiveOrders"`
	LineItems        int    `json:"lineItems"`
	Units            int    `json:"units"`
	GrossSales       int64  `json:"grossSales"`
	Discounts        int64  `json:"discounts"`
	Shipping         int64  `json:"shipping"`
	Taxes            int64  `json:"taxes"`
	Refunds          int64  `json:"refunds"`
	NetRevenue       int64  `json:"netRevenue"`
}

// NewSummary totals orders. Refunds are the pre-refund totals of refunded orders; net revenue is
// the sum of order totals.
func NewSummary(orders []domain.SimulatedOrder) Summary {
	s := Summary{Currency: domain.DefaultCurrency}
	for _, o := range orders {
		if o.Currency != "" {
			s.Currency = o.Currency
		}
		s.Orders++
		s.LineItems += len(o.Lines)
		s.Units += o.Units()
		s.GrossSales += o.Subtotal
		s.Discounts += o.DiscountAmount
		s.Shipping += o.Shipping
		s.Taxes += o.Taxes
		s.NetRevenue += o.Total
		if o.Refunded() {
			s.RefundedOrders++
			s.Refunds += o.Subtotal - o.DiscountAmount + o.Shipping + o.Taxes
		}
		if o.Origin == domain.OriginCorrective {
			s.CorrectiveOrders++
		}
	}
	return s
}

// SummaryLine is one labelled row of a rendered summary.
type SummaryLine struct {
	Label string
	Value string
}

// Lines renders the summary for a BCP 47 locale; an unparsable locale falls back to English.
func (s Summary) Lines(locale string) []SummaryLine {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		tag = language.English
	}
	p := message.NewPrinter(tag)
	unit, err := currency.ParseISO(s.Currency)
	if err != nil {
		unit = currency.USD
	}
	money := func(v int64) string {
		return p.Sprint(currency.Symbol(unit.Amount(domain.MajorFromMinor(v))))
	}
	return []SummaryLine{
		{Label: "Orders", Value: p.Sprintf("%d", s.Orders)},
		{Label: "Refunded orders", Value: p.Sprintf("%d", s.RefundedOrders)},
		{Label: "Corrective orders", Value: p.Sprintf("%d", s.CorrectiveOrders)},
		{Label: "Line items", Value: p.Sprintf("%d", s.LineItems)},
		{Label: "Units", Value: p.Sprintf("%d", s.Units)},
		{Label: "Gross sales", Value: money(s.GrossSales)},
		{Label: "Discounts", Value: money(s.Discounts)},
		{Label: "Shipping", Value: money(s.Shipping)},
		{Label: "Taxes", Value: money(s.Taxes)},
		{Label: "Refunds", Value: money(s.Refunds)},
		{Label: "Net revenue", Value: money(s.NetRevenue)},
	}
}

// Format renders the summary as aligned text.
func (s Summary) Format(locale string) string {
	lines := s.Lines(locale)
	width := 0
	for _, l := range lines {
		if len(l.Label) > width {
			width = len(l.Label)
		}
	}
	var b strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&b, "%-*s  %s\n", width, l.Label, l.Value)
	}
	return b.String()
}
