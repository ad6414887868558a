package handlers

import (
	"errors"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hanko-field/ordersim/internal/catalog"
	"github.com/hanko-field/ordersim/internal/domain"
	"github.com/hanko-field/ordersim/internal/platform/httpx"
)

const (
	maxCatalogSKUs     = 1000
	maxHolidayRangeDay = 366 * 10
)

// ReferenceHandlers expose the catalog and holiday calendar a run would use.
type ReferenceHandlers struct {
	svc         DatasetService
	defaultSKUs int
	defaultSeed int64
	clock       func() time.Time
}

// NewReferenceHandlers builds the reference lookups. Catalog requests default to the configured
// SKU count and seed.
func NewReferenceHandlers(svc DatasetService, defaultSKUs int, defaultSeed int64, clock func() time.Time) (*ReferenceHandlers, error) {
	if svc == nil {
		return nil, errors.New("reference handlers: service is required")
	}
	if clock == nil {
		clock = time.Now
	}
	if defaultSKUs <= 0 {
		defaultSKUs = catalog.CuratedSize()
	}
	return &ReferenceHandlers{svc: svc, defaultSKUs: defaultSKUs, defaultSeed: defaultSeed, clock: clock}, nil
}

// Routes registers /catalog and /holidays.
func (h *ReferenceHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/catalog", h.catalog)
	r.Get("/holidays", h.holidays)
}

type productPayload struct {
	SKU         string  `json:"sku"`
	Name        string  `json:"name"`
	UnitPrice   int64   `json:"unitPrice"`
	Price       string  `json:"price"`
	Vendor      string  `json:"vendor"`
	ProductType string  `json:"productType"`
	Popularity  float64 `json:"popularity"`
	Trend       string  `json:"trend"`
}

type catalogResponse struct {
	Seed     int64            `json:"seed"`
	Products []productPayload `json:"products"`
}

type holidayPayload struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

type holidaysResponse struct {
	From     string           `json:"from"`
	To       string           `json:"to"`
	Holidays []holidayPayload `json:"holidays"`
}

func (h *ReferenceHandlers) catalog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	skus := h.defaultSKUs
	if raw := strings.TrimSpace(query.Get("skus")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxCatalogSKUs {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "skus must be between 1 and 1000", http.StatusBadRequest))
			return
		}
		skus = parsed
	}
	seed := h.defaultSeed
	if raw := strings.TrimSpace(query.Get("seed")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "seed must be an integer", http.StatusBadRequest))
			return
		}
		seed = parsed
	}

	cat, err := catalog.Build(rand.New(rand.NewSource(seed)), skus)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_error", err.Error(), http.StatusInternalServerError))
		return
	}
	products := cat.Products()
	resp := catalogResponse{Seed: seed, Products: make([]productPayload, 0, len(products))}
	for _, p := range products {
		resp.Products = append(resp.Products, productPayload{
			SKU:         p.SKU,
			Name:        p.Name,
			UnitPrice:   p.UnitPrice,
			Price:       strconv.FormatFloat(domain.MajorFromMinor(p.UnitPrice), 'f', 2, 64),
			Vendor:      p.Vendor,
			ProductType: p.ProductType,
			Popularity:  p.Popularity,
			Trend:       string(p.Trend),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *ReferenceHandlers) holidays(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	year := h.clock().UTC().Year()
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	for _, param := range []struct {
		name   string
		target *time.Time
	}{{"from", &from}, {"to", &to}} {
		raw := strings.TrimSpace(query.Get(param.name))
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", param.name+" must be formatted as YYYY-MM-DD", http.StatusBadRequest))
			return
		}
		*param.target = parsed
	}
	if to.Before(from) {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "to must not be before from", http.StatusBadRequest))
		return
	}
	if to.Sub(from) > maxHolidayRangeDay*24*time.Hour {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "range must not exceed ten years", http.StatusBadRequest))
		return
	}

	set, err := h.svc.Holidays(ctx, from, to)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("holiday_calendar_error", err.Error(), http.StatusInternalServerError))
		return
	}
	resp := holidaysResponse{
		From:     from.Format(dateLayout),
		To:       to.Format(dateLayout),
		Holidays: []holidayPayload{},
	}
	for _, holiday := range set.List() {
		if holiday.Date.Before(from) || holiday.Date.After(to) {
			continue
		}
		resp.Holidays = append(resp.Holidays, holidayPayload{Date: holiday.Date.Format(dateLayout), Name: holiday.Name})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
