package main

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/stgrky/d2d-sales-calculator/internal/financing"
	"github.com/stgrky/d2d-sales-calculator/internal/pricing"
	"github.com/stgrky/d2d-sales-calculator/internal/quote"
	"github.com/stgrky/d2d-sales-calculator/internal/store"
)

type quoteListItem struct {
	ID          string       `json:"id"`
	QuoteNumber string       `json:"quoteNumber"`
	Customer    string       `json:"customer"`
	Address     string       `json:"address"`
	PartnerName string       `json:"partnerName,omitempty"`
	Status      quote.Status `json:"status"`
	FinalTotal  string       `json:"finalTotal"`
	CreatedAt   string       `json:"createdAt"`
}

type partnerListItem struct {
	Code            string `json:"code"`
	CompanyName     string `json:"companyName"`
	LogoURL         string `json:"logoUrl,omitempty"`
	PrimaryColor    string `json:"primaryColor,omitempty"`
	CanCreateQuotes bool   `json:"canCreateQuotes"`
}

// partnerID resolves the ?partner= code filter. An empty code means all quotes.
func (s *server) partnerID(ctx context.Context, code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", nil
	}
	p, err := s.partners.ByCode(ctx, code)
	if err != nil {
		return "", err
	}
	if p.IsHQ() {
		return "", nil
	}
	return p.ID, nil
}

func (s *server) handleQuotesList(w http.ResponseWriter, r *http.Request) {
	partnerID, err := s.partnerID(r.Context(), r.URL.Query().Get("partner"))
	if err != nil {
		writeFailure(w, err, "failed to load quotes")
		return
	}

	quotes, err := s.store.ListQuotes(r.Context(), store.ListFilter{PartnerID: partnerID})
	if err != nil {
		writeFailure(w, err, "failed to load quotes")
		return
	}

	items := make([]quoteListItem, 0, len(quotes))
	for _, q := range quotes {
		who := q.Customer.Company
		if who == "" {
			who = q.Customer.ContactName
		}
		items = append(items, quoteListItem{
			ID:          q.ID,
			QuoteNumber: q.QuoteNumber,
			Customer:    who,
			Address:     q.Customer.ServiceAddress(),
			PartnerName: q.PartnerName,
			Status:      q.Status,
			FinalTotal:  q.FinalTotal.StringFixed(2),
			CreatedAt:   q.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *server) handleQuoteGet(w http.ResponseWriter, r *http.Request) {
	q, err := s.store.GetQuote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, err, "failed to load quote")
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *server) handleQuoteByNumber(w http.ResponseWriter, r *http.Request) {
	q, err := s.store.GetQuoteByNumber(r.Context(), strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "number"))))
	if err != nil {
		writeFailure(w, err, "failed to load quote")
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// handleQuoteBreakdown re-prices a stored quote against the rate snapshot it was
// saved with, so later rate changes never alter an old quote.
func (s *server) handleQuoteBreakdown(w http.ResponseWriter, r *http.Request) {
	q, err := s.store.GetQuote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, err, "failed to load quote")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Breakdown pricing.Breakdown `json:"breakdown"`
		Total     quote.Total       `json:"total"`
	}{
		Breakdown: pricing.ComputeBreakdown(q.Configuration, q.PricingSnapshot),
		Total:     q.Total(),
	})
}

func (s *server) handlePartnersList(w http.ResponseWriter, r *http.Request) {
	partners, err := s.partners.List(r.Context())
	if err != nil {
		writeFailure(w, err, "failed to load partners")
		return
	}

	items := make([]partnerListItem, 0, len(partners))
	for _, p := range partners {
		if p.IsHQ() {
			continue
		}
		items = append(items, partnerListItem{
			Code:            p.Code,
			CompanyName:     p.CompanyName,
			LogoURL:         p.LogoURL,
			PrimaryColor:    p.PrimaryColor,
			CanCreateQuotes: p.CanCreateQuotes,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

// handleFinancingEstimate estimates payments for an arbitrary total. Invalid
// numbers are treated as zero.
func (s *server) handleFinancingEstimate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	est, err := financing.Calculate(
		quote.ParseAmount(q.Get("total")),
		quote.ParseAmount(q.Get("downPayment")),
		q.Get("plan"),
		quote.ParseQuantity(q.Get("term")),
	)
	if err != nil {
		writeFailure(w, err, "failed to estimate financing")
		return
	}
	writeJSON(w, http.StatusOK, est)
}

func (s *server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	partnerID, err := s.partnerID(r.Context(), r.URL.Query().Get("partner"))
	if err != nil {
		writeFailure(w, err, "failed to load stats")
		return
	}
	stats, err := s.store.Stats(r.Context(), partnerID)
	if err != nil {
		writeFailure(w, err, "failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *server) handleAdminQuoteDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	deleted, err := s.store.DeleteQuote(r.Context(), id)
	if err != nil {
		writeFailure(w, err, "failed to delete quote")
		return
	}
	if !deleted {
		writeFailure(w, store.ErrNotFound, "failed to delete quote")
		return
	}
	log.Printf("quote deleted id=%s", id)
	w.WriteHeader(http.StatusNoContent)
}
