package http

import (
	"net/http"

	"recur/internal/core"
	"recur/internal/services"
)

type monthResponse struct {
	services.MonthView
	View   string      `json:"view"`
	Yearly *yearlyView `json:"yearly,omitempty"`
}

// yearlyView is the subscription list priced per year.
type yearlyView struct {
	SubscriptionsTotal core.Money          `json:"subscriptions_total"`
	Subscriptions      []annualizedPricing `json:"subscriptions"`
}

type annualizedPricing struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Category    core.Category `json:"category"`
	AnnualPrice core.Money    `json:"annual_price"`
}

func newYearlyView(v services.MonthView) *yearlyView {
	out := &yearlyView{
		SubscriptionsTotal: core.AnnualizedPrice(v.SubscriptionsTotal),
		Subscriptions:      make([]annualizedPricing, 0, len(v.Subscriptions)),
	}
	for _, sub := range v.Subscriptions {
		out.Subscriptions = append(out.Subscriptions, annualizedPricing{
			ID:          sub.ID,
			Name:        sub.Name,
			Category:    sub.Category,
			AnnualPrice: core.AnnualizedPrice(sub.Price),
		})
	}
	return out
}

// handleMonth returns the requested month, generating its recurring
// expenses on first load.
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	const op = "load_month"
	owner := s.requireOwner(w, r, op)
	if owner == "" {
		return
	}

	query := r.URL.Query()
	date, err := ParseMonthParams(query, s.now(), s.location)
	if err != nil {
		s.writeError(w, r, op, owner, err)
		return
	}

	v, err := s.monthView(r.Context(), owner, date)
	if err != nil {
		s.writeError(w, r, op, owner, err)
		return
	}

	resp := monthResponse{MonthView: v, View: ParseView(query)}
	if resp.View == ViewYearly {
		resp.Yearly = newYearlyView(v)
	}
	OK(resp).Write(w)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	const op = "load_history"
	owner := s.requireOwner(w, r, op)
	if owner == "" {
		return
	}

	h, err := s.history(r.Context(), owner)
	if err != nil {
		s.writeError(w, r, op, owner, err)
		return
	}
	if h.Entries == nil {
		h.Entries = []core.HistoryEntry{}
	}
	OK(h).Write(w)
}
