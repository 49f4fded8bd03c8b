package http

import (
	"errors"
	"net/http"

	"recur/internal/core"
	"recur/internal/log"
)

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	const op = "get_profile"
	owner := s.requireOwner(w, r, op)
	if owner == "" {
		return
	}

	p, err := s.ledger.GetProfile(r.Context(), owner)
	if err != nil {
		s.writeError(w, r, op, owner, err)
		return
	}
	OK(p).Write(w)
}

// handleUpdateProfile applies a partial update; omitted fields keep their value.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	const op = "update_profile"
	owner := s.requireOwner(w, r, op)
	if owner == "" {
		return
	}

	var u core.ProfileUpdate
	if err := DecodeJSONBody(w, r, &u); err != nil {
		bodyError(err).Write(w)
		return
	}
	if u.FullName != nil {
		name := sanitizeInput(*u.FullName)
		u.FullName = &name
	}

	p, err := s.ledger.UpdateProfile(r.Context(), owner, u)
	if err != nil {
		s.writeError(w, r, op, owner, err)
		return
	}

	// Income and savings goal feed every month and the history.
	s.invalidateOwner(owner)
	log.FromContext(r.Context()).InfoContext(r.Context(), "Profile updated",
		log.FieldOwnerID, owner,
		log.FieldOperation, log.OpUpdate)

	OK(p).Write(w)
}

// handleSetBudget records the income of one month.
func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	const op = "set_monthly_income"
	owner := s.requireOwner(w, r, op)
	if owner == "" {
		return
	}

	month, err := core.ParseMonthKey(r.PathValue("month"))
	if err != nil {
		s.writeError(w, r, op, owner, core.Invalid(err))
		return
	}

	var req budgetRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		bodyError(err).Write(w)
		return
	}
	if req.Income == nil {
		s.writeError(w, r, op, owner, core.Invalid(errors.New("income is required")))
		return
	}

	period, err := s.ledger.SetMonthlyIncome(r.Context(), owner, month, *req.Income)
	if err != nil {
		s.writeError(w, r, op, owner, err)
		return
	}

	s.invalidateOwner(owner)
	log.FromContext(r.Context()).InfoContext(r.Context(), "Monthly income set",
		log.FieldOwnerID, owner,
		log.FieldMonth, month.String(),
		log.FieldAmount, formatEuros(period.Income))

	OK(period).Write(w)
}
