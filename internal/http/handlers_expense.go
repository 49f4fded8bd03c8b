package http

import (
	"net/http"
	"sync/atomic"

	"recur/internal/log"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	const op = "add_expense"
	owner := s.requireOwner(w, r, op)
	if owner == "" {
		return
	}

	var req expenseRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		bodyError(err).Write(w)
		return
	}
	e, err := req.toExpense(s.today())
	if err != nil {
		s.writeError(w, r, op, owner, err)
		return
	}

	saved, err := s.ledger.AddExpense(r.Context(), owner, e)
	if err != nil {
		s.writeError(w, r, op, owner, err)
		return
	}

	atomic.AddInt64(&s.appMetrics.expensesCreated, 1)
	s.invalidateOwner(owner)
	s.structuredLogger.LogExpenseCreated(r.Context(), owner, saved.ID, saved.Title, formatEuros(saved.Amount), string(saved.Category))

	Created(saved).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	const op = "delete_expense"
	owner := s.requireOwner(w, r, op)
	if owner == "" {
		return
	}

	id := sanitizeInput(r.PathValue("id"))
	if err := s.ledger.DeleteExpense(r.Context(), owner, id); err != nil {
		s.writeError(w, r, op, owner, err)
		return
	}

	atomic.AddInt64(&s.appMetrics.expensesDeleted, 1)
	s.invalidateOwner(owner)
	log.FromContext(r.Context()).InfoContext(r.Context(), "Expense deleted",
		log.FieldOwnerID, owner,
		log.FieldExpenseID, id,
		log.FieldOperation, log.OpDelete)

	NoContent().Write(w)
}
