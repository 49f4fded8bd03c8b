package http

import (
	"net/http"

	"recur/internal/log"
)

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	const op = "list_subscriptions"
	owner := s.requireOwner(w, r, op)
	if owner == "" {
		return
	}

	subs, err := s.ledger.ListSubscriptions(r.Context(), owner)
	if err != nil {
		s.writeError(w, r, op, owner, err)
		return
	}
	OK(subs).Write(w)
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	s.saveSubscription(w, r, "", http.StatusCreated)
}

// handleUpdateSubscription replaces a subscription. Expenses already
// generated from it keep the values they were created with.
func (s *Server) handleUpdateSubscription(w http.ResponseWriter, r *http.Request) {
	id := sanitizeInput(r.PathValue("id"))
	if id == "" {
		NotFoundError("subscription not found").Write(w)
		return
	}
	s.saveSubscription(w, r, id, http.StatusOK)
}

func (s *Server) saveSubscription(w http.ResponseWriter, r *http.Request, id string, status int) {
	const op = "save_subscription"
	owner := s.requireOwner(w, r, op)
	if owner == "" {
		return
	}

	var req subscriptionRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		bodyError(err).Write(w)
		return
	}
	sub, err := req.toSubscription(id, s.today())
	if err != nil {
		s.writeError(w, r, op, owner, err)
		return
	}

	saved, err := s.ledger.SaveSubscription(r.Context(), owner, sub)
	if err != nil {
		s.writeError(w, r, op, owner, err)
		return
	}

	s.invalidateOwner(owner)
	log.FromContext(r.Context()).InfoContext(r.Context(), "Subscription saved",
		log.FieldOwnerID, owner,
		log.FieldSubscriptionID, saved.ID,
		log.FieldAmount, formatEuros(saved.Price),
		log.FieldCategory, string(saved.Category))

	NewJSONResponse().Status(status).Data(saved).Write(w)
}

// handleDeleteSubscription is a soft delete: the record stays inactive and
// stops generating expenses.
func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	const op = "deactivate_subscription"
	owner := s.requireOwner(w, r, op)
	if owner == "" {
		return
	}

	id := sanitizeInput(r.PathValue("id"))
	if err := s.ledger.DeactivateSubscription(r.Context(), owner, id); err != nil {
		s.writeError(w, r, op, owner, err)
		return
	}

	s.invalidateOwner(owner)
	log.FromContext(r.Context()).InfoContext(r.Context(), "Subscription deactivated",
		log.FieldOwnerID, owner,
		log.FieldSubscriptionID, id)

	NoContent().Write(w)
}
