package http

import (
	"net/http"
	"strings"

	"recur/internal/core"
)

// formatEuros formats an amount as a Euro currency string (e.g., "€12,34").
func formatEuros(m core.Money) string {
	s := m.Amount.Abs().StringFixed(2)
	s = strings.Replace(s, ".", ",", 1)
	if m.IsNegative() {
		return "-€" + s
	}
	return "€" + s
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// ownerID reads the identity set by the upstream auth proxy.
func (s *Server) ownerID(r *http.Request) string {
	return sanitizeInput(r.Header.Get(s.authHeader))
}

// today is the current calendar day in the owner's location.
func (s *Server) today() core.Date {
	return core.DateOf(s.now().In(s.location))
}

// ownerPrefix scopes cache keys so one write can drop everything an owner sees.
func ownerPrefix(ownerID string) string {
	return ownerID + "|"
}

func (s *Server) invalidateOwner(ownerID string) {
	prefix := ownerPrefix(ownerID)
	s.monthCache.DeletePrefix(prefix)
	s.historyCache.DeletePrefix(prefix)
}
