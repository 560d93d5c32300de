package http

import (
	"net/http"
)

// handleAnalyticsChart serves the dashboard chart series. Chart data is
// always computed fresh; only the stats snapshot is cached.
func (s *Server) handleAnalyticsChart(w http.ResponseWriter, r *http.Request) {
	data, err := s.analyticsService.Chart(r.Context(), identityFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}
