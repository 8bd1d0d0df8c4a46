package handler

import (
	"net/http"

	"github.com/solace-api/internal/application/dashboard"
)

// DashboardHandler serves cached aggregate reads.
type DashboardHandler struct {
	svc dashboard.Service
}

func NewDashboardHandler(svc dashboard.Service) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Summary(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
