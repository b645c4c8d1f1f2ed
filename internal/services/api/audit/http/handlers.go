// Package http provides http transport for audit
package http

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"

	"chronicle/internal/modkit/httpkit"
	"chronicle/internal/services/api/audit/domain"
	svc "chronicle/internal/services/api/audit/service"
)

// Register mounts audit endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}

	// full capture history for one record
	httpkit.Get(r, "/timeline/{recordID}", h.timeline)

	// filtered snapshot search across records
	httpkit.PostJSON[domain.SearchInput](r, "/search", h.search)

	// store-wide totals
	httpkit.Get(r, "/stats", h.stats)
}

type handlers struct{ svc svc.Service }

// swagger:route GET /audit/timeline/{recordID} Audit auditTimeline
// @Summary Snapshot timeline for one record
// @Tags Audit
// @Produce json
// @Param recordID path string true "Upstream record id"
// @Success 200 {object} domain.TimelineResponse "ok"
// @Router /audit/timeline/{recordID} [get]
func (h *handlers) timeline(r *stdhttp.Request) (any, error) {
	return h.svc.Timeline(r.Context(), chi.URLParam(r, "recordID"))
}

// swagger:route POST /audit/search Audit auditSearch
// @Summary Search snapshots across records
// @Tags Audit
// @Accept json
// @Produce json
// @Param payload body domain.SearchInput true "Query"
// @Success 200 {object} domain.SearchResponse "ok"
// @Router /audit/search [post]
func (h *handlers) search(r *stdhttp.Request, in domain.SearchInput) (any, error) {
	return h.svc.Search(r.Context(), in)
}

// swagger:route GET /audit/stats Audit auditStats
// @Summary Snapshot store totals
// @Tags Audit
// @Produce json
// @Success 200 {object} domain.StatsResponse "ok"
// @Router /audit/stats [get]
func (h *handlers) stats(r *stdhttp.Request) (any, error) {
	return h.svc.Stats(r.Context())
}
