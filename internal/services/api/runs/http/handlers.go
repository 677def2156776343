// Package http provides http transport for run history
package http

import (
	stdhttp "net/http"

	"matchbook/internal/modkit/httpkit"
	"matchbook/internal/services/api/runs/domain"
	svc "matchbook/internal/services/api/runs/service"
)

// Register mounts runs endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}
	httpkit.Get(r, "/{id}", h.get)
	httpkit.PostJSON[domain.QueryInput](r, "/query", h.query)
}

type handlers struct{ svc svc.Service }

// swagger:route GET /runs/{id} Runs runsGet
// @Summary Fetch one reconcile run by id
// @Tags Runs
// @Produce json
// @Param id path string true "Run id"
// @Success 200 {object} domain.RunView "ok"
// @Router /runs/{id} [get]
func (h *handlers) get(r *stdhttp.Request) (any, error) {
	return h.svc.Get(r.Context(), httpkit.URLParam(r, "id"))
}

// swagger:route POST /runs/query Runs runsQuery
// @Summary List reconcile runs, newest first
// @Tags Runs
// @Accept json
// @Produce json
// @Param payload body domain.QueryInput true "Filters"
// @Success 200 {array} domain.RunView "ok"
// @Router /runs/query [post]
func (h *handlers) query(r *stdhttp.Request, in domain.QueryInput) (any, error) {
	return h.svc.Query(r.Context(), in)
}
