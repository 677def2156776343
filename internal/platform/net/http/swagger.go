package http

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// MountSwagger mounts the swagger UI at /docs if enabled by caller
// specURL points at the served openapi document (no generated docs package)
func MountSwagger(r Router, enabled bool, specURL string) {
	if !enabled {
		return
	}
	h := httpSwagger.Handler(httpSwagger.URL(specURL))
	r.Get("/docs/*", func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r)
	})
}
