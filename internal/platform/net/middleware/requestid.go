// Package middleware holds adapters and in house middlewares
package middleware

import (
	"net/http"

	"matchbook/internal/platform/logger"
	pnet "matchbook/internal/platform/net"

	"github.com/google/uuid"
)

// RequestIDHeader is the header mirrored on responses
const RequestIDHeader = "X-Request-ID"

// RequestID assigns a uuid to each request unless the client supplied one,
// stashing it on the context for the responder and the access log
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := pnet.WithRequestID(r.Context(), reqID)
		ctx = logger.WithRequest(ctx, reqID)
		w.Header().Set(RequestIDHeader, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
