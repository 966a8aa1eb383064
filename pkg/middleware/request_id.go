package middleware

import (
	"net/http"

	"github.com/docuflow/extraction-tracker/pkg/requestid"
	"github.com/go-chi/chi/v5/middleware"
)

// RequestID propagates the caller's X-Request-ID, or chi's id, or a fresh uuid, through the
// request context and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestid.Header)
		if id == "" {
			id = middleware.GetReqID(r.Context())
		}
		if id == "" {
			id = requestid.Generate()
		}

		w.Header().Set(requestid.Header, id)
		next.ServeHTTP(w, r.WithContext(requestid.ToContext(r.Context(), id)))
	})
}
