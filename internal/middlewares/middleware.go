package middlewares

import (
	"net/http"

	"github.com/google/uuid"
)

type Middleware func(next http.Handler) http.Handler

// Chain chains the registered middlewares.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for _, mw := range mws {
		h = mw(h)
	}
	return h
}

// RequestID tags every request with a unique id header so logs from a
// single websocket session can be correlated.
func RequestID(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.New().String()
			r.Header.Set("X-Request-Id", requestID)
		}
		w.Header().Set("X-Request-Id", requestID)

		h.ServeHTTP(w, r)
	})
}
