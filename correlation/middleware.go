package correlation

import (
	"net/http"
	"strings"
)

// Headers consulted by FromRequest, in priority order.
const (
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderRequestID     = "X-Request-ID"
	HeaderTraceparent   = "Traceparent"
)

const zeroTraceID = "00000000000000000000000000000000"

// FromRequest resolves the correlation id for an inbound request: the
// correlation header, then the request-id header, then the trace-id field of
// a W3C traceparent, and finally a fresh id.
func FromRequest(r *http.Request) string {
	if id := r.Header.Get(HeaderCorrelationID); id != "" {
		return id
	}
	if id := r.Header.Get(HeaderRequestID); id != "" {
		return id
	}
	if id := traceID(r.Header.Get(HeaderTraceparent)); id != "" {
		return id
	}
	return NewID()
}

// traceID extracts the trace-id field from a traceparent value of the form
// version-traceid-spanid-flags. Malformed or all-zero trace ids yield "".
func traceID(tp string) string {
	parts := strings.Split(tp, "-")
	if len(parts) < 4 {
		return ""
	}
	id := parts[1]
	if len(id) != 32 || id == zeroTraceID {
		return ""
	}
	for _, c := range id {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return ""
		}
	}
	return id
}

// Middleware binds a correlation id into every request context and surfaces
// it on the response as X-Correlation-ID before the wrapped handler runs.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := FromRequest(r)
		w.Header().Set(HeaderCorrelationID, id)
		next.ServeHTTP(w, r.WithContext(With(r.Context(), id)))
	})
}
