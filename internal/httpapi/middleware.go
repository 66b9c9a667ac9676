package httpapi

import (
	"log"
	"net/http"
	"strings"
	"time"
)

const bearerPrefix = "bearer "

// requireAuth validates the Bearer access token and populates the request
// context with the verified identity. Token verification is stateless; the
// session's continued existence is checked only by flows that need it.
func (h *Handler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := extractBearer(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid authorization")
			return
		}
		sessionID, userID, email, err := h.tokens.ValidateAccess(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid authorization")
			return
		}
		ctx := WithIdentity(r.Context(), userID, sessionID, email)
		next(w, r.WithContext(ctx))
	}
}

// requireRoles runs after requireAuth and enforces the role set declared for
// operation. Operations with no declared roles pass through.
func (h *Handler) requireRoles(operation string, next http.HandlerFunc) http.HandlerFunc {
	return h.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := GetUserID(r.Context())
		if err := h.guard.Authorize(r.Context(), userID, operation); err != nil {
			writeGuardError(w, err)
			return
		}
		next(w, r)
	})
}

// extractBearer returns the Bearer token from the Authorization header, or "" if missing or malformed.
func extractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs method, path, status, and duration for every request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
