package httpapi

import (
	"net/http"
	"time"

	sessiondomain "auth-control-plane/backend/internal/session/domain"
)

type sessionResponse struct {
	ID             string `json:"id"`
	UserAgent      string `json:"user_agent,omitempty"`
	IPAddress      string `json:"ip_address,omitempty"`
	DeviceInfo     string `json:"device_info,omitempty"`
	Location       string `json:"location,omitempty"`
	ExpiresAt      string `json:"expires_at"`
	LastActivityAt string `json:"last_activity_at"`
	CreatedAt      string `json:"created_at"`
	Current        bool   `json:"current"`
}

// handleListSessions returns the caller's active sessions, newest activity
// first, for a "my devices" view.
func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID, _ := GetUserID(r.Context())
	currentSessionID, _ := GetSessionID(r.Context())

	sessions, err := h.sessions.ListActive(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionResponse(s, currentSessionID))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleTerminateSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !isValidUUID(id) {
		writeError(w, http.StatusBadRequest, "invalid_request", "session id must be a UUID")
		return
	}
	userID, _ := GetUserID(r.Context())

	if err := h.sessions.Terminate(r.Context(), id, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "session terminated"})
}

func (h *Handler) handleTerminateAll(w http.ResponseWriter, r *http.Request) {
	userID, _ := GetUserID(r.Context())

	if err := h.sessions.TerminateAll(r.Context(), userID); err != nil {
		writeServiceError(w, err)
		return
	}
	h.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "all sessions terminated"})
}

func (h *Handler) handleTerminateOthers(w http.ResponseWriter, r *http.Request) {
	userID, _ := GetUserID(r.Context())
	sessionID, _ := GetSessionID(r.Context())

	if err := h.sessions.TerminateOthers(r.Context(), sessionID, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "other sessions terminated"})
}

func toSessionResponse(s *sessiondomain.Session, currentSessionID string) sessionResponse {
	return sessionResponse{
		ID:             s.ID,
		UserAgent:      s.UserAgent,
		IPAddress:      s.IPAddress,
		DeviceInfo:     s.DeviceInfo,
		Location:       s.Location,
		ExpiresAt:      s.ExpiresAt.Format(time.RFC3339),
		LastActivityAt: s.LastActivityAt.Format(time.RFC3339),
		CreatedAt:      s.CreatedAt.Format(time.RFC3339),
		Current:        s.ID == currentSessionID,
	}
}
