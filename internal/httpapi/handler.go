// Package httpapi is the HTTP request layer: routing, request validation,
// identity extraction, and the mapping from service errors to status codes.
// Business rules live in the services; nothing here mutates state directly.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	authservice "auth-control-plane/backend/internal/auth/service"
	"auth-control-plane/backend/internal/platform/rbac"
	roledomain "auth-control-plane/backend/internal/role/domain"
	roleservice "auth-control-plane/backend/internal/role/service"
	"auth-control-plane/backend/internal/security"
	sessionservice "auth-control-plane/backend/internal/session/service"
	userservice "auth-control-plane/backend/internal/user/service"
)

// Operation identifiers for the role table and guard checks.
const (
	opUsersList   = "users.list"
	opUsersGet    = "users.get"
	opRolesCreate = "roles.create"
	opRolesUpdate = "roles.update"
	opRolesDelete = "roles.delete"
)

// OperationRoles declares the required role set per protected operation.
// Operations absent from the table require authentication only.
var OperationRoles = map[string][]string{
	opUsersList:   {roledomain.NameAdmin, roledomain.NameModerator},
	opUsersGet:    {roledomain.NameAdmin, roledomain.NameModerator},
	opRolesCreate: {roledomain.NameAdmin},
	opRolesUpdate: {roledomain.NameAdmin},
	opRolesDelete: {roledomain.NameAdmin},
}

// refreshCookieName is the HTTP-only cookie carrying the refresh token. The
// token never appears in a response body.
const refreshCookieName = "refresh_token"

// Handler wires the auth, session, user, and role services to HTTP routes.
type Handler struct {
	auth       *authservice.AuthService
	sessions   *sessionservice.Store
	users      *userservice.UserService
	roles      *roleservice.RoleService
	guard      *rbac.Guard
	tokens     *security.TokenProvider
	refreshTTL time.Duration
	pinger     Pinger
}

// NewHandler returns a Handler over the given services. refreshTTL bounds the
// refresh cookie's lifetime and must match the session TTL.
func NewHandler(
	auth *authservice.AuthService,
	sessions *sessionservice.Store,
	users *userservice.UserService,
	roles *roleservice.RoleService,
	guard *rbac.Guard,
	tokens *security.TokenProvider,
	refreshTTL time.Duration,
) *Handler {
	return &Handler{
		auth:       auth,
		sessions:   sessions,
		users:      users,
		roles:      roles,
		guard:      guard,
		tokens:     tokens,
		refreshTTL: refreshTTL,
	}
}

// Routes returns the API route table.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", h.handleHealth)

	mux.HandleFunc("POST /api/auth/register", h.handleRegister)
	mux.HandleFunc("POST /api/auth/login", h.handleLogin)
	mux.HandleFunc("POST /api/auth/refresh", h.handleRefresh)
	mux.HandleFunc("POST /api/auth/logout", h.requireAuth(h.handleLogout))

	mux.HandleFunc("GET /api/sessions", h.requireAuth(h.handleListSessions))
	mux.HandleFunc("DELETE /api/sessions/all", h.requireAuth(h.handleTerminateAll))
	mux.HandleFunc("DELETE /api/sessions/others", h.requireAuth(h.handleTerminateOthers))
	mux.HandleFunc("DELETE /api/sessions/{id}", h.requireAuth(h.handleTerminateSession))

	mux.HandleFunc("GET /api/roles", h.requireAuth(h.handleListRoles))
	mux.HandleFunc("POST /api/roles", h.requireRoles(opRolesCreate, h.handleCreateRole))
	mux.HandleFunc("GET /api/roles/{id}", h.requireAuth(h.handleGetRole))
	mux.HandleFunc("PATCH /api/roles/{id}", h.requireRoles(opRolesUpdate, h.handleUpdateRole))
	mux.HandleFunc("DELETE /api/roles/{id}", h.requireRoles(opRolesDelete, h.handleDeleteRole))

	mux.HandleFunc("GET /api/users", h.requireRoles(opUsersList, h.handleListUsers))
	mux.HandleFunc("GET /api/users/me", h.requireAuth(h.handleGetMe))
	mux.HandleFunc("PATCH /api/users/me", h.requireAuth(h.handleUpdateMe))
	mux.HandleFunc("POST /api/users/me/password", h.requireAuth(h.handleChangePassword))
	mux.HandleFunc("GET /api/users/{id}", h.requireRoles(opUsersGet, h.handleGetUser))

	return mux
}

type errorResponse struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: responseError{Code: code, Message: message}})
}

// writeServiceError maps service sentinel errors to HTTP status codes.
// Unrecognized errors are treated as internal and not surfaced to clients.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authservice.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
	case errors.Is(err, authservice.ErrInvalidOrExpiredToken):
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid or expired refresh token")
	case errors.Is(err, userservice.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email_taken", "email already registered")
	case errors.Is(err, userservice.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", "user not found")
	case errors.Is(err, userservice.ErrWrongPassword):
		writeError(w, http.StatusBadRequest, "wrong_password", "current password is incorrect")
	case errors.Is(err, sessionservice.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session_not_found", "session not found")
	case errors.Is(err, sessionservice.ErrNotSessionOwner):
		writeError(w, http.StatusForbidden, "forbidden", "session belongs to another user")
	case errors.Is(err, roleservice.ErrRoleNotFound):
		writeError(w, http.StatusNotFound, "role_not_found", "role not found")
	case errors.Is(err, roleservice.ErrRoleExists):
		writeError(w, http.StatusConflict, "role_exists", "role already exists")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeGuardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rbac.ErrNoRoleAssigned):
		writeError(w, http.StatusForbidden, "no_role", "user does not have a role assigned")
	case errors.Is(err, rbac.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "insufficient permissions")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
