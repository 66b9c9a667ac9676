// Package service implements the authentication flows: register, login,
// refresh, and logout. It is the only place where password verification,
// token issuance, and the session store are composed end to end.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	roledomain "auth-control-plane/backend/internal/role/domain"
	"auth-control-plane/backend/internal/security"
	sessiondomain "auth-control-plane/backend/internal/session/domain"
	sessionservice "auth-control-plane/backend/internal/session/service"
	userdomain "auth-control-plane/backend/internal/user/domain"
	userservice "auth-control-plane/backend/internal/user/service"
)

// Sentinel errors for auth flows; the request layer maps them to HTTP codes.
var (
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired refresh token")
)

// dummyHash is a valid bcrypt digest compared against when the email is
// unknown, so login spends the same time whether or not the user exists.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// AuthResult holds the outcome of Register, Login, or Refresh: the access
// token for the response body and the raw refresh token for the cookie.
type AuthResult struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
	SessionID       string
	UserID          string
}

// UserAccounts is the minimal user service surface needed by the auth service.
type UserAccounts interface {
	Create(ctx context.Context, in userservice.CreateInput) (*userdomain.User, error)
	Get(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
}

// Roles is the minimal role service surface needed by the auth service.
type Roles interface {
	FindByName(ctx context.Context, name string) (*roledomain.Role, error)
}

// Sessions is the minimal session store surface needed by the auth service.
type Sessions interface {
	Create(ctx context.Context, userID string, meta sessiondomain.ClientMeta) (*sessiondomain.Session, string, error)
	FindByRefreshToken(ctx context.Context, token string) (*sessiondomain.Session, error)
	RotateRefreshToken(ctx context.Context, sessionID string) (string, error)
	TouchActivity(ctx context.Context, sessionID string) error
	Terminate(ctx context.Context, sessionID, requestingUserID string) error
}

// AuthService implements password register, login, refresh, and logout.
type AuthService struct {
	users    UserAccounts
	roles    Roles
	sessions Sessions
	hasher   *security.Hasher
	tokens   *security.TokenProvider
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(users UserAccounts, roles Roles, sessions Sessions, hasher *security.Hasher, tokens *security.TokenProvider) *AuthService {
	return &AuthService{
		users:    users,
		roles:    roles,
		sessions: sessions,
		hasher:   hasher,
		tokens:   tokens,
	}
}

// RegisterInput holds the registration fields.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates a user with a hashed password and the default "user"
// role, then logs the new user in. Fails with userservice.ErrEmailTaken when
// the email is already registered.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, meta sessiondomain.ClientMeta) (*AuthResult, error) {
	roleID := ""
	userRole, err := s.roles.FindByName(ctx, roledomain.NameUser)
	if err != nil {
		return nil, err
	}
	if userRole != nil {
		roleID = userRole.ID
	}
	user, err := s.users.Create(ctx, userservice.CreateInput{
		Email:     in.Email,
		Password:  in.Password,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		RoleID:    roleID,
	})
	if err != nil {
		return nil, err
	}
	return s.loginUser(ctx, user, meta)
}

// Login authenticates with email and password and opens a session. An
// unknown email, a wrong password, and a blocked account all fail with the
// same ErrInvalidCredentials so responses do not reveal which emails exist.
func (s *AuthService) Login(ctx context.Context, email, password string, meta sessiondomain.ClientMeta) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Blocked {
		_ = s.hasher.Compare(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.loginUser(ctx, user, meta)
}

// loginUser creates the session and issues both credentials. The session
// store mints the refresh token and persists only its hash; the raw token is
// handed back here exactly once.
func (s *AuthService) loginUser(ctx context.Context, user *userdomain.User, meta sessiondomain.ClientMeta) (*AuthResult, error) {
	if meta.DeviceInfo == "" {
		meta.DeviceInfo = DeviceInfo(meta.UserAgent)
	}
	sess, refreshToken, err := s.sessions.Create(ctx, user.ID, meta)
	if err != nil {
		return nil, err
	}
	accessToken, accessExp, err := s.tokens.IssueAccess(sess.ID, user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		AccessExpiresAt: accessExp,
		SessionID:       sess.ID,
		UserID:          user.ID,
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token and a
// rotated refresh token bound to the same session. Fails with
// ErrInvalidOrExpiredToken when the token matches no non-expired session or
// the owning user no longer exists. The session's absolute expiry is not
// extended.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, ErrInvalidOrExpiredToken
	}
	sess, err := s.sessions.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, sessionservice.ErrSessionNotFound) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, err
	}
	user, err := s.users.Get(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, userservice.ErrUserNotFound) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, err
	}
	if err := s.sessions.TouchActivity(ctx, sess.ID); err != nil {
		return nil, err
	}
	newRefresh, err := s.sessions.RotateRefreshToken(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	accessToken, accessExp, err := s.tokens.IssueAccess(sess.ID, user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		AccessToken:     accessToken,
		RefreshToken:    newRefresh,
		AccessExpiresAt: accessExp,
		SessionID:       sess.ID,
		UserID:          user.ID,
	}, nil
}

// Logout terminates the named session, scoped to the requesting user. The
// ownership check prevents terminating someone else's session by guessing an
// id; such an attempt fails with sessionservice.ErrNotSessionOwner.
func (s *AuthService) Logout(ctx context.Context, sessionID, userID string) error {
	return s.sessions.Terminate(ctx, sessionID, userID)
}

// DeviceInfo derives a coarse device label from a User-Agent header. The
// label is informational session metadata only.
func DeviceInfo(userAgent string) string {
	if userAgent == "" {
		return "Unknown device"
	}
	switch {
	case strings.Contains(userAgent, "Mobile"),
		strings.Contains(userAgent, "Android"),
		strings.Contains(userAgent, "iPhone"):
		return "Mobile"
	case strings.Contains(userAgent, "Chrome"):
		return "Chrome"
	case strings.Contains(userAgent, "Firefox"):
		return "Firefox"
	case strings.Contains(userAgent, "Safari"):
		return "Safari"
	}
	return "Web browser"
}
