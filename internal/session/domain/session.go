package domain

import "time"

// Session is one authenticated login instance for a user. RefreshTokenHash is
// the SHA-256 hash of the current opaque refresh token; the raw token is
// returned to the client once and never stored. Client metadata fields are
// informational only and never feed authorization decisions.
type Session struct {
	ID               string
	UserID           string
	RefreshTokenHash string
	UserAgent        string
	IPAddress        string
	DeviceInfo       string
	Location         string
	ExpiresAt        time.Time
	LastActivityAt   time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Expired reports whether the session's absolute lifetime has passed at now.
// Expired sessions are never deleted eagerly; reads filter them out.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// ClientMeta is the client metadata captured at login.
type ClientMeta struct {
	UserAgent  string
	IPAddress  string
	DeviceInfo string
	Location   string
}
