package session

import "time"

// Session is one live refresh token. Exactly one row exists per redeemable
// refresh token; rotation deletes the old row and inserts the new one.
type Session struct {
	JTI        string `json:"jti"`
	UserID     string `json:"uid"`
	DeviceInfo string `json:"device,omitempty"`
	IP         string `json:"ip,omitempty"`
	CreatedAt  int64  `json:"created_at"`
	ExpiresAt  int64  `json:"expires_at"`
}

// Active reports whether the session has not yet expired at the given time.
func (s *Session) Active(now time.Time) bool {
	return s.ExpiresAt > now.Unix()
}
