// Package session owns the authenticated session lifecycle: the two-step
// exchange of a captured code for credentials, the on-disk cache that makes
// sessions outlive process restarts, and invalidation when the server
// declares a session dead.
package session

import (
	"xybclock/internal/xyb"
)

// Session is the complete identity needed to make authenticated calls.
// Timestamp is when it was cached, unix milliseconds.
type Session struct {
	SessionID    string `json:"sessionId"`
	EncryptValue string `json:"encryptValue"`
	OpenID       string `json:"openId"`
	UnionID      string `json:"unionId"`
	TraineeID    string `json:"traineeId,omitempty"`
	Timestamp    int64  `json:"timestamp"`
}

// Auth adapts the session for the remote client.
func (s *Session) Auth() *xyb.Auth {
	return &xyb.Auth{
		OpenID:       s.OpenID,
		UnionID:      s.UnionID,
		EncryptValue: s.EncryptValue,
		SessionID:    s.SessionID,
		TraineeID:    s.TraineeID,
	}
}
