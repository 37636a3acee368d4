package domain

import (
	"errors"
	"time"
)

// SessionMode determines whether a collection session may feed the action plane.
type SessionMode string

const (
	SessionPassive SessionMode = "passive"
	SessionActive  SessionMode = "active"
)

var ErrInvalidSessionMode = errors.New("session mode must be passive or active")

// IsValid checks if the mode is a recognized session mode.
func (m SessionMode) IsValid() bool {
	switch m {
	case SessionPassive, SessionActive:
		return true
	}
	return false
}

// Session represents a bounded collection window. At most one session is
// active (StoppedAt == nil) at any time; the store serializes that invariant.
type Session struct {
	ID        int64          `json:"id"`
	Mode      SessionMode    `json:"mode"`
	Label     *string        `json:"label"`
	Operator  string         `json:"operator"`
	Metadata  map[string]any `json:"metadata"`
	StartedAt time.Time      `json:"started_at"`
	StoppedAt *time.Time     `json:"stopped_at"`
	Summary   map[string]any `json:"summary"`
}

// Active reports whether the session is still collecting.
func (s *Session) Active() bool {
	return s.StoppedAt == nil
}
