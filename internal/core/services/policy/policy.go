// Package policy holds the process-local arming state that gates execution
// of counter-drone actions. State is never persisted: a restart disarms.
package policy

import (
	"strings"
	"sync"
	"time"
)

// Arming duration bounds in seconds.
const (
	MinArmSeconds     = 60
	MaxArmSeconds     = 7200
	DefaultArmSeconds = 900
)

// State is a snapshot of the arming window.
// Armed holds iff ArmedUntil is set and in the future.
type State struct {
	Armed                    bool       `json:"armed"`
	ArmedBy                  *string    `json:"armed_by"`
	ArmReason                *string    `json:"arm_reason"`
	ArmIncidentID            *int64     `json:"arm_incident_id"`
	ArmedUntil               *time.Time `json:"armed_until"`
	RequiredApprovalsDefault int        `json:"required_approvals_default"`
}

// Engine is the time-bounded arming gate. All methods are safe for
// concurrent callers; expiry is recomputed lazily on read, no timer runs.
type Engine struct {
	mu            sync.Mutex
	armedUntil    *time.Time
	armedBy       *string
	armReason     *string
	armIncidentID *int64

	now func() time.Time
}

// NewEngine creates a disarmed engine using the wall clock.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// NewEngineWithClock creates a disarmed engine with an injected clock.
func NewEngineWithClock(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// Arm opens the action window for a bounded duration. Durations are clamped
// to [MinArmSeconds, MaxArmSeconds]; zero or negative falls back to the
// default.
func (e *Engine) Arm(actor, reason string, incidentID int64, durationSeconds int) State {
	if durationSeconds <= 0 {
		durationSeconds = DefaultArmSeconds
	}
	if durationSeconds < MinArmSeconds {
		durationSeconds = MinArmSeconds
	}
	if durationSeconds > MaxArmSeconds {
		durationSeconds = MaxArmSeconds
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	until := e.now().Add(time.Duration(durationSeconds) * time.Second)
	e.armedUntil = &until
	e.armedBy = &actor
	e.armReason = &reason
	e.armIncidentID = &incidentID

	return e.stateLocked()
}

// Disarm closes the action window immediately.
func (e *Engine) Disarm() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.clearLocked()
	return e.stateLocked()
}

// State returns the current snapshot, lazily clearing an expired window.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

// Armed reports whether the action window is currently open.
func (e *Engine) Armed() bool {
	return e.State().Armed
}

func (e *Engine) stateLocked() State {
	armed := e.armedUntil != nil && e.now().Before(*e.armedUntil)
	if !armed {
		e.clearLocked()
	}

	return State{
		Armed:                    armed,
		ArmedBy:                  e.armedBy,
		ArmReason:                e.armReason,
		ArmIncidentID:            e.armIncidentID,
		ArmedUntil:               e.armedUntil,
		RequiredApprovalsDefault: 2,
	}
}

func (e *Engine) clearLocked() {
	e.armedUntil = nil
	e.armedBy = nil
	e.armReason = nil
	e.armIncidentID = nil
}

// RequiredApprovals returns the approval quorum for an action type:
// passive_* actions need one approver, everything else two.
func RequiredApprovals(actionType string) int {
	action := strings.ToLower(strings.TrimSpace(actionType))
	if strings.HasPrefix(action, "passive_") {
		return 1
	}
	return 2
}
