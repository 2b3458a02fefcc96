package model

import (
	"time"
)

// Action is the classified outcome of one timesheet webhook delivery.
type Action string

const (
	ActionClockIn    Action = "clock_in"
	ActionClockOut   Action = "clock_out"
	ActionBreakStart Action = "break_start"
	ActionBreakEnd   Action = "break_end"
	ActionIgnore     Action = "ignore"
)

// Presence is the phone-system state an action should flip the employee's extension to.
type Presence string

const (
	PresenceAvailable   Presence = "available"
	PresenceUnavailable Presence = "unavailable"
)

// ClockStatus is the display state carried on the live status board.
type ClockStatus string

const (
	StatusClockedIn  ClockStatus = "clocked_in"
	StatusClockedOut ClockStatus = "clocked_out"
	StatusOnBreak    ClockStatus = "on_break"
	StatusUnknown    ClockStatus = "unknown"
)

// ParseClockStatus validates a wire value against the known clock statuses.
func ParseClockStatus(s string) (ClockStatus, bool) {
	switch ClockStatus(s) {
	case StatusClockedIn, StatusClockedOut, StatusOnBreak, StatusUnknown:
		return ClockStatus(s), true
	}
	return "", false
}

// ClockStatus maps an action to the status shown on the board. Returning from
// a break counts as clocked in again for display purposes.
func (a Action) ClockStatus() (ClockStatus, bool) {
	switch a {
	case ActionClockIn, ActionBreakEnd:
		return StatusClockedIn, true
	case ActionClockOut:
		return StatusClockedOut, true
	case ActionBreakStart:
		return StatusOnBreak, true
	}
	return "", false
}

// TimesheetEvent is the parser's verdict on one webhook payload. It is a
// value type; nothing mutates it after classification.
type TimesheetEvent struct {
	Action          Action      `json:"action"`
	DesiredPresence Presence    `json:"desired_presence,omitempty"`
	TimesheetID     *int        `json:"timesheet_id,omitempty"`
	EmployeeID      *int        `json:"employee_id,omitempty"`
	EventUnix       *int64      `json:"event_unix,omitempty"`
	DedupeKey       string      `json:"dedupe_key,omitempty"`
	Reason          string      `json:"reason"`
	Topic           string      `json:"topic,omitempty"`
	TimesheetDate   string      `json:"timesheet_date,omitempty"`
	DebugBreak      *BreakDebug `json:"debug_break,omitempty"`
}

// BreakDebug is a diagnostic snapshot of the break slot the classifier looked
// at. It never influences behavior downstream.
type BreakDebug struct {
	StartUnix int64  `json:"start_unix"`
	EndUnix   *int64 `json:"end_unix,omitempty"`
	State     string `json:"state,omitempty"`
	TypeName  string `json:"type_name,omitempty"`
}

// Employee is one directory mapping from the time-and-attendance system's
// employee id to the people-facing identity used downstream.
type Employee struct {
	ID          string `json:"timeclock_id"`
	Name        string `json:"name"`
	ExtensionID string `json:"extension_id,omitempty"`
	Email       string `json:"email,omitempty"`
}

// EmployeeStatus is one row of the board's in-memory table.
type EmployeeStatus struct {
	EmployeeID  string      `json:"employee_id"`
	Name        string      `json:"name"`
	ClockStatus ClockStatus `json:"clock_status"`
	LastUpdated time.Time   `json:"last_updated"`
	ExtensionID string      `json:"phone_extension_id,omitempty"`
}

// StatusUpdate is the internal payload the dispatcher pushes to the board.
type StatusUpdate struct {
	EmployeeID  string      `json:"employee_id"`
	Name        string      `json:"name"`
	ClockStatus ClockStatus `json:"clock_status"`
}
