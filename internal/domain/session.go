package domain

import (
	"fmt"
	"time"
)

// SessionStatus is the lifecycle state of a focus session.
type SessionStatus string

const (
	StatusScheduled SessionStatus = "scheduled"
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
	StatusStained   SessionStatus = "stained"
	StatusRemoved   SessionStatus = "removed"
)

// ValidStatuses lists every accepted status.
func ValidStatuses() []SessionStatus {
	return []SessionStatus{StatusScheduled, StatusActive, StatusCompleted, StatusStained, StatusRemoved}
}

func (s SessionStatus) IsValid() bool {
	for _, v := range ValidStatuses() {
		if s == v {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends a session. Terminal statuses
// carry an end date.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRemoved
}

// Device identifies the browser install that owns a session.
type Device struct {
	DeviceID string `json:"deviceId"`
	Label    string `json:"label,omitempty"`
	OS       string `json:"os,omitempty"`
	Browser  string `json:"browser,omitempty"`
}

// Session is a tracked focus session. OwnerID is fixed at creation.
type Session struct {
	ID            string        `json:"id"`
	OwnerID       string        `json:"ownerId"`
	BlockedSites  []string      `json:"blockedSites"`
	StartDate     time.Time     `json:"startDate"`
	LastCheckedAt *time.Time    `json:"lastCheckedAt,omitempty"`
	EndDate       *time.Time    `json:"endDate,omitempty"`
	Status        SessionStatus `json:"status"`
	Device        Device        `json:"device"`
	ExistsLocally bool          `json:"existsLocally"`
	CreatedAt     time.Time     `json:"createdAt"`
}

func (s *Session) IsOwnedBy(userID string) bool {
	return userID != "" && s.OwnerID == userID
}

// Touch records a heartbeat.
func (s *Session) Touch(now time.Time) {
	t := now.UTC()
	s.LastCheckedAt = &t
}

// Transition moves the session to status. Terminal statuses stamp EndDate
// with now; any other status clears it.
func (s *Session) Transition(status SessionStatus, now time.Time) error {
	if !status.IsValid() {
		return fmt.Errorf("unknown session status %q", status)
	}
	s.Status = status
	if status.IsTerminal() {
		t := now.UTC()
		s.EndDate = &t
	} else {
		s.EndDate = nil
	}
	return nil
}

// BadgeDevice is the public subset of Device.
type BadgeDevice struct {
	DeviceID string `json:"deviceId"`
	Label    string `json:"label,omitempty"`
}

// Badge is the public projection of a session.
type Badge struct {
	ID            string        `json:"id"`
	StartDate     time.Time     `json:"startDate"`
	LastCheckedAt *time.Time    `json:"lastCheckedAt,omitempty"`
	EndDate       *time.Time    `json:"endDate,omitempty"`
	Status        SessionStatus `json:"status"`
	Device        BadgeDevice   `json:"device"`
	ExistsLocally bool          `json:"existsLocally"`
}

// Badge projects the session onto its public fields.
func (s *Session) Badge() Badge {
	return Badge{
		ID:            s.ID,
		StartDate:     s.StartDate,
		LastCheckedAt: s.LastCheckedAt,
		EndDate:       s.EndDate,
		Status:        s.Status,
		Device: BadgeDevice{
			DeviceID: s.Device.DeviceID,
			Label:    s.Device.Label,
		},
		ExistsLocally: s.ExistsLocally,
	}
}
