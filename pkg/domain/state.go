package domain

import "time"

// InstanceStatus is the lifecycle state of an Instance.
type InstanceStatus string

const (
	InstanceDraft      InstanceStatus = "draft"
	InstanceInProgress InstanceStatus = "in_progress"
	InstancePaused     InstanceStatus = "paused" // reserved, never entered by the engine
	InstanceCompleted  InstanceStatus = "completed"
	InstanceCancelled  InstanceStatus = "cancelled"
)

// InstanceStatuses lists the status vocabulary in seed order.
var InstanceStatuses = []InstanceStatus{
	InstanceDraft, InstanceInProgress, InstancePaused, InstanceCompleted, InstanceCancelled,
}

func (s InstanceStatus) Valid() bool {
	switch s {
	case InstanceDraft, InstanceInProgress, InstancePaused, InstanceCompleted, InstanceCancelled:
		return true
	}
	return false
}

// ParseInstanceStatus resolves a status code.
func ParseInstanceStatus(code string) (InstanceStatus, error) {
	s := InstanceStatus(code)
	if !s.Valid() {
		return "", NotFoundf("parse instance status", "instance status %q not found", code)
	}
	return s, nil
}

// Instance is one user's run through a Form.
type Instance struct {
	ID            int64          `json:"id"`
	FormID        int64          `json:"form_id"`
	UserID        string         `json:"user_id"`
	Status        InstanceStatus `json:"status"`
	CurrentStepID *int64         `json:"current_step_id"`

	// Version is bumped by every mutation of the instance, its answers or its ledger.
	Version int64 `json:"version"`

	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Done reports whether the instance reached a final status.
func (i *Instance) Done() bool {
	return i.Status == InstanceCompleted || i.Status == InstanceCancelled
}

// VisitStatus is the state of one ledger row.
type VisitStatus string

const (
	VisitEntered   VisitStatus = "entered"
	VisitCompleted VisitStatus = "completed"
)

// StepVisit is one append-only ledger row recording entry into (and exit from) a Step.
type StepVisit struct {
	ID         int64       `json:"id"`
	InstanceID int64       `json:"instance_id"`
	StepID     int64       `json:"step_id"`
	StepCode   string      `json:"step_code"`
	Status     VisitStatus `json:"status"`
	EnteredAt  time.Time   `json:"entered_at"`
	LeftAt     *time.Time  `json:"left_at,omitempty"`
}

// Navigation is the summary served to a UI. It is always recomputed, never trusted from cache.
type Navigation struct {
	Completed       []string `json:"completed_steps"`
	Available       []string `json:"available_steps"`
	CurrentStepCode *string  `json:"current_step_code"`
}

// Allows reports whether code is in the available set.
func (n *Navigation) Allows(code string) bool {
	for _, c := range n.Available {
		if c == code {
			return true
		}
	}
	return false
}

// SessionState is the cached record for one instance.
type SessionState struct {
	InstanceID    int64      `json:"instance_id"`
	Version       int64      `json:"version"`
	FormID        int64      `json:"form_id"`
	FormCode      string     `json:"form_code"`
	CurrentStepID *int64     `json:"current_step_id,omitempty"`
	Navigation    Navigation `json:"navigation"`
}
