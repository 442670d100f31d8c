package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventInstanceStart    EventType = "instance_start"
	EventStepEnter        EventType = "step_enter"
	EventStepLeave        EventType = "step_leave"
	EventInstanceComplete EventType = "instance_complete"
	EventInstanceStuck    EventType = "instance_stuck"
	EventNavigationDenied EventType = "navigation_denied"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       EventType `json:"type"`
	InstanceID int64     `json:"instance_id"`
	FormID     int64     `json:"form_id"`
}

// StepEvent represents entry into or exit from a step.
type StepEvent struct {
	EventBase
	StepID   int64  `json:"step_id"`
	StepCode string `json:"step_code"`
}

// InstanceEvent represents a change of the instance as a whole.
type InstanceEvent struct {
	EventBase
	Status   InstanceStatus `json:"status"`
	StepCode string         `json:"step_code,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability. Nil hooks are skipped.
type LifecycleHooks struct {
	OnInstanceStart    func(context.Context, *InstanceEvent)
	OnStepEnter        func(context.Context, *StepEvent)
	OnStepLeave        func(context.Context, *StepEvent)
	OnInstanceComplete func(context.Context, *InstanceEvent)
	OnInstanceStuck    func(context.Context, *InstanceEvent)
	OnNavigationDenied func(context.Context, *StepEvent)
}

// NewStepEvent stamps a step event.
func NewStepEvent(t EventType, inst *Instance, step *Step) *StepEvent {
	return &StepEvent{
		EventBase: EventBase{Timestamp: time.Now(), Type: t, InstanceID: inst.ID, FormID: inst.FormID},
		StepID:    step.ID,
		StepCode:  step.Code,
	}
}

// NewInstanceEvent stamps an instance event.
func NewInstanceEvent(t EventType, inst *Instance, stepCode string) *InstanceEvent {
	return &InstanceEvent{
		EventBase: EventBase{Timestamp: time.Now(), Type: t, InstanceID: inst.ID, FormID: inst.FormID},
		Status:    inst.Status,
		StepCode:  stepCode,
	}
}
