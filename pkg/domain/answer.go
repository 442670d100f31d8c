package domain

import "time"

// AnswerInput is one submitted (field code, raw value) pair.
// Value holds whatever the transport decoded: string, float64, bool, []any or nil.
type AnswerInput struct {
	FieldCode string `json:"field_code"`
	Value     any    `json:"value"`
}

// Answer is the stored value for one (instance, field).
type Answer struct {
	InstanceID int64     `json:"instance_id"`
	FieldID    int64     `json:"field_id"`
	FieldCode  string    `json:"field_code"`
	Value      Value     `json:"value"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Snapshot is every recorded answer of one instance, keyed by field id.
type Snapshot map[int64]Value

// Get returns the recorded value for a field, or null when absent.
func (s Snapshot) Get(fieldID int64) Value {
	if s == nil {
		return Null()
	}
	return s[fieldID]
}

// SubmitResult is the outcome of submitting the current step.
type SubmitResult struct {
	InstanceID   int64   `json:"instance_id"`
	NextStepID   *int64  `json:"next_step_id"`
	NextStepCode *string `json:"next_step_code"`
	IsComplete   bool    `json:"is_complete"`
	Navigation
}

// StepView is the render model for one step of one instance.
// Navigation is computed against the instance's current step, not the viewed one.
type StepView struct {
	InstanceID int64            `json:"instance_id"`
	StepID     int64            `json:"step_id"`
	StepCode   string           `json:"step_code"`
	StepTitle  string           `json:"step_title"`
	IsTerminal bool             `json:"is_terminal"`
	Fields     []Field          `json:"fields"`
	Values     map[string]Value `json:"values"`
	Navigation
}
