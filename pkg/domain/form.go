package domain

import "time"

// Form owns a graph of Steps.
type Form struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	StartStepID *int64    `json:"start_step_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Step is a node of a Form's graph.
type Step struct {
	ID         int64    `json:"id"`
	FormID     int64    `json:"form_id"`
	Code       string   `json:"code"`
	Title      string   `json:"title"`
	Type       StepType `json:"step_type_code"`
	SortOrder  int      `json:"sort_order"`
	IsTerminal bool     `json:"is_terminal"`
}

// Option is one entry of a choice field's option set.
type Option struct {
	Code      string `json:"value_code" yaml:"code"`
	Label     string `json:"value_label" yaml:"label"`
	SortOrder int    `json:"sort_order,omitempty" yaml:"sort_order,omitempty"`
}

// Dictionary is a shared, form-independent option set.
type Dictionary struct {
	ID     int64    `json:"id"`
	Code   string   `json:"code"`
	Title  string   `json:"title"`
	Values []Option `json:"values"`
}

// Field is a typed data slot attached to a Step.
// Options are resolved from either the field's own options or its Dictionary.
type Field struct {
	ID             int64     `json:"id"`
	StepID         int64     `json:"step_id"`
	Code           string    `json:"code"`
	Title          string    `json:"title"`
	DataType       DataType  `json:"data_type_code"`
	InputType      InputType `json:"input_type_code"`
	DictionaryID   *int64    `json:"-"`
	DictionaryCode string    `json:"dictionary_code,omitempty"`
	IsRequired     bool      `json:"is_required"`
	SortOrder      int       `json:"sort_order"`
	Options        []Option  `json:"options"`
}

// MultiValued reports whether answers to the field are lists of option codes.
func (f Field) MultiValued() bool {
	return f.InputType == InputMultiselect
}
