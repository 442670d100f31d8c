package domain

// Operand is the right-hand side of a Condition: a literal or another field of the same form.
type Operand struct {
	Literal   Value  `json:"literal"`
	FieldID   int64  `json:"rhs_field_id,omitempty"`
	FieldCode string `json:"rhs_field_code,omitempty"`
}

// LiteralOperand wraps a literal value.
func LiteralOperand(v Value) Operand {
	return Operand{Literal: v}
}

// FieldOperand references the recorded answer of another field.
func FieldOperand(fieldID int64) Operand {
	return Operand{FieldID: fieldID}
}

// IsFieldRef reports whether the operand compares against another field.
func (o Operand) IsFieldRef() bool {
	return o.FieldID != 0
}

// Resolve returns the operand's value under the given answers.
func (o Operand) Resolve(answers Snapshot) Value {
	if o.IsFieldRef() {
		return answers.Get(o.FieldID)
	}
	return o.Literal
}

// Condition is one atomic predicate inside a ConditionGroup.
type Condition struct {
	ID        int64    `json:"id"`
	GroupID   int64    `json:"-"`
	FieldID   int64    `json:"field_id"`
	FieldCode string   `json:"field_code,omitempty"`
	Operator  Operator `json:"op_code"`
	Operand   Operand  `json:"operand"`
	Position  int      `json:"position"`
}

// ConditionGroup combines Conditions with a LogicOp. An empty group is always true.
type ConditionGroup struct {
	ID          int64       `json:"id"`
	FormID      int64       `json:"form_id"`
	Logic       LogicOp     `json:"logic_op"`
	Description string      `json:"description,omitempty"`
	Conditions  []Condition `json:"conditions"`
}

// Transition is a guarded edge between two Steps of the same Form.
// Lower Priority is evaluated and selected first.
type Transition struct {
	ID           int64          `json:"id"`
	FormID       int64          `json:"form_id"`
	SourceStepID int64          `json:"source_step_id"`
	TargetStepID int64          `json:"target_step_id"`
	Priority     int            `json:"priority"`
	Description  string         `json:"description,omitempty"`
	Guard        ConditionGroup `json:"guard"`
}
