package domain

// DataType is the value domain of a Field.
type DataType string

const (
	DataString   DataType = "string"
	DataText     DataType = "text"
	DataInteger  DataType = "integer"
	DataDecimal  DataType = "decimal"
	DataBoolean  DataType = "boolean"
	DataDate     DataType = "date"
	DataDatetime DataType = "datetime"
)

// Valid reports whether t is one of the known data types.
func (t DataType) Valid() bool {
	switch t {
	case DataString, DataText, DataInteger, DataDecimal, DataBoolean, DataDate, DataDatetime:
		return true
	}
	return false
}

// ParseDataType resolves a data type code.
func ParseDataType(code string) (DataType, error) {
	t := DataType(code)
	if !t.Valid() {
		return "", NotFoundf("parse data type", "data type %q not found", code)
	}
	return t, nil
}

// InputType is the widget used to collect a Field.
type InputType string

const (
	InputText        InputType = "input"
	InputTextarea    InputType = "textarea"
	InputSelect      InputType = "select"
	InputMultiselect InputType = "multiselect"
	InputCheckbox    InputType = "checkbox"
	InputDatepicker  InputType = "datepicker"
)

func (t InputType) Valid() bool {
	switch t {
	case InputText, InputTextarea, InputSelect, InputMultiselect, InputCheckbox, InputDatepicker:
		return true
	}
	return false
}

// IsChoice reports whether the input draws its values from an option set.
func (t InputType) IsChoice() bool {
	return t == InputSelect || t == InputMultiselect
}

// ParseInputType resolves an input type code.
func ParseInputType(code string) (InputType, error) {
	t := InputType(code)
	if !t.Valid() {
		return "", NotFoundf("parse input type", "input type %q not found", code)
	}
	return t, nil
}

// StepType classifies a Step for presentation.
type StepType string

const (
	StepQuestionnaire StepType = "questionnaire"
	StepUpload        StepType = "upload"
	StepReview        StepType = "review"
)

func (t StepType) Valid() bool {
	switch t {
	case StepQuestionnaire, StepUpload, StepReview:
		return true
	}
	return false
}

// ParseStepType resolves a step type code.
func ParseStepType(code string) (StepType, error) {
	t := StepType(code)
	if !t.Valid() {
		return "", NotFoundf("parse step type", "step type %q not found", code)
	}
	return t, nil
}

// LogicOp combines the results of a ConditionGroup.
type LogicOp string

const (
	LogicAnd LogicOp = "AND"
	LogicOr  LogicOp = "OR"
)

func (op LogicOp) Valid() bool {
	return op == LogicAnd || op == LogicOr
}

// ParseLogicOp resolves a logic operator. An empty code means AND.
func ParseLogicOp(code string) (LogicOp, error) {
	if code == "" {
		return LogicAnd, nil
	}
	op := LogicOp(code)
	if !op.Valid() {
		return "", Invalidf("parse logic op", "logic op %q must be AND or OR", code)
	}
	return op, nil
}

// Operator is the comparison applied by a Condition.
type Operator string

const (
	OpEq       Operator = "eq"
	OpNe       Operator = "ne"
	OpGt       Operator = "gt"
	OpGte      Operator = "gte"
	OpLt       Operator = "lt"
	OpLte      Operator = "lte"
	OpIn       Operator = "in"
	OpNotIn    Operator = "not_in"
	OpLike     Operator = "like"
	OpIlike    Operator = "ilike"
	OpIsTrue   Operator = "is_true"
	OpIsFalse  Operator = "is_false"
	OpIsEmpty  Operator = "is_empty"
	OpNotEmpty Operator = "not_empty"
)

// Operators lists the full operator vocabulary in seed order.
var Operators = []Operator{
	OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpIn, OpNotIn,
	OpLike, OpIlike, OpIsTrue, OpIsFalse, OpIsEmpty, OpNotEmpty,
}

func (op Operator) Valid() bool {
	switch op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpIn, OpNotIn,
		OpLike, OpIlike, OpIsTrue, OpIsFalse, OpIsEmpty, OpNotEmpty:
		return true
	}
	return false
}

// Unary reports whether the operator ignores its operand.
func (op Operator) Unary() bool {
	switch op {
	case OpIsTrue, OpIsFalse, OpIsEmpty, OpNotEmpty:
		return true
	}
	return false
}

// ParseOperator resolves an operator code.
func ParseOperator(code string) (Operator, error) {
	op := Operator(code)
	if !op.Valid() {
		return "", NotFoundf("parse operator", "operator %q not found", code)
	}
	return op, nil
}
