package authoring

// DefaultSortOrder and DefaultPriority apply when a request leaves them unset.
const (
	DefaultSortOrder = 100
	DefaultPriority  = 100
)

// CreateFormRequest describes a new form. Forms are active unless IsActive is false.
type CreateFormRequest struct {
	Code        string `json:"code" yaml:"code" validate:"required,max=100"`
	Title       string `json:"title" yaml:"title" validate:"required"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	IsActive    *bool  `json:"is_active,omitempty" yaml:"is_active,omitempty"`
}

// CreateStepRequest describes a new step. The first step of a form becomes its start step.
type CreateStepRequest struct {
	Code         string `json:"code" yaml:"code" validate:"required,max=100"`
	Title        string `json:"title" yaml:"title" validate:"required"`
	StepTypeCode string `json:"step_type_code" yaml:"type" validate:"required"`
	SortOrder    *int   `json:"sort_order,omitempty" yaml:"sort_order,omitempty"`
	IsTerminal   bool   `json:"is_terminal" yaml:"is_terminal"`
}

// UpdateStepRequest patches a step. Nil members are left unchanged.
// IsStart true makes the step the form's start step; false clears it if it was.
type UpdateStepRequest struct {
	Title        *string `json:"title,omitempty" validate:"omitempty,min=1"`
	StepTypeCode *string `json:"step_type_code,omitempty"`
	SortOrder    *int    `json:"sort_order,omitempty"`
	IsTerminal   *bool   `json:"is_terminal,omitempty"`
	IsStart      *bool   `json:"is_start,omitempty"`
}

// OptionRequest is one option of a dictionary or a field.
type OptionRequest struct {
	Code      string `json:"value_code" yaml:"code" validate:"required"`
	Label     string `json:"value_label" yaml:"label" validate:"required"`
	SortOrder *int   `json:"sort_order,omitempty" yaml:"sort_order,omitempty"`
}

// CreateDictionaryRequest describes a shared option set.
type CreateDictionaryRequest struct {
	Code   string          `json:"code" yaml:"code" validate:"required,max=100"`
	Title  string          `json:"title" yaml:"title" validate:"required"`
	Values []OptionRequest `json:"values" yaml:"values" validate:"dive"`
}

// CreateFieldRequest describes a new field. Choice inputs need exactly one of Options or
// DictionaryCode; other inputs may have neither.
type CreateFieldRequest struct {
	Code           string          `json:"code" yaml:"code" validate:"required,max=100"`
	Title          string          `json:"title" yaml:"title" validate:"required"`
	DataTypeCode   string          `json:"data_type_code" yaml:"data_type" validate:"required"`
	InputTypeCode  string          `json:"input_type_code" yaml:"input_type" validate:"required"`
	IsRequired     bool            `json:"is_required" yaml:"is_required"`
	SortOrder      *int            `json:"sort_order,omitempty" yaml:"sort_order,omitempty"`
	Options        []OptionRequest `json:"options,omitempty" yaml:"options,omitempty" validate:"omitempty,dive"`
	DictionaryCode *string         `json:"dictionary_code,omitempty" yaml:"dictionary,omitempty"`
}

// ConditionRequest is one guard condition. At most one literal member may be set, and a
// literal cannot be combined with RHSFieldCode.
type ConditionRequest struct {
	FieldCode    string   `json:"field_code" yaml:"field" validate:"required"`
	OpCode       string   `json:"op_code" yaml:"op" validate:"required"`
	ValueText    *string  `json:"value_text,omitempty" yaml:"text,omitempty"`
	ValueNum     *float64 `json:"value_num,omitempty" yaml:"number,omitempty"`
	ValueBool    *bool    `json:"value_bool,omitempty" yaml:"bool,omitempty"`
	ValueDate    *string  `json:"value_date,omitempty" yaml:"date,omitempty"`
	OptionCode   *string  `json:"option_code,omitempty" yaml:"option,omitempty"`
	ValueList    []string `json:"value_list,omitempty" yaml:"list,omitempty"`
	RHSFieldCode *string  `json:"rhs_field_code,omitempty" yaml:"rhs_field,omitempty"`
	Position     *int     `json:"position,omitempty" yaml:"position,omitempty"`
}

// RouteRequest creates or replaces a guarded transition.
type RouteRequest struct {
	TargetStepID        int64              `json:"target_step_id" yaml:"-" validate:"required"`
	Priority            *int               `json:"priority,omitempty" yaml:"priority,omitempty"`
	Description         string             `json:"description,omitempty" yaml:"description,omitempty"`
	ScenarioDescription string             `json:"scenario_description,omitempty" yaml:"scenario,omitempty"`
	LogicOp             string             `json:"logic_op,omitempty" yaml:"logic,omitempty" validate:"omitempty,oneof=AND OR"`
	Conditions          []ConditionRequest `json:"conditions" yaml:"conditions" validate:"dive"`
}

func orDefault(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
