package dsl

import (
	"github.com/aretw0/formflow/pkg/authoring"
	"github.com/aretw0/formflow/pkg/domain"
)

// StepBuilder provides a fluent API for configuring a step.
type StepBuilder struct {
	step authoring.StepBlueprint
}

// Title sets the step title.
func (s *StepBuilder) Title(title string) *StepBuilder {
	s.step.Title = title
	return s
}

// Type sets the step type.
func (s *StepBuilder) Type(t domain.StepType) *StepBuilder {
	s.step.StepTypeCode = string(t)
	return s
}

// Order sets the display order of the step.
func (s *StepBuilder) Order(n int) *StepBuilder {
	s.step.SortOrder = &n
	return s
}

// Terminal marks the step as the end of the flow.
func (s *StepBuilder) Terminal() *StepBuilder {
	s.step.IsTerminal = true
	return s
}

// Field adds a field to the step and returns its builder.
func (s *StepBuilder) Field(code string, data domain.DataType, input domain.InputType) *FieldBuilder {
	s.step.Fields = append(s.step.Fields, authoring.CreateFieldRequest{
		Code:          code,
		Title:         code,
		DataTypeCode:  string(data),
		InputTypeCode: string(input),
	})
	return &FieldBuilder{step: s, index: len(s.step.Fields) - 1}
}

// Build returns the underlying step blueprint.
func (s *StepBuilder) Build() authoring.StepBlueprint {
	return s.step
}

// FieldBuilder configures the most recently added field of a step.
type FieldBuilder struct {
	step  *StepBuilder
	index int
}

func (f *FieldBuilder) field() *authoring.CreateFieldRequest {
	return &f.step.step.Fields[f.index]
}

// Title sets the question text.
func (f *FieldBuilder) Title(title string) *FieldBuilder {
	f.field().Title = title
	return f
}

// Required marks the field as mandatory.
func (f *FieldBuilder) Required() *FieldBuilder {
	f.field().IsRequired = true
	return f
}

// Options sets inline options from code/label pairs.
func (f *FieldBuilder) Options(pairs ...string) *FieldBuilder {
	f.field().Options = options(pairs)
	return f
}

// From binds the field to a shared dictionary.
func (f *FieldBuilder) From(dictionary string) *FieldBuilder {
	f.field().DictionaryCode = &dictionary
	return f
}

// Step returns to the owning step.
func (f *FieldBuilder) Step() *StepBuilder {
	return f.step
}

// RouteBuilder provides a fluent API for configuring a transition guard.
type RouteBuilder struct {
	route authoring.RouteBlueprint
}

// Priority sets the evaluation order; lower wins.
func (r *RouteBuilder) Priority(p int) *RouteBuilder {
	r.route.Priority = &p
	return r
}

// Scenario sets the human readable guard description.
func (r *RouteBuilder) Scenario(text string) *RouteBuilder {
	r.route.ScenarioDescription = text
	return r
}

// Any makes the guard pass when one condition holds instead of all.
func (r *RouteBuilder) Any() *RouteBuilder {
	r.route.LogicOp = string(domain.LogicOr)
	return r
}

// When adds a condition comparing a field to a literal. The literal kind follows the Go
// type of value: bool, string, numbers and []string. A nil value adds an operator that
// takes no operand, such as is_true or not_empty.
func (r *RouteBuilder) When(field string, op domain.Operator, value any) *RouteBuilder {
	c := authoring.ConditionRequest{FieldCode: field, OpCode: string(op)}
	switch v := value.(type) {
	case nil:
	case bool:
		c.ValueBool = &v
	case string:
		c.ValueText = &v
	case int:
		n := float64(v)
		c.ValueNum = &n
	case int64:
		n := float64(v)
		c.ValueNum = &n
	case float64:
		c.ValueNum = &v
	case []string:
		c.ValueList = v
	default:
		panic("dsl: unsupported literal type for condition on " + field)
	}
	r.route.Conditions = append(r.route.Conditions, c)
	return r
}

// WhenOption adds a condition comparing a choice field to an option code.
func (r *RouteBuilder) WhenOption(field string, op domain.Operator, option string) *RouteBuilder {
	r.route.Conditions = append(r.route.Conditions, authoring.ConditionRequest{
		FieldCode: field, OpCode: string(op), OptionCode: &option,
	})
	return r
}

// WhenField adds a condition comparing two fields of the same instance.
func (r *RouteBuilder) WhenField(field string, op domain.Operator, other string) *RouteBuilder {
	r.route.Conditions = append(r.route.Conditions, authoring.ConditionRequest{
		FieldCode: field, OpCode: string(op), RHSFieldCode: &other,
	})
	return r
}
