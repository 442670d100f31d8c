package dsl

import (
	"github.com/aretw0/formflow/pkg/authoring"
	"github.com/aretw0/formflow/pkg/domain"
)

// Builder manages the construction of one form.
type Builder struct {
	form   authoring.FormBlueprint
	steps  map[string]*StepBuilder
	order  []string
	routes []*RouteBuilder
}

// New creates a builder for a form with the given code and title.
func New(code, title string) *Builder {
	return &Builder{
		form: authoring.FormBlueprint{
			CreateFormRequest: authoring.CreateFormRequest{Code: code, Title: title},
		},
		steps: make(map[string]*StepBuilder),
	}
}

// Describe sets the form description.
func (b *Builder) Describe(text string) *Builder {
	b.form.Description = text
	return b
}

// Inactive marks the form as not accepting new instances.
func (b *Builder) Inactive() *Builder {
	active := false
	b.form.IsActive = &active
	return b
}

// Start names the start step. Without it the first added step starts the form.
func (b *Builder) Start(code string) *Builder {
	b.form.Start = code
	return b
}

// Add creates a questionnaire step in the form.
// If the step already exists, it returns the existing builder.
func (b *Builder) Add(code string) *StepBuilder {
	if sb, ok := b.steps[code]; ok {
		return sb
	}
	sb := &StepBuilder{
		step: authoring.StepBlueprint{
			CreateStepRequest: authoring.CreateStepRequest{
				Code:         code,
				Title:        code,
				StepTypeCode: string(domain.StepQuestionnaire),
			},
		},
	}
	b.steps[code] = sb
	b.order = append(b.order, code)
	return sb
}

// Route adds a transition between two steps. Without conditions it always applies.
func (b *Builder) Route(from, to string) *RouteBuilder {
	rb := &RouteBuilder{route: authoring.RouteBlueprint{From: from, To: to}}
	b.routes = append(b.routes, rb)
	return rb
}

// Form returns the form blueprint with steps in the order they were added.
func (b *Builder) Form() authoring.FormBlueprint {
	fb := b.form
	fb.Steps = make([]authoring.StepBlueprint, 0, len(b.order))
	for _, code := range b.order {
		fb.Steps = append(fb.Steps, b.steps[code].Build())
	}
	fb.Routes = make([]authoring.RouteBlueprint, 0, len(b.routes))
	for _, rb := range b.routes {
		fb.Routes = append(fb.Routes, rb.route)
	}
	return fb
}

// Build wraps the form in a blueprint ready for authoring.Service.Apply.
func (b *Builder) Build(dictionaries ...authoring.CreateDictionaryRequest) *authoring.Blueprint {
	return &authoring.Blueprint{
		Dictionaries: dictionaries,
		Forms:        []authoring.FormBlueprint{b.Form()},
	}
}

// Dictionary builds a shared option set from code/label pairs.
func Dictionary(code, title string, pairs ...string) authoring.CreateDictionaryRequest {
	return authoring.CreateDictionaryRequest{Code: code, Title: title, Values: options(pairs)}
}

func options(pairs []string) []authoring.OptionRequest {
	out := make([]authoring.OptionRequest, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, authoring.OptionRequest{Code: pairs[i], Label: pairs[i+1]})
	}
	return out
}
