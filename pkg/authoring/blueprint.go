package authoring

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/ports"
	"gopkg.in/yaml.v3"
)

// DemoFormCode is the code of the form in the embedded demo blueprint.
const DemoFormCode = "dev_survey"

//go:embed blueprints/dev_survey.yaml
var demoBlueprint []byte

// Blueprint is a YAML authoring document: shared dictionaries and complete forms.
type Blueprint struct {
	Dictionaries []CreateDictionaryRequest `yaml:"dictionaries"`
	Forms        []FormBlueprint           `yaml:"forms"`
}

// FormBlueprint is a form with its steps and routes. Start names the start step;
// by default the first step is used.
type FormBlueprint struct {
	CreateFormRequest `yaml:",inline"`
	Start             string           `yaml:"start,omitempty"`
	Steps             []StepBlueprint  `yaml:"steps"`
	Routes            []RouteBlueprint `yaml:"routes"`
}

type StepBlueprint struct {
	CreateStepRequest `yaml:",inline"`
	Fields            []CreateFieldRequest `yaml:"fields"`
}

// RouteBlueprint addresses source and target steps by code.
type RouteBlueprint struct {
	From         string `yaml:"from"`
	To           string `yaml:"to"`
	RouteRequest `yaml:",inline"`
}

// ParseBlueprint decodes a blueprint, rejecting unknown keys.
func ParseBlueprint(r io.Reader) (*Blueprint, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var bp Blueprint
	if err := dec.Decode(&bp); err != nil {
		if errors.Is(err, io.EOF) {
			return &bp, nil
		}
		return nil, domain.Invalidf("parse blueprint", "%v", err)
	}
	return &bp, nil
}

// DemoBlueprint returns the embedded dev_survey blueprint.
func DemoBlueprint() *Blueprint {
	bp, err := ParseBlueprint(bytes.NewReader(demoBlueprint))
	if err != nil {
		panic(fmt.Sprintf("embedded demo blueprint: %v", err))
	}
	return bp
}

// Apply creates everything in bp in one transaction and returns the created forms.
func (s *Service) Apply(ctx context.Context, bp *Blueprint) ([]domain.Form, error) {
	var forms []domain.Form
	err := s.store.Atomic(ctx, func(tx ports.Store) error {
		svc := s.with(tx)
		for _, d := range bp.Dictionaries {
			if _, err := svc.CreateDictionary(ctx, d); err != nil {
				return err
			}
		}
		for _, fb := range bp.Forms {
			form, err := svc.applyForm(ctx, fb)
			if err != nil {
				return fmt.Errorf("form %q: %w", fb.Code, err)
			}
			forms = append(forms, *form)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return forms, nil
}

func (s *Service) applyForm(ctx context.Context, fb FormBlueprint) (*domain.Form, error) {
	form, err := s.CreateForm(ctx, fb.CreateFormRequest)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]int64, len(fb.Steps))
	for _, sb := range fb.Steps {
		step, err := s.CreateStep(ctx, form.ID, sb.CreateStepRequest)
		if err != nil {
			return nil, err
		}
		ids[step.Code] = step.ID
		for _, fr := range sb.Fields {
			if _, err := s.CreateField(ctx, step.ID, fr); err != nil {
				return nil, fmt.Errorf("step %q: %w", step.Code, err)
			}
		}
	}

	if fb.Start != "" {
		id, ok := ids[fb.Start]
		if !ok {
			return nil, domain.NotFoundf("apply blueprint", "start step %q not found", fb.Start)
		}
		isStart := true
		if _, err := s.UpdateStep(ctx, form.ID, id, UpdateStepRequest{IsStart: &isStart}); err != nil {
			return nil, err
		}
	}

	for i, rb := range fb.Routes {
		from, ok := ids[rb.From]
		if !ok {
			return nil, domain.NotFoundf("apply blueprint", "route %d: step %q not found", i, rb.From)
		}
		to, ok := ids[rb.To]
		if !ok {
			return nil, domain.NotFoundf("apply blueprint", "route %d: step %q not found", i, rb.To)
		}
		req := rb.RouteRequest
		req.TargetStepID = to
		if _, err := s.CreateRoute(ctx, form.ID, from, req); err != nil {
			return nil, fmt.Errorf("route %s -> %s: %w", rb.From, rb.To, err)
		}
	}
	return s.store.GetForm(ctx, form.ID)
}

// SeedDemo applies the demo blueprint unless its form already exists.
func (s *Service) SeedDemo(ctx context.Context) (*domain.Form, error) {
	existing, err := s.store.GetFormByCode(ctx, DemoFormCode)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	forms, err := s.Apply(ctx, DemoBlueprint())
	if err != nil {
		return nil, err
	}
	s.logger.Info("demo form seeded", "form_id", forms[0].ID, "code", DemoFormCode)
	return &forms[0], nil
}
