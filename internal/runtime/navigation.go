package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/ports"
)

// forward resolves the forward set of step for an instance. Terminal steps have none.
func forward(ctx context.Context, s ports.Store, instanceID int64, step *domain.Step) ([]int64, error) {
	if step.IsTerminal {
		return []int64{}, nil
	}

	transitions, err := s.ListTransitions(ctx, step.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transitions of step %d: %w", step.ID, err)
	}
	if len(transitions) == 0 {
		return []int64{}, nil
	}

	answers, err := s.Snapshot(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers of instance %d: %w", instanceID, err)
	}
	return ForwardSet(transitions, answers), nil
}

// navigate builds the navigation summary of an instance positioned at current.
func navigate(ctx context.Context, s ports.Store, inst *domain.Instance, current *int64) (*domain.Navigation, error) {
	visits, err := s.ListVisits(ctx, inst.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger of instance %d: %w", inst.ID, err)
	}

	nav := &domain.Navigation{
		Completed: []string{},
		Available: []string{},
	}
	seen := make(map[string]struct{})
	offer := func(code string) {
		if _, ok := seen[code]; ok {
			return
		}
		seen[code] = struct{}{}
		nav.Available = append(nav.Available, code)
	}

	for _, v := range visits {
		if v.Status != domain.VisitCompleted {
			continue
		}
		nav.Completed = append(nav.Completed, v.StepCode)
		offer(v.StepCode)
	}

	if current == nil {
		return nav, nil
	}

	step, err := stepOf(ctx, s, inst, *current)
	if err != nil {
		return nil, err
	}
	code := step.Code
	nav.CurrentStepCode = &code
	offer(code)

	targets, err := forward(ctx, s, inst.ID, step)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nav, nil
	}

	steps, err := s.ListSteps(ctx, inst.FormID)
	if err != nil {
		return nil, fmt.Errorf("failed to load steps of form %d: %w", inst.FormID, err)
	}
	codes := make(map[int64]string, len(steps))
	for _, st := range steps {
		codes[st.ID] = st.Code
	}
	for _, id := range targets {
		if c, ok := codes[id]; ok {
			offer(c)
		}
	}
	return nav, nil
}

// allowed reports whether target is completed, current, or in the forward set of current.
func allowed(ctx context.Context, s ports.Store, inst *domain.Instance, current *int64, target int64) (bool, error) {
	visits, err := s.ListVisits(ctx, inst.ID)
	if err != nil {
		return false, fmt.Errorf("failed to load ledger of instance %d: %w", inst.ID, err)
	}
	for _, v := range visits {
		if v.Status == domain.VisitCompleted && v.StepID == target {
			return true, nil
		}
	}

	if current == nil {
		return false, nil
	}
	if *current == target {
		return true, nil
	}

	step, err := stepOf(ctx, s, inst, *current)
	if err != nil {
		return false, err
	}
	targets, err := forward(ctx, s, inst.ID, step)
	if err != nil {
		return false, err
	}
	for _, id := range targets {
		if id == target {
			return true, nil
		}
	}
	return false, nil
}

// stepOf loads a step and checks it belongs to the instance's form.
func stepOf(ctx context.Context, s ports.Store, inst *domain.Instance, stepID int64) (*domain.Step, error) {
	step, err := s.GetStep(ctx, stepID)
	if err != nil {
		return nil, err
	}
	if step.FormID != inst.FormID {
		return nil, domain.NotFoundf("load step", "step %d not found in form %d", stepID, inst.FormID)
	}
	return step, nil
}
