package validator

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/ports"
)

// ValidateForm checks a form for authoring mistakes that would strand respondents:
// a missing start step, steps unreachable from the start, non-terminal dead ends,
// terminal steps with outgoing routes and graphs with no reachable terminal step.
// It returns a validation error listing every problem found.
func ValidateForm(ctx context.Context, reader ports.FormReader, formID int64) error {
	form, err := reader.GetForm(ctx, formID)
	if err != nil {
		return err
	}
	steps, err := reader.ListSteps(ctx, formID)
	if err != nil {
		return err
	}
	routes, err := reader.ListFormTransitions(ctx, formID)
	if err != nil {
		return err
	}

	byID := make(map[int64]domain.Step, len(steps))
	for _, st := range steps {
		byID[st.ID] = st
	}
	outgoing := make(map[int64][]int64)
	for _, r := range routes {
		outgoing[r.SourceStepID] = append(outgoing[r.SourceStepID], r.TargetStepID)
	}

	var problems []string

	if form.StartStepID == nil {
		problems = append(problems, "form has no start step")
	} else {
		visited := make(map[int64]bool)
		queue := []int64{*form.StartStepID}
		reachesEnd := false
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			if visited[current] {
				continue
			}
			visited[current] = true
			if byID[current].IsTerminal {
				reachesEnd = true
			}
			for _, target := range outgoing[current] {
				if !visited[target] {
					queue = append(queue, target)
				}
			}
		}

		for _, st := range steps {
			if !visited[st.ID] {
				problems = append(problems, fmt.Sprintf("step '%s' is unreachable from the start step", st.Code))
			}
		}
		if !reachesEnd {
			problems = append(problems, "no terminal step is reachable from the start step")
		}
	}

	for _, st := range steps {
		n := len(outgoing[st.ID])
		switch {
		case !st.IsTerminal && n == 0:
			problems = append(problems, fmt.Sprintf("step '%s' is not terminal and has no outgoing routes", st.Code))
		case st.IsTerminal && n > 0:
			problems = append(problems, fmt.Sprintf("terminal step '%s' has %d outgoing routes", st.Code, n))
		}
	}

	if len(problems) > 0 {
		return domain.Invalidf("validate form", "form '%s' has %d problems:\n- %s",
			form.Code, len(problems), strings.Join(problems, "\n- "))
	}
	return nil
}
