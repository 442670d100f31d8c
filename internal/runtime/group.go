package runtime

import (
	"cmp"
	"slices"

	"github.com/aretw0/formflow/pkg/domain"
)

// EvaluateGroup combines the group's conditions under the given answers.
// An empty group is true. OR is true when any condition holds; anything else is AND.
func EvaluateGroup(g domain.ConditionGroup, answers domain.Snapshot) bool {
	if len(g.Conditions) == 0 {
		return true
	}

	conds := slices.Clone(g.Conditions)
	slices.SortStableFunc(conds, func(a, b domain.Condition) int {
		if c := cmp.Compare(a.Position, b.Position); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	or := g.Logic == domain.LogicOr
	for _, c := range conds {
		ok := EvaluateCondition(answers.Get(c.FieldID), c.Operator, c.Operand.Resolve(answers))
		if or && ok {
			return true
		}
		if !or && !ok {
			return false
		}
	}
	return !or
}

// ForwardSet returns the targets of every transition whose guard holds, in (priority, id) order.
func ForwardSet(transitions []domain.Transition, answers domain.Snapshot) []int64 {
	ordered := slices.Clone(transitions)
	slices.SortStableFunc(ordered, func(a, b domain.Transition) int {
		if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	forward := make([]int64, 0, len(ordered))
	for _, t := range ordered {
		if EvaluateGroup(t.Guard, answers) {
			forward = append(forward, t.TargetStepID)
		}
	}
	return forward
}
