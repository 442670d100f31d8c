package runtime

import (
	"context"

	"github.com/aretw0/formflow/pkg/domain"
)

func (e *Engine) emitInstanceStart(ctx context.Context, inst *domain.Instance, step *domain.Step) {
	if e.hooks.OnInstanceStart != nil {
		e.hooks.OnInstanceStart(ctx, domain.NewInstanceEvent(domain.EventInstanceStart, inst, step.Code))
	}
}

func (e *Engine) emitStepEnter(ctx context.Context, inst *domain.Instance, step *domain.Step) {
	if e.hooks.OnStepEnter != nil {
		e.hooks.OnStepEnter(ctx, domain.NewStepEvent(domain.EventStepEnter, inst, step))
	}
}

func (e *Engine) emitStepLeave(ctx context.Context, inst *domain.Instance, step *domain.Step) {
	if e.hooks.OnStepLeave != nil {
		e.hooks.OnStepLeave(ctx, domain.NewStepEvent(domain.EventStepLeave, inst, step))
	}
}

func (e *Engine) emitInstanceComplete(ctx context.Context, inst *domain.Instance, step *domain.Step) {
	if e.hooks.OnInstanceComplete != nil {
		e.hooks.OnInstanceComplete(ctx, domain.NewInstanceEvent(domain.EventInstanceComplete, inst, step.Code))
	}
}

func (e *Engine) emitInstanceStuck(ctx context.Context, inst *domain.Instance, step *domain.Step) {
	if e.hooks.OnInstanceStuck != nil {
		e.hooks.OnInstanceStuck(ctx, domain.NewInstanceEvent(domain.EventInstanceStuck, inst, step.Code))
	}
}

func (e *Engine) emitNavigationDenied(ctx context.Context, inst *domain.Instance, step *domain.Step) {
	if e.hooks.OnNavigationDenied != nil {
		e.hooks.OnNavigationDenied(ctx, domain.NewStepEvent(domain.EventNavigationDenied, inst, step))
	}
}
