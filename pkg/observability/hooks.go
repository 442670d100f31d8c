package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/formflow/pkg/domain"
)

// LoggingHooks logs every lifecycle event at info level, navigation denials at warn.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	logger = logger.With("component", "lifecycle")
	instance := func(msg string) func(context.Context, *domain.InstanceEvent) {
		return func(ctx context.Context, e *domain.InstanceEvent) {
			logger.InfoContext(ctx, msg,
				"instance_id", e.InstanceID,
				"form_id", e.FormID,
				"status", e.Status,
				"step_code", e.StepCode,
			)
		}
	}
	step := func(level slog.Level, msg string) func(context.Context, *domain.StepEvent) {
		return func(ctx context.Context, e *domain.StepEvent) {
			logger.Log(ctx, level, msg,
				"instance_id", e.InstanceID,
				"form_id", e.FormID,
				"step_id", e.StepID,
				"step_code", e.StepCode,
			)
		}
	}
	return domain.LifecycleHooks{
		OnInstanceStart:    instance("instance_start"),
		OnStepEnter:        step(slog.LevelInfo, "step_enter"),
		OnStepLeave:        step(slog.LevelInfo, "step_leave"),
		OnInstanceComplete: instance("instance_complete"),
		OnInstanceStuck:    instance("instance_stuck"),
		OnNavigationDenied: step(slog.LevelWarn, "navigation_denied"),
	}
}

// Chain returns hooks that call each of the given sets in order. Nil members are skipped.
func Chain(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		out.OnInstanceStart = chainInstance(out.OnInstanceStart, h.OnInstanceStart)
		out.OnStepEnter = chainStep(out.OnStepEnter, h.OnStepEnter)
		out.OnStepLeave = chainStep(out.OnStepLeave, h.OnStepLeave)
		out.OnInstanceComplete = chainInstance(out.OnInstanceComplete, h.OnInstanceComplete)
		out.OnInstanceStuck = chainInstance(out.OnInstanceStuck, h.OnInstanceStuck)
		out.OnNavigationDenied = chainStep(out.OnNavigationDenied, h.OnNavigationDenied)
	}
	return out
}

func chainInstance(a, b func(context.Context, *domain.InstanceEvent)) func(context.Context, *domain.InstanceEvent) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *domain.InstanceEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainStep(a, b func(context.Context, *domain.StepEvent)) func(context.Context, *domain.StepEvent) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *domain.StepEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}
