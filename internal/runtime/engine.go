package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/formflow/internal/logging"
	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/ports"
	"github.com/aretw0/formflow/pkg/session"
)

// Engine resolves transitions and navigation for form instances and drives their lifecycle.
// It holds no per-instance state; everything is recomputed from the Store.
type Engine struct {
	store    ports.Store
	sessions *session.Manager
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithSessionManager sets the lock and cache coordinator. By default mutations are
// serialized in-process and nothing is cached.
func WithSessionManager(m *session.Manager) EngineOption {
	return func(e *Engine) {
		e.sessions = m
	}
}

// NewEngine creates an engine over the given store.
func NewEngine(store ports.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store:  store,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sessions == nil {
		e.sessions = session.NewManager(nil, session.WithLogger(e.logger))
	}
	return e
}

// Store returns the underlying store.
func (e *Engine) Store() ports.Store {
	return e.store
}

// ResolveForwardSteps returns every step reachable from stepID under the instance's
// current answers, in (priority, id) order.
func (e *Engine) ResolveForwardSteps(ctx context.Context, instanceID, stepID int64) ([]int64, error) {
	inst, err := e.store.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	step, err := stepOf(ctx, e.store, inst, stepID)
	if err != nil {
		return nil, err
	}
	return forward(ctx, e.store, inst.ID, step)
}

// DetermineNextStep returns the first element of the forward set, if any.
func (e *Engine) DetermineNextStep(ctx context.Context, instanceID, stepID int64) (int64, bool, error) {
	targets, err := e.ResolveForwardSteps(ctx, instanceID, stepID)
	if err != nil {
		return 0, false, err
	}
	if len(targets) == 0 {
		return 0, false, nil
	}
	return targets[0], true, nil
}

// ComputeNavigation builds the navigation summary of an instance positioned at currentStepID.
func (e *Engine) ComputeNavigation(ctx context.Context, instanceID int64, currentStepID *int64) (*domain.Navigation, error) {
	inst, err := e.store.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	return navigate(ctx, e.store, inst, currentStepID)
}

// ValidateNavigation reports whether targetStepID is completed, current, or in the
// forward set of currentStepID.
func (e *Engine) ValidateNavigation(ctx context.Context, instanceID int64, currentStepID *int64, targetStepID int64) (bool, error) {
	inst, err := e.store.GetInstance(ctx, instanceID)
	if err != nil {
		return false, err
	}
	return allowed(ctx, e.store, inst, currentStepID, targetStepID)
}

// SaveAnswers stores the answers for fields of stepID. Unknown field codes are dropped.
func (e *Engine) SaveAnswers(ctx context.Context, instanceID, stepID int64, answers []domain.AnswerInput) error {
	var inst *domain.Instance
	err := e.sessions.WithLock(ctx, session.InstanceKey(instanceID), func(ctx context.Context) error {
		return e.store.Atomic(ctx, func(tx ports.Store) error {
			var err error
			inst, err = tx.GetInstance(ctx, instanceID)
			if err != nil {
				return err
			}
			step, err := stepOf(ctx, tx, inst, stepID)
			if err != nil {
				return err
			}
			if err := e.save(ctx, tx, inst, step, answers); err != nil {
				return err
			}
			return tx.UpdateInstance(ctx, inst)
		})
	})
	if err != nil {
		return err
	}
	_, err = e.sync(ctx, inst)
	return err
}

// StartInstance returns the in-progress instance of (form, user), or creates one at the
// form's start step.
func (e *Engine) StartInstance(ctx context.Context, formID int64, userID string) (*domain.Instance, error) {
	if userID == "" {
		return nil, domain.Invalidf("start instance", "user id is required")
	}

	var (
		inst  *domain.Instance
		start *domain.Step
	)
	err := e.sessions.WithLock(ctx, session.StartKey(formID, userID), func(ctx context.Context) error {
		return e.store.Atomic(ctx, func(tx ports.Store) error {
			existing, err := tx.FindInstance(ctx, formID, userID, domain.InstanceInProgress)
			if err == nil {
				inst = existing
				return nil
			}
			if !errors.Is(err, domain.ErrNotFound) {
				return err
			}

			form, err := tx.GetForm(ctx, formID)
			if err != nil {
				return err
			}
			if !form.IsActive || form.StartStepID == nil {
				return domain.NotFoundf("start instance", "active form %d or its start step not found", formID)
			}
			start, err = tx.GetStep(ctx, *form.StartStepID)
			if err != nil {
				return err
			}

			inst = &domain.Instance{
				FormID:        formID,
				UserID:        userID,
				Status:        domain.InstanceInProgress,
				CurrentStepID: &start.ID,
			}
			if err := tx.CreateInstance(ctx, inst); err != nil {
				return err
			}
			_, err = tx.EnterStep(ctx, inst.ID, start.ID)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	if start != nil {
		e.logger.Info("instance started", "instance_id", inst.ID, "form_id", formID, "step", start.Code)
		e.emitInstanceStart(ctx, inst, start)
		e.emitStepEnter(ctx, inst, start)
	}
	if _, err := e.sync(ctx, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// SubmitStep saves answers for the current step and advances to the highest-priority
// eligible step. A terminal step completes the instance. A non-terminal step with no
// eligible transition keeps the instance where it is and returns a domain.ErrStuck error;
// the answers are kept.
func (e *Engine) SubmitStep(ctx context.Context, instanceID int64, answers []domain.AnswerInput) (*domain.SubmitResult, error) {
	var (
		inst  *domain.Instance
		step  *domain.Step
		next  *domain.Step
		stuck bool
	)
	err := e.sessions.WithLock(ctx, session.InstanceKey(instanceID), func(ctx context.Context) error {
		return e.store.Atomic(ctx, func(tx ports.Store) error {
			var err error
			inst, err = tx.GetInstance(ctx, instanceID)
			if err != nil {
				return err
			}
			if inst.CurrentStepID == nil {
				return domain.NotFoundf("submit step", "instance %d has no current step", instanceID)
			}
			step, err = stepOf(ctx, tx, inst, *inst.CurrentStepID)
			if err != nil {
				return err
			}
			if err := e.save(ctx, tx, inst, step, answers); err != nil {
				return err
			}

			targets, err := forward(ctx, tx, inst.ID, step)
			if err != nil {
				return err
			}

			switch {
			case len(targets) > 0:
				next, err = stepOf(ctx, tx, inst, targets[0])
				if err != nil {
					return err
				}
				if err := tx.CompleteStep(ctx, inst.ID, step.ID); err != nil {
					return err
				}
				nextID := next.ID
				inst.CurrentStepID = &nextID
				if err := tx.UpdateInstance(ctx, inst); err != nil {
					return err
				}
				_, err = tx.EnterStep(ctx, inst.ID, next.ID)
				return err

			case step.IsTerminal:
				if err := tx.CompleteStep(ctx, inst.ID, step.ID); err != nil {
					return err
				}
				inst.Status = domain.InstanceCompleted
				inst.CurrentStepID = nil
				return tx.UpdateInstance(ctx, inst)

			default:
				stuck = true
				return tx.UpdateInstance(ctx, inst)
			}
		})
	})
	if err != nil {
		return nil, err
	}

	state, err := e.sync(ctx, inst)
	if err != nil {
		return nil, err
	}

	if stuck {
		e.logger.Warn("no eligible transition", "instance_id", inst.ID, "step", step.Code)
		e.emitInstanceStuck(ctx, inst, step)
		return nil, domain.Stuckf("submit step", "step %q has no eligible transition", step.Code)
	}

	e.emitStepLeave(ctx, inst, step)
	res := &domain.SubmitResult{
		InstanceID: inst.ID,
		Navigation: state.Navigation,
	}
	if next != nil {
		e.logger.Debug("instance advanced", "instance_id", inst.ID, "from", step.Code, "to", next.Code)
		e.emitStepEnter(ctx, inst, next)
		nextID, nextCode := next.ID, next.Code
		res.NextStepID = &nextID
		res.NextStepCode = &nextCode
		return res, nil
	}

	e.logger.Info("instance completed", "instance_id", inst.ID, "step", step.Code)
	e.emitInstanceComplete(ctx, inst, step)
	res.IsComplete = true
	return res, nil
}

// State returns the session state of an instance, from cache when it is current.
func (e *Engine) State(ctx context.Context, instanceID int64) (*domain.SessionState, error) {
	inst, err := e.store.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if state, ok := e.sessions.Lookup(ctx, inst.ID, inst.Version); ok {
		return state, nil
	}
	return e.sync(ctx, inst)
}

// CurrentStep renders the instance's current step.
func (e *Engine) CurrentStep(ctx context.Context, instanceID int64) (*domain.StepView, error) {
	state, err := e.State(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if state.CurrentStepID == nil {
		return nil, domain.NotFoundf("current step", "instance %d has no current step", instanceID)
	}
	inst, err := e.store.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	step, err := stepOf(ctx, e.store, inst, *state.CurrentStepID)
	if err != nil {
		return nil, err
	}
	return e.view(ctx, inst, step, &state.Navigation)
}

// OpenStep renders a step of an instance addressed by form and step codes.
// A step outside the navigable set is a domain.ErrForbidden error.
func (e *Engine) OpenStep(ctx context.Context, formCode string, instanceID int64, stepCode string) (*domain.StepView, error) {
	inst, step, err := e.locate(ctx, formCode, instanceID, stepCode)
	if err != nil {
		return nil, err
	}
	if err := e.guard(ctx, inst, step, "open step"); err != nil {
		return nil, err
	}
	state, err := e.State(ctx, inst.ID)
	if err != nil {
		return nil, err
	}
	return e.viewAt(ctx, inst, step, state)
}

// UpdateStep saves answers for a navigable step without advancing the instance.
func (e *Engine) UpdateStep(ctx context.Context, formCode string, instanceID int64, stepCode string, answers []domain.AnswerInput) (*domain.StepView, error) {
	var (
		inst *domain.Instance
		step *domain.Step
	)
	err := e.sessions.WithLock(ctx, session.InstanceKey(instanceID), func(ctx context.Context) error {
		var err error
		inst, step, err = e.locate(ctx, formCode, instanceID, stepCode)
		if err != nil {
			return err
		}
		if err := e.guard(ctx, inst, step, "update step"); err != nil {
			return err
		}
		return e.store.Atomic(ctx, func(tx ports.Store) error {
			if err := e.save(ctx, tx, inst, step, answers); err != nil {
				return err
			}
			return tx.UpdateInstance(ctx, inst)
		})
	})
	if err != nil {
		return nil, err
	}

	state, err := e.sync(ctx, inst)
	if err != nil {
		return nil, err
	}
	return e.viewAt(ctx, inst, step, state)
}

// StepView renders any step of an instance without a reachability check.
func (e *Engine) StepView(ctx context.Context, instanceID, stepID int64) (*domain.StepView, error) {
	state, err := e.State(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	inst, err := e.store.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	step, err := stepOf(ctx, e.store, inst, stepID)
	if err != nil {
		return nil, err
	}
	return e.viewAt(ctx, inst, step, state)
}

// locate resolves the instance and step of a form-scoped runtime address.
func (e *Engine) locate(ctx context.Context, formCode string, instanceID int64, stepCode string) (*domain.Instance, *domain.Step, error) {
	form, err := e.store.GetFormByCode(ctx, formCode)
	if err != nil {
		return nil, nil, err
	}
	inst, err := e.store.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, nil, err
	}
	if inst.FormID != form.ID {
		return nil, nil, domain.NotFoundf("locate step", "session %d not found in form %q", instanceID, formCode)
	}
	step, err := e.store.GetStepByCode(ctx, form.ID, stepCode)
	if err != nil {
		return nil, nil, err
	}
	return inst, step, nil
}

func (e *Engine) guard(ctx context.Context, inst *domain.Instance, step *domain.Step, op string) error {
	ok, err := allowed(ctx, e.store, inst, inst.CurrentStepID, step.ID)
	if err != nil {
		return err
	}
	if !ok {
		e.logger.Debug("navigation denied", "instance_id", inst.ID, "step", step.Code)
		e.emitNavigationDenied(ctx, inst, step)
		return domain.Forbiddenf(op, "step %q is not reachable", step.Code)
	}
	return nil
}

// save coerces and upserts answers for fields of step.
func (e *Engine) save(ctx context.Context, tx ports.Store, inst *domain.Instance, step *domain.Step, answers []domain.AnswerInput) error {
	fields, err := tx.ListFields(ctx, step.ID)
	if err != nil {
		return fmt.Errorf("failed to load fields of step %d: %w", step.ID, err)
	}
	byCode := make(map[string]domain.Field, len(fields))
	for _, f := range fields {
		byCode[f.Code] = f
	}

	for _, a := range answers {
		f, ok := byCode[a.FieldCode]
		if !ok {
			e.logger.Debug("dropping answer for unknown field", "instance_id", inst.ID, "step", step.Code, "field", a.FieldCode)
			continue
		}
		v, ok := CoerceAnswer(f, a.Value)
		if !ok {
			e.logger.Warn("answer is not a number, storing null", "instance_id", inst.ID, "field", f.Code, "value", a.Value)
		}
		if err := tx.UpsertAnswer(ctx, inst.ID, f.ID, v); err != nil {
			return fmt.Errorf("failed to save answer for field %q: %w", f.Code, err)
		}
	}
	return nil
}

// sync recomputes the session state of inst and publishes it to the cache.
func (e *Engine) sync(ctx context.Context, inst *domain.Instance) (*domain.SessionState, error) {
	form, err := e.store.GetForm(ctx, inst.FormID)
	if err != nil {
		return nil, err
	}
	nav, err := navigate(ctx, e.store, inst, inst.CurrentStepID)
	if err != nil {
		return nil, err
	}
	state := &domain.SessionState{
		InstanceID:    inst.ID,
		Version:       inst.Version,
		FormID:        form.ID,
		FormCode:      form.Code,
		CurrentStepID: inst.CurrentStepID,
		Navigation:    *nav,
	}
	e.sessions.Publish(ctx, state)
	return state, nil
}

// viewAt renders step with navigation against the current step, or against step itself
// when the instance has none.
func (e *Engine) viewAt(ctx context.Context, inst *domain.Instance, step *domain.Step, state *domain.SessionState) (*domain.StepView, error) {
	if state.CurrentStepID != nil {
		return e.view(ctx, inst, step, &state.Navigation)
	}
	nav, err := navigate(ctx, e.store, inst, &step.ID)
	if err != nil {
		return nil, err
	}
	return e.view(ctx, inst, step, nav)
}

func (e *Engine) view(ctx context.Context, inst *domain.Instance, step *domain.Step, nav *domain.Navigation) (*domain.StepView, error) {
	fields, err := e.store.ListFields(ctx, step.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load fields of step %d: %w", step.ID, err)
	}
	answers, err := e.store.Snapshot(ctx, inst.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers of instance %d: %w", inst.ID, err)
	}

	values := make(map[string]domain.Value)
	for _, f := range fields {
		if v, ok := answers[f.ID]; ok {
			values[f.Code] = v
		}
	}
	return &domain.StepView{
		InstanceID: inst.ID,
		StepID:     step.ID,
		StepCode:   step.Code,
		StepTitle:  step.Title,
		IsTerminal: step.IsTerminal,
		Fields:     fields,
		Values:     values,
		Navigation: *nav,
	}, nil
}
