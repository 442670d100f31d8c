package formflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/formflow/internal/logging"
	"github.com/aretw0/formflow/internal/runtime"
	"github.com/aretw0/formflow/pkg/adapters/memory"
	"github.com/aretw0/formflow/pkg/adapters/sqlite"
	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/ports"
	"github.com/aretw0/formflow/pkg/session"
)

// Engine is the high-level entry point for the formflow library.
// It wraps the internal runtime and wires the session cache and locks.
type Engine struct {
	runtime *runtime.Engine
	store   ports.Store
	cache   ports.SessionCache
	noCache bool
	locker  ports.DistributedLocker
	lockTTL time.Duration
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	closers []func() error
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithSessionCache replaces the default in-memory session cache, e.g. with Redis.
// A nil cache disables caching.
func WithSessionCache(cache ports.SessionCache) Option {
	return func(e *Engine) {
		e.cache = cache
		e.noCache = cache == nil
	}
}

// WithLocker serializes instance mutations across processes.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(e *Engine) {
		e.locker = locker
		e.lockTTL = ttl
	}
}

// New creates an engine over a migrated store.
func New(store ports.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil && !e.noCache {
		e.cache = memory.NewCache()
	}

	sessOpts := []session.Option{session.WithLogger(e.logger)}
	if e.locker != nil {
		sessOpts = append(sessOpts, session.WithLocker(e.locker))
		if e.lockTTL > 0 {
			sessOpts = append(sessOpts, session.WithLockTTL(e.lockTTL))
		}
	}

	e.runtime = runtime.NewEngine(store,
		runtime.WithLogger(e.logger),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithSessionManager(session.NewManager(e.cache, sessOpts...)),
	)
	return e
}

// Open opens (and migrates) the SQLite database at path and returns an engine over it.
// Close releases the database.
func Open(ctx context.Context, path string, opts ...Option) (*Engine, error) {
	store, err := sqlite.Open(sqlite.Config{Path: path, WAL: true})
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate %s: %w", path, err)
	}
	e := New(store, opts...)
	e.closers = append(e.closers, store.Close)
	return e, nil
}

// Close releases resources acquired by Open.
func (e *Engine) Close() error {
	var first error
	for _, c := range e.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	e.closers = nil
	return first
}

// Store returns the underlying store.
func (e *Engine) Store() ports.Store {
	return e.store
}

// ResolveForwardSteps returns every step reachable from stepID under the instance's answers.
func (e *Engine) ResolveForwardSteps(ctx context.Context, instanceID, stepID int64) ([]int64, error) {
	return e.runtime.ResolveForwardSteps(ctx, instanceID, stepID)
}

// DetermineNextStep returns the highest-priority eligible step after stepID.
func (e *Engine) DetermineNextStep(ctx context.Context, instanceID, stepID int64) (int64, bool, error) {
	return e.runtime.DetermineNextStep(ctx, instanceID, stepID)
}

// ComputeNavigation returns the completed and available step codes of an instance.
func (e *Engine) ComputeNavigation(ctx context.Context, instanceID int64, currentStepID *int64) (*domain.Navigation, error) {
	return e.runtime.ComputeNavigation(ctx, instanceID, currentStepID)
}

// ValidateNavigation reports whether targetStepID may be opened directly.
func (e *Engine) ValidateNavigation(ctx context.Context, instanceID int64, currentStepID *int64, targetStepID int64) (bool, error) {
	return e.runtime.ValidateNavigation(ctx, instanceID, currentStepID, targetStepID)
}

// SaveAnswers upserts answers for the fields of stepID. Unknown field codes are ignored.
func (e *Engine) SaveAnswers(ctx context.Context, instanceID, stepID int64, answers []domain.AnswerInput) error {
	return e.runtime.SaveAnswers(ctx, instanceID, stepID, answers)
}

// StartInstance resumes the in-progress instance of (form, user) or starts a new one.
func (e *Engine) StartInstance(ctx context.Context, formID int64, userID string) (*domain.Instance, error) {
	return e.runtime.StartInstance(ctx, formID, userID)
}

// SubmitStep saves answers for the current step and advances the instance.
func (e *Engine) SubmitStep(ctx context.Context, instanceID int64, answers []domain.AnswerInput) (*domain.SubmitResult, error) {
	return e.runtime.SubmitStep(ctx, instanceID, answers)
}

// State returns the cached or recomputed session state.
func (e *Engine) State(ctx context.Context, instanceID int64) (*domain.SessionState, error) {
	return e.runtime.State(ctx, instanceID)
}

// CurrentStep renders the instance's current step.
func (e *Engine) CurrentStep(ctx context.Context, instanceID int64) (*domain.StepView, error) {
	return e.runtime.CurrentStep(ctx, instanceID)
}

// OpenStep renders a navigable step addressed by codes.
func (e *Engine) OpenStep(ctx context.Context, formCode string, instanceID int64, stepCode string) (*domain.StepView, error) {
	return e.runtime.OpenStep(ctx, formCode, instanceID, stepCode)
}

// UpdateStep saves answers for a navigable step without advancing.
func (e *Engine) UpdateStep(ctx context.Context, formCode string, instanceID int64, stepCode string, answers []domain.AnswerInput) (*domain.StepView, error) {
	return e.runtime.UpdateStep(ctx, formCode, instanceID, stepCode, answers)
}

// StepView renders any step of an instance.
func (e *Engine) StepView(ctx context.Context, instanceID, stepID int64) (*domain.StepView, error) {
	return e.runtime.StepView(ctx, instanceID, stepID)
}
