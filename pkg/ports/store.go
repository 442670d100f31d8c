package ports

import (
	"context"

	"github.com/aretw0/formflow/pkg/domain"
)

// FormReader is the engine's read-only view of authored definitions.
// Lookups of a missing record return a domain.ErrNotFound error.
type FormReader interface {
	GetForm(ctx context.Context, formID int64) (*domain.Form, error)
	GetFormByCode(ctx context.Context, code string) (*domain.Form, error)
	ListForms(ctx context.Context) ([]domain.Form, error)

	GetStep(ctx context.Context, stepID int64) (*domain.Step, error)
	GetStepByCode(ctx context.Context, formID int64, code string) (*domain.Step, error)
	// ListSteps returns the steps of a form ordered by (sort_order, id).
	ListSteps(ctx context.Context, formID int64) ([]domain.Step, error)

	// ListFields returns the fields of a step ordered by (sort_order, id),
	// with options resolved from the field itself or its dictionary.
	ListFields(ctx context.Context, stepID int64) ([]domain.Field, error)
	// GetFieldByCode resolves a field code within the whole form.
	GetFieldByCode(ctx context.Context, formID int64, code string) (*domain.Field, error)

	GetDictionaryByCode(ctx context.Context, code string) (*domain.Dictionary, error)
	ListDictionaries(ctx context.Context) ([]domain.Dictionary, error)

	// ListTransitions returns the outgoing transitions of a step ordered by (priority, id),
	// each with its guard and the guard's conditions ordered by (position, id).
	ListTransitions(ctx context.Context, sourceStepID int64) ([]domain.Transition, error)
	GetTransition(ctx context.Context, formID, transitionID int64) (*domain.Transition, error)
	// ListFormTransitions returns every transition of a form ordered by (priority, id).
	ListFormTransitions(ctx context.Context, formID int64) ([]domain.Transition, error)
}

// FormWriter persists authored definitions. Duplicate codes return a domain.ErrConflict error.
// Create methods assign the generated ID to the given record.
type FormWriter interface {
	CreateForm(ctx context.Context, form *domain.Form) error
	// SetStartStep points the form at stepID; a nil stepID clears it.
	SetStartStep(ctx context.Context, formID int64, stepID *int64) error

	CreateStep(ctx context.Context, step *domain.Step) error
	UpdateStep(ctx context.Context, step *domain.Step) error

	// CreateDictionary stores the dictionary and its values.
	CreateDictionary(ctx context.Context, dict *domain.Dictionary) error

	// CreateField stores the field and its own options.
	CreateField(ctx context.Context, field *domain.Field) error

	// CreateTransition stores the guard group, its conditions and the transition.
	CreateTransition(ctx context.Context, tr *domain.Transition) error
	// UpdateTransition rewrites target, priority and guard, replacing all conditions.
	UpdateTransition(ctx context.Context, tr *domain.Transition) error
}

// InstanceStore persists Instances.
type InstanceStore interface {
	// CreateInstance assigns ID and sets Version to 1.
	CreateInstance(ctx context.Context, inst *domain.Instance) error
	GetInstance(ctx context.Context, instanceID int64) (*domain.Instance, error)
	// FindInstance returns the most recent instance of (form, user) in the given status.
	FindInstance(ctx context.Context, formID int64, userID string, status domain.InstanceStatus) (*domain.Instance, error)
	// UpdateInstance writes status and current step only if the stored version still equals
	// inst.Version, then increments inst.Version. A lost race returns a domain.ErrConflict error.
	UpdateInstance(ctx context.Context, inst *domain.Instance) error
}

// Ledger is the append-only step history of an instance.
type Ledger interface {
	EnterStep(ctx context.Context, instanceID, stepID int64) (*domain.StepVisit, error)
	// CompleteStep marks every visit of the step as completed.
	CompleteStep(ctx context.Context, instanceID, stepID int64) error
	// ListVisits returns visits ordered by (entered_at, id).
	ListVisits(ctx context.Context, instanceID int64) ([]domain.StepVisit, error)
}

// AnswerStore holds one value per (instance, field).
type AnswerStore interface {
	// UpsertAnswer replaces any previous value (last write wins).
	UpsertAnswer(ctx context.Context, instanceID, fieldID int64, v domain.Value) error
	Snapshot(ctx context.Context, instanceID int64) (domain.Snapshot, error)
}

// Store is the full relational port.
type Store interface {
	FormReader
	FormWriter
	InstanceStore
	Ledger
	AnswerStore

	// Atomic runs fn inside one transaction. fn must use the Store it receives.
	// Nested calls join the outer transaction.
	Atomic(ctx context.Context, fn func(tx Store) error) error
}
