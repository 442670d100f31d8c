package authoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/formflow/internal/logging"
	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/ports"
	"github.com/go-playground/validator/v10"
)

// Service validates authoring requests and writes them through the store.
type Service struct {
	store    ports.Store
	validate *validator.Validate
	logger   *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithValidator shares a validator instance, e.g. with the HTTP layer.
func WithValidator(v *validator.Validate) Option {
	return func(s *Service) {
		s.validate = v
	}
}

// NewService creates an authoring service over the given store.
func NewService(store ports.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.validate == nil {
		s.validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return s
}

// with returns a copy of s bound to another store, typically a transaction.
func (s *Service) with(store ports.Store) *Service {
	cp := *s
	cp.store = store
	return &cp
}

// check runs struct validation and maps failures to a validation error.
func (s *Service) check(op string, req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.Invalidf(op, "%v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %q", fe.Namespace(), fe.Tag()))
	}
	return domain.Invalidf(op, "%s", strings.Join(msgs, "; "))
}

// CreateForm stores a new form.
func (s *Service) CreateForm(ctx context.Context, req CreateFormRequest) (*domain.Form, error) {
	if err := s.check("create form", req); err != nil {
		return nil, err
	}
	form := &domain.Form{
		Code:        req.Code,
		Title:       req.Title,
		Description: req.Description,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	if err := s.store.CreateForm(ctx, form); err != nil {
		return nil, err
	}
	s.logger.Info("form created", "form_id", form.ID, "code", form.Code)
	return form, nil
}

// ListForms returns every form.
func (s *Service) ListForms(ctx context.Context) ([]domain.Form, error) {
	return s.store.ListForms(ctx)
}

// GetForm returns one form.
func (s *Service) GetForm(ctx context.Context, formID int64) (*domain.Form, error) {
	return s.store.GetForm(ctx, formID)
}

// CreateStep adds a step to a form, making it the start step when the form has none.
func (s *Service) CreateStep(ctx context.Context, formID int64, req CreateStepRequest) (*domain.Step, error) {
	if err := s.check("create step", req); err != nil {
		return nil, err
	}
	typ, err := domain.ParseStepType(req.StepTypeCode)
	if err != nil {
		return nil, err
	}

	step := &domain.Step{
		FormID:     formID,
		Code:       req.Code,
		Title:      req.Title,
		Type:       typ,
		SortOrder:  orDefault(req.SortOrder, DefaultSortOrder),
		IsTerminal: req.IsTerminal,
	}
	err = s.store.Atomic(ctx, func(tx ports.Store) error {
		form, err := tx.GetForm(ctx, formID)
		if err != nil {
			return err
		}
		if err := tx.CreateStep(ctx, step); err != nil {
			return err
		}
		if form.StartStepID == nil {
			return tx.SetStartStep(ctx, formID, &step.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("step created", "form_id", formID, "step_id", step.ID, "code", step.Code)
	return step, nil
}

// ListSteps returns the steps of a form in display order.
func (s *Service) ListSteps(ctx context.Context, formID int64) ([]domain.Step, error) {
	if _, err := s.store.GetForm(ctx, formID); err != nil {
		return nil, err
	}
	return s.store.ListSteps(ctx, formID)
}

// UpdateStep patches a step of a form.
func (s *Service) UpdateStep(ctx context.Context, formID, stepID int64, req UpdateStepRequest) (*domain.Step, error) {
	if err := s.check("update step", req); err != nil {
		return nil, err
	}

	var step *domain.Step
	err := s.store.Atomic(ctx, func(tx ports.Store) error {
		var err error
		step, err = stepInForm(ctx, tx, formID, stepID)
		if err != nil {
			return err
		}

		if req.Title != nil {
			step.Title = *req.Title
		}
		if req.SortOrder != nil {
			step.SortOrder = *req.SortOrder
		}
		if req.IsTerminal != nil {
			step.IsTerminal = *req.IsTerminal
		}
		if req.StepTypeCode != nil {
			if step.Type, err = domain.ParseStepType(*req.StepTypeCode); err != nil {
				return err
			}
		}
		if err := tx.UpdateStep(ctx, step); err != nil {
			return err
		}

		if req.IsStart == nil {
			return nil
		}
		if *req.IsStart {
			return tx.SetStartStep(ctx, formID, &step.ID)
		}
		form, err := tx.GetForm(ctx, formID)
		if err != nil {
			return err
		}
		if form.StartStepID != nil && *form.StartStepID == step.ID {
			return tx.SetStartStep(ctx, formID, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return step, nil
}

// CreateDictionary stores a shared option set.
func (s *Service) CreateDictionary(ctx context.Context, req CreateDictionaryRequest) (*domain.Dictionary, error) {
	if err := s.check("create dictionary", req); err != nil {
		return nil, err
	}
	dict := &domain.Dictionary{
		Code:   req.Code,
		Title:  req.Title,
		Values: options(req.Values),
	}
	err := s.store.Atomic(ctx, func(tx ports.Store) error {
		return tx.CreateDictionary(ctx, dict)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("dictionary created", "dictionary_id", dict.ID, "code", dict.Code)
	return dict, nil
}

// ListDictionaries returns every dictionary with its values.
func (s *Service) ListDictionaries(ctx context.Context) ([]domain.Dictionary, error) {
	return s.store.ListDictionaries(ctx)
}

// CreateField adds a field to a step.
func (s *Service) CreateField(ctx context.Context, stepID int64, req CreateFieldRequest) (*domain.Field, error) {
	if err := s.check("create field", req); err != nil {
		return nil, err
	}
	dataType, err := domain.ParseDataType(req.DataTypeCode)
	if err != nil {
		return nil, err
	}
	inputType, err := domain.ParseInputType(req.InputTypeCode)
	if err != nil {
		return nil, err
	}

	hasOptions, hasDict := req.Options != nil, req.DictionaryCode != nil
	if inputType.IsChoice() {
		if hasOptions && hasDict {
			return nil, domain.Invalidf("create field", "field %q cannot have both options and dictionary_code", req.Code)
		}
		if !hasOptions && !hasDict {
			return nil, domain.Invalidf("create field", "%s field %q needs options or dictionary_code", inputType, req.Code)
		}
	} else if hasOptions || hasDict {
		return nil, domain.Invalidf("create field", "%s field %q cannot have options or dictionary_code", inputType, req.Code)
	}

	field := &domain.Field{
		StepID:     stepID,
		Code:       req.Code,
		Title:      req.Title,
		DataType:   dataType,
		InputType:  inputType,
		IsRequired: req.IsRequired,
		SortOrder:  orDefault(req.SortOrder, DefaultSortOrder),
		Options:    options(req.Options),
	}
	err = s.store.Atomic(ctx, func(tx ports.Store) error {
		if _, err := tx.GetStep(ctx, stepID); err != nil {
			return err
		}
		if hasDict {
			dict, err := tx.GetDictionaryByCode(ctx, *req.DictionaryCode)
			if err != nil {
				return err
			}
			field.DictionaryID = &dict.ID
			field.DictionaryCode = dict.Code
			field.Options = dict.Values
		}
		return tx.CreateField(ctx, field)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("field created", "step_id", stepID, "field_id", field.ID, "code", field.Code)
	return field, nil
}

// ListFields returns the fields of a step with resolved options.
func (s *Service) ListFields(ctx context.Context, stepID int64) ([]domain.Field, error) {
	if _, err := s.store.GetStep(ctx, stepID); err != nil {
		return nil, err
	}
	return s.store.ListFields(ctx, stepID)
}

func options(reqs []OptionRequest) []domain.Option {
	out := make([]domain.Option, 0, len(reqs))
	for _, o := range reqs {
		out = append(out, domain.Option{Code: o.Code, Label: o.Label, SortOrder: orDefault(o.SortOrder, DefaultSortOrder)})
	}
	return out
}

func stepInForm(ctx context.Context, store ports.FormReader, formID, stepID int64) (*domain.Step, error) {
	step, err := store.GetStep(ctx, stepID)
	if err != nil {
		return nil, err
	}
	if step.FormID != formID {
		return nil, domain.NotFoundf("load step", "step %d not found in form %d", stepID, formID)
	}
	return step, nil
}
