package authoring

import (
	"context"

	"github.com/aretw0/formflow/pkg/domain"
	"github.com/aretw0/formflow/pkg/ports"
)

// CreateRoute adds a guarded transition leaving stepID.
func (s *Service) CreateRoute(ctx context.Context, formID, stepID int64, req RouteRequest) (*domain.Transition, error) {
	if err := s.check("create route", req); err != nil {
		return nil, err
	}

	var tr *domain.Transition
	err := s.store.Atomic(ctx, func(tx ports.Store) error {
		var err error
		if _, err = stepInForm(ctx, tx, formID, stepID); err != nil {
			return err
		}
		if tr, err = buildTransition(ctx, tx, formID, req); err != nil {
			return err
		}
		tr.SourceStepID = stepID
		return tx.CreateTransition(ctx, tr)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("route created", "form_id", formID, "route_id", tr.ID,
		"source_step_id", tr.SourceStepID, "target_step_id", tr.TargetStepID)
	return s.store.GetTransition(ctx, formID, tr.ID)
}

// UpdateRoute replaces target, priority and guard of a route.
func (s *Service) UpdateRoute(ctx context.Context, formID, routeID int64, req RouteRequest) (*domain.Transition, error) {
	if err := s.check("update route", req); err != nil {
		return nil, err
	}

	err := s.store.Atomic(ctx, func(tx ports.Store) error {
		current, err := tx.GetTransition(ctx, formID, routeID)
		if err != nil {
			return err
		}
		tr, err := buildTransition(ctx, tx, formID, req)
		if err != nil {
			return err
		}
		tr.ID = current.ID
		tr.SourceStepID = current.SourceStepID
		return tx.UpdateTransition(ctx, tr)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("route updated", "form_id", formID, "route_id", routeID)
	return s.store.GetTransition(ctx, formID, routeID)
}

// GetRoute returns one route of a form.
func (s *Service) GetRoute(ctx context.Context, formID, routeID int64) (*domain.Transition, error) {
	return s.store.GetTransition(ctx, formID, routeID)
}

// ListRoutes returns the routes leaving a step in evaluation order.
func (s *Service) ListRoutes(ctx context.Context, formID, stepID int64) ([]domain.Transition, error) {
	if _, err := stepInForm(ctx, s.store, formID, stepID); err != nil {
		return nil, err
	}
	return s.store.ListTransitions(ctx, stepID)
}

func buildTransition(ctx context.Context, tx ports.Store, formID int64, req RouteRequest) (*domain.Transition, error) {
	if _, err := stepInForm(ctx, tx, formID, req.TargetStepID); err != nil {
		return nil, err
	}
	logic, err := domain.ParseLogicOp(req.LogicOp)
	if err != nil {
		return nil, err
	}

	tr := &domain.Transition{
		FormID:       formID,
		TargetStepID: req.TargetStepID,
		Priority:     orDefault(req.Priority, DefaultPriority),
		Description:  req.Description,
		Guard: domain.ConditionGroup{
			FormID:      formID,
			Logic:       logic,
			Description: req.ScenarioDescription,
			Conditions:  make([]domain.Condition, 0, len(req.Conditions)),
		},
	}
	for _, cr := range req.Conditions {
		c, err := buildCondition(ctx, tx, formID, cr)
		if err != nil {
			return nil, err
		}
		tr.Guard.Conditions = append(tr.Guard.Conditions, *c)
	}
	return tr, nil
}

func buildCondition(ctx context.Context, tx ports.FormReader, formID int64, req ConditionRequest) (*domain.Condition, error) {
	op, err := domain.ParseOperator(req.OpCode)
	if err != nil {
		return nil, err
	}
	field, err := tx.GetFieldByCode(ctx, formID, req.FieldCode)
	if err != nil {
		return nil, err
	}
	literal, err := literalOf(req)
	if err != nil {
		return nil, err
	}

	c := &domain.Condition{
		FieldID:   field.ID,
		FieldCode: field.Code,
		Operator:  op,
		Operand:   domain.LiteralOperand(literal),
		Position:  orDefault(req.Position, DefaultSortOrder),
	}
	if req.RHSFieldCode != nil {
		if !literal.IsNull() {
			return nil, domain.Invalidf("create condition", "condition on %q has both a literal and rhs_field_code", req.FieldCode)
		}
		rhs, err := tx.GetFieldByCode(ctx, formID, *req.RHSFieldCode)
		if err != nil {
			return nil, err
		}
		c.Operand = domain.FieldOperand(rhs.ID)
		c.Operand.FieldCode = rhs.Code
	}
	return c, nil
}

// literalOf picks the single literal member of a condition request.
func literalOf(req ConditionRequest) (domain.Value, error) {
	var (
		v   = domain.Null()
		set int
	)
	if req.ValueText != nil {
		v, set = domain.Text(*req.ValueText), set+1
	}
	if req.ValueNum != nil {
		v, set = domain.Number(*req.ValueNum), set+1
	}
	if req.ValueBool != nil {
		v, set = domain.Bool(*req.ValueBool), set+1
	}
	if req.ValueDate != nil {
		v, set = domain.Date(*req.ValueDate), set+1
	}
	if req.OptionCode != nil {
		v, set = domain.Choice(*req.OptionCode), set+1
	}
	if req.ValueList != nil {
		v, set = domain.List(req.ValueList...), set+1
	}
	if set > 1 {
		return domain.Null(), domain.Invalidf("create condition", "condition on %q sets %d literal values, at most one is allowed", req.FieldCode, set)
	}
	return v, nil
}

// Graph is the step and route view of a form used by the admin editor and renderers.
// FocusStepID is zero when no step is focused.
type Graph struct {
	FormCode    string       `json:"form_code"`
	FocusStepID int64        `json:"focus_step_id"`
	StartStepID *int64       `json:"start_step_id"`
	Steps       []GraphStep  `json:"steps"`
	Routes      []GraphRoute `json:"routes"`
}

type GraphStep struct {
	ID         int64           `json:"id"`
	Code       string          `json:"code"`
	Title      string          `json:"title"`
	StepType   domain.StepType `json:"step_type_code"`
	SortOrder  int             `json:"sort_order"`
	IsTerminal bool            `json:"is_terminal"`
	IsStart    bool            `json:"is_start"`
	IsFocus    bool            `json:"is_focus"`
}

type GraphRoute struct {
	ID                  int64          `json:"id"`
	SourceStepID        int64          `json:"source_step_id"`
	TargetStepID        int64          `json:"target_step_id"`
	Priority            int            `json:"priority"`
	Description         string         `json:"description"`
	ScenarioDescription string         `json:"scenario_description"`
	LogicOp             domain.LogicOp `json:"logic_op"`
	Conditions          int            `json:"conditions"`
}

// Graph returns every step and route of the form, flagging the focus and start steps.
func (s *Service) Graph(ctx context.Context, formID, focusStepID int64) (*Graph, error) {
	if _, err := stepInForm(ctx, s.store, formID, focusStepID); err != nil {
		return nil, err
	}
	g, err := s.FormGraph(ctx, formID)
	if err != nil {
		return nil, err
	}
	g.FocusStepID = focusStepID
	for i := range g.Steps {
		g.Steps[i].IsFocus = g.Steps[i].ID == focusStepID
	}
	return g, nil
}

// FormGraph returns every step and route of the form without a focus step.
func (s *Service) FormGraph(ctx context.Context, formID int64) (*Graph, error) {
	form, err := s.store.GetForm(ctx, formID)
	if err != nil {
		return nil, err
	}
	steps, err := s.store.ListSteps(ctx, formID)
	if err != nil {
		return nil, err
	}
	routes, err := s.store.ListFormTransitions(ctx, formID)
	if err != nil {
		return nil, err
	}

	g := &Graph{
		FormCode:    form.Code,
		StartStepID: form.StartStepID,
		Steps:       make([]GraphStep, 0, len(steps)),
		Routes:      make([]GraphRoute, 0, len(routes)),
	}
	for _, st := range steps {
		g.Steps = append(g.Steps, GraphStep{
			ID:         st.ID,
			Code:       st.Code,
			Title:      st.Title,
			StepType:   st.Type,
			SortOrder:  st.SortOrder,
			IsTerminal: st.IsTerminal,
			IsStart:    form.StartStepID != nil && *form.StartStepID == st.ID,
		})
	}
	for _, tr := range routes {
		g.Routes = append(g.Routes, GraphRoute{
			ID:                  tr.ID,
			SourceStepID:        tr.SourceStepID,
			TargetStepID:        tr.TargetStepID,
			Priority:            tr.Priority,
			Description:         tr.Description,
			ScenarioDescription: tr.Guard.Description,
			LogicOp:             tr.Guard.Logic,
			Conditions:          len(tr.Guard.Conditions),
		})
	}
	return g, nil
}
