package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aretw0/formflow/pkg/domain"
)

const transitionColumns = `t.id, t.form_id, t.source_step_id, t.target_step_id, t.priority, t.description,
	g.id, g.form_id, g.logic_op, g.description`

func scanTransition(row rowScanner) (*domain.Transition, error) {
	var (
		tr    domain.Transition
		logic string
	)
	if err := row.Scan(&tr.ID, &tr.FormID, &tr.SourceStepID, &tr.TargetStepID, &tr.Priority, &tr.Description,
		&tr.Guard.ID, &tr.Guard.FormID, &logic, &tr.Guard.Description); err != nil {
		return nil, err
	}
	tr.Guard.Logic = domain.LogicOp(logic)
	return &tr, nil
}

// ListTransitions returns the outgoing transitions of a step with their guards.
func (s *Store) ListTransitions(ctx context.Context, sourceStepID int64) ([]domain.Transition, error) {
	return s.queryTransitions(ctx, `SELECT `+transitionColumns+`
		FROM step_transitions t JOIN condition_groups g ON t.condition_group_id = g.id
		WHERE t.source_step_id = ? ORDER BY t.priority, t.id`, sourceStepID)
}

// ListFormTransitions returns every transition of a form.
func (s *Store) ListFormTransitions(ctx context.Context, formID int64) ([]domain.Transition, error) {
	return s.queryTransitions(ctx, `SELECT `+transitionColumns+`
		FROM step_transitions t JOIN condition_groups g ON t.condition_group_id = g.id
		WHERE t.form_id = ? ORDER BY t.priority, t.id`, formID)
}

// GetTransition loads one transition of a form with its guard.
func (s *Store) GetTransition(ctx context.Context, formID, transitionID int64) (*domain.Transition, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+transitionColumns+`
		FROM step_transitions t JOIN condition_groups g ON t.condition_group_id = g.id
		WHERE t.form_id = ? AND t.id = ?`, formID, transitionID)
	tr, err := scanTransition(row)
	if err != nil {
		return nil, notFound(err, "get transition", "transition %d not found in form %d", transitionID, formID)
	}
	if tr.Guard.Conditions, err = s.conditions(ctx, tr.Guard.ID); err != nil {
		return nil, err
	}
	return tr, nil
}

func (s *Store) queryTransitions(ctx context.Context, query string, id int64) ([]domain.Transition, error) {
	rows, err := s.q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query transitions: %w", err)
	}
	trs := []domain.Transition{}
	for rows.Next() {
		tr, err := scanTransition(rows)
		if err != nil {
			s.closeRows(rows)
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		trs = append(trs, *tr)
	}
	err = rows.Err()
	s.closeRows(rows)
	if err != nil {
		return nil, err
	}

	for i := range trs {
		if trs[i].Guard.Conditions, err = s.conditions(ctx, trs[i].Guard.ID); err != nil {
			return nil, err
		}
	}
	return trs, nil
}

// conditions loads a guard's conditions ordered by (position, id).
func (s *Store) conditions(ctx context.Context, groupID int64) ([]domain.Condition, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT c.id, c.group_id, c.field_id, f.code, c.op_code, c.value_kind, c.value_raw,
		       c.rhs_field_id, COALESCE(r.code, ''), c.position
		FROM conditions c
		JOIN step_fields f ON c.field_id = f.id
		LEFT JOIN step_fields r ON c.rhs_field_id = r.id
		WHERE c.group_id = ? ORDER BY c.position, c.id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conditions: %w", err)
	}
	defer s.closeRows(rows)

	conds := []domain.Condition{}
	for rows.Next() {
		var (
			c       domain.Condition
			op      string
			kind    string
			raw     string
			rhs     sql.NullInt64
			rhsCode string
		)
		if err := rows.Scan(&c.ID, &c.GroupID, &c.FieldID, &c.FieldCode, &op, &kind, &raw,
			&rhs, &rhsCode, &c.Position); err != nil {
			return nil, fmt.Errorf("failed to scan condition: %w", err)
		}
		c.Operator = domain.Operator(op)
		if rhs.Valid {
			c.Operand = domain.FieldOperand(rhs.Int64)
			c.Operand.FieldCode = rhsCode
		} else {
			v, err := domain.DecodeValue(kind, raw)
			if err != nil {
				return nil, fmt.Errorf("condition %d: %w", c.ID, err)
			}
			c.Operand = domain.LiteralOperand(v)
		}
		conds = append(conds, c)
	}
	return conds, rows.Err()
}

// CreateTransition inserts the guard group, its conditions and the transition.
func (s *Store) CreateTransition(ctx context.Context, tr *domain.Transition) error {
	if tr.Guard.Logic == "" {
		tr.Guard.Logic = domain.LogicAnd
	}
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO condition_groups (form_id, logic_op, description) VALUES (?, ?, ?)`,
		tr.FormID, string(tr.Guard.Logic), tr.Guard.Description)
	if err != nil {
		if isForeignKey(err) {
			return domain.NotFoundf("create transition", "form %d not found", tr.FormID)
		}
		return fmt.Errorf("failed to insert condition group: %w", err)
	}
	if tr.Guard.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	tr.Guard.FormID = tr.FormID

	if err := s.insertConditions(ctx, &tr.Guard); err != nil {
		return err
	}

	res, err = s.q.ExecContext(ctx,
		`INSERT INTO step_transitions (form_id, source_step_id, target_step_id, condition_group_id, priority, description)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tr.FormID, tr.SourceStepID, tr.TargetStepID, tr.Guard.ID, tr.Priority, tr.Description)
	if err != nil {
		if isForeignKey(err) {
			return domain.NotFoundf("create transition", "step %d or %d not found", tr.SourceStepID, tr.TargetStepID)
		}
		return fmt.Errorf("failed to insert transition: %w", err)
	}
	tr.ID, err = res.LastInsertId()
	return err
}

// UpdateTransition rewrites target, priority and guard, replacing all conditions.
func (s *Store) UpdateTransition(ctx context.Context, tr *domain.Transition) error {
	var groupID int64
	err := s.q.QueryRowContext(ctx,
		`SELECT condition_group_id FROM step_transitions WHERE id = ? AND form_id = ?`, tr.ID, tr.FormID).
		Scan(&groupID)
	if err != nil {
		return notFound(err, "update transition", "transition %d not found in form %d", tr.ID, tr.FormID)
	}
	if tr.Guard.Logic == "" {
		tr.Guard.Logic = domain.LogicAnd
	}

	if _, err := s.q.ExecContext(ctx,
		`UPDATE step_transitions SET target_step_id = ?, priority = ?, description = ? WHERE id = ?`,
		tr.TargetStepID, tr.Priority, tr.Description, tr.ID); err != nil {
		if isForeignKey(err) {
			return domain.NotFoundf("update transition", "step %d not found", tr.TargetStepID)
		}
		return fmt.Errorf("failed to update transition: %w", err)
	}
	if _, err := s.q.ExecContext(ctx,
		`UPDATE condition_groups SET logic_op = ?, description = ? WHERE id = ?`,
		string(tr.Guard.Logic), tr.Guard.Description, groupID); err != nil {
		return fmt.Errorf("failed to update condition group: %w", err)
	}
	if _, err := s.q.ExecContext(ctx, `DELETE FROM conditions WHERE group_id = ?`, groupID); err != nil {
		return fmt.Errorf("failed to clear conditions: %w", err)
	}

	tr.Guard.ID = groupID
	tr.Guard.FormID = tr.FormID
	return s.insertConditions(ctx, &tr.Guard)
}

func (s *Store) insertConditions(ctx context.Context, g *domain.ConditionGroup) error {
	for i := range g.Conditions {
		c := &g.Conditions[i]
		var (
			kind, raw string
			rhs       sql.NullInt64
			err       error
		)
		if c.Operand.IsFieldRef() {
			kind = domain.ValueNull.String()
			rhs = sql.NullInt64{Int64: c.Operand.FieldID, Valid: true}
		} else if kind, raw, err = c.Operand.Literal.Encode(); err != nil {
			return fmt.Errorf("encode condition value: %w", err)
		}

		res, err := s.q.ExecContext(ctx,
			`INSERT INTO conditions (group_id, field_id, op_code, value_kind, value_raw, rhs_field_id, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			g.ID, c.FieldID, string(c.Operator), kind, raw, rhs, c.Position)
		if err != nil {
			if isForeignKey(err) {
				return domain.NotFoundf("create condition", "field %d or operator %q not found", c.FieldID, c.Operator)
			}
			return fmt.Errorf("failed to insert condition: %w", err)
		}
		if c.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		c.GroupID = g.ID
	}
	return nil
}
