package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aretw0/formflow/pkg/domain"
)

const instanceColumns = `id, form_id, user_id, status, current_step_id, version, started_at, updated_at`

func scanInstance(row rowScanner) (*domain.Instance, error) {
	var (
		inst             domain.Instance
		status           string
		current          sql.NullInt64
		started, updated string
	)
	if err := row.Scan(&inst.ID, &inst.FormID, &inst.UserID, &status, &current, &inst.Version,
		&started, &updated); err != nil {
		return nil, err
	}
	inst.Status = domain.InstanceStatus(status)
	inst.CurrentStepID = idPtr(current)
	inst.StartedAt = parseStamp(started)
	inst.UpdatedAt = parseStamp(updated)
	return &inst, nil
}

// CreateInstance inserts an instance at version 1.
func (s *Store) CreateInstance(ctx context.Context, inst *domain.Instance) error {
	now := s.stamp()
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO form_instances (form_id, user_id, status, current_step_id, version, started_at, updated_at)
		 VALUES (?, ?, ?, ?, 1, ?, ?)`,
		inst.FormID, inst.UserID, string(inst.Status), nullableID(inst.CurrentStepID), now, now)
	if err != nil {
		if isForeignKey(err) {
			return domain.NotFoundf("create instance", "form %d, status %q or step not found", inst.FormID, inst.Status)
		}
		return fmt.Errorf("failed to insert instance: %w", err)
	}
	if inst.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	inst.Version = 1
	inst.StartedAt = parseStamp(now)
	inst.UpdatedAt = inst.StartedAt
	return nil
}

// GetInstance loads an instance by id.
func (s *Store) GetInstance(ctx context.Context, instanceID int64) (*domain.Instance, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+instanceColumns+` FROM form_instances WHERE id = ?`, instanceID)
	inst, err := scanInstance(row)
	if err != nil {
		return nil, notFound(err, "get instance", "instance %d not found", instanceID)
	}
	return inst, nil
}

// FindInstance returns the most recent instance of (form, user) in the given status.
func (s *Store) FindInstance(ctx context.Context, formID int64, userID string, status domain.InstanceStatus) (*domain.Instance, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+instanceColumns+` FROM form_instances
		WHERE form_id = ? AND user_id = ? AND status = ?
		ORDER BY id DESC LIMIT 1`, formID, userID, string(status))
	inst, err := scanInstance(row)
	if err != nil {
		return nil, notFound(err, "find instance", "no %s instance of form %d for user %q", status, formID, userID)
	}
	return inst, nil
}

// UpdateInstance writes status and current step under an optimistic version check.
func (s *Store) UpdateInstance(ctx context.Context, inst *domain.Instance) error {
	now := s.stamp()
	res, err := s.q.ExecContext(ctx,
		`UPDATE form_instances SET status = ?, current_step_id = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		string(inst.Status), nullableID(inst.CurrentStepID), now, inst.ID, inst.Version)
	if err != nil {
		return fmt.Errorf("failed to update instance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := s.GetInstance(ctx, inst.ID); err != nil {
			return err
		}
		return domain.Conflictf("update instance", "instance %d was modified concurrently (version %d)", inst.ID, inst.Version)
	}
	inst.Version++
	inst.UpdatedAt = parseStamp(now)
	return nil
}

// EnterStep appends an entered ledger row.
func (s *Store) EnterStep(ctx context.Context, instanceID, stepID int64) (*domain.StepVisit, error) {
	now := s.stamp()
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO instance_steps (instance_id, step_id, status, entered_at) VALUES (?, ?, ?, ?)`,
		instanceID, stepID, string(domain.VisitEntered), now)
	if err != nil {
		if isForeignKey(err) {
			return nil, domain.NotFoundf("enter step", "instance %d or step %d not found", instanceID, stepID)
		}
		return nil, fmt.Errorf("failed to insert step visit: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	visit := &domain.StepVisit{
		ID:         id,
		InstanceID: instanceID,
		StepID:     stepID,
		Status:     domain.VisitEntered,
		EnteredAt:  parseStamp(now),
	}
	if err := s.q.QueryRowContext(ctx, `SELECT code FROM form_steps WHERE id = ?`, stepID).Scan(&visit.StepCode); err != nil {
		return nil, notFound(err, "enter step", "step %d not found", stepID)
	}
	return visit, nil
}

// CompleteStep marks every visit of the step as completed.
func (s *Store) CompleteStep(ctx context.Context, instanceID, stepID int64) error {
	if _, err := s.q.ExecContext(ctx,
		`UPDATE instance_steps SET status = ?, left_at = ? WHERE instance_id = ? AND step_id = ?`,
		string(domain.VisitCompleted), s.stamp(), instanceID, stepID); err != nil {
		return fmt.Errorf("failed to complete step: %w", err)
	}
	return nil
}

// ListVisits returns the ledger of an instance ordered by (entered_at, id).
func (s *Store) ListVisits(ctx context.Context, instanceID int64) ([]domain.StepVisit, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT v.id, v.instance_id, v.step_id, st.code, v.status, v.entered_at, v.left_at
		FROM instance_steps v JOIN form_steps st ON v.step_id = st.id
		WHERE v.instance_id = ? ORDER BY v.entered_at, v.id`, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query step visits: %w", err)
	}
	defer s.closeRows(rows)

	visits := []domain.StepVisit{}
	for rows.Next() {
		var (
			v       domain.StepVisit
			status  string
			entered string
			left    sql.NullString
		)
		if err := rows.Scan(&v.ID, &v.InstanceID, &v.StepID, &v.StepCode, &status, &entered, &left); err != nil {
			return nil, fmt.Errorf("failed to scan step visit: %w", err)
		}
		v.Status = domain.VisitStatus(status)
		v.EnteredAt = parseStamp(entered)
		if left.Valid {
			t := parseStamp(left.String)
			v.LeftAt = &t
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

// UpsertAnswer stores the value of a field, replacing any previous one.
func (s *Store) UpsertAnswer(ctx context.Context, instanceID, fieldID int64, v domain.Value) error {
	kind, raw, err := v.Encode()
	if err != nil {
		return err
	}
	if _, err := s.q.ExecContext(ctx, `
		INSERT INTO instance_answers (instance_id, field_id, value_kind, value_raw, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (instance_id, field_id) DO UPDATE SET
			value_kind = excluded.value_kind,
			value_raw  = excluded.value_raw,
			updated_at = excluded.updated_at`,
		instanceID, fieldID, kind, raw, s.stamp()); err != nil {
		if isForeignKey(err) {
			return domain.NotFoundf("save answer", "instance %d or field %d not found", instanceID, fieldID)
		}
		return fmt.Errorf("failed to upsert answer: %w", err)
	}
	return nil
}

// Snapshot returns every recorded answer of an instance keyed by field id.
func (s *Store) Snapshot(ctx context.Context, instanceID int64) (domain.Snapshot, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT field_id, value_kind, value_raw FROM instance_answers WHERE instance_id = ?`, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query answers: %w", err)
	}
	defer s.closeRows(rows)

	snap := domain.Snapshot{}
	for rows.Next() {
		var (
			fieldID   int64
			kind, raw string
		)
		if err := rows.Scan(&fieldID, &kind, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		v, err := domain.DecodeValue(kind, raw)
		if err != nil {
			return nil, fmt.Errorf("answer of field %d: %w", fieldID, err)
		}
		snap[fieldID] = v
	}
	return snap, rows.Err()
}
