package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aretw0/formflow/pkg/domain"
)

const formColumns = `id, code, title, description, is_active, start_step_id, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanForm(row rowScanner) (*domain.Form, error) {
	var (
		f       domain.Form
		start   sql.NullInt64
		created string
	)
	if err := row.Scan(&f.ID, &f.Code, &f.Title, &f.Description, &f.IsActive, &start, &created); err != nil {
		return nil, err
	}
	f.StartStepID = idPtr(start)
	f.CreatedAt = parseStamp(created)
	return &f, nil
}

// GetForm loads a form by id.
func (s *Store) GetForm(ctx context.Context, formID int64) (*domain.Form, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+formColumns+` FROM forms WHERE id = ?`, formID)
	f, err := scanForm(row)
	if err != nil {
		return nil, notFound(err, "get form", "form %d not found", formID)
	}
	return f, nil
}

// GetFormByCode loads a form by its unique code.
func (s *Store) GetFormByCode(ctx context.Context, code string) (*domain.Form, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+formColumns+` FROM forms WHERE code = ?`, code)
	f, err := scanForm(row)
	if err != nil {
		return nil, notFound(err, "get form", "form %q not found", code)
	}
	return f, nil
}

// ListForms returns every form ordered by id.
func (s *Store) ListForms(ctx context.Context) ([]domain.Form, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+formColumns+` FROM forms ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query forms: %w", err)
	}
	defer s.closeRows(rows)

	forms := []domain.Form{}
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan form: %w", err)
		}
		forms = append(forms, *f)
	}
	return forms, rows.Err()
}

// CreateForm inserts a form.
func (s *Store) CreateForm(ctx context.Context, form *domain.Form) error {
	created := s.stamp()
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO forms (code, title, description, is_active, created_at) VALUES (?, ?, ?, ?, ?)`,
		form.Code, form.Title, form.Description, form.IsActive, created)
	if err != nil {
		if isUnique(err) {
			return domain.Conflictf("create form", "form code %q already exists", form.Code)
		}
		return fmt.Errorf("failed to insert form: %w", err)
	}
	form.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}
	form.CreatedAt = parseStamp(created)
	return nil
}

// SetStartStep points the form at a start step, or clears it.
func (s *Store) SetStartStep(ctx context.Context, formID int64, stepID *int64) error {
	res, err := s.q.ExecContext(ctx, `UPDATE forms SET start_step_id = ? WHERE id = ?`, nullableID(stepID), formID)
	if err != nil {
		if isForeignKey(err) {
			return domain.NotFoundf("set start step", "step %d not found", *stepID)
		}
		return fmt.Errorf("failed to set start step: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundf("set start step", "form %d not found", formID)
	}
	return nil
}

const stepColumns = `id, form_id, code, title, step_type, sort_order, is_terminal`

func scanStep(row rowScanner) (*domain.Step, error) {
	var (
		st  domain.Step
		typ string
	)
	if err := row.Scan(&st.ID, &st.FormID, &st.Code, &st.Title, &typ, &st.SortOrder, &st.IsTerminal); err != nil {
		return nil, err
	}
	st.Type = domain.StepType(typ)
	return &st, nil
}

// GetStep loads a step by id.
func (s *Store) GetStep(ctx context.Context, stepID int64) (*domain.Step, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+stepColumns+` FROM form_steps WHERE id = ?`, stepID)
	st, err := scanStep(row)
	if err != nil {
		return nil, notFound(err, "get step", "step %d not found", stepID)
	}
	return st, nil
}

// GetStepByCode loads a step by its code within a form.
func (s *Store) GetStepByCode(ctx context.Context, formID int64, code string) (*domain.Step, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+stepColumns+` FROM form_steps WHERE form_id = ? AND code = ?`, formID, code)
	st, err := scanStep(row)
	if err != nil {
		return nil, notFound(err, "get step", "step %q not found in form %d", code, formID)
	}
	return st, nil
}

// ListSteps returns the steps of a form ordered by (sort_order, id).
func (s *Store) ListSteps(ctx context.Context, formID int64) ([]domain.Step, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+stepColumns+` FROM form_steps WHERE form_id = ? ORDER BY sort_order, id`, formID)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	defer s.closeRows(rows)

	steps := []domain.Step{}
	for rows.Next() {
		st, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		steps = append(steps, *st)
	}
	return steps, rows.Err()
}

// CreateStep inserts a step.
func (s *Store) CreateStep(ctx context.Context, step *domain.Step) error {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO form_steps (form_id, step_type, code, title, sort_order, is_terminal) VALUES (?, ?, ?, ?, ?, ?)`,
		step.FormID, string(step.Type), step.Code, step.Title, step.SortOrder, step.IsTerminal)
	if err != nil {
		switch {
		case isUnique(err):
			return domain.Conflictf("create step", "step code %q already exists in form %d", step.Code, step.FormID)
		case isForeignKey(err):
			return domain.NotFoundf("create step", "form %d or step type %q not found", step.FormID, step.Type)
		}
		return fmt.Errorf("failed to insert step: %w", err)
	}
	step.ID, err = res.LastInsertId()
	return err
}

// UpdateStep rewrites the mutable attributes of a step.
func (s *Store) UpdateStep(ctx context.Context, step *domain.Step) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE form_steps SET title = ?, step_type = ?, sort_order = ?, is_terminal = ? WHERE id = ? AND form_id = ?`,
		step.Title, string(step.Type), step.SortOrder, step.IsTerminal, step.ID, step.FormID)
	if err != nil {
		if isForeignKey(err) {
			return domain.NotFoundf("update step", "step type %q not found", step.Type)
		}
		return fmt.Errorf("failed to update step: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundf("update step", "step %d not found in form %d", step.ID, step.FormID)
	}
	return nil
}

const fieldColumns = `f.id, f.step_id, f.code, f.title, f.data_type, f.input_type, f.dictionary_id,
	COALESCE(d.code, ''), f.is_required, f.sort_order`

func scanField(row rowScanner) (*domain.Field, error) {
	var (
		f         domain.Field
		dataType  string
		inputType string
		dict      sql.NullInt64
	)
	if err := row.Scan(&f.ID, &f.StepID, &f.Code, &f.Title, &dataType, &inputType, &dict,
		&f.DictionaryCode, &f.IsRequired, &f.SortOrder); err != nil {
		return nil, err
	}
	f.DataType = domain.DataType(dataType)
	f.InputType = domain.InputType(inputType)
	f.DictionaryID = idPtr(dict)
	return &f, nil
}

// ListFields returns the fields of a step with their resolved options.
func (s *Store) ListFields(ctx context.Context, stepID int64) ([]domain.Field, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+fieldColumns+`
		FROM step_fields f LEFT JOIN dictionaries d ON f.dictionary_id = d.id
		WHERE f.step_id = ? ORDER BY f.sort_order, f.id`, stepID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fields: %w", err)
	}
	fields := []domain.Field{}
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			s.closeRows(rows)
			return nil, fmt.Errorf("failed to scan field: %w", err)
		}
		fields = append(fields, *f)
	}
	err = rows.Err()
	s.closeRows(rows)
	if err != nil {
		return nil, err
	}

	for i := range fields {
		if fields[i].Options, err = s.options(ctx, &fields[i]); err != nil {
			return nil, err
		}
	}
	return fields, nil
}

// GetFieldByCode resolves a field code anywhere in the form.
func (s *Store) GetFieldByCode(ctx context.Context, formID int64, code string) (*domain.Field, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+fieldColumns+`
		FROM step_fields f
		JOIN form_steps st ON f.step_id = st.id
		LEFT JOIN dictionaries d ON f.dictionary_id = d.id
		WHERE st.form_id = ? AND f.code = ?
		ORDER BY f.id LIMIT 1`, formID, code)
	f, err := scanField(row)
	if err != nil {
		return nil, notFound(err, "get field", "field %q not found in form %d", code, formID)
	}
	if f.Options, err = s.options(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// options resolves a choice field's option set from its dictionary or its own options.
func (s *Store) options(ctx context.Context, f *domain.Field) ([]domain.Option, error) {
	if !f.InputType.IsChoice() {
		return []domain.Option{}, nil
	}
	if f.DictionaryID != nil {
		return s.queryOptions(ctx,
			`SELECT value_code, value_label, sort_order FROM dictionary_values WHERE dictionary_id = ? ORDER BY sort_order, id`,
			*f.DictionaryID)
	}
	return s.queryOptions(ctx,
		`SELECT value_code, value_label, sort_order FROM field_options WHERE field_id = ? ORDER BY sort_order, id`,
		f.ID)
}

func (s *Store) queryOptions(ctx context.Context, query string, id int64) ([]domain.Option, error) {
	rows, err := s.q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query options: %w", err)
	}
	defer s.closeRows(rows)

	opts := []domain.Option{}
	for rows.Next() {
		var o domain.Option
		if err := rows.Scan(&o.Code, &o.Label, &o.SortOrder); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

// CreateField inserts a field and its own options.
func (s *Store) CreateField(ctx context.Context, field *domain.Field) error {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO step_fields (step_id, code, title, data_type, input_type, dictionary_id, is_required, sort_order)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		field.StepID, field.Code, field.Title, string(field.DataType), string(field.InputType),
		nullableID(field.DictionaryID), field.IsRequired, field.SortOrder)
	if err != nil {
		switch {
		case isUnique(err):
			return domain.Conflictf("create field", "field code %q already exists in step %d", field.Code, field.StepID)
		case isForeignKey(err):
			return domain.NotFoundf("create field", "step %d, data type %q or input type %q not found",
				field.StepID, field.DataType, field.InputType)
		}
		return fmt.Errorf("failed to insert field: %w", err)
	}
	if field.ID, err = res.LastInsertId(); err != nil {
		return err
	}

	if field.DictionaryID != nil {
		return nil
	}
	for _, o := range field.Options {
		if _, err := s.q.ExecContext(ctx,
			`INSERT INTO field_options (field_id, value_code, value_label, sort_order) VALUES (?, ?, ?, ?)`,
			field.ID, o.Code, o.Label, o.SortOrder); err != nil {
			if isUnique(err) {
				return domain.Conflictf("create field", "option %q repeated in field %q", o.Code, field.Code)
			}
			return fmt.Errorf("failed to insert option: %w", err)
		}
	}
	return nil
}

// GetDictionaryByCode loads a dictionary with its values.
func (s *Store) GetDictionaryByCode(ctx context.Context, code string) (*domain.Dictionary, error) {
	var d domain.Dictionary
	err := s.q.QueryRowContext(ctx, `SELECT id, code, title FROM dictionaries WHERE code = ?`, code).
		Scan(&d.ID, &d.Code, &d.Title)
	if err != nil {
		return nil, notFound(err, "get dictionary", "dictionary %q not found", code)
	}
	if d.Values, err = s.queryOptions(ctx,
		`SELECT value_code, value_label, sort_order FROM dictionary_values WHERE dictionary_id = ? ORDER BY sort_order, id`,
		d.ID); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDictionaries returns every dictionary with its values.
func (s *Store) ListDictionaries(ctx context.Context) ([]domain.Dictionary, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT id, code, title FROM dictionaries ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dictionaries: %w", err)
	}
	dicts := []domain.Dictionary{}
	for rows.Next() {
		var d domain.Dictionary
		if err := rows.Scan(&d.ID, &d.Code, &d.Title); err != nil {
			s.closeRows(rows)
			return nil, fmt.Errorf("failed to scan dictionary: %w", err)
		}
		dicts = append(dicts, d)
	}
	err = rows.Err()
	s.closeRows(rows)
	if err != nil {
		return nil, err
	}

	for i := range dicts {
		if dicts[i].Values, err = s.queryOptions(ctx,
			`SELECT value_code, value_label, sort_order FROM dictionary_values WHERE dictionary_id = ? ORDER BY sort_order, id`,
			dicts[i].ID); err != nil {
			return nil, err
		}
	}
	return dicts, nil
}

// CreateDictionary inserts a dictionary and its values.
func (s *Store) CreateDictionary(ctx context.Context, dict *domain.Dictionary) error {
	res, err := s.q.ExecContext(ctx, `INSERT INTO dictionaries (code, title) VALUES (?, ?)`, dict.Code, dict.Title)
	if err != nil {
		if isUnique(err) {
			return domain.Conflictf("create dictionary", "dictionary code %q already exists", dict.Code)
		}
		return fmt.Errorf("failed to insert dictionary: %w", err)
	}
	if dict.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	for _, v := range dict.Values {
		if _, err := s.q.ExecContext(ctx,
			`INSERT INTO dictionary_values (dictionary_id, value_code, value_label, sort_order) VALUES (?, ?, ?, ?)`,
			dict.ID, v.Code, v.Label, v.SortOrder); err != nil {
			if isUnique(err) {
				return domain.Conflictf("create dictionary", "value %q repeated in dictionary %q", v.Code, dict.Code)
			}
			return fmt.Errorf("failed to insert dictionary value: %w", err)
		}
	}
	return nil
}
