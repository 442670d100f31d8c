package sqlite

import (
	"context"
	"fmt"

	"github.com/aretw0/formflow/pkg/domain"
)

type migration struct {
	version int
	sql     string
}

// migrations are applied in order, each in its own transaction.
var migrations = []migration{
	{version: 1, sql: schemaV1},
}

const schemaV1 = `
CREATE TABLE step_types (
	code  TEXT PRIMARY KEY,
	title TEXT NOT NULL
);
CREATE TABLE field_data_types (
	code  TEXT PRIMARY KEY,
	title TEXT NOT NULL
);
CREATE TABLE field_input_types (
	code  TEXT PRIMARY KEY,
	title TEXT NOT NULL
);
CREATE TABLE compare_ops (
	code  TEXT PRIMARY KEY,
	title TEXT NOT NULL
);
CREATE TABLE instance_statuses (
	code  TEXT PRIMARY KEY,
	title TEXT NOT NULL
);

CREATE TABLE dictionaries (
	id    INTEGER PRIMARY KEY,
	code  TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL
);
CREATE TABLE dictionary_values (
	id            INTEGER PRIMARY KEY,
	dictionary_id INTEGER NOT NULL REFERENCES dictionaries(id) ON DELETE CASCADE,
	value_code    TEXT NOT NULL,
	value_label   TEXT NOT NULL,
	sort_order    INTEGER NOT NULL DEFAULT 100,
	UNIQUE (dictionary_id, value_code)
);

CREATE TABLE forms (
	id            INTEGER PRIMARY KEY,
	code          TEXT NOT NULL UNIQUE,
	title         TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	is_active     INTEGER NOT NULL DEFAULT 1,
	start_step_id INTEGER REFERENCES form_steps(id) ON DELETE SET NULL,
	created_at    TEXT NOT NULL
);
CREATE TABLE form_steps (
	id          INTEGER PRIMARY KEY,
	form_id     INTEGER NOT NULL REFERENCES forms(id) ON DELETE CASCADE,
	step_type   TEXT NOT NULL REFERENCES step_types(code),
	code        TEXT NOT NULL,
	title       TEXT NOT NULL,
	sort_order  INTEGER NOT NULL DEFAULT 100,
	is_terminal INTEGER NOT NULL DEFAULT 0,
	UNIQUE (form_id, code)
);
CREATE TABLE step_fields (
	id            INTEGER PRIMARY KEY,
	step_id       INTEGER NOT NULL REFERENCES form_steps(id) ON DELETE CASCADE,
	code          TEXT NOT NULL,
	title         TEXT NOT NULL,
	data_type     TEXT NOT NULL REFERENCES field_data_types(code),
	input_type    TEXT NOT NULL REFERENCES field_input_types(code),
	dictionary_id INTEGER REFERENCES dictionaries(id),
	is_required   INTEGER NOT NULL DEFAULT 0,
	sort_order    INTEGER NOT NULL DEFAULT 100,
	UNIQUE (step_id, code)
);
CREATE TABLE field_options (
	id          INTEGER PRIMARY KEY,
	field_id    INTEGER NOT NULL REFERENCES step_fields(id) ON DELETE CASCADE,
	value_code  TEXT NOT NULL,
	value_label TEXT NOT NULL,
	sort_order  INTEGER NOT NULL DEFAULT 100,
	UNIQUE (field_id, value_code)
);

CREATE TABLE condition_groups (
	id          INTEGER PRIMARY KEY,
	form_id     INTEGER NOT NULL REFERENCES forms(id) ON DELETE CASCADE,
	logic_op    TEXT NOT NULL DEFAULT 'AND' CHECK (logic_op IN ('AND', 'OR')),
	description TEXT NOT NULL DEFAULT ''
);
CREATE TABLE conditions (
	id           INTEGER PRIMARY KEY,
	group_id     INTEGER NOT NULL REFERENCES condition_groups(id) ON DELETE CASCADE,
	field_id     INTEGER NOT NULL REFERENCES step_fields(id) ON DELETE CASCADE,
	op_code      TEXT NOT NULL REFERENCES compare_ops(code),
	value_kind   TEXT NOT NULL DEFAULT 'null',
	value_raw    TEXT NOT NULL DEFAULT '',
	rhs_field_id INTEGER REFERENCES step_fields(id) ON DELETE CASCADE,
	position     INTEGER NOT NULL DEFAULT 100
);
CREATE INDEX idx_conditions_group ON conditions (group_id, position, id);

CREATE TABLE step_transitions (
	id                 INTEGER PRIMARY KEY,
	form_id            INTEGER NOT NULL REFERENCES forms(id) ON DELETE CASCADE,
	source_step_id     INTEGER NOT NULL REFERENCES form_steps(id) ON DELETE CASCADE,
	target_step_id     INTEGER NOT NULL REFERENCES form_steps(id) ON DELETE CASCADE,
	condition_group_id INTEGER NOT NULL REFERENCES condition_groups(id) ON DELETE CASCADE,
	priority           INTEGER NOT NULL DEFAULT 100,
	description        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX idx_transitions_source ON step_transitions (source_step_id, priority, id);

CREATE TABLE form_instances (
	id              INTEGER PRIMARY KEY,
	form_id         INTEGER NOT NULL REFERENCES forms(id) ON DELETE CASCADE,
	user_id         TEXT NOT NULL,
	status          TEXT NOT NULL REFERENCES instance_statuses(code),
	current_step_id INTEGER REFERENCES form_steps(id),
	version         INTEGER NOT NULL DEFAULT 1,
	started_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL
);
CREATE INDEX idx_instances_form_user ON form_instances (form_id, user_id, status);

CREATE TABLE instance_steps (
	id          INTEGER PRIMARY KEY,
	instance_id INTEGER NOT NULL REFERENCES form_instances(id) ON DELETE CASCADE,
	step_id     INTEGER NOT NULL REFERENCES form_steps(id),
	status      TEXT NOT NULL CHECK (status IN ('entered', 'completed')),
	entered_at  TEXT NOT NULL,
	left_at     TEXT
);
CREATE INDEX idx_instance_steps_instance ON instance_steps (instance_id, entered_at, id);

CREATE TABLE instance_answers (
	instance_id INTEGER NOT NULL REFERENCES form_instances(id) ON DELETE CASCADE,
	field_id    INTEGER NOT NULL REFERENCES step_fields(id) ON DELETE CASCADE,
	value_kind  TEXT NOT NULL,
	value_raw   TEXT NOT NULL DEFAULT '',
	updated_at  TEXT NOT NULL,
	PRIMARY KEY (instance_id, field_id)
);
`

// Migrate brings the schema to the latest version and seeds the lookup vocabulary.
func (s *Store) Migrate(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Starting database migrations")

	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Current schema version", "version", current)

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := s.apply(ctx, m); err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "Migration applied successfully", "version", m.version)
	}

	if err := s.seedVocabulary(ctx); err != nil {
		return fmt.Errorf("failed to seed vocabulary: %w", err)
	}
	return nil
}

// SchemaVersion returns the highest applied migration, 0 for a fresh database.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to query current schema version: %w", err)
	}
	return version, nil
}

func (s *Store) apply(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for migration %d: %w", m.version, err)
	}
	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to execute migration %d: %w", m.version, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)", m.version, s.stamp()); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to record migration %d: %w", m.version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
	}
	return nil
}

// seedVocabulary mirrors the closed enums into the lookup tables.
func (s *Store) seedVocabulary(ctx context.Context) error {
	type row struct{ table, code, title string }
	var rows []row
	for _, t := range []domain.StepType{domain.StepQuestionnaire, domain.StepUpload, domain.StepReview} {
		rows = append(rows, row{"step_types", string(t), titles[string(t)]})
	}
	for _, t := range []domain.DataType{domain.DataString, domain.DataText, domain.DataInteger, domain.DataDecimal,
		domain.DataBoolean, domain.DataDate, domain.DataDatetime} {
		rows = append(rows, row{"field_data_types", string(t), titles[string(t)]})
	}
	for _, t := range []domain.InputType{domain.InputText, domain.InputTextarea, domain.InputSelect,
		domain.InputMultiselect, domain.InputCheckbox, domain.InputDatepicker} {
		rows = append(rows, row{"field_input_types", string(t), titles[string(t)]})
	}
	for _, op := range domain.Operators {
		rows = append(rows, row{"compare_ops", string(op), titles[string(op)]})
	}
	for _, st := range domain.InstanceStatuses {
		rows = append(rows, row{"instance_statuses", string(st), titles[string(st)]})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, r := range rows {
		// Table names come from the fixed list above.
		query := fmt.Sprintf("INSERT INTO %s (code, title) VALUES (?, ?) ON CONFLICT (code) DO UPDATE SET title = excluded.title", r.table)
		if _, err := tx.ExecContext(ctx, query, r.code, r.title); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert %s %q: %w", r.table, r.code, err)
		}
	}
	return tx.Commit()
}

var titles = map[string]string{
	"questionnaire": "Questionnaire",
	"upload":        "Document upload",
	"review":        "Review",

	"string":   "String",
	"text":     "Text",
	"integer":  "Integer",
	"decimal":  "Decimal",
	"boolean":  "Yes/No",
	"date":     "Date",
	"datetime": "Date and time",

	"input":       "Text input",
	"textarea":    "Text area",
	"select":      "Dropdown",
	"multiselect": "Multiple choice",
	"checkbox":    "Checkbox",
	"datepicker":  "Date picker",

	"eq":        "Equals",
	"ne":        "Not equals",
	"gt":        "Greater than",
	"gte":       "Greater than or equal",
	"lt":        "Less than",
	"lte":       "Less than or equal",
	"in":        "In list",
	"not_in":    "Not in list",
	"like":      "Like",
	"ilike":     "Like (case-insensitive)",
	"is_true":   "Is true",
	"is_false":  "Is false",
	"is_empty":  "Is empty",
	"not_empty": "Is not empty",

	"draft":       "Draft",
	"in_progress": "In progress",
	"paused":      "Paused",
	"completed":   "Completed",
	"cancelled":   "Cancelled",
}
