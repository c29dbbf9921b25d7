package question

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/quotevox/quotevox/internal/interpret/spokendate"
	"github.com/quotevox/quotevox/pkg/types"
)

// Schema is the SQL DDL for the flow tables. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
// Question IDs are unique across flows so cascading option lookups do not
// need a flow scope.
const Schema = `
CREATE TABLE IF NOT EXISTS flows (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS questions (
    id               TEXT PRIMARY KEY,
    flow_id          TEXT NOT NULL REFERENCES flows(id) ON DELETE CASCADE,
    position         INTEGER NOT NULL,
    text             TEXT NOT NULL,
    variants         JSONB NOT NULL DEFAULT '[]',
    input_type       TEXT NOT NULL DEFAULT 'text',
    date_component   TEXT NOT NULL DEFAULT '',
    numeric_spelling BOOLEAN NOT NULL DEFAULT FALSE,
    parent_id        TEXT NOT NULL DEFAULT '',
    options          JSONB NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_questions_flow ON questions(flow_id, position);
CREATE TABLE IF NOT EXISTS question_options (
    question_id  TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
    parent_value TEXT NOT NULL,
    options      JSONB NOT NULL DEFAULT '[]',
    PRIMARY KEY (question_id, parent_value)
);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database. Variants and
// option lists are serialised as JSONB.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new [PostgresStore] that uses the given database
// connection or pool. The caller is responsible for calling
// [PostgresStore.Migrate] to ensure the schema exists before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL against the database, creating the flow
// tables and indexes if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, Schema)
	if err != nil {
		return fmt.Errorf("question: migrate: %w", err)
	}
	return nil
}

// SaveFlow validates the flow and replaces it in the database: the flow row
// is upserted, its questions are rewritten, and per-parent cascading option
// lists are stored alongside. Useful for importing YAML flows.
func (s *PostgresStore) SaveFlow(ctx context.Context, f *Flow) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("question: invalid flow %q: %w", f.ID, err)
	}

	const upsertFlow = `
		INSERT INTO flows (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, updated_at = now()`
	if _, err := s.db.Exec(ctx, upsertFlow, f.ID, f.Name); err != nil {
		return fmt.Errorf("question: save flow %q: %w", f.ID, err)
	}

	// Rewriting the question rows cascades into question_options.
	if _, err := s.db.Exec(ctx, `DELETE FROM questions WHERE flow_id = $1`, f.ID); err != nil {
		return fmt.Errorf("question: clear flow %q: %w", f.ID, err)
	}

	const insertQuestion = `
		INSERT INTO questions (
			id, flow_id, position, text, variants, input_type,
			date_component, numeric_spelling, parent_id, options
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	for i := range f.Questions {
		q := &f.Questions[i]
		variantsJSON, err := json.Marshal(emptySlice(q.Variants))
		if err != nil {
			return fmt.Errorf("question: marshal variants for %q: %w", q.ID, err)
		}
		optionsJSON, err := json.Marshal(emptySlice(q.Options))
		if err != nil {
			return fmt.Errorf("question: marshal options for %q: %w", q.ID, err)
		}
		if _, err := s.db.Exec(ctx, insertQuestion,
			q.ID, f.ID, i, q.Text, variantsJSON, string(q.InputType),
			string(q.DateComponent), q.NumericSpelling, q.ParentID, optionsJSON,
		); err != nil {
			return fmt.Errorf("question: save question %q: %w", q.ID, err)
		}
		for parentValue, opts := range q.OptionsByParent {
			if err := s.SaveCascadingOptions(ctx, q.ID, parentValue, opts); err != nil {
				return err
			}
		}
	}
	return nil
}

// SaveCascadingOptions binds an option list to one parent answer value for a
// cascading select question.
func (s *PostgresStore) SaveCascadingOptions(ctx context.Context, questionID, parentValue string, opts []types.AnswerOption) error {
	optionsJSON, err := json.Marshal(emptySlice(opts))
	if err != nil {
		return fmt.Errorf("question: marshal cascading options for %q: %w", questionID, err)
	}
	const query = `
		INSERT INTO question_options (question_id, parent_value, options)
		VALUES ($1, $2, $3)
		ON CONFLICT (question_id, parent_value) DO UPDATE SET options = EXCLUDED.options`
	if _, err := s.db.Exec(ctx, query, questionID, parentValue, optionsJSON); err != nil {
		return fmt.Errorf("question: save cascading options for %q: %w", questionID, err)
	}
	return nil
}

// Flow returns the flow with the given ID, or an error wrapping
// [ErrNotFound] when it does not exist.
func (s *PostgresStore) Flow(ctx context.Context, id string) (*Flow, error) {
	f := &Flow{ID: id}

	err := s.db.QueryRow(ctx, `SELECT name FROM flows WHERE id = $1`, id).Scan(&f.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("flow %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("question: get flow %q: %w", id, err)
	}

	const query = `
		SELECT id, text, variants, input_type, date_component,
		       numeric_spelling, parent_id, options
		FROM questions
		WHERE flow_id = $1
		ORDER BY position`
	rows, err := s.db.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("question: get flow %q: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			q            Question
			inputType    string
			component    string
			variantsJSON []byte
			optionsJSON  []byte
		)
		if err := rows.Scan(
			&q.ID, &q.Text, &variantsJSON, &inputType, &component,
			&q.NumericSpelling, &q.ParentID, &optionsJSON,
		); err != nil {
			return nil, fmt.Errorf("question: scan flow %q: %w", id, err)
		}
		q.InputType = types.InputType(inputType)
		q.DateComponent = spokendate.Component(component)
		if err := json.Unmarshal(variantsJSON, &q.Variants); err != nil {
			return nil, fmt.Errorf("question: unmarshal variants for %q: %w", q.ID, err)
		}
		if err := json.Unmarshal(optionsJSON, &q.Options); err != nil {
			return nil, fmt.Errorf("question: unmarshal options for %q: %w", q.ID, err)
		}
		f.Questions = append(f.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("question: get flow %q: %w", id, err)
	}
	return f, nil
}

// OptionsFor returns the cascading option list bound to parentValue, falling
// back to the question's base options when no list is bound.
func (s *PostgresStore) OptionsFor(ctx context.Context, questionID, parentValue string) ([]types.AnswerOption, error) {
	var optionsJSON []byte
	const query = `
		SELECT options FROM question_options
		WHERE question_id = $1 AND parent_value = $2`
	err := s.db.QueryRow(ctx, query, questionID, parentValue).Scan(&optionsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		err = s.db.QueryRow(ctx,
			`SELECT options FROM questions WHERE id = $1`, questionID,
		).Scan(&optionsJSON)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("question %q: %w", questionID, ErrNotFound)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("question: options for %q: %w", questionID, err)
	}

	var opts []types.AnswerOption
	if err := json.Unmarshal(optionsJSON, &opts); err != nil {
		return nil, fmt.Errorf("question: unmarshal options for %q: %w", questionID, err)
	}
	return opts, nil
}

// emptySlice returns s if non-nil, otherwise an empty non-nil slice. This
// ensures JSON marshalling produces "[]" instead of "null".
func emptySlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
