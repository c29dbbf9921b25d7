package question

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/quotevox/quotevox/pkg/types"
)

// ---------------------------------------------------------------------------
// Test helpers — mock DB types
// ---------------------------------------------------------------------------

// mockRow implements pgx.Row for testing.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error { return r.scanFunc(dest...) }

// mockRows implements pgx.Rows for testing.
type mockRows struct {
	data   [][]any
	idx    int
	err    error
	closed bool
}

func (r *mockRows) Close()                                       { r.closed = true }
func (r *mockRows) Err() error                                   { return r.err }
func (r *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *mockRows) RawValues() [][]byte                          { return nil }
func (r *mockRows) Conn() *pgx.Conn                              { return nil }
func (r *mockRows) Values() ([]any, error)                       { return nil, nil }

func (r *mockRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *mockRows) Scan(dest ...any) error {
	row := r.data[r.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: expected %d columns, got %d destinations", len(row), len(dest))
	}
	for i, v := range row {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *[]byte:
			*d = v.([]byte)
		case *bool:
			*d = v.(bool)
		default:
			return fmt.Errorf("scan: unsupported type at index %d: %T", i, dest[i])
		}
	}
	return nil
}

// mockDB implements the DB interface for testing.
type mockDB struct {
	queryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	queryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	execFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.queryRowFunc != nil {
		return m.queryRowFunc(ctx, sql, args...)
	}
	return &mockRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }}
}

func (m *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, sql, args...)
	}
	return &mockRows{}, nil
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.execFunc != nil {
		return m.execFunc(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

// ---------------------------------------------------------------------------
// PostgresStore tests
// ---------------------------------------------------------------------------

func TestPostgresStore_Migrate(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{
			execFunc: func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
				if !strings.Contains(sql, "CREATE TABLE") {
					t.Errorf("Migrate SQL should contain CREATE TABLE, got: %s", sql)
				}
				return pgconn.CommandTag{}, nil
			},
		}
		store := NewPostgresStore(db)
		if err := store.Migrate(context.Background()); err != nil {
			t.Fatalf("Migrate() unexpected error: %v", err)
		}
	})

	t.Run("error", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{
			execFunc: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
				return pgconn.CommandTag{}, errors.New("connection refused")
			},
		}
		store := NewPostgresStore(db)
		err := store.Migrate(context.Background())
		if err == nil {
			t.Fatal("Migrate() expected error, got nil")
		}
		if !strings.Contains(err.Error(), "question: migrate:") {
			t.Errorf("error = %q, want prefix 'question: migrate:'", err.Error())
		}
	})
}

func TestPostgresStore_Flow(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		t.Parallel()

		db := &mockDB{
			queryRowFunc: func(_ context.Context, sql string, args ...any) pgx.Row {
				if args[0] != "car-quote" {
					t.Errorf("flow id arg = %v, want car-quote", args[0])
				}
				return &mockRow{scanFunc: func(dest ...any) error {
					*(dest[0].(*string)) = "Car insurance quote"
					return nil
				}}
			},
			queryFunc: func(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
				if !strings.Contains(sql, "ORDER BY position") {
					t.Errorf("questions query should order by position, got: %s", sql)
				}
				return &mockRows{data: [][]any{
					{
						"fuel", "Fuel?", []byte(`["Fuel?","Petrol or diesel?"]`),
						"select", "", false, "",
						[]byte(`[{"label":"Petrol","value":"petrol","aliases":["benzine"]}]`),
					},
					{
						"dob", "Date of birth?", []byte(`[]`),
						"date", "full", false, "",
						[]byte(`[]`),
					},
				}}, nil
			},
		}

		store := NewPostgresStore(db)
		f, err := store.Flow(context.Background(), "car-quote")
		if err != nil {
			t.Fatalf("Flow() unexpected error: %v", err)
		}
		if f.Name != "Car insurance quote" {
			t.Errorf("Name = %q, want 'Car insurance quote'", f.Name)
		}
		if len(f.Questions) != 2 {
			t.Fatalf("len(Questions) = %d, want 2", len(f.Questions))
		}
		fuel := f.Questions[0]
		if fuel.InputType != types.InputSelect {
			t.Errorf("fuel input type = %q, want select", fuel.InputType)
		}
		if len(fuel.Variants) != 2 {
			t.Errorf("fuel variants = %v, want 2 entries", fuel.Variants)
		}
		if len(fuel.Options) != 1 || fuel.Options[0].Aliases[0] != "benzine" {
			t.Errorf("fuel options = %+v, want petrol with alias benzine", fuel.Options)
		}
		if got := f.Questions[1].DateComponent; string(got) != "full" {
			t.Errorf("dob date component = %q, want full", got)
		}
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		store := NewPostgresStore(&mockDB{})
		_, err := store.Flow(context.Background(), "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Flow(missing) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("query error", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{
			queryRowFunc: func(_ context.Context, _ string, _ ...any) pgx.Row {
				return &mockRow{scanFunc: func(dest ...any) error {
					*(dest[0].(*string)) = "Flow"
					return nil
				}}
			},
			queryFunc: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
				return nil, errors.New("connection reset")
			},
		}
		store := NewPostgresStore(db)
		_, err := store.Flow(context.Background(), "car-quote")
		if err == nil {
			t.Fatal("Flow() expected error, got nil")
		}
		if !strings.Contains(err.Error(), "question: get flow") {
			t.Errorf("error = %q, want prefix 'question: get flow'", err.Error())
		}
	})
}

func TestPostgresStore_OptionsFor(t *testing.T) {
	t.Parallel()

	t.Run("bound parent value", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{
			queryRowFunc: func(_ context.Context, sql string, args ...any) pgx.Row {
				if !strings.Contains(sql, "question_options") {
					t.Errorf("first query should hit question_options, got: %s", sql)
				}
				if args[0] != "model" || args[1] != "petrol" {
					t.Errorf("args = %v, want [model petrol]", args)
				}
				return &mockRow{scanFunc: func(dest ...any) error {
					*(dest[0].(*[]byte)) = []byte(`[{"label":"Corolla","value":"corolla"}]`)
					return nil
				}}
			},
		}
		store := NewPostgresStore(db)
		opts, err := store.OptionsFor(context.Background(), "model", "petrol")
		if err != nil {
			t.Fatalf("OptionsFor() unexpected error: %v", err)
		}
		if len(opts) != 1 || opts[0].Value != "corolla" {
			t.Errorf("OptionsFor() = %+v, want corolla", opts)
		}
	})

	t.Run("falls back to base options", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{
			queryRowFunc: func(_ context.Context, sql string, _ ...any) pgx.Row {
				if strings.Contains(sql, "question_options") {
					return &mockRow{scanFunc: func(_ ...any) error { return pgx.ErrNoRows }}
				}
				return &mockRow{scanFunc: func(dest ...any) error {
					*(dest[0].(*[]byte)) = []byte(`[{"label":"Other","value":"other"}]`)
					return nil
				}}
			},
		}
		store := NewPostgresStore(db)
		opts, err := store.OptionsFor(context.Background(), "model", "hydrogen")
		if err != nil {
			t.Fatalf("OptionsFor() unexpected error: %v", err)
		}
		if len(opts) != 1 || opts[0].Value != "other" {
			t.Errorf("OptionsFor() = %+v, want base options", opts)
		}
	})

	t.Run("unknown question", func(t *testing.T) {
		t.Parallel()
		store := NewPostgresStore(&mockDB{})
		_, err := store.OptionsFor(context.Background(), "ghost", "petrol")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("OptionsFor(ghost) error = %v, want ErrNotFound", err)
		}
	})
}

func TestPostgresStore_SaveFlow(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		var execSQL []string
		db := &mockDB{
			execFunc: func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
				execSQL = append(execSQL, sql)
				return pgconn.CommandTag{}, nil
			},
		}
		store := NewPostgresStore(db)
		if err := store.SaveFlow(context.Background(), testFlow()); err != nil {
			t.Fatalf("SaveFlow() unexpected error: %v", err)
		}

		joined := strings.Join(execSQL, "\n")
		for _, want := range []string{
			"INSERT INTO flows",
			"DELETE FROM questions",
			"INSERT INTO questions",
			"INSERT INTO question_options",
		} {
			if !strings.Contains(joined, want) {
				t.Errorf("SaveFlow() statements missing %q:\n%s", want, joined)
			}
		}
	})

	t.Run("validation error", func(t *testing.T) {
		t.Parallel()
		store := NewPostgresStore(&mockDB{})
		err := store.SaveFlow(context.Background(), &Flow{})
		if err == nil {
			t.Fatal("SaveFlow() expected validation error, got nil")
		}
		if !strings.Contains(err.Error(), "invalid flow") {
			t.Errorf("error = %q, want validation failure", err.Error())
		}
	})

	t.Run("db error", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{
			execFunc: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
				return pgconn.CommandTag{}, errors.New("disk full")
			},
		}
		store := NewPostgresStore(db)
		err := store.SaveFlow(context.Background(), testFlow())
		if err == nil {
			t.Fatal("SaveFlow() expected error, got nil")
		}
		if !strings.Contains(err.Error(), "question: save flow") {
			t.Errorf("error = %q, want prefix 'question: save flow'", err.Error())
		}
	})
}
