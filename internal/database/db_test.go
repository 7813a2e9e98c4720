package database

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
)

func TestExtractDBNameFromPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "plain path", path: "data/fridge.db", want: "data/fridge.db"},
		{name: "file prefix", path: "file:data/fridge.db", want: "data/fridge.db"},
		{name: "query params", path: "file:fridge.db?cache=shared", want: "fridge.db"},
		{name: "escaped", path: "my%20fridge.db", want: "my fridge.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ExtractDBNameFromPath(tt.path); got != tt.want {
				t.Errorf("ExtractDBNameFromPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestBuildDSN(t *testing.T) {
	t.Parallel()

	dsn := buildDSN("fridge.db")
	if !strings.HasPrefix(dsn, "fridge.db?_pragma=") {
		t.Errorf("buildDSN() = %q, want pragmas appended with ?", dsn)
	}
	if !strings.Contains(dsn, "foreign_keys%281%29") {
		t.Errorf("buildDSN() = %q, want foreign keys enabled", dsn)
	}

	withQuery := buildDSN("file:fridge.db?cache=shared")
	if !strings.HasPrefix(withQuery, "file:fridge.db?cache=shared&_pragma=") {
		t.Errorf("buildDSN() = %q, want pragmas appended with &", withQuery)
	}
}

func TestApplyMigrations_Version(t *testing.T) {
	t.Parallel()

	db, err := NewDB(filepath.Join(t.TempDir(), "fridge.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	defer CloseDB(db)

	version, err := ApplyMigrations(db.DB, "fridge.db")
	if err != nil {
		t.Fatalf("ApplyMigrations() error = %v", err)
	}
	if version != 2 {
		t.Errorf("ApplyMigrations() version = %d, want 2", version)
	}
}

func TestClassifyError_PassesThroughOtherErrors(t *testing.T) {
	t.Parallel()

	plain := errors.New("boom")
	if got := classifyError(plain); got != plain {
		t.Errorf("classifyError() = %v, want the error unchanged", got)
	}
	wrapped := fmt.Errorf("outer: %w", ErrNotFound)
	if got := classifyError(wrapped); !errors.Is(got, ErrNotFound) {
		t.Errorf("classifyError() = %v, want ErrNotFound kept", got)
	}
}

func TestClassifyError_Constraints(t *testing.T) {
	t.Parallel()

	db, err := NewDB(filepath.Join(t.TempDir(), "fridge.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	defer CloseDB(db)

	if _, err := db.Exec(`INSERT INTO categories (name) VALUES ('dairy')`); err != nil {
		t.Fatalf("seed error = %v", err)
	}

	tests := []struct {
		name  string
		query string
		want  error
	}{
		{name: "foreign key", query: `INSERT INTO user_products (user_id, product_id) VALUES (999, 999)`, want: ErrNotFound},
		{name: "unique", query: `INSERT INTO categories (name) VALUES ('dairy')`, want: ErrConflict},
		{name: "check", query: `INSERT INTO categories (name, shelf_life_days) VALUES ('fish', -1)`, want: ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.Exec(tt.query)
			if err == nil {
				t.Fatalf("Exec(%q) succeeded, want constraint violation", tt.query)
			}
			if got := classifyError(err); !errors.Is(got, tt.want) {
				t.Errorf("classifyError(%v) = %v, want %v", err, got, tt.want)
			}
		})
	}
}
