package migrate

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func TestUpSection(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "no markers", content: "CREATE TABLE a (id INT);", want: "CREATE TABLE a (id INT);"},
		{name: "up only", content: "-- +migrate Up\nCREATE TABLE a (id INT);\n", want: "CREATE TABLE a (id INT);"},
		{name: "up and down", content: "-- +migrate Up\nCREATE TABLE a (id INT);\n-- +migrate Down\nDROP TABLE a;\n", want: "CREATE TABLE a (id INT);"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := strings.TrimSpace(UpSection(tc.content)); got != tc.want {
				t.Fatalf("UpSection = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestApplyRunsEachFileOnce(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "m.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	files := fstest.MapFS{
		"002_rows.sql":  {Data: []byte("-- +migrate Up\nINSERT INTO items (id) VALUES (1);\n-- +migrate Down\nDELETE FROM items;\n")},
		"001_table.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE items (id INTEGER PRIMARY KEY);\n")},
		"README.md":     {Data: []byte("ignored")},
	}
	for range 2 {
		if err := Apply(ctx, db, files, ".", SQLite); err != nil {
			t.Fatalf("Apply: %v", err)
		}
	}

	var rows, applied int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM items").Scan(&rows); err != nil {
		t.Fatal(err)
	}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+migrationTable).Scan(&applied); err != nil {
		t.Fatal(err)
	}
	if rows != 1 || applied != 2 {
		t.Fatalf("rows=%d applied=%d", rows, applied)
	}
}

func TestApplyRollsBackFailedFile(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "m.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	files := fstest.MapFS{
		"001_bad.sql": {Data: []byte("CREATE TABLE ok (id INTEGER);\nINSERT INTO missing VALUES (1);\n")},
	}
	if err := Apply(ctx, db, files, ".", SQLite); err == nil {
		t.Fatal("expected failure")
	}
	var applied int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+migrationTable).Scan(&applied); err != nil {
		t.Fatal(err)
	}
	if applied != 0 {
		t.Fatalf("failed migration recorded as applied")
	}
}

func TestApplyRequiresDB(t *testing.T) {
	if err := Apply(context.Background(), nil, fstest.MapFS{}, ".", SQLite); err == nil {
		t.Fatal("expected error")
	}
}
