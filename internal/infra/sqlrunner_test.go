package infra

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseStatement(t *testing.T) {
	const marker = "0b6f3c1e-8a4d-4f0e-9c7b-2d5a1e3f4b6c"
	tests := []struct {
		name     string
		query    string
		wantBody string
		wantErr  error
	}{
		{name: "tagged", query: "\n  --sql " + marker + "\nSELECT 1\n", wantBody: "SELECT 1"},
		{name: "multi line body", query: "--sql " + marker + "\nSELECT a\nFROM b", wantBody: "SELECT a\nFROM b"},
		{name: "no marker", query: "SELECT 1", wantErr: ErrNoMarker},
		{name: "uppercase uuid", query: "--sql 0B6F3C1E-8A4D-4F0E-9C7B-2D5A1E3F4B6C\nSELECT 1", wantErr: ErrNoMarker},
		{name: "empty", query: "   ", wantErr: errEmptyQuery},
		{name: "marker only", query: "--sql " + marker, wantErr: errEmptyQuery},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st, err := parseStatement(tc.query)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if st.marker != marker || st.body != tc.wantBody {
				t.Fatalf("statement = %+v", st)
			}
		})
	}
}

func TestSQLRunnerRejectsUntaggedQueries(t *testing.T) {
	r := NewSQLRunner(nil, zerolog.Nop())
	ctx := context.Background()

	if _, err := r.Exec(ctx, "DELETE FROM campaigns"); !errors.Is(err, ErrNoMarker) {
		t.Fatalf("Exec err = %v", err)
	}
	if _, err := r.Query(ctx, "SELECT 1"); !errors.Is(err, ErrNoMarker) {
		t.Fatalf("Query err = %v", err)
	}
	var n int
	if err := r.QueryRow(ctx, "SELECT 1").Scan(&n); !errors.Is(err, ErrNoMarker) {
		t.Fatalf("QueryRow err = %v", err)
	}
	if err := r.InTx(ctx, func(SQLExecutor) error { return nil }); !errors.Is(err, ErrNoPool) {
		t.Fatalf("InTx err = %v", err)
	}
}
