package infra

import (
	"testing"
	"time"
)

func TestPoolConfig(t *testing.T) {
	if _, err := poolConfig(nil); err == nil {
		t.Fatal("nil config should fail")
	}
	if _, err := poolConfig(&Config{DatabaseURL: "postgres://%zz"}); err == nil {
		t.Fatal("malformed url should fail")
	}

	pc, err := poolConfig(&Config{DatabaseURL: "postgres://ledger:pw@localhost:5432/ledger", DBMaxConns: 3})
	if err != nil {
		t.Fatalf("poolConfig: %v", err)
	}
	if pc.MaxConns != 3 || pc.MinConns != 1 {
		t.Fatalf("conns = %d/%d", pc.MinConns, pc.MaxConns)
	}
	if pc.MaxConnLifetime != time.Hour {
		t.Fatalf("lifetime = %s", pc.MaxConnLifetime)
	}
	if got := pc.ConnConfig.RuntimeParams["application_name"]; got != "fundledger" {
		t.Fatalf("application_name = %q", got)
	}
}
