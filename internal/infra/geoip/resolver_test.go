package geoip

import (
	"errors"
	"net"
	"testing"
)

func TestNilResolver(t *testing.T) {
	r, err := NewResolver("  ")
	if err != nil || r != nil {
		t.Fatalf("NewResolver(empty) = %v, %v", r, err)
	}
	if _, err := r.CountryCode("203.0.113.9"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("CountryCode on nil resolver = %v", err)
	}
	if r.Lookup() != nil {
		t.Fatal("nil resolver should yield a nil lookup")
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNewResolverMissingFile(t *testing.T) {
	if _, err := NewResolver(t.TempDir() + "/missing.mmdb"); err == nil {
		t.Fatal("expected error for missing database")
	}
}

func TestCountryCodeCachesPublicLookups(t *testing.T) {
	calls := 0
	r := newResolver(func(ip net.IP) (string, error) {
		calls++
		if ip.String() == "198.51.100.66" {
			return "", errors.New("corrupt record")
		}
		return "ID", nil
	}, nil)

	tests := []struct {
		ip      string
		want    string
		wantErr bool
	}{
		{ip: "203.0.113.9", want: "ID"},
		{ip: " 203.0.113.9 ", want: "ID"},
		{ip: "::ffff:203.0.113.9", want: "ID"},
		{ip: "10.1.2.3", want: ""},
		{ip: "127.0.0.1", want: ""},
		{ip: "fe80::1", want: ""},
		{ip: "not-an-ip", wantErr: true},
		{ip: "198.51.100.66", wantErr: true},
	}
	for _, tc := range tests {
		got, err := r.CountryCode(tc.ip)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Fatalf("CountryCode(%q) = %q, %v", tc.ip, got, err)
		}
	}
	// one lookup for 203.0.113.9 and one for the failing address
	if calls != 2 {
		t.Fatalf("database lookups = %d, want 2", calls)
	}
}
