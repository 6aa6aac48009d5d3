package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// serveI18N runs one request through I18N and reports what the handler saw.
func serveI18N(t *testing.T, defaultLocale string, lookup CountryLookup, headers map[string]string) (locale, country, contentLanguage string) {
	t.Helper()
	h := I18N(defaultLocale, lookup)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale = LocaleFromContext(r.Context())
		country = CountryFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/v1/campaigns/1/summary", nil)
	req.RemoteAddr = "203.0.113.4:443"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return locale, country, rr.Header().Get("Content-Language")
}

func TestI18NLocale(t *testing.T) {
	tests := []struct {
		name          string
		defaultLocale string
		headers       map[string]string
		lookup        CountryLookup
		wantLocale    string
		wantCountry   string
	}{
		{
			name:        "explicit locale header wins",
			headers:     map[string]string{"X-Locale": "ID", "Accept-Language": "de-DE", "X-Country-Code": "us"},
			wantLocale:  "id",
			wantCountry: "US",
		},
		{
			name:        "accept-language by quality",
			headers:     map[string]string{"Accept-Language": "en;q=0.5,fr-BE;q=0.9"},
			wantLocale:  "fr",
			wantCountry: "BE",
		},
		{
			name:        "unsupported language falls through to country",
			headers:     map[string]string{"Accept-Language": "ja", "CF-IPCountry": "mx"},
			wantLocale:  "es",
			wantCountry: "MX",
		},
		{
			name:        "geoip country picks locale",
			lookup:      func(ip string) (string, error) { return "at", nil },
			wantLocale:  "de",
			wantCountry: "AT",
		},
		{
			name:          "configured default",
			defaultLocale: "id-ID",
			wantLocale:    "id",
		},
		{
			name:          "unknown default uses english",
			defaultLocale: "xx",
			lookup:        func(string) (string, error) { return "", errors.New("offline") },
			wantLocale:    "en",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			locale, country, contentLanguage := serveI18N(t, tc.defaultLocale, tc.lookup, tc.headers)
			if locale != tc.wantLocale || contentLanguage != tc.wantLocale {
				t.Fatalf("locale = %q (Content-Language %q), want %q", locale, contentLanguage, tc.wantLocale)
			}
			if country != tc.wantCountry {
				t.Fatalf("country = %q, want %q", country, tc.wantCountry)
			}
		})
	}
}

func TestResolveCountryLookupAddress(t *testing.T) {
	var asked string
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:5000"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	got := ResolveCountry(req, func(ip string) (string, error) {
		asked = ip
		return "gb", nil
	})
	if got != "GB" || asked != "203.0.113.9" {
		t.Fatalf("ResolveCountry() = %q via %q", got, asked)
	}
	if ResolveCountry(nil, nil) != "" {
		t.Fatal("nil request should resolve to no country")
	}
}

func TestContextDefaults(t *testing.T) {
	ctx := context.Background()
	if got := LocaleFromContext(ctx); got != "en" {
		t.Fatalf("LocaleFromContext() = %q, want en", got)
	}
	if got := CountryFromContext(ctx); got != "" {
		t.Fatalf("CountryFromContext() = %q, want empty", got)
	}
}
