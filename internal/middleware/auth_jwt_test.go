package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fundledger/internal/domain"
)

const (
	testSecret = "test-secret"
	testIssuer = "fundledger-test"
	testCaller = domain.Address("0xabcdef0123456789abcdef0123456789abcdef01")
)

func TestSignAndVerifyToken(t *testing.T) {
	token, err := SignToken(testSecret, testIssuer, testCaller, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	got, err := VerifyToken(testSecret, testIssuer, token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if got != testCaller {
		t.Fatalf("caller = %q, want %q", got, testCaller)
	}
}

func TestVerifyTokenRejects(t *testing.T) {
	valid, _ := SignToken(testSecret, testIssuer, testCaller, time.Hour, time.Now())
	expired, _ := SignToken(testSecret, testIssuer, testCaller, time.Minute, time.Now().Add(-time.Hour))
	noSubject, _ := SignToken(testSecret, testIssuer, "", time.Hour, time.Now())
	badSubject, _ := SignToken(testSecret, testIssuer, "alice", time.Hour, time.Now())

	tests := []struct {
		name   string
		secret string
		issuer string
		token  string
	}{
		{name: "wrong secret", secret: "other", issuer: testIssuer, token: valid},
		{name: "wrong issuer", secret: testSecret, issuer: "someone-else", token: valid},
		{name: "expired", secret: testSecret, issuer: testIssuer, token: expired},
		{name: "no subject", secret: testSecret, issuer: testIssuer, token: noSubject},
		{name: "subject not an address", secret: testSecret, issuer: testIssuer, token: badSubject},
		{name: "garbage", secret: testSecret, issuer: testIssuer, token: "a.b.c"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := VerifyToken(tc.secret, tc.issuer, tc.token); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestAuthJWT(t *testing.T) {
	token, _ := SignToken(testSecret, testIssuer, testCaller, time.Hour, time.Now())

	var seen domain.Address
	h := AuthJWT(testSecret, testIssuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = CallerFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + token, want: http.StatusUnauthorized},
		{name: "invalid", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "valid", header: "Bearer " + token, want: http.StatusNoContent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("status = %d, want %d", rr.Code, tc.want)
			}
			if tc.want != http.StatusNoContent {
				var body struct {
					Error struct {
						Code string `json:"code"`
					} `json:"error"`
				}
				if err := json.NewDecoder(rr.Body).Decode(&body); err != nil || body.Error.Code != "unauthenticated" {
					t.Fatalf("error body = %+v, err %v", body, err)
				}
				return
			}
			if seen != testCaller {
				t.Fatalf("caller = %q", seen)
			}
		})
	}
}
