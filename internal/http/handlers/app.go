package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"fundledger/internal/domain"
	"fundledger/internal/ledger"
	"fundledger/internal/middleware"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

type App struct {
	Ledger *ledger.Ledger
	Logger zerolog.Logger
	// Ready reports store health for the health endpoint. Nil means always ready.
	Ready func(ctx context.Context) error
}

func NewApp(l *ledger.Ledger, logger zerolog.Logger) *App {
	return &App{Ledger: l, Logger: logger}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// fail renders a ledger error. Domain failures keep their verbatim message;
// anything else is logged and reported as internal.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind, ok := domain.KindOf(err)
	if !ok {
		log := middleware.LoggerFromContext(r.Context(), a.Logger)
		log.Error().Err(err).Msg("ledger operation failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	a.error(w, statusForKind(kind), string(kind), err.Error())
}

func statusForKind(kind domain.Kind) int {
	switch kind {
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidState:
		return http.StatusConflict
	case domain.KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return false
	}
	return true
}

// caller returns the authenticated address. Routes that mutate state sit
// behind AuthJWT, so a missing caller is a wiring error.
func (a *App) caller(w http.ResponseWriter, r *http.Request) (domain.Address, bool) {
	c, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthenticated", "missing caller")
		return "", false
	}
	return c, true
}

func (a *App) campaignID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid campaign id")
		return 0, false
	}
	return id, true
}

// parseRequestAmount accepts a JSON string or number. Negative values map to
// zero so the ledger reports its own positivity error.
func parseRequestAmount(raw json.RawMessage) (domain.Amount, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return domain.Amount{}, nil
	}
	amount, err := domain.ParseAmount(s)
	if errors.Is(err, domain.ErrNegativeAmount) {
		return domain.Amount{}, nil
	}
	return amount, err
}

// parseRequestAddress canonicalizes an address. Any all-zero hex form such as
// "0x0" is the null identity.
func parseRequestAddress(raw string) (domain.Address, error) {
	s := strings.TrimSpace(raw)
	if len(s) > 2 && strings.EqualFold(s[:2], "0x") && strings.Trim(s[2:], "0") == "" {
		return domain.ZeroAddress, nil
	}
	return domain.ParseAddress(s)
}
