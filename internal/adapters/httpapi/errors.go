package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/nullable"
	"github.com/rs/zerolog"

	"github.com/Overland-East-Bay/club-membership-engine/internal/app/clubs"
	"github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/balances"
)

type ErrorBody struct {
	Code      string                            `json:"code"`
	Message   string                            `json:"message"`
	Details   nullable.Nullable[map[string]any] `json:"details,omitempty"`
	RequestID nullable.Nullable[string]         `json:"requestId,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string, details map[string]any) {
	var er ErrorResponse
	er.Error.Code = code
	er.Error.Message = message
	if details != nil {
		er.Error.Details = nullable.NewNullableWithValue(details)
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		er.Error.RequestID = nullable.NewNullableWithValue(rid)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(er)
}

// balanceErrors maps ledger failures that reach the host unchanged.
var balanceErrors = []struct {
	err  error
	code string
}{
	{balances.ErrInsufficientBalance, "INSUFFICIENT_BALANCE"},
	{balances.ErrKeepAlive, "KEEP_ALIVE"},
	{balances.ErrExistentialDeposit, "EXISTENTIAL_DEPOSIT"},
	{balances.ErrBalanceOverflow, "BALANCE_OVERFLOW"},
}

// writeFailure renders an error returned by the clubs service.
func writeFailure(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error) {
	if ae := (*clubs.Error)(nil); errors.As(err, &ae) {
		writeError(w, r, ae.Status, string(ae.Code), ae.Message, ae.Details)
		return
	}
	for _, be := range balanceErrors {
		if errors.Is(err, be.err) {
			writeError(w, r, http.StatusUnprocessableEntity, be.code, be.err.Error(), nil)
			return
		}
	}
	log.Error().
		Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("request_id", middleware.GetReqID(r.Context())).
		Msg("request failed")
	writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
