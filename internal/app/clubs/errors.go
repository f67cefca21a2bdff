package clubs

import "net/http"

// Code is the closed set of engine failure kinds.
type Code string

const (
	CodeInsufficientFunds  Code = "INSUFFICIENT_FUNDS"
	CodeClubDoesNotExist   Code = "CLUB_DOES_NOT_EXIST"
	CodeNotClubOwner       Code = "NOT_CLUB_OWNER"
	CodeYearsExceedMax     Code = "YEARS_EXCEED_MAX"
	CodeYearsZero          Code = "YEARS_ZERO"
	CodeTransferToSelf     Code = "TRANSFER_TO_SELF"
	CodeOverflow           Code = "OVERFLOW"
	CodeNotElevated        Code = "NOT_ELEVATED"
	CodeUnidentifiedCaller Code = "UNIDENTIFIED_CALLER"
	CodeEscrowCannotJoin   Code = "ESCROW_CANNOT_JOIN"
)

// Error is an application-layer error that can be mapped to an HTTP response.
//
// errors.Is matches on Code, so callers compare against the Err* sentinels
// regardless of the details attached at the failure site.
type Error struct {
	Status  int
	Code    Code
	Message string
	Details map[string]any

	// Err is the underlying cause, if any (e.g. the balance error behind
	// InsufficientFunds).
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrInsufficientFunds = &Error{Status: http.StatusPaymentRequired, Code: CodeInsufficientFunds, Message: "creation fee cannot be reserved"}
	ErrClubDoesNotExist  = &Error{Status: http.StatusNotFound, Code: CodeClubDoesNotExist, Message: "club does not exist"}
	ErrNotClubOwner      = &Error{Status: http.StatusForbidden, Code: CodeNotClubOwner, Message: "caller is not the club owner"}
	ErrYearsExceedMax    = &Error{Status: http.StatusUnprocessableEntity, Code: CodeYearsExceedMax, Message: "years exceeds the maximum"}
	ErrYearsZero         = &Error{Status: http.StatusUnprocessableEntity, Code: CodeYearsZero, Message: "years must be at least 1"}
	ErrTransferToSelf    = &Error{Status: http.StatusConflict, Code: CodeTransferToSelf, Message: "new owner is already the owner"}
	ErrOverflow          = &Error{Status: http.StatusUnprocessableEntity, Code: CodeOverflow, Message: "arithmetic overflow"}

	ErrNotElevated        = &Error{Status: http.StatusForbidden, Code: CodeNotElevated, Message: "operation requires a system-level caller"}
	ErrUnidentifiedCaller = &Error{Status: http.StatusUnauthorized, Code: CodeUnidentifiedCaller, Message: "operation requires an identified account"}
	ErrEscrowCannotJoin   = &Error{Status: http.StatusForbidden, Code: CodeEscrowCannotJoin, Message: "the escrow account cannot buy memberships"}
)

// fail copies a sentinel and attaches details and a cause.
func fail(base *Error, details map[string]any, cause error) *Error {
	out := *base
	out.Details = details
	out.Err = cause
	return &out
}
