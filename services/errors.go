package services

import "fmt"

// Error kinds returned on the wire. Terminal kinds are never retried
// internally; retrying them cannot change the outcome.
const (
	KindCheckInDisabled       = "checkin_disabled"
	KindVerificationRequired  = "verification_required"
	KindVerificationInvalid   = "verification_code_invalid"
	KindAlreadyCheckedIn      = "already_checked_in"
	KindCodeNotFound          = "code_not_found"
	KindCodeDisabled          = "code_disabled"
	KindCodeExpired           = "code_expired"
	KindCodeExhausted         = "code_exhausted"
	KindPerUserLimitExceeded  = "per_user_limit_exceeded"
	KindConcurrencyConflict   = "concurrency_conflict"
	KindStoreUnavailable      = "store_unavailable"
)

// ServiceError is a classified failure of a service operation.
type ServiceError struct {
	Kind    string
	Message string
	cause   error
}

func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.cause }

// Is lets errors.Is match any ServiceError of the same kind, so sentinels
// below work as comparison targets.
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	return ok && t.Kind == e.Kind
}

// Sentinel errors for each terminal kind.
var (
	ErrCheckInDisabled      = &ServiceError{Kind: KindCheckInDisabled, Message: "check-in is not enabled"}
	ErrVerificationRequired = &ServiceError{Kind: KindVerificationRequired, Message: "verification code required"}
	ErrVerificationInvalid  = &ServiceError{Kind: KindVerificationInvalid, Message: "verification code incorrect"}
	ErrAlreadyCheckedIn     = &ServiceError{Kind: KindAlreadyCheckedIn, Message: "already checked in today"}
	ErrCodeNotFound         = &ServiceError{Kind: KindCodeNotFound, Message: "redemption code not found"}
	ErrCodeDisabled         = &ServiceError{Kind: KindCodeDisabled, Message: "redemption code is disabled"}
	ErrCodeExpired          = &ServiceError{Kind: KindCodeExpired, Message: "redemption code has expired"}
	ErrCodeExhausted        = &ServiceError{Kind: KindCodeExhausted, Message: "redemption code has no remaining uses"}
	ErrPerUserLimit         = &ServiceError{Kind: KindPerUserLimitExceeded, Message: "per-user redemption limit reached"}
	ErrConcurrencyConflict  = &ServiceError{Kind: KindConcurrencyConflict, Message: "transient store conflict, retry"}
)

// storeUnavailable wraps a database failure that the caller may retry.
func storeUnavailable(err error) *ServiceError {
	return &ServiceError{Kind: KindStoreUnavailable, Message: "store unavailable", cause: err}
}
