package domain

import "errors"

// Kind classifies domain errors so transports can map them to responses
type Kind int

const (
	KindValidation Kind = iota + 1
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindStateConflict
	KindRemoteUnavailable
	KindPaymentDeclined
)

// String returns the kind name used in logs
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindStateConflict:
		return "state_conflict"
	case KindRemoteUnavailable:
		return "remote_unavailable"
	case KindPaymentDeclined:
		return "payment_declined"
	default:
		return "unknown"
	}
}

// Error is a classified marketplace error
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors by code so that wrapped copies compare equal to the sentinels
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new domain error
func NewError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Validation errors
var (
	ErrInvalidAmount  = NewError(KindValidation, "INVALID_AMOUNT", "bid amount must be a positive whole number")
	ErrBudgetExceeded = NewError(KindValidation, "BUDGET_EXCEEDED", "bid amount exceeds the job budget")
	ErrInvalidInput   = NewError(KindValidation, "INVALID_INPUT", "invalid input provided")
)

// Authorization errors
var (
	ErrNotAuthenticated   = NewError(KindUnauthenticated, "NOT_AUTHENTICATED", "you must be signed in")
	ErrInvalidCredentials = NewError(KindUnauthenticated, "INVALID_CREDENTIALS", "invalid email or password")
	ErrNotBidOwner        = NewError(KindForbidden, "NOT_BID_OWNER", "only the worker who placed the bid can change it")
	ErrNotJobOwner        = NewError(KindForbidden, "NOT_JOB_OWNER", "only the client who posted the job can do this")
	ErrNotContractParty   = NewError(KindForbidden, "NOT_CONTRACT_PARTY", "you are not a party to this contract")
	ErrOwnJob             = NewError(KindForbidden, "OWN_JOB", "you cannot bid on your own job")
)

// State conflict errors
var (
	ErrDuplicateBid          = NewError(KindStateConflict, "DUPLICATE_BID", "you have already placed a bid on this job")
	ErrJobAlreadyAssigned    = NewError(KindStateConflict, "JOB_ALREADY_ASSIGNED", "a worker has already been hired for this job")
	ErrJobNotOpen            = NewError(KindStateConflict, "JOB_NOT_OPEN", "this job is no longer accepting bids")
	ErrContractAlreadyFunded = NewError(KindStateConflict, "CONTRACT_ALREADY_FUNDED", "the contract has already been funded")
	ErrPaymentOrderMismatch  = NewError(KindStateConflict, "PAYMENT_ORDER_MISMATCH", "payment does not belong to the contract's current order")
	ErrEmailTaken            = NewError(KindStateConflict, "EMAIL_TAKEN", "an account with this email already exists")
)

// Not found errors
var (
	ErrJobNotFound      = NewError(KindNotFound, "JOB_NOT_FOUND", "job not found")
	ErrBidNotFound      = NewError(KindNotFound, "BID_NOT_FOUND", "bid not found")
	ErrContractNotFound = NewError(KindNotFound, "CONTRACT_NOT_FOUND", "contract not found")
	ErrUserNotFound     = NewError(KindNotFound, "USER_NOT_FOUND", "user not found")
)

// Remote and payment errors
var (
	ErrRemoteUnavailable = NewError(KindRemoteUnavailable, "REMOTE_UNAVAILABLE", "backend is unavailable, please retry")
	ErrPaymentDeclined   = NewError(KindPaymentDeclined, "PAYMENT_DECLINED", "payment was not completed")
)

// Unavailable wraps a backend failure as a RemoteUnavailable error
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{
		Kind:    KindRemoteUnavailable,
		Code:    ErrRemoteUnavailable.Code,
		Message: ErrRemoteUnavailable.Message,
		Err:     err,
	}
}

// PaymentDeclined wraps a gateway failure reason
func PaymentDeclined(reason string) error {
	msg := ErrPaymentDeclined.Message
	if reason != "" {
		msg += ": " + reason
	}
	return &Error{Kind: KindPaymentDeclined, Code: ErrPaymentDeclined.Code, Message: msg}
}

// KindOf returns the kind of a domain error, or zero for unclassified errors
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}
