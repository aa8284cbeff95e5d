// Package apperr declares the root errors shared by the quorum and
// delegation pipelines. Every error returned across a package boundary wraps
// exactly one of them so handlers can map it to a response without string
// matching.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidAddress = Register(10, "invalid address", http.StatusBadRequest)

	ErrNotOwner = Register(11, "not an owner", http.StatusForbidden)

	ErrAlreadySigned = Register(12, "owner already signed", http.StatusConflict)

	ErrAlreadyExecuted = Register(13, "transaction already executed", http.StatusConflict)

	// ErrHashMismatch is returned when a signature does not recover to the
	// claimed owner over the identity hash, or when a relay response carries
	// a hash that differs from the recomputed one.
	ErrHashMismatch = Register(14, "signature does not match identity hash", http.StatusUnprocessableEntity)

	ErrThresholdNotMet = Register(15, "threshold not met", http.StatusConflict)

	ErrKeyUnwrapFailure = Register(20, "content key unwrap failed", http.StatusUnprocessableEntity)

	ErrPayloadDecryptFailure = Register(21, "payload decryption failed", http.StatusUnprocessableEntity)

	// ErrDuplicateWebhookEvent marks a redelivered event. It is never returned
	// as a failure; callers use it to label idempotent no-ops.
	ErrDuplicateWebhookEvent = Register(22, "duplicate webhook event", http.StatusOK)

	ErrServiceUnavailable = Register(30, "service unavailable", http.StatusServiceUnavailable)

	ErrUnknownTransaction = Register(40, "unknown transaction", http.StatusNotFound)

	ErrInvalidState = Register(41, "invalid state", http.StatusConflict)

	ErrInvalidInput = Register(42, "invalid input", http.StatusBadRequest)

	// ErrLedgerRejected is returned when the ledger refuses an assembled
	// bundle. The transaction is moved to Failed.
	ErrLedgerRejected = Register(43, "ledger rejected transaction", http.StatusUnprocessableEntity)

	// ErrWebhookUnverified is a refusal of unauthenticated input. It answers
	// 401 but counts as ErrServiceUnavailable for errors.Is.
	ErrWebhookUnverified = RegisterUnder(ErrServiceUnavailable, 44, "webhook signature verification failed", http.StatusUnauthorized)
)

// usedCodes keeps error codes unique.
var usedCodes = map[uint32]*Error{}

// Error is a root error. Runtime errors wrap one of the registered
// instances with fmt.Errorf("...: %w", root).
type Error struct {
	code   uint32
	desc   string
	status int
	class  *Error
}

// Register declares a new root error. Reusing a code panics, so call it only
// from package-level variable declarations.
func Register(code uint32, description string, status int) *Error {
	if e, ok := usedCodes[code]; ok {
		panic(fmt.Sprintf("error with code %d is already registered: %q", code, e.desc))
	}
	err := &Error{code: code, desc: description, status: status}
	usedCodes[code] = err
	return err
}

// RegisterUnder declares a root error that also matches class in errors.Is
// while keeping its own code and status.
func RegisterUnder(class *Error, code uint32, description string, status int) *Error {
	err := Register(code, description, status)
	err.class = class
	return err
}

func (e *Error) Error() string {
	return e.desc
}

func (e *Error) Is(target error) bool {
	return e.class != nil && target == e.class
}

// Code returns the stable numeric code.
func (e *Error) Code() uint32 {
	return e.code
}

// New wraps the root error with a description.
func (e *Error) New(description string) error {
	return fmt.Errorf("%s: %w", description, e)
}

// Newf is New with formatting.
func (e *Error) Newf(format string, args ...any) error {
	return e.New(fmt.Sprintf(format, args...))
}

// Root returns the registered root error err wraps, or nil.
func Root(err error) *Error {
	var root *Error
	if errors.As(err, &root) {
		return root
	}
	return nil
}

// HTTPStatus maps err to a response status. Unknown errors are 500.
func HTTPStatus(err error) int {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.HTTPStatus()
	}
	if root := Root(err); root != nil {
		return root.status
	}
	return http.StatusInternalServerError
}

// CodeName returns a short machine-readable name for err, used in JSON
// error bodies.
func CodeName(err error) string {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		if upstream.class != nil {
			return codeNames[upstream.class.code]
		}
		return "upstream_error"
	}
	root := Root(err)
	if root == nil {
		return "internal"
	}
	return codeNames[root.code]
}

var codeNames = map[uint32]string{
	10: "invalid_address",
	11: "not_owner",
	12: "already_signed",
	13: "already_executed",
	14: "hash_mismatch",
	15: "threshold_not_met",
	20: "key_unwrap_failure",
	21: "payload_decrypt_failure",
	22: "duplicate_webhook_event",
	30: "service_unavailable",
	40: "unknown_transaction",
	41: "invalid_state",
	42: "invalid_input",
	43: "ledger_rejected",
	44: "webhook_unverified",
}
