package domain

import "errors"

// Error taxonomy for the reconciliation path. Callback endpoints map these to
// HTTP status codes: signature and resolution failures are terminal rejects
// (redelivery cannot fix them), persistence failures are retryable and must
// surface as 5xx so the provider redelivers.
var (
	ErrSignatureInvalid  = errors.New("signature invalid")
	ErrReferenceNotFound = errors.New("provider reference not mapped")
	ErrOrderNotFound     = errors.New("order not found")
	ErrStaleTransition   = errors.New("stale transition")
	ErrPersistence       = errors.New("persistence failure")
)
