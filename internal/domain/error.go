package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrLockBusy           = errors.New("resource is locked by another worker")

	// Webhook input errors. Always answered with 400 and never logged.
	ErrMalformedPayload  = errors.New("malformed webhook payload")
	ErrInvalidEvent      = errors.New("invalid webhook event")
	ErrUnauthorizedEvent = errors.New("webhook public key mismatch")

	ErrStoreNotFound      = errors.New("store not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrVaultTokenNotFound = errors.New("vault token not found")

	// ErrAuthorizationFailed is returned when the provider answered but marked the
	// authorization as failed.
	ErrAuthorizationFailed = errors.New("failed to authorize payment")
)

// DefaultClientMessage is shown to customers when the provider gave none.
const DefaultClientMessage = "An error occurred while processing the payment. Please try again later."

// ProviderAPIError is an upstream failure. MerchantMessage goes to the merchant log
// only; ClientMessage is safe to hand to the customer.
type ProviderAPIError struct {
	Code            string
	MerchantMessage string
	ClientMessage   string
	StatusCode      int
	// Transient marks network errors, 5xx and 429 answers.
	Transient bool
}

func (e *ProviderAPIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("provider api error: %s", e.MerchantMessage)
	}
	return fmt.Sprintf("provider api error %s: %s", e.Code, e.MerchantMessage)
}

// CustomerMessage returns the client message or a generic fallback.
func (e *ProviderAPIError) CustomerMessage() string {
	if e.ClientMessage == "" {
		return DefaultClientMessage
	}
	return e.ClientMessage
}

// AuthorizationError blocks checkout. Message is customer-facing.
type AuthorizationError struct {
	Message string
	Err     error
}

func (e *AuthorizationError) Error() string { return e.Message }

func (e *AuthorizationError) Unwrap() error { return e.Err }
