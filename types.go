// Package guardian defines types for the Guardian MFA client SDK
package guardian

import (
	"fmt"

	"github.com/abbaspour/guardian-go/pkg/jwk"
)

// ClientError represents a terminal error from a Guardian operation.
// No operation retries internally; every error surfaces as one of these.
type ClientError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *ClientError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes, one per failure class
const (
	ErrCodeAuthenticationError  = "AUTHENTICATION_ERROR"   // 401: invalid/expired ticket, transaction token, or device token
	ErrCodeConflictError        = "CONFLICT_ERROR"         // 409: device already enrolled
	ErrCodeValidationError      = "VALIDATION_ERROR"       // 400: malformed request or claims
	ErrCodeNotFoundError        = "NOT_FOUND_ERROR"        // 404 where it is an error (not unenroll)
	ErrCodeKeyFormatError       = "KEY_FORMAT_ERROR"       // unparseable RSA key material
	ErrCodeStoreError           = "STORE_ERROR"            // missing or unreadable enrollment record
	ErrCodeAmbiguousDeviceError = "AMBIGUOUS_DEVICE_ERROR" // auto-selection found more than one enrollment
	ErrCodeHTTPError            = "HTTP_ERROR"             // transport failure or unexpected status
)

// NewClientError creates a new client error
func NewClientError(code, message string) *ClientError {
	return &ClientError{
		Code:    code,
		Message: message,
	}
}

// NewClientErrorWithDetails creates a new client error with details
func NewClientErrorWithDetails(code, message, details string) *ClientError {
	return &ClientError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// IsClientError checks if an error is a ClientError
func IsClientError(err error) bool {
	_, ok := err.(*ClientError)
	return ok
}

// GetClientError returns the ClientError if the error is a ClientError
func GetClientError(err error) *ClientError {
	if clientErr, ok := err.(*ClientError); ok {
		return clientErr
	}
	return nil
}

// EnrollRequest carries everything needed to enroll this device against a
// one-time enrollment ticket.
type EnrollRequest struct {
	Ticket       string // one-time enrollment ticket
	Domain       string // tenant domain; falls back to the client default
	DeviceID     string // client-chosen identifier, stable for the device's lifetime
	Name         string // human-readable device name
	PushToken    string // FCM registration token
	PublicKeyPEM string // PEM-encoded RSA public key enrolled for signing
}

// ResolveRequest carries a push challenge response. DeviceID may be empty
// when exactly one enrollment exists locally; it is then auto-selected.
type ResolveRequest struct {
	Challenge        string // challenge value from the push payload
	Domain           string // tenant domain; defaults from the enrollment record
	DeviceID         string // optional when a single enrollment exists
	TransactionToken string // short-lived token delivered with the push
	PrivateKeyPEM    string // PEM-encoded RSA private key matching the enrolled public key
	Accepted         bool   // approve or reject the transaction
	Reason           string // optional rejection reason; only valid when rejecting
}

// UpdateRequest mutates the remote device registration. PushToken is
// mandatory even when unchanged: the API always expects push_credentials.
type UpdateRequest struct {
	DeviceID   string // optional when a single enrollment exists
	Name       string // new device name; omitted from the request when empty
	Identifier string // new device identifier; omitted from the request when empty
	PushToken  string // current FCM registration token (required)
}

// ConsentRequest retrieves a rich-consent record bound to a push transaction.
type ConsentRequest struct {
	ConsentID        string // rich-consent record id from the push payload
	Domain           string // tenant domain; defaults from the enrollment record
	DeviceID         string // optional when a single enrollment exists
	TransactionToken string // transaction token the DPoP proof is bound to
	PrivateKeyPEM    string // PEM-encoded RSA private key for proof signing
}

// DeviceInfo is the device registration as returned by the server.
type DeviceInfo struct {
	ID              string           `json:"id"`
	Name            string           `json:"name,omitempty"`
	Identifier      string           `json:"identifier,omitempty"`
	PushCredentials *PushCredentials `json:"push_credentials,omitempty"`
}

// PushCredentials identifies the push channel for a device.
type PushCredentials struct {
	Service string `json:"service"`
	Token   string `json:"token"`
}

// RichConsent is the consent record presented to the user before resolving
// a transaction that carries one.
type RichConsent struct {
	ID               string               `json:"id"`
	RequestedDetails RichConsentedDetails `json:"requested_details"`
	CreatedAt        int64                `json:"created_at,omitempty"`
	ExpiresAt        int64                `json:"expires_at,omitempty"`
}

// RichConsentedDetails is the payload the user consents to.
type RichConsentedDetails struct {
	Audience       string   `json:"audience,omitempty"`
	Scope          []string `json:"scope,omitempty"`
	BindingMessage string   `json:"binding_message,omitempty"`
}

// enrollmentRequestBody is the wire form of an enrollment request.
type enrollmentRequestBody struct {
	Identifier      string          `json:"identifier"`
	Name            string          `json:"name"`
	PushCredentials PushCredentials `json:"push_credentials"`
	PublicKey       *jwk.JWK        `json:"public_key"`
}

// enrollmentResponseBody is the wire form of a successful enrollment.
type enrollmentResponseBody struct {
	ID         string `json:"id"`
	Token      string `json:"token"`
	UserID     string `json:"user_id"`
	Issuer     string `json:"issuer"`
	TOTPSecret string `json:"totp_secret"`
}

// resolveRequestBody is the wire form of a transaction resolution.
type resolveRequestBody struct {
	ChallengeResponse string `json:"challenge_response"`
}

// updateRequestBody is the wire form of a partial device update. Optional
// fields are omitted entirely when not supplied.
type updateRequestBody struct {
	Name            string          `json:"name,omitempty"`
	Identifier      string          `json:"identifier,omitempty"`
	PushCredentials PushCredentials `json:"push_credentials"`
}
