// Package store persists per-device enrollment records.
//
// A record exists exactly while the device is enrolled from the client's
// point of view. The store and the server may diverge (the server can drop a
// device behind the client's back); callers tolerate that rather than
// reconcile it.
package store

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates no record exists for the requested device.
	ErrNotFound = errors.New("enrollment not found")

	// ErrAmbiguous indicates auto-selection found more than one enrollment.
	ErrAmbiguous = errors.New("multiple enrollments present, device id required")
)

// EnrollmentRecord is the persisted state of one enrolled device.
type EnrollmentRecord struct {
	// DeviceID is the client-chosen identifier, stable for the device's lifetime.
	DeviceID string `json:"device_id"`
	// EnrollmentID is the server-assigned identifier returned at enroll time.
	EnrollmentID string `json:"enrollment_id"`
	// DeviceToken authorizes later update/delete calls. Never log it in full.
	DeviceToken string `json:"device_token"`
	// Domain is the tenant domain captured at enroll time, used as the
	// default for later operations.
	Domain string `json:"domain"`
	// EnrolledAt is when the enrollment succeeded.
	EnrolledAt time.Time `json:"enrolled_at"`
	// UserID is the Auth0 user the device belongs to.
	UserID string `json:"user_id"`
	// Issuer is the tenant issuer string, used for OTP URIs.
	Issuer string `json:"issuer"`
	// TOTPSecret is optional fallback OTP material; may be empty.
	TOTPSecret string `json:"totp_secret,omitempty"`
}

// Store is the persisted keyed record of per-device enrollment state.
// Put and Delete must be atomic enough that a crash mid-write cannot leave
// a corrupt or partially-written record behind.
type Store interface {
	// Get returns the record for a device, or ErrNotFound.
	Get(deviceID string) (*EnrollmentRecord, error)

	// Put creates or overwrites the record keyed by its DeviceID.
	Put(record *EnrollmentRecord) error

	// Delete removes the record for a device. Deleting an absent record is
	// a no-op; deletion is always idempotent at the store level.
	Delete(deviceID string) error

	// List returns all records, ordered by device id.
	List() ([]*EnrollmentRecord, error)

	// SelectSingle returns the only record in the store. It returns
	// ErrNotFound when the store is empty and ErrAmbiguous when more than
	// one enrollment exists; ambiguity is a caller error, never resolved
	// by guessing.
	SelectSingle() (*EnrollmentRecord, error)
}
