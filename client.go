// Package guardian provides a client SDK for the Auth0 Guardian push MFA
// protocol: device enrollment, push transaction resolution, device update,
// unenrollment, and rich-consent retrieval.
package guardian

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/abbaspour/guardian-go/pkg/endpoint"
	"github.com/abbaspour/guardian-go/pkg/guardianjwt"
	"github.com/abbaspour/guardian-go/pkg/jwk"
	"github.com/abbaspour/guardian-go/pkg/store"
)

// SDK identity sent in the Auth0-Client header unless overridden.
const (
	ClientName    = "guardian-go"
	ClientVersion = "0.1.0"
)

// API path suffixes. All three management suffixes go through the same
// domain-resolution rule; rich consents use their own (see pkg/endpoint).
const (
	enrollPath         = "/api/enroll"
	resolvePath        = "/api/resolve-transaction"
	deviceAccountsPath = "/api/device-accounts/"
)

// pushService is the push_credentials service name Guardian expects.
const pushService = "GCM"

// Config configures a Client. Store is required; everything else has a
// sensible default.
type Config struct {
	// Domain is the default tenant domain for operations that don't carry
	// one and have no enrollment record to default from.
	Domain string

	// Store persists enrollment records across process runs.
	Store store.Store

	// HTTPClient overrides the default 30s-timeout client.
	HTTPClient *http.Client

	// ClientName and ClientVersion override the Auth0-Client header identity.
	ClientName    string
	ClientVersion string

	// Sender overrides the transport entirely (used by tests).
	Sender Sender
}

// Client performs Guardian protocol operations against a tenant.
type Client struct {
	domain     string
	store      store.Store
	sender     Sender
	clientInfo string // precomputed Auth0-Client header value
}

// NewClient creates a Guardian client from the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("enrollment store is required")
	}

	name := cfg.ClientName
	if name == "" {
		name = ClientName
	}
	version := cfg.ClientVersion
	if version == "" {
		version = ClientVersion
	}

	sender := cfg.Sender
	if sender == nil {
		httpClient := cfg.HTTPClient
		if httpClient == nil {
			httpClient = &http.Client{Timeout: 30 * time.Second}
		}
		sender = &httpSender{client: httpClient}
	}

	return &Client{
		domain:     cfg.Domain,
		store:      cfg.Store,
		sender:     sender,
		clientInfo: encodeClientInfo(name, version),
	}, nil
}

// Enroll registers this device against a one-time enrollment ticket and
// persists the resulting enrollment record. The record is created only on a
// 200/201 response; any failure leaves the store untouched.
func (c *Client) Enroll(req EnrollRequest) (*store.EnrollmentRecord, error) {
	if req.Ticket == "" {
		return nil, NewClientError(ErrCodeValidationError, "enrollment ticket is required")
	}
	if req.DeviceID == "" {
		return nil, NewClientError(ErrCodeValidationError, "device id is required")
	}
	if req.PushToken == "" {
		return nil, NewClientError(ErrCodeValidationError, "push token is required")
	}

	domain := req.Domain
	if domain == "" {
		domain = c.domain
	}

	url, err := endpoint.APIURL(domain, enrollPath)
	if err != nil {
		return nil, NewClientErrorWithDetails(ErrCodeValidationError, "invalid tenant domain", err.Error())
	}

	publicKey, err := jwk.FromPublicKeyPEM(req.PublicKeyPEM)
	if err != nil {
		return nil, NewClientErrorWithDetails(ErrCodeKeyFormatError, "invalid RSA public key", err.Error())
	}

	body := enrollmentRequestBody{
		Identifier: req.DeviceID,
		Name:       req.Name,
		PushCredentials: PushCredentials{
			Service: pushService,
			Token:   req.PushToken,
		},
		PublicKey: publicKey,
	}

	auth := fmt.Sprintf("Ticket id=%q", req.Ticket)
	status, respBody, err := c.send("POST", url, auth, body)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK, http.StatusCreated:
		// fall through to record creation
	case http.StatusUnauthorized:
		return nil, httpError(ErrCodeAuthenticationError, "invalid enrollment ticket", status, respBody)
	case http.StatusConflict:
		return nil, httpError(ErrCodeConflictError, "device already enrolled", status, respBody)
	case http.StatusBadRequest:
		return nil, httpError(ErrCodeValidationError, "invalid enrollment request", status, respBody)
	default:
		return nil, httpError(ErrCodeHTTPError, "unexpected enrollment response", status, respBody)
	}

	var resp enrollmentResponseBody
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, NewClientErrorWithDetails(ErrCodeHTTPError, "failed to decode enrollment response", err.Error())
	}

	record := &store.EnrollmentRecord{
		DeviceID:     req.DeviceID,
		EnrollmentID: resp.ID,
		DeviceToken:  resp.Token,
		Domain:       endpoint.Normalize(domain),
		EnrolledAt:   time.Now().UTC(),
		UserID:       resp.UserID,
		Issuer:       resp.Issuer,
		TOTPSecret:   resp.TOTPSecret,
	}
	if err := c.store.Put(record); err != nil {
		return nil, NewClientErrorWithDetails(ErrCodeStoreError, "failed to persist enrollment record", err.Error())
	}

	return record, nil
}

// ResolveTransaction accepts or rejects a push MFA challenge by signing a
// challenge-response token with the caller-supplied private key. Local
// state is never mutated.
func (c *Client) ResolveTransaction(req ResolveRequest) error {
	if req.Challenge == "" {
		return NewClientError(ErrCodeValidationError, "challenge is required")
	}
	if req.TransactionToken == "" {
		return NewClientError(ErrCodeValidationError, "transaction token is required")
	}

	deviceID, domain, err := c.resolveDevice(req.DeviceID, req.Domain)
	if err != nil {
		return err
	}

	url, err := endpoint.APIURL(domain, resolvePath)
	if err != nil {
		return NewClientErrorWithDetails(ErrCodeValidationError, "invalid tenant domain", err.Error())
	}

	key, err := guardianjwt.ParsePrivateKeyPEM(req.PrivateKeyPEM)
	if err != nil {
		return NewClientErrorWithDetails(ErrCodeKeyFormatError, "invalid RSA private key", err.Error())
	}

	signed, err := guardianjwt.SignChallenge(guardianjwt.ChallengeParams{
		Challenge:   req.Challenge,
		AudienceURL: url,
		DeviceID:    deviceID,
		Accepted:    req.Accepted,
		Reason:      req.Reason,
	}, key)
	if err != nil {
		return NewClientErrorWithDetails(ErrCodeValidationError, "failed to build challenge response", err.Error())
	}

	status, respBody, err := c.send("POST", url, "Bearer "+req.TransactionToken, resolveRequestBody{ChallengeResponse: signed})
	if err != nil {
		return err
	}

	switch status {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusUnauthorized:
		return httpError(ErrCodeAuthenticationError, "invalid transaction token", status, respBody)
	case http.StatusBadRequest:
		return httpError(ErrCodeValidationError, "invalid challenge", status, respBody)
	default:
		return httpError(ErrCodeHTTPError, "unexpected resolve-transaction response", status, respBody)
	}
}

// UpdateDevice patches the remote device registration. Only supplied
// optional fields are sent; push credentials are always included because
// the API requires them on every update.
//
// The local enrollment record is deliberately not rewritten: the server may
// change identifier or name in ways later lookups never depend on, and
// guessing which mutations to mirror would hide a real inconsistency.
func (c *Client) UpdateDevice(req UpdateRequest) (*DeviceInfo, error) {
	if req.PushToken == "" {
		return nil, NewClientError(ErrCodeValidationError, "push token is required")
	}

	record, err := c.requireRecord(req.DeviceID)
	if err != nil {
		return nil, err
	}

	url, err := endpoint.APIURL(record.Domain, deviceAccountsPath+record.EnrollmentID)
	if err != nil {
		return nil, NewClientErrorWithDetails(ErrCodeValidationError, "invalid tenant domain", err.Error())
	}

	body := updateRequestBody{
		Name:       req.Name,
		Identifier: req.Identifier,
		PushCredentials: PushCredentials{
			Service: pushService,
			Token:   req.PushToken,
		},
	}

	status, respBody, err := c.send("PATCH", url, "Bearer "+record.DeviceToken, body)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
		var info DeviceInfo
		if err := json.Unmarshal(respBody, &info); err != nil {
			return nil, NewClientErrorWithDetails(ErrCodeHTTPError, "failed to decode device response", err.Error())
		}
		return &info, nil
	case http.StatusUnauthorized:
		return nil, httpError(ErrCodeAuthenticationError, "invalid device token", status, respBody)
	case http.StatusNotFound:
		return nil, httpError(ErrCodeNotFoundError, "device not found", status, respBody)
	case http.StatusBadRequest:
		return nil, httpError(ErrCodeValidationError, "invalid update request", status, respBody)
	default:
		return nil, httpError(ErrCodeHTTPError, "unexpected update response", status, respBody)
	}
}

// Unenroll deletes the remote device registration and the local record.
//
// Unenroll is idempotent end to end: a 404 from the server means the device
// is already gone and counts as success, and a missing local record means
// there is nothing left to do. Only a 401 keeps the local record, because
// the remote state is then uncertain rather than known-deleted.
func (c *Client) Unenroll(deviceID string) error {
	record, err := c.lookupRecord(deviceID)
	if errors.Is(err, store.ErrNotFound) {
		return nil // already unenrolled from this client's point of view
	}
	if err != nil {
		return err
	}

	url, err := endpoint.APIURL(record.Domain, deviceAccountsPath+record.EnrollmentID)
	if err != nil {
		return NewClientErrorWithDetails(ErrCodeValidationError, "invalid tenant domain", err.Error())
	}

	status, respBody, err := c.send("DELETE", url, "Bearer "+record.DeviceToken, nil)
	if err != nil {
		return err
	}

	switch status {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		if err := c.store.Delete(record.DeviceID); err != nil {
			return NewClientErrorWithDetails(ErrCodeStoreError, "failed to delete enrollment record", err.Error())
		}
		return nil
	case http.StatusUnauthorized:
		// Remote state is uncertain; keep the local record.
		return httpError(ErrCodeAuthenticationError, "invalid device token", status, respBody)
	default:
		return httpError(ErrCodeHTTPError, "unexpected unenroll response", status, respBody)
	}
}

// FetchRichConsent retrieves a rich-consent record under the MFA-DPoP
// authorization scheme. The DPoP proof binds the request to the device key
// pair and to the transaction token.
func (c *Client) FetchRichConsent(req ConsentRequest) (*RichConsent, error) {
	if req.ConsentID == "" {
		return nil, NewClientError(ErrCodeValidationError, "consent id is required")
	}
	if req.TransactionToken == "" {
		return nil, NewClientError(ErrCodeValidationError, "transaction token is required")
	}

	_, domain, err := c.resolveDevice(req.DeviceID, req.Domain)
	if err != nil {
		return nil, err
	}

	url, err := endpoint.ConsentURL(domain, req.ConsentID)
	if err != nil {
		return nil, NewClientErrorWithDetails(ErrCodeValidationError, "invalid tenant domain", err.Error())
	}

	key, err := guardianjwt.ParsePrivateKeyPEM(req.PrivateKeyPEM)
	if err != nil {
		return nil, NewClientErrorWithDetails(ErrCodeKeyFormatError, "invalid RSA private key", err.Error())
	}

	proof, err := guardianjwt.SignProof(guardianjwt.ProofParams{
		URL:         url,
		Method:      "GET",
		AccessToken: req.TransactionToken,
		Key:         jwk.FromPublicKey(&key.PublicKey),
	}, key)
	if err != nil {
		return nil, NewClientErrorWithDetails(ErrCodeValidationError, "failed to build DPoP proof", err.Error())
	}

	headers := c.baseHeaders()
	headers["Authorization"] = "MFA-DPoP " + req.TransactionToken
	headers["MFA-DPoP"] = proof

	status, respBody, err := c.sender.Send("GET", url, headers, nil)
	if err != nil {
		return nil, NewClientErrorWithDetails(ErrCodeHTTPError, "request failed", err.Error())
	}

	switch status {
	case http.StatusOK:
		var consent RichConsent
		if err := json.Unmarshal(respBody, &consent); err != nil {
			return nil, NewClientErrorWithDetails(ErrCodeHTTPError, "failed to decode rich-consent response", err.Error())
		}
		return &consent, nil
	case http.StatusUnauthorized:
		return nil, httpError(ErrCodeAuthenticationError, "invalid transaction token or proof", status, respBody)
	case http.StatusNotFound:
		return nil, httpError(ErrCodeNotFoundError, "rich consent not found", status, respBody)
	case http.StatusBadRequest:
		return nil, httpError(ErrCodeValidationError, "invalid rich-consent request", status, respBody)
	default:
		return nil, httpError(ErrCodeHTTPError, "unexpected rich-consent response", status, respBody)
	}
}

// Devices lists the locally persisted enrollments.
func (c *Client) Devices() ([]*store.EnrollmentRecord, error) {
	records, err := c.store.List()
	if err != nil {
		return nil, NewClientErrorWithDetails(ErrCodeStoreError, "failed to read enrollment store", err.Error())
	}
	return records, nil
}

// resolveDevice determines the device id and domain for an operation,
// auto-selecting from the store when the device id is omitted and falling
// back to the enrollment record's domain when none is supplied. When both
// are available without it, the store is not touched at all.
func (c *Client) resolveDevice(deviceID, domain string) (string, string, error) {
	if domain == "" {
		domain = c.domain
	}
	if deviceID != "" && domain != "" {
		return deviceID, domain, nil
	}

	var record *store.EnrollmentRecord
	var err error
	if deviceID == "" {
		record, err = c.store.SelectSingle()
	} else {
		record, err = c.store.Get(deviceID)
	}
	if err != nil {
		return "", "", storeLookupError(err)
	}

	if domain == "" {
		domain = record.Domain
	}
	return record.DeviceID, domain, nil
}

// requireRecord loads the enrollment record for an operation that cannot
// proceed without one, auto-selecting when the device id is omitted.
func (c *Client) requireRecord(deviceID string) (*store.EnrollmentRecord, error) {
	record, err := c.lookupRecord(deviceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, storeLookupError(err)
		}
		return nil, err
	}
	return record, nil
}

// lookupRecord fetches a record by id, or the single enrollment when the id
// is empty. A missing record comes back as store.ErrNotFound so callers can
// decide whether absence is an error.
func (c *Client) lookupRecord(deviceID string) (*store.EnrollmentRecord, error) {
	var record *store.EnrollmentRecord
	var err error
	if deviceID == "" {
		record, err = c.store.SelectSingle()
	} else {
		record, err = c.store.Get(deviceID)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, storeLookupError(err)
	}
	return record, nil
}

// send issues one JSON request with the standard header set and returns the
// raw status and body for the caller to interpret.
func (c *Client) send(method, url, authorization string, body any) (int, []byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return 0, nil, NewClientErrorWithDetails(ErrCodeValidationError, "failed to encode request body", err.Error())
		}
	}

	headers := c.baseHeaders()
	headers["Authorization"] = authorization
	if payload != nil {
		headers["Content-Type"] = "application/json"
	}

	status, respBody, err := c.sender.Send(method, url, headers, payload)
	if err != nil {
		return 0, nil, NewClientErrorWithDetails(ErrCodeHTTPError, "request failed", err.Error())
	}
	return status, respBody, nil
}

func (c *Client) baseHeaders() map[string]string {
	return map[string]string{
		"Accept":       "application/json",
		"Auth0-Client": c.clientInfo,
		"User-Agent":   ClientName + "/" + ClientVersion,
	}
}

// encodeClientInfo renders the Auth0-Client header value: base64url of
// {"name":...,"version":...}.
func encodeClientInfo(name, version string) string {
	info := struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}{name, version}
	raw, _ := json.Marshal(info)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// storeLookupError maps store errors onto the client taxonomy.
func storeLookupError(err error) *ClientError {
	switch {
	case errors.Is(err, store.ErrAmbiguous):
		return NewClientError(ErrCodeAmbiguousDeviceError, "multiple enrollments present, specify a device id")
	case errors.Is(err, store.ErrNotFound):
		return NewClientError(ErrCodeStoreError, "no enrollment record found")
	default:
		return NewClientErrorWithDetails(ErrCodeStoreError, "failed to read enrollment store", err.Error())
	}
}

// httpError builds the taxonomy error for an unexpected or failing status,
// carrying a trimmed response body as detail.
func httpError(code, message string, status int, body []byte) *ClientError {
	detail := fmt.Sprintf("HTTP %d", status)
	if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
		if len(trimmed) > 256 {
			trimmed = trimmed[:256]
		}
		detail = fmt.Sprintf("HTTP %d: %s", status, trimmed)
	}
	return NewClientErrorWithDetails(code, message, detail)
}
