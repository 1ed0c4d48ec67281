package guardian

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abbaspour/guardian-go/pkg/store"
)

// fakeSender records the last request and replies with a canned response.
type fakeSender struct {
	status  int
	body    string
	err     error
	calls   int
	method  string
	url     string
	headers map[string]string
	payload []byte
}

func (f *fakeSender) Send(method, url string, headers map[string]string, body []byte) (int, []byte, error) {
	f.calls++
	f.method = method
	f.url = url
	f.headers = headers
	f.payload = body
	if f.err != nil {
		return 0, nil, f.err
	}
	return f.status, []byte(f.body), nil
}

type testKeys struct {
	key        *rsa.PrivateKey
	privatePEM string
	publicPEM  string
}

func newTestKeys(t *testing.T) testKeys {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	return testKeys{key: key, privatePEM: string(privatePEM), publicPEM: string(publicPEM)}
}

func newTestClient(t *testing.T, sender *fakeSender) (*Client, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	client, err := NewClient(Config{Store: st, Sender: sender})
	require.NoError(t, err)
	return client, st
}

func enrolledRecord() *store.EnrollmentRecord {
	return &store.EnrollmentRecord{
		DeviceID:     "device-001",
		EnrollmentID: "dev_x1",
		DeviceToken:  "tok_y1",
		Domain:       "tenant.auth0.com",
		UserID:       "auth0|1",
	}
}

func decodeJWTPayload(t *testing.T, token string) map[string]any {
	t.Helper()
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestEnroll_Success(t *testing.T) {
	keys := newTestKeys(t)
	sender := &fakeSender{status: 201, body: `{"id":"dev_x1","token":"tok_y1","user_id":"auth0|1"}`}
	client, st := newTestClient(t, sender)

	record, err := client.Enroll(EnrollRequest{
		Ticket:       "tix_abc",
		Domain:       "tenant.auth0.com",
		DeviceID:     "device-001",
		Name:         "Pixel 8",
		PushToken:    "fcm_tok",
		PublicKeyPEM: keys.publicPEM,
	})
	require.NoError(t, err)

	assert.Equal(t, "POST", sender.method)
	assert.Equal(t, "https://tenant.auth0.com/appliance-mfa/api/enroll", sender.url)
	assert.Equal(t, `Ticket id="tix_abc"`, sender.headers["Authorization"])
	assert.Equal(t, "application/json", sender.headers["Content-Type"])

	var body map[string]any
	require.NoError(t, json.Unmarshal(sender.payload, &body))
	assert.Equal(t, "device-001", body["identifier"])
	assert.Equal(t, "Pixel 8", body["name"])
	creds := body["push_credentials"].(map[string]any)
	assert.Equal(t, "GCM", creds["service"])
	assert.Equal(t, "fcm_tok", creds["token"])
	publicKey := body["public_key"].(map[string]any)
	assert.Equal(t, "RSA", publicKey["kty"])
	assert.Equal(t, "RS256", publicKey["alg"])
	assert.NotEmpty(t, publicKey["n"])
	assert.Equal(t, "AQAB", publicKey["e"])

	assert.Equal(t, "dev_x1", record.EnrollmentID)
	assert.Equal(t, "tok_y1", record.DeviceToken)
	assert.Equal(t, "tenant.auth0.com", record.Domain)
	assert.Equal(t, "auth0|1", record.UserID)

	stored, err := st.Get("device-001")
	require.NoError(t, err)
	assert.Equal(t, "dev_x1", stored.EnrollmentID)
}

func TestEnroll_Auth0ClientHeader(t *testing.T) {
	keys := newTestKeys(t)
	sender := &fakeSender{status: 201, body: `{"id":"dev_x1","token":"tok_y1"}`}
	client, _ := newTestClient(t, sender)

	_, err := client.Enroll(EnrollRequest{
		Ticket: "tix", Domain: "tenant.auth0.com", DeviceID: "d1",
		Name: "n", PushToken: "p", PublicKeyPEM: keys.publicPEM,
	})
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(sender.headers["Auth0-Client"])
	require.NoError(t, err)
	var info struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	require.NoError(t, json.Unmarshal(raw, &info))
	assert.Equal(t, ClientName, info.Name)
	assert.Equal(t, ClientVersion, info.Version)
}

func TestEnroll_ErrorStatuses(t *testing.T) {
	keys := newTestKeys(t)
	cases := []struct {
		status   int
		wantCode string
	}{
		{401, ErrCodeAuthenticationError},
		{409, ErrCodeConflictError},
		{400, ErrCodeValidationError},
		{500, ErrCodeHTTPError},
	}

	for _, tc := range cases {
		sender := &fakeSender{status: tc.status, body: `{"error":"nope"}`}
		client, st := newTestClient(t, sender)

		_, err := client.Enroll(EnrollRequest{
			Ticket: "tix", Domain: "tenant.auth0.com", DeviceID: "device-001",
			Name: "n", PushToken: "p", PublicKeyPEM: keys.publicPEM,
		})
		require.Error(t, err, "status %d", tc.status)
		clientErr := GetClientError(err)
		require.NotNil(t, clientErr, "status %d", tc.status)
		assert.Equal(t, tc.wantCode, clientErr.Code, "status %d", tc.status)

		// No record on any non-2xx.
		_, err = st.Get("device-001")
		assert.ErrorIs(t, err, store.ErrNotFound)
	}
}

func TestEnroll_BadPublicKey(t *testing.T) {
	sender := &fakeSender{status: 201}
	client, _ := newTestClient(t, sender)

	_, err := client.Enroll(EnrollRequest{
		Ticket: "tix", Domain: "tenant.auth0.com", DeviceID: "d1",
		Name: "n", PushToken: "p", PublicKeyPEM: "garbage",
	})
	require.Error(t, err)
	assert.Equal(t, ErrCodeKeyFormatError, GetClientError(err).Code)
	assert.Zero(t, sender.calls, "no request should be sent for a bad key")
}

func TestResolveTransaction_GuardianHostedURL(t *testing.T) {
	keys := newTestKeys(t)
	sender := &fakeSender{status: 204}
	client, st := newTestClient(t, sender)
	record := enrolledRecord()
	record.Domain = "tenant.guardian.auth0.com"
	require.NoError(t, st.Put(record))

	err := client.ResolveTransaction(ResolveRequest{
		Challenge:        "chal1",
		TransactionToken: "txtkn_1",
		PrivateKeyPEM:    keys.privatePEM,
		Accepted:         true,
	})
	require.NoError(t, err)

	assert.Equal(t, "https://tenant.guardian.auth0.com/api/resolve-transaction", sender.url)
	assert.Equal(t, "Bearer txtkn_1", sender.headers["Authorization"])

	var body resolveRequestBody
	require.NoError(t, json.Unmarshal(sender.payload, &body))
	payload := decodeJWTPayload(t, body.ChallengeResponse)
	assert.Equal(t, "chal1", payload["sub"])
	assert.Equal(t, "device-001", payload["iss"])
	assert.Equal(t, sender.url, payload["aud"])
	assert.Equal(t, true, payload["auth0_guardian_accepted"])
	_, hasReason := payload["auth0_guardian_reason"]
	assert.False(t, hasReason, "reason must be absent when accepting")
}

func TestResolveTransaction_RejectWithReason(t *testing.T) {
	keys := newTestKeys(t)
	sender := &fakeSender{status: 200}
	client, st := newTestClient(t, sender)
	require.NoError(t, st.Put(enrolledRecord()))

	err := client.ResolveTransaction(ResolveRequest{
		Challenge:        "chal1",
		TransactionToken: "txtkn_1",
		PrivateKeyPEM:    keys.privatePEM,
		Accepted:         false,
		Reason:           "Suspicious",
	})
	require.NoError(t, err)

	var body resolveRequestBody
	require.NoError(t, json.Unmarshal(sender.payload, &body))
	payload := decodeJWTPayload(t, body.ChallengeResponse)
	assert.Equal(t, false, payload["auth0_guardian_accepted"])
	assert.Equal(t, "Suspicious", payload["auth0_guardian_reason"])
}

func TestResolveTransaction_AmbiguousWithoutDeviceID(t *testing.T) {
	keys := newTestKeys(t)
	sender := &fakeSender{status: 204}
	client, st := newTestClient(t, sender)
	require.NoError(t, st.Put(enrolledRecord()))
	second := enrolledRecord()
	second.DeviceID = "device-002"
	require.NoError(t, st.Put(second))

	err := client.ResolveTransaction(ResolveRequest{
		Challenge:        "chal1",
		TransactionToken: "txtkn_1",
		PrivateKeyPEM:    keys.privatePEM,
		Accepted:         true,
	})
	require.Error(t, err)
	assert.Equal(t, ErrCodeAmbiguousDeviceError, GetClientError(err).Code)
	assert.Zero(t, sender.calls)
}

func TestResolveTransaction_ErrorStatuses(t *testing.T) {
	keys := newTestKeys(t)
	for _, tc := range []struct {
		status   int
		wantCode string
	}{
		{401, ErrCodeAuthenticationError},
		{400, ErrCodeValidationError},
	} {
		sender := &fakeSender{status: tc.status}
		client, st := newTestClient(t, sender)
		require.NoError(t, st.Put(enrolledRecord()))

		err := client.ResolveTransaction(ResolveRequest{
			Challenge:        "chal1",
			TransactionToken: "txtkn_1",
			PrivateKeyPEM:    keys.privatePEM,
			Accepted:         true,
		})
		require.Error(t, err)
		assert.Equal(t, tc.wantCode, GetClientError(err).Code)
	}
}

func TestUpdateDevice_PartialBody(t *testing.T) {
	sender := &fakeSender{status: 200, body: `{"id":"dev_x1","name":"Renamed"}`}
	client, st := newTestClient(t, sender)
	require.NoError(t, st.Put(enrolledRecord()))

	info, err := client.UpdateDevice(UpdateRequest{
		DeviceID:  "device-001",
		Name:      "Renamed",
		PushToken: "fcm_tok",
	})
	require.NoError(t, err)

	assert.Equal(t, "PATCH", sender.method)
	assert.Equal(t, "https://tenant.auth0.com/appliance-mfa/api/device-accounts/dev_x1", sender.url)
	assert.Equal(t, "Bearer tok_y1", sender.headers["Authorization"])

	var body map[string]any
	require.NoError(t, json.Unmarshal(sender.payload, &body))
	assert.Equal(t, "Renamed", body["name"])
	_, hasIdentifier := body["identifier"]
	assert.False(t, hasIdentifier, "identifier must be omitted when not supplied")
	creds := body["push_credentials"].(map[string]any)
	assert.Equal(t, "GCM", creds["service"])
	assert.Equal(t, "fcm_tok", creds["token"])

	assert.Equal(t, "Renamed", info.Name)

	// Local record is not rewritten after a remote update.
	stored, err := st.Get("device-001")
	require.NoError(t, err)
	assert.Equal(t, "tok_y1", stored.DeviceToken)
}

func TestUpdateDevice_RequiresPushToken(t *testing.T) {
	sender := &fakeSender{status: 200}
	client, st := newTestClient(t, sender)
	require.NoError(t, st.Put(enrolledRecord()))

	_, err := client.UpdateDevice(UpdateRequest{DeviceID: "device-001", Name: "x"})
	require.Error(t, err)
	assert.Equal(t, ErrCodeValidationError, GetClientError(err).Code)
	assert.Zero(t, sender.calls)
}

func TestUpdateDevice_ErrorStatuses(t *testing.T) {
	for _, tc := range []struct {
		status   int
		wantCode string
	}{
		{401, ErrCodeAuthenticationError},
		{404, ErrCodeNotFoundError},
		{400, ErrCodeValidationError},
	} {
		sender := &fakeSender{status: tc.status}
		client, st := newTestClient(t, sender)
		require.NoError(t, st.Put(enrolledRecord()))

		_, err := client.UpdateDevice(UpdateRequest{DeviceID: "device-001", PushToken: "p"})
		require.Error(t, err)
		assert.Equal(t, tc.wantCode, GetClientError(err).Code)
	}
}

func TestUpdateDevice_MissingRecord(t *testing.T) {
	sender := &fakeSender{status: 200}
	client, _ := newTestClient(t, sender)

	_, err := client.UpdateDevice(UpdateRequest{DeviceID: "device-001", PushToken: "p"})
	require.Error(t, err)
	assert.Equal(t, ErrCodeStoreError, GetClientError(err).Code)
}

func TestUnenroll_Success(t *testing.T) {
	sender := &fakeSender{status: 204}
	client, st := newTestClient(t, sender)
	require.NoError(t, st.Put(enrolledRecord()))

	require.NoError(t, client.Unenroll("device-001"))

	assert.Equal(t, "DELETE", sender.method)
	assert.Equal(t, "https://tenant.auth0.com/appliance-mfa/api/device-accounts/dev_x1", sender.url)
	assert.Equal(t, "Bearer tok_y1", sender.headers["Authorization"])

	_, err := st.Get("device-001")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUnenroll_404IsSuccess(t *testing.T) {
	sender := &fakeSender{status: 404, body: `{"error":"not_found"}`}
	client, st := newTestClient(t, sender)
	require.NoError(t, st.Put(enrolledRecord()))

	require.NoError(t, client.Unenroll("device-001"))

	_, err := st.Get("device-001")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUnenroll_TwiceIsIdempotent(t *testing.T) {
	sender := &fakeSender{status: 204}
	client, st := newTestClient(t, sender)
	require.NoError(t, st.Put(enrolledRecord()))

	require.NoError(t, client.Unenroll("device-001"))

	// Second call: no local record, and the server would answer 404 anyway.
	sender.status = 404
	require.NoError(t, client.Unenroll("device-001"))
	assert.Equal(t, 1, sender.calls, "second unenroll needs no network call")
}

func TestUnenroll_401KeepsRecord(t *testing.T) {
	sender := &fakeSender{status: 401}
	client, st := newTestClient(t, sender)
	require.NoError(t, st.Put(enrolledRecord()))

	err := client.Unenroll("device-001")
	require.Error(t, err)
	assert.Equal(t, ErrCodeAuthenticationError, GetClientError(err).Code)

	// State is uncertain, record stays.
	_, err = st.Get("device-001")
	assert.NoError(t, err)
}

func TestFetchRichConsent(t *testing.T) {
	keys := newTestKeys(t)
	sender := &fakeSender{status: 200, body: `{
		"id": "cns_abc",
		"requested_details": {"audience": "https://api.example.com", "scope": ["read:all"], "binding_message": "Pay $10"}
	}`}
	client, st := newTestClient(t, sender)
	record := enrolledRecord()
	record.Domain = "tenant.guardian.auth0.com"
	require.NoError(t, st.Put(record))

	consent, err := client.FetchRichConsent(ConsentRequest{
		ConsentID:        "cns_abc",
		TransactionToken: "txtkn_1",
		PrivateKeyPEM:    keys.privatePEM,
	})
	require.NoError(t, err)

	// .guardian label stripped, no /appliance-mfa prefix.
	assert.Equal(t, "https://tenant.auth0.com/rich-consents/cns_abc", sender.url)
	assert.Equal(t, "GET", sender.method)
	assert.Equal(t, "MFA-DPoP txtkn_1", sender.headers["Authorization"])

	proof := sender.headers["MFA-DPoP"]
	require.NotEmpty(t, proof)
	parts := strings.Split(proof, ".")
	require.Len(t, parts, 3)

	headerRaw, err := base64.RawURLEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	var header map[string]any
	require.NoError(t, json.Unmarshal(headerRaw, &header))
	assert.Equal(t, "dpop+jwt", header["typ"])
	assert.Contains(t, header, "jwk")

	payload := decodeJWTPayload(t, proof)
	assert.Equal(t, sender.url, payload["htu"])
	assert.Equal(t, "GET", payload["htm"])
	hash := sha256.Sum256([]byte("txtkn_1"))
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(hash[:]), payload["ath"])

	assert.Equal(t, "cns_abc", consent.ID)
	assert.Equal(t, "Pay $10", consent.RequestedDetails.BindingMessage)
	assert.Equal(t, []string{"read:all"}, consent.RequestedDetails.Scope)
}

func TestNewClient_RequiresStore(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}
