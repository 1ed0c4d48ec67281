// Package guardianjwt builds and RS256-signs the two short-lived tokens the
// Guardian protocol needs: the transaction-resolution challenge response and
// the DPoP proof for rich-consent retrieval.
package guardianjwt

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/abbaspour/guardian-go/pkg/jwk"
)

// ChallengeLifetime is the validity window of a transaction-resolution
// token. The token is meant to be unusable if delivery is delayed.
const ChallengeLifetime = 30 * time.Second

// TypeDPoP is the typ header value of a DPoP proof token.
const TypeDPoP = "dpop+jwt"

// ChallengeParams describes a transaction-resolution token to sign.
type ChallengeParams struct {
	// Challenge is the value received in the push payload (sub claim).
	Challenge string
	// AudienceURL is the exact resolve-transaction URL (aud claim).
	AudienceURL string
	// DeviceID identifies the responding device (iss claim).
	DeviceID string
	// Accepted reports whether the user approved the transaction.
	Accepted bool
	// Reason is an optional rejection reason; only valid when rejecting.
	Reason string
}

// ProofParams describes a DPoP proof token to sign.
type ProofParams struct {
	// URL is the exact target URL (htu claim).
	URL string
	// Method is the HTTP method of the request (htm claim).
	Method string
	// AccessToken is the transaction token the proof is bound to; its
	// SHA-256 hash becomes the ath claim.
	AccessToken string
	// Key is the device public key embedded in the proof header.
	Key *jwk.JWK
}

// ParsePrivateKeyPEM parses a PEM-encoded RSA private key (PKCS#1 or PKCS#8).
func ParsePrivateKeyPEM(pemData string) (*rsa.PrivateKey, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(pemData))
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSA private key: %w", err)
	}
	return key, nil
}

// SignChallenge builds and signs the transaction-resolution token.
//
// The token lives for exactly ChallengeLifetime from its issue time. The
// rejection reason claim is emitted only when rejecting; supplying one on an
// accept is an error rather than a silently dropped claim.
func SignChallenge(p ChallengeParams, key *rsa.PrivateKey) (string, error) {
	if key == nil {
		return "", fmt.Errorf("private key is nil")
	}
	if p.Challenge == "" {
		return "", fmt.Errorf("challenge is required")
	}
	if p.AudienceURL == "" {
		return "", fmt.Errorf("audience URL is required")
	}
	if p.DeviceID == "" {
		return "", fmt.Errorf("device id is required")
	}
	if p.Accepted && p.Reason != "" {
		return "", fmt.Errorf("rejection reason is only valid when rejecting")
	}

	now := time.Now()
	claims := &ChallengeClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ChallengeLifetime)),
		Audience:  p.AudienceURL,
		Issuer:    p.DeviceID,
		Subject:   p.Challenge,
		Method:    "push",
		Accepted:  p.Accepted,
		Reason:    p.Reason,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign challenge token: %w", err)
	}
	return signed, nil
}

// SignProof builds and signs a DPoP proof token.
//
// The public key travels in the proof header as a jwk claim; the jti is
// freshly generated per proof and never repeats.
func SignProof(p ProofParams, key *rsa.PrivateKey) (string, error) {
	if key == nil {
		return "", fmt.Errorf("private key is nil")
	}
	if p.URL == "" {
		return "", fmt.Errorf("target URL is required")
	}
	if p.Method == "" {
		return "", fmt.Errorf("HTTP method is required")
	}
	if p.AccessToken == "" {
		return "", fmt.Errorf("access token is required")
	}
	if p.Key == nil {
		return "", fmt.Errorf("public JWK is required")
	}

	hash := sha256.Sum256([]byte(p.AccessToken))
	claims := &ProofClaims{
		HTU: p.URL,
		HTM: p.Method,
		ATH: base64.RawURLEncoding.EncodeToString(hash[:]),
		JTI: uuid.New().String(),
		IAT: jwt.NewNumericDate(time.Now()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["typ"] = TypeDPoP
	token.Header["jwk"] = p.Key

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign DPoP proof: %w", err)
	}
	return signed, nil
}
