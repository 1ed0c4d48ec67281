package guardianjwt

import (
	"github.com/golang-jwt/jwt/v5"
)

// ChallengeClaims is the payload of the transaction-resolution token sent
// back to Guardian when a push challenge is accepted or rejected.
type ChallengeClaims struct {
	IssuedAt  *jwt.NumericDate `json:"iat"`
	ExpiresAt *jwt.NumericDate `json:"exp"`
	Audience  string           `json:"aud"` // exact resolve-transaction URL
	Issuer    string           `json:"iss"` // device id
	Subject   string           `json:"sub"` // challenge from the push payload
	Method    string           `json:"auth0_guardian_method"`
	Accepted  bool             `json:"auth0_guardian_accepted"`
	// Reason must be absent entirely when accepting, so it carries omitempty.
	Reason string `json:"auth0_guardian_reason,omitempty"`
}

// GetExpirationTime implements jwt.Claims
func (c *ChallengeClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return c.ExpiresAt, nil
}

// GetIssuedAt implements jwt.Claims
func (c *ChallengeClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return c.IssuedAt, nil
}

// GetNotBefore implements jwt.Claims
func (c *ChallengeClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetIssuer implements jwt.Claims
func (c *ChallengeClaims) GetIssuer() (string, error) {
	return c.Issuer, nil
}

// GetSubject implements jwt.Claims
func (c *ChallengeClaims) GetSubject() (string, error) {
	return c.Subject, nil
}

// GetAudience implements jwt.Claims
func (c *ChallengeClaims) GetAudience() (jwt.ClaimStrings, error) {
	if c.Audience == "" {
		return nil, nil
	}
	return jwt.ClaimStrings{c.Audience}, nil
}

// ProofClaims is the payload of a DPoP proof token binding one HTTP request
// to the device key pair.
type ProofClaims struct {
	HTU string           `json:"htu"` // exact target URL
	HTM string           `json:"htm"` // HTTP method
	ATH string           `json:"ath"` // base64url(SHA-256(access token))
	JTI string           `json:"jti"` // unique per proof
	IAT *jwt.NumericDate `json:"iat"`
}

// GetExpirationTime implements jwt.Claims
func (c *ProofClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetIssuedAt implements jwt.Claims
func (c *ProofClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return c.IAT, nil
}

// GetNotBefore implements jwt.Claims
func (c *ProofClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetIssuer implements jwt.Claims
func (c *ProofClaims) GetIssuer() (string, error) {
	return "", nil
}

// GetSubject implements jwt.Claims
func (c *ProofClaims) GetSubject() (string, error) {
	return "", nil
}

// GetAudience implements jwt.Claims
func (c *ProofClaims) GetAudience() (jwt.ClaimStrings, error) {
	return nil, nil
}
