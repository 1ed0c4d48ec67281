// Package jwk converts RSA public keys into the JSON Web Key form Guardian
// expects at enrollment.
//
// The conversion has to be byte-exact: a wrong modulus byte produces a JWK
// the server rejects at enroll time, not here, so the encoding rules from
// RFC 7518 are followed strictly (big-endian magnitude, no leading zero
// padding byte, base64url without padding).
package jwk

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
)

// ErrKeyFormat indicates the supplied PEM data is not a parseable RSA public key.
var ErrKeyFormat = errors.New("not a parseable RSA public key")

// JWK is an RSA signing key in JSON Web Key form.
type JWK struct {
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// FromPublicKeyPEM parses a PEM-encoded RSA public key and renders it as a
// signing JWK. Both PKIX ("PUBLIC KEY") and PKCS#1 ("RSA PUBLIC KEY") blocks
// are accepted. Returns an error wrapping ErrKeyFormat if the input is not
// an RSA public key.
func FromPublicKeyPEM(pemData string) (*JWK, error) {
	pub, err := parsePublicKey(pemData)
	if err != nil {
		return nil, err
	}
	return FromPublicKey(pub), nil
}

// FromPublicKey renders an already-parsed RSA public key as a signing JWK.
func FromPublicKey(pub *rsa.PublicKey) *JWK {
	return &JWK{
		Kty: "RSA",
		Alg: "RS256",
		Use: "sig",
		N:   encodeUint(pub.N.Bytes()),
		E:   encodeUint(big.NewInt(int64(pub.E)).Bytes()),
	}
}

func parsePublicKey(pemData string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrKeyFormat)
	}

	switch block.Type {
	case "RSA PUBLIC KEY":
		pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrKeyFormat, err)
		}
		return pub, nil
	case "PUBLIC KEY":
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrKeyFormat, err)
		}
		pub, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: key is %T, not RSA", ErrKeyFormat, key)
		}
		return pub, nil
	default:
		return nil, fmt.Errorf("%w: unexpected PEM block type %q", ErrKeyFormat, block.Type)
	}
}

// encodeUint base64url-encodes the big-endian magnitude of an unsigned
// integer. A leading zero byte, the sign-padding artifact of ASN.1
// signed-integer encoding, is dropped first.
func encodeUint(b []byte) string {
	if len(b) > 1 && b[0] == 0x00 {
		b = b[1:]
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
