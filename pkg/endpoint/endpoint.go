// Package endpoint renders Guardian API and rich-consent URLs from a tenant domain.
//
// Two distinct rules live here. API endpoints get the /appliance-mfa prefix
// unless the tenant is Guardian-hosted (or the caller already supplied the
// prefix). Rich-consent endpoints are the opposite: any .guardian subdomain
// label and any /appliance-mfa prefix are stripped before composing the URL.
// The two rules are not inverses of each other, so they stay separate.
package endpoint

import (
	"fmt"
	"regexp"
	"strings"
)

// MFASuffix is the management path prefix used by custom-domain tenants.
const MFASuffix = "/appliance-mfa"

// guardianHosted matches tenant domains served directly by Guardian,
// e.g. "tenant.guardian.auth0.com" or "tenant.guardian.eu.auth0.com".
var guardianHosted = regexp.MustCompile(`guardian.*\.auth0\.com`)

// Normalize strips a leading http:// or https:// scheme and any trailing
// slash from a tenant domain string.
func Normalize(domain string) string {
	d := strings.TrimSpace(domain)
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	return strings.TrimSuffix(d, "/")
}

// APIURL renders the URL for a Guardian management endpoint such as
// /api/enroll or /api/resolve-transaction.
//
// Guardian-hosted domains take no extra path segment. Domains that already
// carry /appliance-mfa are used unchanged. Everything else is a custom
// domain and gets the /appliance-mfa prefix.
func APIURL(domain, suffix string) (string, error) {
	d := Normalize(domain)
	if d == "" {
		return "", fmt.Errorf("domain is required")
	}

	switch {
	case guardianHosted.MatchString(d):
		return "https://" + d + suffix, nil
	case strings.Contains(d, MFASuffix):
		return "https://" + d + suffix, nil
	default:
		return "https://" + d + MFASuffix + suffix, nil
	}
}

// ConsentURL renders the rich-consent URL for a consent record id.
//
// Rich-consent endpoints are always served unprefixed on the tenant domain,
// so a ".guardian" subdomain label and a "/appliance-mfa" prefix are removed
// when present. Domains matching neither pattern pass through unchanged.
func ConsentURL(domain, consentID string) (string, error) {
	d := Normalize(domain)
	if d == "" {
		return "", fmt.Errorf("domain is required")
	}
	if consentID == "" {
		return "", fmt.Errorf("consent id is required")
	}

	d = strings.Replace(d, ".guardian.", ".", 1)
	d = strings.Replace(d, MFASuffix, "", 1)

	return "https://" + d + "/rich-consents/" + consentID, nil
}
