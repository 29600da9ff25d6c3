package domain

import (
	"net/url"
	"regexp"
	"strings"
)

// MaxSlugLength bounds both custom and generated slugs.
const MaxSlugLength = 64

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Slugs that collide with fixed routes.
var reservedSlugs = map[string]bool{
	"api":     true,
	"healthz": true,
}

// ValidateTargetURL accepts absolute http(s) URLs with a host and returns the
// trimmed value.
func ValidateTargetURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", NewValidationError("target_url", "is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", NewValidationError("target_url", "is not a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", NewValidationError("target_url", "must use http or https")
	}
	if u.Host == "" {
		return "", NewValidationError("target_url", "must include a host")
	}
	return raw, nil
}

func ValidateSlug(slug string) error {
	if !slugPattern.MatchString(slug) {
		return NewValidationError("slug", "must be 1-64 characters of letters, digits, '_' or '-'")
	}
	if reservedSlugs[slug] {
		return NewValidationError("slug", "%q is reserved", slug)
	}
	return nil
}
