package users

import (
	"strings"
)

// EmailDomainPolicy is a configuration value restricting the domains that
// may register. A zero value accepts every structurally valid address.
type EmailDomainPolicy struct {
	// Denylist rejects matching domains.
	Denylist []string
	// Allowlist, when non empty, is exclusive: any domain not listed is
	// rejected regardless of the deny list outcome.
	Allowlist []string
}

// Validate checks the address structure and the domain lists. The structural
// check requires exactly one separator with non empty local and domain parts.
// Domain matching is case-insensitive.
func (p EmailDomainPolicy) Validate(email string) error {
	domain, ok := splitEmailDomain(email)
	if !ok {
		return ErrInvalidEmail
	}

	if containsDomain(p.Denylist, domain) {
		return decorate(ErrDomainBlocked, map[string]any{"domain": domain})
	}

	if len(p.Allowlist) > 0 && !containsDomain(p.Allowlist, domain) {
		return decorate(ErrDomainNotAllowed, map[string]any{"domain": domain})
	}

	return nil
}

func splitEmailDomain(email string) (string, bool) {
	if strings.Count(email, "@") != 1 {
		return "", false
	}

	at := strings.Index(email, "@")
	local, domain := email[:at], email[at+1:]
	if local == "" || domain == "" {
		return "", false
	}

	return domain, true
}

func containsDomain(list []string, domain string) bool {
	for _, d := range list {
		if strings.EqualFold(d, domain) {
			return true
		}
	}
	return false
}
