package domain

import (
	"regexp"
	"strings"
)

// DefaultExternalPrefixes are destination prefixes routed off-platform.
var DefaultExternalPrefixes = []string{"UPI-", "upi:"}

// vpaPattern matches UPI virtual payment addresses such as merchant@okbank.
var vpaPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9.\-_]{1,255}@[a-zA-Z][a-zA-Z0-9]{1,63}$`)

// ExternalRouter recognises destinations that refer to off-platform payees.
type ExternalRouter struct {
	prefixes []string
}

// NewExternalRouter creates a router for the given prefixes. Empty prefixes are ignored.
func NewExternalRouter(prefixes []string) *ExternalRouter {
	r := &ExternalRouter{}
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" {
			r.prefixes = append(r.prefixes, p)
		}
	}

	return r
}

// IsExternal reports whether destination matches an external routing pattern.
func (r *ExternalRouter) IsExternal(destination string) bool {
	destination = strings.TrimSpace(destination)

	for _, p := range r.prefixes {
		if len(destination) > len(p) && strings.HasPrefix(destination, p) {
			return true
		}
	}

	return vpaPattern.MatchString(destination)
}
