// Package publicip looks up the caller's public IP address.
package publicip

import (
	"context"
	"strings"

	"github.com/yuriy-kovalchuk/yk-dyndns/internal/apierror"
)

// Family selects the address family to look up.
type Family string

const (
	V4 Family = "v4"
	V6 Family = "v6"
)

// ParseFamily accepts "v4" and "v6" in any case.
func ParseFamily(s string) (Family, error) {
	switch f := Family(strings.ToLower(strings.TrimSpace(s))); f {
	case V4, V6:
		return f, nil
	default:
		return "", apierror.BadRequest("unsupported ip version %q, expected v4 or v6", s)
	}
}

// Retriever returns the public address of the given family as text.
type Retriever interface {
	Retrieve(ctx context.Context, family Family) (string, error)
}
