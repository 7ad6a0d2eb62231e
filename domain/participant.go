// Package domain contains core concepts of the listing chat.
// This file defines participant roles and verified identities.
package domain

import (
	"fmt"
	"strings"

	"listing-chat/errors"
)

type Role string

const (
	RoleInquirer Role = "inquirer"
	RoleOwner    Role = "owner"
)

// ParseRole accepts the canonical role names and the legacy account types
// ("student", "landlord") still carried by older tokens.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inquirer", "student":
		return RoleInquirer, nil
	case "owner", "landlord":
		return RoleOwner, nil
	default:
		return "", fmt.Errorf("%w: %q", errors.ErrUnknownRole, s)
	}
}

func (r Role) String() string {
	return string(r)
}

// Identity is what a verified credential resolves to.
type Identity struct {
	SubjectID string
	Role      Role
}
