// Package access holds the caller capability checks: signed callers and
// administrators.
package access

import (
	"errors"
	"strings"
)

var ErrUnauthorized = errors.New("caller is not authorized")

// Authorizer decides whether an account holds the administrative capability.
type Authorizer interface {
	IsAdmin(account string) bool
}

// EnsureSigned rejects anonymous callers.
func EnsureSigned(caller string) error {
	if strings.TrimSpace(caller) == "" {
		return ErrUnauthorized
	}
	return nil
}

// EnsureAdmin rejects callers without the administrative capability.
func EnsureAdmin(a Authorizer, caller string) error {
	if err := EnsureSigned(caller); err != nil {
		return err
	}
	if a == nil || !a.IsAdmin(caller) {
		return ErrUnauthorized
	}
	return nil
}

// StaticAdmins is a fixed administrator set, typically loaded from config.
type StaticAdmins map[string]struct{}

func NewStaticAdmins(accounts ...string) StaticAdmins {
	s := make(StaticAdmins, len(accounts))
	for _, a := range accounts {
		if a = strings.TrimSpace(a); a != "" {
			s[a] = struct{}{}
		}
	}
	return s
}

func (s StaticAdmins) IsAdmin(account string) bool {
	_, ok := s[account]
	return ok
}
