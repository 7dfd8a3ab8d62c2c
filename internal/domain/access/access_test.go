package access

import (
	"errors"
	"testing"
)

func TestEnsureSigned(t *testing.T) {
	if err := EnsureSigned("alice"); err != nil {
		t.Fatalf("EnsureSigned(alice) = %v, want nil", err)
	}
	for _, c := range []string{"", "   "} {
		if err := EnsureSigned(c); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("EnsureSigned(%q) = %v, want ErrUnauthorized", c, err)
		}
	}
}

func TestEnsureAdmin(t *testing.T) {
	admins := NewStaticAdmins(" root ", "", "ops")

	tests := []struct {
		name    string
		auth    Authorizer
		caller  string
		wantErr error
	}{
		{name: "admin trimmed on load", auth: admins, caller: "root"},
		{name: "second admin", auth: admins, caller: "ops"},
		{name: "ordinary account", auth: admins, caller: "alice", wantErr: ErrUnauthorized},
		{name: "anonymous", auth: admins, caller: "", wantErr: ErrUnauthorized},
		{name: "nil authorizer", auth: nil, caller: "root", wantErr: ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := EnsureAdmin(tt.auth, tt.caller)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("EnsureAdmin = %v, want %v", err, tt.wantErr)
			}
		})
	}
	if len(admins) != 2 {
		t.Fatalf("admins = %d, want 2 (blank entries dropped)", len(admins))
	}
}
