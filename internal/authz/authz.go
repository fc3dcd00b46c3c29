package authz

import (
	"context"

	"github.com/feral-file/ff-distributor/internal/domain"
	"github.com/feral-file/ff-distributor/internal/engine"
)

type contextKey string

const identityKey contextKey = "authz_identity"

// Identity describes the authenticated caller as established by the API
// middleware
type Identity struct {
	// AuthType is "jwt" or "apikey"
	AuthType string
	// Subject is the JWT subject claim; empty for API keys
	Subject string
}

// WithIdentity returns a context carrying the caller identity
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext extracts the caller identity set by the middleware
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

// Config maps authenticated subjects to roles
type Config struct {
	// AdminSubjects may perform every gated operation
	AdminSubjects []string
	// AllowListAdminSubjects may only edit the allow list
	AllowListAdminSubjects []string
}

// RoleAuthorizer implements engine.Authorizer with a static subject-to-role
// mapping. API-key callers are treated as admins; JWT callers are checked
// against the configured subject lists.
type RoleAuthorizer struct {
	admins          map[string]bool
	allowListAdmins map[string]bool
}

// NewRoleAuthorizer creates an authorizer from the configured subject lists
func NewRoleAuthorizer(cfg Config) *RoleAuthorizer {
	a := &RoleAuthorizer{
		admins:          make(map[string]bool),
		allowListAdmins: make(map[string]bool),
	}
	for _, subject := range cfg.AdminSubjects {
		if subject != "" {
			a.admins[subject] = true
		}
	}
	for _, subject := range cfg.AllowListAdminSubjects {
		if subject != "" {
			a.allowListAdmins[subject] = true
		}
	}
	return a
}

// Authorize decides whether the caller in ctx may perform op
func (a *RoleAuthorizer) Authorize(ctx context.Context, op engine.Operation) error {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return domain.ErrUnauthorized
	}

	// API keys are held by the operator's own tooling
	if identity.AuthType == "apikey" {
		return nil
	}

	if a.admins[identity.Subject] {
		return nil
	}
	if op == engine.OpEditAllowList && a.allowListAdmins[identity.Subject] {
		return nil
	}

	return domain.ErrUnauthorized
}
