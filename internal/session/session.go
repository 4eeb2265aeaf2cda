// Package session turns identity events into immutable role-resolved sessions.
package session

import (
	"context"

	"kknotes/internal/models"

	"github.com/golang/glog"
)

// Registry is what the Resolver needs from the admin registry and the user directory.
type Registry interface {
	// FindAdminByEmail returns nil, nil when email has no admin record.
	FindAdminByEmail(ctx context.Context, email string) (*models.AdminRecord, error)
	UpsertProfile(ctx context.Context, identity *models.Identity) (*models.Profile, error)
}

// Resolver derives a Session from an identity and the admin registry.
type Resolver struct {
	registry Registry
}

func NewResolver(registry Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Resolve handles a sign-in event: it builds the session for identity and records the sign-in
// in the user's profile. A nil identity resolves to the signed-out session without touching the
// store. Registry failures resolve to a non-admin session and are logged, never returned.
func (r *Resolver) Resolve(ctx context.Context, identity *models.Identity) models.Session {
	s := r.Roles(ctx, identity)
	if !s.Authenticated {
		return s
	}
	if _, err := r.registry.UpsertProfile(ctx, s.Identity); err != nil {
		glog.Warningf("error saving profile for %s: %v\n", s.Identity.ID, err)
	}
	return s
}

// Roles builds the session for identity like Resolve, without recording a sign-in.
func (r *Resolver) Roles(ctx context.Context, identity *models.Identity) models.Session {
	if identity == nil {
		return models.Session{}
	}

	id := *identity
	id.Email = models.NormalizeEmail(id.Email)
	s := models.Session{Identity: &id, Authenticated: true}

	if models.IsSuperAdminEmail(id.Email) {
		s.IsAdmin, s.IsSuperAdmin = true, true
	} else if admin, err := r.registry.FindAdminByEmail(ctx, id.Email); err != nil {
		glog.Errorf("error looking up admin status for %s, treating as non-admin: %v\n", id.Email, err)
	} else if admin != nil {
		s.IsAdmin = true
		s.IsSuperAdmin = admin.SuperAdmin
	}
	return s
}
