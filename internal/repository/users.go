package repository

import (
	"context"
	"sort"

	"kknotes/internal/models"
	"kknotes/internal/qerrors"
	"kknotes/internal/store"

	"github.com/golang/glog"
)

// UpsertProfile records a sign-in under users/{id}. The first sign-in of an identity also sets
// createdAt and the initial role.
func (r *StoreRepository) UpsertProfile(ctx context.Context, identity *models.Identity) (*models.Profile, error) {
	if identity == nil || !store.ValidKey(identity.ID) {
		return nil, qerrors.NewInvalidRequest("id", "is invalid")
	}

	now := r.clock().UnixMilli()
	profile := &models.Profile{
		DisplayName: identity.DisplayName,
		Email:       models.NormalizeEmail(identity.Email),
		PhotoURL:    identity.AvatarURL,
		LastLogin:   now,
	}

	err := r.store.Transact(ctx, userPath(identity.ID), func(current interface{}) (interface{}, error) {
		record, ok := current.(map[string]interface{})
		if !ok {
			record = make(map[string]interface{})
		}
		if _, seen := record["createdAt"]; !seen {
			role := models.RoleStudent
			if models.IsSuperAdminEmail(profile.Email) {
				role = models.RoleAdmin
			}
			record["createdAt"] = store.ServerTimestamp()
			record["role"] = string(role)
			profile.CreatedAt, profile.Role = now, role
		} else {
			existing := &models.Profile{}
			if err := decode(record, existing); err == nil {
				profile.CreatedAt, profile.Role = existing.CreatedAt, existing.Role
			}
		}
		record["displayName"] = profile.DisplayName
		record["email"] = profile.Email
		record["photoURL"] = profile.PhotoURL
		record["lastLogin"] = store.ServerTimestamp()
		return record, nil
	})
	if err != nil {
		return nil, qerrors.Backend("saving profile", err)
	}
	return profile, nil
}

// GetUser returns the profile stored for an identity.
func (r *StoreRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	if !store.ValidKey(id) {
		return nil, qerrors.UserNotFoundError
	}
	raw, err := r.store.Read(ctx, userPath(id))
	if err != nil {
		return nil, qerrors.Backend("reading profile", err)
	}
	if raw == nil {
		return nil, qerrors.UserNotFoundError
	}

	profile := &models.Profile{}
	if err := decode(raw, profile); err != nil {
		return nil, qerrors.Backend("decoding profile", err)
	}
	return &models.User{Profile: profile, ID: id}, nil
}

// ListUsers returns every stored profile, most recently active first.
func (r *StoreRepository) ListUsers(ctx context.Context) ([]*models.User, error) {
	raw, err := r.store.Read(ctx, models.StoreUsersPath)
	if err != nil {
		return nil, qerrors.Backend("listing users", err)
	}

	users := make([]*models.User, 0)
	for id, v := range children(raw) {
		profile := &models.Profile{}
		if err := decode(v, profile); err != nil {
			glog.V(1).Infof("skipping malformed profile %s: %v", id, err)
			continue
		}
		users = append(users, &models.User{Profile: profile, ID: id})
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].LastLogin != users[j].LastLogin {
			return users[i].LastLogin > users[j].LastLogin
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func userPath(id string) string {
	return store.Join(models.StoreUsersPath, id)
}
