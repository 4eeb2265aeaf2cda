package repository

import (
	"context"
	"sort"

	"kknotes/internal/models"
	"kknotes/internal/qerrors"
	"kknotes/internal/store"

	"github.com/golang/glog"
	"github.com/google/uuid"
)

// FindAdminByEmail returns the admin record for email, or nil when there is none. Records
// written before emails were normalized are found by a case-insensitive scan.
func (r *StoreRepository) FindAdminByEmail(ctx context.Context, email string) (*models.AdminRecord, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, nil
	}

	// The indexed query fails on databases without an email index on admins; the scan below
	// still answers.
	nodes, err := r.store.ReadEqual(ctx, models.StoreAdminsPath, "email", email)
	if err != nil {
		glog.Warningf("indexed admin lookup failed, scanning instead: %v\n", err)
	}
	for _, n := range nodes {
		if admin, ok := decodeAdmin(n.Key, n.Value); ok {
			return admin, nil
		}
	}

	raw, err := r.store.Read(ctx, models.StoreAdminsPath)
	if err != nil {
		return nil, qerrors.Backend("looking up admin", err)
	}
	for id, v := range children(raw) {
		if admin, ok := decodeAdmin(id, v); ok && admin.Email == email {
			return admin, nil
		}
	}
	return nil, nil
}

// IsAdmin reports whether email belongs to the super admin or has an admin record.
func (r *StoreRepository) IsAdmin(ctx context.Context, email string) (bool, error) {
	if models.IsSuperAdminEmail(email) {
		return true, nil
	}
	admin, err := r.FindAdminByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return admin != nil, nil
}

// IsSuperAdmin reports whether email is the super admin or its record is flagged superAdmin.
func (r *StoreRepository) IsSuperAdmin(ctx context.Context, email string) (bool, error) {
	if models.IsSuperAdminEmail(email) {
		return true, nil
	}
	admin, err := r.FindAdminByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return admin != nil && admin.SuperAdmin, nil
}

// ListAdmins returns every admin record ordered by email.
func (r *StoreRepository) ListAdmins(ctx context.Context) ([]*models.AdminRecord, error) {
	raw, err := r.store.Read(ctx, models.StoreAdminsPath)
	if err != nil {
		return nil, qerrors.Backend("listing admins", err)
	}

	admins := make([]*models.AdminRecord, 0)
	for id, v := range children(raw) {
		if admin, ok := decodeAdmin(id, v); ok {
			admins = append(admins, admin)
		}
	}
	sort.Slice(admins, func(i, j int) bool { return admins[i].Email < admins[j].Email })
	return admins, nil
}

// AddAdmin registers a new admin. The email check and the write happen in one transaction on
// the registry, so two concurrent adds of the same email leave a single record.
func (r *StoreRepository) AddAdmin(ctx context.Context, req *models.AddAdminRequest) (*models.AdminRecord, error) {
	if err := requireAdmin(req.AddedBy); err != nil {
		return nil, err
	}
	req.Email = models.NormalizeEmail(req.Email)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if models.IsSuperAdminEmail(req.Email) {
		return nil, qerrors.AlreadyExists
	}

	_, addedBy := sessionUser(req.AddedBy)
	admin := &models.AdminRecord{
		ID:       uuid.NewString(),
		Email:    req.Email,
		Nickname: req.Nickname,
		AddedBy:  addedBy,
	}

	err := r.store.Transact(ctx, models.StoreAdminsPath, func(current interface{}) (interface{}, error) {
		existing, ok := current.(map[string]interface{})
		if !ok {
			existing = make(map[string]interface{})
		}
		for id, v := range existing {
			if a, ok := decodeAdmin(id, v); ok && a.Email == admin.Email {
				return nil, qerrors.AlreadyExists
			}
		}
		doc := map[string]interface{}{
			"email":      admin.Email,
			"superAdmin": false,
			"addedBy":    admin.AddedBy,
			"addedAt":    store.ServerTimestamp(),
		}
		if admin.Nickname != "" {
			doc["nickname"] = admin.Nickname
		}
		existing[admin.ID] = doc
		return existing, nil
	})
	if err != nil {
		return nil, qerrors.Backend("adding admin", err)
	}
	admin.AddedAt = r.clock().UnixMilli()

	glog.Infof("%s added %s as an admin\n", addedBy, admin.Email)
	return admin, nil
}

// PromoteToSuperAdmin flags an existing admin as super admin. Only super admins may promote.
func (r *StoreRepository) PromoteToSuperAdmin(ctx context.Context, req *models.ChangeAdminRequest) error {
	if err := requireSuperAdmin(req.Caller); err != nil {
		return err
	}
	if !store.ValidKey(req.AdminID) {
		return qerrors.AdminNotFoundError
	}

	err := r.store.Transact(ctx, adminPath(req.AdminID), func(current interface{}) (interface{}, error) {
		record, ok := current.(map[string]interface{})
		if !ok {
			return nil, qerrors.AdminNotFoundError
		}
		record["superAdmin"] = true
		return record, nil
	})
	return qerrors.Backend("promoting admin", err)
}

// DemoteAdmin revokes an admin. Only super admins may demote, and a super admin can never be
// demoted, not even by another super admin.
func (r *StoreRepository) DemoteAdmin(ctx context.Context, req *models.ChangeAdminRequest) error {
	if err := requireSuperAdmin(req.Caller); err != nil {
		return err
	}
	if !store.ValidKey(req.AdminID) {
		return qerrors.AdminNotFoundError
	}

	var demoted *models.AdminRecord
	err := r.store.Transact(ctx, adminPath(req.AdminID), func(current interface{}) (interface{}, error) {
		admin, ok := decodeAdmin(req.AdminID, current)
		if !ok {
			return nil, qerrors.AdminNotFoundError
		}
		if admin.SuperAdmin || models.IsSuperAdminEmail(admin.Email) {
			return nil, qerrors.Forbidden
		}
		demoted = admin
		return nil, nil
	})
	if err != nil {
		return qerrors.Backend("demoting admin", err)
	}

	_, by := sessionUser(req.Caller)
	glog.Infof("%s demoted %s\n", by, demoted.Email)
	return nil
}

// RemoveAdmin deletes an admin record. Callers may not remove their own record, and only a
// super admin may remove another super admin.
func (r *StoreRepository) RemoveAdmin(ctx context.Context, req *models.ChangeAdminRequest) error {
	if err := requireAdmin(req.Caller); err != nil {
		return err
	}
	if !store.ValidKey(req.AdminID) {
		return qerrors.AdminNotFoundError
	}

	raw, err := r.store.Read(ctx, adminPath(req.AdminID))
	if err != nil {
		return qerrors.Backend("reading admin", err)
	}
	admin, ok := decodeAdmin(req.AdminID, raw)
	if !ok {
		return qerrors.AdminNotFoundError
	}
	if admin.Email == req.Caller.Email() {
		return qerrors.NewForbidden("you cannot remove yourself")
	}
	if admin.SuperAdmin && !req.Caller.IsSuperAdmin {
		return qerrors.NewForbidden("only a super admin can remove a super admin")
	}

	if err := r.store.Remove(ctx, adminPath(req.AdminID)); err != nil {
		return qerrors.Backend("removing admin", err)
	}
	return nil
}

// Helpers

func adminPath(id string) string {
	return store.Join(models.StoreAdminsPath, id)
}

// decodeAdmin reads an admin record. superAdmin counts only when it is the boolean true.
func decodeAdmin(id string, raw interface{}) (*models.AdminRecord, bool) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, false
	}
	admin := &models.AdminRecord{}
	if err := decode(m, admin); err != nil {
		glog.V(1).Infof("skipping malformed admin record %s: %v", id, err)
		return nil, false
	}
	admin.ID = id
	admin.Email = models.NormalizeEmail(admin.Email)
	if admin.Email == "" {
		return nil, false
	}
	admin.SuperAdmin = m["superAdmin"] == true
	return admin, true
}
