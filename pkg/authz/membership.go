// Package authz answers one question: what is this user's role in this
// organization? Every tenant-scoped handler goes through the same
// resolver, so the membership rule cannot drift between endpoints.
package authz

import (
	"errors"

	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/database"
	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/models"
)

// Resolver resolves membership roles against the backing store.
type Resolver struct {
	db database.DatabaseInterface
}

// NewResolver returns a resolver bound to the given store.
func NewResolver(db database.DatabaseInterface) *Resolver {
	return &Resolver{db: db}
}

// RoleOf returns the user's role in the organization and whether any
// relationship exists. Absence of a membership is a normal false
// result, never an error surfaced to the caller.
//
// Owning the organization counts as the owner role even when the
// membership row is missing; some store paths cannot write the
// organization and its owner membership atomically, so the owner
// column is the authority for owners.
func (r *Resolver) RoleOf(orgID, userID string) (models.OrgMemberRole, bool, error) {
	org, err := r.db.GetOrganization(orgID)
	if err != nil {
		// 组织不存在：无角色而非报错，调用方按 404/403 处理。
		// 其余错误是存储故障，必须上抛而不是伪装成"无权限"。
		if errors.Is(err, database.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	if org.OwnerID == userID {
		return models.RoleOwner, true, nil
	}

	m, err := r.db.GetMembership(orgID, userID)
	if err != nil {
		return "", false, err
	}
	if m == nil {
		return "", false, nil
	}
	return m.Role, true, nil
}

// IsMember reports whether the user has any role in the organization.
func (r *Resolver) IsMember(orgID, userID string) (bool, error) {
	_, ok, err := r.RoleOf(orgID, userID)
	return ok, err
}

// IsOwner reports whether the user holds the owner role.
func (r *Resolver) IsOwner(orgID, userID string) (bool, error) {
	role, ok, err := r.RoleOf(orgID, userID)
	if err != nil || !ok {
		return false, err
	}
	return role == models.RoleOwner, nil
}
