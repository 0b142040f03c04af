package authz

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/database"
	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/models"
)

func setup(t *testing.T) (*Resolver, *models.User, *models.User, *models.Organization) {
	t.Helper()
	db := database.NewLocalDatabase()

	owner := &models.User{Email: "owner@cidery.test", Password: "hash"}
	require.NoError(t, db.CreateUser(owner))
	member := &models.User{Email: "member@cidery.test", Password: "hash"}
	require.NoError(t, db.CreateUser(member))

	org := &models.Organization{Name: "Cidery", OwnerID: owner.ID, TeamSize: models.TeamSizeSmall}
	require.NoError(t, db.CreateOrganization(org))
	require.NoError(t, db.AddOrganizationMember(&models.OrganizationMembership{
		OrganizationID: org.ID,
		UserID:         member.ID,
		Role:           models.RoleMember,
	}))

	return NewResolver(db), owner, member, org
}

func TestRoleOfOwner(t *testing.T) {
	r, owner, _, org := setup(t)

	role, ok, err := r.RoleOf(org.ID, owner.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.RoleOwner, role)
}

func TestRoleOfMember(t *testing.T) {
	r, _, member, org := setup(t)

	role, ok, err := r.RoleOf(org.ID, member.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.RoleMember, role)
}

func TestRoleOfStrangerIsFalseNotError(t *testing.T) {
	r, _, _, org := setup(t)

	_, ok, err := r.RoleOf(org.ID, "stranger")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRoleOfMissingOrganizationIsFalseNotError(t *testing.T) {
	r, owner, _, _ := setup(t)

	_, ok, err := r.RoleOf("no-such-org", owner.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

// brokenStore simulates a backend whose organization reads fail with
// something other than a missing row.
type brokenStore struct {
	database.DatabaseInterface
}

func (s *brokenStore) GetOrganization(orgID string) (*models.Organization, error) {
	return nil, errors.New("connection refused")
}

func TestRoleOfStoreFailurePropagates(t *testing.T) {
	r := NewResolver(&brokenStore{DatabaseInterface: database.NewLocalDatabase()})

	_, ok, err := r.RoleOf("any-org", "any-user")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestIsMemberAndIsOwner(t *testing.T) {
	r, owner, member, org := setup(t)

	ok, err := r.IsMember(org.ID, member.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.IsOwner(org.ID, member.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.IsOwner(org.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}
