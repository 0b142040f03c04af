package database

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/models"
)

func newLocalWithOrg(t *testing.T) (DatabaseInterface, *models.User, *models.Organization) {
	t.Helper()
	db := NewLocalDatabase()

	user := &models.User{Email: "owner@cidery.test", Password: "hash", Name: "Owner"}
	require.NoError(t, db.CreateUser(user))

	org := &models.Organization{Name: "Test Cidery", OwnerID: user.ID, TeamSize: models.TeamSizeSmall}
	require.NoError(t, db.CreateOrganization(org))

	return db, user, org
}

func newBatch(t *testing.T, db DatabaseInterface, orgID, userID string) *models.Batch {
	t.Helper()
	b := &models.Batch{
		OrganizationID: orgID,
		Name:           "Autumn Blend",
		Variety:        "Kingston Black",
		Volume:         decimal.NewFromFloat(120.5),
		CurrentStage:   models.StagePressing,
		StartDate:      time.Now(),
		CreatedBy:      userID,
	}
	require.NoError(t, db.CreateBatch(b))
	return b
}

func TestCreateOrganizationWritesOwnerMembership(t *testing.T) {
	db, user, org := newLocalWithOrg(t)

	m, err := db.GetMembership(org.ID, user.ID)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, models.RoleOwner, m.Role)
}

func TestGetMembershipAbsenceIsNilNil(t *testing.T) {
	db, _, org := newLocalWithOrg(t)

	m, err := db.GetMembership(org.ID, "no-such-user")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestAddOrganizationMemberUpsertsRole(t *testing.T) {
	db, _, org := newLocalWithOrg(t)

	other := &models.User{Email: "member@cidery.test", Password: "hash"}
	require.NoError(t, db.CreateUser(other))

	m := &models.OrganizationMembership{OrganizationID: org.ID, UserID: other.ID, Role: models.RoleMember}
	require.NoError(t, db.AddOrganizationMember(m))
	firstID := m.ID

	// 同一 (org, user) 再次添加只更新角色
	again := &models.OrganizationMembership{OrganizationID: org.ID, UserID: other.ID, Role: models.RoleAdmin}
	require.NoError(t, db.AddOrganizationMember(again))
	assert.Equal(t, firstID, again.ID)
	assert.Equal(t, models.RoleAdmin, again.Role)

	members, err := db.ListOrganizationMembers(org.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2) // owner + member
}

func TestListUserOrganizationsOwnerWithoutMembershipRow(t *testing.T) {
	db := NewLocalDatabase().(*LocalDatabase)

	user := &models.User{Email: "orphan-owner@cidery.test", Password: "hash"}
	require.NoError(t, db.CreateUser(user))

	// 直接写入组织、不写成员行，模拟入驻中途失败留下的孤儿组织
	db.mu.Lock()
	db.orgs["orphan-org"] = models.Organization{ID: "orphan-org", Name: "Orphan", OwnerID: user.ID}
	db.mu.Unlock()

	orgs, err := db.ListUserOrganizations(user.ID)
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	assert.Equal(t, "orphan-org", orgs[0].ID)
}

func TestAdvanceBatchStageConditional(t *testing.T) {
	db, user, org := newLocalWithOrg(t)
	b := newBatch(t, db, org.ID, user.ID)

	moved, err := db.AdvanceBatchStage(b.ID, org.ID, models.StagePressing, models.StageFermenting)
	require.NoError(t, err)
	assert.True(t, moved)

	// 期望阶段已不匹配：零行命中
	moved, err = db.AdvanceBatchStage(b.ID, org.ID, models.StagePressing, models.StageFermenting)
	require.NoError(t, err)
	assert.False(t, moved)

	// 组织不匹配：零行命中
	moved, err = db.AdvanceBatchStage(b.ID, "other-org", models.StageFermenting, models.StageAging)
	require.NoError(t, err)
	assert.False(t, moved)

	got, err := db.GetBatch(b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageFermenting, got.CurrentStage)
}

func TestDeleteOrganizationCascades(t *testing.T) {
	db, user, org := newLocalWithOrg(t)
	b := newBatch(t, db, org.ID, user.ID)

	log := &models.FermentationLog{BatchID: b.ID, RecordedAt: time.Now()}
	require.NoError(t, db.CreateFermentationLog(log))
	note := &models.TastingNote{BatchID: b.ID, RecordedAt: time.Now()}
	require.NoError(t, db.CreateTastingNote(note))
	qty := 200
	sched := &models.PackagingSchedule{BatchID: b.ID, TargetDate: time.Now(), Format: models.FormatBottle, Quantity: &qty}
	require.NoError(t, db.CreatePackagingSchedule(sched))

	require.NoError(t, db.DeleteOrganization(org.ID))

	_, err := db.GetOrganization(org.ID)
	assert.Error(t, err)
	_, err = db.GetBatch(b.ID)
	assert.Error(t, err)
	_, err = db.GetFermentationLog(log.ID)
	assert.Error(t, err)
	_, err = db.GetTastingNote(note.ID)
	assert.Error(t, err)
	_, err = db.GetPackagingSchedule(sched.ID)
	assert.Error(t, err)

	m, err := db.GetMembership(org.ID, user.ID)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestDeleteBatchCascadesSubRecords(t *testing.T) {
	db, user, org := newLocalWithOrg(t)
	b := newBatch(t, db, org.ID, user.ID)

	log := &models.FermentationLog{BatchID: b.ID, RecordedAt: time.Now()}
	require.NoError(t, db.CreateFermentationLog(log))

	require.NoError(t, db.DeleteBatch(b.ID))

	_, err := db.GetFermentationLog(log.ID)
	assert.Error(t, err)

	// 组织本身不受影响
	_, err = db.GetOrganization(org.ID)
	assert.NoError(t, err)
}

func TestCompletePackagingScheduleIsMonotonic(t *testing.T) {
	db, user, org := newLocalWithOrg(t)
	b := newBatch(t, db, org.ID, user.ID)

	sched := &models.PackagingSchedule{BatchID: b.ID, TargetDate: time.Now(), Format: models.FormatKeg}
	require.NoError(t, db.CreatePackagingSchedule(sched))

	first := time.Now().Add(-time.Hour)
	done, err := db.CompletePackagingSchedule(sched.ID, first)
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	assert.True(t, done.CompletedAt.Equal(first))

	// 重复完成保持首次时间戳
	later := time.Now()
	done, err = db.CompletePackagingSchedule(sched.ID, later)
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	assert.True(t, done.CompletedAt.Equal(first))
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	db := NewLocalDatabase()

	u := &models.User{Email: "dup@cidery.test", Password: "hash"}
	require.NoError(t, db.CreateUser(u))

	dup := &models.User{Email: "dup@cidery.test", Password: "hash"}
	assert.Error(t, db.CreateUser(dup))
}
