package database

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/models"
)

// LocalDatabase 内存数据库实现（开发与测试用，进程退出即丢失）
// 所有读写都在同一把锁下完成，模拟远端存储的单行原子更新语义。
type LocalDatabase struct {
	mu sync.RWMutex

	users       map[string]models.User
	orgs        map[string]models.Organization
	memberships map[string]models.OrganizationMembership
	invitations map[string]models.OrganizationInvitation
	batches     map[string]models.Batch
	logs        map[string]models.FermentationLog
	notes       map[string]models.TastingNote
	schedules   map[string]models.PackagingSchedule
}

// NewLocalDatabase 创建内存数据库实例
func NewLocalDatabase() DatabaseInterface {
	return &LocalDatabase{
		users:       make(map[string]models.User),
		orgs:        make(map[string]models.Organization),
		memberships: make(map[string]models.OrganizationMembership),
		invitations: make(map[string]models.OrganizationInvitation),
		batches:     make(map[string]models.Batch),
		logs:        make(map[string]models.FermentationLog),
		notes:       make(map[string]models.TastingNote),
		schedules:   make(map[string]models.PackagingSchedule),
	}
}

// ================= Users =================

func (db *LocalDatabase) CreateUser(user *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, u := range db.users {
		if u.Email == user.Email {
			return fmt.Errorf("user already exists")
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	db.users[user.ID] = *user
	return nil
}

func (db *LocalDatabase) GetUserByEmail(email string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, u := range db.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, fmt.Errorf("user %w", ErrNotFound)
}

func (db *LocalDatabase) GetUserByID(id string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	u, ok := db.users[id]
	if !ok {
		return nil, fmt.Errorf("user %w", ErrNotFound)
	}
	out := u
	return &out, nil
}

func (db *LocalDatabase) UpdateUser(user *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	existing, ok := db.users[user.ID]
	if !ok {
		return fmt.Errorf("user %w", ErrNotFound)
	}
	if user.Name != "" {
		existing.Name = user.Name
	}
	if user.Password != "" {
		existing.Password = user.Password
	}
	existing.UpdatedAt = time.Now()
	db.users[user.ID] = existing
	*user = existing
	return nil
}

// ================= Organizations & Memberships =================

func (db *LocalDatabase) CreateOrganization(org *models.Organization) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if org.ID == "" {
		org.ID = uuid.New().String()
	}
	now := time.Now()
	org.CreatedAt = now
	org.UpdatedAt = now
	db.orgs[org.ID] = *org

	// owner membership（与组织同一临界区内写入，等价于事务）
	m := models.OrganizationMembership{
		ID:             uuid.New().String(),
		OrganizationID: org.ID,
		UserID:         org.OwnerID,
		Role:           models.RoleOwner,
		CreatedAt:      now,
	}
	db.memberships[m.ID] = m
	return nil
}

func (db *LocalDatabase) GetOrganization(orgID string) (*models.Organization, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	o, ok := db.orgs[orgID]
	if !ok {
		return nil, fmt.Errorf("organization %w", ErrNotFound)
	}
	out := o
	return &out, nil
}

func (db *LocalDatabase) UpdateOrganization(org *models.Organization) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	existing, ok := db.orgs[org.ID]
	if !ok {
		return fmt.Errorf("organization %w", ErrNotFound)
	}
	if org.Name != "" {
		existing.Name = org.Name
	}
	if org.TeamSize != "" {
		existing.TeamSize = org.TeamSize
	}
	existing.UpdatedAt = time.Now()
	db.orgs[org.ID] = existing
	*org = existing
	return nil
}

// DeleteOrganization 级联删除：成员、邀请、批次及全部批次子记录
func (db *LocalDatabase) DeleteOrganization(orgID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.orgs[orgID]; !ok {
		return fmt.Errorf("organization %w", ErrNotFound)
	}
	delete(db.orgs, orgID)
	for id, m := range db.memberships {
		if m.OrganizationID == orgID {
			delete(db.memberships, id)
		}
	}
	for id, inv := range db.invitations {
		if inv.OrganizationID == orgID {
			delete(db.invitations, id)
		}
	}
	for id, b := range db.batches {
		if b.OrganizationID == orgID {
			db.deleteBatchCascadeLocked(id)
		}
	}
	return nil
}

func (db *LocalDatabase) ListUserOrganizations(userID string) ([]models.Organization, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	seen := map[string]bool{}
	var result []models.Organization
	// 所有者补偿规则：即使缺少成员行，所有者仍能看到自己的组织
	for _, o := range db.orgs {
		if o.OwnerID == userID {
			seen[o.ID] = true
			result = append(result, o)
		}
	}
	for _, m := range db.memberships {
		if m.UserID == userID && !seen[m.OrganizationID] {
			if o, ok := db.orgs[m.OrganizationID]; ok {
				seen[o.ID] = true
				result = append(result, o)
			}
		}
	}
	return result, nil
}

func (db *LocalDatabase) AddOrganizationMember(m *models.OrganizationMembership) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	// (organization_id, user_id) 唯一：已存在则更新角色
	for id, existing := range db.memberships {
		if existing.OrganizationID == m.OrganizationID && existing.UserID == m.UserID {
			existing.Role = m.Role
			db.memberships[id] = existing
			*m = existing
			return nil
		}
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = time.Now()
	db.memberships[m.ID] = *m
	return nil
}

func (db *LocalDatabase) ListOrganizationMembers(orgID string) ([]models.OrganizationMembership, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var result []models.OrganizationMembership
	for _, m := range db.memberships {
		if m.OrganizationID == orgID {
			result = append(result, m)
		}
	}
	return result, nil
}

func (db *LocalDatabase) GetMembership(orgID, userID string) (*models.OrganizationMembership, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, m := range db.memberships {
		if m.OrganizationID == orgID && m.UserID == userID {
			out := m
			return &out, nil
		}
	}
	return nil, nil
}

// ================= Invitations =================

func (db *LocalDatabase) CreateInvitation(inv *models.OrganizationInvitation) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	now := time.Now()
	inv.CreatedAt = now
	inv.UpdatedAt = now
	db.invitations[inv.ID] = *inv
	return nil
}

func (db *LocalDatabase) GetInvitationByToken(token string) (*models.OrganizationInvitation, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, inv := range db.invitations {
		if inv.Token == token {
			out := inv
			return &out, nil
		}
	}
	return nil, fmt.Errorf("invitation %w", ErrNotFound)
}

func (db *LocalDatabase) ListInvitationsByEmail(email string) ([]models.OrganizationInvitation, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var result []models.OrganizationInvitation
	for _, inv := range db.invitations {
		if inv.Email == email {
			result = append(result, inv)
		}
	}
	return result, nil
}

func (db *LocalDatabase) UpdateInvitation(inv *models.OrganizationInvitation) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.invitations[inv.ID]; !ok {
		return fmt.Errorf("invitation %w", ErrNotFound)
	}
	inv.UpdatedAt = time.Now()
	db.invitations[inv.ID] = *inv
	return nil
}

// ================= Batches =================

func (db *LocalDatabase) CreateBatch(b *models.Batch) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.orgs[b.OrganizationID]; !ok {
		return fmt.Errorf("organization %w", ErrNotFound)
	}
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now
	db.batches[b.ID] = *b
	return nil
}

func (db *LocalDatabase) GetBatch(id string) (*models.Batch, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	b, ok := db.batches[id]
	if !ok {
		return nil, fmt.Errorf("batch %w", ErrNotFound)
	}
	out := b
	return &out, nil
}

func (db *LocalDatabase) UpdateBatch(b *models.Batch) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	existing, ok := db.batches[b.ID]
	if !ok {
		return fmt.Errorf("batch %w", ErrNotFound)
	}
	existing.Name = b.Name
	existing.Variety = b.Variety
	existing.Volume = b.Volume
	existing.StartDate = b.StartDate
	existing.UpdatedAt = time.Now()
	db.batches[b.ID] = existing
	*b = existing
	return nil
}

func (db *LocalDatabase) DeleteBatch(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.batches[id]; !ok {
		return fmt.Errorf("batch %w", ErrNotFound)
	}
	db.deleteBatchCascadeLocked(id)
	return nil
}

// deleteBatchCascadeLocked 删除批次及其子记录；调用方必须持有写锁
func (db *LocalDatabase) deleteBatchCascadeLocked(id string) {
	delete(db.batches, id)
	for lid, l := range db.logs {
		if l.BatchID == id {
			delete(db.logs, lid)
		}
	}
	for nid, n := range db.notes {
		if n.BatchID == id {
			delete(db.notes, nid)
		}
	}
	for pid, p := range db.schedules {
		if p.BatchID == id {
			delete(db.schedules, pid)
		}
	}
}

func (db *LocalDatabase) ListBatchesByOrganization(orgID string) ([]models.Batch, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var result []models.Batch
	for _, b := range db.batches {
		if b.OrganizationID == orgID {
			result = append(result, b)
		}
	}
	return result, nil
}

func (db *LocalDatabase) AdvanceBatchStage(batchID, orgID string, from, to models.Stage) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	b, ok := db.batches[batchID]
	if !ok || b.OrganizationID != orgID || b.CurrentStage != from {
		return false, nil
	}
	b.CurrentStage = to
	b.UpdatedAt = time.Now()
	db.batches[batchID] = b
	return true, nil
}

// ================= Fermentation logs =================

func (db *LocalDatabase) CreateFermentationLog(l *models.FermentationLog) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.batches[l.BatchID]; !ok {
		return fmt.Errorf("batch %w", ErrNotFound)
	}
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	now := time.Now()
	l.CreatedAt = now
	l.UpdatedAt = now
	db.logs[l.ID] = *l
	return nil
}

func (db *LocalDatabase) GetFermentationLog(id string) (*models.FermentationLog, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	l, ok := db.logs[id]
	if !ok {
		return nil, fmt.Errorf("fermentation log %w", ErrNotFound)
	}
	out := l
	return &out, nil
}

func (db *LocalDatabase) UpdateFermentationLog(l *models.FermentationLog) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	existing, ok := db.logs[l.ID]
	if !ok {
		return fmt.Errorf("fermentation log %w", ErrNotFound)
	}
	existing.RecordedAt = l.RecordedAt
	existing.Temperature = l.Temperature
	existing.SpecificGravity = l.SpecificGravity
	existing.PH = l.PH
	existing.Notes = l.Notes
	existing.UpdatedAt = time.Now()
	db.logs[l.ID] = existing
	*l = existing
	return nil
}

func (db *LocalDatabase) DeleteFermentationLog(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.logs[id]; !ok {
		return fmt.Errorf("fermentation log %w", ErrNotFound)
	}
	delete(db.logs, id)
	return nil
}

func (db *LocalDatabase) ListFermentationLogsByBatch(batchID string) ([]models.FermentationLog, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var result []models.FermentationLog
	for _, l := range db.logs {
		if l.BatchID == batchID {
			result = append(result, l)
		}
	}
	return result, nil
}

// ================= Tasting notes =================

func (db *LocalDatabase) CreateTastingNote(n *models.TastingNote) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.batches[n.BatchID]; !ok {
		return fmt.Errorf("batch %w", ErrNotFound)
	}
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	now := time.Now()
	n.CreatedAt = now
	n.UpdatedAt = now
	db.notes[n.ID] = *n
	return nil
}

func (db *LocalDatabase) GetTastingNote(id string) (*models.TastingNote, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	n, ok := db.notes[id]
	if !ok {
		return nil, fmt.Errorf("tasting note %w", ErrNotFound)
	}
	out := n
	return &out, nil
}

func (db *LocalDatabase) UpdateTastingNote(n *models.TastingNote) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	existing, ok := db.notes[n.ID]
	if !ok {
		return fmt.Errorf("tasting note %w", ErrNotFound)
	}
	existing.RecordedAt = n.RecordedAt
	existing.Sweetness = n.Sweetness
	existing.Acidity = n.Acidity
	existing.Body = n.Body
	existing.Aroma = n.Aroma
	existing.Flavor = n.Flavor
	existing.Finish = n.Finish
	existing.Notes = n.Notes
	existing.UpdatedAt = time.Now()
	db.notes[n.ID] = existing
	*n = existing
	return nil
}

func (db *LocalDatabase) DeleteTastingNote(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.notes[id]; !ok {
		return fmt.Errorf("tasting note %w", ErrNotFound)
	}
	delete(db.notes, id)
	return nil
}

func (db *LocalDatabase) ListTastingNotesByBatch(batchID string) ([]models.TastingNote, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var result []models.TastingNote
	for _, n := range db.notes {
		if n.BatchID == batchID {
			result = append(result, n)
		}
	}
	return result, nil
}

// ================= Packaging schedules =================

func (db *LocalDatabase) CreatePackagingSchedule(p *models.PackagingSchedule) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.batches[p.BatchID]; !ok {
		return fmt.Errorf("batch %w", ErrNotFound)
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	db.schedules[p.ID] = *p
	return nil
}

func (db *LocalDatabase) GetPackagingSchedule(id string) (*models.PackagingSchedule, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	p, ok := db.schedules[id]
	if !ok {
		return nil, fmt.Errorf("packaging schedule %w", ErrNotFound)
	}
	out := p
	return &out, nil
}

func (db *LocalDatabase) UpdatePackagingSchedule(p *models.PackagingSchedule) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	existing, ok := db.schedules[p.ID]
	if !ok {
		return fmt.Errorf("packaging schedule %w", ErrNotFound)
	}
	existing.TargetDate = p.TargetDate
	existing.Format = p.Format
	existing.Quantity = p.Quantity
	existing.Notes = p.Notes
	existing.UpdatedAt = time.Now()
	db.schedules[p.ID] = existing
	*p = existing
	return nil
}

func (db *LocalDatabase) DeletePackagingSchedule(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.schedules[id]; !ok {
		return fmt.Errorf("packaging schedule %w", ErrNotFound)
	}
	delete(db.schedules, id)
	return nil
}

func (db *LocalDatabase) ListPackagingSchedulesByBatch(batchID string) ([]models.PackagingSchedule, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var result []models.PackagingSchedule
	for _, p := range db.schedules {
		if p.BatchID == batchID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (db *LocalDatabase) CompletePackagingSchedule(id string, at time.Time) (*models.PackagingSchedule, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	p, ok := db.schedules[id]
	if !ok {
		return nil, fmt.Errorf("packaging schedule %w", ErrNotFound)
	}
	// completed_at 单调：只在第一次完成时写入
	if p.CompletedAt == nil {
		ts := at
		p.CompletedAt = &ts
		p.UpdatedAt = time.Now()
		db.schedules[id] = p
	}
	out := p
	return &out, nil
}

// HealthCheck 健康检查
func (db *LocalDatabase) HealthCheck() error {
	return nil
}

// Close 关闭连接
func (db *LocalDatabase) Close() error {
	return nil
}
