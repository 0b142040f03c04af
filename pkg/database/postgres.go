package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/models"
)

// PostgresDatabase PostgreSQL数据库实现
type PostgresDatabase struct {
	db *sql.DB
}

// NewPostgresDatabase 创建PostgreSQL数据库实例
func NewPostgresDatabase(dsn string) DatabaseInterface {
	// 尝试多种连接策略来解决无服务器环境的IPv6问题
	// Sanitize DSN to avoid stray CR/LF from env values
	dsn = strings.TrimSpace(dsn)
	strategies := []string{
		addConnectionParams(dsn, "prefer_simple_protocol=true"),
		addConnectionParams(dsn, "prefer_simple_protocol=true&connect_timeout=10"),
		addConnectionParams(dsn, "sslmode=require&prefer_simple_protocol=true"),
		dsn, // 最后尝试原始DSN
	}

	var db *sql.DB
	var err error

	for i, strategy := range strategies {
		fmt.Printf("🔄 Trying connection strategy %d...\n", i+1)

		db, err = sql.Open("postgres", strategy)
		if err != nil {
			fmt.Printf("❌ Strategy %d failed to open: %v\n", i+1, err)
			continue
		}

		// 设置连接池参数，适合无服务器环境
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err = db.Ping(); err != nil {
			fmt.Printf("❌ Strategy %d failed to ping: %v\n", i+1, err)
			db.Close()
			continue
		}

		fmt.Printf("✅ PostgreSQL connection established successfully with strategy %d\n", i+1)
		return &PostgresDatabase{db: db}
	}

	panic(fmt.Sprintf("Failed to connect to PostgreSQL with all strategies. Last error: %v", err))
}

// addConnectionParams 添加连接参数到DSN
func addConnectionParams(dsn, params string) string {
	if params == "" {
		return dsn
	}

	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}

	return dsn + separator + params
}

// ================= Users =================

// CreateUser 创建用户
func (db *PostgresDatabase) CreateUser(user *models.User) error {
	query := `
        INSERT INTO users (email, password_hash, name, created_at, updated_at)
        VALUES ($1, $2, $3, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	err := db.db.QueryRow(query, user.Email, user.Password, user.Name).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByEmail 根据邮箱获取用户
func (db *PostgresDatabase) GetUserByEmail(email string) (*models.User, error) {
	query := `
        SELECT id, email, COALESCE(password_hash,''), COALESCE(name,''), created_at, updated_at
        FROM users
        WHERE email = $1
    `
	var u models.User
	err := db.db.QueryRow(query, email).Scan(
		&u.ID, &u.Email, &u.Password, &u.Name, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &u, nil
}

// GetUserByID 根据ID获取用户
func (db *PostgresDatabase) GetUserByID(id string) (*models.User, error) {
	query := `
        SELECT id, email, COALESCE(password_hash,''), COALESCE(name,''), created_at, updated_at
        FROM users
        WHERE id = $1
    `
	var u models.User
	err := db.db.QueryRow(query, id).Scan(
		&u.ID, &u.Email, &u.Password, &u.Name, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// UpdateUser 更新用户
func (db *PostgresDatabase) UpdateUser(user *models.User) error {
	if user.ID == "" {
		return fmt.Errorf("user ID is required for update")
	}
	query := `
        UPDATE users
        SET name = COALESCE(NULLIF($1,''), name),
            password_hash = COALESCE(NULLIF($2,''), password_hash),
            updated_at = NOW()
        WHERE id = $3
    `
	_, err := db.db.Exec(query, user.Name, user.Password, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// ================= Organizations & Memberships =================

// CreateOrganization 创建组织及其所有者成员关系（单事务，避免孤儿组织）
func (db *PostgresDatabase) CreateOrganization(org *models.Organization) error {
	tx, err := db.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	err = tx.QueryRow(`
        INSERT INTO organizations (name, owner_id, team_size, created_at, updated_at)
        VALUES ($1, $2, $3, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `, org.Name, org.OwnerID, string(org.TeamSize)).
		Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to create organization: %w", err)
	}
	_, err = tx.Exec(`
        INSERT INTO organization_memberships (organization_id, user_id, role, created_at)
        VALUES ($1, $2, 'owner', NOW())
        ON CONFLICT (organization_id, user_id) DO NOTHING
    `, org.ID, org.OwnerID)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to add owner membership: %w", err)
	}
	return tx.Commit()
}

func (db *PostgresDatabase) GetOrganization(orgID string) (*models.Organization, error) {
	query := `SELECT id, name, owner_id, team_size, created_at, updated_at FROM organizations WHERE id = $1`
	var o models.Organization
	var teamSize string
	err := db.db.QueryRow(query, orgID).Scan(&o.ID, &o.Name, &o.OwnerID, &teamSize, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("organization %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	o.TeamSize = models.TeamSize(teamSize)
	return &o, nil
}

func (db *PostgresDatabase) UpdateOrganization(org *models.Organization) error {
	_, err := db.db.Exec(`
        UPDATE organizations
        SET name = COALESCE($1, name),
            team_size = COALESCE($2, team_size),
            updated_at = NOW()
        WHERE id = $3
    `, nullIfEmpty(org.Name), nullIfEmpty(string(org.TeamSize)), org.ID)
	return err
}

// DeleteOrganization 删除组织；批次与子记录由外键 ON DELETE CASCADE 一并清除
func (db *PostgresDatabase) DeleteOrganization(orgID string) error {
	result, err := db.db.Exec(`DELETE FROM organizations WHERE id = $1`, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("organization %w", ErrNotFound)
	}
	return nil
}

// ListUserOrganizations 列出用户拥有或加入的组织
// owner_id 条件保留了"所有者无成员行也可见"的补偿规则
func (db *PostgresDatabase) ListUserOrganizations(userID string) ([]models.Organization, error) {
	query := `
        SELECT DISTINCT o.id, o.name, o.owner_id, o.team_size, o.created_at, o.updated_at
        FROM organizations o
        LEFT JOIN organization_memberships m ON m.organization_id = o.id
        WHERE o.owner_id = $1 OR m.user_id = $1
        ORDER BY o.created_at DESC
    `
	rows, err := db.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()
	var result []models.Organization
	for rows.Next() {
		var o models.Organization
		var teamSize string
		if err := rows.Scan(&o.ID, &o.Name, &o.OwnerID, &teamSize, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		o.TeamSize = models.TeamSize(teamSize)
		result = append(result, o)
	}
	return result, rows.Err()
}

func nullIfEmpty(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func (db *PostgresDatabase) AddOrganizationMember(m *models.OrganizationMembership) error {
	query := `
        INSERT INTO organization_memberships (organization_id, user_id, role, created_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (organization_id, user_id) DO UPDATE SET role = EXCLUDED.role
        RETURNING id
    `
	return db.db.QueryRow(query, m.OrganizationID, m.UserID, string(m.Role)).Scan(&m.ID)
}

func (db *PostgresDatabase) ListOrganizationMembers(orgID string) ([]models.OrganizationMembership, error) {
	query := `
        SELECT id, organization_id, user_id, role, created_at
        FROM organization_memberships
        WHERE organization_id = $1
        ORDER BY created_at ASC
    `
	rows, err := db.db.Query(query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()
	var result []models.OrganizationMembership
	for rows.Next() {
		var m models.OrganizationMembership
		var role string
		if err := rows.Scan(&m.ID, &m.OrganizationID, &m.UserID, &role, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = models.OrgMemberRole(role)
		result = append(result, m)
	}
	return result, rows.Err()
}

// GetMembership 查询成员关系；无记录时返回 (nil, nil)
func (db *PostgresDatabase) GetMembership(orgID, userID string) (*models.OrganizationMembership, error) {
	query := `
        SELECT id, organization_id, user_id, role, created_at
        FROM organization_memberships
        WHERE organization_id = $1 AND user_id = $2
    `
	var m models.OrganizationMembership
	var role string
	err := db.db.QueryRow(query, orgID, userID).Scan(&m.ID, &m.OrganizationID, &m.UserID, &role, &m.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	m.Role = models.OrgMemberRole(role)
	return &m, nil
}

// ================= Invitations =================

func (db *PostgresDatabase) CreateInvitation(inv *models.OrganizationInvitation) error {
	query := `
        INSERT INTO organization_invitations (organization_id, email, inviter_id, token, status, expires_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	return db.db.QueryRow(query, inv.OrganizationID, inv.Email, inv.InviterID, inv.Token, string(inv.Status), inv.ExpiresAt).
		Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
}

func (db *PostgresDatabase) GetInvitationByToken(token string) (*models.OrganizationInvitation, error) {
	var inv models.OrganizationInvitation
	var status string
	err := db.db.QueryRow(`
        SELECT id, organization_id, email, inviter_id, token, status, expires_at, accepted_by, created_at, updated_at
        FROM organization_invitations WHERE token = $1
    `, token).Scan(&inv.ID, &inv.OrganizationID, &inv.Email, &inv.InviterID, &inv.Token, &status, &inv.ExpiresAt, &inv.AcceptedBy, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("invitation %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	inv.Status = models.InvitationStatus(status)
	return &inv, nil
}

func (db *PostgresDatabase) ListInvitationsByEmail(email string) ([]models.OrganizationInvitation, error) {
	rows, err := db.db.Query(`
        SELECT id, organization_id, email, inviter_id, token, status, expires_at, accepted_by, created_at, updated_at
        FROM organization_invitations WHERE email = $1 ORDER BY created_at DESC
    `, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()
	var list []models.OrganizationInvitation
	for rows.Next() {
		var inv models.OrganizationInvitation
		var status string
		if err := rows.Scan(&inv.ID, &inv.OrganizationID, &inv.Email, &inv.InviterID, &inv.Token, &status, &inv.ExpiresAt, &inv.AcceptedBy, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		inv.Status = models.InvitationStatus(status)
		list = append(list, inv)
	}
	return list, rows.Err()
}

func (db *PostgresDatabase) UpdateInvitation(inv *models.OrganizationInvitation) error {
	_, err := db.db.Exec(`
        UPDATE organization_invitations SET status=$1, accepted_by=$2, expires_at=$3, updated_at=NOW() WHERE id=$4
    `, string(inv.Status), inv.AcceptedBy, inv.ExpiresAt, inv.ID)
	return err
}

// ================= Batches =================

func (db *PostgresDatabase) CreateBatch(b *models.Batch) error {
	query := `
        INSERT INTO batches (organization_id, name, variety, volume, current_stage, start_date, created_by, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	err := db.db.QueryRow(query, b.OrganizationID, b.Name, b.Variety, b.Volume, string(b.CurrentStage), b.StartDate, b.CreatedBy).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) GetBatch(id string) (*models.Batch, error) {
	query := `
        SELECT id, organization_id, name, COALESCE(variety,''), volume, current_stage, start_date, created_by, created_at, updated_at
        FROM batches WHERE id = $1
    `
	var b models.Batch
	var stage string
	err := db.db.QueryRow(query, id).Scan(
		&b.ID, &b.OrganizationID, &b.Name, &b.Variety, &b.Volume, &stage, &b.StartDate, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("batch %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	b.CurrentStage = models.Stage(stage)
	return &b, nil
}

// UpdateBatch 更新批次的可编辑字段；阶段只能通过 AdvanceBatchStage 前进
func (db *PostgresDatabase) UpdateBatch(b *models.Batch) error {
	_, err := db.db.Exec(`
        UPDATE batches
        SET name = $1, variety = $2, volume = $3, start_date = $4, updated_at = NOW()
        WHERE id = $5
    `, b.Name, b.Variety, b.Volume, b.StartDate, b.ID)
	if err != nil {
		return fmt.Errorf("failed to update batch: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) DeleteBatch(id string) error {
	result, err := db.db.Exec(`DELETE FROM batches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("batch %w", ErrNotFound)
	}
	return nil
}

func (db *PostgresDatabase) ListBatchesByOrganization(orgID string) ([]models.Batch, error) {
	rows, err := db.db.Query(`
        SELECT id, organization_id, name, COALESCE(variety,''), volume, current_stage, start_date, created_by, created_at, updated_at
        FROM batches WHERE organization_id = $1 ORDER BY created_at DESC
    `, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()
	var list []models.Batch
	for rows.Next() {
		var b models.Batch
		var stage string
		if err := rows.Scan(&b.ID, &b.OrganizationID, &b.Name, &b.Variety, &b.Volume, &stage, &b.StartDate, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		b.CurrentStage = models.Stage(stage)
		list = append(list, b)
	}
	return list, rows.Err()
}

// AdvanceBatchStage 条件更新：行必须仍属于该组织且仍处于期望阶段
func (db *PostgresDatabase) AdvanceBatchStage(batchID, orgID string, from, to models.Stage) (bool, error) {
	result, err := db.db.Exec(`
        UPDATE batches
        SET current_stage = $1, updated_at = NOW()
        WHERE id = $2 AND organization_id = $3 AND current_stage = $4
    `, string(to), batchID, orgID, string(from))
	if err != nil {
		return false, fmt.Errorf("failed to advance batch stage: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

// ================= Fermentation logs =================

func (db *PostgresDatabase) CreateFermentationLog(l *models.FermentationLog) error {
	query := `
        INSERT INTO fermentation_logs (batch_id, recorded_at, temperature, specific_gravity, ph, notes, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	err := db.db.QueryRow(query, l.BatchID, l.RecordedAt, l.Temperature, l.SpecificGravity, l.PH, l.Notes).
		Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create fermentation log: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) GetFermentationLog(id string) (*models.FermentationLog, error) {
	query := `
        SELECT id, batch_id, recorded_at, temperature, specific_gravity, ph, COALESCE(notes,''), created_at, updated_at
        FROM fermentation_logs WHERE id = $1
    `
	var l models.FermentationLog
	err := db.db.QueryRow(query, id).Scan(
		&l.ID, &l.BatchID, &l.RecordedAt, &l.Temperature, &l.SpecificGravity, &l.PH, &l.Notes, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("fermentation log %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get fermentation log: %w", err)
	}
	return &l, nil
}

func (db *PostgresDatabase) UpdateFermentationLog(l *models.FermentationLog) error {
	_, err := db.db.Exec(`
        UPDATE fermentation_logs
        SET recorded_at=$1, temperature=$2, specific_gravity=$3, ph=$4, notes=$5, updated_at=NOW()
        WHERE id=$6
    `, l.RecordedAt, l.Temperature, l.SpecificGravity, l.PH, l.Notes, l.ID)
	return err
}

func (db *PostgresDatabase) DeleteFermentationLog(id string) error {
	result, err := db.db.Exec(`DELETE FROM fermentation_logs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete fermentation log: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("fermentation log %w", ErrNotFound)
	}
	return nil
}

func (db *PostgresDatabase) ListFermentationLogsByBatch(batchID string) ([]models.FermentationLog, error) {
	rows, err := db.db.Query(`
        SELECT id, batch_id, recorded_at, temperature, specific_gravity, ph, COALESCE(notes,''), created_at, updated_at
        FROM fermentation_logs WHERE batch_id = $1 ORDER BY recorded_at DESC
    `, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fermentation logs: %w", err)
	}
	defer rows.Close()
	var list []models.FermentationLog
	for rows.Next() {
		var l models.FermentationLog
		if err := rows.Scan(&l.ID, &l.BatchID, &l.RecordedAt, &l.Temperature, &l.SpecificGravity, &l.PH, &l.Notes, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

// ================= Tasting notes =================

func (db *PostgresDatabase) CreateTastingNote(n *models.TastingNote) error {
	query := `
        INSERT INTO tasting_notes (batch_id, recorded_at, sweetness, acidity, body, aroma, flavor, finish, notes, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	err := db.db.QueryRow(query, n.BatchID, n.RecordedAt, n.Sweetness, n.Acidity, n.Body, n.Aroma, n.Flavor, n.Finish, n.Notes).
		Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create tasting note: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) GetTastingNote(id string) (*models.TastingNote, error) {
	query := `
        SELECT id, batch_id, recorded_at, sweetness, acidity, body,
               COALESCE(aroma,''), COALESCE(flavor,''), COALESCE(finish,''), COALESCE(notes,''),
               created_at, updated_at
        FROM tasting_notes WHERE id = $1
    `
	var n models.TastingNote
	err := db.db.QueryRow(query, id).Scan(
		&n.ID, &n.BatchID, &n.RecordedAt, &n.Sweetness, &n.Acidity, &n.Body,
		&n.Aroma, &n.Flavor, &n.Finish, &n.Notes, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("tasting note %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get tasting note: %w", err)
	}
	return &n, nil
}

func (db *PostgresDatabase) UpdateTastingNote(n *models.TastingNote) error {
	_, err := db.db.Exec(`
        UPDATE tasting_notes
        SET recorded_at=$1, sweetness=$2, acidity=$3, body=$4, aroma=$5, flavor=$6, finish=$7, notes=$8, updated_at=NOW()
        WHERE id=$9
    `, n.RecordedAt, n.Sweetness, n.Acidity, n.Body, n.Aroma, n.Flavor, n.Finish, n.Notes, n.ID)
	return err
}

func (db *PostgresDatabase) DeleteTastingNote(id string) error {
	result, err := db.db.Exec(`DELETE FROM tasting_notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tasting note: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("tasting note %w", ErrNotFound)
	}
	return nil
}

func (db *PostgresDatabase) ListTastingNotesByBatch(batchID string) ([]models.TastingNote, error) {
	rows, err := db.db.Query(`
        SELECT id, batch_id, recorded_at, sweetness, acidity, body,
               COALESCE(aroma,''), COALESCE(flavor,''), COALESCE(finish,''), COALESCE(notes,''),
               created_at, updated_at
        FROM tasting_notes WHERE batch_id = $1 ORDER BY recorded_at DESC
    `, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasting notes: %w", err)
	}
	defer rows.Close()
	var list []models.TastingNote
	for rows.Next() {
		var n models.TastingNote
		if err := rows.Scan(&n.ID, &n.BatchID, &n.RecordedAt, &n.Sweetness, &n.Acidity, &n.Body,
			&n.Aroma, &n.Flavor, &n.Finish, &n.Notes, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

// ================= Packaging schedules =================

func (db *PostgresDatabase) CreatePackagingSchedule(p *models.PackagingSchedule) error {
	query := `
        INSERT INTO packaging_schedules (batch_id, target_date, format, quantity, notes, completed_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	err := db.db.QueryRow(query, p.BatchID, p.TargetDate, string(p.Format), p.Quantity, p.Notes, p.CompletedAt).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create packaging schedule: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) GetPackagingSchedule(id string) (*models.PackagingSchedule, error) {
	query := `
        SELECT id, batch_id, target_date, format, quantity, COALESCE(notes,''), completed_at, created_at, updated_at
        FROM packaging_schedules WHERE id = $1
    `
	var p models.PackagingSchedule
	var format string
	err := db.db.QueryRow(query, id).Scan(
		&p.ID, &p.BatchID, &p.TargetDate, &format, &p.Quantity, &p.Notes, &p.CompletedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("packaging schedule %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get packaging schedule: %w", err)
	}
	p.Format = models.PackagingFormat(format)
	return &p, nil
}

func (db *PostgresDatabase) UpdatePackagingSchedule(p *models.PackagingSchedule) error {
	// completed_at 不在此处更新；只能通过 CompletePackagingSchedule 设置一次
	_, err := db.db.Exec(`
        UPDATE packaging_schedules
        SET target_date=$1, format=$2, quantity=$3, notes=$4, updated_at=NOW()
        WHERE id=$5
    `, p.TargetDate, string(p.Format), p.Quantity, p.Notes, p.ID)
	return err
}

func (db *PostgresDatabase) DeletePackagingSchedule(id string) error {
	result, err := db.db.Exec(`DELETE FROM packaging_schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete packaging schedule: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("packaging schedule %w", ErrNotFound)
	}
	return nil
}

func (db *PostgresDatabase) ListPackagingSchedulesByBatch(batchID string) ([]models.PackagingSchedule, error) {
	rows, err := db.db.Query(`
        SELECT id, batch_id, target_date, format, quantity, COALESCE(notes,''), completed_at, created_at, updated_at
        FROM packaging_schedules WHERE batch_id = $1 ORDER BY target_date ASC
    `, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list packaging schedules: %w", err)
	}
	defer rows.Close()
	var list []models.PackagingSchedule
	for rows.Next() {
		var p models.PackagingSchedule
		var format string
		if err := rows.Scan(&p.ID, &p.BatchID, &p.TargetDate, &format, &p.Quantity, &p.Notes, &p.CompletedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Format = models.PackagingFormat(format)
		list = append(list, p)
	}
	return list, rows.Err()
}

// CompletePackagingSchedule 首次完成时写入时间戳；已完成的保持原值
func (db *PostgresDatabase) CompletePackagingSchedule(id string, at time.Time) (*models.PackagingSchedule, error) {
	_, err := db.db.Exec(`
        UPDATE packaging_schedules
        SET completed_at = $1, updated_at = NOW()
        WHERE id = $2 AND completed_at IS NULL
    `, at, id)
	if err != nil {
		return nil, fmt.Errorf("failed to complete packaging schedule: %w", err)
	}
	return db.GetPackagingSchedule(id)
}

// HealthCheck 健康检查
func (db *PostgresDatabase) HealthCheck() error {
	return db.db.Ping()
}

// Close 关闭连接
func (db *PostgresDatabase) Close() error {
	return db.db.Close()
}
