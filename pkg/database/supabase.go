package database

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/models"
)

// SupabaseDatabase Supabase数据库实现（PostgREST）
type SupabaseDatabase struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewSupabaseDatabase 创建Supabase数据库实例
func NewSupabaseDatabase(url, key string) DatabaseInterface {
	// 确保URL格式正确
	if !strings.HasPrefix(url, "http") {
		url = "https://" + url
	}

	return &SupabaseDatabase{
		baseURL: url,
		apiKey:  key,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// makeRequest 发送HTTP请求到Supabase
func (db *SupabaseDatabase) makeRequest(method, endpoint string, body interface{}) ([]byte, error) {
	return db.makeRequestWithHeaders(method, endpoint, body, nil)
}

// makeRequestWithHeaders 发送HTTP请求到Supabase（支持自定义头）
func (db *SupabaseDatabase) makeRequestWithHeaders(method, endpoint string, body interface{}, customHeaders map[string]string) ([]byte, error) {
	var reqBody io.Reader

	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	url := db.baseURL + "/rest/v1" + endpoint
	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// 设置默认请求头
	req.Header.Set("apikey", db.apiKey)
	req.Header.Set("Authorization", "Bearer "+db.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	// 设置自定义请求头
	for key, value := range customHeaders {
		req.Header.Set(key, value)
	}

	resp, err := db.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// ================= Users =================

// CreateUser 创建用户
func (db *SupabaseDatabase) CreateUser(user *models.User) error {
	// 不包含id字段，让PostgreSQL自动生成UUID
	userData := map[string]interface{}{
		"email":         user.Email,
		"password_hash": user.Password,
		"name":          user.Name,
	}

	data, err := db.makeRequest("POST", "/users", userData)
	if err != nil {
		return err
	}

	// 解析返回的数据以获取生成的ID
	if len(data) > 0 {
		var rows []map[string]interface{}
		if err := json.Unmarshal(data, &rows); err == nil && len(rows) > 0 {
			if id, ok := rows[0]["id"].(string); ok {
				user.ID = id
			}
		}
	}

	fmt.Printf("👤 Created user %s via Supabase REST\n", user.Email)
	return nil
}

// GetUserByEmail 根据邮箱获取用户
func (db *SupabaseDatabase) GetUserByEmail(email string) (*models.User, error) {
	endpoint := fmt.Sprintf("/users?email=eq.%s&select=*", email)

	data, err := db.makeRequest("GET", endpoint, nil)
	if err != nil {
		return nil, err
	}

	// password_hash 字段无法通过 json tag 反序列化（User 对外隐藏密码）
	var rawUsers []map[string]interface{}
	if err := json.Unmarshal(data, &rawUsers); err != nil {
		return nil, err
	}

	if len(rawUsers) == 0 {
		return nil, fmt.Errorf("user %w", ErrNotFound)
	}

	rawUser := rawUsers[0]
	user := &models.User{
		ID:    rawUser["id"].(string),
		Email: rawUser["email"].(string),
	}
	if hash, ok := rawUser["password_hash"].(string); ok {
		user.Password = hash
	}
	if name, ok := rawUser["name"].(string); ok {
		user.Name = name
	}
	if createdAt, ok := rawUser["created_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			user.CreatedAt = t
		}
	}
	if updatedAt, ok := rawUser["updated_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
			user.UpdatedAt = t
		}
	}

	return user, nil
}

// GetUserByID 根据ID获取用户
func (db *SupabaseDatabase) GetUserByID(id string) (*models.User, error) {
	endpoint := fmt.Sprintf("/users?id=eq.%s&select=*", id)

	data, err := db.makeRequest("GET", endpoint, nil)
	if err != nil {
		return nil, err
	}

	var users []models.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, err
	}

	if len(users) == 0 {
		return nil, fmt.Errorf("user %w", ErrNotFound)
	}

	return &users[0], nil
}

// UpdateUser 更新用户
func (db *SupabaseDatabase) UpdateUser(user *models.User) error {
	userData := map[string]interface{}{
		"updated_at": time.Now().Format(time.RFC3339),
	}
	if user.Name != "" {
		userData["name"] = user.Name
	}
	if user.Password != "" {
		userData["password_hash"] = user.Password
	}

	endpoint := fmt.Sprintf("/users?id=eq.%s", user.ID)
	_, err := db.makeRequest("PATCH", endpoint, userData)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// ================= Organizations & Memberships =================

// CreateOrganization 创建组织及所有者成员行
func (db *SupabaseDatabase) CreateOrganization(org *models.Organization) error {
	payload := map[string]interface{}{
		"name":      org.Name,
		"owner_id":  org.OwnerID,
		"team_size": string(org.TeamSize),
	}
	data, err := db.makeRequest("POST", "/organizations", payload)
	if err != nil {
		return err
	}
	var rows []models.Organization
	if err := json.Unmarshal(data, &rows); err == nil && len(rows) > 0 {
		*org = rows[0]
	}

	// owner membership（REST 无事务；读路径有所有者补偿规则兜底）
	_, err = db.makeRequest("POST", "/organization_memberships", map[string]interface{}{
		"organization_id": org.ID,
		"user_id":         org.OwnerID,
		"role":            string(models.RoleOwner),
	})
	return err
}

// GetOrganization 获取组织
func (db *SupabaseDatabase) GetOrganization(orgID string) (*models.Organization, error) {
	data, err := db.makeRequest("GET", "/organizations?id=eq."+orgID+"&select=*", nil)
	if err != nil {
		return nil, err
	}
	var rows []models.Organization
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return nil, fmt.Errorf("organization %w", ErrNotFound)
	}
	return &rows[0], nil
}

// UpdateOrganization 更新组织
func (db *SupabaseDatabase) UpdateOrganization(org *models.Organization) error {
	payload := map[string]interface{}{
		"updated_at": time.Now().Format(time.RFC3339),
	}
	if org.Name != "" {
		payload["name"] = org.Name
	}
	if org.TeamSize != "" {
		payload["team_size"] = string(org.TeamSize)
	}
	data, err := db.makeRequest("PATCH", "/organizations?id=eq."+org.ID, payload)
	if err != nil {
		return err
	}
	var rows []models.Organization
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return fmt.Errorf("organization %w", ErrNotFound)
	}
	*org = rows[0]
	return nil
}

// DeleteOrganization 删除组织（批次与子记录由外键级联）
func (db *SupabaseDatabase) DeleteOrganization(orgID string) error {
	data, err := db.makeRequest("DELETE", "/organizations?id=eq."+orgID, nil)
	if err != nil {
		return err
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return fmt.Errorf("organization %w", ErrNotFound)
	}
	return nil
}

// ListUserOrganizations 列出用户的组织（所有者或成员）
func (db *SupabaseDatabase) ListUserOrganizations(userID string) ([]models.Organization, error) {
	// 所有者补偿规则：即使成员行缺失，owner_id 匹配的组织也要返回
	ownedData, err := db.makeRequest("GET", "/organizations?owner_id=eq."+userID+"&select=*", nil)
	if err != nil {
		return nil, err
	}
	var owned []models.Organization
	_ = json.Unmarshal(ownedData, &owned)

	memData, err := db.makeRequest("GET", "/organization_memberships?user_id=eq."+userID+"&select=organization_id", nil)
	if err != nil {
		return owned, nil
	}
	var mems []map[string]string
	_ = json.Unmarshal(memData, &mems)

	seen := map[string]bool{}
	result := owned
	for _, o := range owned {
		seen[o.ID] = true
	}
	for _, m := range mems {
		id, ok := m["organization_id"]
		if !ok || seen[id] {
			continue
		}
		data, err := db.makeRequest("GET", "/organizations?id=eq."+id+"&select=*", nil)
		if err != nil {
			continue
		}
		var tmp []models.Organization
		if json.Unmarshal(data, &tmp) == nil && len(tmp) > 0 {
			seen[id] = true
			result = append(result, tmp[0])
		}
	}
	return result, nil
}

// AddOrganizationMember 添加成员（已存在则更新角色）
func (db *SupabaseDatabase) AddOrganizationMember(m *models.OrganizationMembership) error {
	existing, err := db.GetMembership(m.OrganizationID, m.UserID)
	if err != nil {
		return err
	}
	if existing != nil {
		endpoint := "/organization_memberships?organization_id=eq." + m.OrganizationID + "&user_id=eq." + m.UserID
		data, err := db.makeRequest("PATCH", endpoint, map[string]interface{}{"role": string(m.Role)})
		if err != nil {
			return err
		}
		var rows []models.OrganizationMembership
		if json.Unmarshal(data, &rows) == nil && len(rows) > 0 {
			*m = rows[0]
		}
		return nil
	}

	payload := map[string]interface{}{
		"organization_id": m.OrganizationID,
		"user_id":         m.UserID,
		"role":            string(m.Role),
	}
	data, err := db.makeRequest("POST", "/organization_memberships", payload)
	if err != nil {
		return err
	}
	var rows []models.OrganizationMembership
	if json.Unmarshal(data, &rows) == nil && len(rows) > 0 {
		*m = rows[0]
	}
	return nil
}

// ListOrganizationMembers 列出组织成员
func (db *SupabaseDatabase) ListOrganizationMembers(orgID string) ([]models.OrganizationMembership, error) {
	data, err := db.makeRequest("GET", "/organization_memberships?organization_id=eq."+orgID+"&select=*", nil)
	if err != nil {
		return nil, err
	}
	var rows []models.OrganizationMembership
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetMembership 查询成员关系；不存在返回 (nil, nil)
func (db *SupabaseDatabase) GetMembership(orgID, userID string) (*models.OrganizationMembership, error) {
	endpoint := "/organization_memberships?organization_id=eq." + orgID + "&user_id=eq." + userID + "&select=*"
	data, err := db.makeRequest("GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	var rows []models.OrganizationMembership
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// ================= Invitations =================

// CreateInvitation 创建邀请
func (db *SupabaseDatabase) CreateInvitation(inv *models.OrganizationInvitation) error {
	payload := map[string]interface{}{
		"organization_id": inv.OrganizationID,
		"email":           inv.Email,
		"inviter_id":      inv.InviterID,
		"token":           inv.Token,
		"status":          string(inv.Status),
		"expires_at":      inv.ExpiresAt.Format(time.RFC3339),
	}
	data, err := db.makeRequest("POST", "/organization_invitations", payload)
	if err != nil {
		return err
	}
	var rows []models.OrganizationInvitation
	if json.Unmarshal(data, &rows) == nil && len(rows) > 0 {
		*inv = rows[0]
	}
	return nil
}

// GetInvitationByToken 根据令牌获取邀请
func (db *SupabaseDatabase) GetInvitationByToken(token string) (*models.OrganizationInvitation, error) {
	data, err := db.makeRequest("GET", "/organization_invitations?token=eq."+token+"&select=*", nil)
	if err != nil {
		return nil, err
	}
	var rows []models.OrganizationInvitation
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return nil, fmt.Errorf("invitation %w", ErrNotFound)
	}
	return &rows[0], nil
}

// ListInvitationsByEmail 按邮箱列出邀请
func (db *SupabaseDatabase) ListInvitationsByEmail(email string) ([]models.OrganizationInvitation, error) {
	data, err := db.makeRequest("GET", "/organization_invitations?email=eq."+email+"&select=*", nil)
	if err != nil {
		return nil, err
	}
	var rows []models.OrganizationInvitation
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateInvitation 更新邀请状态
func (db *SupabaseDatabase) UpdateInvitation(inv *models.OrganizationInvitation) error {
	payload := map[string]interface{}{
		"status":      string(inv.Status),
		"accepted_by": inv.AcceptedBy,
		"updated_at":  time.Now().Format(time.RFC3339),
	}
	_, err := db.makeRequest("PATCH", "/organization_invitations?id=eq."+inv.ID, payload)
	return err
}

// ================= Batches =================

// CreateBatch 创建批次
func (db *SupabaseDatabase) CreateBatch(b *models.Batch) error {
	payload := map[string]interface{}{
		"organization_id": b.OrganizationID,
		"name":            b.Name,
		"variety":         b.Variety,
		"volume":          b.Volume.String(),
		"current_stage":   string(b.CurrentStage),
		"start_date":      b.StartDate.Format(time.RFC3339),
		"created_by":      b.CreatedBy,
	}
	data, err := db.makeRequest("POST", "/batches", payload)
	if err != nil {
		return err
	}
	var rows []models.Batch
	if json.Unmarshal(data, &rows) == nil && len(rows) > 0 {
		*b = rows[0]
	}
	return nil
}

// GetBatch 获取批次
func (db *SupabaseDatabase) GetBatch(id string) (*models.Batch, error) {
	data, err := db.makeRequest("GET", "/batches?id=eq."+id+"&select=*", nil)
	if err != nil {
		return nil, err
	}
	var rows []models.Batch
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return nil, fmt.Errorf("batch %w", ErrNotFound)
	}
	return &rows[0], nil
}

// UpdateBatch 更新批次描述字段（阶段仅经由 AdvanceBatchStage 变更）
func (db *SupabaseDatabase) UpdateBatch(b *models.Batch) error {
	payload := map[string]interface{}{
		"name":       b.Name,
		"variety":    b.Variety,
		"volume":     b.Volume.String(),
		"start_date": b.StartDate.Format(time.RFC3339),
		"updated_at": time.Now().Format(time.RFC3339),
	}
	data, err := db.makeRequest("PATCH", "/batches?id=eq."+b.ID, payload)
	if err != nil {
		return err
	}
	var rows []models.Batch
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return fmt.Errorf("batch %w", ErrNotFound)
	}
	*b = rows[0]
	return nil
}

// DeleteBatch 删除批次（子记录由外键级联）
func (db *SupabaseDatabase) DeleteBatch(id string) error {
	data, err := db.makeRequest("DELETE", "/batches?id=eq."+id, nil)
	if err != nil {
		return err
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return fmt.Errorf("batch %w", ErrNotFound)
	}
	return nil
}

// ListBatchesByOrganization 列出组织批次
func (db *SupabaseDatabase) ListBatchesByOrganization(orgID string) ([]models.Batch, error) {
	data, err := db.makeRequest("GET", "/batches?organization_id=eq."+orgID+"&select=*&order=created_at.desc", nil)
	if err != nil {
		return nil, err
	}
	var rows []models.Batch
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// AdvanceBatchStage 条件推进阶段：过滤器同时约束行的归属组织与当前阶段，
// PATCH 命中零行（并发推进或租户不符）时返回 false
func (db *SupabaseDatabase) AdvanceBatchStage(batchID, orgID string, from, to models.Stage) (bool, error) {
	endpoint := "/batches?id=eq." + batchID +
		"&organization_id=eq." + orgID +
		"&current_stage=eq." + string(from)
	payload := map[string]interface{}{
		"current_stage": string(to),
		"updated_at":    time.Now().Format(time.RFC3339),
	}
	data, err := db.makeRequest("PATCH", endpoint, payload)
	if err != nil {
		return false, err
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil {
		return false, err
	}
	return len(rows) == 1, nil
}

// ================= Fermentation logs =================

func (db *SupabaseDatabase) CreateFermentationLog(l *models.FermentationLog) error {
	payload := map[string]interface{}{
		"batch_id":         l.BatchID,
		"recorded_at":      l.RecordedAt.Format(time.RFC3339),
		"temperature":      l.Temperature,
		"specific_gravity": l.SpecificGravity,
		"ph":               l.PH,
		"notes":            l.Notes,
	}
	data, err := db.makeRequest("POST", "/fermentation_logs", payload)
	if err != nil {
		return err
	}
	var rows []models.FermentationLog
	if json.Unmarshal(data, &rows) == nil && len(rows) > 0 {
		*l = rows[0]
	}
	return nil
}

func (db *SupabaseDatabase) GetFermentationLog(id string) (*models.FermentationLog, error) {
	data, err := db.makeRequest("GET", "/fermentation_logs?id=eq."+id+"&select=*", nil)
	if err != nil {
		return nil, err
	}
	var rows []models.FermentationLog
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return nil, fmt.Errorf("fermentation log %w", ErrNotFound)
	}
	return &rows[0], nil
}

func (db *SupabaseDatabase) UpdateFermentationLog(l *models.FermentationLog) error {
	payload := map[string]interface{}{
		"recorded_at":      l.RecordedAt.Format(time.RFC3339),
		"temperature":      l.Temperature,
		"specific_gravity": l.SpecificGravity,
		"ph":               l.PH,
		"notes":            l.Notes,
		"updated_at":       time.Now().Format(time.RFC3339),
	}
	data, err := db.makeRequest("PATCH", "/fermentation_logs?id=eq."+l.ID, payload)
	if err != nil {
		return err
	}
	var rows []models.FermentationLog
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return fmt.Errorf("fermentation log %w", ErrNotFound)
	}
	*l = rows[0]
	return nil
}

func (db *SupabaseDatabase) DeleteFermentationLog(id string) error {
	data, err := db.makeRequest("DELETE", "/fermentation_logs?id=eq."+id, nil)
	if err != nil {
		return err
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return fmt.Errorf("fermentation log %w", ErrNotFound)
	}
	return nil
}

func (db *SupabaseDatabase) ListFermentationLogsByBatch(batchID string) ([]models.FermentationLog, error) {
	data, err := db.makeRequest("GET", "/fermentation_logs?batch_id=eq."+batchID+"&select=*&order=recorded_at.desc", nil)
	if err != nil {
		return nil, err
	}
	var rows []models.FermentationLog
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ================= Tasting notes =================

func (db *SupabaseDatabase) CreateTastingNote(n *models.TastingNote) error {
	payload := map[string]interface{}{
		"batch_id":    n.BatchID,
		"recorded_at": n.RecordedAt.Format(time.RFC3339),
		"sweetness":   n.Sweetness,
		"acidity":     n.Acidity,
		"body":        n.Body,
		"aroma":       n.Aroma,
		"flavor":      n.Flavor,
		"finish":      n.Finish,
		"notes":       n.Notes,
	}
	data, err := db.makeRequest("POST", "/tasting_notes", payload)
	if err != nil {
		return err
	}
	var rows []models.TastingNote
	if json.Unmarshal(data, &rows) == nil && len(rows) > 0 {
		*n = rows[0]
	}
	return nil
}

func (db *SupabaseDatabase) GetTastingNote(id string) (*models.TastingNote, error) {
	data, err := db.makeRequest("GET", "/tasting_notes?id=eq."+id+"&select=*", nil)
	if err != nil {
		return nil, err
	}
	var rows []models.TastingNote
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return nil, fmt.Errorf("tasting note %w", ErrNotFound)
	}
	return &rows[0], nil
}

func (db *SupabaseDatabase) UpdateTastingNote(n *models.TastingNote) error {
	payload := map[string]interface{}{
		"recorded_at": n.RecordedAt.Format(time.RFC3339),
		"sweetness":   n.Sweetness,
		"acidity":     n.Acidity,
		"body":        n.Body,
		"aroma":       n.Aroma,
		"flavor":      n.Flavor,
		"finish":      n.Finish,
		"notes":       n.Notes,
		"updated_at":  time.Now().Format(time.RFC3339),
	}
	data, err := db.makeRequest("PATCH", "/tasting_notes?id=eq."+n.ID, payload)
	if err != nil {
		return err
	}
	var rows []models.TastingNote
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return fmt.Errorf("tasting note %w", ErrNotFound)
	}
	*n = rows[0]
	return nil
}

func (db *SupabaseDatabase) DeleteTastingNote(id string) error {
	data, err := db.makeRequest("DELETE", "/tasting_notes?id=eq."+id, nil)
	if err != nil {
		return err
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return fmt.Errorf("tasting note %w", ErrNotFound)
	}
	return nil
}

func (db *SupabaseDatabase) ListTastingNotesByBatch(batchID string) ([]models.TastingNote, error) {
	data, err := db.makeRequest("GET", "/tasting_notes?batch_id=eq."+batchID+"&select=*&order=recorded_at.desc", nil)
	if err != nil {
		return nil, err
	}
	var rows []models.TastingNote
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ================= Packaging schedules =================

func (db *SupabaseDatabase) CreatePackagingSchedule(p *models.PackagingSchedule) error {
	payload := map[string]interface{}{
		"batch_id":    p.BatchID,
		"target_date": p.TargetDate.Format(time.RFC3339),
		"format":      string(p.Format),
		"quantity":    p.Quantity,
		"notes":       p.Notes,
	}
	data, err := db.makeRequest("POST", "/packaging_schedules", payload)
	if err != nil {
		return err
	}
	var rows []models.PackagingSchedule
	if json.Unmarshal(data, &rows) == nil && len(rows) > 0 {
		*p = rows[0]
	}
	return nil
}

func (db *SupabaseDatabase) GetPackagingSchedule(id string) (*models.PackagingSchedule, error) {
	data, err := db.makeRequest("GET", "/packaging_schedules?id=eq."+id+"&select=*", nil)
	if err != nil {
		return nil, err
	}
	var rows []models.PackagingSchedule
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return nil, fmt.Errorf("packaging schedule %w", ErrNotFound)
	}
	return &rows[0], nil
}

func (db *SupabaseDatabase) UpdatePackagingSchedule(p *models.PackagingSchedule) error {
	payload := map[string]interface{}{
		"target_date": p.TargetDate.Format(time.RFC3339),
		"format":      string(p.Format),
		"quantity":    p.Quantity,
		"notes":       p.Notes,
		"updated_at":  time.Now().Format(time.RFC3339),
	}
	data, err := db.makeRequest("PATCH", "/packaging_schedules?id=eq."+p.ID, payload)
	if err != nil {
		return err
	}
	var rows []models.PackagingSchedule
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return fmt.Errorf("packaging schedule %w", ErrNotFound)
	}
	*p = rows[0]
	return nil
}

func (db *SupabaseDatabase) DeletePackagingSchedule(id string) error {
	data, err := db.makeRequest("DELETE", "/packaging_schedules?id=eq."+id, nil)
	if err != nil {
		return err
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return fmt.Errorf("packaging schedule %w", ErrNotFound)
	}
	return nil
}

func (db *SupabaseDatabase) ListPackagingSchedulesByBatch(batchID string) ([]models.PackagingSchedule, error) {
	data, err := db.makeRequest("GET", "/packaging_schedules?batch_id=eq."+batchID+"&select=*&order=target_date.asc", nil)
	if err != nil {
		return nil, err
	}
	var rows []models.PackagingSchedule
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// CompletePackagingSchedule 标记完成；completed_at=is.null 过滤保证时间戳只写一次
func (db *SupabaseDatabase) CompletePackagingSchedule(id string, at time.Time) (*models.PackagingSchedule, error) {
	endpoint := "/packaging_schedules?id=eq." + id + "&completed_at=is.null"
	payload := map[string]interface{}{
		"completed_at": at.Format(time.RFC3339),
		"updated_at":   time.Now().Format(time.RFC3339),
	}
	if _, err := db.makeRequest("PATCH", endpoint, payload); err != nil {
		return nil, err
	}
	// 零行命中表示此前已完成，重新读取拿原时间戳
	return db.GetPackagingSchedule(id)
}

// HealthCheck 健康检查
func (db *SupabaseDatabase) HealthCheck() error {
	_, err := db.makeRequest("GET", "/", nil)
	return err
}

// Close 关闭连接
func (db *SupabaseDatabase) Close() error {
	// HTTP客户端无需显式关闭
	return nil
}
