package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/authz"
	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/config"
	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/database"
	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/middleware"
	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/models"
	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/utils"
)

// BatchesHandler 批次处理器
type BatchesHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	authz  *authz.Resolver
}

// NewBatchesHandler 创建批次处理器
func NewBatchesHandler(cfg *config.Config, db database.DatabaseInterface, resolver *authz.Resolver) *BatchesHandler {
	return &BatchesHandler{config: cfg, db: db, authz: resolver}
}

type createBatchRequest struct {
	OrganizationID string          `json:"organization_id"`
	Name           string          `json:"name"`
	Variety        string          `json:"variety,omitempty"`
	Volume         decimal.Decimal `json:"volume"`
	StartDate      *time.Time      `json:"start_date,omitempty"`
}

type updateBatchRequest struct {
	Name      *string          `json:"name,omitempty"`
	Variety   *string          `json:"variety,omitempty"`
	Volume    *decimal.Decimal `json:"volume,omitempty"`
	StartDate *time.Time       `json:"start_date,omitempty"`
}

// requireBatchAccess 解析批次并验证当前用户是其组织的成员。
// 授权失败与目标不存在返回逐字节相同的404响应体（notFound由路由的
// 目标资源决定），不向非成员泄露任何ID是否存在。
func requireBatchAccess(w http.ResponseWriter, r *http.Request, db database.DatabaseInterface, resolver *authz.Resolver, batchID, notFound string) (*models.Batch, *models.User, bool) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return nil, nil, false
	}

	batch, err := db.GetBatch(batchID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteNotFoundResponse(w, notFound)
		} else {
			utils.WriteInternalServerErrorResponse(w, "Failed to load batch")
		}
		return nil, nil, false
	}

	ok, err := resolver.IsMember(batch.OrganizationID, user.ID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to resolve membership")
		return nil, nil, false
	}
	if !ok {
		utils.WriteNotFoundResponse(w, notFound)
		return nil, nil, false
	}

	return batch, user, true
}

// ListBatches 列出组织批次（?org_id=，成员可见）
func (h *BatchesHandler) ListBatches(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	orgID := utils.GetQueryParam(r, "org_id", "")
	if orgID == "" {
		utils.WriteValidationErrorResponse(w, "org_id query parameter is required", "org_id")
		return
	}

	ok, err := h.authz.IsMember(orgID, user.ID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to resolve membership")
		return
	}
	if !ok {
		utils.WriteNotFoundResponse(w, "Organization not found")
		return
	}

	batches, err := h.db.ListBatchesByOrganization(orgID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list batches")
		return
	}
	if batches == nil {
		batches = []models.Batch{}
	}
	utils.WriteSuccessResponse(w, batches)
}

// CreateBatch 创建批次：阶段固定从pressing开始，created_by取当前用户
func (h *BatchesHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req createBatchRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.OrganizationID == "" {
		utils.WriteValidationErrorResponse(w, "organization_id is required", "organization_id")
		return
	}
	if req.Name == "" {
		utils.WriteValidationErrorResponse(w, "Batch name is required", "name")
		return
	}
	if !req.Volume.IsPositive() {
		utils.WriteValidationErrorResponse(w, "volume must be a positive number", "volume")
		return
	}

	ok, err := h.authz.IsMember(req.OrganizationID, user.ID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to resolve membership")
		return
	}
	if !ok {
		utils.WriteNotFoundResponse(w, "Organization not found")
		return
	}

	startDate := time.Now()
	if req.StartDate != nil {
		startDate = *req.StartDate
	}

	batch := &models.Batch{
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		Variety:        strings.TrimSpace(req.Variety),
		Volume:         req.Volume,
		CurrentStage:   models.StagePressing,
		StartDate:      startDate,
		CreatedBy:      user.ID,
	}
	if err := h.db.CreateBatch(batch); err != nil {
		fmt.Printf("❌ CreateBatch: %v\n", err)
		utils.WriteInternalServerErrorResponse(w, "Failed to create batch")
		return
	}

	fmt.Printf("🍎 Created batch %s (%s) in organization %s\n", batch.Name, batch.ID, batch.OrganizationID)
	utils.WriteCreatedResponse(w, batch)
}

// GetBatch 获取批次详情
func (h *BatchesHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	batch, _, ok := requireBatchAccess(w, r, h.db, h.authz, chi.URLParam(r, "id"), "Batch not found")
	if !ok {
		return
	}
	utils.WriteSuccessResponse(w, batch)
}

// UpdateBatch 更新批次描述字段；阶段只能经由advance变更
func (h *BatchesHandler) UpdateBatch(w http.ResponseWriter, r *http.Request) {
	batch, _, ok := requireBatchAccess(w, r, h.db, h.authz, chi.URLParam(r, "id"), "Batch not found")
	if !ok {
		return
	}

	var req updateBatchRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			utils.WriteValidationErrorResponse(w, "Batch name cannot be empty", "name")
			return
		}
		batch.Name = name
	}
	if req.Variety != nil {
		batch.Variety = strings.TrimSpace(*req.Variety)
	}
	if req.Volume != nil {
		if !req.Volume.IsPositive() {
			utils.WriteValidationErrorResponse(w, "volume must be a positive number", "volume")
			return
		}
		batch.Volume = *req.Volume
	}
	if req.StartDate != nil {
		batch.StartDate = *req.StartDate
	}

	if err := h.db.UpdateBatch(batch); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to update batch")
		return
	}
	utils.WriteSuccessResponse(w, batch)
}

// DeleteBatch 删除批次（级联删除子记录）
func (h *BatchesHandler) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	batch, _, ok := requireBatchAccess(w, r, h.db, h.authz, chi.URLParam(r, "id"), "Batch not found")
	if !ok {
		return
	}

	if err := h.db.DeleteBatch(batch.ID); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to delete batch")
		return
	}

	fmt.Printf("🗑️ Deleted batch %s\n", batch.ID)
	utils.WriteSuccessResponse(w, map[string]string{
		"message": "Batch deleted",
	})
}

// AdvanceBatch 将批次推进到下一阶段。目标阶段由服务端从当前阶段推导，
// 客户端不传目标；条件更新同时约束组织与当前阶段，输掉并发竞争的请求
// 拿到的是更新后的批次而不是错误。
func (h *BatchesHandler) AdvanceBatch(w http.ResponseWriter, r *http.Request) {
	batch, _, ok := requireBatchAccess(w, r, h.db, h.authz, chi.URLParam(r, "id"), "Batch not found")
	if !ok {
		return
	}

	// bottled是终态：推进已完成的批次不是错误
	next, hasNext := batch.CurrentStage.Next()
	if !hasNext {
		utils.WriteSuccessResponse(w, map[string]interface{}{
			"message": "Batch is already complete",
			"batch":   batch,
		})
		return
	}

	moved, err := h.db.AdvanceBatchStage(batch.ID, batch.OrganizationID, batch.CurrentStage, next)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to advance batch")
		return
	}

	current, err := h.db.GetBatch(batch.ID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Batch not found")
		return
	}

	if !moved {
		// 另一个请求先推进了；返回新状态
		utils.WriteSuccessResponse(w, map[string]interface{}{
			"message": "Batch was already advanced",
			"batch":   current,
		})
		return
	}

	fmt.Printf("⏩ Advanced batch %s to %s\n", current.ID, current.CurrentStage)
	utils.WriteSuccessResponse(w, current)
}
