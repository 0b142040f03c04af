package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/authz"
	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/config"
	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/database"
	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/models"
	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/utils"
)

// PackagingHandler 包装计划处理器
type PackagingHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	authz  *authz.Resolver
}

// NewPackagingHandler 创建包装计划处理器
func NewPackagingHandler(cfg *config.Config, db database.DatabaseInterface, resolver *authz.Resolver) *PackagingHandler {
	return &PackagingHandler{config: cfg, db: db, authz: resolver}
}

type packagingScheduleRequest struct {
	TargetDate *time.Time             `json:"target_date,omitempty"`
	Format     models.PackagingFormat `json:"format,omitempty"`
	Quantity   *int                   `json:"quantity,omitempty"`
	Notes      *string                `json:"notes,omitempty"`
}

// requireScheduleAccess 解析计划并验证成员资格。计划缺失与无权访问
// 返回相同的404响应体，不向外泄露计划ID是否存在。
func (h *PackagingHandler) requireScheduleAccess(w http.ResponseWriter, r *http.Request) (*models.PackagingSchedule, bool) {
	schedule, err := h.db.GetPackagingSchedule(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteNotFoundResponse(w, "Packaging schedule not found")
		} else {
			utils.WriteInternalServerErrorResponse(w, "Failed to load packaging schedule")
		}
		return nil, false
	}
	if _, _, ok := requireBatchAccess(w, r, h.db, h.authz, schedule.BatchID, "Packaging schedule not found"); !ok {
		return nil, false
	}
	return schedule, true
}

// ListSchedules 列出批次的包装计划；?status=upcoming|completed 过滤
func (h *PackagingHandler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	batch, _, ok := requireBatchAccess(w, r, h.db, h.authz, chi.URLParam(r, "id"), "Batch not found")
	if !ok {
		return
	}

	status := utils.GetQueryParam(r, "status", "")
	if status != "" && status != "upcoming" && status != "completed" {
		utils.WriteValidationErrorResponse(w, "status must be upcoming or completed", "status")
		return
	}

	schedules, err := h.db.ListPackagingSchedulesByBatch(batch.ID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list packaging schedules")
		return
	}

	filtered := []models.PackagingSchedule{}
	for _, s := range schedules {
		switch status {
		case "upcoming":
			if !s.Completed() {
				filtered = append(filtered, s)
			}
		case "completed":
			if s.Completed() {
				filtered = append(filtered, s)
			}
		default:
			filtered = append(filtered, s)
		}
	}
	utils.WriteSuccessResponse(w, filtered)
}

// CreateSchedule 创建包装计划
func (h *PackagingHandler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	batch, _, ok := requireBatchAccess(w, r, h.db, h.authz, chi.URLParam(r, "id"), "Batch not found")
	if !ok {
		return
	}

	var req packagingScheduleRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if req.Format == "" || !req.Format.Valid() {
		utils.WriteValidationErrorResponse(w, "format must be one of bottle, can, keg, bag-in-box, growler, other", "format")
		return
	}
	if !utils.ValidQuantity(req.Quantity) {
		utils.WriteValidationErrorResponse(w, "quantity must be zero or greater", "quantity")
		return
	}
	if req.TargetDate == nil {
		utils.WriteValidationErrorResponse(w, "target_date is required", "target_date")
		return
	}

	schedule := &models.PackagingSchedule{
		BatchID:    batch.ID,
		TargetDate: *req.TargetDate,
		Format:     req.Format,
		Quantity:   req.Quantity,
	}
	if req.Notes != nil {
		schedule.Notes = *req.Notes
	}
	if err := h.db.CreatePackagingSchedule(schedule); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create packaging schedule")
		return
	}
	utils.WriteCreatedResponse(w, schedule)
}

// UpdateSchedule 更新包装计划（completed_at不经由此路径变更）
func (h *PackagingHandler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	schedule, ok := h.requireScheduleAccess(w, r)
	if !ok {
		return
	}

	var req packagingScheduleRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if req.Format != "" {
		if !req.Format.Valid() {
			utils.WriteValidationErrorResponse(w, "format must be one of bottle, can, keg, bag-in-box, growler, other", "format")
			return
		}
		schedule.Format = req.Format
	}
	if req.Quantity != nil {
		if !utils.ValidQuantity(req.Quantity) {
			utils.WriteValidationErrorResponse(w, "quantity must be zero or greater", "quantity")
			return
		}
		schedule.Quantity = req.Quantity
	}
	if req.TargetDate != nil {
		schedule.TargetDate = *req.TargetDate
	}
	if req.Notes != nil {
		schedule.Notes = *req.Notes
	}

	if err := h.db.UpdatePackagingSchedule(schedule); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to update packaging schedule")
		return
	}
	utils.WriteSuccessResponse(w, schedule)
}

// DeleteSchedule 删除包装计划
func (h *PackagingHandler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	schedule, ok := h.requireScheduleAccess(w, r)
	if !ok {
		return
	}

	if err := h.db.DeletePackagingSchedule(schedule.ID); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to delete packaging schedule")
		return
	}
	utils.WriteSuccessResponse(w, map[string]string{
		"message": "Packaging schedule deleted",
	})
}

// CompleteSchedule 标记完成；重复调用保持首次时间戳不变
func (h *PackagingHandler) CompleteSchedule(w http.ResponseWriter, r *http.Request) {
	schedule, ok := h.requireScheduleAccess(w, r)
	if !ok {
		return
	}

	completed, err := h.db.CompletePackagingSchedule(schedule.ID, time.Now())
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to complete packaging schedule")
		return
	}

	fmt.Printf("📦 Packaging schedule %s completed\n", completed.ID)
	utils.WriteSuccessResponse(w, completed)
}
