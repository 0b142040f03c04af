package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/authz"
	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/config"
	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/database"
	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/models"
	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/utils"
)

// FermentationHandler 发酵记录处理器
type FermentationHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	authz  *authz.Resolver
}

// NewFermentationHandler 创建发酵记录处理器
func NewFermentationHandler(cfg *config.Config, db database.DatabaseInterface, resolver *authz.Resolver) *FermentationHandler {
	return &FermentationHandler{config: cfg, db: db, authz: resolver}
}

type fermentationLogRequest struct {
	RecordedAt      *time.Time `json:"recorded_at,omitempty"`
	Temperature     *float64   `json:"temperature,omitempty"`
	SpecificGravity *float64   `json:"specific_gravity,omitempty"`
	PH              *float64   `json:"ph,omitempty"`
	Notes           string     `json:"notes,omitempty"`
}

// validate 测量值存在时必须是有限数
func (req *fermentationLogRequest) validate() (string, bool) {
	if !utils.ValidMeasurement(req.Temperature) {
		return "temperature", false
	}
	if !utils.ValidMeasurement(req.SpecificGravity) {
		return "specific_gravity", false
	}
	if !utils.ValidMeasurement(req.PH) {
		return "ph", false
	}
	return "", true
}

// requireLogAccess 解析记录并验证成员资格。记录缺失与无权访问
// 返回相同的404响应体，不向外泄露记录ID是否存在。
func (h *FermentationHandler) requireLogAccess(w http.ResponseWriter, r *http.Request) (*models.FermentationLog, bool) {
	log, err := h.db.GetFermentationLog(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteNotFoundResponse(w, "Fermentation log not found")
		} else {
			utils.WriteInternalServerErrorResponse(w, "Failed to load fermentation log")
		}
		return nil, false
	}
	if _, _, ok := requireBatchAccess(w, r, h.db, h.authz, log.BatchID, "Fermentation log not found"); !ok {
		return nil, false
	}
	return log, true
}

// ListLogs 列出批次的发酵记录
func (h *FermentationHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	batch, _, ok := requireBatchAccess(w, r, h.db, h.authz, chi.URLParam(r, "id"), "Batch not found")
	if !ok {
		return
	}

	logs, err := h.db.ListFermentationLogsByBatch(batch.ID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list fermentation logs")
		return
	}
	if logs == nil {
		logs = []models.FermentationLog{}
	}
	utils.WriteSuccessResponse(w, logs)
}

// CreateLog 追加发酵记录
func (h *FermentationHandler) CreateLog(w http.ResponseWriter, r *http.Request) {
	batch, _, ok := requireBatchAccess(w, r, h.db, h.authz, chi.URLParam(r, "id"), "Batch not found")
	if !ok {
		return
	}

	var req fermentationLogRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if field, ok := req.validate(); !ok {
		utils.WriteValidationErrorResponse(w, "Measurement must be a finite number", field)
		return
	}

	recordedAt := time.Now()
	if req.RecordedAt != nil {
		recordedAt = *req.RecordedAt
	}

	log := &models.FermentationLog{
		BatchID:         batch.ID,
		RecordedAt:      recordedAt,
		Temperature:     req.Temperature,
		SpecificGravity: req.SpecificGravity,
		PH:              req.PH,
		Notes:           req.Notes,
	}
	if err := h.db.CreateFermentationLog(log); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create fermentation log")
		return
	}
	utils.WriteCreatedResponse(w, log)
}

// UpdateLog 更新发酵记录
func (h *FermentationHandler) UpdateLog(w http.ResponseWriter, r *http.Request) {
	log, ok := h.requireLogAccess(w, r)
	if !ok {
		return
	}

	var req fermentationLogRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if field, ok := req.validate(); !ok {
		utils.WriteValidationErrorResponse(w, "Measurement must be a finite number", field)
		return
	}

	if req.RecordedAt != nil {
		log.RecordedAt = *req.RecordedAt
	}
	log.Temperature = req.Temperature
	log.SpecificGravity = req.SpecificGravity
	log.PH = req.PH
	log.Notes = req.Notes

	if err := h.db.UpdateFermentationLog(log); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to update fermentation log")
		return
	}
	utils.WriteSuccessResponse(w, log)
}

// DeleteLog 删除发酵记录
func (h *FermentationHandler) DeleteLog(w http.ResponseWriter, r *http.Request) {
	log, ok := h.requireLogAccess(w, r)
	if !ok {
		return
	}

	if err := h.db.DeleteFermentationLog(log.ID); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to delete fermentation log")
		return
	}
	utils.WriteSuccessResponse(w, map[string]string{
		"message": "Fermentation log deleted",
	})
}
