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

// TastingHandler 品鉴记录处理器
type TastingHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	authz  *authz.Resolver
}

// NewTastingHandler 创建品鉴记录处理器
func NewTastingHandler(cfg *config.Config, db database.DatabaseInterface, resolver *authz.Resolver) *TastingHandler {
	return &TastingHandler{config: cfg, db: db, authz: resolver}
}

type tastingNoteRequest struct {
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
	Sweetness  *int       `json:"sweetness,omitempty"`
	Acidity    *int       `json:"acidity,omitempty"`
	Body       *int       `json:"body,omitempty"`
	Aroma      string     `json:"aroma,omitempty"`
	Flavor     string     `json:"flavor,omitempty"`
	Finish     string     `json:"finish,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

// validate 感官评分存在时必须落在1-5
func (req *tastingNoteRequest) validate() (string, bool) {
	if !utils.ValidScore(req.Sweetness) {
		return "sweetness", false
	}
	if !utils.ValidScore(req.Acidity) {
		return "acidity", false
	}
	if !utils.ValidScore(req.Body) {
		return "body", false
	}
	return "", true
}

// requireNoteAccess 解析记录并验证成员资格。记录缺失与无权访问
// 返回相同的404响应体，不向外泄露记录ID是否存在。
func (h *TastingHandler) requireNoteAccess(w http.ResponseWriter, r *http.Request) (*models.TastingNote, bool) {
	note, err := h.db.GetTastingNote(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteNotFoundResponse(w, "Tasting note not found")
		} else {
			utils.WriteInternalServerErrorResponse(w, "Failed to load tasting note")
		}
		return nil, false
	}
	if _, _, ok := requireBatchAccess(w, r, h.db, h.authz, note.BatchID, "Tasting note not found"); !ok {
		return nil, false
	}
	return note, true
}

// ListNotes 列出批次的品鉴记录
func (h *TastingHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	batch, _, ok := requireBatchAccess(w, r, h.db, h.authz, chi.URLParam(r, "id"), "Batch not found")
	if !ok {
		return
	}

	notes, err := h.db.ListTastingNotesByBatch(batch.ID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list tasting notes")
		return
	}
	if notes == nil {
		notes = []models.TastingNote{}
	}
	utils.WriteSuccessResponse(w, notes)
}

// CreateNote 追加品鉴记录
func (h *TastingHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	batch, _, ok := requireBatchAccess(w, r, h.db, h.authz, chi.URLParam(r, "id"), "Batch not found")
	if !ok {
		return
	}

	var req tastingNoteRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if field, ok := req.validate(); !ok {
		utils.WriteValidationErrorResponse(w, "Sensory score must be between 1 and 5", field)
		return
	}

	recordedAt := time.Now()
	if req.RecordedAt != nil {
		recordedAt = *req.RecordedAt
	}

	note := &models.TastingNote{
		BatchID:    batch.ID,
		RecordedAt: recordedAt,
		Sweetness:  req.Sweetness,
		Acidity:    req.Acidity,
		Body:       req.Body,
		Aroma:      req.Aroma,
		Flavor:     req.Flavor,
		Finish:     req.Finish,
		Notes:      req.Notes,
	}
	if err := h.db.CreateTastingNote(note); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create tasting note")
		return
	}
	utils.WriteCreatedResponse(w, note)
}

// UpdateNote 更新品鉴记录
func (h *TastingHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	note, ok := h.requireNoteAccess(w, r)
	if !ok {
		return
	}

	var req tastingNoteRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if field, ok := req.validate(); !ok {
		utils.WriteValidationErrorResponse(w, "Sensory score must be between 1 and 5", field)
		return
	}

	if req.RecordedAt != nil {
		note.RecordedAt = *req.RecordedAt
	}
	note.Sweetness = req.Sweetness
	note.Acidity = req.Acidity
	note.Body = req.Body
	note.Aroma = req.Aroma
	note.Flavor = req.Flavor
	note.Finish = req.Finish
	note.Notes = req.Notes

	if err := h.db.UpdateTastingNote(note); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to update tasting note")
		return
	}
	utils.WriteSuccessResponse(w, note)
}

// DeleteNote 删除品鉴记录
func (h *TastingHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	note, ok := h.requireNoteAccess(w, r)
	if !ok {
		return
	}

	if err := h.db.DeleteTastingNote(note.ID); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to delete tasting note")
		return
	}
	utils.WriteSuccessResponse(w, map[string]string{
		"message": "Tasting note deleted",
	})
}
