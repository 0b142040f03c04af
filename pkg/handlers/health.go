package handlers

import (
	"net/http"
	"time"

	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/utils"
)

// HealthCheck 健康检查，包含存储可达性
func (h *AuthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	dbStatus := "ok"
	if err := h.db.HealthCheck(); err != nil {
		dbStatus = "unreachable: " + err.Error()
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"service":     "ciderflow-hq",
		"status":      "ok",
		"environment": h.config.Environment,
		"database":    dbStatus,
		"time":        time.Now().Format(time.RFC3339),
	})
}
