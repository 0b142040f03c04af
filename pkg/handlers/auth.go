package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/config"
	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/database"
	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/middleware"
	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/models"
	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/utils"
)

// AuthHandler 认证相关处理器
type AuthHandler struct {
	config     *config.Config
	db         database.DatabaseInterface
	jwtService *utils.JWTService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.Config, db database.DatabaseInterface) *AuthHandler {
	return &AuthHandler{
		config:     cfg,
		db:         db,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// Register 用户注册
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.UserRegisterRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		utils.WriteValidationErrorResponse(w, "Invalid email address", "email")
		return
	}
	if len(req.Password) < 8 {
		utils.WriteValidationErrorResponse(w, "Password must be at least 8 characters", "password")
		return
	}

	// 邮箱唯一
	if existing, _ := h.db.GetUserByEmail(req.Email); existing != nil {
		utils.WriteConflictResponse(w, "An account with this email already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to process password")
		return
	}

	user := &models.User{
		Email:    req.Email,
		Password: string(hash),
		Name:     strings.TrimSpace(req.Name),
	}
	if err := h.db.CreateUser(user); err != nil {
		fmt.Printf("❌ Register: failed to create user: %v\n", err)
		utils.WriteInternalServerErrorResponse(w, "Failed to create user")
		return
	}

	accessToken, refreshToken, expiresIn, err := h.jwtService.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to generate tokens")
		return
	}

	fmt.Printf("✅ Registered user %s\n", user.Email)
	utils.WriteCreatedResponse(w, models.UserLoginResponse{
		User:         *user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	})
}

// Login 用户登录
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.UserLoginRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	user, err := h.db.GetUserByEmail(req.Email)
	if err != nil {
		// 不区分“用户不存在”与“密码错误”
		utils.WriteUnauthorizedResponse(w, "Invalid email or password")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		utils.WriteUnauthorizedResponse(w, "Invalid email or password")
		return
	}

	accessToken, refreshToken, expiresIn, err := h.jwtService.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to generate tokens")
		return
	}

	// 带上用户的首个组织，方便客户端直接进入工作台
	resp := models.UserLoginResponse{
		User:         *user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	}
	if orgs, err := h.db.ListUserOrganizations(user.ID); err == nil && len(orgs) > 0 {
		resp.OrgID = orgs[0].ID
	}

	utils.WriteSuccessResponse(w, resp)
}

// RefreshToken 刷新访问令牌
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshTokenRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if req.RefreshToken == "" {
		utils.WriteValidationErrorResponse(w, "refresh_token is required", "refresh_token")
		return
	}

	accessToken, expiresIn, err := h.jwtService.RefreshAccessToken(req.RefreshToken)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Invalid or expired refresh token")
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"access_token": accessToken,
		"expires_in":   expiresIn,
	})
}

// Logout 登出（无状态令牌，客户端丢弃即可）
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccessResponse(w, map[string]string{
		"message": "Logged out successfully",
	})
}

// Me 返回当前认证用户
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	// token里只有ID和邮箱，补全用户资料
	full, err := h.db.GetUserByID(user.ID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "User not found")
		return
	}

	utils.WriteSuccessResponse(w, full)
}

// UpdatePassword 修改密码（需验证当前密码）
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req models.UpdatePasswordRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if len(req.NewPassword) < 8 {
		utils.WriteValidationErrorResponse(w, "New password must be at least 8 characters", "new_password")
		return
	}

	full, err := h.db.GetUserByID(user.ID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "User not found")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(full.Password), []byte(req.CurrentPassword)) != nil {
		utils.WriteUnauthorizedResponse(w, "Current password is incorrect")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to process password")
		return
	}

	full.Password = string(hash)
	full.UpdatedAt = time.Now()
	if err := h.db.UpdateUser(full); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to update password")
		return
	}

	utils.WriteSuccessResponse(w, map[string]string{
		"message": "Password updated successfully",
	})
}
