package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/authz"
	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/config"
	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/database"
	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/middleware"
	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/models"
	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/utils"
)

// OrgsHandler 组织与成员处理器
type OrgsHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	authz  *authz.Resolver
}

// NewOrgsHandler 创建组织处理器
func NewOrgsHandler(cfg *config.Config, db database.DatabaseInterface, resolver *authz.Resolver) *OrgsHandler {
	return &OrgsHandler{config: cfg, db: db, authz: resolver}
}

type createOrgRequest struct {
	Name     string          `json:"name"`
	TeamSize models.TeamSize `json:"team_size"`
}

type updateOrgRequest struct {
	Name     string          `json:"name,omitempty"`
	TeamSize models.TeamSize `json:"team_size,omitempty"`
}

type inviteRequest struct {
	OrganizationID string `json:"organization_id"`
	Email          string `json:"email"`
}

type acceptInvitationRequest struct {
	Token string `json:"token"`
}

// CreateOrganization 入驻：创建组织并写入所有者成员行
func (h *OrgsHandler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req createOrgRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		utils.WriteValidationErrorResponse(w, "Organization name is required", "name")
		return
	}
	if req.TeamSize == "" {
		req.TeamSize = models.TeamSizeSmall
	}
	if !req.TeamSize.Valid() {
		utils.WriteValidationErrorResponse(w, "team_size must be one of small, medium, large", "team_size")
		return
	}

	org := &models.Organization{
		Name:     req.Name,
		OwnerID:  user.ID,
		TeamSize: req.TeamSize,
	}
	if err := h.db.CreateOrganization(org); err != nil {
		fmt.Printf("❌ CreateOrganization: %v\n", err)
		utils.WriteInternalServerErrorResponse(w, "Failed to create organization")
		return
	}

	fmt.Printf("🏢 Created organization %s (%s) for %s\n", org.Name, org.ID, user.Email)
	utils.WriteCreatedResponse(w, org)
}

// ListOrganizations 列出用户拥有或加入的组织
func (h *OrgsHandler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	orgs, err := h.db.ListUserOrganizations(user.ID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list organizations")
		return
	}
	if orgs == nil {
		orgs = []models.Organization{}
	}
	utils.WriteSuccessResponse(w, orgs)
}

// GetOrganization 获取组织详情（成员可见）
func (h *OrgsHandler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	orgID := chi.URLParam(r, "id")

	ok, err := h.authz.IsMember(orgID, user.ID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to resolve membership")
		return
	}
	if !ok {
		// 不泄露组织是否存在
		utils.WriteNotFoundResponse(w, "Organization not found")
		return
	}

	org, err := h.db.GetOrganization(orgID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Organization not found")
		return
	}
	utils.WriteSuccessResponse(w, org)
}

// UpdateOrganization 更新组织（仅所有者）
func (h *OrgsHandler) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	orgID := chi.URLParam(r, "id")

	owner, err := h.authz.IsOwner(orgID, user.ID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to resolve membership")
		return
	}
	if !owner {
		utils.WriteNotFoundResponse(w, "Organization not found")
		return
	}

	var req updateOrgRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if req.TeamSize != "" && !req.TeamSize.Valid() {
		utils.WriteValidationErrorResponse(w, "team_size must be one of small, medium, large", "team_size")
		return
	}

	org := &models.Organization{
		ID:       orgID,
		Name:     strings.TrimSpace(req.Name),
		TeamSize: req.TeamSize,
	}
	if err := h.db.UpdateOrganization(org); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to update organization")
		return
	}

	updated, err := h.db.GetOrganization(orgID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to load organization")
		return
	}
	utils.WriteSuccessResponse(w, updated)
}

// DeleteOrganization 删除组织（仅所有者；级联删除批次与子记录）
func (h *OrgsHandler) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	orgID := chi.URLParam(r, "id")

	owner, err := h.authz.IsOwner(orgID, user.ID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to resolve membership")
		return
	}
	if !owner {
		utils.WriteNotFoundResponse(w, "Organization not found")
		return
	}

	if err := h.db.DeleteOrganization(orgID); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to delete organization")
		return
	}

	fmt.Printf("🗑️ Deleted organization %s\n", orgID)
	utils.WriteSuccessResponse(w, map[string]string{
		"message": "Organization deleted",
	})
}

// ListMembers 列出组织成员（成员可见）
func (h *OrgsHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	orgID := chi.URLParam(r, "id")

	ok, err := h.authz.IsMember(orgID, user.ID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to resolve membership")
		return
	}
	if !ok {
		utils.WriteNotFoundResponse(w, "Organization not found")
		return
	}

	members, err := h.db.ListOrganizationMembers(orgID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list members")
		return
	}
	if members == nil {
		members = []models.OrganizationMembership{}
	}
	utils.WriteSuccessResponse(w, members)
}

// Invite 创建组织邀请（仅所有者）
func (h *OrgsHandler) Invite(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req inviteRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.OrganizationID == "" || req.Email == "" {
		utils.WriteValidationErrorResponse(w, "organization_id and email are required", "organization_id,email")
		return
	}

	owner, err := h.authz.IsOwner(req.OrganizationID, user.ID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to resolve membership")
		return
	}
	if !owner {
		utils.WriteForbiddenResponse(w, "Only the organization owner can invite members")
		return
	}

	token, err := utils.GenerateURLToken(32)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to generate invitation token")
		return
	}

	inv := &models.OrganizationInvitation{
		OrganizationID: req.OrganizationID,
		Email:          req.Email,
		InviterID:      user.ID,
		Token:          token,
		Status:         models.InvitationPending,
		ExpiresAt:      time.Now().Add(7 * 24 * time.Hour),
	}
	if err := h.db.CreateInvitation(inv); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to create invitation")
		return
	}

	fmt.Printf("✉️ Invited %s to organization %s\n", inv.Email, inv.OrganizationID)
	utils.WriteCreatedResponse(w, inv)
}

// MyInvitations 列出发给当前用户邮箱的邀请
func (h *OrgsHandler) MyInvitations(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	invitations, err := h.db.ListInvitationsByEmail(user.Email)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list invitations")
		return
	}
	if invitations == nil {
		invitations = []models.OrganizationInvitation{}
	}
	utils.WriteSuccessResponse(w, invitations)
}

// AcceptInvitation 接受邀请，写入member角色的成员行
func (h *OrgsHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req acceptInvitationRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return
	}
	if req.Token == "" {
		utils.WriteValidationErrorResponse(w, "token is required", "token")
		return
	}

	inv, err := h.db.GetInvitationByToken(req.Token)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Invitation not found")
		return
	}

	if inv.Status != models.InvitationPending {
		utils.WriteConflictResponse(w, "Invitation is no longer pending")
		return
	}
	if time.Now().After(inv.ExpiresAt) {
		inv.Status = models.InvitationExpired
		_ = h.db.UpdateInvitation(inv)
		utils.WriteConflictResponse(w, "Invitation has expired")
		return
	}
	if !strings.EqualFold(inv.Email, user.Email) {
		utils.WriteForbiddenResponse(w, "Invitation was issued for a different email")
		return
	}

	membership := &models.OrganizationMembership{
		OrganizationID: inv.OrganizationID,
		UserID:         user.ID,
		Role:           models.RoleMember,
	}
	if err := h.db.AddOrganizationMember(membership); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to add membership")
		return
	}

	inv.Status = models.InvitationAccepted
	inv.AcceptedBy = &user.ID
	if err := h.db.UpdateInvitation(inv); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to update invitation")
		return
	}

	fmt.Printf("✅ %s accepted invitation to organization %s\n", user.Email, inv.OrganizationID)
	utils.WriteSuccessResponse(w, membership)
}
