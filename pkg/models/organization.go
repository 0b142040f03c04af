package models

import "time"

// TeamSize 组织规模档位（入驻时选择）
type TeamSize string

const (
	TeamSizeSmall  TeamSize = "small"
	TeamSizeMedium TeamSize = "medium"
	TeamSizeLarge  TeamSize = "large"
)

// Valid reports whether the team size is one of the allowed values.
func (t TeamSize) Valid() bool {
	switch t {
	case TeamSizeSmall, TeamSizeMedium, TeamSizeLarge:
		return true
	}
	return false
}

// Organization represents a cidery tenant (owner + members); it owns
// every batch and all batch sub-records transitively.
type Organization struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	OwnerID   string    `json:"owner_id" db:"owner_id"`
	TeamSize  TeamSize  `json:"team_size" db:"team_size"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type OrgMemberRole string

const (
	RoleOwner  OrgMemberRole = "owner"
	RoleAdmin  OrgMemberRole = "admin"
	RoleMember OrgMemberRole = "member"
)

// OrganizationMembership relates users to organizations with a role.
// The (organization_id, user_id) pair is unique.
type OrganizationMembership struct {
	ID             string        `json:"id" db:"id"`
	OrganizationID string        `json:"organization_id" db:"organization_id"`
	UserID         string        `json:"user_id" db:"user_id"`
	Role           OrgMemberRole `json:"role" db:"role"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
}
