package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAcademicAffairs UserRole = "ACADEMIC_AFFAIRS"
	RoleAdmin           UserRole = "ADMIN"
	RoleCenterHead      UserRole = "CENTER_HEAD"
)

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	BranchID string   `json:"branch_id,omitempty"`
	jwt.RegisteredClaims
}

// Actor identifies the caller of a mutating operation.
type Actor struct {
	UserID string
	Role   UserRole
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
