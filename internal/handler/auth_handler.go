package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/acadops-api/internal/models"
	appErrors "github.com/noah-isme/acadops-api/pkg/errors"
	"github.com/noah-isme/acadops-api/pkg/response"
)

// AuthHandler exposes the identity behind the presented access token.
type AuthHandler struct{}

// NewAuthHandler creates a new handler.
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

type currentUser struct {
	UserID    string          `json:"userId"`
	Role      models.UserRole `json:"role"`
	Email     string          `json:"email,omitempty"`
	FullName  string          `json:"fullName,omitempty"`
	BranchID  string          `json:"branchId,omitempty"`
	ExpiresAt *time.Time      `json:"expiresAt,omitempty"`
}

// Me godoc
// @Summary Current user
// @Description Returns the claims of the bearer token
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	user := currentUser{
		UserID:   claims.UserID,
		Role:     claims.Role,
		Email:    claims.Email,
		FullName: claims.FullName,
		BranchID: claims.BranchID,
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		user.ExpiresAt = &exp
	}
	response.JSON(c, http.StatusOK, user, nil)
}
