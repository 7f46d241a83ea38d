package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/acadops-api/internal/models"
	appErrors "github.com/noah-isme/acadops-api/pkg/errors"
)

func newAuthServiceForTest() *AuthService {
	return NewAuthService(zap.NewNop(), AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Minute, Issuer: "acadops"})
}

func TestAuthServiceIssueAndValidate(t *testing.T) {
	svc := newAuthServiceForTest()
	token, expiresAt, err := svc.IssueAccessToken("user-1", models.RoleAcademicAffairs, "ops@example.com", "Ops", "branch-1")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleAcademicAffairs, claims.Role)
	assert.Equal(t, "branch-1", claims.BranchID)
}

func TestAuthServiceRejectsWrongIssuer(t *testing.T) {
	other := NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "someone-else"})
	token, _, err := other.IssueAccessToken("user-1", models.RoleAdmin, "", "", "")
	require.NoError(t, err)

	_, err = newAuthServiceForTest().ValidateToken(token)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))
}

func TestAuthServiceRejectsExpiredToken(t *testing.T) {
	svc := newAuthServiceForTest()
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _, err := svc.IssueAccessToken("user-1", models.RoleAdmin, "", "", "")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestAuthServiceRejectsOtherSigningMethod(t *testing.T) {
	claims := &models.JWTClaims{UserID: "user-1", RegisteredClaims: jwt.RegisteredClaims{Issuer: "acadops"}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = newAuthServiceForTest().ValidateToken(token)
	assert.Error(t, err)
}
