package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/acadops-api/internal/models"
	"github.com/noah-isme/acadops-api/internal/service"
	appErrors "github.com/noah-isme/acadops-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

type auditSink struct {
	logs []*models.AuditLog
}

func (a *auditSink) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestJWTAndRequireRoles(t *testing.T) {
	claims := &models.JWTClaims{UserID: "user-1", Role: models.RoleAcademicAffairs}
	router := gin.New()
	router.GET("/classes", JWT(stubValidator{claims: claims}), RequireRoles(models.RoleAcademicAffairs, models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/review", JWT(stubValidator{claims: claims}), RequireRoles(models.RoleCenterHead), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	cases := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"missing header", "/classes", "", http.StatusUnauthorized},
		{"wrong scheme", "/classes", "Basic good", http.StatusUnauthorized},
		{"bad token", "/classes", "Bearer bad", http.StatusUnauthorized},
		{"allowed role", "/classes", "Bearer good", http.StatusOK},
		{"other role", "/review", "Bearer good", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	router := gin.New()
	router.GET("/x", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	sink := &auditSink{}
	router := gin.New()
	router.GET("/exports/download/:token", Audit(sink, models.AuditActionExportDownload, models.AuditResourceExport), func(c *gin.Context) {
		if c.Param("token") == "denied" {
			c.Status(http.StatusForbidden)
			return
		}
		SetAuditResource(c, "job-1")
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/exports/download/denied", nil))
	assert.Empty(t, sink.logs)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/exports/download/abc", nil))
	require.Len(t, sink.logs, 1)
	assert.Equal(t, models.AuditActionExportDownload, sink.logs[0].Action)
	require.NotNil(t, sink.logs[0].ResourceID)
	assert.Equal(t, "job-1", *sink.logs[0].ResourceID)
	assert.Nil(t, sink.logs[0].UserID)
}

func TestResponseMetaCarriesCacheFlag(t *testing.T) {
	router := gin.New()
	router.Use(WithResponseMeta())
	var meta map[string]interface{}
	router.GET("/x", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.NotNil(t, meta)
	assert.Equal(t, true, meta["cache_hit"])
	elapsed, timed := meta["processing_time_ms"].(int64)
	require.True(t, timed)
	assert.GreaterOrEqual(t, elapsed, int64(0))
}

func TestResponseMetaWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	SetCacheHit(c, true)
	assert.Nil(t, ExtractMeta(c))
	assert.Nil(t, ExtractMeta(nil))
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	metrics := service.NewMetricsService()
	router := gin.New()
	router.Use(Metrics(metrics))
	router.GET("/classes/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/classes/class-a", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	scrape := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, scrape.Body.String(), `path="/classes/:id"`)
	assert.NotContains(t, scrape.Body.String(), "class-a")
}

func TestMetricsCollapsesUnmatchedAndSkipsOpsRoutes(t *testing.T) {
	metrics := service.NewMetricsService()
	router := gin.New()
	router.Use(Metrics(metrics))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/health", "/no/such/route-1", "/no/such/route-2"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	scrape := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := scrape.Body.String()
	assert.Contains(t, body, `path="unmatched"`)
	assert.NotContains(t, body, "route-1")
	assert.NotContains(t, body, `path="/health"`)
}
