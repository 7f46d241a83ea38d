package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	return v
}

func TestFromViperDefaults(t *testing.T) {
	cfg := fromViper(newTestViper())

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.InDelta(t, 0.01, cfg.Scheduling.DurationToleranceHours, 1e-9)
	assert.Equal(t, time.Hour, cfg.Scheduling.ConflictSessionTTL)
	assert.Equal(t, 30*time.Minute, cfg.Scheduling.TeacherAttemptTTL)
	assert.False(t, cfg.Cache.Enabled)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestFromViperEnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "https://ops.example.com, https://admin.example.com ,")
	t.Setenv("SCHEDULING_CONFLICT_SESSION_TTL", "15m")
	t.Setenv("SCHEDULING_TEACHER_ATTEMPT_TTL", "not-a-duration")
	t.Setenv("ENABLE_CACHE", "true")

	cfg := fromViper(newTestViper())

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"https://ops.example.com", "https://admin.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 15*time.Minute, cfg.Scheduling.ConflictSessionTTL)
	assert.Equal(t, 30*time.Minute, cfg.Scheduling.TeacherAttemptTTL)
	assert.True(t, cfg.Cache.Enabled)
}
