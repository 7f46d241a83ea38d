package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/acadops-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5433, User: "ops", Password: "secret", Name: "acadops", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5433 user=ops password=secret dbname=acadops sslmode=disable", dsn)
}
