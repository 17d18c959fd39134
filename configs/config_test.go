package configs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	var c Config
	c.App.HTTPAddr = ":8080"
	c.Catalog.BaseURL = "https://fakestoreapi.com"
	c.Store.Backend = "postgres"
	c.Store.PostgresDSN = "postgres://localhost/snapshop?sslmode=disable"
	c.Kafka.Brokers = []string{"localhost:9092"}
	c.Identity.ProofSecret = "0123456789abcdef0123456789abcdef"
	return c
}

// ============================================
// Validate Tests
// ============================================

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing http addr", func(c *Config) { c.App.HTTPAddr = "" }},
		{"missing catalog url", func(c *Config) { c.Catalog.BaseURL = "" }},
		{"unknown backend", func(c *Config) { c.Store.Backend = "mongo" }},
		{"dynamo without table", func(c *Config) { c.Store.Backend = "dynamo"; c.Store.DynamoTable = "" }},
		{"postgres without dsn", func(c *Config) { c.Store.PostgresDSN = "" }},
		{"no kafka brokers", func(c *Config) { c.Kafka.Brokers = nil }},
		{"short proof secret", func(c *Config) { c.Identity.ProofSecret = "short" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestConfig_Validate_DynamoBackend(t *testing.T) {
	c := validConfig()
	c.Store.Backend = "dynamo"
	c.Store.DynamoTable = "snapshop-documents"
	c.Store.PostgresDSN = ""

	require.NoError(t, c.Validate())
}
