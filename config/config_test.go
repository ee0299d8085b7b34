package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "5000", cfg.AppPort)
	assert.Equal(t, "/graphql", cfg.GraphQLPath)
	assert.Equal(t, "GraphQL", cfg.MongoDatabase)
	assert.Equal(t, BrokerMemory, cfg.EventBroker)
	assert.Equal(t, 64, cfg.SubscriberBuffer)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("APP_PORT", "8088")
	t.Setenv("STORE_DRIVER", StorePostgres)
	t.Setenv("EVENT_BROKER", BrokerRedis)
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SUBSCRIBER_BUFFER", "not-a-number")
	t.Setenv("DB_USER", "chat")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "6432")
	t.Setenv("DB_NAME", "messages")

	cfg := LoadConfig()

	assert.Equal(t, "8088", cfg.AppPort)
	assert.Equal(t, StorePostgres, cfg.StoreDriver)
	assert.Equal(t, BrokerRedis, cfg.EventBroker)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 64, cfg.SubscriberBuffer, "unparsable ints fall back to the default")
	assert.Equal(t, "postgres://chat:secret@db:6432/messages?sslmode=disable", cfg.PostgresDSN())
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			StoreDriver:      StoreMemory,
			EventBroker:      BrokerMemory,
			SubscriberBuffer: 1,
			GraphQLPath:      "/graphql",
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "unknown store", mutate: func(c *Config) { c.StoreDriver = "sqlite" }},
		{name: "unknown broker", mutate: func(c *Config) { c.EventBroker = "kafka" }},
		{name: "zero buffer", mutate: func(c *Config) { c.SubscriberBuffer = 0 }},
		{name: "relative path", mutate: func(c *Config) { c.GraphQLPath = "graphql" }},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
