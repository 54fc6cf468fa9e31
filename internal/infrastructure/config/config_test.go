package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "s3cret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, DriverRedis, cfg.Store.Driver)
	assert.Equal(t, "json", cfg.Store.Codec)
	assert.Equal(t, 4, cfg.Store.ConnectAttempts)
	assert.Equal(t, time.Second, cfg.Store.ConnectBackoff)
	assert.Equal(t, 5, cfg.Store.CASMaxAttempts)
	assert.Equal(t, "user:", cfg.Redis.KeyPrefix)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.False(t, cfg.IsProduction())
}

func TestLoadWith_Overrides(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":               "s3cret",
		"ENV":                      "production",
		"STORE_DRIVER":             "mongo",
		"STORE_CODEC":              "msgpack",
		"TOKEN_TTL":                "1h",
		"MONGO_URI":                "mongodb://db:27017",
		"BOOTSTRAP_ADMIN_ID":       "6f1c2d3e-0000-4000-8000-000000000021",
		"BOOTSTRAP_ADMIN_PASSWORD": "root",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, DriverMongo, cfg.Store.Driver)
	assert.Equal(t, "msgpack", cfg.Store.Codec)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, "mongodb://db:27017", cfg.Mongo.URI)
	assert.Equal(t, "root", cfg.Bootstrap.AdminPassword)
}

func TestLoadWith_Rejections(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret":   {},
		"unknown driver":   {"JWT_SECRET": "x", "STORE_DRIVER": "etcd"},
		"unknown codec":    {"JWT_SECRET": "x", "STORE_CODEC": "xml"},
		"zero cas retries": {"JWT_SECRET": "x", "CAS_MAX_ATTEMPTS": "0"},
		"half bootstrap":   {"JWT_SECRET": "x", "BOOTSTRAP_ADMIN_ID": "admin"},
		"bad duration":     {"JWT_SECRET": "x", "TOKEN_TTL": "soon"},
		"unknown level":    {"JWT_SECRET": "x", "LOG_LEVEL": "loud"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadWith(context.Background(), envconfig.MapLookuper(env))
			assert.Error(t, err)
		})
	}
}
