package database

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestNewRedis_InvalidConfig(t *testing.T) {
	cfg := RedisConfig{
		Host: "127.0.0.1",
		Port: "1",
	}

	client, err := NewRedis(cfg)

	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "redis.example.com", Port: "6380", Password: "redis-secret", DB: 1}

	assert.Equal(t, "redis.example.com:6380", cfg.Addr())
	assert.Equal(t, 1, cfg.DB)
}

func TestRedisHealthcheck_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	err := RedisHealthcheck(client)(context.Background())
	assert.Error(t, err)
}
