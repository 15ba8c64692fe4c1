package redis

import (
	"context"
	"net"
	"strconv"
	"testing"

	"settlement-gateway/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisAddr(t *testing.T) {
	cfg := config.RedisConfig{
		Host: "redis.example.com",
		Port: 6380,
	}

	assert.Equal(t, "redis.example.com:6380", cfg.Addr())
}

func TestRedisDefaultConfig(t *testing.T) {
	cfg := config.RedisConfig{
		Host:     "localhost",
		Port:     6379,
		Password: "",
		DB:       0,
	}

	assert.Equal(t, "localhost:6379", cfg.Addr())
	assert.Empty(t, cfg.Password)
	assert.Equal(t, 0, cfg.DB)
}

func TestNewClient_PingsServer(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)

	client, err := NewClient(context.Background(), config.RedisConfig{Host: host, Port: p}, zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	h := NewHealthCheck(client)
	assert.Equal(t, "redis", h.Name())
	assert.NoError(t, h.Ping(context.Background()))
}

func TestNewClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)

	_, err = NewClient(context.Background(), config.RedisConfig{Host: host, Port: p}, zerolog.Nop())
	assert.ErrorContains(t, err, "pinging redis")
}
