package testutil

import (
	"net"
	"os"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/irfndi/electricity-price-prediction/internal/config"
)

// TestRedisDB keeps tests off the default database of a shared server.
const TestRedisDB = 1

// StartMiniRedis runs an in-process Redis for the lifetime of t and returns
// connection settings pointing at it.
func StartMiniRedis(t testing.TB) (*miniredis.Miniredis, config.RedisConfig) {
	t.Helper()
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	if err != nil {
		t.Fatalf("miniredis port %q: %v", mr.Port(), err)
	}
	return mr, config.RedisConfig{
		Enabled: true,
		Host:    mr.Host(),
		Port:    port,
	}
}

// GetTestRedisConfig points at REDIS_TEST_ADDR when set and falls back to an
// in-process miniredis otherwise.
func GetTestRedisConfig(t testing.TB) config.RedisConfig {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		_, cfg := StartMiniRedis(t)
		return cfg
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("invalid REDIS_TEST_ADDR %q: %v", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("invalid REDIS_TEST_ADDR port %q: %v", portStr, err)
	}
	return config.RedisConfig{
		Enabled: true,
		Host:    host,
		Port:    port,
		DB:      TestRedisDB,
	}
}
