package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Addr)
	require.Equal(t, "sqlite3", cfg.DBDriver)
	require.Equal(t, time.Minute, cfg.TicketTTL)
	require.Empty(t, cfg.RedisAddr)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "postgres://localhost/chat")
	t.Setenv("TICKET_TTL", "30s")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.Addr)
	require.Equal(t, "postgres", cfg.DBDriver)
	require.Equal(t, "postgres://localhost/chat", cfg.DBDSN)
	require.Equal(t, 30*time.Second, cfg.TicketTTL)
	require.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestCensorRune(t *testing.T) {
	cfg := &Config{CensorChar: "#"}
	r, err := cfg.CensorRune()
	require.NoError(t, err)
	require.Equal(t, '#', r)

	cfg.CensorChar = "##"
	_, err = cfg.CensorRune()
	require.Error(t, err)

	cfg.CensorChar = ""
	_, err = cfg.CensorRune()
	require.Error(t, err)
}
