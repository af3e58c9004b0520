package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("server:\n  port: 9000\n"))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "gpt-4.1-nano", cfg.LLM.Model)
	assert.Equal(t, 3, cfg.Panel.Size)
	assert.Equal(t, 3, cfg.Panel.QuestionsPerExpert)
	assert.True(t, cfg.IsolateFailures())
	assert.Equal(t, "roundtable-sandbox:latest", cfg.Sandbox.Image)
	assert.Equal(t, 60*time.Second, cfg.Sandbox.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.Redis.TTL)
	assert.Equal(t, "", cfg.Database.Driver)
}

func TestParseFull(t *testing.T) {
	yml := `
auth:
  acme: k-acme
llm:
  model: gpt-4o
  timeout: 30s
panel:
  concurrent: true
  isolateFailures: false
sandbox:
  network: true
database:
  driver: postgres
  host: db
  user: rt
  password: secret
  name: roundtable
redis:
  addr: redis:6379
  ttl: 2h
`
	cfg, err := Parse([]byte(yml))
	require.NoError(t, err)

	assert.Equal(t, "k-acme", cfg.Auth["acme"])
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.True(t, cfg.Panel.Concurrent)
	assert.False(t, cfg.IsolateFailures())
	assert.True(t, cfg.Sandbox.Network)
	assert.Equal(t, 2*time.Hour, cfg.Redis.TTL)
	assert.Equal(t, "host=db port=5432 user=rt password=secret dbname=roundtable sslmode=disable", cfg.PostgresDSN())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ROUNDTABLE_LLM_API_KEY", "sk-env")
	t.Setenv("ROUNDTABLE_LLM_MODEL", "gpt-env")
	t.Setenv("ROUNDTABLE_DB_PASSWORD", "pw-env")
	t.Setenv("ROUNDTABLE_REDIS_ADDR", "cache:6379")

	cfg, err := Parse([]byte("llm:\n  apiKey: sk-file\n  model: gpt-file\ndatabase:\n  driver: mysql\n  host: db\n  user: u\n  name: n\n"))
	require.NoError(t, err)

	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	assert.Equal(t, "gpt-env", cfg.LLM.Model)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, "u:pw-env@tcp(db:3306)/n?parseTime=true&charset=utf8mb4&loc=UTC", cfg.MySQLDSN())
}

func TestValidateRejects(t *testing.T) {
	_, err := Parse([]byte("panel:\n  size: 5\n"))
	assert.ErrorContains(t, err, "panel.size")

	_, err = Parse([]byte("database:\n  driver: sqlite\n"))
	assert.ErrorContains(t, err, "database.driver")
}
