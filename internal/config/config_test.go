package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "file", cfg.Store.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "@every 1h", cfg.Jobs.OverdueSchedule)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.yaml")
	yamlDoc := `
env: test
store:
  driver: sqlite
  sqlite_path: /tmp/lib.db
auth:
  jwt_secret: from-yaml
  token_ttl: 2h
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, EnvTest, cfg.Env)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/lib.db", cfg.Store.SQLitePath)
	assert.Equal(t, "from-yaml", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "data", cfg.Store.Dir, "unset fields keep their defaults")
}

func TestLoadRejectsBadInput(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "floppy")
		_, err := Load("")
		assert.ErrorContains(t, err, "floppy")
	})
	t.Run("bad ttl", func(t *testing.T) {
		t.Setenv("TOKEN_TTL", "forever")
		_, err := Load("")
		assert.ErrorContains(t, err, "TOKEN_TTL")
	})
	t.Run("production needs a secret", func(t *testing.T) {
		t.Setenv("LIBRARY_ENV", EnvProduction)
		_, err := Load("")
		assert.ErrorContains(t, err, "JWT_SECRET")
	})
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	file := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(file, []byte("LIBRARYOS_PROBE_A=from-file\nLIBRARYOS_PROBE_B=from-file\n"), 0o644))

	t.Setenv("LIBRARYOS_PROBE_B", "from-process")
	t.Cleanup(func() { os.Unsetenv("LIBRARYOS_PROBE_A") })

	require.NoError(t, loadDotEnv(file))
	assert.Equal(t, "from-file", os.Getenv("LIBRARYOS_PROBE_A"))
	assert.Equal(t, "from-process", os.Getenv("LIBRARYOS_PROBE_B"))

	require.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}

func TestLoadStoreFaultInjection(t *testing.T) {
	t.Setenv("STORE_FAULT_RATE", "0.25")
	t.Setenv("STORE_FAULT_LATENCY", "50ms")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0.25, cfg.Store.Chaos.FailureRate)
	assert.Equal(t, 50*time.Millisecond, cfg.Store.Chaos.Latency)

	t.Setenv("STORE_FAULT_RATE", "1.5")
	_, err = Load("")
	assert.ErrorContains(t, err, "fault rate")

	t.Setenv("STORE_FAULT_RATE", "0.1")
	t.Setenv("LIBRARY_ENV", EnvProduction)
	t.Setenv("JWT_SECRET", "prod-secret")
	_, err = Load("")
	assert.ErrorContains(t, err, "not allowed in production")
}
