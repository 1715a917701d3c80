package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnv(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".app.env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewConfigFromFile(t *testing.T) {
	path := writeEnv(t, `
DATABASE_DRIVER=postgres
DATABASE_HOST=db
DATABASE_USER=drive
DATABASE_PASSWORD=p@ss
HTTP_PORT=8080
STORAGE_PROVIDER=minio
STORAGE_DEFAULT_QUOTA_BYTES=1048576
RECONCILE_INTERVAL=15m
`)

	cfg, err := NewConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "50051", cfg.Server.GRPCPort)
	assert.Equal(t, 15*time.Minute, cfg.Server.ReconcileInterval)
	assert.Equal(t, 60*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, ProviderMinio, cfg.Storage.Provider)
	assert.Equal(t, int64(1048576), cfg.Storage.DefaultQuotaBytes)
	assert.True(t, cfg.Storage.Thumbnails)
	assert.Equal(t, "info", cfg.Log.Level)

	assert.Equal(t,
		"host=db port=5432 user=drive password=p@ss dbname=storagedrive sslmode=disable",
		cfg.Database.GetDSN())
	assert.Equal(t,
		"postgres://drive:p%40ss@db:5432/storagedrive?sslmode=disable",
		cfg.Database.MigrationURL())
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeEnv(t, "DATABASE_DRIVER=postgres\nDATABASE_HOST=db\nDATABASE_USER=drive\nHTTP_PORT=8080\n")

	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_HOST", "db.internal")

	cfg, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
}

func TestEnvironmentOnly(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_SQLITE_PATH", "/tmp/drive.db")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := NewConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/drive.db", cfg.Database.GetDSN())
	assert.Empty(t, cfg.Database.MigrationURL())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"postgres without host", "DATABASE_DRIVER=postgres\nDATABASE_USER=u\n"},
		{"unknown driver", "DATABASE_DRIVER=mysql\n"},
		{"unknown provider", "DATABASE_DRIVER=sqlite\nSTORAGE_PROVIDER=ftp\n"},
		{"negative quota", "DATABASE_DRIVER=sqlite\nSTORAGE_DEFAULT_QUOTA_BYTES=-1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig(writeEnv(t, tt.content))
			assert.Error(t, err)
		})
	}
}
