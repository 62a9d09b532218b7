package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"taskmanager/internal/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnv = []string{
	"CONFIG", "ADDR", "PORT", "DB_STR", "MIGRATE_PATH", "STORAGE", "SQLITE_PATH",
	"BLOB_DRIVER", "UPLOAD_DIR", "GCS_BUCKET", "GOOGLE_APPLICATION_CREDENTIALS",
	"JWT_SECRET_KEY", "JWT_TTL", "CORS_ORIGINS", "MAX_UPLOAD_SIZE", "SEED",
	"DB_USER", "DB_PASSWORD", "DB_NAME", "DB_HOST", "DB_PORT",
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnv {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseConfigFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    struct {
			err  error
			port int
			ttl  time.Duration
			cors []string
		}
	}{
		{
			name:    "json",
			file:    "config.json",
			content: `{"port": 9090, "storage": "sqlite", "corsOrigins": ["http://a", "http://b"]}`,
			want: struct {
				err  error
				port int
				ttl  time.Duration
				cors []string
			}{port: 9090, cors: []string{"http://a", "http://b"}},
		},
		{
			name:    "yaml with duration",
			file:    "config.yaml",
			content: "port: 7070\njwtTTL: 12h\nstorage: memory\n",
			want: struct {
				err  error
				port int
				ttl  time.Duration
				cors []string
			}{port: 7070, ttl: 12 * time.Hour},
		},
		{
			name:    "broken json",
			file:    "config.json",
			content: `{"port": `,
			want: struct {
				err  error
				port int
				ttl  time.Duration
				cors []string
			}{err: errors.ErrConfigParseFailed},
		},
		{
			name:    "broken yaml",
			file:    "config.yml",
			content: "port: [1, 2\n",
			want: struct {
				err  error
				port int
				ttl  time.Duration
				cors []string
			}{err: errors.ErrConfigParseFailed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := parseConfigFile(writeFile(t, tt.file, tt.content))
			if tt.want.err != nil {
				assert.ErrorIs(t, err, tt.want.err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.port, cfg.Port)
			assert.Equal(t, tt.want.ttl, cfg.JWTTTL)
			assert.Equal(t, tt.want.cors, cfg.CORSOrigins)
		})
	}

	_, err := parseConfigFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, errors.ErrConfigFileReadFailed)
}

func TestMergeConfig(t *testing.T) {
	merged := mergeConfig(DefaultConfig(), &Config{
		Port:       9000,
		Storage:    StorageSQLite,
		BlobDriver: BlobGCS,
		GCSBucket:  "bucket",
		Seed:       true,
	})

	assert.Equal(t, 9000, merged.Port)
	assert.Equal(t, StorageSQLite, merged.Storage)
	assert.Equal(t, BlobGCS, merged.BlobDriver)
	assert.Equal(t, "bucket", merged.GCSBucket)
	assert.True(t, merged.Seed)
	assert.Equal(t, defaultAddr, merged.Addr)
	assert.Equal(t, defaultJWTTTL, merged.JWTTTL)
	assert.Equal(t, int64(defaultMaxUploadSize), merged.MaxUploadSize)
}

func TestApplyEnvOverrides(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "plain values",
			env: map[string]string{
				"ADDR":            "127.0.0.1",
				"PORT":            "9999",
				"STORAGE":         "memory",
				"JWT_SECRET_KEY":  "env-secret",
				"JWT_TTL":         "30m",
				"CORS_ORIGINS":    "http://a,http://b",
				"MAX_UPLOAD_SIZE": "2048",
				"SEED":            "true",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "127.0.0.1:9999", cfg.ListenAddr())
				assert.Equal(t, StorageMemory, cfg.Storage)
				assert.Equal(t, "env-secret", cfg.JWTSecret)
				assert.Equal(t, 30*time.Minute, cfg.JWTTTL)
				assert.Equal(t, []string{"http://a", "http://b"}, cfg.CORSOrigins)
				assert.Equal(t, int64(2048), cfg.MaxUploadSize)
				assert.True(t, cfg.Seed)
			},
		},
		{
			name: "invalid values keep defaults",
			env: map[string]string{
				"PORT":            "70000",
				"JWT_TTL":         "forever",
				"MAX_UPLOAD_SIZE": "-1",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, defaultPort, cfg.Port)
				assert.Equal(t, defaultJWTTTL, cfg.JWTTTL)
				assert.Equal(t, int64(defaultMaxUploadSize), cfg.MaxUploadSize)
			},
		},
		{
			name: "database parts build the connection string",
			env: map[string]string{
				"DB_USER":     "u",
				"DB_PASSWORD": "p",
				"DB_NAME":     "tasks",
				"DB_HOST":     "localhost",
				"DB_PORT":     "5433",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "postgresql://u:p@localhost:5433/tasks?sslmode=disable", cfg.DBStr)
			},
		},
		{
			name: "explicit DB_STR wins over parts",
			env: map[string]string{
				"DB_STR":      "postgresql://x@y/z",
				"DB_USER":     "u",
				"DB_PASSWORD": "p",
				"DB_NAME":     "tasks",
				"DB_HOST":     "localhost",
				"DB_PORT":     "5433",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "postgresql://x@y/z", cfg.DBStr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			tt.check(t, applyEnvOverrides(DefaultConfig()))
		})
	}
}

func TestLoadConfig(t *testing.T) {
	clearConfigEnv(t)
	path := writeFile(t, "config.yaml", "port: 7070\nstorage: sqlite\nuploadDir: /var/uploads\n")
	t.Setenv("STORAGE", "memory")

	cfg := LoadConfig(path)

	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, "/var/uploads", cfg.UploadDir)
	assert.Equal(t, defaultJWTSecret, cfg.JWTSecret)

	t.Setenv("CONFIG", path)
	assert.Equal(t, 7070, LoadConfig("").Port)

	missing := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Equal(t, defaultPort, missing.Port)
}
