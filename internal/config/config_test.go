package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Sternrassler/listpager/pkg/client"
	"github.com/Sternrassler/listpager/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LISTPAGER_BASE_URL", "LISTPAGER_TOKEN", "USER_AGENT", "REDIS_URL",
		"LISTPAGER_LISTEN", "LOG_LEVEL", "LISTPAGER_PAGE_SIZE",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "listpager.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "listpager/"+Version, cfg.API.UserAgent)
	assert.Equal(t, 20, cfg.Paging.PageSize)
	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, []int{40101}, cfg.API.SessionInvalidatedCodes)
	assert.Error(t, cfg.Validate(), "base url has no default")
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
api:
  base_url: https://api.example.com
  token: secret
  timeout: 5s
  max_retries: 1
  session_invalidated_codes: [40101, 40102]
paging:
  page_size: 30
  page_timeout: 3s
redis:
  url: redis://localhost:6379/2
log:
  level: debug
  pretty: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, 1, cfg.API.MaxRetries)
	assert.Equal(t, []int{40101, 40102}, cfg.API.SessionInvalidatedCodes)
	assert.Equal(t, 30, cfg.Paging.PageSize)
	assert.Equal(t, 3*time.Second, cfg.Paging.PageTimeout)
	assert.Equal(t, "listpager/"+Version, cfg.API.UserAgent, "unset keys keep defaults")

	logCfg := cfg.Logging()
	assert.Equal(t, logging.LevelDebug, logCfg.Level)
	assert.True(t, logCfg.Pretty)

	opts, err := cfg.RedisOptions()
	require.NoError(t, err)
	require.NotNil(t, opts)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "api:\n  base_url: https://file.example.com\n")

	t.Setenv("LISTPAGER_BASE_URL", "http://env.example.com")
	t.Setenv("LISTPAGER_TOKEN", "env-token")
	t.Setenv("USER_AGENT", "tester/1.0")
	t.Setenv("REDIS_URL", "localhost:6380")
	t.Setenv("LISTPAGER_LISTEN", "127.0.0.1:9000")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LISTPAGER_PAGE_SIZE", "50")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://env.example.com", cfg.API.BaseURL)
	assert.Equal(t, "env-token", cfg.API.Token)
	assert.Equal(t, "tester/1.0", cfg.API.UserAgent)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Listen)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 50, cfg.Paging.PageSize)

	opts, err := cfg.RedisOptions()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6380", opts.Addr)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		wantErr string
	}{
		{name: "missing base url", content: "log:\n  level: info\n", wantErr: "base_url is required"},
		{name: "bad scheme", content: "api:\n  base_url: ftp://x\n", wantErr: "http(s) URL"},
		{name: "bad page size", content: "api:\n  base_url: http://x\npaging:\n  page_size: 0\n", wantErr: "page_size"},
		{name: "bad log level", content: "api:\n  base_url: http://x\nlog:\n  level: loud\n", wantErr: "log.level"},
		{name: "negative retries", content: "api:\n  base_url: http://x\n  max_retries: -1\n", wantErr: "max_retries"},
		{name: "invalid yaml", content: "api: [", wantErr: "parse config"},
		{name: "bad env page size", content: "api:\n  base_url: http://x\n", env: map[string]string{"LISTPAGER_PAGE_SIZE": "many"}, wantErr: "LISTPAGER_PAGE_SIZE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeFile(t, tt.content))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "read config")
}

func TestLoad_EnvOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv("LISTPAGER_BASE_URL", "https://api.example.com")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.API.BaseURL)

	opts, err := cfg.RedisOptions()
	require.NoError(t, err)
	assert.Nil(t, opts, "redis is disabled without a url")
}

func TestClientAndSource(t *testing.T) {
	cfg := Default()
	cfg.API.BaseURL = "https://api.example.com"
	cfg.API.Token = "abc"
	cfg.API.SuccessCode = 200

	cc := cfg.Client(nil)
	assert.Equal(t, "https://api.example.com", cc.BaseURL)
	assert.Equal(t, client.StaticToken("abc"), cc.Token)
	assert.Equal(t, 200, cc.SuccessCode)
	assert.Nil(t, cc.Redis)

	_, err := client.New(cc)
	require.NoError(t, err)

	src := cfg.Source()
	assert.Equal(t, cfg.Paging.PageSize, src.PageSize)
	assert.Equal(t, cfg.Paging.PageTimeout, src.Timeout)
}
