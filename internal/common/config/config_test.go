package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

const validYAML = `
device:
  brand: Xiaomi
  model: Mi 10
  system: Android 11
  platform: android
location:
  longitude: "120.1"
  latitude: "30.2"
user_agent: "Mozilla/5.0 test"
`

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "xybclock", cfg.App.Name)
	assert.Equal(t, "https://xcx.xybsyw.com", cfg.Remote.BaseURL)
	assert.Equal(t, 5000, cfg.Remote.Timeout)
	assert.Equal(t, 10000, cfg.Remote.JournalTimeout)
	assert.Equal(t, "127.0.0.1:13140", cfg.Capture.ProxyAddr())
	assert.Equal(t, 120000, cfg.Capture.Timeout)
	assert.Equal(t, 12*60*60*1000, cfg.Session.TTL)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadFromFile_ExplicitValuesWin(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, validYAML+`
remote:
  base_url: http://127.0.0.1:9999
  timeout: 250
capture:
  host: 0.0.0.0
  port: 8080
logging:
  level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:9999", cfg.Remote.BaseURL)
	assert.Equal(t, 250, cfg.Remote.Timeout)
	assert.Equal(t, "0.0.0.0:8080", cfg.Capture.ProxyAddr())
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromFile_RejectsIncompleteProfile(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing device model",
			yaml: `
device:
  brand: Xiaomi
  system: Android 11
  platform: android
location:
  longitude: "120.1"
  latitude: "30.2"
user_agent: "ua"
`,
			want: "model",
		},
		{
			name: "missing location",
			yaml: `
device:
  brand: Xiaomi
  model: Mi 10
  system: Android 11
  platform: android
user_agent: "ua"
`,
			want: "location",
		},
		{
			name: "empty user agent",
			yaml: `
device:
  brand: Xiaomi
  model: Mi 10
  system: Android 11
  platform: android
location:
  longitude: "120.1"
  latitude: "30.2"
user_agent: ""
`,
			want: "user_agent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestProxyAddr_EmptyHost(t *testing.T) {
	assert.Empty(t, CaptureConfig{Port: 13140}.ProxyAddr())
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, GetDuration(5000))
	assert.Equal(t, time.Duration(0), GetDuration(0))
}
