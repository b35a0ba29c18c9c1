package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xybclock/internal/common/logger"
)

func tempCache(t *testing.T, ttl time.Duration) *CacheStore {
	t.Helper()
	return NewCacheStore(filepath.Join(t.TempDir(), "data", "session.json"), ttl, logger.NewTestLogger(t))
}

func sampleSession() *Session {
	return &Session{
		SessionID:    "sess-abc",
		EncryptValue: "enc-def",
		OpenID:       "o-1",
		UnionID:      "u-1",
		TraineeID:    "777",
	}
}

func TestCacheRoundTrip(t *testing.T) {
	c := tempCache(t, time.Hour)
	require.NoError(t, c.Save(sampleSession()))

	got, err := c.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "sess-abc", got.SessionID)
	assert.Equal(t, "777", got.TraineeID)
	assert.NotZero(t, got.Timestamp)
}

func TestCacheMissOnNoFile(t *testing.T) {
	got, err := tempCache(t, time.Hour).Load()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheExpiredEntryIsMissAndRemoved(t *testing.T) {
	c := tempCache(t, time.Hour)
	require.NoError(t, c.Save(sampleSession()))

	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	got, err := c.Load()
	require.NoError(t, err)
	assert.Nil(t, got)

	_, statErr := os.Stat(c.path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCacheCorruptEntryIsMissAndRemoved(t *testing.T) {
	c := tempCache(t, time.Hour)
	require.NoError(t, os.MkdirAll(filepath.Dir(c.path), 0o755))
	require.NoError(t, os.WriteFile(c.path, []byte("not json"), 0o600))

	got, err := c.Load()
	require.NoError(t, err)
	assert.Nil(t, got)

	_, statErr := os.Stat(c.path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCacheIncompleteEntryIsMiss(t *testing.T) {
	c := tempCache(t, time.Hour)
	require.NoError(t, os.MkdirAll(filepath.Dir(c.path), 0o755))
	require.NoError(t, os.WriteFile(c.path, []byte(`{"sessionId": "only"}`), 0o600))

	got, err := c.Load()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheClearIsIdempotent(t *testing.T) {
	c := tempCache(t, time.Hour)
	require.NoError(t, c.Clear())
	require.NoError(t, c.Save(sampleSession()))
	require.NoError(t, c.Clear())
	require.NoError(t, c.Clear())
}
