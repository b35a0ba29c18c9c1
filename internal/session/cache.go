package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"xybclock/internal/common/logger"
)

// DefaultTTL bounds how long a cached session is trusted without asking the
// server. Sessions usually die earlier; the TTL just avoids burning a remote
// call on hopeless entries.
const DefaultTTL = 12 * time.Hour

// CacheStore persists one session as a JSON file.
type CacheStore struct {
	path string
	ttl  time.Duration
	now  func() time.Time
	log  logger.Logger
}

func NewCacheStore(path string, ttl time.Duration, log logger.Logger) *CacheStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CacheStore{path: path, ttl: ttl, now: time.Now, log: log}
}

// Load returns the cached session, or nil when there is none worth using.
// Missing, corrupt, and expired entries all read as a miss; corrupt and
// expired files are removed on the way out.
func (c *CacheStore) Load() (*Session, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		c.log.Warn("session cache corrupt, discarding", map[string]interface{}{"error": err.Error()})
		return nil, c.Clear()
	}
	if s.SessionID == "" || s.EncryptValue == "" {
		c.log.Warn("session cache incomplete, discarding", nil)
		return nil, c.Clear()
	}

	age := c.now().Sub(time.UnixMilli(s.Timestamp))
	if age > c.ttl || age < 0 {
		c.log.Info("session cache expired, discarding", map[string]interface{}{"age": age.String()})
		return nil, c.Clear()
	}
	return &s, nil
}

// Save stamps and persists the session.
func (c *CacheStore) Save(s *Session) error {
	s.Timestamp = c.now().UnixMilli()
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}

// Clear removes the cache file. Missing is fine.
func (c *CacheStore) Clear() error {
	err := os.Remove(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
