package capture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "data", "code.json"))
}

func TestStoreRoundTrip(t *testing.T) {
	s := tempStore(t)

	require.NoError(t, s.Put("071abcDEF123"))
	rec, err := s.Get()
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "071abcDEF123", rec.Code)
	assert.Greater(t, rec.TS, float64(0))
}

func TestStoreGetMissingFileIsNotReady(t *testing.T) {
	rec, err := tempStore(t).Get()
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestStoreGetCorruptFileIsNotReady(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
	require.NoError(t, os.WriteFile(s.Path(), []byte("{half a rec"), 0o644))

	rec, err := s.Get()
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestStoreRemoveIsIdempotent(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Remove())

	require.NoError(t, s.Put("code"))
	require.NoError(t, s.Remove())
	require.NoError(t, s.Remove())

	rec, err := s.Get()
	require.NoError(t, err)
	assert.Nil(t, rec)
}
