package devicecode

import (
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProfile = Profile{
	Brand:    "xiaomi",
	Model:    "Mi 10",
	System:   "Android 13",
	Platform: "android",
}

func TestEncode_ReturnsValidHex(t *testing.T) {
	e := New()

	out, err := e.Encode(testProfile, "")
	require.NoError(t, err)

	raw, err := hex.DecodeString(out)
	require.NoError(t, err)
	// C1 (64 bytes, marker stripped) + C3 (32 bytes) + C2 (plaintext length).
	assert.Greater(t, len(raw), 96)
	assert.Equal(t, out, strings.TrimSpace(out))
}

func TestEncode_FreshPerCall(t *testing.T) {
	e := New()

	first, err := e.Encode(testProfile, "oVv-k5NY6oBq")
	require.NoError(t, err)
	second, err := e.Encode(testProfile, "oVv-k5NY6oBq")
	require.NoError(t, err)

	// Fresh nonce and ephemeral key per call: identical inputs never repeat.
	assert.NotEqual(t, first, second)
}

func TestEncode_OwnerIDLengthensCiphertext(t *testing.T) {
	e := &Encryptor{
		now:    func() time.Time { return time.UnixMilli(1700000000000) },
		random: New().random,
	}

	anon, err := e.Encode(testProfile, "")
	require.NoError(t, err)
	owned, err := e.Encode(testProfile, "oVv-k5NY6oBq")
	require.NoError(t, err)

	// C2 length tracks the plaintext, which grows with the owner id.
	assert.Equal(t, len(anon)+2*len("oVv-k5NY6oBq"), len(owned))
}
