package signer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedSigner pins the clock and makes the draw deterministic (intn always
// returns 0, so drawIndices yields "0".."19" in order).
func fixedSigner(ts int64) *Signer {
	return &Signer{
		now:  func() time.Time { return time.Unix(ts, 0) },
		intn: func(int) int { return 0 },
	}
}

func TestSign_DeterministicWithFixedDraw(t *testing.T) {
	fields := map[string]string{
		"traineeId": "11621617",
		"lng":       "120.12",
		"lat":       "30.28",
	}

	s := fixedSigner(1700000000)
	tok1 := s.Sign(fields)
	tok2 := s.Sign(fields)

	assert.Equal(t, tok1.M, tok2.M)
	assert.Equal(t, "1700000000", tok1.T)
	assert.Equal(t, "0_1_2_3_4_5_6_7_8_9_10_11_12_13_14_15_16_17_18_19", tok1.S)
	assert.Len(t, tok1.M, 32)
}

func TestSign_IncludedFieldChangesDigest(t *testing.T) {
	s := fixedSigner(1700000000)

	base := s.Sign(map[string]string{"traineeId": "100", "lng": "120"})
	changed := s.Sign(map[string]string{"traineeId": "101", "lng": "120"})

	assert.NotEqual(t, base.M, changed.M)
}

func TestSign_ExcludedFieldDoesNotChangeDigest(t *testing.T) {
	s := fixedSigner(1700000000)

	// "address" and "openId" are on the exclusion list.
	base := s.Sign(map[string]string{"traineeId": "100", "address": "somewhere", "openId": "abc"})
	changed := s.Sign(map[string]string{"traineeId": "100", "address": "elsewhere", "openId": "xyz"})

	assert.Equal(t, base.M, changed.M)
}

func TestSign_PunctuationDisqualifiesWholeValue(t *testing.T) {
	s := fixedSigner(1700000000)

	base := s.Sign(map[string]string{"traineeId": "100"})
	// A value containing any punctuation-set character is skipped entirely,
	// so the digest matches the field being absent.
	withPunct := s.Sign(map[string]string{"traineeId": "100", "extra": "v(1)"})
	withFull := s.Sign(map[string]string{"traineeId": "100", "extra": "值，带标点"})

	assert.Equal(t, base.M, withPunct.M)
	assert.Equal(t, base.M, withFull.M)
}

func TestSign_EmptyFieldsSucceeds(t *testing.T) {
	s := New()
	tok := s.Sign(map[string]string{})

	assert.Len(t, tok.M, 32)
	assert.Len(t, strings.Split(tok.S, "_"), 20)
}

func TestSign_NonceVariesAcrossCalls(t *testing.T) {
	s := New()
	tok1 := s.Sign(map[string]string{"traineeId": "100"})
	tok2 := s.Sign(map[string]string{"traineeId": "100"})

	// Random draw makes tokens unreproducible across calls; callers must not
	// cache them.
	assert.NotEqual(t, tok1.S+tok1.M, tok2.S+tok2.M)
}

func TestDrawIndices_WithoutReplacement(t *testing.T) {
	s := New()
	idx := s.drawIndices(20)

	require.Len(t, idx, 20)
	seen := make(map[string]bool)
	for _, ix := range idx {
		assert.False(t, seen[ix], "index %s drawn twice", ix)
		seen[ix] = true
	}
}

func TestQuote_MatchesExpectedEscaping(t *testing.T) {
	assert.Equal(t, "abcXYZ019_.-~/", quote("abcXYZ019_.-~/"))
	assert.Equal(t, "a%3Db", quote("a=b"))
	// Multi-byte runes are escaped per UTF-8 byte, uppercase hex.
	assert.Equal(t, "%E6%9C%AA", quote("未"))
}

func TestClean_StripsLiterals(t *testing.T) {
	assert.Equal(t, "ab", clean("a b\n\r<>&-"))
	// Real emoji pass through untouched.
	assert.Equal(t, "🌀x", clean("🌀x"))
	// The escape-sequence patterns are inert: dash removal runs first, so
	// even a value spelling them out literally no longer matches.
	assert.Equal(t, `\uD83C[\uDF00\uDFFF]`, clean(`\uD83C[\uDF00-\uDFFF]`))
}
