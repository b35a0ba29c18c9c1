// Package devicecode builds and encrypts the device fingerprint carried in
// the devicecode header. The fingerprint binds the device profile, the
// mini-program app id, the current time, a random nonce, and the caller's
// open id; the service decrypts it with its SM2 private key.
package devicecode

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	mrand "math/rand"
	"strings"
	"time"

	"github.com/emmansun/gmsm/sm2"
)

const appID = "wx9f1c2e0bbc10673c"

// publicKeyHex is the service's fixed SM2 public key (uncompressed point).
// External contract: must match the remote decryption key bit for bit.
const publicKeyHex = "04a3c35de075a2e86f28d52a41989a08e740a82fb96d43d9af8a5509e0a4e837ec" +
	"b384c44fe1ee95f601ef36f3c892214d45c9b3f75b57556466876ad6052f0f1f"

// Profile is the immutable device identity from configuration.
type Profile struct {
	Brand    string
	Model    string
	System   string
	Platform string
}

var publicKey = mustParsePublicKey(publicKeyHex)

func mustParsePublicKey(h string) *ecdsa.PublicKey {
	raw, err := hex.DecodeString(h)
	if err != nil || len(raw) != 65 || raw[0] != 0x04 {
		panic("devicecode: malformed SM2 public key constant")
	}
	return &ecdsa.PublicKey{
		Curve: sm2.P256(),
		X:     new(big.Int).SetBytes(raw[1:33]),
		Y:     new(big.Int).SetBytes(raw[33:65]),
	}
}

// Encryptor produces fingerprint ciphertexts. Clock and randomness are
// injectable for tests.
type Encryptor struct {
	now    func() time.Time
	random io.Reader
}

func New() *Encryptor {
	return &Encryptor{now: time.Now, random: rand.Reader}
}

// Encode builds the plaintext fingerprint for the given owner id (empty
// before login, the authenticated open id afterward) and returns the hex
// SM2 ciphertext. The result embeds a fresh timestamp and nonce, so it must
// be recomputed per request and never cached.
func (e *Encryptor) Encode(p Profile, ownerID string) (string, error) {
	plaintext := fmt.Sprintf("b|_%s,%s,%s,%said|_%st|_%duid|_%soid|_%s",
		p.Brand, p.Model, p.System, p.Platform,
		appID,
		e.now().UnixMilli(),
		randString(16),
		ownerID,
	)

	// The service expects C1C3C2 splicing with the uncompressed-point marker
	// stripped before hex encoding.
	opts := sm2.NewPlainEncrypterOpts(sm2.MarshalUncompressed, sm2.C1C3C2)
	ciphertext, err := sm2.Encrypt(e.random, publicKey, []byte(plaintext), opts)
	if err != nil {
		return "", fmt.Errorf("sm2 encrypt failed: %w", err)
	}

	return strings.TrimSpace(hex.EncodeToString(ciphertext[1:])), nil
}

const randChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = randChars[mrand.Intn(len(randChars))]
	}
	return string(b)
}
