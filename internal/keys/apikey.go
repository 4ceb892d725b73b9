package keys

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

// Prefix is the fixed literal that opens every credential issued by this
// gateway. The full wire shape is "jk_<key_id>.<secret>".
const Prefix = "jk"

const minSecretLen = 32

var ErrMalformedCredential = errors.New("malformed credential")

// NewSecret returns a fresh URL-safe secret of at least minSecretLen chars.
func NewSecret() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}

// Format assembles the wire form of a credential.
func Format(keyID, secret string) string {
	return Prefix + "_" + keyID + "." + secret
}

// ParseCredential splits a bearer credential into its key id and secret.
// It only checks structure; possession is proven by VerifySecret against
// the stored hash.
func ParseCredential(credential string) (keyID, secret string, err error) {
	rest, ok := strings.CutPrefix(credential, Prefix+"_")
	if !ok {
		return "", "", ErrMalformedCredential
	}
	keyID, secret, ok = strings.Cut(rest, ".")
	if !ok || keyID == "" {
		return "", "", ErrMalformedCredential
	}
	if len(secret) < minSecretLen {
		return "", "", ErrMalformedCredential
	}
	return keyID, secret, nil
}

func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// VerifySecret compares the SHA-256 of the supplied secret against the
// stored hex hash in constant time.
func VerifySecret(secret, storedHash string) bool {
	supplied := sha256.Sum256([]byte(secret))
	stored, err := hex.DecodeString(strings.TrimSpace(strings.ToLower(storedHash)))
	if err != nil || len(stored) != sha256.Size {
		return false
	}
	return subtle.ConstantTimeCompare(supplied[:], stored) == 1
}
