package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"math/big"

	"golang.org/x/crypto/bcrypt"

	dErrors "masthead/pkg/domain-errors"
)

// PasswordCost is the bcrypt work factor for password hashes. Raising it
// invalidates nothing; existing hashes verify at their recorded cost.
const PasswordCost = 12

// GenerateToken creates a cryptographically secure random token of n bytes,
// hex-encoded. Used for password reset tokens and similar one-time secrets.
func GenerateToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate token")
	}
	return hex.EncodeToString(buf), nil
}

// GenerateKey creates a random secret encoded as base64, suitable for
// API keys and signing keys.
func GenerateKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate key")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateNumericCode returns a random code of the given number of decimal
// digits, zero-padded. Used for email verification codes.
func GenerateNumericCode(digits int) (string, error) {
	if digits <= 0 || digits > 10 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "digits must be between 1 and 10")
	}
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate code")
	}
	code := n.String()
	for len(code) < digits {
		code = "0" + code
	}
	return code, nil
}

// HashPassword creates a bcrypt hash of the provided password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", dErrors.New(dErrors.CodeValidation, "password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeValidation, "password is too long")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not hash password")
	}
	return string(hashed), nil
}

// VerifyPassword checks if a plaintext password matches a bcrypt hash.
func VerifyPassword(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not verify password")
	}
	return nil
}

// HashSHA256 returns the hex-encoded SHA-256 digest of the value. Used for
// storing lookup hashes of refresh tokens, reset tokens, and backup codes.
func HashSHA256(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// ConstantTimeEqual compares two strings without leaking timing information.
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Sign computes an HMAC-SHA256 signature of the message, hex-encoded.
func Sign(key []byte, message string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidSignature reports whether sig is a valid HMAC-SHA256 signature of the
// message under key. Comparison is constant time.
func ValidSignature(key []byte, message, sig string) bool {
	expected := Sign(key, message)
	return hmac.Equal([]byte(expected), []byte(sig))
}

// Encrypt seals plaintext with AES-256-GCM under the given 32-byte key.
// Output is base64(nonce || ciphertext).
func Encrypt(key []byte, plaintext string) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not create cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not create gcm")
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate nonce")
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Tampered or truncated input fails authentication.
func Decrypt(key []byte, encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "malformed ciphertext")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not create cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not create gcm")
	}
	if len(raw) < gcm.NonceSize() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "malformed ciphertext")
	}
	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "ciphertext authentication failed")
	}
	return string(plaintext), nil
}
