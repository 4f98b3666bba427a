package mfa

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	dErrors "masthead/pkg/domain-errors"
)

// RFC 6238 parameters. Authenticator apps expect SHA1/6/30 and most refuse
// anything else, so these are fixed rather than configurable.
const (
	totpSecretBytes = 20
	totpDigits      = 6
	totpPeriod      = 30
	totpSkew        = 2
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSecret produces a new random TOTP secret and its base32 encoding
// for authenticator app enrollment.
func GenerateSecret() ([]byte, string, error) {
	raw := make([]byte, totpSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate totp secret")
	}
	return raw, b32.EncodeToString(raw), nil
}

// DecodeSecret reverses the base32 encoding produced by GenerateSecret.
func DecodeSecret(encoded string) ([]byte, error) {
	raw, err := b32.DecodeString(strings.ToUpper(strings.TrimSpace(encoded)))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "malformed totp secret")
	}
	return raw, nil
}

// ProvisionURI builds the otpauth:// URI encoded into enrollment QR codes.
func ProvisionURI(issuer, account, secretBase32 string) string {
	label := url.PathEscape(issuer + ":" + account)

	v := url.Values{}
	v.Set("secret", secretBase32)
	v.Set("issuer", issuer)
	v.Set("period", strconv.Itoa(totpPeriod))
	v.Set("digits", strconv.Itoa(totpDigits))
	v.Set("algorithm", "SHA1")

	return "otpauth://totp/" + label + "?" + v.Encode()
}

// VerifyCode checks a submitted code against the secret, accepting codes from
// up to totpSkew periods in either direction. It returns the matched counter
// so callers can reject replays of the same time step.
func VerifyCode(secret []byte, code string, now time.Time) (bool, int64, error) {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != totpDigits || !isNumeric(trimmed) {
		return false, 0, nil
	}
	if len(secret) == 0 {
		return false, 0, dErrors.New(dErrors.CodeInternal, "empty totp secret")
	}

	baseCounter := now.Unix() / totpPeriod
	for step := -totpSkew; step <= totpSkew; step++ {
		counter := baseCounter + int64(step)
		if counter < 0 {
			continue
		}
		generated := hotpCode(secret, counter)
		if subtle.ConstantTimeCompare([]byte(generated), []byte(trimmed)) == 1 {
			return true, counter, nil
		}
	}

	return false, 0, nil
}

// CodeAt computes the expected code for a point in time. Test helper and
// enrollment preview.
func CodeAt(secret []byte, now time.Time) string {
	return hotpCode(secret, now.Unix()/totpPeriod)
}

func hotpCode(secret []byte, counter int64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < totpDigits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", totpDigits, bin%mod)
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
