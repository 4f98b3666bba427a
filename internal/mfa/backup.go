package mfa

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	dErrors "masthead/pkg/domain-errors"
	"masthead/pkg/secrets"
)

const (
	backupCodeCount = 8
	backupCodeBytes = 5
)

// GenerateBackupCodes creates single-use recovery codes and their storage
// hashes. The plaintext codes are shown to the user exactly once.
func GenerateBackupCodes() (codes []string, hashes []string, err error) {
	codes = make([]string, 0, backupCodeCount)
	hashes = make([]string, 0, backupCodeCount)
	for i := 0; i < backupCodeCount; i++ {
		buf := make([]byte, backupCodeBytes)
		if _, err := rand.Read(buf); err != nil {
			return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not generate backup codes")
		}
		code := strings.ToUpper(hex.EncodeToString(buf))
		codes = append(codes, code)
		hashes = append(hashes, secrets.HashSHA256(code))
	}
	return codes, hashes, nil
}

// ConsumeBackupCode checks a submitted code against the stored hashes. On a
// match it returns the remaining hashes with the used one removed.
func ConsumeBackupCode(hashes []string, code string) ([]string, bool) {
	submitted := secrets.HashSHA256(strings.ToUpper(strings.TrimSpace(code)))
	for i, h := range hashes {
		if secrets.ConstantTimeEqual(h, submitted) {
			remaining := make([]string, 0, len(hashes)-1)
			remaining = append(remaining, hashes[:i]...)
			remaining = append(remaining, hashes[i+1:]...)
			return remaining, true
		}
	}
	return hashes, false
}
