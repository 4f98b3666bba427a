package mfa

import (
	"time"

	dErrors "masthead/pkg/domain-errors"
	"masthead/pkg/secrets"
)

// Engine wraps TOTP enrollment and verification. Secrets are encrypted with
// AES-GCM before they ever reach a store; only the engine holds the key.
type Engine struct {
	issuer        string
	encryptionKey []byte
}

func NewEngine(issuer string, encryptionKey []byte) *Engine {
	return &Engine{issuer: issuer, encryptionKey: encryptionKey}
}

// Enrollment carries everything the client needs to finish MFA setup. The
// plaintext secret and backup codes never touch storage.
type Enrollment struct {
	SecretBase32     string
	EncryptedSecret  string
	ProvisionURI     string
	BackupCodes      []string
	BackupCodeHashes []string
}

// BeginEnrollment generates a secret, its provisioning URI, and a fresh set
// of backup codes. The secret stays pending until the user proves possession
// with a valid code.
func (e *Engine) BeginEnrollment(account string) (*Enrollment, error) {
	_, secretBase32, err := GenerateSecret()
	if err != nil {
		return nil, err
	}
	sealed, err := secrets.Encrypt(e.encryptionKey, secretBase32)
	if err != nil {
		return nil, err
	}
	codes, hashes, err := GenerateBackupCodes()
	if err != nil {
		return nil, err
	}
	return &Enrollment{
		SecretBase32:     secretBase32,
		EncryptedSecret:  sealed,
		ProvisionURI:     ProvisionURI(e.issuer, account, secretBase32),
		BackupCodes:      codes,
		BackupCodeHashes: hashes,
	}, nil
}

// Verify decrypts the stored secret and checks the submitted code. The
// matched counter must advance past lastCounter, rejecting replays of a code
// within its validity window.
func (e *Engine) Verify(encryptedSecret, code string, lastCounter int64, now time.Time) (int64, error) {
	secretBase32, err := secrets.Decrypt(e.encryptionKey, encryptedSecret)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "could not decrypt mfa secret")
	}
	secret, err := DecodeSecret(secretBase32)
	if err != nil {
		return 0, err
	}
	ok, counter, err := VerifyCode(secret, code, now)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, dErrors.New(dErrors.CodeUnauthorized, "invalid mfa code")
	}
	if counter <= lastCounter {
		return 0, dErrors.New(dErrors.CodeUnauthorized, "mfa code already used")
	}
	return counter, nil
}
