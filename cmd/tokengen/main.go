// Package main is a CLI for minting development JWTs against the local
// signing key. Tokens minted here will NOT verify in production.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"masthead/internal/token"
)

// Matches the config.FromEnv fallback when JWT_SIGNING_KEY is not set.
const devSigningKey = "dev-secret-key-change-in-production"

type tokenOutput struct {
	Token     string `json:"token"`
	Type      string `json:"type"`
	ExpiresIn string `json:"expires_in"`
	UserID    string `json:"user_id"`
	Usage     string `json:"usage"`
}

func main() {
	var (
		kind       = flag.String("type", "access", "Token type: access or refresh")
		userID     = flag.String("user-id", "", "Account ID (UUID). Generated if empty.")
		email      = flag.String("email", "dev@masthead.local", "Email claim for access tokens.")
		role       = flag.String("role", "Master Admin", "Role claim for access tokens.")
		signingKey = flag.String("key", "", "Signing key. Defaults to the dev key or JWT_SIGNING_KEY.")
		accessTTL  = flag.Duration("access-ttl", 48*time.Hour, "Access token lifetime.")
		refreshTTL = flag.Duration("refresh-ttl", 30*24*time.Hour, "Refresh token lifetime.")
	)
	flag.Parse()

	key := *signingKey
	if key == "" {
		key = os.Getenv("JWT_SIGNING_KEY")
	}
	if key == "" {
		key = devSigningKey
	}

	uid := uuid.New()
	if *userID != "" {
		parsed, err := uuid.Parse(*userID)
		if err != nil {
			fail("invalid --user-id: %v", err)
		}
		uid = parsed
	}

	svc := token.NewService(key, *accessTTL, *refreshTTL)

	var out tokenOutput
	switch *kind {
	case "access":
		t, err := svc.GenerateAccessToken(uid, *email, *role)
		if err != nil {
			fail("generate access token: %v", err)
		}
		out = tokenOutput{
			Token:     t,
			Type:      "access",
			ExpiresIn: accessTTL.String(),
			UserID:    uid.String(),
			Usage:     `curl -H "Authorization: Bearer <token>" http://localhost:8080/auth/profile`,
		}
	case "refresh":
		raw, _, expiresAt, err := svc.GenerateRefreshToken(uid)
		if err != nil {
			fail("generate refresh token: %v", err)
		}
		out = tokenOutput{
			Token:     raw,
			Type:      "refresh",
			ExpiresIn: time.Until(expiresAt).Round(time.Second).String(),
			UserID:    uid.String(),
			Usage:     `curl -X POST -d '{"refresh_token":"<token>"}' http://localhost:8080/auth/refresh`,
		}
	default:
		fail("unknown --type %q (want access or refresh)", *kind)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fail("encode output: %v", err)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
