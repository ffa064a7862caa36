package token

import (
	stderrors "errors"
	"testing"

	"Quilt/config"
	"Quilt/pkg/errors"
)

func setup(t *testing.T) {
	t.Helper()
	config.Cfg.JWTSecret = "test-secret"
	config.Cfg.JWTExpireMinutes = 30
	config.Cfg.JWTRefreshDays = 30
	if err := Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
}

func TestGenerateAndValidateRefresh(t *testing.T) {
	setup(t)

	pair, err := GenerateTokenPair("1234567890")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if pair.ExpiresIn != 1800 {
		t.Fatalf("expected 1800s expiry, got %d", pair.ExpiresIn)
	}

	uid, err := ValidateRefreshToken(pair.RefreshToken)
	if err != nil || uid != "1234567890" {
		t.Fatalf("validate refresh: uid=%q err=%v", uid, err)
	}

	if _, err := ValidateRefreshToken(pair.AccessToken); !stderrors.Is(err, errors.ErrInvalidTokenType) {
		t.Fatalf("access token must not pass as refresh, got %v", err)
	}
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	setup(t)
	pair, err := GenerateTokenPair("1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	config.Cfg.JWTSecret = "another-secret"
	if _, err := ValidateRefreshToken(pair.RefreshToken); err == nil {
		t.Fatalf("expected signature mismatch")
	}
}

func TestUserIDFromClaims(t *testing.T) {
	if uid, err := UserIDFromClaims(map[string]interface{}{IdentityKey: float64(42)}); err != nil || uid != "42" {
		t.Fatalf("numeric uid: %q %v", uid, err)
	}
	if _, err := UserIDFromClaims(map[string]interface{}{}); !stderrors.Is(err, errors.ErrUserIDNotFound) {
		t.Fatalf("expected ErrUserIDNotFound, got %v", err)
	}
}
