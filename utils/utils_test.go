package utils

import (
	"testing"

	"Quilt/config"
)

func TestInvitationCodeFormat(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		code, err := GenerateInvitationCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if !ValidInvitationCode(code) {
			t.Fatalf("invalid code %q", code)
		}
		seen[code] = struct{}{}
	}
	// 36^6 的空间下 1000 个码几乎不会全部重复，唯一性由调用方重试保证
	if len(seen) < 990 {
		t.Fatalf("suspiciously low variety: %d distinct codes", len(seen))
	}
}

func TestNormalizeInvitationCode(t *testing.T) {
	if got := NormalizeInvitationCode("  ab12cd "); got != "AB12CD" {
		t.Fatalf("unexpected normalized code %q", got)
	}
	for _, bad := range []string{"", "ABC", "ABCDEFG", "abc123", "AB-123"} {
		if ValidInvitationCode(bad) {
			t.Fatalf("expected %q to be invalid", bad)
		}
	}
}

func TestValidatePhone(t *testing.T) {
	cases := map[string]bool{
		"5551234567":        true,
		"+1 (555) 123-4567": true,
		"555.123.4567":      true,
		"555123456":         false,
		"":                  false,
		"555-CALL-NOW":      false,
		"1+5551234567":      false,
	}
	for phone, want := range cases {
		if got := ValidatePhone(phone); got != want {
			t.Fatalf("ValidatePhone(%q) = %v, want %v", phone, got, want)
		}
	}
}

type accountForm struct {
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"required,phone"`
	Password        string `json:"password" validate:"required,min=8,max=64"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

func TestValidateStructFieldErrors(t *testing.T) {
	fields := ValidateStruct(accountForm{
		Email:           "not-an-email",
		Phone:           "123",
		Password:        "short",
		ConfirmPassword: "different",
	})
	want := map[string]string{
		"email":            "Please enter a valid email",
		"phone":            "Please enter a valid phone number",
		"password":         "Password must be at least 8 characters",
		"confirm_password": "Passwords don't match",
	}
	for field, msg := range want {
		if fields[field] != msg {
			t.Fatalf("field %s: expected %q, got %q", field, msg, fields[field])
		}
	}

	ok := ValidateStruct(accountForm{
		Email:           "care@example.com",
		Phone:           "555-123-4567",
		Password:        "longenough",
		ConfirmPassword: "longenough",
	})
	if ok != nil {
		t.Fatalf("expected valid form, got %v", ok)
	}
}

func TestPhoneCrypto(t *testing.T) {
	config.Cfg.EncryptionKey = "0123456789abcdef0123456789abcdef"
	config.Cfg.PhoneHashSalt = "salt"

	cipher, err := EncryptPhone("5551234567")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	plain, err := DecryptPhone(cipher)
	if err != nil || plain != "5551234567" {
		t.Fatalf("decrypt: %q %v", plain, err)
	}
	if _, err := DecryptPhone([]byte("x")); err == nil {
		t.Fatalf("expected short payload to fail")
	}

	if HashPhone("(555) 123-4567") != HashPhone("5551234567") {
		t.Fatalf("hash must ignore formatting")
	}
	if got := MaskPhone("555-123-4567"); got != "******4567" {
		t.Fatalf("unexpected mask %q", got)
	}
}
