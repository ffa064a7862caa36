package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	InvitationCodeLength   = 6
	invitationCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateInvitationCode 6 位大写字母数字邀请码，不保证唯一，由调用方检查冲突
func GenerateInvitationCode() (string, error) {
	size := big.NewInt(int64(len(invitationCodeAlphabet)))
	buf := make([]byte, InvitationCodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("failed to generate invitation code: %w", err)
		}
		buf[i] = invitationCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// NormalizeInvitationCode 去掉空白并转大写
func NormalizeInvitationCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidInvitationCode 校验格式
func ValidInvitationCode(code string) bool {
	if len(code) != InvitationCodeLength {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(invitationCodeAlphabet, r) {
			return false
		}
	}
	return true
}
