package utils

import (
	"crypto/sha256"
	"encoding/hex"

	"Quilt/config"
)

// HashPhone 盐 + ":" + 规范化后的手机号，用于按手机号查询
func HashPhone(phone string) string {
	sum := sha256.Sum256([]byte(config.Cfg.PhoneHashSalt + ":" + NormalizePhone(phone)))
	return hex.EncodeToString(sum[:])
}

// MaskPhone 只保留末四位
func MaskPhone(phone string) string {
	digits := NormalizePhone(phone)
	if len(digits) <= 4 {
		return "****"
	}
	masked := make([]byte, 0, len(digits))
	for i := 0; i < len(digits)-4; i++ {
		masked = append(masked, '*')
	}
	return string(masked) + digits[len(digits)-4:]
}
