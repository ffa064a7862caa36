package token

import (
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/hertz-contrib/jwt"

	"Quilt/config"
	"Quilt/pkg/errors"
)

const (
	IdentityKey = "uid"

	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// 这个实例会被 middleware 和 token 包共同使用
var sharedGenerator *jwt.HertzJWTMiddleware

func Init() error {
	var err error
	sharedGenerator, err = jwt.New(&jwt.HertzJWTMiddleware{
		Key:         []byte(config.Cfg.JWTSecret),
		Timeout:     accessTTL(),
		MaxRefresh:  refreshTTL(),
		IdentityKey: IdentityKey,
		TimeFunc:    time.Now,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize token generator: %w", err)
	}

	return nil
}

// GetGenerator 获取共享的 token 生成器（供 middleware 使用）
func GetGenerator() *jwt.HertzJWTMiddleware {
	return sharedGenerator
}

func accessTTL() time.Duration {
	return time.Duration(config.Cfg.JWTExpireMinutes) * time.Minute
}

func refreshTTL() time.Duration {
	return time.Duration(config.Cfg.JWTRefreshDays) * 24 * time.Hour
}

// RefreshTTL refresh token 在 Redis 中的保存时长
func RefreshTTL() time.Duration {
	return refreshTTL()
}

// Pair access token 与 refresh token
type Pair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// GenerateTokenPair 生成 access token 和 refresh token
func GenerateTokenPair(userID string) (Pair, error) {
	if sharedGenerator == nil {
		return Pair{}, errors.ErrTokenGeneratorNotInitialized
	}

	now := time.Now()
	access, err := sign(userID, TypeAccess, now, now.Add(accessTTL()))
	if err != nil {
		return Pair{}, fmt.Errorf("failed to generate access token: %w", err)
	}

	refresh, err := sign(userID, TypeRefresh, now, now.Add(refreshTTL()))
	if err != nil {
		return Pair{}, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(accessTTL().Seconds()),
	}, nil
}

func sign(userID, tokenType string, issuedAt, expiresAt time.Time) (string, error) {
	claims := jwtv5.MapClaims{
		IdentityKey: userID,
		"type":      tokenType,
		"iat":       issuedAt.Unix(),
		"exp":       expiresAt.Unix(),
	}
	// jti 保证同一秒内签发的 refresh token 也不相同
	if tokenType == TypeRefresh {
		claims["jti"] = fmt.Sprintf("%d", issuedAt.UnixNano())
	}
	return jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString([]byte(config.Cfg.JWTSecret))
}

// ValidateRefreshToken 验证 refresh token 并返回用户 ID
func ValidateRefreshToken(tokenString string) (string, error) {
	return validate(tokenString, TypeRefresh)
}

func validate(tokenString, expectedType string) (string, error) {
	token, err := jwtv5.ParseWithClaims(tokenString, jwtv5.MapClaims{}, func(token *jwtv5.Token) (interface{}, error) {
		if token.Method != jwtv5.SigningMethodHS256 {
			return nil, fmt.Errorf("%w: %v, expected HS256", errors.ErrUnexpectedSigningMethod, token.Header["alg"])
		}
		return []byte(config.Cfg.JWTSecret), nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return "", errors.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwtv5.MapClaims)
	if !ok {
		return "", errors.ErrInvalidTokenClaims
	}

	if tokenType, _ := claims["type"].(string); tokenType != expectedType {
		return "", errors.ErrInvalidTokenType
	}

	return UserIDFromClaims(claims)
}

// UserIDFromClaims 兼容字符串与数字两种 uid 格式
func UserIDFromClaims(claims map[string]interface{}) (string, error) {
	switch uid := claims[IdentityKey].(type) {
	case string:
		if uid == "" {
			return "", errors.ErrUserIDNotFound
		}
		return uid, nil
	case float64:
		return fmt.Sprintf("%.0f", uid), nil
	default:
		return "", errors.ErrUserIDNotFound
	}
}
