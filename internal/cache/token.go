package cache

import (
	"context"
	stderrors "errors"

	ri "github.com/redis/go-redis/v9"

	"Quilt/pkg/token"
	"Quilt/storage/redis"
)

const (
	tokenPrefix = "token"
)

// RefreshTokens 每个用户只保留最新一个 refresh token，刷新时轮换
// Key: quilt:token:refresh:{user_id}
type RefreshTokens struct{}

func (RefreshTokens) Set(ctx context.Context, userID, refreshToken string) error {
	key := redis.Key(tokenPrefix, "refresh", userID)
	return redis.Client().Set(ctx, key, refreshToken, token.RefreshTTL()).Err()
}

// Get 未找到时返回空串
func (RefreshTokens) Get(ctx context.Context, userID string) (string, error) {
	key := redis.Key(tokenPrefix, "refresh", userID)
	value, err := redis.Client().Get(ctx, key).Result()
	if stderrors.Is(err, ri.Nil) {
		return "", nil
	}
	return value, err
}

// Delete 登出或 token 失效
func (RefreshTokens) Delete(ctx context.Context, userID string) error {
	key := redis.Key(tokenPrefix, "refresh", userID)
	return redis.Client().Del(ctx, key).Err()
}
