package cache

import (
	"context"
	stderrors "errors"
	"time"

	ri "github.com/redis/go-redis/v9"

	"Quilt/config"
	"Quilt/storage/redis"
)

// 验证码：quilt:verify:code:{user_id}，TTL 为 VERIFICATION_EXPIRE_SECONDS
// 每日计数：quilt:verify:count:{user_id}:{date}，次日零点过期
// 错误次数：quilt:verify:fail:{user_id}，随验证码一起失效
const (
	verifyPrefix = "verify"
)

type VerificationCodes struct{}

// Save 写入新验证码并清零错误次数
func (VerificationCodes) Save(ctx context.Context, userID, code string) error {
	pipe := redis.Client().TxPipeline()
	pipe.Set(ctx, redis.Key(verifyPrefix, "code", userID), code, config.Cfg.VerificationTTL())
	pipe.Del(ctx, redis.Key(verifyPrefix, "fail", userID))
	_, err := pipe.Exec(ctx)
	return err
}

// Get 第二个返回值表示验证码是否存在
func (VerificationCodes) Get(ctx context.Context, userID string) (string, bool, error) {
	key := redis.Key(verifyPrefix, "code", userID)
	code, err := redis.Client().Get(ctx, key).Result()
	if stderrors.Is(err, ri.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return code, true, nil
}

func (VerificationCodes) Delete(ctx context.Context, userID string) error {
	return redis.Client().Del(ctx,
		redis.Key(verifyPrefix, "code", userID),
		redis.Key(verifyPrefix, "fail", userID),
	).Err()
}

// IncrFailed 记录一次错误输入，返回当前验证码的累计错误次数
func (VerificationCodes) IncrFailed(ctx context.Context, userID string) (int, error) {
	key := redis.Key(verifyPrefix, "fail", userID)

	count, err := redis.Client().Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := redis.Client().Expire(ctx, key, config.Cfg.VerificationTTL()).Err(); err != nil {
			return int(count), err
		}
	}
	return int(count), nil
}

// IncrDaily 增加今日发送计数，返回当前次数
func (VerificationCodes) IncrDaily(ctx context.Context, userID string) (int, error) {
	now := time.Now()
	key := redis.Key(verifyPrefix, "count", userID, now.Format("2006-01-02"))

	count, err := redis.Client().Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}

	if count == 1 {
		tomorrow := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
		if err := redis.Client().Expire(ctx, key, tomorrow.Sub(now)).Err(); err != nil {
			return int(count), err
		}
	}

	return int(count), nil
}
