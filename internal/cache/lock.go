package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	ri "github.com/redis/go-redis/v9"

	"Quilt/storage/redis"
)

// 基于 SetNX 的分布式锁，用于防止同一照护者重复提交
// 锁值为持有者 token，只有持有者能释放，超时后被他人获取的锁不会被误删
const (
	lockPrefix = "lock"
)

var unlockScript = ri.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Locks struct{}

// TryLock 获取成功时返回持有者 token
func (Locks) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := redis.Client().SetNX(ctx, redis.Key(lockPrefix, key), token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

func (Locks) Unlock(ctx context.Context, key, token string) error {
	return unlockScript.Run(ctx, redis.Client(), []string{redis.Key(lockPrefix, key)}, token).Err()
}

// 消息幂等标记：quilt:msg:{message_id}
// processing 期间其他消费者跳过，处理失败时删除标记以允许重投
const (
	messagePrefix     = "msg"
	messageProcessing = "processing"
	messageDone       = "done"
)

type MessageMarks struct{}

// TryMarkProcessing 返回 false 表示消息已处理或正在处理
func (MessageMarks) TryMarkProcessing(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	return redis.Client().SetNX(ctx, redis.Key(messagePrefix, messageID), messageProcessing, ttl).Result()
}

func (MessageMarks) MarkDone(ctx context.Context, messageID string, ttl time.Duration) error {
	return redis.Client().Set(ctx, redis.Key(messagePrefix, messageID), messageDone, ttl).Err()
}

func (MessageMarks) Unmark(ctx context.Context, messageID string) error {
	return redis.Client().Del(ctx, redis.Key(messagePrefix, messageID)).Err()
}
