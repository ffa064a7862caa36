package service

import (
	"context"
	"time"

	"Quilt/internal/model"
	"Quilt/internal/onboarding"
	"Quilt/pkg/errors"
	"Quilt/pkg/snowflake"
)

// 以下接口由 internal/cache 与 internal/queue 实现，测试中替换为内存版本

type TokenStore interface {
	Set(ctx context.Context, userID, refreshToken string) error
	Get(ctx context.Context, userID string) (string, error)
	Delete(ctx context.Context, userID string) error
}

type WizardStore interface {
	Load(ctx context.Context, userID string) (*onboarding.Wizard, error)
	Save(ctx context.Context, userID string, w *onboarding.Wizard) error
	Delete(ctx context.Context, userID string) error
}

type CodeStore interface {
	Save(ctx context.Context, userID, code string) error
	Get(ctx context.Context, userID string) (string, bool, error)
	Delete(ctx context.Context, userID string) error
	IncrDaily(ctx context.Context, userID string) (int, error)
	IncrFailed(ctx context.Context, userID string) (int, error)
}

type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, key, token string) error
}

type StatusCache interface {
	Get(ctx context.Context, userID string) (*onboarding.Status, error)
	Set(ctx context.Context, userID string, status onboarding.Status) error
	Delete(ctx context.Context, userID string) error
}

type EventPublisher interface {
	PublishVerificationSMS(ctx context.Context, msg model.VerificationSMSMessage) error
	PublishOnboardingEvent(ctx context.Context, userID int64, eventType string, payload map[string]interface{})
}

// parseUserID 解析 JWT 中的用户 ID
func parseUserID(userID string) (int64, error) {
	id, ok := snowflake.ParseID(userID)
	if !ok {
		return 0, errors.InvalidUserID
	}
	return id, nil
}
