package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	ri "github.com/redis/go-redis/v9"

	"Quilt/config"
	"Quilt/internal/onboarding"
	"Quilt/storage/redis"
)

const (
	wizardPrefix = "wizard"
)

// WizardStates 引导页面状态，客户端重建页面时读取
// Key: quilt:wizard:{user_id}
type WizardStates struct{}

// Load 不存在时返回零值状态
func (WizardStates) Load(ctx context.Context, userID string) (*onboarding.Wizard, error) {
	key := redis.Key(wizardPrefix, userID)
	data, err := redis.Client().Get(ctx, key).Bytes()
	if stderrors.Is(err, ri.Nil) {
		return &onboarding.Wizard{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load wizard state: %w", err)
	}

	var w onboarding.Wizard
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to decode wizard state: %w", err)
	}
	return &w, nil
}

func (WizardStates) Save(ctx context.Context, userID string, w *onboarding.Wizard) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to encode wizard state: %w", err)
	}
	ttl := time.Duration(config.Cfg.WizardStateTTLHours) * time.Hour
	return redis.Client().Set(ctx, redis.Key(wizardPrefix, userID), data, ttl).Err()
}

func (WizardStates) Delete(ctx context.Context, userID string) error {
	return redis.Client().Del(ctx, redis.Key(wizardPrefix, userID)).Err()
}
