package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"Quilt/internal/model"
	"Quilt/pkg/logger"
	"Quilt/storage/mq"
)

// Producer 业务消息发布
type Producer struct{}

// PublishVerificationSMS 发布验证码短信任务，由 worker 实际发送
func (Producer) PublishVerificationSMS(ctx context.Context, msg model.VerificationSMSMessage) error {
	if msg.MessageID == "" {
		msg.MessageID = "verify_" + uuid.NewString()
	}
	if msg.RequestedAt == "" {
		msg.RequestedAt = time.Now().UTC().Format(time.RFC3339)
	}

	err := mq.PublishMessage(ctx, mq.ExchangeQuilt, mq.QueueVerificationSMS, msg.MessageID, msg)
	if err != nil {
		logger.Logger.Error("Failed to publish verification SMS message",
			zap.Int64("user_id", msg.UserID),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published verification SMS message",
		zap.String("message_id", msg.MessageID),
		zap.Int64("user_id", msg.UserID),
	)
	return nil
}

// PublishOnboardingEvent 发布引导事件，失败只记录日志
func (Producer) PublishOnboardingEvent(ctx context.Context, userID int64, eventType string, payload map[string]interface{}) {
	msg := model.OnboardingEventMessage{
		EventKey:   fmt.Sprintf("%s:%d:%s", eventType, userID, uuid.NewString()),
		EventType:  eventType,
		UserID:     userID,
		Payload:    payload,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}

	if err := mq.PublishMessage(ctx, mq.ExchangeQuilt, mq.QueueOnboardingEvent, msg.EventKey, msg); err != nil {
		logger.Logger.Warn("Failed to publish onboarding event",
			zap.String("event_type", eventType),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}
}
