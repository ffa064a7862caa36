package queue

import (
	"context"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"Quilt/internal/model"
	"Quilt/pkg/breaker"
	"Quilt/pkg/errors"
	"Quilt/pkg/logger"
	"Quilt/pkg/metrics"
	"Quilt/pkg/sms"
	"Quilt/storage/mq"
	"Quilt/utils"
)

// MessageMarker 消息幂等标记
type MessageMarker interface {
	TryMarkProcessing(ctx context.Context, messageID string, ttl time.Duration) (bool, error)
	MarkDone(ctx context.Context, messageID string, ttl time.Duration) error
	Unmark(ctx context.Context, messageID string) error
}

const (
	processingTTL = 10 * time.Minute
	doneTTL       = 48 * time.Hour
)

// VerificationSMSHandler 解密手机号并通过短信服务发送验证码
type VerificationSMSHandler struct {
	Client  sms.Client
	Breaker *breaker.CircuitBreaker
	Marks   MessageMarker
	// MaxAge 超过该时长的验证码已过期，不再发送
	MaxAge time.Duration
	now    func() time.Time
}

func NewVerificationSMSHandler(client sms.Client, marks MessageMarker, maxAge time.Duration) *VerificationSMSHandler {
	return &VerificationSMSHandler{
		Client:  client,
		Breaker: breaker.New("sms."+client.Provider(), 5, 30*time.Second),
		Marks:   marks,
		MaxAge:  maxAge,
		now:     time.Now,
	}
}

func (h *VerificationSMSHandler) Handle(ctx context.Context, body []byte) error {
	var msg model.VerificationSMSMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return &errors.SkipMessageError{Reason: fmt.Sprintf("malformed verification message: %v", err)}
	}

	if h.expired(msg.RequestedAt) {
		return &errors.SkipMessageError{Reason: fmt.Sprintf("verification message %s expired", msg.MessageID)}
	}

	ok, err := h.Marks.TryMarkProcessing(ctx, msg.MessageID, processingTTL)
	if err != nil {
		logger.Logger.Warn("Failed to check message processed status",
			zap.String("message_id", msg.MessageID),
			zap.Error(err),
		)
	} else if !ok {
		return &errors.SkipMessageError{Reason: fmt.Sprintf("message %s already processed", msg.MessageID)}
	}

	if err := h.send(ctx, msg); err != nil {
		if unmarkErr := h.Marks.Unmark(ctx, msg.MessageID); unmarkErr != nil {
			logger.Logger.Warn("Failed to unmark message",
				zap.String("message_id", msg.MessageID),
				zap.Error(unmarkErr),
			)
		}
		return err
	}

	if err := h.Marks.MarkDone(ctx, msg.MessageID, doneTTL); err != nil {
		logger.Logger.Warn("Failed to mark message as processed",
			zap.String("message_id", msg.MessageID),
			zap.Error(err),
		)
	}
	return nil
}

func (h *VerificationSMSHandler) send(ctx context.Context, msg model.VerificationSMSMessage) error {
	cipherText, err := base64.StdEncoding.DecodeString(msg.PhoneCipher)
	if err != nil {
		return &errors.SkipMessageError{Reason: "phone cipher is not valid base64"}
	}
	phone, err := utils.DecryptPhone(cipherText)
	if err != nil {
		return &errors.SkipMessageError{Reason: "failed to decrypt phone"}
	}

	start := time.Now()
	err = h.Breaker.Call(ctx, func(ctx context.Context) error {
		_, sendErr := sms.SendVerificationCode(ctx, h.Client, phone, msg.Code)
		return sendErr
	})

	status := "success"
	if err != nil {
		status = "failed"
		var open *breaker.ErrOpen
		if stderrors.As(err, &open) {
			status = "rejected"
		}
	}
	metrics.Get().RecordSMS(ctx, h.Client.Provider(), status, time.Since(start).Seconds())

	if err != nil {
		return fmt.Errorf("failed to send verification SMS: %w", err)
	}

	logger.WithContext(ctx).Info("Verification SMS sent",
		zap.String("message_id", msg.MessageID),
		zap.Int64("user_id", msg.UserID),
		zap.String("phone", utils.MaskPhone(phone)),
	)
	return nil
}

func (h *VerificationSMSHandler) expired(requestedAt string) bool {
	if h.MaxAge <= 0 || requestedAt == "" {
		return false
	}
	t, err := time.Parse(time.RFC3339, requestedAt)
	if err != nil {
		return false
	}
	return h.now().Sub(t) > h.MaxAge
}

// HandleOnboardingEvent 引导事件目前只落审计日志
func HandleOnboardingEvent(ctx context.Context, body []byte) error {
	var msg model.OnboardingEventMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return &errors.SkipMessageError{Reason: fmt.Sprintf("malformed onboarding event: %v", err)}
	}

	logger.WithContext(ctx).Info("Onboarding event",
		zap.String("event_key", msg.EventKey),
		zap.String("event_type", msg.EventType),
		zap.Int64("user_id", msg.UserID),
		zap.Any("payload", msg.Payload),
		zap.String("occurred_at", msg.OccurredAt),
	)
	return nil
}

// StartAllConsumers 启动所有消费者并阻塞到全部退出
func StartAllConsumers(ctx context.Context, smsHandler *VerificationSMSHandler) {
	var wg sync.WaitGroup

	consumers := []mq.ConsumeOptions{
		{
			Queue:         mq.QueueVerificationSMS,
			ConsumerTag:   "verification_sms_consumer",
			PrefetchCount: 10,
			Handler:       smsHandler.Handle,
		},
		{
			Queue:         mq.QueueOnboardingEvent,
			ConsumerTag:   "onboarding_event_consumer",
			PrefetchCount: 50,
			Handler:       HandleOnboardingEvent,
		},
	}

	for _, opts := range consumers {
		wg.Add(1)
		go func(opts mq.ConsumeOptions) {
			defer wg.Done()

			logger.Logger.Info("Starting consumer", zap.String("queue", opts.Queue))

			if err := mq.Consume(ctx, opts); err != nil {
				logger.Logger.Error("Consumer exited with error",
					zap.String("queue", opts.Queue),
					zap.Error(err),
				)
			}
		}(opts)
	}

	wg.Wait()
	logger.Logger.Info("All consumers stopped")
}
