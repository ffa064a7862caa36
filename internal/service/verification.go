package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"Quilt/config"
	"Quilt/internal/model"
	"Quilt/internal/model/dto"
	"Quilt/internal/repository"
	"Quilt/pkg/errors"
	"Quilt/pkg/logger"
	"Quilt/pkg/metrics"
	"Quilt/utils"
)

// VerificationService 手机号短信验证
type VerificationService struct {
	profiles repository.ProfileRepository
	codes    CodeStore
	events   EventPublisher
	now      func() time.Time
}

func NewVerificationService(profiles repository.ProfileRepository, codes CodeStore, events EventPublisher) *VerificationService {
	return &VerificationService{
		profiles: profiles,
		codes:    codes,
		events:   events,
		now:      time.Now,
	}
}

func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// SendCode 生成验证码并投递短信任务，实际发送由 worker 完成
func (s *VerificationService) SendCode(ctx context.Context, userID string) (*dto.SendCodeResponse, error) {
	publicID, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if profile.PhoneVerified() {
		return nil, errors.PhoneAlreadyVerified
	}
	if len(profile.PhoneCipher) == 0 {
		return nil, errors.ValidationFailed.WithMessage("Please enter a valid phone number")
	}

	count, err := s.codes.IncrDaily(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check verification count: %w", err)
	}
	if count > config.Cfg.VerificationMaxDaily {
		metrics.Get().RecordVerification(ctx, "rate_limited")
		return nil, errors.VerificationRateLimited
	}

	code, err := generateVerificationCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification code: %w", err)
	}

	if err := s.codes.Save(ctx, userID, code); err != nil {
		return nil, fmt.Errorf("failed to store verification code: %w", err)
	}

	err = s.events.PublishVerificationSMS(ctx, model.VerificationSMSMessage{
		UserID:      publicID,
		PhoneCipher: base64.StdEncoding.EncodeToString(profile.PhoneCipher),
		Code:        code,
		RequestedAt: s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		// 短信任务未投递成功，删除验证码让用户重新获取
		_ = s.codes.Delete(ctx, userID)
		return nil, fmt.Errorf("failed to queue verification SMS: %w", err)
	}

	metrics.Get().RecordVerification(ctx, "sent")

	masked := ""
	if phone, err := utils.DecryptPhone(profile.PhoneCipher); err == nil {
		masked = utils.MaskPhone(phone)
	}

	return &dto.SendCodeResponse{
		PhoneMasked: masked,
		ExpiresIn:   config.Cfg.VerificationExpireSeconds,
	}, nil
}

// VerifyCode 校验通过后记录 phone_verified_at 并删除验证码
func (s *VerificationService) VerifyCode(ctx context.Context, userID, code string) error {
	if fields := utils.ValidateStruct(dto.VerifyCodeRequest{Code: code}); fields != nil {
		return fields
	}

	publicID, err := parseUserID(userID)
	if err != nil {
		return err
	}

	stored, ok, err := s.codes.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load verification code: %w", err)
	}
	if !ok {
		metrics.Get().RecordVerification(ctx, "expired")
		return errors.VerificationCodeExpired
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return s.recordFailure(ctx, userID)
	}

	if err := s.profiles.MarkPhoneVerified(ctx, publicID, s.now()); err != nil {
		return err
	}

	if err := s.codes.Delete(ctx, userID); err != nil {
		logger.Logger.Warn("Failed to delete verification code",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}

	metrics.Get().RecordVerification(ctx, "verified")
	s.events.PublishOnboardingEvent(ctx, publicID, model.EventPhoneVerified, nil)

	logger.Logger.Info("Phone verified", zap.String("user_id", userID))
	return nil
}

// recordFailure 累计错误次数，达到上限后作废验证码，需重新发送
func (s *VerificationService) recordFailure(ctx context.Context, userID string) error {
	failures, err := s.codes.IncrFailed(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to count verification attempts: %w", err)
	}
	if failures < config.Cfg.VerificationMaxAttempts {
		metrics.Get().RecordVerification(ctx, "invalid")
		return errors.VerificationCodeInvalid
	}

	if err := s.codes.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to discard verification code: %w", err)
	}
	metrics.Get().RecordVerification(ctx, "locked")
	logger.Logger.Warn("Verification code discarded after repeated failures",
		zap.String("user_id", userID),
		zap.Int("failures", failures),
	)
	return errors.VerificationLocked
}
