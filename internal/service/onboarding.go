package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"Quilt/config"
	"Quilt/internal/model"
	"Quilt/internal/model/dto"
	"Quilt/internal/onboarding"
	"Quilt/internal/repository"
	"Quilt/pkg/errors"
	"Quilt/pkg/logger"
	"Quilt/pkg/metrics"
)

// OnboardingService 引导流程协调者：持有步骤表、恢复策略和每个用户的向导状态
type OnboardingService struct {
	profiles repository.ProfileRepository
	wizards  WizardStore
	statuses StatusCache
	events   EventPublisher
	registry *onboarding.Registry
	policy   onboarding.Policy
}

var _ onboarding.Persister = (*OnboardingService)(nil)

func NewOnboardingService(
	profiles repository.ProfileRepository,
	wizards WizardStore,
	statuses StatusCache,
	events EventPublisher,
	registry *onboarding.Registry,
	policy onboarding.Policy,
) *OnboardingService {
	return &OnboardingService{
		profiles: profiles,
		wizards:  wizards,
		statuses: statuses,
		events:   events,
		registry: registry,
		policy:   policy,
	}
}

// PolicyFromConfig 按配置构建恢复策略
func PolicyFromConfig(registry *onboarding.Registry) (onboarding.Policy, error) {
	policy, err := onboarding.ParsePolicy(config.Cfg.OnboardingResumePolicy, registry)
	if err != nil {
		return onboarding.Policy{}, fmt.Errorf("invalid ONBOARDING_RESUME_POLICY: %w", err)
	}
	if config.Cfg.OnboardingRequireVerification {
		policy = policy.WithVerificationGate()
	}
	return policy, nil
}

func (s *OnboardingService) Registry() *onboarding.Registry {
	return s.registry
}

// UpdateStatus 合并完成标记，失败只记录日志并返回 false
func (s *OnboardingService) UpdateStatus(ctx context.Context, userID string, patch onboarding.StatusPatch) bool {
	_, _, err := s.MergeStatus(ctx, userID, patch)
	return err == nil
}

// MergeStatus 合并完成标记并返回合并后的结果
func (s *OnboardingService) MergeStatus(ctx context.Context, userID string, patch onboarding.StatusPatch) (onboarding.Status, bool, error) {
	publicID, err := parseUserID(userID)
	if err != nil {
		return onboarding.Status{}, false, err
	}

	merged, changed, err := s.profiles.MergeOnboardingStatus(ctx, publicID, patch)
	if err != nil {
		metrics.Get().RecordStatusMerge(ctx, "failed")
		logger.Logger.Error("Failed to update onboarding status",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		if _, ok := errors.As(err); ok {
			return onboarding.Status{}, false, err
		}
		return onboarding.Status{}, false, errors.OnboardingUpdateFailed
	}

	if !changed {
		metrics.Get().RecordStatusMerge(ctx, "unchanged")
		return merged, false, nil
	}

	metrics.Get().RecordStatusMerge(ctx, "updated")
	// 并发合并的写缓存顺序不受行锁约束，只删除，由下次读取回填
	if err := s.statuses.Delete(ctx, userID); err != nil {
		logger.Logger.Warn("Failed to invalidate onboarding status cache",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}

	s.events.PublishOnboardingEvent(ctx, publicID, model.EventStatusUpdated, map[string]interface{}{
		"account_created":     merged.AccountCreated,
		"patient_connected":   merged.PatientConnected,
		"final_step":          merged.FinalStep,
		"onboarding_complete": merged.OnboardingComplete,
	})

	logger.Logger.Info("Onboarding status updated",
		zap.String("user_id", userID),
		zap.Any("status", merged),
	)
	return merged, true, nil
}

// GetStatus 优先读缓存
func (s *OnboardingService) GetStatus(ctx context.Context, userID string) (onboarding.Status, error) {
	if cached, err := s.statuses.Get(ctx, userID); err == nil && cached != nil {
		return *cached, nil
	}

	publicID, err := parseUserID(userID)
	if err != nil {
		return onboarding.Status{}, err
	}

	profile, err := s.profiles.GetByPublicID(ctx, publicID)
	if err != nil {
		return onboarding.Status{}, err
	}

	status := profile.Status()
	if err := s.statuses.Set(ctx, userID, status); err != nil {
		logger.Logger.Warn("Failed to cache onboarding status",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
	return status, nil
}

// Resume 重新打开应用时决定进入哪个页面
func (s *OnboardingService) Resume(ctx context.Context, userID string) (*dto.ResumeResponse, error) {
	publicID, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}

	status := profile.Status()
	step, rule := s.policy.Resume(&status, profile.PhoneVerified())
	metrics.Get().RecordResume(ctx, step.String(), rule)

	logger.Logger.Info("Onboarding resumed",
		zap.String("user_id", userID),
		zap.String("step", step.String()),
		zap.String("rule", rule),
	)

	return &dto.ResumeResponse{
		Step:     step,
		Route:    step.Route(),
		Rule:     rule,
		Complete: step == onboarding.DestinationHome,
		Status:   status,
	}, nil
}

// Navigate 客户端路由变化时更新向导状态
// 到达邀请码分享页时记录 final_step
func (s *OnboardingService) Navigate(ctx context.Context, userID, path string) (*onboarding.Progress, error) {
	wizard, err := s.wizards.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	// 未知路由的进度为 0，与布局层的表现一致
	progress := wizard.Navigate(s.registry, path)
	if progress.Step != onboarding.StepNone {
		metrics.Get().RecordNavigation(ctx, progress.Step.String(), progress.Forward)
	}

	if err := s.wizards.Save(ctx, userID, wizard); err != nil {
		return nil, fmt.Errorf("failed to save wizard state: %w", err)
	}

	if progress.Step == onboarding.StepCodeSharing {
		if !onboarding.MarkFinalStep(ctx, s, userID) {
			logger.Logger.Warn("Failed to mark final step",
				zap.String("user_id", userID),
			)
		}
	}

	return &progress, nil
}

// SetFormValidity 当前页面表单有效性变化
func (s *OnboardingService) SetFormValidity(ctx context.Context, userID string, valid bool) (*onboarding.Progress, error) {
	wizard, err := s.wizards.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	progress := wizard.SetFormValid(s.registry, valid)
	if err := s.wizards.Save(ctx, userID, wizard); err != nil {
		return nil, fmt.Errorf("failed to save wizard state: %w", err)
	}
	return &progress, nil
}

// Wizard 返回完整向导状态，客户端重建页面时使用
func (s *OnboardingService) Wizard(ctx context.Context, userID string) (*onboarding.Wizard, error) {
	return s.wizards.Load(ctx, userID)
}

// SaveDraft 保存前两步表单草稿，密码不会进入向导状态
func (s *OnboardingService) SaveDraft(ctx context.Context, userID string, req dto.WizardDraftRequest) (*onboarding.Wizard, error) {
	wizard, err := s.wizards.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.CaregiverInfo != nil {
		wizard.CaregiverInfo = *req.CaregiverInfo
	}
	if req.Account != nil {
		wizard.Account = *req.Account
	}

	if err := s.wizards.Save(ctx, userID, wizard); err != nil {
		return nil, fmt.Errorf("failed to save wizard state: %w", err)
	}
	return wizard, nil
}

// Complete 完成引导，之后恢复路由直接进入主页
func (s *OnboardingService) Complete(ctx context.Context, userID string) (onboarding.Status, error) {
	status, _, err := s.MergeStatus(ctx, userID, onboarding.PatchOnboardingComplete)
	if err != nil {
		return onboarding.Status{}, err
	}

	if err := s.wizards.Delete(ctx, userID); err != nil {
		logger.Logger.Warn("Failed to delete wizard state",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
	return status, nil
}
