package service

import (
	"sync"

	"go.uber.org/zap"

	"Quilt/internal/cache"
	"Quilt/internal/onboarding"
	"Quilt/internal/queue"
	"Quilt/internal/repository"
	"Quilt/pkg/logger"
	"Quilt/storage/database"
)

// 默认实例在存储层初始化之后首次使用时构建

var (
	authService *AuthService
	authOnce    sync.Once

	onboardingService *OnboardingService
	onboardingOnce    sync.Once

	verificationService *VerificationService
	verifyOnce          sync.Once

	patientService *PatientService
	patientOnce    sync.Once
)

func Auth() *AuthService {
	authOnce.Do(func() {
		authService = NewAuthService(
			repository.NewProfileRepository(database.DB()),
			cache.RefreshTokens{},
			cache.WizardStates{},
		)
	})
	return authService
}

// Onboarding 恢复策略在启动时已校验，这里解析失败时退回默认策略
func Onboarding() *OnboardingService {
	onboardingOnce.Do(func() {
		registry := onboarding.DefaultRegistry()
		policy, err := PolicyFromConfig(registry)
		if err != nil {
			logger.Logger.Error("Falling back to default resume policy", zap.Error(err))
			policy = onboarding.DefaultPolicy()
		}

		onboardingService = NewOnboardingService(
			repository.NewProfileRepository(database.DB()),
			cache.WizardStates{},
			cache.NewStatusCache(),
			queue.Producer{},
			registry,
			policy,
		)
	})
	return onboardingService
}

func Verification() *VerificationService {
	verifyOnce.Do(func() {
		verificationService = NewVerificationService(
			repository.NewProfileRepository(database.DB()),
			cache.VerificationCodes{},
			queue.Producer{},
		)
	})
	return verificationService
}

func Patient() *PatientService {
	patientOnce.Do(func() {
		patientService = NewPatientService(
			repository.NewProfileRepository(database.DB()),
			repository.NewPatientRepository(database.DB()),
			cache.Locks{},
			Onboarding(),
			queue.Producer{},
		)
	})
	return patientService
}
