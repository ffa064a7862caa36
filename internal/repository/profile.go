package repository

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Quilt/internal/model"
	"Quilt/internal/onboarding"
	"Quilt/pkg/errors"
)

// ProfileRepository 用户档案存取
type ProfileRepository interface {
	Create(ctx context.Context, profile *model.Profile) error
	GetByPublicID(ctx context.Context, publicID int64) (*model.Profile, error)
	GetByEmail(ctx context.Context, email string) (*model.Profile, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	// MergeOnboardingStatus 行锁内读取最新标记并按 OR 合并，未变化时不写
	MergeOnboardingStatus(ctx context.Context, publicID int64, patch onboarding.StatusPatch) (onboarding.Status, bool, error)
	MarkPhoneVerified(ctx context.Context, publicID int64, at time.Time) error
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Create(ctx context.Context, profile *model.Profile) error {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return errors.EmailAlreadyRegistered
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (r *profileRepository) GetByPublicID(ctx context.Context, publicID int64) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).Where("public_id = ?", publicID).First(&profile).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	return &profile, nil
}

func (r *profileRepository) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&profile).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	return &profile, nil
}

func (r *profileRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Profile{}).Where("email = ?", email).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count profiles: %w", err)
	}
	return count > 0, nil
}

func (r *profileRepository) MergeOnboardingStatus(
	ctx context.Context,
	publicID int64,
	patch onboarding.StatusPatch,
) (onboarding.Status, bool, error) {
	var (
		merged  onboarding.Status
		changed bool
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profile model.Profile
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("public_id = ?", publicID).
			First(&profile).Error
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrUserNotFound
			}
			return fmt.Errorf("failed to lock profile: %w", err)
		}

		merged, changed = onboarding.Merge(profile.Status(), patch)
		if !changed {
			return nil
		}

		profile.SetStatus(merged)
		return tx.Model(&model.Profile{}).
			Where("id = ?", profile.ID).
			Update("onboarding_status", profile.OnboardingState).Error
	})
	if err != nil {
		return onboarding.Status{}, false, err
	}

	return merged, changed, nil
}

func (r *profileRepository) MarkPhoneVerified(ctx context.Context, publicID int64, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&model.Profile{}).
		Where("public_id = ?", publicID).
		Update("phone_verified_at", at)
	if result.Error != nil {
		return fmt.Errorf("failed to update profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.ErrUserNotFound
	}
	return nil
}
