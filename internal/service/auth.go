package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"Quilt/config"
	"Quilt/internal/model"
	"Quilt/internal/model/dto"
	"Quilt/internal/onboarding"
	"Quilt/internal/repository"
	"Quilt/pkg/errors"
	"Quilt/pkg/logger"
	"Quilt/pkg/snowflake"
	"Quilt/pkg/token"
	"Quilt/utils"
)

type AuthService struct {
	profiles repository.ProfileRepository
	tokens   TokenStore
	wizards  WizardStore
}

func NewAuthService(profiles repository.ProfileRepository, tokens TokenStore, wizards WizardStore) *AuthService {
	return &AuthService{
		profiles: profiles,
		tokens:   tokens,
		wizards:  wizards,
	}
}

// RegisterCaregiver 前两步表单提交后创建照护者账号
// 新档案直接带上 account_created 标记，与建号在同一次写入中完成
func (s *AuthService) RegisterCaregiver(ctx context.Context, req dto.RegisterCaregiverRequest) (*dto.AuthResponse, error) {
	req.Account.Email = strings.ToLower(strings.TrimSpace(req.Account.Email))
	req.CaregiverInfo.FirstName = strings.TrimSpace(req.CaregiverInfo.FirstName)
	req.CaregiverInfo.LastName = strings.TrimSpace(req.CaregiverInfo.LastName)

	if fields := utils.ValidateStruct(req); fields != nil {
		return nil, fields
	}

	exists, err := s.profiles.EmailExists(ctx, req.Account.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.EmailAlreadyRegistered
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Account.Password), bcryptCost())
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	publicID, err := snowflake.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user ID: %w", err)
	}

	phone := utils.NormalizePhone(req.Account.Phone)
	phoneCipher, err := utils.EncryptPhone(phone)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt phone: %w", err)
	}
	phoneHash := utils.HashPhone(phone)

	profile := &model.Profile{
		PublicID:     publicID,
		Email:        req.Account.Email,
		PasswordHash: string(passwordHash),
		FirstName:    req.CaregiverInfo.FirstName,
		LastName:     req.CaregiverInfo.LastName,
		Relationship: model.Relationship(req.CaregiverInfo.Relationship),
		PhoneCipher:  phoneCipher,
		PhoneHash:    &phoneHash,
		UserType:     model.UserTypeCaregiver,
	}
	profile.SetStatus(onboarding.Status{AccountCreated: true})

	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, err
	}

	logger.Logger.Info("Caregiver registered",
		zap.Int64("public_id", publicID),
		zap.String("relationship", req.CaregiverInfo.Relationship),
	)

	return s.issue(ctx, profile)
}

// SignIn 邮箱密码登录
func (s *AuthService) SignIn(ctx context.Context, req dto.SignInRequest) (*dto.AuthResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if fields := utils.ValidateStruct(req); fields != nil {
		return nil, fields
	}

	profile, err := s.profiles.GetByEmail(ctx, req.Email)
	if err != nil {
		if stderrors.Is(err, errors.ErrUserNotFound) {
			return nil, errors.InvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errors.InvalidCredentials
	}

	return s.issue(ctx, profile)
}

// RefreshToken 校验 refresh token 与 Redis 中保存的一致后轮换整对 token
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*dto.AuthResponse, error) {
	userID, err := token.ValidateRefreshToken(refreshToken)
	if err != nil {
		logger.Logger.Warn("Invalid refresh token", zap.Error(err))
		return nil, errors.RefreshTokenInvalid
	}

	stored, err := s.tokens.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load refresh token: %w", err)
	}
	if stored == "" || stored != refreshToken {
		return nil, errors.RefreshTokenInvalid
	}

	publicID, err := parseUserID(userID)
	if err != nil {
		return nil, errors.RefreshTokenInvalid
	}

	profile, err := s.profiles.GetByPublicID(ctx, publicID)
	if err != nil {
		if stderrors.Is(err, errors.ErrUserNotFound) {
			return nil, errors.RefreshTokenInvalid
		}
		return nil, err
	}

	return s.issue(ctx, profile)
}

// SignOut 删除 refresh token 与向导状态
func (s *AuthService) SignOut(ctx context.Context, userID string) error {
	if err := s.tokens.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	if err := s.wizards.Delete(ctx, userID); err != nil {
		logger.Logger.Warn("Failed to delete wizard state",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
	return nil
}

// Profile 当前用户概览
func (s *AuthService) Profile(ctx context.Context, userID string) (*dto.ProfileSnapshot, error) {
	publicID, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}
	profile, err := s.profiles.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	snapshot := snapshotOf(profile)
	return &snapshot, nil
}

func (s *AuthService) issue(ctx context.Context, profile *model.Profile) (*dto.AuthResponse, error) {
	userID := strconv.FormatInt(profile.PublicID, 10)

	pair, err := token.GenerateTokenPair(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	// token 已签发成功，保存失败只影响后续刷新
	if err := s.tokens.Set(ctx, userID, pair.RefreshToken); err != nil {
		logger.Logger.Warn("Failed to store refresh token",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}

	return &dto.AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		User:         snapshotOf(profile),
	}, nil
}

func snapshotOf(profile *model.Profile) dto.ProfileSnapshot {
	snapshot := dto.ProfileSnapshot{
		ID:               strconv.FormatInt(profile.PublicID, 10),
		Email:            profile.Email,
		FirstName:        profile.FirstName,
		LastName:         profile.LastName,
		Relationship:     string(profile.Relationship),
		PhoneVerified:    profile.PhoneVerified(),
		OnboardingStatus: profile.Status(),
	}

	if len(profile.PhoneCipher) > 0 {
		if phone, err := utils.DecryptPhone(profile.PhoneCipher); err == nil {
			snapshot.PhoneMasked = utils.MaskPhone(phone)
		}
	}
	return snapshot
}

func bcryptCost() int {
	cost := config.Cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return cost
}
