package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"Quilt/config"
	"Quilt/internal/model"
	"Quilt/internal/model/dto"
	"Quilt/internal/onboarding"
	"Quilt/internal/repository"
	"Quilt/pkg/errors"
	"Quilt/pkg/logger"
	"Quilt/pkg/metrics"
	"Quilt/pkg/snowflake"
	"Quilt/utils"
)

const patientCreateLockTTL = 15 * time.Second

// PatientService 受照护人创建、邀请码与界面模式
type PatientService struct {
	profiles  repository.ProfileRepository
	patients  repository.PatientRepository
	locks     Locker
	persister onboarding.Persister
	events    EventPublisher
	newCode   func() (string, error)
	now       func() time.Time
}

func NewPatientService(
	profiles repository.ProfileRepository,
	patients repository.PatientRepository,
	locks Locker,
	persister onboarding.Persister,
	events EventPublisher,
) *PatientService {
	return &PatientService{
		profiles:  profiles,
		patients:  patients,
		locks:     locks,
		persister: persister,
		events:    events,
		newCode:   utils.GenerateInvitationCode,
		now:       time.Now,
	}
}

// CreatePatient 创建受照护人并生成唯一邀请码，成功后记录 patient_connected
// patient_connected 未保存时 StatusSaved 为 false，客户端需重试 PATCH /v1/onboarding/status
func (s *PatientService) CreatePatient(ctx context.Context, userID string, req dto.RecipientInfoForm) (*dto.CreatePatientResponse, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if fields := utils.ValidateStruct(req); fields != nil {
		return nil, fields
	}

	caregiver, err := s.caregiver(ctx, userID)
	if err != nil {
		return nil, err
	}

	lockKey := "patient:create:" + userID
	lockToken, locked, err := s.locks.TryLock(ctx, lockKey, patientCreateLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire patient lock: %w", err)
	}
	if !locked {
		return nil, errors.PatientCreationInProgress
	}
	defer func() {
		if err := s.locks.Unlock(ctx, lockKey, lockToken); err != nil {
			logger.Logger.Warn("Failed to release patient lock",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
	}()

	patient, attempts, err := s.insertWithUniqueCode(ctx, caregiver.ID, req)
	if err != nil {
		return nil, err
	}
	metrics.Get().RecordPatientCreated(ctx, attempts)

	statusSaved := onboarding.MarkPatientConnected(ctx, s.persister, userID)
	if !statusSaved {
		logger.Logger.Warn("Patient created but patient_connected was not saved",
			zap.String("user_id", userID),
			zap.Int64("patient_id", patient.PublicID),
		)
	}

	s.events.PublishOnboardingEvent(ctx, caregiver.PublicID, model.EventPatientCreated, map[string]interface{}{
		"patient_id": strconv.FormatInt(patient.PublicID, 10),
		"attempts":   attempts,
	})

	logger.Logger.Info("Patient created",
		zap.String("user_id", userID),
		zap.Int64("patient_id", patient.PublicID),
		zap.Int("attempts", attempts),
	)

	return &dto.CreatePatientResponse{
		PatientItem: patientItem(patient),
		StatusSaved: statusSaved,
	}, nil
}

// insertWithUniqueCode 先查重再插入，插入时的唯一索引冲突同样视为碰撞重试
func (s *PatientService) insertWithUniqueCode(ctx context.Context, caregiverID int64, req dto.RecipientInfoForm) (*model.Patient, int, error) {
	maxAttempts := config.Cfg.InvitationCodeMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 10
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, attempt, fmt.Errorf("failed to generate invitation code: %w", err)
		}

		exists, err := s.patients.CodeExists(ctx, code)
		if err != nil {
			return nil, attempt, err
		}
		if exists {
			logger.Logger.Debug("Invitation code collision", zap.Int("attempt", attempt))
			continue
		}

		publicID, err := snowflake.NextID()
		if err != nil {
			return nil, attempt, fmt.Errorf("failed to generate patient ID: %w", err)
		}

		patient := &model.Patient{
			PublicID:       publicID,
			FirstName:      req.FirstName,
			LastName:       req.LastName,
			Name:           model.JoinName(req.FirstName, req.LastName),
			Email:          req.Email,
			InvitationCode: code,
			InterfaceMode:  model.InterfaceModeDefault,
			CreatedBy:      caregiverID,
		}

		err = s.patients.CreateWithRelationship(ctx, patient, caregiverID)
		if stderrors.Is(err, repository.ErrInvitationCodeTaken) {
			continue
		}
		if err != nil {
			return nil, attempt, err
		}
		return patient, attempt, nil
	}

	logger.Logger.Error("Invitation code space exhausted",
		zap.Int64("caregiver_id", caregiverID),
		zap.Int("attempts", maxAttempts),
	)
	return nil, maxAttempts, errors.InvitationCodeExhausted
}

// ListByCaregiver 照护者关联的受照护人，按创建时间排序
func (s *PatientService) ListByCaregiver(ctx context.Context, userID string) (*dto.PatientListResponse, error) {
	caregiver, err := s.caregiver(ctx, userID)
	if err != nil {
		return nil, err
	}

	patients, err := s.patients.ListByCaregiver(ctx, caregiver.ID)
	if err != nil {
		return nil, err
	}

	items := make([]dto.PatientItem, 0, len(patients))
	for i := range patients {
		items = append(items, patientItem(&patients[i]))
	}
	return &dto.PatientListResponse{Items: items}, nil
}

// GetByInvitationCode 分享页按邀请码取回受照护人，只返回本人创建的记录
func (s *PatientService) GetByInvitationCode(ctx context.Context, userID, code string) (*dto.PatientItem, error) {
	caregiver, err := s.caregiver(ctx, userID)
	if err != nil {
		return nil, err
	}

	code = utils.NormalizeInvitationCode(code)
	if !utils.ValidInvitationCode(code) {
		return nil, errors.PatientNotFound
	}

	patient, err := s.patients.GetByInvitationCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if patient.CreatedBy != caregiver.ID {
		return nil, errors.PatientNotFound
	}

	item := patientItem(patient)
	return &item, nil
}

// SelectInterface 设置受照护人端界面模式
func (s *PatientService) SelectInterface(ctx context.Context, userID, patientID, mode string) (*dto.PatientItem, error) {
	interfaceMode := model.InterfaceMode(strings.ToLower(strings.TrimSpace(mode)))
	if !interfaceMode.Valid() {
		return nil, errors.InterfaceModeInvalid
	}

	patientPublicID, ok := snowflake.ParseID(patientID)
	if !ok {
		return nil, errors.PatientNotFound
	}

	caregiver, err := s.caregiver(ctx, userID)
	if err != nil {
		return nil, err
	}

	patient, err := s.patients.GetForCaregiver(ctx, caregiver.ID, patientPublicID)
	if err != nil {
		return nil, err
	}

	if patient.InterfaceMode != interfaceMode {
		if err := s.patients.UpdateInterface(ctx, patient.ID, interfaceMode); err != nil {
			return nil, err
		}
		patient.InterfaceMode = interfaceMode
	}

	item := patientItem(patient)
	return &item, nil
}

// RedeemInvitation 受照护人端输入邀请码，邀请码只能兑换一次
func (s *PatientService) RedeemInvitation(ctx context.Context, code string) (*dto.RedeemInvitationResponse, error) {
	code = utils.NormalizeInvitationCode(code)
	if !utils.ValidInvitationCode(code) {
		return nil, errors.InvitationCodeInvalid
	}

	patient, err := s.patients.GetByInvitationCode(ctx, code)
	if err != nil {
		if stderrors.Is(err, errors.PatientNotFound) {
			return nil, errors.InvitationCodeInvalid
		}
		return nil, err
	}

	redeemed, err := s.patients.MarkRedeemed(ctx, patient.ID, s.now())
	if err != nil {
		return nil, err
	}
	if !redeemed {
		return nil, errors.InvitationAlreadyRedeemed
	}

	s.events.PublishOnboardingEvent(ctx, patient.CreatedBy, model.EventInviteRedeemed, map[string]interface{}{
		"patient_id": strconv.FormatInt(patient.PublicID, 10),
	})

	return &dto.RedeemInvitationResponse{
		PatientID:     strconv.FormatInt(patient.PublicID, 10),
		Name:          patient.Name,
		InterfaceMode: string(patient.InterfaceMode),
	}, nil
}

func (s *PatientService) caregiver(ctx context.Context, userID string) (*model.Profile, error) {
	publicID, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}
	return s.profiles.GetByPublicID(ctx, publicID)
}

func patientItem(p *model.Patient) dto.PatientItem {
	return dto.PatientItem{
		ID:             strconv.FormatInt(p.PublicID, 10),
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		Name:           p.Name,
		Email:          p.Email,
		InvitationCode: p.InvitationCode,
		InterfaceMode:  string(p.InterfaceMode),
		CreatedAt:      p.CreatedAt,
		RedeemedAt:     p.RedeemedAt,
	}
}
