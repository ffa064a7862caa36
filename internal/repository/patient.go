package repository

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"Quilt/internal/model"
	"Quilt/pkg/errors"
)

// ErrInvitationCodeTaken 插入时邀请码与已有记录冲突
var ErrInvitationCodeTaken = stderrors.New("invitation code already taken")

// PatientRepository 受照护人及照护关系存取
type PatientRepository interface {
	CodeExists(ctx context.Context, code string) (bool, error)
	// CreateWithRelationship 同一事务内创建受照护人与主要照护关系
	CreateWithRelationship(ctx context.Context, patient *model.Patient, caregiverID int64) error
	ListByCaregiver(ctx context.Context, caregiverID int64) ([]model.Patient, error)
	GetByInvitationCode(ctx context.Context, code string) (*model.Patient, error)
	GetForCaregiver(ctx context.Context, caregiverID, patientPublicID int64) (*model.Patient, error)
	UpdateInterface(ctx context.Context, patientID int64, mode model.InterfaceMode) error
	// MarkRedeemed 仅首次兑换写入，重复兑换返回 false
	MarkRedeemed(ctx context.Context, patientID int64, at time.Time) (bool, error)
}

type patientRepository struct {
	db *gorm.DB
}

func NewPatientRepository(db *gorm.DB) PatientRepository {
	return &patientRepository{db: db}
}

func (r *patientRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Patient{}).
		Where("invitation_code = ?", code).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check invitation code: %w", err)
	}
	return count > 0, nil
}

func (r *patientRepository) CreateWithRelationship(ctx context.Context, patient *model.Patient, caregiverID int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(patient).Error; err != nil {
			return err
		}

		link := &model.CaregiverPatient{
			CaregiverID:      caregiverID,
			PatientID:        patient.ID,
			RelationshipType: model.RelationshipTypePrimary,
		}
		return tx.Create(link).Error
	})
	if err != nil {
		// 唯一索引只有 public_id 与 invitation_code，public_id 由 snowflake 保证不冲突
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrInvitationCodeTaken
		}
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *patientRepository) ListByCaregiver(ctx context.Context, caregiverID int64) ([]model.Patient, error) {
	var patients []model.Patient
	err := r.db.WithContext(ctx).
		Joins("JOIN caregiver_patients cp ON cp.patient_id = patients.id AND cp.deleted_at IS NULL").
		Where("cp.caregiver_id = ?", caregiverID).
		Order("patients.created_at ASC").
		Find(&patients).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

func (r *patientRepository) GetByInvitationCode(ctx context.Context, code string) (*model.Patient, error) {
	var patient model.Patient
	err := r.db.WithContext(ctx).Where("invitation_code = ?", code).First(&patient).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.PatientNotFound
		}
		return nil, fmt.Errorf("failed to query patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) GetForCaregiver(ctx context.Context, caregiverID, patientPublicID int64) (*model.Patient, error) {
	var patient model.Patient
	err := r.db.WithContext(ctx).
		Joins("JOIN caregiver_patients cp ON cp.patient_id = patients.id AND cp.deleted_at IS NULL").
		Where("cp.caregiver_id = ? AND patients.public_id = ?", caregiverID, patientPublicID).
		First(&patient).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.PatientNotFound
		}
		return nil, fmt.Errorf("failed to query patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) UpdateInterface(ctx context.Context, patientID int64, mode model.InterfaceMode) error {
	err := r.db.WithContext(ctx).Model(&model.Patient{}).
		Where("id = ?", patientID).
		Update("interface_mode", mode).Error
	if err != nil {
		return fmt.Errorf("failed to update interface mode: %w", err)
	}
	return nil
}

func (r *patientRepository) MarkRedeemed(ctx context.Context, patientID int64, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Patient{}).
		Where("id = ? AND redeemed_at IS NULL", patientID).
		Update("redeemed_at", at)
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark invitation redeemed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
