package model

import (
	"strings"
	"time"
)

// InterfaceMode 受照护人端界面模式
type InterfaceMode string

const (
	InterfaceModeDefault InterfaceMode = "default"
	InterfaceModeEasy    InterfaceMode = "easy"
)

func (m InterfaceMode) Valid() bool {
	return m == InterfaceModeDefault || m == InterfaceModeEasy
}

// RelationshipTypePrimary 创建受照护人的照护者为主要照护者
const RelationshipTypePrimary = "primary"

// Patient 受照护人，邀请码用于受照护人端注册时关联账号
type Patient struct {
	BaseModel
	PublicID       int64         `gorm:"uniqueIndex;not null" json:"public_id"`
	FirstName      string        `gorm:"type:varchar(64);not null" json:"first_name"`
	LastName       string        `gorm:"type:varchar(64);not null" json:"last_name"`
	Name           string        `gorm:"type:varchar(130);not null" json:"name"`
	Email          string        `gorm:"type:varchar(255);not null" json:"email"`
	InvitationCode string        `gorm:"uniqueIndex;type:char(6);not null" json:"invitation_code"`
	InterfaceMode  InterfaceMode `gorm:"type:varchar(16);not null;default:'default'" json:"interface_mode"`
	CreatedBy      int64         `gorm:"index;not null" json:"created_by"` // 照护者 profiles.id
	RedeemedAt     *time.Time    `json:"redeemed_at,omitempty"`
}

func (Patient) TableName() string {
	return "patients"
}

// CaregiverPatient 照护者与受照护人的关联
type CaregiverPatient struct {
	BaseModel
	CaregiverID      int64  `gorm:"uniqueIndex:idx_caregiver_patient;not null" json:"caregiver_id"`
	PatientID        int64  `gorm:"uniqueIndex:idx_caregiver_patient;index;not null" json:"patient_id"`
	RelationshipType string `gorm:"type:varchar(16);not null;default:'primary'" json:"relationship_type"`
}

func (CaregiverPatient) TableName() string {
	return "caregiver_patients"
}

// JoinName 拼接姓名，忽略空白部分
func JoinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}
