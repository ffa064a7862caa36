package model

import (
	"time"

	"gorm.io/datatypes"

	"Quilt/internal/onboarding"
)

// UserType 用户类型
type UserType string

const (
	UserTypeCaregiver UserType = "caregiver"
	UserTypeRecipient UserType = "recipient"
)

// Relationship 照护者与受照护人的关系
type Relationship string

const (
	RelationshipParent     Relationship = "parent"
	RelationshipChild      Relationship = "child"
	RelationshipGrandchild Relationship = "grandchild"
	RelationshipCaretaker  Relationship = "caretaker"
)

// Relationships 表单可选项，顺序即展示顺序
var Relationships = []Relationship{
	RelationshipParent,
	RelationshipChild,
	RelationshipGrandchild,
	RelationshipCaretaker,
}

// Profile 用户档案，onboarding_status 以 JSONB 保存引导完成标记
type Profile struct {
	BaseModel
	PublicID        int64                                 `gorm:"uniqueIndex;not null" json:"public_id"`
	Email           string                                `gorm:"uniqueIndex;type:varchar(255);not null" json:"email"`
	PasswordHash    string                                `gorm:"type:varchar(100);not null" json:"-"`
	FirstName       string                                `gorm:"type:varchar(64);not null;default:''" json:"first_name"`
	LastName        string                                `gorm:"type:varchar(64);not null;default:''" json:"last_name"`
	Relationship    Relationship                          `gorm:"type:varchar(16);not null;default:''" json:"relationship"`
	PhoneCipher     []byte                                `gorm:"type:bytea" json:"-"`          // 手机号密文，不对外暴露
	PhoneHash       *string                               `gorm:"index;type:char(64)" json:"-"` // 手机号哈希，用于查询
	UserType        UserType                              `gorm:"type:varchar(16);not null;default:'caregiver'" json:"user_type"`
	PhoneVerifiedAt *time.Time                            `json:"phone_verified_at,omitempty"`
	OnboardingState datatypes.JSONType[onboarding.Status] `gorm:"column:onboarding_status;type:jsonb;not null;default:'{}'" json:"onboarding_status"`
}

// TableName 指定表名
func (Profile) TableName() string {
	return "profiles"
}

// Status 返回解码后的引导标记
func (p *Profile) Status() onboarding.Status {
	return p.OnboardingState.Data()
}

func (p *Profile) SetStatus(s onboarding.Status) {
	p.OnboardingState = datatypes.NewJSONType(s)
}

func (p *Profile) PhoneVerified() bool {
	return p.PhoneVerifiedAt != nil
}

// FullName 与受照护人 name 字段的拼接规则一致
func (p *Profile) FullName() string {
	return JoinName(p.FirstName, p.LastName)
}
