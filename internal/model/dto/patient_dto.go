package dto

import "time"

// ========== Patient 相关 DTO ==========

// RecipientInfoForm 受照护人信息表单
type RecipientInfoForm struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
}

// PatientItem 受照护人
type PatientItem struct {
	ID             string     `json:"id"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	InvitationCode string     `json:"invitation_code"`
	InterfaceMode  string     `json:"interface_mode"`
	CreatedAt      time.Time  `json:"created_at"`
	RedeemedAt     *time.Time `json:"redeemed_at,omitempty"`
}

// CreatePatientResponse status_saved 为 false 表示 patient_connected 未保存
type CreatePatientResponse struct {
	PatientItem
	StatusSaved bool `json:"status_saved"`
}

// PatientListResponse 受照护人列表
type PatientListResponse struct {
	Items []PatientItem `json:"items"`
}

// SelectInterfaceRequest 选择受照护人端界面
type SelectInterfaceRequest struct {
	Mode string `json:"mode" validate:"required,oneof=default easy"`
}

// RedeemInvitationRequest 受照护人端输入邀请码
type RedeemInvitationRequest struct {
	Code string `json:"code" validate:"required"`
}

// RedeemInvitationResponse 邀请码兑换结果，不返回照护者信息
type RedeemInvitationResponse struct {
	PatientID     string `json:"patient_id"`
	Name          string `json:"name"`
	InterfaceMode string `json:"interface_mode"`
}
