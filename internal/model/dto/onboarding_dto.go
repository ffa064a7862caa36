package dto

import "Quilt/internal/onboarding"

// ========== Onboarding 相关 DTO ==========

// NavigateRequest 客户端路由变化
type NavigateRequest struct {
	Path string `json:"path" validate:"required"`
}

// FormValidityRequest 当前页面表单是否有效
type FormValidityRequest struct {
	Valid bool `json:"valid"`
}

// ResumeResponse 恢复目的地
type ResumeResponse struct {
	Step     onboarding.Step   `json:"step"`
	Route    string            `json:"route"`
	Rule     string            `json:"rule"`
	Complete bool              `json:"complete"`
	Status   onboarding.Status `json:"status"`
}

// StatusUpdateResponse 合并后的完成标记
type StatusUpdateResponse struct {
	Updated bool              `json:"updated"`
	Status  onboarding.Status `json:"status"`
}

// StepsResponse 步骤表
type StepsResponse struct {
	Steps []onboarding.StepSpec `json:"steps"`
}

// WizardDraftRequest 表单草稿，未提供的部分保持不变
type WizardDraftRequest struct {
	CaregiverInfo *onboarding.CaregiverInfo `json:"caregiver_info,omitempty"`
	Account       *onboarding.AccountDraft  `json:"account_info,omitempty"`
}
