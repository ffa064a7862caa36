package dto

import "Quilt/internal/onboarding"

// ========== Auth 相关 DTO ==========

// CaregiverInfoForm 第一步：照护者信息
type CaregiverInfoForm struct {
	FirstName    string `json:"first_name" validate:"required"`
	LastName     string `json:"last_name" validate:"required"`
	Relationship string `json:"relationship" validate:"required,oneof=parent child grandchild caretaker"`
}

// AccountForm 第二步：账号信息
type AccountForm struct {
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"required,phone"`
	Password        string `json:"password" validate:"required,min=8,max=64"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// RegisterCaregiverRequest 注册照护者账号
type RegisterCaregiverRequest struct {
	CaregiverInfo CaregiverInfoForm `json:"caregiver_info"`
	Account       AccountForm       `json:"account"`
}

// SignInRequest 邮箱密码登录
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest 刷新 token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse 注册、登录、刷新共用的响应
type AuthResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresIn    int             `json:"expires_in"`
	User         ProfileSnapshot `json:"user"`
}

// ProfileSnapshot 对外的用户概览
type ProfileSnapshot struct {
	ID               string            `json:"id"`
	Email            string            `json:"email"`
	FirstName        string            `json:"first_name"`
	LastName         string            `json:"last_name"`
	Relationship     string            `json:"relationship"`
	PhoneMasked      string            `json:"phone_masked,omitempty"`
	PhoneVerified    bool              `json:"phone_verified"`
	OnboardingStatus onboarding.Status `json:"onboarding_status"`
}

// VerifyCodeRequest 提交短信验证码
type VerifyCodeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// SendCodeResponse 验证码发送结果
type SendCodeResponse struct {
	PhoneMasked string `json:"phone_masked"`
	ExpiresIn   int    `json:"expires_in"`
}
