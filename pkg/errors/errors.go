package errors

import "errors"

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// WithMessage 保留错误码，替换对外展示的信息
func (d Definition) WithMessage(message string) Definition {
	return Definition{Code: d.Code, Message: message}
}

// 通用错误。
var (
	InvalidRequest   = Definition{Code: "INVALID_REQUEST", Message: "Invalid request"}
	ValidationFailed = Definition{Code: "VALIDATION_FAILED", Message: "Please correct the highlighted fields"}
	InternalError    = Definition{Code: "INTERNAL_ERROR", Message: "Something went wrong, please try again"}
	RateLimited      = Definition{Code: "RATE_LIMITED", Message: "Too many requests, please try again later"}
)

// 认证相关错误。
var (
	Unauthorized            = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized"}
	InvalidUserID           = Definition{Code: "INVALID_USER_ID", Message: "Invalid user ID format"}
	ErrUserNotFound         = Definition{Code: "USER_NOT_FOUND", Message: "User not found"}
	EmailAlreadyRegistered  = Definition{Code: "EMAIL_ALREADY_REGISTERED", Message: "An account with this email already exists"}
	InvalidCredentials      = Definition{Code: "INVALID_CREDENTIALS", Message: "Email or password is incorrect"}
	RefreshTokenInvalid     = Definition{Code: "REFRESH_TOKEN_INVALID", Message: "Refresh token invalid"}
	VerificationCodeExpired = Definition{Code: "VERIFICATION_CODE_EXPIRED", Message: "Verification code expired"}
	VerificationCodeInvalid = Definition{Code: "VERIFICATION_CODE_INVALID", Message: "Verification code invalid"}
	VerificationRateLimited = Definition{Code: "VERIFICATION_RATE_LIMITED", Message: "Too many verification codes requested today"}
	VerificationLocked      = Definition{Code: "VERIFICATION_LOCKED", Message: "Too many incorrect codes, please request a new one"}
	PhoneAlreadyVerified    = Definition{Code: "PHONE_ALREADY_VERIFIED", Message: "Phone already verified"}
)

// 引导流程错误。
var (
	OnboardingUpdateFailed = Definition{Code: "ONBOARDING_UPDATE_FAILED", Message: "Could not save onboarding progress, please try again"}
)

// 受照护人与邀请码错误。
var (
	PatientNotFound           = Definition{Code: "PATIENT_NOT_FOUND", Message: "No linked care recipient found"}
	PatientCreationInProgress = Definition{Code: "PATIENT_CREATION_IN_PROGRESS", Message: "Care recipient is already being created"}
	InvitationCodeInvalid     = Definition{Code: "INVITATION_CODE_INVALID", Message: "Invalid invitation code. Please try again."}
	InvitationCodeExhausted   = Definition{Code: "INVITATION_CODE_EXHAUSTED", Message: "Could not allocate a unique invitation code"}
	InterfaceModeInvalid      = Definition{Code: "INTERFACE_MODE_INVALID", Message: "Interface mode must be default or easy"}
	InvitationAlreadyRedeemed = Definition{Code: "INVITATION_ALREADY_REDEEMED", Message: "Invitation code already used"}
)

// 基础设施错误，不直接暴露给客户端。
var (
	ErrTokenGeneratorNotInitialized = errors.New("token generator not initialized")
	ErrUnexpectedSigningMethod      = errors.New("unexpected signing method")
	ErrInvalidToken                 = errors.New("invalid token")
	ErrInvalidTokenClaims           = errors.New("invalid token claims")
	ErrInvalidTokenType             = errors.New("invalid token type")
	ErrUserIDNotFound               = errors.New("user id not found in token")
)

// FieldErrors 字段级校验错误，键为 json 字段名
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	return ValidationFailed.Message
}

// AsFieldErrors 从错误链中取出字段级校验错误
func AsFieldErrors(err error) (FieldErrors, bool) {
	var fields FieldErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		return fields, true
	}
	return nil, false
}

// SkipMessageError 表示消息无需处理（已处理过），消费者直接 ack
type SkipMessageError struct {
	Reason string
}

func (e *SkipMessageError) Error() string {
	return "skip message: " + e.Reason
}

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	InvalidRequest.Code:            InvalidRequest,
	ValidationFailed.Code:          ValidationFailed,
	InternalError.Code:             InternalError,
	RateLimited.Code:               RateLimited,
	Unauthorized.Code:              Unauthorized,
	InvalidUserID.Code:             InvalidUserID,
	ErrUserNotFound.Code:           ErrUserNotFound,
	EmailAlreadyRegistered.Code:    EmailAlreadyRegistered,
	InvalidCredentials.Code:        InvalidCredentials,
	RefreshTokenInvalid.Code:       RefreshTokenInvalid,
	VerificationCodeExpired.Code:   VerificationCodeExpired,
	VerificationCodeInvalid.Code:   VerificationCodeInvalid,
	VerificationRateLimited.Code:   VerificationRateLimited,
	VerificationLocked.Code:        VerificationLocked,
	PhoneAlreadyVerified.Code:      PhoneAlreadyVerified,
	OnboardingUpdateFailed.Code:    OnboardingUpdateFailed,
	PatientNotFound.Code:           PatientNotFound,
	PatientCreationInProgress.Code: PatientCreationInProgress,
	InvitationCodeInvalid.Code:     InvitationCodeInvalid,
	InvitationCodeExhausted.Code:   InvitationCodeExhausted,
	InterfaceModeInvalid.Code:      InterfaceModeInvalid,
	InvitationAlreadyRedeemed.Code: InvitationAlreadyRedeemed,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}

// As 从错误链中取出业务错误
func As(err error) (Definition, bool) {
	var def Definition
	if errors.As(err, &def) {
		return def, true
	}
	return Definition{}, false
}
