package model

// VerificationSMSMessage 验证码短信消息，由 worker 消费后调用短信服务发送
type VerificationSMSMessage struct {
	MessageID   string `json:"message_id"` // 消息唯一ID，用于幂等性检查
	UserID      int64  `json:"user_id"`
	PhoneCipher string `json:"phone_cipher"` // base64 编码的手机号密文，消息中不出现明文
	Code        string `json:"code"`
	RequestedAt string `json:"requested_at"`
}

// OnboardingEventMessage 引导流程事件，供下游统计与审计
type OnboardingEventMessage struct {
	Payload    map[string]interface{} `json:"payload"`
	EventKey   string                 `json:"event_key"`
	EventType  string                 `json:"event_type"`
	UserID     int64                  `json:"user_id"`
	OccurredAt string                 `json:"occurred_at"`
}

// 引导事件类型
const (
	EventStatusUpdated  = "onboarding.status_updated"
	EventPhoneVerified  = "onboarding.phone_verified"
	EventPatientCreated = "onboarding.patient_created"
	EventInviteRedeemed = "onboarding.invitation_redeemed"
)
