package sms

import (
	"context"
	"encoding/json"
	"fmt"

	"Quilt/config"
)

// SendVerificationCode 使用配置的签名和模板发送验证码短信
func SendVerificationCode(ctx context.Context, client Client, phone, code string) (*SendResponse, error) {
	paramJSON, err := json.Marshal(map[string]string{"code": code})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal template param: %w", err)
	}

	return client.SendSingle(ctx, phone, config.Cfg.SMSSignName, config.Cfg.SMSTemplateCode, string(paramJSON))
}
