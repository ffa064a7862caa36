package sms

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"Quilt/config"
	"Quilt/pkg/logger"
)

// SendResponse 短信发送结果
type SendResponse struct {
	MessageID string // 服务商返回的 BizId
	Code      string // 服务商状态码，成功为 "OK"
	Message   string
	RequestID string
	Provider  string
	Template  string
}

// Client SMS 客户端接口
type Client interface {
	// SendSingle 发送单条短信，templateParam 为 JSON 字符串
	SendSingle(ctx context.Context, phone, signName, templateCode, templateParam string) (*SendResponse, error)
	Provider() string
}

var (
	smsClient Client
	smsOnce   sync.Once
	smsErr    error
)

// Init 按 SMS_PROVIDER 初始化客户端，开发环境默认使用只打日志的 mock
func Init() error {
	smsOnce.Do(func() {
		cfg := config.Cfg

		switch cfg.SMSProvider {
		case "aliyun":
			smsClient, smsErr = NewAliyunClient()
		case "mock", "":
			smsClient = NewMockClient()
		default:
			smsErr = fmt.Errorf("unsupported SMS provider: %s", cfg.SMSProvider)
		}

		if smsErr != nil {
			logger.Logger.Error("Failed to initialize SMS client", zap.Error(smsErr))
			return
		}

		logger.Logger.Info("SMS client initialized successfully",
			zap.String("provider", smsClient.Provider()),
		)
	})

	return smsErr
}

func GetClient() Client {
	if smsClient == nil {
		panic("SMS client not initialized, call sms.Init() first")
	}
	return smsClient
}
