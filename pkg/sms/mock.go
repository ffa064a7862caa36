package sms

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"Quilt/pkg/logger"
)

type MockCall struct {
	Phone         string
	SignName      string
	TemplateCode  string
	TemplateParam string
}

// MockClient 开发环境与测试使用，记录调用并打印日志，不真正发送
type MockClient struct {
	mu    sync.Mutex
	calls []MockCall

	// FailNext 置为 true 时，下一次调用返回 mock 错误并自动复位
	FailNext bool
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Provider() string {
	return "mock"
}

func (m *MockClient) SendSingle(ctx context.Context, phone, signName, templateCode, templateParam string) (*SendResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockCall{
		Phone:         phone,
		SignName:      signName,
		TemplateCode:  templateCode,
		TemplateParam: templateParam,
	})

	if m.FailNext {
		m.FailNext = false
		return nil, errors.New("mock sms send failure")
	}

	logger.Logger.Info("Mock SMS sent",
		zap.String("template", templateCode),
		zap.String("param", templateParam),
	)

	return &SendResponse{
		MessageID: "mock-message-id",
		Code:      "OK",
		Message:   "mock send success",
		RequestID: "mock-request-id",
		Provider:  "mock",
		Template:  templateCode,
	}, nil
}

// Calls 返回调用记录副本
func (m *MockClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}
