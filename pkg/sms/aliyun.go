package sms

import (
	"context"
	"encoding/json"
	"fmt"

	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	openapiutil "github.com/alibabacloud-go/openapi-util/service"
	util "github.com/alibabacloud-go/tea-utils/v2/service"
	"github.com/alibabacloud-go/tea/tea"
	credential "github.com/aliyun/credentials-go/credentials"
	"go.uber.org/zap"

	"Quilt/pkg/logger"
)

type AliyunClient struct {
	client *openapi.Client
}

// NewAliyunClient 凭据从环境变量自动获取：
// ALIBABA_CLOUD_ACCESS_KEY_ID 和 ALIBABA_CLOUD_ACCESS_KEY_SECRET
func NewAliyunClient() (*AliyunClient, error) {
	cred, err := credential.NewCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create aliyun credential: %w", err)
	}

	client, err := openapi.NewClient(&openapi.Config{
		Credential: cred,
		Endpoint:   tea.String("dysmsapi.aliyuncs.com"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create aliyun client: %w", err)
	}

	return &AliyunClient{client: client}, nil
}

func (c *AliyunClient) Provider() string {
	return "aliyun"
}

func apiInfo(action string) *openapi.Params {
	return &openapi.Params{
		Action:      tea.String(action),
		Version:     tea.String("2017-05-25"),
		Protocol:    tea.String("HTTPS"),
		Method:      tea.String("POST"),
		AuthType:    tea.String("AK"),
		Style:       tea.String("RPC"),
		Pathname:    tea.String("/"),
		ReqBodyType: tea.String("json"),
		BodyType:    tea.String("json"),
	}
}

// SendSingle 调用 SendSms 发送单条短信
func (c *AliyunClient) SendSingle(ctx context.Context, phone, signName, templateCode, templateParam string) (*SendResponse, error) {
	if signName == "" {
		return nil, fmt.Errorf("signName is required")
	}
	if templateCode == "" {
		return nil, fmt.Errorf("templateCode is required")
	}

	request := &openapi.OpenApiRequest{
		Query: openapiutil.Query(map[string]interface{}{
			"PhoneNumbers":  tea.String(phone),
			"SignName":      tea.String(signName),
			"TemplateCode":  tea.String(templateCode),
			"TemplateParam": tea.String(templateParam),
		}),
	}

	resp, err := c.client.CallApi(apiInfo("SendSms"), request, &util.RuntimeOptions{})
	if err != nil {
		logger.Logger.Error("Failed to send SMS",
			zap.String("template", templateCode),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to send SMS: %w", err)
	}

	if statusCode, ok := resp["statusCode"].(int); ok && statusCode != 200 {
		logger.Logger.Error("SMS API returned error",
			zap.Int("statusCode", statusCode),
			zap.Any("body", resp["body"]),
		)
		return nil, fmt.Errorf("SMS API error: statusCode=%d", statusCode)
	}

	result := &SendResponse{Provider: c.Provider(), Template: templateCode}
	if resp["body"] != nil {
		bodyBytes, _ := json.Marshal(resp["body"])
		var body struct {
			Code      string `json:"Code"`
			Message   string `json:"Message"`
			BizID     string `json:"BizId"`
			RequestID string `json:"RequestId"`
		}
		if err := json.Unmarshal(bodyBytes, &body); err == nil {
			result.Code = body.Code
			result.Message = body.Message
			result.MessageID = body.BizID
			result.RequestID = body.RequestID
		}
	}

	if result.Code != "" && result.Code != "OK" {
		logger.Logger.Error("SMS send failed",
			zap.String("code", result.Code),
			zap.String("message", result.Message),
		)
		return result, fmt.Errorf("SMS send failed: %s - %s", result.Code, result.Message)
	}

	logger.Logger.Info("SMS sent successfully",
		zap.String("template", templateCode),
		zap.String("biz_id", result.MessageID),
	)

	return result, nil
}
