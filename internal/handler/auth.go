package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"Quilt/internal/model/dto"
	"Quilt/internal/service"
	"Quilt/pkg/response"
)

// RegisterCaregiver 注册照护者账号（引导流程第一、二步提交）
// POST /v1/auth/caregivers
func RegisterCaregiver(ctx context.Context, c *app.RequestContext) {
	var req dto.RegisterCaregiverRequest
	if !bindJSON(ctx, c, &req) {
		return
	}

	result, err := service.Auth().RegisterCaregiver(ctx, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Created(ctx, c, result)
}

// SignIn 邮箱密码登录
// POST /v1/auth/sign-in
func SignIn(ctx context.Context, c *app.RequestContext) {
	var req dto.SignInRequest
	if !bindAndValidate(ctx, c, &req) {
		return
	}

	result, err := service.Auth().SignIn(ctx, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// RefreshToken 刷新访问令牌
// POST /v1/auth/token/refresh
func RefreshToken(ctx context.Context, c *app.RequestContext) {
	var req dto.RefreshTokenRequest
	if !bindAndValidate(ctx, c, &req) {
		return
	}

	result, err := service.Auth().RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// SignOut 退出登录
// POST /v1/auth/sign-out
func SignOut(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	if err := service.Auth().SignOut(ctx, userID); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}

// GetProfile 当前用户概览
// GET /v1/users/me
func GetProfile(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	result, err := service.Auth().Profile(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// SendVerificationCode 向注册手机号发送验证码
// POST /v1/auth/verification/send
func SendVerificationCode(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	result, err := service.Verification().SendCode(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// VerifyCode 校验验证码
// POST /v1/auth/verification/verify
func VerifyCode(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req dto.VerifyCodeRequest
	if !bindJSON(ctx, c, &req) {
		return
	}

	if err := service.Verification().VerifyCode(ctx, userID, req.Code); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, map[string]bool{"phone_verified": true})
}
