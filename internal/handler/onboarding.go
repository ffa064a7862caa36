package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"Quilt/internal/model/dto"
	"Quilt/internal/onboarding"
	"Quilt/internal/service"
	"Quilt/pkg/response"
)

// ListSteps 步骤表，前端据此渲染进度条
// GET /v1/onboarding/steps
func ListSteps(ctx context.Context, c *app.RequestContext) {
	response.Success(ctx, c, dto.StepsResponse{
		Steps: service.Onboarding().Registry().Steps(),
	})
}

// GetOnboardingStatus 获取当前用户的完成标记
// GET /v1/onboarding/status
func GetOnboardingStatus(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	status, err := service.Onboarding().GetStatus(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, status)
}

// UpdateOnboardingStatus 合并完成标记，只会置 true
// PATCH /v1/onboarding/status
func UpdateOnboardingStatus(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var patch onboarding.StatusPatch
	if !bindJSON(ctx, c, &patch) {
		return
	}

	status, updated, err := service.Onboarding().MergeStatus(ctx, userID, patch)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, dto.StatusUpdateResponse{
		Updated: updated,
		Status:  status,
	})
}

// ResumeOnboarding 登录后决定落在哪一步
// GET /v1/onboarding/resume
func ResumeOnboarding(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	result, err := service.Onboarding().Resume(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// Navigate 客户端路由变化，返回进度与按钮状态
// POST /v1/onboarding/navigate
func Navigate(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req dto.NavigateRequest
	if !bindAndValidate(ctx, c, &req) {
		return
	}

	progress, err := service.Onboarding().Navigate(ctx, userID, req.Path)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, progress)
}

// SetFormValidity 当前页面表单有效性
// PUT /v1/onboarding/form-validity
func SetFormValidity(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req dto.FormValidityRequest
	if !bindJSON(ctx, c, &req) {
		return
	}

	progress, err := service.Onboarding().SetFormValidity(ctx, userID, req.Valid)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, progress)
}

// GetWizard 读取向导状态（当前步骤与表单草稿）
// GET /v1/onboarding/wizard
func GetWizard(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	wizard, err := service.Onboarding().Wizard(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, wizard)
}

// SaveWizardDraft 保存表单草稿，返回上一步时可恢复
// PUT /v1/onboarding/wizard/draft
func SaveWizardDraft(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req dto.WizardDraftRequest
	if !bindJSON(ctx, c, &req) {
		return
	}

	wizard, err := service.Onboarding().SaveDraft(ctx, userID, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, wizard)
}

// CompleteOnboarding 标记引导完成
// POST /v1/onboarding/complete
func CompleteOnboarding(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	status, err := service.Onboarding().Complete(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, status)
}
