package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"Quilt/internal/model/dto"
	"Quilt/internal/service"
	"Quilt/pkg/response"
)

// ListPatients 当前照护者关联的受照护人
// GET /v1/patients
func ListPatients(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	result, err := service.Patient().ListByCaregiver(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.SuccessWithMeta(ctx, c, result, map[string]interface{}{"count": len(result.Items)})
}

// CreatePatient 创建受照护人并生成邀请码
// POST /v1/patients
func CreatePatient(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req dto.RecipientInfoForm
	if !bindJSON(ctx, c, &req) {
		return
	}

	result, err := service.Patient().CreatePatient(ctx, userID, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Created(ctx, c, result)
}

// GetPatientByCode 按邀请码查询，只能查到自己关联的受照护人
// GET /v1/patients/code/:code
func GetPatientByCode(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	result, err := service.Patient().GetByInvitationCode(ctx, userID, c.Param("code"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// SelectInterface 选择受照护人端界面
// PUT /v1/patients/:patient_id/interface
func SelectInterface(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req dto.SelectInterfaceRequest
	if !bindJSON(ctx, c, &req) {
		return
	}

	result, err := service.Patient().SelectInterface(ctx, userID, c.Param("patient_id"), req.Mode)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// RedeemInvitation 受照护人端兑换邀请码，无需登录
// POST /v1/invitations/redeem
func RedeemInvitation(ctx context.Context, c *app.RequestContext) {
	var req dto.RedeemInvitationRequest
	if !bindAndValidate(ctx, c, &req) {
		return
	}

	result, err := service.Patient().RedeemInvitation(ctx, req.Code)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}
