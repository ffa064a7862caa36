package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"Quilt/internal/middleware"
	"Quilt/pkg/errors"
	"Quilt/pkg/response"
	"Quilt/utils"
)

// bindJSON 只做解码，字段校验交给 service
func bindJSON(ctx context.Context, c *app.RequestContext, req interface{}) bool {
	if err := c.BindJSON(req); err != nil {
		response.BindError(ctx, c, err)
		return false
	}
	return true
}

// bindAndValidate 解码后按 validate 标签校验
func bindAndValidate(ctx context.Context, c *app.RequestContext, req interface{}) bool {
	if !bindJSON(ctx, c, req) {
		return false
	}
	if fields := utils.ValidateStruct(req); len(fields) > 0 {
		response.ValidationError(ctx, c, fields)
		return false
	}
	return true
}

func currentUser(ctx context.Context, c *app.RequestContext) (string, bool) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return "", false
	}
	return userID, true
}
