package response

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"Quilt/pkg/errors"
	"Quilt/pkg/logger"
)

// ErrorResponse 统一的错误响应格式
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Details map[string]interface{} `json:"details,omitempty"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
}

// SuccessResponse 统一的成功响应格式
type SuccessResponse struct {
	Data interface{}            `json:"data"`
	Meta map[string]interface{} `json:"meta,omitempty"`
}

// StatusFor 根据业务错误码映射 HTTP 状态码，非业务错误一律 500
func StatusFor(err error) int {
	if _, ok := errors.AsFieldErrors(err); ok {
		return http.StatusBadRequest
	}

	def, ok := errors.As(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch def.Code {
	case errors.RateLimited.Code, errors.VerificationRateLimited.Code, errors.VerificationLocked.Code:
		return http.StatusTooManyRequests // 429
	case errors.InvalidRequest.Code, errors.ValidationFailed.Code,
		errors.InvalidUserID.Code,
		errors.VerificationCodeExpired.Code, errors.VerificationCodeInvalid.Code,
		errors.InterfaceModeInvalid.Code:
		return http.StatusBadRequest // 400
	case errors.Unauthorized.Code, errors.InvalidCredentials.Code, errors.RefreshTokenInvalid.Code:
		return http.StatusUnauthorized // 401
	case errors.ErrUserNotFound.Code, errors.PatientNotFound.Code, errors.InvitationCodeInvalid.Code:
		return http.StatusNotFound // 404
	case errors.EmailAlreadyRegistered.Code, errors.PhoneAlreadyVerified.Code,
		errors.PatientCreationInProgress.Code, errors.InvitationAlreadyRedeemed.Code:
		return http.StatusConflict // 409
	case errors.OnboardingUpdateFailed.Code, errors.InvitationCodeExhausted.Code:
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError
	}
}

// Error 返回错误响应，非业务错误只记录日志，不把内部信息返回给客户端
func Error(ctx context.Context, c *app.RequestContext, err error) {
	ErrorWithDetails(ctx, c, err, nil)
}

func ErrorWithDetails(ctx context.Context, c *app.RequestContext, err error, details map[string]interface{}) {
	if fields, ok := errors.AsFieldErrors(err); ok {
		ValidationError(ctx, c, fields)
		return
	}

	statusCode := StatusFor(err)

	def, ok := errors.As(err)
	if !ok {
		logger.WithContext(ctx).Error("Unhandled error",
			zap.String("path", string(c.Path())),
			zap.Error(err),
		)
		def = errors.InternalError
	}

	c.JSON(statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    def.Code,
			Message: def.Message,
			Details: details,
		},
	})
}

// ValidationError 返回字段级校验错误，前端据此在表单字段下方展示
func ValidationError(ctx context.Context, c *app.RequestContext, fields map[string]string) {
	ErrorWithDetails(ctx, c, errors.ValidationFailed, map[string]interface{}{
		"fields": fields,
	})
}

func Success(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
	})
}

func Created(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusCreated, SuccessResponse{
		Data: data,
	})
}

func SuccessWithMeta(ctx context.Context, c *app.RequestContext, data interface{}, meta map[string]interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
		Meta: meta,
	})
}

func BindError(ctx context.Context, c *app.RequestContext, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{
			Code:    errors.InvalidRequest.Code,
			Message: err.Error(),
		},
	})
}

// NoContent 返回 204 No Content
func NoContent(ctx context.Context, c *app.RequestContext) {
	c.Status(http.StatusNoContent)
}
