package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"Quilt/internal/handler"
	"Quilt/internal/middleware"
)

func Register(h *server.Hertz) {
	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.RequestIDMiddleware())
	h.Use(middleware.CORSMiddleware())
	h.Use(middleware.OpenTelemetryMiddleware())

	h.GET("/healthz", handler.Healthz)
	h.GET("/readyz", handler.Readyz)

	v1 := h.Group("/v1")

	// 认证相关路由
	auth := v1.Group("/auth")
	{
		public := auth.Group("", middleware.AuthRateLimitMiddleware())
		public.POST("/caregivers", handler.RegisterCaregiver)
		public.POST("/sign-in", handler.SignIn)
		public.POST("/token/refresh", handler.RefreshToken)

		authed := auth.Group("", middleware.AuthMiddleware(), middleware.GeneralRateLimitMiddleware())
		authed.POST("/sign-out", handler.SignOut)

		// 手机验证码
		verification := authed.Group("/verification")
		{
			verification.POST("/send", middleware.VerificationRateLimitMiddleware(), handler.SendVerificationCode)
			verification.POST("/verify", handler.VerifyCode)
		}
	}

	users := v1.Group("/users", middleware.AuthMiddleware(), middleware.GeneralRateLimitMiddleware())
	{
		users.GET("/me", handler.GetProfile)
	}

	// 步骤表无需登录
	v1.GET("/onboarding/steps", handler.ListSteps)

	onboarding := v1.Group("/onboarding", middleware.AuthMiddleware(), middleware.GeneralRateLimitMiddleware())
	{
		onboarding.GET("/status", handler.GetOnboardingStatus)
		onboarding.PATCH("/status", handler.UpdateOnboardingStatus)
		onboarding.GET("/resume", handler.ResumeOnboarding)
		onboarding.POST("/navigate", handler.Navigate)
		onboarding.PUT("/form-validity", handler.SetFormValidity)
		onboarding.GET("/wizard", handler.GetWizard)
		onboarding.PUT("/wizard/draft", handler.SaveWizardDraft)
		onboarding.POST("/complete", handler.CompleteOnboarding)
	}

	patients := v1.Group("/patients", middleware.AuthMiddleware(), middleware.GeneralRateLimitMiddleware())
	{
		patients.GET("", handler.ListPatients)
		patients.POST("", handler.CreatePatient)
		patients.GET("/code/:code", handler.GetPatientByCode)
		patients.PUT("/:patient_id/interface", handler.SelectInterface)
	}

	// 受照护人端兑换邀请码
	v1.POST("/invitations/redeem", middleware.InvitationRateLimitMiddleware(), handler.RedeemInvitation)
}
