package onboarding

import "context"

// Persister 把完成标记合并进用户档案
// 失败不返回错误，只返回 false，由调用方决定如何提示
type Persister interface {
	UpdateStatus(ctx context.Context, userID string, patch StatusPatch) bool
}

func MarkAccountCreated(ctx context.Context, p Persister, userID string) bool {
	return p.UpdateStatus(ctx, userID, PatchAccountCreated)
}

func MarkPatientConnected(ctx context.Context, p Persister, userID string) bool {
	return p.UpdateStatus(ctx, userID, PatchPatientConnected)
}

// MarkFinalStep 到达邀请码分享页时调用
func MarkFinalStep(ctx context.Context, p Persister, userID string) bool {
	return p.UpdateStatus(ctx, userID, PatchFinalStep)
}

func MarkOnboardingComplete(ctx context.Context, p Persister, userID string) bool {
	return p.UpdateStatus(ctx, userID, PatchOnboardingComplete)
}
