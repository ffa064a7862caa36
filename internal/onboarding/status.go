package onboarding

// Status 持久化在 profiles.onboarding_status 中的完成标记
// 标记单调：一旦为 true 不会被合并回 false
type Status struct {
	AccountCreated     bool `json:"account_created"`
	PatientConnected   bool `json:"patient_connected"`
	FinalStep          bool `json:"final_step"`
	OnboardingComplete bool `json:"onboarding_complete"`
}

// StatusPatch 部分更新，nil 表示不涉及该标记
type StatusPatch struct {
	AccountCreated     *bool `json:"account_created,omitempty"`
	PatientConnected   *bool `json:"patient_connected,omitempty"`
	FinalStep          *bool `json:"final_step,omitempty"`
	OnboardingComplete *bool `json:"onboarding_complete,omitempty"`
}

func flag() *bool {
	v := true
	return &v
}

var (
	PatchAccountCreated     = StatusPatch{AccountCreated: flag()}
	PatchPatientConnected   = StatusPatch{PatientConnected: flag()}
	PatchFinalStep          = StatusPatch{FinalStep: flag()}
	PatchOnboardingComplete = StatusPatch{OnboardingComplete: flag()}
)

// Empty 补丁中没有任何置位
func (p StatusPatch) Empty() bool {
	return !isSet(p.AccountCreated) && !isSet(p.PatientConnected) &&
		!isSet(p.FinalStep) && !isSet(p.OnboardingComplete)
}

func isSet(v *bool) bool {
	return v != nil && *v
}

// Merge 以逻辑或合并补丁，changed 表示结果与 current 不同
// 补丁中的 false 被忽略
func Merge(current Status, patch StatusPatch) (merged Status, changed bool) {
	merged = Status{
		AccountCreated:     current.AccountCreated || isSet(patch.AccountCreated),
		PatientConnected:   current.PatientConnected || isSet(patch.PatientConnected),
		FinalStep:          current.FinalStep || isSet(patch.FinalStep),
		OnboardingComplete: current.OnboardingComplete || isSet(patch.OnboardingComplete),
	}
	return merged, merged != current
}
