package onboarding

// CaregiverInfo 第一步填写的照护者信息
type CaregiverInfo struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Relationship string `json:"relationship"`
}

// AccountDraft 账号表单草稿，密码从不保存
type AccountDraft struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Wizard 每个照护者的向导状态，由协调者持有并注入各步骤
type Wizard struct {
	PreviousPath     string        `json:"previous_path"`
	PreviousProgress float64       `json:"previous_progress"`
	FormValid        bool          `json:"form_valid"`
	CaregiverInfo    CaregiverInfo `json:"caregiver_info"`
	Account          AccountDraft  `json:"account_info"`
}

// Progress 一次导航后的视图
type Progress struct {
	Step            Step    `json:"step"`
	Route           string  `json:"route"`
	Progress        float64 `json:"progress"`
	Forward         bool    `json:"forward"`
	BackAllowed     bool    `json:"back_allowed"`
	ShowContinue    bool    `json:"show_continue"`
	ContinueEnabled bool    `json:"continue_enabled"`
	Label           string  `json:"label"`
	FormValid       bool    `json:"form_valid"`
}

// Navigate 解析新路由并更新向导状态
// 进度严格增大视为前进，表单有效性重置为 false；后退或原地不动时保持不变
func (w *Wizard) Navigate(r *Registry, path string) Progress {
	spec, ok := r.ParseRoute(path)
	fraction := 0.0
	if ok {
		fraction = spec.Progress
	}

	forward := fraction > w.PreviousProgress
	if forward {
		w.FormValid = false
	}
	w.PreviousPath = path
	w.PreviousProgress = fraction

	return w.view(spec, ok, forward)
}

// SetFormValid 当前页面报告表单有效性
func (w *Wizard) SetFormValid(r *Registry, valid bool) Progress {
	w.FormValid = valid
	spec, ok := r.ParseRoute(w.PreviousPath)
	return w.view(spec, ok, false)
}

func (w *Wizard) view(spec StepSpec, ok bool, forward bool) Progress {
	p := Progress{
		Progress:  w.PreviousProgress,
		Forward:   forward,
		FormValid: w.FormValid,
		Label:     "Continue",
	}
	if !ok {
		return p
	}

	p.Step = spec.Name
	p.Route = spec.Name.Route()
	p.BackAllowed = spec.BackAllowed
	p.ShowContinue = spec.ShowContinue
	p.ContinueEnabled = spec.AlwaysEnabled || w.FormValid
	p.Label = spec.Label
	return p
}
