package onboarding

import (
	"net/url"
	"strings"
)

// Step 引导流程中的一个页面，只以名称区分
type Step string

const (
	StepCaregiverInfo        Step = "caregiver-info"
	StepAccountCreation      Step = "account-creation"
	StepAccountVerification  Step = "account-verification"
	StepPromptRecipientSetup Step = "prompt-recipient-setup"
	StepRecipientInfo        Step = "recipient-info"
	StepInterfaceSelection   Step = "interface-selection"
	StepCodeSharing          Step = "code-sharing"

	// StepNone 未匹配到任何步骤
	StepNone Step = ""
	// DestinationHome 引导完成后进入受保护区域
	DestinationHome Step = "home"
)

// RoutePrefix 客户端引导路由的公共前缀
const RoutePrefix = "/caregiver-onboarding/"

func (s Step) String() string {
	return string(s)
}

// Route 返回步骤对应的客户端路由
func (s Step) Route() string {
	if s == StepNone || s == DestinationHome {
		return "/" + string(s)
	}
	return RoutePrefix + string(s)
}

// StepSpec 步骤的静态属性，决定进度条与底部按钮
type StepSpec struct {
	Name          Step    `json:"name"`
	Progress      float64 `json:"progress"`
	BackAllowed   bool    `json:"back_allowed"`
	ShowContinue  bool    `json:"show_continue"`
	AlwaysEnabled bool    `json:"always_enabled"`
	Label         string  `json:"label"`
}

// Registry 有序、固定的步骤表
type Registry struct {
	specs []StepSpec
	index map[Step]int
}

// NewRegistry 按给定顺序构建步骤表，重复的名称以最后一次为准
func NewRegistry(specs ...StepSpec) *Registry {
	r := &Registry{
		specs: make([]StepSpec, 0, len(specs)),
		index: make(map[Step]int, len(specs)),
	}
	for _, spec := range specs {
		if spec.Label == "" {
			spec.Label = "Continue"
		}
		if i, ok := r.index[spec.Name]; ok {
			r.specs[i] = spec
			continue
		}
		r.index[spec.Name] = len(r.specs)
		r.specs = append(r.specs, spec)
	}
	return r
}

var defaultRegistry = NewRegistry(
	StepSpec{Name: StepCaregiverInfo, Progress: 0.15, BackAllowed: true, ShowContinue: true},
	StepSpec{Name: StepAccountCreation, Progress: 0.30, BackAllowed: true, ShowContinue: true},
	StepSpec{Name: StepAccountVerification, Progress: 0.45, AlwaysEnabled: true},
	StepSpec{Name: StepPromptRecipientSetup, Progress: 0.60, BackAllowed: true},
	StepSpec{Name: StepRecipientInfo, Progress: 0.75, BackAllowed: true, ShowContinue: true},
	StepSpec{Name: StepInterfaceSelection, Progress: 0.90, BackAllowed: true, ShowContinue: true, AlwaysEnabled: true},
	StepSpec{Name: StepCodeSharing, Progress: 1.0, ShowContinue: true, AlwaysEnabled: true, Label: "Finish"},
)

// DefaultRegistry 返回客户端使用的默认步骤表
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Steps 按顺序返回步骤表副本
func (r *Registry) Steps() []StepSpec {
	out := make([]StepSpec, len(r.specs))
	copy(out, r.specs)
	return out
}

// Lookup 按名称查找步骤
func (r *Registry) Lookup(step Step) (StepSpec, bool) {
	i, ok := r.index[step]
	if !ok {
		return StepSpec{}, false
	}
	return r.specs[i], true
}

// ParseRoute 取路由最后一段作为步骤名，忽略查询串与片段
func (r *Registry) ParseRoute(path string) (StepSpec, bool) {
	if u, err := url.Parse(path); err == nil {
		path = u.Path
	} else if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	path = strings.TrimRight(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	if path == "" {
		return StepSpec{}, false
	}
	return r.Lookup(Step(path))
}

// Resolve 返回路由对应的进度，未知路由为 0
func (r *Registry) Resolve(path string) float64 {
	spec, ok := r.ParseRoute(path)
	if !ok {
		return 0
	}
	return spec.Progress
}

// Next 返回点击"继续"后到达的步骤，最后一步之后返回 DestinationHome
func (r *Registry) Next(step Step) (Step, bool) {
	i, ok := r.index[step]
	if !ok {
		return StepNone, false
	}
	if i+1 >= len(r.specs) {
		return DestinationHome, true
	}
	return r.specs[i+1].Name, true
}
