package onboarding

import (
	"fmt"
	"strings"
)

// Predicate 判断恢复规则是否命中
type Predicate func(status Status, phoneVerified bool) bool

// Rule 恢复规则：名称、条件、目的步骤
type Rule struct {
	Name        string
	When        Predicate
	Destination Step
}

// Policy 有序规则表，首个命中的规则胜出，全部未命中时回到 Fallback
type Policy struct {
	Rules    []Rule
	Fallback Step
}

var flagPredicates = map[string]Predicate{
	"onboarding_complete": func(s Status, _ bool) bool { return s.OnboardingComplete },
	"final_step":          func(s Status, _ bool) bool { return s.FinalStep },
	"patient_connected":   func(s Status, _ bool) bool { return s.PatientConnected },
	"account_created":     func(s Status, _ bool) bool { return s.AccountCreated },
}

func ruleFor(name string, dest Step) Rule {
	return Rule{Name: name, When: flagPredicates[name], Destination: dest}
}

// completeRule 引导已完成时直接进入主页
var completeRule = ruleFor("onboarding_complete", DestinationHome)

// verificationRule 已建号但手机号未验证时回到验证页
var verificationRule = Rule{
	Name: "phone_unverified",
	When: func(s Status, verified bool) bool {
		return s.AccountCreated && !verified
	},
	Destination: StepAccountVerification,
}

// DefaultPolicy 按里程碑倒序检查，完成第 N 步的用户恢复到第 N+1 步
func DefaultPolicy() Policy {
	return Policy{
		Rules: []Rule{
			completeRule,
			ruleFor("final_step", StepCodeSharing),
			ruleFor("patient_connected", StepInterfaceSelection),
			ruleFor("account_created", StepPromptRecipientSetup),
		},
		Fallback: StepCaregiverInfo,
	}
}

// ParsePolicy 解析形如 final_step=code-sharing,account_created=prompt-recipient-setup 的配置
// 空串返回默认策略；onboarding_complete 规则始终排在最前
func ParsePolicy(raw string, registry *Registry) (Policy, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultPolicy(), nil
	}

	policy := Policy{Rules: []Rule{completeRule}, Fallback: StepCaregiverInfo}
	seen := map[string]bool{completeRule.Name: true}

	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, dest, ok := strings.Cut(item, "=")
		if !ok {
			return Policy{}, fmt.Errorf("resume rule %q: expected flag=step", item)
		}
		name, dest = strings.TrimSpace(name), strings.TrimSpace(dest)

		if _, known := registry.Lookup(Step(dest)); !known {
			return Policy{}, fmt.Errorf("resume rule %q: unknown step %q", item, dest)
		}
		if name == "fallback" {
			policy.Fallback = Step(dest)
			continue
		}
		if _, known := flagPredicates[name]; !known {
			return Policy{}, fmt.Errorf("resume rule %q: unknown flag %q", item, name)
		}
		if seen[name] {
			return Policy{}, fmt.Errorf("resume rule %q: flag %q listed twice", item, name)
		}
		seen[name] = true
		policy.Rules = append(policy.Rules, ruleFor(name, Step(dest)))
	}

	return policy, nil
}

// WithVerificationGate 在 account_created 规则之前插入手机号验证检查
func (p Policy) WithVerificationGate() Policy {
	rules := make([]Rule, 0, len(p.Rules)+1)
	inserted := false
	for _, rule := range p.Rules {
		if !inserted && rule.Name == "account_created" {
			rules = append(rules, verificationRule)
			inserted = true
		}
		rules = append(rules, rule)
	}
	if !inserted {
		rules = append(rules, verificationRule)
	}
	return Policy{Rules: rules, Fallback: p.Fallback}
}

// Resume 计算恢复目的地，status 为 nil 视为尚未开始
func (p Policy) Resume(status *Status, phoneVerified bool) (Step, string) {
	if status == nil {
		return p.Fallback, "fallback"
	}
	for _, rule := range p.Rules {
		if rule.When(*status, phoneVerified) {
			return rule.Destination, rule.Name
		}
	}
	return p.Fallback, "fallback"
}
