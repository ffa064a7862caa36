package onboarding

import (
	"context"
	"testing"
)

func TestResumeDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	cases := []struct {
		name   string
		status *Status
		want   Step
	}{
		{"absent", nil, StepCaregiverInfo},
		{"empty", &Status{}, StepCaregiverInfo},
		{"account only", &Status{AccountCreated: true}, StepPromptRecipientSetup},
		{"patient connected", &Status{AccountCreated: true, PatientConnected: true}, StepInterfaceSelection},
		{"final step wins", &Status{FinalStep: true}, StepCodeSharing},
		{"final step with all", &Status{AccountCreated: true, PatientConnected: true, FinalStep: true}, StepCodeSharing},
		{"complete", &Status{AccountCreated: true, PatientConnected: true, FinalStep: true, OnboardingComplete: true}, DestinationHome},
	}

	for _, tc := range cases {
		got, _ := p.Resume(tc.status, true)
		if got != tc.want {
			t.Fatalf("%s: Resume = %s, want %s", tc.name, got, tc.want)
		}
	}
}

// 完成照护者信息与建号后退出，再次打开应回到受照护人引导页
func TestResumeAfterBackgrounding(t *testing.T) {
	store := &memoryPersister{}
	ctx := context.Background()

	if !MarkAccountCreated(ctx, store, "42") {
		t.Fatalf("mark failed")
	}

	got, rule := DefaultPolicy().Resume(&store.status, false)
	if got != StepPromptRecipientSetup {
		t.Fatalf("expected prompt-recipient-setup, got %s (rule %s)", got, rule)
	}
}

func TestVerificationGate(t *testing.T) {
	p := DefaultPolicy().WithVerificationGate()

	got, _ := p.Resume(&Status{AccountCreated: true}, false)
	if got != StepAccountVerification {
		t.Fatalf("expected account-verification, got %s", got)
	}

	got, _ = p.Resume(&Status{AccountCreated: true}, true)
	if got != StepPromptRecipientSetup {
		t.Fatalf("expected prompt-recipient-setup once verified, got %s", got)
	}

	got, _ = p.Resume(&Status{AccountCreated: true, PatientConnected: true}, false)
	if got != StepInterfaceSelection {
		t.Fatalf("later milestones take precedence over the gate, got %s", got)
	}
}

func TestParsePolicy(t *testing.T) {
	r := DefaultRegistry()

	p, err := ParsePolicy("", r)
	if err != nil || len(p.Rules) != len(DefaultPolicy().Rules) {
		t.Fatalf("expected default policy, got %+v err=%v", p, err)
	}

	p, err = ParsePolicy("patient_connected=recipient-info, account_created=account-verification, fallback=account-creation", r)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if got, _ := p.Resume(&Status{PatientConnected: true, FinalStep: true}, true); got != StepRecipientInfo {
		t.Fatalf("final_step is not in the custom policy, expected recipient-info, got %s", got)
	}
	if got, _ := p.Resume(&Status{AccountCreated: true}, true); got != StepAccountVerification {
		t.Fatalf("expected account-verification, got %s", got)
	}
	if got, _ := p.Resume(nil, false); got != StepAccountCreation {
		t.Fatalf("expected custom fallback, got %s", got)
	}
	if got, _ := p.Resume(&Status{OnboardingComplete: true}, false); got != DestinationHome {
		t.Fatalf("completed users always go home, got %s", got)
	}

	for _, bad := range []string{
		"final_step",
		"final_step=nowhere",
		"email_confirmed=code-sharing",
		"final_step=code-sharing,final_step=recipient-info",
	} {
		if _, err := ParsePolicy(bad, r); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestMergeIsMonotonicAndIdempotent(t *testing.T) {
	no := false
	current := Status{AccountCreated: true}

	merged, changed := Merge(current, StatusPatch{AccountCreated: &no})
	if changed || !merged.AccountCreated {
		t.Fatalf("false in a patch must never clear a flag")
	}

	merged, changed = Merge(current, PatchPatientConnected)
	if !changed || !merged.AccountCreated || !merged.PatientConnected {
		t.Fatalf("unexpected merge result: %+v changed=%v", merged, changed)
	}

	again, changed := Merge(merged, PatchPatientConnected)
	if changed || again != merged {
		t.Fatalf("second identical merge must be a no-op")
	}
}

func TestPersisterIdempotence(t *testing.T) {
	store := &memoryPersister{}
	ctx := context.Background()

	MarkFinalStep(ctx, store, "7")
	MarkFinalStep(ctx, store, "7")

	if store.writes != 1 {
		t.Fatalf("expected a single write, got %d", store.writes)
	}
	if !store.status.FinalStep {
		t.Fatalf("expected final_step set")
	}

	if !MarkOnboardingComplete(ctx, store, "7") {
		t.Fatalf("mark complete failed")
	}
	if got, _ := DefaultPolicy().Resume(&store.status, false); got != DestinationHome {
		t.Fatalf("expected home after completion, got %s", got)
	}
}

type memoryPersister struct {
	status Status
	writes int
}

func (m *memoryPersister) UpdateStatus(_ context.Context, _ string, patch StatusPatch) bool {
	merged, changed := Merge(m.status, patch)
	if changed {
		m.status = merged
		m.writes++
	}
	return true
}
