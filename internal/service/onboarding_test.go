package service

import (
	"context"
	stderrors "errors"
	"strconv"
	"testing"

	"Quilt/config"
	"Quilt/internal/model"
	"Quilt/internal/onboarding"
	"Quilt/pkg/errors"
)

const caregiverPublicID int64 = 1001

var caregiverUserID = strconv.FormatInt(caregiverPublicID, 10)

type onboardingFixture struct {
	svc      *OnboardingService
	profiles *memoryProfiles
	wizards  *memoryWizards
	statuses *memoryStatuses
	events   *recordingEvents
}

func newOnboardingFixture(t *testing.T, status onboarding.Status) *onboardingFixture {
	t.Helper()
	setupConfig(t)

	registry := onboarding.DefaultRegistry()
	policy, err := PolicyFromConfig(registry)
	if err != nil {
		t.Fatalf("policy: %v", err)
	}

	f := &onboardingFixture{
		profiles: newMemoryProfiles(),
		wizards:  newMemoryWizards(),
		statuses: newMemoryStatuses(),
		events:   &recordingEvents{},
	}
	f.profiles.seed(caregiverPublicID, status)
	f.svc = NewOnboardingService(f.profiles, f.wizards, f.statuses, f.events, registry, policy)
	return f
}

func TestNavigateTracksProgressAndValidity(t *testing.T) {
	f := newOnboardingFixture(t, onboarding.Status{})
	ctx := context.Background()

	p, err := f.svc.Navigate(ctx, caregiverUserID, "/caregiver-onboarding/caregiver-info")
	if err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if p.Progress != 0.15 || !p.Forward || p.ContinueEnabled {
		t.Fatalf("unexpected first step view: %+v", p)
	}

	if p, err = f.svc.SetFormValidity(ctx, caregiverUserID, true); err != nil || !p.ContinueEnabled {
		t.Fatalf("valid form should enable continue: %+v %v", p, err)
	}

	p, err = f.svc.Navigate(ctx, caregiverUserID, "/caregiver-onboarding/account-creation")
	if err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if p.FormValid || p.ContinueEnabled {
		t.Fatalf("moving forward must reset form validity: %+v", p)
	}

	_, _ = f.svc.SetFormValidity(ctx, caregiverUserID, true)
	p, err = f.svc.Navigate(ctx, caregiverUserID, "/caregiver-onboarding/caregiver-info")
	if err != nil {
		t.Fatalf("navigate back: %v", err)
	}
	if p.Forward || !p.FormValid {
		t.Fatalf("going back must keep validity: %+v", p)
	}
}

func TestNavigateUnknownRoute(t *testing.T) {
	f := newOnboardingFixture(t, onboarding.Status{})
	ctx := context.Background()

	if _, err := f.svc.Navigate(ctx, caregiverUserID, "/caregiver-onboarding/recipient-info"); err != nil {
		t.Fatalf("navigate: %v", err)
	}

	p, err := f.svc.Navigate(ctx, caregiverUserID, "/caregiver-onboarding/recipient-info-extra")
	if err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if p.Step != onboarding.StepNone || p.Progress != 0 || p.Forward {
		t.Fatalf("unknown route must resolve to 0 without matching a step: %+v", p)
	}
}

func TestNavigateToCodeSharingMarksFinalStep(t *testing.T) {
	f := newOnboardingFixture(t, onboarding.Status{AccountCreated: true, PatientConnected: true})
	ctx := context.Background()

	p, err := f.svc.Navigate(ctx, caregiverUserID, "/caregiver-onboarding/code-sharing?from=share")
	if err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if p.Label != "Finish" || p.BackAllowed {
		t.Fatalf("unexpected code-sharing view: %+v", p)
	}
	if !f.profiles.status(caregiverPublicID).FinalStep {
		t.Fatalf("final_step must be persisted")
	}

	resume, err := f.svc.Resume(ctx, caregiverUserID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resume.Step != onboarding.StepCodeSharing {
		t.Fatalf("expected resume at code-sharing, got %s", resume.Step)
	}
}

func TestUpdateStatusMergesAndCaches(t *testing.T) {
	f := newOnboardingFixture(t, onboarding.Status{AccountCreated: true})
	ctx := context.Background()

	if !f.svc.UpdateStatus(ctx, caregiverUserID, onboarding.PatchPatientConnected) {
		t.Fatalf("update should succeed")
	}
	if !f.svc.UpdateStatus(ctx, caregiverUserID, onboarding.PatchPatientConnected) {
		t.Fatalf("repeated update should still report success")
	}
	if f.profiles.merges != 1 {
		t.Fatalf("unchanged patch must skip the write, got %d writes", f.profiles.merges)
	}
	if f.events.count(model.EventStatusUpdated) != 1 {
		t.Fatalf("expected one status event, got %d", f.events.count(model.EventStatusUpdated))
	}

	no := false
	if !f.svc.UpdateStatus(ctx, caregiverUserID, onboarding.StatusPatch{AccountCreated: &no}) {
		t.Fatalf("false flag patch should be a no-op success")
	}

	status, err := f.svc.GetStatus(ctx, caregiverUserID)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	want := onboarding.Status{AccountCreated: true, PatientConnected: true}
	if status != want {
		t.Fatalf("expected %+v, got %+v", want, status)
	}
	if cached, _ := f.statuses.Get(ctx, caregiverUserID); cached == nil || *cached != want {
		t.Fatalf("status read after merge must be cached, got %+v", cached)
	}
}

// interleavedStatuses 在第一次写缓存前插入另一次合并，模拟两个请求的缓存写入乱序
type interleavedStatuses struct {
	*memoryStatuses
	before func()
}

func (s *interleavedStatuses) intercept() {
	if s.before != nil {
		run := s.before
		s.before = nil
		run()
	}
}

func (s *interleavedStatuses) Set(ctx context.Context, userID string, status onboarding.Status) error {
	s.intercept()
	return s.memoryStatuses.Set(ctx, userID, status)
}

func (s *interleavedStatuses) Delete(ctx context.Context, userID string) error {
	s.intercept()
	return s.memoryStatuses.Delete(ctx, userID)
}

func TestConcurrentMergesKeepCacheMonotonic(t *testing.T) {
	f := newOnboardingFixture(t, onboarding.Status{AccountCreated: true})
	ctx := context.Background()

	statuses := &interleavedStatuses{memoryStatuses: f.statuses}
	svc := NewOnboardingService(f.profiles, f.wizards, statuses, f.events, f.svc.registry, f.svc.policy)

	// 先读一次，缓存中留下合并前的状态
	if _, err := svc.GetStatus(ctx, caregiverUserID); err != nil {
		t.Fatalf("get status: %v", err)
	}

	statuses.before = func() {
		if !svc.UpdateStatus(ctx, caregiverUserID, onboarding.PatchFinalStep) {
			t.Errorf("second merge failed")
		}
	}
	if !svc.UpdateStatus(ctx, caregiverUserID, onboarding.PatchPatientConnected) {
		t.Fatalf("first merge failed")
	}

	want := onboarding.Status{AccountCreated: true, PatientConnected: true, FinalStep: true}
	if got := f.profiles.status(caregiverPublicID); got != want {
		t.Fatalf("stored status: expected %+v, got %+v", want, got)
	}
	got, err := svc.GetStatus(ctx, caregiverUserID)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if got != want {
		t.Fatalf("read after interleaved merges lost a flag: expected %+v, got %+v", want, got)
	}
}

func TestUpdateStatusReportsFailure(t *testing.T) {
	f := newOnboardingFixture(t, onboarding.Status{})
	f.profiles.mergeErr = stderrors.New("connection reset")

	if f.svc.UpdateStatus(context.Background(), caregiverUserID, onboarding.PatchAccountCreated) {
		t.Fatalf("store failure must report false")
	}

	_, _, err := f.svc.MergeStatus(context.Background(), caregiverUserID, onboarding.PatchAccountCreated)
	if !stderrors.Is(err, errors.OnboardingUpdateFailed) {
		t.Fatalf("expected ONBOARDING_UPDATE_FAILED, got %v", err)
	}

	if f.svc.UpdateStatus(context.Background(), "not-a-number", onboarding.PatchAccountCreated) {
		t.Fatalf("invalid user id must report false")
	}
}

func TestResumeDestinations(t *testing.T) {
	tests := map[string]struct {
		status onboarding.Status
		want   onboarding.Step
		rule   string
	}{
		"fresh user":        {status: onboarding.Status{}, want: onboarding.StepCaregiverInfo, rule: "fallback"},
		"account created":   {status: onboarding.Status{AccountCreated: true}, want: onboarding.StepPromptRecipientSetup, rule: "account_created"},
		"patient connected": {status: onboarding.Status{AccountCreated: true, PatientConnected: true}, want: onboarding.StepInterfaceSelection, rule: "patient_connected"},
		"final step":        {status: onboarding.Status{AccountCreated: true, PatientConnected: true, FinalStep: true}, want: onboarding.StepCodeSharing, rule: "final_step"},
		"complete":          {status: onboarding.Status{AccountCreated: true, OnboardingComplete: true}, want: onboarding.DestinationHome, rule: "onboarding_complete"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := newOnboardingFixture(t, tt.status)

			resp, err := f.svc.Resume(context.Background(), caregiverUserID)
			if err != nil {
				t.Fatalf("resume: %v", err)
			}
			if resp.Step != tt.want || resp.Rule != tt.rule {
				t.Fatalf("expected %s via %s, got %s via %s", tt.want, tt.rule, resp.Step, resp.Rule)
			}
			if resp.Complete != (tt.want == onboarding.DestinationHome) {
				t.Fatalf("complete flag mismatch: %+v", resp)
			}
		})
	}
}

func TestResumeVerificationGate(t *testing.T) {
	setupConfig(t)
	config.Cfg.OnboardingRequireVerification = true

	registry := onboarding.DefaultRegistry()
	policy, err := PolicyFromConfig(registry)
	if err != nil {
		t.Fatalf("policy: %v", err)
	}

	profiles := newMemoryProfiles()
	profiles.seed(caregiverPublicID, onboarding.Status{AccountCreated: true})
	svc := NewOnboardingService(profiles, newMemoryWizards(), newMemoryStatuses(), &recordingEvents{}, registry, policy)
	ctx := context.Background()

	resp, err := svc.Resume(ctx, caregiverUserID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resp.Step != onboarding.StepAccountVerification {
		t.Fatalf("unverified phone should resume at verification, got %s", resp.Step)
	}

	if err := profiles.MarkPhoneVerified(ctx, caregiverPublicID, fixedNow()); err != nil {
		t.Fatalf("verify: %v", err)
	}
	resp, _ = svc.Resume(ctx, caregiverUserID)
	if resp.Step != onboarding.StepPromptRecipientSetup {
		t.Fatalf("verified phone should pass the gate, got %s", resp.Step)
	}
}

func TestPolicyFromConfigRejectsUnknownStep(t *testing.T) {
	setupConfig(t)
	config.Cfg.OnboardingResumePolicy = "final_step=somewhere"

	if _, err := PolicyFromConfig(onboarding.DefaultRegistry()); err == nil {
		t.Fatalf("unknown destination must be rejected")
	}
}

func TestCompleteRoutesHome(t *testing.T) {
	f := newOnboardingFixture(t, onboarding.Status{AccountCreated: true, PatientConnected: true, FinalStep: true})
	ctx := context.Background()

	if _, err := f.svc.Navigate(ctx, caregiverUserID, "/caregiver-onboarding/code-sharing"); err != nil {
		t.Fatalf("navigate: %v", err)
	}

	status, err := f.svc.Complete(ctx, caregiverUserID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !status.OnboardingComplete || !status.FinalStep {
		t.Fatalf("complete must keep earlier flags: %+v", status)
	}
	if f.wizards.has(caregiverUserID) {
		t.Fatalf("wizard state must be cleared after completion")
	}

	resp, _ := f.svc.Resume(ctx, caregiverUserID)
	if resp.Step != onboarding.DestinationHome || resp.Route != "/home" {
		t.Fatalf("expected home, got %+v", resp)
	}
}

func TestSaveDraftKeepsOtherSections(t *testing.T) {
	f := newOnboardingFixture(t, onboarding.Status{})
	ctx := context.Background()

	_, err := f.svc.SaveDraft(ctx, caregiverUserID, draftWithCaregiver("Ada", "Lovelace", "parent"))
	if err != nil {
		t.Fatalf("save draft: %v", err)
	}
	w, err := f.svc.SaveDraft(ctx, caregiverUserID, draftWithAccount("ada@example.com", "5551234567"))
	if err != nil {
		t.Fatalf("save draft: %v", err)
	}

	if w.CaregiverInfo.FirstName != "Ada" || w.Account.Email != "ada@example.com" {
		t.Fatalf("drafts must accumulate, got %+v", w)
	}
}
