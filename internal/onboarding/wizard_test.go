package onboarding

import "testing"

func TestNavigateForwardResetsValidity(t *testing.T) {
	r := DefaultRegistry()
	w := &Wizard{}

	w.Navigate(r, StepCaregiverInfo.Route())
	w.SetFormValid(r, true)

	p := w.Navigate(r, StepAccountCreation.Route())
	if !p.Forward {
		t.Fatalf("expected forward navigation")
	}
	if w.FormValid || p.ContinueEnabled {
		t.Fatalf("expected validity reset on forward navigation")
	}
}

func TestNavigateBackKeepsValidity(t *testing.T) {
	r := DefaultRegistry()
	w := &Wizard{}

	w.Navigate(r, StepAccountCreation.Route())
	w.SetFormValid(r, true)

	p := w.Navigate(r, StepCaregiverInfo.Route())
	if p.Forward {
		t.Fatalf("expected backward navigation")
	}
	if !w.FormValid || !p.ContinueEnabled {
		t.Fatalf("expected validity preserved on back navigation")
	}

	p = w.Navigate(r, StepCaregiverInfo.Route())
	if p.Forward || !w.FormValid {
		t.Fatalf("expected same-step navigation to keep validity")
	}
}

func TestNavigateUnknownRoute(t *testing.T) {
	r := DefaultRegistry()
	w := &Wizard{}
	w.Navigate(r, StepRecipientInfo.Route())
	w.SetFormValid(r, true)

	p := w.Navigate(r, "/settings")
	if p.Progress != 0 || p.Step != StepNone || p.Forward {
		t.Fatalf("unexpected progress for unknown route: %+v", p)
	}
	if !w.FormValid {
		t.Fatalf("unknown route must not reset validity")
	}
}

func TestContinueEnabled(t *testing.T) {
	r := DefaultRegistry()
	cases := []struct {
		step    Step
		valid   bool
		enabled bool
		label   string
	}{
		{StepCaregiverInfo, false, false, "Continue"},
		{StepCaregiverInfo, true, true, "Continue"},
		{StepAccountVerification, false, true, "Continue"},
		{StepInterfaceSelection, false, true, "Continue"},
		{StepCodeSharing, false, true, "Finish"},
	}

	for _, tc := range cases {
		w := &Wizard{}
		w.Navigate(r, tc.step.Route())
		p := w.SetFormValid(r, tc.valid)
		if p.ContinueEnabled != tc.enabled {
			t.Fatalf("%s valid=%v: expected enabled=%v, got %v", tc.step, tc.valid, tc.enabled, p.ContinueEnabled)
		}
		if p.Label != tc.label {
			t.Fatalf("%s: expected label %q, got %q", tc.step, tc.label, p.Label)
		}
	}
}
