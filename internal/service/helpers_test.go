package service

import (
	"time"

	"Quilt/internal/model/dto"
	"Quilt/internal/onboarding"
)

func fixedNow() time.Time {
	return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
}

func draftWithCaregiver(first, last, relationship string) dto.WizardDraftRequest {
	return dto.WizardDraftRequest{
		CaregiverInfo: &onboarding.CaregiverInfo{FirstName: first, LastName: last, Relationship: relationship},
	}
}

func draftWithAccount(email, phone string) dto.WizardDraftRequest {
	return dto.WizardDraftRequest{
		Account: &onboarding.AccountDraft{Email: email, Phone: phone},
	}
}
