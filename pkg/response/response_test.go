package response

import (
	"fmt"
	"net/http"
	"testing"

	"Quilt/pkg/errors"
)

func TestStatusFor(t *testing.T) {
	tests := map[string]struct {
		err  error
		want int
	}{
		"field errors":        {errors.FieldErrors{"email": "Please enter a valid email"}, http.StatusBadRequest},
		"validation":          {errors.ValidationFailed, http.StatusBadRequest},
		"bad code":            {errors.VerificationCodeInvalid, http.StatusBadRequest},
		"unauthorized":        {errors.Unauthorized, http.StatusUnauthorized},
		"bad credentials":     {errors.InvalidCredentials, http.StatusUnauthorized},
		"patient missing":     {errors.PatientNotFound, http.StatusNotFound},
		"invitation invalid":  {errors.InvitationCodeInvalid, http.StatusNotFound},
		"duplicate email":     {errors.EmailAlreadyRegistered, http.StatusConflict},
		"creation in flight":  {errors.PatientCreationInProgress, http.StatusConflict},
		"rate limited":        {errors.RateLimited, http.StatusTooManyRequests},
		"daily sms limit":     {errors.VerificationRateLimited, http.StatusTooManyRequests},
		"code locked":         {errors.VerificationLocked, http.StatusTooManyRequests},
		"persist failed":      {errors.OnboardingUpdateFailed, http.StatusServiceUnavailable},
		"codes exhausted":     {errors.InvitationCodeExhausted, http.StatusServiceUnavailable},
		"plain error":         {fmt.Errorf("boom"), http.StatusInternalServerError},
		"wrapped field error": {fmt.Errorf("register: %w", errors.FieldErrors{"phone": "x"}), http.StatusBadRequest},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := StatusFor(tt.err); got != tt.want {
				t.Fatalf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
