package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/route"

	"Quilt/internal/onboarding"
)

func newEngine() *route.Engine {
	r := route.NewEngine(hertzconfig.NewOptions([]hertzconfig.Option{}))
	r.GET("/healthz", Healthz)
	r.GET("/v1/onboarding/steps", ListSteps)
	r.GET("/v1/onboarding/status", GetOnboardingStatus)
	r.POST("/v1/auth/sign-in", SignIn)
	r.POST("/v1/invitations/redeem", RedeemInvitation)
	return r
}

func jsonBody(s string) *ut.Body {
	return &ut.Body{Body: bytes.NewBufferString(s), Len: len(s)}
}

var jsonHeader = ut.Header{Key: "Content-Type", Value: "application/json"}

type errorEnvelope struct {
	Error struct {
		Code    string                 `json:"code"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, body []byte) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("decode error body %q: %v", body, err)
	}
	return env
}

func TestHealthz(t *testing.T) {
	w := ut.PerformRequest(newEngine(), http.MethodGet, "/healthz", nil)
	resp := w.Result()
	if resp.StatusCode() != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode())
	}
	var body map[string]string
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("status field = %q", body["status"])
	}
}

func TestListSteps(t *testing.T) {
	w := ut.PerformRequest(newEngine(), http.MethodGet, "/v1/onboarding/steps", nil)
	resp := w.Result()
	if resp.StatusCode() != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode())
	}

	var body struct {
		Data struct {
			Steps []json.RawMessage `json:"steps"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if want := len(onboarding.DefaultRegistry().Steps()); len(body.Data.Steps) != want {
		t.Fatalf("got %d steps, want %d", len(body.Data.Steps), want)
	}
}

func TestProtectedHandlerWithoutIdentity(t *testing.T) {
	w := ut.PerformRequest(newEngine(), http.MethodGet, "/v1/onboarding/status", nil)
	resp := w.Result()
	if resp.StatusCode() != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode())
	}
	if env := decodeError(t, resp.Body()); env.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("code = %q", env.Error.Code)
	}
}

func TestBindErrors(t *testing.T) {
	tests := map[string]struct {
		path      string
		body      string
		wantCode  string
		wantField string
	}{
		"malformed json": {
			path:     "/v1/auth/sign-in",
			body:     `{"email":`,
			wantCode: "INVALID_REQUEST",
		},
		"sign-in missing password": {
			path:      "/v1/auth/sign-in",
			body:      `{"email":"a@example.com"}`,
			wantCode:  "VALIDATION_FAILED",
			wantField: "password",
		},
		"redeem without code": {
			path:      "/v1/invitations/redeem",
			body:      `{}`,
			wantCode:  "VALIDATION_FAILED",
			wantField: "code",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			w := ut.PerformRequest(newEngine(), http.MethodPost, tt.path, jsonBody(tt.body), jsonHeader)
			resp := w.Result()
			if resp.StatusCode() != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode())
			}

			env := decodeError(t, resp.Body())
			if env.Error.Code != tt.wantCode {
				t.Fatalf("code = %q, want %q", env.Error.Code, tt.wantCode)
			}
			if tt.wantField == "" {
				return
			}
			fields, ok := env.Error.Details["fields"].(map[string]interface{})
			if !ok {
				t.Fatalf("missing details.fields in %s", resp.Body())
			}
			if _, ok := fields[tt.wantField]; !ok {
				t.Fatalf("fields = %v, want %q", fields, tt.wantField)
			}
		})
	}
}
