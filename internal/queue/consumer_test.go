package queue

import (
	"context"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"Quilt/config"
	"Quilt/internal/model"
	"Quilt/pkg/errors"
	"Quilt/pkg/sms"
	"Quilt/utils"
)

type memoryMarks struct {
	state map[string]string
}

func newMemoryMarks() *memoryMarks {
	return &memoryMarks{state: map[string]string{}}
}

func (m *memoryMarks) TryMarkProcessing(_ context.Context, id string, _ time.Duration) (bool, error) {
	if _, ok := m.state[id]; ok {
		return false, nil
	}
	m.state[id] = "processing"
	return true, nil
}

func (m *memoryMarks) MarkDone(_ context.Context, id string, _ time.Duration) error {
	m.state[id] = "done"
	return nil
}

func (m *memoryMarks) Unmark(_ context.Context, id string) error {
	delete(m.state, id)
	return nil
}

func setupKey(t *testing.T) {
	t.Helper()
	prev := config.Cfg
	config.Cfg.EncryptionKey = "0123456789abcdef0123456789abcdef"
	config.Cfg.SMSSignName = "Quilt"
	config.Cfg.SMSTemplateCode = "SMS_0001"
	t.Cleanup(func() { config.Cfg = prev })
}

func verificationBody(t *testing.T, id, phone string, requestedAt time.Time) []byte {
	t.Helper()
	cipherText, err := utils.EncryptPhone(phone)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	body, err := json.Marshal(model.VerificationSMSMessage{
		MessageID:   id,
		UserID:      42,
		PhoneCipher: base64.StdEncoding.EncodeToString(cipherText),
		Code:        "123456",
		RequestedAt: requestedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return body
}

func TestVerificationSMSHandlerSendsOnce(t *testing.T) {
	setupKey(t)
	client := sms.NewMockClient()
	marks := newMemoryMarks()
	h := NewVerificationSMSHandler(client, marks, 5*time.Minute)
	ctx := context.Background()

	body := verificationBody(t, "m1", "5551234567", time.Now())
	if err := h.Handle(ctx, body); err != nil {
		t.Fatalf("first delivery: %v", err)
	}

	calls := client.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 send, got %d", len(calls))
	}
	if calls[0].Phone != "5551234567" || !strings.Contains(calls[0].TemplateParam, "123456") {
		t.Fatalf("unexpected call: %+v", calls[0])
	}
	if marks.state["m1"] != "done" {
		t.Fatalf("expected message marked done, got %q", marks.state["m1"])
	}

	err := h.Handle(ctx, body)
	var skip *errors.SkipMessageError
	if !stderrors.As(err, &skip) {
		t.Fatalf("expected redelivery to be skipped, got %v", err)
	}
	if len(client.Calls()) != 1 {
		t.Fatalf("redelivery must not send again")
	}
}

func TestVerificationSMSHandlerFailureAllowsRetry(t *testing.T) {
	setupKey(t)
	client := sms.NewMockClient()
	client.FailNext = true
	marks := newMemoryMarks()
	h := NewVerificationSMSHandler(client, marks, 5*time.Minute)
	ctx := context.Background()

	body := verificationBody(t, "m2", "5551234567", time.Now())
	if err := h.Handle(ctx, body); err == nil {
		t.Fatalf("expected send failure")
	}
	if _, ok := marks.state["m2"]; ok {
		t.Fatalf("failed message must be unmarked")
	}

	if err := h.Handle(ctx, body); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestVerificationSMSHandlerSkipsExpired(t *testing.T) {
	setupKey(t)
	client := sms.NewMockClient()
	h := NewVerificationSMSHandler(client, newMemoryMarks(), 5*time.Minute)

	body := verificationBody(t, "m3", "5551234567", time.Now().Add(-time.Hour))
	err := h.Handle(context.Background(), body)

	var skip *errors.SkipMessageError
	if !stderrors.As(err, &skip) {
		t.Fatalf("expected expired message to be skipped, got %v", err)
	}
	if len(client.Calls()) != 0 {
		t.Fatalf("expired code must not be sent")
	}
}

func TestVerificationSMSHandlerSkipsMalformed(t *testing.T) {
	h := NewVerificationSMSHandler(sms.NewMockClient(), newMemoryMarks(), time.Minute)

	err := h.Handle(context.Background(), []byte("{"))
	var skip *errors.SkipMessageError
	if !stderrors.As(err, &skip) {
		t.Fatalf("expected malformed message to be skipped, got %v", err)
	}
}
