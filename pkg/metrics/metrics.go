package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics 引导流程相关指标
type Metrics struct {
	StepNavigations   metric.Int64Counter
	StatusMerges      metric.Int64Counter
	ResumeDecisions   metric.Int64Counter
	PatientsCreated   metric.Int64Counter
	CodeCollisions    metric.Int64Counter
	SMSSentTotal      metric.Int64Counter
	SMSSendDuration   metric.Float64Histogram
	VerificationTotal metric.Int64Counter
}

var (
	metrics   *Metrics
	initOnce  sync.Once
	initError error
)

// Init 创建指标；未配置 MeterProvider 时使用全局 noop 实现
func Init() error {
	initOnce.Do(func() {
		metrics, initError = newMetrics(otel.Meter("quilt"))
	})
	return initError
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.StepNavigations, "onboarding_step_navigations_total", "Wizard navigations by step and direction", "{navigation}"},
		{&m.StatusMerges, "onboarding_status_merges_total", "Onboarding status merge attempts by result", "{merge}"},
		{&m.ResumeDecisions, "onboarding_resume_decisions_total", "Resume router decisions by destination", "{decision}"},
		{&m.PatientsCreated, "patients_created_total", "Care recipients created", "{patient}"},
		{&m.CodeCollisions, "invitation_code_collisions_total", "Invitation code collisions that required a retry", "{collision}"},
		{&m.SMSSentTotal, "sms_sent_total", "Total number of SMS sent", "{sms}"},
		{&m.VerificationTotal, "verification_attempts_total", "Phone verification attempts by result", "{attempt}"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, err
		}
	}

	m.SMSSendDuration, err = meter.Float64Histogram(
		"sms_send_duration_seconds",
		metric.WithDescription("Time spent sending SMS in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Get 未初始化时返回 nil，所有 Record 方法都允许 nil 接收者
func Get() *Metrics {
	return metrics
}

func (m *Metrics) RecordNavigation(ctx context.Context, step string, forward bool) {
	if m == nil {
		return
	}
	m.StepNavigations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("step", step),
		attribute.Bool("forward", forward),
	))
}

// RecordStatusMerge result: updated, unchanged, failed
func (m *Metrics) RecordStatusMerge(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.StatusMerges.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *Metrics) RecordResume(ctx context.Context, destination, rule string) {
	if m == nil {
		return
	}
	m.ResumeDecisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("destination", destination),
		attribute.String("rule", rule),
	))
}

func (m *Metrics) RecordPatientCreated(ctx context.Context, attempts int) {
	if m == nil {
		return
	}
	m.PatientsCreated.Add(ctx, 1)
	if attempts > 1 {
		m.CodeCollisions.Add(ctx, int64(attempts-1))
	}
}

func (m *Metrics) RecordSMS(ctx context.Context, provider, status string, seconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	)
	m.SMSSentTotal.Add(ctx, 1, attrs)
	m.SMSSendDuration.Record(ctx, seconds, attrs)
}

func (m *Metrics) RecordVerification(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.VerificationTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
