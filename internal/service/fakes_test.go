package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"Quilt/config"
	"Quilt/internal/model"
	"Quilt/internal/onboarding"
	"Quilt/internal/repository"
	"Quilt/pkg/errors"
	"Quilt/pkg/snowflake"
	"Quilt/pkg/token"
)

func setupConfig(t *testing.T) {
	t.Helper()
	prev := config.Cfg
	config.Cfg.JWTSecret = "service-test-secret"
	config.Cfg.JWTExpireMinutes = 30
	config.Cfg.JWTRefreshDays = 7
	config.Cfg.EncryptionKey = "0123456789abcdef0123456789abcdef"
	config.Cfg.PhoneHashSalt = "salt"
	config.Cfg.BcryptCost = bcrypt.MinCost
	config.Cfg.InvitationCodeMaxAttempts = 10
	config.Cfg.VerificationMaxDaily = 5
	config.Cfg.VerificationMaxAttempts = 5
	config.Cfg.VerificationExpireSeconds = 300
	config.Cfg.OnboardingResumePolicy = ""
	config.Cfg.OnboardingRequireVerification = false
	t.Cleanup(func() { config.Cfg = prev })

	if err := token.Init(); err != nil {
		t.Fatalf("token init: %v", err)
	}
	if err := snowflake.Init(1, 1); err != nil {
		t.Fatalf("snowflake init: %v", err)
	}
}

// ========== profiles ==========

type memoryProfiles struct {
	mu       sync.Mutex
	nextID   int64
	byPublic map[int64]*model.Profile
	mergeErr error
	merges   int
}

func newMemoryProfiles() *memoryProfiles {
	return &memoryProfiles{byPublic: map[int64]*model.Profile{}}
}

var _ repository.ProfileRepository = (*memoryProfiles)(nil)

func (m *memoryProfiles) Create(_ context.Context, p *model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byPublic {
		if existing.Email == p.Email {
			return errors.EmailAlreadyRegistered
		}
	}
	m.nextID++
	p.ID = m.nextID
	p.CreatedAt = time.Now()
	clone := *p
	m.byPublic[p.PublicID] = &clone
	return nil
}

func (m *memoryProfiles) GetByPublicID(_ context.Context, publicID int64) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byPublic[publicID]
	if !ok {
		return nil, errors.ErrUserNotFound
	}
	clone := *p
	return &clone, nil
}

func (m *memoryProfiles) GetByEmail(_ context.Context, email string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byPublic {
		if p.Email == email {
			clone := *p
			return &clone, nil
		}
	}
	return nil, errors.ErrUserNotFound
}

func (m *memoryProfiles) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	return err == nil, nil
}

func (m *memoryProfiles) MergeOnboardingStatus(_ context.Context, publicID int64, patch onboarding.StatusPatch) (onboarding.Status, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mergeErr != nil {
		return onboarding.Status{}, false, m.mergeErr
	}
	p, ok := m.byPublic[publicID]
	if !ok {
		return onboarding.Status{}, false, errors.ErrUserNotFound
	}
	merged, changed := onboarding.Merge(p.Status(), patch)
	if changed {
		m.merges++
		p.SetStatus(merged)
	}
	return merged, changed, nil
}

func (m *memoryProfiles) MarkPhoneVerified(_ context.Context, publicID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byPublic[publicID]
	if !ok {
		return errors.ErrUserNotFound
	}
	p.PhoneVerifiedAt = &at
	return nil
}

// seed 直接写入一个照护者档案
func (m *memoryProfiles) seed(publicID int64, status onboarding.Status) *model.Profile {
	p := &model.Profile{
		PublicID:  publicID,
		Email:     fmt.Sprintf("caregiver%d@example.com", publicID),
		FirstName: "Ada",
		LastName:  "Lovelace",
		UserType:  model.UserTypeCaregiver,
	}
	p.SetStatus(status)
	_ = m.Create(context.Background(), p)
	return p
}

func (m *memoryProfiles) status(publicID int64) onboarding.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byPublic[publicID].Status()
}

// ========== patients ==========

type memoryPatients struct {
	mu       sync.Mutex
	nextID   int64
	patients []*model.Patient
	links    map[int64]int64 // patient id -> caregiver id
	// raceCodes 查重时不存在、插入时冲突的邀请码
	raceCodes map[string]bool
}

func newMemoryPatients() *memoryPatients {
	return &memoryPatients{links: map[int64]int64{}, raceCodes: map[string]bool{}}
}

var _ repository.PatientRepository = (*memoryPatients)(nil)

func (m *memoryPatients) CodeExists(_ context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.patients {
		if p.InvitationCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryPatients) CreateWithRelationship(_ context.Context, p *model.Patient, caregiverID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.raceCodes[p.InvitationCode] {
		return repository.ErrInvitationCodeTaken
	}
	for _, existing := range m.patients {
		if existing.InvitationCode == p.InvitationCode {
			return repository.ErrInvitationCodeTaken
		}
	}
	m.nextID++
	p.ID = m.nextID
	p.CreatedAt = time.Now()
	clone := *p
	m.patients = append(m.patients, &clone)
	m.links[p.ID] = caregiverID
	return nil
}

func (m *memoryPatients) ListByCaregiver(_ context.Context, caregiverID int64) ([]model.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Patient
	for _, p := range m.patients {
		if m.links[p.ID] == caregiverID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memoryPatients) GetByInvitationCode(_ context.Context, code string) (*model.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.patients {
		if p.InvitationCode == code {
			clone := *p
			return &clone, nil
		}
	}
	return nil, errors.PatientNotFound
}

func (m *memoryPatients) GetForCaregiver(_ context.Context, caregiverID, publicID int64) (*model.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.patients {
		if p.PublicID == publicID && m.links[p.ID] == caregiverID {
			clone := *p
			return &clone, nil
		}
	}
	return nil, errors.PatientNotFound
}

func (m *memoryPatients) UpdateInterface(_ context.Context, patientID int64, mode model.InterfaceMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.patients {
		if p.ID == patientID {
			p.InterfaceMode = mode
			return nil
		}
	}
	return stderrors.New("patient not found")
}

func (m *memoryPatients) MarkRedeemed(_ context.Context, patientID int64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.patients {
		if p.ID == patientID {
			if p.RedeemedAt != nil {
				return false, nil
			}
			p.RedeemedAt = &at
			return true, nil
		}
	}
	return false, nil
}

// ========== redis 替身 ==========

type memoryTokens struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newMemoryTokens() *memoryTokens {
	return &memoryTokens{tokens: map[string]string{}}
}

func (m *memoryTokens) Set(_ context.Context, userID, refreshToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[userID] = refreshToken
	return nil
}

func (m *memoryTokens) Get(_ context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[userID], nil
}

func (m *memoryTokens) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, userID)
	return nil
}

type memoryWizards struct {
	mu      sync.Mutex
	wizards map[string]onboarding.Wizard
}

func newMemoryWizards() *memoryWizards {
	return &memoryWizards{wizards: map[string]onboarding.Wizard{}}
}

func (m *memoryWizards) Load(_ context.Context, userID string) (*onboarding.Wizard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.wizards[userID]
	return &w, nil
}

func (m *memoryWizards) Save(_ context.Context, userID string, w *onboarding.Wizard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wizards[userID] = *w
	return nil
}

func (m *memoryWizards) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.wizards, userID)
	return nil
}

func (m *memoryWizards) has(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.wizards[userID]
	return ok
}

type memoryCodes struct {
	mu       sync.Mutex
	codes    map[string]string
	counts   map[string]int
	failures map[string]int
}

func newMemoryCodes() *memoryCodes {
	return &memoryCodes{codes: map[string]string{}, counts: map[string]int{}, failures: map[string]int{}}
}

func (m *memoryCodes) Save(_ context.Context, userID, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[userID] = code
	delete(m.failures, userID)
	return nil
}

func (m *memoryCodes) Get(_ context.Context, userID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	code, ok := m.codes[userID]
	return code, ok, nil
}

func (m *memoryCodes) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.codes, userID)
	delete(m.failures, userID)
	return nil
}

func (m *memoryCodes) IncrFailed(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[userID]++
	return m.failures[userID], nil
}

func (m *memoryCodes) IncrDaily(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[userID]++
	return m.counts[userID], nil
}

type memoryLocks struct {
	mu     sync.Mutex
	held   map[string]string
	issued int
	// afterLock 获取成功后调用，用于模拟锁过期后被他人获取
	afterLock func(key string)
}

func newMemoryLocks() *memoryLocks {
	return &memoryLocks{held: map[string]string{}}
}

func (m *memoryLocks) TryLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	m.mu.Lock()
	if _, ok := m.held[key]; ok {
		m.mu.Unlock()
		return "", false, nil
	}
	m.issued++
	token := "token-" + strconv.Itoa(m.issued)
	m.held[key] = token
	hook := m.afterLock
	m.mu.Unlock()

	if hook != nil {
		hook(key)
	}
	return token, true, nil
}

func (m *memoryLocks) Unlock(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] == token {
		delete(m.held, key)
	}
	return nil
}

// takeOver 模拟锁过期后由另一个请求持有
func (m *memoryLocks) takeOver(key, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held[key] = token
}

type memoryStatuses struct {
	mu       sync.Mutex
	statuses map[string]onboarding.Status
}

func newMemoryStatuses() *memoryStatuses {
	return &memoryStatuses{statuses: map[string]onboarding.Status{}}
}

func (m *memoryStatuses) Get(_ context.Context, userID string) (*onboarding.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.statuses[userID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memoryStatuses) Set(_ context.Context, userID string, status onboarding.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[userID] = status
	return nil
}

func (m *memoryStatuses) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.statuses, userID)
	return nil
}

type recordingEvents struct {
	mu         sync.Mutex
	sms        []model.VerificationSMSMessage
	events     []string
	publishErr error
}

func (r *recordingEvents) PublishVerificationSMS(_ context.Context, msg model.VerificationSMSMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.publishErr != nil {
		return r.publishErr
	}
	r.sms = append(r.sms, msg)
	return nil
}

func (r *recordingEvents) PublishOnboardingEvent(_ context.Context, _ int64, eventType string, _ map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}

func (r *recordingEvents) count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == eventType {
			n++
		}
	}
	return n
}
