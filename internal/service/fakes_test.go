package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/astrobyab/consult-backend/internal/models"
	"github.com/astrobyab/consult-backend/internal/notify"
	"github.com/astrobyab/consult-backend/internal/payment"
	"github.com/astrobyab/consult-backend/internal/repository"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type mockOTPRepository struct {
	mu         sync.Mutex
	challenges map[uuid.UUID]*models.OTPChallenge
}

func newMockOTPRepository() *mockOTPRepository {
	return &mockOTPRepository{challenges: make(map[uuid.UUID]*models.OTPChallenge)}
}

func (m *mockOTPRepository) Latest(ctx context.Context, email, purpose string) (*models.OTPChallenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.OTPChallenge
	for _, c := range m.challenges {
		if c.Email == email && c.Purpose == purpose && (latest == nil || c.CreatedAt.After(latest.CreatedAt)) {
			latest = c
		}
	}
	if latest == nil {
		return nil, repository.ErrOTPNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *mockOTPRepository) Replace(ctx context.Context, challenge *models.OTPChallenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.challenges {
		if c.Email == challenge.Email && c.Purpose == challenge.Purpose {
			delete(m.challenges, id)
		}
	}
	challenge.ID = uuid.New()
	cp := *challenge
	m.challenges[cp.ID] = &cp
	return nil
}

func (m *mockOTPRepository) FindMatch(ctx context.Context, email, code, purpose string, now time.Time) (*models.OTPChallenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.challenges {
		if c.Email == email && c.Code == code && c.Purpose == purpose && c.IsLive(now) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrOTPNotFound
}

func (m *mockOTPRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.challenges, id)
	return nil
}

func (m *mockOTPRepository) count(email, purpose string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.challenges {
		if c.Email == email && c.Purpose == purpose {
			n++
		}
	}
	return n
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (m *mockNotifier) Send(ctx context.Context, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockNotifier) last() notify.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

type mockUserRepository struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[uuid.UUID]*models.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	user.ID = uuid.New()
	cp := *user
	m.users[cp.ID] = &cp
	return nil
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = &passwordHash
	return nil
}

func (m *mockUserRepository) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Name = name
	return nil
}

type mockConsultationRepository struct {
	mu            sync.Mutex
	consultations map[uuid.UUID]*models.Consultation
	seq           int
}

func newMockConsultationRepository() *mockConsultationRepository {
	return &mockConsultationRepository{consultations: make(map[uuid.UUID]*models.Consultation)}
}

func (m *mockConsultationRepository) Create(ctx context.Context, c *models.Consultation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	c.ID = uuid.New()
	c.PaymentStatus = models.PaymentStatusPending
	c.ConsultationStatus = models.ConsultationStatusPending
	c.CreatedAt = time.Date(2026, 1, 1, 0, 0, m.seq, 0, time.UTC)
	cp := *c
	m.consultations[cp.ID] = &cp
	return nil
}

func (m *mockConsultationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Consultation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.consultations[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, repository.ErrConsultationNotFound
}

func (m *mockConsultationRepository) SetProviderOrder(ctx context.Context, id uuid.UUID, provider, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.consultations[id]
	if !ok {
		return repository.ErrConsultationNotFound
	}
	c.PaymentProvider = &provider
	c.PaymentOrderID = &orderID
	return nil
}

func (m *mockConsultationRepository) TransitionPayment(ctx context.Context, id uuid.UUID, status string, paymentID *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.consultations[id]
	if !ok || c.PaymentStatus != models.PaymentStatusPending {
		return false, nil
	}
	c.PaymentStatus = status
	if paymentID != nil {
		c.PaymentID = paymentID
	}
	return true, nil
}

func (m *mockConsultationRepository) TransitionByProviderOrder(ctx context.Context, provider, orderID, status string, paymentID *string) ([]models.ConsultationRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var refs []models.ConsultationRef
	for _, c := range m.consultations {
		if c.PaymentProvider == nil || *c.PaymentProvider != provider {
			continue
		}
		if c.PaymentOrderID == nil || *c.PaymentOrderID != orderID || c.PaymentStatus != models.PaymentStatusPending {
			continue
		}
		c.PaymentStatus = status
		if paymentID != nil {
			c.PaymentID = paymentID
		}
		refs = append(refs, models.ConsultationRef{ID: c.ID, UserID: c.UserID})
	}
	return refs, nil
}

func (m *mockConsultationRepository) ListByOwner(ctx context.Context, userID uuid.UUID, email string) ([]models.Consultation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Consultation
	for _, c := range m.consultations {
		if (c.UserID != nil && *c.UserID == userID) || c.Email == email {
			out = append(out, *c)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *mockConsultationRepository) List(ctx context.Context, filter models.ConsultationFilter) ([]models.Consultation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Consultation
	for _, c := range m.consultations {
		if filter.PaymentStatus == "" || c.PaymentStatus == filter.PaymentStatus {
			out = append(out, *c)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *mockConsultationRepository) UpdateAdminFields(ctx context.Context, id uuid.UUID, notes, consultationStatus *string) (*models.Consultation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.consultations[id]
	if !ok {
		return nil, repository.ErrConsultationNotFound
	}
	if notes != nil {
		c.Notes = notes
	}
	if consultationStatus != nil {
		c.ConsultationStatus = *consultationStatus
	}
	cp := *c
	return &cp, nil
}

func (m *mockConsultationRepository) MarkRefunded(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.consultations[id]
	if !ok || c.PaymentStatus != models.PaymentStatusCompleted {
		return false, nil
	}
	c.PaymentStatus = models.PaymentStatusRefunded
	return true, nil
}

func (m *mockConsultationRepository) AttachReport(ctx context.Context, id uuid.UUID, reportURL, fileName string, uploadedAt time.Time) (*models.Consultation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.consultations[id]
	if !ok {
		return nil, repository.ErrConsultationNotFound
	}
	c.ReportURL = &reportURL
	c.ReportFileName = &fileName
	c.ReportUploadedAt = &uploadedAt
	cp := *c
	return &cp, nil
}

func sortNewestFirst(list []models.Consultation) {
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
}

type mockCatalog struct {
	services map[uuid.UUID]*models.Service
}

func newMockCatalog(services ...*models.Service) *mockCatalog {
	m := &mockCatalog{services: make(map[uuid.UUID]*models.Service)}
	for _, s := range services {
		m.services[s.ID] = s
	}
	return m
}

func (m *mockCatalog) GetByID(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	if s, ok := m.services[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, repository.ErrServiceNotFound
}

// mockProvider платёжный шлюз в памяти. Подпись вебхука: строка "valid".
type mockProvider struct {
	name        string
	createErr   error
	status      *payment.OrderStatus
	statusErr   error
	orders      int
	statusCalls int
}

func (m *mockProvider) Name() string { return m.name }
func (m *mockProvider) Ready() error { return nil }

func (m *mockProvider) CreateOrder(ctx context.Context, spec payment.OrderSpec) (*payment.ProviderOrder, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.orders++
	return &payment.ProviderOrder{
		ID:       m.name + "_order_" + spec.ConsultationID[:8],
		Amount:   spec.Amount,
		Currency: spec.Currency,
	}, nil
}

func (m *mockProvider) GetOrderStatus(ctx context.Context, orderID string) (*payment.OrderStatus, error) {
	m.statusCalls++
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	if m.status == nil {
		return &payment.OrderStatus{OrderID: orderID, Status: payment.StatusPending}, nil
	}
	return m.status, nil
}

func (m *mockProvider) ParseWebhook(req payment.WebhookRequest) (*payment.WebhookEvent, error) {
	if req.Signature != "valid" {
		return nil, payment.ErrSignatureMismatch
	}
	var ev payment.WebhookEvent
	if err := json.Unmarshal(req.Body, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// mockSignedProvider дополнительно проверяет подпись чекаута: верна только "sig_ok".
type mockSignedProvider struct {
	mockProvider
}

func (m *mockSignedProvider) VerifyClientSignature(orderID, paymentID, signature string) error {
	if signature != "sig_ok" {
		return payment.ErrSignatureMismatch
	}
	return nil
}

type pushedEvent struct {
	UserID uuid.UUID
	Event  string
	Data   any
}

type mockPublisher struct {
	mu     sync.Mutex
	events []pushedEvent
}

func (m *mockPublisher) BroadcastToUser(userID uuid.UUID, event string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, pushedEvent{UserID: userID, Event: event, Data: data})
	return nil
}

var errBoom = errors.New("boom")
