package service

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astrobyab/consult-backend/internal/models"
	"github.com/astrobyab/consult-backend/internal/pkg/apperror"
	"github.com/astrobyab/consult-backend/internal/storage"
)

type mockReportStore struct {
	files map[uuid.UUID][]byte
}

func (m *mockReportStore) Save(ctx context.Context, id uuid.UUID, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return 0, storage.ErrNotPDF
	}
	m.files[id] = data
	return int64(len(data)), nil
}

func (m *mockReportStore) Open(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
	data, ok := m.files[id]
	if !ok {
		return nil, storage.ErrReportMissing
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type consultationFixture struct {
	svc           *ConsultationService
	consultations *mockConsultationRepository
	users         *mockUserRepository
	reports       *mockReportStore
	owner         *models.User
	admin         *models.User
	stranger      *models.User
}

func newConsultationFixture(t *testing.T) *consultationFixture {
	t.Helper()
	ctx := context.Background()
	f := &consultationFixture{
		consultations: newMockConsultationRepository(),
		users:         newMockUserRepository(),
		reports:       &mockReportStore{files: make(map[uuid.UUID][]byte)},
		owner:         &models.User{Email: "owner@example.com", Role: models.RoleUser},
		admin:         &models.User{Email: "admin@example.com", Role: models.RoleAdmin},
		stranger:      &models.User{Email: "stranger@example.com", Role: models.RoleUser},
	}
	require.NoError(t, f.users.Create(ctx, f.owner))
	require.NoError(t, f.users.Create(ctx, f.admin))
	require.NoError(t, f.users.Create(ctx, f.stranger))
	f.svc = NewConsultationService(f.consultations, f.users, f.reports)
	return f
}

func (f *consultationFixture) book(t *testing.T, userID *uuid.UUID, email string) *models.Consultation {
	t.Helper()
	c := &models.Consultation{UserID: userID, Email: email, Name: "Client", Phone: "9876543210", ServiceName: "Career", Price: 999}
	require.NoError(t, f.consultations.Create(context.Background(), c))
	return c
}

func TestConsultationService_ListOwnIncludesGuestBookings(t *testing.T) {
	f := newConsultationFixture(t)
	ctx := context.Background()

	f.book(t, &f.owner.ID, f.owner.Email)
	f.book(t, nil, f.owner.Email)
	f.book(t, &f.stranger.ID, f.stranger.Email)

	items, err := f.svc.ListOwn(ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.True(t, items[0].CreatedAt.After(items[1].CreatedAt))
}

func TestConsultationService_GetAccess(t *testing.T) {
	f := newConsultationFixture(t)
	ctx := context.Background()
	c := f.book(t, &f.owner.ID, f.owner.Email)

	got, err := f.svc.Get(ctx, f.owner.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	_, err = f.svc.Get(ctx, f.admin.ID, c.ID)
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, f.stranger.ID, c.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.svc.Get(ctx, f.owner.ID, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrConsultationNotFound)

	_, err = f.svc.Get(ctx, uuid.New(), c.ID)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestConsultationService_AdminListFilter(t *testing.T) {
	f := newConsultationFixture(t)
	ctx := context.Background()
	paid := f.book(t, &f.owner.ID, f.owner.Email)
	f.book(t, &f.owner.ID, f.owner.Email)
	_, err := f.consultations.TransitionPayment(ctx, paid.ID, models.PaymentStatusCompleted, nil)
	require.NoError(t, err)

	items, err := f.svc.AdminList(ctx, models.ConsultationFilter{PaymentStatus: models.PaymentStatusCompleted})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, paid.ID, items[0].ID)

	all, err := f.svc.AdminList(ctx, models.ConsultationFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.svc.AdminList(ctx, models.ConsultationFilter{PaymentStatus: "paid"})
	assert.True(t, apperror.IsValidation(err))
}

func TestConsultationService_AdminUpdateNotesAndStatus(t *testing.T) {
	f := newConsultationFixture(t)
	ctx := context.Background()
	c := f.book(t, &f.owner.ID, f.owner.Email)

	notes := "Discussed career transit"
	status := models.ConsultationStatusCompleted
	updated, err := f.svc.AdminUpdate(ctx, c.ID, AdminUpdateInput{Notes: &notes, ConsultationStatus: &status})
	require.NoError(t, err)
	assert.Equal(t, notes, *updated.Notes)
	assert.Equal(t, models.ConsultationStatusCompleted, updated.ConsultationStatus)
	assert.Equal(t, models.PaymentStatusPending, updated.PaymentStatus)

	bad := "DONE"
	_, err = f.svc.AdminUpdate(ctx, c.ID, AdminUpdateInput{ConsultationStatus: &bad})
	assert.True(t, apperror.IsValidation(err))
}

func TestConsultationService_AdminRefund(t *testing.T) {
	f := newConsultationFixture(t)
	ctx := context.Background()
	c := f.book(t, &f.owner.ID, f.owner.Email)

	_, err := f.svc.AdminUpdate(ctx, c.ID, AdminUpdateInput{Refund: true})
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeConflict))

	_, err = f.consultations.TransitionPayment(ctx, c.ID, models.PaymentStatusCompleted, nil)
	require.NoError(t, err)

	updated, err := f.svc.AdminUpdate(ctx, c.ID, AdminUpdateInput{Refund: true})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, updated.PaymentStatus)

	// refunded терминален для вебхуков
	changed, err := f.consultations.TransitionPayment(ctx, c.ID, models.PaymentStatusCompleted, nil)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestConsultationService_ReportUploadAndDownload(t *testing.T) {
	f := newConsultationFixture(t)
	ctx := context.Background()
	c := f.book(t, &f.owner.ID, f.owner.Email)

	_, err := f.svc.OpenReport(ctx, f.owner.ID, c.ID)
	assert.ErrorIs(t, err, apperror.ErrReportNotFound)

	pdf := []byte("%PDF-1.4 report body")
	updated, err := f.svc.UploadReport(ctx, c.ID, "../Kundli Report.pdf", bytes.NewReader(pdf))
	require.NoError(t, err)
	assert.Equal(t, ReportURL(c.ID), *updated.ReportURL)
	assert.Equal(t, "Kundli_Report.pdf", *updated.ReportFileName)
	require.NotNil(t, updated.ReportUploadedAt)

	file, err := f.svc.OpenReport(ctx, f.owner.ID, c.ID)
	require.NoError(t, err)
	defer file.Content.Close()
	data, _ := io.ReadAll(file.Content)
	assert.Equal(t, pdf, data)
	assert.Equal(t, "Kundli_Report.pdf", file.Name)

	_, err = f.svc.OpenReport(ctx, f.stranger.ID, c.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestConsultationService_ReportRejectsNonPDF(t *testing.T) {
	f := newConsultationFixture(t)
	c := f.book(t, &f.owner.ID, f.owner.Email)

	_, err := f.svc.UploadReport(context.Background(), c.ID, "notes.txt", bytes.NewReader([]byte("plain text")))
	assert.True(t, apperror.IsValidation(err))
}
