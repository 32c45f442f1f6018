package service

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astrobyab/consult-backend/internal/kundli"
	"github.com/astrobyab/consult-backend/internal/models"
	"github.com/astrobyab/consult-backend/internal/pkg/apperror"
	"github.com/astrobyab/consult-backend/internal/repository"
)

type mockKundliRepository struct {
	byKey map[string]*models.KundliCalculation
	seq   int
}

func newMockKundliRepository() *mockKundliRepository {
	return &mockKundliRepository{byKey: make(map[string]*models.KundliCalculation)}
}

func (m *mockKundliRepository) GetByCacheKey(ctx context.Context, cacheKey string) (*models.KundliCalculation, error) {
	if c, ok := m.byKey[cacheKey]; ok {
		return c, nil
	}
	return nil, repository.ErrKundliNotFound
}

func (m *mockKundliRepository) Create(ctx context.Context, calc *models.KundliCalculation) error {
	m.seq++
	calc.ID = uuid.New()
	calc.UpdatedAt = time.Date(2026, 1, 1, 0, 0, m.seq, 0, time.UTC)
	m.byKey[calc.CacheKey] = calc
	return nil
}

func (m *mockKundliRepository) Latest(ctx context.Context, userID uuid.UUID, cacheKey string) (*models.KundliCalculation, error) {
	var latest *models.KundliCalculation
	for _, c := range m.byKey {
		if c.UserID != userID || (cacheKey != "" && c.CacheKey != cacheKey) {
			continue
		}
		if latest == nil || c.UpdatedAt.After(latest.UpdatedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, repository.ErrKundliNotFound
	}
	return latest, nil
}

type countingGenerator struct {
	inner *kundli.Generator
	calls int
}

func (g *countingGenerator) Generate(ctx context.Context, in kundli.Input, ayanamsa string) (*kundli.Result, error) {
	g.calls++
	return g.inner.Generate(ctx, in, ayanamsa)
}

func newKundliFixture() (*KundliService, *mockKundliRepository, *countingGenerator) {
	repo := newMockKundliRepository()
	gen := &countingGenerator{inner: kundli.NewGenerator(nil, kundli.NewLocalEngine())}
	return NewKundliService(repo, gen), repo, gen
}

func birthRequest() KundliRequest {
	return KundliRequest{Input: kundli.Input{
		DateOfBirth:  "2000-01-01",
		TimeOfBirth:  "12:30",
		PlaceOfBirth: "Delhi",
		Latitude:     28.6,
		Longitude:    77.2,
	}}
}

func TestKundliService_CalculateCachesByInput(t *testing.T) {
	svc, _, gen := newKundliFixture()
	ctx := context.Background()
	userID := uuid.New()

	first, err := svc.Calculate(ctx, userID, birthRequest())
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Len(t, first.CacheKey, 64)

	var result kundli.Result
	require.NoError(t, json.Unmarshal(first.Result, &result))
	assert.Equal(t, "UTC", result.Input.Timezone)
	assert.Equal(t, kundli.DefaultAyanamsa, result.Metadata.Ayanamsa)
	assert.Equal(t, "Virgo", result.Ascendant)

	second, err := svc.Calculate(ctx, uuid.New(), birthRequest())
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.CacheKey, second.CacheKey)
	assert.JSONEq(t, string(first.Result), string(second.Result))
	assert.Equal(t, 1, gen.calls)

	other := birthRequest()
	other.Ayanamsa = "Raman"
	third, err := svc.Calculate(ctx, userID, other)
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.NotEqual(t, first.CacheKey, third.CacheKey)
}

func TestKundliService_CalculateValidation(t *testing.T) {
	svc, _, gen := newKundliFixture()

	req := birthRequest()
	req.PlaceOfBirth = " "
	_, err := svc.Calculate(context.Background(), uuid.New(), req)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	req = birthRequest()
	req.TimeOfBirth = "noon"
	_, err = svc.Calculate(context.Background(), uuid.New(), req)
	assert.True(t, apperror.IsValidation(err))
	assert.Equal(t, 0, gen.calls)
}

func TestKundliService_LatestAndPDF(t *testing.T) {
	svc, _, _ := newKundliFixture()
	ctx := context.Background()
	userID := uuid.New()

	latest, err := svc.Latest(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	_, err = svc.RenderPDF(ctx, userID, "")
	assert.ErrorIs(t, err, apperror.ErrKundliNotFound)

	created, err := svc.Calculate(ctx, userID, birthRequest())
	require.NoError(t, err)

	latest, err = svc.Latest(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, created.CacheKey, latest.CacheKey)

	pdf, err := svc.RenderPDF(ctx, userID, created.CacheKey)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))

	_, err = svc.RenderPDF(ctx, userID, "unknown-key")
	assert.ErrorIs(t, err, apperror.ErrKundliNotFound)
}
