package service

import (
	"context"
	"fmt"
	"time"

	"github.com/astrobyab/consult-backend/internal/models"
)

const (
	dashboardCacheKey = "admin:dashboard"
	dashboardCacheTTL = 30 * time.Second
	defaultUsersPage  = 100
	maxUsersPage      = 500
)

// StatsRepository агрегаты по консультациям.
type StatsRepository interface {
	DashboardStats(ctx context.Context) (*models.DashboardStats, error)
}

// UserLister выборка пользователей для админки.
type UserLister interface {
	ListByRole(ctx context.Context, role string, limit, offset int) ([]models.UserSummary, error)
}

// DashboardService сводка и список клиентов для админки.
type DashboardService struct {
	stats StatsRepository
	users UserLister
	cache *CacheService
}

// NewDashboardService создаёт сервис. cache может быть nil.
func NewDashboardService(stats StatsRepository, users UserLister, cache *CacheService) *DashboardService {
	return &DashboardService{stats: stats, users: users, cache: cache}
}

// Stats возвращает сводку. Значение кэшируется на полминуты.
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	load := func() (interface{}, error) {
		return s.stats.DashboardStats(ctx)
	}
	if s.cache == nil {
		value, err := load()
		if err != nil {
			return nil, fmt.Errorf("dashboard service: %w", err)
		}
		return value.(*models.DashboardStats), nil
	}

	value, err := s.cache.GetOrSet(ctx, dashboardCacheKey, dashboardCacheTTL, load)
	if err != nil {
		return nil, fmt.Errorf("dashboard service: %w", err)
	}
	return value.(*models.DashboardStats), nil
}

// Users возвращает клиентов (роль USER), новые первыми.
func (s *DashboardService) Users(ctx context.Context, limit, offset int) ([]models.UserSummary, error) {
	if limit <= 0 {
		limit = defaultUsersPage
	}
	if limit > maxUsersPage {
		limit = maxUsersPage
	}
	if offset < 0 {
		offset = 0
	}

	users, err := s.users.ListByRole(ctx, models.RoleUser, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("dashboard service: %w", err)
	}
	return users, nil
}

