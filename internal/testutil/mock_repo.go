package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/consentgate/consentgate/internal/core/domain"
)

type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) GetSiteByToken(ctx context.Context, token string) (*domain.Site, error) {
	args := m.Called(token)
	return args.Get(0).(*domain.Site), args.Error(1)
}

func (m *MockRepo) GetSiteByID(ctx context.Context, id string) (*domain.Site, error) {
	args := m.Called(id)
	return args.Get(0).(*domain.Site), args.Error(1)
}

func (m *MockRepo) GetSiteByDomain(ctx context.Context, host string) (*domain.Site, error) {
	args := m.Called(host)
	return args.Get(0).(*domain.Site), args.Error(1)
}

func (m *MockRepo) CreateSite(ctx context.Context, site *domain.Site) error {
	args := m.Called(site)
	return args.Error(0)
}

func (m *MockRepo) UpdateSite(ctx context.Context, site *domain.Site) error {
	args := m.Called(site)
	return args.Error(0)
}

func (m *MockRepo) UpdateSiteStatus(ctx context.Context, id string, status domain.SiteStatus) error {
	args := m.Called(id, status)
	return args.Error(0)
}

func (m *MockRepo) SoftDeleteSite(ctx context.Context, id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockRepo) ListSites(ctx context.Context, status domain.SiteStatus) ([]domain.Site, error) {
	args := m.Called(status)
	return args.Get(0).([]domain.Site), args.Error(1)
}

func (m *MockRepo) CountSitesByStatus(ctx context.Context) (map[domain.SiteStatus]int, error) {
	args := m.Called()
	return args.Get(0).(map[domain.SiteStatus]int), args.Error(1)
}

func (m *MockRepo) SaveConsent(ctx context.Context, consent *domain.Consent) error {
	args := m.Called(consent)
	return args.Error(0)
}

func (m *MockRepo) CountConsentsSince(ctx context.Context, since time.Time) (int, error) {
	args := m.Called(since)
	return args.Int(0), args.Error(1)
}

func (m *MockRepo) Ping(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}
