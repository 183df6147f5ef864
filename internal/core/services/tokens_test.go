package services

import (
	"context"
	"errors"
	"testing"

	"github.com/consentgate/consentgate/internal/core/domain"
	"github.com/consentgate/consentgate/internal/testutil"
)

const testAdminToken = "admin-secret-token"

func TestTokenServiceResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("Missing Token", func(t *testing.T) {
		repo := &testutil.MockRepo{}
		svc := NewTokenService(repo, nil, testAdminToken)

		_, err := svc.Resolve(ctx, "")
		if !errors.Is(err, domain.ErrMissingToken) {
			t.Errorf("expected ErrMissingToken, got %v", err)
		}
	})

	t.Run("Admin Token", func(t *testing.T) {
		repo := &testutil.MockRepo{}
		svc := NewTokenService(repo, nil, testAdminToken)

		principal, err := svc.Resolve(ctx, testAdminToken)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if principal.Kind != domain.PrincipalAdmin {
			t.Errorf("expected admin principal, got %s", principal.Kind)
		}
		repo.AssertNotCalled(t, "GetSiteByToken")
	})

	t.Run("Near Miss Admin Token Is Not Admin", func(t *testing.T) {
		// A prefix or near-match of the secret must fall through to the
		// site lookup, not resolve as admin.
		repo := &testutil.MockRepo{}
		repo.On("GetSiteByToken", testAdminToken+"x").Return((*domain.Site)(nil), nil).Once()
		svc := NewTokenService(repo, nil, testAdminToken)

		_, err := svc.Resolve(ctx, testAdminToken+"x")
		if !errors.Is(err, domain.ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
		repo.AssertExpectations(t)
	})

	t.Run("Active Site Token", func(t *testing.T) {
		site := &domain.Site{ID: "site-1", Domain: "shop.example", Status: domain.StatusActive}
		repo := &testutil.MockRepo{}
		repo.On("GetSiteByToken", "site-token").Return(site, nil).Once()
		svc := NewTokenService(repo, nil, testAdminToken)

		principal, err := svc.Resolve(ctx, "site-token")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if principal.Kind != domain.PrincipalSite || principal.SiteID != "site-1" {
			t.Errorf("unexpected principal: %+v", principal)
		}
		if principal.Domain != "shop.example" {
			t.Errorf("expected site domain bound to principal, got %s", principal.Domain)
		}
	})

	t.Run("Suspended Site Token", func(t *testing.T) {
		site := &domain.Site{ID: "site-1", Status: domain.StatusSuspended}
		repo := &testutil.MockRepo{}
		repo.On("GetSiteByToken", "suspended-token").Return(site, nil).Once()
		svc := NewTokenService(repo, nil, testAdminToken)

		_, err := svc.Resolve(ctx, "suspended-token")
		if !errors.Is(err, domain.ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("Unknown Token", func(t *testing.T) {
		repo := &testutil.MockRepo{}
		repo.On("GetSiteByToken", "nope").Return((*domain.Site)(nil), nil).Once()
		svc := NewTokenService(repo, nil, testAdminToken)

		_, err := svc.Resolve(ctx, "nope")
		if !errors.Is(err, domain.ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("Store Unavailable", func(t *testing.T) {
		repo := &testutil.MockRepo{}
		repo.On("GetSiteByToken", "any").Return((*domain.Site)(nil), errors.New("connection refused")).Once()
		svc := NewTokenService(repo, nil, testAdminToken)

		_, err := svc.Resolve(ctx, "any")
		if !errors.Is(err, domain.ErrStoreUnavailable) {
			t.Errorf("expected ErrStoreUnavailable, got %v", err)
		}
	})

	t.Run("Cache Hit Skips Repository", func(t *testing.T) {
		site := &domain.Site{ID: "site-1", Status: domain.StatusActive}
		cache := testutil.NewFakeTokenCache()
		cache.SetSite(ctx, "cached-token", site, 0)

		repo := &testutil.MockRepo{}
		svc := NewTokenService(repo, cache, testAdminToken)

		principal, err := svc.Resolve(ctx, "cached-token")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if principal.SiteID != "site-1" {
			t.Errorf("unexpected principal: %+v", principal)
		}
		repo.AssertNotCalled(t, "GetSiteByToken")
	})

	t.Run("Cache Miss Populates Cache", func(t *testing.T) {
		site := &domain.Site{ID: "site-2", Status: domain.StatusActive}
		cache := testutil.NewFakeTokenCache()
		repo := &testutil.MockRepo{}
		repo.On("GetSiteByToken", "fresh-token").Return(site, nil).Once()
		svc := NewTokenService(repo, cache, testAdminToken)

		if _, err := svc.Resolve(ctx, "fresh-token"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cached, ok := cache.GetSite(ctx, "fresh-token"); !ok || cached.ID != "site-2" {
			t.Errorf("expected cache populated, got %v %v", cached, ok)
		}
	})
}
