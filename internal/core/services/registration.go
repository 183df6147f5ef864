package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/consentgate/consentgate/internal/core/domain"
	"github.com/consentgate/consentgate/internal/core/ports"
)

type siteService struct {
	repo     ports.SiteRepository
	consents ports.ConsentRepository // may be nil, only used for stats
	cache    ports.TokenCache        // may be nil
}

// NewSiteService builds the registration reconciler and site query service.
func NewSiteService(repo ports.SiteRepository, consents ports.ConsentRepository, cache ports.TokenCache) ports.SiteService {
	return &siteService{repo: repo, consents: consents, cache: cache}
}

// Reconcile applies the idempotent registration algorithm. Precedence is
// fixed: explicit site_id wins over domain dedup, and domain dedup never
// mints a second token for an already-registered domain.
func (s *siteService) Reconcile(ctx context.Context, req *domain.RegistrationRequest, callerToken string) (*domain.RegistrationResult, error) {
	host, err := domain.NormalizeDomain(req.Domain)
	if err != nil {
		return nil, domain.ErrValidationFailed.WithCause(err)
	}

	if req.SiteID != "" {
		site, err := s.repo.GetSiteByID(ctx, req.SiteID)
		if err != nil {
			return nil, domain.ErrStoreUnavailable.WithCause(err)
		}
		if site != nil {
			if callerToken != "" && subtle.ConstantTimeCompare([]byte(callerToken), []byte(site.APIToken)) != 1 {
				return nil, domain.ErrSiteUnauthorized
			}
			s.applyUpdate(site, req, host)
			if err := s.repo.UpdateSite(ctx, site); err != nil {
				return nil, domain.ErrStoreUnavailable.WithCause(err)
			}
			// The cached row is stale after any update. Invalidation
			// failure is tolerable: the cache TTL bounds staleness.
			if s.cache != nil {
				_ = s.cache.Invalidate(ctx, site.APIToken)
			}
			return &domain.RegistrationResult{Site: site, Outcome: domain.OutcomeUpdated}, nil
		}
		// Unknown site_id falls through to domain reconciliation.
	}

	site, err := s.repo.GetSiteByDomain(ctx, host)
	if err != nil {
		return nil, domain.ErrStoreUnavailable.WithCause(err)
	}
	if site != nil {
		return &domain.RegistrationResult{Site: site, Outcome: domain.OutcomeExisting}, nil
	}

	fresh, err := newSite(req, host)
	if err != nil {
		return nil, fmt.Errorf("generating site credentials: %w", err)
	}

	switch err := s.repo.CreateSite(ctx, fresh); {
	case err == nil:
		return &domain.RegistrationResult{Site: fresh, Outcome: domain.OutcomeCreated}, nil
	case errors.Is(err, domain.ErrDomainConflict):
		// A racing registration inserted the same domain first. The unique
		// index is the authoritative guard; fall back to the winning row.
		winner, lookupErr := s.repo.GetSiteByDomain(ctx, host)
		if lookupErr != nil {
			return nil, domain.ErrStoreUnavailable.WithCause(lookupErr)
		}
		if winner == nil {
			return nil, domain.ErrStoreUnavailable.WithCause(err)
		}
		return &domain.RegistrationResult{Site: winner, Outcome: domain.OutcomeExisting}, nil
	default:
		return nil, domain.ErrStoreUnavailable.WithCause(err)
	}
}

func (s *siteService) applyUpdate(site *domain.Site, req *domain.RegistrationRequest, host string) {
	site.Domain = host
	site.WPVersion = req.WPVersion
	site.PluginVersion = req.PluginVersion
	site.InstalledPlugins = req.InstalledPlugins
	site.DetectedForms = req.DetectedForms
	site.UpdatedAt = time.Now()
}

func newSite(req *domain.RegistrationRequest, host string) (*domain.Site, error) {
	id, err := domain.NewSiteID()
	if err != nil {
		return nil, err
	}
	token, err := domain.NewAPIToken()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &domain.Site{
		ID:               id,
		Domain:           host,
		APIToken:         token,
		Status:           domain.StatusActive,
		WPVersion:        req.WPVersion,
		PluginVersion:    req.PluginVersion,
		InstalledPlugins: req.InstalledPlugins,
		DetectedForms:    req.DetectedForms,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Verify resolves a site by its token for the verification endpoint. A
// matching but suspended or soft-deleted site reads as not found.
func (s *siteService) Verify(ctx context.Context, token string) (*domain.Site, error) {
	site, err := s.repo.GetSiteByToken(ctx, token)
	if err != nil {
		return nil, domain.ErrStoreUnavailable.WithCause(err)
	}
	if site == nil {
		return nil, domain.ErrSiteNotFound
	}
	return site, nil
}

func (s *siteService) ListSites(ctx context.Context, status domain.SiteStatus) ([]domain.Site, error) {
	sites, err := s.repo.ListSites(ctx, status)
	if err != nil {
		return nil, domain.ErrStoreUnavailable.WithCause(err)
	}
	return sites, nil
}

func (s *siteService) Stats(ctx context.Context) (*domain.AdminStats, error) {
	byStatus, err := s.repo.CountSitesByStatus(ctx)
	if err != nil {
		return nil, domain.ErrStoreUnavailable.WithCause(err)
	}
	total := 0
	for _, n := range byStatus {
		total += n
	}
	stats := &domain.AdminStats{TotalSites: total, SitesByStatus: byStatus}
	if s.consents != nil {
		if n, err := s.consents.CountConsentsSince(ctx, time.Now().Add(-24*time.Hour)); err == nil {
			stats.ConsentsLast24 = n
		}
	}
	return stats, nil
}

// HealthCheck reports per-dependency reachability.
func (s *siteService) HealthCheck(ctx context.Context) map[string]error {
	checks := map[string]error{
		"database": s.repo.Ping(ctx),
	}
	if s.cache != nil {
		checks["cache"] = s.cache.Ping(ctx)
	}
	return checks
}
