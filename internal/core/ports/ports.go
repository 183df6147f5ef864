package ports

import (
	"context"
	"time"

	"github.com/consentgate/consentgate/internal/core/domain"
)

// SiteRepository is the persistence boundary for registered sites. Lookups
// return (nil, nil) when no row matches; errors mean the store itself
// failed. All lookups exclude soft-deleted rows.
type SiteRepository interface {
	GetSiteByToken(ctx context.Context, token string) (*domain.Site, error)
	GetSiteByID(ctx context.Context, id string) (*domain.Site, error)
	GetSiteByDomain(ctx context.Context, host string) (*domain.Site, error)
	// CreateSite returns domain.ErrDomainConflict when the partial unique
	// index on (domain) WHERE deleted_at IS NULL rejects the insert.
	CreateSite(ctx context.Context, site *domain.Site) error
	UpdateSite(ctx context.Context, site *domain.Site) error
	UpdateSiteStatus(ctx context.Context, id string, status domain.SiteStatus) error
	SoftDeleteSite(ctx context.Context, id string) error
	ListSites(ctx context.Context, status domain.SiteStatus) ([]domain.Site, error)
	CountSitesByStatus(ctx context.Context) (map[domain.SiteStatus]int, error)
	Ping(ctx context.Context) error
}

// ConsentRepository stores visitor consent decisions.
type ConsentRepository interface {
	SaveConsent(ctx context.Context, consent *domain.Consent) error
	CountConsentsSince(ctx context.Context, since time.Time) (int, error)
}

// TokenCache is an optional read-through cache in front of the token
// lookup. Implementations must treat misses and transport errors the same
// way: (nil, false) sends the caller to the repository.
type TokenCache interface {
	GetSite(ctx context.Context, token string) (*domain.Site, bool)
	SetSite(ctx context.Context, token string, site *domain.Site, ttl time.Duration)
	Invalidate(ctx context.Context, token string) error
	Ping(ctx context.Context) error
}

// TokenResolver maps a bearer credential to a principal.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (domain.Principal, error)
}

// SiteService exposes registration reconciliation and site queries.
type SiteService interface {
	Reconcile(ctx context.Context, req *domain.RegistrationRequest, callerToken string) (*domain.RegistrationResult, error)
	Verify(ctx context.Context, token string) (*domain.Site, error)
	ListSites(ctx context.Context, status domain.SiteStatus) ([]domain.Site, error)
	Stats(ctx context.Context) (*domain.AdminStats, error)
	HealthCheck(ctx context.Context) map[string]error
}

// ConsentService records sanitized consent decisions for a site.
type ConsentService interface {
	Record(ctx context.Context, siteID string, consent *domain.Consent) error
}
