package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"time"

	"github.com/consentgate/consentgate/internal/core/domain"
	"github.com/consentgate/consentgate/internal/core/ports"
)

// tokenCacheTTL bounds how long a resolved site may be served from the
// cache after its row changed. Updates invalidate eagerly; the TTL covers
// writers that bypass this process.
const tokenCacheTTL = 5 * time.Minute

type tokenService struct {
	repo      ports.SiteRepository
	cache     ports.TokenCache // may be nil
	adminHash [32]byte
}

// NewTokenService builds the bearer-token resolver. The admin secret is
// fixed for the process lifetime; only its SHA-256 digest is retained so
// comparisons run in constant time regardless of input length.
func NewTokenService(repo ports.SiteRepository, cache ports.TokenCache, adminToken string) ports.TokenResolver {
	return &tokenService{
		repo:      repo,
		cache:     cache,
		adminHash: sha256.Sum256([]byte(adminToken)),
	}
}

func (s *tokenService) Resolve(ctx context.Context, token string) (domain.Principal, error) {
	if token == "" {
		return domain.Principal{}, domain.ErrMissingToken
	}

	candidate := sha256.Sum256([]byte(token))
	if subtle.ConstantTimeCompare(candidate[:], s.adminHash[:]) == 1 {
		return domain.AdminPrincipal(), nil
	}

	if s.cache != nil {
		if site, ok := s.cache.GetSite(ctx, token); ok && siteResolvable(site) {
			return domain.SitePrincipal(site), nil
		}
	}

	site, err := s.repo.GetSiteByToken(ctx, token)
	if err != nil {
		return domain.Principal{}, domain.ErrStoreUnavailable.WithCause(err)
	}
	if !siteResolvable(site) {
		return domain.Principal{}, domain.ErrInvalidToken
	}

	if s.cache != nil {
		s.cache.SetSite(ctx, token, site, tokenCacheTTL)
	}
	return domain.SitePrincipal(site), nil
}

func siteResolvable(site *domain.Site) bool {
	return site != nil && site.Status == domain.StatusActive && site.DeletedAt == nil
}
