package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/consentgate/consentgate/internal/core/domain"
	"github.com/consentgate/consentgate/internal/core/ports"
)

type consentService struct {
	repo ports.ConsentRepository
}

// NewConsentService builds the visitor consent recorder.
func NewConsentService(repo ports.ConsentRepository) ports.ConsentService {
	return &consentService{repo: repo}
}

// Record persists a consent decision for the authenticated site. Free-text
// fields are sanitized here so nothing unscrubbed reaches the store.
func (s *consentService) Record(ctx context.Context, siteID string, consent *domain.Consent) error {
	if consent.VisitorID == "" {
		return domain.ErrValidationFailed.WithCause(fmt.Errorf("visitor_id is required"))
	}
	if len(consent.Categories) == 0 {
		return domain.ErrValidationFailed.WithCause(fmt.Errorf("categories cannot be empty"))
	}

	consent.ID = uuid.New().String()
	consent.SiteID = siteID
	consent.VisitorID = domain.SanitizeString(consent.VisitorID)
	consent.UserAgent = domain.SanitizeString(consent.UserAgent)
	consent.CreatedAt = time.Now()

	categories := make(map[string]bool, len(consent.Categories))
	for k, v := range consent.Categories {
		categories[domain.SanitizeString(k)] = v
	}
	consent.Categories = categories

	if err := s.repo.SaveConsent(ctx, consent); err != nil {
		return domain.ErrStoreUnavailable.WithCause(err)
	}
	return nil
}
