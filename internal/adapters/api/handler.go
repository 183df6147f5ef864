package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/consentgate/consentgate/internal/core/domain"
	"github.com/consentgate/consentgate/internal/core/ports"
	"github.com/consentgate/consentgate/internal/infrastructure/metrics"
)

// APIHandler handles HTTP requests for site registration, verification,
// consent recording and admin monitoring.
type APIHandler struct {
	sites     ports.SiteService
	consents  ports.ConsentService
	admission *Admission
	baseURL   string
	logger    *slog.Logger
	metrics   http.Handler
}

// NewAPIHandler creates and returns a new APIHandler instance.
func NewAPIHandler(sites ports.SiteService, consents ports.ConsentService, admission *Admission, baseURL string, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		sites:     sites,
		consents:  consents,
		admission: admission,
		baseURL:   baseURL,
		logger:    logger,
		metrics:   promhttp.Handler(),
	}
}

// RegisterRoutes registers the API routes with the provided ServeMux.
// Method enforcement happens inside the admission pipeline so that
// disallowed verbs get a 405 with an Allow header rather than a mux 404.
func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	// Public routes
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("GET /metrics", h.Metrics)

	wrap := h.admission.Wrap

	mux.Handle("/v1/sites/register", wrap("register", RouteOptions{
		Methods:   []string{http.MethodPost},
		RateLimit: RateRegistration,
		Origins:   OriginWildcard,
	}, h.RegisterSite))

	mux.Handle("/v1/sites/verify", wrap("verify", RouteOptions{
		Methods:        []string{http.MethodGet},
		RequireAuth:    true,
		RateLimit:      RateAPI,
		BindSiteOrigin: true,
	}, h.VerifySite))

	mux.Handle("/v1/consent", wrap("consent", RouteOptions{
		Methods:        []string{http.MethodPost},
		RequireAuth:    true,
		RateLimit:      RateAPI,
		BindSiteOrigin: true,
	}, h.RecordConsent))

	mux.Handle("/v1/admin/sites", wrap("admin_sites", RouteOptions{
		Methods:     []string{http.MethodGet},
		RequireAuth: true,
		RateLimit:   RateAdmin,
	}, RequireAdmin(h.ListSites)))

	mux.Handle("/v1/admin/stats", wrap("admin_stats", RouteOptions{
		Methods:     []string{http.MethodGet},
		RequireAuth: true,
		RateLimit:   RateAdmin,
	}, RequireAdmin(h.AdminStats)))
}

// Metrics handles Prometheus metrics scraping requests.
func (h *APIHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

// HealthCheck reports per-dependency reachability.
func (h *APIHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "UP"
	details := make(map[string]string)

	for name, checkErr := range h.sites.HealthCheck(r.Context()) {
		if checkErr != nil {
			status = "DEGRADED"
			details[name] = checkErr.Error()
		} else {
			details[name] = "OK"
		}
	}

	code := http.StatusOK
	if status == "DEGRADED" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status":  status,
		"details": details,
	})
}

// RegisterSite reconciles a registration payload into a created, updated,
// or already-existing site.
func (h *APIHandler) RegisterSite(w http.ResponseWriter, r *http.Request) {
	var req domain.RegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrValidationFailed.WithCause(err))
		return
	}
	req.Sanitize()

	if fieldErrs := req.Validate(); fieldErrs != nil {
		writeJSON(w, domain.ErrValidationFailed.Status, map[string]interface{}{
			"success": false,
			"error":   domain.ErrValidationFailed.Message,
			"code":    domain.ErrValidationFailed.Code,
			"fields":  fieldErrs,
		})
		return
	}

	result, err := h.sites.Reconcile(r.Context(), &req, bearerToken(r))
	if err != nil {
		h.writeServiceError(w, "register", err)
		return
	}

	metrics.Registrations.WithLabelValues(string(result.Outcome)).Inc()
	code := http.StatusOK
	if result.Outcome == domain.OutcomeCreated {
		code = http.StatusCreated
	}
	writeJSON(w, code, map[string]interface{}{
		"success":               true,
		"site_id":               result.Site.ID,
		"api_token":             result.Site.APIToken,
		"widget_url":            h.widgetURL(result.Site.ID),
		string(result.Outcome): true,
	})
}

// VerifySite returns the registration state for the caller's own token.
func (h *APIHandler) VerifySite(w http.ResponseWriter, r *http.Request) {
	site, err := h.sites.Verify(r.Context(), bearerToken(r))
	if err != nil {
		h.writeServiceError(w, "verify", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"site_id":      site.ID,
		"widget_url":   h.widgetURL(site.ID),
		"status":       site.Status,
		"domain":       site.Domain,
		"last_updated": site.UpdatedAt,
	})
}

// RecordConsent stores a visitor consent decision for the authenticated site.
func (h *APIHandler) RecordConsent(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok || principal.Kind != domain.PrincipalSite {
		writeError(w, domain.ErrSiteUnauthorized)
		return
	}

	var req struct {
		VisitorID  string          `json:"visitor_id"`
		Categories map[string]bool `json:"categories"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrValidationFailed.WithCause(err))
		return
	}

	ipSum := sha256.Sum256([]byte(clientIP(r)))
	consent := &domain.Consent{
		VisitorID:  req.VisitorID,
		Categories: req.Categories,
		IPHash:     hex.EncodeToString(ipSum[:]),
		UserAgent:  r.UserAgent(),
	}

	if err := h.consents.Record(r.Context(), principal.SiteID, consent); err != nil {
		h.writeServiceError(w, "consent", err)
		return
	}

	metrics.ConsentsRecorded.Inc()
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":    true,
		"consent_id": consent.ID,
	})
}

// ListSites returns registered sites for the admin dashboard.
func (h *APIHandler) ListSites(w http.ResponseWriter, r *http.Request) {
	status := domain.SiteStatus(r.URL.Query().Get("status"))
	sites, err := h.sites.ListSites(r.Context(), status)
	if err != nil {
		h.writeServiceError(w, "admin_sites", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"sites":   sites,
		"count":   len(sites),
	})
}

// AdminStats returns aggregate counters for the admin dashboard.
func (h *APIHandler) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sites.Stats(r.Context())
	if err != nil {
		h.writeServiceError(w, "admin_stats", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"stats":   stats,
	})
}

func (h *APIHandler) widgetURL(siteID string) string {
	return h.baseURL + "/widget/v1/consent.js?site_id=" + siteID
}

func (h *APIHandler) writeServiceError(w http.ResponseWriter, route string, err error) {
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) {
		authErr = domain.ErrStoreUnavailable.WithCause(err)
	}
	h.logger.Error("request failed", "route", route, "kind", authErr.Kind, "err", err)
	writeError(w, authErr)
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, authErr *domain.AuthError) {
	writeJSON(w, authErr.Status, map[string]interface{}{
		"success": false,
		"error":   authErr.Message,
		"code":    authErr.Code,
	})
}
