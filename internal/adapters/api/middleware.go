package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/consentgate/consentgate/internal/core/domain"
	"github.com/consentgate/consentgate/internal/core/ports"
	"github.com/consentgate/consentgate/internal/infrastructure/metrics"
)

type contextKey string

const (
	// CtxPrincipal holds the authenticated domain.Principal.
	CtxPrincipal contextKey = "principal"
	// CtxAdmittedAt holds the admission timestamp.
	CtxAdmittedAt contextKey = "admitted_at"
)

// RouteOptions is the per-route admission table entry.
type RouteOptions struct {
	// Methods is the allowed verb set; anything else is rejected with 405
	// and an Allow header.
	Methods []string
	// RequireAuth demands a resolvable bearer token.
	RequireAuth bool
	// RateLimit selects the category budget; empty disables the check.
	RateLimit RateCategory
	// Origins is OriginWildcard or the single allow-listed hostname.
	Origins string
	// BindSiteOrigin re-checks the browser origin against the
	// authenticated site's own domain after token resolution.
	BindSiteOrigin bool
}

// Admission runs the ordered admission pipeline in front of every route
// handler: method check, origin check, token resolution, rate limit. The
// rate limit verdict outranks an authentication failure so that guessed
// credentials cannot be probed faster than the client's own budget.
type Admission struct {
	tokens  ports.TokenResolver
	limiter *RateLimiter
	logger  *slog.Logger
}

// NewAdmission wires the admission pipeline. Dependencies are constructed
// once at process start and injected so tests can substitute fresh
// instances per case.
func NewAdmission(tokens ports.TokenResolver, limiter *RateLimiter, logger *slog.Logger) *Admission {
	return &Admission{tokens: tokens, limiter: limiter, logger: logger}
}

// Wrap applies the pipeline to a route handler according to its options.
func (a *Admission) Wrap(route string, opts RouteOptions, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 1. Method check.
		if !methodAllowed(r.Method, opts.Methods) {
			w.Header().Set("Allow", strings.Join(opts.Methods, ", "))
			a.reject(w, r, route, domain.ErrMethodNotAllowed)
			return
		}

		origin, referer := requestOrigin(r)

		// 2. Static origin check.
		if opts.Origins != "" && !originAllowed(origin, referer, opts.Origins) {
			a.reject(w, r, route, domain.ErrOriginForbidden)
			return
		}

		token := bearerToken(r)
		ctx := r.Context()

		// 3. Token resolution. Runs before the rate limit so the limiter
		// can key on a verified identity; a failed resolution is held back
		// until the request has been charged against the client IP budget.
		var principal domain.Principal
		var resolveErr *domain.AuthError
		resolved := false
		if opts.RequireAuth {
			p, err := a.tokens.Resolve(ctx, token)
			if err != nil {
				if !errors.As(err, &resolveErr) {
					resolveErr = domain.ErrStoreUnavailable.WithCause(err)
				}
			} else {
				principal = p
				resolved = true
			}
		}

		// 4. Rate limit, keyed by the resolved principal when there is
		// one, by client IP otherwise. An unverified token never becomes
		// a key: a client must not get to pick its own budget.
		if opts.RateLimit != "" {
			identity := "ip:" + clientIP(r)
			if resolved {
				identity = "id:" + principal.RateKey()
			}
			decision := a.limiter.Allow(identity, opts.RateLimit)
			setRateHeaders(w, decision)
			if !decision.Allowed {
				metrics.RateLimitRejections.WithLabelValues(string(opts.RateLimit)).Inc()
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfterSeconds(decision.RetryAfter)))
				a.reject(w, r, route, domain.ErrRateLimited)
				return
			}
		}

		if opts.RequireAuth {
			if resolveErr != nil {
				metrics.AuthFailures.WithLabelValues(resolveErr.Kind).Inc()
				a.reject(w, r, route, resolveErr)
				return
			}

			// 5. Site-bound origin check: a browser request must come from
			// the site its token belongs to.
			if opts.BindSiteOrigin && principal.Kind == domain.PrincipalSite &&
				!originAllowed(origin, referer, principal.Domain) {
				a.reject(w, r, route, domain.ErrOriginForbidden)
				return
			}

			ctx = context.WithValue(ctx, CtxPrincipal, principal)
		}

		ctx = context.WithValue(ctx, CtxAdmittedAt, time.Now())
		metrics.Admissions.WithLabelValues(route, "admitted").Inc()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Admission) reject(w http.ResponseWriter, r *http.Request, route string, authErr *domain.AuthError) {
	metrics.Admissions.WithLabelValues(route, authErr.Kind).Inc()
	a.logger.Warn("request rejected",
		"route", route,
		"method", r.Method,
		"kind", authErr.Kind,
		"principal_class", principalClass(r.Context()),
	)
	writeError(w, authErr)
}

// RequireAdmin guards operator-only handlers behind an already-resolved
// admin principal.
func RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok || principal.Kind != domain.PrincipalAdmin {
			writeError(w, domain.ErrAdminOnly)
			return
		}
		next(w, r)
	}
}

// PrincipalFromContext extracts the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	principal, ok := ctx.Value(CtxPrincipal).(domain.Principal)
	return principal, ok
}

func principalClass(ctx context.Context) string {
	if principal, ok := PrincipalFromContext(ctx); ok {
		return string(principal.Kind)
	}
	return "anonymous"
}

func methodAllowed(method string, allowed []string) bool {
	for _, m := range allowed {
		if m == method {
			return true
		}
	}
	return false
}

// bearerToken extracts the credential from the Authorization header, or
// from the token query parameter for read-only plugin calls.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if r.Method == http.MethodGet {
		return r.URL.Query().Get("token")
	}
	return ""
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func setRateHeaders(w http.ResponseWriter, d Decision) {
	if d.Limit == 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", d.Limit))
	w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", d.Remaining))
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}
