package domain

// PrincipalKind distinguishes the two token classes.
type PrincipalKind string

const (
	// PrincipalAdmin is the process-wide operator identity.
	PrincipalAdmin PrincipalKind = "admin"
	// PrincipalSite is a registered customer site identity.
	PrincipalSite PrincipalKind = "site"
)

// Principal is the authenticated identity bound to a request. It is
// produced fresh per request by token resolution and never persisted.
type Principal struct {
	Kind   PrincipalKind `json:"kind"`
	User   string        `json:"user,omitempty"`
	SiteID string        `json:"site_id,omitempty"`
	Domain string        `json:"domain,omitempty"`
	Status SiteStatus    `json:"status,omitempty"`
}

// AdminPrincipal returns the operator principal.
func AdminPrincipal() Principal {
	return Principal{Kind: PrincipalAdmin, User: "admin"}
}

// SitePrincipal derives a principal from a resolved site row.
func SitePrincipal(s *Site) Principal {
	return Principal{
		Kind:   PrincipalSite,
		SiteID: s.ID,
		Domain: s.Domain,
		Status: s.Status,
	}
}

// RateKey returns the rate-limit identity for the principal: "admin" for
// the operator, the site id otherwise.
func (p Principal) RateKey() string {
	if p.Kind == PrincipalAdmin {
		return "admin"
	}
	return p.SiteID
}
