// Package domain contains the core business entities for consentgate.
package domain

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// SiteStatus represents the lifecycle state of a registered site.
type SiteStatus string

const (
	// StatusActive means the site may authenticate and record consents.
	StatusActive SiteStatus = "active"
	// StatusInactive means the site is registered but disabled by its owner.
	StatusInactive SiteStatus = "inactive"
	// StatusSuspended means the site was disabled by an operator.
	StatusSuspended SiteStatus = "suspended"
)

// Site represents a registered customer website and its credentials.
// At most one non-deleted Site exists per domain; the database enforces
// this with a partial unique index.
type Site struct {
	ID               string         `json:"id"`
	Domain           string         `json:"domain"` // normalized hostname, e.g. shop.example
	APIToken         string         `json:"-"`      // never serialized in list responses
	Status           SiteStatus     `json:"status"`
	WPVersion        string         `json:"wp_version"`
	PluginVersion    string         `json:"plugin_version"`
	InstalledPlugins []string       `json:"installed_plugins"`
	DetectedForms    []DetectedForm `json:"detected_forms"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        *time.Time     `json:"deleted_at,omitempty"` // soft-delete marker
}

// DetectedForm describes a form discovered on the customer site by the
// WordPress plugin during registration.
type DetectedForm struct {
	Type       string `json:"type"`
	Count      int    `json:"count"`
	PluginName string `json:"plugin_name,omitempty"`
}

// Consent is a single visitor consent decision recorded against a site.
type Consent struct {
	ID         string          `json:"id"`
	SiteID     string          `json:"site_id"`
	VisitorID  string          `json:"visitor_id"`
	Categories map[string]bool `json:"categories"` // e.g. {"analytics": true, "marketing": false}
	IPHash     string          `json:"-"`          // SHA-256 of the client IP, never the raw address
	UserAgent  string          `json:"user_agent"`
	CreatedAt  time.Time       `json:"created_at"`
}

// AdminStats is the aggregate view served to the operator dashboard.
type AdminStats struct {
	TotalSites     int                `json:"total_sites"`
	SitesByStatus  map[SiteStatus]int `json:"sites_by_status"`
	ConsentsLast24 int                `json:"consents_last_24h"`
}

// NewSiteID returns a fresh site identifier: 16 random bytes, hex-encoded.
func NewSiteID() (string, error) {
	return randomHex(16)
}

// NewAPIToken returns a fresh site credential: 32 random bytes, hex-encoded.
// Tokens are generated once at site creation and never regenerated in place.
func NewAPIToken() (string, error) {
	return randomHex(32)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
