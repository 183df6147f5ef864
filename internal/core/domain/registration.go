package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// RegistrationRequest is the sanitized payload of a site registration call.
type RegistrationRequest struct {
	Domain           string         `json:"domain"` // http/https URL or bare hostname
	SiteID           string         `json:"site_id,omitempty"`
	WPVersion        string         `json:"wp_version"`
	PluginVersion    string         `json:"plugin_version"`
	InstalledPlugins []string       `json:"installed_plugins"`
	DetectedForms    []DetectedForm `json:"detected_forms"`
}

// RegistrationOutcome tells the caller whether a registration created,
// updated, or matched an existing site.
type RegistrationOutcome string

const (
	OutcomeCreated  RegistrationOutcome = "created"
	OutcomeUpdated  RegistrationOutcome = "updated"
	OutcomeExisting RegistrationOutcome = "existing"
)

// RegistrationResult pairs the reconciled site with how it was reconciled.
type RegistrationResult struct {
	Site    *Site
	Outcome RegistrationOutcome
}

var hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

// NormalizeDomain reduces a registration domain value to a lowercase
// hostname. It accepts a full http/https URL or a bare hostname; both
// dedupe to the same site row.
func NormalizeDomain(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("domain cannot be empty")
	}
	host := raw
	if strings.Contains(raw, "://") {
		normalized := SanitizeURL(raw)
		if normalized == "" {
			return "", fmt.Errorf("domain must be a valid http or https URL")
		}
		host = strings.TrimPrefix(strings.TrimPrefix(normalized, "https://"), "http://")
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if len(host) > 253 {
		return "", fmt.Errorf("domain exceeds 253 characters")
	}
	if !hostnameRegex.MatchString(host) {
		return "", fmt.Errorf("domain contains invalid characters")
	}
	return host, nil
}

// Validate checks the request shape and returns per-field errors. The
// payload is assumed to be sanitized already.
func (r *RegistrationRequest) Validate() map[string]string {
	fieldErrs := make(map[string]string)
	if _, err := NormalizeDomain(r.Domain); err != nil {
		fieldErrs["domain"] = err.Error()
	}
	if r.SiteID != "" && len(r.SiteID) != 32 {
		fieldErrs["site_id"] = "site_id must be a 32-character hex identifier"
	}
	for i, f := range r.DetectedForms {
		if f.Count < 0 {
			fieldErrs[fmt.Sprintf("detected_forms[%d].count", i)] = "count cannot be negative"
		}
	}
	if len(fieldErrs) == 0 {
		return nil
	}
	return fieldErrs
}

// Sanitize scrubs every free-text field in place.
func (r *RegistrationRequest) Sanitize() {
	r.Domain = SanitizeString(r.Domain)
	r.SiteID = SanitizeString(r.SiteID)
	r.WPVersion = SanitizeString(r.WPVersion)
	r.PluginVersion = SanitizeString(r.PluginVersion)
	for i, p := range r.InstalledPlugins {
		r.InstalledPlugins[i] = SanitizeString(p)
	}
	for i := range r.DetectedForms {
		r.DetectedForms[i].Type = SanitizeString(r.DetectedForms[i].Type)
		r.DetectedForms[i].PluginName = SanitizeString(r.DetectedForms[i].PluginName)
	}
}
