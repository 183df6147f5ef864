package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/consentgate/consentgate/internal/core/domain"
)

const pgUniqueViolation = "23505"

const siteColumns = `id, domain, api_token, status, wp_version, plugin_version, installed_plugins, detected_forms, created_at, updated_at, deleted_at`

// PostgresRepository implements ports.SiteRepository and
// ports.ConsentRepository using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates and returns a new PostgresRepository instance.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetSiteByToken(ctx context.Context, token string) (*domain.Site, error) {
	query := `SELECT ` + siteColumns + ` FROM sites
	          WHERE api_token = $1 AND status = 'active' AND deleted_at IS NULL`
	return r.getSite(ctx, query, token)
}

func (r *PostgresRepository) GetSiteByID(ctx context.Context, id string) (*domain.Site, error) {
	query := `SELECT ` + siteColumns + ` FROM sites WHERE id = $1 AND deleted_at IS NULL`
	return r.getSite(ctx, query, id)
}

func (r *PostgresRepository) GetSiteByDomain(ctx context.Context, host string) (*domain.Site, error) {
	query := `SELECT ` + siteColumns + ` FROM sites WHERE LOWER(domain) = LOWER($1) AND deleted_at IS NULL`
	return r.getSite(ctx, query, host)
}

func (r *PostgresRepository) getSite(ctx context.Context, query string, arg interface{}) (*domain.Site, error) {
	var (
		s                domain.Site
		installedPlugins []byte
		detectedForms    []byte
	)
	errRow := r.db.QueryRowContext(ctx, query, arg).Scan(
		&s.ID, &s.Domain, &s.APIToken, &s.Status, &s.WPVersion, &s.PluginVersion,
		&installedPlugins, &detectedForms, &s.CreatedAt, &s.UpdatedAt, &s.DeletedAt,
	)
	if errors.Is(errRow, sql.ErrNoRows) {
		return nil, nil
	}
	if errRow != nil {
		return nil, errRow
	}
	if err := unmarshalSiteJSON(&s, installedPlugins, detectedForms); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PostgresRepository) CreateSite(ctx context.Context, site *domain.Site) error {
	installedPlugins, detectedForms, errMarshal := marshalSiteJSON(site)
	if errMarshal != nil {
		return errMarshal
	}

	query := `INSERT INTO sites (id, domain, api_token, status, wp_version, plugin_version, installed_plugins, detected_forms, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, query,
		site.ID, site.Domain, site.APIToken, site.Status, site.WPVersion, site.PluginVersion,
		installedPlugins, detectedForms, site.CreatedAt, site.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("insert site %s: %w", site.Domain, domain.ErrDomainConflict)
		}
		return err
	}
	return nil
}

func (r *PostgresRepository) UpdateSite(ctx context.Context, site *domain.Site) error {
	installedPlugins, detectedForms, errMarshal := marshalSiteJSON(site)
	if errMarshal != nil {
		return errMarshal
	}

	query := `UPDATE sites SET domain = $1, wp_version = $2, plugin_version = $3,
	          installed_plugins = $4, detected_forms = $5, updated_at = $6
	          WHERE id = $7 AND deleted_at IS NULL`
	_, err := r.db.ExecContext(ctx, query,
		site.Domain, site.WPVersion, site.PluginVersion,
		installedPlugins, detectedForms, site.UpdatedAt, site.ID,
	)
	return err
}

func (r *PostgresRepository) UpdateSiteStatus(ctx context.Context, id string, status domain.SiteStatus) error {
	query := `UPDATE sites SET status = $1, updated_at = $2 WHERE id = $3 AND deleted_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	return err
}

func (r *PostgresRepository) SoftDeleteSite(ctx context.Context, id string) error {
	query := `UPDATE sites SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, time.Now(), id)
	return err
}

func (r *PostgresRepository) ListSites(ctx context.Context, status domain.SiteStatus) ([]domain.Site, error) {
	query := `SELECT ` + siteColumns + ` FROM sites WHERE deleted_at IS NULL`
	var rows *sql.Rows
	var errQuery error

	if status != "" {
		query += " AND status = $1 ORDER BY created_at DESC"
		rows, errQuery = r.db.QueryContext(ctx, query, status)
	} else {
		query += " ORDER BY created_at DESC"
		rows, errQuery = r.db.QueryContext(ctx, query)
	}

	if errQuery != nil {
		return nil, errQuery
	}
	defer func() {
		if errClose := rows.Close(); errClose != nil {
			log.Printf("failed to close rows: %v", errClose)
		}
	}()

	var sites []domain.Site
	for rows.Next() {
		var (
			s                domain.Site
			installedPlugins []byte
			detectedForms    []byte
		)
		if errScan := rows.Scan(
			&s.ID, &s.Domain, &s.APIToken, &s.Status, &s.WPVersion, &s.PluginVersion,
			&installedPlugins, &detectedForms, &s.CreatedAt, &s.UpdatedAt, &s.DeletedAt,
		); errScan != nil {
			return nil, errScan
		}
		if err := unmarshalSiteJSON(&s, installedPlugins, detectedForms); err != nil {
			return nil, err
		}
		sites = append(sites, s)
	}
	return sites, rows.Err()
}

func (r *PostgresRepository) CountSitesByStatus(ctx context.Context) (map[domain.SiteStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM sites WHERE deleted_at IS NULL GROUP BY status`
	rows, errQuery := r.db.QueryContext(ctx, query)
	if errQuery != nil {
		return nil, errQuery
	}
	defer func() {
		if errClose := rows.Close(); errClose != nil {
			log.Printf("failed to close rows: %v", errClose)
		}
	}()

	counts := make(map[domain.SiteStatus]int)
	for rows.Next() {
		var status domain.SiteStatus
		var n int
		if errScan := rows.Scan(&status, &n); errScan != nil {
			return nil, errScan
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *PostgresRepository) SaveConsent(ctx context.Context, consent *domain.Consent) error {
	categories, errMarshal := json.Marshal(consent.Categories)
	if errMarshal != nil {
		return errMarshal
	}

	query := `INSERT INTO consents (id, site_id, visitor_id, categories, ip_hash, user_agent, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query,
		consent.ID, consent.SiteID, consent.VisitorID, categories,
		consent.IPHash, consent.UserAgent, consent.CreatedAt,
	)
	return err
}

func (r *PostgresRepository) CountConsentsSince(ctx context.Context, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM consents WHERE created_at >= $1`
	var n int
	if err := r.db.QueryRowContext(ctx, query, since).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func marshalSiteJSON(site *domain.Site) ([]byte, []byte, error) {
	installedPlugins, err := json.Marshal(site.InstalledPlugins)
	if err != nil {
		return nil, nil, err
	}
	detectedForms, err := json.Marshal(site.DetectedForms)
	if err != nil {
		return nil, nil, err
	}
	return installedPlugins, detectedForms, nil
}

func unmarshalSiteJSON(site *domain.Site, installedPlugins, detectedForms []byte) error {
	if len(installedPlugins) > 0 {
		if err := json.Unmarshal(installedPlugins, &site.InstalledPlugins); err != nil {
			return err
		}
	}
	if len(detectedForms) > 0 {
		if err := json.Unmarshal(detectedForms, &site.DetectedForms); err != nil {
			return err
		}
	}
	return nil
}
