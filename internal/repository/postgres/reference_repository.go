// Package postgres holds the reference-data and audit-record stores
// backing the fraud engine, on top of the shared lib/pq connection.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"fraudengine/internal/client"
	"fraudengine/internal/models"
)

var ErrNotFound = fmt.Errorf("postgres: reference row not found")

// ReferenceRepository is the system of record for C3's reference
// tables. All four sources share the same is_active + source_version
// refresh pattern; one repository method per table keeps the SQL
// explicit rather than generic.
type ReferenceRepository struct {
	db *client.PostgresClient
}

func NewReferenceRepository(db *client.PostgresClient) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

func (r *ReferenceRepository) LookupTorNode(ctx context.Context, ip string) (*models.TorExitNode, error) {
	var n models.TorExitNode
	err := r.db.DB.QueryRowContext(ctx,
		`SELECT ip, is_active, source_version, last_seen_at FROM tor_exit_nodes WHERE ip = $1 AND is_active`, ip,
	).Scan(&n.IP, &n.IsActive, &n.SourceVersion, &n.LastSeenAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return &n, err
}

func (r *ReferenceRepository) LookupDisposableDomain(ctx context.Context, domain string) (*models.DisposableEmailDomain, error) {
	var d models.DisposableEmailDomain
	err := r.db.DB.QueryRowContext(ctx,
		`SELECT domain, is_active, source_version, last_seen_at FROM disposable_email_domains WHERE domain = $1 AND is_active`, domain,
	).Scan(&d.Domain, &d.IsActive, &d.SourceVersion, &d.LastSeenAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return &d, err
}

func (r *ReferenceRepository) LookupUserAgent(ctx context.Context, pattern string) (*models.KnownUserAgent, error) {
	var ua models.KnownUserAgent
	err := r.db.DB.QueryRowContext(ctx,
		`SELECT pattern, category, risk_weight, is_active, source_version, last_seen_at FROM known_user_agents WHERE pattern = $1 AND is_active`, pattern,
	).Scan(&ua.Pattern, &ua.Category, &ua.RiskWeight, &ua.IsActive, &ua.SourceVersion, &ua.LastSeenAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return &ua, err
}

// ListActiveASNs returns every active ASN row for the in-process
// cidrtool.ASNRanger to load. Called once, at factory startup.
func (r *ReferenceRepository) ListActiveASNs(ctx context.Context) ([]models.ASN, error) {
	rows, err := r.db.DB.QueryContext(ctx,
		`SELECT asn, name, ip_ranges, risk_category, risk_weight, is_datacenter, is_vpn_or_proxy, is_active, source_version, last_seen_at FROM asns WHERE is_active`)
	if err != nil {
		return nil, fmt.Errorf("list active asns: %w", err)
	}
	defer rows.Close()

	var out []models.ASN
	for rows.Next() {
		var a models.ASN
		if err := rows.Scan(&a.ASNumber, &a.Name, pq.Array(&a.IPRanges), &a.RiskCategory, &a.RiskWeight, &a.IsDatacenter, &a.IsVPNOrProxy, &a.IsActive, &a.SourceVersion, &a.LastSeenAt); err != nil {
			return nil, fmt.Errorf("scan asn row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *ReferenceRepository) LookupASNByNumber(ctx context.Context, asNumber int64) (*models.ASN, error) {
	var a models.ASN
	err := r.db.DB.QueryRowContext(ctx,
		`SELECT asn, name, ip_ranges, risk_category, risk_weight, is_datacenter, is_vpn_or_proxy, is_active, source_version, last_seen_at FROM asns WHERE asn = $1`, asNumber,
	).Scan(&a.ASNumber, &a.Name, pq.Array(&a.IPRanges), &a.RiskCategory, &a.RiskWeight, &a.IsDatacenter, &a.IsVPNOrProxy, &a.IsActive, &a.SourceVersion, &a.LastSeenAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return &a, err
}

func (r *ReferenceRepository) LookupBlacklist(ctx context.Context, field, indexHash string) (*models.BlacklistEntry, error) {
	var b models.BlacklistEntry
	err := r.db.DB.QueryRowContext(ctx,
		`SELECT index_hash, field, reason, created_by, created_at FROM blacklist_entries WHERE field = $1 AND index_hash = $2`,
		field, indexHash,
	).Scan(&b.IndexHash, &b.Field, &b.Reason, &b.CreatedBy, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return &b, err
}

func (r *ReferenceRepository) InsertBlacklist(ctx context.Context, b *models.BlacklistEntry) error {
	_, err := r.db.DB.ExecContext(ctx,
		`INSERT INTO blacklist_entries (index_hash, field, reason, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (field, index_hash) DO UPDATE SET reason = EXCLUDED.reason`,
		b.IndexHash, b.Field, b.Reason, b.CreatedBy, b.CreatedAt)
	return err
}

// UpsertTorNodes performs the refresh pipeline's flip-before-upsert
// write for the tor_exit_nodes table inside a single transaction: mark
// every existing row inactive, upsert the freshly parsed set as
// active, then sweep rows that have been inactive past the retention
// window.
func (r *ReferenceRepository) UpsertTorNodes(ctx context.Context, nodes []models.TorExitNode, sourceVersion string, retention time.Duration) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE tor_exit_nodes SET is_active = false`); err != nil {
			return fmt.Errorf("deactivate tor nodes: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO tor_exit_nodes (ip, is_active, source_version, last_seen_at)
			VALUES ($1, true, $2, now())
			ON CONFLICT (ip) DO UPDATE SET is_active = true, source_version = $2, last_seen_at = now()`)
		if err != nil {
			return fmt.Errorf("prepare tor upsert: %w", err)
		}
		defer stmt.Close()
		for _, n := range nodes {
			if _, err := stmt.ExecContext(ctx, n.IP, sourceVersion); err != nil {
				return fmt.Errorf("upsert tor node %s: %w", n.IP, err)
			}
		}
		_, err = tx.ExecContext(ctx,
			`DELETE FROM tor_exit_nodes WHERE is_active = false AND last_seen_at < $1`,
			time.Now().Add(-retention))
		return err
	})
}

func (r *ReferenceRepository) UpsertDisposableDomains(ctx context.Context, domains []models.DisposableEmailDomain, sourceVersion string, retention time.Duration) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE disposable_email_domains SET is_active = false`); err != nil {
			return fmt.Errorf("deactivate disposable domains: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO disposable_email_domains (domain, is_active, source_version, last_seen_at)
			VALUES ($1, true, $2, now())
			ON CONFLICT (domain) DO UPDATE SET is_active = true, source_version = $2, last_seen_at = now()`)
		if err != nil {
			return fmt.Errorf("prepare disposable upsert: %w", err)
		}
		defer stmt.Close()
		for _, d := range domains {
			if _, err := stmt.ExecContext(ctx, d.Domain, sourceVersion); err != nil {
				return fmt.Errorf("upsert disposable domain %s: %w", d.Domain, err)
			}
		}
		_, err = tx.ExecContext(ctx,
			`DELETE FROM disposable_email_domains WHERE is_active = false AND last_seen_at < $1`,
			time.Now().Add(-retention))
		return err
	})
}

func (r *ReferenceRepository) UpsertASNs(ctx context.Context, asns []models.ASN, sourceVersion string, retention time.Duration) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE asns SET is_active = false`); err != nil {
			return fmt.Errorf("deactivate asns: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO asns (asn, name, ip_ranges, risk_category, risk_weight, is_datacenter, is_vpn_or_proxy, is_active, source_version, last_seen_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, true, $8, now())
			ON CONFLICT (asn) DO UPDATE SET name = $2, ip_ranges = $3, risk_category = $4, risk_weight = $5,
				is_datacenter = $6, is_vpn_or_proxy = $7, is_active = true, source_version = $8, last_seen_at = now()`)
		if err != nil {
			return fmt.Errorf("prepare asn upsert: %w", err)
		}
		defer stmt.Close()
		for _, a := range asns {
			if _, err := stmt.ExecContext(ctx, a.ASNumber, a.Name, pq.Array(a.IPRanges), a.RiskCategory, a.RiskWeight, a.IsDatacenter, a.IsVPNOrProxy, sourceVersion); err != nil {
				return fmt.Errorf("upsert asn %d: %w", a.ASNumber, err)
			}
		}
		_, err = tx.ExecContext(ctx,
			`DELETE FROM asns WHERE is_active = false AND last_seen_at < $1`,
			time.Now().Add(-retention))
		return err
	})
}

func (r *ReferenceRepository) UpsertUserAgents(ctx context.Context, agents []models.KnownUserAgent, sourceVersion string, retention time.Duration) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE known_user_agents SET is_active = false`); err != nil {
			return fmt.Errorf("deactivate user agents: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO known_user_agents (pattern, category, risk_weight, is_active, source_version, last_seen_at)
			VALUES ($1, $2, $3, true, $4, now())
			ON CONFLICT (pattern) DO UPDATE SET category = $2, risk_weight = $3, is_active = true, source_version = $4, last_seen_at = now()`)
		if err != nil {
			return fmt.Errorf("prepare user agent upsert: %w", err)
		}
		defer stmt.Close()
		for _, ua := range agents {
			if _, err := stmt.ExecContext(ctx, ua.Pattern, ua.Category, ua.RiskWeight, sourceVersion); err != nil {
				return fmt.Errorf("upsert user agent %s: %w", ua.Pattern, err)
			}
		}
		_, err = tx.ExecContext(ctx,
			`DELETE FROM known_user_agents WHERE is_active = false AND last_seen_at < $1`,
			time.Now().Add(-retention))
		return err
	})
}
