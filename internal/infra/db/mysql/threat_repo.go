package mysql

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/gridwatch/capri/internal/domain/threats"
)

type ThreatRepository struct {
	db *sql.DB
}

func NewThreatRepository(db *sql.DB) *ThreatRepository {
	return &ThreatRepository{db: db}
}

// Save insert/update threat item
func (r *ThreatRepository) Save(ctx context.Context, it *domain.Item) error {
	const q = `
INSERT INTO threat_items
  (id, tenant_id, title, description, source, fetched_at)
VALUES (?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  title=VALUES(title), description=VALUES(description), source=VALUES(source), fetched_at=VALUES(fetched_at);
`
	tenant := stringOrDash(it.TenantID)
	fetched := it.FetchedAt
	if fetched.IsZero() {
		fetched = time.Now()
	}

	_, err := r.db.ExecContext(ctx, q, it.ID, tenant, it.Title, it.Description, it.Source, fetched)
	return err
}

// Get by ID + Tenant
func (r *ThreatRepository) Get(ctx context.Context, tenant string, id domain.ItemID) (*domain.Item, error) {
	const q = `
SELECT id, tenant_id, title, description, source, fetched_at
FROM threat_items
WHERE tenant_id=? AND id=? LIMIT 1;
`
	row := r.db.QueryRowContext(ctx, q, tenant, id)

	var it domain.Item
	if err := row.Scan(&it.ID, &it.TenantID, &it.Title, &it.Description, &it.Source, &it.FetchedAt); err != nil {
		return nil, err
	}
	return &it, nil
}

// Latest items per tenant
func (r *ThreatRepository) Latest(ctx context.Context, tenant string, limit int) ([]*domain.Item, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, tenant_id, title, description, source, fetched_at
FROM threat_items
WHERE tenant_id=? ORDER BY fetched_at DESC, id DESC LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, tenant, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Item
	for rows.Next() {
		var it domain.Item
		if err := rows.Scan(&it.ID, &it.TenantID, &it.Title, &it.Description, &it.Source, &it.FetchedAt); err != nil {
			return nil, err
		}
		out = append(out, &it)
	}
	return out, rows.Err()
}
