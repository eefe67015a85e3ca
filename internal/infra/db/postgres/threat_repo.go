package postgres

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

// Save inserts or updates a threat item
func (r *ThreatRepository) Save(ctx context.Context, it *domain.Item) error {
	const q = `
INSERT INTO threat_items
  (id, tenant_id, title, description, source, fetched_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
  title=EXCLUDED.title,
  description=EXCLUDED.description,
  source=EXCLUDED.source,
  fetched_at=EXCLUDED.fetched_at;
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
WHERE tenant_id=$1 AND id=$2 LIMIT 1;
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
WHERE tenant_id=$1 ORDER BY fetched_at DESC, id DESC LIMIT $2;
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
