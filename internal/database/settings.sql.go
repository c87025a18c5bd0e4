package database

import "context"

const getSettings = `SELECT tenant_id, data, updated_at
FROM settings
WHERE tenant_id = $1`

func (q *Queries) GetSettings(ctx context.Context, tenantID string) (Setting, error) {
	var s Setting
	err := q.db.QueryRow(ctx, getSettings, tenantID).Scan(&s.TenantID, &s.Data, &s.UpdatedAt)
	return s, err
}

const upsertSettings = `INSERT INTO settings (tenant_id, data)
VALUES ($1, $2)
ON CONFLICT (tenant_id) DO UPDATE SET
    data       = EXCLUDED.data,
    updated_at = now()
RETURNING tenant_id, data, updated_at`

type UpsertSettingsParams struct {
	TenantID string
	Data     []byte
}

func (q *Queries) UpsertSettings(ctx context.Context, arg UpsertSettingsParams) (Setting, error) {
	var s Setting
	err := q.db.QueryRow(ctx, upsertSettings, arg.TenantID, arg.Data).Scan(&s.TenantID, &s.Data, &s.UpdatedAt)
	return s, err
}
