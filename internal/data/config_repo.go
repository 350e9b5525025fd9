package data

import (
	"context"
	"database/sql"
	"errors"

	"github.com/target/queuectl/internal/domain/model"
	apperrors "github.com/target/queuectl/internal/errors"
)

// GetConfig returns the stored value for key, or the key's default when no row exists.
func (r *JobRepo) GetConfig(ctx context.Context, key model.ConfigKey) (int, error) {
	if !key.Valid() {
		return 0, invalidKey(key)
	}

	var value int
	err := r.DB.QueryRowContext(ctx, `SELECT value FROM queue_config WHERE key = $1`, string(key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return key.Default(), nil
	}
	if err != nil {
		return 0, wrapf(apperrors.MapDBError(err), "get config %s", key)
	}
	return value, nil
}

// SetConfig upserts a validated value for key.
func (r *JobRepo) SetConfig(ctx context.Context, key model.ConfigKey, value int) error {
	if !key.Valid() {
		return invalidKey(key)
	}
	if err := key.ValidateValue(value); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "set config")
	}

	if _, err := r.DB.ExecContext(ctx, `
    INSERT INTO queue_config (key, value, updated_at)
    VALUES ($1, $2, $3)
    ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
  `, string(key), value, r.now()); err != nil {
		return wrapf(apperrors.MapDBError(err), "set config %s", key)
	}

	r.logger.InfoContext(ctx, "config updated", "key", string(key), "value", value)
	return nil
}

// ListConfig returns every supported key with its effective value.
func (r *JobRepo) ListConfig(ctx context.Context) (map[model.ConfigKey]int, error) {
	out := make(map[model.ConfigKey]int, len(model.ConfigKeys))
	for _, key := range model.ConfigKeys {
		out[key] = key.Default()
	}

	rows, err := r.DB.QueryContext(ctx, `SELECT key, value FROM queue_config`)
	if err != nil {
		return nil, wrapf(apperrors.MapDBError(err), "list config")
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var value int
		if err := rows.Scan(&key, &value); err != nil {
			return nil, wrapf(err, "scan config")
		}
		if k := model.ConfigKey(key); k.Valid() {
			out[k] = value
		}
	}
	if err := rows.Err(); err != nil {
		return nil, wrapf(err, "list config")
	}
	return out, nil
}

func invalidKey(key model.ConfigKey) error {
	return apperrors.Wrapf(model.ErrInvalidConfigKey, apperrors.ErrCodeValidation, "config key %q", string(key))
}
