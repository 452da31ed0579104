package repositories

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"github.com/voyagelabs/voyage-server/voyage/database/models"
)

type ConfigRepository interface {
	GetMany(ctx context.Context, keys []string) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
}

type configRepository struct {
	db *bun.DB
}

func NewConfigRepository(db *bun.DB) ConfigRepository {
	return &configRepository{db: db}
}

func (r *configRepository) GetMany(ctx context.Context, keys []string) (map[string]string, error) {
	if len(keys) == 0 {
		return map[string]string{}, nil
	}
	var rows []*models.GameConfig
	err := r.db.NewSelect().
		Model(&rows).
		Where("key IN (?)", bun.In(keys)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

func (r *configRepository) Set(ctx context.Context, key, value string) error {
	row := &models.GameConfig{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	_, err := r.db.NewInsert().
		Model(row).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}
