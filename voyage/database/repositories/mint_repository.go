package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/voyagelabs/voyage-server/voyage/database/models"
)

type MintRepository interface {
	GetByWallet(ctx context.Context, wallet string) (*models.ShipMintRecord, error)
	// InsertIfAbsent creates the wallet's record unless one exists; the
	// existing row is returned either way.
	InsertIfAbsent(ctx context.Context, record *models.ShipMintRecord) (*models.ShipMintRecord, error)
	// FillMissing completes an existing record without clobbering
	// fields a racing confirm already wrote.
	FillMissing(ctx context.Context, wallet string, signature, asset, metadataURI string) (*models.ShipMintRecord, error)
}

type mintRepository struct {
	db *bun.DB
}

func NewMintRepository(db *bun.DB) MintRepository {
	return &mintRepository{db: db}
}

func (r *mintRepository) GetByWallet(ctx context.Context, wallet string) (*models.ShipMintRecord, error) {
	record := new(models.ShipMintRecord)
	err := r.db.NewSelect().
		Model(record).
		Where("wallet = ?", wallet).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

func (r *mintRepository) InsertIfAbsent(ctx context.Context, record *models.ShipMintRecord) (*models.ShipMintRecord, error) {
	record.CreatedAt = time.Now()
	_, err := r.db.NewInsert().
		Model(record).
		On("CONFLICT (wallet) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	return r.GetByWallet(ctx, record.Wallet)
}

func (r *mintRepository) FillMissing(ctx context.Context, wallet, signature, asset, metadataURI string) (*models.ShipMintRecord, error) {
	_, err := r.db.NewUpdate().
		Model((*models.ShipMintRecord)(nil)).
		Set("signature = COALESCE(NULLIF(signature, ''), ?)", signature).
		Set("asset_address = COALESCE(NULLIF(asset_address, ''), ?)", asset).
		Set("metadata_uri = COALESCE(NULLIF(metadata_uri, ''), ?)", metadataURI).
		Set("status = ?", models.MintStatusConfirmed).
		Set("minted_at = COALESCE(minted_at, ?)", time.Now()).
		Where("wallet = ?", wallet).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	return r.GetByWallet(ctx, wallet)
}
