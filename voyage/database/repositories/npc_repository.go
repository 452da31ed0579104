package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/voyagelabs/voyage-server/voyage/database/models"
)

type NPCRepository interface {
	GetRecent(ctx context.Context, playerID int64, npcID string, limit int) ([]*models.NPCMessage, error)
	Append(ctx context.Context, msg *models.NPCMessage) error
	// PruneOld keeps only the most recent keep rows for the pair.
	PruneOld(ctx context.Context, playerID int64, npcID string, keep int) error
	GetRelation(ctx context.Context, playerID int64, npcID string) (*models.NPCRelation, error)
	// BumpRelation increments interaction_count, creating the relation
	// row on first contact, and returns the new count.
	BumpRelation(ctx context.Context, playerID int64, npcID string) (int, error)
	SetSummary(ctx context.Context, playerID int64, npcID string, summary string) error
}

type npcRepository struct {
	db *bun.DB
}

func NewNPCRepository(db *bun.DB) NPCRepository {
	return &npcRepository{db: db}
}

func (r *npcRepository) GetRecent(ctx context.Context, playerID int64, npcID string, limit int) ([]*models.NPCMessage, error) {
	var msgs []*models.NPCMessage
	err := r.db.NewSelect().
		Model(&msgs).
		Where("player_id = ? AND npc_id = ?", playerID, npcID).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	// Oldest first for prompt assembly
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *npcRepository) Append(ctx context.Context, msg *models.NPCMessage) error {
	msg.CreatedAt = time.Now()
	_, err := r.db.NewInsert().Model(msg).Exec(ctx)
	return err
}

func (r *npcRepository) PruneOld(ctx context.Context, playerID int64, npcID string, keep int) error {
	_, err := r.db.NewDelete().
		Model((*models.NPCMessage)(nil)).
		Where("player_id = ? AND npc_id = ?", playerID, npcID).
		Where("id NOT IN (SELECT id FROM npc_messages WHERE player_id = ? AND npc_id = ? ORDER BY created_at DESC LIMIT ?)",
			playerID, npcID, keep).
		Exec(ctx)
	return err
}

func (r *npcRepository) GetRelation(ctx context.Context, playerID int64, npcID string) (*models.NPCRelation, error) {
	relation := new(models.NPCRelation)
	err := r.db.NewSelect().
		Model(relation).
		Where("player_id = ? AND npc_id = ?", playerID, npcID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return relation, nil
}

func (r *npcRepository) BumpRelation(ctx context.Context, playerID int64, npcID string) (int, error) {
	relation := &models.NPCRelation{
		PlayerID:         playerID,
		NPCID:            npcID,
		InteractionCount: 1,
		UpdatedAt:        time.Now(),
	}
	err := r.db.NewInsert().
		Model(relation).
		On("CONFLICT (player_id, npc_id) DO UPDATE").
		Set("interaction_count = nr.interaction_count + 1").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("interaction_count").
		Scan(ctx)
	if err != nil {
		return 0, err
	}
	return relation.InteractionCount, nil
}

func (r *npcRepository) SetSummary(ctx context.Context, playerID int64, npcID string, summary string) error {
	_, err := r.db.NewUpdate().
		Model((*models.NPCRelation)(nil)).
		Set("summary = ?", summary).
		Set("updated_at = ?", time.Now()).
		Where("player_id = ? AND npc_id = ?", playerID, npcID).
		Exec(ctx)
	return err
}
