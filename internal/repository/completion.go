package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/punkmap/questledger/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

type heroToken struct {
	TokenID  uint64    `db:"token_id"`
	QuestID  string    `db:"quest_id"`
	Hero     string    `db:"hero"`
	ProofRef string    `db:"proof_ref"`
	MintedAt time.Time `db:"minted_at"`
}

// ApplyCompletion commits one accepted completion: bumps the quest and
// per-hero counters, records the minted token, and, when a pending proof
// was consumed, deletes it and pays its escrow to the quest owner. All of
// it happens in a single transaction so a failed completion changes
// nothing.
func (r *Repository) ApplyCompletion(ctx context.Context, comp *model.Completion, owner string, escrow *model.PendingProof) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Update("quests").
			Set("completion_count", squirrel.Expr("completion_count + 1")).
			Where(squirrel.Eq{"id": comp.QuestID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to increment completion count: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrQuestNotFound
		}

		query, args, err = squirrel.
			Insert("quest_completions").
			Columns("quest_id", "hero", "completions").
			Values(comp.QuestID, comp.Hero, 1).
			Suffix("ON CONFLICT (quest_id, hero) DO UPDATE SET completions = quest_completions.completions + 1").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to increment hero completions: %w", err)
		}

		query, args, err = squirrel.
			Insert("hero_tokens").
			SetMap(map[string]interface{}{
				"token_id":  comp.TokenID,
				"quest_id":  comp.QuestID,
				"hero":      comp.Hero,
				"proof_ref": comp.ProofRef,
				"minted_at": comp.CompletedAt,
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert hero token: %w", err)
		}

		if escrow != nil {
			amount, err := deleteProof(ctx, tx, comp.QuestID, comp.Hero)
			if err != nil {
				return err
			}
			if err := creditBalance(ctx, tx, owner, amount); err != nil {
				return err
			}
		}

		return nil
	})
}

// GetHeroToken returns the stored record for a minted token id.
func (r *Repository) GetHeroToken(ctx context.Context, tokenID uint64) (*model.HeroToken, error) {
	query, args, err := squirrel.
		Select("token_id", "quest_id", "hero", "proof_ref", "minted_at").
		From("hero_tokens").
		Where(squirrel.Eq{"token_id": tokenID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var t heroToken
	err = r.db.GetContext(ctx, &t, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get hero token: %w", err)
	}

	return &model.HeroToken{
		TokenID:  t.TokenID,
		QuestID:  t.QuestID,
		Hero:     t.Hero,
		ProofRef: t.ProofRef,
		MintedAt: t.MintedAt,
	}, nil
}
