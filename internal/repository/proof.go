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

type pendingProof struct {
	QuestID        string    `db:"quest_id"`
	Hero           string    `db:"hero"`
	AmountEscrowed uint64    `db:"amount_escrowed"`
	ProofRef       string    `db:"proof_ref"`
	SubmittedAt    time.Time `db:"submitted_at"`
}

func (r *Repository) GetPendingProof(ctx context.Context, questID, hero string) (*model.PendingProof, error) {
	query, args, err := squirrel.
		Select("quest_id", "hero", "amount_escrowed", "proof_ref", "submitted_at").
		From("pending_proofs").
		Where(squirrel.Eq{
			"quest_id": questID,
			"hero":     hero,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var p pendingProof
	err = r.db.GetContext(ctx, &p, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProofNotFound
		}
		return nil, fmt.Errorf("failed to get pending proof: %w", err)
	}

	return &model.PendingProof{
		QuestID:        p.QuestID,
		Hero:           p.Hero,
		AmountEscrowed: p.AmountEscrowed,
		ProofRef:       p.ProofRef,
		SubmittedAt:    p.SubmittedAt,
	}, nil
}

// SubmitProof escrows the hero's payment and records the pending proof in
// one transaction. The hero's balance must cover the payment; unique
// constraints reject a second live proof per (quest, hero) and a proof ref
// already pending on the quest.
func (r *Repository) SubmitProof(ctx context.Context, p *model.PendingProof) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := debitBalance(ctx, tx, p.Hero, p.AmountEscrowed); err != nil {
			return err
		}

		query, args, err := squirrel.
			Insert("pending_proofs").
			SetMap(map[string]interface{}{
				"quest_id":        p.QuestID,
				"hero":            p.Hero,
				"amount_escrowed": p.AmountEscrowed,
				"proof_ref":       p.ProofRef,
				"submitted_at":    p.SubmittedAt,
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build proof insert query: %w", err)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if mapped := uniqueViolation(err); mapped != nil {
				return mapped
			}
			return fmt.Errorf("failed to insert pending proof: %w", err)
		}

		return nil
	})
}

// ResolveProof deletes the pending proof and pays its escrowed amount to
// payTo, atomically. It returns the amount transferred. payTo is the hero
// for refunds and the reclaiming caller for reclaims.
func (r *Repository) ResolveProof(ctx context.Context, questID, hero, payTo string) (uint64, error) {
	var amount uint64
	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		var err error
		amount, err = deleteProof(ctx, tx, questID, hero)
		if err != nil {
			return err
		}
		return creditBalance(ctx, tx, payTo, amount)
	})
	if err != nil {
		return 0, err
	}
	return amount, nil
}

func deleteProof(ctx context.Context, tx *sqlx.Tx, questID, hero string) (uint64, error) {
	query, args, err := squirrel.
		Delete("pending_proofs").
		Where(squirrel.Eq{
			"quest_id": questID,
			"hero":     hero,
		}).
		Suffix("RETURNING amount_escrowed").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var amount uint64
	err = tx.GetContext(ctx, &amount, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrProofNotFound
		}
		return 0, fmt.Errorf("failed to delete pending proof: %w", err)
	}

	return amount, nil
}
