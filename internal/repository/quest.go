package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/punkmap/questledger/internal/model"

	"github.com/Masterminds/squirrel"
)

type quest struct {
	ID                  string    `db:"id"`
	Ordinal             uint64    `db:"ordinal"`
	RewardPerCompletion uint64    `db:"reward_per_completion"`
	StartTime           int64     `db:"start_time"`
	EndTime             int64     `db:"end_time"`
	SupplyLimit         uint64    `db:"supply_limit"`
	RepeatLimit         uint64    `db:"repeat_limit"`
	MetadataRef         string    `db:"metadata_ref"`
	Owner               string    `db:"owner_id"`
	CompletionCount     uint64    `db:"completion_count"`
	ReclaimApproved     bool      `db:"reclaim_approved"`
	CreatedAt           time.Time `db:"created_at"`
}

func (q *quest) toModel() *model.Quest {
	return &model.Quest{
		ID:                  q.ID,
		Ordinal:             q.Ordinal,
		RewardPerCompletion: q.RewardPerCompletion,
		StartTime:           q.StartTime,
		EndTime:             q.EndTime,
		SupplyLimit:         q.SupplyLimit,
		RepeatLimit:         q.RepeatLimit,
		MetadataRef:         q.MetadataRef,
		Owner:               q.Owner,
		CompletionCount:     q.CompletionCount,
		ReclaimApproved:     q.ReclaimApproved,
		CreatedAt:           q.CreatedAt,
	}
}

// CreateQuest inserts a new quest record and fills in the ordinal assigned
// by the database. A duplicate id fails with ErrAlreadyExists and changes
// nothing.
func (r *Repository) CreateQuest(ctx context.Context, q *model.Quest) error {
	query, args, err := squirrel.
		Insert("quests").
		SetMap(map[string]interface{}{
			"id":                    q.ID,
			"reward_per_completion": q.RewardPerCompletion,
			"start_time":            q.StartTime,
			"end_time":              q.EndTime,
			"supply_limit":          q.SupplyLimit,
			"repeat_limit":          q.RepeatLimit,
			"metadata_ref":          q.MetadataRef,
			"owner_id":              q.Owner,
			"completion_count":      0,
			"reclaim_approved":      false,
			"created_at":            time.Now().UTC(),
		}).
		Suffix("RETURNING ordinal").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build quest insert query: %w", err)
	}

	err = r.db.GetContext(ctx, &q.Ordinal, query, args...)
	if err != nil {
		if mapped := uniqueViolation(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to insert quest: %w", err)
	}

	return nil
}

func (r *Repository) GetQuest(ctx context.Context, id string) (*model.Quest, error) {
	query, args, err := squirrel.
		Select("id", "ordinal", "reward_per_completion", "start_time", "end_time",
			"supply_limit", "repeat_limit", "metadata_ref", "owner_id",
			"completion_count", "reclaim_approved", "created_at").
		From("quests").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var q quest
	err = r.db.GetContext(ctx, &q, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuestNotFound
		}
		return nil, fmt.Errorf("failed to get quest: %w", err)
	}

	return q.toModel(), nil
}

func (r *Repository) SetReclaimApproved(ctx context.Context, id string, approved bool) error {
	query, args, err := squirrel.
		Update("quests").
		Set("reclaim_approved", approved).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update reclaim approval: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrQuestNotFound
	}

	return nil
}

// HeroCompletions returns how many times the hero has completed the quest.
// An absent counter row means zero.
func (r *Repository) HeroCompletions(ctx context.Context, questID, hero string) (uint64, error) {
	query, args, err := squirrel.
		Select("completions").
		From("quest_completions").
		Where(squirrel.Eq{
			"quest_id": questID,
			"hero":     hero,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var count uint64
	err = r.db.GetContext(ctx, &count, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get hero completions: %w", err)
	}

	return count, nil
}

// QuestsEndedBetween returns quests whose window closed inside (from, to].
// The expiry sweeper uses it to emit observational events.
func (r *Repository) QuestsEndedBetween(ctx context.Context, from, to time.Time) ([]*model.Quest, error) {
	query, args, err := squirrel.
		Select("id", "ordinal", "reward_per_completion", "start_time", "end_time",
			"supply_limit", "repeat_limit", "metadata_ref", "owner_id",
			"completion_count", "reclaim_approved", "created_at").
		From("quests").
		Where(squirrel.And{
			squirrel.Gt{"end_time": from.Unix()},
			squirrel.LtOrEq{"end_time": to.Unix()},
		}).
		OrderBy("end_time").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var dbQuests []*quest
	err = r.db.SelectContext(ctx, &dbQuests, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list ended quests: %w", err)
	}

	quests := make([]*model.Quest, len(dbQuests))
	for i, q := range dbQuests {
		quests[i] = q.toModel()
	}

	return quests, nil
}
