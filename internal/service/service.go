package service

import (
	"context"
	"errors"
	"time"

	"github.com/punkmap/questledger/internal/model"
	"github.com/punkmap/questledger/pkg/token"
)

var (
	ErrQuestNotFound       = errors.New("quest not found")
	ErrQuestAlreadyExists  = errors.New("quest already exists")
	ErrInvalidQuestID      = errors.New("invalid quest id")
	ErrInvalidWindow       = errors.New("quest end time must be after start time")
	ErrUnauthorized        = errors.New("caller is not the quest owner")
	ErrQuestNotInProgress  = errors.New("quest is not in progress")
	ErrSupplyExhausted     = errors.New("quest supply exhausted")
	ErrRepeatLimitReached  = errors.New("hero repeat limit reached")
	ErrAttemptIndexBad     = errors.New("attempt index must equal the hero's completion count")
	ErrProofAlreadyPending = errors.New("a pending proof already exists for this hero")
	ErrNoPendingProof      = errors.New("no pending proof for this hero")
	ErrDuplicateProof      = errors.New("an identical proof is already pending for this quest")
	ErrWrongPayment        = errors.New("payment must equal the quest reward")
	ErrRefundTooEarly      = errors.New("refund delay has not elapsed")
	ErrReclaimNotApproved  = errors.New("reclaiming is not approved for this quest")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrTokenNotFound       = errors.New("hero token not found")
	ErrOverflow            = errors.New("completion counter overflow")
)

type QuestLedgerServiceI interface {
	CreateQuest(ctx context.Context, q *model.Quest) error
	GetQuest(ctx context.Context, id string) (*model.Quest, error)
	QuestInProgress(ctx context.Context, id string) (bool, error)
	CompleteQuest(ctx context.Context, id string, attemptIndex uint64, hero, proofRef, caller string) (token.ID, error)
	SubmitProofs(ctx context.Context, id, proofRef, caller string, payment uint64) error
	RequestRefund(ctx context.Context, id, caller string) error
	ApproveReclaiming(ctx context.Context, id string, approved bool, caller string) error
	ReclaimLostProofs(ctx context.Context, id, hero, caller string) error
	HeroCompletions(ctx context.Context, id, hero string) (uint64, error)
	GetHeroToken(ctx context.Context, tokenID uint64) (*model.HeroToken, error)
	GetBalance(ctx context.Context, account string) (uint64, error)
	Deposit(ctx context.Context, account string, amount uint64) error
}

type LedgerRepository interface {
	CreateQuest(ctx context.Context, q *model.Quest) error
	GetQuest(ctx context.Context, id string) (*model.Quest, error)
	SetReclaimApproved(ctx context.Context, id string, approved bool) error
	HeroCompletions(ctx context.Context, questID, hero string) (uint64, error)
	QuestsEndedBetween(ctx context.Context, from, to time.Time) ([]*model.Quest, error)

	GetPendingProof(ctx context.Context, questID, hero string) (*model.PendingProof, error)
	SubmitProof(ctx context.Context, p *model.PendingProof) error
	ResolveProof(ctx context.Context, questID, hero, payTo string) (uint64, error)
	ApplyCompletion(ctx context.Context, comp *model.Completion, owner string, escrow *model.PendingProof) error

	GetHeroToken(ctx context.Context, tokenID uint64) (*model.HeroToken, error)
	GetBalance(ctx context.Context, account string) (uint64, error)
	Deposit(ctx context.Context, account string, amount uint64) error
}

// EventPublisher receives fire-and-forget notifications after successful
// operations.
type EventPublisher interface {
	Publish(ev model.Event)
}
