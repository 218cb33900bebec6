package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/punkmap/questledger/internal/model"
	"github.com/punkmap/questledger/internal/repository"
	"github.com/punkmap/questledger/pkg/token"

	"github.com/jonboulle/clockwork"
)

// RefundDelay is how long a pending proof must sit unresolved before the
// hero may take the escrow back.
const RefundDelay = 50 * time.Second

// Every token minted by this ledger carries the same category and version;
// they distinguish quest-completion tokens from other token families that
// may share the codec layout.
const (
	tokenCategory = 1
	tokenVersion  = 1
)

// Quest ids are decimal strings of at most 78 digits (the largest 256-bit
// integer has 78 decimal digits).
const maxQuestIDLen = 78

type QuestLedgerService struct {
	repo   LedgerRepository
	events EventPublisher
	clock  clockwork.Clock
	locks  *questLocks
}

func NewQuestLedgerService(repo LedgerRepository, events EventPublisher, clock clockwork.Clock) *QuestLedgerService {
	return &QuestLedgerService{
		repo:   repo,
		events: events,
		clock:  clock,
		locks:  newQuestLocks(),
	}
}

func validQuestID(id string) bool {
	if id == "" || len(id) > maxQuestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

// CreateQuest registers a new quest owned by q.Owner. No funds move at
// creation. The assigned ordinal is written back into q.
func (s *QuestLedgerService) CreateQuest(ctx context.Context, q *model.Quest) error {
	if !validQuestID(q.ID) {
		return ErrInvalidQuestID
	}
	if q.EndTime != 0 && q.EndTime <= q.StartTime {
		return ErrInvalidWindow
	}

	lock := s.locks.get(q.ID)
	lock.Lock()
	defer lock.Unlock()

	q.CompletionCount = 0
	q.ReclaimApproved = false

	err := s.repo.CreateQuest(ctx, q)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return ErrQuestAlreadyExists
		}
		return err
	}

	s.events.Publish(model.Event{
		Operation: model.EventQuestCreated,
		QuestID:   q.ID,
		Actor:     q.Owner,
		At:        s.clock.Now().UTC(),
	})

	return nil
}

func (s *QuestLedgerService) GetQuest(ctx context.Context, id string) (*model.Quest, error) {
	q, err := s.repo.GetQuest(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrQuestNotFound) {
			return nil, ErrQuestNotFound
		}
		return nil, err
	}
	return q, nil
}

// QuestInProgress reports whether the quest window contains the current
// time. Waiting for a window to open is always re-evaluated per call,
// never scheduled.
func (s *QuestLedgerService) QuestInProgress(ctx context.Context, id string) (bool, error) {
	q, err := s.GetQuest(ctx, id)
	if err != nil {
		return false, err
	}
	return q.InProgressAt(s.clock.Now()), nil
}

// CompleteQuest records a completion for hero, authorized by the quest
// owner. When the hero has a pending proof it is consumed and its escrow
// paid to the owner; otherwise no funds move. Returns the minted token id.
func (s *QuestLedgerService) CompleteQuest(ctx context.Context, id string, attemptIndex uint64, hero, proofRef, caller string) (token.ID, error) {
	lock := s.locks.get(id)
	lock.Lock()
	defer lock.Unlock()

	q, err := s.GetQuest(ctx, id)
	if err != nil {
		return 0, err
	}
	if q.Owner != caller {
		return 0, ErrUnauthorized
	}
	if !q.InProgressAt(s.clock.Now()) {
		return 0, ErrQuestNotInProgress
	}
	// A supply or repeat limit of zero allows zero completions.
	if q.CompletionCount >= q.SupplyLimit {
		return 0, ErrSupplyExhausted
	}

	heroCount, err := s.repo.HeroCompletions(ctx, id, hero)
	if err != nil {
		return 0, err
	}
	if heroCount >= q.RepeatLimit {
		return 0, ErrRepeatLimitReached
	}
	if q.CompletionCount == math.MaxUint64 || heroCount == math.MaxUint64 {
		return 0, ErrOverflow
	}
	// Token ids pack the attempt index, so a repeated index for the same
	// (quest, hero) would mint a colliding token. The index must track the
	// hero's own completion count: 0, 1, and so on.
	if attemptIndex != heroCount {
		return 0, ErrAttemptIndexBad
	}

	tokenID, err := token.Encode(attemptIndex, q.Ordinal, tokenCategory, tokenVersion)
	if err != nil {
		return 0, err
	}

	// The proof lookup is keyed by (quest, hero), so validating this hero
	// can never consume another hero's escrow.
	escrow, err := s.repo.GetPendingProof(ctx, id, hero)
	if err != nil && !errors.Is(err, repository.ErrProofNotFound) {
		return 0, err
	}

	comp := &model.Completion{
		QuestID:      id,
		Hero:         hero,
		AttemptIndex: attemptIndex,
		TokenID:      uint64(tokenID),
		ProofRef:     proofRef,
		CompletedAt:  s.clock.Now().UTC(),
	}
	if err := s.repo.ApplyCompletion(ctx, comp, q.Owner, escrow); err != nil {
		return 0, err
	}

	ev := model.Event{
		Operation: model.EventQuestCompleted,
		QuestID:   id,
		Actor:     hero,
		TokenID:   uptr(uint64(tokenID)),
		At:        s.clock.Now().UTC(),
	}
	if escrow != nil {
		ev.Amount = uptr(escrow.AmountEscrowed)
	}
	s.events.Publish(ev)

	return tokenID, nil
}

// SubmitProofs escrows the caller's payment against a future validation.
// The payment must equal the quest reward exactly; no change is made.
func (s *QuestLedgerService) SubmitProofs(ctx context.Context, id, proofRef, caller string, payment uint64) error {
	lock := s.locks.get(id)
	lock.Lock()
	defer lock.Unlock()

	q, err := s.GetQuest(ctx, id)
	if err != nil {
		return err
	}
	if !q.InProgressAt(s.clock.Now()) {
		return ErrQuestNotInProgress
	}
	if _, err := s.repo.GetPendingProof(ctx, id, caller); err == nil {
		return ErrProofAlreadyPending
	} else if !errors.Is(err, repository.ErrProofNotFound) {
		return err
	}
	if payment != q.RewardPerCompletion {
		return ErrWrongPayment
	}

	err = s.repo.SubmitProof(ctx, &model.PendingProof{
		QuestID:        id,
		Hero:           caller,
		AmountEscrowed: payment,
		ProofRef:       proofRef,
		SubmittedAt:    s.clock.Now().UTC(),
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrProofAlreadyPending):
			return ErrProofAlreadyPending
		case errors.Is(err, repository.ErrDuplicateProof):
			return ErrDuplicateProof
		case errors.Is(err, repository.ErrInsufficientFunds):
			return ErrInsufficientFunds
		}
		return err
	}

	s.events.Publish(model.Event{
		Operation: model.EventProofSubmitted,
		QuestID:   id,
		Actor:     caller,
		Amount:    uptr(payment),
		At:        s.clock.Now().UTC(),
	})

	return nil
}

// RequestRefund returns the caller's escrowed payment once RefundDelay has
// elapsed since submission.
func (s *QuestLedgerService) RequestRefund(ctx context.Context, id, caller string) error {
	lock := s.locks.get(id)
	lock.Lock()
	defer lock.Unlock()

	proof, err := s.repo.GetPendingProof(ctx, id, caller)
	if err != nil {
		if errors.Is(err, repository.ErrProofNotFound) {
			return ErrNoPendingProof
		}
		return err
	}
	if s.clock.Now().Sub(proof.SubmittedAt) < RefundDelay {
		return ErrRefundTooEarly
	}

	amount, err := s.repo.ResolveProof(ctx, id, caller, caller)
	if err != nil {
		if errors.Is(err, repository.ErrProofNotFound) {
			return ErrNoPendingProof
		}
		return err
	}

	s.events.Publish(model.Event{
		Operation: model.EventProofRefunded,
		QuestID:   id,
		Actor:     caller,
		Amount:    uptr(amount),
		At:        s.clock.Now().UTC(),
	})

	return nil
}

// ApproveReclaiming flips the quest's reclaim flag. Only the quest owner
// may call it; the change applies to every subsequent reclaim attempt.
func (s *QuestLedgerService) ApproveReclaiming(ctx context.Context, id string, approved bool, caller string) error {
	lock := s.locks.get(id)
	lock.Lock()
	defer lock.Unlock()

	q, err := s.GetQuest(ctx, id)
	if err != nil {
		return err
	}
	if q.Owner != caller {
		return ErrUnauthorized
	}

	if err := s.repo.SetReclaimApproved(ctx, id, approved); err != nil {
		if errors.Is(err, repository.ErrQuestNotFound) {
			return ErrQuestNotFound
		}
		return err
	}

	s.events.Publish(model.Event{
		Operation: model.EventReclaimApproval,
		QuestID:   id,
		Actor:     caller,
		At:        s.clock.Now().UTC(),
	})

	return nil
}

// ReclaimLostProofs seizes a hero's forfeited escrow and pays it to the
// reclaiming caller. Requires the quest owner to have approved reclaiming.
func (s *QuestLedgerService) ReclaimLostProofs(ctx context.Context, id, hero, caller string) error {
	lock := s.locks.get(id)
	lock.Lock()
	defer lock.Unlock()

	q, err := s.GetQuest(ctx, id)
	if err != nil {
		return err
	}
	if !q.ReclaimApproved {
		return ErrReclaimNotApproved
	}

	amount, err := s.repo.ResolveProof(ctx, id, hero, caller)
	if err != nil {
		if errors.Is(err, repository.ErrProofNotFound) {
			return ErrNoPendingProof
		}
		return err
	}

	s.events.Publish(model.Event{
		Operation: model.EventProofReclaimed,
		QuestID:   id,
		Actor:     caller,
		Amount:    uptr(amount),
		At:        s.clock.Now().UTC(),
	})

	return nil
}

// HeroCompletions returns how many times the hero has completed the quest.
func (s *QuestLedgerService) HeroCompletions(ctx context.Context, id, hero string) (uint64, error) {
	if _, err := s.GetQuest(ctx, id); err != nil {
		return 0, err
	}
	return s.repo.HeroCompletions(ctx, id, hero)
}

func (s *QuestLedgerService) GetHeroToken(ctx context.Context, tokenID uint64) (*model.HeroToken, error) {
	t, err := s.repo.GetHeroToken(ctx, tokenID)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *QuestLedgerService) GetBalance(ctx context.Context, account string) (uint64, error) {
	return s.repo.GetBalance(ctx, account)
}

func (s *QuestLedgerService) Deposit(ctx context.Context, account string, amount uint64) error {
	return s.repo.Deposit(ctx, account, amount)
}

func uptr(v uint64) *uint64 {
	return &v
}
