package mocks

import (
	"context"
	"time"

	"github.com/punkmap/questledger/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) CreateQuest(ctx context.Context, q *model.Quest) error {
	args := m.Called(ctx, q)
	return args.Error(0)
}

func (m *MockLedgerRepository) GetQuest(ctx context.Context, id string) (*model.Quest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Quest), args.Error(1)
}

func (m *MockLedgerRepository) SetReclaimApproved(ctx context.Context, id string, approved bool) error {
	args := m.Called(ctx, id, approved)
	return args.Error(0)
}

func (m *MockLedgerRepository) HeroCompletions(ctx context.Context, questID, hero string) (uint64, error) {
	args := m.Called(ctx, questID, hero)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockLedgerRepository) QuestsEndedBetween(ctx context.Context, from, to time.Time) ([]*model.Quest, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Quest), args.Error(1)
}

func (m *MockLedgerRepository) GetPendingProof(ctx context.Context, questID, hero string) (*model.PendingProof, error) {
	args := m.Called(ctx, questID, hero)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PendingProof), args.Error(1)
}

func (m *MockLedgerRepository) SubmitProof(ctx context.Context, p *model.PendingProof) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockLedgerRepository) ResolveProof(ctx context.Context, questID, hero, payTo string) (uint64, error) {
	args := m.Called(ctx, questID, hero, payTo)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockLedgerRepository) ApplyCompletion(ctx context.Context, comp *model.Completion, owner string, escrow *model.PendingProof) error {
	args := m.Called(ctx, comp, owner, escrow)
	return args.Error(0)
}

func (m *MockLedgerRepository) GetHeroToken(ctx context.Context, tokenID uint64) (*model.HeroToken, error) {
	args := m.Called(ctx, tokenID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.HeroToken), args.Error(1)
}

func (m *MockLedgerRepository) GetBalance(ctx context.Context, account string) (uint64, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockLedgerRepository) Deposit(ctx context.Context, account string, amount uint64) error {
	args := m.Called(ctx, account, amount)
	return args.Error(0)
}
