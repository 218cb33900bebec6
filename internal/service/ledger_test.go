package service

import (
	"context"
	"testing"
	"time"

	"github.com/punkmap/questledger/internal/model"
	"github.com/punkmap/questledger/internal/repository"
	"github.com/punkmap/questledger/internal/service/mocks"
	"github.com/punkmap/questledger/pkg/token"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testBase = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type eventRecorder struct {
	events []model.Event
}

func (r *eventRecorder) Publish(ev model.Event) {
	r.events = append(r.events, ev)
}

func (r *eventRecorder) last() model.Event {
	return r.events[len(r.events)-1]
}

func newTestService() (*QuestLedgerService, *mocks.MockLedgerRepository, *eventRecorder, clockwork.FakeClock) {
	repo := &mocks.MockLedgerRepository{}
	rec := &eventRecorder{}
	clock := clockwork.NewFakeClockAt(testBase)
	return NewQuestLedgerService(repo, rec, clock), repo, rec, clock
}

func activeQuest(owner string) *model.Quest {
	return &model.Quest{
		ID:                  "42",
		Ordinal:             1,
		RewardPerCompletion: 1000,
		StartTime:           testBase.Unix() - 10,
		EndTime:             testBase.Unix() + 1000,
		SupplyLimit:         2,
		RepeatLimit:         2,
		MetadataRef:         "QmVLGZhFZNACQfBZFUPgMvsXU7PiDnSBqgt7ob4AusXPuY",
		Owner:               owner,
	}
}

func TestCreateQuest(t *testing.T) {
	tests := []struct {
		name          string
		quest         *model.Quest
		mockSetup     func(repo *mocks.MockLedgerRepository)
		expectedError error
	}{
		{
			name:          "empty id",
			quest:         &model.Quest{ID: "", Owner: "lord1"},
			expectedError: ErrInvalidQuestID,
		},
		{
			name:          "non-numeric id",
			quest:         &model.Quest{ID: "0xabc", Owner: "lord1"},
			expectedError: ErrInvalidQuestID,
		},
		{
			name: "id longer than 256 bits",
			quest: &model.Quest{
				ID:    "1234567890123456789012345678901234567890123456789012345678901234567890123456789",
				Owner: "lord1",
			},
			expectedError: ErrInvalidQuestID,
		},
		{
			name: "end before start",
			quest: &model.Quest{
				ID:        "42",
				StartTime: 200,
				EndTime:   100,
				Owner:     "lord1",
			},
			expectedError: ErrInvalidWindow,
		},
		{
			name: "end equal to start",
			quest: &model.Quest{
				ID:        "42",
				StartTime: 200,
				EndTime:   200,
				Owner:     "lord1",
			},
			expectedError: ErrInvalidWindow,
		},
		{
			name:  "duplicate id",
			quest: activeQuest("lord1"),
			mockSetup: func(repo *mocks.MockLedgerRepository) {
				repo.On("CreateQuest", mock.Anything, mock.Anything).
					Return(repository.ErrAlreadyExists)
			},
			expectedError: ErrQuestAlreadyExists,
		},
		{
			name:  "success",
			quest: activeQuest("lord1"),
			mockSetup: func(repo *mocks.MockLedgerRepository) {
				repo.On("CreateQuest", mock.Anything, mock.MatchedBy(func(q *model.Quest) bool {
					return q.ID == "42" && q.CompletionCount == 0 && !q.ReclaimApproved
				})).Return(nil)
			},
		},
		{
			name: "no fixed end is valid",
			quest: &model.Quest{
				ID:        "43",
				StartTime: 0,
				EndTime:   0,
				Owner:     "lord1",
			},
			mockSetup: func(repo *mocks.MockLedgerRepository) {
				repo.On("CreateQuest", mock.Anything, mock.Anything).Return(nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, repo, rec, _ := newTestService()
			if tt.mockSetup != nil {
				tt.mockSetup(repo)
			}

			err := s.CreateQuest(context.Background(), tt.quest)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Empty(t, rec.events)
			} else {
				assert.NoError(t, err)
				require.Len(t, rec.events, 1)
				assert.Equal(t, model.EventQuestCreated, rec.last().Operation)
				assert.Equal(t, tt.quest.ID, rec.last().QuestID)
				assert.Equal(t, "lord1", rec.last().Actor)
				assert.True(t, rec.last().At.Equal(testBase))
			}

			repo.AssertExpectations(t)
		})
	}
}

func TestQuestInProgress(t *testing.T) {
	tests := []struct {
		name       string
		quest      *model.Quest
		advance    time.Duration
		inProgress bool
	}{
		{
			name:       "inside window",
			quest:      activeQuest("lord1"),
			inProgress: true,
		},
		{
			name: "before start",
			quest: &model.Quest{
				ID:        "42",
				StartTime: testBase.Unix() + 100,
				EndTime:   testBase.Unix() + 200,
			},
			inProgress: false,
		},
		{
			name: "at start time",
			quest: &model.Quest{
				ID:        "42",
				StartTime: testBase.Unix(),
				EndTime:   testBase.Unix() + 200,
			},
			inProgress: true,
		},
		{
			name: "one second before start",
			quest: &model.Quest{
				ID:        "42",
				StartTime: testBase.Unix() + 1,
				EndTime:   testBase.Unix() + 200,
			},
			inProgress: false,
		},
		{
			name:       "at end time",
			quest:      activeQuest("lord1"),
			advance:    1000 * time.Second,
			inProgress: false,
		},
		{
			name: "no fixed end stays open",
			quest: &model.Quest{
				ID:        "42",
				StartTime: testBase.Unix(),
				EndTime:   0,
			},
			advance:    10 * 365 * 24 * time.Hour,
			inProgress: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, repo, _, clock := newTestService()
			repo.On("GetQuest", mock.Anything, "42").Return(tt.quest, nil)

			clock.Advance(tt.advance)

			inProgress, err := s.QuestInProgress(context.Background(), "42")
			require.NoError(t, err)
			assert.Equal(t, tt.inProgress, inProgress)
		})
	}

	t.Run("unknown quest", func(t *testing.T) {
		s, repo, _, _ := newTestService()
		repo.On("GetQuest", mock.Anything, "404").Return(nil, repository.ErrQuestNotFound)

		_, err := s.QuestInProgress(context.Background(), "404")
		assert.ErrorIs(t, err, ErrQuestNotFound)
	})
}

func TestCompleteQuest(t *testing.T) {
	tests := []struct {
		name          string
		caller        string
		advance       time.Duration
		mockSetup     func(repo *mocks.MockLedgerRepository)
		expectedError error
	}{
		{
			name:   "unknown quest",
			caller: "lord1",
			mockSetup: func(repo *mocks.MockLedgerRepository) {
				repo.On("GetQuest", mock.Anything, "42").Return(nil, repository.ErrQuestNotFound)
			},
			expectedError: ErrQuestNotFound,
		},
		{
			name:   "caller is not the owner",
			caller: "impostor",
			mockSetup: func(repo *mocks.MockLedgerRepository) {
				repo.On("GetQuest", mock.Anything, "42").Return(activeQuest("lord1"), nil)
			},
			expectedError: ErrUnauthorized,
		},
		{
			name:    "quest window closed",
			caller:  "lord1",
			advance: 2000 * time.Second,
			mockSetup: func(repo *mocks.MockLedgerRepository) {
				repo.On("GetQuest", mock.Anything, "42").Return(activeQuest("lord1"), nil)
			},
			expectedError: ErrQuestNotInProgress,
		},
		{
			name:   "supply exhausted",
			caller: "lord1",
			mockSetup: func(repo *mocks.MockLedgerRepository) {
				q := activeQuest("lord1")
				q.CompletionCount = 2
				repo.On("GetQuest", mock.Anything, "42").Return(q, nil)
			},
			expectedError: ErrSupplyExhausted,
		},
		{
			name:   "zero supply allows no completions",
			caller: "lord1",
			mockSetup: func(repo *mocks.MockLedgerRepository) {
				q := activeQuest("lord1")
				q.SupplyLimit = 0
				repo.On("GetQuest", mock.Anything, "42").Return(q, nil)
			},
			expectedError: ErrSupplyExhausted,
		},
		{
			name:   "repeat limit reached",
			caller: "lord1",
			mockSetup: func(repo *mocks.MockLedgerRepository) {
				repo.On("GetQuest", mock.Anything, "42").Return(activeQuest("lord1"), nil)
				repo.On("HeroCompletions", mock.Anything, "42", "hero1").Return(uint64(2), nil)
			},
			expectedError: ErrRepeatLimitReached,
		},
		{
			name:   "success without escrow",
			caller: "lord1",
			mockSetup: func(repo *mocks.MockLedgerRepository) {
				repo.On("GetQuest", mock.Anything, "42").Return(activeQuest("lord1"), nil)
				repo.On("HeroCompletions", mock.Anything, "42", "hero1").Return(uint64(0), nil)
				repo.On("GetPendingProof", mock.Anything, "42", "hero1").
					Return(nil, repository.ErrProofNotFound)
				repo.On("ApplyCompletion", mock.Anything, mock.MatchedBy(func(c *model.Completion) bool {
					return c.QuestID == "42" && c.Hero == "hero1" && c.AttemptIndex == 0
				}), "lord1", (*model.PendingProof)(nil)).Return(nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, repo, rec, clock := newTestService()
			tt.mockSetup(repo)
			clock.Advance(tt.advance)

			tokenID, err := s.CompleteQuest(context.Background(), "42", 0, "hero1", "proof-ref", tt.caller)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Empty(t, rec.events)
			} else {
				require.NoError(t, err)
				assert.Equal(t, uint64(0), tokenID.Data())
				assert.Equal(t, uint64(1), tokenID.Ordinal())
				require.Len(t, rec.events, 1)
				assert.Equal(t, model.EventQuestCompleted, rec.last().Operation)
				assert.Equal(t, "hero1", rec.last().Actor)
				assert.Nil(t, rec.last().Amount)
			}

			repo.AssertExpectations(t)
		})
	}
}

func TestCompleteQuestConsumesEscrow(t *testing.T) {
	s, repo, rec, _ := newTestService()

	proof := &model.PendingProof{
		QuestID:        "42",
		Hero:           "hero1",
		AmountEscrowed: 1000,
		ProofRef:       "proof-ref",
		SubmittedAt:    testBase,
	}

	repo.On("GetQuest", mock.Anything, "42").Return(activeQuest("lord1"), nil)
	repo.On("HeroCompletions", mock.Anything, "42", "hero1").Return(uint64(0), nil)
	repo.On("GetPendingProof", mock.Anything, "42", "hero1").Return(proof, nil)
	repo.On("ApplyCompletion", mock.Anything, mock.Anything, "lord1", proof).Return(nil)

	tokenID, err := s.CompleteQuest(context.Background(), "42", 0, "hero1", "proof-ref", "lord1")
	require.NoError(t, err)

	assert.Equal(t, uint64(0), tokenID.Data())
	require.Len(t, rec.events, 1)
	require.NotNil(t, rec.last().Amount)
	assert.Equal(t, uint64(1000), *rec.last().Amount)
	require.NotNil(t, rec.last().TokenID)
	assert.Equal(t, uint64(tokenID), *rec.last().TokenID)

	repo.AssertExpectations(t)
}

func TestCompleteQuestTokenFields(t *testing.T) {
	s, repo, _, _ := newTestService()

	q := activeQuest("lord1")
	q.SupplyLimit = 4
	q.RepeatLimit = 2

	repo.On("GetQuest", mock.Anything, "42").Return(q, nil)
	repo.On("HeroCompletions", mock.Anything, "42", "hero1").Return(uint64(0), nil).Once()
	repo.On("HeroCompletions", mock.Anything, "42", "hero1").Return(uint64(1), nil).Once()
	repo.On("GetPendingProof", mock.Anything, "42", "hero1").Return(nil, repository.ErrProofNotFound)
	repo.On("ApplyCompletion", mock.Anything, mock.Anything, "lord1", (*model.PendingProof)(nil)).Return(nil)

	first, err := s.CompleteQuest(context.Background(), "42", 0, "hero1", "proof-a", "lord1")
	require.NoError(t, err)
	second, err := s.CompleteQuest(context.Background(), "42", 1, "hero1", "proof-b", "lord1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, uint64(0), first.Data())
	assert.Equal(t, uint64(1), second.Data())
	assert.Equal(t, first.Ordinal(), second.Ordinal())
	assert.Equal(t, first.Category(), second.Category())
	assert.Equal(t, first.Version(), second.Version())
}

func TestCompleteQuestAttemptIndexOutOfRange(t *testing.T) {
	s, repo, rec, _ := newTestService()

	q := activeQuest("lord1")
	q.RepeatLimit = token.MaxData + 2
	repo.On("GetQuest", mock.Anything, "42").Return(q, nil)
	repo.On("HeroCompletions", mock.Anything, "42", "hero1").Return(uint64(token.MaxData+1), nil)

	_, err := s.CompleteQuest(context.Background(), "42", token.MaxData+1, "hero1", "proof-ref", "lord1")
	assert.ErrorIs(t, err, token.ErrOutOfRange)
	assert.Empty(t, rec.events)
}

func TestCompleteQuestAttemptIndexMismatch(t *testing.T) {
	s, repo, rec, _ := newTestService()

	repo.On("GetQuest", mock.Anything, "42").Return(activeQuest("lord1"), nil)
	repo.On("HeroCompletions", mock.Anything, "42", "hero1").Return(uint64(1), nil)

	// Repeating an already-used index would mint a colliding token id.
	_, err := s.CompleteQuest(context.Background(), "42", 0, "hero1", "proof-ref", "lord1")
	assert.ErrorIs(t, err, ErrAttemptIndexBad)
	assert.Empty(t, rec.events)
	repo.AssertNotCalled(t, "ApplyCompletion", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitProofs(t *testing.T) {
	pending := &model.PendingProof{
		QuestID:        "42",
		Hero:           "hero1",
		AmountEscrowed: 1000,
		ProofRef:       "proof-ref",
		SubmittedAt:    testBase,
	}

	tests := []struct {
		name          string
		payment       uint64
		mockSetup     func(repo *mocks.MockLedgerRepository)
		expectedError error
	}{
		{
			name:    "unknown quest",
			payment: 1000,
			mockSetup: func(repo *mocks.MockLedgerRepository) {
				repo.On("GetQuest", mock.Anything, "42").Return(nil, repository.ErrQuestNotFound)
			},
			expectedError: ErrQuestNotFound,
		},
		{
			name:    "quest not started",
			payment: 1000,
			mockSetup: func(repo *mocks.MockLedgerRepository) {
				q := activeQuest("lord1")
				q.StartTime = testBase.Unix() + 500
				repo.On("GetQuest", mock.Anything, "42").Return(q, nil)
			},
			expectedError: ErrQuestNotInProgress,
		},
		{
			name:    "proof already pending",
			payment: 1000,
			mockSetup: func(repo *mocks.MockLedgerRepository) {
				repo.On("GetQuest", mock.Anything, "42").Return(activeQuest("lord1"), nil)
				repo.On("GetPendingProof", mock.Anything, "42", "hero1").Return(pending, nil)
			},
			expectedError: ErrProofAlreadyPending,
		},
		{
			name:    "payment below reward",
			payment: 999,
			mockSetup: func(repo *mocks.MockLedgerRepository) {
				repo.On("GetQuest", mock.Anything, "42").Return(activeQuest("lord1"), nil)
				repo.On("GetPendingProof", mock.Anything, "42", "hero1").
					Return(nil, repository.ErrProofNotFound)
			},
			expectedError: ErrWrongPayment,
		},
		{
			name:    "payment above reward",
			payment: 1001,
			mockSetup: func(repo *mocks.MockLedgerRepository) {
				repo.On("GetQuest", mock.Anything, "42").Return(activeQuest("lord1"), nil)
				repo.On("GetPendingProof", mock.Anything, "42", "hero1").
					Return(nil, repository.ErrProofNotFound)
			},
			expectedError: ErrWrongPayment,
		},
		{
			name:    "zero reward accepts zero payment",
			payment: 0,
			mockSetup: func(repo *mocks.MockLedgerRepository) {
				q := activeQuest("lord1")
				q.RewardPerCompletion = 0
				repo.On("GetQuest", mock.Anything, "42").Return(q, nil)
				repo.On("GetPendingProof", mock.Anything, "42", "hero1").
					Return(nil, repository.ErrProofNotFound)
				repo.On("SubmitProof", mock.Anything, mock.MatchedBy(func(p *model.PendingProof) bool {
					return p.AmountEscrowed == 0
				})).Return(nil)
			},
		},
		{
			name:    "duplicate proof ref on quest",
			payment: 1000,
			mockSetup: func(repo *mocks.MockLedgerRepository) {
				repo.On("GetQuest", mock.Anything, "42").Return(activeQuest("lord1"), nil)
				repo.On("GetPendingProof", mock.Anything, "42", "hero1").
					Return(nil, repository.ErrProofNotFound)
				repo.On("SubmitProof", mock.Anything, mock.Anything).
					Return(repository.ErrDuplicateProof)
			},
			expectedError: ErrDuplicateProof,
		},
		{
			name:    "insufficient funds",
			payment: 1000,
			mockSetup: func(repo *mocks.MockLedgerRepository) {
				repo.On("GetQuest", mock.Anything, "42").Return(activeQuest("lord1"), nil)
				repo.On("GetPendingProof", mock.Anything, "42", "hero1").
					Return(nil, repository.ErrProofNotFound)
				repo.On("SubmitProof", mock.Anything, mock.Anything).
					Return(repository.ErrInsufficientFunds)
			},
			expectedError: ErrInsufficientFunds,
		},
		{
			name:    "success",
			payment: 1000,
			mockSetup: func(repo *mocks.MockLedgerRepository) {
				repo.On("GetQuest", mock.Anything, "42").Return(activeQuest("lord1"), nil)
				repo.On("GetPendingProof", mock.Anything, "42", "hero1").
					Return(nil, repository.ErrProofNotFound)
				repo.On("SubmitProof", mock.Anything, mock.MatchedBy(func(p *model.PendingProof) bool {
					return p.QuestID == "42" &&
						p.Hero == "hero1" &&
						p.AmountEscrowed == 1000 &&
						p.ProofRef == "proof-ref" &&
						p.SubmittedAt.Equal(testBase)
				})).Return(nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, repo, rec, _ := newTestService()
			tt.mockSetup(repo)

			err := s.SubmitProofs(context.Background(), "42", "proof-ref", "hero1", tt.payment)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Empty(t, rec.events)
			} else {
				assert.NoError(t, err)
				require.Len(t, rec.events, 1)
				assert.Equal(t, model.EventProofSubmitted, rec.last().Operation)
				require.NotNil(t, rec.last().Amount)
				assert.Equal(t, tt.payment, *rec.last().Amount)
			}

			repo.AssertExpectations(t)
		})
	}
}

func TestRequestRefund(t *testing.T) {
	t.Run("no pending proof", func(t *testing.T) {
		s, repo, _, _ := newTestService()
		repo.On("GetPendingProof", mock.Anything, "42", "hero1").
			Return(nil, repository.ErrProofNotFound)

		err := s.RequestRefund(context.Background(), "42", "hero1")
		assert.ErrorIs(t, err, ErrNoPendingProof)
	})

	t.Run("too early", func(t *testing.T) {
		s, repo, _, clock := newTestService()
		repo.On("GetPendingProof", mock.Anything, "42", "hero1").
			Return(&model.PendingProof{
				QuestID:        "42",
				Hero:           "hero1",
				AmountEscrowed: 1000,
				SubmittedAt:    testBase,
			}, nil)

		clock.Advance(RefundDelay - time.Second)

		err := s.RequestRefund(context.Background(), "42", "hero1")
		assert.ErrorIs(t, err, ErrRefundTooEarly)
	})

	t.Run("after delay", func(t *testing.T) {
		s, repo, rec, clock := newTestService()
		repo.On("GetPendingProof", mock.Anything, "42", "hero1").
			Return(&model.PendingProof{
				QuestID:        "42",
				Hero:           "hero1",
				AmountEscrowed: 1000,
				SubmittedAt:    testBase,
			}, nil)
		repo.On("ResolveProof", mock.Anything, "42", "hero1", "hero1").
			Return(uint64(1000), nil)

		clock.Advance(RefundDelay)

		err := s.RequestRefund(context.Background(), "42", "hero1")
		require.NoError(t, err)

		require.Len(t, rec.events, 1)
		assert.Equal(t, model.EventProofRefunded, rec.last().Operation)
		assert.Equal(t, "hero1", rec.last().Actor)
		require.NotNil(t, rec.last().Amount)
		assert.Equal(t, uint64(1000), *rec.last().Amount)
		assert.True(t, rec.last().At.Equal(testBase.Add(RefundDelay)))

		repo.AssertExpectations(t)
	})
}

func TestApproveReclaiming(t *testing.T) {
	t.Run("unknown quest", func(t *testing.T) {
		s, repo, _, _ := newTestService()
		repo.On("GetQuest", mock.Anything, "42").Return(nil, repository.ErrQuestNotFound)

		err := s.ApproveReclaiming(context.Background(), "42", true, "lord1")
		assert.ErrorIs(t, err, ErrQuestNotFound)
	})

	t.Run("caller is not the owner", func(t *testing.T) {
		s, repo, _, _ := newTestService()
		repo.On("GetQuest", mock.Anything, "42").Return(activeQuest("lord1"), nil)

		err := s.ApproveReclaiming(context.Background(), "42", true, "lord2")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("success", func(t *testing.T) {
		s, repo, rec, _ := newTestService()
		repo.On("GetQuest", mock.Anything, "42").Return(activeQuest("lord1"), nil)
		repo.On("SetReclaimApproved", mock.Anything, "42", true).Return(nil)

		err := s.ApproveReclaiming(context.Background(), "42", true, "lord1")
		require.NoError(t, err)

		require.Len(t, rec.events, 1)
		assert.Equal(t, model.EventReclaimApproval, rec.last().Operation)

		repo.AssertExpectations(t)
	})
}

func TestReclaimLostProofs(t *testing.T) {
	t.Run("not approved", func(t *testing.T) {
		s, repo, _, _ := newTestService()
		repo.On("GetQuest", mock.Anything, "42").Return(activeQuest("lord1"), nil)

		err := s.ReclaimLostProofs(context.Background(), "42", "hero1", "lord1")
		assert.ErrorIs(t, err, ErrReclaimNotApproved)
	})

	t.Run("no pending proof", func(t *testing.T) {
		s, repo, _, _ := newTestService()
		q := activeQuest("lord1")
		q.ReclaimApproved = true
		repo.On("GetQuest", mock.Anything, "42").Return(q, nil)
		repo.On("ResolveProof", mock.Anything, "42", "hero1", "lord1").
			Return(uint64(0), repository.ErrProofNotFound)

		err := s.ReclaimLostProofs(context.Background(), "42", "hero1", "lord1")
		assert.ErrorIs(t, err, ErrNoPendingProof)
	})

	t.Run("success pays the reclaimer", func(t *testing.T) {
		s, repo, rec, _ := newTestService()
		q := activeQuest("lord1")
		q.ReclaimApproved = true
		repo.On("GetQuest", mock.Anything, "42").Return(q, nil)
		repo.On("ResolveProof", mock.Anything, "42", "hero1", "reclaimer").
			Return(uint64(1000), nil)

		err := s.ReclaimLostProofs(context.Background(), "42", "hero1", "reclaimer")
		require.NoError(t, err)

		require.Len(t, rec.events, 1)
		assert.Equal(t, model.EventProofReclaimed, rec.last().Operation)
		assert.Equal(t, "reclaimer", rec.last().Actor)

		repo.AssertExpectations(t)
	})

	t.Run("revoked approval blocks reclaim again", func(t *testing.T) {
		s, repo, _, _ := newTestService()
		q := activeQuest("lord1")
		q.ReclaimApproved = false
		repo.On("GetQuest", mock.Anything, "42").Return(q, nil)

		err := s.ReclaimLostProofs(context.Background(), "42", "hero1", "lord1")
		assert.ErrorIs(t, err, ErrReclaimNotApproved)
		repo.AssertNotCalled(t, "ResolveProof", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

// Mirrors the canonical flow: quest 42, reward 1000, supply 1, repeat 1.
// Hero submits a proof, the lord validates it, a second completion attempt
// is rejected.
func TestEscrowLifecycleScenario(t *testing.T) {
	s, repo, rec, _ := newTestService()

	q := activeQuest("lord1")
	q.SupplyLimit = 1
	q.RepeatLimit = 1

	proof := &model.PendingProof{
		QuestID:        "42",
		Hero:           "heroH",
		AmountEscrowed: 1000,
		ProofRef:       "proof-ref",
		SubmittedAt:    testBase,
	}

	repo.On("GetQuest", mock.Anything, "42").Return(q, nil)
	repo.On("GetPendingProof", mock.Anything, "42", "heroH").
		Return(nil, repository.ErrProofNotFound).Once()
	repo.On("SubmitProof", mock.Anything, mock.Anything).Return(nil).Once()

	err := s.SubmitProofs(context.Background(), "42", "proof-ref", "heroH", 1000)
	require.NoError(t, err)

	repo.On("HeroCompletions", mock.Anything, "42", "heroH").Return(uint64(0), nil).Once()
	repo.On("GetPendingProof", mock.Anything, "42", "heroH").Return(proof, nil).Once()
	repo.On("ApplyCompletion", mock.Anything, mock.Anything, "lord1", proof).
		Run(func(args mock.Arguments) {
			q.CompletionCount++
		}).Return(nil).Once()

	tokenID, err := s.CompleteQuest(context.Background(), "42", 0, "heroH", "proof-ref", "lord1")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), tokenID.Data())

	_, err = s.CompleteQuest(context.Background(), "42", 1, "heroH", "proof-ref", "lord1")
	assert.ErrorIs(t, err, ErrSupplyExhausted)

	require.Len(t, rec.events, 2)
	assert.Equal(t, model.EventProofSubmitted, rec.events[0].Operation)
	assert.Equal(t, model.EventQuestCompleted, rec.events[1].Operation)

	repo.AssertExpectations(t)
}
