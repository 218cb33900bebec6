package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/punkmap/questledger/internal/model"
	"github.com/punkmap/questledger/internal/service"
	"github.com/punkmap/questledger/pkg/logger"
	"go.uber.org/zap"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
)

// ExpirySweeper periodically emits quest_expired events for quests whose
// window closed since the previous sweep. It is purely observational; the
// ledger itself re-evaluates windows on every call and never depends on
// the sweeper.
type ExpirySweeper struct {
	repo   service.LedgerRepository
	events service.EventPublisher
	clock  clockwork.Clock
	cron   *cron.Cron

	mu       sync.Mutex
	lastSeen time.Time
}

func NewExpirySweeper(repo service.LedgerRepository, events service.EventPublisher, clock clockwork.Clock) *ExpirySweeper {
	return &ExpirySweeper{
		repo:     repo,
		events:   events,
		clock:    clock,
		cron:     cron.New(),
		lastSeen: clock.Now(),
	}
}

func (s *ExpirySweeper) Start() error {
	_, err := s.cron.AddFunc("@every 1m", s.Sweep)
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *ExpirySweeper) Stop() {
	s.cron.Stop()
}

func (s *ExpirySweeper) Sweep() {
	log := logger.Logger()

	s.mu.Lock()
	from := s.lastSeen
	to := s.clock.Now()
	s.lastSeen = to
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	quests, err := s.repo.QuestsEndedBetween(ctx, from, to)
	if err != nil {
		log.Error("expiry sweep failed", zap.Error(err))
		return
	}

	for _, q := range quests {
		s.events.Publish(model.Event{
			Operation: model.EventQuestExpired,
			QuestID:   q.ID,
			Actor:     q.Owner,
			At:        to.UTC(),
		})
	}

	if len(quests) > 0 {
		log.Info("expired quests swept", zap.Int("count", len(quests)))
	}
}
