package model

import "time"

// Completion records one accepted quest completion and the token minted
// for it.
type Completion struct {
	QuestID      string
	Hero         string
	AttemptIndex uint64
	TokenID      uint64
	ProofRef     string
	CompletedAt  time.Time
}

// HeroToken is the stored record behind a minted token identifier. The
// packed fields live in the id itself; ProofRef is the retrievable
// metadata associated at mint time.
type HeroToken struct {
	TokenID  uint64
	QuestID  string
	Hero     string
	ProofRef string
	MintedAt time.Time
}
