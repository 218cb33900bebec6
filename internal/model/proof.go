package model

import "time"

// PendingProof is an unresolved completion claim with funds held in escrow.
// At most one exists per (quest, hero) pair; resolving it in any direction
// deletes the record.
type PendingProof struct {
	QuestID        string
	Hero           string
	AmountEscrowed uint64
	ProofRef       string
	SubmittedAt    time.Time
}
