package model

import "time"

const (
	EventQuestCreated    = "quest_created"
	EventQuestCompleted  = "quest_completed"
	EventQuestExpired    = "quest_expired"
	EventProofSubmitted  = "proof_submitted"
	EventProofRefunded   = "proof_refunded"
	EventProofReclaimed  = "proof_reclaimed"
	EventReclaimApproval = "reclaim_approval"
)

// Event is the structured notification emitted after a ledger operation.
// Delivery is fire-and-forget; correctness never depends on it.
type Event struct {
	ID        string  `json:"id"`
	Operation string  `json:"operation"`
	QuestID   string  `json:"quest_id"`
	Actor     string  `json:"actor"`
	Amount    *uint64 `json:"amount,omitempty"`
	TokenID   *uint64 `json:"token_id,omitempty"`

	At time.Time `json:"at"`
}
