package model

import "time"

// Quest is a time-bounded task registered by a quest lord. Everything but
// CompletionCount and ReclaimApproved is immutable after creation.
type Quest struct {
	// ID is caller-supplied and globally unique. It is a decimal string
	// because ids may exceed 64 bits.
	ID string
	// Ordinal is the dense sequence number assigned at creation. It is
	// what gets packed into hero tokens, not the id.
	Ordinal             uint64
	RewardPerCompletion uint64
	// StartTime and EndTime are unix seconds. EndTime 0 means the quest
	// has no fixed end.
	StartTime       int64
	EndTime         int64
	SupplyLimit     uint64
	RepeatLimit     uint64
	MetadataRef     string
	Owner           string
	CompletionCount uint64
	ReclaimApproved bool
	CreatedAt       time.Time
}

// InProgressAt reports whether the quest window contains the given instant.
func (q *Quest) InProgressAt(now time.Time) bool {
	ts := now.Unix()
	if ts < q.StartTime {
		return false
	}
	return q.EndTime == 0 || ts < q.EndTime
}
