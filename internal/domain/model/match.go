package model

import "time"

// Match stores the unordered pair with UserAID < UserBID.
type Match struct {
	ID        int64     `json:"id"`
	UserAID   int64     `json:"user_a_id"`
	UserBID   int64     `json:"user_b_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Counterpart returns the other side of the pair for the given viewer.
func (m Match) Counterpart(viewerID int64) int64 {
	if m.UserAID == viewerID {
		return m.UserBID
	}
	return m.UserAID
}
