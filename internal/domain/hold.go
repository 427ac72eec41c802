package domain

import "time"

// Hold reserves an amount against an account's balance between a withdrawal
// authorization and its commit. The amount is not yet debited; it only
// reduces what further authorizations may reserve. A hold is destroyed when
// it is committed, released, or expired, so its presence means it is active.
type Hold struct {
	ID        string    `json:"holdId"`
	AccountID string    `json:"accountId"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the hold's authorization window has passed.
func (h Hold) Expired(now time.Time) bool {
	return !h.ExpiresAt.After(now)
}
