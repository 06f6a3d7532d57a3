package domain

import "time"

// ActivationToken is a single-use emailed code binding an account to its
// email address. Several unconsumed tokens may exist for one user at a time.
type ActivationToken struct {
	Id          int64
	Code        string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	ValidatedAt *time.Time
	UserId      int64
}

func (t ActivationToken) Validated() bool {
	return t.ValidatedAt != nil
}

// Expired reports whether the validity window has closed. The expiry instant
// itself counts as expired.
func (t ActivationToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t ActivationToken) Usable(now time.Time) bool {
	return !t.Validated() && !t.Expired(now)
}
