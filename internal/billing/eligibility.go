package billing

import (
	"time"

	"github.com/qrwave/qrwave/internal"
)

type Decision int

const (
	Eligible Decision = iota
	AlreadyUpgraded
)

// Eligibility decides whether a record may still be upgraded. Trial vs.
// paid is not stored as its own field; it is inferred from how far out
// the expiry sits. An active record whose expiry is further away than
// paidThreshold can only be on a paid-length window already, so charging
// it again is refused. Everything else, including expired records, is
// eligible.
func Eligibility(status string, expiresAt *time.Time, now time.Time, paidThreshold time.Duration) Decision {
	if status == internal.StatusActive && expiresAt != nil && expiresAt.Sub(now) > paidThreshold {
		return AlreadyUpgraded
	}
	return Eligible
}
