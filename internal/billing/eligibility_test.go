package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/qrwave/qrwave/internal"
)

func TestEligibility(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	threshold := 60 * 24 * time.Hour

	days := func(d int) *time.Time {
		ts := now.Add(time.Duration(d) * 24 * time.Hour)
		return &ts
	}

	tests := []struct {
		name      string
		status    string
		expiresAt *time.Time
		want      Decision
	}{
		{
			name:      "active trial window is eligible",
			status:    internal.StatusActive,
			expiresAt: days(20),
			want:      Eligible,
		},
		{
			name:      "active just inside threshold is eligible",
			status:    internal.StatusActive,
			expiresAt: days(59),
			want:      Eligible,
		},
		{
			name:      "active paid-length window is already upgraded",
			status:    internal.StatusActive,
			expiresAt: days(300),
			want:      AlreadyUpgraded,
		},
		{
			name:      "expired trial is eligible regardless of horizon",
			status:    internal.StatusTrialExpired,
			expiresAt: days(-5),
			want:      Eligible,
		},
		{
			name:      "lapsed paid code may be upgraded again",
			status:    internal.StatusPaidExpired,
			expiresAt: days(-1),
			want:      Eligible,
		},
		{
			name:      "inactive status is eligible even with a far expiry",
			status:    internal.StatusReported,
			expiresAt: days(300),
			want:      Eligible,
		},
		{
			name:      "active without expiry is eligible",
			status:    internal.StatusActive,
			expiresAt: nil,
			want:      Eligible,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Eligibility(tt.status, tt.expiresAt, now, threshold))
		})
	}
}
