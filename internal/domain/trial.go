package domain

import "time"

// TrialTag marks a tenant row as a free-trial account.
const TrialTag = "Período de teste"

// TrialWindow is the fixed free-trial period counted from tenant creation.
const TrialWindow = 7 * 24 * time.Hour

// Cliente is the tenant record (row in the "clientes" table). Only the
// fields the trial checker needs are mapped.
type Cliente struct {
	ID        string    `json:"id"`
	Nome      string    `json:"nome,omitempty"`
	Tag       string    `json:"tag"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// TrialStatus is derived on demand from the tenant row; never stored.
type TrialStatus struct {
	IsTrialClient bool      `json:"is_trial_client"`
	Status        string    `json:"status"`
	ExpiresAt     time.Time `json:"expires_at"`
	DaysLeft      int       `json:"days_left"`
	IsExpired     bool      `json:"is_expired"`
}

// TrialStatusOf computes the trial window for a tenant as of now.
func TrialStatusOf(c *Cliente, now time.Time) *TrialStatus {
	isTrial := c.Tag == TrialTag
	expiresAt := c.CreatedAt.Add(TrialWindow)

	daysLeft := 0
	if remaining := expiresAt.Sub(now); remaining > 0 {
		// Round up: a partial day still counts as a day left.
		daysLeft = int((remaining + 24*time.Hour - time.Nanosecond) / (24 * time.Hour))
	}

	return &TrialStatus{
		IsTrialClient: isTrial,
		Status:        c.Status,
		ExpiresAt:     expiresAt,
		DaysLeft:      daysLeft,
		IsExpired:     daysLeft <= 0 && isTrial,
	}
}
