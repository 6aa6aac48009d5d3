package domain

import "time"

// LifecycleState enumerates campaign lifecycle states.
type LifecycleState uint8

const (
	StateActive LifecycleState = iota + 1
	StateInactive
)

func (s LifecycleState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateInactive:
		return "inactive"
	}
	return "unknown"
}

// StateFromActive maps a persisted active flag to a LifecycleState.
func StateFromActive(active bool) LifecycleState {
	if active {
		return StateActive
	}
	return StateInactive
}

// Campaign is a named fund-raising target.
type Campaign struct {
	ID          uint64
	Title       string
	Beneficiary Address
	Balance     Amount
	State       LifecycleState
	CreatedAt   time.Time
}

// Active reports whether donations and withdrawals are enabled.
func (c Campaign) Active() bool {
	return c.State == StateActive
}

// CampaignSummary aggregates the read-side counters of one campaign.
type CampaignSummary struct {
	Campaign        Campaign
	TotalDonations  Amount
	DonationCount   int
	WithdrawalCount int
	DonorCount      int
}
