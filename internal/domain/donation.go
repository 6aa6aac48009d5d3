package domain

import "time"

// AnonymousDonationMessage replaces an empty donation message.
const AnonymousDonationMessage = "Anonymous donation"

// Donation represents a supporter contribution record.
type Donation struct {
	CampaignID uint64
	Seq        uint64
	Donor      Address
	Amount     Amount
	Message    string
	Timestamp  time.Time
}

// Withdrawal represents value moved out of a campaign by its beneficiary.
type Withdrawal struct {
	CampaignID  uint64
	Seq         uint64
	Beneficiary Address
	Amount      Amount
	Reason      string
	Timestamp   time.Time
}
