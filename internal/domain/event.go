package domain

import "time"

// EventKind names a ledger notification.
type EventKind string

const (
	EventCampaignCreated            EventKind = "CampaignCreated"
	EventCampaignDeactivated        EventKind = "CampaignDeactivated"
	EventCampaignReactivated        EventKind = "CampaignReactivated"
	EventCampaignBeneficiaryUpdated EventKind = "CampaignBeneficiaryUpdated"
	EventDonation                   EventKind = "Donation"
	EventWithdrawal                 EventKind = "Withdrawal"
)

// Event is one entry of the append-only notification stream. Seq is global,
// gap-free and follows commit order. Fields not relevant to Kind stay zero:
//
//	CampaignCreated:            Title, Account (beneficiary), Amount (balance), Active
//	CampaignBeneficiaryUpdated: Account (new beneficiary)
//	Donation:                   RecordSeq, Account (donor), Amount, Text (message)
//	Withdrawal:                 RecordSeq, Account (beneficiary), Amount, Text (reason)
type Event struct {
	Seq        uint64    `json:"seq"`
	ID         string    `json:"id"`
	Kind       EventKind `json:"kind"`
	CampaignID uint64    `json:"campaign_id"`
	RecordSeq  uint64    `json:"record_seq,omitempty"`
	Title      string    `json:"title,omitempty"`
	Account    Address   `json:"account,omitempty"`
	Amount     Amount    `json:"amount"`
	Active     bool      `json:"active,omitempty"`
	Text       string    `json:"text,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func CampaignCreatedEvent(c Campaign) Event {
	return Event{
		Kind:       EventCampaignCreated,
		CampaignID: c.ID,
		Title:      c.Title,
		Account:    c.Beneficiary,
		Amount:     c.Balance,
		Active:     c.Active(),
		OccurredAt: c.CreatedAt,
	}
}

func CampaignDeactivatedEvent(id uint64, at time.Time) Event {
	return Event{Kind: EventCampaignDeactivated, CampaignID: id, OccurredAt: at}
}

func CampaignReactivatedEvent(id uint64, at time.Time) Event {
	return Event{Kind: EventCampaignReactivated, CampaignID: id, OccurredAt: at}
}

func BeneficiaryUpdatedEvent(id uint64, beneficiary Address, at time.Time) Event {
	return Event{Kind: EventCampaignBeneficiaryUpdated, CampaignID: id, Account: beneficiary, OccurredAt: at}
}

func DonationEvent(d Donation) Event {
	return Event{
		Kind:       EventDonation,
		CampaignID: d.CampaignID,
		RecordSeq:  d.Seq,
		Account:    d.Donor,
		Amount:     d.Amount,
		Text:       d.Message,
		OccurredAt: d.Timestamp,
	}
}

func WithdrawalEvent(w Withdrawal) Event {
	return Event{
		Kind:       EventWithdrawal,
		CampaignID: w.CampaignID,
		RecordSeq:  w.Seq,
		Account:    w.Beneficiary,
		Amount:     w.Amount,
		Text:       w.Reason,
		OccurredAt: w.Timestamp,
	}
}
