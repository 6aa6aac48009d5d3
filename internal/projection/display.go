// Package projection maintains a read-optimized display copy of the ledger by
// tailing its persisted event stream.
package projection

import (
	"fmt"
	"strconv"

	"fundledger/internal/domain"
)

// Display is the projected view of one campaign.
type Display struct {
	CampaignID      uint64
	Title           string
	Beneficiary     domain.Address
	Balance         domain.Amount
	TotalDonations  domain.Amount
	Active          bool
	DonationCount   uint64
	WithdrawalCount uint64
	LastSeq         uint64
}

// Fold applies event to d and returns the result. Events at or below
// d.LastSeq are ignored so replays are harmless.
func Fold(d Display, e domain.Event) (Display, error) {
	if e.Seq != 0 && e.Seq <= d.LastSeq {
		return d, nil
	}
	d.CampaignID = e.CampaignID
	switch e.Kind {
	case domain.EventCampaignCreated:
		d.Title = e.Title
		d.Beneficiary = e.Account
		d.Balance = e.Amount
		d.Active = e.Active
	case domain.EventCampaignDeactivated:
		d.Active = false
	case domain.EventCampaignReactivated:
		d.Active = true
	case domain.EventCampaignBeneficiaryUpdated:
		d.Beneficiary = e.Account
	case domain.EventDonation:
		balance, err := d.Balance.Add(e.Amount)
		if err != nil {
			return d, fmt.Errorf("projection: event %d: %w", e.Seq, err)
		}
		total, err := d.TotalDonations.Add(e.Amount)
		if err != nil {
			return d, fmt.Errorf("projection: event %d: %w", e.Seq, err)
		}
		d.Balance, d.TotalDonations = balance, total
		d.DonationCount++
	case domain.EventWithdrawal:
		balance, err := d.Balance.Sub(e.Amount)
		if err != nil {
			return d, fmt.Errorf("projection: event %d: %w", e.Seq, err)
		}
		d.Balance = balance
		d.WithdrawalCount++
	default:
		return d, fmt.Errorf("projection: event %d: unknown kind %q", e.Seq, e.Kind)
	}
	d.LastSeq = e.Seq
	return d, nil
}

// fields renders d as a flat string map, the shape stored in a Redis hash.
func (d Display) fields() map[string]any {
	return map[string]any{
		"campaign_id":      strconv.FormatUint(d.CampaignID, 10),
		"title":            d.Title,
		"beneficiary":      d.Beneficiary.String(),
		"balance":          d.Balance.String(),
		"total_donations":  d.TotalDonations.String(),
		"active":           strconv.FormatBool(d.Active),
		"donation_count":   strconv.FormatUint(d.DonationCount, 10),
		"withdrawal_count": strconv.FormatUint(d.WithdrawalCount, 10),
		"last_seq":         strconv.FormatUint(d.LastSeq, 10),
	}
}

// displayFromFields parses a stored hash. An empty map is a campaign not yet seen.
func displayFromFields(m map[string]string) (Display, error) {
	var d Display
	if len(m) == 0 {
		return d, nil
	}
	var err error
	if d.CampaignID, err = parseUint(m, "campaign_id"); err != nil {
		return d, err
	}
	d.Title = m["title"]
	d.Beneficiary = domain.Address(m["beneficiary"])
	if d.Balance, err = domain.ParseAmount(m["balance"]); err != nil {
		return d, fmt.Errorf("projection: balance: %w", err)
	}
	if d.TotalDonations, err = domain.ParseAmount(m["total_donations"]); err != nil {
		return d, fmt.Errorf("projection: total_donations: %w", err)
	}
	if d.Active, err = strconv.ParseBool(m["active"]); err != nil {
		return d, fmt.Errorf("projection: active: %w", err)
	}
	if d.DonationCount, err = parseUint(m, "donation_count"); err != nil {
		return d, err
	}
	if d.WithdrawalCount, err = parseUint(m, "withdrawal_count"); err != nil {
		return d, err
	}
	if d.LastSeq, err = parseUint(m, "last_seq"); err != nil {
		return d, err
	}
	return d, nil
}

func parseUint(m map[string]string, key string) (uint64, error) {
	v, err := strconv.ParseUint(m[key], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("projection: %s: %w", key, err)
	}
	return v, nil
}
