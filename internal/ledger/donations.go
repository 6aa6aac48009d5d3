package ledger

import (
	"context"
	"slices"

	"fundledger/internal/domain"
)

// DonateToCampaign records a contribution from caller and returns the stored
// donation. An empty message is stored as domain.AnonymousDonationMessage.
func (l *Ledger) DonateToCampaign(ctx context.Context, caller domain.Address, id uint64, message string, amount domain.Amount) (domain.Donation, error) {
	const op = "donate_to_campaign"

	l.mu.Lock()
	defer l.mu.Unlock()

	st, err := l.lookup(id)
	if err != nil {
		return domain.Donation{}, l.reject(op, err)
	}
	if !st.campaign.Active() {
		return domain.Donation{}, l.reject(op, domain.ErrCampaignInactive)
	}
	if amount.IsZero() {
		return domain.Donation{}, l.reject(op, domain.ErrDonationAmountZero)
	}
	if caller.IsZero() {
		return domain.Donation{}, l.reject(op, domain.ErrDonorZero)
	}
	balance, err := st.campaign.Balance.Add(amount)
	if err != nil {
		return domain.Donation{}, l.reject(op, err)
	}
	total, err := st.totalDonations.Add(amount)
	if err != nil {
		return domain.Donation{}, l.reject(op, err)
	}
	if message == "" {
		message = domain.AnonymousDonationMessage
	}

	d := domain.Donation{
		CampaignID: id,
		Seq:        uint64(len(st.donations)) + 1,
		Donor:      caller,
		Amount:     amount,
		Message:    message,
		Timestamp:  l.now(),
	}
	c := st.campaign
	c.Balance = balance

	change := domain.Change{
		Campaign:       c,
		TotalDonations: total,
		Donation:       &d,
		Event:          domain.DonationEvent(d),
	}
	if !slices.Contains(st.donors, caller) {
		donor := caller
		change.Donor = &donor
	}

	if _, err := l.commit(ctx, change); err != nil {
		return domain.Donation{}, err
	}
	return d, nil
}

// GetCampaignDonations returns the campaign's donations in the order received.
func (l *Ledger) GetCampaignDonations(id uint64) ([]domain.Donation, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	st, err := l.lookup(id)
	if err != nil {
		return nil, err
	}
	return cloneOrEmpty(st.donations), nil
}

// GetCampaignDonors returns each distinct donor once, in first-donation order.
func (l *Ledger) GetCampaignDonors(id uint64) ([]domain.Address, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	st, err := l.lookup(id)
	if err != nil {
		return nil, err
	}
	return cloneOrEmpty(st.donors), nil
}

// GetCampaignTotalDonations returns the sum of all donations ever received,
// regardless of withdrawals.
func (l *Ledger) GetCampaignTotalDonations(id uint64) (domain.Amount, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	st, err := l.lookup(id)
	if err != nil {
		return domain.Amount{}, err
	}
	return st.totalDonations, nil
}

func cloneOrEmpty[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}
