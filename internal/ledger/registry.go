package ledger

import (
	"context"
	"slices"

	"fundledger/internal/domain"
)

// CreateCampaign opens a campaign owned by caller and returns its id.
// Any caller may create a campaign; the caller becomes the beneficiary.
func (l *Ledger) CreateCampaign(ctx context.Context, caller domain.Address, title string) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if title == "" {
		return 0, l.reject("create_campaign", domain.ErrTitleEmpty)
	}
	if caller.IsZero() {
		return 0, l.reject("create_campaign", domain.ErrBeneficiaryZero)
	}

	c := domain.Campaign{
		ID:          uint64(len(l.campaigns)) + 1,
		Title:       title,
		Beneficiary: caller,
		State:       domain.StateActive,
		CreatedAt:   l.now(),
	}
	if _, err := l.commit(ctx, domain.Change{
		Campaign: c,
		Created:  true,
		Event:    domain.CampaignCreatedEvent(c),
	}); err != nil {
		return 0, err
	}
	return c.ID, nil
}

// DeactivateCampaign disables donations and withdrawals. Administrator only.
func (l *Ledger) DeactivateCampaign(ctx context.Context, caller domain.Address, id uint64) error {
	return l.transition(ctx, "deactivate_campaign", caller, id, domain.StateInactive)
}

// ReactivateCampaign re-enables a deactivated campaign. Administrator only.
func (l *Ledger) ReactivateCampaign(ctx context.Context, caller domain.Address, id uint64) error {
	return l.transition(ctx, "reactivate_campaign", caller, id, domain.StateActive)
}

func (l *Ledger) transition(ctx context.Context, op string, caller domain.Address, id uint64, target domain.LifecycleState) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.policy.IsAdministrator(caller) {
		return l.reject(op, domain.ErrCallerNotOwner)
	}
	st, err := l.lookup(id)
	if err != nil {
		return l.reject(op, err)
	}
	if st.campaign.State == target {
		if target == domain.StateInactive {
			return l.reject(op, domain.ErrCampaignInactive)
		}
		return l.reject(op, domain.ErrCampaignAlreadyActive)
	}

	c := st.campaign
	c.State = target
	event := domain.CampaignReactivatedEvent(id, l.now())
	if target == domain.StateInactive {
		event = domain.CampaignDeactivatedEvent(id, l.now())
	}
	_, err = l.commit(ctx, domain.Change{
		Campaign:       c,
		TotalDonations: st.totalDonations,
		Event:          event,
	})
	return err
}

// UpdateCampaignBeneficiary hands withdrawal rights of an active campaign to
// another address. Administrator only.
func (l *Ledger) UpdateCampaignBeneficiary(ctx context.Context, caller domain.Address, id uint64, beneficiary domain.Address) error {
	const op = "update_campaign_beneficiary"

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.policy.IsAdministrator(caller) {
		return l.reject(op, domain.ErrCallerNotOwner)
	}
	st, err := l.lookup(id)
	if err != nil {
		return l.reject(op, err)
	}
	if !st.campaign.Active() {
		return l.reject(op, domain.ErrCampaignInactive)
	}
	if beneficiary.IsZero() {
		return l.reject(op, domain.ErrBeneficiaryZero)
	}
	if beneficiary == st.campaign.Beneficiary {
		return l.reject(op, domain.ErrBeneficiarySame)
	}

	c := st.campaign
	c.Beneficiary = beneficiary
	_, err = l.commit(ctx, domain.Change{
		Campaign:       c,
		TotalDonations: st.totalDonations,
		Event:          domain.BeneficiaryUpdatedEvent(id, beneficiary, l.now()),
	})
	return err
}

// GetCampaign returns a copy of the campaign with the given id.
func (l *Ledger) GetCampaign(id uint64) (domain.Campaign, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	st, err := l.lookup(id)
	if err != nil {
		return domain.Campaign{}, err
	}
	return st.campaign, nil
}

// GetAllCampaigns returns every campaign in creation order.
func (l *Ledger) GetAllCampaigns() []domain.Campaign {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Campaign, 0, len(l.campaigns))
	for _, st := range l.campaigns {
		out = append(out, st.campaign)
	}
	return out
}

// GetCampaignSummary returns the campaign together with its read-side counters.
func (l *Ledger) GetCampaignSummary(id uint64) (domain.CampaignSummary, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	st, err := l.lookup(id)
	if err != nil {
		return domain.CampaignSummary{}, err
	}
	return domain.CampaignSummary{
		Campaign:        st.campaign,
		TotalDonations:  st.totalDonations,
		DonationCount:   len(st.donations),
		WithdrawalCount: len(st.withdrawals),
		DonorCount:      len(st.donors),
	}, nil
}

// Records returns a deep copy of every campaign record, for exports.
func (l *Ledger) Records() []domain.CampaignRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.CampaignRecord, 0, len(l.campaigns))
	for _, st := range l.campaigns {
		out = append(out, domain.CampaignRecord{
			Campaign:       st.campaign,
			TotalDonations: st.totalDonations,
			Donations:      slices.Clone(st.donations),
			Withdrawals:    slices.Clone(st.withdrawals),
			Donors:         slices.Clone(st.donors),
		})
	}
	return out
}
