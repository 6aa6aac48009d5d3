package ledger

import (
	"context"

	"fundledger/internal/domain"
)

// WithdrawFromCampaign moves amount out of the campaign balance on behalf of
// its beneficiary. Checks run in a fixed order: existence, authorization,
// lifecycle, amount, sufficiency, reason.
func (l *Ledger) WithdrawFromCampaign(ctx context.Context, caller domain.Address, id uint64, amount domain.Amount, reason string) (domain.Withdrawal, error) {
	const op = "withdraw_from_campaign"

	l.mu.Lock()
	defer l.mu.Unlock()

	st, err := l.lookup(id)
	if err != nil {
		return domain.Withdrawal{}, l.reject(op, err)
	}
	if !l.policy.IsBeneficiary(caller, st.campaign) {
		return domain.Withdrawal{}, l.reject(op, domain.ErrNotBeneficiary)
	}
	if !st.campaign.Active() {
		return domain.Withdrawal{}, l.reject(op, domain.ErrCampaignInactive)
	}
	if amount.IsZero() {
		return domain.Withdrawal{}, l.reject(op, domain.ErrWithdrawalAmountZero)
	}
	balance, err := st.campaign.Balance.Sub(amount)
	if err != nil {
		return domain.Withdrawal{}, l.reject(op, err)
	}
	if reason == "" {
		return domain.Withdrawal{}, l.reject(op, domain.ErrWithdrawalReasonEmpty)
	}

	w := domain.Withdrawal{
		CampaignID:  id,
		Seq:         uint64(len(st.withdrawals)) + 1,
		Beneficiary: caller,
		Amount:      amount,
		Reason:      reason,
		Timestamp:   l.now(),
	}
	c := st.campaign
	c.Balance = balance

	if _, err := l.commit(ctx, domain.Change{
		Campaign:       c,
		TotalDonations: st.totalDonations,
		Withdrawal:     &w,
		Event:          domain.WithdrawalEvent(w),
	}); err != nil {
		return domain.Withdrawal{}, err
	}
	return w, nil
}

// GetCampaignWithdrawals returns the campaign's withdrawals in order.
func (l *Ledger) GetCampaignWithdrawals(id uint64) ([]domain.Withdrawal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	st, err := l.lookup(id)
	if err != nil {
		return nil, err
	}
	return cloneOrEmpty(st.withdrawals), nil
}
