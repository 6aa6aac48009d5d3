package ledger

import "fundledger/internal/domain"

// AccessPolicy answers the two authorization questions of the ledger. It holds
// no state beyond the administrator; beneficiaries are read from the campaign.
type AccessPolicy struct {
	admin domain.Address
}

func NewAccessPolicy(admin domain.Address) AccessPolicy {
	return AccessPolicy{admin: admin}
}

func (p AccessPolicy) Administrator() domain.Address { return p.admin }

// IsAdministrator reports whether caller is the administrator.
func (p AccessPolicy) IsAdministrator(caller domain.Address) bool {
	return !caller.IsZero() && caller == p.admin
}

// IsBeneficiary reports whether caller currently controls withdrawals of c.
func (p AccessPolicy) IsBeneficiary(caller domain.Address, c domain.Campaign) bool {
	return !caller.IsZero() && caller == c.Beneficiary
}
