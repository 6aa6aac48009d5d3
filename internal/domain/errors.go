package domain

import "errors"

// Sentinels for each error kind. Every *Error unwraps to one of these so
// callers can branch with errors.Is without knowing the exact message.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidState      = errors.New("invalid state")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Kind classifies a ledger failure.
type Kind string

const (
	KindInvalidInput      Kind = "invalid_input"
	KindNotFound          Kind = "not_found"
	KindUnauthorized      Kind = "unauthorized"
	KindInvalidState      Kind = "invalid_state"
	KindInsufficientFunds Kind = "insufficient_funds"
)

// Error is a caller-correctable ledger failure. Message is part of the public
// contract and is returned verbatim by Error().
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error {
	switch e.Kind {
	case KindInvalidInput:
		return ErrInvalidInput
	case KindNotFound:
		return ErrNotFound
	case KindUnauthorized:
		return ErrUnauthorized
	case KindInvalidState:
		return ErrInvalidState
	case KindInsufficientFunds:
		return ErrInsufficientFunds
	}
	return nil
}

// KindOf extracts the kind of a ledger failure, if err carries one.
func KindOf(err error) (Kind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

var (
	ErrTitleEmpty            = &Error{Kind: KindInvalidInput, Message: "Campaign title cannot be empty"}
	ErrCampaignNotFound      = &Error{Kind: KindNotFound, Message: "Campaign does not exist"}
	ErrCampaignInactive      = &Error{Kind: KindInvalidState, Message: "Campaign is not active"}
	ErrCampaignAlreadyActive = &Error{Kind: KindInvalidState, Message: "Campaign already active"}
	ErrCallerNotOwner        = &Error{Kind: KindUnauthorized, Message: "Caller is not owner"}
	ErrBeneficiaryZero       = &Error{Kind: KindInvalidInput, Message: "Beneficiary address cannot be 0x0"}
	ErrBeneficiarySame       = &Error{Kind: KindInvalidInput, Message: "Beneficiary address cannot be the same"}
	ErrDonationAmountZero    = &Error{Kind: KindInvalidInput, Message: "Donation amount should be more than 0"}
	ErrDonorZero             = &Error{Kind: KindInvalidInput, Message: "Donor address cannot be 0x0"}
	ErrNotBeneficiary        = &Error{Kind: KindUnauthorized, Message: "Only beneficiary can withdraw"}
	ErrWithdrawalAmountZero  = &Error{Kind: KindInvalidInput, Message: "Withdrawal amount should be more than 0"}
	ErrInsufficientBalance   = &Error{Kind: KindInsufficientFunds, Message: "Withdrawal amount is more than available balance"}
	ErrWithdrawalReasonEmpty = &Error{Kind: KindInvalidInput, Message: "Withdrawal reason cannot be empty"}
	ErrAmountOverflow        = &Error{Kind: KindInvalidInput, Message: "Amount overflows campaign balance"}
)
