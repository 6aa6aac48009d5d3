package domain

import (
	"context"
	"errors"
)

// CampaignRecord is the full persisted state of one campaign.
type CampaignRecord struct {
	Campaign       Campaign
	TotalDonations Amount
	Donations      []Donation
	Withdrawals    []Withdrawal
	Donors         []Address
}

// Snapshot is everything a ledger needs to resume after a restart.
type Snapshot struct {
	Admin        Address
	Campaigns    []CampaignRecord // ordered by campaign id
	LastEventSeq uint64
}

// Change is the staged effect of one successful mutation. A Store must make
// all of it durable or none of it.
type Change struct {
	// Campaign is the post-mutation state of the touched campaign.
	Campaign       Campaign
	TotalDonations Amount
	Created        bool
	Donation       *Donation
	// Donor is set only when the donor is new to the campaign's donor set.
	Donor      *Address
	Withdrawal *Withdrawal
	Event      Event
}

// EventReader reads the persisted notification stream.
type EventReader interface {
	EventsSince(ctx context.Context, afterSeq uint64, limit int) ([]Event, error)
}

// Store persists ledger state.
type Store interface {
	EventReader
	Load(ctx context.Context) (*Snapshot, error)
	SetAdmin(ctx context.Context, admin Address) error
	Commit(ctx context.Context, change Change) error
	Close() error
}

// ErrWriterLocked is returned when another process holds the store's writer
// lock.
var ErrWriterLocked = errors.New("store is locked by another writer")

// WriterLocker is implemented by stores that several processes can open. A
// store grants the lock to one holder at a time and keeps it until Close.
type WriterLocker interface {
	LockWriter(ctx context.Context) error
}
