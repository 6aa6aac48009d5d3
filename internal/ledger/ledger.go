// Package ledger implements the campaign fund ledger: the campaign registry,
// the donation and withdrawal ledgers, and the event log that reports every
// committed mutation.
//
// A Ledger serializes mutations behind one write lock. Each mutation is
// validated against in-memory state, staged as a domain.Change, made durable by
// the Store and only then applied in memory and published. A mutation that
// fails at any step leaves the ledger untouched.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fundledger/internal/domain"
)

// ErrAdminMismatch is returned when the configured administrator differs from
// the one the store was initialized with.
var ErrAdminMismatch = errors.New("ledger: administrator mismatch")

// ErrReadOnly is returned by mutations on a ledger opened with ReadOnly.
var ErrReadOnly = errors.New("ledger: opened read-only")

// Observer is notified of every committed event and every rejected mutation.
type Observer interface {
	Committed(event domain.Event)
	Rejected(op string, err error)
}

// Options configures a Ledger.
type Options struct {
	Admin    domain.Address
	Store    domain.Store
	Logger   zerolog.Logger
	Clock    func() time.Time
	Observer Observer
	// ReadOnly skips the store's writer lock and refuses every mutation.
	ReadOnly bool
}

// Ledger is the aggregate of CampaignRegistry, DonationLedger,
// WithdrawalLedger and EventLog over one shared state.
type Ledger struct {
	mu        sync.RWMutex
	policy    AccessPolicy
	store     domain.Store
	events    *EventLog
	logger    zerolog.Logger
	clock     func() time.Time
	observer  Observer
	readOnly  bool
	campaigns []*campaignState
}

type campaignState struct {
	campaign       domain.Campaign
	totalDonations domain.Amount
	donations      []domain.Donation
	withdrawals    []domain.Withdrawal
	donors         []domain.Address
}

// New loads the persisted state from opts.Store and returns a ready Ledger.
// Unless opts.ReadOnly is set, a store implementing domain.WriterLocker is
// locked first, so a second writer on the same database fails here with
// domain.ErrWriterLocked instead of diverging from the first.
func New(ctx context.Context, opts Options) (*Ledger, error) {
	if opts.Store == nil {
		return nil, errors.New("ledger: store is required")
	}
	if locker, ok := opts.Store.(domain.WriterLocker); ok && !opts.ReadOnly {
		if err := locker.LockWriter(ctx); err != nil {
			return nil, fmt.Errorf("ledger: acquire writer lock: %w", err)
		}
	}
	snap, err := opts.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger: load state: %w", err)
	}
	admin, err := resolveAdmin(ctx, opts.Store, snap.Admin, opts.Admin, opts.ReadOnly)
	if err != nil {
		return nil, err
	}

	campaigns := make([]*campaignState, 0, len(snap.Campaigns))
	for i, rec := range snap.Campaigns {
		if rec.Campaign.ID != uint64(i)+1 {
			return nil, fmt.Errorf("ledger: campaign ids not dense: position %d holds id %d", i+1, rec.Campaign.ID)
		}
		campaigns = append(campaigns, &campaignState{
			campaign:       rec.Campaign,
			totalDonations: rec.TotalDonations,
			donations:      rec.Donations,
			withdrawals:    rec.Withdrawals,
			donors:         rec.Donors,
		})
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Ledger{
		policy:    NewAccessPolicy(admin),
		store:     opts.Store,
		events:    newEventLog(opts.Store, snap.LastEventSeq),
		logger:    opts.Logger.With().Str("component", "ledger").Logger(),
		clock:     clock,
		observer:  opts.Observer,
		readOnly:  opts.ReadOnly,
		campaigns: campaigns,
	}, nil
}

func resolveAdmin(ctx context.Context, store domain.Store, stored, configured domain.Address, readOnly bool) (domain.Address, error) {
	switch {
	case stored.IsZero() && configured.IsZero():
		return "", errors.New("ledger: administrator address is required")
	case stored.IsZero() && readOnly:
		return configured, nil
	case stored.IsZero():
		if err := store.SetAdmin(ctx, configured); err != nil {
			return "", fmt.Errorf("ledger: persist administrator: %w", err)
		}
		return configured, nil
	case configured.IsZero(), configured == stored:
		return stored, nil
	default:
		return "", fmt.Errorf("%w: store has %s, configured %s", ErrAdminMismatch, stored, configured)
	}
}

// Admin returns the administrator address fixed at initialization.
func (l *Ledger) Admin() domain.Address {
	return l.policy.Administrator()
}

// Events exposes the notification stream.
func (l *Ledger) Events() *EventLog {
	return l.events
}

func (l *Ledger) now() time.Time {
	return l.clock().UTC().Truncate(time.Millisecond)
}

// lookup must be called with l.mu held.
func (l *Ledger) lookup(id uint64) (*campaignState, error) {
	if id == 0 || id > uint64(len(l.campaigns)) {
		return nil, domain.ErrCampaignNotFound
	}
	return l.campaigns[id-1], nil
}

// commit persists change, applies it in memory and publishes its event.
// Callers hold l.mu for writing.
func (l *Ledger) commit(ctx context.Context, change domain.Change) (domain.Event, error) {
	if l.readOnly {
		return domain.Event{}, ErrReadOnly
	}
	change.Event.Seq = l.events.nextSeq()
	change.Event.ID = uuid.NewString()

	if err := l.store.Commit(ctx, change); err != nil {
		l.logger.Error().Err(err).
			Str("event", string(change.Event.Kind)).
			Uint64("campaign_id", change.Campaign.ID).
			Msg("commit failed")
		return domain.Event{}, fmt.Errorf("ledger: commit %s: %w", change.Event.Kind, err)
	}

	l.apply(change)
	l.events.publish(change.Event)

	l.logger.Info().
		Str("event", string(change.Event.Kind)).
		Uint64("seq", change.Event.Seq).
		Uint64("campaign_id", change.Campaign.ID).
		Msg("committed")
	if l.observer != nil {
		l.observer.Committed(change.Event)
	}
	return change.Event, nil
}

func (l *Ledger) apply(change domain.Change) {
	var st *campaignState
	if change.Created {
		st = &campaignState{}
		l.campaigns = append(l.campaigns, st)
	} else {
		st = l.campaigns[change.Campaign.ID-1]
	}
	st.campaign = change.Campaign
	st.totalDonations = change.TotalDonations
	if change.Donation != nil {
		st.donations = append(st.donations, *change.Donation)
	}
	if change.Donor != nil {
		st.donors = append(st.donors, *change.Donor)
	}
	if change.Withdrawal != nil {
		st.withdrawals = append(st.withdrawals, *change.Withdrawal)
	}
}

func (l *Ledger) reject(op string, err error) error {
	kind, _ := domain.KindOf(err)
	l.logger.Debug().Str("op", op).Str("kind", string(kind)).Msg(err.Error())
	if l.observer != nil {
		l.observer.Rejected(op, err)
	}
	return err
}
