// Package memory provides a process-local ledger store for development and
// tests. State is lost when the process exits.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"fundledger/internal/domain"
)

// Store keeps ledger state in memory.
type Store struct {
	mu        sync.RWMutex
	admin     domain.Address
	campaigns []domain.CampaignRecord
	events    []domain.Event
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

func (s *Store) Load(ctx context.Context) (*domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &domain.Snapshot{
		Admin:     s.admin,
		Campaigns: make([]domain.CampaignRecord, 0, len(s.campaigns)),
	}
	for _, rec := range s.campaigns {
		snap.Campaigns = append(snap.Campaigns, cloneRecord(rec))
	}
	if n := len(s.events); n > 0 {
		snap.LastEventSeq = s.events[n-1].Seq
	}
	return snap, nil
}

func (s *Store) SetAdmin(ctx context.Context, admin domain.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admin = admin
	return nil
}

func (s *Store) Commit(ctx context.Context, change domain.Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := change.Campaign.ID
	switch {
	case change.Created:
		if id != uint64(len(s.campaigns))+1 {
			return fmt.Errorf("memory: campaign id %d out of sequence", id)
		}
		s.campaigns = append(s.campaigns, domain.CampaignRecord{})
	case id == 0 || id > uint64(len(s.campaigns)):
		return fmt.Errorf("memory: campaign %d not stored", id)
	}

	rec := &s.campaigns[id-1]
	rec.Campaign = change.Campaign
	rec.TotalDonations = change.TotalDonations
	if change.Donation != nil {
		rec.Donations = append(rec.Donations, *change.Donation)
	}
	if change.Donor != nil {
		rec.Donors = append(rec.Donors, *change.Donor)
	}
	if change.Withdrawal != nil {
		rec.Withdrawals = append(rec.Withdrawals, *change.Withdrawal)
	}
	s.events = append(s.events, change.Event)
	return nil
}

func (s *Store) EventsSince(ctx context.Context, afterSeq uint64, limit int) ([]domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Sequences start at 1 and are gap-free, so the slice index is seq-1.
	start := min(afterSeq, uint64(len(s.events)))
	end := uint64(len(s.events))
	if limit > 0 && start+uint64(limit) < end {
		end = start + uint64(limit)
	}
	return slices.Clone(s.events[start:end]), nil
}

func (s *Store) Close() error { return nil }

func cloneRecord(rec domain.CampaignRecord) domain.CampaignRecord {
	return domain.CampaignRecord{
		Campaign:       rec.Campaign,
		TotalDonations: rec.TotalDonations,
		Donations:      slices.Clone(rec.Donations),
		Withdrawals:    slices.Clone(rec.Withdrawals),
		Donors:         slices.Clone(rec.Donors),
	}
}

var _ domain.Store = (*Store)(nil)
