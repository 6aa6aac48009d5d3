// Package postgres provides a PostgreSQL-backed ledger store. Runtime queries
// go through infra.SQLRunner (pgx); schema migrations run over database/sql.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"fundledger/internal/domain"
	"fundledger/internal/infra"
	"fundledger/internal/sqlinline"
)

// writerLockKey is the advisory lock a writing ledger holds for its lifetime.
const writerLockKey int64 = 0x66756e64

// Store persists ledger state in PostgreSQL.
type Store struct {
	sql infra.TxExecutor

	lockMu    sync.Mutex
	lockPID   int32
	releaseFn func()
}

// NewStore wraps an executor. The schema must already be migrated.
func NewStore(sql infra.TxExecutor) *Store {
	return &Store{sql: sql}
}

func (s *Store) SetAdmin(ctx context.Context, admin domain.Address) error {
	if _, err := s.sql.Exec(ctx, sqlinline.QUpsertAdmin, admin.String()); err != nil {
		return fmt.Errorf("postgres: set admin: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{}

	var admin string
	if err := s.sql.QueryRow(ctx, sqlinline.QSelectAdmin).Scan(&admin); err != nil && !infra.IsNoRows(err) {
		return nil, fmt.Errorf("postgres: load admin: %w", err)
	}
	snap.Admin = domain.Address(admin)

	if err := s.loadCampaigns(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.loadDonations(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.loadWithdrawals(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.loadDonors(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.sql.QueryRow(ctx, sqlinline.QLastEventSeq).Scan(&snap.LastEventSeq); err != nil {
		return nil, fmt.Errorf("postgres: load last event seq: %w", err)
	}
	return snap, nil
}

func (s *Store) loadCampaigns(ctx context.Context, snap *domain.Snapshot) error {
	rows, err := s.sql.Query(ctx, sqlinline.QListCampaigns)
	if err != nil {
		return fmt.Errorf("postgres: load campaigns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec            domain.CampaignRecord
			benef          string
			balance, total string
			active         bool
		)
		if err := rows.Scan(&rec.Campaign.ID, &rec.Campaign.Title, &benef, &balance, &total, &active, &rec.Campaign.CreatedAt); err != nil {
			return fmt.Errorf("postgres: scan campaign: %w", err)
		}
		if rec.Campaign.Balance, err = domain.ParseAmount(balance); err != nil {
			return fmt.Errorf("postgres: campaign %d balance: %w", rec.Campaign.ID, err)
		}
		if rec.TotalDonations, err = domain.ParseAmount(total); err != nil {
			return fmt.Errorf("postgres: campaign %d total: %w", rec.Campaign.ID, err)
		}
		rec.Campaign.Beneficiary = domain.Address(benef)
		rec.Campaign.State = domain.StateFromActive(active)
		rec.Campaign.CreatedAt = rec.Campaign.CreatedAt.UTC()
		snap.Campaigns = append(snap.Campaigns, rec)
	}
	return rows.Err()
}

func (s *Store) loadDonations(ctx context.Context, snap *domain.Snapshot) error {
	rows, err := s.sql.Query(ctx, sqlinline.QListDonations)
	if err != nil {
		return fmt.Errorf("postgres: load donations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			d             domain.Donation
			donor, amount string
		)
		if err := rows.Scan(&d.CampaignID, &d.Seq, &donor, &amount, &d.Message, &d.Timestamp); err != nil {
			return fmt.Errorf("postgres: scan donation: %w", err)
		}
		if d.Amount, err = domain.ParseAmount(amount); err != nil {
			return fmt.Errorf("postgres: donation amount: %w", err)
		}
		d.Donor = domain.Address(donor)
		d.Timestamp = d.Timestamp.UTC()
		rec, err := recordFor(snap, d.CampaignID)
		if err != nil {
			return err
		}
		rec.Donations = append(rec.Donations, d)
	}
	return rows.Err()
}

func (s *Store) loadWithdrawals(ctx context.Context, snap *domain.Snapshot) error {
	rows, err := s.sql.Query(ctx, sqlinline.QListWithdrawals)
	if err != nil {
		return fmt.Errorf("postgres: load withdrawals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			w             domain.Withdrawal
			benef, amount string
		)
		if err := rows.Scan(&w.CampaignID, &w.Seq, &benef, &amount, &w.Reason, &w.Timestamp); err != nil {
			return fmt.Errorf("postgres: scan withdrawal: %w", err)
		}
		if w.Amount, err = domain.ParseAmount(amount); err != nil {
			return fmt.Errorf("postgres: withdrawal amount: %w", err)
		}
		w.Beneficiary = domain.Address(benef)
		w.Timestamp = w.Timestamp.UTC()
		rec, err := recordFor(snap, w.CampaignID)
		if err != nil {
			return err
		}
		rec.Withdrawals = append(rec.Withdrawals, w)
	}
	return rows.Err()
}

func (s *Store) loadDonors(ctx context.Context, snap *domain.Snapshot) error {
	rows, err := s.sql.Query(ctx, sqlinline.QListDonors)
	if err != nil {
		return fmt.Errorf("postgres: load donors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    uint64
			donor string
		)
		if err := rows.Scan(&id, &donor); err != nil {
			return fmt.Errorf("postgres: scan donor: %w", err)
		}
		rec, err := recordFor(snap, id)
		if err != nil {
			return err
		}
		rec.Donors = append(rec.Donors, domain.Address(donor))
	}
	return rows.Err()
}

func recordFor(snap *domain.Snapshot, id uint64) (*domain.CampaignRecord, error) {
	if id == 0 || id > uint64(len(snap.Campaigns)) {
		return nil, fmt.Errorf("postgres: row references unknown campaign %d", id)
	}
	return &snap.Campaigns[id-1], nil
}

// Commit writes every part of change inside one transaction.
func (s *Store) Commit(ctx context.Context, change domain.Change) error {
	payload, err := json.Marshal(change.Event)
	if err != nil {
		return fmt.Errorf("postgres: encode event: %w", err)
	}

	return s.sql.InTx(ctx, func(tx infra.SQLExecutor) error {
		if err := s.checkWriter(ctx, tx); err != nil {
			return err
		}
		c := change.Campaign
		if change.Created {
			if _, err := tx.Exec(ctx, sqlinline.QInsertCampaign,
				c.ID, c.Title, c.Beneficiary.String(), c.Balance.String(), change.TotalDonations.String(), c.Active(), c.CreatedAt); err != nil {
				return fmt.Errorf("postgres: insert campaign: %w", err)
			}
		} else {
			tag, err := tx.Exec(ctx, sqlinline.QUpdateCampaign,
				c.ID, c.Title, c.Beneficiary.String(), c.Balance.String(), change.TotalDonations.String(), c.Active())
			if err != nil {
				return fmt.Errorf("postgres: update campaign: %w", err)
			}
			if tag.RowsAffected() != 1 {
				return fmt.Errorf("postgres: campaign %d not stored", c.ID)
			}
		}

		if d := change.Donation; d != nil {
			if _, err := tx.Exec(ctx, sqlinline.QInsertDonation,
				d.CampaignID, d.Seq, d.Donor.String(), d.Amount.String(), d.Message, d.Timestamp); err != nil {
				return fmt.Errorf("postgres: insert donation: %w", err)
			}
		}
		if donor := change.Donor; donor != nil {
			if _, err := tx.Exec(ctx, sqlinline.QInsertDonor, c.ID, donor.String()); err != nil {
				return fmt.Errorf("postgres: insert donor: %w", err)
			}
		}
		if w := change.Withdrawal; w != nil {
			if _, err := tx.Exec(ctx, sqlinline.QInsertWithdrawal,
				w.CampaignID, w.Seq, w.Beneficiary.String(), w.Amount.String(), w.Reason, w.Timestamp); err != nil {
				return fmt.Errorf("postgres: insert withdrawal: %w", err)
			}
		}

		e := change.Event
		if _, err := tx.Exec(ctx, sqlinline.QInsertEvent,
			e.Seq, e.ID, string(e.Kind), e.CampaignID, string(payload), e.OccurredAt); err != nil {
			return fmt.Errorf("postgres: insert event: %w", err)
		}
		return nil
	})
}

func (s *Store) EventsSince(ctx context.Context, afterSeq uint64, limit int) ([]domain.Event, error) {
	rows, err := s.sql.Query(ctx, sqlinline.QListEventsSince, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: query events: %w", err)
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		var e domain.Event
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, fmt.Errorf("postgres: decode event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// LockWriter takes the writer advisory lock on a pinned session. The session
// stays checked out of the pool until Close.
func (s *Store) LockWriter(ctx context.Context) error {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	if s.releaseFn != nil {
		return nil
	}
	sp, ok := s.sql.(infra.SessionProvider)
	if !ok {
		return errors.New("postgres: executor cannot pin a session")
	}
	session, release, err := sp.Session(ctx)
	if err != nil {
		return fmt.Errorf("postgres: writer lock: %w", err)
	}
	var (
		granted bool
		pid     int32
	)
	if err := session.QueryRow(ctx, sqlinline.QTryWriterLock, writerLockKey).Scan(&granted, &pid); err != nil {
		release()
		return fmt.Errorf("postgres: writer lock: %w", err)
	}
	if !granted {
		release()
		return domain.ErrWriterLocked
	}
	s.lockPID = pid
	s.releaseFn = func() {
		_, _ = session.Exec(context.Background(), sqlinline.QWriterUnlock, writerLockKey)
		release()
	}
	return nil
}

// checkWriter fails when the session holding the writer lock is gone.
func (s *Store) checkWriter(ctx context.Context, tx infra.SQLExecutor) error {
	s.lockMu.Lock()
	pid := s.lockPID
	s.lockMu.Unlock()
	if pid == 0 {
		return nil
	}
	var held bool
	if err := tx.QueryRow(ctx, sqlinline.QWriterLockHeld, writerLockKey, pid).Scan(&held); err != nil {
		return fmt.Errorf("postgres: check writer lock: %w", err)
	}
	if !held {
		return domain.ErrWriterLocked
	}
	return nil
}

// Close releases the writer lock. The pool itself is owned by the caller.
func (s *Store) Close() error {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	if s.releaseFn != nil {
		s.releaseFn()
		s.releaseFn = nil
		s.lockPID = 0
	}
	return nil
}

var (
	_ domain.Store        = (*Store)(nil)
	_ domain.WriterLocker = (*Store)(nil)
)
