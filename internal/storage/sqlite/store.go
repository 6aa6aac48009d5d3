// Package sqlite provides a SQLite-backed ledger store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"fundledger/internal/domain"
	"fundledger/internal/storage/migrate"
	"fundledger/internal/storage/sqlite/migrations"
)

const adminKey = "admin"

// DefaultWriterLease is how long a writer lock survives without renewal. A
// holder renews it every third of the lease, so a crashed process blocks new
// writers for at most one lease.
const DefaultWriterLease = 30 * time.Second

// Store persists ledger state in SQLite.
type Store struct {
	sqlDB *sql.DB

	lease time.Duration
	now   func() time.Time

	lockMu sync.Mutex
	owner  string
	stop   chan struct{}
	done   chan struct{}
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite ledger store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite: storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open db: %w", err)
	}
	// One writer at a time; the ledger already serializes mutations.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlite: ping db: %w", err)
	}
	if err := migrate.Apply(context.Background(), sqlDB, migrations.FS, ".", migrate.SQLite); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlite: run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, lease: DefaultWriterLease, now: time.Now}, nil
}

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// LockWriter claims the ledger_writer row. The claim succeeds when the row is
// free, expired or already ours, and is renewed in the background until Close.
func (s *Store) LockWriter(ctx context.Context) error {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	if s.owner != "" {
		return nil
	}
	owner := uuid.NewString()
	now := s.now()
	res, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO ledger_writer (id, owner, expires_at) VALUES (1, ?, ?)
ON CONFLICT (id) DO UPDATE SET owner = excluded.owner, expires_at = excluded.expires_at
WHERE ledger_writer.expires_at <= ?`,
		owner, toMillis(now.Add(s.lease)), toMillis(now))
	if err != nil {
		return fmt.Errorf("sqlite: claim writer lock: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return domain.ErrWriterLocked
	}
	s.owner = owner
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.renewWriter(owner, s.stop, s.done)
	return nil
}

func (s *Store) renewWriter(owner string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.lease / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// A lost lease surfaces as ErrWriterLocked on the next Commit.
			_, _ = s.sqlDB.Exec(`UPDATE ledger_writer SET expires_at = ? WHERE id = 1 AND owner = ?`,
				toMillis(s.now().Add(s.lease)), owner)
		}
	}
}

// checkWriter fails when a writer lock was taken and is no longer ours.
func (s *Store) checkWriter(ctx context.Context, tx *sql.Tx) error {
	s.lockMu.Lock()
	owner := s.owner
	s.lockMu.Unlock()
	if owner == "" {
		return nil
	}
	var current string
	err := tx.QueryRowContext(ctx, `SELECT owner FROM ledger_writer WHERE id = 1`).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && current != owner) {
		return domain.ErrWriterLocked
	}
	if err != nil {
		return fmt.Errorf("sqlite: check writer lock: %w", err)
	}
	return nil
}

// Close releases the writer lock, if held, and closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	s.lockMu.Lock()
	owner := s.owner
	if owner != "" {
		close(s.stop)
		<-s.done
		s.owner = ""
	}
	s.lockMu.Unlock()
	if owner != "" {
		_, _ = s.sqlDB.Exec(`DELETE FROM ledger_writer WHERE id = 1 AND owner = ?`, owner)
	}
	return s.sqlDB.Close()
}

func (s *Store) SetAdmin(ctx context.Context, admin domain.Address) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO ledger_meta (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		adminKey, admin.String())
	if err != nil {
		return fmt.Errorf("sqlite: set admin: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{}

	var admin string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT value FROM ledger_meta WHERE key = ?`, adminKey).Scan(&admin)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: load admin: %w", err)
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

	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM ledger_events`).Scan(&snap.LastEventSeq); err != nil {
		return nil, fmt.Errorf("sqlite: load last event seq: %w", err)
	}
	return snap, nil
}

func (s *Store) loadCampaigns(ctx context.Context, snap *domain.Snapshot) error {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, title, beneficiary, balance, total_donations, active, created_at
FROM campaigns
ORDER BY id`)
	if err != nil {
		return fmt.Errorf("sqlite: load campaigns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec       domain.CampaignRecord
			benef     string
			active    bool
			createdAt int64
		)
		if err := rows.Scan(&rec.Campaign.ID, &rec.Campaign.Title, &benef, &rec.Campaign.Balance, &rec.TotalDonations, &active, &createdAt); err != nil {
			return fmt.Errorf("sqlite: scan campaign: %w", err)
		}
		rec.Campaign.Beneficiary = domain.Address(benef)
		rec.Campaign.State = domain.StateFromActive(active)
		rec.Campaign.CreatedAt = fromMillis(createdAt)
		snap.Campaigns = append(snap.Campaigns, rec)
	}
	return rows.Err()
}

func (s *Store) loadDonations(ctx context.Context, snap *domain.Snapshot) error {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT campaign_id, seq, donor, amount, message, created_at
FROM donations
ORDER BY campaign_id, seq`)
	if err != nil {
		return fmt.Errorf("sqlite: load donations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			d     domain.Donation
			donor string
			at    int64
		)
		if err := rows.Scan(&d.CampaignID, &d.Seq, &donor, &d.Amount, &d.Message, &at); err != nil {
			return fmt.Errorf("sqlite: scan donation: %w", err)
		}
		d.Donor = domain.Address(donor)
		d.Timestamp = fromMillis(at)
		rec, err := recordFor(snap, d.CampaignID)
		if err != nil {
			return err
		}
		rec.Donations = append(rec.Donations, d)
	}
	return rows.Err()
}

func (s *Store) loadWithdrawals(ctx context.Context, snap *domain.Snapshot) error {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT campaign_id, seq, beneficiary, amount, reason, created_at
FROM withdrawals
ORDER BY campaign_id, seq`)
	if err != nil {
		return fmt.Errorf("sqlite: load withdrawals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			w     domain.Withdrawal
			benef string
			at    int64
		)
		if err := rows.Scan(&w.CampaignID, &w.Seq, &benef, &w.Amount, &w.Reason, &at); err != nil {
			return fmt.Errorf("sqlite: scan withdrawal: %w", err)
		}
		w.Beneficiary = domain.Address(benef)
		w.Timestamp = fromMillis(at)
		rec, err := recordFor(snap, w.CampaignID)
		if err != nil {
			return err
		}
		rec.Withdrawals = append(rec.Withdrawals, w)
	}
	return rows.Err()
}

func (s *Store) loadDonors(ctx context.Context, snap *domain.Snapshot) error {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT campaign_id, donor
FROM campaign_donors
ORDER BY campaign_id, position`)
	if err != nil {
		return fmt.Errorf("sqlite: load donors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    uint64
			donor string
		)
		if err := rows.Scan(&id, &donor); err != nil {
			return fmt.Errorf("sqlite: scan donor: %w", err)
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
		return nil, fmt.Errorf("sqlite: row references unknown campaign %d", id)
	}
	return &snap.Campaigns[id-1], nil
}

// Commit writes every part of change inside one transaction.
func (s *Store) Commit(ctx context.Context, change domain.Change) (err error) {
	payload, err := json.Marshal(change.Event)
	if err != nil {
		return fmt.Errorf("sqlite: encode event: %w", err)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.checkWriter(ctx, tx); err != nil {
		return err
	}

	c := change.Campaign
	if change.Created {
		_, err = tx.ExecContext(ctx, `
INSERT INTO campaigns (id, title, beneficiary, balance, total_donations, active, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Title, c.Beneficiary.String(), c.Balance, change.TotalDonations, c.Active(), toMillis(c.CreatedAt))
		if err != nil {
			return fmt.Errorf("sqlite: insert campaign: %w", err)
		}
	} else {
		var res sql.Result
		res, err = tx.ExecContext(ctx, `
UPDATE campaigns
SET title = ?, beneficiary = ?, balance = ?, total_donations = ?, active = ?
WHERE id = ?`,
			c.Title, c.Beneficiary.String(), c.Balance, change.TotalDonations, c.Active(), c.ID)
		if err != nil {
			return fmt.Errorf("sqlite: update campaign: %w", err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			err = fmt.Errorf("sqlite: campaign %d not stored", c.ID)
			return err
		}
	}

	if d := change.Donation; d != nil {
		if _, err = tx.ExecContext(ctx, `
INSERT INTO donations (campaign_id, seq, donor, amount, message, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
			d.CampaignID, d.Seq, d.Donor.String(), d.Amount, d.Message, toMillis(d.Timestamp)); err != nil {
			return fmt.Errorf("sqlite: insert donation: %w", err)
		}
	}
	if donor := change.Donor; donor != nil {
		if _, err = tx.ExecContext(ctx, `
INSERT INTO campaign_donors (campaign_id, position, donor)
SELECT ?, COALESCE(MAX(position), 0) + 1, ? FROM campaign_donors WHERE campaign_id = ?`,
			c.ID, donor.String(), c.ID); err != nil {
			return fmt.Errorf("sqlite: insert donor: %w", err)
		}
	}
	if w := change.Withdrawal; w != nil {
		if _, err = tx.ExecContext(ctx, `
INSERT INTO withdrawals (campaign_id, seq, beneficiary, amount, reason, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
			w.CampaignID, w.Seq, w.Beneficiary.String(), w.Amount, w.Reason, toMillis(w.Timestamp)); err != nil {
			return fmt.Errorf("sqlite: insert withdrawal: %w", err)
		}
	}

	e := change.Event
	if _, err = tx.ExecContext(ctx, `
INSERT INTO ledger_events (seq, id, kind, campaign_id, payload, occurred_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		e.Seq, e.ID, string(e.Kind), e.CampaignID, string(payload), toMillis(e.OccurredAt)); err != nil {
		return fmt.Errorf("sqlite: insert event: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

func (s *Store) EventsSince(ctx context.Context, afterSeq uint64, limit int) ([]domain.Event, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT payload FROM ledger_events
WHERE seq > ?
ORDER BY seq
LIMIT ?`, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query events: %w", err)
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("sqlite: scan event: %w", err)
		}
		var e domain.Event
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, fmt.Errorf("sqlite: decode event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

var _ domain.Store = (*Store)(nil)
