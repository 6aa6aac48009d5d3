package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fundledger/internal/domain"
)

var (
	alice = domain.Address("0x2222222222222222222222222222222222222222")
	bob   = domain.Address("0x3333333333333333333333333333333333333333")
	at    = time.Date(2024, 5, 1, 12, 0, 0, 123_000_000, time.UTC)
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(" "); err == nil {
		t.Fatal("expected error")
	}
}

func TestCommitLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, path := openTemp(t)

	if err := s.SetAdmin(ctx, alice); err != nil {
		t.Fatal(err)
	}
	c := domain.Campaign{ID: 1, Title: "Clean water", Beneficiary: alice, State: domain.StateActive, CreatedAt: at}
	created := domain.CampaignCreatedEvent(c)
	created.Seq, created.ID = 1, "6f1c3e1e-0000-4000-8000-000000000001"
	if err := s.Commit(ctx, domain.Change{Campaign: c, Created: true, Event: created}); err != nil {
		t.Fatalf("commit create: %v", err)
	}

	d := domain.Donation{CampaignID: 1, Seq: 1, Donor: bob, Amount: domain.NewAmount(100), Message: "hi", Timestamp: at}
	c.Balance = domain.NewAmount(100)
	donated := domain.DonationEvent(d)
	donated.Seq, donated.ID = 2, "6f1c3e1e-0000-4000-8000-000000000002"
	donor := bob
	if err := s.Commit(ctx, domain.Change{Campaign: c, TotalDonations: domain.NewAmount(100), Donation: &d, Donor: &donor, Event: donated}); err != nil {
		t.Fatalf("commit donation: %v", err)
	}

	w := domain.Withdrawal{CampaignID: 1, Seq: 1, Beneficiary: alice, Amount: domain.NewAmount(30), Reason: "pump", Timestamp: at}
	c.Balance = domain.NewAmount(70)
	c.State = domain.StateInactive
	withdrawn := domain.WithdrawalEvent(w)
	withdrawn.Seq, withdrawn.ID = 3, "6f1c3e1e-0000-4000-8000-000000000003"
	if err := s.Commit(ctx, domain.Change{Campaign: c, TotalDonations: domain.NewAmount(100), Withdrawal: &w, Event: withdrawn}); err != nil {
		t.Fatalf("commit withdrawal: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if err := reopened.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	snap, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.Admin != alice || snap.LastEventSeq != 3 || len(snap.Campaigns) != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
	rec := snap.Campaigns[0]
	if rec.Campaign.Balance.String() != "70" || rec.TotalDonations.String() != "100" || rec.Campaign.Active() {
		t.Fatalf("campaign = %+v total=%s", rec.Campaign, rec.TotalDonations)
	}
	if !rec.Campaign.CreatedAt.Equal(at) {
		t.Fatalf("created at = %s", rec.Campaign.CreatedAt)
	}
	if len(rec.Donations) != 1 || !sameDonation(rec.Donations[0], d) {
		t.Fatalf("donations = %+v", rec.Donations)
	}
	if len(rec.Withdrawals) != 1 || rec.Withdrawals[0].Reason != w.Reason ||
		rec.Withdrawals[0].Amount.Cmp(w.Amount) != 0 || !rec.Withdrawals[0].Timestamp.Equal(w.Timestamp) {
		t.Fatalf("withdrawals = %+v", rec.Withdrawals)
	}
	if len(rec.Donors) != 1 || rec.Donors[0] != bob {
		t.Fatalf("donors = %+v", rec.Donors)
	}

	events, err := reopened.EventsSince(ctx, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 || events[0].Kind != domain.EventDonation || events[1].Text != "pump" {
		t.Fatalf("events = %+v", events)
	}
}

func TestCommitIsAtomic(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t)

	c := domain.Campaign{ID: 1, Title: "Clean water", Beneficiary: alice, State: domain.StateActive, CreatedAt: at}
	e := domain.CampaignCreatedEvent(c)
	e.Seq, e.ID = 1, "a"
	if err := s.Commit(ctx, domain.Change{Campaign: c, Created: true, Event: e}); err != nil {
		t.Fatal(err)
	}

	// Reusing event seq 1 violates the primary key after the donation row
	// has been written; the whole change must roll back.
	d := domain.Donation{CampaignID: 1, Seq: 1, Donor: bob, Amount: domain.NewAmount(5), Message: "x", Timestamp: at}
	c.Balance = domain.NewAmount(5)
	dup := domain.DonationEvent(d)
	dup.Seq, dup.ID = 1, "b"
	if err := s.Commit(ctx, domain.Change{Campaign: c, TotalDonations: domain.NewAmount(5), Donation: &d, Event: dup}); err == nil {
		t.Fatal("expected duplicate event failure")
	}

	snap, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	rec := snap.Campaigns[0]
	if !rec.Campaign.Balance.IsZero() || len(rec.Donations) != 0 || snap.LastEventSeq != 1 {
		t.Fatalf("partial commit visible: %+v seq=%d", rec, snap.LastEventSeq)
	}

	missing := domain.Campaign{ID: 9, Title: "x", Beneficiary: alice, State: domain.StateActive, CreatedAt: at}
	ev := domain.CampaignDeactivatedEvent(9, at)
	ev.Seq, ev.ID = 2, "c"
	if err := s.Commit(ctx, domain.Change{Campaign: missing, Event: ev}); err == nil {
		t.Fatal("expected error updating unknown campaign")
	}
}

func sameDonation(a, b domain.Donation) bool {
	return a.CampaignID == b.CampaignID && a.Seq == b.Seq && a.Donor == b.Donor &&
		a.Amount.Cmp(b.Amount) == 0 && a.Message == b.Message && a.Timestamp.Equal(b.Timestamp)
}

func createChange(seq uint64) domain.Change {
	c := domain.Campaign{ID: 1, Title: "Clean water", Beneficiary: alice, State: domain.StateActive, CreatedAt: at}
	ev := domain.CampaignCreatedEvent(c)
	ev.Seq, ev.ID = seq, "6f1c3e1e-0000-4000-8000-00000000000a"
	return domain.Change{Campaign: c, Created: true, Event: ev}
}

func TestWriterLockIsExclusive(t *testing.T) {
	ctx := context.Background()
	first, path := openTemp(t)
	second, err := Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer second.Close()

	if err := first.LockWriter(ctx); err != nil {
		t.Fatalf("first LockWriter: %v", err)
	}
	if err := first.LockWriter(ctx); err != nil {
		t.Fatalf("relocking by the holder: %v", err)
	}
	if err := second.LockWriter(ctx); !errors.Is(err, domain.ErrWriterLocked) {
		t.Fatalf("second LockWriter = %v, want ErrWriterLocked", err)
	}

	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := second.LockWriter(ctx); err != nil {
		t.Fatalf("LockWriter after release: %v", err)
	}
	if err := second.Commit(ctx, createChange(1)); err != nil {
		t.Fatalf("Commit by new holder: %v", err)
	}
}

func TestCommitFailsAfterLeaseIsTaken(t *testing.T) {
	ctx := context.Background()
	stale, path := openTemp(t)
	if err := stale.LockWriter(ctx); err != nil {
		t.Fatal(err)
	}
	// Simulate a holder that stopped renewing.
	if _, err := stale.sqlDB.ExecContext(ctx, `UPDATE ledger_writer SET expires_at = 0`); err != nil {
		t.Fatal(err)
	}

	fresh, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer fresh.Close()
	if err := fresh.LockWriter(ctx); err != nil {
		t.Fatalf("LockWriter over an expired lease: %v", err)
	}

	if err := stale.Commit(ctx, createChange(1)); !errors.Is(err, domain.ErrWriterLocked) {
		t.Fatalf("stale Commit = %v, want ErrWriterLocked", err)
	}
	snap, err := fresh.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Campaigns) != 0 || snap.LastEventSeq != 0 {
		t.Fatalf("stale writer changed state: %+v", snap)
	}
}
