package memory

import (
	"context"
	"testing"
	"time"

	"fundledger/internal/domain"
)

var (
	alice = domain.Address("0x2222222222222222222222222222222222222222")
	bob   = domain.Address("0x3333333333333333333333333333333333333333")
	at    = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
)

func createChange(id uint64, seq uint64) domain.Change {
	c := domain.Campaign{ID: id, Title: "c", Beneficiary: alice, State: domain.StateActive, CreatedAt: at}
	e := domain.CampaignCreatedEvent(c)
	e.Seq = seq
	return domain.Change{Campaign: c, Created: true, Event: e}
}

func TestCommitAndLoad(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	if err := s.SetAdmin(ctx, alice); err != nil {
		t.Fatal(err)
	}
	if err := s.Commit(ctx, createChange(1, 1)); err != nil {
		t.Fatal(err)
	}

	d := domain.Donation{CampaignID: 1, Seq: 1, Donor: bob, Amount: domain.NewAmount(5), Message: "hi", Timestamp: at}
	c := domain.Campaign{ID: 1, Title: "c", Beneficiary: alice, Balance: domain.NewAmount(5), State: domain.StateActive, CreatedAt: at}
	e := domain.DonationEvent(d)
	e.Seq = 2
	donor := bob
	if err := s.Commit(ctx, domain.Change{Campaign: c, TotalDonations: domain.NewAmount(5), Donation: &d, Donor: &donor, Event: e}); err != nil {
		t.Fatal(err)
	}

	snap, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Admin != alice || snap.LastEventSeq != 2 || len(snap.Campaigns) != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
	rec := snap.Campaigns[0]
	if rec.Campaign.Balance.String() != "5" || len(rec.Donations) != 1 || len(rec.Donors) != 1 {
		t.Fatalf("record = %+v", rec)
	}

	// Snapshots are copies.
	rec.Donations[0].Message = "changed"
	again, _ := s.Load(ctx)
	if again.Campaigns[0].Donations[0].Message != "hi" {
		t.Fatal("snapshot aliases store state")
	}
}

func TestCommitRejectsOutOfSequence(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	if err := s.Commit(ctx, createChange(2, 1)); err == nil {
		t.Fatal("expected error for id gap")
	}
	update := createChange(1, 1)
	update.Created = false
	if err := s.Commit(ctx, update); err == nil {
		t.Fatal("expected error for unknown campaign")
	}
	if snap, _ := s.Load(ctx); len(snap.Campaigns) != 0 || snap.LastEventSeq != 0 {
		t.Fatalf("rejected commits changed state: %+v", snap)
	}
}

func TestEventsSince(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for i := uint64(1); i <= 5; i++ {
		if err := s.Commit(ctx, createChange(i, i)); err != nil {
			t.Fatal(err)
		}
	}
	tests := []struct {
		after uint64
		limit int
		want  []uint64
	}{
		{after: 0, limit: 2, want: []uint64{1, 2}},
		{after: 3, limit: 10, want: []uint64{4, 5}},
		{after: 5, limit: 10, want: nil},
		{after: 9, limit: 10, want: nil},
		{after: 1, limit: 0, want: []uint64{2, 3, 4, 5}},
	}
	for _, tc := range tests {
		got, err := s.EventsSince(ctx, tc.after, tc.limit)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != len(tc.want) {
			t.Fatalf("after %d limit %d: got %d events", tc.after, tc.limit, len(got))
		}
		for i, e := range got {
			if e.Seq != tc.want[i] {
				t.Fatalf("after %d: seq[%d] = %d", tc.after, i, e.Seq)
			}
		}
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := s.EventsSince(cancelled, 0, 1); err == nil {
		t.Fatal("expected context error")
	}
}
