package main

import (
	"strconv"
	"time"

	"fundledger/internal/domain"
	"fundledger/pkg/zip"
)

func exportTables(records []domain.CampaignRecord) []zip.Table {
	campaigns := zip.Table{
		Filename: "campaigns.csv",
		Header:   []string{"id", "title", "beneficiary", "balance", "total_donations", "state", "created_at", "donors"},
	}
	donations := zip.Table{
		Filename: "donations.csv",
		Header:   []string{"campaign_id", "seq", "donor", "amount", "message", "timestamp"},
	}
	withdrawals := zip.Table{
		Filename: "withdrawals.csv",
		Header:   []string{"campaign_id", "seq", "beneficiary", "amount", "reason", "timestamp"},
	}
	for _, rec := range records {
		c := rec.Campaign
		id := strconv.FormatUint(c.ID, 10)
		campaigns.Rows = append(campaigns.Rows, []string{
			id, c.Title, c.Beneficiary.String(), c.Balance.String(), rec.TotalDonations.String(),
			c.State.String(), c.CreatedAt.UTC().Format(time.RFC3339), strconv.Itoa(len(rec.Donors)),
		})
		for _, d := range rec.Donations {
			donations.Rows = append(donations.Rows, []string{
				id, strconv.FormatUint(d.Seq, 10), d.Donor.String(), d.Amount.String(), d.Message,
				d.Timestamp.UTC().Format(time.RFC3339),
			})
		}
		for _, w := range rec.Withdrawals {
			withdrawals.Rows = append(withdrawals.Rows, []string{
				id, strconv.FormatUint(w.Seq, 10), w.Beneficiary.String(), w.Amount.String(), w.Reason,
				w.Timestamp.UTC().Format(time.RFC3339),
			})
		}
	}
	return []zip.Table{campaigns, donations, withdrawals}
}
