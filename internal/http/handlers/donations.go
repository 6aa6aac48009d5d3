package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"fundledger/internal/domain"
)

type donationRequest struct {
	Amount  json.RawMessage `json:"amount"`
	Message string          `json:"message"`
}

type donationDTO struct {
	CampaignID uint64         `json:"campaign_id"`
	Seq        uint64         `json:"seq"`
	Donor      domain.Address `json:"donor"`
	Amount     domain.Amount  `json:"amount"`
	Message    string         `json:"message"`
	Timestamp  time.Time      `json:"timestamp"`
}

func toDonationDTO(d domain.Donation) donationDTO {
	return donationDTO{
		CampaignID: d.CampaignID,
		Seq:        d.Seq,
		Donor:      d.Donor,
		Amount:     d.Amount,
		Message:    d.Message,
		Timestamp:  d.Timestamp,
	}
}

func (a *App) DonationsCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	id, ok := a.campaignID(w, r)
	if !ok {
		return
	}
	var req donationRequest
	if !a.decode(w, r, &req) {
		return
	}
	amount, err := parseRequestAmount(req.Amount)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid amount")
		return
	}
	d, err := a.Ledger.DonateToCampaign(r.Context(), caller, id, req.Message, amount)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, toDonationDTO(d))
}

func (a *App) DonationsList(w http.ResponseWriter, r *http.Request) {
	id, ok := a.campaignID(w, r)
	if !ok {
		return
	}
	donations, err := a.Ledger.GetCampaignDonations(id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items := make([]donationDTO, 0, len(donations))
	for _, d := range donations {
		items = append(items, toDonationDTO(d))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) DonorsList(w http.ResponseWriter, r *http.Request) {
	id, ok := a.campaignID(w, r)
	if !ok {
		return
	}
	donors, err := a.Ledger.GetCampaignDonors(id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": donors})
}

func (a *App) DonationsTotal(w http.ResponseWriter, r *http.Request) {
	id, ok := a.campaignID(w, r)
	if !ok {
		return
	}
	total, err := a.Ledger.GetCampaignTotalDonations(id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"campaign_id": id, "total_donations": total})
}
