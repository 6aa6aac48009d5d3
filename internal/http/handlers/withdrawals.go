package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"fundledger/internal/domain"
)

type withdrawalRequest struct {
	Amount json.RawMessage `json:"amount"`
	Reason string          `json:"reason"`
}

type withdrawalDTO struct {
	CampaignID  uint64         `json:"campaign_id"`
	Seq         uint64         `json:"seq"`
	Beneficiary domain.Address `json:"beneficiary"`
	Amount      domain.Amount  `json:"amount"`
	Reason      string         `json:"reason"`
	Timestamp   time.Time      `json:"timestamp"`
}

func toWithdrawalDTO(wd domain.Withdrawal) withdrawalDTO {
	return withdrawalDTO{
		CampaignID:  wd.CampaignID,
		Seq:         wd.Seq,
		Beneficiary: wd.Beneficiary,
		Amount:      wd.Amount,
		Reason:      wd.Reason,
		Timestamp:   wd.Timestamp,
	}
}

func (a *App) WithdrawalsCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	id, ok := a.campaignID(w, r)
	if !ok {
		return
	}
	var req withdrawalRequest
	if !a.decode(w, r, &req) {
		return
	}
	amount, err := parseRequestAmount(req.Amount)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid amount")
		return
	}
	wd, err := a.Ledger.WithdrawFromCampaign(r.Context(), caller, id, amount, req.Reason)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, toWithdrawalDTO(wd))
}

func (a *App) WithdrawalsList(w http.ResponseWriter, r *http.Request) {
	id, ok := a.campaignID(w, r)
	if !ok {
		return
	}
	withdrawals, err := a.Ledger.GetCampaignWithdrawals(id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items := make([]withdrawalDTO, 0, len(withdrawals))
	for _, wd := range withdrawals {
		items = append(items, toWithdrawalDTO(wd))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
