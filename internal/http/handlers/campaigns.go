package handlers

import (
	"net/http"
	"time"

	"fundledger/internal/domain"
	"fundledger/internal/middleware"
)

type campaignDTO struct {
	ID          uint64         `json:"id"`
	Title       string         `json:"title"`
	Beneficiary domain.Address `json:"beneficiary"`
	Balance     domain.Amount  `json:"balance"`
	Active      bool           `json:"active"`
	CreatedAt   time.Time      `json:"created_at"`
}

func toCampaignDTO(c domain.Campaign) campaignDTO {
	return campaignDTO{
		ID:          c.ID,
		Title:       c.Title,
		Beneficiary: c.Beneficiary,
		Balance:     c.Balance,
		Active:      c.Active(),
		CreatedAt:   c.CreatedAt,
	}
}

type createCampaignRequest struct {
	Title string `json:"title"`
}

type beneficiaryRequest struct {
	Beneficiary string `json:"beneficiary"`
}

func (a *App) CampaignsCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	var req createCampaignRequest
	if !a.decode(w, r, &req) {
		return
	}
	id, err := a.Ledger.CreateCampaign(r.Context(), caller, req.Title)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	c, err := a.Ledger.GetCampaign(id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, toCampaignDTO(c))
}

func (a *App) CampaignsList(w http.ResponseWriter, r *http.Request) {
	campaigns := a.Ledger.GetAllCampaigns()
	items := make([]campaignDTO, 0, len(campaigns))
	for _, c := range campaigns {
		items = append(items, toCampaignDTO(c))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) CampaignsGet(w http.ResponseWriter, r *http.Request) {
	id, ok := a.campaignID(w, r)
	if !ok {
		return
	}
	c, err := a.Ledger.GetCampaign(id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toCampaignDTO(c))
}

func (a *App) CampaignsDeactivate(w http.ResponseWriter, r *http.Request) {
	a.lifecycle(w, r, false)
}

func (a *App) CampaignsReactivate(w http.ResponseWriter, r *http.Request) {
	a.lifecycle(w, r, true)
}

func (a *App) lifecycle(w http.ResponseWriter, r *http.Request, activate bool) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	id, ok := a.campaignID(w, r)
	if !ok {
		return
	}
	var err error
	if activate {
		err = a.Ledger.ReactivateCampaign(r.Context(), caller, id)
	} else {
		err = a.Ledger.DeactivateCampaign(r.Context(), caller, id)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.campaignAfterWrite(w, r, id)
}

func (a *App) CampaignsUpdateBeneficiary(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	id, ok := a.campaignID(w, r)
	if !ok {
		return
	}
	var req beneficiaryRequest
	if !a.decode(w, r, &req) {
		return
	}
	beneficiary, err := parseRequestAddress(req.Beneficiary)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid beneficiary address")
		return
	}
	if err := a.Ledger.UpdateCampaignBeneficiary(r.Context(), caller, id, beneficiary); err != nil {
		a.fail(w, r, err)
		return
	}
	a.campaignAfterWrite(w, r, id)
}

func (a *App) campaignAfterWrite(w http.ResponseWriter, r *http.Request, id uint64) {
	c, err := a.Ledger.GetCampaign(id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toCampaignDTO(c))
}

type summaryDTO struct {
	campaignDTO
	TotalDonations  domain.Amount  `json:"total_donations"`
	DonationCount   int            `json:"donation_count"`
	WithdrawalCount int            `json:"withdrawal_count"`
	DonorCount      int            `json:"donor_count"`
	Locale          string         `json:"locale"`
	Display         summaryDisplay `json:"display"`
}

type summaryDisplay struct {
	Balance        string `json:"balance"`
	TotalDonations string `json:"total_donations"`
	Withdrawn      string `json:"withdrawn"`
	Donors         string `json:"donors"`
}

func (a *App) CampaignsSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := a.campaignID(w, r)
	if !ok {
		return
	}
	s, err := a.Ledger.GetCampaignSummary(id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	// balance never exceeds total donations, so this cannot underflow.
	withdrawn, _ := s.TotalDonations.Sub(s.Campaign.Balance)
	locale := middleware.LocaleFromContext(r.Context())
	a.json(w, http.StatusOK, summaryDTO{
		campaignDTO:     toCampaignDTO(s.Campaign),
		TotalDonations:  s.TotalDonations,
		DonationCount:   s.DonationCount,
		WithdrawalCount: s.WithdrawalCount,
		DonorCount:      s.DonorCount,
		Locale:          locale,
		Display: summaryDisplay{
			Balance:        formatAmount(locale, s.Campaign.Balance),
			TotalDonations: formatAmount(locale, s.TotalDonations),
			Withdrawn:      formatAmount(locale, withdrawn),
			Donors:         formatCount(locale, s.DonorCount),
		},
	})
}
