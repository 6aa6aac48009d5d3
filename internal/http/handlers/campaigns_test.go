package handlers

import (
	"net/http"
	"testing"

	"fundledger/internal/domain"
)

func TestCampaignsCreateAndGet(t *testing.T) {
	h := testRouter(newTestApp(t))

	c := createCampaign(t, h, aliceAddr, "Clean water")
	if c.ID != 1 || c.Beneficiary != aliceAddr || !c.Active || c.Balance.String() != "0" {
		t.Fatalf("created = %+v", c)
	}
	createCampaign(t, h, bobAddr, "School roof")

	list := decodeBody[struct {
		Items []campaignDTO `json:"items"`
	}](t, do(t, h, http.MethodGet, "/campaigns", "", nil))
	if len(list.Items) != 2 || list.Items[1].Title != "School roof" {
		t.Fatalf("campaigns = %+v", list.Items)
	}

	expectError(t, do(t, h, http.MethodGet, "/campaigns/3", "", nil), http.StatusNotFound, "not_found", "Campaign does not exist")
}

func TestCampaignsCreateEmptyTitle(t *testing.T) {
	h := testRouter(newTestApp(t))
	rr := do(t, h, http.MethodPost, "/campaigns", aliceAddr, map[string]string{"title": ""})
	expectError(t, rr, http.StatusBadRequest, "invalid_input", "Campaign title cannot be empty")
}

func TestCampaignsLifecycle(t *testing.T) {
	h := testRouter(newTestApp(t))
	createCampaign(t, h, aliceAddr, "Clean water")

	tests := []struct {
		name    string
		path    string
		caller  domain.Address
		status  int
		code    string
		message string
		active  bool
	}{
		{name: "non admin", path: "/campaigns/1/deactivate", caller: aliceAddr, status: http.StatusForbidden, code: "unauthorized", message: "Caller is not owner"},
		{name: "reactivate active", path: "/campaigns/1/reactivate", caller: adminAddr, status: http.StatusConflict, code: "invalid_state", message: "Campaign already active"},
		{name: "deactivate", path: "/campaigns/1/deactivate", caller: adminAddr, status: http.StatusOK, active: false},
		{name: "deactivate twice", path: "/campaigns/1/deactivate", caller: adminAddr, status: http.StatusConflict, code: "invalid_state", message: "Campaign is not active"},
		{name: "reactivate", path: "/campaigns/1/reactivate", caller: adminAddr, status: http.StatusOK, active: true},
		{name: "missing campaign", path: "/campaigns/7/deactivate", caller: adminAddr, status: http.StatusNotFound, code: "not_found", message: "Campaign does not exist"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, tc.path, tc.caller, nil)
			if tc.code != "" {
				expectError(t, rr, tc.status, tc.code, tc.message)
				return
			}
			if rr.Code != tc.status {
				t.Fatalf("status = %d (body %s)", rr.Code, rr.Body.String())
			}
			if got := decodeBody[campaignDTO](t, rr); got.Active != tc.active {
				t.Fatalf("active = %v, want %v", got.Active, tc.active)
			}
		})
	}
}

func TestCampaignsUpdateBeneficiary(t *testing.T) {
	h := testRouter(newTestApp(t))
	createCampaign(t, h, aliceAddr, "Clean water")

	tests := []struct {
		name        string
		caller      domain.Address
		beneficiary string
		status      int
		code        string
		message     string
	}{
		{name: "non admin", caller: bobAddr, beneficiary: bobAddr.String(), status: http.StatusForbidden, code: "unauthorized", message: "Caller is not owner"},
		{name: "zero short form", caller: adminAddr, beneficiary: "0x0", status: http.StatusBadRequest, code: "invalid_input", message: "Beneficiary address cannot be 0x0"},
		{name: "same", caller: adminAddr, beneficiary: aliceAddr.String(), status: http.StatusBadRequest, code: "invalid_input", message: "Beneficiary address cannot be the same"},
		{name: "malformed", caller: adminAddr, beneficiary: "bob", status: http.StatusBadRequest, code: "bad_request", message: "invalid beneficiary address"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPut, "/campaigns/1/beneficiary", tc.caller, map[string]string{"beneficiary": tc.beneficiary})
			expectError(t, rr, tc.status, tc.code, tc.message)
		})
	}

	rr := do(t, h, http.MethodPut, "/campaigns/1/beneficiary", adminAddr, map[string]string{"beneficiary": "0x3333333333333333333333333333333333333333"})
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d (body %s)", rr.Code, rr.Body.String())
	}
	if got := decodeBody[campaignDTO](t, rr); got.Beneficiary != bobAddr {
		t.Fatalf("beneficiary = %s", got.Beneficiary)
	}
}

func TestCampaignsSummaryFormatsForLocale(t *testing.T) {
	app := newTestApp(t)
	h := testRouter(app)
	createCampaign(t, h, aliceAddr, "Clean water")
	do(t, h, http.MethodPost, "/campaigns/1/donations", bobAddr, map[string]any{"amount": "1500000"})
	do(t, h, http.MethodPost, "/campaigns/1/withdrawals", aliceAddr, map[string]any{"amount": "250000", "reason": "pumps"})

	rr := do(t, h, http.MethodGet, "/campaigns/1/summary", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("summary status = %d", rr.Code)
	}
	s := decodeBody[summaryDTO](t, rr)
	if s.DonationCount != 1 || s.WithdrawalCount != 1 || s.DonorCount != 1 {
		t.Fatalf("counts = %d/%d/%d", s.DonationCount, s.WithdrawalCount, s.DonorCount)
	}
	if s.Balance.String() != "1250000" || s.TotalDonations.String() != "1500000" {
		t.Fatalf("amounts = %s/%s", s.Balance, s.TotalDonations)
	}
	if s.Locale != "en" || s.Display.Balance != "1,250,000" || s.Display.Withdrawn != "250,000" {
		t.Fatalf("display = %+v locale %s", s.Display, s.Locale)
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		locale string
		amount domain.Amount
		want   string
	}{
		{locale: "en", amount: domain.NewAmount(1234567), want: "1,234,567"},
		{locale: "de", amount: domain.NewAmount(1234567), want: "1.234.567"},
		{locale: "id", amount: domain.NewAmount(1234567), want: "1.234.567"},
		{locale: "not a locale", amount: domain.NewAmount(999), want: "999"},
	}
	for _, tc := range tests {
		t.Run(tc.locale, func(t *testing.T) {
			if got := formatAmount(tc.locale, tc.amount); got != tc.want {
				t.Fatalf("formatAmount = %q, want %q", got, tc.want)
			}
		})
	}

	huge, err := domain.ParseAmount("100000000000000000000000")
	if err != nil {
		t.Fatal(err)
	}
	if got := formatAmount("en", huge); got != "100000000000000000000000" {
		t.Fatalf("huge = %q", got)
	}
}
