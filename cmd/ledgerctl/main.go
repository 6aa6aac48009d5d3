package main

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"fundledger/internal/domain"
	"fundledger/internal/infra"
	"fundledger/internal/ledger"
	"fundledger/internal/middleware"
	"fundledger/internal/storage"
	"fundledger/pkg/zip"
)

const usage = `ledgerctl -op <operation> [flags]

operations:
  token        mint a bearer token for -address
  show         print one campaign (-campaign) or all campaigns
  deactivate   deactivate -campaign as the administrator
  reactivate   reactivate -campaign as the administrator
  beneficiary  set -beneficiary of -campaign as the administrator
  export       write campaigns, donations and withdrawals CSVs to -out (zip)

Mutating operations take the store's writer lock and fail while the API is
running against the same store; stop it first or send the change through the
HTTP API with a token from -op token. show and export only read.
`

func main() {
	var (
		opFlag          string
		addressFlag     string
		campaignFlag    uint64
		beneficiaryFlag string
		ttlFlag         time.Duration
		outFlag         string
	)
	flag.StringVar(&opFlag, "op", "", "operation to run")
	flag.StringVar(&addressFlag, "address", "", "caller address for -op token")
	flag.Uint64Var(&campaignFlag, "campaign", 0, "campaign id")
	flag.StringVar(&beneficiaryFlag, "beneficiary", "", "new beneficiary address")
	flag.DurationVar(&ttlFlag, "ttl", 0, "token lifetime (defaults to TOKEN_TTL)")
	flag.StringVar(&outFlag, "out", "ledger-export.zip", "export archive path")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	op := strings.ToLower(strings.TrimSpace(opFlag))
	if op == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := infra.LoadConfig()
	if err != nil {
		exitWithError(err)
	}

	if op == "token" {
		caller, err := domain.ParseAddress(addressFlag)
		if err != nil || caller.IsZero() {
			exitWithError(fmt.Errorf("-address must be a non-zero address"))
		}
		ttl := ttlFlag
		if ttl <= 0 {
			ttl = cfg.TokenTTL
		}
		token, err := middleware.SignToken(cfg.JWTSecret, cfg.JWTIssuer, caller, ttl, time.Now())
		if err != nil {
			exitWithError(fmt.Errorf("sign token: %w", err))
		}
		fmt.Println(token)
		return
	}

	logger := infra.NewLogger("cli", cmp.Or(cfg.LogLevel, "warn")).With().Str("cmd", "ledgerctl").Logger()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		exitWithError(fmt.Errorf("open store: %w", err))
	}
	defer store.Close()

	l, err := ledger.New(ctx, ledger.Options{
		Admin:    cfg.Admin(),
		Store:    store.Store,
		Logger:   logger,
		ReadOnly: readOnlyOps[op],
	})
	if errors.Is(err, domain.ErrWriterLocked) {
		exitWithError(fmt.Errorf("-op %s needs the writer lock, which another process holds; stop the API or use the HTTP API instead", op))
	}
	if err != nil {
		exitWithError(err)
	}
	admin := l.Admin()

	switch op {
	case "show":
		if campaignFlag == 0 {
			printJSON(l.GetAllCampaigns())
			return
		}
		summary, err := l.GetCampaignSummary(campaignFlag)
		if err != nil {
			exitWithError(err)
		}
		printJSON(summary)
	case "deactivate":
		if err := l.DeactivateCampaign(ctx, admin, campaignFlag); err != nil {
			exitWithError(err)
		}
		fmt.Printf("campaign %d deactivated\n", campaignFlag)
	case "reactivate":
		if err := l.ReactivateCampaign(ctx, admin, campaignFlag); err != nil {
			exitWithError(err)
		}
		fmt.Printf("campaign %d reactivated\n", campaignFlag)
	case "beneficiary":
		beneficiary, err := domain.ParseAddress(beneficiaryFlag)
		if err != nil {
			exitWithError(fmt.Errorf("-beneficiary: %w", err))
		}
		if err := l.UpdateCampaignBeneficiary(ctx, admin, campaignFlag, beneficiary); err != nil {
			exitWithError(err)
		}
		fmt.Printf("campaign %d beneficiary set to %s\n", campaignFlag, beneficiary)
	case "export":
		data, err := zip.ArchiveTables(exportTables(l.Records()), time.Now().UTC())
		if err != nil {
			exitWithError(err)
		}
		if err := os.WriteFile(outFlag, data, 0o644); err != nil {
			exitWithError(fmt.Errorf("write %s: %w", outFlag, err))
		}
		fmt.Printf("wrote %s (%d bytes)\n", outFlag, len(data))
	default:
		exitWithError(errors.New("unknown -op " + op))
	}
}

// readOnlyOps run without the writer lock so they work next to a live API.
var readOnlyOps = map[string]bool{"show": true, "export": true}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		exitWithError(err)
	}
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "ledgerctl: %v\n", err)
	os.Exit(1)
}
