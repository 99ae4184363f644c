package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/contactkeval/pair-credit/internal/config"
	"github.com/contactkeval/pair-credit/internal/logger"
	"github.com/contactkeval/pair-credit/internal/market"
	"github.com/contactkeval/pair-credit/internal/report"
	"github.com/contactkeval/pair-credit/internal/scan"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "pair-credit",
		Short: "Evaluate dual-instrument four-leg option credit structures",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "pair-credit.yaml", "path to config file")
	return cmd
}

func run(configPath string) error {
	// .env for the API key; absence is fine
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger.Configure(logger.Config{
		FilePath:   cfg.Log.FilePath,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	logger.SetVerbosity(cfg.Log.Verbosity)

	expiry, err := cfg.ExpiryTime()
	if err != nil {
		return err
	}

	// choose source
	var src market.QuoteSource
	apiKey := os.Getenv("MASSIVE_API_KEY")
	if apiKey != "" {
		src = market.NewMassiveSource(apiKey, expiry, nil)
		logger.Infof("massive source enabled")
	} else {
		src = market.NewSyntheticSource(time.Now().UnixNano(), map[string]float64{
			cfg.Pair.InstrumentA: 700,
			cfg.Pair.InstrumentB: 700 * cfg.Pair.Multiplier,
		})
		logger.Infof("synthetic source enabled")
	}

	analyzer := scan.New(scan.Config{
		InstrumentA:           cfg.Pair.InstrumentA,
		InstrumentB:           cfg.Pair.InstrumentB,
		IncrementA:            cfg.Pair.IncrementA,
		IncrementB:            cfg.Pair.IncrementB,
		Multiplier:            cfg.Pair.Multiplier,
		QtyA:                  cfg.Pair.QtyA,
		QtyB:                  cfg.Pair.QtyB,
		CommissionPerContract: cfg.Pair.CommissionPerContract,
		ContractMultiplier:    cfg.Pair.ContractMultiplier,
		HalfWidth:             cfg.Sweep.HalfWidth,
		Samples:               cfg.Sweep.Samples,
		Workers:               cfg.Sweep.Workers,
		DepthThreshold:        cfg.Risk.DepthThreshold,
		TriggerRule:           cfg.Risk.TriggerRule,
	}, src)

	start, end, step, err := cfg.WindowTimes()
	if err != nil {
		return err
	}
	var instants []time.Time
	if start.IsZero() {
		instants = []time.Time{time.Now().UTC()}
	} else {
		instants = scan.Instants(start, end, step)
	}

	began := time.Now()
	records := analyzer.Run(instants)

	if err := os.MkdirAll(cfg.ReportDir, 0755); err != nil {
		return fmt.Errorf("creating report dir %s: %w", cfg.ReportDir, err)
	}
	if err := report.WriteJSON(records, cfg.ReportDir); err != nil {
		logger.Errorf("writing json report: %v", err)
	}
	if err := report.WritePositionsCSV(records, cfg.ReportDir); err != nil {
		logger.Errorf("writing positions csv: %v", err)
	}
	if err := report.WriteScenariosCSV(records, cfg.ReportDir); err != nil {
		logger.Errorf("writing scenarios csv: %v", err)
	}

	logger.Infof("finished in %v, wrote %d records to %s",
		time.Since(began), len(records), cfg.ReportDir)
	return nil
}
