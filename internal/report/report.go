package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/contactkeval/pair-credit/internal/scan"
)

// WriteJSON dumps the full scan records for the reporting collaborator.
func WriteJSON(records []scan.Record, outdir string) error {
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outdir, "positions.json"), b, 0644)
}

// WritePositionsCSV writes one row per evaluated instant.
func WritePositionsCSV(records []scan.Record, outdir string) error {
	f, err := os.Create(filepath.Join(outdir, "positions.csv"))
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	headers := []string{"time", "strike_a", "strike_b", "spot_a", "spot_b",
		"gross_credit", "commission", "net_credit", "worst_case", "best_case", "early_close_at", "legs_json"}
	if err := w.Write(headers); err != nil {
		return err
	}
	for _, r := range records {
		earlyClose := ""
		if r.EarlyCloseAt != nil {
			earlyClose = fmt.Sprintf("%.4f", *r.EarlyCloseAt)
		}
		legsJSON, _ := json.Marshal(r.Position.Legs)
		row := []string{
			r.At.Format(time.RFC3339),
			fmt.Sprintf("%.2f", r.Strikes.A),
			fmt.Sprintf("%.2f", r.Strikes.B),
			fmt.Sprintf("%.2f", r.Position.EntrySpotA),
			fmt.Sprintf("%.2f", r.Position.EntrySpotB),
			fmt.Sprintf("%.2f", r.Position.GrossCredit),
			fmt.Sprintf("%.2f", r.Position.CommissionTotal),
			fmt.Sprintf("%.2f", r.Position.NetEntryCredit),
			fmt.Sprintf("%.2f", r.Sweep.WorstCase),
			fmt.Sprintf("%.2f", r.Sweep.BestCase),
			earlyClose,
			string(legsJSON),
		}
		_ = w.Write(row)
	}
	return nil
}

// WriteScenariosCSV writes the flat scenario table: one row per sweep
// point per instant (pct_move, price_a, price_b, total_pnl).
func WriteScenariosCSV(records []scan.Record, outdir string) error {
	f, err := os.Create(filepath.Join(outdir, "scenarios.csv"))
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	headers := []string{"time", "pct_move", "price_a", "price_b", "total_pnl"}
	if err := w.Write(headers); err != nil {
		return err
	}
	for _, r := range records {
		for _, p := range r.Sweep.Points {
			row := []string{
				r.At.Format(time.RFC3339),
				fmt.Sprintf("%.6f", p.Scenario.PctMove),
				fmt.Sprintf("%.4f", p.Scenario.PriceA),
				fmt.Sprintf("%.4f", p.Scenario.PriceB),
				fmt.Sprintf("%.2f", p.TotalPnL),
			}
			_ = w.Write(row)
		}
	}
	return nil
}
