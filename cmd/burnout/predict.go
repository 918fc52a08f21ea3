package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/burnout-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/database"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/ingest"
)

func newPredictCmd(a *app) *cobra.Command {
	var history bool

	cmd := &cobra.Command{
		Use:   "predict FILE",
		Short: "Score every employee in a JSON, xlsx or CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("output") {
				a.cfg.Output, _ = cmd.Flags().GetString("output")
			}
			if cmd.Flags().Changed("history") {
				a.cfg.History.Enabled = history
			}

			predictor, err := a.loadPredictor()
			if err != nil {
				return err
			}

			report, err := predictor.ProcessFile(cmd.Context(), args[0], sheetOptions(cmd, a.cfg.SheetOptions()))
			if err != nil {
				return err
			}

			var runID string
			if a.cfg.History.Enabled {
				run, err := a.record(cmd, report)
				if err != nil {
					return err
				}
				runID = run.ID
			}

			if a.cfg.Output == "json" {
				return writeJSON(a.out, struct {
					*analysis.BatchReport
					RunID string `json:"run_id,omitempty"`
				}{report, runID})
			}
			return writeReport(a.out, report, runID)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "output format (text or json)")
	cmd.Flags().BoolVar(&history, "history", false, "store the run in the history database")
	addSheetFlags(cmd)
	return cmd
}

func (a *app) record(cmd *cobra.Command, report *analysis.BatchReport) (*database.Run, error) {
	db, repo, err := a.openHistory()
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return database.NewRecorder(repo).Record(cmd.Context(), report)
}

func addSheetFlags(cmd *cobra.Command) {
	defaults := ingest.DefaultSheetOptions()
	cmd.Flags().String("sheet", defaults.Name, "worksheet to read from xlsx files")
	cmd.Flags().Int("header-row", defaults.HeaderRow, "zero-based index of the xlsx header row")
}

// sheetOptions applies the sheet flags the user set on top of opts.
func sheetOptions(cmd *cobra.Command, opts ingest.SheetOptions) ingest.SheetOptions {
	if cmd.Flags().Changed("sheet") {
		opts.Name, _ = cmd.Flags().GetString("sheet")
	}
	if cmd.Flags().Changed("header-row") {
		opts.HeaderRow, _ = cmd.Flags().GetInt("header-row")
	}
	return opts
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeReport(w io.Writer, report *analysis.BatchReport, runID string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Source:\t%s (%s convention, %s schema)\n", report.Source, report.Convention, report.SchemaSource)
	if runID != "" {
		fmt.Fprintf(tw, "Run:\t%s\n", runID)
	}
	fmt.Fprintln(tw)

	if len(report.Predictions) > 0 {
		fmt.Fprintln(tw, "\tEMPLOYEE\tSTATUS\tBURNOUT\tCONFIDENCE")
		for _, p := range report.Predictions {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f%%\t%.1f%%\n",
				p.Color, p.EmployeeID, p.Status, p.BurnoutProbability*100, p.Confidence*100)
		}
		fmt.Fprintln(tw)
	}

	if len(report.Errors) > 0 {
		fmt.Fprintln(tw, "SKIPPED\tEMPLOYEE\tCATEGORY\tREASON")
		for _, e := range report.Errors {
			fmt.Fprintf(tw, "#%d\t%s\t%s\t%s\n", e.Index, e.EmployeeID, e.Category, e.Message)
		}
		fmt.Fprintln(tw)
	}

	s := report.Summary
	fmt.Fprintf(tw, "Scored:\t%d\n", s.Total)
	fmt.Fprintf(tw, "Burnout:\t%d (%.2f%%)\n", s.Burnout, s.BurnoutPercentage)
	fmt.Fprintf(tw, "No burnout:\t%d\n", s.NoBurnout)
	fmt.Fprintf(tw, "Failed:\t%d\n", s.Failed)
	return tw.Flush()
}
