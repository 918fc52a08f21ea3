package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/burnout-o-meter/internal/dataset"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/ingest"
)

// defaultOutlierThreshold is compared against asinh-compressed robust
// z-scores; 3 corresponds to roughly ten MADs.
const defaultOutlierThreshold = 3.0

func newPrepareCmd(a *app) *cobra.Command {
	var (
		appendRows bool
		threshold  float64
		maxReport  int
	)

	cmd := &cobra.Command{
		Use:   "prepare INPUT",
		Short: "Build a training dataset from a labelled survey export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			applyDatasetFlags(cmd, a)

			conv, err := a.cfg.FeatureConvention()
			if err != nil {
				return err
			}
			records, format, err := ingest.ReadFile(args[0], sheetOptions(cmd, a.cfg.SheetOptions()))
			if err != nil {
				return err
			}

			ds := dataset.Prepare(records, dataset.Options{
				Convention:    conv,
				ReferenceDate: a.cfg.Reference(),
				BinaryTarget:  a.cfg.Dataset.BinaryTarget,
			})

			profile := dataset.NewProfile(ds, conv)
			if len(profile.OutOfRange) > 0 {
				a.logger.Warn().
					Strs("features", profile.OutOfRange).
					Str("convention", conv.Name).
					Msg("Column means outside the convention ranges")
			}
			outliers := profile.Outliers(ds, threshold)
			for i, o := range outliers {
				if i == maxReport {
					a.logger.Warn().Int("more", len(outliers)-maxReport).Msg("Further outliers not shown")
					break
				}
				a.logger.Warn().
					Str("employee_id", o.EmployeeID).
					Str("feature", o.Feature).
					Float64("value", o.Value).
					Float64("z", o.Z).
					Msg("Outlier")
			}

			store := dataset.NewStore(a.cfg.Dataset.Dir)
			var f *dataset.File
			if appendRows {
				f, err = store.Append(ds)
			} else {
				f, err = store.Save(ds, conv.Name)
			}
			if err != nil {
				return err
			}

			a.logger.Info().
				Str("input", args[0]).
				Str("format", string(format)).
				Int("rows", len(ds.Rows)).
				Int("total_records", f.Metadata.TotalRecords).
				Bool("append", appendRows).
				Str("dir", store.Dir()).
				Msg("Dataset written")
			fmt.Fprintf(a.out, "%d rows written to %s (%d total)\n", len(ds.Rows), store.Dir(), f.Metadata.TotalRecords)
			return nil
		},
	}

	cmd.Flags().BoolVar(&appendRows, "append", false, "append to the stored dataset instead of replacing it")
	cmd.Flags().Float64Var(&threshold, "outliers", defaultOutlierThreshold, "robust z-score above which a cell is reported")
	cmd.Flags().IntVar(&maxReport, "max-outliers", 20, "outliers to log before summarizing")
	addDatasetFlags(cmd)
	addSheetFlags(cmd)

	cmd.AddCommand(newPrepareInfoCmd(a))
	return cmd
}

func newPrepareInfoCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show record count and target distribution of the stored dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyDatasetFlags(cmd, a)

			info, err := dataset.NewStore(a.cfg.Dataset.Dir).Info()
			if err != nil {
				return err
			}
			if a.cfg.Output == "json" {
				return writeJSON(a.out, info)
			}

			fmt.Fprintf(a.out, "Records:  %d\n", info.TotalRecords)
			fmt.Fprintf(a.out, "Columns:  %d\n", len(info.Columns))
			if info.Metadata.Convention != "" {
				fmt.Fprintf(a.out, "Convention: %s\n", info.Metadata.Convention)
			}
			if !info.HasTarget {
				fmt.Fprintln(a.out, "Target:   none")
				return nil
			}
			parts := make([]string, 0, len(info.TargetDistribution))
			for class, n := range info.TargetDistribution {
				parts = append(parts, fmt.Sprintf("%s=%d", class, n))
			}
			sort.Strings(parts)
			fmt.Fprintf(a.out, "Target:   %s (missing %d)\n", strings.Join(parts, " "), info.TargetMissing)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "text", "output format (text or json)")
	return cmd
}

func addDatasetFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("out", "", "dataset directory (default from dataset.dir)")
	cmd.Flags().Bool("binary", false, "collapse the target to burnout versus everything else")
}

// applyDatasetFlags copies the dataset and output flags the user set into
// the loaded configuration.
func applyDatasetFlags(cmd *cobra.Command, a *app) {
	flags := cmd.Flags()
	if flags.Changed("out") {
		a.cfg.Dataset.Dir, _ = flags.GetString("out")
	}
	if flags.Changed("binary") {
		a.cfg.Dataset.BinaryTarget, _ = flags.GetBool("binary")
	}
	if flags.Changed("output") {
		a.cfg.Output, _ = flags.GetString("output")
	}
}
