package main

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ZanzyTHEbar/burnout-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/config"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/database"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/model"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/monitoring"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/privacy"
)

// app carries what every subcommand needs once flags and the config file
// have been resolved.
type app struct {
	v       *viper.Viper
	cfgFile string
	console bool

	cfg     *config.Config
	logger  *monitoring.Logger
	metrics *monitoring.Metrics
	out     io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{v: config.New(), console: true, out: out}

	rootCmd := &cobra.Command{
		Use:   "burnout",
		Short: "Burnout risk scoring for employee survey data",
		Long: `burnout scores employee survey records with a trained linear model.

It reads JSON, xlsx and CSV exports, prepares training datasets from labelled
surveys, and serves the same pipeline over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (yaml, json, toml or env)")
	flags.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.String("model", "models/model.json", "path to the model artifact")
	flags.String("convention", "raw", "feature scaling convention (raw or normalized)")
	flags.Int("workers", 1, "goroutines used to score a batch")
	flags.String("reference-date", "2025-12-01", "date tenure and vacation recency are measured against")

	for key, flag := range map[string]string{
		"log_level":      "log-level",
		"model_path":     "model",
		"convention":     "convention",
		"workers":        "workers",
		"reference_date": "reference-date",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(
		newPredictCmd(a),
		newPrepareCmd(a),
		newSchemaCmd(a),
		newServeCmd(a),
	)
	return rootCmd
}

func (a *app) init() error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = monitoring.NewLogger(monitoring.LoggerOptions{Level: cfg.LogLevel, Console: a.console})
	a.metrics = monitoring.NewMetrics()
	return nil
}

// loadModel reads the configured artifact under the configured convention.
func (a *app) loadModel() (*model.Model, error) {
	conv, err := a.cfg.FeatureConvention()
	if err != nil {
		return nil, err
	}
	m, err := model.Load(a.cfg.ModelPath, conv, nil)
	if err != nil {
		return nil, err
	}
	a.logger.ModelLogger(a.cfg.ModelPath, m.Kind(), m.Convention().Name, string(m.Schema().Source), m.Schema().Len())
	return m, nil
}

func (a *app) loadPredictor() (*analysis.Predictor, error) {
	m, err := a.loadModel()
	if err != nil {
		return nil, err
	}
	return analysis.NewPredictor(m, nil, a.cfg.Reference(),
		analysis.WithWorkers(a.cfg.Workers),
		analysis.WithLogger(a.logger),
		analysis.WithMetrics(a.metrics),
	), nil
}

// openHistory opens the run history database. Employee IDs are salted and
// hashed unless pseudonymization is switched off.
func (a *app) openHistory() (*database.DB, *database.Repository, error) {
	db, err := database.NewDB(a.cfg.History.DataDir)
	if err != nil {
		return nil, nil, err
	}
	var ids database.IDMapper
	if a.cfg.History.Pseudonymize {
		ids = privacy.NewPseudonymizer(a.cfg.History.Salt, true)
	}
	return db, database.NewRepository(db, ids), nil
}
