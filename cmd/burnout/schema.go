package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/burnout-o-meter/internal/features"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/schema"
)

func newSchemaCmd(a *app) *cobra.Command {
	var fallback bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the feature layout the model expects",
		Long: `schema prints the ordered feature names resolved from the model artifact:
the scaler's list, then the classifier's, then the canonical layout. With
--fallback it prints the canonical layout without loading a model.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("output") {
				a.cfg.Output, _ = cmd.Flags().GetString("output")
			}

			s := schema.Fallback(features.DefaultVocabulary())
			if !fallback {
				m, err := a.loadModel()
				if err != nil {
					return err
				}
				s = m.Schema()
			}

			if a.cfg.Output == "json" {
				return writeJSON(a.out, s)
			}
			fmt.Fprintf(a.out, "# %d features, source %s\n", s.Len(), s.Source)
			for i, name := range s.Names {
				fmt.Fprintf(a.out, "%3d  %s\n", i, name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fallback, "fallback", false, "print the canonical layout without loading a model")
	cmd.Flags().StringP("output", "o", "text", "output format (text or json)")
	return cmd
}
