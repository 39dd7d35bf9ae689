package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iwvelando/diet-optimizer/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a configuration file without running any optimization",
	RunE: func(cmd *cobra.Command, _ []string) error {
		conf, err := config.LoadConfiguration(configLocation)
		if err != nil {
			return fmt.Errorf("failed to load configuration at %s: %w", configLocation, err)
		}
		conf.Normalize()

		out := cmd.OutOrStdout()
		for _, warning := range conf.ValidateConfiguration() {
			fmt.Fprintf(out, "warning: %s\n", warning)
		}
		if err := conf.Validate(); err != nil {
			var joined interface{ Unwrap() []error }
			if errors.As(err, &joined) {
				for _, e := range joined.Unwrap() {
					fmt.Fprintf(out, "error: %v\n", e)
				}
			} else {
				fmt.Fprintf(out, "error: %v\n", err)
			}
			return errors.New("configuration is invalid")
		}
		fmt.Fprintf(out, "%s: %d scenarios, %d active\n", configLocation, len(conf.Scenarios), len(conf.ActiveScenarios()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
