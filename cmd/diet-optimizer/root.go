package main

import (
	"github.com/spf13/cobra"

	"github.com/iwvelando/diet-optimizer/pkg/constants"
)

var (
	configLocation string
	logLevel       string
)

var rootCmd = &cobra.Command{
	Use:   "diet-optimizer",
	Short: "Least-cost and maximum-profit cattle ration optimizer",
	Long: `diet-optimizer searches the dietary net energy concentration that gives
the best ration for each configured scenario, solving one linear program per
trial under NRC nutrient requirements.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configLocation, "config", constants.DefaultConfigFile, "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}
