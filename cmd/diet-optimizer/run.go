package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iwvelando/diet-optimizer/internal/config"
	"github.com/iwvelando/diet-optimizer/internal/scenario"
	"github.com/iwvelando/diet-optimizer/pkg/constants"
	"github.com/iwvelando/diet-optimizer/pkg/output"
	"github.com/iwvelando/diet-optimizer/pkg/validation"
)

var (
	outputFormatFlag string
	bestOnly         bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Optimize every active scenario and print the results",
	RunE:  runOptimize,
}

func init() {
	runCmd.Flags().StringVar(&outputFormatFlag, "output-format", "", "type of output override: pretty, csv, json")
	runCmd.Flags().BoolVar(&bestOnly, "best", false, "report only the best trial of each scenario")
	rootCmd.AddCommand(runCmd)
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	conf, err := config.LoadConfiguration(configLocation)
	if err != nil {
		return fmt.Errorf("failed to load configuration at %s: %w", configLocation, err)
	}
	conf.Normalize()

	logger, err := initializeLogger(conf.Logging, logLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Determine output format (CLI override takes precedence over config)
	outputFormat := conf.Output.Format
	if outputFormatFlag != "" {
		outputFormat = outputFormatFlag
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return err
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	driver, err := scenario.NewDriver(logger, conf)
	if err != nil {
		return err
	}
	result, err := driver.Run(cmd.Context())
	if err != nil {
		logger.Error("failed to optimize scenarios",
			zap.String("op", "main"),
			zap.Error(err),
		)
		return err
	}

	out := cmd.OutOrStdout()
	best := bestOnly || conf.Output.BestOnly
	switch outputFormat {
	case constants.OutputFormatPretty:
		output.PrettyFormat(out, result.Scenarios, best)
	case constants.OutputFormatCSV:
		return output.CsvFormat(out, result.Scenarios, best)
	case constants.OutputFormatJSON:
		return output.JSONFormat(out, result.Scenarios, result.Summaries)
	}
	return nil
}
