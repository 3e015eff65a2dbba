package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/iwvelando/rocket-calculator/internal/config"
	"github.com/iwvelando/rocket-calculator/internal/prompt"
	"github.com/iwvelando/rocket-calculator/internal/sizing"
	"github.com/iwvelando/rocket-calculator/pkg/constants"
	"github.com/iwvelando/rocket-calculator/pkg/output"
	"github.com/iwvelando/rocket-calculator/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCalculateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calculate",
		Short: "Run one calculation from configuration and flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, conf, logger, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			return calculateAndWrite(cmd.OutOrStdout(), logger, conf.Inputs, outputFormat(conf))
		},
	}
	addInputFlags(cmd.Flags())
	cmd.Flags().String("output-format", "", "type of output override: pretty, csv, json")
	return cmd
}

func newInteractiveCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interactive",
		Short: "Prompt for each input, offering the configured values as defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, conf, logger, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			inputs, err := prompt.New(cmd.InOrStdin(), cmd.OutOrStdout(), logger).CollectInputs(conf.Inputs)
			if err != nil {
				return err
			}
			return calculateAndWrite(cmd.OutOrStdout(), logger, inputs, outputFormat(conf))
		},
	}
	cmd.Flags().String("output-format", "", "type of output override: pretty, csv, json")
	return cmd
}

// outputFormat returns the configured output format, pretty when unset.
func outputFormat(conf *config.Configuration) string {
	if conf.Output.Format == "" {
		return constants.OutputFormatPretty
	}
	return conf.Output.Format
}

// calculateAndWrite validates the inputs, runs the calculation and writes
// the result. A fatal outcome is reported in the pretty layout and returned
// as an error.
func calculateAndWrite(w io.Writer, logger *zap.Logger, inputs sizing.RocketInputs, format string) error {
	if err := validation.ValidateOutputFormat(format); err != nil {
		return err
	}
	if err := validation.ValidateInputs(inputs); err != nil {
		return fmt.Errorf("invalid inputs: %w", err)
	}

	for _, warning := range validation.InputWarnings(inputs) {
		logger.Warn("Input warning: "+warning,
			zap.String("op", "main.calculateAndWrite"),
		)
	}

	result, err := sizing.Calculate(logger, inputs)
	if err != nil {
		var fatal *sizing.FatalError
		if errors.As(err, &fatal) && format == constants.OutputFormatPretty {
			if writeErr := output.FatalFormat(w, inputs, fatal); writeErr != nil {
				return errors.Join(err, writeErr)
			}
		}
		return err
	}

	return output.Write(w, format, result)
}
