package main

import (
	"fmt"
	"io"
	"os"

	"github.com/iwvelando/rocket-calculator/internal/config"
	"github.com/iwvelando/rocket-calculator/pkg/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "rocket-calculator",
		Short: "Size a single-stage rocket to orbit",
		Long: `rocket-calculator estimates the orbital velocity, Earth's rotational boost,
Tsiolkovsky mass ratio and mass breakdown of a single-stage rocket.

Inputs come from a YAML configuration file, ROCKET_ prefixed environment
variables and command line flags, in increasing order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", constants.DefaultConfigFile, "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(newCalculateCmd(opts))
	rootCmd.AddCommand(newInteractiveCmd(opts))
	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newInitConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// loadConfiguration reads the configuration for a command. The default
// config file is optional; one named with --config must exist.
func loadConfiguration(cmd *cobra.Command, opts *rootOptions) (*config.Loader, *config.Configuration, error) {
	loader := config.NewLoader()
	if err := loader.BindFlags(cmd.Flags()); err != nil {
		return nil, nil, err
	}

	optional := !cmd.Flags().Changed("config")
	conf, err := loader.Load(opts.configPath, optional)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration at %s: %w", opts.configPath, err)
	}
	return loader, conf, nil
}

// setup loads the configuration and builds the logger every command uses.
func setup(cmd *cobra.Command, opts *rootOptions) (*config.Loader, *config.Configuration, *zap.Logger, error) {
	loader, conf, err := loadConfiguration(cmd, opts)
	if err != nil {
		return nil, nil, nil, err
	}

	logger, err := initializeLogger(conf.Logging, opts.logLevel)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return loader, conf, logger, nil
}

func addInputFlags(flags *pflag.FlagSet) {
	flags.Float64("payload", constants.DefaultPayloadMass, "payload mass in kg")
	flags.Float64("specific-impulse", constants.DefaultSpecificImpulse, "specific impulse in seconds")
	flags.Float64("latitude", constants.DefaultLaunchLatitude, "launch latitude in degrees")
	flags.Float64("altitude", constants.DefaultOrbitAltitude, "orbit altitude in meters")
	flags.Float64("structural-fraction", constants.DefaultStructuralFraction, "structural mass fraction (0-1)")
	flags.Float64("delta-v", constants.DefaultDeltaVBudget, "delta-v budget in m/s")
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "rocket-calculator %s\n", version)
			return err
		},
	}
}

func newInitConfigCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write an example configuration with the default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return config.Default().WriteExample(cmd.OutOrStdout())
			}

			f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", file, err)
			}
			if err := config.Default().WriteExample(f); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "write to this file instead of stdout; it must not exist")
	return cmd
}

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
