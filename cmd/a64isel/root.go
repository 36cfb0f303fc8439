package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/GriffinCanCode/a64isel/pkg/logger"
	"github.com/GriffinCanCode/a64isel/pkg/target"
)

const envPrefix = "a64isel"

// RootCommand is the base CLI command that all subcommands are added to
var RootCommand = &cobra.Command{
	Use:           "a64isel",
	Short:         "AArch64 instruction selection",
	Long:          "Select AArch64 machine instructions for legalized operation graphs.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := bindEnvironment(cmd); err != nil {
			return err
		}
		return initLogging(cmd)
	},
}

func init() {
	addGlobalFlags(RootCommand.PersistentFlags())
}

func addGlobalFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "target configuration file (YAML)")
	flags.String("code-model", string(target.CodeModelSmall), "code model: tiny, small, kernel, medium or large")
	flags.Int("opt-level", 2, "optimization level (0-3)")
	flags.String("log-level", "warn", "log level: debug, info, warn or error")
	flags.String("log-format", "text", "log format: text or json")
	flags.BoolP("verbose", "v", false, "shorthand for --log-level=debug")
}

// bindEnvironment lets A64ISEL_<FLAG> variables supply flags that were not
// set on the command line.
func bindEnvironment(cmd *cobra.Command) error {
	var errs []string
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		name := strings.ReplaceAll(f.Name, "-", "_")
		if !f.Changed && v.IsSet(name) {
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", v.Get(name))); err != nil {
				errs = append(errs, err.Error())
			}
		}
	})
	if len(errs) > 0 {
		return fmt.Errorf("mapping environment variables to flags: %s", strings.Join(errs, "; "))
	}
	return nil
}

func initLogging(cmd *cobra.Command) error {
	flags := cmd.Flags()
	level, _ := flags.GetString("log-level")
	format, _ := flags.GetString("log-format")
	if verbose, _ := flags.GetBool("verbose"); verbose {
		level = "debug"
	}
	return logger.Init(logger.Config{
		Level:  logger.ParseLevel(level),
		Format: format,
		Output: cmd.ErrOrStderr(),
	})
}

// loadTarget layers the config file, then explicitly set flags, over the
// default target.
func loadTarget(cmd *cobra.Command) (target.Config, error) {
	def := target.Default()
	v := viper.New()
	v.SetDefault("name", def.Name)
	v.SetDefault("code_model", string(def.CodeModel))
	v.SetDefault("opt_level", def.OptLevel)
	v.SetDefault("pointer_bits", def.PointerBits)

	flags := cmd.Flags()
	if path, _ := flags.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return target.Config{}, fmt.Errorf("reading config: %w", err)
		}
	}
	if f := flags.Lookup("code-model"); f != nil && f.Changed {
		v.Set("code_model", f.Value.String())
	}
	if f := flags.Lookup("opt-level"); f != nil && f.Changed {
		v.Set("opt_level", f.Value.String())
	}

	var cfg target.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return target.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return target.Config{}, err
	}
	return cfg, nil
}
