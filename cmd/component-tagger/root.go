package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/twhy/react-component-tagger/pkg/config"
	"github.com/twhy/react-component-tagger/pkg/observability"
	"github.com/twhy/react-component-tagger/pkg/plugin"
	"github.com/twhy/react-component-tagger/pkg/version"
)

const (
	formatJSON  = "json"
	formatYAML  = "yaml"
	formatTable = "table"
)

// app carries state shared by every subcommand: the flag-bound viper
// instance and, after PersistentPreRunE, the loaded configuration.
type app struct {
	v       *viper.Viper
	cfgFile string
	verbose bool
	quiet   bool

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	rootCmd := &cobra.Command{
		Use:   "component-tagger",
		Short: "Annotate JSX opening tags with data-component-* source locations",
		Long: `component-tagger rewrites JSX so every rendered element carries
data-component-* attributes pointing back to the source that produced it,
and emits a source map for the rewritten text.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.load()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./"+config.FileName+".yaml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "suppress output")
	flags.StringSlice("exclude", nil, "component names to leave untouched")
	flags.StringSlice("extensions", nil, "file extensions to annotate (default .jsx,.tsx)")
	flags.String("root", "", "directory paths are reported relative to (default: working directory)")
	flags.Bool("legacy-markers", false, "also emit the index, line and column markers")

	for key, name := range map[string]string{
		"exclude":        "exclude",
		"extensions":     "extensions",
		"root":           "root",
		"legacy_markers": "legacy-markers",
	} {
		// BindPFlag fails only for a nil flag, and every name is registered above.
		_ = a.v.BindPFlag(key, flags.Lookup(name))
	}

	rootCmd.AddCommand(
		transformCmd(a),
		diffCmd(a),
		inspectCmd(a),
		serveCmd(a),
		watchCmd(a),
		mcpCmd(a),
		versionCmd(),
	)

	return rootCmd
}

func (a *app) load() error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}

	a.cfg = cfg

	return nil
}

// observabilityConfig maps telemetry settings for the given mode.
func (a *app) observabilityConfig(mode observability.AppMode) observability.Config {
	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = version.Version
	cfg.Mode = mode
	cfg.LogLevel = a.logLevel()
	cfg.LogJSON = a.cfg.Logging.Format == formatJSON

	tel := a.cfg.Telemetry
	cfg.ServiceName = tel.ServiceName
	cfg.Environment = tel.Environment
	cfg.OTLPEndpoint = tel.OTLPEndpoint
	cfg.OTLPInsecure = tel.OTLPInsecure
	cfg.SampleRatio = tel.SampleRatio
	cfg.ShutdownTimeout = tel.ShutdownTimeout

	return cfg
}

func (a *app) logLevel() slog.Level {
	switch {
	case a.verbose:
		return slog.LevelDebug
	case a.quiet:
		return slog.LevelError
	}

	level, err := observability.ParseLevel(a.cfg.Logging.Level)
	if err != nil {
		return slog.LevelInfo
	}

	return level
}

// logger builds a CLI logger writing to w.
func (a *app) logger(w io.Writer) *slog.Logger {
	return observability.NewLogger(a.observabilityConfig(observability.ModeCLI), w)
}

// plugin builds the host adapter from the loaded configuration.
func (a *app) plugin(mutate func(*plugin.Options)) (*plugin.Plugin, error) {
	opts, err := plugin.OptionsFromConfig(a.cfg)
	if err != nil {
		return nil, err
	}

	if mutate != nil {
		mutate(&opts)
	}

	p, err := plugin.New(opts)
	if err != nil {
		return nil, fmt.Errorf("create plugin: %w", err)
	}

	return p, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		// Skip config loading.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "component-tagger %s\n", version.String())
		},
	}
}
