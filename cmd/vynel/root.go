package main

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"vynel/internal/config"
	"vynel/internal/logx"
)

// app carries state shared by subcommands once the root pre-run has
// resolved configuration.
type app struct {
	cfgPath   string
	logLevel  string
	logFormat string

	cfg config.Config
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "vynel",
		Short:         "Local inference session manager",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", os.Getenv("VYNEL_CONFIG"), "Config file (.yaml, .json or .toml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug|info|warn|error|off (defaults VYNEL_LOG_LEVEL or info)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: console|json")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.load()
	}

	root.AddCommand(newServeCmd(a), newChatCmd(a), newModelsCmd(a), newProbeCmd(a))
	return root
}

// load resolves configuration in order: file, environment, then flags.
func (a *app) load() error {
	var cfg config.Config
	if a.cfgPath != "" {
		c, err := config.Load(a.cfgPath)
		if err != nil {
			return err
		}
		cfg = c
	}
	cfg.ApplyEnv()
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.logFormat != "" {
		cfg.LogFormat = a.logFormat
	}
	cfg.Defaults()
	a.cfg = cfg
	a.log = logx.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	return nil
}

// splitCSV splits a comma-separated flag value, dropping empty items.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
