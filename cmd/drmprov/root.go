package main

import (
	"io"

	"github.com/axent-pl/drmkit/common/logx"
	"github.com/axent-pl/drmkit/config"
	"github.com/axent-pl/drmkit/output"
	"github.com/spf13/cobra"
)

const (
	configFlag   = "config"
	platformFlag = "platform"
	logLevelFlag = "log-level"
	outputFlag   = "output"
	queryFlag    = "query"
	noWaitFlag   = "no-wait"
	cleanupFlag  = "cleanup"
)

type rootFlags struct {
	ConfigFile string
	Output     string
	Query      string
	NoWait     bool
	Cleanup    bool
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	return newApp(stdin, stdout, stderr).command()
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{v: config.New(), stdin: stdin, stdout: stdout, stderr: stderr}
}

func (a *app) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drmprov",
		Short: "Provision DRM protected streams and issue content key tokens",
		Long: `Registers a PlayReady and Widevine content key policy, creates a streaming
locator for an encoded asset, makes sure the streaming endpoint runs and
prints the playback URL together with the bearer tokens a player needs.

Configuration is read from appsettings.json (or --config) and overridden by
environment variables of the same names.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
		RunE:              a.runProvision,
	}
	cmd.SetIn(a.stdin)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.flags.ConfigFile, configFlag, "", "configuration file (JSON or YAML); defaults to ./appsettings.*")
	pf.StringVarP(&a.flags.Output, outputFlag, "o", string(output.FormatText), "output format: text, json or yaml")
	pf.StringVarP(&a.flags.Query, queryFlag, "q", "", "select part of the output, e.g. .playback.url")
	pf.String(platformFlag, config.PlatformARM, "media platform: arm or memory")
	pf.String(logLevelFlag, "info", "log level: debug, info, warn or error")
	_ = a.v.BindPFlag(config.KeyPlatform, pf.Lookup(platformFlag))
	_ = a.v.BindPFlag(config.KeyLogLevel, pf.Lookup(logLevelFlag))

	addProvisionFlags(cmd, a)
	cmd.AddCommand(
		newProvisionCommand(a),
		newTokenCommand(a),
		newPolicyCommand(a),
	)
	return cmd
}

// load runs before every command: it merges the config file, installs the
// logger and parses the output settings.
func (a *app) load(cmd *cobra.Command, _ []string) error {
	if err := config.ReadFile(a.v, a.flags.ConfigFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	level, err := logx.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logx.SetLogger(logx.NewText(a.stderr, level))

	format, err := output.ParseFormat(a.flags.Output)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.renderer = output.Renderer{Format: format, Query: a.flags.Query}
	logx.L().Debug("configuration loaded", "command", cmd.Name(), "platform", cfg.Platform, "file", a.v.ConfigFileUsed())
	return nil
}
