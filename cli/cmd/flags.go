// Package cmd provides CLI commands for the qrtx binary.
package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/qrtx/cli/config"
	"github.com/pithecene-io/qrtx/log"
)

// Exit codes for send and receive.
const (
	exitSuccess        = 0
	exitError          = 1
	exitCorruptPayload = 2
	exitSinkFailure    = 3
)

// Shared flags.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	// Only valid for send and receive.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (send, receive only)",
	}

	// ConfigFlag points at a qrtx.yaml file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "Path to qrtx.yaml; CLI flags override its values",
		EnvVars: []string{"QRTX_CONFIG"},
	}

	// LogLevelFlag sets the minimum log level.
	LogLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level: debug, info, warn, error",
		Value: "info",
	}
)

// ReadOnlyFlags returns the shared flags for commands that only render data.
// Includes --tui so that unsupported commands can provide explicit error messages
// instead of generic "flag not defined" errors.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}
}

// loadConfig loads --config when given. A nil config means no file.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		return nil, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, cli.Exit(err.Error(), exitError)
	}
	return cfg, nil
}

// configVal reads one value from an optional config.
func configVal[T any](cfg *config.Config, get func(*config.Config) T) T {
	var zero T
	if cfg == nil {
		return zero
	}
	return get(cfg)
}

// resolveString returns the flag value when set on the command line, else
// the config value when non-empty, else the flag default.
func resolveString(c *cli.Context, name, cfgVal string) string {
	if c.IsSet(name) {
		return c.String(name)
	}
	if cfgVal != "" {
		return cfgVal
	}
	return c.String(name)
}

// resolveInt applies resolveString's precedence to an int flag.
func resolveInt(c *cli.Context, name string, cfgVal int) int {
	if c.IsSet(name) {
		return c.Int(name)
	}
	if cfgVal != 0 {
		return cfgVal
	}
	return c.Int(name)
}

// resolveBool applies resolveString's precedence to a bool flag.
func resolveBool(c *cli.Context, name string, cfgVal bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	return cfgVal || c.Bool(name)
}

// resolveDuration applies resolveString's precedence to a duration flag.
func resolveDuration(c *cli.Context, name string, cfgVal time.Duration) time.Duration {
	if c.IsSet(name) {
		return c.Duration(name)
	}
	if cfgVal != 0 {
		return cfgVal
	}
	return c.Duration(name)
}

// newLogger builds the command logger at the resolved level.
func newLogger(c *cli.Context, cfg *config.Config, direction string) (*log.Logger, error) {
	levelName := resolveString(c, "log-level", configVal(cfg, func(c *config.Config) string { return c.LogLevel }))
	level, err := log.ParseLevel(levelName)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("invalid --log-level: %v", err), exitError)
	}
	return log.NewLogger(direction).WithLevel(level), nil
}
