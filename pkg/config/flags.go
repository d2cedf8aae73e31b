package config

import "github.com/spf13/pflag"

// NewFlagSet defines the command-line flags Load understands. Flag names
// match the configuration keys.
func NewFlagSet(name string) *pflag.FlagSet {
	f := pflag.NewFlagSet(name, pflag.ContinueOnError)
	f.String("config", DefaultFile, "Configuration file")
	f.StringP("input", "i", "", "Edge-list input file (generates a grid when empty)")
	f.Int("cellx", 4, "Grid cells along x")
	f.Int("celly", 4, "Grid cells along y")
	f.Int("cellz", 4, "Grid cells along z")
	f.IntP("ranks", "n", 2, "Number of ranks for a generated grid")
	f.StringP("partitioner", "p", "claim", "Partitioner: claim, block or grow")
	f.Bool("directed", false, "Store edges directed")
	f.Duration("timeout", 0, "Per-receive watchdog during finalize (default 30s)")
	f.Duration("slowphase", 0, "Warn about finalize phases slower than this (0 disables)")
	f.Bool("web", false, "Start web server instead of printing to console")
	f.Int("port", 8080, "Port for web server (only used with --web)")
	f.Bool("watch", false, "Rebuild when the input or config file changes")
	f.String("verbosity", "", "Log level: trace, debug, info, warn or error")
	f.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	f.Bool("json", false, "Log JSON instead of compact text")
	return f
}
