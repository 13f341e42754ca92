package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/vanetlab/vanetsim/internal/config"
)

// options are the flags that are not config keys.
type options struct {
	configDir   string
	envFile     string
	showVersion bool
}

// flagKeys maps flags to the config keys they override.
var flagKeys = map[string]string{
	"trajectories": "simulation.trajectories",
	"policy":       "simulation.policy",
	"seed":         "simulation.seed",
	"max-ticks":    "simulation.maxTicks",
	"snapshots":    "simulation.snapshots",
	"flush-every":  "analytics.flushEvery",
	"storage":      "storage.type",
	"output-dir":   "storage.memory.outputDir",
	"log-level":    "logLevel",
	"logs-dir":     "logsDir",
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	fs.SortFlags = false

	fs.String("config-dir", ".", "directory containing "+config.FileName)
	fs.String("env-file", ".env", "dotenv file loaded before the config, ignored when missing")
	fs.BoolP("version", "v", false, "print the version and exit")

	fs.StringP("trajectories", "t", "", "trajectory file produced by the generator (.json or .json.gz)")
	fs.StringP("policy", "p", "", "connectivity policy: random, smart or both")
	fs.Int64("seed", 0, "seed of the motion vector noise")
	fs.Int("max-ticks", 0, "stop a run after this many ticks")
	fs.Bool("snapshots", false, "store vehicle positions and connected pairs on every tick")
	fs.Int("flush-every", 0, "ticks between analytics flushes to storage")
	fs.StringP("storage", "s", "", "comma-separated storage backends: memory, sqlite, postgres, influx")
	fs.StringP("output-dir", "o", "", "directory for the exported analytics files")
	fs.String("log-level", "", "log level: debug, info, warn or error")
	fs.String("logs-dir", "", "directory for the session log file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\nFlags:\n%s", AppName, fs.FlagUsages())
	}
	return fs
}

// parseFlags parses args and binds the config flags into viper.
// Only flags given on the command line override file, environment and defaults.
func parseFlags(args []string) (options, error) {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if err := bindFlags(fs); err != nil {
		return options{}, err
	}

	var opts options
	opts.configDir, _ = fs.GetString("config-dir")
	opts.envFile, _ = fs.GetString("env-file")
	opts.showVersion, _ = fs.GetBool("version")
	return opts, nil
}

func bindFlags(fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if err := viper.BindPFlag(key, fs.Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}
