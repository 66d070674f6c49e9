package dispatchertest

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joeycumines/logiface"
)

// Environment variables read by ConfigFromEnv.
const (
	// EnvSeed sets the first seed (an unsigned integer).
	EnvSeed = `SEED`
	// EnvIterations sets the number of seeds to run (an integer >= 1).
	EnvIterations = `ITERATIONS`
	// EnvLog enables dispatcher logging, at the named logiface level (e.g.
	// "trace", "debug", "warning").
	EnvLog = `DISPATCH_LOG`
)

// Config controls RunConfig.
type Config struct {
	// Seed is the first seed, each iteration uses the next.
	Seed uint64

	// Iterations is the number of seeds to run, values < 1 are treated as 1.
	Iterations int

	// LogLevel is the level at which dispatcher events are logged to the
	// test log. Only used if Logging is true.
	LogLevel logiface.Level

	// Logging enables the test logger, see NewLogger.
	Logging bool
}

// ConfigFromEnv returns defaults, overridden by any of EnvSeed,
// EnvIterations, and EnvLog, that are set (and non-empty).
func ConfigFromEnv(defaults Config) (Config, error) {
	cfg := defaults

	if v := strings.TrimSpace(os.Getenv(EnvSeed)); v != `` {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf(`invalid %s: %w`, EnvSeed, err)
		}
		cfg.Seed = seed
	}

	if v := strings.TrimSpace(os.Getenv(EnvIterations)); v != `` {
		iterations, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf(`invalid %s: %w`, EnvIterations, err)
		}
		if iterations < 1 {
			return Config{}, fmt.Errorf(`invalid %s: must be >= 1, got %d`, EnvIterations, iterations)
		}
		cfg.Iterations = iterations
	}

	if v := strings.TrimSpace(os.Getenv(EnvLog)); v != `` {
		level, err := parseLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf(`invalid %s: %w`, EnvLog, err)
		}
		cfg.LogLevel = level
		cfg.Logging = level.Enabled()
	}

	return cfg, nil
}

func parseLevel(s string) (logiface.Level, error) {
	s = strings.ToLower(s)
	for level := logiface.LevelDisabled; level <= logiface.LevelTrace; level++ {
		if level.String() == s {
			return level, nil
		}
	}
	// common aliases
	switch s {
	case `error`:
		return logiface.LevelError, nil
	case `warn`:
		return logiface.LevelWarning, nil
	case `information`, `informational`:
		return logiface.LevelInformational, nil
	}
	return logiface.LevelDisabled, fmt.Errorf(`unknown log level %q`, s)
}
