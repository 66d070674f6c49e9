// Package dispatchertest runs tests against many seeded dispatchers, and
// reports the seed needed to replay a failure.
package dispatchertest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/joeycumines/go-testdispatch/dispatcher"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Func is a test body, run once per seed, with a fresh dispatcher.
type Func func(t *testing.T, d *dispatcher.Dispatcher)

// Run runs fn for the given number of seeds, starting at 0, as subtests.
// The environment may override the seeds, see ConfigFromEnv.
func Run(t *testing.T, iterations int, fn Func, options ...dispatcher.Option) {
	t.Helper()
	cfg, err := ConfigFromEnv(Config{Iterations: iterations})
	if err != nil {
		t.Fatalf(`dispatchertest: %v`, err)
	}
	RunConfig(t, cfg, fn, options...)
}

// RunConfig runs fn once per seed, in a subtest named "seed=N". A failed
// subtest logs the environment needed to replay just that seed.
func RunConfig(t *testing.T, cfg Config, fn Func, options ...dispatcher.Option) {
	t.Helper()
	if fn == nil {
		panic(`dispatchertest: nil func`)
	}
	iterations := cfg.Iterations
	if iterations < 1 {
		iterations = 1
	}
	for i := 0; i < iterations; i++ {
		seed := cfg.Seed + uint64(i)
		t.Run(fmt.Sprintf(`seed=%d`, seed), func(t *testing.T) {
			opts := options
			if cfg.Logging {
				opts = append(opts[:len(opts):len(opts)], dispatcher.WithLogger(NewLogger(t, cfg.LogLevel)))
			}
			t.Cleanup(func() {
				if t.Failed() {
					t.Logf(`replay with: %s=%d %s=1`, EnvSeed, seed, EnvIterations)
				}
			})
			fn(t, dispatcher.New(seed, opts...))
		})
	}
}

// NewLogger returns a JSON (stumpy) logger, writing each event to tb.Log.
// The logger must not be used after the test completes.
func NewLogger(tb testing.TB, level logiface.Level) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(
			stumpy.WithWriter(testWriter{tb}),
			stumpy.WithTimeField(``),
		),
		stumpy.L.WithLevel(level),
	).Logger()
}

type testWriter struct {
	tb testing.TB
}

func (x testWriter) Write(p []byte) (int, error) {
	x.tb.Helper()
	x.tb.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}
