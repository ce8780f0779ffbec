package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/gookit/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/exp/rand"

	"edfsim"
)

// periods (seconds) a random task set draws from
var RANDOM_PERIODS = []float64{5, 10, 15, 20, 30, 60}

func newLogger(verbosity int) (logr.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.Level = zap.NewAtomicLevelAt(zapcore.Level(-verbosity))
	zl, err := zc.Build()
	if err != nil {
		return logr.Discard(), err
	}
	return zapr.NewLogger(zl), nil
}

func loadConfig(path string) (*edfsim.Config, error) {
	if path == "" {
		return edfsim.DefaultConfig(), nil
	}
	return edfsim.LoadConfig(path)
}

func fail(format string, args ...interface{}) {
	color.Error.Println(fmt.Sprintf(format, args...))
	os.Exit(1)
}

func main() {
	configPath := flag.String("config", "", "JSON run configuration; built-in defaults when empty")
	policyName := flag.String("policy", "all", "basic, static, cc or all")
	seed := flag.Uint64("seed", 1, "seed for actual execution time draws and random task sets")
	showTrace := flag.Bool("trace", false, "print the schedule tick by tick")
	nRandom := flag.Int("random", 0, "replace the task set with N random tasks")
	util := flag.Float64("util", 0.8, "total utilization of a random task set")
	serve := flag.String("serve", "", "serve the HTTP API on this address instead of running once")
	verbosity := flag.Int("v", 0, "log verbosity")
	flag.Parse()

	log, err := newLogger(*verbosity)
	if err != nil {
		fail("failed to build logger: %v", err)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fail("%v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			cfg.Seed = *seed
		}
	})

	if *nRandom > 0 {
		ts, err := edfsim.RandomTaskSet(*nRandom, *util, RANDOM_PERIODS, cfg.TimeQuantum, rand.NewSource(cfg.Seed))
		if err != nil {
			fail("%v", err)
		}
		cfg.Tasks = ts
		if err := cfg.Validate(); err != nil {
			fail("%v", err)
		}
	}

	if *serve != "" {
		srv := newServer(cfg, log)
		log.Info("serving", "addr", *serve)
		if err := http.ListenAndServe(*serve, srv.routes()); err != nil {
			log.Error(err, "server stopped")
			os.Exit(1)
		}
		return
	}

	printTaskSet(os.Stdout, cfg)

	opts := []edfsim.Option{edfsim.WithLogger(log)}
	if *showTrace {
		opts = append(opts, edfsim.WithSink(newTracePrinter(os.Stdout)))
	}

	var cmp *edfsim.Comparison
	if *policyName == "all" {
		cmp, err = edfsim.Compare(cfg, opts...)
	} else {
		var policy edfsim.Policy
		if policy, err = edfsim.ParsePolicy(*policyName); err == nil {
			cmp, err = runOne(cfg, policy, opts...)
		}
	}
	if err != nil {
		fail("%v", err)
	}
	printComparison(os.Stdout, cmp)
}

func runOne(cfg *edfsim.Config, policy edfsim.Policy, opts ...edfsim.Option) (*edfsim.Comparison, error) {
	res, err := edfsim.Simulate(cfg, policy, opts...)
	if err != nil {
		return nil, err
	}
	return &edfsim.Comparison{
		Utilization: cfg.Tasks.Utilization(),
		Hyperperiod: edfsim.Hyperperiod(cfg.Tasks, cfg.TicksPerSecond()),
		Results:     []*edfsim.Result{res},
	}, nil
}
