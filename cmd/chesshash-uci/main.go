package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hailam/chesshash/internal/config"
	"github.com/hailam/chesshash/internal/engine"
	"github.com/hailam/chesshash/internal/learn"
	"github.com/hailam/chesshash/internal/logging"
	"github.com/hailam/chesshash/internal/tune"
	"github.com/hailam/chesshash/internal/uci"
)

var (
	configPath = flag.String("config", "", "JSON options file")
	hashMB     = flag.Int("hash", 0, "transposition table size in MB (overrides config)")
	threads    = flag.Int("threads", 0, "search threads (overrides config)")
	learnDir   = flag.String("learn-dir", "", "learning database directory (overrides config)")
	noLearn    = flag.Bool("no-learn", false, "disable the learning database")
	tuneFile   = flag.String("tune", "", "evaluation parameter file (overrides config)")
	logLevel   = flag.String("log-level", "", "log level (overrides config)")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
)

const (
	exitOK  = 0
	exitErr = 1
)

func main() {
	flag.Parse()

	if err := realMain(); err != nil {
		log.Error().Err(err).Msg("chesshash")
		os.Exit(exitErr)
	}
	os.Exit(exitOK)
}

// realMain returns instead of exiting so that deferred cleanup, such as
// flushing the CPU profile and closing the learning database, always runs.
func realMain() error {
	opts, err := config.Load(*configPath)
	if err != nil {
		logging.SetupStderr(zerolog.InfoLevel)
		return fmt.Errorf("loading options: %w", err)
	}
	applyFlags(opts)
	logging.SetupStderr(opts.Level())
	if err := opts.Validate(); err != nil {
		return err
	}

	eng := engine.NewEngine(opts.HashMB)
	eng.SetThreads(opts.Threads)
	eng.SetNullMoveDepth(opts.NullMoveDepth)

	if opts.TuneFile != "" {
		params, err := tune.LoadFile(opts.TuneFile)
		if err != nil {
			return fmt.Errorf("loading evaluation parameters: %w", err)
		}
		eng.SetParams(params)
	}

	stopProfile, err := startProfile()
	if err != nil {
		return err
	}
	defer stopProfile()

	var store uci.LearnStore
	if opts.UseLearning {
		s, err := openStore(opts)
		if err != nil {
			log.Warn().Err(err).Msg("learning disabled")
		} else {
			defer s.Close()
			if _, err := eng.LoadLearned(s); err != nil {
				log.Warn().Err(err).Msg("loading learned entries")
			}
			store = s
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	protocol := uci.New(eng, store, opts, os.Stdout)
	if err := protocol.Run(ctx, os.Stdin); err != nil {
		return fmt.Errorf("reading commands: %w", err)
	}
	return nil
}

// startProfile starts CPU profiling if requested via flag or environment
// variable. The returned func stops it.
func startProfile() (func(), error) {
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath == "" {
		return func() {}, nil
	}
	f, err := os.Create(profilePath)
	if err != nil {
		return nil, fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("could not start CPU profile: %w", err)
	}
	log.Info().Str("path", profilePath).Msg("CPU profiling enabled")
	return func() {
		pprof.StopCPUProfile()
		f.Close()
	}, nil
}

func applyFlags(opts *config.Options) {
	if *hashMB > 0 {
		opts.HashMB = *hashMB
	}
	if *threads > 0 {
		opts.Threads = *threads
	}
	if *learnDir != "" {
		opts.LearnDir = *learnDir
	}
	if *noLearn {
		opts.UseLearning = false
	}
	if *tuneFile != "" {
		opts.TuneFile = *tuneFile
	}
	if *logLevel != "" {
		opts.LogLevel = *logLevel
	}
}

func openStore(opts *config.Options) (*learn.Store, error) {
	dir, err := opts.ResolveLearnDir()
	if err != nil {
		return nil, err
	}
	return learn.Open(dir)
}
