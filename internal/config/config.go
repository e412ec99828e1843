// Package config loads engine options from defaults, an optional JSON file
// and CHESSHASH_* environment variables, in that order.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hailam/chesshash/internal/learn"
)

// Environment variables read by Load.
const (
	EnvHashMB   = "CHESSHASH_HASH_MB"
	EnvThreads  = "CHESSHASH_THREADS"
	EnvLearnDir = "CHESSHASH_LEARN_DIR"
	EnvLogLevel = "CHESSHASH_LOG_LEVEL"
)

// Limits accepted for table size and worker count.
const (
	MinHashMB  = 1
	MaxHashMB  = 65536
	MinThreads = 1
	MaxThreads = 512
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid option")

// Options holds everything the UCI binary needs at startup.
type Options struct {
	HashMB        int    `json:"hash_mb"`
	Threads       int    `json:"threads"`
	LearnDir      string `json:"learn_dir"`
	UseLearning   bool   `json:"use_learning"`
	LearnDepth    int    `json:"learn_depth"`
	NullMoveDepth int    `json:"null_move_depth"`
	OnlineTB      bool   `json:"online_tablebase"`
	LogLevel      string `json:"log_level"`
	TuneFile      string `json:"tune_file"`
}

// Default returns the built-in options. LearnDir is empty, meaning the
// platform data directory.
func Default() *Options {
	return &Options{
		HashMB:        64,
		Threads:       1,
		UseLearning:   true,
		LearnDepth:    12,
		NullMoveDepth: 3,
		LogLevel:      "info",
	}
}

// Load builds options from defaults, then path if it is not empty, then the
// environment.
func Load(path string) (*Options, error) {
	opts := Default()
	if path != "" {
		if err := opts.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := opts.mergeEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func (o *Options) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := json.Unmarshal(data, o); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (o *Options) mergeEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvHashMB); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w: %q", EnvHashMB, ErrInvalid, v)
		}
		o.HashMB = n
	}
	if v, ok := lookup(EnvThreads); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w: %q", EnvThreads, ErrInvalid, v)
		}
		o.Threads = n
	}
	if v, ok := lookup(EnvLearnDir); ok {
		o.LearnDir = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		o.LogLevel = strings.ToLower(v)
	}
	return nil
}

// Validate checks ranges and the log level.
func (o *Options) Validate() error {
	var errs []error
	if o.HashMB < MinHashMB || o.HashMB > MaxHashMB {
		errs = append(errs, fmt.Errorf("hash_mb %d: %w", o.HashMB, ErrInvalid))
	}
	if o.Threads < MinThreads || o.Threads > MaxThreads {
		errs = append(errs, fmt.Errorf("threads %d: %w", o.Threads, ErrInvalid))
	}
	if o.NullMoveDepth < 1 {
		errs = append(errs, fmt.Errorf("null_move_depth %d: %w", o.NullMoveDepth, ErrInvalid))
	}
	if _, err := zerolog.ParseLevel(o.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level %q: %w", o.LogLevel, ErrInvalid))
	}
	return errors.Join(errs...)
}

// Level returns the parsed log level.
func (o *Options) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(o.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// ResolveLearnDir returns LearnDir, or the platform default when it is empty.
func (o *Options) ResolveLearnDir() (string, error) {
	if o.LearnDir != "" {
		if err := os.MkdirAll(o.LearnDir, 0755); err != nil {
			return "", fmt.Errorf("learn dir: %w", err)
		}
		return o.LearnDir, nil
	}
	return learn.DefaultDir()
}

// Save writes the options as indented JSON.
func (o *Options) Save(path string) error {
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
