// Command hashbench stress-tests the transposition table, runs fixed searches
// against it and manages learn files.
//
// Usage:
//
//	hashbench bench [-hash MB] [-workers N] [-ops N] [-keys N]
//	hashbench search [-hash MB] [-threads N] [-depth N] [fen]
//	hashbench export -learn-dir DIR FILE
//	hashbench import -learn-dir DIR FILE
//	hashbench sessions -learn-dir DIR
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hailam/chesshash/internal/logging"
)

const (
	exitOK  = 0
	exitErr = 1
)

var errUsage = errors.New("usage: hashbench bench|search|export|import|sessions [flags]")

func main() {
	logging.SetupStderr(zerolog.InfoLevel)

	if err := realMain(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(exitOK)
		}
		log.Error().Err(err).Msg("hashbench")
		os.Exit(exitErr)
	}
	os.Exit(exitOK)
}

func realMain(args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "bench":
		return benchCmd(args)
	case "search":
		return searchCmd(args)
	case "export":
		return exportCmd(args)
	case "import":
		return importCmd(args)
	case "sessions":
		return sessionsCmd(args)
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

var (
	label = color.New(color.FgCyan).SprintFunc()
	good  = color.New(color.FgGreen, color.Bold).SprintFunc()
	bad   = color.New(color.FgRed, color.Bold).SprintFunc()
)

func row(name string, value any) {
	fmt.Printf("%-14s %v\n", label(name), value)
}
