// Package uci implements the Universal Chess Interface front-end.
package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hailam/chesshash/internal/chess"
	"github.com/hailam/chesshash/internal/config"
	"github.com/hailam/chesshash/internal/engine"
	"github.com/hailam/chesshash/internal/hash"
	"github.com/hailam/chesshash/internal/tablebase"
	"github.com/hailam/chesshash/internal/tune"
)

// LearnStore records deep results and replays them into the table.
type LearnStore interface {
	engine.Learner
	hash.LearnSource
}

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	engine   *engine.Engine
	position *chess.Position

	// Fingerprints of the positions before the current one, oldest first.
	history []uint64

	// Learning
	store       LearnStore
	useLearning bool
	learnDepth  int

	// Online tablebase
	cached *tablebase.CachedProber

	outMu sync.Mutex
	out   io.Writer

	// Search state
	cancel     context.CancelFunc
	searchDone chan struct{}
}

// New creates a UCI handler writing protocol output to out. store may be
// nil, which disables learning.
func New(eng *engine.Engine, store LearnStore, opts *config.Options, out io.Writer) *UCI {
	u := &UCI{
		engine:      eng,
		position:    chess.NewPosition(),
		store:       store,
		useLearning: opts.UseLearning && store != nil,
		learnDepth:  opts.LearnDepth,
		out:         out,
	}
	u.applyLearning()
	if opts.OnlineTB {
		u.setOnlineTablebase(true)
	}
	return u
}

func (u *UCI) println(a ...any) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	fmt.Fprintln(u.out, a...)
}

func (u *UCI) printf(format string, a ...any) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	fmt.Fprintf(u.out, format, a...)
}

// Run reads commands from in until "quit" or end of input. At end of input
// it waits for a running search to finish.
func (u *UCI) Run(ctx context.Context, in io.Reader) error {
	defer u.close()
	scanner := bufio.NewScanner(in)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			u.println("readyok")
		case "ucinewgame":
			u.handleNewGame()
		case "position":
			u.handlePosition(args)
		case "go":
			u.handleGo(ctx, args)
		case "stop":
			u.handleStop()
		case "quit":
			u.handleStop()
			return nil
		case "setoption":
			u.handleSetOption(args)
		// Debug commands
		case "d":
			u.println(u.position.FEN())
		case "eval":
			u.printf("eval %s\n", engine.ScoreToString(u.engine.Evaluate(u.position)))
		case "hashstats":
			u.println("info string", u.engine.Table().Stats())
		case "perft":
			u.handlePerft(args)
		default:
			u.printf("info string unknown command %s\n", cmd)
		}
	}
	u.wait()
	return scanner.Err()
}

// handleUCI responds to the "uci" command.
func (u *UCI) handleUCI() {
	u.println("id name chesshash")
	u.println("id author the chesshash authors")
	u.println()
	u.printf("option name Hash type spin default %d min %d max %d\n",
		u.engine.Table().Bytes()>>20, config.MinHashMB, config.MaxHashMB)
	u.println("option name Clear Hash type button")
	u.printf("option name Threads type spin default %d min %d max %d\n",
		u.engine.Threads(), config.MinThreads, config.MaxThreads)
	u.printf("option name NullMoveDepth type spin default %d min 1 max 16\n", engine.DefaultNullMoveDepth)
	u.printf("option name UseLearning type check default %t\n", u.useLearning)
	u.printf("option name LearnDepth type spin default %d min 1 max %d\n", u.learnDepth, engine.MaxDepth)
	u.printf("option name OnlineTablebase type check default %t\n", u.cached != nil)
	u.println("option name TuneFile type string default <empty>")
	u.println("uciok")
}

// handleNewGame resets the engine for a new game.
func (u *UCI) handleNewGame() {
	u.handleStop()
	u.engine.Clear()
	u.loadLearned()
	u.position = chess.NewPosition()
	u.history = nil
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	movesAt := len(args)
	for i, arg := range args {
		if arg == "moves" {
			movesAt = i
			break
		}
	}

	var pos *chess.Position
	switch args[0] {
	case "startpos":
		pos = chess.NewPosition()
	case "fen":
		var err error
		pos, err = chess.FromFEN(strings.Join(args[1:movesAt], " "))
		if err != nil {
			u.printf("info string %v\n", err)
			return
		}
	default:
		return
	}

	var history []uint64
	if movesAt < len(args) {
		for _, s := range args[movesAt+1:] {
			m, err := pos.ParseMove(s)
			if err != nil {
				u.printf("info string %v\n", err)
				return
			}
			history = append(history, pos.Fingerprint())
			pos.Apply(m)
		}
	}
	u.position = pos
	u.history = history
}

// parseGoOptions parses "go" command arguments.
func parseGoOptions(args []string) engine.UCILimits {
	var limits engine.UCILimits

	ms := func(i int) time.Duration {
		n, _ := strconv.Atoi(args[i])
		return time.Duration(n) * time.Millisecond
	}
	for i := 0; i < len(args); i++ {
		hasValue := i+1 < len(args)
		switch args[i] {
		case "infinite":
			limits.Infinite = true
			continue
		case "depth":
			if hasValue {
				limits.Depth, _ = strconv.Atoi(args[i+1])
			}
		case "nodes":
			if hasValue {
				limits.Nodes, _ = strconv.ParseUint(args[i+1], 10, 64)
			}
		case "movetime":
			if hasValue {
				limits.MoveTime = ms(i + 1)
			}
		case "wtime":
			if hasValue {
				limits.Time[engine.White] = ms(i + 1)
			}
		case "btime":
			if hasValue {
				limits.Time[engine.Black] = ms(i + 1)
			}
		case "winc":
			if hasValue {
				limits.Inc[engine.White] = ms(i + 1)
			}
		case "binc":
			if hasValue {
				limits.Inc[engine.Black] = ms(i + 1)
			}
		case "movestogo":
			if hasValue {
				limits.MovesToGo, _ = strconv.Atoi(args[i+1])
			}
		default:
			continue
		}
		i++
	}
	return limits
}

// handleGo starts a search with the given parameters.
func (u *UCI) handleGo(ctx context.Context, args []string) {
	u.handleStop()
	limits := parseGoOptions(args)

	u.engine.OnInfo = u.sendInfo

	ctx, cancel := context.WithCancel(ctx)
	u.cancel = cancel
	done := make(chan struct{})
	u.searchDone = done

	pos := u.position.Clone()
	history := append([]uint64(nil), u.history...)

	go func() {
		defer close(done)
		defer cancel()
		res := u.engine.Search(ctx, pos, history, limits)
		u.printf("bestmove %s\n", chess.MoveString(res.Move))
	}()
}

// sendInfo outputs search info in UCI format.
func (u *UCI) sendInfo(info engine.SearchInfo) {
	parts := []string{
		fmt.Sprintf("depth %d", info.Depth),
		"score " + engine.UCIScore(info.Score),
		fmt.Sprintf("nodes %d", info.Nodes),
		fmt.Sprintf("time %d", info.Time.Milliseconds()),
	}
	if info.Time > 0 {
		parts = append(parts, fmt.Sprintf("nps %d", uint64(float64(info.Nodes)/info.Time.Seconds())))
	}
	parts = append(parts, fmt.Sprintf("hashfull %d", info.HashFull))
	if len(info.PV) > 0 {
		pv := make([]string, len(info.PV))
		for i, m := range info.PV {
			pv[i] = chess.MoveString(m)
		}
		parts = append(parts, "pv "+strings.Join(pv, " "))
	}
	u.println("info " + strings.Join(parts, " "))
}

// handleStop stops the current search and waits for its bestmove.
func (u *UCI) handleStop() {
	if u.cancel != nil {
		u.cancel()
	}
	u.wait()
}

func (u *UCI) wait() {
	if u.searchDone != nil {
		<-u.searchDone
		u.searchDone = nil
		u.cancel = nil
	}
}

// handleSetOption processes "setoption name <name> [value <value>]". Engine
// settings are read by running searches, so any search is stopped first.
func (u *UCI) handleSetOption(args []string) {
	name, value := parseOption(args)
	u.handleStop()

	switch strings.ToLower(name) {
	case "hash":
		mb, err := strconv.Atoi(value)
		if err != nil || mb < config.MinHashMB || mb > config.MaxHashMB {
			u.printf("info string invalid Hash %q\n", value)
			return
		}
		u.engine.SetHashSize(mb)
		u.loadLearned()
	case "clear hash":
		u.engine.Clear()
		u.loadLearned()
	case "threads":
		n, err := strconv.Atoi(value)
		if err != nil || n < config.MinThreads || n > config.MaxThreads {
			u.printf("info string invalid Threads %q\n", value)
			return
		}
		u.engine.SetThreads(n)
	case "nullmovedepth":
		if n, err := strconv.Atoi(value); err == nil {
			u.engine.SetNullMoveDepth(n)
		}
	case "uselearning":
		u.useLearning = strings.EqualFold(value, "true") && u.store != nil
		u.applyLearning()
	case "learndepth":
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			u.learnDepth = n
			u.applyLearning()
		}
	case "onlinetablebase":
		u.setOnlineTablebase(strings.EqualFold(value, "true"))
	case "tunefile":
		if value == "" || value == "<empty>" {
			u.engine.SetParams(tune.Defaults())
			return
		}
		params, err := tune.LoadFile(value)
		if err != nil {
			u.printf("info string %v\n", err)
			return
		}
		u.engine.SetParams(params)
	default:
		u.printf("info string unknown option %s\n", name)
	}
}

func parseOption(args []string) (name, value string) {
	var nameParts, valueParts []string
	target := &nameParts
	for _, arg := range args {
		switch arg {
		case "name":
			target = &nameParts
		case "value":
			target = &valueParts
		default:
			*target = append(*target, arg)
		}
	}
	return strings.Join(nameParts, " "), strings.Join(valueParts, " ")
}

func (u *UCI) applyLearning() {
	if u.useLearning {
		u.engine.SetLearner(u.store, u.learnDepth)
	} else {
		u.engine.SetLearner(nil, 0)
	}
}

// loadLearned replays learned entries after the table was emptied.
func (u *UCI) loadLearned() {
	if !u.useLearning {
		return
	}
	if _, err := u.engine.LoadLearned(u.store); err != nil {
		log.Warn().Err(err).Msg("loading learned entries")
	}
}

func (u *UCI) setOnlineTablebase(on bool) {
	u.handleStop()
	if u.cached != nil {
		u.cached.Close()
		u.cached = nil
	}
	if !on {
		u.engine.SetProber(tablebase.MaterialProber{})
		return
	}
	cached, err := tablebase.NewCachedLichessProber()
	if err != nil {
		u.printf("info string %v\n", err)
		u.engine.SetProber(tablebase.MaterialProber{})
		return
	}
	u.cached = cached
	u.engine.SetProber(cached)
}

func (u *UCI) close() {
	if u.cached != nil {
		log.Debug().Float64("hit_rate", u.cached.HitRate()).Msg("tablebase cache")
		u.cached.Close()
		u.cached = nil
	}
}

// handlePerft runs a perft test.
func (u *UCI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		depth, _ = strconv.Atoi(args[0])
	}

	start := time.Now()
	nodes := u.engine.Perft(u.position.Clone(), depth)
	elapsed := time.Since(start)

	u.printf("Nodes: %d\n", nodes)
	u.printf("Time: %v\n", elapsed)
	if elapsed > 0 {
		u.printf("NPS: %.0f\n", float64(nodes)/elapsed.Seconds())
	}
}
