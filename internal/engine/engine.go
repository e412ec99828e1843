package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/chesshash/internal/chess"
	"github.com/hailam/chesshash/internal/hash"
	"github.com/hailam/chesshash/internal/learn"
	"github.com/hailam/chesshash/internal/tablebase"
	"github.com/hailam/chesshash/internal/tune"
)

// DefaultNullMoveDepth is the minimum remaining depth for a null-move search.
const DefaultNullMoveDepth = 3

// SearchInfo contains information about the current search.
type SearchInfo struct {
	Depth    int
	Score    int
	Nodes    uint64
	Time     time.Duration
	PV       []chess.Move
	HashFull int // Permille of hash table used
}

// Result is the outcome of a search.
type Result struct {
	Move  chess.Move
	Score int
	Depth int
	Nodes uint64
	PV    []chess.Move
}

// Learner persists root results of deep searches.
type Learner interface {
	Record(source string, records []learn.Record) (uuid.UUID, error)
}

// Engine runs Lazy SMP searches: every worker searches the same root and
// they cooperate only through the shared transposition table. Setters must
// not be called while Search is running.
type Engine struct {
	tt     *hash.Table
	age    int
	params *tune.Set
	prober tablebase.Prober

	threads       int
	nullMoveDepth int

	learner    Learner
	learnDepth int

	stop atomic.Bool

	// Callbacks
	OnInfo func(SearchInfo)
}

// NewEngine creates a new chess engine with the given transposition table size in MB.
func NewEngine(hashMB int) *Engine {
	return &Engine{
		tt:            hash.New(hashMB << 20),
		params:        tune.Defaults(),
		prober:        tablebase.MaterialProber{},
		threads:       1,
		nullMoveDepth: DefaultNullMoveDepth,
	}
}

// Table returns the shared transposition table.
func (e *Engine) Table() *hash.Table {
	return e.tt
}

// SetHashSize reallocates the transposition table. It must not be called
// during a search.
func (e *Engine) SetHashSize(mb int) {
	e.tt.Resize(mb << 20)
}

// SetThreads sets the number of search workers.
func (e *Engine) SetThreads(n int) {
	e.threads = max(n, 1)
}

// Threads returns the number of search workers.
func (e *Engine) Threads() int {
	return e.threads
}

// SetNullMoveDepth sets the minimum depth for null-move searches.
func (e *Engine) SetNullMoveDepth(depth int) {
	e.nullMoveDepth = max(depth, 1)
}

// SetParams replaces the evaluation coefficients.
func (e *Engine) SetParams(params *tune.Set) {
	e.params = params
}

// SetProber replaces the tablebase prober. A nil prober disables probing.
func (e *Engine) SetProber(p tablebase.Prober) {
	if p == nil {
		p = tablebase.NoopProber{}
	}
	e.prober = p
}

// SetLearner enables recording of root results searched to at least minDepth.
// A nil learner disables recording.
func (e *Engine) SetLearner(l Learner, minDepth int) {
	e.learner = l
	e.learnDepth = minDepth
}

// LoadLearned preloads learned entries into the table.
func (e *Engine) LoadLearned(src hash.LearnSource) (int, error) {
	return e.tt.LoadLearned(src)
}

// HashFull returns the table occupancy in permille.
func (e *Engine) HashFull() int {
	return e.tt.FillPercent()
}

// Stop stops the current search.
func (e *Engine) Stop() {
	e.stop.Store(true)
}

// Clear clears the transposition table.
func (e *Engine) Clear() {
	e.tt.Clear()
	e.age = 0
}

// Search finds the best move for pos. history holds the fingerprints of the
// positions played before pos, oldest first, for repetition detection. The
// search ends at the limits, on Stop, or when ctx is done.
func (e *Engine) Search(ctx context.Context, pos *chess.Position, history []uint64, limits UCILimits) Result {
	e.stop.Store(false)
	e.age = hash.NextAge(e.age)
	start := time.Now()

	moves := pos.LegalMoves()
	if len(moves) == 0 {
		return Result{}
	}
	if res, ok := e.probeRoot(pos); ok {
		return res
	}

	tm := NewTimeManager()
	tm.Init(limits, pos.WhiteToMove(), pos.GamePly())

	maxDepth := MaxDepth
	if limits.Depth > 0 {
		maxDepth = min(limits.Depth, MaxDepth)
	}

	workers := make([]*Worker, e.threads)
	limit := func() bool {
		if tm.ShouldStop() {
			return true
		}
		return limits.Nodes > 0 && totalNodes(workers) >= limits.Nodes
	}
	for i := range workers {
		workers[i] = newWorker(i, e, pos, history, limit)
	}

	stopOnCancel := context.AfterFunc(ctx, e.Stop)
	defer stopOnCancel()

	var (
		result    WorkerResult
		stability int
	)
	report := func(r WorkerResult) bool {
		if r.Move == result.Move {
			stability++
		} else {
			stability = 0
		}
		result = r
		if e.OnInfo != nil {
			e.OnInfo(SearchInfo{
				Depth:    r.Depth,
				Score:    r.Score,
				Nodes:    totalNodes(workers),
				Time:     time.Since(start),
				PV:       e.principalVariation(pos, r.Move, r.Depth),
				HashFull: e.tt.FillPercent(),
			})
		}
		if limits.Infinite {
			return true
		}
		if IsMateScore(r.Score) {
			return false
		}
		tm.AdjustForStability(stability)
		return !tm.PastOptimum()
	}

	var g errgroup.Group
	for _, w := range workers {
		g.Go(func() error {
			if w.id == 0 {
				w.iterate(maxDepth, report)
				e.stop.Store(true)
				return nil
			}
			w.iterate(maxDepth, nil)
			return nil
		})
	}
	_ = g.Wait()

	if result.Move == chess.NoMove {
		// Stopped before the first iteration finished.
		result = WorkerResult{Move: workers[0].rootMoves[0]}
	}
	res := Result{
		Move:  result.Move,
		Score: result.Score,
		Depth: result.Depth,
		Nodes: totalNodes(workers),
		PV:    e.principalVariation(pos, result.Move, result.Depth),
	}
	log.Debug().
		Int("depth", res.Depth).
		Int("score", res.Score).
		Uint64("nodes", res.Nodes).
		Int("threads", len(workers)).
		Dur("elapsed", time.Since(start)).
		Stringer("hash", e.tt.Stats()).
		Msg("search finished")

	e.learnResult(pos, res)
	return res
}

// probeRoot answers from the tablebase when the root is small enough.
func (e *Engine) probeRoot(pos *chess.Position) (Result, bool) {
	if !e.prober.Available() || pos.PieceCount() > e.prober.MaxPieces() {
		return Result{}, false
	}
	r := e.prober.ProbeRoot(pos)
	if !r.Found || r.Move == chess.NoMove {
		return Result{}, false
	}
	return Result{
		Move:  r.Move,
		Score: tablebase.WDLToScore(r.WDL, 0),
		PV:    []chess.Move{r.Move},
	}, true
}

// principalVariation follows best moves through the table, starting with
// first.
func (e *Engine) principalVariation(pos *chess.Position, first chess.Move, maxLen int) []chess.Move {
	if first == chess.NoMove {
		return nil
	}
	p := pos.Clone()
	pv := []chess.Move{first}
	p.Apply(first)
	seen := map[uint64]bool{p.Fingerprint(): true}
	for len(pv) < maxLen {
		kind, entry := e.tt.Probe(p.Fingerprint(), hash.QSearchNoCheckDepth, e.age)
		if kind == hash.NotFound {
			break
		}
		m := hash.BestMove[chess.Move](entry, p)
		if m == chess.NoMove {
			break
		}
		pv = append(pv, m)
		p.Apply(m)
		if seen[p.Fingerprint()] {
			break
		}
		seen[p.Fingerprint()] = true
	}
	return pv
}

// learnResult records the root result of a deep enough search.
func (e *Engine) learnResult(pos *chess.Position, res Result) {
	if e.learner == nil || res.Depth < e.learnDepth || res.Depth == 0 || IsMateScore(res.Score) {
		return
	}
	rec := learn.Record{
		Fingerprint: pos.Fingerprint(),
		Depth:       res.Depth,
		Kind:        hash.Exact,
		Value:       int16(res.Score),
		StaticEval:  int16(e.Evaluate(pos)),
		Move:        chess.Pack(res.Move),
	}
	if _, err := e.learner.Record("search", []learn.Record{rec}); err != nil {
		log.Warn().Err(err).Msg("recording search result")
	}
}

func totalNodes(workers []*Worker) uint64 {
	var n uint64
	for _, w := range workers {
		if w != nil {
			n += w.Nodes()
		}
	}
	return n
}

// Perft performs a perft test (for debugging move generation).
func (e *Engine) Perft(pos *chess.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}

	moves := pos.LegalMoves()
	if depth == 1 {
		return uint64(len(moves))
	}

	var nodes uint64
	for _, move := range moves {
		undo := pos.Apply(move)
		nodes += e.Perft(pos, depth-1)
		undo()
	}

	return nodes
}

// Evaluate returns the static evaluation of a position.
func (e *Engine) Evaluate(pos *chess.Position) int {
	return NewEvaluator(e.params, nil).Evaluate(pos)
}
