package engine

import (
	"sync/atomic"

	"lukechampine.com/frand"

	"github.com/hailam/chesshash/internal/chess"
	"github.com/hailam/chesshash/internal/hash"
	"github.com/hailam/chesshash/internal/tablebase"
)

// Pawn cache per worker.
const pawnTableKB = 256

// Tablebase results are exact at any depth.
const tablebaseDepth = 253

// Worker represents a search worker for parallel Lazy SMP search.
// Each worker has its own position and evaluator but shares the
// transposition table with every other worker.
type Worker struct {
	id int

	// Per-worker position copy
	pos  *chess.Position
	eval *Evaluator

	// Fingerprints from the game start to the current node, for repetition
	// detection.
	history []uint64

	rootMoves []chess.Move

	nodes atomic.Uint64

	// Shared resources
	tt            *hash.Table
	prober        tablebase.Prober
	age           int
	nullMoveDepth int
	stopFlag      *atomic.Bool
	limit         func() bool
}

// WorkerResult contains the result from a worker's search at a given depth.
type WorkerResult struct {
	WorkerID int
	Depth    int
	Score    int
	Move     chess.Move
}

func newWorker(id int, e *Engine, pos *chess.Position, history []uint64, limit func() bool) *Worker {
	w := &Worker{
		id:            id,
		pos:           pos.Clone(),
		eval:          NewEvaluator(e.params, NewPawnTable(pawnTableKB)),
		tt:            e.tt,
		prober:        e.prober,
		age:           e.age,
		nullMoveDepth: e.nullMoveDepth,
		stopFlag:      &e.stop,
		limit:         limit,
	}
	w.history = make([]uint64, 0, len(history)+MaxPly+1)
	w.history = append(w.history, history...)
	w.history = append(w.history, w.pos.Fingerprint())
	w.orderRoot()
	return w
}

// orderRoot sorts the root moves. Helper threads shuffle them so that the
// workers explore different subtrees first and share results through the
// table.
func (w *Worker) orderRoot() {
	moves := w.pos.LegalMoves()
	ttMove := chess.NoMove
	if kind, e := w.tt.Probe(w.pos.Fingerprint(), 0, w.age); kind != hash.NotFound {
		ttMove = chess.Unpack(e.Move())
	}
	scores := scoreMoves(w.pos, moves, ttMove)
	for i := range moves {
		PickMove(moves, scores, i)
	}
	if w.id > 0 {
		frand.Shuffle(len(moves), func(i, j int) {
			moves[i], moves[j] = moves[j], moves[i]
		})
	}
	w.rootMoves = moves
}

// ID returns the worker's ID.
func (w *Worker) ID() int {
	return w.id
}

// Nodes returns the number of nodes searched by this worker.
func (w *Worker) Nodes() uint64 {
	return w.nodes.Load()
}

// stopped returns true if search should stop.
func (w *Worker) stopped() bool {
	return w.stopFlag.Load()
}

// tick counts a node and polls the search limits. It reports whether the
// search must unwind.
func (w *Worker) tick() bool {
	n := w.nodes.Add(1)
	if n&1023 == 0 && w.limit != nil && w.limit() {
		w.stopFlag.Store(true)
	}
	return w.stopFlag.Load()
}

// iterate runs iterative deepening up to maxDepth. Helpers start one ply
// deeper on odd IDs so that the workers are not in lockstep.
func (w *Worker) iterate(maxDepth int, report func(WorkerResult) bool) WorkerResult {
	var best WorkerResult
	start := 1
	if w.id > 0 {
		start += w.id % 2
	}
	for depth := start; depth <= maxDepth; depth++ {
		move, score, ok := w.searchRoot(depth)
		if !ok {
			break
		}
		best = WorkerResult{WorkerID: w.id, Depth: depth, Score: score, Move: move}
		if report != nil && !report(best) {
			break
		}
	}
	return best
}

// searchRoot searches every root move at depth. It returns false if the
// search was stopped before the iteration finished.
func (w *Worker) searchRoot(depth int) (chess.Move, int, bool) {
	if len(w.rootMoves) == 0 {
		return chess.NoMove, 0, false
	}
	f := w.pos.Fingerprint()
	staticEval := w.eval.Evaluate(w.pos)

	alpha, beta := -Infinity, Infinity
	best, bestIdx := -Infinity, -1
	for i, m := range w.rootMoves {
		score := -w.child(m, depth-1, 1, -beta, -alpha)
		if w.stopped() {
			return chess.NoMove, 0, false
		}
		if score > best {
			best, bestIdx = score, i
			alpha = max(alpha, score)
		}
	}

	// Best move first for the next iteration.
	m := w.rootMoves[bestIdx]
	copy(w.rootMoves[1:bestIdx+1], w.rootMoves[:bestIdx])
	w.rootMoves[0] = m

	w.tt.Store(f, depth, w.age, hash.Exact, int16(AdjustScoreToTT(best, 0)),
		int16(staticEval), 0, chess.Pack(m))
	return m, best, true
}

// child plays m, searches the resulting position and takes m back. The score
// is from the child's point of view.
func (w *Worker) child(m chess.Move, depth, ply, alpha, beta int) int {
	undo := w.pos.Apply(m)
	w.history = append(w.history, w.pos.Fingerprint())
	score := w.negamax(depth, ply, alpha, beta, true)
	w.history = w.history[:len(w.history)-1]
	undo()
	return score
}

// isDraw checks for draw by repetition or 50-move rule.
func (w *Worker) isDraw() bool {
	if w.pos.HalfmoveClock() >= 100 {
		return true
	}
	// One earlier occurrence is enough inside the tree. Positions more than
	// HalfmoveClock plies back cannot repeat.
	current := len(w.history) - 1
	limit := max(current-w.pos.HalfmoveClock(), 0)
	for i := current - 2; i >= limit; i -= 2 {
		if w.history[i] == w.history[current] {
			return true
		}
	}
	return false
}

// ttCutoff reports whether a bound from the table settles the node.
func ttCutoff(kind hash.Kind, score, alpha, beta int) bool {
	switch kind {
	case hash.Exact:
		return true
	case hash.LowerBound:
		return score >= beta
	case hash.UpperBound:
		return score <= alpha
	}
	return false
}

// negamax implements the negamax algorithm with alpha-beta pruning.
func (w *Worker) negamax(depth, ply int, alpha, beta int, allowNull bool) int {
	if depth <= 0 {
		return w.quiescence(ply, alpha, beta)
	}
	if w.tick() {
		return 0
	}
	if w.isDraw() {
		return 0
	}
	if ply >= MaxPly-1 {
		return w.eval.Evaluate(w.pos)
	}

	f := w.pos.Fingerprint()
	kind, entry := w.tt.Probe(f, depth, w.age)
	ttMove := chess.NoMove
	staticEval, haveEval := 0, false
	if kind != hash.NotFound {
		ttMove = chess.Unpack(entry.Move())
		staticEval, haveEval = entry.StaticEval(), true
		if score := AdjustScoreFromTT(entry.Value(), ply); ttCutoff(kind, score, alpha, beta) {
			return score
		}
	}

	if score, ok := w.probeTablebase(f, ply); ok {
		return score
	}

	inCheck := w.pos.InCheck()
	if !haveEval {
		staticEval = w.eval.Evaluate(w.pos)
	}

	// Null Move Pruning, skipped when the table says a reduced search already
	// failed low here.
	if allowNull && !inCheck && depth >= w.nullMoveDepth && staticEval >= beta &&
		abs(beta) < MateScore-MaxPly && w.pos.HasNonPawnMaterial() {
		r := 2 + depth/4
		nullDepth := max(depth-1-r, 0)
		if kind == hash.NotFound || !entry.AvoidNull(nullDepth, beta) {
			if score, ok := w.nullSearch(nullDepth, ply, beta); ok && score >= beta {
				return beta
			}
		}
	}

	moves := w.pos.LegalMoves()
	if len(moves) == 0 {
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}
	scores := scoreMoves(w.pos, moves, ttMove)

	origAlpha := alpha
	bestScore := -Infinity
	bestMove := chess.NoMove
	for i := range moves {
		PickMove(moves, scores, i)
		move := moves[i]

		score := -w.child(move, depth-1, ply+1, -beta, -alpha)
		if w.stopped() {
			w.storeEval(f, kind, staticEval)
			return 0
		}
		if score > bestScore {
			bestScore, bestMove = score, move
			alpha = max(alpha, score)
		}
		if alpha >= beta {
			break
		}
	}

	w.store(f, depth, ply, bestScore, origAlpha, beta, staticEval, bestMove)
	return bestScore
}

// nullSearch gives the opponent a free move and searches the result with a
// null window around beta.
func (w *Worker) nullSearch(depth, ply, beta int) (int, bool) {
	null, err := w.pos.NullPosition()
	if err != nil {
		return 0, false
	}
	saved := w.pos
	w.pos = null
	w.history = append(w.history, null.Fingerprint())
	score := -w.negamax(depth, ply+1, -beta, -beta+1, false)
	w.history = w.history[:len(w.history)-1]
	w.pos = saved
	return score, true
}

// probeTablebase scores the node from the tablebase if it is small enough.
// Hits are stored as sticky entries.
func (w *Worker) probeTablebase(f uint64, ply int) (int, bool) {
	if w.prober == nil || !w.prober.Available() ||
		w.pos.PieceCount() > w.prober.MaxPieces() {
		return 0, false
	}
	res := w.prober.Probe(w.pos)
	if !res.Found {
		return 0, false
	}
	staticEval := w.eval.Evaluate(w.pos)
	w.tt.Store(f, tablebaseDepth, w.age, hash.Exact,
		int16(tablebase.WDLToScore(res.WDL, 0)), int16(staticEval),
		hash.FlagTablebase, hash.NoMove)
	return tablebase.WDLToScore(res.WDL, ply), true
}

// quiescence resolves captures until the position is quiet. Nodes in check
// search every evasion and are stored one ply deeper than quiet nodes.
func (w *Worker) quiescence(ply, alpha, beta int) int {
	if w.tick() {
		return 0
	}
	if w.isDraw() {
		return 0
	}
	if ply >= MaxPly-1 {
		return w.eval.Evaluate(w.pos)
	}

	inCheck := w.pos.InCheck()
	depth := hash.QSearchNoCheckDepth
	if inCheck {
		depth = hash.QSearchCheckDepth
	}

	f := w.pos.Fingerprint()
	kind, entry := w.tt.Probe(f, depth, w.age)
	staticEval, haveEval := 0, false
	if kind != hash.NotFound {
		staticEval, haveEval = entry.StaticEval(), true
		if score := AdjustScoreFromTT(entry.Value(), ply); ttCutoff(kind, score, alpha, beta) {
			return score
		}
	}
	if !haveEval {
		staticEval = w.eval.Evaluate(w.pos)
	}

	origAlpha := alpha
	bestScore := -Infinity
	if !inCheck {
		// Stand pat
		bestScore = staticEval
		if bestScore >= beta {
			w.storeEval(f, kind, staticEval)
			return bestScore
		}
		alpha = max(alpha, bestScore)
	}

	moves := w.pos.LegalMoves()
	if inCheck && len(moves) == 0 {
		return -MateScore + ply
	}
	if !inCheck {
		moves = noisyMoves(w.pos, moves)
	}
	scores := scoreMoves(w.pos, moves, chess.NoMove)

	bestMove := chess.NoMove
	for i := range moves {
		PickMove(moves, scores, i)
		move := moves[i]

		undo := w.pos.Apply(move)
		w.history = append(w.history, w.pos.Fingerprint())
		score := -w.quiescence(ply+1, -beta, -alpha)
		w.history = w.history[:len(w.history)-1]
		undo()

		if w.stopped() {
			return 0
		}
		if score > bestScore {
			bestScore, bestMove = score, move
			alpha = max(alpha, score)
		}
		if alpha >= beta {
			break
		}
	}

	w.store(f, depth, ply, bestScore, origAlpha, beta, staticEval, bestMove)
	return bestScore
}

// store records a search result with the bound implied by the window.
func (w *Worker) store(f uint64, depth, ply, score, alpha, beta, staticEval int, move chess.Move) {
	kind := hash.Exact
	switch {
	case score <= alpha:
		kind = hash.UpperBound
		move = chess.NoMove
	case score >= beta:
		kind = hash.LowerBound
	}
	w.tt.Store(f, depth, w.age, kind, int16(AdjustScoreToTT(score, ply)),
		int16(staticEval), 0, chess.Pack(move))
}

// storeEval keeps a freshly computed static evaluation when nothing better
// is known about the position.
func (w *Worker) storeEval(f uint64, kind hash.Kind, staticEval int) {
	if kind != hash.NotFound {
		return
	}
	w.tt.Store(f, hash.QSearchNoCheckDepth, w.age, hash.StaticEvalOnly, 0,
		int16(staticEval), 0, hash.NoMove)
}
