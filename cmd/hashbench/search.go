package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hailam/chesshash/internal/chess"
	"github.com/hailam/chesshash/internal/engine"
)

func searchCmd(args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	hashMB := fs.Int("hash", 64, "table size in MB")
	threads := fs.Int("threads", 1, "search threads")
	depth := fs.Int("depth", 8, "search depth")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fen := chess.StartFEN
	if fs.NArg() > 0 {
		fen = strings.Join(fs.Args(), " ")
	}
	pos, err := chess.FromFEN(fen)
	if err != nil {
		return err
	}

	eng := engine.NewEngine(*hashMB)
	eng.SetThreads(*threads)
	eng.OnInfo = func(info engine.SearchInfo) {
		fmt.Printf("depth %2d  %8s  %12s nodes  hashfull %4d\n",
			info.Depth, engine.ScoreToString(info.Score), humanize.Comma(int64(info.Nodes)), info.HashFull)
	}

	start := time.Now()
	res := eng.Search(context.Background(), pos, nil, engine.UCILimits{Depth: *depth})
	elapsed := time.Since(start)

	pv := make([]string, len(res.PV))
	for i, m := range res.PV {
		pv[i] = chess.MoveString(m)
	}
	row("best move", good(chess.MoveString(res.Move)))
	row("score", engine.ScoreToString(res.Score))
	row("pv", strings.Join(pv, " "))
	row("nodes", humanize.Comma(int64(res.Nodes)))
	row("nps", humanize.SIWithDigits(float64(res.Nodes)/elapsed.Seconds(), 2, "n/s"))
	row("table", eng.Table().Stats())
	return nil
}
