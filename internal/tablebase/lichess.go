package tablebase

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hailam/chesshash/internal/chess"
)

// DefaultLichessURL is the public Lichess tablebase endpoint.
const DefaultLichessURL = "https://tablebase.lichess.ovh/standard"

// LichessProber uses the Lichess tablebase API for online lookups.
// This requires network access and has rate limits.
type LichessProber struct {
	client    *http.Client
	baseURL   string
	maxPieces int
}

// NewLichessProber creates a new Lichess-based tablebase prober.
func NewLichessProber() *LichessProber {
	return NewLichessProberURL(DefaultLichessURL)
}

// NewLichessProberURL creates a prober against a compatible endpoint.
func NewLichessProberURL(baseURL string) *LichessProber {
	return &LichessProber{
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		baseURL:   baseURL,
		maxPieces: 7, // Lichess supports up to 7-piece tablebases
	}
}

// Lichess API response structure
type lichessResponse struct {
	Category string `json:"category"` // "win", "draw", "maybe-win", "maybe-draw", "loss"
	DTZ      int    `json:"dtz"`
	Moves    []struct {
		UCI      string `json:"uci"`
		Category string `json:"category"`
		DTZ      int    `json:"dtz"`
	} `json:"moves"`
}

func (lp *LichessProber) query(pos *chess.Position) (*lichessResponse, error) {
	fen := strings.ReplaceAll(pos.FEN(), " ", "_")
	resp, err := lp.client.Get(lp.baseURL + "?fen=" + url.QueryEscape(fen))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lichess tablebase: %s", resp.Status)
	}
	var result lichessResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("lichess tablebase: decode: %w", err)
	}
	return &result, nil
}

func (lp *LichessProber) Probe(pos *chess.Position) ProbeResult {
	if CountPieces(pos) > lp.maxPieces {
		return ProbeResult{}
	}
	result, err := lp.query(pos)
	if err != nil {
		log.Debug().Err(err).Msg("tablebase probe failed")
		return ProbeResult{}
	}
	return ProbeResult{
		Found: true,
		WDL:   categoryToWDL(result.Category),
		DTZ:   result.DTZ,
	}
}

func (lp *LichessProber) ProbeRoot(pos *chess.Position) RootResult {
	if CountPieces(pos) > lp.maxPieces {
		return RootResult{}
	}
	result, err := lp.query(pos)
	if err != nil {
		log.Debug().Err(err).Msg("tablebase root probe failed")
		return RootResult{}
	}
	if len(result.Moves) == 0 {
		return RootResult{}
	}

	// Moves are listed best first, from the opponent's point of view.
	best := result.Moves[0]
	move, err := pos.ParseMove(best.UCI)
	if err != nil {
		return RootResult{}
	}
	return RootResult{
		Found: true,
		Move:  move,
		WDL:   -categoryToWDL(best.Category),
		DTZ:   best.DTZ,
	}
}

func (lp *LichessProber) MaxPieces() int {
	return lp.maxPieces
}

func (lp *LichessProber) Available() bool {
	return true // Always available if network is up
}

func categoryToWDL(category string) WDL {
	switch category {
	case "win":
		return WDLWin
	case "cursed-win", "maybe-win":
		return WDLCursedWin
	case "blessed-loss", "maybe-loss":
		return WDLBlessedLoss
	case "loss":
		return WDLLoss
	default:
		return WDLDraw
	}
}
