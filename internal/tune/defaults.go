package tune

// Parameter indexes in the default set.
const (
	KnVsPawnAdjust0 = iota
	KnVsPawnAdjust1
	KnVsPawnAdjust2
	Castling0
	Castling1
	Castling2
	Castling3
	Castling4
	Castling5
	KingAttackScaleMax
	KingAttackScaleInflect
	KingAttackScaleFactor
	KingAttackScaleBias
	KingCover1
	KingCover2
	KingCover3
	KingCover4
	KingFileHalfOpen
	KingFileOpen
	KingCoverFileFactor0
	KingCoverFileFactor1
	KingCoverFileFactor2
	KingCoverFileFactor3
	KingCoverBase
	KingDistanceBasis
	KingDistanceMult
	PinMultiplierMid
	PinMultiplierEnd
	KRMinorVsR
	KRMinorVsRNoPawns
	KQMinorVsQ
	KQMinorVsQNoPawns
	MinorForPawns
	EndgamePawnAdvantage
	PawnEndgame1
	PawnEndgame2
	PawnAttackFactor1
	PawnAttackFactor2

	numDefaultParams
)

const kingCoverRange = PawnValue * 35 / 100

// Material level (0-31) to midgame weight out of 128.
var defaultMaterialScale = [32]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	4, 8, 12, 16, 22, 28, 34, 40,
	48, 56, 64, 72, 80, 88, 96, 104,
	112, 118, 122, 126, 128, 128, 128, 128,
}

var defaultParams = [numDefaultParams]Param{
	{KnVsPawnAdjust0, "kn_vs_pawn_adjust0", 0, -250, 250, Any, true},
	{KnVsPawnAdjust1, "kn_vs_pawn_adjust1", -2400, -3600, -1200, Any, true},
	{KnVsPawnAdjust2, "kn_vs_pawn_adjust2", -1500, -2000, -1000, Any, true},
	{Castling0, "castling0", 0, -100, 100, Midgame, true},
	{Castling1, "castling1", -70, -300, 0, Midgame, true},
	{Castling2, "castling2", -100, -300, 0, Midgame, true},
	{Castling3, "castling3", 280, 0, 500, Midgame, true},
	{Castling4, "castling4", 200, 0, 500, Midgame, true},
	{Castling5, "castling5", -280, -500, 0, Midgame, true},
	{KingAttackScaleMax, "king_attack_scale_max", 5000, 3500, 6500, Midgame, true},
	{KingAttackScaleInflect, "king_attack_scale_inflect", 85, 60, 120, Midgame, true},
	{KingAttackScaleFactor, "king_attack_scale_factor", 54, 33, 150, Midgame, true},
	{KingAttackScaleBias, "king_attack_scale_bias", -48, -200, 0, Any, false},
	{KingCover1, "king_cover1", 50, 0, kingCoverRange / 2, Midgame, true},
	{KingCover2, "king_cover2", -100, -2 * kingCoverRange / 3, 2 * kingCoverRange / 3, Midgame, true},
	{KingCover3, "king_cover3", -150, -kingCoverRange, 0, Midgame, true},
	{KingCover4, "king_cover4", -200, -kingCoverRange, 0, Midgame, true},
	{KingFileHalfOpen, "king_file_half_open", -200, -kingCoverRange, 0, Midgame, true},
	{KingFileOpen, "king_file_open", -285, -kingCoverRange, 0, Midgame, true},
	{KingCoverFileFactor0, "king_cover_file_factor0", 64, 48, 96, Midgame, true},
	{KingCoverFileFactor1, "king_cover_file_factor1", 64, 48, 96, Midgame, true},
	{KingCoverFileFactor2, "king_cover_file_factor2", 50, 32, 96, Midgame, true},
	{KingCoverFileFactor3, "king_cover_file_factor3", 40, 32, 96, Midgame, true},
	{KingCoverBase, "king_cover_base", -100, -kingCoverRange, 0, Midgame, false},
	{KingDistanceBasis, "king_distance_basis", 312, 200, 400, None, false},
	{KingDistanceMult, "king_distance_mult", 77, 40, 120, None, false},
	{PinMultiplierMid, "pin_multiplier_mid", 227, 0, 750, Midgame, true},
	{PinMultiplierEnd, "pin_multiplier_end", 289, 0, 750, Endgame, true},
	{KRMinorVsR, "krminor_vs_r", -100, -500, 0, Any, true},
	{KRMinorVsRNoPawns, "krminor_vs_r_no_pawns", -500, -2000, 0, Any, true},
	{KQMinorVsQ, "kqminor_vs_q", -100, -500, 0, Any, true},
	{KQMinorVsQNoPawns, "kqminor_vs_q_no_pawns", -500, -3000, 0, Any, true},
	{MinorForPawns, "minor_for_pawns", 500, 0, 750, Any, true},
	{EndgamePawnAdvantage, "endgame_pawn_advantage", 31, 0, 250, Any, true},
	{PawnEndgame1, "pawn_endgame1", 75, 0, 500, Any, true},
	{PawnEndgame2, "pawn_endgame2", 125, 0, 500, Any, true},
	{PawnAttackFactor1, "pawn_attack_factor1", 14, 0, 20, Midgame, true},
	{PawnAttackFactor2, "pawn_attack_factor2", 14, 0, 20, Midgame, true},
}

// Defaults returns a fresh copy of the built-in parameter set.
func Defaults() *Set {
	return NewSet(defaultParams[:])
}
