package board

// rankStep is the spacing between ranks for appended or renumbered tasks.
const rankStep = 1024.0

// rankBetween returns a rank strictly between lo and hi. A missing bound leaves that side
// open. ok is false when no representable rank fits, which happens after enough repeated
// bisection of the same gap or when neighbours share a rank.
func rankBetween(lo, hi float64, hasLo, hasHi bool) (float64, bool) {
	switch {
	case !hasLo && !hasHi:
		return rankStep, true
	case !hasLo:
		r := hi - rankStep
		return r, r < hi
	case !hasHi:
		r := lo + rankStep
		return r, r > lo
	default:
		r := lo + (hi-lo)/2
		return r, r > lo && r < hi
	}
}
