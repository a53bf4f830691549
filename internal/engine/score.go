package engine

import "math"

// Default scoring bounds; overridable through Config.
const (
	DefaultBaseScore = 500
	DefaultMaxScore  = 1000
)

// Score maps correctness and response time to points. Wrong answers earn
// nothing; correct answers decay linearly from max down to base as the
// response time approaches the question time limit. Pure and deterministic
// so finalization can recompute totals from the ledger.
func Score(correct bool, timeTakenMs, timeLimitMs float64, base, max int) int {
	if !correct || timeLimitMs <= 0 {
		return 0
	}
	if timeTakenMs < 0 {
		timeTakenMs = 0
	}
	if timeTakenMs > timeLimitMs {
		timeTakenMs = timeLimitMs
	}
	remaining := 1 - timeTakenMs/timeLimitMs
	return base + int(math.Round(float64(max-base)*remaining))
}
