package workout

import (
	"math"

	"github.com/claude/setlog/internal/models"
)

// ratio returns done/total for sets, or 0 for an empty list.
func ratio(sets []models.WorkoutSet) float64 {
	done, total := countDone(sets)
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total)
}

func countDone(sets []models.WorkoutSet) (done, total int) {
	for _, s := range sets {
		if s.Done {
			done++
		}
	}
	return done, len(sets)
}

// percent rounds 100*done/total to the nearest integer, 0 when total is 0.
func percent(done, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(done) / float64(total)))
}
