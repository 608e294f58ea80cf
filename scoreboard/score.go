package scoreboard

import (
	"math"

	"github.com/shopspring/decimal"
)

// TotalScore sums the points and penalties of all problems of one user.
func TotalScore(problems map[string]ProblemScore) Score {
	total := Score{}
	for _, p := range problems {
		total.Points += p.Points
		total.Penalty += p.Penalty
	}
	return total
}

// roundInt rounds half away from zero.
func roundInt(x float64) float64 {
	return math.Round(x)
}

func round2(x float64) decimal.Decimal {
	return decimal.NewFromFloat(x).Round(2)
}

func tableScore(run *Run) ProblemScore {
	if run == nil {
		return ProblemScore{}
	}
	return ProblemScore{
		Points:  roundInt(run.ContestScore),
		Penalty: roundInt(float64(run.SubmitDelay)),
	}
}
