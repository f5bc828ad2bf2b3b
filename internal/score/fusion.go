package score

import (
	"github.com/ppiankov/veritas/internal/model"
)

// Fusion adjustments
const (
	negativeClaimDelta = -40
	positiveClaimDelta = 30
	lowTrustDelta      = -30
	highTrustDelta     = 20
	lowTrustBelow      = 40
	highTrustAbove     = 80
)

// FusionInput carries every signal the fusion step combines
type FusionInput struct {
	Heuristic model.HeuristicResult
	Rating    model.ClaimRating
	// Verdict is nil when no generative analysis ran
	Verdict *model.Verdict
}

// FusionResult is the final score with its attribution
type FusionResult struct {
	FinalScore int
	Breakdown  model.ScoreBreakdown
	Category   model.Category
}

// Fuse combines the heuristic baseline with the claim rating and the model
// verdict. With model.ClampPerStep the running score is clamped after every
// adjustment; with model.ClampFinal the deltas are summed and clamped once.
func Fuse(in FusionInput, mode string) FusionResult {
	b := model.ScoreBreakdown{
		KeywordScore: in.Heuristic.Score,
		DomainScore:  in.Heuristic.DomainDelta,
	}

	switch in.Rating {
	case model.RatingNegative:
		b.APIScore = negativeClaimDelta
	case model.RatingPositive:
		b.APIScore = positiveClaimDelta
	}

	if in.Verdict != nil {
		switch {
		case in.Verdict.TrustScore < lowTrustBelow:
			b.AIScore = lowTrustDelta
		case in.Verdict.TrustScore > highTrustAbove:
			b.AIScore = highTrustDelta
		}
	}

	final := in.Heuristic.Score
	if mode == model.ClampFinal {
		final = clamp(final + b.APIScore + b.AIScore)
	} else {
		final = clamp(final)
		final = clamp(final + b.APIScore)
		final = clamp(final + b.AIScore)
	}

	return FusionResult{
		FinalScore: final,
		Breakdown:  b,
		Category:   model.CategoryFor(final),
	}
}
