package model

import "strings"

// Claim is a third-party fact-check verdict on a specific assertion
type Claim struct {
	Claimant  string `json:"claimant,omitempty" bson:"claimant,omitempty"`
	Text      string `json:"text" bson:"text"`
	Rating    string `json:"rating" bson:"rating"`
	ReviewURL string `json:"reviewUrl,omitempty" bson:"reviewUrl,omitempty"`
	Publisher string `json:"publisher,omitempty" bson:"publisher,omitempty"`
}

// ClaimRating is the classification of the top matched claim
type ClaimRating string

const (
	RatingNone     ClaimRating = "none"     // No claim matched
	RatingNegative ClaimRating = "negative" // Rated false/fake
	RatingPositive ClaimRating = "positive" // Rated true/correct
	RatingNeutral  ClaimRating = "neutral"  // Anything else
)

// ClassifyRating maps a textual rating onto a ClaimRating.
// Negative markers are checked first.
func ClassifyRating(rating string) ClaimRating {
	r := strings.ToLower(rating)
	switch {
	case strings.Contains(r, "false") || strings.Contains(r, "fake"):
		return RatingNegative
	case strings.Contains(r, "true") || strings.Contains(r, "correct"):
		return RatingPositive
	default:
		return RatingNeutral
	}
}

// ClassifyClaims inspects only the first claim
func ClassifyClaims(claims []Claim) ClaimRating {
	if len(claims) == 0 {
		return RatingNone
	}
	return ClassifyRating(claims[0].Rating)
}
