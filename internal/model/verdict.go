package model

// VerdictKind tags which generative contract produced a verdict
type VerdictKind string

const (
	VerdictText  VerdictKind = "text"
	VerdictImage VerdictKind = "image"
)

// Default values used when the generative chain cannot produce a verdict
const (
	DegradedBias    = "Unknown"
	DegradedSummary = "Unable to verify at this time."
)

// Verdict is the structured output of a generative deep analysis.
// Text verdicts carry Bias and Reasoning; image verdicts carry
// IsAIGenerated and Confidence.
type Verdict struct {
	Kind          VerdictKind `json:"kind" bson:"kind"`
	TrustScore    int         `json:"trustScore" bson:"trustScore"`
	Summary       string      `json:"summary" bson:"summary"`
	Fallacies     []string    `json:"fallacies" bson:"fallacies"`
	Bias          string      `json:"bias,omitempty" bson:"bias,omitempty"`
	Reasoning     string      `json:"reasoning,omitempty" bson:"reasoning,omitempty"`
	IsAIGenerated *bool       `json:"isAiGenerated,omitempty" bson:"isAiGenerated,omitempty"`
	Confidence    *int        `json:"confidence,omitempty" bson:"confidence,omitempty"`
	Model         string      `json:"model,omitempty" bson:"model,omitempty"`       // Candidate that answered
	Degraded      bool        `json:"degraded,omitempty" bson:"degraded,omitempty"` // Safe default, not a model answer
}

// DegradedVerdict is the documented default when every candidate failed
// or returned unparsable output
func DegradedVerdict(note string) Verdict {
	return Verdict{
		Kind:       VerdictText,
		TrustScore: 0,
		Bias:       DegradedBias,
		Fallacies:  []string{},
		Summary:    DegradedSummary,
		Reasoning:  "Analysis failed due to a technical error (" + note + ").",
		Degraded:   true,
	}
}
