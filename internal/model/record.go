package model

import (
	"fmt"
	"math"
	"time"
)

// Category is the coarse verdict derived from the final score
type Category string

const (
	CategoryReal     Category = "Real"
	CategoryDoubtful Category = "Doubtful"
	CategoryFake     Category = "Fake"
)

// CategoryFor is the only mapping from score to category
func CategoryFor(score int) Category {
	switch {
	case score >= 70:
		return CategoryReal
	case score < 40:
		return CategoryFake
	default:
		return CategoryDoubtful
	}
}

// Status is the moderation state of a record
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
)

// ParseStatus validates an admin-supplied status
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusVerified, StatusRejected:
		return Status(s), nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrInput, s)
	}
}

// VoteDirection is a community vote on a verdict
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"   // Agrees with the result
	VoteDown VoteDirection = "down" // Disagrees
)

// ParseVoteDirection validates a vote type
func ParseVoteDirection(s string) (VoteDirection, error) {
	switch VoteDirection(s) {
	case VoteUp, VoteDown:
		return VoteDirection(s), nil
	default:
		return "", fmt.Errorf("%w: vote type must be up or down, got %q", ErrInput, s)
	}
}

// Votes holds the community counters
type Votes struct {
	Up   int `json:"up" bson:"up"`
	Down int `json:"down" bson:"down"`
}

// CommunityScore returns round(100*up/(up+down)), or nil with no votes
func (v Votes) CommunityScore() *int {
	total := v.Up + v.Down
	if total == 0 {
		return nil
	}
	score := int(math.Floor(100*float64(v.Up)/float64(total) + 0.5))
	return &score
}

// ScoreBreakdown attributes the final score to its signals
type ScoreBreakdown struct {
	KeywordScore   int  `json:"keywordScore" bson:"keywordScore"`
	DomainScore    int  `json:"domainScore" bson:"domainScore"` // Included in KeywordScore
	APIScore       int  `json:"apiScore" bson:"apiScore"`
	AIScore        int  `json:"aiScore" bson:"aiScore"`
	CommunityScore *int `json:"communityScore" bson:"communityScore"`
}

// MediaInfo describes an uploaded image
type MediaInfo struct {
	MimeType   string    `json:"mimeType" bson:"mimeType"`
	SizeBytes  int64     `json:"sizeBytes" bson:"sizeBytes"`
	Format     string    `json:"format,omitempty" bson:"format,omitempty"`
	Width      int       `json:"width,omitempty" bson:"width,omitempty"`
	Height     int       `json:"height,omitempty" bson:"height,omitempty"`
	ArchiveKey string    `json:"archiveKey,omitempty" bson:"archiveKey,omitempty"`
	EXIF       *EXIFData `json:"exif,omitempty" bson:"exif,omitempty"`
}

// EXIFData is the subset of EXIF tags relevant to provenance
type EXIFData struct {
	Make     string `json:"make,omitempty" bson:"make,omitempty"`
	Model    string `json:"model,omitempty" bson:"model,omitempty"`
	Software string `json:"software,omitempty" bson:"software,omitempty"`
	DateTime string `json:"dateTime,omitempty" bson:"dateTime,omitempty"`
}

// AnalysisRecord is the persisted aggregate of one analysis call.
// After creation only Votes, Breakdown.CommunityScore and Status change.
type AnalysisRecord struct {
	ID               string         `json:"id" bson:"_id"`
	Content          string         `json:"content" bson:"content"`
	Type             ContentType    `json:"type" bson:"type"`
	Breakdown        ScoreBreakdown `json:"breakdown" bson:"breakdown"`
	FinalScore       int            `json:"finalScore" bson:"finalScore"`
	Category         Category       `json:"category" bson:"category"`
	Claims           []Claim        `json:"claims" bson:"claims"`
	Citations        []Citation     `json:"citations" bson:"citations"`
	Verdict          *Verdict       `json:"verdict" bson:"verdict"`
	HeuristicReasons []string       `json:"heuristicReasons" bson:"heuristicReasons"`
	Votes            Votes          `json:"votes" bson:"votes"`
	Status           Status         `json:"status" bson:"status"`
	CreatedAt        time.Time      `json:"createdAt" bson:"createdAt"`
	Media            *MediaInfo     `json:"media,omitempty" bson:"media,omitempty"`
}
