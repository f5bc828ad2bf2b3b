package model

import (
	"errors"
	"testing"
)

func TestCategoryFor(t *testing.T) {
	tests := []struct {
		score int
		want  Category
	}{
		{0, CategoryFake},
		{39, CategoryFake},
		{40, CategoryDoubtful},
		{69, CategoryDoubtful},
		{70, CategoryReal},
		{100, CategoryReal},
	}

	for _, tt := range tests {
		if got := CategoryFor(tt.score); got != tt.want {
			t.Errorf("CategoryFor(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestVotes_CommunityScore(t *testing.T) {
	if s := (Votes{}).CommunityScore(); s != nil {
		t.Fatalf("expected nil community score with no votes, got %d", *s)
	}

	tests := []struct {
		up, down, want int
	}{
		{1, 0, 100},
		{0, 1, 0},
		{1, 1, 50},
		{2, 1, 67},
		{1, 2, 33},
		{1, 7, 13}, // 12.5 rounds half up
	}
	for _, tt := range tests {
		got := Votes{Up: tt.up, Down: tt.down}.CommunityScore()
		if got == nil || *got != tt.want {
			t.Errorf("CommunityScore(%d up, %d down) = %v, want %d", tt.up, tt.down, got, tt.want)
		}
	}
}

func TestClassifyRating(t *testing.T) {
	tests := []struct {
		rating string
		want   ClaimRating
	}{
		{"False", RatingNegative},
		{"FAKE news", RatingNegative},
		{"Mostly False", RatingNegative},
		{"True", RatingPositive},
		{"Correct", RatingPositive},
		{"Misleading", RatingNeutral},
		{"", RatingNeutral},
	}
	for _, tt := range tests {
		if got := ClassifyRating(tt.rating); got != tt.want {
			t.Errorf("ClassifyRating(%q) = %s, want %s", tt.rating, got, tt.want)
		}
	}

	if got := ClassifyClaims(nil); got != RatingNone {
		t.Errorf("expected none for empty claims, got %s", got)
	}
	claims := []Claim{{Rating: "True"}, {Rating: "False"}}
	if got := ClassifyClaims(claims); got != RatingPositive {
		t.Errorf("expected only the first claim to count, got %s", got)
	}
}

func TestParseContentType(t *testing.T) {
	if ct, err := ParseContentType(""); err != nil || ct != TypeText {
		t.Errorf("empty type should default to text, got %q, %v", ct, err)
	}
	if ct, err := ParseContentType("URL"); err != nil || ct != TypeURL {
		t.Errorf("expected url, got %q, %v", ct, err)
	}
	if _, err := ParseContentType("video"); !errors.Is(err, ErrInput) {
		t.Errorf("expected ErrInput for unknown type, got %v", err)
	}
}

func TestAnalysisRequest_Validate(t *testing.T) {
	if err := (AnalysisRequest{Content: "   "}).Validate(); !errors.Is(err, ErrInput) {
		t.Errorf("expected ErrInput for blank content, got %v", err)
	}
	if err := (AnalysisRequest{Content: "x", Type: TypeImage}).Validate(); !errors.Is(err, ErrInput) {
		t.Errorf("expected ErrInput for image on text path, got %v", err)
	}
	if err := (AnalysisRequest{Content: "hello", Type: TypeText}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLooksLikeURL(t *testing.T) {
	if !LooksLikeURL("HTTPS://example.com") {
		t.Error("expected scheme match to be case-insensitive")
	}
	if LooksLikeURL("example.com") {
		t.Error("bare host should not count as URL")
	}
	if !IsURLInput("example.com", TypeURL) {
		t.Error("declared url type should count as URL input")
	}
}

func TestDegradedVerdict(t *testing.T) {
	v := DegradedVerdict("boom")
	if v.TrustScore != 0 || !v.Degraded || v.Summary == "" || v.Bias != DegradedBias {
		t.Errorf("unexpected degraded verdict: %+v", v)
	}
	if v.Fallacies == nil {
		t.Error("fallacies should be an empty list, not nil")
	}
}
