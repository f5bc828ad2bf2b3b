// Package score computes the heuristic baseline and fuses all signals into a final score.
package score

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/ppiankov/veritas/internal/model"
)

const (
	baseline          = 50
	suspiciousPenalty = 15
	credibleBonus     = 10
	shortTextPenalty  = 5
	plainTextBonus    = 5
	shortTextRunes    = 20
	domainWeight      = 40
	capsPenalty       = 20
	capsMinRunes      = 10
	capsRatio         = 0.5
)

// SuspiciousKeywords are clickbait and scam markers
var SuspiciousKeywords = []string{
	"shocking", "miracle", "secret", "banned", "unbelievable",
	"100%", "guaranteed", "free", "winner", "risk-free",
	"urgent", "act now", "limited time", "exposed", "conspiracy",
}

// CredibleKeywords are markers of sourced reporting
var CredibleKeywords = []string{
	"official", "report", "study", "research", "according to",
	"statement", "announced", "confirmed", "evidence", "sources",
	"data", "analysis", "expert", "government", "police",
}

// Scorer runs the lexical, domain and formatting checks
type Scorer struct {
	domains    *DomainClassifier
	suspicious []string
	credible   []string
}

// NewScorer builds a scorer for the configured domain lists
func NewScorer(cfg model.HeuristicConfig) *Scorer {
	trusted, suspicious := cfg.TrustedDomains, cfg.SuspiciousDomains
	if len(trusted) == 0 {
		trusted = model.DefaultTrustedDomains
	}
	if len(suspicious) == 0 {
		suspicious = model.DefaultSuspiciousDomains
	}

	return &Scorer{
		domains:    NewDomainClassifier(trusted, suspicious),
		suspicious: foldAll(SuspiciousKeywords),
		credible:   foldAll(CredibleKeywords),
	}
}

// Score scores text. URL-typed or scheme-prefixed text also gets the domain check.
func (s *Scorer) Score(text string, t model.ContentType) model.HeuristicResult {
	return s.ScoreSource(text, t, "")
}

// ScoreSource is Score with an explicit source URL. When content has been
// replaced by a page summary, sourceURL carries the link the domain check needs.
func (s *Scorer) ScoreSource(text string, t model.ContentType, sourceURL string) model.HeuristicResult {
	score := baseline
	var reasons []string

	// a Caser holds state, so each call gets its own
	folded := cases.Fold().String(text)
	negative := countPresent(folded, s.suspicious)
	positive := countPresent(folded, s.credible)

	if negative > 0 {
		score -= negative * suspiciousPenalty
		reasons = append(reasons, fmt.Sprintf("Detected %d suspicious keywords.", negative))
	}
	if positive > 0 {
		score += positive * credibleBonus
		reasons = append(reasons, fmt.Sprintf("Detected %d credible keywords.", positive))
	}

	length := utf8.RuneCountInString(text)
	if negative == 0 && positive == 0 {
		if length < shortTextRunes {
			score -= shortTextPenalty
			reasons = append(reasons, "Text too short to verify reliable sources.")
		} else {
			score += plainTextBonus
		}
	}

	domainDelta := 0
	target := sourceURL
	if target == "" && model.IsURLInput(text, t) {
		target = strings.TrimSpace(text)
	}
	if target != "" {
		delta, reason := s.domainCheck(target)
		domainDelta = delta
		score += delta
		reasons = append(reasons, reason)
	}

	if length > capsMinRunes && float64(countUpperASCII(text))/float64(length) > capsRatio {
		score -= capsPenalty
		reasons = append(reasons, "Excessive use of capital letters.")
	}

	return model.HeuristicResult{
		Score:       clamp(score),
		Reasons:     reasons,
		DomainDelta: domainDelta,
	}
}

func (s *Scorer) domainCheck(rawURL string) (int, string) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Hostname() == "" {
		return 0, "Invalid URL format."
	}
	domain := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")

	switch s.domains.Classify(domain) {
	case DomainTrusted:
		return domainWeight, "Trusted domain detected: " + domain
	case DomainSuspicious:
		return -domainWeight, "Suspicious domain detected: " + domain
	default:
		return 0, fmt.Sprintf("Domain %s not in verified list.", domain)
	}
}

func foldAll(words []string) []string {
	fold := cases.Fold()
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = fold.String(w)
	}
	return out
}

// countPresent counts distinct lexicon entries found in text, not occurrences
func countPresent(text string, lexicon []string) int {
	n := 0
	for _, w := range lexicon {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}

func countUpperASCII(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			n++
		}
	}
	return n
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
