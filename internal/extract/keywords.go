package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// MaxKeywords is the number of tokens kept by Keywords
const MaxKeywords = 6

// keeps ASCII word characters, whitespace and Devanagari
var nonKeywordChars = regexp.MustCompile(`[^\w\s\x{0900}-\x{097F}]`)

// English filler plus common transliterated Hindi words found in forwarded messages
var stopwords = buildStopwords([]string{
	"is", "the", "a", "an", "in", "on", "of", "for", "to", "and", "or", "but",
	"with", "by", "from", "at",
	"se", "ka", "ki", "ke", "ko", "par", "mein", "hai", "hain", "aur", "kya",
	"kyun", "kise",
	"fake", "news", "check", "PM", "CM", "sir", "payment", "karne", "wala",
	"wali", "dena", "pe", "ho", "gaya", "raha",
})

func buildStopwords(words []string) map[string]struct{} {
	fold := cases.Fold()
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[fold.String(w)] = struct{}{}
	}
	return set
}

// Keywords reduces free text to a short search query: punctuation is dropped,
// stopwords and tokens of two runes or fewer are removed, and the first
// MaxKeywords tokens are joined with spaces.
func Keywords(text string) string {
	cleaned := nonKeywordChars.ReplaceAllString(text, "")
	fold := cases.Fold()

	var kept []string
	for _, tok := range strings.Fields(cleaned) {
		if len([]rune(tok)) <= 2 {
			continue
		}
		if _, stop := stopwords[fold.String(tok)]; stop {
			continue
		}
		kept = append(kept, tok)
		if len(kept) == MaxKeywords {
			break
		}
	}
	return strings.Join(kept, " ")
}
