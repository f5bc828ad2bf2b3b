package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/veritas/internal/model"
)

const noCitationsNote = "No specific search results found. Rely on your internal knowledge base and look for logical inconsistencies or typical patterns of misinformation."

// BuildTextPrompt renders the deep-analysis prompt for a piece of content
func BuildTextPrompt(content string, citations []model.Citation, now time.Time) string {
	var ctxBlock string
	if len(citations) > 0 {
		var b strings.Builder
		b.WriteString("Here are some relevant search results to assist your verification:\n")
		for i, c := range citations {
			fmt.Fprintf(&b, "%d. Source: %s\n   Title: %s\n   Snippet: %s\n", i+1, c.Source, c.Title, c.Snippet)
		}
		b.WriteString("Use these results to cross-reference the claim.")
		ctxBlock = b.String()
	} else {
		ctxBlock = noCitationsNote
	}

	return fmt.Sprintf(`You are an expert fact-checker and media literacy analyst.
Current Date: %s

%s

Analyze the following news content:
"%s"

Step 1: Analyze the claim. Is it sensationalist? Does it lack sources? Is it a known hoax format?
Step 2: Compare with Search Results. Do reputable sources confirm it? Do they debunk it?
Step 3: Determine the verdict.

Provide a JSON response with the following fields:
1. "reasoning": A 2-3 sentence explanation of your thought process. Why did you choose the score?
2. "fallacies": A list of logical fallacies or manipulative tactics used (e.g., Ad Hominem, Straw Man, Fear Mongering, False Context).
3. "bias": The political or emotional bias (e.g., Left-leaning, Right-leaning, Neutral, Sensationalist).
4. "trustScore": A score from 0 (Fake) to 100 (Verified).
   - 0-20: Definitely Fake / Hoax
   - 21-50: Misleading / Unverified / Missing Context
   - 51-80: Mostly True but with some inaccuracies
   - 81-100: Verified / True
5. "summary": A brief one-sentence final verification summary.

IMPORTANT:
- Be SKEPTICAL. If a sensational claim has no verifying search results, the trustScore should be LOW (< 40).
- "Viral" does not mean true.
- Pay attention to the Current Date. Old videos reposted as new are "False Context".

Format the output strictly as valid JSON.`, now.Format("1/2/2006"), ctxBlock, content)
}

// ImagePrompt asks for a forensic read of an attached image
const ImagePrompt = `You are an expert forensic image analyst.
Analyze this image for signs of AI generation or deepfake manipulation.
Look for:
- Asymmetrical features (eyes, teeth, hands)
- Unnatural textures (smooth plastic skin, blurred backgrounds)
- Glitched text or nonsense patterns
- Lighting inconsistencies

Respond with valid JSON:
{
  "isAiGenerated": boolean,
  "confidence": number (0-100),
  "summary": "Short explanation of your findings",
  "fallacies": ["List visual anomalies found", "e.g. Extra fingers"],
  "trustScore": number (0 = Definitely Fake, 100 = Real Photo)
}`

// BuildQueryPrompt asks for a single English search query for content
func BuildQueryPrompt(content string) string {
	return fmt.Sprintf(`You are a search engine optimization expert for a fact checking system.
Convert the following user input (which might be in Hindi, Hinglish, or any other language) into the single best ENGLISH Google Search query to verify the claim.

Rules:
1. Keep it concise (5-15 words).
2. Identify the core CLAIM or EVENT.
3. Add keywords like "fact check", "fake news", "verification", "hoax", "official report".
4. Remove conversational filler ("kya ye sach hai", "is this true").
5. Return ONLY the search query string, no quotes.

User Input: "%s"`, content)
}
