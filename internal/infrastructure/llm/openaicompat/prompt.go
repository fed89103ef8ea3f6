package openaicompat

import (
	"fmt"
	"strings"
)

const (
	minPromptTags = 2
	maxPromptTags = 5
)

// buildTaggingPrompt renders the instruction sent to the model. Output depends only on
// its inputs; name and description are embedded verbatim.
func buildTaggingPrompt(name, description string, allowedTags []string) string {
	return fmt.Sprintf(`You are a grant classification system. Given a grant name and description, pick the most relevant tags from the list below.

Available tags: %s

Grant Name: %s
Grant Description: %s

Instructions:
- Select between %d and %d of the most relevant tags
- Use only tags from the available tags list, spelled exactly as listed
- Return ONLY the tags as a comma-separated list
- Do not add explanations or any other text

Tags:`, strings.Join(allowedTags, ", "), name, description, minPromptTags, maxPromptTags)
}
