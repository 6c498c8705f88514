package classify

import (
	"fmt"
	"strings"

	"github.com/sortdeck/sortdeck/pkg/models"
)

const maxPromptFieldChars = 2000

// buildEmergentPrompt asks the model to invent 1-3 initial categories for a
// bucket-less plan and assign every idea to exactly one of them.
func buildEmergentPrompt(ideas []models.Idea, planContext string) string {
	var sb strings.Builder

	sb.WriteString("You are organizing a shared planning board. The board has no categories yet.\n")
	sb.WriteString("Group the following ideas into 1-3 semantic categories.\n\n")

	if planContext != "" {
		sb.WriteString("Board context: ")
		sb.WriteString(truncate(planContext, maxPromptFieldChars))
		sb.WriteString("\n\n")
	}

	sb.WriteString("Ideas (1-based):\n")
	writeIdeaList(&sb, ideas)

	sb.WriteString("\nRules:\n")
	sb.WriteString("- Propose between 1 and 3 categories.\n")
	sb.WriteString("- Assign every idea to exactly one category by its 1-based index.\n")
	sb.WriteString("- Give each category a short title, a one-sentence description, and a hex accent color.\n\n")
	sb.WriteString("Respond with ONLY a JSON object, no prose:\n")
	sb.WriteString(`{"buckets":[{"title":"...","description":"...","color":"#RRGGBB","idea_indices":[1,2]}]}`)

	return sb.String()
}

// buildNewBucketPrompt asks for exactly one new category for an idea that
// matched none of the existing buckets.
func buildNewBucketPrompt(idea *models.Idea, rejected []models.ScoredBucket) string {
	var sb strings.Builder

	sb.WriteString("A new idea on a shared planning board fits none of the existing categories.\n\n")
	sb.WriteString("Idea: ")
	sb.WriteString(truncate(idea.Title, maxPromptFieldChars))
	if idea.Description != "" {
		sb.WriteString(" — ")
		sb.WriteString(truncate(idea.Description, maxPromptFieldChars))
	}
	sb.WriteString("\n\n")

	if len(rejected) > 0 {
		sb.WriteString("Existing categories (already judged too dissimilar):\n")
		for _, sc := range rejected {
			sb.WriteString("- ")
			sb.WriteString(sc.Bucket.Title)
			if sc.Bucket.Description != "" {
				sb.WriteString(": ")
				sb.WriteString(truncate(sc.Bucket.Description, 200))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Propose exactly one NEW category, distinct from the existing ones, that this idea belongs to.\n")
	sb.WriteString("Respond with ONLY a JSON object, no prose:\n")
	sb.WriteString(`{"title":"...","description":"...","color":"#RRGGBB"}`)

	return sb.String()
}

// buildTieBreakPrompt asks the model to select among near-equal buckets.
// Similarity scores are shown for context.
func buildTieBreakPrompt(idea *models.Idea, tied []models.ScoredBucket) string {
	var sb strings.Builder

	sb.WriteString("Several categories on a planning board match a new idea almost equally well.\n\n")
	sb.WriteString("Idea: ")
	sb.WriteString(truncate(idea.Title, maxPromptFieldChars))
	if idea.Description != "" {
		sb.WriteString(" — ")
		sb.WriteString(truncate(idea.Description, maxPromptFieldChars))
	}
	sb.WriteString("\n\nCandidates (1-based, with similarity):\n")
	for i, sc := range tied {
		sb.WriteString(fmt.Sprintf("%d. %s (similarity %.3f)", i+1, sc.Bucket.Title, sc.Similarity))
		if sc.Bucket.Description != "" {
			sb.WriteString(" — ")
			sb.WriteString(truncate(sc.Bucket.Description, 200))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\nPick the single best category for the idea.\n")
	sb.WriteString("Respond with ONLY a JSON object, no prose:\n")
	sb.WriteString(`{"choice": 1}`)

	return sb.String()
}

// buildFullClassifyPrompt is the single-shot "assign existing or create new"
// prompt used when similarity routing is unavailable.
func buildFullClassifyPrompt(idea *models.Idea, buckets []models.Bucket) string {
	var sb strings.Builder

	sb.WriteString("Classify a new idea on a shared planning board.\n\n")
	sb.WriteString("Idea: ")
	sb.WriteString(truncate(idea.Title, maxPromptFieldChars))
	if idea.Description != "" {
		sb.WriteString(" — ")
		sb.WriteString(truncate(idea.Description, maxPromptFieldChars))
	}
	sb.WriteString("\n\n")

	if len(buckets) > 0 {
		sb.WriteString("Existing categories (1-based):\n")
		for i, b := range buckets {
			sb.WriteString(fmt.Sprintf("%d. %s", i+1, b.Title))
			if b.Description != "" {
				sb.WriteString(" — ")
				sb.WriteString(truncate(b.Description, 200))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\nEither assign the idea to one existing category, or create a new one if none fits.\n")
	} else {
		sb.WriteString("The board has no categories yet; create one for this idea.\n")
	}

	sb.WriteString("Respond with ONLY a JSON object, no prose. One of:\n")
	sb.WriteString(`{"action":"assign","index":1,"confidence":80}`)
	sb.WriteString("\n")
	sb.WriteString(`{"action":"create","title":"...","description":"...","color":"#RRGGBB","confidence":80}`)

	return sb.String()
}

func writeIdeaList(sb *strings.Builder, ideas []models.Idea) {
	for i, idea := range ideas {
		sb.WriteString(fmt.Sprintf("%d. %s", i+1, truncate(idea.Title, maxPromptFieldChars)))
		if idea.Description != "" {
			sb.WriteString(" — ")
			sb.WriteString(truncate(idea.Description, maxPromptFieldChars))
		}
		sb.WriteString("\n")
	}
}

// truncate limits a string to maxLen characters with an ellipsis.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
