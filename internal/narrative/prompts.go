// internal/narrative/prompts.go
package narrative

import (
	"fmt"
	"strings"

	"opportunity-engine/internal/models"
)

// FormatContributions renders the contribution list as "name (+/-value)"
// joined by commas, two decimal places with explicit sign.
func FormatContributions(contributions []models.FeatureContribution) string {
	parts := make([]string, 0, len(contributions))
	for _, c := range contributions {
		parts = append(parts, fmt.Sprintf("%s (%+.2f)", c.FeatureName, c.Weight))
	}
	return strings.Join(parts, ", ")
}

func kindLabel(kind models.OpportunityKind) string {
	return strings.ReplaceAll(string(kind), "_", " ")
}

func buildExplainPrompt(accountName, productName string, kind models.OpportunityKind, contributions []models.FeatureContribution, contextText string) string {
	return fmt.Sprintf(`Given the following:
- Account: %s
- Product: %s
- Opportunity type: %s
- Top features driving the score: %s
- Business context: %s

Generate a concise, business-friendly explanation of why this account is a good %s opportunity for this product.`,
		accountName, productName, kind, FormatContributions(contributions), contextText, kindLabel(kind))
}

func buildNextActionPrompt(contributions []models.FeatureContribution, contextText string, kind models.OpportunityKind) string {
	return fmt.Sprintf(`Given the following:
- Opportunity type: %s
- Top features: %s
- Business context: %s

Suggest the next best sales action for the sales rep to take with this account and product. Be specific and actionable.`,
		kind, FormatContributions(contributions), contextText)
}

func buildPitchPrompt(accountName, productName, contextText string) string {
	return fmt.Sprintf(`Given the following:
- Account: %s
- Product: %s
- Business context: %s

Generate a personalized sales pitch email for this account and product. Make it relevant, concise, and actionable.`,
		accountName, productName, contextText)
}
