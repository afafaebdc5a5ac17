// internal/chat/format.go
package chat

import (
	"fmt"
	"strings"

	"opportunity-engine/internal/models"
)

// formatRows renders enriched rows as a bulleted conversational reply, one
// line per row in pipeline order.
func formatRows(rows []models.EnrichedOpportunity, withNextAction bool) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		line := fmt.Sprintf("• %s (%s, Score: %.2f): %s", row.Account, row.Product, row.Score, row.Explanation)
		if withNextAction && row.NextAction != "" {
			line += fmt.Sprintf(" [Next: %s]", row.NextAction)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func formatSummary(summary *models.Summary) string {
	lines := []string{"Top Opportunities:"}
	for _, row := range summary.TopOpportunities {
		lines = append(lines, fmt.Sprintf("• %s (%s, Score: %.2f): %s", row.Account, row.Product, row.Score, row.Explanation))
	}
	lines = append(lines, "Top Risks:")
	for _, row := range summary.TopRisks {
		lines = append(lines, fmt.Sprintf("• %s (%s, Score: %.2f): %s", row.Account, row.Product, row.Score, row.Explanation))
	}
	return strings.Join(lines, "\n")
}
