// internal/pipeline/enrich.go
package pipeline

import (
	"context"
	"sync"

	"opportunity-engine/internal/common/metrics"
	"opportunity-engine/internal/models"
	"opportunity-engine/internal/narrative"
)

const (
	placeholderExplanation = narrative.PlaceholderExplanation
	placeholderNextAction  = narrative.PlaceholderNextAction
	placeholderPitch       = narrative.PlaceholderPitch
)

// enrichAll fans scored rows out to a bounded worker pool and collects the
// enriched results in the original order. Every input row produces exactly
// one output row; failures degrade that row to placeholder text instead of
// failing the batch.
func (p *Pipeline) enrichAll(ctx context.Context, rows []models.ScoredEntity, withNextAction bool) []models.EnrichedOpportunity {
	results := make([]models.EnrichedOpportunity, len(rows))

	workers := p.config.Concurrency
	if workers > len(rows) {
		workers = len(rows)
	}

	jobs := make(chan int, len(rows))
	for i := range rows {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = p.enrichRow(ctx, rows[i], withNextAction)
			}
		}()
	}
	wg.Wait()

	return results
}

// enrichRow fetches contributions and business context for one row, then
// generates its narrative text. A row whose request deadline has already
// passed is returned with placeholders without touching the store.
func (p *Pipeline) enrichRow(ctx context.Context, row models.ScoredEntity, withNextAction bool) models.EnrichedOpportunity {
	enriched := models.EnrichedOpportunity{
		Account:     row.AccountName,
		Product:     row.ProductName,
		Score:       row.Score,
		Kind:        row.Kind,
		Segment:     row.Segment,
		Territory:   row.Territory,
		TopFeatures: []models.FeatureContribution{},
		Explanation: placeholderExplanation,
	}
	if withNextAction {
		enriched.NextAction = placeholderNextAction
	}

	if ctx.Err() != nil {
		return enriched
	}

	var (
		contributions []models.FeatureContribution
		contextText   string
		wg            sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		fetched, err := p.store.FetchTopContributions(ctx, row.AccountID, row.ProductID)
		if err != nil {
			metrics.StoreErrors.WithLabelValues("contributions").Inc()
			p.logger.Warn("contribution lookup failed", map[string]interface{}{
				"accountId": row.AccountID,
				"productId": row.ProductID,
				"error":     err.Error(),
			})
			return
		}
		contributions = fetched
	}()
	go func() {
		defer wg.Done()
		fetched, err := p.store.FetchBusinessContext(ctx, row.AccountID, row.ProductID)
		if err != nil {
			metrics.StoreErrors.WithLabelValues("context").Inc()
			p.logger.Warn("business context lookup failed", map[string]interface{}{
				"accountId": row.AccountID,
				"productId": row.ProductID,
				"error":     err.Error(),
			})
			return
		}
		contextText = fetched
	}()
	wg.Wait()

	if contributions != nil {
		enriched.TopFeatures = contributions
	}
	enriched.Context = contextText

	explanation, err := p.narrator.Explain(ctx, row.AccountName, row.ProductName, row.Kind, enriched.TopFeatures, contextText)
	if err != nil {
		metrics.NarrativeFailures.WithLabelValues("explain").Inc()
		p.logger.Warn("explanation generation failed", map[string]interface{}{
			"account": row.AccountName,
			"product": row.ProductName,
			"error":   err.Error(),
		})
	} else {
		enriched.Explanation = explanation
	}

	if withNextAction {
		nextAction, err := p.narrator.NextAction(ctx, enriched.TopFeatures, contextText, row.Kind)
		if err != nil {
			metrics.NarrativeFailures.WithLabelValues("next_action").Inc()
			p.logger.Warn("next action generation failed", map[string]interface{}{
				"account": row.AccountName,
				"product": row.ProductName,
				"error":   err.Error(),
			})
		} else {
			enriched.NextAction = nextAction
		}
	}

	metrics.RowsEnriched.WithLabelValues(string(row.Kind)).Inc()
	return enriched
}
