// internal/narrative/generator.go
package narrative

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "opportunity-engine/internal/common/errors"
	"opportunity-engine/internal/common/logger"
	"opportunity-engine/internal/common/metrics"
	"opportunity-engine/internal/genai"
	"opportunity-engine/internal/models"
)

// Placeholders substituted by callers when generation fails. The request
// still succeeds with degraded narrative.
const (
	PlaceholderExplanation = "explanation unavailable"
	PlaceholderNextAction  = "next action unavailable"
	PlaceholderPitch       = "pitch unavailable"
)

type Config struct {
	ExplainMaxTokens    int
	NextActionMaxTokens int
	PitchMaxTokens      int
	Temperature         float64
	CacheTTL            time.Duration
}

// Generator produces explanation, next-action and pitch text through the
// text-generation collaborator, with an optional redis cache in front.
type Generator struct {
	config    *Config
	completer genai.Completer
	cache     *redis.Client
	logger    logger.Logger
}

// New creates a Generator. cache may be nil, which disables caching.
func New(config *Config, completer genai.Completer, cache *redis.Client, log logger.Logger) *Generator {
	if config.ExplainMaxTokens == 0 {
		config.ExplainMaxTokens = 100
	}
	if config.NextActionMaxTokens == 0 {
		config.NextActionMaxTokens = 60
	}
	if config.PitchMaxTokens == 0 {
		config.PitchMaxTokens = 120
	}
	if config.Temperature == 0 {
		config.Temperature = 0.7
	}
	return &Generator{
		config:    config,
		completer: completer,
		cache:     cache,
		logger:    log.WithFields(map[string]interface{}{"component": "narrative"}),
	}
}

// Explain generates a business-friendly explanation of why the account is a
// good opportunity for the product.
func (g *Generator) Explain(ctx context.Context, accountName, productName string, kind models.OpportunityKind, contributions []models.FeatureContribution, contextText string) (string, error) {
	prompt := buildExplainPrompt(accountName, productName, kind, contributions, contextText)
	return g.generate(ctx, "explain", prompt, g.config.ExplainMaxTokens)
}

// NextAction suggests the next best sales action for the row.
func (g *Generator) NextAction(ctx context.Context, contributions []models.FeatureContribution, contextText string, kind models.OpportunityKind) (string, error) {
	prompt := buildNextActionPrompt(contributions, contextText, kind)
	return g.generate(ctx, "next_action", prompt, g.config.NextActionMaxTokens)
}

// Pitch generates a personalized sales pitch email body.
func (g *Generator) Pitch(ctx context.Context, accountName, productName, contextText string) (string, error) {
	prompt := buildPitchPrompt(accountName, productName, contextText)
	return g.generate(ctx, "pitch", prompt, g.config.PitchMaxTokens)
}

func (g *Generator) generate(ctx context.Context, useCase, prompt string, maxTokens int) (string, error) {
	cacheKey := cacheKeyFor(useCase, prompt)

	if g.cache != nil {
		if cached, err := g.cache.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			return cached, nil
		}
	}

	start := time.Now()
	text, err := g.completer.Complete(ctx, genai.CompletionRequest{
		Prompt:      prompt,
		MaxTokens:   maxTokens,
		Temperature: g.config.Temperature,
	})
	metrics.GenerationLatency.WithLabelValues(useCase).Observe(time.Since(start).Seconds())

	if err != nil {
		g.logger.Warn("narrative generation failed", map[string]interface{}{
			"useCase": useCase,
			"error":   err.Error(),
		})
		return "", apperrors.NewNarrativeUnavailableError(err)
	}

	if g.cache != nil {
		// Cache errors are treated as a miss on the next request.
		if err := g.cache.Set(ctx, cacheKey, text, g.config.CacheTTL).Err(); err != nil {
			g.logger.Debug("narrative cache write failed", map[string]interface{}{
				"useCase": useCase,
				"error":   err.Error(),
			})
		}
	}

	return text, nil
}

func cacheKeyFor(useCase, prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return fmt.Sprintf("narrative:%s:%x", useCase, sum[:16])
}
