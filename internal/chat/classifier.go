// internal/chat/classifier.go
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	apperrors "opportunity-engine/internal/common/errors"
	"opportunity-engine/internal/common/logger"
	"opportunity-engine/internal/genai"
	"opportunity-engine/internal/models"
)

const classifySystemPrompt = `You are a helpful sales and customer success assistant.
Given a user message, classify which of the following intents it matches, and extract any relevant parameters:
- top_opportunities (cross_sell, upsell, prospect)
- churn_risk
- summary
- personalized_pitch

Extract parameters such as product, account, segment, territory, top_n, etc.

Return a JSON object like:
{
  "intent": "top_opportunities",
  "opportunity_type": "cross_sell",
  "product": "Product X",
  "segment": "healthcare",
  "top_n": 5,
  "account": null
}
If the user asks for a personalized pitch, set intent to "personalized_pitch" and extract account and product.
If the user asks for churn risk, set intent to "churn_risk".
If the user asks for a summary, set intent to "summary".`

// intentSchema pins the classifier reply shape. Anything outside it is
// treated as a malformed reply, never trusted.
const intentSchema = `{
	"type": "object",
	"required": ["intent"],
	"properties": {
		"intent": {"type": "string"},
		"opportunity_type": {"type": ["string", "null"]},
		"product": {"type": ["string", "null"]},
		"account": {"type": ["string", "null"]},
		"segment": {"type": ["string", "null"]},
		"territory": {"type": ["string", "null"]},
		"top_n": {"type": ["integer", "null"]}
	}
}`

type rawIntent struct {
	Intent          string `json:"intent"`
	OpportunityType string `json:"opportunity_type"`
	Product         string `json:"product"`
	Account         string `json:"account"`
	Segment         string `json:"segment"`
	Territory       string `json:"territory"`
	TopN            int    `json:"top_n"`
}

type ClassifierConfig struct {
	// MaxHistoryTurns caps how much conversation is replayed per classify.
	MaxHistoryTurns int
	// MaxTokens bounds the classifier reply.
	MaxTokens int
}

// Classifier turns a free-form chat message into a structured Intent using a
// temperature-0 completion validated against a fixed schema.
type Classifier struct {
	config    *ClassifierConfig
	completer genai.Completer
	schema    *gojsonschema.Schema
	logger    logger.Logger
}

func NewClassifier(config *ClassifierConfig, completer genai.Completer, log logger.Logger) (*Classifier, error) {
	if config.MaxHistoryTurns < 1 {
		config.MaxHistoryTurns = 10
	}
	if config.MaxTokens < 1 {
		config.MaxTokens = 300
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(intentSchema))
	if err != nil {
		return nil, fmt.Errorf("compiling intent schema: %w", err)
	}
	return &Classifier{
		config:    config,
		completer: completer,
		schema:    schema,
		logger:    log.WithFields(map[string]interface{}{"component": "classifier"}),
	}, nil
}

// Classify extracts the intent behind message. A reply that is not valid
// JSON, or fails schema validation, yields IntentUnknown alongside a
// MALFORMED_INTENT error so the caller can account for it; an unrecognized
// intent value yields IntentUnknown with no error.
func (c *Classifier) Classify(ctx context.Context, message string, history []models.ChatTurn) (models.Intent, error) {
	unknown := models.Intent{Kind: models.IntentUnknown}

	text, err := c.completer.Complete(ctx, genai.CompletionRequest{
		Prompt:      c.buildPrompt(message, history),
		MaxTokens:   c.config.MaxTokens,
		Temperature: 0,
	})
	if err != nil {
		return unknown, apperrors.NewMalformedIntentError(err)
	}

	var payload interface{}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		c.logger.Warn("classifier reply is not JSON", map[string]interface{}{"error": err.Error()})
		return unknown, apperrors.NewMalformedIntentError(err)
	}

	result, err := c.schema.Validate(gojsonschema.NewGoLoader(payload))
	if err != nil {
		return unknown, apperrors.NewMalformedIntentError(err)
	}
	if !result.Valid() {
		c.logger.Warn("classifier reply failed schema validation", map[string]interface{}{
			"violations": len(result.Errors()),
		})
		return unknown, apperrors.NewMalformedIntentError(fmt.Errorf("intent schema: %s", result.Errors()[0]))
	}

	var raw rawIntent
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return unknown, apperrors.NewMalformedIntentError(err)
	}

	return models.Intent{
		Kind:            models.NormalizeIntentKind(raw.Intent),
		OpportunityType: raw.OpportunityType,
		Product:         raw.Product,
		Account:         raw.Account,
		Segment:         raw.Segment,
		Territory:       raw.Territory,
		TopN:            raw.TopN,
	}, nil
}

// buildPrompt flattens the system prompt, recent history and the user
// message into one completion prompt.
func (c *Classifier) buildPrompt(message string, history []models.ChatTurn) string {
	var b strings.Builder
	b.WriteString(classifySystemPrompt)
	b.WriteString("\n\n")

	if len(history) > c.config.MaxHistoryTurns {
		history = history[len(history)-c.config.MaxHistoryTurns:]
	}
	for _, turn := range history {
		if turn.Role != "user" && turn.Role != "assistant" {
			continue
		}
		b.WriteString(turn.Role)
		b.WriteString(": ")
		b.WriteString(turn.Text)
		b.WriteString("\n")
	}

	b.WriteString("User message: ")
	b.WriteString(message)
	return b.String()
}
