// internal/chat/router.go
package chat

import (
	"context"

	apperrors "opportunity-engine/internal/common/errors"
	"opportunity-engine/internal/common/logger"
	"opportunity-engine/internal/common/metrics"
	"opportunity-engine/internal/models"
)

const (
	defaultChatTopN = 5

	replyUnknown         = "Sorry, I couldn't understand your request."
	replyNoOpportunities = "No opportunities found for your query."
	replyNoChurnRisk     = "No churn risk accounts found for your query."
	replyNoSummary       = "No summary available."
	replyNoPitch         = "No pitch could be generated for your query."
	replyInternal        = "Sorry, something went wrong processing your request. Please try again."
)

// Recommender is the slice of the pipeline the router dispatches to.
type Recommender interface {
	ListOpportunities(ctx context.Context, userID string, kind models.OpportunityKind, topN int, filters models.Filters) ([]models.EnrichedOpportunity, error)
	ListChurnRisk(ctx context.Context, userID string, topN int, filters models.Filters) ([]models.EnrichedOpportunity, error)
	Summarize(ctx context.Context, userID string) (*models.Summary, error)
	PersonalizedPitch(ctx context.Context, accountID, productID string) (*models.Pitch, error)
}

// IntentClassifier is what the router needs from the classifier.
type IntentClassifier interface {
	Classify(ctx context.Context, message string, history []models.ChatTurn) (models.Intent, error)
}

// Router classifies a chat message and dispatches it to the pipeline,
// rendering the result as conversational text. It always answers with text;
// failures map to fixed user-facing strings.
type Router struct {
	classifier IntentClassifier
	pipeline   Recommender
	logger     logger.Logger
}

func NewRouter(classifier IntentClassifier, pipeline Recommender, log logger.Logger) *Router {
	return &Router{
		classifier: classifier,
		pipeline:   pipeline,
		logger:     log.WithFields(map[string]interface{}{"component": "chat_router"}),
	}
}

// Respond handles one chat turn end to end.
func (r *Router) Respond(ctx context.Context, userID, message string, history []models.ChatTurn) string {
	intent, err := r.classifier.Classify(ctx, message, history)
	if err != nil {
		r.logger.Warn("intent classification failed", map[string]interface{}{"error": err.Error()})
	}

	metrics.IntentsClassified.WithLabelValues(string(intent.Kind)).Inc()

	switch intent.Kind {
	case models.IntentTopOpportunities:
		return r.respondOpportunities(ctx, userID, intent)
	case models.IntentChurnRisk:
		return r.respondChurnRisk(ctx, userID, intent)
	case models.IntentSummary:
		return r.respondSummary(ctx, userID)
	case models.IntentPersonalizedPitch:
		return r.respondPitch(ctx, intent)
	default:
		return replyUnknown
	}
}

func (r *Router) respondOpportunities(ctx context.Context, userID string, intent models.Intent) string {
	kind, ok := models.ParseOpportunityKind(intent.OpportunityType)
	if !ok || !kind.IsRecommendation() {
		kind = models.KindCrossSell
	}

	rows, err := r.pipeline.ListOpportunities(ctx, userID, kind, clampTopN(intent.TopN), models.Filters{
		ProductID: intent.Product,
		Segment:   intent.Segment,
		Territory: intent.Territory,
		AccountID: intent.Account,
	})
	if apperrors.IsNotFound(err) {
		return replyNoOpportunities
	}
	if err != nil {
		r.logger.Error("opportunity dispatch failed", map[string]interface{}{"error": err.Error()})
		return replyInternal
	}
	return formatRows(rows, true)
}

func (r *Router) respondChurnRisk(ctx context.Context, userID string, intent models.Intent) string {
	rows, err := r.pipeline.ListChurnRisk(ctx, userID, clampTopN(intent.TopN), models.Filters{
		Segment:   intent.Segment,
		Territory: intent.Territory,
	})
	if apperrors.IsNotFound(err) {
		return replyNoChurnRisk
	}
	if err != nil {
		r.logger.Error("churn risk dispatch failed", map[string]interface{}{"error": err.Error()})
		return replyInternal
	}
	return formatRows(rows, false)
}

func (r *Router) respondSummary(ctx context.Context, userID string) string {
	summary, err := r.pipeline.Summarize(ctx, userID)
	if err != nil {
		r.logger.Error("summary dispatch failed", map[string]interface{}{"error": err.Error()})
		return replyInternal
	}
	if len(summary.TopOpportunities) == 0 && len(summary.TopRisks) == 0 {
		return replyNoSummary
	}
	return formatSummary(summary)
}

func (r *Router) respondPitch(ctx context.Context, intent models.Intent) string {
	if intent.Account == "" || intent.Product == "" {
		return replyNoPitch
	}
	pitch, err := r.pipeline.PersonalizedPitch(ctx, intent.Account, intent.Product)
	if apperrors.IsNotFound(err) {
		return replyNoPitch
	}
	if err != nil {
		r.logger.Error("pitch dispatch failed", map[string]interface{}{"error": err.Error()})
		return replyInternal
	}
	return pitch.Pitch
}

// clampTopN folds untrusted classifier output into the valid range instead
// of rejecting it; a chat user never sees a parameter error.
func clampTopN(topN int) int {
	if topN < 1 {
		return defaultChatTopN
	}
	if topN > 20 {
		return 20
	}
	return topN
}
