// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"opportunity-engine/internal/common/aws"
	apperrors "opportunity-engine/internal/common/errors"
	"opportunity-engine/internal/common/logger"
	"opportunity-engine/internal/common/metrics"
	"opportunity-engine/internal/models"
	"opportunity-engine/internal/store"
)

const (
	summaryTopOpportunities = 3
	summaryTopRisks         = 2

	minTopN = 1
	maxTopN = 20
)

// RecordStore is the slice of the record store the pipeline consumes.
type RecordStore interface {
	FetchOpportunities(ctx context.Context, userID string, kind models.OpportunityKind, topN int, filters models.Filters) ([]models.ScoredEntity, error)
	FetchTopContributions(ctx context.Context, accountID, productID string) ([]models.FeatureContribution, error)
	FetchBusinessContext(ctx context.Context, accountID, productID string) (string, error)
	FetchNamePair(ctx context.Context, accountID, productID string) (string, string, error)
}

// Narrator generates natural-language text for enriched rows.
type Narrator interface {
	Explain(ctx context.Context, accountName, productName string, kind models.OpportunityKind, contributions []models.FeatureContribution, contextText string) (string, error)
	NextAction(ctx context.Context, contributions []models.FeatureContribution, contextText string, kind models.OpportunityKind) (string, error)
	Pitch(ctx context.Context, accountName, productName, contextText string) (string, error)
}

// ChurnAlertPublisher forwards high-severity churn rows to an alert topic.
type ChurnAlertPublisher interface {
	PublishChurnAlert(ctx context.Context, alert aws.ChurnAlert) error
}

// PitchMailer delivers generated pitch text by email.
type PitchMailer interface {
	SendPitch(ctx context.Context, recipient, subject, body string) error
}

type Config struct {
	// Concurrency caps the per-request enrichment fan-out.
	Concurrency int
	// RequestTimeout is the end-to-end deadline for one request.
	RequestTimeout time.Duration
	// ChurnAlertThreshold is the minimum score that triggers an alert.
	ChurnAlertThreshold float64
}

// Pipeline orchestrates query, enrichment and narrative generation for one
// request. All state is request-scoped; the store and generation clients are
// shared, stateless-per-call resources.
type Pipeline struct {
	config   *Config
	store    RecordStore
	narrator Narrator
	alerts   ChurnAlertPublisher
	mailer   PitchMailer
	logger   logger.Logger
}

// New creates a Pipeline. alerts and mailer may be nil, which disables churn
// alerting and pitch delivery respectively.
func New(config *Config, recordStore RecordStore, narrator Narrator, alerts ChurnAlertPublisher, mailer PitchMailer, log logger.Logger) *Pipeline {
	if config.Concurrency < 1 {
		config.Concurrency = 5
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 30 * time.Second
	}
	return &Pipeline{
		config:   config,
		store:    recordStore,
		narrator: narrator,
		alerts:   alerts,
		mailer:   mailer,
		logger:   log.WithFields(map[string]interface{}{"component": "pipeline"}),
	}
}

// ListOpportunities returns enriched opportunities for the user, ordered by
// score descending. Zero matching rows is a signaled NotFound condition.
func (p *Pipeline) ListOpportunities(ctx context.Context, userID string, kind models.OpportunityKind, topN int, filters models.Filters) ([]models.EnrichedOpportunity, error) {
	if !kind.IsRecommendation() {
		return nil, apperrors.NewInvalidParameterError(fmt.Sprintf("unsupported opportunity_type: %s", kind))
	}
	if err := validateTopN(topN); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.RequestTimeout)
	defer cancel()

	defer observeDuration("list_opportunities")()

	rows, err := p.store.FetchOpportunities(ctx, userID, kind, topN, filters)
	if err != nil {
		return nil, apperrors.NewStoreUnavailableError(err)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewNotFoundError("No opportunities found.")
	}

	return p.enrichAll(ctx, rows, true), nil
}

// ListChurnRisk returns enriched churn-risk rows for the user. Next-action
// text is not defined for risk rows.
func (p *Pipeline) ListChurnRisk(ctx context.Context, userID string, topN int, filters models.Filters) ([]models.EnrichedOpportunity, error) {
	if err := validateTopN(topN); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.RequestTimeout)
	defer cancel()

	defer observeDuration("list_churn_risk")()

	rows, err := p.store.FetchOpportunities(ctx, userID, models.KindChurnRisk, topN, filters)
	if err != nil {
		return nil, apperrors.NewStoreUnavailableError(err)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewNotFoundError("No churn risk accounts found.")
	}

	enriched := p.enrichAll(ctx, rows, false)
	p.publishChurnAlerts(ctx, enriched)
	return enriched, nil
}

// Summarize returns the user's top opportunities and top risks. Both lists
// are independently empty-tolerant; absence is never NotFound.
func (p *Pipeline) Summarize(ctx context.Context, userID string) (*models.Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.RequestTimeout)
	defer cancel()

	defer observeDuration("summarize")()

	opps, err := p.store.FetchOpportunities(ctx, userID, models.KindCrossSell, summaryTopOpportunities, models.Filters{})
	if err != nil {
		return nil, apperrors.NewStoreUnavailableError(err)
	}
	risks, err := p.store.FetchOpportunities(ctx, userID, models.KindChurnRisk, summaryTopRisks, models.Filters{})
	if err != nil {
		return nil, apperrors.NewStoreUnavailableError(err)
	}

	summary := &models.Summary{
		TopOpportunities: []models.EnrichedOpportunity{},
		TopRisks:         []models.EnrichedOpportunity{},
	}
	if len(opps) > 0 {
		summary.TopOpportunities = p.enrichAll(ctx, opps, false)
	}
	if len(risks) > 0 {
		summary.TopRisks = p.enrichAll(ctx, risks, false)
	}

	return summary, nil
}

// PersonalizedPitch generates a pitch for one (account, product) pair.
// NotFound signals that the pair does not exist in the score table.
func (p *Pipeline) PersonalizedPitch(ctx context.Context, accountID, productID string) (*models.Pitch, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.RequestTimeout)
	defer cancel()

	defer observeDuration("personalized_pitch")()

	accountName, productName, err := p.store.FetchNamePair(ctx, accountID, productID)
	if errors.Is(err, store.ErrNoMatch) {
		return nil, apperrors.NewNotFoundError("Account/Product not found.")
	}
	if err != nil {
		return nil, apperrors.NewStoreUnavailableError(err)
	}

	contextText, err := p.store.FetchBusinessContext(ctx, accountID, productID)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("context").Inc()
		p.logger.Warn("business context lookup failed", map[string]interface{}{
			"accountId": accountID,
			"productId": productID,
			"error":     err.Error(),
		})
		contextText = ""
	}

	pitchText, err := p.narrator.Pitch(ctx, accountName, productName, contextText)
	if err != nil {
		metrics.NarrativeFailures.WithLabelValues("pitch").Inc()
		pitchText = placeholderPitch
	}

	return &models.Pitch{
		Account: accountName,
		Product: productName,
		Pitch:   pitchText,
	}, nil
}

// SendPitch generates the pitch and delivers it to the recipient by email.
// Generation failures degrade to a placeholder like any other narrative; a
// delivery failure is an error.
func (p *Pipeline) SendPitch(ctx context.Context, accountID, productID, recipient string) (*models.Pitch, error) {
	if p.mailer == nil {
		return nil, apperrors.NewInvalidParameterError("pitch delivery is not configured")
	}

	pitch, err := p.PersonalizedPitch(ctx, accountID, productID)
	if err != nil {
		return nil, err
	}

	subject := fmt.Sprintf("Why %s is a fit for %s", pitch.Product, pitch.Account)
	if err := p.mailer.SendPitch(ctx, recipient, subject, pitch.Pitch); err != nil {
		return nil, fmt.Errorf("pitch delivery failed: %w", err)
	}

	return pitch, nil
}

func (p *Pipeline) publishChurnAlerts(ctx context.Context, rows []models.EnrichedOpportunity) {
	if p.alerts == nil {
		return
	}
	// Detached from the request deadline; alerting is best effort and must
	// not hold up or fail the response.
	alertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	for _, row := range rows {
		if row.Score < p.config.ChurnAlertThreshold {
			continue
		}
		err := p.alerts.PublishChurnAlert(alertCtx, aws.ChurnAlert{
			Account:   row.Account,
			Product:   row.Product,
			Score:     row.Score,
			Segment:   row.Segment,
			Territory: row.Territory,
		})
		if err != nil {
			p.logger.Warn("churn alert publish failed", map[string]interface{}{
				"account": row.Account,
				"error":   err.Error(),
			})
		}
	}
}

func validateTopN(topN int) error {
	if topN < minTopN || topN > maxTopN {
		return apperrors.NewInvalidParameterError(fmt.Sprintf("top_n must be between %d and %d, got %d", minTopN, maxTopN, topN))
	}
	return nil
}

func observeDuration(operation string) func() {
	start := time.Now()
	return func() {
		metrics.RequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
