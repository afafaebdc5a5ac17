// internal/server/server.go
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"opportunity-engine/internal/common/logger"
	"opportunity-engine/internal/models"
)

// Pipeline is the slice of the recommendation pipeline the HTTP surface
// exposes.
type Pipeline interface {
	ListOpportunities(ctx context.Context, userID string, kind models.OpportunityKind, topN int, filters models.Filters) ([]models.EnrichedOpportunity, error)
	ListChurnRisk(ctx context.Context, userID string, topN int, filters models.Filters) ([]models.EnrichedOpportunity, error)
	Summarize(ctx context.Context, userID string) (*models.Summary, error)
	PersonalizedPitch(ctx context.Context, accountID, productID string) (*models.Pitch, error)
	SendPitch(ctx context.Context, accountID, productID, recipient string) (*models.Pitch, error)
}

// ChatResponder handles one conversational turn.
type ChatResponder interface {
	Respond(ctx context.Context, userID, message string, history []models.ChatTurn) string
}

// RequestRecorder receives per-request observability signals.
type RequestRecorder interface {
	RecordRequest(ctx context.Context, operation, status string)
	RecordDuration(ctx context.Context, operation string, duration time.Duration)
}

// Server is the HTTP adapter over the pipeline and the chat router.
type Server struct {
	pipeline Pipeline
	chat     ChatResponder
	obs      RequestRecorder
	logger   logger.Logger
}

// New creates a Server. obs may be nil, which disables otel request metrics.
func New(pipeline Pipeline, chat ChatResponder, obs RequestRecorder, log logger.Logger) *Server {
	return &Server{
		pipeline: pipeline,
		chat:     chat,
		obs:      obs,
		logger:   log.WithFields(map[string]interface{}{"component": "http"}),
	}
}

// Handler builds the route tree. All API routes live under /api; /metrics
// and /healthz sit outside it.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(s.loggingMiddleware)

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/opportunities", s.handleOpportunities)
		r.Get("/churn_risk", s.handleChurnRisk)
		r.Get("/summary", s.handleSummary)
		r.Get("/pitch", s.handlePitch)
		r.Post("/pitch/send", s.handlePitchSend)
		r.Post("/chat", s.handleChat)
	})

	return r
}
