// internal/server/handlers.go
package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"opportunity-engine/internal/models"
)

const defaultTopN = 5

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /api/opportunities?user_id=&opportunity_type=&top_n=&product_id=&segment=&territory=&account_id=
func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	userID := q.Get("user_id")
	if userID == "" {
		writeDetail(w, http.StatusBadRequest, "user_id is required")
		return
	}

	kind, ok := models.ParseOpportunityKind(q.Get("opportunity_type"))
	if !ok || !kind.IsRecommendation() {
		writeDetail(w, http.StatusBadRequest, "opportunity_type must be one of cross_sell, upsell, prospect")
		return
	}

	topN, err := parseTopN(q.Get("top_n"))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "top_n must be an integer")
		return
	}

	rows, err := s.pipeline.ListOpportunities(r.Context(), userID, kind, topN, models.Filters{
		ProductID: q.Get("product_id"),
		Segment:   q.Get("segment"),
		Territory: q.Get("territory"),
		AccountID: q.Get("account_id"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// GET /api/churn_risk?user_id=&top_n=&segment=&territory=
func (s *Server) handleChurnRisk(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	userID := q.Get("user_id")
	if userID == "" {
		writeDetail(w, http.StatusBadRequest, "user_id is required")
		return
	}

	topN, err := parseTopN(q.Get("top_n"))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "top_n must be an integer")
		return
	}

	rows, err := s.pipeline.ListChurnRisk(r.Context(), userID, topN, models.Filters{
		Segment:   q.Get("segment"),
		Territory: q.Get("territory"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// GET /api/summary?user_id=
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeDetail(w, http.StatusBadRequest, "user_id is required")
		return
	}

	summary, err := s.pipeline.Summarize(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GET /api/pitch?account_id=&product_id=
func (s *Server) handlePitch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	accountID, productID := q.Get("account_id"), q.Get("product_id")
	if accountID == "" || productID == "" {
		writeDetail(w, http.StatusBadRequest, "account_id and product_id are required")
		return
	}

	pitch, err := s.pipeline.PersonalizedPitch(r.Context(), accountID, productID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pitch)
}

type pitchSendRequest struct {
	AccountID string `json:"account_id"`
	ProductID string `json:"product_id"`
	Recipient string `json:"recipient"`
}

// POST /api/pitch/send {account_id, product_id, recipient}
func (s *Server) handlePitchSend(w http.ResponseWriter, r *http.Request) {
	var req pitchSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AccountID == "" || req.ProductID == "" || req.Recipient == "" {
		writeDetail(w, http.StatusBadRequest, "account_id, product_id and recipient are required")
		return
	}

	pitch, err := s.pipeline.SendPitch(r.Context(), req.AccountID, req.ProductID, req.Recipient)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account":   pitch.Account,
		"product":   pitch.Product,
		"pitch":     pitch.Pitch,
		"recipient": req.Recipient,
		"status":    "sent",
	})
}

type chatRequest struct {
	Message string            `json:"message"`
	UserID  string            `json:"user_id"`
	History []models.ChatTurn `json:"history"`
}

// POST /api/chat {message, user_id, history} → {response}. Chat always
// answers 200 with text.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" || req.UserID == "" {
		writeDetail(w, http.StatusBadRequest, "message and user_id are required")
		return
	}

	reply := s.chat.Respond(r.Context(), req.UserID, req.Message, req.History)
	writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}

func parseTopN(raw string) (int, error) {
	if raw == "" {
		return defaultTopN, nil
	}
	return strconv.Atoi(raw)
}
