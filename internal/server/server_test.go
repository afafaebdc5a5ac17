// internal/server/server_test.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "opportunity-engine/internal/common/errors"
	"opportunity-engine/internal/common/logger"
	"opportunity-engine/internal/models"
)

type fakePipeline struct {
	rows     []models.EnrichedOpportunity
	summary  *models.Summary
	pitch    *models.Pitch
	err      error
	lastKind models.OpportunityKind
	lastTopN int
	lastUser string
	sendArgs []string
}

func (f *fakePipeline) ListOpportunities(_ context.Context, userID string, kind models.OpportunityKind, topN int, _ models.Filters) ([]models.EnrichedOpportunity, error) {
	f.lastUser, f.lastKind, f.lastTopN = userID, kind, topN
	return f.rows, f.err
}

func (f *fakePipeline) ListChurnRisk(_ context.Context, userID string, topN int, _ models.Filters) ([]models.EnrichedOpportunity, error) {
	f.lastUser, f.lastTopN = userID, topN
	return f.rows, f.err
}

func (f *fakePipeline) Summarize(_ context.Context, userID string) (*models.Summary, error) {
	f.lastUser = userID
	return f.summary, f.err
}

func (f *fakePipeline) PersonalizedPitch(_ context.Context, accountID, productID string) (*models.Pitch, error) {
	f.sendArgs = []string{accountID, productID}
	return f.pitch, f.err
}

func (f *fakePipeline) SendPitch(_ context.Context, accountID, productID, recipient string) (*models.Pitch, error) {
	f.sendArgs = []string{accountID, productID, recipient}
	return f.pitch, f.err
}

type fakeChat struct {
	reply string
}

func (f *fakeChat) Respond(_ context.Context, _, _ string, _ []models.ChatTurn) string {
	return f.reply
}

func newTestServer(p *fakePipeline, c ChatResponder) *httptest.Server {
	if c == nil {
		c = &fakeChat{}
	}
	s := New(p, c, nil, logger.NewNoOpLogger())
	return httptest.NewServer(s.Handler())
}

func decodeBody(t *testing.T, resp *http.Response, into interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

func TestOpportunitiesEndpoint(t *testing.T) {
	fp := &fakePipeline{rows: []models.EnrichedOpportunity{{
		Account:     "Acme Corp",
		Product:     "Analytics Suite",
		Score:       0.92,
		Kind:        models.KindCrossSell,
		Segment:     "Enterprise",
		Territory:   "EMEA",
		Explanation: "Strong expansion signals.",
		NextAction:  "Offer a bundled trial.",
	}}}
	ts := newTestServer(fp, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/opportunities?user_id=rep-1&opportunity_type=cross_sell&top_n=3")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	var body []map[string]interface{}
	decodeBody(t, resp, &body)
	require.Len(t, body, 1)
	assert.Equal(t, "Acme Corp", body[0]["account"])
	assert.Equal(t, "Analytics Suite", body[0]["product"])
	assert.Equal(t, "cross_sell", body[0]["opportunity_type"])
	assert.Equal(t, "Strong expansion signals.", body[0]["explanation"])
	assert.Equal(t, "Offer a bundled trial.", body[0]["next_action"])

	assert.Equal(t, "rep-1", fp.lastUser)
	assert.Equal(t, models.KindCrossSell, fp.lastKind)
	assert.Equal(t, 3, fp.lastTopN)
}

func TestOpportunitiesValidation(t *testing.T) {
	fp := &fakePipeline{}
	ts := newTestServer(fp, nil)
	defer ts.Close()

	cases := []string{
		"/api/opportunities?opportunity_type=cross_sell",
		"/api/opportunities?user_id=rep-1",
		"/api/opportunities?user_id=rep-1&opportunity_type=churn_risk",
		"/api/opportunities?user_id=rep-1&opportunity_type=cross_sell&top_n=three",
	}
	for _, path := range cases {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}
}

func TestOpportunitiesNotFound(t *testing.T) {
	fp := &fakePipeline{err: apperrors.NewNotFoundError("No opportunities found.")}
	ts := newTestServer(fp, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/opportunities?user_id=rep-1&opportunity_type=upsell")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "No opportunities found.", body["detail"])
}

func TestOpportunitiesOutOfRangeTopN(t *testing.T) {
	fp := &fakePipeline{err: apperrors.NewInvalidParameterError("top_n must be between 1 and 20, got 21")}
	ts := newTestServer(fp, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/opportunities?user_id=rep-1&opportunity_type=cross_sell&top_n=21")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Contains(t, body["detail"], "top_n")
}

func TestOpportunitiesStoreUnavailable(t *testing.T) {
	fp := &fakePipeline{err: apperrors.NewStoreUnavailableError(errors.New("connection refused"))}
	ts := newTestServer(fp, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/opportunities?user_id=rep-1&opportunity_type=cross_sell")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestChurnRiskEndpointDefaultsTopN(t *testing.T) {
	fp := &fakePipeline{rows: []models.EnrichedOpportunity{{Account: "Initech", Kind: models.KindChurnRisk}}}
	ts := newTestServer(fp, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/churn_risk?user_id=rep-1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, defaultTopN, fp.lastTopN)
}

func TestSummaryEndpoint(t *testing.T) {
	fp := &fakePipeline{summary: &models.Summary{
		TopOpportunities: []models.EnrichedOpportunity{{Account: "Acme Corp"}},
		TopRisks:         []models.EnrichedOpportunity{},
	}}
	ts := newTestServer(fp, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/summary?user_id=rep-1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]json.RawMessage
	decodeBody(t, resp, &body)
	assert.Contains(t, body, "top_opportunities")
	assert.Contains(t, body, "top_risks")
	assert.Equal(t, "[]", string(body["top_risks"]))
}

func TestPitchEndpoint(t *testing.T) {
	fp := &fakePipeline{pitch: &models.Pitch{Account: "Acme Corp", Product: "Analytics Suite", Pitch: "A tailored pitch."}}
	ts := newTestServer(fp, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/pitch?account_id=ACC-1&product_id=PRD-9")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "Acme Corp", body["account"])
	assert.Equal(t, "A tailored pitch.", body["pitch"])
	assert.Equal(t, []string{"ACC-1", "PRD-9"}, fp.sendArgs)
}

func TestPitchEndpointNotFound(t *testing.T) {
	fp := &fakePipeline{err: apperrors.NewNotFoundError("Account/Product not found.")}
	ts := newTestServer(fp, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/pitch?account_id=ACC-404&product_id=PRD-404")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "Account/Product not found.", body["detail"])
}

func TestPitchSendEndpoint(t *testing.T) {
	fp := &fakePipeline{pitch: &models.Pitch{Account: "Acme Corp", Product: "Analytics Suite", Pitch: "A tailored pitch."}}
	ts := newTestServer(fp, nil)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/pitch/send", "application/json",
		strings.NewReader(`{"account_id": "ACC-1", "product_id": "PRD-9", "recipient": "rep@example.com"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	decodeBody(t, resp, &body)
	assert.Equal(t, "sent", body["status"])
	assert.Equal(t, "rep@example.com", body["recipient"])
	assert.Equal(t, []string{"ACC-1", "PRD-9", "rep@example.com"}, fp.sendArgs)
}

func TestPitchSendEndpointValidation(t *testing.T) {
	ts := newTestServer(&fakePipeline{}, nil)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/pitch/send", "application/json",
		strings.NewReader(`{"account_id": "ACC-1"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatEndpoint(t *testing.T) {
	ts := newTestServer(&fakePipeline{}, &fakeChat{reply: "Top Opportunities:\n• Acme Corp"})
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/chat", "application/json",
		strings.NewReader(`{"message": "summary please", "user_id": "rep-1", "history": []}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "Top Opportunities:\n• Acme Corp", body["response"])
}

func TestChatEndpointValidation(t *testing.T) {
	ts := newTestServer(&fakePipeline{}, nil)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/chat", "application/json", strings.NewReader(`{"user_id": "rep-1"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/api/chat", "application/json", strings.NewReader("not json"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(&fakePipeline{}, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}
