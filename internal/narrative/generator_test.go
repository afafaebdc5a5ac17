// internal/narrative/generator_test.go
package narrative

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "opportunity-engine/internal/common/errors"
	"opportunity-engine/internal/common/logger"
	"opportunity-engine/internal/genai"
	"opportunity-engine/internal/models"
)

// fakeCompleter records requests and returns canned output.
type fakeCompleter struct {
	calls []genai.CompletionRequest
	text  string
	err   error
}

func (f *fakeCompleter) Complete(_ context.Context, req genai.CompletionRequest) (string, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

var testContributions = []models.FeatureContribution{
	{FeatureName: "usage_trend", Weight: 0.31},
	{FeatureName: "support_tickets", Weight: -0.12},
}

func TestFormatContributions(t *testing.T) {
	assert.Equal(t, "usage_trend (+0.31), support_tickets (-0.12)", FormatContributions(testContributions))
	assert.Equal(t, "", FormatContributions(nil))
}

func TestGenerator_Explain(t *testing.T) {
	completer := &fakeCompleter{text: "Acme Corp is a strong fit."}
	g := New(&Config{}, completer, nil, logger.NewTestLogger(t))

	text, err := g.Explain(context.Background(), "Acme Corp", "Widget Pro", models.KindCrossSell, testContributions, "renewed last quarter")

	assert.NoError(t, err)
	assert.Equal(t, "Acme Corp is a strong fit.", text)

	require.Len(t, completer.calls, 1)
	req := completer.calls[0]
	assert.Equal(t, 100, req.MaxTokens)
	assert.Equal(t, 0.7, req.Temperature)
	assert.Contains(t, req.Prompt, "Account: Acme Corp")
	assert.Contains(t, req.Prompt, "Product: Widget Pro")
	assert.Contains(t, req.Prompt, "usage_trend (+0.31), support_tickets (-0.12)")
	assert.Contains(t, req.Prompt, "Business context: renewed last quarter")
	assert.Contains(t, req.Prompt, "good cross sell opportunity")
}

func TestGenerator_NextAction(t *testing.T) {
	completer := &fakeCompleter{text: "Schedule a renewal call."}
	g := New(&Config{}, completer, nil, logger.NewTestLogger(t))

	text, err := g.NextAction(context.Background(), testContributions, "renewed last quarter", models.KindUpsell)

	assert.NoError(t, err)
	assert.Equal(t, "Schedule a renewal call.", text)

	require.Len(t, completer.calls, 1)
	assert.Equal(t, 60, completer.calls[0].MaxTokens)
	assert.Contains(t, completer.calls[0].Prompt, "next best sales action")
}

func TestGenerator_Pitch(t *testing.T) {
	completer := &fakeCompleter{text: "Dear Acme Corp, ..."}
	g := New(&Config{}, completer, nil, logger.NewTestLogger(t))

	text, err := g.Pitch(context.Background(), "Acme Corp", "Widget Pro", "renewed last quarter")

	assert.NoError(t, err)
	assert.Equal(t, "Dear Acme Corp, ...", text)

	require.Len(t, completer.calls, 1)
	assert.Equal(t, 120, completer.calls[0].MaxTokens)
	assert.Contains(t, completer.calls[0].Prompt, "personalized sales pitch email")
}

func TestGenerator_CollaboratorFailure(t *testing.T) {
	completer := &fakeCompleter{err: genai.ErrRateLimited}
	g := New(&Config{}, completer, nil, logger.NewTestLogger(t))

	_, err := g.Explain(context.Background(), "Acme Corp", "Widget Pro", models.KindCrossSell, nil, "")

	assert.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNarrativeUnavailable))
}

func TestGenerator_CacheHitSkipsGeneration(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	completer := &fakeCompleter{text: "generated once"}
	g := New(&Config{CacheTTL: time.Minute}, completer, cache, logger.NewTestLogger(t))

	first, err := g.Explain(context.Background(), "Acme Corp", "Widget Pro", models.KindCrossSell, testContributions, "ctx")
	require.NoError(t, err)
	assert.Equal(t, "generated once", first)

	second, err := g.Explain(context.Background(), "Acme Corp", "Widget Pro", models.KindCrossSell, testContributions, "ctx")
	require.NoError(t, err)
	assert.Equal(t, "generated once", second)

	// Second call served from cache.
	assert.Len(t, completer.calls, 1)
}

func TestGenerator_DifferentInputsMissCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	completer := &fakeCompleter{text: "text"}
	g := New(&Config{CacheTTL: time.Minute}, completer, cache, logger.NewTestLogger(t))

	_, err := g.Explain(context.Background(), "Acme Corp", "Widget Pro", models.KindCrossSell, nil, "ctx")
	require.NoError(t, err)
	_, err = g.Explain(context.Background(), "Globex", "Widget Pro", models.KindCrossSell, nil, "ctx")
	require.NoError(t, err)

	assert.Len(t, completer.calls, 2)
}

func TestGenerator_CacheDownDegradesToDirect(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()

	completer := &fakeCompleter{text: "still works"}
	g := New(&Config{CacheTTL: time.Minute}, completer, cache, logger.NewTestLogger(t))

	text, err := g.Explain(context.Background(), "Acme Corp", "Widget Pro", models.KindCrossSell, nil, "")
	assert.NoError(t, err)
	assert.Equal(t, "still works", text)
}

func TestGenerator_ErrorNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	completer := &fakeCompleter{err: errors.New("boom")}
	g := New(&Config{CacheTTL: time.Minute}, completer, cache, logger.NewTestLogger(t))

	_, err := g.Pitch(context.Background(), "Acme Corp", "Widget Pro", "")
	require.Error(t, err)

	completer.err = nil
	completer.text = "recovered"
	text, err := g.Pitch(context.Background(), "Acme Corp", "Widget Pro", "")
	assert.NoError(t, err)
	assert.Equal(t, "recovered", text)
}
