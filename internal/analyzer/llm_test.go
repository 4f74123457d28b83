package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callsight/internal/types"
)

const goodPayload = `{
	"agent_sentiment": "positive",
	"agent_sentiment_score": 0.8,
	"agent_sentiment_reason": "patient",
	"customer_sentiment": "negative",
	"customer_sentiment_score": 0.3,
	"customer_sentiment_reason": "billing surprise",
	"professionalism_score": 0.9,
	"ai_discovered_topic": "Billing",
	"subcategory": "Unexpected charge",
	"topic_confidence": 0.75,
	"key_issues": ["unexpected fee"],
	"agent_strengths": ["clear fee breakdown"],
	"resolution": "adjustment filed",
	"tags": ["billing"],
	"caused_frustration": false
}`

func chatResponse(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return string(b)
}

func newTestClassifier(url string) *LLMClassifier {
	return NewLLMClassifier(LLMConfig{GatewayURL: url, APIKey: "test-key", Model: "test-model"})
}

func TestLLMClassifyParsesFencedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		fmt.Fprint(w, chatResponse("```json\n"+goodPayload+"\n```"))
	}))
	defer srv.Close()

	a, err := newTestClassifier(srv.URL).Classify(context.Background(), Input{VendorCallKey: "call-1", Excerpt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "call-1", a.VendorCallKey)
	assert.Equal(t, types.SentimentPositive, a.AgentSentiment)
	assert.Equal(t, "Billing", a.AIDiscoveredTopic)
	assert.Equal(t, "test-model", a.Model)
	assert.False(t, a.AnalyzedAt.IsZero())
}

func TestLLMClassifyBareJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, goodPayload)
	}))
	defer srv.Close()

	a, err := newTestClassifier(srv.URL).Classify(context.Background(), Input{VendorCallKey: "call-2", Excerpt: "x"})
	require.NoError(t, err)
	assert.Equal(t, types.SentimentNegative, a.CustomerSentiment)
}

func TestLLMClassifyRejectsOutOfRangeScores(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bad := `{"agent_sentiment": "positive", "agent_sentiment_score": 42,
			"customer_sentiment": "neutral", "customer_sentiment_score": 0.5,
			"ai_discovered_topic": "Billing"}`
		fmt.Fprint(w, chatResponse(bad))
	}))
	defer srv.Close()

	_, err := newTestClassifier(srv.URL).Classify(context.Background(), Input{VendorCallKey: "call-3", Excerpt: "x"})
	require.Error(t, err, "JSON.parse success is not validity")
	assert.NotErrorIs(t, err, ErrPermanent, "contract violations stay retryable")
}

func TestLLMClassifyClientErrorIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClassifier(srv.URL).Classify(context.Background(), Input{VendorCallKey: "call-4", Excerpt: "x"})
	assert.True(t, errors.Is(err, ErrPermanent))
}

func TestLLMClassifyServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClassifier(srv.URL).Classify(context.Background(), Input{VendorCallKey: "call-5", Excerpt: "x"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrPermanent))
}

func TestLLMClassifyGarbageResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatResponse("I could not analyze this call, sorry!"))
	}))
	defer srv.Close()

	_, err := newTestClassifier(srv.URL).Classify(context.Background(), Input{VendorCallKey: "call-6", Excerpt: "x"})
	assert.Error(t, err)
}
