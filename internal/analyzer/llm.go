package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"callsight/internal/logger"
	"callsight/internal/types"
)

// LLMConfig configures the gateway-backed classifier. Any OpenAI-compatible
// chat endpoint that honors the JSON contract is interchangeable.
type LLMConfig struct {
	GatewayURL string
	APIKey     string
	Model      string
	Timeout    time.Duration
}

// LLMClassifier scores calls through an external chat-completions gateway.
// It performs a single attempt per Classify call; retry policy belongs to
// the dispatcher.
type LLMClassifier struct {
	cfg        LLMConfig
	httpClient *http.Client
	log        *logrus.Entry
}

func NewLLMClassifier(cfg LLMConfig) *LLMClassifier {
	if cfg.Timeout == 0 {
		cfg.Timeout = 25 * time.Second
	}
	return &LLMClassifier{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger.NewComponent("llm-classifier"),
	}
}

func (c *LLMClassifier) Model() string { return c.cfg.Model }

// analysisPayload is the field set the model is instructed to return.
type analysisPayload struct {
	AgentSentiment          string   `json:"agent_sentiment"`
	AgentSentimentScore     float64  `json:"agent_sentiment_score"`
	AgentSentimentReason    string   `json:"agent_sentiment_reason"`
	CustomerSentiment       string   `json:"customer_sentiment"`
	CustomerSentimentScore  float64  `json:"customer_sentiment_score"`
	CustomerSentimentReason string   `json:"customer_sentiment_reason"`
	ProfessionalismScore    float64  `json:"professionalism_score"`
	AIDiscoveredTopic       string   `json:"ai_discovered_topic"`
	Subcategory             string   `json:"subcategory"`
	TopicConfidence         float64  `json:"topic_confidence"`
	KeyIssues               []string `json:"key_issues"`
	AgentStrengths          []string `json:"agent_strengths"`
	Resolution              string   `json:"resolution"`
	Tags                    []string `json:"tags"`
	CausedFrustration       bool     `json:"caused_frustration"`
}

// Classify sends one prompt to the gateway and parses the strict JSON reply.
// A 4xx from the gateway wraps ErrPermanent; everything else is eligible for
// retry by the caller.
func (c *LLMClassifier) Classify(ctx context.Context, in Input) (types.Analysis, error) {
	reqBody := map[string]any{
		"model": c.cfg.Model,
		"messages": []map[string]string{
			{"role": "user", "content": BuildPrompt(in)},
		},
		"temperature": 0.0,
	}
	data, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.GatewayURL, bytes.NewReader(data))
	if err != nil {
		return types.Analysis{}, fmt.Errorf("build llm request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.Analysis{}, fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return types.Analysis{}, fmt.Errorf("%w: llm gateway status %d: %s", ErrPermanent, resp.StatusCode, string(body))
	}
	if resp.StatusCode >= 500 {
		return types.Analysis{}, fmt.Errorf("llm gateway status %d: %s", resp.StatusCode, string(body))
	}

	raw := contentFromChoices(body)
	if raw == "" {
		// Some gateways return the object bare rather than chat-wrapped.
		raw = extractJSON(string(body))
	}
	if raw == "" {
		return types.Analysis{}, fmt.Errorf("no JSON object in llm response")
	}

	var payload analysisPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return types.Analysis{}, fmt.Errorf("parse llm JSON: %w", err)
	}

	a := types.Analysis{
		VendorCallKey:           in.VendorCallKey,
		AgentSentiment:          types.Sentiment(payload.AgentSentiment),
		AgentSentimentScore:     payload.AgentSentimentScore,
		AgentSentimentReason:    payload.AgentSentimentReason,
		CustomerSentiment:       types.Sentiment(payload.CustomerSentiment),
		CustomerSentimentScore:  payload.CustomerSentimentScore,
		CustomerSentimentReason: payload.CustomerSentimentReason,
		ProfessionalismScore:    payload.ProfessionalismScore,
		AIDiscoveredTopic:       payload.AIDiscoveredTopic,
		Subcategory:             payload.Subcategory,
		TopicConfidence:         payload.TopicConfidence,
		KeyIssues:               payload.KeyIssues,
		AgentStrengths:          payload.AgentStrengths,
		Resolution:              payload.Resolution,
		Tags:                    payload.Tags,
		CausedFrustration:       payload.CausedFrustration,
		Model:                   c.cfg.Model,
		AnalyzedAt:              time.Now().UTC(),
	}
	if err := Validate(a); err != nil {
		c.log.WithError(err).Warn("llm returned out-of-contract analysis")
		return types.Analysis{}, err
	}
	return a, nil
}
