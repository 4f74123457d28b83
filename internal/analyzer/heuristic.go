package analyzer

import (
	"context"
	"strings"
	"time"

	"callsight/internal/types"
)

// HeuristicClassifier is the offline fallback: keyword scoring behind the
// same Classifier interface as the LLM path, so the pipeline stays runnable
// without a gateway.
type HeuristicClassifier struct{}

func NewHeuristicClassifier() *HeuristicClassifier { return &HeuristicClassifier{} }

func (h *HeuristicClassifier) Model() string { return "heuristic/v1" }

var (
	negativeTokens = []string{"angry", "frustrat", "terrible", "cancel", "complaint", "unacceptable", "refund", "upset", "worst"}
	positiveTokens = []string{"thank", "great", "perfect", "appreciate", "wonderful", "helpful", "resolved", "excellent"}

	topicKeywords = []struct{ token, topic string }{
		{"bill", "Billing"},
		{"payment", "Billing"},
		{"refund", "Billing"},
		{"appointment", "Scheduling"},
		{"schedule", "Scheduling"},
		{"password", "Account Access"},
		{"login", "Account Access"},
		{"cancel", "Cancellation"},
		{"deliver", "Delivery"},
		{"ship", "Delivery"},
	}
)

func (h *HeuristicClassifier) Classify(_ context.Context, in Input) (types.Analysis, error) {
	lower := strings.ToLower(in.Excerpt)

	neg, pos := 0, 0
	for _, t := range negativeTokens {
		neg += strings.Count(lower, t)
	}
	for _, t := range positiveTokens {
		pos += strings.Count(lower, t)
	}

	sentiment := types.SentimentNeutral
	score := 0.5
	switch {
	case pos > neg:
		sentiment = types.SentimentPositive
		score = 0.75
	case neg > pos:
		sentiment = types.SentimentNegative
		score = 0.25
	}

	topic := "General Inquiry"
	confidence := 0.2
	for _, kw := range topicKeywords {
		if strings.Contains(lower, kw.token) {
			topic = kw.topic
			confidence = 0.5
			break
		}
	}

	return types.Analysis{
		VendorCallKey:           in.VendorCallKey,
		AgentSentiment:          types.SentimentNeutral,
		AgentSentimentScore:     0.5,
		AgentSentimentReason:    "keyword heuristic does not score agent tone",
		CustomerSentiment:       sentiment,
		CustomerSentimentScore:  score,
		CustomerSentimentReason: "keyword polarity count",
		ProfessionalismScore:    0.5,
		AIDiscoveredTopic:       topic,
		TopicConfidence:         confidence,
		KeyIssues:               []string{},
		AgentStrengths:          []string{},
		Tags:                    []string{"heuristic"},
		CausedFrustration:       false,
		Model:                   h.Model(),
		AnalyzedAt:              time.Now().UTC(),
	}, nil
}
