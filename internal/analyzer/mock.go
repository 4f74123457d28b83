package analyzer

import (
	"context"
	"time"

	"callsight/internal/types"
)

// MockClassifier returns a fixed, valid analysis. Enable with
// USE_MOCK_LLM=true for offline demos and smoke tests.
type MockClassifier struct{}

func NewMockClassifier() *MockClassifier { return &MockClassifier{} }

func (m *MockClassifier) Model() string { return "mock" }

func (m *MockClassifier) Classify(_ context.Context, in Input) (types.Analysis, error) {
	return types.Analysis{
		VendorCallKey:           in.VendorCallKey,
		AgentSentiment:          types.SentimentNeutral,
		AgentSentimentScore:     0.6,
		AgentSentimentReason:    "calm and procedural throughout",
		CustomerSentiment:       types.SentimentNegative,
		CustomerSentimentScore:  0.3,
		CustomerSentimentReason: "repeated the problem twice before getting an answer",
		ProfessionalismScore:    0.7,
		AIDiscoveredTopic:       "Billing",
		Subcategory:             "Unexpected charge",
		TopicConfidence:         0.8,
		KeyIssues:               []string{"unexpected fee on invoice"},
		AgentStrengths:          []string{"clear explanation of fee breakdown"},
		Resolution:              "fee explained, adjustment submitted",
		Tags:                    []string{"billing", "fee-dispute"},
		CausedFrustration:       false,
		Model:                   "mock",
		AnalyzedAt:              time.Now().UTC(),
	}, nil
}
