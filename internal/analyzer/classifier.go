// Package analyzer drives at-most-one AI analysis per transcript: prompt
// construction, the classifier abstraction, strict response validation, and
// the batched concurrent dispatcher.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"callsight/internal/types"
)

// ErrPermanent marks a classifier failure that retrying cannot fix, such as
// a rejected request. The dispatcher stops retrying when it sees this.
var ErrPermanent = errors.New("permanent classifier failure")

// Input is the call context handed to a classifier: structured metadata plus
// a bounded excerpt from the tail of the conversation.
type Input struct {
	VendorCallKey string
	AgentName     string
	Department    string
	Disposition   string
	Excerpt       string
}

// Classifier scores one call. Implementations are interchangeable black
// boxes: the LLM gateway and the keyword heuristic both satisfy it.
type Classifier interface {
	Classify(ctx context.Context, in Input) (types.Analysis, error)
	Model() string
}

// TailExcerpt returns the last n runes of the conversation text, the portion
// most likely to contain the outcome of the call.
func TailExcerpt(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[len(runes)-n:])
}

var validSentiments = map[types.Sentiment]bool{
	types.SentimentPositive: true,
	types.SentimentNeutral:  true,
	types.SentimentNegative: true,
}

// Validate rejects an analysis with missing required fields or out-of-range
// scores. Parsing as JSON is not enough to trust a model response.
func Validate(a types.Analysis) error {
	var problems []string
	if !validSentiments[a.AgentSentiment] {
		problems = append(problems, fmt.Sprintf("agent_sentiment %q not in {positive, neutral, negative}", a.AgentSentiment))
	}
	if !validSentiments[a.CustomerSentiment] {
		problems = append(problems, fmt.Sprintf("customer_sentiment %q not in {positive, neutral, negative}", a.CustomerSentiment))
	}
	for _, sc := range []struct {
		name string
		v    float64
	}{
		{"agent_sentiment_score", a.AgentSentimentScore},
		{"customer_sentiment_score", a.CustomerSentimentScore},
		{"professionalism_score", a.ProfessionalismScore},
		{"topic_confidence", a.TopicConfidence},
	} {
		if sc.v < 0 || sc.v > 1 {
			problems = append(problems, fmt.Sprintf("%s %v out of [0,1]", sc.name, sc.v))
		}
	}
	if strings.TrimSpace(a.AIDiscoveredTopic) == "" {
		problems = append(problems, "ai_discovered_topic is empty")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid analysis: %s", strings.Join(problems, "; "))
	}
	return nil
}
