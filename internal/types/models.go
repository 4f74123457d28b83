package types

import "time"

// Speaker identifies who produced a conversation message.
type Speaker string

const (
	SpeakerAgent    Speaker = "agent"
	SpeakerCustomer Speaker = "customer"
)

// Message is one speaker turn inside a call transcript. Text may be empty;
// entries without text are kept so message counts stay meaningful.
type Message struct {
	Speaker   Speaker  `json:"speaker"`
	Text      string   `json:"text"`
	Timestamp *float64 `json:"timestamp,omitempty"`
}

// Transcript is the canonical shape of one phone call. VendorCallKey is the
// stable external identifier and the idempotence key for every storage
// operation: re-importing the same key overwrites, never duplicates.
type Transcript struct {
	VendorCallKey   string     `json:"vendor_call_key"`
	CallStart       *time.Time `json:"call_start,omitempty"`
	CallEnd         *time.Time `json:"call_end,omitempty"`
	DurationSeconds *int       `json:"duration_seconds,omitempty"`
	Disposition     *string    `json:"disposition,omitempty"`
	Department      *string    `json:"department,omitempty"`
	Status          *string    `json:"status,omitempty"`
	AgentName       *string    `json:"agent_name,omitempty"`
	AgentRole       *string    `json:"agent_role,omitempty"`
	AgentProfile    *string    `json:"agent_profile,omitempty"`
	AgentEmail      *string    `json:"agent_email,omitempty"`
	NumberOfHolds   *int       `json:"number_of_holds,omitempty"`
	HoldDuration    *int       `json:"hold_duration,omitempty"`
	Messages        []Message  `json:"messages"`
}

// ConversationText renders the speaker-tagged conversation as plain text,
// one line per message, for prompt building and heuristics.
func (t Transcript) ConversationText() string {
	out := ""
	for _, m := range t.Messages {
		label := "Customer"
		if m.Speaker == SpeakerAgent {
			label = "Agent"
		}
		out += label + ": " + m.Text + "\n"
	}
	return out
}

// Sentiment is the classifier's categorical judgment.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Analysis is the classifier output for one call. At most one row exists per
// VendorCallKey; its presence means "do not re-run the classifier".
type Analysis struct {
	VendorCallKey           string    `json:"vendor_call_key"`
	AgentSentiment          Sentiment `json:"agent_sentiment"`
	AgentSentimentScore     float64   `json:"agent_sentiment_score"`
	AgentSentimentReason    string    `json:"agent_sentiment_reason"`
	CustomerSentiment       Sentiment `json:"customer_sentiment"`
	CustomerSentimentScore  float64   `json:"customer_sentiment_score"`
	CustomerSentimentReason string    `json:"customer_sentiment_reason"`
	ProfessionalismScore    float64   `json:"professionalism_score"`
	AIDiscoveredTopic       string    `json:"ai_discovered_topic"`
	Subcategory             string    `json:"subcategory"`
	TopicConfidence         float64   `json:"topic_confidence"`
	KeyIssues               []string  `json:"key_issues"`
	AgentStrengths          []string  `json:"agent_strengths"`
	Resolution              string    `json:"resolution"`
	Tags                    []string  `json:"tags"`
	CausedFrustration       bool      `json:"caused_frustration"`
	Model                   string    `json:"model"`
	AnalyzedAt              time.Time `json:"analyzed_at"`
}

// AgentRanking is the derived per-agent aggregate. It is recomputed from
// scratch on each report run and never persisted as source of truth.
type AgentRanking struct {
	AgentName            string       `json:"agent_name"`
	CallCount            int          `json:"call_count"`
	AvgAgentSentiment    float64      `json:"avg_agent_sentiment_score"`
	AvgCustomerSentiment float64      `json:"avg_customer_sentiment_score"`
	AvgProfessionalism   float64      `json:"avg_professionalism_score"`
	FrustrationRate      float64      `json:"frustration_rate"`
	CompositeScore       float64      `json:"composite_score"`
	Tier                 string       `json:"tier"`
	TopIssues            []IssueCount `json:"top_issues"`
	TopStrengths         []IssueCount `json:"top_strengths"`
}

// IssueCount is one entry of a frequency table over free-text labels.
type IssueCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// TopicSummary aggregates analyses by AI-discovered topic.
type TopicSummary struct {
	Topic                string  `json:"topic"`
	CallCount            int     `json:"call_count"`
	AvgCustomerSentiment float64 `json:"avg_customer_sentiment_score"`
	AvgTopicConfidence   float64 `json:"avg_topic_confidence"`
}
