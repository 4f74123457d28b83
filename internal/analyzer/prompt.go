package analyzer

import "fmt"

// promptTemplate is the fixed instruction header. The model must return a
// single JSON object matching the analysis schema, nothing else.
const promptTemplate = `You are an expert call-center quality and customer-insights engine.

Analyze the call below and produce your judgment strictly as the JSON schema
shows. Ground every field in the conversation excerpt and metadata provided.
If information is missing, use a neutral sentiment, an empty string, or an
empty list instead of inventing details.

----------------------------------------------------------------------
SCHEMA (STRICT - RETURN ONLY JSON)
{
  "agent_sentiment": "positive|neutral|negative",
  "agent_sentiment_score": 0.0,
  "agent_sentiment_reason": "",
  "customer_sentiment": "positive|neutral|negative",
  "customer_sentiment_score": 0.0,
  "customer_sentiment_reason": "",
  "professionalism_score": 0.0,
  "ai_discovered_topic": "",
  "subcategory": "",
  "topic_confidence": 0.0,
  "key_issues": [],
  "agent_strengths": [],
  "resolution": "",
  "tags": [],
  "caused_frustration": false
}
----------------------------------------------------------------------

All scores are in [0, 1]. "caused_frustration" is true only when the agent's
own conduct frustrated the customer. DO NOT include commentary and DO NOT
wrap the JSON in backticks.

CALL METADATA:
Agent: %s
Department: %s
Disposition: %s

CONVERSATION (most recent portion, speaker-tagged):
"""%s"""

Return ONLY valid JSON matching the schema.
`

// BuildPrompt embeds the call metadata and excerpt in the instruction
// template.
func BuildPrompt(in Input) string {
	return fmt.Sprintf(promptTemplate,
		orUnknown(in.AgentName), orUnknown(in.Department), orUnknown(in.Disposition), in.Excerpt)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
