// Package report computes agent-performance rankings and topic summaries
// from persisted analyses. Pure read-side arithmetic; nothing here writes
// back into the source-of-truth tables.
package report

import (
	"math"
	"sort"
	"time"

	"callsight/internal/types"
)

// UnknownAgent is the bucket for analyses whose transcript carries no agent
// name. Never silently dropped.
const UnknownAgent = "Unknown"

// Composite score weights and the frustration penalty factor.
const (
	weightAgentSentiment    = 0.30
	weightCustomerSentiment = 0.30
	weightProfessionalism   = 0.40
	frustrationPenalty      = 0.15
)

// topN caps the issue and strength frequency tables per agent.
const topN = 5

// Tier thresholds, inclusive lower bounds, strictly ordered, covering the
// whole score range with no gaps. A score exactly at a threshold takes the
// higher tier.
var tiers = []struct {
	floor float64
	name  string
}{
	{0.85, "Elite"},
	{0.70, "Strong"},
	{0.55, "Competent"},
	{0.40, "Developing"},
	{0.00, "Needs Attention"},
}

// TierFor maps a composite score to its tier name.
func TierFor(score float64) string {
	for _, t := range tiers {
		if score >= t.floor {
			return t.name
		}
	}
	return tiers[len(tiers)-1].name
}

// Report is the full computed snapshot handed to the renderers.
type Report struct {
	GeneratedAt time.Time            `json:"generated_at"`
	Transcripts int                  `json:"transcript_count"`
	Analyses    int                  `json:"analysis_count"`
	Agents      []types.AgentRanking `json:"agents"`
	Topics      []types.TopicSummary `json:"topics"`
}

// AgentRankings groups analyses by agent name and derives per-agent means,
// the weighted composite, tier, and top issue/strength tables. agentByKey
// maps a vendor call key to the transcript's agent name (nil for unknown).
// extraAgents lists agents that have transcripts but no analyzed calls yet;
// they appear with zero counts and a zero placeholder score rather than
// disappearing from the report.
func AgentRankings(analyses []types.Analysis, agentByKey map[string]*string, extraAgents []string) []types.AgentRanking {
	type bucket struct {
		count          int
		sumAgent       float64
		sumCustomer    float64
		sumProf        float64
		frustrated     int
		issueOrder     []string
		issueCounts    map[string]int
		strengthOrder  []string
		strengthCounts map[string]int
	}

	buckets := map[string]*bucket{}
	order := []string{}
	ensure := func(name string) *bucket {
		b, ok := buckets[name]
		if !ok {
			b = &bucket{issueCounts: map[string]int{}, strengthCounts: map[string]int{}}
			buckets[name] = b
			order = append(order, name)
		}
		return b
	}

	for _, a := range analyses {
		name := UnknownAgent
		if p := agentByKey[a.VendorCallKey]; p != nil && *p != "" {
			name = *p
		}
		b := ensure(name)
		b.count++
		b.sumAgent += a.AgentSentimentScore
		b.sumCustomer += a.CustomerSentimentScore
		b.sumProf += a.ProfessionalismScore
		if a.CausedFrustration {
			b.frustrated++
		}
		for _, issue := range a.KeyIssues {
			if _, seen := b.issueCounts[issue]; !seen {
				b.issueOrder = append(b.issueOrder, issue)
			}
			b.issueCounts[issue]++
		}
		for _, s := range a.AgentStrengths {
			if _, seen := b.strengthCounts[s]; !seen {
				b.strengthOrder = append(b.strengthOrder, s)
			}
			b.strengthCounts[s]++
		}
	}

	for _, name := range extraAgents {
		if name == "" {
			name = UnknownAgent
		}
		ensure(name)
	}

	out := make([]types.AgentRanking, 0, len(order))
	for _, name := range order {
		b := buckets[name]
		r := types.AgentRanking{
			AgentName:    name,
			CallCount:    b.count,
			TopIssues:    topCounts(b.issueOrder, b.issueCounts),
			TopStrengths: topCounts(b.strengthOrder, b.strengthCounts),
		}
		if b.count > 0 {
			n := float64(b.count)
			r.AvgAgentSentiment = b.sumAgent / n
			r.AvgCustomerSentiment = b.sumCustomer / n
			r.AvgProfessionalism = b.sumProf / n
			r.FrustrationRate = float64(b.frustrated) / n
			r.CompositeScore = clamp01(
				weightAgentSentiment*r.AvgAgentSentiment +
					weightCustomerSentiment*r.AvgCustomerSentiment +
					weightProfessionalism*r.AvgProfessionalism -
					frustrationPenalty*r.FrustrationRate)
		}
		r.Tier = TierFor(r.CompositeScore)
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CompositeScore != out[j].CompositeScore {
			return out[i].CompositeScore > out[j].CompositeScore
		}
		return out[i].AgentName < out[j].AgentName
	})
	return out
}

// Topics aggregates analyses by AI-discovered topic, descending by volume.
func Topics(analyses []types.Analysis) []types.TopicSummary {
	type bucket struct {
		count         int
		sumCustomer   float64
		sumConfidence float64
	}
	buckets := map[string]*bucket{}
	order := []string{}
	for _, a := range analyses {
		topic := a.AIDiscoveredTopic
		if topic == "" {
			topic = "Unknown"
		}
		b, ok := buckets[topic]
		if !ok {
			b = &bucket{}
			buckets[topic] = b
			order = append(order, topic)
		}
		b.count++
		b.sumCustomer += a.CustomerSentimentScore
		b.sumConfidence += a.TopicConfidence
	}

	out := make([]types.TopicSummary, 0, len(order))
	for _, topic := range order {
		b := buckets[topic]
		n := float64(b.count)
		out = append(out, types.TopicSummary{
			Topic:                topic,
			CallCount:            b.count,
			AvgCustomerSentiment: b.sumCustomer / n,
			AvgTopicConfidence:   b.sumConfidence / n,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CallCount > out[j].CallCount })
	return out
}

// topCounts builds the top-N frequency table, descending by count with ties
// broken by first-seen order.
func topCounts(order []string, counts map[string]int) []types.IssueCount {
	out := make([]types.IssueCount, 0, len(order))
	for _, label := range order {
		out = append(out, types.IssueCount{Label: label, Count: counts[label]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
