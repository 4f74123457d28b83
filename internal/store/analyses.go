package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"callsight/internal/types"
)

// HasAnalysis reports whether a call already has a stored analysis. Callers
// use this to skip redundant classifier runs.
func (s *Store) HasAnalysis(ctx context.Context, key string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM analyses WHERE vendor_call_key = ?`, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check analysis for %s: %w", key, err)
	}
	return true, nil
}

// UpsertAnalysis writes one analysis keyed by vendor_call_key. A redundant
// write with identical content is harmless; a deliberate re-run overwrites.
func (s *Store) UpsertAnalysis(ctx context.Context, a types.Analysis) error {
	if a.VendorCallKey == "" {
		return errors.New("upsert analysis: empty vendor call key")
	}

	keyIssues, err := json.Marshal(emptyIfNil(a.KeyIssues))
	if err != nil {
		return fmt.Errorf("marshal key issues for %s: %w", a.VendorCallKey, err)
	}
	strengths, err := json.Marshal(emptyIfNil(a.AgentStrengths))
	if err != nil {
		return fmt.Errorf("marshal strengths for %s: %w", a.VendorCallKey, err)
	}
	tags, err := json.Marshal(emptyIfNil(a.Tags))
	if err != nil {
		return fmt.Errorf("marshal tags for %s: %w", a.VendorCallKey, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (
            vendor_call_key,
            agent_sentiment, agent_sentiment_score, agent_sentiment_reason,
            customer_sentiment, customer_sentiment_score, customer_sentiment_reason,
            professionalism_score, ai_discovered_topic, subcategory, topic_confidence,
            key_issues_json, agent_strengths_json, resolution, tags_json,
            caused_frustration, model, analyzed_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(vendor_call_key) DO UPDATE SET
            agent_sentiment           = excluded.agent_sentiment,
            agent_sentiment_score     = excluded.agent_sentiment_score,
            agent_sentiment_reason    = excluded.agent_sentiment_reason,
            customer_sentiment        = excluded.customer_sentiment,
            customer_sentiment_score  = excluded.customer_sentiment_score,
            customer_sentiment_reason = excluded.customer_sentiment_reason,
            professionalism_score     = excluded.professionalism_score,
            ai_discovered_topic       = excluded.ai_discovered_topic,
            subcategory               = excluded.subcategory,
            topic_confidence          = excluded.topic_confidence,
            key_issues_json           = excluded.key_issues_json,
            agent_strengths_json      = excluded.agent_strengths_json,
            resolution                = excluded.resolution,
            tags_json                 = excluded.tags_json,
            caused_frustration        = excluded.caused_frustration,
            model                     = excluded.model,
            analyzed_at               = excluded.analyzed_at`,
		a.VendorCallKey,
		string(a.AgentSentiment), a.AgentSentimentScore, a.AgentSentimentReason,
		string(a.CustomerSentiment), a.CustomerSentimentScore, a.CustomerSentimentReason,
		a.ProfessionalismScore, a.AIDiscoveredTopic, a.Subcategory, a.TopicConfidence,
		string(keyIssues), string(strengths), a.Resolution, string(tags),
		boolToInt(a.CausedFrustration), a.Model,
		a.AnalyzedAt.UTC().Truncate(time.Second).Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("upsert analysis %s: %w", a.VendorCallKey, err)
	}
	return nil
}

// ListAnalyses returns every stored analysis joined with its agent name, the
// read side for aggregation. Agent name may be nil for calls imported
// without one.
func (s *Store) ListAnalyses(ctx context.Context) ([]types.Analysis, map[string]*string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.vendor_call_key,
                a.agent_sentiment, a.agent_sentiment_score, a.agent_sentiment_reason,
                a.customer_sentiment, a.customer_sentiment_score, a.customer_sentiment_reason,
                a.professionalism_score, a.ai_discovered_topic, a.subcategory, a.topic_confidence,
                a.key_issues_json, a.agent_strengths_json, a.resolution, a.tags_json,
                a.caused_frustration, a.model, a.analyzed_at,
                t.agent_name
         FROM analyses a
         JOIN transcripts t ON t.vendor_call_key = a.vendor_call_key
         ORDER BY a.analyzed_at`)
	if err != nil {
		return nil, nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	var out []types.Analysis
	agents := map[string]*string{}
	for rows.Next() {
		var (
			a                               types.Analysis
			agentSent, custSent             string
			keyIssues, strengths, tagsJSON  string
			frustrated                      int
			analyzedAt                      sql.NullString
			agentName                       sql.NullString
		)
		err := rows.Scan(&a.VendorCallKey,
			&agentSent, &a.AgentSentimentScore, &a.AgentSentimentReason,
			&custSent, &a.CustomerSentimentScore, &a.CustomerSentimentReason,
			&a.ProfessionalismScore, &a.AIDiscoveredTopic, &a.Subcategory, &a.TopicConfidence,
			&keyIssues, &strengths, &a.Resolution, &tagsJSON,
			&frustrated, &a.Model, &analyzedAt, &agentName)
		if err != nil {
			return nil, nil, fmt.Errorf("scan analysis: %w", err)
		}
		a.AgentSentiment = types.Sentiment(agentSent)
		a.CustomerSentiment = types.Sentiment(custSent)
		a.CausedFrustration = frustrated != 0
		if ts, err := scanTime(analyzedAt); err == nil && ts != nil {
			a.AnalyzedAt = *ts
		}
		if err := json.Unmarshal([]byte(keyIssues), &a.KeyIssues); err != nil {
			return nil, nil, fmt.Errorf("unmarshal key issues for %s: %w", a.VendorCallKey, err)
		}
		if err := json.Unmarshal([]byte(strengths), &a.AgentStrengths); err != nil {
			return nil, nil, fmt.Errorf("unmarshal strengths for %s: %w", a.VendorCallKey, err)
		}
		if err := json.Unmarshal([]byte(tagsJSON), &a.Tags); err != nil {
			return nil, nil, fmt.Errorf("unmarshal tags for %s: %w", a.VendorCallKey, err)
		}
		agents[a.VendorCallKey] = scanString(agentName)
		out = append(out, a)
	}
	return out, agents, rows.Err()
}

// CountAnalyses reports the total number of stored analyses.
func (s *Store) CountAnalyses(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analyses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count analyses: %w", err)
	}
	return n, nil
}

func emptyIfNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
