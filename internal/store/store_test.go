package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callsight/internal/types"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func timePtr(t time.Time) *time.Time {
	u := t.UTC().Truncate(time.Second)
	return &u
}

func sampleTranscript(key string) types.Transcript {
	return types.Transcript{
		VendorCallKey:   key,
		CallStart:       timePtr(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)),
		CallEnd:         timePtr(time.Date(2024, 5, 1, 10, 12, 30, 0, time.UTC)),
		DurationSeconds: intPtr(750),
		Disposition:     strPtr("Resolved"),
		Department:      strPtr("Support"),
		AgentName:       strPtr("Dana Reyes"),
		Messages: []types.Message{
			{Speaker: types.SpeakerAgent, Text: "Hello"},
			{Speaker: types.SpeakerCustomer, Text: "Hi"},
		},
	}
}

func sampleAnalysis(key string) types.Analysis {
	return types.Analysis{
		VendorCallKey:          key,
		AgentSentiment:         types.SentimentPositive,
		AgentSentimentScore:    0.8,
		CustomerSentiment:      types.SentimentNeutral,
		CustomerSentimentScore: 0.5,
		ProfessionalismScore:   0.9,
		AIDiscoveredTopic:      "Billing",
		TopicConfidence:        0.7,
		KeyIssues:              []string{"late invoice"},
		AgentStrengths:         []string{"clear explanation"},
		Tags:                   []string{"billing"},
		Model:                  "test-model",
		AnalyzedAt:             time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC),
	}
}

func TestUpsertTranscriptIdempotent(t *testing.T) {
	s := NewTestStore(t)
	ctx := context.Background()

	tr := sampleTranscript("call-1")
	require.NoError(t, s.UpsertTranscript(ctx, tr, OverwriteAll))
	require.NoError(t, s.UpsertTranscript(ctx, tr, OverwriteAll))

	n, err := s.CountTranscripts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "re-importing the same record must not duplicate")

	// Third import with one changed field wins.
	tr.Disposition = strPtr("Escalated")
	require.NoError(t, s.UpsertTranscript(ctx, tr, OverwriteAll))

	got, err := s.GetTranscript(ctx, "call-1")
	require.NoError(t, err)
	require.NotNil(t, got.Disposition)
	assert.Equal(t, "Escalated", *got.Disposition)
	assert.Equal(t, "Dana Reyes", *got.AgentName, "untouched fields keep their value")
}

func TestUpsertTranscriptOverwritePolicyNullsOut(t *testing.T) {
	s := NewTestStore(t)
	ctx := context.Background()

	tr := sampleTranscript("call-2")
	require.NoError(t, s.UpsertTranscript(ctx, tr, OverwriteAll))

	sparse := types.Transcript{VendorCallKey: "call-2"}
	require.NoError(t, s.UpsertTranscript(ctx, sparse, OverwriteAll))

	got, err := s.GetTranscript(ctx, "call-2")
	require.NoError(t, err)
	assert.Nil(t, got.AgentName, "overwrite policy nulls previously-set fields")
	assert.Nil(t, got.CallStart)
}

func TestUpsertTranscriptPreservePolicyKeepsBackfill(t *testing.T) {
	s := NewTestStore(t)
	ctx := context.Background()

	tr := sampleTranscript("call-3")
	require.NoError(t, s.UpsertTranscript(ctx, tr, OverwriteAll))

	sparse := types.Transcript{VendorCallKey: "call-3", Status: strPtr("closed")}
	require.NoError(t, s.UpsertTranscript(ctx, sparse, PreserveNonNull))

	got, err := s.GetTranscript(ctx, "call-3")
	require.NoError(t, err)
	require.NotNil(t, got.AgentName)
	assert.Equal(t, "Dana Reyes", *got.AgentName, "preserve policy keeps backfilled fields")
	require.NotNil(t, got.Status)
	assert.Equal(t, "closed", *got.Status, "non-null incoming fields still update")
	assert.Len(t, got.Messages, 2, "empty incoming message list keeps stored messages")
}

func TestGetTranscriptRoundTrip(t *testing.T) {
	s := NewTestStore(t)
	ctx := context.Background()

	tr := sampleTranscript("call-4")
	require.NoError(t, s.UpsertTranscript(ctx, tr, OverwriteAll))

	got, err := s.GetTranscript(ctx, "call-4")
	require.NoError(t, err)
	assert.Equal(t, tr.VendorCallKey, got.VendorCallKey)
	assert.Equal(t, *tr.CallStart, *got.CallStart)
	assert.Equal(t, *tr.DurationSeconds, *got.DurationSeconds)
	assert.Equal(t, tr.Messages, got.Messages)

	_, err = s.GetTranscript(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertTranscriptEmptyKeyRejected(t *testing.T) {
	s := NewTestStore(t)
	err := s.UpsertTranscript(context.Background(), types.Transcript{}, OverwriteAll)
	assert.Error(t, err)
}

func TestLatestCallStart(t *testing.T) {
	s := NewTestStore(t)
	ctx := context.Background()

	_, ok, err := s.LatestCallStart(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "empty store has no high-water mark")

	early := sampleTranscript("call-5")
	early.CallStart = timePtr(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	late := sampleTranscript("call-6")
	late.CallStart = timePtr(time.Date(2024, 5, 9, 23, 11, 0, 0, time.UTC))
	require.NoError(t, s.UpsertTranscript(ctx, early, OverwriteAll))
	require.NoError(t, s.UpsertTranscript(ctx, late, OverwriteAll))

	got, ok, err := s.LatestCallStart(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, *late.CallStart, got)
}

func TestHasAnalysisAndUpsert(t *testing.T) {
	s := NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertTranscript(ctx, sampleTranscript("call-7"), OverwriteAll))

	has, err := s.HasAnalysis(ctx, "call-7")
	require.NoError(t, err)
	assert.False(t, has)

	a := sampleAnalysis("call-7")
	require.NoError(t, s.UpsertAnalysis(ctx, a))
	require.NoError(t, s.UpsertAnalysis(ctx, a), "redundant identical write is harmless")

	has, err = s.HasAnalysis(ctx, "call-7")
	require.NoError(t, err)
	assert.True(t, has)

	n, err := s.CountAnalyses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "at most one analysis per key")
}

func TestListUnanalyzed(t *testing.T) {
	s := NewTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"call-a", "call-b", "call-c"} {
		require.NoError(t, s.UpsertTranscript(ctx, sampleTranscript(key), OverwriteAll))
	}
	require.NoError(t, s.UpsertAnalysis(ctx, sampleAnalysis("call-b")))

	pending, err := s.ListUnanalyzed(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	keys := []string{pending[0].VendorCallKey, pending[1].VendorCallKey}
	assert.ElementsMatch(t, []string{"call-a", "call-c"}, keys)

	limited, err := s.ListUnanalyzed(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestListAnalysesJoinsAgentName(t *testing.T) {
	s := NewTestStore(t)
	ctx := context.Background()

	tr := sampleTranscript("call-8")
	require.NoError(t, s.UpsertTranscript(ctx, tr, OverwriteAll))
	noAgent := sampleTranscript("call-9")
	noAgent.AgentName = nil
	require.NoError(t, s.UpsertTranscript(ctx, noAgent, OverwriteAll))

	require.NoError(t, s.UpsertAnalysis(ctx, sampleAnalysis("call-8")))
	require.NoError(t, s.UpsertAnalysis(ctx, sampleAnalysis("call-9")))

	analyses, agents, err := s.ListAnalyses(ctx)
	require.NoError(t, err)
	require.Len(t, analyses, 2)

	require.NotNil(t, agents["call-8"])
	assert.Equal(t, "Dana Reyes", *agents["call-8"])
	assert.Nil(t, agents["call-9"])

	for _, a := range analyses {
		if a.VendorCallKey == "call-8" {
			assert.Equal(t, []string{"late invoice"}, a.KeyIssues)
			assert.Equal(t, types.SentimentPositive, a.AgentSentiment)
			assert.Equal(t, time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC), a.AnalyzedAt)
		}
	}
}

func TestListAgentNames(t *testing.T) {
	s := NewTestStore(t)
	ctx := context.Background()

	withAgent := sampleTranscript("call-10")
	require.NoError(t, s.UpsertTranscript(ctx, withAgent, OverwriteAll))
	without := sampleTranscript("call-11")
	without.AgentName = nil
	require.NoError(t, s.UpsertTranscript(ctx, without, OverwriteAll))

	names, err := s.ListAgentNames(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"", "Dana Reyes"}, names)
}
