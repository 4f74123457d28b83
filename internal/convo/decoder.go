// Package convo decodes the vendor's nested "conversation" blob into the
// canonical ordered message list. Everything here is a pure transform.
package convo

import (
	"encoding/json"
	"sort"
	"strings"

	"callsight/internal/types"
)

// agentRoleMarker is the sender type the vendor assigns to the handling
// agent. Every other sender is treated as the customer.
const agentRoleMarker = "AGENT"

// entityPairs is the exact entity set the source emits, decoded in this fixed
// order in a single pass, so "&amp;amp;" decodes to "&amp;" and not "&".
var entityPairs = []struct{ from, to string }{
	{"&#39;", "'"},
	{"&quot;", `"`},
	{"&amp;", "&"},
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&#x27;", "'"},
	{"&#x2F;", "/"},
	{"&nbsp;", " "},
}

// DecodeEntities applies the fixed entity table once, in order. Text with no
// entities passes through unchanged.
func DecodeEntities(s string) string {
	for _, p := range entityPairs {
		s = strings.ReplaceAll(s, p.from, p.to)
	}
	return s
}

type rawEntry struct {
	SenderType        string   `json:"senderType"`
	Text              string   `json:"text"`
	Timestamp         *float64 `json:"timestamp"`
	ReceivedTimestamp *float64 `json:"receivedTimestamp"`
}

type rawEnvelope struct {
	Transcript []rawEntry `json:"transcript"`
}

// Decode parses one call's conversation blob into an ordered message list.
// Input may be the string-encoded JSON from an export column or an
// already-parsed value from the query API. Returns nil when the envelope is
// malformed or carries no entry list; callers treat nil as "no conversation",
// never as a batch-fatal error.
func Decode(raw any) []types.Message {
	var data []byte
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		data = []byte(v)
	case []byte:
		data = v
	default:
		var err error
		data, err = json.Marshal(v)
		if err != nil {
			return nil
		}
	}

	var env rawEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil
	}
	if env.Transcript == nil {
		return nil
	}

	msgs := make([]types.Message, 0, len(env.Transcript))
	for _, e := range env.Transcript {
		speaker := types.SpeakerCustomer
		if e.SenderType == agentRoleMarker {
			speaker = types.SpeakerAgent
		}
		msgs = append(msgs, types.Message{
			Speaker:   speaker,
			Text:      DecodeEntities(e.Text),
			Timestamp: bestTimestamp(e),
		})
	}

	// Chronological order by best-available timestamp; entries without one
	// keep their original relative position under the stable sort.
	sort.SliceStable(msgs, func(i, j int) bool {
		return sortKey(msgs[i]) < sortKey(msgs[j])
	})
	return msgs
}

// bestTimestamp prefers the client-side timestamp, falls back to the
// server-received one, and reports nothing when both are absent or zero.
func bestTimestamp(e rawEntry) *float64 {
	if e.Timestamp != nil && *e.Timestamp != 0 {
		return e.Timestamp
	}
	if e.ReceivedTimestamp != nil && *e.ReceivedTimestamp != 0 {
		return e.ReceivedTimestamp
	}
	return nil
}

func sortKey(m types.Message) float64 {
	if m.Timestamp == nil {
		return 0
	}
	return *m.Timestamp
}
