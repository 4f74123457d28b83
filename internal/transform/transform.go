// Package transform converts raw source rows into canonical transcripts.
// Pure functions, no I/O.
package transform

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"callsight/internal/convo"
	"callsight/internal/types"
)

// RawRecord is one source row as a normalized-header -> value map, produced
// by the export loaders and the vendor query client.
type RawRecord map[string]string

// Column names after header normalization.
const (
	ColCallKey      = "call_key"
	ColCallStart    = "call_start"
	ColCallEnd      = "call_end"
	ColDuration     = "duration"
	ColDisposition  = "disposition"
	ColDepartment   = "department"
	ColStatus       = "status"
	ColAgentName    = "agent_name"
	ColAgentRole    = "agent_role"
	ColAgentProfile = "agent_profile"
	ColAgentEmail   = "agent_email"
	ColHolds        = "holds"
	ColHoldDuration = "hold_duration"
	ColConversation = "conversation"
)

// NormalizeHeader maps a source column header to its canonical name:
// lowercased, trimmed, spaces and dashes collapsed to underscores.
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " ", "_")
	h = strings.ReplaceAll(h, "-", "_")
	return h
}

// timestamp layouts seen across the vendor query API and file exports.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ToTranscript builds the canonical transcript from one raw row. The vendor
// call key is required; every other field is optional and becomes nil when
// blank. The conversation column is decoded via convo; a malformed blob
// yields an empty message list, not an error.
func ToTranscript(rec RawRecord) (types.Transcript, error) {
	key := strings.TrimSpace(rec[ColCallKey])
	if key == "" {
		return types.Transcript{}, fmt.Errorf("source row missing %s", ColCallKey)
	}

	t := types.Transcript{
		VendorCallKey:   key,
		CallStart:       parseTime(rec[ColCallStart]),
		CallEnd:         parseTime(rec[ColCallEnd]),
		DurationSeconds: parseInt(rec[ColDuration]),
		Disposition:     optString(rec[ColDisposition]),
		Department:      optString(rec[ColDepartment]),
		Status:          optString(rec[ColStatus]),
		AgentName:       optString(rec[ColAgentName]),
		AgentRole:       optString(rec[ColAgentRole]),
		AgentProfile:    optString(rec[ColAgentProfile]),
		AgentEmail:      optString(rec[ColAgentEmail]),
		NumberOfHolds:   parseInt(rec[ColHolds]),
		HoldDuration:    parseInt(rec[ColHoldDuration]),
		Messages:        convo.Decode(rec[ColConversation]),
	}
	return t, nil
}

func optString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func parseInt(v string) *int {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

func parseTime(v string) *time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}
