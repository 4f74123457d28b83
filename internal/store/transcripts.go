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

// MergePolicy controls how an upsert treats fields that are null in the
// incoming record but populated in the stored row.
type MergePolicy int

const (
	// OverwriteAll replaces every field with the incoming value, nulls
	// included. This matches the vendor-export semantics: the latest import
	// wins wholesale.
	OverwriteAll MergePolicy = iota
	// PreserveNonNull keeps the stored value wherever the incoming field is
	// null, so a sparse re-import cannot erase backfilled data.
	PreserveNonNull
)

// ErrNotFound is returned when a lookup key has no stored row.
var ErrNotFound = errors.New("store: record not found")

const transcriptColumns = `vendor_call_key, call_start, call_end, duration_seconds,
    disposition, department, status, agent_name, agent_role, agent_profile,
    agent_email, number_of_holds, hold_duration, messages_json`

// UpsertTranscript writes one transcript keyed by vendor_call_key. Re-import
// of an existing key updates the row in place; it never creates a duplicate.
func (s *Store) UpsertTranscript(ctx context.Context, t types.Transcript, policy MergePolicy) error {
	if t.VendorCallKey == "" {
		return errors.New("upsert transcript: empty vendor call key")
	}

	messagesJSON, err := json.Marshal(t.Messages)
	if err != nil {
		return fmt.Errorf("marshal messages for %s: %w", t.VendorCallKey, err)
	}
	if t.Messages == nil {
		messagesJSON = []byte("[]")
	}

	var conflict string
	switch policy {
	case PreserveNonNull:
		conflict = `ON CONFLICT(vendor_call_key) DO UPDATE SET
            call_start       = COALESCE(excluded.call_start, call_start),
            call_end         = COALESCE(excluded.call_end, call_end),
            duration_seconds = COALESCE(excluded.duration_seconds, duration_seconds),
            disposition      = COALESCE(excluded.disposition, disposition),
            department       = COALESCE(excluded.department, department),
            status           = COALESCE(excluded.status, status),
            agent_name       = COALESCE(excluded.agent_name, agent_name),
            agent_role       = COALESCE(excluded.agent_role, agent_role),
            agent_profile    = COALESCE(excluded.agent_profile, agent_profile),
            agent_email      = COALESCE(excluded.agent_email, agent_email),
            number_of_holds  = COALESCE(excluded.number_of_holds, number_of_holds),
            hold_duration    = COALESCE(excluded.hold_duration, hold_duration),
            messages_json    = CASE WHEN excluded.messages_json = '[]' THEN messages_json ELSE excluded.messages_json END,
            imported_at      = excluded.imported_at`
	default:
		conflict = `ON CONFLICT(vendor_call_key) DO UPDATE SET
            call_start       = excluded.call_start,
            call_end         = excluded.call_end,
            duration_seconds = excluded.duration_seconds,
            disposition      = excluded.disposition,
            department       = excluded.department,
            status           = excluded.status,
            agent_name       = excluded.agent_name,
            agent_role       = excluded.agent_role,
            agent_profile    = excluded.agent_profile,
            agent_email      = excluded.agent_email,
            number_of_holds  = excluded.number_of_holds,
            hold_duration    = excluded.hold_duration,
            messages_json    = excluded.messages_json,
            imported_at      = excluded.imported_at`
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO transcripts (`+transcriptColumns+`, imported_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) `+conflict,
		t.VendorCallKey,
		nullableTime(t.CallStart),
		nullableTime(t.CallEnd),
		nullableInt(t.DurationSeconds),
		nullableString(t.Disposition),
		nullableString(t.Department),
		nullableString(t.Status),
		nullableString(t.AgentName),
		nullableString(t.AgentRole),
		nullableString(t.AgentProfile),
		nullableString(t.AgentEmail),
		nullableInt(t.NumberOfHolds),
		nullableInt(t.HoldDuration),
		string(messagesJSON),
		time.Now().UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("upsert transcript %s: %w", t.VendorCallKey, err)
	}
	return nil
}

// GetTranscript fetches one transcript by key, ErrNotFound when absent.
func (s *Store) GetTranscript(ctx context.Context, key string) (types.Transcript, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transcriptColumns+` FROM transcripts WHERE vendor_call_key = ?`, key)
	t, err := scanTranscript(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Transcript{}, ErrNotFound
	}
	return t, err
}

// ListUnanalyzed returns transcripts that have no analysis row yet, oldest
// call first, capped at limit (0 = no cap). This is the resume point after a
// crashed or interrupted analysis run.
func (s *Store) ListUnanalyzed(ctx context.Context, limit int) ([]types.Transcript, error) {
	q := `SELECT ` + transcriptColumns + `
          FROM transcripts
          WHERE vendor_call_key NOT IN (SELECT vendor_call_key FROM analyses)
          ORDER BY call_start`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query unanalyzed transcripts: %w", err)
	}
	defer rows.Close()

	var out []types.Transcript
	for rows.Next() {
		t, err := scanTranscript(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListAgentNames returns the distinct agent names across stored transcripts,
// so agents without any analyzed call still show up in reports. Transcripts
// without an agent name contribute an empty entry.
func (s *Store) ListAgentNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT COALESCE(agent_name, '') FROM transcripts ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("query agent names: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan agent name: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// CountTranscripts reports the total number of stored transcripts.
func (s *Store) CountTranscripts(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transcripts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transcripts: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTranscript(r rowScanner) (types.Transcript, error) {
	var (
		t                    types.Transcript
		callStart, callEnd   sql.NullString
		duration, holds, hd  sql.NullInt64
		disposition, dept    sql.NullString
		status, agentName    sql.NullString
		agentRole, agentProf sql.NullString
		agentEmail           sql.NullString
		messagesJSON         string
	)
	err := r.Scan(&t.VendorCallKey, &callStart, &callEnd, &duration,
		&disposition, &dept, &status, &agentName, &agentRole, &agentProf,
		&agentEmail, &holds, &hd, &messagesJSON)
	if err != nil {
		return types.Transcript{}, err
	}

	if t.CallStart, err = scanTime(callStart); err != nil {
		return types.Transcript{}, err
	}
	if t.CallEnd, err = scanTime(callEnd); err != nil {
		return types.Transcript{}, err
	}
	t.DurationSeconds = scanInt(duration)
	t.Disposition = scanString(disposition)
	t.Department = scanString(dept)
	t.Status = scanString(status)
	t.AgentName = scanString(agentName)
	t.AgentRole = scanString(agentRole)
	t.AgentProfile = scanString(agentProf)
	t.AgentEmail = scanString(agentEmail)
	t.NumberOfHolds = scanInt(holds)
	t.HoldDuration = scanInt(hd)

	if err := json.Unmarshal([]byte(messagesJSON), &t.Messages); err != nil {
		return types.Transcript{}, fmt.Errorf("unmarshal messages for %s: %w", t.VendorCallKey, err)
	}
	return t, nil
}
