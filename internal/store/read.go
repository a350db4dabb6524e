package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// Entry is one journal row.
type Entry struct {
	ID          int64             `json:"id"`
	Node        string            `json:"node"`
	EnvelopeID  string            `json:"envelope_id"`
	Outcome     string            `json:"outcome"`
	Kind        string            `json:"kind"`
	Correlation string            `json:"correlation"`
	Member      string            `json:"member"`
	Sender      string            `json:"sender"`
	SenderRoles string            `json:"sender_roles"`
	Seq         int64             `json:"seq"`
	Token       string            `json:"token,omitempty"`
	Params      string            `json:"params,omitempty"`
	Shape       string            `json:"shape,omitempty"`
	Payload     []json.RawMessage `json:"payload,omitempty"`
	Reason      string            `json:"reason,omitempty"`
}

// Filter narrows ReadEvents. Empty fields match everything.
type Filter struct {
	Node        string
	Correlation string
	Member      string
	Outcome     string

	// Limit caps the number of rows; 0 means no limit.
	Limit int
}

// ReadEvents returns journal entries matching f in insertion order.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ReadEvents(ctx context.Context, f Filter) ([]Entry, error) {
	var where []string
	var args []any
	add := func(column, value string) {
		if value != "" {
			where = append(where, column+" = ?")
			args = append(args, value)
		}
	}
	add("node_id", f.Node)
	add("correlation", f.Correlation)
	add("member", f.Member)
	add("outcome", f.Outcome)

	query := `
		SELECT id, node_id, envelope_id, outcome, kind, correlation, member, sender,
		       sender_roles, seq, token, params, shape, payload, reason
		FROM relay_events`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY id ASC"
	if f.Limit > 0 {
		query += "\n\t\tLIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query relay events: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate relay events: %w", err)
	}
	return entries, nil
}

// CountOutcomes returns the number of journal rows per outcome, optionally
// restricted to one node.
func (s *Store) CountOutcomes(ctx context.Context, node string) (map[string]int, error) {
	query := `SELECT outcome, COUNT(*) FROM relay_events`
	var args []any
	if node != "" {
		query += ` WHERE node_id = ?`
		args = append(args, node)
	}
	query += ` GROUP BY outcome`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scan outcome count: %w", err)
		}
		counts[outcome] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcome counts: %w", err)
	}
	return counts, nil
}

// MaxSeq returns the highest sequence number node has sent, or 0 when the
// journal holds none. A restarting node resumes its clock from here.
func (s *Store) MaxSeq(ctx context.Context, node string) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM relay_events
		WHERE node_id = ? AND sender = ? AND outcome = 'sent'
	`, node, node).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return seq.Int64, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var e Entry
	var payload string
	if err := rows.Scan(
		&e.ID, &e.Node, &e.EnvelopeID, &e.Outcome, &e.Kind, &e.Correlation, &e.Member, &e.Sender,
		&e.SenderRoles, &e.Seq, &e.Token, &e.Params, &e.Shape, &payload, &e.Reason,
	); err != nil {
		return Entry{}, fmt.Errorf("scan relay event: %w", err)
	}
	p, err := unmarshalPayload(payload)
	if err != nil {
		return Entry{}, fmt.Errorf("relay event %d: %w", e.ID, err)
	}
	e.Payload = p
	return e, nil
}
