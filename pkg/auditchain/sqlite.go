package auditchain

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aegis-labs/aegis-core/pkg/access"
	"github.com/aegis-labs/aegis-core/pkg/classification"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists envelopes in a SQLite table, ordered by an
// append-sequence rowid so Load replays them in chain order.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the database at path and migrates the
// envelope table.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("auditchain: open sqlite: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an already-open database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
    CREATE TABLE IF NOT EXISTS envelopes (
        seq INTEGER PRIMARY KEY AUTOINCREMENT,
        event_id TEXT NOT NULL UNIQUE,
        event_type TEXT NOT NULL,
        occurred_at TEXT NOT NULL,
        producer TEXT,
        schema_version TEXT NOT NULL,
        principal_id TEXT,
        resource_id TEXT,
        classification TEXT,
        decision JSON NOT NULL,
        hash_chain_prev TEXT NOT NULL,
        self_hash TEXT NOT NULL
    );`
	if _, err := s.db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("auditchain: migrate envelopes table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Save(env Envelope) error {
	decisionJSON, err := json.Marshal(env.Decision)
	if err != nil {
		return fmt.Errorf("auditchain: marshal decision: %w", err)
	}

	query := `INSERT INTO envelopes (
        event_id, event_type, occurred_at, producer, schema_version,
        principal_id, resource_id, classification, decision,
        hash_chain_prev, self_hash
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(context.Background(), query,
		env.EventID.String(),
		env.EventType,
		env.OccurredAt.UTC().Format(time.RFC3339Nano),
		env.Producer,
		env.SchemaVersion,
		env.PrincipalID.String(),
		env.ResourceID.String(),
		string(env.Classification),
		string(decisionJSON),
		env.HashChainPrev,
		env.SelfHash,
	)
	if err != nil {
		return fmt.Errorf("auditchain: insert envelope: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load() ([]Envelope, error) {
	query := `
        SELECT event_id, event_type, occurred_at, producer, schema_version,
               principal_id, resource_id, classification, decision,
               hash_chain_prev, self_hash
        FROM envelopes
        ORDER BY seq ASC`

	rows, err := s.db.QueryContext(context.Background(), query)
	if err != nil {
		return nil, fmt.Errorf("auditchain: query envelopes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var envelopes []Envelope
	for rows.Next() {
		env, err := scanEnvelopeRow(rows)
		if err != nil {
			return nil, err
		}
		envelopes = append(envelopes, env)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("auditchain: read envelope rows: %w", err)
	}
	return envelopes, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanEnvelopeRow(rows *sql.Rows) (Envelope, error) {
	var (
		eventID       string
		eventType     string
		occurredAt    string
		producer      sql.NullString
		schemaVersion string
		principalID   sql.NullString
		resourceID    sql.NullString
		classLevel    sql.NullString
		decisionJSON  string
		hashChainPrev string
		selfHash      string
	)
	if err := rows.Scan(&eventID, &eventType, &occurredAt, &producer, &schemaVersion,
		&principalID, &resourceID, &classLevel, &decisionJSON,
		&hashChainPrev, &selfHash); err != nil {
		return Envelope{}, fmt.Errorf("auditchain: scan envelope row: %w", err)
	}

	id, err := uuid.Parse(eventID)
	if err != nil {
		return Envelope{}, fmt.Errorf("auditchain: parse event id: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, occurredAt)
	if err != nil {
		return Envelope{}, fmt.Errorf("auditchain: parse occurred_at: %w", err)
	}

	var decision access.Decision
	if err := json.Unmarshal([]byte(decisionJSON), &decision); err != nil {
		return Envelope{}, fmt.Errorf("auditchain: decode decision: %w", err)
	}

	env := Envelope{
		EventID:        id,
		EventType:      eventType,
		OccurredAt:     ts,
		Producer:       producer.String,
		SchemaVersion:  schemaVersion,
		Classification: classification.Level(classLevel.String),
		Decision:       decision,
		HashChainPrev:  hashChainPrev,
		SelfHash:       selfHash,
	}
	if principalID.Valid && principalID.String != "" {
		if pid, err := uuid.Parse(principalID.String); err == nil {
			env.PrincipalID = pid
		}
	}
	if resourceID.Valid && resourceID.String != "" {
		if rid, err := uuid.Parse(resourceID.String); err == nil {
			env.ResourceID = rid
		}
	}
	return env, nil
}
