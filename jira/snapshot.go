package jira

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/seaward/assetctl/errors"
)

// SchemaSnapshot is the persisted form of an object type schema.
type SchemaSnapshot struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	Attributes []AttributeDefinition `json:"attributes"`
}

// SnapshotStore persists object type schemas to a local sqlite database so
// cold processes start from the last known schema instead of a discovery
// round-trip. Rows are keyed by (workspace, object type); rows older than
// the staleness ceiling read as misses. The store is best-effort: any read
// failure is a cache miss, never a fatal error, because the network path
// remains authoritative.
type SnapshotStore struct {
	db         *sql.DB
	staleAfter time.Duration
}

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS schema_snapshots (
	workspace_id   TEXT NOT NULL,
	object_type_id TEXT NOT NULL,
	payload        TEXT NOT NULL,
	fetched_at     TIMESTAMP NOT NULL,
	PRIMARY KEY (workspace_id, object_type_id)
);`

// OpenSnapshotStore opens (creating if needed) the snapshot database at
// path. staleAfter bounds how old a row may be and still count as a hit;
// zero means the default ceiling.
func OpenSnapshotStore(path string, staleAfter time.Duration) (*SnapshotStore, error) {
	if staleAfter <= 0 {
		staleAfter = staleAfterDefault
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create snapshot directory")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open snapshot database")
	}
	if _, err := db.Exec(snapshotSchema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize snapshot database")
	}
	return &SnapshotStore{db: db, staleAfter: staleAfter}, nil
}

// NewSnapshotStoreWithDB wraps an existing database handle, for tests.
func NewSnapshotStoreWithDB(db *sql.DB, staleAfter time.Duration) *SnapshotStore {
	if staleAfter <= 0 {
		staleAfter = staleAfterDefault
	}
	return &SnapshotStore{db: db, staleAfter: staleAfter}
}

// Close releases the underlying database.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// Load returns the persisted snapshot for the given workspace and object
// type, or a miss when the row is absent, stale or unreadable.
func (s *SnapshotStore) Load(workspaceID, objectTypeID string) (*SchemaSnapshot, bool) {
	var payload string
	var fetchedAt time.Time
	err := s.db.QueryRow(
		`SELECT payload, fetched_at FROM schema_snapshots WHERE workspace_id = ? AND object_type_id = ?`,
		workspaceID, objectTypeID,
	).Scan(&payload, &fetchedAt)
	if err != nil {
		return nil, false
	}
	if time.Since(fetchedAt) > s.staleAfter {
		return nil, false
	}
	var snap SchemaSnapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, false
	}
	if snap.ID == "" || len(snap.Attributes) == 0 {
		return nil, false
	}
	return &snap, true
}

// Save upserts the snapshot for the schema's object type.
func (s *SnapshotStore) Save(workspaceID string, schema *ObjectTypeSchema) error {
	snap := SchemaSnapshot{
		ID:         schema.ID,
		Name:       schema.Name,
		Attributes: schema.Attributes,
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "failed to marshal schema snapshot")
	}
	_, err = s.db.Exec(
		`INSERT INTO schema_snapshots (workspace_id, object_type_id, payload, fetched_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (workspace_id, object_type_id) DO UPDATE SET
		   payload = excluded.payload,
		   fetched_at = excluded.fetched_at`,
		workspaceID, schema.ID, string(payload), time.Now().UTC(),
	)
	if err != nil {
		return errors.Wrap(err, "failed to persist schema snapshot")
	}
	return nil
}
