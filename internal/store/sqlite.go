package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/kanban/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
// Items are stored as JSON, one row per item, in fetch order.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single connection
	// serializes all DB access through Go's connection pool, preventing
	// "database is locked" errors from concurrent HTTP requests.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout so concurrent writes wait instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	// Create migrations tracking table
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	// Sort by filename
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Check if already applied
		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)

// SaveSnapshot stores items as the newest snapshot for kind and key.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, kind, key string, items []*models.WorkItem) (*Snapshot, error) {
	snap := &Snapshot{
		ID:        newULID(),
		Kind:      kind,
		Key:       key,
		FetchedAt: s.now().UTC(),
		Items:     items,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin save snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, kind, key, item_count, fetched_at) VALUES (?, ?, ?, ?, ?)`,
		snap.ID, kind, key, len(items), snap.FetchedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}

	for i, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("encode item %s: %w", item.ID, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO snapshot_items (snapshot_id, position, item_id, data) VALUES (?, ?, ?, ?)`,
			snap.ID, i, item.ID, string(data),
		)
		if err != nil {
			return nil, fmt.Errorf("save item %s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit snapshot: %w", err)
	}
	return snap, nil
}

// LatestSnapshot returns the most recently saved snapshot for kind and key.
func (s *SQLiteStore) LatestSnapshot(ctx context.Context, kind, key string) (*Snapshot, error) {
	snap := &Snapshot{Kind: kind, Key: key}
	var fetched int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, fetched_at FROM snapshots WHERE kind = ? AND key = ?
		ORDER BY fetched_at DESC, rowid DESC LIMIT 1`, kind, key,
	).Scan(&snap.ID, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", kind, key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	snap.FetchedAt = time.Unix(0, fetched).UTC()

	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM snapshot_items WHERE snapshot_id = ? ORDER BY position`, snap.ID)
	if err != nil {
		return nil, fmt.Errorf("list snapshot items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan snapshot item: %w", err)
		}
		item := &models.WorkItem{}
		if err := json.Unmarshal([]byte(data), item); err != nil {
			return nil, fmt.Errorf("decode snapshot item: %w", err)
		}
		snap.Items = append(snap.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return snap, nil
}

// ListSnapshots returns snapshots newest first. An empty kind lists all
// kinds; a limit of zero or less means no limit.
func (s *SQLiteStore) ListSnapshots(ctx context.Context, kind string, limit int) ([]SnapshotInfo, error) {
	query := `SELECT id, kind, key, item_count, fetched_at FROM snapshots`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY fetched_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var infos []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		var fetched int64
		if err := rows.Scan(&info.ID, &info.Kind, &info.Key, &info.ItemCount, &fetched); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		info.FetchedAt = time.Unix(0, fetched).UTC()
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func (s *SQLiteStore) PruneSnapshots(ctx context.Context, kind, key string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE kind = ? AND key = ? AND id NOT IN (
			SELECT id FROM snapshots WHERE kind = ? AND key = ?
			ORDER BY fetched_at DESC, rowid DESC LIMIT ?
		)`, kind, key, kind, key, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return result.RowsAffected()
}
