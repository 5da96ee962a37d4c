package registry

import (
	"bufio"
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"batchdl/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// Store is the SQLite-backed identifier and account registry.
type Store struct {
	db   *sql.DB
	path string
}

// Open connects to the registry at paths.registry_path.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("registry: config is nil")
	}
	return OpenPath(cfg.Paths.RegistryPath)
}

// OpenPath connects to the registry database at dbPath, creating tables as needed.
func OpenPath(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, errors.New("registry: database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure registry directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open registry db: %w", err)
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create registry schema: %w", err)
	}
	return &Store{db: db, path: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the registry database location.
func (s *Store) Path() string { return s.path }

// Harvest returns up to limit records owned by owner whose identifiers sort
// strictly after the cursor, in lexicographic order.
func (s *Store) Harvest(ctx context.Context, owner, after string, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT identifier, owner, metadata_json FROM identifiers
         WHERE owner = ? AND identifier > ?
         ORDER BY identifier LIMIT ?`,
		owner, after, limit)
	if err != nil {
		return nil, fmt.Errorf("harvest %s: %w", owner, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec Record
			raw string
		)
		if err := rows.Scan(&rec.Identifier, &rec.Owner, &raw); err != nil {
			return nil, fmt.Errorf("scan identifier: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", rec.Identifier, err)
		}
		if rec.Metadata == nil {
			rec.Metadata = map[string]string{}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PutIdentifier inserts or replaces an identifier record.
func (s *Store) PutIdentifier(ctx context.Context, rec Record) error {
	if strings.TrimSpace(rec.Identifier) == "" {
		return errors.New("identifier is required")
	}
	if strings.TrimSpace(rec.Owner) == "" {
		return fmt.Errorf("identifier %s: owner is required", rec.Identifier)
	}
	metadata := rec.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO identifiers (identifier, owner, metadata_json, update_time) VALUES (?, ?, ?, ?)
         ON CONFLICT(identifier) DO UPDATE SET owner = excluded.owner, metadata_json = excluded.metadata_json, update_time = excluded.update_time`,
		rec.Identifier, rec.Owner, string(data), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("put identifier %s: %w", rec.Identifier, err)
	}
	return nil
}

// ImportIdentifiers reads JSON lines of Record objects and stores each one.
// It returns the number of records imported.
func (s *Store) ImportIdentifiers(ctx context.Context, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	count := 0
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return count, fmt.Errorf("line %d: %w", line, err)
		}
		if err := s.PutIdentifier(ctx, rec); err != nil {
			return count, fmt.Errorf("line %d: %w", line, err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("read import: %w", err)
	}
	return count, nil
}

// AddUser inserts or replaces a user account.
func (s *Store) AddUser(ctx context.Context, u User) error {
	if strings.TrimSpace(u.ID) == "" || strings.TrimSpace(u.Username) == "" {
		return errors.New("user id and username are required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO registry_users (id, username, group_name, superuser, group_admin) VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET username = excluded.username, group_name = excluded.group_name,
             superuser = excluded.superuser, group_admin = excluded.group_admin`,
		u.ID, u.Username, u.Group, boolToInt(u.Superuser), boolToInt(u.GroupAdmin))
	if err != nil {
		return fmt.Errorf("add user %s: %w", u.Username, err)
	}
	return nil
}

// AddGroup inserts or replaces a group.
func (s *Store) AddGroup(ctx context.Context, g Group) error {
	if strings.TrimSpace(g.ID) == "" || strings.TrimSpace(g.Name) == "" {
		return errors.New("group id and name are required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO registry_groups (id, name) VALUES (?, ?)
         ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		g.ID, g.Name)
	if err != nil {
		return fmt.Errorf("add group %s: %w", g.Name, err)
	}
	return nil
}

const userColumns = "id, username, group_name, superuser, group_admin"

// UserByUsername looks up a user. It returns nil, nil when absent.
func (s *Store) UserByUsername(ctx context.Context, username string) (*User, error) {
	return s.queryUser(ctx, `SELECT `+userColumns+` FROM registry_users WHERE username = ?`, username)
}

// UserByID looks up a user by persistent identifier. It returns nil, nil when absent.
func (s *Store) UserByID(ctx context.Context, id string) (*User, error) {
	return s.queryUser(ctx, `SELECT `+userColumns+` FROM registry_users WHERE id = ?`, id)
}

func (s *Store) queryUser(ctx context.Context, query string, arg string) (*User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user %q: %w", arg, err)
	}
	return u, nil
}

// GroupByName looks up a group. It returns nil, nil when absent.
func (s *Store) GroupByName(ctx context.Context, name string) (*Group, error) {
	var g Group
	err := s.db.QueryRowContext(ctx, `SELECT id, name FROM registry_groups WHERE name = ?`, name).Scan(&g.ID, &g.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup group %q: %w", name, err)
	}
	return &g, nil
}

// GroupMembers returns the users belonging to the named group ordered by username.
func (s *Store) GroupMembers(ctx context.Context, name string) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM registry_users WHERE group_name = ? ORDER BY username`, name)
	if err != nil {
		return nil, fmt.Errorf("group members %q: %w", name, err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func scanUser(scanner interface{ Scan(dest ...any) error }) (*User, error) {
	var (
		u          User
		superuser  int
		groupAdmin int
	)
	if err := scanner.Scan(&u.ID, &u.Username, &u.Group, &superuser, &groupAdmin); err != nil {
		return nil, err
	}
	u.Superuser = superuser != 0
	u.GroupAdmin = groupAdmin != 0
	return &u, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
