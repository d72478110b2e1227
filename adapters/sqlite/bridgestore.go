package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/artpar/reshape/domain/bridge"
)

// ErrNotFound is returned when a bridge is not found.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique constraint is violated.
var ErrDuplicate = errors.New("already exists")

// BridgeStore persists bridge definitions in SQLite. Change sets are
// stored as JSON columns.
type BridgeStore struct {
	db *DB
}

// NewBridgeStore creates a new SQLite bridge store.
func NewBridgeStore(db *DB) *BridgeStore {
	return &BridgeStore{db: db}
}

// Get retrieves a bridge by ID.
func (s *BridgeStore) Get(ctx context.Context, id string) (bridge.Bridge, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, path_pattern, match_type, methods,
		       version, request_changes, response_changes,
		       priority, enabled, created_at, updated_at
		FROM bridges
		WHERE id = ?
	`, id)
	return scanBridge(row)
}

// List returns all bridges ordered by version then priority.
func (s *BridgeStore) List(ctx context.Context) ([]bridge.Bridge, error) {
	return s.list(ctx, `
		SELECT id, name, description, path_pattern, match_type, methods,
		       version, request_changes, response_changes,
		       priority, enabled, created_at, updated_at
		FROM bridges
		ORDER BY version ASC, priority DESC, name ASC
	`)
}

// ListEnabled returns only enabled bridges ordered by version then priority.
func (s *BridgeStore) ListEnabled(ctx context.Context) ([]bridge.Bridge, error) {
	return s.list(ctx, `
		SELECT id, name, description, path_pattern, match_type, methods,
		       version, request_changes, response_changes,
		       priority, enabled, created_at, updated_at
		FROM bridges
		WHERE enabled = 1
		ORDER BY version ASC, priority DESC, name ASC
	`)
}

func (s *BridgeStore) list(ctx context.Context, query string) ([]bridge.Bridge, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bridges []bridge.Bridge
	for rows.Next() {
		b, err := scanBridgeRows(rows)
		if err != nil {
			return nil, err
		}
		bridges = append(bridges, b)
	}
	return bridges, rows.Err()
}

// Create stores a new bridge.
func (s *BridgeStore) Create(ctx context.Context, b bridge.Bridge) error {
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = now
	}

	methodsJSON, err := marshalStringSlice(b.Methods)
	if err != nil {
		return err
	}

	reqJSON, err := marshalChanges(b.Request)
	if err != nil {
		return err
	}

	respJSON, err := marshalChanges(b.Response)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bridges (
			id, name, description, path_pattern, match_type, methods,
			version, request_changes, response_changes,
			priority, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		b.ID, b.Name, b.Description,
		b.PathPattern, string(b.MatchType), methodsJSON,
		b.Version, reqJSON, respJSON,
		b.Priority, boolToInt(b.Enabled), b.CreatedAt, b.UpdatedAt,
	)

	if err != nil && isUniqueConstraintError(err) {
		return ErrDuplicate
	}
	return err
}

// Update modifies an existing bridge.
func (s *BridgeStore) Update(ctx context.Context, b bridge.Bridge) error {
	b.UpdatedAt = time.Now().UTC()

	methodsJSON, err := marshalStringSlice(b.Methods)
	if err != nil {
		return err
	}

	reqJSON, err := marshalChanges(b.Request)
	if err != nil {
		return err
	}

	respJSON, err := marshalChanges(b.Response)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE bridges
		SET name = ?, description = ?, path_pattern = ?, match_type = ?,
		    methods = ?, version = ?, request_changes = ?, response_changes = ?,
		    priority = ?, enabled = ?, updated_at = ?
		WHERE id = ?
	`,
		b.Name, b.Description, b.PathPattern, string(b.MatchType),
		methodsJSON, b.Version, reqJSON, respJSON,
		b.Priority, boolToInt(b.Enabled), b.UpdatedAt, b.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a bridge.
func (s *BridgeStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM bridges WHERE id = ?`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func scanBridge(row *sql.Row) (bridge.Bridge, error) {
	var b bridge.Bridge
	var matchType string
	var methodsJSON, reqJSON, respJSON sql.NullString
	var enabled int

	err := row.Scan(
		&b.ID, &b.Name, &b.Description,
		&b.PathPattern, &matchType, &methodsJSON,
		&b.Version, &reqJSON, &respJSON,
		&b.Priority, &enabled, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return bridge.Bridge{}, ErrNotFound
	}
	if err != nil {
		return bridge.Bridge{}, err
	}

	return finishBridge(b, matchType, methodsJSON, reqJSON, respJSON, enabled)
}

func scanBridgeRows(rows *sql.Rows) (bridge.Bridge, error) {
	var b bridge.Bridge
	var matchType string
	var methodsJSON, reqJSON, respJSON sql.NullString
	var enabled int

	err := rows.Scan(
		&b.ID, &b.Name, &b.Description,
		&b.PathPattern, &matchType, &methodsJSON,
		&b.Version, &reqJSON, &respJSON,
		&b.Priority, &enabled, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return bridge.Bridge{}, err
	}

	return finishBridge(b, matchType, methodsJSON, reqJSON, respJSON, enabled)
}

func finishBridge(b bridge.Bridge, matchType string, methodsJSON, reqJSON, respJSON sql.NullString, enabled int) (bridge.Bridge, error) {
	b.MatchType = bridge.MatchType(matchType)
	b.Enabled = enabled == 1

	if methodsJSON.Valid && methodsJSON.String != "" {
		if err := json.Unmarshal([]byte(methodsJSON.String), &b.Methods); err != nil {
			return bridge.Bridge{}, err
		}
	}
	if reqJSON.Valid && reqJSON.String != "" {
		if err := json.Unmarshal([]byte(reqJSON.String), &b.Request); err != nil {
			return bridge.Bridge{}, err
		}
	}
	if respJSON.Valid && respJSON.String != "" {
		if err := json.Unmarshal([]byte(respJSON.String), &b.Response); err != nil {
			return bridge.Bridge{}, err
		}
	}
	return b, nil
}

func marshalStringSlice(vals []string) (sql.NullString, error) {
	if len(vals) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(vals)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func marshalChanges(v any) (sql.NullString, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
