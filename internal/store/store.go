package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	// registers the "sqlite" database/sql driver
	_ "modernc.org/sqlite"
)

// ErrPageNotFound is returned when a page doesn't exist in the store.
var ErrPageNotFound = errors.New("page not found")

// ErrParentDepthExceeded is returned when a page has more than
// maxParentDepth ancestors, which usually means parent_id forms a cycle.
var ErrParentDepthExceeded = errors.New("page has too many ancestors")

// maxParentDepth bounds how far up the page tree Page walks when attaching
// parents, so a cycle in parent_id can't loop forever.
const maxParentDepth = 32

// Store provides SQLite-backed persistence for pages and the modules they
// contain.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database at path and brings its schema up to date.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	store, err := New(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// New returns a Store using db, applying any migrations it's missing.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sql db is required")
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// DB returns the underlying sql.DB instance.
func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// PutPage creates page, or replaces the page with the same ID.
func (s *Store) PutPage(ctx context.Context, page Page) error {
	if strings.TrimSpace(page.ID) == "" {
		return fmt.Errorf("page id is required")
	}
	content, err := encodeContent(page.Content)
	if err != nil {
		return err
	}
	var parentID sql.NullString
	if page.ParentID != "" {
		parentID = sql.NullString{String: page.ParentID, Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO pages (id, parent_id, template, title, num, content)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    parent_id = excluded.parent_id,
    template = excluded.template,
    title = excluded.title,
    num = excluded.num,
    content = excluded.content`,
		page.ID, parentID, page.Template, page.Title, page.Num, content,
	)
	if err != nil {
		return fmt.Errorf("put page %s: %w", page.ID, err)
	}
	return nil
}

// DeletePage removes the page with the passed ID, along with every page
// below it.
func (s *Store) DeletePage(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM pages WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete page %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete page %s: %w", id, err)
	}
	if affected < 1 {
		return fmt.Errorf("delete page %s: %w", id, ErrPageNotFound)
	}
	return nil
}

// Page returns the page with the passed ID, with its ancestors attached so
// Parent works all the way up the tree. Pages with more than maxParentDepth
// ancestors return ErrParentDepthExceeded.
func (s *Store) Page(ctx context.Context, id string) (*Page, error) {
	page, err := s.page(ctx, id)
	if err != nil {
		return nil, err
	}
	child := page
	for depth := 0; child.ParentID != "" && depth < maxParentDepth; depth++ {
		parent, err := s.page(ctx, child.ParentID)
		if err != nil {
			return nil, fmt.Errorf("load parent of %s: %w", child.ID, err)
		}
		child.parent = parent
		child = parent
	}
	if child.ParentID != "" {
		return nil, fmt.Errorf("load parents of %s: %w", id, ErrParentDepthExceeded)
	}
	return page, nil
}

// Modules returns the modules of the page with the passed ID: its children,
// ordered by their num and then their ID. Every module's Parent is the page.
func (s *Store) Modules(ctx context.Context, pageID string) (*Collection, error) {
	page, err := s.Page(ctx, pageID)
	if err != nil {
		return nil, err
	}
	return &Collection{db: s.db, page: page}, nil
}

func (s *Store) page(ctx context.Context, id string) (*Page, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+pageColumns+" FROM pages WHERE id = ?", id)
	page, err := scanPage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("page %s: %w", id, ErrPageNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get page %s: %w", id, err)
	}
	return page, nil
}

const pageColumns = "id, parent_id, template, title, num, content"

type scanner interface {
	Scan(dest ...any) error
}

func scanPage(row scanner) (*Page, error) {
	var (
		page     Page
		parentID sql.NullString
		content  string
	)
	err := row.Scan(&page.ID, &parentID, &page.Template, &page.Title, &page.Num, &content)
	if err != nil {
		return nil, err
	}
	page.ParentID = parentID.String
	page.Content, err = decodeContent(content)
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", page.ID, err)
	}
	return &page, nil
}

func encodeContent(content map[string]any) (string, error) {
	if len(content) == 0 {
		return "{}", nil
	}
	encoded, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("marshal content: %w", err)
	}
	return string(encoded), nil
}

func decodeContent(value string) (map[string]any, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	var content map[string]any
	if err := json.Unmarshal([]byte(value), &content); err != nil {
		return nil, fmt.Errorf("unmarshal content: %w", err)
	}
	return content, nil
}
