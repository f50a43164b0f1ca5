// Package postgres provides the Postgres-backed paper store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wgilpin/paperstore/internal/paper"
)

// uniqueViolation is the Postgres error code for unique constraint hits.
const uniqueViolation = "23505"

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Store implements paper.Store on top of a pgx pool.
type Store struct {
	pool dbPool
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool dbPool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Migrate creates the schema if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id             TEXT PRIMARY KEY,
			arxiv_id       TEXT,
			title          TEXT NOT NULL DEFAULT '',
			authors        TEXT[] NOT NULL DEFAULT '{}',
			published_date DATE,
			abstract       TEXT NOT NULL DEFAULT '',
			submission_url TEXT NOT NULL,
			file_ref       TEXT NOT NULL,
			view_url       TEXT NOT NULL DEFAULT '',
			search_text    TEXT NOT NULL DEFAULT '',
			added_at       TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS papers_submission_url_key
			ON papers (submission_url)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS papers_arxiv_id_key
			ON papers (arxiv_id) WHERE arxiv_id <> ''`,
		`CREATE INDEX IF NOT EXISTS papers_search_idx
			ON papers USING GIN (to_tsvector('english', search_text))`,
		`CREATE TABLE IF NOT EXISTS notes (
			paper_id   TEXT PRIMARY KEY REFERENCES papers (id) ON DELETE CASCADE,
			content    TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tags (
			id   SERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS paper_tags (
			paper_id TEXT NOT NULL REFERENCES papers (id) ON DELETE CASCADE,
			tag_id   INT NOT NULL REFERENCES tags (id) ON DELETE CASCADE,
			PRIMARY KEY (paper_id, tag_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

const paperColumns = `id, arxiv_id, title, authors, published_date, abstract,
	submission_url, file_ref, view_url, added_at`

// CreatePaper inserts the paper and its empty note in one transaction.
func (s *Store) CreatePaper(ctx context.Context, p paper.Paper) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create paper: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	insertPaper := `
		INSERT INTO papers (id, arxiv_id, title, authors, published_date, abstract,
			submission_url, file_ref, view_url, search_text, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = tx.Exec(ctx, insertPaper,
		p.ID,
		p.ArxivID,
		p.Title,
		p.Authors,
		p.PublishedDate,
		p.Abstract,
		p.SubmissionURL,
		p.FileRef,
		p.ViewURL,
		paper.SearchText(p.Title, p.Authors, p.Abstract),
		p.AddedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return paper.ErrDuplicate
		}
		return fmt.Errorf("insert paper: %w", err)
	}

	insertNote := `INSERT INTO notes (paper_id, content, updated_at) VALUES ($1, '', $2)`
	if _, err := tx.Exec(ctx, insertNote, p.ID, p.AddedAt); err != nil {
		return fmt.Errorf("insert note: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create paper: %w", err)
	}
	return nil
}

// FindByArxivID returns the paper with the given arXiv id.
func (s *Store) FindByArxivID(ctx context.Context, arxivID string) (paper.Paper, error) {
	if arxivID == "" {
		return paper.Paper{}, paper.ErrNotFound
	}
	query := `SELECT ` + paperColumns + ` FROM papers WHERE arxiv_id = $1`
	return s.queryOne(ctx, query, arxivID)
}

// FindBySubmissionURL returns the paper submitted from the exact URL.
func (s *Store) FindBySubmissionURL(ctx context.Context, url string) (paper.Paper, error) {
	query := `SELECT ` + paperColumns + ` FROM papers WHERE submission_url = $1`
	return s.queryOne(ctx, query, url)
}

// GetPaper returns the paper and its note by id.
func (s *Store) GetPaper(ctx context.Context, id string) (paper.Paper, paper.Note, error) {
	query := `
		SELECT p.id, p.arxiv_id, p.title, p.authors, p.published_date, p.abstract,
			p.submission_url, p.file_ref, p.view_url, p.added_at,
			n.content, n.updated_at
		FROM papers p
		JOIN notes n ON n.paper_id = p.id
		WHERE p.id = $1`
	var (
		p paper.Paper
		n paper.Note
	)
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.ArxivID, &p.Title, &p.Authors, &p.PublishedDate, &p.Abstract,
		&p.SubmissionURL, &p.FileRef, &p.ViewURL, &p.AddedAt,
		&n.Content, &n.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return paper.Paper{}, paper.Note{}, paper.ErrNotFound
		}
		return paper.Paper{}, paper.Note{}, fmt.Errorf("get paper: %w", err)
	}
	n.PaperID = p.ID
	return p, n, nil
}

// Search runs a ranked full-text query (or a plain listing when the query
// is blank) and returns one page plus the total match count.
func (s *Store) Search(ctx context.Context, params paper.SearchParams) ([]paper.Paper, int, error) {
	offset := 0
	if params.Page > 1 {
		offset = (params.Page - 1) * paper.PageSize
	}

	orderBy := "p.added_at DESC"
	if params.Sort == paper.SortTitle {
		orderBy = "lower(p.title) ASC"
	}

	const tagJoin = `
		JOIN paper_tags pt ON pt.paper_id = p.id
		JOIN tags t ON t.id = pt.tag_id`

	var (
		joins      string
		where      string
		filterArgs []any
	)
	switch {
	case params.Query != "" && params.Tag != "":
		joins = tagJoin
		where = `
			WHERE t.name = $1
			  AND to_tsvector('english', p.search_text) @@ websearch_to_tsquery('english', $2)`
		orderBy = `ts_rank(to_tsvector('english', p.search_text), websearch_to_tsquery('english', $2)) DESC,
			p.added_at DESC`
		filterArgs = []any{params.Tag, params.Query}
	case params.Query != "":
		where = `
			WHERE to_tsvector('english', p.search_text) @@ websearch_to_tsquery('english', $1)`
		orderBy = `ts_rank(to_tsvector('english', p.search_text), websearch_to_tsquery('english', $1)) DESC,
			p.added_at DESC`
		filterArgs = []any{params.Query}
	case params.Tag != "":
		joins = tagJoin
		where = `
			WHERE t.name = $1`
		filterArgs = []any{params.Tag}
	}

	query := fmt.Sprintf(`
		SELECT `+prefixedColumns()+`, count(*) OVER () AS total
		FROM papers p%s%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		joins, where, orderBy, len(filterArgs)+1, len(filterArgs)+2)
	args := append(append([]any{}, filterArgs...), paper.PageSize, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search papers: %w", err)
	}
	defer rows.Close()

	papers := make([]paper.Paper, 0, paper.PageSize)
	total := 0
	for rows.Next() {
		var p paper.Paper
		if err := rows.Scan(
			&p.ID, &p.ArxivID, &p.Title, &p.Authors, &p.PublishedDate, &p.Abstract,
			&p.SubmissionURL, &p.FileRef, &p.ViewURL, &p.AddedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan paper row: %w", err)
		}
		papers = append(papers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("search papers: %w", err)
	}

	// A page past the last match yields no rows, so the window total was
	// never scanned; count the matches separately.
	if len(papers) == 0 && offset > 0 {
		countQuery := `SELECT count(*) FROM papers p` + joins + where
		if err := s.pool.QueryRow(ctx, countQuery, filterArgs...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count papers: %w", err)
		}
	}
	return papers, total, nil
}

// ListIncomplete returns papers missing a metadata field, oldest first.
func (s *Store) ListIncomplete(ctx context.Context) ([]paper.Paper, error) {
	query := `
		SELECT ` + paperColumns + `
		FROM papers
		WHERE title = '' OR btrim(abstract) = '' OR cardinality(authors) = 0 OR published_date IS NULL
		ORDER BY added_at ASC`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list incomplete papers: %w", err)
	}
	defer rows.Close()

	var papers []paper.Paper
	for rows.Next() {
		var p paper.Paper
		if err := rows.Scan(
			&p.ID, &p.ArxivID, &p.Title, &p.Authors, &p.PublishedDate, &p.Abstract,
			&p.SubmissionURL, &p.FileRef, &p.ViewURL, &p.AddedAt,
		); err != nil {
			return nil, fmt.Errorf("scan paper row: %w", err)
		}
		papers = append(papers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list incomplete papers: %w", err)
	}
	return papers, nil
}

// UpdateMetadata rewrites the metadata fields and the derived search text.
func (s *Store) UpdateMetadata(ctx context.Context, id string, m paper.Metadata) error {
	query := `
		UPDATE papers
		SET title = $1, authors = $2, published_date = $3, abstract = $4, search_text = $5
		WHERE id = $6`
	tag, err := s.pool.Exec(ctx, query,
		m.Title,
		m.Authors,
		m.PublishedDate,
		m.Abstract,
		paper.SearchText(m.Title, m.Authors, m.Abstract),
		id,
	)
	if err != nil {
		return fmt.Errorf("update metadata: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return paper.ErrNotFound
	}
	return nil
}

// UpdateNote replaces the note content for a paper.
func (s *Store) UpdateNote(ctx context.Context, paperID string, content string) (paper.Note, error) {
	query := `
		UPDATE notes
		SET content = $1, updated_at = now()
		WHERE paper_id = $2
		RETURNING content, updated_at`
	var n paper.Note
	err := s.pool.QueryRow(ctx, query, content, paperID).Scan(&n.Content, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return paper.Note{}, paper.ErrNotFound
		}
		return paper.Note{}, fmt.Errorf("update note: %w", err)
	}
	n.PaperID = paperID
	return n, nil
}

// DeletePaper removes the paper row; notes and tag links cascade.
func (s *Store) DeletePaper(ctx context.Context, id string) (paper.Paper, error) {
	query := `DELETE FROM papers WHERE id = $1 RETURNING ` + paperColumns
	var p paper.Paper
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.ArxivID, &p.Title, &p.Authors, &p.PublishedDate, &p.Abstract,
		&p.SubmissionURL, &p.FileRef, &p.ViewURL, &p.AddedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return paper.Paper{}, paper.ErrNotFound
		}
		return paper.Paper{}, fmt.Errorf("delete paper: %w", err)
	}
	return p, nil
}

func (s *Store) queryOne(ctx context.Context, query string, args ...any) (paper.Paper, error) {
	var p paper.Paper
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&p.ID, &p.ArxivID, &p.Title, &p.Authors, &p.PublishedDate, &p.Abstract,
		&p.SubmissionURL, &p.FileRef, &p.ViewURL, &p.AddedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return paper.Paper{}, paper.ErrNotFound
		}
		return paper.Paper{}, fmt.Errorf("query paper: %w", err)
	}
	return p, nil
}

func prefixedColumns() string {
	return `p.id, p.arxiv_id, p.title, p.authors, p.published_date, p.abstract,
		p.submission_url, p.file_ref, p.view_url, p.added_at`
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
