package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/CodeSetter56/knowledge-search/internal/core/domain"
)

type FileRepository struct {
	db *sql.DB
}

func NewFileRepository(db *sql.DB) *FileRepository {
	return &FileRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *FileRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS files (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	path TEXT NOT NULL,
	file_type TEXT NOT NULL,
	summary TEXT NOT NULL DEFAULT '',
	tags JSONB NOT NULL DEFAULT '[]'::jsonb,
	tags_text TEXT NOT NULL DEFAULT '',
	scanned_text TEXT NOT NULL DEFAULT '',
	upload_date TIMESTAMPTZ NOT NULL,
	search_vector tsvector GENERATED ALWAYS AS (
		setweight(to_tsvector('english', coalesce(filename, '')), 'A') ||
		setweight(to_tsvector('english', coalesce(tags_text, '')), 'B') ||
		setweight(to_tsvector('english', coalesce(summary, '')), 'C') ||
		setweight(to_tsvector('english', coalesce(scanned_text, '')), 'D')
	) STORED
);

CREATE INDEX IF NOT EXISTS idx_files_search_vector ON files USING GIN (search_vector);
CREATE INDEX IF NOT EXISTS idx_files_upload_date ON files(upload_date DESC);
CREATE INDEX IF NOT EXISTS idx_files_file_type ON files(file_type);

CREATE TABLE IF NOT EXISTS stats (
	id TEXT PRIMARY KEY,
	pdf_monthly_limit INTEGER NOT NULL,
	pdf_credits_remaining INTEGER NOT NULL,
	pdf_cycle_start TIMESTAMPTZ,
	pdf_next_reset TIMESTAMPTZ,
	pdf_uploads INTEGER NOT NULL DEFAULT 0,
	pdf_uploads_total INTEGER NOT NULL DEFAULT 0,
	total_uploads INTEGER NOT NULL DEFAULT 0,
	docx_uploads INTEGER NOT NULL DEFAULT 0,
	xlsx_uploads INTEGER NOT NULL DEFAULT 0,
	image_uploads INTEGER NOT NULL DEFAULT 0,
	text_uploads INTEGER NOT NULL DEFAULT 0,
	other_uploads INTEGER NOT NULL DEFAULT 0
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *FileRepository) Create(ctx context.Context, file *domain.File) error {
	tagsJSON, err := json.Marshal(file.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO files (
	id, filename, path, file_type, summary, tags, tags_text, scanned_text, upload_date
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		file.ID, file.Filename, file.Path, file.FileType, file.Summary, tagsJSON,
		strings.Join(file.Tags, " "), file.ScannedText, file.UploadDate,
	)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

func (r *FileRepository) GetByID(ctx context.Context, id string) (*domain.File, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, path, file_type, summary, tags, scanned_text, upload_date
FROM files
WHERE id = $1
`, id)

	file, err := scanFile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get file", err)
		}
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return file, nil
}

func (r *FileRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete file rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, "delete file", sql.ErrNoRows)
	}
	return nil
}

// Search renders the normalized query into SQL: the type filter mirrors
// the in-memory bucket predicate, date bounds stay inclusive, a keyword
// switches the ordering from newest-first to full-text rank.
func (r *FileRepository) Search(ctx context.Context, query domain.SearchQuery) ([]domain.File, error) {
	query = query.Normalize()

	b := &sqlBuilder{}
	conditions := make([]string, 0, 4)

	keyword := strings.TrimSpace(query.Keyword)
	orderBy := "upload_date DESC"
	if keyword != "" {
		tsquery := "websearch_to_tsquery('english', " + b.bind(keyword) + ")"
		prefix := b.bind(keyword + "%")
		conditions = append(conditions,
			"(search_vector @@ "+tsquery+" OR filename ILIKE "+prefix+")")
		orderBy = "ts_rank_cd(search_vector, " + tsquery + ") DESC, upload_date DESC"
	}

	if predicate := filterPredicate(b, query.Filter); predicate != "" {
		conditions = append(conditions, predicate)
	}
	if query.From != nil {
		conditions = append(conditions, "upload_date >= "+b.bind(*query.From))
	}
	if query.To != nil {
		conditions = append(conditions, "upload_date <= "+b.bind(*query.To))
	}

	sqlQuery := `
SELECT id, filename, path, file_type, summary, tags, scanned_text, upload_date
FROM files
`
	if len(conditions) > 0 {
		sqlQuery += "WHERE " + strings.Join(conditions, " AND ") + "\n"
	}
	sqlQuery += "ORDER BY " + orderBy + "\nLIMIT " + b.bind(query.Limit)

	rows, err := r.db.QueryContext(ctx, sqlQuery, b.args...)
	if err != nil {
		return nil, fmt.Errorf("search files: %w", err)
	}
	defer rows.Close()

	files := make([]domain.File, 0, query.Limit)
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		files = append(files, *file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return files, nil
}

type sqlBuilder struct {
	args []any
}

func (b *sqlBuilder) bind(value any) string {
	b.args = append(b.args, value)
	return fmt.Sprintf("$%d", len(b.args))
}

// filterPredicate is the SQL rendering of domain.MatchesFilter. Both
// derive their boundaries from the same MIME constants so the buckets
// cannot drift apart.
func filterPredicate(b *sqlBuilder, filter domain.FilterKey) string {
	equalsPDF := func() string { return "file_type = " + b.bind(domain.MimePDF) }
	equalsPlain := func() string { return "file_type = " + b.bind(domain.MimePlainText) }
	containsDocx := func() string { return "file_type LIKE " + b.bind("%"+domain.MimeDocxMarker+"%") }
	containsXlsx := func() string { return "file_type LIKE " + b.bind("%"+domain.MimeXlsxMarker+"%") }
	imagePrefix := func() string { return "file_type LIKE " + b.bind(domain.MimeImagePrefix+"%") }
	textPrefix := func() string { return "file_type LIKE " + b.bind(domain.MimeTextPrefix+"%") }
	anyMarker := func() string {
		parts := make([]string, 0, len(domain.StructuredMarkers))
		for _, marker := range domain.StructuredMarkers {
			parts = append(parts, "file_type LIKE "+b.bind("%"+marker+"%"))
		}
		return "(" + strings.Join(parts, " OR ") + ")"
	}

	switch filter {
	case domain.FilterPDF:
		return equalsPDF()
	case domain.FilterDocumentsText:
		return "(" + containsDocx() + " OR " + equalsPlain() + ")"
	case domain.FilterStructuredData:
		return "(NOT " + containsDocx() + " AND (" +
			containsXlsx() + " OR " + anyMarker() +
			" OR (" + textPrefix() + " AND file_type <> " + b.bind(domain.MimePlainText) + ")))"
	case domain.FilterImage:
		return imagePrefix()
	case domain.FilterOther:
		return "(NOT " + equalsPDF() + " AND NOT " + imagePrefix() +
			" AND NOT " + containsDocx() + " AND NOT " + containsXlsx() +
			" AND NOT " + textPrefix() + " AND NOT " + anyMarker() + ")"
	default:
		return ""
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*domain.File, error) {
	var file domain.File
	var tagsRaw []byte

	err := row.Scan(
		&file.ID, &file.Filename, &file.Path, &file.FileType,
		&file.Summary, &tagsRaw, &file.ScannedText, &file.UploadDate,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tagsRaw, &file.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	if file.Tags == nil {
		file.Tags = []string{}
	}
	return &file, nil
}
