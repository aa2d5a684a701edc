package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/CodeSetter56/knowledge-search/internal/core/domain"
)

type StatsRepository struct {
	db           *sql.DB
	monthlyLimit int
}

func NewStatsRepository(db *sql.DB, monthlyLimit int) *StatsRepository {
	if monthlyLimit <= 0 {
		monthlyLimit = domain.DefaultPDFMonthlyLimit
	}
	return &StatsRepository{db: db, monthlyLimit: monthlyLimit}
}

// counterColumns whitelists the counter keys a caller may touch. Every
// mutation resolves through this map, so arbitrary column names can
// never reach the SQL text.
var counterColumns = map[domain.CounterKey]string{
	domain.CounterPDFUploads:      "pdf_uploads",
	domain.CounterPDFUploadsTotal: "pdf_uploads_total",
	domain.CounterTotalUploads:    "total_uploads",
	domain.CounterDocxUploads:     "docx_uploads",
	domain.CounterXlsxUploads:     "xlsx_uploads",
	domain.CounterImageUploads:    "image_uploads",
	domain.CounterTextUploads:     "text_uploads",
	domain.CounterOtherUploads:    "other_uploads",
}

// Get returns the singleton row, inserting defaults on first access.
func (r *StatsRepository) Get(ctx context.Context) (*domain.Stats, error) {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO stats (id, pdf_monthly_limit, pdf_credits_remaining)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO NOTHING
`, domain.StatsID, r.monthlyLimit, r.monthlyLimit)
	if err != nil {
		return nil, fmt.Errorf("ensure stats row: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `
SELECT pdf_monthly_limit, pdf_credits_remaining, pdf_cycle_start, pdf_next_reset,
	pdf_uploads, pdf_uploads_total, total_uploads,
	docx_uploads, xlsx_uploads, image_uploads, text_uploads, other_uploads
FROM stats
WHERE id = $1
`, domain.StatsID)

	var stats domain.Stats
	var cycleStart, nextReset sql.NullTime
	err = row.Scan(
		&stats.PDFMonthlyLimit, &stats.PDFCreditsRemaining, &cycleStart, &nextReset,
		&stats.PDFUploads, &stats.PDFUploadsTotal, &stats.TotalUploads,
		&stats.DocxUploads, &stats.XlsxUploads, &stats.ImageUploads,
		&stats.TextUploads, &stats.OtherUploads,
	)
	if err != nil {
		return nil, fmt.Errorf("scan stats: %w", err)
	}
	if cycleStart.Valid {
		value := cycleStart.Time
		stats.PDFCycleStart = &value
	}
	if nextReset.Valid {
		value := nextReset.Time
		stats.PDFNextReset = &value
	}
	return &stats, nil
}

// ApplyCycle re-arms the credit window. The expected previous reset
// bound is compared with IS NOT DISTINCT FROM so nil matches the
// uninitialized row; when another writer already re-armed the window the
// guard fails and the write is silently skipped.
func (r *StatsRepository) ApplyCycle(ctx context.Context, transition domain.CycleTransition, expectedReset *time.Time) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE stats
SET pdf_cycle_start = $2, pdf_next_reset = $3, pdf_credits_remaining = $4, pdf_uploads = 0
WHERE id = $1 AND pdf_next_reset IS NOT DISTINCT FROM $5
`, domain.StatsID, transition.CycleStart, transition.NextReset, transition.Credits, nullableTime(expectedReset))
	if err != nil {
		return fmt.Errorf("apply credit cycle: %w", err)
	}
	return nil
}

// ConsumeCredit burns one PDF credit. The predicate keeps the balance
// from going negative under concurrent uploads; the report says whether
// this caller actually got a credit.
func (r *StatsRepository) ConsumeCredit(ctx context.Context) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
UPDATE stats
SET pdf_credits_remaining = pdf_credits_remaining - 1
WHERE id = $1 AND pdf_credits_remaining > 0
`, domain.StatsID)
	if err != nil {
		return false, fmt.Errorf("consume pdf credit: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume credit rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *StatsRepository) Increment(ctx context.Context, keys []domain.CounterKey) error {
	return r.adjust(ctx, keys, func(column string) string {
		return fmt.Sprintf("%s = %s + 1", column, column)
	})
}

func (r *StatsRepository) Decrement(ctx context.Context, keys []domain.CounterKey) error {
	return r.adjust(ctx, keys, func(column string) string {
		return fmt.Sprintf("%s = GREATEST(%s - 1, 0)", column, column)
	})
}

func (r *StatsRepository) adjust(ctx context.Context, keys []domain.CounterKey, assign func(column string) string) error {
	if len(keys) == 0 {
		return nil
	}

	assignments := make([]string, 0, len(keys))
	for _, key := range keys {
		column, ok := counterColumns[key]
		if !ok {
			return fmt.Errorf("unknown counter key: %s", key)
		}
		assignments = append(assignments, assign(column))
	}

	query := fmt.Sprintf(`UPDATE stats SET %s WHERE id = $1`, strings.Join(assignments, ", "))
	if _, err := r.db.ExecContext(ctx, query, domain.StatsID); err != nil {
		return fmt.Errorf("adjust counters: %w", err)
	}
	return nil
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return *value
}
