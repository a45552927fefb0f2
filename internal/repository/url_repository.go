package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"linkforge/internal/entities"
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation
const uniqueViolation = "23505"

const urlColumns = `id, short_code, original_url, created_at, expires_at, click_count, is_active`

type urlRepository struct {
	db *sql.DB
}

// NewURLRepository creates a Postgres-backed URL repository
func NewURLRepository(db *sql.DB) URLRepository {
	return &urlRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanURL(row rowScanner) (*entities.URLMapping, error) {
	var url entities.URLMapping
	var expiresAt sql.NullTime
	err := row.Scan(
		&url.ID,
		&url.ShortCode,
		&url.OriginalURL,
		&url.CreatedAt,
		&expiresAt,
		&url.ClickCount,
		&url.IsActive,
	)
	if err != nil {
		return nil, err
	}

	url.CreatedAt = url.CreatedAt.UTC()
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		url.ExpiresAt = &t
	}
	return &url, nil
}

// Create inserts a new URL mapping into the database
func (r *urlRepository) Create(ctx context.Context, mapping *entities.URLMapping) error {
	var expiresAt any
	if mapping.ExpiresAt != nil {
		expiresAt = mapping.ExpiresAt.UTC()
	}

	query := `
		INSERT INTO url_mappings (short_code, original_url, created_at, expires_at, click_count, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		mapping.ShortCode,
		mapping.OriginalURL,
		mapping.CreatedAt.UTC(),
		expiresAt,
		mapping.ClickCount,
		mapping.IsActive,
	).Scan(&mapping.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: '%s'", entities.ErrDuplicateCode, mapping.ShortCode)
		}
		return fmt.Errorf("failed to create URL mapping: %w", err)
	}

	return nil
}

// FindByShortCode finds a mapping by its short code, active or not
func (r *urlRepository) FindByShortCode(ctx context.Context, shortCode string) (*entities.URLMapping, error) {
	query := `SELECT ` + urlColumns + ` FROM url_mappings WHERE short_code = $1`
	return r.findOne(ctx, query, shortCode)
}

// FindActiveByShortCode finds a mapping by its short code only if it is active
func (r *urlRepository) FindActiveByShortCode(ctx context.Context, shortCode string) (*entities.URLMapping, error) {
	query := `SELECT ` + urlColumns + ` FROM url_mappings WHERE short_code = $1 AND is_active = TRUE`
	return r.findOne(ctx, query, shortCode)
}

func (r *urlRepository) findOne(ctx context.Context, query string, args ...any) (*entities.URLMapping, error) {
	url, err := scanURL(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entities.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find URL mapping: %w", err)
	}
	return url, nil
}

// Exists checks whether a short code is already stored
func (r *urlRepository) Exists(ctx context.Context, shortCode string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM url_mappings WHERE short_code = $1)`, shortCode,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check short code: %w", err)
	}
	return exists, nil
}

// IncrementClickCount adds one click in a single statement so concurrent redirects never lose updates
func (r *urlRepository) IncrementClickCount(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE url_mappings
		SET click_count = click_count + 1
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to increment click count: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entities.ErrNotFound
	}

	return nil
}

// SetActive updates the active flag of a mapping
func (r *urlRepository) SetActive(ctx context.Context, shortCode string, active bool) (*entities.URLMapping, error) {
	query := `
		UPDATE url_mappings
		SET is_active = $1
		WHERE short_code = $2
		RETURNING ` + urlColumns

	url, err := scanURL(r.db.QueryRowContext(ctx, query, active, shortCode))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entities.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update URL mapping: %w", err)
	}
	return url, nil
}

// ListActive retrieves active mappings, most clicked first
func (r *urlRepository) ListActive(ctx context.Context, limit, offset int) ([]*entities.URLMapping, error) {
	query := `
		SELECT ` + urlColumns + `
		FROM url_mappings
		WHERE is_active = TRUE
		ORDER BY click_count DESC, created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list URL mappings: %w", err)
	}
	defer rows.Close()

	var urls []*entities.URLMapping
	for rows.Next() {
		url, err := scanURL(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan URL mapping: %w", err)
		}
		urls = append(urls, url)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating URL mappings: %w", err)
	}

	return urls, nil
}

// Counts aggregates the active mappings
func (r *urlRepository) Counts(ctx context.Context, now time.Time) (total, unexpired, clicks int64, err error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE expires_at IS NULL OR expires_at > $1),
			COALESCE(SUM(click_count), 0)
		FROM url_mappings
		WHERE is_active = TRUE
	`

	err = r.db.QueryRowContext(ctx, query, now.UTC()).Scan(&total, &unexpired, &clicks)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count URL mappings: %w", err)
	}
	return total, unexpired, clicks, nil
}
