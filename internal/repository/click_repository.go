package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"linkforge/internal/entities"
)

type clickRepository struct {
	db *sql.DB
}

// NewClickRepository creates a Postgres-backed click event repository
func NewClickRepository(db *sql.DB) ClickRepository {
	return &clickRepository{db: db}
}

// Create appends a click event
func (r *clickRepository) Create(ctx context.Context, event *entities.ClickEvent) error {
	query := `
		INSERT INTO click_events (url_mapping_id, clicked_at, ip_address, user_agent, referer)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		event.URLMappingID,
		event.ClickedAt.UTC(),
		event.IPAddress,
		event.UserAgent,
		event.Referer,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to log click: %w", err)
	}

	return nil
}

// ListByURL returns the newest click events of a mapping
func (r *clickRepository) ListByURL(ctx context.Context, urlMappingID int64, limit int) ([]*entities.ClickEvent, error) {
	query := `
		SELECT id, url_mapping_id, clicked_at, ip_address, user_agent, referer
		FROM click_events
		WHERE url_mapping_id = $1
		ORDER BY clicked_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, urlMappingID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list clicks: %w", err)
	}
	defer rows.Close()

	var events []*entities.ClickEvent
	for rows.Next() {
		var event entities.ClickEvent
		var ip sql.NullString
		if err := rows.Scan(
			&event.ID,
			&event.URLMappingID,
			&event.ClickedAt,
			&ip,
			&event.UserAgent,
			&event.Referer,
		); err != nil {
			return nil, fmt.Errorf("failed to scan click: %w", err)
		}
		event.ClickedAt = event.ClickedAt.UTC()
		if ip.Valid {
			event.IPAddress = &ip.String
		}
		events = append(events, &event)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clicks: %w", err)
	}

	return events, nil
}

// CountSince counts the clicks recorded at or after since
func (r *clickRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM click_events WHERE clicked_at >= $1`, since.UTC(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count clicks: %w", err)
	}
	return count, nil
}
