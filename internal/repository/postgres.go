package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"stillopen-api/internal/models"
	"stillopen-api/internal/textmatch"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is the production catalog store, backed by PostGIS
// and pg_trgm.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const postgresPlaceColumns = `
	place_id,
	name,
	COALESCE(category, ''),
	COALESCE(source, ''),
	ST_Y(geom::geometry) AS latitude,
	ST_X(geom::geometry) AS longitude,
	metadata_json,
	last_updated`

// GetByID fetches one place. It returns models.ErrNotFound when the id is
// unknown.
func (r *PostgresRepository) GetByID(ctx context.Context, placeID string) (models.Place, error) {
	sql := `SELECT` + postgresPlaceColumns + ` FROM places WHERE place_id = $1`

	var row placeRow
	err := r.db.QueryRow(ctx, sql, placeID).Scan(
		&row.PlaceID,
		&row.Name,
		&row.Category,
		&row.Source,
		&row.Lat,
		&row.Lon,
		&row.Metadata,
		&row.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Place{}, models.ErrNotFound
		}
		return models.Place{}, fmt.Errorf("repository: failed to fetch place %s: %w", placeID, err)
	}

	return row.place()
}

// FindBySimilarName returns places whose search_name is trigram-similar to
// the normalized query text or contains it, best first. The similarity in
// each result is pg_trgm's.
func (r *PostgresRepository) FindBySimilarName(ctx context.Context, q models.NameQuery) ([]models.ScoredPlace, error) {
	args := []any{q.Text, q.Threshold, textmatch.SubstringBonus}
	var sb strings.Builder
	sb.WriteString(`SELECT` + postgresPlaceColumns + `,
			similarity(search_name, $1) AS score
		FROM places
		WHERE (similarity(search_name, $1) >= $2 OR search_name LIKE '%' || $1 || '%')`)

	if q.Center != nil && q.RadiusKm > 0 {
		args = append(args, q.Center.Lon, q.Center.Lat, q.RadiusKm*1000)
		sb.WriteString(`
			AND ST_DWithin(geom, ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography, $6)`)
	}

	args = append(args, q.Limit)
	fmt.Fprintf(&sb, `
		ORDER BY
			LEAST(1.0, similarity(search_name, $1) + CASE WHEN search_name LIKE '%%' || $1 || '%%' THEN $3::float8 ELSE 0.0 END) DESC,
			last_updated DESC NULLS LAST,
			place_id ASC
		LIMIT $%d`, len(args))

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to execute similarity query: %w", err)
	}
	defer rows.Close()

	var places []models.ScoredPlace
	for rows.Next() {
		var row placeRow
		var score float64
		err := rows.Scan(
			&row.PlaceID,
			&row.Name,
			&row.Category,
			&row.Source,
			&row.Lat,
			&row.Lon,
			&row.Metadata,
			&row.LastUpdated,
			&score,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan place: %w", err)
		}
		place, err := row.place()
		if err != nil {
			return nil, err
		}
		places = append(places, models.ScoredPlace{Place: place, Similarity: score})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating rows: %w", err)
	}

	return places, nil
}

// Ping checks that the database answers.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("repository: ping: %w", err)
	}
	return nil
}

// Count returns the number of places in the catalog.
func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM places").Scan(&count); err != nil {
		return 0, fmt.Errorf("repository: failed to count places: %w", err)
	}
	return count, nil
}

// Close releases the connection pool.
func (r *PostgresRepository) Close() error {
	r.db.Close()
	return nil
}
