package repository

import (
	"context"
	"fmt"

	"stillopen-api/internal/models"

	"github.com/jackc/pgx/v5"
)

const postgresSchema = `
	CREATE EXTENSION IF NOT EXISTS postgis;
	CREATE EXTENSION IF NOT EXISTS pg_trgm;

	CREATE TABLE IF NOT EXISTS places (
		id BIGSERIAL PRIMARY KEY,
		place_id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		search_name TEXT NOT NULL,
		category TEXT,
		source TEXT,
		geom GEOGRAPHY(POINT, 4326),
		metadata_json JSONB,
		last_updated TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS places_geom_idx ON places USING GIST (geom);
	CREATE INDEX IF NOT EXISTS places_search_name_trgm_idx ON places USING GIN (search_name gin_trgm_ops);
`

// EnsureSchema creates the extensions, table and indexes if missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("repository: failed to create schema: %w", err)
	}
	return nil
}

// InsertPlaces upserts places by place_id. Rows are bulk copied into a
// staging table and merged in one transaction, so a failed import leaves
// the catalog untouched.
func (r *PostgresRepository) InsertPlaces(ctx context.Context, places []models.Place) (int64, error) {
	rows, err := placeRows(places)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to begin import: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		CREATE TEMP TABLE places_staging (
			place_id TEXT,
			name TEXT,
			search_name TEXT,
			category TEXT,
			source TEXT,
			lat DOUBLE PRECISION,
			lon DOUBLE PRECISION,
			metadata_json TEXT,
			last_updated TIMESTAMPTZ
		) ON COMMIT DROP`)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to create staging table: %w", err)
	}

	_, err = tx.CopyFrom(
		ctx,
		pgx.Identifier{"places_staging"},
		[]string{"place_id", "name", "search_name", "category", "source", "lat", "lon", "metadata_json", "last_updated"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			row := rows[i]
			return []any{row.PlaceID, row.Name, row.SearchName, row.Category, row.Source, row.Lat, row.Lon, string(row.Metadata), row.LastUpdated}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to copy places: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO places (place_id, name, search_name, category, source, geom, metadata_json, last_updated)
		SELECT
			place_id,
			name,
			search_name,
			NULLIF(category, ''),
			NULLIF(source, ''),
			CASE WHEN lat IS NULL OR lon IS NULL THEN NULL
				ELSE ST_SetSRID(ST_MakePoint(lon, lat), 4326)::geography END,
			metadata_json::jsonb,
			last_updated
		FROM places_staging
		ON CONFLICT (place_id) DO UPDATE SET
			name = EXCLUDED.name,
			search_name = EXCLUDED.search_name,
			category = EXCLUDED.category,
			source = EXCLUDED.source,
			geom = EXCLUDED.geom,
			metadata_json = EXCLUDED.metadata_json,
			last_updated = EXCLUDED.last_updated`)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to merge places: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("repository: failed to commit import: %w", err)
	}
	return tag.RowsAffected(), nil
}
