package repository

import (
	"context"
	"fmt"
	"time"

	"stillopen-api/internal/geo"
	"stillopen-api/internal/models"
	"stillopen-api/internal/textmatch"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// SQLiteRepository is the single-file catalog store used for local
// development. Trigram similarity, substring matching and distance are
// registered as SQL functions on every connection so it ranks exactly
// like the Go resolver.
type SQLiteRepository struct {
	pool *sqlitex.Pool
	path string
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string, poolSize int) (*SQLiteRepository, error) {
	if path == "" {
		return nil, fmt.Errorf("repository: sqlite path is required")
	}
	if poolSize <= 0 {
		poolSize = 4
	}
	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareSQLiteConn,
	})
	if err != nil {
		return nil, fmt.Errorf("repository: opening %s: %w", path, err)
	}
	return &SQLiteRepository{pool: pool, path: path}, nil
}

func prepareSQLiteConn(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("repository: %s: %w", pragma, err)
		}
	}

	functions := map[string]*sqlite.FunctionImpl{
		"similarity": {
			NArgs:         2,
			Deterministic: true,
			Scalar: func(ctx sqlite.Context, args []sqlite.Value) (sqlite.Value, error) {
				return sqlite.FloatValue(textmatch.NormalizedSimilarity(args[0].Text(), args[1].Text())), nil
			},
		},
		"contains_folded": {
			NArgs:         2,
			Deterministic: true,
			Scalar: func(ctx sqlite.Context, args []sqlite.Value) (sqlite.Value, error) {
				if textmatch.Contains(args[0].Text(), args[1].Text()) {
					return sqlite.IntegerValue(1), nil
				}
				return sqlite.IntegerValue(0), nil
			},
		},
		"distance_km": {
			NArgs:         4,
			Deterministic: true,
			Scalar: func(ctx sqlite.Context, args []sqlite.Value) (sqlite.Value, error) {
				a := geo.Point{Lat: args[0].Float(), Lon: args[1].Float()}
				b := geo.Point{Lat: args[2].Float(), Lon: args[3].Float()}
				return sqlite.FloatValue(geo.DistanceKm(a, b)), nil
			},
		},
	}
	for name, impl := range functions {
		if err := conn.CreateFunction(name, impl); err != nil {
			return fmt.Errorf("repository: register %s: %w", name, err)
		}
	}
	return nil
}

// Close closes all connections in the pool.
func (r *SQLiteRepository) Close() error {
	if err := r.pool.Close(); err != nil {
		return fmt.Errorf("repository: closing %s: %w", r.path, err)
	}
	return nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS places (
	id INTEGER PRIMARY KEY,
	place_id TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	search_name TEXT NOT NULL,
	category TEXT,
	source TEXT,
	lat REAL,
	lon REAL,
	metadata_json TEXT,
	last_updated INTEGER
);
CREATE INDEX IF NOT EXISTS places_search_name_idx ON places (search_name);
`

// EnsureSchema creates the places table if missing.
func (r *SQLiteRepository) EnsureSchema(ctx context.Context) error {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("repository: take connection: %w", err)
	}
	defer r.pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, sqliteSchema, nil); err != nil {
		return fmt.Errorf("repository: failed to create schema: %w", err)
	}
	return nil
}

const sqlitePlaceColumns = `
	place_id,
	name,
	COALESCE(category, ''),
	COALESCE(source, ''),
	lat,
	lon,
	metadata_json,
	last_updated`

// readPlaceRow decodes the columns selected by sqlitePlaceColumns.
func readPlaceRow(stmt *sqlite.Stmt) placeRow {
	row := placeRow{
		PlaceID:  stmt.ColumnText(0),
		Name:     stmt.ColumnText(1),
		Category: stmt.ColumnText(2),
		Source:   stmt.ColumnText(3),
	}
	if !stmt.ColumnIsNull(4) && !stmt.ColumnIsNull(5) {
		lat, lon := stmt.ColumnFloat(4), stmt.ColumnFloat(5)
		row.Lat, row.Lon = &lat, &lon
	}
	if !stmt.ColumnIsNull(6) {
		row.Metadata = []byte(stmt.ColumnText(6))
	}
	if !stmt.ColumnIsNull(7) {
		updated := time.Unix(0, stmt.ColumnInt64(7)).UTC()
		row.LastUpdated = &updated
	}
	return row
}

// GetByID fetches one place. It returns models.ErrNotFound when the id is
// unknown.
func (r *SQLiteRepository) GetByID(ctx context.Context, placeID string) (models.Place, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return models.Place{}, fmt.Errorf("repository: take connection: %w", err)
	}
	defer r.pool.Put(conn)

	var (
		row   placeRow
		found bool
	)
	err = sqlitex.Execute(conn, `SELECT`+sqlitePlaceColumns+` FROM places WHERE place_id = ?`, &sqlitex.ExecOptions{
		Args: []any{placeID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			row = readPlaceRow(stmt)
			found = true
			return nil
		},
	})
	if err != nil {
		return models.Place{}, fmt.Errorf("repository: failed to fetch place %s: %w", placeID, err)
	}
	if !found {
		return models.Place{}, models.ErrNotFound
	}
	return row.place()
}

// FindBySimilarName mirrors the PostgreSQL query using the registered Go
// functions.
func (r *SQLiteRepository) FindBySimilarName(ctx context.Context, q models.NameQuery) ([]models.ScoredPlace, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository: take connection: %w", err)
	}
	defer r.pool.Put(conn)

	args := []any{q.Text, q.Threshold, textmatch.SubstringBonus, q.Limit}
	query := `SELECT` + sqlitePlaceColumns + `,
			similarity(search_name, ?1) AS score
		FROM places
		WHERE (similarity(search_name, ?1) >= ?2 OR contains_folded(search_name, ?1))`
	if q.Center != nil && q.RadiusKm > 0 {
		args = append(args, q.Center.Lat, q.Center.Lon, q.RadiusKm)
		query += `
			AND lat IS NOT NULL AND lon IS NOT NULL
			AND distance_km(lat, lon, ?5, ?6) <= ?7`
	}
	query += `
		ORDER BY
			MIN(1.0, similarity(search_name, ?1) + CASE WHEN contains_folded(search_name, ?1) THEN ?3 ELSE 0.0 END) DESC,
			last_updated DESC,
			place_id ASC
		LIMIT ?4`

	var places []models.ScoredPlace
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			place, err := readPlaceRow(stmt).place()
			if err != nil {
				return err
			}
			places = append(places, models.ScoredPlace{Place: place, Similarity: stmt.ColumnFloat(8)})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("repository: failed to execute similarity query: %w", err)
	}
	return places, nil
}

// InsertPlaces upserts places by place_id in one immediate transaction.
func (r *SQLiteRepository) InsertPlaces(ctx context.Context, places []models.Place) (inserted int64, err error) {
	rows, err := placeRows(places)
	if err != nil {
		return 0, err
	}

	conn, err := r.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("repository: take connection: %w", err)
	}
	defer r.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to begin import: %w", err)
	}
	defer endTransaction(&err)

	for _, row := range rows {
		var lat, lon, updated any
		if row.Lat != nil {
			lat, lon = *row.Lat, *row.Lon
		}
		if row.LastUpdated != nil {
			updated = row.LastUpdated.UnixNano()
		}
		err = sqlitex.Execute(conn, `
			INSERT INTO places (place_id, name, search_name, category, source, lat, lon, metadata_json, last_updated)
			VALUES (?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?, ?)
			ON CONFLICT (place_id) DO UPDATE SET
				name = excluded.name,
				search_name = excluded.search_name,
				category = excluded.category,
				source = excluded.source,
				lat = excluded.lat,
				lon = excluded.lon,
				metadata_json = excluded.metadata_json,
				last_updated = excluded.last_updated`,
			&sqlitex.ExecOptions{
				Args: []any{row.PlaceID, row.Name, row.SearchName, row.Category, row.Source, lat, lon, string(row.Metadata), updated},
			})
		if err != nil {
			return 0, fmt.Errorf("repository: failed to insert place %s: %w", row.PlaceID, err)
		}
		inserted++
	}
	return inserted, nil
}

// Ping checks that a connection can run a statement.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("repository: ping: %w", err)
	}
	defer r.pool.Put(conn)

	if err := sqlitex.ExecuteTransient(conn, "SELECT 1", nil); err != nil {
		return fmt.Errorf("repository: ping: %w", err)
	}
	return nil
}

// Count returns the number of places in the catalog.
func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("repository: take connection: %w", err)
	}
	defer r.pool.Put(conn)

	var count int64
	err = sqlitex.Execute(conn, "SELECT COUNT(*) FROM places", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			count = stmt.ColumnInt64(0)
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("repository: failed to count places: %w", err)
	}
	return count, nil
}
