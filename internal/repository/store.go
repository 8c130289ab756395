package repository

import (
	"context"
	"fmt"

	"stillopen-api/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the full surface of a catalog backend, shared by the API and
// the importer.
type Store interface {
	GetByID(ctx context.Context, placeID string) (models.Place, error)
	FindBySimilarName(ctx context.Context, q models.NameQuery) ([]models.ScoredPlace, error)
	EnsureSchema(ctx context.Context) error
	InsertPlaces(ctx context.Context, places []models.Place) (int64, error)
	Ping(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
	Close() error
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the catalog named by driver. For postgres, source is a
// connection string; for sqlite, a file path.
func Open(ctx context.Context, driver, source string, poolSize int) (Store, error) {
	switch driver {
	case DriverPostgres:
		cfg, err := pgxpool.ParseConfig(source)
		if err != nil {
			return nil, fmt.Errorf("repository: invalid postgres source: %w", err)
		}
		if poolSize > 0 {
			cfg.MaxConns = int32(poolSize)
		}
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("repository: cannot connect to postgres: %w", err)
		}
		return NewPostgresRepository(pool), nil
	case DriverSQLite:
		return OpenSQLite(source, poolSize)
	default:
		return nil, fmt.Errorf("repository: unknown driver %q", driver)
	}
}
