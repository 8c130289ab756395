//go:build integration

package repository

import (
	"context"
	"testing"

	"stillopen-api/internal/geo"
	"stillopen-api/internal/models"
	"stillopen-api/internal/textmatch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jackc/pgx/v5/pgxpool"
)

func setupTestDatabase(t *testing.T) *pgxpool.Pool {
	ctx := context.Background()

	// Start PostgreSQL container with PostGIS
	req := testcontainers.ContainerRequest{
		Image:        "postgis/postgis:16-3.4",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "testdb",
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}

	postgresC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		postgresC.Terminate(ctx)
	})

	host, err := postgresC.Host(ctx)
	require.NoError(t, err)

	port, err := postgresC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connString := "postgres://testuser:testpass@" + host + ":" + port.Port() + "/testdb?sslmode=disable"

	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Close()
	})

	return pool
}

func setupPostgresRepository(t *testing.T) *PostgresRepository {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	repo := NewPostgresRepository(setupTestDatabase(t))
	require.NoError(t, repo.EnsureSchema(ctx))

	inserted, err := repo.InsertPlaces(ctx, testPlaces())
	require.NoError(t, err)
	require.Equal(t, int64(4), inserted)
	return repo
}

func TestPostgresRepository_GetByID(t *testing.T) {
	repo := setupPostgresRepository(t)
	ctx := context.Background()

	place, err := repo.GetByID(ctx, "p-joes")
	require.NoError(t, err)
	assert.Equal(t, "Joe's Diner", place.Name)
	assert.Equal(t, "overture", place.Source)
	require.NotNil(t, place.Location)
	assert.InDelta(t, 40.7128, place.Location.Lat, 1e-9)
	assert.InDelta(t, -74.006, place.Location.Lon, 1e-9)
	assert.Equal(t, updated, place.LastUpdated)
	assert.Equal(t, []string{"+1 212 555 0100"}, place.Metadata.Phones)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPostgresRepository_FindBySimilarName(t *testing.T) {
	repo := setupPostgresRepository(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		query    models.NameQuery
		expected []string
	}{
		{
			name:     "misspelled name",
			query:    models.NameQuery{Text: textmatch.Normalize("joes dinr"), Limit: 10, Threshold: 0.15},
			expected: []string{"p-joes"},
		},
		{
			name:     "substring match ranks first",
			query:    models.NameQuery{Text: textmatch.Normalize("Diner"), Limit: 10, Threshold: 0.15},
			expected: []string{"p-joes", "p-nowhere"},
		},
		{
			name:     "accent insensitive",
			query:    models.NameQuery{Text: textmatch.Normalize("CAFE"), Limit: 10, Threshold: 0.15},
			expected: []string{"p-cafe"},
		},
		{
			name: "radius filter",
			query: models.NameQuery{
				Text: textmatch.Normalize("diner"), Limit: 10, Threshold: 0.15,
				Center: &geo.Point{Lat: 40.7, Lon: -74.0}, RadiusKm: 5,
			},
			expected: []string{"p-joes"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			places, err := repo.FindBySimilarName(ctx, tt.query)
			require.NoError(t, err)

			var ids []string
			for _, p := range places {
				ids = append(ids, p.Place.PlaceID)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}
