package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"stillopen-api/internal/config"
	"stillopen-api/internal/repository"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type importOptions struct {
	file      string
	format    string
	configDir string
	driver    string
	source    string
	batchSize int
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := newRootCommand().Execute(); err != nil {
		log.Fatal().Err(err).Msg("import failed")
	}
}

func newRootCommand() *cobra.Command {
	opts := importOptions{}
	cmd := &cobra.Command{
		Use:   "importer",
		Short: "Seed the place catalog from a bulk file",
		Long: `Reads places from a JSON-lines or CSV file and upserts them into the
catalog store named by DB_DRIVER and DB_SOURCE.

JSON lines carry one object per line with place_id, name, category, lat, lon,
source, metadata and last_updated. CSV files need a header row with the
same column names; metadata is a JSON object in its column.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "path to the file to import")
	cmd.Flags().StringVar(&opts.format, "format", "", "input format: jsonl or csv (default: from the file extension)")
	cmd.Flags().StringVar(&opts.configDir, "config", "configs", "directory holding app.env")
	cmd.Flags().StringVar(&opts.driver, "driver", "", "override DB_DRIVER")
	cmd.Flags().StringVar(&opts.source, "source", "", "override DB_SOURCE")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 5000, "places per insert batch")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runImport(ctx context.Context, opts importOptions) error {
	if opts.batchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", opts.batchSize)
	}
	format, err := resolveFormat(opts.format, opts.file)
	if err != nil {
		return err
	}

	log.Info().Str("file", opts.file).Str("format", format).Msg("starting import")

	places, err := readPlacesFile(opts.file, format)
	if err != nil {
		return fmt.Errorf("parse %s: %w", opts.file, err)
	}
	log.Info().Int("records", len(places)).Msg("parsed records")
	if extra := unrecognizedKeys(places); len(extra) > 0 {
		log.Info().Interface("keys", extra).Msg("metadata keys kept as extra values")
	}

	cfg, err := config.LoadConfig(opts.configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.driver != "" {
		cfg.DBDriver = opts.driver
	}
	if opts.source != "" {
		cfg.DBSource = opts.source
	}

	store, err := repository.Open(ctx, cfg.DBDriver, cfg.DBSource, cfg.DBPoolSize)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	before, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("count places: %w", err)
	}

	var written int64
	for start := 0; start < len(places); start += opts.batchSize {
		end := min(start+opts.batchSize, len(places))
		n, err := store.InsertPlaces(ctx, places[start:end])
		if err != nil {
			return fmt.Errorf("insert places %d-%d: %w", start, end, err)
		}
		written += n
		log.Debug().Int("offset", end).Msg("batch written")
	}
	log.Info().Int64("written", written).Msg("places upserted")

	return verifyImport(ctx, store, before, distinctIDs(places))
}

func resolveFormat(format, file string) (string, error) {
	if format == "" {
		switch strings.ToLower(filepath.Ext(file)) {
		case ".csv":
			format = formatCSV
		default:
			format = formatJSONL
		}
	}
	switch format {
	case formatJSONL, formatCSV:
		return format, nil
	default:
		return "", fmt.Errorf("unknown format %q, expected jsonl or csv", format)
	}
}

type counter interface {
	Count(ctx context.Context) (int64, error)
}

// verifyImport checks that the catalog grew by no more than the number of
// distinct ids imported and is at least as large as that number.
func verifyImport(ctx context.Context, store counter, before int64, imported int) error {
	after, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("count places: %w", err)
	}
	if after < int64(imported) || after-before > int64(imported) {
		return fmt.Errorf("record count mismatch: imported %d distinct places, catalog went from %d to %d", imported, before, after)
	}
	log.Info().
		Int("imported", imported).
		Int64("new", after-before).
		Int64("total", after).
		Msg("import complete")
	return nil
}
