package main

import (
	"fmt"
	"os"

	"stillopen-api/internal/classifier"
	"stillopen-api/internal/features"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type packOptions struct {
	in          string
	out         string
	compression string
	vocabulary  string
	skipCheck   bool
}

func newPackCommand() *cobra.Command {
	opts := packOptions{}
	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Encode a YAML model export into a binary artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPack(opts)
		},
	}
	cmd.Flags().StringVar(&opts.in, "in", "", "YAML model export")
	cmd.Flags().StringVar(&opts.out, "out", "models/open_model.bin", "artifact path to write")
	cmd.Flags().StringVar(&opts.compression, "compression", "zstd", "payload compression: none, lz4 or zstd")
	cmd.Flags().StringVar(&opts.vocabulary, "vocabulary", "", "category vocabulary YAML (default: built in)")
	cmd.Flags().BoolVar(&opts.skipCheck, "skip-schema-check", false, "do not compare the export's schema with the feature pipeline")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func runPack(opts packOptions) error {
	tag, err := classifier.ParseCompressionTag(opts.compression)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(opts.in)
	if err != nil {
		return fmt.Errorf("read export: %w", err)
	}
	var artifact classifier.Artifact
	if err := yaml.Unmarshal(data, &artifact); err != nil {
		return fmt.Errorf("parse export: %w", err)
	}

	if !opts.skipCheck {
		schema, err := pipelineSchema(opts.vocabulary)
		if err != nil {
			return err
		}
		// New runs the same checks the API runs at startup.
		if _, err := classifier.New(&artifact, schema); err != nil {
			return err
		}
	}

	if err := classifier.WriteFile(opts.out, &artifact, tag); err != nil {
		return err
	}
	log.Info().
		Str("model_version", artifact.ModelVersion).
		Str("kind", string(artifact.Kind)).
		Str("compression", tag.String()).
		Str("out", opts.out).
		Msg("artifact written")
	return nil
}

func pipelineSchema(vocabularyPath string) (features.Schema, error) {
	opts := features.Options{}
	if vocabularyPath != "" {
		data, err := os.ReadFile(vocabularyPath)
		if err != nil {
			return features.Schema{}, fmt.Errorf("read vocabulary: %w", err)
		}
		vocab, err := features.ParseVocabulary(data)
		if err != nil {
			return features.Schema{}, err
		}
		opts.Vocabulary = vocab
	}
	return features.NewPipeline(opts).Schema(), nil
}
