package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"stillopen-api/internal/classifier"

	"github.com/spf13/cobra"
)

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <artifact>",
		Short: "Print an artifact's header and model summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.OutOrStdout(), args[0])
		},
	}
}

func runInspect(w io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}
	header, err := classifier.ReadHeader(data)
	if err != nil {
		return err
	}
	artifact, err := classifier.Decode(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "format:        v%d\n", header.FormatVersion)
	fmt.Fprintf(w, "compression:   %s (%d -> %d bytes)\n", header.Compression, header.UncompressedSize, header.CompressedSize)
	fmt.Fprintf(w, "checksum:      %s\n", hex.EncodeToString(header.Checksum[:]))
	fmt.Fprintf(w, "model_version: %s\n", artifact.ModelVersion)
	fmt.Fprintf(w, "kind:          %s\n", artifact.Kind)
	switch artifact.Kind {
	case classifier.KindForest:
		fmt.Fprintf(w, "trees:         %d\n", len(artifact.Forest.Trees))
	case classifier.KindLogistic:
		fmt.Fprintf(w, "intercept:     %g\n", artifact.Logistic.Intercept)
	}
	fmt.Fprintf(w, "schema:        %s (%d features, fingerprint %s)\n", artifact.Schema.Version, artifact.Schema.Len(), artifact.Schema.Fingerprint())
	for i, name := range artifact.Schema.Features {
		fmt.Fprintf(w, "  %2d %s\n", i, name)
	}
	return nil
}
